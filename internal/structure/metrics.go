package structure

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// mutationTotal counts structural mutations by operation and outcome kind
	mutationTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "structure_mutation_total",
		Help: "Structural mutations by operation and result",
	}, []string{"operation", "result"})

	mutationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "structure_mutation_duration_seconds",
		Help:    "Structural mutation duration in seconds, lock wait included",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
	}, []string{"operation"})

	// resequenceWrites counts rows rewritten by the resequencer; zero on a
	// settled structure
	resequenceWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "structure_resequence_writes_total",
		Help: "Rows rewritten by resequencing, by row kind",
	}, []string{"kind"})

	bootstrapAssignments = promauto.NewCounter(prometheus.CounterOpts{
		Name: "structure_bootstrap_assigned_questions_total",
		Help: "Questions attached to a chapter by the bootstrap pass",
	})

	bootstrapChapters = promauto.NewCounter(prometheus.CounterOpts{
		Name: "structure_bootstrap_chapters_total",
		Help: "Default chapters created by the bootstrap pass",
	})

	answersPruned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "structure_answers_pruned_total",
		Help: "Answers deleted because their index fell outside the question range",
	})

	loadsCoalesced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "structure_loads_coalesced_total",
		Help: "Structure loads served by an in-flight load for the same user",
	})
)

// observeRepair records a committed transaction's repair work. Rolled back
// work is never counted.
func observeRepair(r RepairReport) {
	if r.DefaultChapter {
		bootstrapChapters.Inc()
	}
	if r.Assigned > 0 {
		bootstrapAssignments.Add(float64(r.Assigned))
	}
	if r.Resequence.ChapterWrites > 0 {
		resequenceWrites.WithLabelValues("chapter").Add(float64(r.Resequence.ChapterWrites))
	}
	if r.Resequence.QuestionWrites > 0 {
		resequenceWrites.WithLabelValues("question").Add(float64(r.Resequence.QuestionWrites))
	}
	if r.Pruned > 0 {
		answersPruned.Add(float64(r.Pruned))
	}
}
