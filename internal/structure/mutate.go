package structure

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/mind-engage/interviewbook/internal/db"
)

// mutation carries the fields logged for a failed operation.
type mutation struct {
	op         string
	userID     string
	chapterID  int64
	questionID int64
	mode       Mode
	requested  int
	total      int
	repair     RepairReport
}

func (m mutation) attrs() []any {
	attrs := []any{slog.String("op", m.op)}
	if m.userID != "" {
		attrs = append(attrs, slog.String("user_id", m.userID))
	}
	if m.chapterID != 0 {
		attrs = append(attrs, slog.Int64("chapter_id", m.chapterID))
	}
	if m.questionID != 0 {
		attrs = append(attrs, slog.Int64("question_id", m.questionID))
	}
	if m.mode != "" {
		attrs = append(attrs, slog.String("mode", string(m.mode)))
	}
	if m.requested != 0 {
		attrs = append(attrs, slog.Int("requested", m.requested))
	}
	if m.total != 0 {
		attrs = append(attrs, slog.Int("total", m.total))
	}
	return attrs
}

// key names the row the mutation targeted, for the event log.
func (m mutation) key() string {
	switch {
	case m.questionID != 0:
		return "question:" + strconv.FormatInt(m.questionID, 10)
	case m.chapterID != 0:
		return "chapter:" + strconv.FormatInt(m.chapterID, 10)
	}
	return ""
}

type eventData struct {
	Mode      Mode `json:"mode,omitempty"`
	Requested int  `json:"requested,omitempty"`
	Total     int  `json:"total"`
}

func (m mutation) data() eventData {
	return eventData{Mode: m.mode, Requested: m.requested, Total: m.total}
}

// mutate runs apply between the bootstrap and the resequence/prune passes,
// then finish with the settled total. Everything shares one transaction.
func (s *Service) mutate(
	ctx context.Context,
	m *mutation,
	apply func(context.Context, *sql.Tx) error,
	finish func(context.Context, *sql.Tx, int) error,
) error {
	return s.run(ctx, m, func(ctx context.Context, tx *sql.Tx) error {
		m.repair = RepairReport{UserID: m.userID}
		b, err := s.engine.Bootstrap(ctx, tx, m.userID)
		if err != nil {
			return err
		}
		m.repair.addBootstrap(b)
		if err := apply(ctx, tx); err != nil {
			return err
		}
		res, err := s.engine.Resequence(ctx, tx, m.userID)
		if err != nil {
			return err
		}
		m.repair.addResequence(res)
		m.total = res.Total
		if m.repair.Pruned, err = s.engine.Prune(ctx, tx, m.userID, res.Total); err != nil {
			return err
		}
		if err := finish(ctx, tx, res.Total); err != nil {
			return err
		}
		return s.events.Append(ctx, tx, m.userID, m.op, m.key(), m.data())
	})
}

// run takes the per-user lock, opens the transaction and records the outcome.
func (s *Service) run(ctx context.Context, m *mutation, fn func(context.Context, *sql.Tx) error) error {
	start := time.Now()
	defer func() {
		mutationDuration.WithLabelValues(m.op).Observe(time.Since(start).Seconds())
	}()

	release, err := s.locker.Lock(ctx, m.userID)
	if err != nil {
		return s.internal(ctx, *m, err)
	}
	defer release()

	err = db.WithTx(ctx, s.db, nil, func(tx *sql.Tx) error {
		if s.advisory {
			if err := s.store.LockUser(ctx, tx, m.userID); err != nil {
				return err
			}
		}
		return fn(ctx, tx)
	})
	if err != nil {
		return s.fail(ctx, *m, err)
	}
	observeRepair(m.repair)
	mutationTotal.WithLabelValues(m.op, "ok").Inc()
	s.log.DebugContext(ctx, "structure mutation applied", m.attrs()...)
	return nil
}

// fail classifies err, counts it and logs the ones the caller cannot fix.
func (s *Service) fail(ctx context.Context, m mutation, err error) error {
	err = translate(err)
	kind := KindOf(err)
	mutationTotal.WithLabelValues(m.op, kind.String()).Inc()
	switch kind {
	case KindInternal:
		s.log.ErrorContext(ctx, "structure mutation failed", append(m.attrs(), slog.Any("error", err))...)
	case KindConflict:
		s.log.WarnContext(ctx, "structure mutation conflicted", append(m.attrs(), slog.Any("error", err))...)
	}
	return err
}

// internal reports a failure that happened before any statement ran, such
// as a lock that could not be acquired.
func (s *Service) internal(ctx context.Context, m mutation, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		mutationTotal.WithLabelValues(m.op, "canceled").Inc()
		return err
	}
	return s.fail(ctx, m, err)
}
