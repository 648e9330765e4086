package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/mind-engage/interviewbook/internal/app"
	"github.com/mind-engage/interviewbook/internal/structure"
)

type repairLine struct {
	User           string `yaml:"user" json:"user"`
	Total          int    `yaml:"total" json:"total"`
	ChapterWrites  int    `yaml:"chapter_writes" json:"chapter_writes"`
	QuestionWrites int    `yaml:"question_writes" json:"question_writes"`
	Pruned         int64  `yaml:"pruned_answers" json:"pruned_answers"`
}

func toLine(r structure.RepairReport) repairLine {
	return repairLine{
		User:           r.UserID,
		Total:          r.Resequence.Total,
		ChapterWrites:  r.Resequence.ChapterWrites,
		QuestionWrites: r.Resequence.QuestionWrites,
		Pruned:         r.Pruned,
	}
}

// backfill is the one-off migration that attaches chapterless questions and
// settles positions for every user, so reads find nothing to repair.
func newBackfillCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "backfill",
		Short: "Bootstrap, resequence and prune every user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				reports, err := a.Structure.Backfill(ctx)
				lines := make([]repairLine, 0, len(reports))
				for _, r := range reports {
					lines = append(lines, toLine(r))
				}
				if werr := write(cmd.OutOrStdout(), opts.Format, lines); werr != nil {
					return werr
				}
				if err != nil {
					return wrapExit(ExitFailure, "backfill stopped", err)
				}
				return nil
			})
		},
	}
}

func newResequenceCommand(opts *RootOptions) *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "resequence",
		Short: "Repair one user's structure",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				rep, err := a.Structure.Repair(ctx, user)
				if err != nil {
					return wrapExit(ExitFailure, "resequence "+user, err)
				}
				return write(cmd.OutOrStdout(), opts.Format, toLine(rep))
			})
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "user id")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newEventsCommand(opts *RootOptions) *cobra.Command {
	var (
		user  string
		after int64
		limit int
	)
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show a user's structural change history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				evs, err := a.Structure.Events(ctx, user, after, limit)
				if err != nil {
					return wrapExit(ExitFailure, "events "+user, err)
				}
				return write(cmd.OutOrStdout(), opts.Format, evs)
			})
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "user id")
	cmd.Flags().Int64Var(&after, "after", 0, "only events with a larger offset")
	cmd.Flags().IntVar(&limit, "limit", 100, "maximum number of events")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
