package structure

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/mind-engage/interviewbook/internal/answers"
	"github.com/mind-engage/interviewbook/internal/db"
	"github.com/mind-engage/interviewbook/internal/eventlog"
	"github.com/mind-engage/interviewbook/internal/lock"
)

type Options struct {
	Locker         lock.Locker  // nil = lock.NewLocal()
	Logger         *slog.Logger // nil = slog.Default()
	AdvisoryLocks  bool         // postgres only
	MaxQuestions   int          // per upsert request; 0 = unlimited
	Now            func() time.Time
	DisableCoalesc bool
	LoadTimeout    time.Duration // bounds a shared load; 0 = 30s
}

// Service is the mutation orchestrator and the entry point for structure
// reads. Every mutation runs bootstrap, the change, resequence and prune in
// one transaction while holding the per-user lock.
type Service struct {
	db       *sql.DB
	driver   db.Driver
	store    *SQLStore
	engine   *Engine
	events   *eventlog.Repo
	locker   lock.Locker
	log      *slog.Logger
	advisory bool
	maxQ     int
	coalesce bool
	loadTTL  time.Duration
	loads    singleflight.Group
}

func NewService(dbh *sql.DB, driver db.Driver, opts Options) *Service {
	store := NewSQLStore(driver)
	if opts.Now != nil {
		store.now = opts.Now
	}
	s := &Service{
		db:       dbh,
		driver:   driver,
		store:    store,
		engine:   NewEngine(store),
		events:   eventlog.NewRepo(store.now),
		locker:   opts.Locker,
		log:      opts.Logger,
		advisory: opts.AdvisoryLocks,
		maxQ:     opts.MaxQuestions,
		coalesce: !opts.DisableCoalesc,
		loadTTL:  opts.LoadTimeout,
	}
	if s.loadTTL <= 0 {
		s.loadTTL = 30 * time.Second
	}
	if s.locker == nil {
		s.locker = lock.NewLocal()
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	return s
}

// Engine exposes the repair passes, mainly for tooling and tests.
func (s *Service) Engine() *Engine { return s.engine }

// FetchStructure loads the user's structure, repairing it first. Concurrent
// fetches for the same user share one load. The shared load is detached from
// the caller that started it, so one caller giving up does not fail the
// others; each caller stops waiting when its own context ends.
func (s *Service) FetchStructure(ctx context.Context, userID string) (Structure, error) {
	if strings.TrimSpace(userID) == "" {
		return Structure{}, ErrMissingUser
	}
	if !s.coalesce {
		return s.load(ctx, userID)
	}
	ch := s.loads.DoChan(userID, func() (any, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.loadTTL)
		defer cancel()
		return s.load(lctx, userID)
	})
	select {
	case <-ctx.Done():
		return Structure{}, ctx.Err()
	case r := <-ch:
		if r.Shared {
			loadsCoalesced.Inc()
		}
		if r.Err != nil {
			return Structure{}, r.Err
		}
		return r.Val.(Structure), nil
	}
}

func (s *Service) load(ctx context.Context, userID string) (Structure, error) {
	release, err := s.locker.Lock(ctx, userID)
	if err != nil {
		return Structure{}, s.internal(ctx, mutation{op: "fetch", userID: userID}, err)
	}
	defer release()

	var (
		st  Structure
		rep RepairReport
	)
	err = db.WithTx(ctx, s.db, nil, func(tx *sql.Tx) error {
		if s.advisory {
			if err := s.store.LockUser(ctx, tx, userID); err != nil {
				return err
			}
		}
		var err error
		st, rep, err = s.engine.Load(ctx, tx, userID)
		return err
	})
	if err != nil {
		return Structure{}, s.fail(ctx, mutation{op: "fetch", userID: userID}, err)
	}
	observeRepair(rep)
	return st, nil
}

// QuestionCount returns the user's total after repair.
func (s *Service) QuestionCount(ctx context.Context, userID string) (int, error) {
	st, err := s.FetchStructure(ctx, userID)
	if err != nil {
		return 0, err
	}
	return st.TotalQuestions, nil
}

// CreateChapter appends a chapter after the user's last one. A blank title
// is stored as NULL.
func (s *Service) CreateChapter(ctx context.Context, userID string, title *string) (ChapterRef, error) {
	if strings.TrimSpace(userID) == "" {
		return ChapterRef{}, ErrMissingUser
	}
	title = normalizeTitle(title)

	var out ChapterRef
	m := mutation{op: "create_chapter", userID: userID}
	err := s.mutate(ctx, &m, func(ctx context.Context, tx *sql.Tx) error {
		c, err := s.store.AppendChapter(ctx, tx, userID, title)
		if err != nil {
			return err
		}
		m.chapterID = c.ID
		out.ID = c.ID
		return nil
	}, func(ctx context.Context, tx *sql.Tx, _ int) error {
		// resequencing may have moved the new chapter if positions had gaps
		c, err := s.store.GetChapter(ctx, tx, userID, out.ID)
		if err != nil {
			return err
		}
		out.Position, out.Title = c.Position, c.Title
		return nil
	})
	if err != nil {
		return ChapterRef{}, err
	}
	return out, nil
}

// UpsertQuestions appends texts to a chapter or replaces its questions.
func (s *Service) UpsertQuestions(ctx context.Context, in UpsertInput) (UpsertResult, error) {
	if strings.TrimSpace(in.UserID) == "" {
		return UpsertResult{}, ErrMissingUser
	}
	if !in.Mode.Valid() {
		return UpsertResult{}, ErrInvalidMode
	}
	if in.ChapterID <= 0 {
		return UpsertResult{}, ErrInvalidChapterID
	}
	texts := NormalizeTexts(in.Texts)
	if s.maxQ > 0 && len(texts) > s.maxQ {
		return UpsertResult{}, ErrTooManyQuestions
	}

	var out UpsertResult
	m := mutation{op: "upsert_questions", userID: in.UserID, chapterID: in.ChapterID, mode: in.Mode, requested: len(texts)}
	err := s.mutate(ctx, &m, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := s.store.GetChapter(ctx, tx, in.UserID, in.ChapterID); err != nil {
			return err
		}
		start := 0
		switch in.Mode {
		case ModeAppend:
			if len(texts) == 0 {
				return ErrNoQuestions
			}
			existing, err := s.store.ChapterTexts(ctx, tx, in.ChapterID)
			if err != nil {
				return err
			}
			if err := checkDuplicates(texts, existing); err != nil {
				return err
			}
			max, err := s.store.MaxChapterPosition(ctx, tx, in.ChapterID)
			if err != nil {
				return err
			}
			start = max + 1
		case ModeReplace:
			if err := checkDuplicates(texts, nil); err != nil {
				return err
			}
			if _, err := s.store.DeleteChapterQuestions(ctx, tx, in.UserID, in.ChapterID); err != nil {
				return err
			}
		}
		for i, text := range texts {
			if _, err := s.store.InsertQuestion(ctx, tx, in.UserID, in.ChapterID, start+i, text); err != nil {
				return err
			}
		}
		out.Added = len(texts)
		return nil
	}, func(ctx context.Context, tx *sql.Tx, total int) error {
		st, err := s.engine.Read(ctx, tx, in.UserID)
		if err != nil {
			return err
		}
		out.Total = total
		out.Chapter, _ = st.Chapter(in.ChapterID)
		return nil
	})
	if err != nil {
		return UpsertResult{}, err
	}
	return out, nil
}

// DeleteQuestion removes one question owned by userID.
func (s *Service) DeleteQuestion(ctx context.Context, userID string, questionID int64) (DeleteResult, error) {
	if strings.TrimSpace(userID) == "" {
		return DeleteResult{}, ErrMissingUser
	}
	if questionID <= 0 {
		return DeleteResult{}, ErrInvalidQuestionID
	}

	var out DeleteResult
	m := mutation{op: "delete_question", userID: userID, questionID: questionID}
	err := s.mutate(ctx, &m, func(ctx context.Context, tx *sql.Tx) error {
		return s.store.DeleteQuestion(ctx, tx, userID, questionID)
	}, func(_ context.Context, _ *sql.Tx, total int) error {
		out.Total = total
		return nil
	})
	if err != nil {
		return DeleteResult{}, err
	}
	return out, nil
}

// Repair runs bootstrap, resequence and prune for one user in a single
// transaction. It is the explicit form of the repair a read performs.
func (s *Service) Repair(ctx context.Context, userID string) (RepairReport, error) {
	if strings.TrimSpace(userID) == "" {
		return RepairReport{}, ErrMissingUser
	}
	var rep RepairReport
	m := mutation{op: "repair", userID: userID}
	err := s.run(ctx, &m, func(ctx context.Context, tx *sql.Tx) error {
		rep = RepairReport{UserID: userID}
		b, err := s.engine.Bootstrap(ctx, tx, userID)
		if err != nil {
			return err
		}
		rep.addBootstrap(b)
		res, err := s.engine.Resequence(ctx, tx, userID)
		if err != nil {
			return err
		}
		rep.addResequence(res)
		if rep.Pruned, err = s.engine.Prune(ctx, tx, userID, res.Total); err != nil {
			return err
		}
		m.repair = rep
		if !rep.Changed() {
			return nil
		}
		m.total = res.Total
		return s.events.Append(ctx, tx, userID, m.op, "", m.data())
	})
	if err != nil {
		return RepairReport{}, err
	}
	return rep, nil
}

// Import replaces the questions of the user's chapters with the given
// chapters, in order, creating chapters the user does not have yet. All of it
// happens in one transaction: any failure leaves the user as they were.
func (s *Service) Import(ctx context.Context, in ImportInput) (ImportResult, error) {
	if strings.TrimSpace(in.UserID) == "" {
		return ImportResult{}, ErrMissingUser
	}
	chapters := make([][]string, len(in.Chapters))
	requested := 0
	for i, c := range in.Chapters {
		texts := NormalizeTexts(c.Texts)
		if s.maxQ > 0 && len(texts) > s.maxQ {
			return ImportResult{}, fmt.Errorf("chapter %d: %w", i+1, ErrTooManyQuestions)
		}
		if err := checkDuplicates(texts, nil); err != nil {
			return ImportResult{}, fmt.Errorf("chapter %d: %w", i+1, err)
		}
		chapters[i] = texts
		requested += len(texts)
	}

	out := ImportResult{Chapters: len(chapters)}
	m := mutation{op: "import", userID: in.UserID, mode: ModeReplace, requested: requested}
	err := s.mutate(ctx, &m, func(ctx context.Context, tx *sql.Tx) error {
		existing, err := s.store.ListChapters(ctx, tx, in.UserID)
		if err != nil {
			return err
		}
		for i, texts := range chapters {
			var chapterID int64
			if i < len(existing) {
				chapterID = existing[i].ID
			} else {
				c, err := s.store.AppendChapter(ctx, tx, in.UserID, normalizeTitle(in.Chapters[i].Title))
				if err != nil {
					return err
				}
				chapterID = c.ID
			}
			if _, err := s.store.DeleteChapterQuestions(ctx, tx, in.UserID, chapterID); err != nil {
				return err
			}
			for pos, text := range texts {
				if _, err := s.store.InsertQuestion(ctx, tx, in.UserID, chapterID, pos, text); err != nil {
					return err
				}
			}
		}
		if in.ClearExtra && len(existing) > len(chapters) {
			for _, c := range existing[len(chapters):] {
				if _, err := s.store.DeleteChapterQuestions(ctx, tx, in.UserID, c.ID); err != nil {
					return err
				}
			}
		}
		return nil
	}, func(ctx context.Context, tx *sql.Tx, total int) error {
		out.Total = total
		if in.Answers == nil {
			return nil
		}
		saved, err := answers.ReplaceIn(ctx, tx, in.UserID, in.Answers, total, s.store.now())
		if err != nil {
			return err
		}
		out.Answers = len(saved)
		return nil
	})
	if err != nil {
		return ImportResult{}, err
	}
	return out, nil
}

// Backfill repairs every user that owns chapters or questions. It stops at
// the first failure and returns the reports gathered so far.
func (s *Service) Backfill(ctx context.Context) ([]RepairReport, error) {
	users, err := s.store.ListUsers(ctx, s.db)
	if err != nil {
		return nil, s.fail(ctx, mutation{op: "backfill"}, err)
	}
	out := make([]RepairReport, 0, len(users))
	for _, u := range users {
		rep, err := s.Repair(ctx, u)
		if err != nil {
			return out, err
		}
		out = append(out, rep)
	}
	return out, nil
}

// Events returns the user's change history after the given offset.
func (s *Service) Events(ctx context.Context, userID string, after int64, limit int) ([]eventlog.Event, error) {
	evs, err := s.events.List(ctx, s.db, userID, after, limit)
	if err != nil {
		return nil, s.fail(ctx, mutation{op: "events", userID: userID}, err)
	}
	return evs, nil
}

// NormalizeTexts trims every text and drops blank ones, keeping order.
func NormalizeTexts(texts []string) []string {
	out := make([]string, 0, len(texts))
	for _, t := range texts {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// SplitBulk splits a newline separated block of questions.
func SplitBulk(bulk string) []string {
	if bulk == "" {
		return nil
	}
	return NormalizeTexts(strings.Split(strings.ReplaceAll(bulk, "\r\n", "\n"), "\n"))
}

func normalizeTitle(title *string) *string {
	if title == nil {
		return nil
	}
	t := strings.TrimSpace(*title)
	if t == "" {
		return nil
	}
	return &t
}
