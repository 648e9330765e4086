package structure

import "github.com/mind-engage/interviewbook/internal/answers"

type Mode string

const (
	ModeAppend  Mode = "append"
	ModeReplace Mode = "replace"
)

func (m Mode) Valid() bool { return m == ModeAppend || m == ModeReplace }

// Chapter is a persisted chapter row.
type Chapter struct {
	ID        int64
	UserID    string
	Position  int
	Title     *string
	CreatedAt int64
}

// Question is a persisted question row. ChapterID is nil only before the
// bootstrap pass has run for the user.
type Question struct {
	ID              int64
	UserID          string
	ChapterID       *int64
	ChapterPosition int
	Position        int
	Text            string
}

// ChapterView is a chapter in the loaded read model.
type ChapterView struct {
	ID            int64          `json:"id"`
	Position      int            `json:"position"`
	Title         *string        `json:"title"`
	StartIndex    int            `json:"startIndex"`
	QuestionCount int            `json:"questionCount"`
	Questions     []QuestionView `json:"questions"`
}

// QuestionView is one entry of the flat, globally ordered question list.
// Index is the coordinate that answers bind to.
type QuestionView struct {
	ID              int64  `json:"id"`
	Index           int    `json:"index"`
	ChapterID       int64  `json:"chapterId"`
	ChapterPosition int    `json:"chapterPosition"`
	Text            string `json:"text"`
}

type Structure struct {
	Chapters       []ChapterView  `json:"chapters"`
	Questions      []QuestionView `json:"questions"`
	TotalQuestions int            `json:"totalQuestions"`
}

// Chapter returns the chapter view with the given id.
func (s Structure) Chapter(id int64) (ChapterView, bool) {
	for _, c := range s.Chapters {
		if c.ID == id {
			return c, true
		}
	}
	return ChapterView{}, false
}

type ChapterRef struct {
	ID       int64   `json:"id"`
	Position int     `json:"position"`
	Title    *string `json:"title"`
}

type UpsertInput struct {
	UserID    string
	ChapterID int64
	Mode      Mode
	Texts     []string
}

type UpsertResult struct {
	Added   int         `json:"added"`
	Total   int         `json:"total"`
	Chapter ChapterView `json:"chapter"`
}

// ImportChapter is one chapter of an import, in document order.
type ImportChapter struct {
	Title *string
	Texts []string
}

type ImportInput struct {
	UserID     string
	Chapters   []ImportChapter
	ClearExtra bool // empty the user's chapters past the last imported one
	// Answers replaces the user's answer set when non-nil.
	Answers []answers.Answer
}

type ImportResult struct {
	Chapters int `json:"chapters"`
	Total    int `json:"total"`
	Answers  int `json:"answers"`
}

type DeleteResult struct {
	Total int `json:"total"`
}

// ResequenceResult reports the outcome of one resequencing pass.
type ResequenceResult struct {
	Total          int `json:"total"`
	ChapterWrites  int `json:"chapterWrites"`
	QuestionWrites int `json:"questionWrites"`
}

func (r ResequenceResult) Writes() int { return r.ChapterWrites + r.QuestionWrites }

// RepairReport sums what the repair passes of one transaction wrote.
// Resequence.Total is the settled question count.
type RepairReport struct {
	UserID         string           `json:"userId"`
	DefaultChapter bool             `json:"defaultChapter,omitempty"`
	Assigned       int              `json:"assigned,omitempty"`
	Resequence     ResequenceResult `json:"resequence"`
	Pruned         int64            `json:"pruned"`
}

func (r *RepairReport) addBootstrap(b BootstrapResult) {
	r.DefaultChapter = r.DefaultChapter || b.CreatedDefault
	r.Assigned += b.Assigned
	r.Resequence.ChapterWrites += b.Resequence.ChapterWrites
	r.Resequence.QuestionWrites += b.Resequence.QuestionWrites
}

func (r *RepairReport) addResequence(res ResequenceResult) {
	r.Resequence.ChapterWrites += res.ChapterWrites
	r.Resequence.QuestionWrites += res.QuestionWrites
	r.Resequence.Total = res.Total
}

// Changed reports whether any repair pass wrote.
func (r RepairReport) Changed() bool {
	return r.DefaultChapter || r.Assigned > 0 || r.Resequence.Writes() > 0 || r.Pruned > 0
}
