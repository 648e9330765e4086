package cli

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/mind-engage/interviewbook/internal/app"
	auth "github.com/mind-engage/interviewbook/internal/auth/middleware"
	"github.com/mind-engage/interviewbook/internal/config"
)

func newTestApp(t *testing.T) *app.App {
	t.Helper()
	cfg := config.Config{
		DBDriver:               "sqlite",
		DBDSN:                  "file:" + t.Name() + "?mode=memory&cache=shared&_pragma=foreign_keys(1)",
		LockDriver:             "local",
		MaxQuestionsPerChapter: 100,
	}
	a, err := app.New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func run(t *testing.T, a *app.App, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCommandWith(&RootOptions{
		Out: &out,
		Open: func(context.Context) (*app.App, func(), error) {
			return a, func() {}, nil
		},
	})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"backfill", "resequence", "events", "dump", "import", "token", "hash-password"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, sub.Name())
	}
}

func TestInvalidFormat(t *testing.T) {
	_, err := run(t, nil, "", "--format", "xml", "backfill")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

const sampleDoc = `
user: alice
chapters:
  - questions: [Who are you?, Why here?]
  - title: Career
    questions:
      - First job?
answers:
  - index: 0
    text: Alice
  - index: 9
    text: dropped
`

func TestImportThenDump(t *testing.T) {
	a := newTestApp(t)
	path := filepath.Join(t.TempDir(), "alice.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleDoc), 0o600))

	out, err := run(t, a, "", "import", "--file", path)
	require.NoError(t, err)
	var sum importSummary
	require.NoError(t, yaml.Unmarshal([]byte(out), &sum))
	assert.Equal(t, importSummary{User: "alice", Chapters: 2, Total: 3, Answers: 1}, sum)

	out, err = run(t, a, "", "dump", "--user", "alice")
	require.NoError(t, err)
	var doc Document
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	require.Len(t, doc.Chapters, 2)
	assert.Nil(t, doc.Chapters[0].Title)
	assert.Equal(t, []string{"Who are you?", "Why here?"}, doc.Chapters[0].Questions)
	require.NotNil(t, doc.Chapters[1].Title)
	assert.Equal(t, "Career", *doc.Chapters[1].Title)
	assert.Equal(t, []DocAnswer{{Index: 0, Text: "Alice"}}, doc.Answers)
}

func TestImportFromStdinWithClearExtra(t *testing.T) {
	a := newTestApp(t)
	_, err := run(t, a, sampleDoc, "import")
	require.NoError(t, err)

	out, err := run(t, a, "chapters:\n  - questions: [Only one]\n", "--format", "json", "import", "--user", "alice", "--clear-extra")
	require.NoError(t, err)
	assert.Contains(t, out, `"total": 1`)
}

func TestImportRejectsUnknownFields(t *testing.T) {
	_, err := run(t, nil, "user: a\nchapterz: []\n", "import")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestBackfillAndResequence(t *testing.T) {
	a := newTestApp(t)
	_, err := a.DB.Exec(`INSERT INTO user_questions (user_id, chapter_id, chapter_position, position, text) VALUES ('bob', NULL, 0, 4, 'legacy')`)
	require.NoError(t, err)

	out, err := run(t, a, "", "backfill")
	require.NoError(t, err)
	var lines []repairLine
	require.NoError(t, yaml.Unmarshal([]byte(out), &lines))
	require.Len(t, lines, 1)
	assert.Equal(t, "bob", lines[0].User)
	assert.Equal(t, 1, lines[0].Total)

	out, err = run(t, a, "", "resequence", "--user", "bob")
	require.NoError(t, err)
	assert.Contains(t, out, "question_writes: 0")

	_, err = run(t, a, "", "resequence")
	assert.Error(t, err)
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("AUTH_HMAC_SECRET", "cli-secret")
	out, err := run(t, nil, "", "token", "--user", "carol", "--role", "admin", "--ttl", time.Minute.String())
	require.NoError(t, err)

	c, err := auth.NewAuthService("cli-secret", "").Parse(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "carol", c.Sub)
	assert.Equal(t, "admin", c.Role)

	_, err = run(t, nil, "", "token", "--user", "carol", "--role", "root")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestHashPassword(t *testing.T) {
	out, err := run(t, nil, "hunter2\n", "hash-password", "--cost", "4")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(strings.TrimSpace(out)), []byte("hunter2")))

	_, err = run(t, nil, "", "hash-password")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestEventsCommand(t *testing.T) {
	a := newTestApp(t)
	_, err := run(t, a, sampleDoc, "import")
	require.NoError(t, err)
	_, err = run(t, a, "", "resequence", "--user", "alice")
	require.NoError(t, err)

	out, err := run(t, a, "", "events", "--user", "alice")
	require.NoError(t, err)
	var evs []map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &evs))
	// the whole import is one event; a repair with nothing to do is not logged
	require.Len(t, evs, 1)
	assert.Equal(t, "import", evs[0]["type"])
}

func TestImportIsAllOrNothing(t *testing.T) {
	a := newTestApp(t)
	_, err := run(t, a, sampleDoc, "import")
	require.NoError(t, err)
	before, err := run(t, a, "", "dump", "--user", "alice")
	require.NoError(t, err)

	bad := "chapters:\n  - questions: [Replaced]\n  - questions: [Twice, Twice]\nanswers: []\n"
	_, err = run(t, a, bad, "import", "--user", "alice")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	after, err := run(t, a, "", "dump", "--user", "alice")
	require.NoError(t, err)
	assert.Equal(t, before, after)
}
