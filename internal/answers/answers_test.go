package answers

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/interviewbook/internal/db"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", t.Name())
	dbh, err := db.Open(context.Background(), db.DriverSQLite, dsn, 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = dbh.Close() })
	return dbh
}

func seedQuestions(t *testing.T, dbh *sql.DB, user string, n int) {
	t.Helper()
	var chapter int64
	require.NoError(t, dbh.QueryRow(`INSERT INTO user_chapters (user_id, position, title, created_at) VALUES ($1, 0, NULL, 1) RETURNING id`, user).Scan(&chapter))
	for i := 0; i < n; i++ {
		_, err := dbh.Exec(`INSERT INTO user_questions (user_id, chapter_id, chapter_position, position, text) VALUES ($1, $2, $3, $3, $4)`,
			user, chapter, i, fmt.Sprintf("q%d", i))
		require.NoError(t, err)
	}
}

func TestNormalize(t *testing.T) {
	got := Normalize([]Answer{
		{QuestionIndex: 2, Text: "two"},
		{QuestionIndex: -1, Text: "neg"},
		{QuestionIndex: 0, Text: "zero"},
		{QuestionIndex: 2, Text: "two again"},
		{QuestionIndex: 3, Text: "out of range"},
	}, 3)
	assert.Equal(t, []Answer{{0, "zero"}, {2, "two again"}}, got)
}

func TestReplaceBoundsToQuestionCount(t *testing.T) {
	dbh := openTestDB(t)
	ctx := context.Background()
	seedQuestions(t, dbh, "u1", 2)
	svc := NewService(dbh, db.DriverSQLite, Options{})

	saved, err := svc.Replace(ctx, "u1", []Answer{{0, "a"}, {1, "b"}, {5, "c"}})
	require.NoError(t, err)
	assert.Len(t, saved, 2)

	got, err := svc.List(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []Answer{{0, "a"}, {1, "b"}}, got)

	// replace-all: a second save drops what it does not mention
	_, err = svc.Replace(ctx, "u1", []Answer{{1, "b2"}})
	require.NoError(t, err)
	got, err = svc.List(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []Answer{{1, "b2"}}, got)
}

func TestReplaceWithoutQuestionsStoresNothing(t *testing.T) {
	dbh := openTestDB(t)
	svc := NewService(dbh, db.DriverSQLite, Options{})

	saved, err := svc.Replace(context.Background(), "nobody", []Answer{{0, "a"}})
	require.NoError(t, err)
	assert.Empty(t, saved)

	got, err := svc.List(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReplaceRequiresUser(t *testing.T) {
	svc := NewService(openTestDB(t), db.DriverSQLite, Options{})
	_, err := svc.Replace(context.Background(), " ", nil)
	assert.Error(t, err)
}
