package eventlog

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/interviewbook/internal/db"
)

func TestAppendAndList(t *testing.T) {
	ctx := context.Background()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	dbh, err := db.Open(ctx, db.DriverSQLite, dsn, 0)
	require.NoError(t, err)
	defer dbh.Close()

	r := NewRepo(func() time.Time { return time.Unix(100, 0) })
	require.NoError(t, r.Append(ctx, dbh, "u1", "create_chapter", "chapter:1", map[string]any{"position": 1}))
	require.NoError(t, r.Append(ctx, dbh, "u2", "create_chapter", "chapter:2", nil))
	require.NoError(t, r.Append(ctx, dbh, "u1", "delete_question", "question:7", map[string]int{"total": 0}))

	evs, err := r.List(ctx, dbh, "u1", 0, 10)
	require.NoError(t, err)
	require.Len(t, evs, 2)
	assert.Equal(t, "create_chapter", evs[0].Type)
	assert.JSONEq(t, `{"position":1}`, string(evs[0].Data))
	assert.Equal(t, int64(100), evs[0].CreatedAt)

	evs, err = r.List(ctx, dbh, "u1", evs[0].Offset, 10)
	require.NoError(t, err)
	require.Len(t, evs, 1)
	assert.Equal(t, "question:7", evs[0].Key)
}
