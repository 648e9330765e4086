package app

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/interviewbook/internal/config"
	"github.com/mind-engage/interviewbook/internal/lock"
)

func testConfig(t *testing.T) config.Config {
	return config.Config{
		DBDriver:               "sqlite",
		DBDSN:                  "file:" + t.Name() + "?mode=memory&cache=shared&_pragma=foreign_keys(1)",
		LockDriver:             "local",
		LockTTL:                5 * time.Second,
		MaxQuestionsPerChapter: 10,
	}
}

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestNewLocal(t *testing.T) {
	a, err := New(context.Background(), testConfig(t), quiet)
	require.NoError(t, err)
	defer a.Close()

	assert.IsType(t, &lock.Local{}, a.Locker)
	st, err := a.Structure.FetchStructure(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, st.Chapters, 1)
}

func TestNewRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.LockDriver = "redis"
	cfg.RedisURL = "redis://" + mr.Addr() + "/0"

	a, err := New(context.Background(), cfg, quiet)
	require.NoError(t, err)
	defer a.Close()
	require.NotNil(t, a.Redis)

	_, err = a.Structure.CreateChapter(context.Background(), "u1", nil)
	require.NoError(t, err)
}

func TestNewRejectsUnknownDrivers(t *testing.T) {
	cfg := testConfig(t)
	cfg.LockDriver = "zookeeper"
	_, err := New(context.Background(), cfg, quiet)
	assert.Error(t, err)

	cfg = testConfig(t)
	cfg.DBDriver = "mysql"
	_, err = New(context.Background(), cfg, quiet)
	assert.Error(t, err)
}
