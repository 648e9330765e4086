// Package eventlog keeps an append-only history of structural changes per
// user. Entries are written in the same transaction as the change they
// describe, so a rolled back mutation leaves no trace.
package eventlog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mind-engage/interviewbook/internal/db"
)

type Event struct {
	Offset    int64           `json:"offset" yaml:"offset"`
	UserID    string          `json:"userId" yaml:"user"`
	Type      string          `json:"type" yaml:"type"`
	Key       string          `json:"key,omitempty" yaml:"key,omitempty"`
	Data      json.RawMessage `json:"data" yaml:"-"`
	CreatedAt int64           `json:"createdAt" yaml:"created_at"`
}

type Repo struct {
	now func() time.Time
}

func NewRepo(now func() time.Time) *Repo {
	if now == nil {
		now = time.Now
	}
	return &Repo{now: now}
}

// Append records one event; data is marshalled to JSON.
func (r *Repo) Append(ctx context.Context, q db.Querier, userID, typ, key string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("eventlog: encode %s: %w", typ, err)
	}
	if _, err := q.ExecContext(ctx,
		`INSERT INTO structure_events (user_id, typ, key, data, created_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		userID, typ, key, string(raw), r.now().Unix()); err != nil {
		return fmt.Errorf("eventlog: append %s: %w", typ, err)
	}
	return nil
}

// List returns up to limit events for userID with offset > after, oldest first.
func (r *Repo) List(ctx context.Context, q db.Querier, userID string, after int64, limit int) ([]Event, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	rows, err := q.QueryContext(ctx,
		`SELECT "offset", user_id, typ, key, data, created_at
		 FROM structure_events WHERE user_id=$1 AND "offset" > $2
		 ORDER BY "offset" LIMIT $3`, userID, after, limit)
	if err != nil {
		return nil, fmt.Errorf("eventlog: list: %w", err)
	}
	defer rows.Close()

	out := []Event{}
	for rows.Next() {
		var e Event
		var data string
		if err := rows.Scan(&e.Offset, &e.UserID, &e.Type, &e.Key, &data, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("eventlog: scan: %w", err)
		}
		e.Data = json.RawMessage(data)
		out = append(out, e)
	}
	return out, rows.Err()
}
