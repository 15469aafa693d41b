// Package eventlog records an append-only audit trail of the billing and
// attempt lifecycle transitions.
package eventlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

const (
	TypeDraftCreated     = "DraftCreated"
	TypeBalanceCharged   = "BalanceCharged"
	TypeAttemptSubmitted = "AttemptSubmitted"
	TypeAttemptScored    = "AttemptScored"
)

type Log struct{ db *sql.DB }

func New(db *sql.DB) *Log { return &Log{db: db} }

// Append records one event keyed by its natural id (attempt or user id).
// A nil receiver is a no-op so components can run without auditing.
func (l *Log) Append(ctx context.Context, typ, key string, payload any) error {
	if l == nil {
		return nil
	}
	data := "{}"
	if payload != nil {
		if b, err := json.Marshal(payload); err == nil {
			data = string(b)
		}
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO event_log (typ, key, data, created_at) VALUES ($1,$2,$3,$4)`,
		typ, key, data, time.Now().Unix())
	return err
}
