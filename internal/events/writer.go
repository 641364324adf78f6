package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/auraknotphoto-afk/akmsincomenew/internal/domain"
)

// Writer records remote mutations in the outbox inside the caller's local transaction.
type Writer struct {
	DB  *sql.DB
	Now func() time.Time
}

// Intent is one pending remote mutation.
type Intent struct {
	Entity    string
	EntityKey string
	Op        string
	Payload   any
}

// Enqueue stores the intent and returns its outbox id. Older entries for the
// same entity are dropped: only the latest state of a record needs pushing.
func (w Writer) Enqueue(ctx context.Context, tx *sql.Tx, in Intent) (int64, error) {
	if w.Now == nil {
		w.Now = time.Now
	}
	ts := domain.Timestamp(w.Now())
	payload := in.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("marshal outbox payload: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM outbox WHERE entity=? AND entity_key=?`, in.Entity, in.EntityKey); err != nil {
		return 0, fmt.Errorf("coalesce outbox: %w", err)
	}
	res, err := tx.ExecContext(ctx, `INSERT INTO outbox(entity,entity_key,op,payload_json,attempts,next_attempt_at,state,created_at,updated_at) VALUES (?,?,?,?,0,?,'pending',?,?)`,
		in.Entity, in.EntityKey, in.Op, string(data), ts, ts, ts)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
