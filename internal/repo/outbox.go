package repo

import (
	"context"
	"database/sql"
	"strings"

	"github.com/auraknotphoto-afk/akmsincomenew/internal/domain"
)

const outboxColumns = `id,entity,entity_key,op,payload_json,attempts,next_attempt_at,COALESCE(last_error,''),state,created_at,updated_at`

func scanOutbox(row scanner) (domain.OutboxEntry, error) {
	var e domain.OutboxEntry
	err := row.Scan(&e.ID, &e.Entity, &e.EntityKey, &e.Op, &e.Payload, &e.Attempts, &e.NextAttemptAt, &e.LastError, &e.State, &e.CreatedAt, &e.UpdatedAt)
	if err == sql.ErrNoRows {
		return e, ErrNotFound
	}
	return e, err
}

func (r Repo) queryOutbox(ctx context.Context, query string, args ...any) ([]domain.OutboxEntry, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.OutboxEntry
	for rows.Next() {
		e, err := scanOutbox(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// DueOutbox returns pending entries whose next attempt is at or before now, oldest first.
func (r Repo) DueOutbox(ctx context.Context, now string, limit int) ([]domain.OutboxEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	return r.queryOutbox(ctx, `SELECT `+outboxColumns+` FROM outbox WHERE state='pending' AND next_attempt_at<=? ORDER BY id LIMIT ?`, now, limit)
}

// OutboxByIDs returns the given pending entries regardless of their schedule.
func (r Repo) OutboxByIDs(ctx context.Context, ids []int64) ([]domain.OutboxEntry, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	marks := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		marks[i] = "?"
		args[i] = id
	}
	return r.queryOutbox(ctx, `SELECT `+outboxColumns+` FROM outbox WHERE state='pending' AND id IN (`+strings.Join(marks, ",")+`) ORDER BY id`, args...)
}

// ListOutbox lists entries in a state (all states when empty), oldest first.
func (r Repo) ListOutbox(ctx context.Context, state string, limit int) ([]domain.OutboxEntry, error) {
	query := `SELECT ` + outboxColumns + ` FROM outbox WHERE (?='' OR state=?) ORDER BY id`
	args := []any{state, state}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return r.queryOutbox(ctx, query, args...)
}

func (r Repo) DeleteOutbox(ctx context.Context, id int64) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM outbox WHERE id=?`, id)
	return err
}

// MarkOutboxFailed records a failed push. dead entries are no longer picked up.
func (r Repo) MarkOutboxFailed(ctx context.Context, id int64, attempts int, nextAttemptAt, lastError string, dead bool, now string) error {
	state := domain.OutboxPending
	if dead {
		state = domain.OutboxDead
	}
	_, err := r.DB.ExecContext(ctx, `UPDATE outbox SET attempts=?, next_attempt_at=?, last_error=?, state=?, updated_at=? WHERE id=?`,
		attempts, nextAttemptAt, nullable(lastError), state, now, id)
	return err
}

// RequeueDead moves dead entries back to pending with a fresh attempt budget.
func (r Repo) RequeueDead(ctx context.Context, now string) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `UPDATE outbox SET state='pending', attempts=0, next_attempt_at=?, updated_at=? WHERE state='dead'`, now, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// OutboxSyncStatus maps entity keys with outstanding entries to the sync status they imply.
func (r Repo) OutboxSyncStatus(ctx context.Context, entity string) (map[string]domain.SyncStatus, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT entity_key, MAX(CASE WHEN state='dead' OR attempts>0 THEN 1 ELSE 0 END) FROM outbox WHERE entity=? GROUP BY entity_key`, entity)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := map[string]domain.SyncStatus{}
	for rows.Next() {
		var key string
		var failed int
		if err := rows.Scan(&key, &failed); err != nil {
			return nil, err
		}
		if failed == 1 {
			res[key] = domain.SyncFailed
		} else {
			res[key] = domain.SyncPending
		}
	}
	return res, rows.Err()
}

// OutboxCounts returns the number of entries per state.
func (r Repo) OutboxCounts(ctx context.Context) (map[string]int, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT state, COUNT(*) FROM outbox GROUP BY state`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := map[string]int{domain.OutboxPending: 0, domain.OutboxDead: 0}
	for rows.Next() {
		var state string
		var n int
		if err := rows.Scan(&state, &n); err != nil {
			return nil, err
		}
		res[state] = n
	}
	return res, rows.Err()
}

// PendingDeletes returns the entity keys whose outstanding outbox entry is a
// delete. Dead entries count: the record stays deleted until the push succeeds.
func (r Repo) PendingDeletes(ctx context.Context, q Querier, entity string) (map[string]bool, error) {
	if q == nil {
		q = r.DB
	}
	rows, err := q.QueryContext(ctx, `SELECT entity_key FROM outbox WHERE entity=? AND op=?`, entity, domain.OpDelete)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := map[string]bool{}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		res[key] = true
	}
	return res, rows.Err()
}

// PendingDelete reports whether key has an outstanding delete intent.
func (r Repo) PendingDelete(ctx context.Context, q Querier, entity, key string) (bool, error) {
	if q == nil {
		q = r.DB
	}
	var n int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM outbox WHERE entity=? AND entity_key=? AND op=?`, entity, key, domain.OpDelete).Scan(&n)
	return n > 0, err
}
