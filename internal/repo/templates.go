package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/auraknotphoto-afk/akmsincomenew/internal/domain"
)

func scanTemplate(row scanner) (domain.Template, error) {
	var t domain.Template
	var kind, category, content string
	err := row.Scan(&kind, &category, &content, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	if err != nil {
		return t, err
	}
	t.Kind = domain.TemplateKind(kind)
	t.Category = domain.Category(category)
	if err := json.Unmarshal([]byte(content), &t.Content); err != nil {
		return t, fmt.Errorf("template %s content: %w", t.Scope(), err)
	}
	return t, nil
}

// GetTemplate returns the override stored for exactly (kind, category). An empty category is the global scope.
func (r Repo) GetTemplate(ctx context.Context, kind domain.TemplateKind, category domain.Category) (domain.Template, error) {
	return scanTemplate(r.DB.QueryRowContext(ctx, `SELECT kind,category,content_json,updated_at FROM templates WHERE kind=? AND category=?`,
		string(kind), string(category)))
}

// ListTemplates returns stored overrides, optionally limited to one kind.
func (r Repo) ListTemplates(ctx context.Context, kind domain.TemplateKind) ([]domain.Template, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT kind,category,content_json,updated_at FROM templates WHERE (?='' OR kind=?) ORDER BY kind, category`,
		string(kind), string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

// UpsertTemplate stores an override; the last write for a scope wins.
func (r Repo) UpsertTemplate(ctx context.Context, q Querier, t domain.Template) error {
	payload, err := json.Marshal(t.Content)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, `INSERT INTO templates(kind,category,content_json,updated_at) VALUES (?,?,?,?)
ON CONFLICT(kind,category) DO UPDATE SET content_json=excluded.content_json, updated_at=excluded.updated_at`,
		string(t.Kind), string(t.Category), string(payload), t.UpdatedAt)
	return err
}

func (r Repo) DeleteTemplate(ctx context.Context, q Querier, kind domain.TemplateKind, category domain.Category) error {
	res, err := q.ExecContext(ctx, `DELETE FROM templates WHERE kind=? AND category=?`, string(kind), string(category))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
