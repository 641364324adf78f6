// Package remote is the optional Postgres mirror of the local store.
package remote

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/auraknotphoto-afk/akmsincomenew/internal/domain"
)

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("remote: not found")

// Store is the remote mirror. Implementations must be safe for concurrent use.
type Store interface {
	ListJobs(ctx context.Context, owner string, category domain.Category) ([]domain.Job, error)
	GetJob(ctx context.Context, id string) (domain.Job, error)
	UpsertJobs(ctx context.Context, jobs []domain.Job) (int64, error)
	DeleteJob(ctx context.Context, id string) error
	GetTemplate(ctx context.Context, kind domain.TemplateKind, category domain.Category) (domain.Template, error)
	ListTemplates(ctx context.Context, kind domain.TemplateKind) ([]domain.Template, error)
	UpsertTemplates(ctx context.Context, templates []domain.Template) (int64, error)
	DeleteTemplate(ctx context.Context, kind domain.TemplateKind, category domain.Category) error
	Ping(ctx context.Context) error
}

// IsPermanent reports whether retrying the failed call cannot succeed:
// rejected data, constraint violations and schema errors.
func IsPermanent(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgerrcode.IsDataException(pgErr.Code) ||
		pgerrcode.IsIntegrityConstraintViolation(pgErr.Code) ||
		pgerrcode.IsSyntaxErrororAccessRuleViolation(pgErr.Code)
}
