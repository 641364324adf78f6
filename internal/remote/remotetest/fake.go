// Package remotetest provides an in-memory remote.Store for tests.
package remotetest

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/auraknotphoto-afk/akmsincomenew/internal/domain"
	"github.com/auraknotphoto-afk/akmsincomenew/internal/remote"
)

// ErrUnavailable is returned while the fake is switched off.
var ErrUnavailable = errors.New("remotetest: unavailable")

// Fake keeps jobs and templates in maps. FailReads and FailWrites simulate an outage.
type Fake struct {
	mu         sync.Mutex
	jobs       map[string]domain.Job
	templates  map[string]domain.Template
	failReads  bool
	failWrites bool
	writeErr   error
	Writes     int
}

var _ remote.Store = (*Fake)(nil)

func New() *Fake {
	return &Fake{jobs: map[string]domain.Job{}, templates: map[string]domain.Template{}}
}

// SetDown makes every call fail (or succeed again).
func (f *Fake) SetDown(down bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failReads = down
	f.failWrites = down
	f.writeErr = nil
}

func (f *Fake) SetFailReads(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failReads = v
}

func (f *Fake) SetFailWrites(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failWrites = v
}

// FailWritesWith makes writes fail with err until cleared with nil.
func (f *Fake) FailWritesWith(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writeErr = err
}

func (f *Fake) readErr() error {
	if f.failReads {
		return ErrUnavailable
	}
	return nil
}

func (f *Fake) writeErrLocked() error {
	if f.writeErr != nil {
		return f.writeErr
	}
	if f.failWrites {
		return ErrUnavailable
	}
	return nil
}

// Seed stores jobs directly, bypassing failure switches.
func (f *Fake) Seed(jobs ...domain.Job) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, j := range jobs {
		j.SyncStatus = ""
		f.jobs[j.ID] = j
	}
}

// Job returns the stored copy of a job.
func (f *Fake) Job(id string) (domain.Job, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	return j, ok
}

func (f *Fake) JobCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.jobs)
}

func (f *Fake) ListJobs(_ context.Context, owner string, category domain.Category) ([]domain.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.readErr(); err != nil {
		return nil, err
	}
	var res []domain.Job
	for _, j := range f.jobs {
		if owner != "" && j.UserID != owner {
			continue
		}
		if category != "" && j.Category != category {
			continue
		}
		res = append(res, j)
	}
	sort.Slice(res, func(a, b int) bool {
		if res[a].CreatedAt != res[b].CreatedAt {
			return res[a].CreatedAt > res[b].CreatedAt
		}
		return res[a].ID > res[b].ID
	})
	return res, nil
}

func (f *Fake) GetJob(_ context.Context, id string) (domain.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.readErr(); err != nil {
		return domain.Job{}, err
	}
	j, ok := f.jobs[id]
	if !ok {
		return domain.Job{}, remote.ErrNotFound
	}
	return j, nil
}

func (f *Fake) UpsertJobs(_ context.Context, jobs []domain.Job) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.writeErrLocked(); err != nil {
		return 0, err
	}
	for _, j := range jobs {
		j.SyncStatus = ""
		f.jobs[j.ID] = j
	}
	f.Writes++
	return int64(len(jobs)), nil
}

func (f *Fake) DeleteJob(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.writeErrLocked(); err != nil {
		return err
	}
	delete(f.jobs, id)
	f.Writes++
	return nil
}

func (f *Fake) GetTemplate(_ context.Context, kind domain.TemplateKind, category domain.Category) (domain.Template, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.readErr(); err != nil {
		return domain.Template{}, err
	}
	t, ok := f.templates[domain.TemplateKey(kind, category)]
	if !ok {
		return domain.Template{}, remote.ErrNotFound
	}
	return t, nil
}

func (f *Fake) ListTemplates(_ context.Context, kind domain.TemplateKind) ([]domain.Template, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.readErr(); err != nil {
		return nil, err
	}
	var res []domain.Template
	for _, t := range f.templates {
		if kind != "" && t.Kind != kind {
			continue
		}
		res = append(res, t)
	}
	sort.Slice(res, func(a, b int) bool { return res[a].Scope() < res[b].Scope() })
	return res, nil
}

func (f *Fake) UpsertTemplates(_ context.Context, templates []domain.Template) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.writeErrLocked(); err != nil {
		return 0, err
	}
	for _, t := range templates {
		f.templates[domain.TemplateKey(t.Kind, t.Category)] = t
	}
	f.Writes++
	return int64(len(templates)), nil
}

func (f *Fake) DeleteTemplate(_ context.Context, kind domain.TemplateKind, category domain.Category) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.writeErrLocked(); err != nil {
		return err
	}
	delete(f.templates, domain.TemplateKey(kind, category))
	f.Writes++
	return nil
}

func (f *Fake) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.readErr()
}
