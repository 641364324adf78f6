package engine

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/auraknotphoto-afk/akmsincomenew/internal/config"
	"github.com/auraknotphoto-afk/akmsincomenew/internal/domain"
	"github.com/auraknotphoto-afk/akmsincomenew/internal/events"
	"github.com/auraknotphoto-afk/akmsincomenew/internal/mirror"
	"github.com/auraknotphoto-afk/akmsincomenew/internal/remote"
	"github.com/auraknotphoto-afk/akmsincomenew/internal/report"
	"github.com/auraknotphoto-afk/akmsincomenew/internal/repo"
	"github.com/auraknotphoto-afk/akmsincomenew/internal/store"
	"github.com/auraknotphoto-afk/akmsincomenew/internal/templates"
)

// ErrNotFound is returned when a job is unknown to both stores or belongs to another owner.
var ErrNotFound = repo.ErrNotFound

// ErrNoPendingJobs is returned when a customer has nothing left to pay.
var ErrNoPendingJobs = errors.New("no pending jobs for customer")

// ValidationError lists rejected input fields and why.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func invalid(field, reason string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: reason}}
}

type Engine struct {
	Repo      repo.Repo
	Jobs      store.Jobs
	Templates store.Templates
	Syncer    *mirror.Syncer
	Composer  templates.Composer
	Config    *config.Config
	Log       *logrus.Logger
	Now       func() time.Time

	validate *validator.Validate
}

// New wires the stores, the sync worker and the message composer. rs may be
// nil, in which case everything stays local.
func New(r repo.Repo, rs remote.Store, cfg *config.Config, log *logrus.Logger) Engine {
	if cfg == nil {
		cfg = config.Default("")
	}
	if log == nil {
		log = config.DiscardLogger()
	}
	syncer := mirror.New(r, rs, cfg, log)
	w := events.Writer{DB: r.DB}
	e := Engine{
		Repo:      r,
		Jobs:      store.Jobs{Repo: r, Events: w, Remote: rs, Syncer: syncer, Log: log},
		Templates: store.Templates{Repo: r, Events: w, Remote: rs, Syncer: syncer, Log: log},
		Syncer:    syncer,
		Config:    cfg,
		Log:       log,
		validate:  newValidator(),
	}
	e.Composer = templates.Composer{
		Resolver:    templates.Resolver{Source: e.Templates},
		Format:      templates.NewFormatter(cfg.Language(), cfg.Locale.Currency),
		Region:      cfg.Locale.Region,
		CountryCode: cfg.Locale.CountryCode,
	}
	return e
}

// WithClock points every component at now.
func (e Engine) WithClock(now func() time.Time) Engine {
	e.Now = now
	e.Jobs.Now = now
	e.Templates.Now = now
	e.Jobs.Events.Now = now
	e.Templates.Events.Now = now
	if e.Syncer != nil {
		e.Syncer.Now = now
	}
	e.Composer.Resolver.Source = e.Templates
	return e
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) location() *time.Location {
	if e.Config == nil {
		return time.Local
	}
	return e.Config.Location()
}

// RemoteEnabled reports whether writes are mirrored.
func (e Engine) RemoteEnabled() bool {
	return e.Syncer.Enabled()
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (e Engine) validator() *validator.Validate {
	if e.validate == nil {
		return newValidator()
	}
	return e.validate
}

func (e Engine) checkStruct(in any) error {
	err := e.validator().Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	ve := &ValidationError{Fields: map[string]string{}}
	for _, fe := range verrs {
		reason := fe.Tag()
		if fe.Param() != "" {
			reason += "=" + fe.Param()
		}
		ve.Fields[fe.Field()] = reason
	}
	return ve
}

// JobInput carries the editable fields of a job.
type JobInput struct {
	UserID           string               `json:"user_id" validate:"required,max=128"`
	Category         domain.Category      `json:"category" validate:"required,oneof=EDITING EXPOSING OTHER"`
	CustomerName     string               `json:"customer_name" validate:"required,max=200"`
	CustomerPhone    string               `json:"customer_phone" validate:"omitempty,max=32"`
	ClientName       string               `json:"client_name" validate:"max=200"`
	StudioName       string               `json:"studio_name" validate:"max=200"`
	EventType        string               `json:"event_type" validate:"max=200"`
	EventLocation    string               `json:"event_location" validate:"max=200"`
	SessionType      string               `json:"session_type" validate:"max=200"`
	ExposeType       string               `json:"expose_type" validate:"max=200"`
	CameraType       string               `json:"camera_type" validate:"max=200"`
	TypeOfWork       string               `json:"type_of_work" validate:"max=200"`
	NumberOfCameras  *int                 `json:"number_of_cameras" validate:"omitempty,min=0"`
	DurationHours    *float64             `json:"duration_hours" validate:"omitempty,gte=0"`
	RatePerHour      *decimal.Decimal     `json:"rate_per_hour"`
	StartDate        string               `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate          string               `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	EstimatedDueDate string               `json:"estimated_due_date" validate:"omitempty,datetime=2006-01-02"`
	TotalPrice       decimal.Decimal      `json:"total_price"`
	AmountPaid       decimal.Decimal      `json:"amount_paid"`
	PaymentStatus    domain.PaymentStatus `json:"payment_status" validate:"omitempty,oneof=PENDING PARTIAL COMPLETED"`
	PaymentDate      string               `json:"payment_date" validate:"omitempty,datetime=2006-01-02"`
	Status           domain.JobStatus     `json:"status" validate:"omitempty,oneof=PENDING IN_PROGRESS COMPLETED"`
	Priority         domain.Priority      `json:"priority" validate:"omitempty,oneof=LOW NORMAL HIGH"`
	Notes            string               `json:"notes" validate:"max=4000"`
}

func (e Engine) validateJob(in JobInput) error {
	if err := e.checkStruct(in); err != nil {
		return err
	}
	switch {
	case in.TotalPrice.IsNegative():
		return invalid("total_price", "must not be negative")
	case in.AmountPaid.IsNegative():
		return invalid("amount_paid", "must not be negative")
	case in.AmountPaid.GreaterThan(in.TotalPrice):
		return invalid("amount_paid", "exceeds total_price")
	case in.RatePerHour != nil && in.RatePerHour.IsNegative():
		return invalid("rate_per_hour", "must not be negative")
	case in.Priority != "" && in.Category != domain.CategoryEditing:
		return invalid("priority", "only editing jobs have a priority")
	}
	if in.EndDate != "" {
		start, _ := domain.ParseDate(in.StartDate)
		end, err := domain.ParseDate(in.EndDate)
		if err != nil {
			return invalid("end_date", err.Error())
		}
		if end.Before(start) {
			return invalid("end_date", "before start_date")
		}
	}
	return nil
}

func (in JobInput) apply(j domain.Job) domain.Job {
	j.CustomerName = strings.TrimSpace(in.CustomerName)
	j.CustomerPhone = strings.TrimSpace(in.CustomerPhone)
	j.ClientName = in.ClientName
	j.StudioName = in.StudioName
	j.EventType = in.EventType
	j.EventLocation = in.EventLocation
	j.SessionType = in.SessionType
	j.ExposeType = in.ExposeType
	j.CameraType = in.CameraType
	j.TypeOfWork = in.TypeOfWork
	j.NumberOfCameras = in.NumberOfCameras
	j.DurationHours = in.DurationHours
	j.RatePerHour = in.RatePerHour
	j.StartDate = in.StartDate
	j.EndDate = in.EndDate
	j.EstimatedDueDate = in.EstimatedDueDate
	j.TotalPrice = in.TotalPrice
	j.AmountPaid = in.AmountPaid
	j.PaymentStatus = in.PaymentStatus
	j.PaymentDate = in.PaymentDate
	j.Status = in.Status
	if in.Priority != "" {
		j.Priority = in.Priority
	}
	j.Notes = in.Notes
	if j.PaymentStatus == "" {
		j.PaymentStatus = domain.PaymentPending
	}
	if j.Status == "" {
		j.Status = domain.JobPending
	}
	return j
}

func (e Engine) CreateJob(ctx context.Context, in JobInput) (domain.Job, error) {
	in.Category = domain.Category(strings.ToUpper(string(in.Category)))
	if err := e.validateJob(in); err != nil {
		return domain.Job{}, err
	}
	j := in.apply(domain.Job{UserID: in.UserID, Category: in.Category})
	created, err := e.Jobs.Create(ctx, j)
	if err != nil {
		return domain.Job{}, fmt.Errorf("create job: %w", err)
	}
	e.Log.WithFields(logrus.Fields{"job_id": created.ID, "category": created.Category, "sync_status": created.SyncStatus}).Info("job created")
	return created, nil
}

// GetJob returns the job if owner may see it. An empty owner sees every job.
func (e Engine) GetJob(ctx context.Context, owner, id string) (domain.Job, error) {
	j, err := e.Jobs.Get(ctx, id)
	if err != nil {
		return domain.Job{}, err
	}
	if owner != "" && j.UserID != owner {
		return domain.Job{}, ErrNotFound
	}
	return j, nil
}

// UpdateJob replaces the editable fields. Category and owner never change.
func (e Engine) UpdateJob(ctx context.Context, owner, id string, in JobInput) (domain.Job, error) {
	existing, err := e.GetJob(ctx, owner, id)
	if err != nil {
		return domain.Job{}, err
	}
	in.Category = existing.Category
	in.UserID = existing.UserID
	if err := e.validateJob(in); err != nil {
		return domain.Job{}, err
	}
	j := in.apply(existing)
	updated, err := e.Jobs.Update(ctx, j)
	if err != nil {
		return domain.Job{}, fmt.Errorf("update job %s: %w", id, err)
	}
	return updated, nil
}

// SetPriority changes only the priority of an editing job. An empty priority clears it.
func (e Engine) SetPriority(ctx context.Context, owner, id string, p domain.Priority) (domain.Job, error) {
	p = domain.Priority(strings.ToUpper(string(p)))
	switch p {
	case "", domain.PriorityLow, domain.PriorityNormal, domain.PriorityHigh:
	default:
		return domain.Job{}, invalid("priority", "oneof=LOW NORMAL HIGH")
	}
	j, err := e.GetJob(ctx, owner, id)
	if err != nil {
		return domain.Job{}, err
	}
	if j.Category != domain.CategoryEditing {
		return domain.Job{}, invalid("priority", "only editing jobs have a priority")
	}
	j.Priority = p
	return e.Jobs.Update(ctx, j)
}

func (e Engine) DeleteJob(ctx context.Context, owner, id string) error {
	if _, err := e.GetJob(ctx, owner, id); err != nil {
		return err
	}
	if err := e.Jobs.Delete(ctx, id); err != nil {
		return err
	}
	e.Log.WithField("job_id", id).Info("job deleted")
	return nil
}

// ListJobs returns the merged job list of owner, newest first.
func (e Engine) ListJobs(ctx context.Context, owner string, category domain.Category) ([]domain.Job, error) {
	if category != "" && !category.Valid() {
		return nil, invalid("category", "oneof=EDITING EXPOSING OTHER")
	}
	return e.Jobs.List(ctx, owner, category)
}

// PeriodInput selects a reporting period. Start and End are only used for the custom period.
type PeriodInput struct {
	Period report.Period
	Start  string
	End    string
}

func (e Engine) resolvePeriod(in PeriodInput) (report.Range, error) {
	r, err := report.Resolve(in.Period, e.now(), e.location(), in.Start, in.End)
	if err != nil {
		return report.Range{}, invalid("period", err.Error())
	}
	return r, nil
}

func (e Engine) Dashboard(ctx context.Context, owner string, in PeriodInput) (report.Dashboard, error) {
	r, err := e.resolvePeriod(in)
	if err != nil {
		return report.Dashboard{}, err
	}
	jobs, err := e.Jobs.List(ctx, owner, "")
	if err != nil {
		return report.Dashboard{}, err
	}
	return report.BuildDashboard(jobs, r), nil
}

func (e Engine) Report(ctx context.Context, owner string, in PeriodInput, category domain.Category) (report.Report, error) {
	if category != "" && !category.Valid() {
		return report.Report{}, invalid("category", "oneof=EDITING EXPOSING OTHER")
	}
	r, err := e.resolvePeriod(in)
	if err != nil {
		return report.Report{}, err
	}
	jobs, err := e.Jobs.List(ctx, owner, category)
	if err != nil {
		return report.Report{}, err
	}
	return report.BuildReport(jobs, r, category), nil
}
