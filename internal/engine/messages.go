package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/auraknotphoto-afk/akmsincomenew/internal/domain"
	"github.com/auraknotphoto-afk/akmsincomenew/internal/templates"
)

// SingleReminder renders the payment reminder for one job.
func (e Engine) SingleReminder(ctx context.Context, owner, id string) (templates.Message, error) {
	j, err := e.GetJob(ctx, owner, id)
	if err != nil {
		return templates.Message{}, err
	}
	return e.Composer.Single(ctx, j)
}

// Consolidated is a reminder covering every unpaid job of one customer.
type Consolidated struct {
	Message      templates.Message `json:"message"`
	CustomerName string            `json:"customer_name"`
	Jobs         []domain.Job      `json:"jobs"`
	TotalBalance decimal.Decimal   `json:"total_balance"`
}

// ConsolidatedReminder selects the owner's jobs whose phone matches and whose
// payment is not completed, in store order, and renders one reminder for them.
func (e Engine) ConsolidatedReminder(ctx context.Context, owner, phone string) (Consolidated, error) {
	if domain.Digits(phone) == "" {
		return Consolidated{}, invalid("phone", "required")
	}
	target := e.Composer.NormalizePhone(phone)
	all, err := e.Jobs.List(ctx, owner, "")
	if err != nil {
		return Consolidated{}, err
	}
	var pending []domain.Job
	for _, j := range all {
		if j.PaymentStatus == domain.PaymentCompleted || domain.Digits(j.CustomerPhone) == "" {
			continue
		}
		if e.Composer.NormalizePhone(j.CustomerPhone) == target {
			pending = append(pending, j)
		}
	}
	if len(pending) == 0 {
		return Consolidated{}, ErrNoPendingJobs
	}
	name := pending[0].CustomerName
	msg, total, err := e.Composer.Consolidated(ctx, name, phone, pending)
	if err != nil {
		return Consolidated{}, err
	}
	return Consolidated{Message: msg, CustomerName: name, Jobs: pending, TotalBalance: total}, nil
}

// StatusMessage renders the job-status or payment-status message of a job. An
// empty status uses the job's current one.
func (e Engine) StatusMessage(ctx context.Context, owner, id string, kind domain.TemplateKind, status string) (templates.Message, error) {
	if !kind.IsStatusSet() {
		return templates.Message{}, invalid("kind", "oneof=job_status payment_status")
	}
	j, err := e.GetJob(ctx, owner, id)
	if err != nil {
		return templates.Message{}, err
	}
	status = strings.ToUpper(strings.TrimSpace(status))
	if status == "" {
		if kind == domain.KindJobStatus {
			status = string(j.Status)
		} else {
			status = string(j.PaymentStatus)
		}
	}
	if !contains(kind.Statuses(), status) {
		return templates.Message{}, invalid("status", "oneof="+strings.Join(kind.Statuses(), " "))
	}
	return e.Composer.Status(ctx, kind, status, j)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func parseScope(kind domain.TemplateKind, category domain.Category) (domain.Category, error) {
	if !kind.Valid() {
		return "", invalid("kind", "oneof=single consolidated job_status payment_status")
	}
	c, ok := domain.ParseCategory(string(category))
	if !ok {
		return "", invalid("category", "oneof=EDITING EXPOSING OTHER")
	}
	return c, nil
}

// ResolveTemplate returns the content that would be used for (kind, category).
func (e Engine) ResolveTemplate(ctx context.Context, kind domain.TemplateKind, category domain.Category) (templates.Resolved, error) {
	c, err := parseScope(kind, category)
	if err != nil {
		return templates.Resolved{}, err
	}
	return e.Composer.Resolver.Resolve(ctx, kind, c)
}

// TemplateScopes resolves kind for the global scope and each category.
func (e Engine) TemplateScopes(ctx context.Context, kind domain.TemplateKind) ([]templates.Resolved, error) {
	if _, err := parseScope(kind, ""); err != nil {
		return nil, err
	}
	return e.Composer.Resolver.Scopes(ctx, kind)
}

// ListTemplates returns stored overrides, optionally for one kind.
func (e Engine) ListTemplates(ctx context.Context, kind domain.TemplateKind) ([]domain.Template, error) {
	if kind != "" && !kind.Valid() {
		return nil, invalid("kind", "oneof=single consolidated job_status payment_status")
	}
	return e.Templates.List(ctx, kind)
}

func (e Engine) SetTemplate(ctx context.Context, t domain.Template) (domain.Template, error) {
	c, err := parseScope(t.Kind, t.Category)
	if err != nil {
		return domain.Template{}, err
	}
	t.Category = c
	if err := t.Validate(); err != nil {
		return domain.Template{}, invalid("content", err.Error())
	}
	saved, err := e.Templates.Set(ctx, t)
	if err != nil {
		return domain.Template{}, fmt.Errorf("save template %s: %w", t.Scope(), err)
	}
	e.Log.WithField("scope", saved.Scope()).Info("template override saved")
	return saved, nil
}

// ResetTemplate removes the override so resolution falls back to the next scope.
func (e Engine) ResetTemplate(ctx context.Context, kind domain.TemplateKind, category domain.Category) error {
	c, err := parseScope(kind, category)
	if err != nil {
		return err
	}
	return e.Templates.Reset(ctx, kind, c)
}

// TemplatePreset is the suggested starting text for an override.
func (e Engine) TemplatePreset(kind domain.TemplateKind, category domain.Category) (domain.TemplateContent, error) {
	c, err := parseScope(kind, category)
	if err != nil {
		return domain.TemplateContent{}, err
	}
	return templates.Preset(kind, c), nil
}
