// Package templates resolves message templates through their scope chain and
// renders customer messages from jobs.
package templates

import (
	"context"
	"fmt"

	"github.com/auraknotphoto-afk/akmsincomenew/internal/domain"
)

// Source looks up an override stored for exactly (kind, category). An empty
// category is the global scope.
type Source interface {
	Lookup(ctx context.Context, kind domain.TemplateKind, category domain.Category) (domain.TemplateContent, bool, error)
}

// Scope names where resolved content came from.
type Scope string

const (
	ScopeCategory Scope = "category"
	ScopeGlobal   Scope = "global"
	ScopeBuiltin  Scope = "builtin"
)

// Strategy is one step of the fallback chain.
type Strategy struct {
	Scope  Scope
	lookup func(ctx context.Context, src Source, kind domain.TemplateKind, category domain.Category) (domain.TemplateContent, bool, error)
}

var (
	CategoryOverride = Strategy{Scope: ScopeCategory, lookup: func(ctx context.Context, src Source, kind domain.TemplateKind, category domain.Category) (domain.TemplateContent, bool, error) {
		if src == nil || category == "" {
			return domain.TemplateContent{}, false, nil
		}
		return src.Lookup(ctx, kind, category)
	}}
	GlobalOverride = Strategy{Scope: ScopeGlobal, lookup: func(ctx context.Context, src Source, kind domain.TemplateKind, _ domain.Category) (domain.TemplateContent, bool, error) {
		if src == nil {
			return domain.TemplateContent{}, false, nil
		}
		return src.Lookup(ctx, kind, "")
	}}
	BuiltinDefault = Strategy{Scope: ScopeBuiltin, lookup: func(_ context.Context, _ Source, kind domain.TemplateKind, _ domain.Category) (domain.TemplateContent, bool, error) {
		c := Builtin(kind)
		return c, !c.IsZero(), nil
	}}
)

// DefaultOrder is most specific first.
var DefaultOrder = []Strategy{CategoryOverride, GlobalOverride, BuiltinDefault}

// Resolver walks Order and keeps the first strategy that yields content.
type Resolver struct {
	Source Source
	Order  []Strategy
}

// Resolved is the content chosen for (Kind, Category).
type Resolved struct {
	Kind     domain.TemplateKind    `json:"kind"`
	Category domain.Category        `json:"category,omitempty"`
	Scope    Scope                  `json:"scope"`
	Content  domain.TemplateContent `json:"content"`
}

// Text returns the single text, or the status text for status-set kinds.
func (r Resolved) Text(status string) (string, error) {
	if !r.Kind.IsStatusSet() {
		return r.Content.Text, nil
	}
	text, ok := r.Content.Statuses[status]
	if !ok {
		return "", fmt.Errorf("%s template has no text for status %q", r.Kind, status)
	}
	return text, nil
}

// Resolve picks content for kind and category. For status-set kinds the whole
// map comes from one scope; keys it lacks are filled from the built-in map.
func (r Resolver) Resolve(ctx context.Context, kind domain.TemplateKind, category domain.Category) (Resolved, error) {
	if !kind.Valid() {
		return Resolved{}, fmt.Errorf("unknown template kind %q", kind)
	}
	order := r.Order
	if len(order) == 0 {
		order = DefaultOrder
	}
	for _, s := range order {
		content, ok, err := s.lookup(ctx, r.Source, kind, category)
		if err != nil {
			return Resolved{}, fmt.Errorf("resolve %s template at %s scope: %w", kind, s.Scope, err)
		}
		if !ok || !usable(kind, content) {
			continue
		}
		if kind.IsStatusSet() {
			content = fillStatuses(kind, content)
		}
		return Resolved{Kind: kind, Category: category, Scope: s.Scope, Content: content}, nil
	}
	content := Builtin(kind)
	return Resolved{Kind: kind, Category: category, Scope: ScopeBuiltin, Content: content}, nil
}

func usable(kind domain.TemplateKind, c domain.TemplateContent) bool {
	if kind.IsStatusSet() {
		return c.Statuses != nil
	}
	return c.Text != ""
}

func fillStatuses(kind domain.TemplateKind, c domain.TemplateContent) domain.TemplateContent {
	builtin := Builtin(kind).Statuses
	merged := make(map[string]string, len(builtin))
	for k, v := range builtin {
		merged[k] = v
	}
	for k, v := range c.Statuses {
		if v != "" {
			merged[k] = v
		}
	}
	return domain.StatusContent(merged)
}

// Scopes resolves kind for the global scope and for every category, reporting
// which scope supplies each.
func (r Resolver) Scopes(ctx context.Context, kind domain.TemplateKind) ([]Resolved, error) {
	res := make([]Resolved, 0, len(domain.Categories)+1)
	global, err := r.Resolve(ctx, kind, "")
	if err != nil {
		return nil, err
	}
	res = append(res, global)
	for _, c := range domain.Categories {
		resolved, err := r.Resolve(ctx, kind, c)
		if err != nil {
			return nil, err
		}
		res = append(res, resolved)
	}
	return res, nil
}
