package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type TemplateKind string

const (
	KindSingle        TemplateKind = "single"
	KindConsolidated  TemplateKind = "consolidated"
	KindJobStatus     TemplateKind = "job_status"
	KindPaymentStatus TemplateKind = "payment_status"
)

var TemplateKinds = []TemplateKind{KindSingle, KindConsolidated, KindJobStatus, KindPaymentStatus}

func (k TemplateKind) Valid() bool {
	switch k {
	case KindSingle, KindConsolidated, KindJobStatus, KindPaymentStatus:
		return true
	}
	return false
}

// IsStatusSet reports whether the kind holds one text per status instead of a single text.
func (k TemplateKind) IsStatusSet() bool {
	return k == KindJobStatus || k == KindPaymentStatus
}

// Statuses returns the status keys a status-set kind must cover.
func (k TemplateKind) Statuses() []string {
	switch k {
	case KindJobStatus:
		return []string{string(JobPending), string(JobInProgress), string(JobCompleted)}
	case KindPaymentStatus:
		return []string{string(PaymentPending), string(PaymentPartial), string(PaymentCompleted)}
	}
	return nil
}

// TemplateContent is either a single text or a status-keyed map of texts.
// It encodes as a JSON string or a JSON object respectively.
type TemplateContent struct {
	Text     string
	Statuses map[string]string
}

func TextContent(s string) TemplateContent { return TemplateContent{Text: s} }

func StatusContent(m map[string]string) TemplateContent { return TemplateContent{Statuses: m} }

func (c TemplateContent) IsZero() bool {
	return c.Text == "" && len(c.Statuses) == 0
}

func (c TemplateContent) MarshalJSON() ([]byte, error) {
	if c.Statuses != nil {
		return json.Marshal(c.Statuses)
	}
	return json.Marshal(c.Text)
}

func (c *TemplateContent) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*c = TemplateContent{}
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = TemplateContent{Text: s}
	case '{':
		m := map[string]string{}
		if err := json.Unmarshal(data, &m); err != nil {
			return err
		}
		*c = TemplateContent{Statuses: m}
	default:
		return fmt.Errorf("template content must be a string or an object")
	}
	return nil
}

// Template is a stored override. An empty Category means the global scope.
type Template struct {
	Kind      TemplateKind    `json:"kind"`
	Category  Category        `json:"category,omitempty"`
	Content   TemplateContent `json:"content"`
	UpdatedAt string          `json:"updated_at,omitempty"`
}

// Scope names the (kind, category) slot a template occupies.
func (t Template) Scope() string {
	if t.Category == "" {
		return string(t.Kind) + "/global"
	}
	return string(t.Kind) + "/" + string(t.Category)
}

// Validate checks the content shape matches the kind.
func (t Template) Validate() error {
	if !t.Kind.Valid() {
		return fmt.Errorf("unknown template kind %q", t.Kind)
	}
	if t.Category != "" && !t.Category.Valid() {
		return fmt.Errorf("unknown category %q", t.Category)
	}
	if t.Kind.IsStatusSet() {
		if t.Content.Statuses == nil {
			return fmt.Errorf("%s template needs a status map", t.Kind)
		}
		allowed := map[string]bool{}
		for _, s := range t.Kind.Statuses() {
			allowed[s] = true
		}
		for k := range t.Content.Statuses {
			if !allowed[k] {
				return fmt.Errorf("%s template has unknown status %q", t.Kind, k)
			}
		}
		return nil
	}
	if t.Content.Statuses != nil {
		return fmt.Errorf("%s template needs text content", t.Kind)
	}
	if t.Content.Text == "" {
		return fmt.Errorf("%s template text is empty", t.Kind)
	}
	return nil
}
