package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Category string

const (
	CategoryEditing  Category = "EDITING"
	CategoryExposing Category = "EXPOSING"
	CategoryOther    Category = "OTHER"
)

// Categories lists every job category in display order.
var Categories = []Category{CategoryEditing, CategoryExposing, CategoryOther}

func (c Category) Valid() bool {
	switch c {
	case CategoryEditing, CategoryExposing, CategoryOther:
		return true
	}
	return false
}

// ParseCategory accepts any letter case; empty input yields "".
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	if c == "" {
		return "", true
	}
	return c, c.Valid()
}

type JobStatus string

const (
	JobPending    JobStatus = "PENDING"
	JobInProgress JobStatus = "IN_PROGRESS"
	JobCompleted  JobStatus = "COMPLETED"
)

var JobStatuses = []JobStatus{JobPending, JobInProgress, JobCompleted}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentPartial   PaymentStatus = "PARTIAL"
	PaymentCompleted PaymentStatus = "COMPLETED"
)

var PaymentStatuses = []PaymentStatus{PaymentPending, PaymentPartial, PaymentCompleted}

type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityNormal Priority = "NORMAL"
	PriorityHigh   Priority = "HIGH"
)

// SyncStatus reports how a record read from the merged view relates to the remote mirror.
type SyncStatus string

const (
	SyncLocalOnly SyncStatus = "local_only" // no remote configured or not yet seen remotely
	SyncPending   SyncStatus = "pending"    // local change waiting in the outbox
	SyncFailed    SyncStatus = "failed"     // outbox entry retrying or dead
	SyncSynced    SyncStatus = "synced"     // present locally and remotely
	SyncRemote    SyncStatus = "remote"     // only known remotely
)

// Job is a single booked piece of work. Dates are calendar dates (YYYY-MM-DD),
// timestamps are RFC3339 in UTC.
type Job struct {
	ID               string           `json:"id"`
	UserID           string           `json:"user_id"`
	Category         Category         `json:"category"`
	CustomerName     string           `json:"customer_name"`
	CustomerPhone    string           `json:"customer_phone,omitempty"`
	ClientName       string           `json:"client_name,omitempty"`
	StudioName       string           `json:"studio_name,omitempty"`
	EventType        string           `json:"event_type,omitempty"`
	EventLocation    string           `json:"event_location,omitempty"`
	SessionType      string           `json:"session_type,omitempty"`
	ExposeType       string           `json:"expose_type,omitempty"`
	CameraType       string           `json:"camera_type,omitempty"`
	TypeOfWork       string           `json:"type_of_work,omitempty"`
	NumberOfCameras  *int             `json:"number_of_cameras,omitempty"`
	DurationHours    *float64         `json:"duration_hours,omitempty"`
	RatePerHour      *decimal.Decimal `json:"rate_per_hour,omitempty"`
	StartDate        string           `json:"start_date"`
	EndDate          string           `json:"end_date,omitempty"`
	EstimatedDueDate string           `json:"estimated_due_date,omitempty"`
	TotalPrice       decimal.Decimal  `json:"total_price"`
	AmountPaid       decimal.Decimal  `json:"amount_paid"`
	PaymentStatus    PaymentStatus    `json:"payment_status"`
	PaymentDate      string           `json:"payment_date,omitempty"`
	Status           JobStatus        `json:"status"`
	Priority         Priority         `json:"priority,omitempty"`
	Notes            string           `json:"notes,omitempty"`
	CreatedAt        string           `json:"created_at"`
	UpdatedAt        string           `json:"updated_at"`
	SyncStatus       SyncStatus       `json:"sync_status,omitempty"`
}

// Balance is the amount still owed. It may be negative for imported records.
func (j Job) Balance() decimal.Decimal {
	return j.TotalPrice.Sub(j.AmountPaid)
}

// EffectiveDate is the end date when present, otherwise the start date.
func (j Job) EffectiveDate() (Date, error) {
	if strings.TrimSpace(j.EndDate) != "" {
		return ParseDate(j.EndDate)
	}
	return ParseDate(j.StartDate)
}

// ServiceLabel names the job in customer messages.
func (j Job) ServiceLabel() string {
	switch {
	case j.EventType != "":
		return j.EventType
	case j.TypeOfWork != "":
		return j.TypeOfWork
	}
	return "Service"
}

// PhoneDigits strips everything but digits from the customer phone.
func (j Job) PhoneDigits() string {
	return Digits(j.CustomerPhone)
}

func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// TimestampLayout is RFC3339 with fixed millisecond precision so stored
// timestamps sort lexically in time order.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Timestamp formats t in UTC using TimestampLayout.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
