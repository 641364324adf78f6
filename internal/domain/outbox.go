package domain

// Outbox entity kinds.
const (
	EntityJob      = "job"
	EntityTemplate = "template"
)

// Outbox operations.
const (
	OpUpsert = "upsert"
	OpDelete = "delete"
)

// Outbox entry states. Entries are removed once pushed.
const (
	OutboxPending = "pending"
	OutboxDead    = "dead"
)

// OutboxEntry is a remote mutation recorded alongside the local write that caused it.
type OutboxEntry struct {
	ID            int64  `json:"id"`
	Entity        string `json:"entity"`
	EntityKey     string `json:"entity_key"`
	Op            string `json:"op"`
	Payload       string `json:"payload_json"`
	Attempts      int    `json:"attempts"`
	NextAttemptAt string `json:"next_attempt_at" format:"date-time"`
	LastError     string `json:"last_error,omitempty"`
	State         string `json:"state"`
	CreatedAt     string `json:"created_at" format:"date-time"`
	UpdatedAt     string `json:"updated_at" format:"date-time"`
}

// TemplateKey is the outbox entity key for a template scope.
func TemplateKey(kind TemplateKind, category Category) string {
	return string(kind) + "|" + string(category)
}
