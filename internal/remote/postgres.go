package remote

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/auraknotphoto-afk/akmsincomenew/internal/domain"
)

// Postgres implements Store over database/sql with the pgx driver.
// Dates, money and timestamps travel as text and are cast server side.
type Postgres struct {
	DB *sql.DB
}

const tsText = `to_char(%s AT TIME ZONE 'UTC', 'YYYY-MM-DD"T"HH24:MI:SS.MS"Z"')`

var selectJob = `SELECT id,user_id,category,customer_name,COALESCE(customer_phone,''),COALESCE(client_name,''),COALESCE(studio_name,''),
COALESCE(event_type,''),COALESCE(event_location,''),COALESCE(session_type,''),COALESCE(expose_type,''),COALESCE(camera_type,''),COALESCE(type_of_work,''),
number_of_cameras,duration_hours,rate_per_hour::text,start_date::text,COALESCE(end_date::text,''),COALESCE(estimated_due_date::text,''),
total_price::text,amount_paid::text,payment_status,COALESCE(payment_date::text,''),status,COALESCE(priority,''),COALESCE(notes,''),` +
	fmt.Sprintf(tsText, "created_at") + `,` + fmt.Sprintf(tsText, "updated_at") + ` FROM jobs`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (domain.Job, error) {
	var j domain.Job
	var category, total, paid, paymentStatus, status, priority string
	var cameras sql.NullInt64
	var duration sql.NullFloat64
	var rate sql.NullString
	err := row.Scan(&j.ID, &j.UserID, &category, &j.CustomerName, &j.CustomerPhone, &j.ClientName, &j.StudioName,
		&j.EventType, &j.EventLocation, &j.SessionType, &j.ExposeType, &j.CameraType, &j.TypeOfWork,
		&cameras, &duration, &rate, &j.StartDate, &j.EndDate, &j.EstimatedDueDate,
		&total, &paid, &paymentStatus, &j.PaymentDate, &status, &priority, &j.Notes, &j.CreatedAt, &j.UpdatedAt)
	if err == sql.ErrNoRows {
		return j, ErrNotFound
	}
	if err != nil {
		return j, err
	}
	j.Category = domain.Category(category)
	j.PaymentStatus = domain.PaymentStatus(paymentStatus)
	j.Status = domain.JobStatus(status)
	j.Priority = domain.Priority(priority)
	if cameras.Valid {
		n := int(cameras.Int64)
		j.NumberOfCameras = &n
	}
	if duration.Valid {
		d := duration.Float64
		j.DurationHours = &d
	}
	if rate.Valid {
		d, err := decimal.NewFromString(rate.String)
		if err != nil {
			return j, fmt.Errorf("remote job %s rate_per_hour: %w", j.ID, err)
		}
		j.RatePerHour = &d
	}
	if j.TotalPrice, err = decimal.NewFromString(total); err != nil {
		return j, fmt.Errorf("remote job %s total_price: %w", j.ID, err)
	}
	if j.AmountPaid, err = decimal.NewFromString(paid); err != nil {
		return j, fmt.Errorf("remote job %s amount_paid: %w", j.ID, err)
	}
	return j, nil
}

func (p Postgres) ListJobs(ctx context.Context, owner string, category domain.Category) ([]domain.Job, error) {
	rows, err := p.DB.QueryContext(ctx, selectJob+` WHERE ($1='' OR user_id=$1) AND ($2='' OR category=$2) ORDER BY created_at DESC, id DESC`,
		owner, string(category))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, j)
	}
	return res, rows.Err()
}

func (p Postgres) GetJob(ctx context.Context, id string) (domain.Job, error) {
	return scanJob(p.DB.QueryRowContext(ctx, selectJob+` WHERE id=$1`, id))
}

const upsertJob = `INSERT INTO jobs(id,user_id,category,customer_name,customer_phone,client_name,studio_name,event_type,event_location,session_type,expose_type,camera_type,type_of_work,number_of_cameras,duration_hours,rate_per_hour,start_date,end_date,estimated_due_date,total_price,amount_paid,payment_status,payment_date,status,priority,notes,created_at,updated_at)
VALUES ($1,$2,$3,$4,NULLIF($5,''),NULLIF($6,''),NULLIF($7,''),NULLIF($8,''),NULLIF($9,''),NULLIF($10,''),NULLIF($11,''),NULLIF($12,''),NULLIF($13,''),
$14,$15,NULLIF($16::text,'')::numeric,$17::text::date,NULLIF($18::text,'')::date,NULLIF($19::text,'')::date,
$20::text::numeric,$21::text::numeric,$22,NULLIF($23::text,'')::date,$24,NULLIF($25,''),NULLIF($26,''),$27::text::timestamptz,$28::text::timestamptz)
ON CONFLICT (id) DO UPDATE SET user_id=excluded.user_id, category=excluded.category, customer_name=excluded.customer_name,
customer_phone=excluded.customer_phone, client_name=excluded.client_name, studio_name=excluded.studio_name, event_type=excluded.event_type,
event_location=excluded.event_location, session_type=excluded.session_type, expose_type=excluded.expose_type, camera_type=excluded.camera_type,
type_of_work=excluded.type_of_work, number_of_cameras=excluded.number_of_cameras, duration_hours=excluded.duration_hours,
rate_per_hour=excluded.rate_per_hour, start_date=excluded.start_date, end_date=excluded.end_date, estimated_due_date=excluded.estimated_due_date,
total_price=excluded.total_price, amount_paid=excluded.amount_paid, payment_status=excluded.payment_status, payment_date=excluded.payment_date,
status=excluded.status, priority=excluded.priority, notes=excluded.notes, updated_at=excluded.updated_at`

func jobArgs(j domain.Job) []any {
	var cameras, duration any
	if j.NumberOfCameras != nil {
		cameras = *j.NumberOfCameras
	}
	if j.DurationHours != nil {
		duration = *j.DurationHours
	}
	rate := ""
	if j.RatePerHour != nil {
		rate = j.RatePerHour.String()
	}
	return []any{
		j.ID, j.UserID, string(j.Category), j.CustomerName, j.CustomerPhone, j.ClientName, j.StudioName,
		j.EventType, j.EventLocation, j.SessionType, j.ExposeType, j.CameraType, j.TypeOfWork,
		cameras, duration, rate, dateOnly(j.StartDate), dateOnly(j.EndDate), dateOnly(j.EstimatedDueDate),
		j.TotalPrice.String(), j.AmountPaid.String(), string(j.PaymentStatus), dateOnly(j.PaymentDate),
		string(j.Status), string(j.Priority), j.Notes, j.CreatedAt, j.UpdatedAt,
	}
}

// dateOnly trims any time part so imported ISO timestamps land on their calendar day.
func dateOnly(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 10 {
		return s[:10]
	}
	return s
}

// UpsertJobs writes the jobs in one transaction, keyed by id.
func (p Postgres) UpsertJobs(ctx context.Context, jobs []domain.Job) (int64, error) {
	if len(jobs) == 0 {
		return 0, nil
	}
	tx, err := p.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()
	var n int64
	for _, j := range jobs {
		res, err := tx.ExecContext(ctx, upsertJob, jobArgs(j)...)
		if err != nil {
			return 0, fmt.Errorf("upsert job %s: %w", j.ID, err)
		}
		affected, _ := res.RowsAffected()
		n += affected
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return n, nil
}

// DeleteJob is idempotent: deleting a missing id succeeds.
func (p Postgres) DeleteJob(ctx context.Context, id string) error {
	_, err := p.DB.ExecContext(ctx, `DELETE FROM jobs WHERE id=$1`, id)
	return err
}

var selectTemplate = `SELECT kind,COALESCE(category,''),content::text,` + fmt.Sprintf(tsText, "updated_at") + ` FROM whatsapp_templates`

func scanTemplate(row rowScanner) (domain.Template, error) {
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
		return t, fmt.Errorf("remote template %s: %w", t.Scope(), err)
	}
	return t, nil
}

func (p Postgres) GetTemplate(ctx context.Context, kind domain.TemplateKind, category domain.Category) (domain.Template, error) {
	return scanTemplate(p.DB.QueryRowContext(ctx, selectTemplate+` WHERE kind=$1 AND COALESCE(category,'')=$2`, string(kind), string(category)))
}

func (p Postgres) ListTemplates(ctx context.Context, kind domain.TemplateKind) ([]domain.Template, error) {
	rows, err := p.DB.QueryContext(ctx, selectTemplate+` WHERE ($1='' OR kind=$1) ORDER BY kind, COALESCE(category,'')`, string(kind))
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

const upsertTemplate = `INSERT INTO whatsapp_templates(kind,category,content,updated_at) VALUES ($1,NULLIF($2,''),$3::text::jsonb,COALESCE(NULLIF($4::text,'')::timestamptz, now()))
ON CONFLICT (kind, COALESCE(category, '')) DO UPDATE SET content=excluded.content, updated_at=excluded.updated_at`

// UpsertTemplates writes the templates in one transaction, keyed by (kind, category).
func (p Postgres) UpsertTemplates(ctx context.Context, templates []domain.Template) (int64, error) {
	if len(templates) == 0 {
		return 0, nil
	}
	tx, err := p.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()
	var n int64
	for _, t := range templates {
		content, err := json.Marshal(t.Content)
		if err != nil {
			return 0, err
		}
		res, err := tx.ExecContext(ctx, upsertTemplate, string(t.Kind), string(t.Category), string(content), t.UpdatedAt)
		if err != nil {
			return 0, fmt.Errorf("upsert template %s: %w", t.Scope(), err)
		}
		affected, _ := res.RowsAffected()
		n += affected
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return n, nil
}

func (p Postgres) DeleteTemplate(ctx context.Context, kind domain.TemplateKind, category domain.Category) error {
	_, err := p.DB.ExecContext(ctx, `DELETE FROM whatsapp_templates WHERE kind=$1 AND COALESCE(category,'')=$2`, string(kind), string(category))
	return err
}

func (p Postgres) Ping(ctx context.Context) error {
	return p.DB.PingContext(ctx)
}
