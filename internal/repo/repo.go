package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/auraknotphoto-afk/akmsincomenew/internal/domain"
)

// Repo is the local SQLite store.
type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

// Querier is satisfied by *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

const jobColumns = `id,user_id,category,customer_name,customer_phone,client_name,studio_name,event_type,event_location,session_type,expose_type,camera_type,type_of_work,number_of_cameras,duration_hours,rate_per_hour,start_date,end_date,estimated_due_date,total_price,amount_paid,payment_status,payment_date,status,priority,notes,created_at,updated_at`

func jobArgs(j domain.Job) []any {
	return []any{
		j.ID, j.UserID, string(j.Category), j.CustomerName, nullable(j.CustomerPhone), nullable(j.ClientName), nullable(j.StudioName),
		nullable(j.EventType), nullable(j.EventLocation), nullable(j.SessionType), nullable(j.ExposeType), nullable(j.CameraType), nullable(j.TypeOfWork),
		nullableIntPtr(j.NumberOfCameras), nullableFloatPtr(j.DurationHours), nullableDecimalPtr(j.RatePerHour),
		j.StartDate, nullable(j.EndDate), nullable(j.EstimatedDueDate),
		j.TotalPrice.String(), j.AmountPaid.String(), string(j.PaymentStatus), nullable(j.PaymentDate),
		string(j.Status), nullable(string(j.Priority)), nullable(j.Notes), j.CreatedAt, j.UpdatedAt,
	}
}

func scanJob(row scanner) (domain.Job, error) {
	var j domain.Job
	var phone, client, studio, eventType, location, session, expose, camera, work, rate, endDate, dueDate, paymentDate, priority, notes sql.NullString
	var cameras sql.NullInt64
	var duration sql.NullFloat64
	var category, total, paid, paymentStatus, status string
	err := row.Scan(&j.ID, &j.UserID, &category, &j.CustomerName, &phone, &client, &studio, &eventType, &location, &session, &expose, &camera, &work,
		&cameras, &duration, &rate, &j.StartDate, &endDate, &dueDate, &total, &paid, &paymentStatus, &paymentDate, &status, &priority, &notes,
		&j.CreatedAt, &j.UpdatedAt)
	if err == sql.ErrNoRows {
		return j, ErrNotFound
	}
	if err != nil {
		return j, err
	}
	j.Category = domain.Category(category)
	j.PaymentStatus = domain.PaymentStatus(paymentStatus)
	j.Status = domain.JobStatus(status)
	j.CustomerPhone = phone.String
	j.ClientName = client.String
	j.StudioName = studio.String
	j.EventType = eventType.String
	j.EventLocation = location.String
	j.SessionType = session.String
	j.ExposeType = expose.String
	j.CameraType = camera.String
	j.TypeOfWork = work.String
	j.EndDate = endDate.String
	j.EstimatedDueDate = dueDate.String
	j.PaymentDate = paymentDate.String
	j.Priority = domain.Priority(priority.String)
	j.Notes = notes.String
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
			return j, fmt.Errorf("job %s rate_per_hour: %w", j.ID, err)
		}
		j.RatePerHour = &d
	}
	if j.TotalPrice, err = decimal.NewFromString(total); err != nil {
		return j, fmt.Errorf("job %s total_price: %w", j.ID, err)
	}
	if j.AmountPaid, err = decimal.NewFromString(paid); err != nil {
		return j, fmt.Errorf("job %s amount_paid: %w", j.ID, err)
	}
	return j, nil
}

func (r Repo) InsertJob(ctx context.Context, q Querier, j domain.Job) error {
	_, err := q.ExecContext(ctx, `INSERT INTO jobs(`+jobColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`, jobArgs(j)...)
	return err
}

// UpsertJob inserts or fully replaces a job row by id.
func (r Repo) UpsertJob(ctx context.Context, q Querier, j domain.Job) error {
	cols := strings.Split(jobColumns, ",")
	sets := make([]string, 0, len(cols)-1)
	for _, c := range cols[1:] {
		sets = append(sets, c+"=excluded."+c)
	}
	_, err := q.ExecContext(ctx, `INSERT INTO jobs(`+jobColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
ON CONFLICT(id) DO UPDATE SET `+strings.Join(sets, ", "), jobArgs(j)...)
	return err
}

// UpdateJob rewrites every editable column. Category and created_at are fixed at creation.
func (r Repo) UpdateJob(ctx context.Context, q Querier, j domain.Job) error {
	res, err := q.ExecContext(ctx, `UPDATE jobs SET customer_name=?, customer_phone=?, client_name=?, studio_name=?, event_type=?, event_location=?, session_type=?, expose_type=?, camera_type=?, type_of_work=?, number_of_cameras=?, duration_hours=?, rate_per_hour=?, start_date=?, end_date=?, estimated_due_date=?, total_price=?, amount_paid=?, payment_status=?, payment_date=?, status=?, priority=?, notes=?, updated_at=? WHERE id=?`,
		j.CustomerName, nullable(j.CustomerPhone), nullable(j.ClientName), nullable(j.StudioName), nullable(j.EventType), nullable(j.EventLocation),
		nullable(j.SessionType), nullable(j.ExposeType), nullable(j.CameraType), nullable(j.TypeOfWork),
		nullableIntPtr(j.NumberOfCameras), nullableFloatPtr(j.DurationHours), nullableDecimalPtr(j.RatePerHour),
		j.StartDate, nullable(j.EndDate), nullable(j.EstimatedDueDate), j.TotalPrice.String(), j.AmountPaid.String(),
		string(j.PaymentStatus), nullable(j.PaymentDate), string(j.Status), nullable(string(j.Priority)), nullable(j.Notes), j.UpdatedAt, j.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteJob(ctx context.Context, q Querier, id string) error {
	res, err := q.ExecContext(ctx, `DELETE FROM jobs WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) GetJob(ctx context.Context, id string) (domain.Job, error) {
	return r.GetJobTx(ctx, r.DB, id)
}

func (r Repo) GetJobTx(ctx context.Context, q Querier, id string) (domain.Job, error) {
	return scanJob(q.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id=?`, id))
}

type JobFilters struct {
	UserID   string
	Category domain.Category
}

// ListJobs returns jobs newest first.
func (r Repo) ListJobs(ctx context.Context, f JobFilters) ([]domain.Job, error) {
	var clauses []string
	var args []any
	if f.UserID != "" {
		clauses = append(clauses, "user_id=?")
		args = append(args, f.UserID)
	}
	if f.Category != "" {
		clauses = append(clauses, "category=?")
		args = append(args, string(f.Category))
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT `+jobColumns+` FROM jobs `+where+` ORDER BY created_at DESC, id DESC`, args...)
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

func (r Repo) CountJobs(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs WHERE (?='' OR user_id=?)`, userID, userID).Scan(&n)
	return n, err
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableIntPtr(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableFloatPtr(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableDecimalPtr(v *decimal.Decimal) any {
	if v == nil {
		return nil
	}
	return v.String()
}
