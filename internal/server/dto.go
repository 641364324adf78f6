package server

import (
	"github.com/shopspring/decimal"

	"github.com/auraknotphoto-afk/akmsincomenew/internal/domain"
	"github.com/auraknotphoto-afk/akmsincomenew/internal/engine"
	"github.com/auraknotphoto-afk/akmsincomenew/internal/mirror"
	"github.com/auraknotphoto-afk/akmsincomenew/internal/report"
	"github.com/auraknotphoto-afk/akmsincomenew/internal/templates"
)

type JobRequest struct {
	Category         string   `json:"category,omitempty" example:"EDITING"`
	CustomerName     string   `json:"customer_name" example:"Asha"`
	CustomerPhone    string   `json:"customer_phone,omitempty" example:"98765 43210"`
	ClientName       string   `json:"client_name,omitempty"`
	StudioName       string   `json:"studio_name,omitempty"`
	EventType        string   `json:"event_type,omitempty" example:"Wedding"`
	EventLocation    string   `json:"event_location,omitempty"`
	SessionType      string   `json:"session_type,omitempty"`
	ExposeType       string   `json:"expose_type,omitempty"`
	CameraType       string   `json:"camera_type,omitempty"`
	TypeOfWork       string   `json:"type_of_work,omitempty"`
	NumberOfCameras  *int     `json:"number_of_cameras,omitempty"`
	DurationHours    *float64 `json:"duration_hours,omitempty"`
	RatePerHour      *float64 `json:"rate_per_hour,omitempty"`
	StartDate        string   `json:"start_date" example:"2024-01-31"`
	EndDate          string   `json:"end_date,omitempty"`
	EstimatedDueDate string   `json:"estimated_due_date,omitempty"`
	TotalPrice       float64  `json:"total_price" example:"10000"`
	AmountPaid       float64  `json:"amount_paid" example:"4000"`
	PaymentStatus    string   `json:"payment_status,omitempty"`
	PaymentDate      string   `json:"payment_date,omitempty"`
	Status           string   `json:"status,omitempty"`
	Priority         string   `json:"priority,omitempty"`
	Notes            string   `json:"notes,omitempty"`
}

func (r JobRequest) input(owner string) engine.JobInput {
	in := engine.JobInput{
		UserID:           owner,
		Category:         domain.Category(r.Category),
		CustomerName:     r.CustomerName,
		CustomerPhone:    r.CustomerPhone,
		ClientName:       r.ClientName,
		StudioName:       r.StudioName,
		EventType:        r.EventType,
		EventLocation:    r.EventLocation,
		SessionType:      r.SessionType,
		ExposeType:       r.ExposeType,
		CameraType:       r.CameraType,
		TypeOfWork:       r.TypeOfWork,
		NumberOfCameras:  r.NumberOfCameras,
		DurationHours:    r.DurationHours,
		StartDate:        r.StartDate,
		EndDate:          r.EndDate,
		EstimatedDueDate: r.EstimatedDueDate,
		TotalPrice:       decimal.NewFromFloat(r.TotalPrice),
		AmountPaid:       decimal.NewFromFloat(r.AmountPaid),
		PaymentStatus:    domain.PaymentStatus(r.PaymentStatus),
		PaymentDate:      r.PaymentDate,
		Status:           domain.JobStatus(r.Status),
		Priority:         domain.Priority(r.Priority),
		Notes:            r.Notes,
	}
	if r.RatePerHour != nil {
		rate := decimal.NewFromFloat(*r.RatePerHour)
		in.RatePerHour = &rate
	}
	return in
}

type PriorityRequest struct {
	Priority string `json:"priority" doc:"LOW, NORMAL or HIGH. Empty clears the priority"`
}

type TemplateRequest struct {
	Kind     string            `json:"kind" enum:"single,consolidated,job_status,payment_status"`
	Category string            `json:"category,omitempty" doc:"Empty for the global scope"`
	Text     string            `json:"text,omitempty" doc:"Content for single and consolidated"`
	Statuses map[string]string `json:"statuses,omitempty" doc:"Content for job_status and payment_status"`
}

func (r TemplateRequest) template() domain.Template {
	t := domain.Template{Kind: domain.TemplateKind(r.Kind), Category: domain.Category(r.Category)}
	if domain.TemplateKind(r.Kind).IsStatusSet() {
		t.Content = domain.StatusContent(r.Statuses)
	} else {
		t.Content = domain.TextContent(r.Text)
	}
	return t
}

type MigrateRequest struct {
	Jobs      []MigrateJob      `json:"jobs,omitempty"`
	Templates []TemplateRequest `json:"templates,omitempty"`
}

// MigrateJob is a legacy record. Ids and timestamps are kept as given.
type MigrateJob struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
	JobRequest
}

func (r MigrateRequest) input() engine.MigrateInput {
	in := engine.MigrateInput{}
	for _, mj := range r.Jobs {
		ji := mj.JobRequest.input(mj.UserID)
		j := domain.Job{
			ID: mj.ID, UserID: mj.UserID, Category: domain.Category(mj.Category),
			CustomerName: ji.CustomerName, CustomerPhone: ji.CustomerPhone, ClientName: ji.ClientName,
			StudioName: ji.StudioName, EventType: ji.EventType, EventLocation: ji.EventLocation,
			SessionType: ji.SessionType, ExposeType: ji.ExposeType, CameraType: ji.CameraType,
			TypeOfWork: ji.TypeOfWork, NumberOfCameras: ji.NumberOfCameras, DurationHours: ji.DurationHours,
			RatePerHour: ji.RatePerHour, StartDate: ji.StartDate, EndDate: ji.EndDate,
			EstimatedDueDate: ji.EstimatedDueDate, TotalPrice: ji.TotalPrice, AmountPaid: ji.AmountPaid,
			PaymentStatus: ji.PaymentStatus, PaymentDate: ji.PaymentDate, Status: ji.Status,
			Priority: ji.Priority, Notes: ji.Notes, CreatedAt: mj.CreatedAt, UpdatedAt: mj.UpdatedAt,
		}
		if j.PaymentStatus == "" {
			j.PaymentStatus = domain.PaymentPending
		}
		if j.Status == "" {
			j.Status = domain.JobPending
		}
		in.Jobs = append(in.Jobs, j)
	}
	for _, t := range r.Templates {
		in.Templates = append(in.Templates, t.template())
	}
	return in
}

type JobResponse struct {
	ID               string   `json:"id"`
	UserID           string   `json:"user_id"`
	Category         string   `json:"category"`
	CustomerName     string   `json:"customer_name"`
	CustomerPhone    string   `json:"customer_phone,omitempty"`
	ClientName       string   `json:"client_name,omitempty"`
	StudioName       string   `json:"studio_name,omitempty"`
	EventType        string   `json:"event_type,omitempty"`
	EventLocation    string   `json:"event_location,omitempty"`
	SessionType      string   `json:"session_type,omitempty"`
	ExposeType       string   `json:"expose_type,omitempty"`
	CameraType       string   `json:"camera_type,omitempty"`
	TypeOfWork       string   `json:"type_of_work,omitempty"`
	NumberOfCameras  *int     `json:"number_of_cameras,omitempty"`
	DurationHours    *float64 `json:"duration_hours,omitempty"`
	RatePerHour      *float64 `json:"rate_per_hour,omitempty"`
	StartDate        string   `json:"start_date"`
	EndDate          string   `json:"end_date,omitempty"`
	EstimatedDueDate string   `json:"estimated_due_date,omitempty"`
	TotalPrice       float64  `json:"total_price"`
	AmountPaid       float64  `json:"amount_paid"`
	Balance          float64  `json:"balance"`
	PaymentStatus    string   `json:"payment_status"`
	PaymentDate      string   `json:"payment_date,omitempty"`
	Status           string   `json:"status"`
	Priority         string   `json:"priority,omitempty"`
	Notes            string   `json:"notes,omitempty"`
	CreatedAt        string   `json:"created_at"`
	UpdatedAt        string   `json:"updated_at"`
	SyncStatus       string   `json:"sync_status,omitempty"`
}

func jobResponse(j domain.Job) JobResponse {
	out := JobResponse{
		ID: j.ID, UserID: j.UserID, Category: string(j.Category),
		CustomerName: j.CustomerName, CustomerPhone: j.CustomerPhone, ClientName: j.ClientName,
		StudioName: j.StudioName, EventType: j.EventType, EventLocation: j.EventLocation,
		SessionType: j.SessionType, ExposeType: j.ExposeType, CameraType: j.CameraType,
		TypeOfWork: j.TypeOfWork, NumberOfCameras: j.NumberOfCameras, DurationHours: j.DurationHours,
		StartDate: j.StartDate, EndDate: j.EndDate, EstimatedDueDate: j.EstimatedDueDate,
		TotalPrice: money(j.TotalPrice), AmountPaid: money(j.AmountPaid), Balance: money(j.Balance()),
		PaymentStatus: string(j.PaymentStatus), PaymentDate: j.PaymentDate, Status: string(j.Status),
		Priority: string(j.Priority), Notes: j.Notes, CreatedAt: j.CreatedAt, UpdatedAt: j.UpdatedAt,
		SyncStatus: string(j.SyncStatus),
	}
	if j.RatePerHour != nil {
		rate := money(*j.RatePerHour)
		out.RatePerHour = &rate
	}
	return out
}

func mapJobs(items []domain.Job) []JobResponse {
	out := make([]JobResponse, 0, len(items))
	for _, j := range items {
		out = append(out, jobResponse(j))
	}
	return out
}

func money(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

type MessageResponse struct {
	Text  string `json:"text"`
	Link  string `json:"link,omitempty" example:"https://wa.me/919876543210?text=Hi"`
	Phone string `json:"phone,omitempty"`
	Scope string `json:"scope" enum:"category,global,builtin"`
}

func messageResponse(m templates.Message) MessageResponse {
	return MessageResponse{Text: m.Text, Link: m.Link, Phone: m.Phone, Scope: string(m.Scope)}
}

type ConsolidatedResponse struct {
	Message      MessageResponse `json:"message"`
	CustomerName string          `json:"customer_name"`
	TotalBalance float64         `json:"total_balance"`
	Jobs         []JobResponse   `json:"jobs"`
}

type TemplateResponse struct {
	Kind      string            `json:"kind"`
	Category  string            `json:"category,omitempty"`
	Scope     string            `json:"scope,omitempty"`
	Text      string            `json:"text,omitempty"`
	Statuses  map[string]string `json:"statuses,omitempty"`
	UpdatedAt string            `json:"updated_at,omitempty"`
}

func resolvedResponse(r templates.Resolved) TemplateResponse {
	return TemplateResponse{
		Kind: string(r.Kind), Category: string(r.Category), Scope: string(r.Scope),
		Text: r.Content.Text, Statuses: r.Content.Statuses,
	}
}

func templateResponse(t domain.Template) TemplateResponse {
	return TemplateResponse{
		Kind: string(t.Kind), Category: string(t.Category),
		Text: t.Content.Text, Statuses: t.Content.Statuses, UpdatedAt: t.UpdatedAt,
	}
}

type TotalsResponse struct {
	Jobs    int     `json:"jobs"`
	Income  float64 `json:"income"`
	Paid    float64 `json:"paid"`
	Pending float64 `json:"pending"`
}

func totalsResponse(t report.Totals) TotalsResponse {
	return TotalsResponse{Jobs: t.Jobs, Income: money(t.Income), Paid: money(t.Paid), Pending: money(t.Pending)}
}

type CategoryTotalsResponse struct {
	Category string `json:"category"`
	TotalsResponse
}

type RangeResponse struct {
	Period string `json:"period"`
	Start  string `json:"start"`
	End    string `json:"end"`
	Label  string `json:"label"`
}

type SummaryResponse struct {
	Totals     TotalsResponse           `json:"totals"`
	ByCategory []CategoryTotalsResponse `json:"by_category"`
	Status     report.StatusCounts      `json:"status"`
	Payment    report.PaymentCounts     `json:"payment"`
}

type DashboardResponse struct {
	Range   RangeResponse   `json:"range"`
	Summary SummaryResponse `json:"summary"`
}

type MonthResponse struct {
	Year  int    `json:"year"`
	Month int    `json:"month"`
	Label string `json:"label"`
	TotalsResponse
}

type ReportResponse struct {
	Range    RangeResponse   `json:"range"`
	Category string          `json:"category,omitempty"`
	Summary  SummaryResponse `json:"summary"`
	Months   []MonthResponse `json:"months"`
	Total    TotalsResponse  `json:"total"`
	Jobs     []JobResponse   `json:"jobs"`
}

func rangeResponse(r report.Range) RangeResponse {
	return RangeResponse{Period: string(r.Period), Start: r.Start.String(), End: r.End.String(), Label: r.Label}
}

func summaryResponse(s report.Summary) SummaryResponse {
	out := SummaryResponse{Totals: totalsResponse(s.Totals), Status: s.Status, Payment: s.Payment}
	for _, c := range s.ByCategory {
		out.ByCategory = append(out.ByCategory, CategoryTotalsResponse{Category: string(c.Category), TotalsResponse: totalsResponse(c.Totals)})
	}
	return out
}

func dashboardResponse(d report.Dashboard) DashboardResponse {
	return DashboardResponse{Range: rangeResponse(d.Range), Summary: summaryResponse(d.Summary)}
}

func reportResponse(r report.Report) ReportResponse {
	out := ReportResponse{
		Range:    rangeResponse(r.Range),
		Category: string(r.Category),
		Summary:  summaryResponse(r.Summary),
		Months:   []MonthResponse{},
		Total:    totalsResponse(r.Monthly.Total),
		Jobs:     mapJobs(r.Jobs),
	}
	for _, m := range r.Monthly.Months {
		out.Months = append(out.Months, MonthResponse{Year: m.Year, Month: int(m.Month), Label: m.Label, TotalsResponse: totalsResponse(m.Totals)})
	}
	return out
}

type SyncStatusResponse struct {
	RemoteEnabled bool `json:"remote_enabled"`
	Pending       int  `json:"pending"`
	Dead          int  `json:"dead"`
}

func syncStatusResponse(s mirror.Status) SyncStatusResponse {
	return SyncStatusResponse{RemoteEnabled: s.RemoteEnabled, Pending: s.Pending, Dead: s.Dead}
}
