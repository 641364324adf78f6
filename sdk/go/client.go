package akmssdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal studio HTTP API client.
type Client struct {
	BaseURL     string
	BasePath    string
	OwnerID     string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults. ownerID is sent as X-User-Id
// unless a BearerToken is set.
func New(baseURL, ownerID string) *Client {
	return &Client{
		BaseURL:  baseURL,
		BasePath: "/v1",
		OwnerID:  ownerID,
		Timeout:  10 * time.Second,
	}
}

// Job represents the API job model.
type Job struct {
	ID            string  `json:"id,omitempty"`
	UserID        string  `json:"user_id,omitempty"`
	Category      string  `json:"category"`
	CustomerName  string  `json:"customer_name"`
	CustomerPhone string  `json:"customer_phone,omitempty"`
	EventType     string  `json:"event_type,omitempty"`
	TypeOfWork    string  `json:"type_of_work,omitempty"`
	StartDate     string  `json:"start_date"`
	EndDate       string  `json:"end_date,omitempty"`
	TotalPrice    float64 `json:"total_price"`
	AmountPaid    float64 `json:"amount_paid"`
	Balance       float64 `json:"balance,omitempty"`
	PaymentStatus string  `json:"payment_status,omitempty"`
	Status        string  `json:"status,omitempty"`
	Priority      string  `json:"priority,omitempty"`
	Notes         string  `json:"notes,omitempty"`
	CreatedAt     string  `json:"created_at,omitempty"`
	SyncStatus    string  `json:"sync_status,omitempty"`
}

// Message is a composed WhatsApp message.
type Message struct {
	Text  string `json:"text"`
	Link  string `json:"link,omitempty"`
	Phone string `json:"phone,omitempty"`
	Scope string `json:"scope"`
}

// CustomerReminder covers every unpaid job of one customer.
type CustomerReminder struct {
	Message      Message `json:"message"`
	CustomerName string  `json:"customer_name"`
	TotalBalance float64 `json:"total_balance"`
	Jobs         []Job   `json:"jobs"`
}

// Template is a resolved template or a stored override.
type Template struct {
	Kind      string            `json:"kind"`
	Category  string            `json:"category,omitempty"`
	Scope     string            `json:"scope,omitempty"`
	Text      string            `json:"text,omitempty"`
	Statuses  map[string]string `json:"statuses,omitempty"`
	UpdatedAt string            `json:"updated_at,omitempty"`
}

type Totals struct {
	Jobs    int     `json:"jobs"`
	Income  float64 `json:"income"`
	Paid    float64 `json:"paid"`
	Pending float64 `json:"pending"`
}

// Dashboard is the period summary.
type Dashboard struct {
	Range struct {
		Period string `json:"period"`
		Start  string `json:"start"`
		End    string `json:"end"`
		Label  string `json:"label"`
	} `json:"range"`
	Summary struct {
		Totals     Totals `json:"totals"`
		ByCategory []struct {
			Category string `json:"category"`
			Totals
		} `json:"by_category"`
	} `json:"summary"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error: status=%d code=%s message=%s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

func (c *Client) CreateJob(ctx context.Context, j Job) (Job, error) {
	var resp Job
	err := c.do(ctx, http.MethodPost, "jobs", j, &resp)
	return resp, err
}

func (c *Client) GetJob(ctx context.Context, id string) (Job, error) {
	var resp Job
	err := c.do(ctx, http.MethodGet, "jobs/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// ListJobs returns the merged job list, optionally for one category.
func (c *Client) ListJobs(ctx context.Context, category string) ([]Job, error) {
	endpoint := "jobs"
	if category != "" {
		endpoint += "?category=" + url.QueryEscape(category)
	}
	var resp struct {
		Items []Job `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Items, err
}

func (c *Client) UpdateJob(ctx context.Context, id string, j Job) (Job, error) {
	var resp Job
	err := c.do(ctx, http.MethodPatch, "jobs/"+url.PathEscape(id), j, &resp)
	return resp, err
}

func (c *Client) DeleteJob(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "jobs/"+url.PathEscape(id), nil, nil)
}

// JobReminder returns the payment reminder for one job.
func (c *Client) JobReminder(ctx context.Context, id string) (Message, error) {
	var resp Message
	err := c.do(ctx, http.MethodGet, "jobs/"+url.PathEscape(id)+"/reminder", nil, &resp)
	return resp, err
}

// CustomerReminder returns one reminder for every unpaid job of phone.
func (c *Client) CustomerReminder(ctx context.Context, phone string) (CustomerReminder, error) {
	var resp CustomerReminder
	err := c.do(ctx, http.MethodGet, "customers/"+url.PathEscape(phone)+"/reminder", nil, &resp)
	return resp, err
}

// ResolveTemplate returns the template in effect for kind and category.
func (c *Client) ResolveTemplate(ctx context.Context, kind, category string) (Template, error) {
	q := url.Values{"kind": {kind}}
	if category != "" {
		q.Set("category", category)
	}
	var resp Template
	err := c.do(ctx, http.MethodGet, "templates?"+q.Encode(), nil, &resp)
	return resp, err
}

func (c *Client) SetTemplate(ctx context.Context, t Template) (Template, error) {
	var resp Template
	err := c.do(ctx, http.MethodPut, "templates", t, &resp)
	return resp, err
}

// Dashboard returns the summary for period; start and end apply to "custom".
func (c *Client) Dashboard(ctx context.Context, period, start, end string) (Dashboard, error) {
	q := url.Values{}
	if period != "" {
		q.Set("period", period)
	}
	if start != "" {
		q.Set("start", start)
	}
	if end != "" {
		q.Set("end", end)
	}
	endpoint := "dashboard/summary"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp Dashboard
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.OwnerID != "":
		req.Header.Set("X-User-Id", c.OwnerID)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(b)}
		var env struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(b, &env) == nil {
			apiErr.Code, apiErr.Message = env.Error.Code, env.Error.Message
		}
		return apiErr
	}
	if out != nil && resp.StatusCode != http.StatusNoContent {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/") + "/" + strings.Trim(c.BasePath, "/")
}
