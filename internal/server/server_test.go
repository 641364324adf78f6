package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/auraknotphoto-afk/akmsincomenew/internal/config"
	"github.com/auraknotphoto-afk/akmsincomenew/internal/db"
	"github.com/auraknotphoto-afk/akmsincomenew/internal/engine"
	"github.com/auraknotphoto-afk/akmsincomenew/internal/engine/auth"
	"github.com/auraknotphoto-afk/akmsincomenew/internal/migrate"
	"github.com/auraknotphoto-afk/akmsincomenew/internal/remote/remotetest"
	"github.com/auraknotphoto-afk/akmsincomenew/internal/repo"
)

const testSecret = "test-secret"

type testServer struct {
	URL    string
	client *http.Client
	fake   *remotetest.Fake
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	workspace := t.TempDir()
	if _, err := db.EnsureWorkspace(workspace); err != nil {
		t.Fatalf("ensure workspace: %v", err)
	}
	cfg := config.Default("Test Studio")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	fake := remotetest.New()
	e := engine.New(repo.Repo{DB: conn}, fake, cfg, nil)
	handler, err := New(Config{Engine: e, BasePath: "/v1", Auth: AuthConfig{JWTSecret: testSecret, AllowUserHeader: true}})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	srv := httptest.NewServer(handler)
	t.Cleanup(func() {
		srv.Close()
		conn.Close()
	})
	return &testServer{URL: srv.URL + "/v1", client: srv.Client(), fake: fake}
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

var asOwner = map[string]string{"X-User-Id": "owner-1"}

func createJob(t *testing.T, srv *testServer, body map[string]any) JobResponse {
	t.Helper()
	res, data := doJSON(t, srv.client, http.MethodPost, srv.URL+"/jobs", body, asOwner)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create job status %d: %s", res.StatusCode, string(data))
	}
	var j JobResponse
	if err := json.Unmarshal(data, &j); err != nil {
		t.Fatalf("unmarshal job: %v", err)
	}
	return j
}

func TestHealthNeedsNoAuth(t *testing.T) {
	srv := newTestServer(t)
	res, data := doJSON(t, srv.client, http.MethodGet, srv.URL+"/health", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health status %d: %s", res.StatusCode, string(data))
	}
	res, _ = doJSON(t, srv.client, http.MethodGet, srv.URL+"/jobs", nil, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without identity, got %d", res.StatusCode)
	}
}

func TestJobLifecycle(t *testing.T) {
	srv := newTestServer(t)
	j := createJob(t, srv, map[string]any{
		"category":       "EDITING",
		"customer_name":  "Asha",
		"customer_phone": "98765 43210",
		"event_type":     "Wedding",
		"start_date":     "2024-01-31",
		"total_price":    10000,
		"amount_paid":    4000,
	})
	if j.Balance != 6000 || j.UserID != "owner-1" {
		t.Fatalf("unexpected job %+v", j)
	}
	if srv.fake.JobCount() != 1 {
		t.Fatalf("expected job mirrored remotely")
	}

	res, data := doJSON(t, srv.client, http.MethodPut, srv.URL+"/jobs/"+j.ID+"/priority", map[string]any{"priority": "HIGH"}, asOwner)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("priority status %d: %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, srv.client, http.MethodGet, srv.URL+"/jobs/"+j.ID+"/reminder", nil, asOwner)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("reminder status %d: %s", res.StatusCode, string(data))
	}
	var msg MessageResponse
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal message: %v", err)
	}
	if !strings.HasPrefix(msg.Link, "https://wa.me/919876543210?text=") || msg.Scope != "builtin" {
		t.Fatalf("unexpected message %+v", msg)
	}

	res, data = doJSON(t, srv.client, http.MethodGet, srv.URL+"/jobs/"+j.ID, nil, map[string]string{"X-User-Id": "owner-2"})
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for other owner, got %d: %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, srv.client, http.MethodDelete, srv.URL+"/jobs/"+j.ID, nil, asOwner)
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status %d: %s", res.StatusCode, string(data))
	}
	if srv.fake.JobCount() != 0 {
		t.Fatalf("expected remote delete")
	}
}

func TestValidationEnvelope(t *testing.T) {
	srv := newTestServer(t)
	res, data := doJSON(t, srv.client, http.MethodPost, srv.URL+"/jobs", map[string]any{
		"category":      "OTHER",
		"customer_name": "Ravi",
		"start_date":    "2024-01-10",
		"total_price":   100,
		"amount_paid":   200,
	}, asOwner)
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", res.StatusCode, string(data))
	}
	var env struct {
		Error apiErrorBody `json:"error"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if env.Error.Code != "validation_failed" || env.Error.Details["amount_paid"] == nil {
		t.Fatalf("unexpected envelope %+v", env.Error)
	}
}

func TestBearerToken(t *testing.T) {
	srv := newTestServer(t)
	token, err := auth.Issue(testSecret, "owner-9", "", time.Now(), time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	res, data := doJSON(t, srv.client, http.MethodGet, srv.URL+"/jobs", nil, map[string]string{"Authorization": "Bearer " + token})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list status %d: %s", res.StatusCode, string(data))
	}
	res, _ = doJSON(t, srv.client, http.MethodGet, srv.URL+"/jobs", nil, map[string]string{"Authorization": "Bearer nope"})
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", res.StatusCode)
	}
}

func TestCustomerReminderAndDashboard(t *testing.T) {
	srv := newTestServer(t)
	for _, body := range []map[string]any{
		{"category": "EDITING", "customer_name": "Asha", "customer_phone": "98765 43210", "start_date": "2024-01-31", "total_price": 500, "amount_paid": 400},
		{"category": "EXPOSING", "customer_name": "Asha", "customer_phone": "+91 98765 43210", "start_date": "2024-01-20", "total_price": 250, "amount_paid": 0},
		{"category": "OTHER", "customer_name": "Asha", "customer_phone": "9876543210", "start_date": "2024-01-05", "total_price": 300, "amount_paid": 300, "payment_status": "COMPLETED"},
	} {
		createJob(t, srv, body)
	}
	res, data := doJSON(t, srv.client, http.MethodGet, srv.URL+"/customers/9876543210/reminder", nil, asOwner)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("customer reminder status %d: %s", res.StatusCode, string(data))
	}
	var c ConsolidatedResponse
	if err := json.Unmarshal(data, &c); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if c.TotalBalance != 350 || len(c.Jobs) != 2 {
		t.Fatalf("expected two jobs totalling 350, got %v over %d", c.TotalBalance, len(c.Jobs))
	}

	res, data = doJSON(t, srv.client, http.MethodGet, srv.URL+"/dashboard/summary?period=custom&start=2024-01-01&end=2024-01-31", nil, asOwner)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("dashboard status %d: %s", res.StatusCode, string(data))
	}
	var d DashboardResponse
	if err := json.Unmarshal(data, &d); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if d.Summary.Totals.Jobs != 3 || d.Summary.Totals.Pending != 350 {
		t.Fatalf("unexpected totals %+v", d.Summary.Totals)
	}

	res, data = doJSON(t, srv.client, http.MethodGet, srv.URL+"/dashboard/summary?period=decade", nil, asOwner)
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for unknown period, got %d: %s", res.StatusCode, string(data))
	}
}

func TestTemplateOverride(t *testing.T) {
	srv := newTestServer(t)
	res, data := doJSON(t, srv.client, http.MethodPut, srv.URL+"/templates", map[string]any{
		"kind": "single", "text": "Hi {customer_name}",
	}, asOwner)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("set template status %d: %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, srv.client, http.MethodGet, srv.URL+"/templates?kind=single&category=EDITING", nil, asOwner)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("resolve status %d: %s", res.StatusCode, string(data))
	}
	var tpl TemplateResponse
	if err := json.Unmarshal(data, &tpl); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if tpl.Scope != "global" || tpl.Text != "Hi {customer_name}" {
		t.Fatalf("expected global override, got %+v", tpl)
	}
	res, data = doJSON(t, srv.client, http.MethodDelete, srv.URL+"/templates?kind=single", nil, asOwner)
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("reset status %d: %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, srv.client, http.MethodGet, srv.URL+"/templates/job_status/scopes", nil, asOwner)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("scopes status %d: %s", res.StatusCode, string(data))
	}
}

func TestSyncEndpoints(t *testing.T) {
	srv := newTestServer(t)
	srv.fake.SetDown(true)
	createJob(t, srv, map[string]any{"category": "OTHER", "customer_name": "Ravi", "start_date": "2024-01-10", "total_price": 100, "amount_paid": 0})
	res, data := doJSON(t, srv.client, http.MethodGet, srv.URL+"/sync/status", nil, asOwner)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", res.StatusCode, string(data))
	}
	var st SyncStatusResponse
	if err := json.Unmarshal(data, &st); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !st.RemoteEnabled || st.Pending != 1 {
		t.Fatalf("expected one pending entry, got %+v", st)
	}

	res, data = doJSON(t, srv.client, http.MethodPost, srv.URL+"/migrate", map[string]any{
		"jobs": []map[string]any{{"id": "legacy-1", "user_id": "owner-1", "category": "OTHER", "customer_name": "Old", "start_date": "2023-01-01", "total_price": 10, "amount_paid": 0}},
	}, asOwner)
	if res.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected failure while remote is down, got %d: %s", res.StatusCode, string(data))
	}
	srv.fake.SetDown(false)
	res, data = doJSON(t, srv.client, http.MethodPost, srv.URL+"/migrate", map[string]any{
		"jobs": []map[string]any{{"id": "legacy-1", "user_id": "owner-1", "category": "OTHER", "customer_name": "Old", "start_date": "2023-01-01", "total_price": 10, "amount_paid": 0}},
	}, asOwner)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("migrate status %d: %s", res.StatusCode, string(data))
	}
	if _, ok := srv.fake.Job("legacy-1"); !ok {
		t.Fatalf("legacy job not migrated")
	}

	res, data = doJSON(t, srv.client, http.MethodPost, srv.URL+"/migrate", map[string]any{
		"jobs": []map[string]any{{"id": "legacy-2", "user_id": "owner-2", "category": "OTHER", "customer_name": "Old", "start_date": "2023-01-01", "total_price": 10, "amount_paid": 0}},
	}, asOwner)
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for another owner's job, got %d: %s", res.StatusCode, string(data))
	}
}
