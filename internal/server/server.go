package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/auraknotphoto-afk/akmsincomenew/internal/domain"
	"github.com/auraknotphoto-afk/akmsincomenew/internal/engine"
	"github.com/auraknotphoto-afk/akmsincomenew/internal/mirror"
	"github.com/auraknotphoto-afk/akmsincomenew/internal/report"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   engine.Engine
	BasePath string
	Auth     AuthConfig
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"validation_failed"`
	Message string         `json:"message" example:"validation failed: amount_paid: exceeds total_price"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true" example:"{\"amount_paid\":\"exceeds total_price\"}"`
}

// apiError models the required error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the studio API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v1"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	// Override Huma errors to use the envelope.
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			// Schema/request validation errors are 400 bad_request
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(newAuthMiddleware(basePath, cfg.Auth))
	hcfg := huma.DefaultConfig("Aura Knot Studio API", "1.0.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	router.Handle("/metrics", promhttp.Handler())
	registerDocs(router, basePath)
	registerHealth(group, cfg.Engine)
	registerJobs(group, cfg.Engine)
	registerReminders(group, cfg.Engine)
	registerReports(group, cfg.Engine)
	registerTemplates(group, cfg.Engine)
	registerSync(group, cfg.Engine)
	registerOpenAPI(router, api, basePath)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var ve *engine.ValidationError
	if errors.As(err, &ve) {
		details := map[string]any{}
		for k, v := range ve.Fields {
			details[k] = v
		}
		return newAPIError(http.StatusUnprocessableEntity, "validation_failed", err.Error(), details)
	}
	switch {
	case errors.Is(err, engine.ErrNotFound):
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, engine.ErrNoPendingJobs):
		return newAPIError(http.StatusNotFound, "no_pending_jobs", err.Error(), nil)
	case errors.Is(err, mirror.ErrRemoteDisabled):
		return newAPIError(http.StatusConflict, "remote_disabled", err.Error(), nil)
	case errors.Is(err, context.DeadlineExceeded):
		return newAPIError(http.StatusGatewayTimeout, "timeout", err.Error(), nil)
	default:
		return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": err.Error()})
	}
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			oas := api.OpenAPI()
			ensureDefaultErrorResponses(oas)
			applyAuthSecurity(oas, basePath)
			spec, _ = json.Marshal(oas)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func ensureDefaultErrorResponses(oas *huma.OpenAPI) {
	if oas == nil || oas.Paths == nil {
		return
	}
	for _, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Patch,
		} {
			if op == nil {
				continue
			}
			if op.Responses == nil {
				op.Responses = map[string]*huma.Response{}
			}
			op.Responses["default"] = &huma.Response{
				Description: "Error",
				Content: map[string]*huma.MediaType{
					"application/json": {
						Schema: &huma.Schema{Ref: "#/components/schemas/ApiError"},
					},
				},
			}
		}
	}
}

func applyAuthSecurity(oas *huma.OpenAPI, basePath string) {
	if oas == nil {
		return
	}
	if oas.Components == nil {
		oas.Components = &huma.Components{}
	}
	if oas.Components.SecuritySchemes == nil {
		oas.Components.SecuritySchemes = map[string]*huma.SecurityScheme{}
	}
	oas.Components.SecuritySchemes["bearerAuth"] = &huma.SecurityScheme{
		Type:         "http",
		Scheme:       "bearer",
		BearerFormat: "JWT",
	}
	oas.Components.SecuritySchemes["userHeader"] = &huma.SecurityScheme{
		Type: "apiKey",
		In:   "header",
		Name: "X-User-Id",
	}
	security := []map[string][]string{
		{"bearerAuth": {}},
		{"userHeader": {}},
	}
	oas.Security = security
	healthPath := path.Join("/", basePath, "health")
	for route, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Patch,
		} {
			if op == nil {
				continue
			}
			if route == healthPath {
				op.Security = []map[string][]string{}
				continue
			}
			op.Security = security
		}
	}
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Aura Knot Studio API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
    <p style="padding: 1rem; font-family: sans-serif; color: #444;">
      Authenticate with Authorization: Bearer &lt;token&gt; or X-User-Id.
    </p>
  </body>
</html>`, specURL)
}

type healthBody struct {
	Status string `json:"status" example:"ok"`
	Remote bool   `json:"remote"`
}

func registerHealth(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body healthBody `json:"body"`
	}, error) {
		return &struct {
			Body healthBody `json:"body"`
		}{Body: healthBody{Status: "ok", Remote: e.RemoteEnabled()}}, nil
	})
}

var jobErrors = []int{
	http.StatusBadRequest,
	http.StatusUnauthorized,
	http.StatusNotFound,
	http.StatusUnprocessableEntity,
	http.StatusInternalServerError,
}

type jobPath struct {
	ID string `path:"id"`
}

type jobBody struct {
	Body JobResponse `json:"body"`
}

func registerJobs(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-job",
		Method:        http.MethodPost,
		Path:          "/jobs",
		Summary:       "Create job",
		Description:   "Writes locally, then mirrors to the remote store. A remote outage leaves the job queued for sync.",
		DefaultStatus: http.StatusCreated,
		Errors:        jobErrors,
	}, func(ctx context.Context, input *struct {
		Body JobRequest `json:"body"`
	}) (*jobBody, error) {
		owner, authErr := ownerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		j, err := e.CreateJob(ctx, input.Body.input(owner))
		if err != nil {
			return nil, handleError(err)
		}
		return &jobBody{Body: jobResponse(j)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-jobs",
		Method:      http.MethodGet,
		Path:        "/jobs",
		Summary:     "List jobs",
		Description: "Merged local and remote view, newest first.",
		Errors:      jobErrors,
	}, func(ctx context.Context, input *struct {
		Category string `query:"category" doc:"EDITING, EXPOSING or OTHER"`
	}) (*struct {
		Body struct {
			Items []JobResponse `json:"items"`
		} `json:"body"`
	}, error) {
		owner, authErr := ownerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		jobs, err := e.ListJobs(ctx, owner, domain.Category(strings.ToUpper(input.Category)))
		if err != nil {
			return nil, handleError(err)
		}
		out := &struct {
			Body struct {
				Items []JobResponse `json:"items"`
			} `json:"body"`
		}{}
		out.Body.Items = mapJobs(jobs)
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-job",
		Method:      http.MethodGet,
		Path:        "/jobs/{id}",
		Summary:     "Get job",
		Errors:      jobErrors,
	}, func(ctx context.Context, input *jobPath) (*jobBody, error) {
		owner, authErr := ownerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		j, err := e.GetJob(ctx, owner, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &jobBody{Body: jobResponse(j)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-job",
		Method:      http.MethodPatch,
		Path:        "/jobs/{id}",
		Summary:     "Update job",
		Description: "Replaces the editable fields. Category and owner are kept.",
		Errors:      jobErrors,
	}, func(ctx context.Context, input *struct {
		ID   string     `path:"id"`
		Body JobRequest `json:"body"`
	}) (*jobBody, error) {
		owner, authErr := ownerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		j, err := e.UpdateJob(ctx, owner, input.ID, input.Body.input(owner))
		if err != nil {
			return nil, handleError(err)
		}
		return &jobBody{Body: jobResponse(j)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-job-priority",
		Method:      http.MethodPut,
		Path:        "/jobs/{id}/priority",
		Summary:     "Set editing priority",
		Errors:      jobErrors,
	}, func(ctx context.Context, input *struct {
		ID   string          `path:"id"`
		Body PriorityRequest `json:"body"`
	}) (*jobBody, error) {
		owner, authErr := ownerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		j, err := e.SetPriority(ctx, owner, input.ID, domain.Priority(input.Body.Priority))
		if err != nil {
			return nil, handleError(err)
		}
		return &jobBody{Body: jobResponse(j)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-job",
		Method:        http.MethodDelete,
		Path:          "/jobs/{id}",
		Summary:       "Delete job",
		DefaultStatus: http.StatusNoContent,
		Errors:        jobErrors,
	}, func(ctx context.Context, input *jobPath) (*struct{}, error) {
		owner, authErr := ownerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteJob(ctx, owner, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

type messageBody struct {
	Body MessageResponse `json:"body"`
}

func registerReminders(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "job-reminder",
		Method:      http.MethodGet,
		Path:        "/jobs/{id}/reminder",
		Summary:     "Payment reminder for one job",
		Errors:      jobErrors,
	}, func(ctx context.Context, input *jobPath) (*messageBody, error) {
		owner, authErr := ownerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		msg, err := e.SingleReminder(ctx, owner, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &messageBody{Body: messageResponse(msg)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "job-status-message",
		Method:      http.MethodGet,
		Path:        "/jobs/{id}/status-message",
		Summary:     "Job or payment status message",
		Errors:      jobErrors,
	}, func(ctx context.Context, input *struct {
		ID     string `path:"id"`
		Kind   string `query:"kind" default:"job_status" enum:"job_status,payment_status"`
		Status string `query:"status" doc:"Defaults to the job's current status"`
	}) (*messageBody, error) {
		owner, authErr := ownerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		msg, err := e.StatusMessage(ctx, owner, input.ID, domain.TemplateKind(input.Kind), input.Status)
		if err != nil {
			return nil, handleError(err)
		}
		return &messageBody{Body: messageResponse(msg)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "customer-reminder",
		Method:      http.MethodGet,
		Path:        "/customers/{phone}/reminder",
		Summary:     "Consolidated reminder for every unpaid job of a customer",
		Errors:      jobErrors,
	}, func(ctx context.Context, input *struct {
		Phone string `path:"phone"`
	}) (*struct {
		Body ConsolidatedResponse `json:"body"`
	}, error) {
		owner, authErr := ownerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		res, err := e.ConsolidatedReminder(ctx, owner, input.Phone)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ConsolidatedResponse `json:"body"`
		}{Body: ConsolidatedResponse{
			Message:      messageResponse(res.Message),
			CustomerName: res.CustomerName,
			TotalBalance: money(res.TotalBalance),
			Jobs:         mapJobs(res.Jobs),
		}}, nil
	})
}

type periodQuery struct {
	Period string `query:"period" default:"this_month" doc:"this_month, last_month, this_quarter, last_quarter, six_months, this_year, last_year, all_time or custom"`
	Start  string `query:"start" doc:"YYYY-MM-DD, custom period only"`
	End    string `query:"end" doc:"YYYY-MM-DD, custom period only"`
}

func (q periodQuery) input() engine.PeriodInput {
	return engine.PeriodInput{Period: report.Period(q.Period), Start: q.Start, End: q.End}
}

func registerReports(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "dashboard-summary",
		Method:      http.MethodGet,
		Path:        "/dashboard/summary",
		Summary:     "Income, paid and pending totals for a period",
		Errors:      jobErrors,
	}, func(ctx context.Context, input *periodQuery) (*struct {
		Body DashboardResponse `json:"body"`
	}, error) {
		owner, authErr := ownerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		d, err := e.Dashboard(ctx, owner, input.input())
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body DashboardResponse `json:"body"`
		}{Body: dashboardResponse(d)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "report",
		Method:      http.MethodGet,
		Path:        "/reports",
		Summary:     "Period report with monthly breakdown",
		Errors:      jobErrors,
	}, func(ctx context.Context, input *struct {
		periodQuery
		Category string `query:"category"`
	}) (*struct {
		Body ReportResponse `json:"body"`
	}, error) {
		owner, authErr := ownerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		r, err := e.Report(ctx, owner, input.periodQuery.input(), domain.Category(strings.ToUpper(input.Category)))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ReportResponse `json:"body"`
		}{Body: reportResponse(r)}, nil
	})
}

type templateBody struct {
	Body TemplateResponse `json:"body"`
}

func registerTemplates(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "resolve-template",
		Method:      http.MethodGet,
		Path:        "/templates",
		Summary:     "Template in effect for a kind and category",
		Errors:      jobErrors,
	}, func(ctx context.Context, input *struct {
		Kind     string `query:"kind" required:"true"`
		Category string `query:"category"`
	}) (*templateBody, error) {
		r, err := e.ResolveTemplate(ctx, domain.TemplateKind(input.Kind), domain.Category(input.Category))
		if err != nil {
			return nil, handleError(err)
		}
		return &templateBody{Body: resolvedResponse(r)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "template-scopes",
		Method:      http.MethodGet,
		Path:        "/templates/{kind}/scopes",
		Summary:     "Resolved template for the global scope and every category",
		Errors:      jobErrors,
	}, func(ctx context.Context, input *struct {
		Kind string `path:"kind"`
	}) (*struct {
		Body struct {
			Items []TemplateResponse `json:"items"`
		} `json:"body"`
	}, error) {
		scopes, err := e.TemplateScopes(ctx, domain.TemplateKind(input.Kind))
		if err != nil {
			return nil, handleError(err)
		}
		out := &struct {
			Body struct {
				Items []TemplateResponse `json:"items"`
			} `json:"body"`
		}{}
		out.Body.Items = make([]TemplateResponse, 0, len(scopes))
		for _, r := range scopes {
			out.Body.Items = append(out.Body.Items, resolvedResponse(r))
		}
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-template-overrides",
		Method:      http.MethodGet,
		Path:        "/templates/overrides",
		Summary:     "Stored template overrides",
		Errors:      jobErrors,
	}, func(ctx context.Context, input *struct {
		Kind string `query:"kind"`
	}) (*struct {
		Body struct {
			Items []TemplateResponse `json:"items"`
		} `json:"body"`
	}, error) {
		list, err := e.ListTemplates(ctx, domain.TemplateKind(input.Kind))
		if err != nil {
			return nil, handleError(err)
		}
		out := &struct {
			Body struct {
				Items []TemplateResponse `json:"items"`
			} `json:"body"`
		}{}
		out.Body.Items = make([]TemplateResponse, 0, len(list))
		for _, t := range list {
			out.Body.Items = append(out.Body.Items, templateResponse(t))
		}
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-template",
		Method:      http.MethodPut,
		Path:        "/templates",
		Summary:     "Save a template override",
		Errors:      jobErrors,
	}, func(ctx context.Context, input *struct {
		Body TemplateRequest `json:"body"`
	}) (*templateBody, error) {
		t, err := e.SetTemplate(ctx, input.Body.template())
		if err != nil {
			return nil, handleError(err)
		}
		return &templateBody{Body: templateResponse(t)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "reset-template",
		Method:        http.MethodDelete,
		Path:          "/templates",
		Summary:       "Remove a template override",
		DefaultStatus: http.StatusNoContent,
		Errors:        jobErrors,
	}, func(ctx context.Context, input *struct {
		Kind     string `query:"kind" required:"true"`
		Category string `query:"category"`
	}) (*struct{}, error) {
		if err := e.ResetTemplate(ctx, domain.TemplateKind(input.Kind), domain.Category(input.Category)); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerSync(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "migrate",
		Method:      http.MethodPost,
		Path:        "/migrate",
		Summary:     "Bulk copy legacy records into the remote store",
		Errors:      append(jobErrors, http.StatusConflict),
	}, func(ctx context.Context, input *struct {
		Body MigrateRequest `json:"body"`
	}) (*struct {
		Body mirror.MigrateResult `json:"body"`
	}, error) {
		owner, authErr := ownerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		res, err := e.Migrate(ctx, owner, input.Body.input())
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body mirror.MigrateResult `json:"body"`
		}{Body: res}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "sync-status",
		Method:      http.MethodGet,
		Path:        "/sync/status",
		Summary:     "Outbox counts",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body SyncStatusResponse `json:"body"`
	}, error) {
		st, err := e.SyncStatus(ctx, false)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body SyncStatusResponse `json:"body"`
		}{Body: syncStatusResponse(st)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "sync-flush",
		Method:      http.MethodPost,
		Path:        "/sync/flush",
		Summary:     "Push every due outbox entry now",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body mirror.Result `json:"body"`
	}, error) {
		res, err := e.FlushSync(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body mirror.Result `json:"body"`
		}{Body: res}, nil
	})
}
