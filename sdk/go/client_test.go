package akmssdk

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateJobSendsOwnerHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/jobs", r.URL.Path)
		assert.Equal(t, "owner-1", r.Header.Get("X-User-Id"))
		var j Job
		require.NoError(t, json.NewDecoder(r.Body).Decode(&j))
		j.ID = "job-1"
		j.Balance = j.TotalPrice - j.AmountPaid
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(j)
	}))
	defer srv.Close()

	c := New(srv.URL, "owner-1")
	j, err := c.CreateJob(context.Background(), Job{Category: "EDITING", CustomerName: "Asha", StartDate: "2024-01-31", TotalPrice: 500, AmountPaid: 100})
	require.NoError(t, err)
	assert.Equal(t, "job-1", j.ID)
	assert.Equal(t, 400.0, j.Balance)
}

func TestBearerTokenWins(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Empty(t, r.Header.Get("X-User-Id"))
		assert.Equal(t, "single", r.URL.Query().Get("kind"))
		assert.Equal(t, "EDITING", r.URL.Query().Get("category"))
		_ = json.NewEncoder(w).Encode(Template{Kind: "single", Category: "EDITING", Scope: "builtin", Text: "Hi"})
	}))
	defer srv.Close()

	c := New(srv.URL, "owner-1")
	c.BearerToken = "tok"
	tpl, err := c.ResolveTemplate(context.Background(), "single", "EDITING")
	require.NoError(t, err)
	assert.Equal(t, "builtin", tpl.Scope)
}

func TestErrorEnvelopeDecoded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":"no_pending_jobs","message":"no pending jobs for customer"}}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "owner-1").CustomerReminder(context.Background(), "98765 43210")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "no_pending_jobs", apiErr.Code)
}

func TestDeleteNoContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/v1/jobs/job-1", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()
	require.NoError(t, New(srv.URL, "owner-1").DeleteJob(context.Background(), "job-1"))
}
