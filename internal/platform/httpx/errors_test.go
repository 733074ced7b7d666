package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tallyform/tallyform/internal/shared"
)

func TestRespondError_Mapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{shared.ErrValidation, http.StatusBadRequest},
		{shared.ErrNotFound, http.StatusNotFound},
		{shared.ErrImmutableRecord, http.StatusConflict},
		{shared.ErrLockTimeout, http.StatusServiceUnavailable},
		{shared.ErrTransientIO, http.StatusServiceUnavailable},
		{shared.ErrLedgerUnavailable, http.StatusBadGateway},
		{shared.ErrProvisioning, http.StatusBadGateway},
		{shared.ErrDirectoryUnavailable, http.StatusBadGateway},
		{fmt.Errorf("wrapped: %w", shared.ErrImmutableRecord), http.StatusConflict},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		RespondError(rec, tc.err)
		if rec.Code != tc.status {
			t.Fatalf("RespondError(%v) status %d, want %d", tc.err, rec.Code, tc.status)
		}
	}
}

func TestRespondError_ImmutableDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, shared.ErrImmutableRecord)
	if !strings.Contains(rec.Body.String(), "contact an administrator") {
		t.Fatalf("expected user-facing detail, got %s", rec.Body.String())
	}
}

func TestProblem_DocumentShape(t *testing.T) {
	rec := httptest.NewRecorder()
	Problem(rec, http.StatusBadRequest, "Validation Failed", "identity required")

	if ct := rec.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Fatalf("content type %q, want application/problem+json", ct)
	}
	var doc ProblemDetail
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode problem document: %v", err)
	}
	if doc.Type != problemTypeBase+"validation-failed" {
		t.Fatalf("type URI %q, want slug of the title", doc.Type)
	}
	if doc.Status != http.StatusBadRequest || doc.Detail != "identity required" {
		t.Fatalf("unexpected document %+v", doc)
	}
}

func TestRespondError_RetryAfterHint(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, shared.ErrLockTimeout)
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header for lock timeout")
	}
}
