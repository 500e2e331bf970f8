package middleware

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/crewbase/crewbase/internal/domain"
	"github.com/crewbase/crewbase/internal/domain/mocks"
	"github.com/crewbase/crewbase/internal/pkg/tenancy"
)

func TestResolveTenant(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	directory := mocks.NewMockTenantRepository()
	directory.AddTenant(activeTenant("acme01"), "acme.example.com")
	directory.AddTenant(activeTenant("beta01"), "beta.example.com")

	var bound tenancy.Partition
	var ok bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bound, ok = tenancy.From(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := ResolveTenant(directory, []string{"admin.example.com", "localhost"}, logger)(next)

	resolve := func(host string) *httptest.ResponseRecorder {
		bound, ok = tenancy.Partition{}, false
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Host = host
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	t.Run("Tenant Host Binds Its Partition", func(t *testing.T) {
		rec := resolve("acme.example.com")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if !ok || bound.Schema != "acme01" {
			t.Errorf("expected acme01 partition, got %+v", bound)
		}
	})

	t.Run("Port And Case Are Ignored", func(t *testing.T) {
		rec := resolve("ACME.Example.Com:8443")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if !ok || bound.Schema != "acme01" {
			t.Errorf("expected acme01 partition, got %+v", bound)
		}
	})

	t.Run("Platform Host Binds The Shared Partition", func(t *testing.T) {
		rec := resolve("admin.example.com")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if !ok || !bound.Platform() || bound.Schema != domain.PlatformSchema {
			t.Errorf("expected platform partition, got %+v", bound)
		}
	})

	t.Run("Unknown Host Gets A Generic 404", func(t *testing.T) {
		rec := resolve("ghost.example.com")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		if ok {
			t.Error("no partition may be bound for an unknown host")
		}
	})

	t.Run("Directory Failure Is A Server Error", func(t *testing.T) {
		directory.LookupErr = errors.New("connection refused")
		defer func() { directory.LookupErr = nil }()

		rec := resolve("acme.example.com")
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rec.Code)
		}
	})

	t.Run("Binding Does Not Leak Between Requests", func(t *testing.T) {
		if rec := resolve("acme.example.com"); rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		first := bound.Schema

		if rec := resolve("beta.example.com"); rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if bound.Schema == first {
			t.Error("second request saw the first request's partition")
		}
		if bound.Schema != "beta01" {
			t.Errorf("expected beta01 partition, got %+v", bound)
		}
	})
}
