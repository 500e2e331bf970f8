package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/crewbase/crewbase/internal/domain"
	"github.com/crewbase/crewbase/internal/pkg/tenancy"
)

func gateRequest(t *testing.T, part *tenancy.Partition) *httptest.ResponseRecorder {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var reached bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	})
	handler := AccessGate(nil, logger)(next)

	req := httptest.NewRequest(http.MethodGet, "/auth/login", nil)
	if part != nil {
		req = req.WithContext(tenancy.Bind(req.Context(), *part))
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code == http.StatusOK && !reached {
		t.Fatal("200 without reaching the inner handler")
	}
	if rec.Code != http.StatusOK && reached {
		t.Fatal("inner handler reached despite denial")
	}
	return rec
}

func activeTenant(slug string) *domain.Tenant {
	return &domain.Tenant{ID: uuid.New(), Slug: slug, Name: slug, Active: true, Status: domain.TenantStatusActive}
}

func TestAccessGate(t *testing.T) {
	t.Run("Active Paid Tenant Passes", func(t *testing.T) {
		tenant := activeTenant("acme01")
		until := time.Now().UTC().AddDate(0, 1, 0)
		tenant.PaidUntil = &until

		part := tenancy.TenantPartition(tenant)
		if rec := gateRequest(t, &part); rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("Nil Paid Until Never Expires", func(t *testing.T) {
		part := tenancy.TenantPartition(activeTenant("acme01"))
		if rec := gateRequest(t, &part); rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("Suspended Tenant Denied With Its Own Message", func(t *testing.T) {
		tenant := activeTenant("acme01")
		tenant.Active = false

		part := tenancy.TenantPartition(tenant)
		rec := gateRequest(t, &part)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
		if body := strings.TrimSpace(rec.Body.String()); body != MsgSuspended {
			t.Errorf("expected %q, got %q", MsgSuspended, body)
		}
	})

	t.Run("Deleting Tenant Treated As Suspended", func(t *testing.T) {
		tenant := activeTenant("acme01")
		tenant.Status = domain.TenantStatusDeleting

		part := tenancy.TenantPartition(tenant)
		rec := gateRequest(t, &part)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
		if body := strings.TrimSpace(rec.Body.String()); body != MsgSuspended {
			t.Errorf("expected %q, got %q", MsgSuspended, body)
		}
	})

	t.Run("Expired Subscription Denied With Its Own Message", func(t *testing.T) {
		tenant := activeTenant("acme01")
		until := time.Now().UTC().AddDate(0, 0, -1)
		tenant.PaidUntil = &until

		part := tenancy.TenantPartition(tenant)
		rec := gateRequest(t, &part)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
		if body := strings.TrimSpace(rec.Body.String()); body != MsgExpired {
			t.Errorf("expected %q, got %q", MsgExpired, body)
		}
	})

	t.Run("Paid Through Today Still Passes", func(t *testing.T) {
		tenant := activeTenant("acme01")
		now := time.Now().UTC()
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		tenant.PaidUntil = &today

		part := tenancy.TenantPartition(tenant)
		if rec := gateRequest(t, &part); rec.Code != http.StatusOK {
			t.Fatalf("last paid day must still pass, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("Suspension Wins Over Expiry", func(t *testing.T) {
		tenant := activeTenant("acme01")
		tenant.Active = false
		until := time.Now().UTC().AddDate(0, 0, -1)
		tenant.PaidUntil = &until

		part := tenancy.TenantPartition(tenant)
		rec := gateRequest(t, &part)
		if body := strings.TrimSpace(rec.Body.String()); body != MsgSuspended {
			t.Errorf("suspension must be reported before expiry, got %q", body)
		}
	})

	t.Run("Platform Partition Bypasses All Checks", func(t *testing.T) {
		part := tenancy.PlatformPartition()
		if rec := gateRequest(t, &part); rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("Missing Partition Is A Server Error", func(t *testing.T) {
		if rec := gateRequest(t, nil); rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rec.Code)
		}
	})
}
