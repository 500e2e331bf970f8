package domain

import (
	"context"
	"time"
)

// AuditEventKind enumerates the identity events worth an external record.
type AuditEventKind string

const (
	AuditLogin             AuditEventKind = "login"
	AuditQuickLogin        AuditEventKind = "quick_login"
	AuditMirrorProvisioned AuditEventKind = "mirror_provisioned"
	AuditMirrorLogin       AuditEventKind = "mirror_login"
	AuditTenantProvisioned AuditEventKind = "tenant_provisioned"
	AuditTenantSuspended   AuditEventKind = "tenant_suspended"
	AuditTenantReactivated AuditEventKind = "tenant_reactivated"
	AuditTenantRenewed     AuditEventKind = "tenant_renewed"
	AuditTenantDropped     AuditEventKind = "tenant_dropped"
)

// AuditEvent is the JSON payload published for each identity event. Mirror
// events make platform-operator entry into a tenant partition observable.
type AuditEvent struct {
	Kind       AuditEventKind `json:"kind"`
	TenantSlug string         `json:"tenant_slug,omitempty"`
	SubjectID  string         `json:"subject_id,omitempty"`
	Username   string         `json:"username,omitempty"`
	At         time.Time      `json:"at"`
	Detail     string         `json:"detail,omitempty"`
}

// AuditPublisher sinks audit events. Publish failures must never fail the
// request that produced the event.
type AuditPublisher interface {
	Publish(ctx context.Context, event AuditEvent) error
}
