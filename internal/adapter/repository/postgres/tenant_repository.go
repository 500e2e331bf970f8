package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/crewbase/crewbase/internal/domain"
)

// TenantRepository implements domain.TenantRepository on PostgreSQL. The
// directory lives in the shared schema; each tenant's partition is its own
// schema named after the slug.
type TenantRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewTenantRepository creates a new TenantRepository.
func NewTenantRepository(db *sql.DB, logger *slog.Logger) *TenantRepository {
	return &TenantRepository{db: db, logger: logger}
}

const tenantColumns = `id, slug, name, active, paid_until, status, created_at, updated_at`

func scanTenant(row *sql.Row) (*domain.Tenant, error) {
	var t domain.Tenant
	err := row.Scan(
		&t.ID,
		&t.Slug,
		&t.Name,
		&t.Active,
		&t.PaidUntil,
		&t.Status,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// FindByHostname resolves an inbound host through the domains table.
func (r *TenantRepository) FindByHostname(ctx context.Context, hostname string) (*domain.Tenant, error) {
	query := `
		SELECT t.id, t.slug, t.name, t.active, t.paid_until, t.status, t.created_at, t.updated_at
		FROM tenants t
		JOIN domains d ON d.tenant_id = t.id
		WHERE d.hostname = $1
	`
	t, err := scanTenant(r.db.QueryRowContext(ctx, query, strings.ToLower(hostname)))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find by hostname: %w", err)
	}
	return t, nil
}

// FindBySlug looks a tenant up by partition key.
func (r *TenantRepository) FindBySlug(ctx context.Context, slug string) (*domain.Tenant, error) {
	query := fmt.Sprintf(`SELECT %s FROM tenants WHERE slug = $1`, tenantColumns)
	t, err := scanTenant(r.db.QueryRowContext(ctx, query, slug))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find by slug: %w", err)
	}
	return t, nil
}

// Provision creates the directory row, primary domain row, tenant schema,
// accounts table, and bootstrap admin account in a single transaction.
// Postgres DDL is transactional, so a failure at any step leaves nothing
// behind.
func (r *TenantRepository) Provision(ctx context.Context, t *domain.Tenant, d *domain.Domain, admin *domain.Account) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin provision: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO tenants (id, slug, name, active, paid_until, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, t.ID, t.Slug, t.Name, t.Active, t.PaidUntil, t.Status, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return translateUnique(err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO domains (id, tenant_id, hostname, is_primary, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, d.ID, d.TenantID, strings.ToLower(d.Hostname), d.IsPrimary, d.CreatedAt)
	if err != nil {
		return translateUnique(err)
	}

	schema := pq.QuoteIdentifier(t.Slug)
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`CREATE SCHEMA %s`, schema)); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	_, err = tx.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE %s.accounts (
			id UUID PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			display_name TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL DEFAULT 'worker',
			active BOOLEAN NOT NULL DEFAULT TRUE,
			mirrored BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)
	`, schema))
	if err != nil {
		return fmt.Errorf("create accounts table: %w", err)
	}

	_, err = tx.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s.accounts (id, username, password_hash, display_name, role, active, mirrored, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, schema), admin.ID, admin.Name, admin.PasswordHash, admin.Display, admin.Role, admin.Active, admin.Mirrored, admin.CreatedAt, admin.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create bootstrap admin: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit provision: %w", err)
	}
	return nil
}

// SetActive toggles the activation flag. Last write wins.
func (r *TenantRepository) SetActive(ctx context.Context, slug string, active bool) error {
	return r.update(ctx, `UPDATE tenants SET active = $2, updated_at = NOW() WHERE slug = $1`, slug, active)
}

// Renew moves the subscription end date.
func (r *TenantRepository) Renew(ctx context.Context, slug string, paidUntil time.Time) error {
	return r.update(ctx, `UPDATE tenants SET paid_until = $2, updated_at = NOW() WHERE slug = $1`, slug, paidUntil)
}

// MarkDeleting flips the directory row to deleting so the gate refuses new
// requests before the schema is dropped.
func (r *TenantRepository) MarkDeleting(ctx context.Context, slug string) error {
	return r.update(ctx, `UPDATE tenants SET status = $2, updated_at = NOW() WHERE slug = $1`, slug, domain.TenantStatusDeleting)
}

// Drop removes the tenant schema and its directory rows.
func (r *TenantRepository) Drop(ctx context.Context, slug string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin drop: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DROP SCHEMA IF EXISTS %s CASCADE`, pq.QuoteIdentifier(slug))); err != nil {
		return fmt.Errorf("drop schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM domains WHERE tenant_id = (SELECT id FROM tenants WHERE slug = $1)`, slug); err != nil {
		return fmt.Errorf("delete domains: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM tenants WHERE slug = $1`, slug); err != nil {
		return fmt.Errorf("delete tenant: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit drop: %w", err)
	}
	return nil
}

// List returns all tenants ordered by creation time.
func (r *TenantRepository) List(ctx context.Context) ([]domain.Tenant, error) {
	query := fmt.Sprintf(`SELECT %s FROM tenants ORDER BY created_at`, tenantColumns)
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	var tenants []domain.Tenant
	for rows.Next() {
		var t domain.Tenant
		if err := rows.Scan(&t.ID, &t.Slug, &t.Name, &t.Active, &t.PaidUntil, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

func (r *TenantRepository) update(ctx context.Context, query, slug string, arg any) error {
	res, err := r.db.ExecContext(ctx, query, slug, arg)
	if err != nil {
		return fmt.Errorf("update tenant: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update tenant: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// translateUnique maps Postgres unique violations onto the provisioning
// error taxonomy so the registration caller gets field-level detail.
func translateUnique(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		switch {
		case strings.Contains(pqErr.Constraint, "hostname"):
			return domain.ErrDuplicateHostname
		case strings.Contains(pqErr.Constraint, "slug"):
			return domain.ErrDuplicateTenant
		}
	}
	return fmt.Errorf("provision insert: %w", err)
}
