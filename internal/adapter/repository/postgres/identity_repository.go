package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/crewbase/crewbase/internal/domain"
)

// OperatorRepository implements domain.OperatorRepository over the operators
// table in the shared schema.
type OperatorRepository struct {
	db *sql.DB
}

// NewOperatorRepository creates a new OperatorRepository.
func NewOperatorRepository(db *sql.DB) *OperatorRepository {
	return &OperatorRepository{db: db}
}

const operatorColumns = `id, username, password_hash, display_name, superuser, active, created_at, updated_at`

func scanOperator(row *sql.Row) (*domain.Operator, error) {
	var o domain.Operator
	err := row.Scan(
		&o.ID,
		&o.Name,
		&o.PasswordHash,
		&o.Display,
		&o.Superuser,
		&o.Active,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

// FindByID looks an operator up by id.
func (r *OperatorRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Operator, error) {
	query := fmt.Sprintf(`SELECT %s FROM operators WHERE id = $1`, operatorColumns)
	op, err := scanOperator(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find operator by ID: %w", err)
	}
	return op, nil
}

// FindByUsername looks an operator up by its globally unique username.
func (r *OperatorRepository) FindByUsername(ctx context.Context, username string) (*domain.Operator, error) {
	query := fmt.Sprintf(`SELECT %s FROM operators WHERE username = $1`, operatorColumns)
	op, err := scanOperator(r.db.QueryRowContext(ctx, query, username))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find operator by username: %w", err)
	}
	return op, nil
}

// List returns all operators.
func (r *OperatorRepository) List(ctx context.Context) ([]domain.Operator, error) {
	query := fmt.Sprintf(`SELECT %s FROM operators ORDER BY username`, operatorColumns)
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list operators: %w", err)
	}
	defer rows.Close()

	var ops []domain.Operator
	for rows.Next() {
		var o domain.Operator
		if err := rows.Scan(&o.ID, &o.Name, &o.PasswordHash, &o.Display, &o.Superuser, &o.Active, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan operator: %w", err)
		}
		ops = append(ops, o)
	}
	return ops, rows.Err()
}

// AccountRepository implements domain.AccountRepository over the per-schema
// accounts tables. Every query is qualified with the tenant schema; nothing
// in this repository can read across partitions.
type AccountRepository struct {
	db *sql.DB
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

const accountColumns = `id, username, password_hash, display_name, role, active, mirrored, created_at, updated_at`

func (r *AccountRepository) scanAccount(row *sql.Row, schema string) (*domain.Account, error) {
	var a domain.Account
	err := row.Scan(
		&a.ID,
		&a.Name,
		&a.PasswordHash,
		&a.Display,
		&a.Role,
		&a.Active,
		&a.Mirrored,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	a.TenantSlug = schema
	return &a, nil
}

// FindByID looks an account up by id within one partition.
func (r *AccountRepository) FindByID(ctx context.Context, schema string, id uuid.UUID) (*domain.Account, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s.accounts WHERE id = $1`, accountColumns, pq.QuoteIdentifier(schema))
	a, err := r.scanAccount(r.db.QueryRowContext(ctx, query, id), schema)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find account by ID: %w", err)
	}
	return a, nil
}

// FindByUsername looks an account up by username within one partition only.
// The same username may denote different people in different tenants.
func (r *AccountRepository) FindByUsername(ctx context.Context, schema, username string) (*domain.Account, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s.accounts WHERE username = $1`, accountColumns, pq.QuoteIdentifier(schema))
	a, err := r.scanAccount(r.db.QueryRowContext(ctx, query, username), schema)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find account by username: %w", err)
	}
	return a, nil
}

// Create inserts an account into a partition.
func (r *AccountRepository) Create(ctx context.Context, schema string, a *domain.Account) error {
	query := fmt.Sprintf(`
		INSERT INTO %s.accounts (id, username, password_hash, display_name, role, active, mirrored, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, pq.QuoteIdentifier(schema))
	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.Name, a.PasswordHash, a.Display, a.Role, a.Active, a.Mirrored, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("store account: %w", err)
	}
	return nil
}

// SetPassword replaces an account's password hash. Outstanding quick-login
// tokens for the account die with the old fingerprint.
func (r *AccountRepository) SetPassword(ctx context.Context, schema string, id uuid.UUID, passwordHash string) error {
	query := fmt.Sprintf(`UPDATE %s.accounts SET password_hash = $2, updated_at = NOW() WHERE id = $1`, pq.QuoteIdentifier(schema))
	res, err := r.db.ExecContext(ctx, query, id, passwordHash)
	if err != nil {
		return fmt.Errorf("set password: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set password: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List returns all accounts in a partition.
func (r *AccountRepository) List(ctx context.Context, schema string) ([]domain.Account, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s.accounts ORDER BY username`, accountColumns, pq.QuoteIdentifier(schema))
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		var a domain.Account
		if err := rows.Scan(&a.ID, &a.Name, &a.PasswordHash, &a.Display, &a.Role, &a.Active, &a.Mirrored, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		a.TenantSlug = schema
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// UpsertMirror creates or refreshes the mirror account for a platform
// operator inside one partition. Display fields and password hash are synced
// from the operator on every call so the mirror never drifts.
func (r *AccountRepository) UpsertMirror(ctx context.Context, schema string, op *domain.Operator) (*domain.Account, bool, error) {
	now := time.Now().UTC()
	query := fmt.Sprintf(`
		INSERT INTO %s.accounts (id, username, password_hash, display_name, role, active, mirrored, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, TRUE, TRUE, $6, $6)
		ON CONFLICT (username) DO UPDATE
		SET password_hash = EXCLUDED.password_hash,
		    display_name = EXCLUDED.display_name,
		    updated_at = EXCLUDED.updated_at
		RETURNING %s, (xmax = 0) AS inserted
	`, pq.QuoteIdentifier(schema), accountColumns)

	var a domain.Account
	var inserted bool
	err := r.db.QueryRowContext(ctx, query,
		uuid.New(), op.Name, op.PasswordHash, op.Display, domain.RoleAdmin, now,
	).Scan(
		&a.ID, &a.Name, &a.PasswordHash, &a.Display, &a.Role, &a.Active, &a.Mirrored, &a.CreatedAt, &a.UpdatedAt,
		&inserted,
	)
	if err != nil {
		return nil, false, fmt.Errorf("upsert mirror: %w", err)
	}
	a.TenantSlug = schema
	return &a, inserted, nil
}
