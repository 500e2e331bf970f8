package mocks

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/crewbase/crewbase/internal/domain"
)

// MockTenantRepository is an in-memory implementation of
// domain.TenantRepository for testing.
type MockTenantRepository struct {
	mu           sync.Mutex
	Tenants      map[string]*domain.Tenant // keyed by slug
	Hosts        map[string]string         // hostname -> slug
	Accounts     *MockAccountRepository    // optional sink for bootstrap admins
	Provisioned  []string
	Dropped      []string
	MarkedDel    []string
	ProvisionErr error
	LookupErr    error
}

// NewMockTenantRepository creates an empty mock registry.
func NewMockTenantRepository() *MockTenantRepository {
	return &MockTenantRepository{
		Tenants: make(map[string]*domain.Tenant),
		Hosts:   make(map[string]string),
	}
}

// AddTenant registers a tenant and its primary hostname.
func (m *MockTenantRepository) AddTenant(t *domain.Tenant, hostname string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Tenants[t.Slug] = t
	m.Hosts[strings.ToLower(hostname)] = t.Slug
}

func (m *MockTenantRepository) FindByHostname(ctx context.Context, hostname string) (*domain.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LookupErr != nil {
		return nil, m.LookupErr
	}
	slug, ok := m.Hosts[strings.ToLower(hostname)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	t := *m.Tenants[slug]
	return &t, nil
}

func (m *MockTenantRepository) FindBySlug(ctx context.Context, slug string) (*domain.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LookupErr != nil {
		return nil, m.LookupErr
	}
	t, ok := m.Tenants[slug]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copy := *t
	return &copy, nil
}

func (m *MockTenantRepository) Provision(ctx context.Context, t *domain.Tenant, d *domain.Domain, admin *domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ProvisionErr != nil {
		return m.ProvisionErr
	}
	if _, exists := m.Tenants[t.Slug]; exists {
		return domain.ErrDuplicateTenant
	}
	if _, exists := m.Hosts[strings.ToLower(d.Hostname)]; exists {
		return domain.ErrDuplicateHostname
	}
	m.Tenants[t.Slug] = t
	m.Hosts[strings.ToLower(d.Hostname)] = t.Slug
	m.Provisioned = append(m.Provisioned, t.Slug)
	// The Postgres implementation creates the bootstrap admin in the same
	// transaction; mirror that when an account store is attached.
	if m.Accounts != nil {
		m.Accounts.Add(t.Slug, admin)
	}
	return nil
}

func (m *MockTenantRepository) SetActive(ctx context.Context, slug string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.Tenants[slug]
	if !ok {
		return domain.ErrNotFound
	}
	t.Active = active
	return nil
}

func (m *MockTenantRepository) Renew(ctx context.Context, slug string, paidUntil time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.Tenants[slug]
	if !ok {
		return domain.ErrNotFound
	}
	t.PaidUntil = &paidUntil
	return nil
}

func (m *MockTenantRepository) MarkDeleting(ctx context.Context, slug string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.Tenants[slug]
	if !ok {
		return domain.ErrNotFound
	}
	t.Status = domain.TenantStatusDeleting
	m.MarkedDel = append(m.MarkedDel, slug)
	return nil
}

func (m *MockTenantRepository) Drop(ctx context.Context, slug string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Tenants[slug]; !ok {
		return domain.ErrNotFound
	}
	delete(m.Tenants, slug)
	for host, s := range m.Hosts {
		if s == slug {
			delete(m.Hosts, host)
		}
	}
	m.Dropped = append(m.Dropped, slug)
	return nil
}

func (m *MockTenantRepository) List(ctx context.Context) ([]domain.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Tenant
	for _, t := range m.Tenants {
		out = append(out, *t)
	}
	return out, nil
}

// MockOperatorRepository is an in-memory implementation of
// domain.OperatorRepository for testing.
type MockOperatorRepository struct {
	mu        sync.Mutex
	Operators []*domain.Operator
	Err       error
}

func (m *MockOperatorRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Operator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for _, op := range m.Operators {
		if op.ID == id {
			copy := *op
			return &copy, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockOperatorRepository) FindByUsername(ctx context.Context, username string) (*domain.Operator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for _, op := range m.Operators {
		if op.Name == username {
			copy := *op
			return &copy, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockOperatorRepository) List(ctx context.Context) ([]domain.Operator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Operator
	for _, op := range m.Operators {
		out = append(out, *op)
	}
	return out, nil
}

// MockAccountRepository is an in-memory implementation of
// domain.AccountRepository. Accounts are keyed by schema then username, so
// tests exercise per-partition uniqueness the same way the Postgres
// implementation does.
type MockAccountRepository struct {
	mu          sync.Mutex
	Accounts    map[string]map[string]*domain.Account
	MirrorCalls int
	Err         error
}

// NewMockAccountRepository creates an empty mock store.
func NewMockAccountRepository() *MockAccountRepository {
	return &MockAccountRepository{Accounts: make(map[string]map[string]*domain.Account)}
}

// Add seeds an account into a partition.
func (m *MockAccountRepository) Add(schema string, a *domain.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Accounts[schema] == nil {
		m.Accounts[schema] = make(map[string]*domain.Account)
	}
	a.TenantSlug = schema
	m.Accounts[schema][a.Name] = a
}

func (m *MockAccountRepository) FindByID(ctx context.Context, schema string, id uuid.UUID) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for _, a := range m.Accounts[schema] {
		if a.ID == id {
			copy := *a
			return &copy, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockAccountRepository) FindByUsername(ctx context.Context, schema, username string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	a, ok := m.Accounts[schema][username]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copy := *a
	return &copy, nil
}

func (m *MockAccountRepository) Create(ctx context.Context, schema string, a *domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if m.Accounts[schema] == nil {
		m.Accounts[schema] = make(map[string]*domain.Account)
	}
	a.TenantSlug = schema
	m.Accounts[schema][a.Name] = a
	return nil
}

func (m *MockAccountRepository) SetPassword(ctx context.Context, schema string, id uuid.UUID, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.Accounts[schema] {
		if a.ID == id {
			a.PasswordHash = passwordHash
			a.UpdatedAt = time.Now()
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *MockAccountRepository) List(ctx context.Context, schema string) ([]domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Account
	for _, a := range m.Accounts[schema] {
		out = append(out, *a)
	}
	return out, nil
}

func (m *MockAccountRepository) UpsertMirror(ctx context.Context, schema string, op *domain.Operator) (*domain.Account, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, false, m.Err
	}
	m.MirrorCalls++
	if m.Accounts[schema] == nil {
		m.Accounts[schema] = make(map[string]*domain.Account)
	}
	if existing, ok := m.Accounts[schema][op.Name]; ok {
		existing.PasswordHash = op.PasswordHash
		existing.Display = op.Display
		existing.UpdatedAt = time.Now()
		copy := *existing
		return &copy, false, nil
	}
	now := time.Now()
	a := &domain.Account{
		ID:           uuid.New(),
		TenantSlug:   schema,
		Name:         op.Name,
		PasswordHash: op.PasswordHash,
		Display:      op.Display,
		Role:         domain.RoleAdmin,
		Active:       true,
		Mirrored:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.Accounts[schema][op.Name] = a
	copy := *a
	return &copy, true, nil
}

// MockAuditPublisher records published events.
type MockAuditPublisher struct {
	mu     sync.Mutex
	Events []domain.AuditEvent
	Err    error
}

func (m *MockAuditPublisher) Publish(ctx context.Context, event domain.AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Events = append(m.Events, event)
	return nil
}

// Kinds returns the ordered kinds of all published events.
func (m *MockAuditPublisher) Kinds() []domain.AuditEventKind {
	m.mu.Lock()
	defer m.mu.Unlock()
	kinds := make([]domain.AuditEventKind, 0, len(m.Events))
	for _, e := range m.Events {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}
