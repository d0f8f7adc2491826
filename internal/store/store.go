// Package store owns the canonical in-memory state of every tenant and keeps
// it in step with the persistence backend.
//
// Each tenant partition is an immutable value behind an atomic pointer.
// Writers clone the partition, mutate the clone, persist it and then swap it
// in, so readers only ever see fully written partitions.
package store

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"hospitality-ops/internal/apperr"
	"hospitality-ops/internal/model"
	"hospitality-ops/internal/storage"
)

// Persister is the durable backend. Implementations must make the latest
// successful write visible to the next LoadState.
type Persister interface {
	LoadState(ctx context.Context) (*model.State, error)
	SaveState(ctx context.Context, state *model.State) error
	ReplaceTenant(ctx context.Context, tenantID string, data *model.TenantData) error
	ReplaceDirectory(ctx context.Context, dir model.Directory) error
}

type partition struct {
	mu   sync.Mutex
	data atomic.Pointer[model.TenantData]
}

type Store struct {
	persister Persister
	log       *zap.Logger
	now       func() time.Time
	baseURL   string

	mu         sync.RWMutex
	partitions map[string]*partition

	dirMu sync.Mutex
	dir   atomic.Pointer[model.Directory]
}

type Option func(*Store)

// WithClock overrides the time source used for seed data.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithPublicBaseURL sets the base of the calendar export URLs in seed data.
func WithPublicBaseURL(url string) Option {
	return func(s *Store) { s.baseURL = strings.TrimRight(url, "/") }
}

func New(persister Persister, log *zap.Logger, opts ...Option) *Store {
	s := &Store{
		persister:  persister,
		log:        log.With(zap.String("component", "store")),
		now:        time.Now,
		baseURL:    "http://localhost:4000",
		partitions: make(map[string]*partition),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.dir.Store(&model.Directory{})
	return s
}

// Load reads the persisted state. When nothing was persisted yet the seed
// state is installed and written back. Any other read failure is returned.
func (s *Store) Load(ctx context.Context) error {
	state, err := s.persister.LoadState(ctx)
	if errors.Is(err, storage.ErrNoState) {
		s.log.Info("No persisted state found, seeding")
		state = Seed(s.now(), s.baseURL)
		if err := s.persister.SaveState(ctx, state); err != nil {
			return fmt.Errorf("save seed state: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("load state: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := state.Directory
	s.dir.Store(&dir)
	s.partitions = make(map[string]*partition, len(state.DataByTenant))
	for tenantID, data := range state.DataByTenant {
		p := &partition{}
		p.data.Store(data)
		s.partitions[tenantID] = p
	}

	s.log.Info("State loaded",
		zap.Int("tenants", len(dir.Tenants)),
		zap.Int("partitions", len(state.DataByTenant)))
	return nil
}

// Flush writes the complete current state to the backend.
func (s *Store) Flush(ctx context.Context) error {
	if err := s.persister.SaveState(ctx, s.snapshot()); err != nil {
		return fmt.Errorf("flush state: %w", err)
	}
	return nil
}

// Close flushes the state. The store must not be used afterwards.
func (s *Store) Close(ctx context.Context) error {
	return s.Flush(ctx)
}

func (s *Store) snapshot() *model.State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state := &model.State{
		Directory:    *s.dir.Load(),
		DataByTenant: make(map[string]*model.TenantData, len(s.partitions)),
	}
	for tenantID, p := range s.partitions {
		state.DataByTenant[tenantID] = p.data.Load()
	}
	return state
}

func (s *Store) partition(tenantID string) *partition {
	s.mu.RLock()
	p, ok := s.partitions[tenantID]
	s.mu.RUnlock()
	if ok {
		return p
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.partitions[tenantID]; ok {
		return p
	}
	p = &partition{}
	p.data.Store(model.NewTenantData())
	s.partitions[tenantID] = p
	return p
}

// GetTenantData returns the tenant's partition, creating the default one on
// first access. The returned value is shared and must be treated as read-only.
func (s *Store) GetTenantData(tenantID string) *model.TenantData {
	return s.partition(tenantID).data.Load()
}

// HasTenantData reports whether a partition exists for tenantID.
func (s *Store) HasTenantData(tenantID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.partitions[tenantID]
	return ok
}

// Update runs fn on a private copy of the tenant's partition, persists the
// result and makes it visible. If fn or the write fails the partition is left
// as it was. Writers of the same tenant are serialized.
func (s *Store) Update(ctx context.Context, tenantID string, fn func(d *model.TenantData) error) (*model.TenantData, error) {
	p := s.partition(tenantID)
	p.mu.Lock()
	defer p.mu.Unlock()

	next := p.data.Load().Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	if err := s.persister.ReplaceTenant(ctx, tenantID, next); err != nil {
		return nil, fmt.Errorf("persist tenant %s: %w", tenantID, err)
	}
	p.data.Store(next)
	return next, nil
}

// ResetTenant replaces the tenant's partition with a copy of the seed template.
func (s *Store) ResetTenant(ctx context.Context, tenantID string) error {
	template := SeedTemplate(s.now(), s.baseURL)
	_, err := s.Update(ctx, tenantID, func(d *model.TenantData) error {
		*d = *template.Clone()
		return nil
	})
	return err
}

// ClearTenant empties every list of the tenant's partition, keeping settings
// and channel configuration. Tenants without a partition are left alone.
func (s *Store) ClearTenant(ctx context.Context, tenantID string) error {
	if !s.HasTenantData(tenantID) {
		return nil
	}
	_, err := s.Update(ctx, tenantID, func(d *model.TenantData) error {
		d.Clear()
		return nil
	})
	return err
}

// Directory returns the current tenant and staff directory. Read-only.
func (s *Store) Directory() *model.Directory {
	return s.dir.Load()
}

// UpdateDirectory is the directory counterpart of Update.
func (s *Store) UpdateDirectory(ctx context.Context, fn func(dir *model.Directory) error) (*model.Directory, error) {
	s.dirMu.Lock()
	defer s.dirMu.Unlock()

	cur := s.dir.Load()
	next := &model.Directory{
		Tenants: make([]model.Tenant, len(cur.Tenants)),
		Staff:   slices.Clone(cur.Staff),
	}
	for i, t := range cur.Tenants {
		t.Features = maps.Clone(t.Features)
		next.Tenants[i] = t
	}

	if err := fn(next); err != nil {
		return nil, err
	}
	if err := s.persister.ReplaceDirectory(ctx, *next); err != nil {
		return nil, fmt.Errorf("persist directory: %w", err)
	}
	s.dir.Store(next)
	return next, nil
}

func (s *Store) Tenant(tenantID string) (model.Tenant, error) {
	for _, t := range s.Directory().Tenants {
		if t.ID == tenantID {
			return t, nil
		}
	}
	return model.Tenant{}, apperr.NotFound("tenant not found")
}

// UpdateTenant applies the non-nil fields of upd and merges Features.
func (s *Store) UpdateTenant(ctx context.Context, tenantID string, upd model.TenantUpdate) (model.Tenant, error) {
	var out model.Tenant
	_, err := s.UpdateDirectory(ctx, func(dir *model.Directory) error {
		idx := slices.IndexFunc(dir.Tenants, func(t model.Tenant) bool { return t.ID == tenantID })
		if idx < 0 {
			return apperr.NotFound("tenant not found")
		}
		t := &dir.Tenants[idx]
		if upd.Plan != nil && *upd.Plan != "" {
			t.Plan = *upd.Plan
		}
		if upd.MaxUnits != nil {
			t.MaxUnits = *upd.MaxUnits
		}
		if len(upd.Features) > 0 {
			if t.Features == nil {
				t.Features = map[string]bool{}
			}
			for k, v := range upd.Features {
				t.Features[k] = v
			}
		}
		out = *t
		return nil
	})
	return out, err
}

// Staff lists the staff members of a tenant.
func (s *Store) Staff(tenantID string) []model.StaffMember {
	var out []model.StaffMember
	for _, m := range s.Directory().Staff {
		if m.TenantID == tenantID {
			out = append(out, m)
		}
	}
	return out
}

func (s *Store) StaffMember(tenantID, id string) (model.StaffMember, error) {
	for _, m := range s.Directory().Staff {
		if m.ID == id && m.TenantID == tenantID {
			return m, nil
		}
	}
	return model.StaffMember{}, apperr.NotFound("staff member not found")
}

// StaffByEmail finds a staff member of any tenant, case-insensitively.
func (s *Store) StaffByEmail(email string) (model.StaffMember, error) {
	for _, m := range s.Directory().Staff {
		if strings.EqualFold(m.Email, email) {
			return m, nil
		}
	}
	return model.StaffMember{}, apperr.NotFound("user not found")
}

// TenantIDs lists every tenant known to the directory.
func (s *Store) TenantIDs() []string {
	dir := s.Directory()
	ids := make([]string, 0, len(dir.Tenants))
	for _, t := range dir.Tenants {
		ids = append(ids, t.ID)
	}
	return ids
}

// RegisterTenant adds a tenant together with its first staff member. The
// email must not be in use by any tenant.
func (s *Store) RegisterTenant(ctx context.Context, tenant model.Tenant, owner model.StaffMember) error {
	_, err := s.UpdateDirectory(ctx, func(dir *model.Directory) error {
		for _, m := range dir.Staff {
			if strings.EqualFold(m.Email, owner.Email) {
				return apperr.Conflict("Email already registered")
			}
		}
		if slices.ContainsFunc(dir.Tenants, func(t model.Tenant) bool { return t.ID == tenant.ID }) {
			return apperr.Conflict("tenant already exists")
		}
		dir.Tenants = append(dir.Tenants, tenant)
		dir.Staff = append(dir.Staff, owner)
		return nil
	})
	if err != nil {
		return err
	}
	// Materialize and persist the empty partition.
	_, err = s.Update(ctx, tenant.ID, func(*model.TenantData) error { return nil })
	return err
}

// SetStaffPresence records a login or logout of a staff member.
func (s *Store) SetStaffPresence(ctx context.Context, staffID string, online bool) (model.StaffMember, error) {
	var out model.StaffMember
	_, err := s.UpdateDirectory(ctx, func(dir *model.Directory) error {
		idx := slices.IndexFunc(dir.Staff, func(m model.StaffMember) bool { return m.ID == staffID })
		if idx < 0 {
			return apperr.NotFound("staff member not found")
		}
		dir.Staff[idx].Online = online
		if online {
			dir.Staff[idx].LastActive = s.now().UTC().Format(time.RFC3339)
		}
		out = dir.Staff[idx]
		return nil
	})
	return out, err
}
