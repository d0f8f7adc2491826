// internal/storage/postgres.go
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"hospitality-ops/internal/model"
)

// ErrNoState is returned by LoadState when nothing has been persisted yet.
var ErrNoState = errors.New("no persisted state")

const schema = `
CREATE TABLE IF NOT EXISTS tenants (
	id         TEXT PRIMARY KEY,
	payload    JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS staff (
	id        TEXT PRIMARY KEY,
	tenant_id TEXT NOT NULL,
	payload   JSONB NOT NULL
);
CREATE TABLE IF NOT EXISTS tenant_data (
	tenant_id  TEXT PRIMARY KEY,
	payload    JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS tenant_events (
	id          UUID NOT NULL,
	tenant_id   TEXT NOT NULL,
	name        TEXT NOT NULL,
	payload     JSONB,
	occurred_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (tenant_id, id)
) PARTITION BY LIST (tenant_id);`

type Storage struct {
	DB *sql.DB
}

func NewStorage(dsn string) (*Storage, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to db: %w", err)
	}
	return &Storage{DB: db}, nil
}

// Migrate creates the tables if they do not exist yet.
func (s *Storage) Migrate(ctx context.Context) error {
	if _, err := s.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (s *Storage) Close() error {
	return s.DB.Close()
}

// LoadState reads the directory and every tenant partition.
func (s *Storage) LoadState(ctx context.Context) (*model.State, error) {
	state := &model.State{DataByTenant: map[string]*model.TenantData{}}

	if err := queryJSON(ctx, s.DB, `SELECT payload FROM tenants ORDER BY id`, func(raw []byte) error {
		var t model.Tenant
		if err := json.Unmarshal(raw, &t); err != nil {
			return err
		}
		state.Tenants = append(state.Tenants, t)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("load tenants: %w", err)
	}

	if err := queryJSON(ctx, s.DB, `SELECT payload FROM staff ORDER BY tenant_id, id`, func(raw []byte) error {
		var m model.StaffMember
		if err := json.Unmarshal(raw, &m); err != nil {
			return err
		}
		state.Staff = append(state.Staff, m)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("load staff: %w", err)
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT tenant_id, payload FROM tenant_data`)
	if err != nil {
		return nil, fmt.Errorf("load tenant data: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			tenantID string
			raw      []byte
		)
		if err := rows.Scan(&tenantID, &raw); err != nil {
			return nil, fmt.Errorf("scan tenant data: %w", err)
		}
		data := model.NewTenantData()
		if err := json.Unmarshal(raw, data); err != nil {
			return nil, fmt.Errorf("decode tenant data %s: %w", tenantID, err)
		}
		state.DataByTenant[tenantID] = data
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load tenant data: %w", err)
	}

	if len(state.Tenants) == 0 && len(state.DataByTenant) == 0 {
		return nil, ErrNoState
	}
	return state, nil
}

// SaveState replaces everything in one transaction.
func (s *Storage) SaveState(ctx context.Context, state *model.State) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := replaceDirectory(ctx, tx, state.Directory); err != nil {
			return err
		}
		for tenantID, data := range state.DataByTenant {
			if err := upsertTenantData(ctx, tx, tenantID, data); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReplaceTenant overwrites one tenant partition.
func (s *Storage) ReplaceTenant(ctx context.Context, tenantID string, data *model.TenantData) error {
	return upsertTenantData(ctx, s.DB, tenantID, data)
}

// ReplaceDirectory overwrites the tenant and staff tables.
func (s *Storage) ReplaceDirectory(ctx context.Context, dir model.Directory) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return replaceDirectory(ctx, tx, dir)
	})
}

// EnsurePartition creates the tenant's event log partition if it does not exist.
func (s *Storage) EnsurePartition(ctx context.Context, tenantID string) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s PARTITION OF tenant_events
		FOR VALUES IN (%s)`, pq.QuoteIdentifier(PartitionName(tenantID)), pq.QuoteLiteral(tenantID))

	if _, err := s.DB.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create partition: %w", err)
	}
	return nil
}

// InsertEvent appends an event to the tenant's partition. Redelivered events
// are ignored.
func (s *Storage) InsertEvent(ctx context.Context, e *model.Event) error {
	query := `
		INSERT INTO tenant_events (id, tenant_id, name, payload, occurred_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT DO NOTHING
	`
	_, err := s.DB.ExecContext(ctx, query, e.ID, e.TenantID, e.Name, []byte(e.Payload), e.OccurredAt)
	return err
}

// ListEventsPaginated retrieves events using cursor-based pagination. Event ids
// are time ordered, so id order is arrival order.
func (s *Storage) ListEventsPaginated(ctx context.Context, tenantID, cursor string, limit int) ([]model.Event, string, error) {
	query := `
		SELECT id, tenant_id, name, payload, occurred_at
		FROM tenant_events
		WHERE tenant_id = $1
		  AND ($2::uuid IS NULL OR id > $2::uuid)
		ORDER BY id
		LIMIT $3
	`

	var cursorArg any
	if cursor != "" {
		if _, err := uuid.Parse(cursor); err != nil {
			return nil, "", fmt.Errorf("invalid cursor %q: %w", cursor, err)
		}
		cursorArg = cursor
	}

	rows, err := s.DB.QueryContext(ctx, query, tenantID, cursorArg, limit)
	if err != nil {
		return nil, "", fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	var lastID string
	for rows.Next() {
		var (
			e       model.Event
			payload []byte
		)
		if err := rows.Scan(&e.ID, &e.TenantID, &e.Name, &payload, &e.OccurredAt); err != nil {
			return nil, "", fmt.Errorf("scan failed: %w", err)
		}
		e.Payload = payload
		lastID = e.ID
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("query failed: %w", err)
	}

	nextCursor := ""
	if len(events) == limit {
		nextCursor = lastID
	}

	return events, nextCursor, nil
}

var unsafeIdent = regexp.MustCompile(`[^a-z0-9_]+`)

// PartitionName derives a stable table name for a tenant's event partition.
// The hash suffix keeps ids that sanitize to the same prefix apart.
func PartitionName(tenantID string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(tenantID))
	prefix := unsafeIdent.ReplaceAllString(strings.ToLower(tenantID), "_")
	if len(prefix) > 40 {
		prefix = prefix[:40]
	}
	return fmt.Sprintf("tenant_events_%s_%08x", prefix, h.Sum32())
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertTenantData(ctx context.Context, db execer, tenantID string, data *model.TenantData) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode tenant data %s: %w", tenantID, err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO tenant_data (tenant_id, payload, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (tenant_id) DO UPDATE
		SET payload = EXCLUDED.payload, updated_at = NOW()`, tenantID, raw)
	if err != nil {
		return fmt.Errorf("upsert tenant data %s: %w", tenantID, err)
	}
	return nil
}

func replaceDirectory(ctx context.Context, tx *sql.Tx, dir model.Directory) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM staff`); err != nil {
		return fmt.Errorf("clear staff: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM tenants`); err != nil {
		return fmt.Errorf("clear tenants: %w", err)
	}
	for _, t := range dir.Tenants {
		raw, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("encode tenant %s: %w", t.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO tenants (id, payload) VALUES ($1, $2)`, t.ID, raw); err != nil {
			return fmt.Errorf("insert tenant %s: %w", t.ID, err)
		}
	}
	for _, m := range dir.Staff {
		raw, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("encode staff %s: %w", m.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO staff (id, tenant_id, payload) VALUES ($1, $2, $3)`, m.ID, m.TenantID, raw); err != nil {
			return fmt.Errorf("insert staff %s: %w", m.ID, err)
		}
	}
	return nil
}

func (s *Storage) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func queryJSON(ctx context.Context, db *sql.DB, query string, fn func(raw []byte) error) error {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return err
		}
		if err := fn(raw); err != nil {
			return err
		}
	}
	return rows.Err()
}
