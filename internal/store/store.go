// Package store persists the dashboard's activity log.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverNone     = "none"
)

// Activity records a mutation issued through the dashboard.
type Activity struct {
	ID         string                 `json:"id"`
	Action     string                 `json:"action"`
	Resource   string                 `json:"resource"`
	ResourceID string                 `json:"resourceId,omitempty"`
	Success    bool                   `json:"success"`
	Error      string                 `json:"error,omitempty"`
	RequestID  string                 `json:"requestId,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt  time.Time              `json:"createdAt"`
}

// Store wraps the SQL database holding the activity log.
type Store struct {
	db       *sql.DB
	postgres bool
}

// Open initializes the datastore for the given driver. It returns nil, nil
// when the driver is "none".
func Open(dsn string, driver string) (*Store, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverSQLite:
		return openSQLite(dsn)
	case DriverPostgres, "pgx":
		return openPostgres(dsn)
	case DriverNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported datastore driver: %s", driver)
	}
}

func openSQLite(dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("datastore DSN is required")
	}
	if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create datastore directory: %w", err)
	}
	conn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dsn)
	db, err := sql.Open("sqlite", conn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite datastore: %w", err)
	}
	db.SetMaxOpenConns(1)
	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func openPostgres(dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("postgres DSN is required")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres datastore: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}
	s := &Store{db: db, postgres: true}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema() error {
	idColumn := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if s.postgres {
		idColumn = "BIGSERIAL PRIMARY KEY"
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS activity (
			id ` + idColumn + `,
			action TEXT NOT NULL,
			resource TEXT NOT NULL,
			resource_id TEXT,
			success BOOLEAN NOT NULL,
			error TEXT,
			request_id TEXT,
			metadata TEXT,
			created_at TIMESTAMP NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_activity_resource ON activity(resource, resource_id);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("schema apply failed: %w", err)
		}
	}
	return nil
}

// Close shuts down the datastore.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// AppendActivity writes an entry and fills its ID and CreatedAt.
func (s *Store) AppendActivity(ctx context.Context, entry *Activity) error {
	if entry.Action == "" || entry.Resource == "" {
		return errors.New("activity action and resource are required")
	}
	entry.CreatedAt = time.Now().UTC()
	var metadata sql.NullString
	if len(entry.Metadata) > 0 {
		raw, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("marshal activity metadata: %w", err)
		}
		metadata = sql.NullString{String: string(raw), Valid: true}
	}

	query := s.rebind(`INSERT INTO activity (action, resource, resource_id, success, error, request_id, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	args := []interface{}{
		entry.Action, entry.Resource, entry.ResourceID, entry.Success, entry.Error, entry.RequestID, metadata, entry.CreatedAt,
	}

	var id int64
	if s.postgres {
		if err := s.db.QueryRowContext(ctx, query+" RETURNING id", args...).Scan(&id); err != nil {
			return fmt.Errorf("insert activity: %w", err)
		}
	} else {
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("insert activity: %w", err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("activity id: %w", err)
		}
	}
	entry.ID = strconv.FormatInt(id, 10)
	return nil
}

// ListActivity returns the newest entries first.
func (s *Store) ListActivity(ctx context.Context, limit int) ([]Activity, error) {
	query := `SELECT id, action, resource, resource_id, success, error, request_id, metadata, created_at FROM activity ORDER BY id DESC`
	if limit > 0 {
		query = fmt.Sprintf("%s LIMIT %d", query, limit)
	}
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()

	entries := []Activity{}
	for rows.Next() {
		var (
			a                             Activity
			id                            int64
			resourceID, errMsg, requestID sql.NullString
			metadata                      sql.NullString
		)
		if err := rows.Scan(&id, &a.Action, &a.Resource, &resourceID, &a.Success, &errMsg, &requestID, &metadata, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		a.ID = strconv.FormatInt(id, 10)
		a.ResourceID = resourceID.String
		a.Error = errMsg.String
		a.RequestID = requestID.String
		if metadata.Valid {
			_ = json.Unmarshal([]byte(metadata.String), &a.Metadata)
		}
		entries = append(entries, a)
	}
	return entries, rows.Err()
}

// rebind converts ? placeholders to $n for postgres.
func (s *Store) rebind(query string) string {
	if !s.postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
