package store

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "nested", "watchdesk.db")
	s, err := Open(dsn, "sqlite")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func TestAppendAndListActivity(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	first := &Activity{Action: "create", Resource: "watchlist", ResourceID: "w1", Success: true, RequestID: "req-1"}
	if err := s.AppendActivity(ctx, first); err != nil {
		t.Fatalf("AppendActivity: %v", err)
	}
	if first.ID == "" || first.CreatedAt.IsZero() {
		t.Fatalf("id and timestamp should be filled: %+v", first)
	}
	second := &Activity{
		Action:   "analyze",
		Resource: "event",
		Success:  false,
		Error:    "No se pudo conectar con el servidor.",
		Metadata: map[string]interface{}{"kind": "connectivity"},
	}
	if err := s.AppendActivity(ctx, second); err != nil {
		t.Fatalf("AppendActivity: %v", err)
	}

	entries, err := s.ListActivity(ctx, 10)
	if err != nil {
		t.Fatalf("ListActivity: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries got %d", len(entries))
	}
	if entries[0].Action != "analyze" || entries[1].Action != "create" {
		t.Fatalf("expected newest first, got %s then %s", entries[0].Action, entries[1].Action)
	}
	if entries[0].Success || entries[0].Error == "" || entries[0].Metadata["kind"] != "connectivity" {
		t.Fatalf("failure entry not preserved: %+v", entries[0])
	}
	if entries[1].ResourceID != "w1" || entries[1].RequestID != "req-1" || !entries[1].Success {
		t.Fatalf("success entry not preserved: %+v", entries[1])
	}

	limited, err := s.ListActivity(ctx, 1)
	if err != nil {
		t.Fatalf("ListActivity: %v", err)
	}
	if len(limited) != 1 || limited[0].ID != second.ID {
		t.Fatalf("limit not honored: %+v", limited)
	}
}

func TestAppendActivityRequiresActionAndResource(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	if err := s.AppendActivity(context.Background(), &Activity{Action: "create"}); err == nil {
		t.Fatal("expected error for missing resource")
	}
}

func TestOpenDrivers(t *testing.T) {
	t.Parallel()
	s, err := Open("", "none")
	if err != nil || s != nil {
		t.Fatalf("none driver: store=%v err=%v", s, err)
	}
	if _, err := Open("x", "mysql"); err == nil {
		t.Fatal("expected unsupported driver error")
	}
	if _, err := Open("", "sqlite"); err == nil {
		t.Fatal("expected missing DSN error")
	}
}

func TestRebind(t *testing.T) {
	t.Parallel()
	pg := &Store{postgres: true}
	if got := pg.rebind("a = ? AND b = ?"); got != "a = $1 AND b = $2" {
		t.Fatalf("rebind = %q", got)
	}
	lite := &Store{}
	if got := lite.rebind("a = ?"); got != "a = ?" {
		t.Fatalf("rebind = %q", got)
	}
}
