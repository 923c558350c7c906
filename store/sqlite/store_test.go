package sqlite

import (
	"database/sql"
	"testing"
)

func TestNewCapsPoolToOneConnection(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	// A caller-configured pool must not defeat the writer serialization
	// AddDelta depends on.
	db.SetMaxOpenConns(4)

	st := New(db)
	if got := st.DB().Stats().MaxOpenConnections; got != 1 {
		t.Fatalf("expected pool capped at 1 connection, got %d", got)
	}
}

func TestOpenCapsPoolToOneConnection(t *testing.T) {
	st, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	if got := st.DB().Stats().MaxOpenConnections; got != 1 {
		t.Fatalf("expected pool capped at 1 connection, got %d", got)
	}
}
