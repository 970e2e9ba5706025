package store

import (
	"database/sql"
	"testing"

	"github.com/jmoreau/tether/internal/database"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestUser(t *testing.T, db *sql.DB, email, displayName, role string) int64 {
	t.Helper()
	u, err := NewUserStore(db).Create(email, "not-a-real-hash")
	if err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	if _, err := NewProfileStore(db).Create(u.ID, displayName, role); err != nil {
		t.Fatalf("create profile for %s: %v", email, err)
	}
	return u.ID
}

// createTestPair sets up an accepted dominant/submissive partnership and
// returns (dominantID, submissiveID, partnershipID).
func createTestPair(t *testing.T, db *sql.DB) (int64, int64, int64) {
	t.Helper()
	dom := createTestUser(t, db, "dom@example.com", "Alex", "dominant")
	sub := createTestUser(t, db, "sub@example.com", "Sam", "submissive")

	ps := NewPartnershipStore(db)
	p, err := ps.Propose(dom, sub, dom)
	if err != nil {
		t.Fatalf("propose partnership: %v", err)
	}
	if _, err := ps.Accept(p.ID, sub); err != nil {
		t.Fatalf("accept partnership: %v", err)
	}
	return dom, sub, p.ID
}

func mustBalance(t *testing.T, db *sql.DB, userID int64) int {
	t.Helper()
	total, err := NewLedgerStore(db).SumPoints(userID)
	if err != nil {
		t.Fatalf("sum points: %v", err)
	}
	return total
}
