package store

import (
	"database/sql"
	"testing"
)

func TestPartnershipProposeAndAccept(t *testing.T) {
	db := setupDB(t)
	dom := createTestUser(t, db, "dom@example.com", "Alex", "dominant")
	sub := createTestUser(t, db, "sub@example.com", "Sam", "submissive")
	partnerships := NewPartnershipStore(db)

	p, err := partnerships.Propose(dom, sub, dom)
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if p.Status != "pending" {
		t.Errorf("status = %s, want pending", p.Status)
	}

	// The proposer cannot accept their own proposal.
	if _, err := partnerships.Accept(p.ID, dom); err != ErrNotAuthorized {
		t.Errorf("self-accept err = %v, want ErrNotAuthorized", err)
	}

	accepted, err := partnerships.Accept(p.ID, sub)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if accepted.Status != "accepted" {
		t.Errorf("status = %s, want accepted", accepted.Status)
	}

	// Accepted is past pending; a second accept is an illegal transition.
	if _, err := partnerships.Accept(p.ID, sub); err != ErrInvalidTransition {
		t.Errorf("re-accept err = %v, want ErrInvalidTransition", err)
	}
}

func TestPartnershipDuplicateProposal(t *testing.T) {
	db := setupDB(t)
	dom := createTestUser(t, db, "dom@example.com", "Alex", "dominant")
	sub := createTestUser(t, db, "sub@example.com", "Sam", "submissive")
	partnerships := NewPartnershipStore(db)

	if _, err := partnerships.Propose(dom, sub, dom); err != nil {
		t.Fatalf("propose: %v", err)
	}
	if _, err := partnerships.Propose(dom, sub, sub); err != ErrPartnershipExists {
		t.Errorf("duplicate proposal err = %v, want ErrPartnershipExists", err)
	}
}

func TestPartnershipRejectThenRepropose(t *testing.T) {
	db := setupDB(t)
	dom := createTestUser(t, db, "dom@example.com", "Alex", "dominant")
	sub := createTestUser(t, db, "sub@example.com", "Sam", "submissive")
	partnerships := NewPartnershipStore(db)

	p, err := partnerships.Propose(dom, sub, dom)
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	rejected, err := partnerships.Reject(p.ID, sub)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != "rejected" {
		t.Errorf("status = %s, want rejected", rejected.Status)
	}

	// Rejected is terminal per row; a fresh proposal starts a new one.
	p2, err := partnerships.Propose(dom, sub, dom)
	if err != nil {
		t.Fatalf("re-propose after rejection: %v", err)
	}
	if p2.ID == p.ID {
		t.Error("re-proposal reused the rejected row")
	}
}

func TestPartnershipDissolve(t *testing.T) {
	db := setupDB(t)
	dom, sub, pid := createTestPair(t, db)
	outsider := createTestUser(t, db, "other@example.com", "Kai", "switch")
	partnerships := NewPartnershipStore(db)

	if _, err := partnerships.Dissolve(pid, outsider); err != ErrNotAuthorized {
		t.Errorf("outsider dissolve err = %v, want ErrNotAuthorized", err)
	}

	// Either member may dissolve, including the original proposer.
	dissolved, err := partnerships.Dissolve(pid, dom)
	if err != nil {
		t.Fatalf("dissolve: %v", err)
	}
	if dissolved.Status != "dissolved" {
		t.Errorf("status = %s, want dissolved", dissolved.Status)
	}

	if _, err := partnerships.Dissolve(pid, sub); err != ErrInvalidTransition {
		t.Errorf("re-dissolve err = %v, want ErrInvalidTransition", err)
	}

	// The pair can start over.
	if _, err := partnerships.Propose(dom, sub, sub); err != nil {
		t.Errorf("re-propose after dissolve: %v", err)
	}
}

func TestPartnershipLookups(t *testing.T) {
	db := setupDB(t)
	dom, sub, pid := createTestPair(t, db)
	partnerships := NewPartnershipStore(db)

	p, err := partnerships.GetAcceptedForUser(sub)
	if err != nil {
		t.Fatalf("get accepted for user: %v", err)
	}
	if p == nil || p.ID != pid {
		t.Fatalf("accepted partnership = %v, want id %d", p, pid)
	}
	if got := p.Partner(sub); got != dom {
		t.Errorf("partner of sub = %d, want %d", got, dom)
	}

	// Either argument order finds the pair.
	between, err := partnerships.GetAcceptedBetween(sub, dom)
	if err != nil {
		t.Fatalf("get between: %v", err)
	}
	if between == nil || between.ID != pid {
		t.Errorf("between = %v, want id %d", between, pid)
	}

	none, err := partnerships.GetAcceptedForUser(9999)
	if err != nil {
		t.Fatalf("get accepted for unknown user: %v", err)
	}
	if none != nil {
		t.Errorf("partnership for unknown user = %v, want nil", none)
	}
}

func TestPartnershipRespondMissing(t *testing.T) {
	db := setupDB(t)
	dom := createTestUser(t, db, "dom@example.com", "Alex", "dominant")

	if _, err := NewPartnershipStore(db).Accept(9999, dom); err != sql.ErrNoRows {
		t.Errorf("accept missing err = %v, want sql.ErrNoRows", err)
	}
}
