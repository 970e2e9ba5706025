package store

import (
	"database/sql"
	"testing"

	"github.com/jmoreau/tether/internal/punishment"
)

func TestPunishmentAssignmentLifecycle(t *testing.T) {
	db := setupDB(t)
	dom, sub, _ := createTestPair(t, db)
	punishments := NewPunishmentStore(db)

	p, err := punishments.Create("Extra chores", "dishes all week", "moderate", "discipline", dom, sub)
	if err != nil {
		t.Fatalf("create punishment: %v", err)
	}

	a, err := punishments.Assign(p.ID, dom, "missed check-in twice")
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if a.Status != string(punishment.StatusAssigned) {
		t.Errorf("status = %s, want assigned", a.Status)
	}
	if a.AssignedTo != sub || a.AssignedBy != dom {
		t.Errorf("assigned_to/by = %d/%d, want %d/%d", a.AssignedTo, a.AssignedBy, sub, dom)
	}

	// Only the assignee completes.
	if _, err := punishments.CompleteAssignment(a.ID, dom); err != ErrNotAuthorized {
		t.Errorf("complete by assigner err = %v, want ErrNotAuthorized", err)
	}
	completed, err := punishments.CompleteAssignment(a.ID, sub)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if completed.Status != string(punishment.StatusCompleted) {
		t.Errorf("status = %s, want completed", completed.Status)
	}
	if completed.CompletedAt == nil {
		t.Error("completed_at = nil, want set")
	}

	// Only the original assigner validates.
	if _, err := punishments.ValidateAssignment(a.ID, sub); err != ErrNotAuthorized {
		t.Errorf("validate by assignee err = %v, want ErrNotAuthorized", err)
	}
	validated, err := punishments.ValidateAssignment(a.ID, dom)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if validated.Status != string(punishment.StatusValidated) {
		t.Errorf("status = %s, want validated", validated.Status)
	}
	if validated.ValidatedBy == nil || *validated.ValidatedBy != dom {
		t.Errorf("validated_by = %v, want %d", validated.ValidatedBy, dom)
	}

	// Validated is terminal.
	if _, err := punishments.CompleteAssignment(a.ID, sub); err != ErrInvalidTransition {
		t.Errorf("re-complete err = %v, want ErrInvalidTransition", err)
	}
	if _, err := punishments.ValidateAssignment(a.ID, dom); err != ErrInvalidTransition {
		t.Errorf("re-validate err = %v, want ErrInvalidTransition", err)
	}

	// The whole workflow left the ledger untouched.
	if got := mustBalance(t, db, sub); got != 0 {
		t.Errorf("balance = %d, want 0", got)
	}
}

func TestPunishmentAssignmentOrder(t *testing.T) {
	db := setupDB(t)
	dom, sub, _ := createTestPair(t, db)
	punishments := NewPunishmentStore(db)

	p, err := punishments.Create("Lines", "", "mild", "discipline", dom, sub)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	a, err := punishments.Assign(p.ID, dom, "")
	if err != nil {
		t.Fatalf("assign: %v", err)
	}

	// Cannot skip straight to validated.
	if _, err := punishments.ValidateAssignment(a.ID, dom); err != ErrInvalidTransition {
		t.Errorf("validate before complete err = %v, want ErrInvalidTransition", err)
	}
}

func TestPunishmentAssignGuards(t *testing.T) {
	db := setupDB(t)
	dom, sub, _ := createTestPair(t, db)
	punishments := NewPunishmentStore(db)

	p, err := punishments.Create("Lines", "", "mild", "discipline", dom, sub)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Only the template's creator assigns it.
	if _, err := punishments.Assign(p.ID, sub, ""); err != ErrNotAuthorized {
		t.Errorf("assign by target err = %v, want ErrNotAuthorized", err)
	}
	if _, err := punishments.Assign(9999, dom, ""); err != sql.ErrNoRows {
		t.Errorf("missing template err = %v, want sql.ErrNoRows", err)
	}

	if err := punishments.SetActive(p.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := punishments.Assign(p.ID, dom, ""); err != ErrInactive {
		t.Errorf("inactive err = %v, want ErrInactive", err)
	}

	// Deactivating a template does not touch open assignments.
	if err := punishments.SetActive(p.ID, true); err != nil {
		t.Fatalf("reactivate: %v", err)
	}
	a, err := punishments.Assign(p.ID, dom, "")
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if err := punishments.SetActive(p.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := punishments.CompleteAssignment(a.ID, sub); err != nil {
		t.Errorf("complete on deactivated template: %v", err)
	}
}

func TestPunishmentListAssignments(t *testing.T) {
	db := setupDB(t)
	dom, sub, _ := createTestPair(t, db)
	punishments := NewPunishmentStore(db)

	p, err := punishments.Create("Lines", "", "mild", "discipline", dom, sub)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := punishments.Assign(p.ID, dom, ""); err != nil {
			t.Fatalf("assign: %v", err)
		}
	}

	list, err := punishments.ListAssignmentsByUser(sub)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Errorf("len = %d, want 3", len(list))
	}
	if got, err := punishments.ListAssignmentsByUser(dom); err != nil || len(got) != 0 {
		t.Errorf("assigner list = %d/%v, want 0/nil", len(got), err)
	}
}
