package store

import (
	"testing"
	"time"
)

func TestTaskContributeAccumulates(t *testing.T) {
	db := setupDB(t)
	dom, sub, pid := createTestPair(t, db)
	tasks := NewTaskStore(db)

	task, err := tasks.Create(pid, dom, "Declutter garage", "", 15, 10, nil)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	task, err = tasks.Contribute(task.ID, dom, 3, "sorted tools")
	if err != nil {
		t.Fatalf("contribute: %v", err)
	}
	if task.CurrentProgress != 3 {
		t.Errorf("progress = %d, want 3", task.CurrentProgress)
	}
	if task.CompletedAt != nil {
		t.Error("completed_at set before target reached")
	}

	task, err = tasks.Contribute(task.ID, sub, 4, "")
	if err != nil {
		t.Fatalf("contribute: %v", err)
	}
	if task.CurrentProgress != 7 {
		t.Errorf("progress = %d, want 7", task.CurrentProgress)
	}

	// Below target, nobody has been paid.
	if mustBalance(t, db, dom) != 0 || mustBalance(t, db, sub) != 0 {
		t.Error("payout before completion")
	}

	contributions, err := tasks.ListContributions(task.ID)
	if err != nil {
		t.Fatalf("list contributions: %v", err)
	}
	if len(contributions) != 2 {
		t.Fatalf("contributions = %d, want 2", len(contributions))
	}
	if contributions[0].Note != "sorted tools" {
		t.Errorf("note = %q", contributions[0].Note)
	}
}

func TestTaskCompletionPaysBothPartnersOnce(t *testing.T) {
	db := setupDB(t)
	dom, sub, pid := createTestPair(t, db)
	tasks := NewTaskStore(db)

	task, err := tasks.Create(pid, dom, "Declutter garage", "", 15, 10, nil)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if _, err := tasks.Contribute(task.ID, dom, 9, ""); err != nil {
		t.Fatalf("contribute: %v", err)
	}

	// The crossing contribution overshoots; progress clamps to the target.
	task, err = tasks.Contribute(task.ID, sub, 5, "finished it")
	if err != nil {
		t.Fatalf("crossing contribute: %v", err)
	}
	if task.CurrentProgress != 10 {
		t.Errorf("progress = %d, want 10 (clamped)", task.CurrentProgress)
	}
	if task.CompletedAt == nil {
		t.Fatal("completed_at = nil, want set")
	}

	if got := mustBalance(t, db, dom); got != 15 {
		t.Errorf("dominant balance = %d, want 15", got)
	}
	if got := mustBalance(t, db, sub); got != 15 {
		t.Errorf("submissive balance = %d, want 15", got)
	}

	// No contributions land after completion, so no second payout.
	if _, err := tasks.Contribute(task.ID, dom, 1, ""); err != ErrAlreadyCompleted {
		t.Errorf("contribute after completion err = %v, want ErrAlreadyCompleted", err)
	}
	if mustBalance(t, db, dom) != 15 || mustBalance(t, db, sub) != 15 {
		t.Error("balances changed after completion")
	}
}

func TestTaskContributeGuards(t *testing.T) {
	db := setupDB(t)
	dom, _, pid := createTestPair(t, db)
	outsider := createTestUser(t, db, "other@example.com", "Kai", "switch")
	tasks := NewTaskStore(db)

	task, err := tasks.Create(pid, dom, "Plan trip", "", 5, 3, nil)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	if _, err := tasks.Contribute(task.ID, outsider, 1, ""); err != ErrNotAuthorized {
		t.Errorf("outsider err = %v, want ErrNotAuthorized", err)
	}
	if _, err := tasks.Contribute(task.ID, dom, 0, ""); err == nil {
		t.Error("zero amount accepted, want error")
	}
	if _, err := tasks.Contribute(task.ID, dom, -2, ""); err == nil {
		t.Error("negative amount accepted, want error")
	}
}

func TestTaskContributeDissolvedPartnership(t *testing.T) {
	db := setupDB(t)
	dom, _, pid := createTestPair(t, db)
	tasks := NewTaskStore(db)

	task, err := tasks.Create(pid, dom, "Plan trip", "", 5, 3, nil)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if _, err := NewPartnershipStore(db).Dissolve(pid, dom); err != nil {
		t.Fatalf("dissolve: %v", err)
	}

	if _, err := tasks.Contribute(task.ID, dom, 1, ""); err != ErrInactive {
		t.Errorf("contribute on dissolved partnership err = %v, want ErrInactive", err)
	}
}

func TestTaskCreateWithDueDate(t *testing.T) {
	db := setupDB(t)
	dom, _, pid := createTestPair(t, db)
	tasks := NewTaskStore(db)

	due := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	task, err := tasks.Create(pid, dom, "Taxes", "", 20, 1, &due)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if task.DueDate == nil || !task.DueDate.Equal(due) {
		t.Errorf("due date = %v, want %v", task.DueDate, due)
	}

	list, err := tasks.ListByPartnership(pid)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("len = %d, want 1", len(list))
	}
}
