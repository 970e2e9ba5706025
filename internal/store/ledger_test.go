package store

import (
	"testing"
	"time"

	"github.com/jmoreau/tether/internal/habit"
	"github.com/jmoreau/tether/internal/points"
)

func TestLedgerRecordAndBalance(t *testing.T) {
	db := setupDB(t)
	dom, sub, _ := createTestPair(t, db)
	ledger := NewLedgerStore(db)

	if _, err := ledger.Record(sub, dom, 10, points.TypeBonus, "manual credit", nil); err != nil {
		t.Fatalf("record bonus: %v", err)
	}
	if _, err := ledger.Record(sub, dom, -3, points.TypePenalty, "late", nil); err != nil {
		t.Fatalf("record penalty: %v", err)
	}

	balance, err := ledger.GetBalance(sub)
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if balance.TotalEarned != 10 {
		t.Errorf("total earned = %d, want 10", balance.TotalEarned)
	}
	if balance.TotalSpent != 3 {
		t.Errorf("total spent = %d, want 3", balance.TotalSpent)
	}
	if balance.Balance != 7 {
		t.Errorf("balance = %d, want 7", balance.Balance)
	}

	// The other partner's ledger is untouched.
	if got := mustBalance(t, db, dom); got != 0 {
		t.Errorf("dominant balance = %d, want 0", got)
	}
}

func TestLedgerListNewestFirst(t *testing.T) {
	db := setupDB(t)
	dom, sub, _ := createTestPair(t, db)
	ledger := NewLedgerStore(db)

	for i := 1; i <= 3; i++ {
		if _, err := ledger.Record(sub, dom, i, points.TypeBonus, "credit", nil); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	list, err := ledger.ListByUser(sub, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("len = %d, want 3", len(list))
	}
	if list[0].Points != 3 || list[2].Points != 1 {
		t.Errorf("expected newest first, got points %d, %d, %d", list[0].Points, list[1].Points, list[2].Points)
	}
}

func TestLedgerReferenceIDRoundTrip(t *testing.T) {
	db := setupDB(t)
	dom, sub, _ := createTestPair(t, db)
	ledger := NewLedgerStore(db)

	ref := int64(42)
	tx, err := ledger.Record(sub, dom, 5, points.TypeBonus, "with ref", &ref)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if tx.ReferenceID == nil || *tx.ReferenceID != 42 {
		t.Errorf("reference id = %v, want 42", tx.ReferenceID)
	}

	tx2, err := ledger.Record(sub, dom, 5, points.TypeBonus, "no ref", nil)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if tx2.ReferenceID != nil {
		t.Errorf("reference id = %v, want nil", tx2.ReferenceID)
	}
}

// Exercises the end-to-end settlement path: earn through a habit, spend on a
// reward, then fail a second purchase against the emptied balance.
func TestLedgerEarnSpendLifecycle(t *testing.T) {
	db := setupDB(t)
	dom, sub, _ := createTestPair(t, db)
	habits := NewHabitStore(db)
	rewards := NewRewardStore(db)

	h, err := habits.Create("Make the bed", "", habit.FrequencyDaily, 5, sub, dom)
	if err != nil {
		t.Fatalf("create habit: %v", err)
	}
	r, err := rewards.Create("Movie night", "", 5, "general", dom, sub)
	if err != nil {
		t.Fatalf("create reward: %v", err)
	}

	if got := mustBalance(t, db, sub); got != 0 {
		t.Fatalf("starting balance = %d, want 0", got)
	}

	if _, err := habits.Complete(h.ID, sub, "", time.Now()); err != nil {
		t.Fatalf("complete habit: %v", err)
	}
	if got := mustBalance(t, db, sub); got != 5 {
		t.Fatalf("balance after completion = %d, want 5", got)
	}

	p, err := rewards.Purchase(r.ID, sub)
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if got := mustBalance(t, db, sub); got != 0 {
		t.Fatalf("balance after purchase = %d, want 0", got)
	}

	if _, err := rewards.Validate(p.ID, dom); err != nil {
		t.Fatalf("validate: %v", err)
	}
	// Validation settles the purchase without touching the ledger again.
	if got := mustBalance(t, db, sub); got != 0 {
		t.Fatalf("balance after validation = %d, want 0", got)
	}

	if _, err := rewards.Purchase(r.ID, sub); err != ErrInsufficientPoints {
		t.Fatalf("second purchase err = %v, want ErrInsufficientPoints", err)
	}
}

func TestPartnerStats(t *testing.T) {
	db := setupDB(t)
	dom, sub, _ := createTestPair(t, db)
	habits := NewHabitStore(db)
	ledger := NewLedgerStore(db)

	h, err := habits.Create("Stretch", "", habit.FrequencyDaily, 3, sub, dom)
	if err != nil {
		t.Fatalf("create habit: %v", err)
	}

	now := time.Now()
	if _, err := habits.Complete(h.ID, sub, "", now); err != nil {
		t.Fatalf("complete: %v", err)
	}

	stats, err := ledger.GetPartnerStats(sub, now)
	if err != nil {
		t.Fatalf("get partner stats: %v", err)
	}
	if stats == nil {
		t.Fatal("stats = nil, want populated")
	}
	if stats.DisplayName != "Sam" || stats.Role != "submissive" {
		t.Errorf("profile = %s/%s, want Sam/submissive", stats.DisplayName, stats.Role)
	}
	if stats.Balance != 3 {
		t.Errorf("balance = %d, want 3", stats.Balance)
	}
	if stats.HabitsAssigned != 1 {
		t.Errorf("habits assigned = %d, want 1", stats.HabitsAssigned)
	}
	if stats.CompletionsToday != 1 {
		t.Errorf("completions today = %d, want 1", stats.CompletionsToday)
	}
	if stats.TotalCompletions != 1 {
		t.Errorf("total completions = %d, want 1", stats.TotalCompletions)
	}
	// One completion against 7 daily opportunities.
	if want := 1.0 / 7.0; stats.WeekCompletionRate < want-0.001 || stats.WeekCompletionRate > want+0.001 {
		t.Errorf("week completion rate = %f, want %f", stats.WeekCompletionRate, want)
	}
}

func TestPartnerStatsMissingProfile(t *testing.T) {
	db := setupDB(t)
	stats, err := NewLedgerStore(db).GetPartnerStats(9999, time.Now())
	if err != nil {
		t.Fatalf("get partner stats: %v", err)
	}
	if stats != nil {
		t.Errorf("stats = %+v, want nil for unknown user", stats)
	}
}
