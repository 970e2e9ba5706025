package store

import (
	"database/sql"
	"testing"

	"github.com/jmoreau/tether/internal/points"
	"github.com/jmoreau/tether/internal/reward"
)

func seedPoints(t *testing.T, db *sql.DB, userID, byID int64, amount int) {
	t.Helper()
	if _, err := NewLedgerStore(db).Record(userID, byID, amount, points.TypeBonus, "seed", nil); err != nil {
		t.Fatalf("seed points: %v", err)
	}
}

func TestRewardPurchaseDebitsBalance(t *testing.T) {
	db := setupDB(t)
	dom, sub, _ := createTestPair(t, db)
	rewards := NewRewardStore(db)

	r, err := rewards.Create("Movie night", "pick the film", 8, "general", dom, sub)
	if err != nil {
		t.Fatalf("create reward: %v", err)
	}
	seedPoints(t, db, sub, dom, 10)

	p, err := rewards.Purchase(r.ID, sub)
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if p.Status != string(reward.StatusPending) {
		t.Errorf("status = %s, want pending", p.Status)
	}
	if p.PointsSpent != 8 {
		t.Errorf("points spent = %d, want 8", p.PointsSpent)
	}
	if got := mustBalance(t, db, sub); got != 2 {
		t.Errorf("balance = %d, want 2", got)
	}

	// The debit references the purchase.
	list, err := NewLedgerStore(db).ListByUser(sub, 1)
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	debit := list[0]
	if debit.Type != "reward" || debit.Points != -8 {
		t.Errorf("debit = %s/%d, want reward/-8", debit.Type, debit.Points)
	}
	if debit.ReferenceID == nil || *debit.ReferenceID != p.ID {
		t.Errorf("debit reference = %v, want %d", debit.ReferenceID, p.ID)
	}
}

func TestRewardPurchaseInsufficientPoints(t *testing.T) {
	db := setupDB(t)
	dom, sub, _ := createTestPair(t, db)
	rewards := NewRewardStore(db)

	r, err := rewards.Create("Movie night", "", 8, "general", dom, sub)
	if err != nil {
		t.Fatalf("create reward: %v", err)
	}
	seedPoints(t, db, sub, dom, 7)

	if _, err := rewards.Purchase(r.ID, sub); err != ErrInsufficientPoints {
		t.Fatalf("err = %v, want ErrInsufficientPoints", err)
	}
	// Nothing was debited and no purchase row exists.
	if got := mustBalance(t, db, sub); got != 7 {
		t.Errorf("balance = %d, want 7", got)
	}
	purchases, err := rewards.ListPurchasesByUser(sub)
	if err != nil {
		t.Fatalf("list purchases: %v", err)
	}
	if len(purchases) != 0 {
		t.Errorf("purchases = %d, want 0", len(purchases))
	}
}

func TestRewardPurchaseGuards(t *testing.T) {
	db := setupDB(t)
	dom, sub, _ := createTestPair(t, db)
	rewards := NewRewardStore(db)

	r, err := rewards.Create("Movie night", "", 8, "general", dom, sub)
	if err != nil {
		t.Fatalf("create reward: %v", err)
	}
	seedPoints(t, db, dom, dom, 100)
	seedPoints(t, db, sub, dom, 100)

	// The reward belongs to sub; dom cannot buy it.
	if _, err := rewards.Purchase(r.ID, dom); err != ErrNotAuthorized {
		t.Errorf("wrong buyer err = %v, want ErrNotAuthorized", err)
	}

	if err := rewards.SetActive(r.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := rewards.Purchase(r.ID, sub); err != ErrInactive {
		t.Errorf("inactive err = %v, want ErrInactive", err)
	}
}

func TestRewardValidateAndUse(t *testing.T) {
	db := setupDB(t)
	dom, sub, _ := createTestPair(t, db)
	rewards := NewRewardStore(db)

	r, err := rewards.Create("Movie night", "", 8, "general", dom, sub)
	if err != nil {
		t.Fatalf("create reward: %v", err)
	}
	seedPoints(t, db, sub, dom, 10)
	p, err := rewards.Purchase(r.ID, sub)
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}

	// The buyer cannot validate their own purchase.
	if _, err := rewards.Validate(p.ID, sub); err != ErrNotAuthorized {
		t.Errorf("self-validate err = %v, want ErrNotAuthorized", err)
	}

	granted, err := rewards.Validate(p.ID, dom)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if granted.Status != string(reward.StatusGranted) {
		t.Errorf("status = %s, want granted", granted.Status)
	}
	if granted.ValidatedBy == nil || *granted.ValidatedBy != dom {
		t.Errorf("validated_by = %v, want %d", granted.ValidatedBy, dom)
	}
	if granted.ValidatedAt == nil {
		t.Error("validated_at = nil, want set")
	}

	// Double validation is an illegal transition.
	if _, err := rewards.Validate(p.ID, dom); err != ErrInvalidTransition {
		t.Errorf("re-validate err = %v, want ErrInvalidTransition", err)
	}

	// Only the buyer marks it used.
	if _, err := rewards.MarkUsed(p.ID, dom); err != ErrNotAuthorized {
		t.Errorf("wrong user MarkUsed err = %v, want ErrNotAuthorized", err)
	}
	used, err := rewards.MarkUsed(p.ID, sub)
	if err != nil {
		t.Fatalf("mark used: %v", err)
	}
	if used.Status != string(reward.StatusUsed) {
		t.Errorf("status = %s, want used", used.Status)
	}

	// Used is terminal.
	if _, err := rewards.MarkUsed(p.ID, sub); err != ErrInvalidTransition {
		t.Errorf("re-use err = %v, want ErrInvalidTransition", err)
	}
}

func TestRewardRefuseRefunds(t *testing.T) {
	db := setupDB(t)
	dom, sub, _ := createTestPair(t, db)
	rewards := NewRewardStore(db)
	ledger := NewLedgerStore(db)

	r, err := rewards.Create("Movie night", "", 8, "general", dom, sub)
	if err != nil {
		t.Fatalf("create reward: %v", err)
	}
	seedPoints(t, db, sub, dom, 10)
	p, err := rewards.Purchase(r.ID, sub)
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}

	refused, err := rewards.Refuse(p.ID, dom, "not this week")
	if err != nil {
		t.Fatalf("refuse: %v", err)
	}
	if refused.Status != string(reward.StatusRefused) {
		t.Errorf("status = %s, want refused", refused.Status)
	}
	if refused.RefusalReason != "not this week" {
		t.Errorf("refusal reason = %q", refused.RefusalReason)
	}

	// The spent points came back as a new ledger row.
	if got := mustBalance(t, db, sub); got != 10 {
		t.Errorf("balance = %d, want 10 after refund", got)
	}
	list, err := ledger.ListByUser(sub, 1)
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	refund := list[0]
	if refund.Type != "reward" || refund.Points != 8 {
		t.Errorf("refund = %s/%d, want reward/8", refund.Type, refund.Points)
	}

	// Refused is terminal: no validate, no second refund.
	if _, err := rewards.Validate(p.ID, dom); err != ErrInvalidTransition {
		t.Errorf("validate after refuse err = %v, want ErrInvalidTransition", err)
	}
	if _, err := rewards.Refuse(p.ID, dom, "again"); err != ErrInvalidTransition {
		t.Errorf("re-refuse err = %v, want ErrInvalidTransition", err)
	}
	if got := mustBalance(t, db, sub); got != 10 {
		t.Errorf("balance = %d, want 10 after failed re-refuse", got)
	}
}

func TestRewardRefuseGuards(t *testing.T) {
	db := setupDB(t)
	dom, sub, _ := createTestPair(t, db)
	rewards := NewRewardStore(db)

	r, err := rewards.Create("Movie night", "", 8, "general", dom, sub)
	if err != nil {
		t.Fatalf("create reward: %v", err)
	}
	seedPoints(t, db, sub, dom, 10)
	p, err := rewards.Purchase(r.ID, sub)
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}

	if _, err := rewards.Refuse(p.ID, sub, ""); err != ErrNotAuthorized {
		t.Errorf("self-refuse err = %v, want ErrNotAuthorized", err)
	}
	if got := mustBalance(t, db, sub); got != 2 {
		t.Errorf("balance = %d, want 2", got)
	}
}

func TestRewardPriceSnapshot(t *testing.T) {
	db := setupDB(t)
	dom, sub, _ := createTestPair(t, db)
	rewards := NewRewardStore(db)

	r, err := rewards.Create("Movie night", "", 8, "general", dom, sub)
	if err != nil {
		t.Fatalf("create reward: %v", err)
	}
	seedPoints(t, db, sub, dom, 10)
	p, err := rewards.Purchase(r.ID, sub)
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}

	// Raising the price later does not change what was spent, and the refund
	// matches the snapshot.
	if _, err := rewards.Update(r.ID, "Movie night", "", 20, "general"); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := rewards.Refuse(p.ID, dom, "raincheck"); err != nil {
		t.Fatalf("refuse: %v", err)
	}
	if got := mustBalance(t, db, sub); got != 10 {
		t.Errorf("balance = %d, want 10", got)
	}
}
