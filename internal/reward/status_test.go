package reward

import "testing"

func TestPurchaseTransitions(t *testing.T) {
	tests := []struct {
		from, to PurchaseStatus
		want     bool
	}{
		{StatusPending, StatusGranted, true},
		{StatusPending, StatusRefused, true},
		{StatusGranted, StatusUsed, true},

		{StatusPending, StatusUsed, false},
		{StatusPending, StatusPending, false},
		{StatusGranted, StatusPending, false},
		{StatusGranted, StatusRefused, false},
		{StatusUsed, StatusGranted, false},
		{StatusUsed, StatusPending, false},
		{StatusRefused, StatusPending, false},
		{StatusRefused, StatusGranted, false},
	}

	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	if Terminal(StatusPending) || Terminal(StatusGranted) {
		t.Error("pending and granted must not be terminal")
	}
	if !Terminal(StatusUsed) || !Terminal(StatusRefused) {
		t.Error("used and refused must be terminal")
	}
}

func TestParsePurchaseStatus(t *testing.T) {
	if _, err := ParsePurchaseStatus("granted"); err != nil {
		t.Errorf("ParsePurchaseStatus(granted): %v", err)
	}
	if _, err := ParsePurchaseStatus("rejected"); err == nil {
		t.Error("ParsePurchaseStatus(rejected): expected error")
	}
}
