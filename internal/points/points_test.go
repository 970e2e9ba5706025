package points

import (
	"math/rand"
	"testing"
)

func TestParseTransactionType(t *testing.T) {
	for _, valid := range []string{"bonus", "penalty", "reward", "punishment"} {
		got, err := ParseTransactionType(valid)
		if err != nil {
			t.Errorf("ParseTransactionType(%q): %v", valid, err)
		}
		if string(got) != valid {
			t.Errorf("ParseTransactionType(%q) = %q", valid, got)
		}
	}

	for _, invalid := range []string{"", "deduction", "BONUS", "credit"} {
		if _, err := ParseTransactionType(invalid); err == nil {
			t.Errorf("ParseTransactionType(%q): expected error", invalid)
		}
	}
}

func TestCheckSign(t *testing.T) {
	tests := []struct {
		txType  TransactionType
		points  int
		wantErr bool
	}{
		{TypeBonus, 10, false},
		{TypeBonus, 0, false},
		{TypeBonus, -5, true},
		{TypePenalty, -5, false},
		{TypePenalty, 5, true},
		{TypePunishment, -20, false},
		{TypePunishment, 1, true},
		{TypeReward, -30, false},
		{TypeReward, 30, false},
	}

	for _, tt := range tests {
		err := CheckSign(tt.txType, tt.points)
		if (err != nil) != tt.wantErr {
			t.Errorf("CheckSign(%s, %d) error = %v, wantErr %v", tt.txType, tt.points, err, tt.wantErr)
		}
	}
}

func TestSumOrderIndependent(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 20; i++ {
		amounts := make([]int, 50)
		for j := range amounts {
			amounts[j] = rng.Intn(201) - 100
		}
		want := Sum(amounts)

		shuffled := make([]int, len(amounts))
		copy(shuffled, amounts)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})

		if got := Sum(shuffled); got != want {
			t.Fatalf("Sum changed under reordering: %d != %d", got, want)
		}
	}
}

func TestSumAppend(t *testing.T) {
	amounts := []int{5, -3, 12}
	before := Sum(amounts)
	after := Sum(append(amounts, 7))
	if after-before != 7 {
		t.Errorf("appending 7 changed sum by %d", after-before)
	}
}
