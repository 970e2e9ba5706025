package points

import "fmt"

// TransactionType is the closed set of ledger entry types.
//
// Conventions: bonus rows are positive credits (habit completions, shared-task
// awards, manual credits). Penalty and punishment rows are negative debits
// recorded by the partner. Reward rows carry purchase debits and refusal
// refunds, both referencing the purchase.
type TransactionType string

const (
	TypeBonus      TransactionType = "bonus"
	TypePenalty    TransactionType = "penalty"
	TypeReward     TransactionType = "reward"
	TypePunishment TransactionType = "punishment"
)

// ParseTransactionType validates a raw type string.
func ParseTransactionType(s string) (TransactionType, error) {
	switch TransactionType(s) {
	case TypeBonus, TypePenalty, TypeReward, TypePunishment:
		return TransactionType(s), nil
	}
	return "", fmt.Errorf("unknown transaction type %q", s)
}

// CheckSign rejects amounts whose sign contradicts the type convention.
// Reward transactions may go either way (debit on purchase, credit on refund).
func CheckSign(t TransactionType, points int) error {
	switch t {
	case TypeBonus:
		if points < 0 {
			return fmt.Errorf("bonus transaction must not be negative")
		}
	case TypePenalty, TypePunishment:
		if points > 0 {
			return fmt.Errorf("%s transaction must not be positive", t)
		}
	}
	return nil
}

// Sum totals a sequence of signed point amounts. The result is independent
// of ordering.
func Sum(amounts []int) int {
	total := 0
	for _, p := range amounts {
		total += p
	}
	return total
}
