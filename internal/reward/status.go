package reward

import "fmt"

// PurchaseStatus is the state of a reward purchase.
//
// pending -> granted -> used
// pending -> refused (terminal, always refunded)
type PurchaseStatus string

const (
	StatusPending PurchaseStatus = "pending"
	StatusGranted PurchaseStatus = "granted"
	StatusUsed    PurchaseStatus = "used"
	StatusRefused PurchaseStatus = "refused"
)

var purchaseTransitions = map[PurchaseStatus][]PurchaseStatus{
	StatusPending: {StatusGranted, StatusRefused},
	StatusGranted: {StatusUsed},
	StatusUsed:    nil,
	StatusRefused: nil,
}

// ParsePurchaseStatus validates a raw status string.
func ParsePurchaseStatus(s string) (PurchaseStatus, error) {
	switch PurchaseStatus(s) {
	case StatusPending, StatusGranted, StatusUsed, StatusRefused:
		return PurchaseStatus(s), nil
	}
	return "", fmt.Errorf("unknown purchase status %q", s)
}

// CanTransition reports whether from -> to is a legal status change.
func CanTransition(from, to PurchaseStatus) bool {
	for _, next := range purchaseTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are possible.
func Terminal(s PurchaseStatus) bool {
	return len(purchaseTransitions[s]) == 0
}
