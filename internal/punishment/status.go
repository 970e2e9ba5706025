package punishment

import "fmt"

// AssignmentStatus is the state of a punishment assignment.
//
// assigned -> completed -> validated
//
// Only the assignee completes, only the original assigner validates, and no
// points transaction is attached at any stage: the cost is behavioral.
type AssignmentStatus string

const (
	StatusAssigned  AssignmentStatus = "assigned"
	StatusCompleted AssignmentStatus = "completed"
	StatusValidated AssignmentStatus = "validated"
)

var assignmentTransitions = map[AssignmentStatus]AssignmentStatus{
	StatusAssigned:  StatusCompleted,
	StatusCompleted: StatusValidated,
}

// ParseAssignmentStatus validates a raw status string.
func ParseAssignmentStatus(s string) (AssignmentStatus, error) {
	switch AssignmentStatus(s) {
	case StatusAssigned, StatusCompleted, StatusValidated:
		return AssignmentStatus(s), nil
	}
	return "", fmt.Errorf("unknown assignment status %q", s)
}

// CanTransition reports whether from -> to is a legal status change.
func CanTransition(from, to AssignmentStatus) bool {
	next, ok := assignmentTransitions[from]
	return ok && next == to
}
