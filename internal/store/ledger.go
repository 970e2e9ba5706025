package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoreau/tether/internal/model"
	"github.com/jmoreau/tether/internal/points"
)

// LedgerStore owns the append-only points_transactions table. There is no
// update or delete path: corrections are new offsetting rows.
type LedgerStore struct {
	db *sql.DB
}

func NewLedgerStore(db *sql.DB) *LedgerStore {
	return &LedgerStore{db: db}
}

func scanTransaction(scanner interface{ Scan(...any) error }) (*model.PointsTransaction, error) {
	var t model.PointsTransaction
	var referenceID sql.NullInt64

	err := scanner.Scan(
		&t.ID, &t.UserID, &t.CreatedBy, &t.Points, &t.Type, &t.Reason,
		&referenceID, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if referenceID.Valid {
		t.ReferenceID = &referenceID.Int64
	}
	return &t, nil
}

const transactionCols = `id, user_id, created_by, points, type, reason, reference_id, created_at`

// Record appends a ledger entry. It performs no balance check; preconditions
// belong to the calling workflow.
func (s *LedgerStore) Record(userID, createdBy int64, amount int, txType points.TransactionType, reason string, referenceID *int64) (*model.PointsTransaction, error) {
	var refID sql.NullInt64
	if referenceID != nil {
		refID = sql.NullInt64{Int64: *referenceID, Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO points_transactions (user_id, created_by, points, type, reason, reference_id)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		userID, createdBy, amount, string(txType), reason, refID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *LedgerStore) GetByID(id int64) (*model.PointsTransaction, error) {
	row := s.db.QueryRow(`SELECT `+transactionCols+` FROM points_transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

func (s *LedgerStore) ListByUser(userID int64, limit int) ([]model.PointsTransaction, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT `+transactionCols+` FROM points_transactions
		 WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var transactions []model.PointsTransaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		transactions = append(transactions, *t)
	}
	return transactions, rows.Err()
}

// SumPoints computes the user's balance: the sum of all their transactions.
func (s *LedgerStore) SumPoints(userID int64) (int, error) {
	var total sql.NullInt64
	err := s.db.QueryRow(
		`SELECT COALESCE(SUM(points), 0) FROM points_transactions WHERE user_id = ?`,
		userID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum points: %w", err)
	}
	return int(total.Int64), nil
}

// GetBalance splits the user's ledger into earned and spent totals.
func (s *LedgerStore) GetBalance(userID int64) (*model.PointBalance, error) {
	var earned, spent sql.NullInt64
	err := s.db.QueryRow(
		`SELECT
			COALESCE(SUM(CASE WHEN points > 0 THEN points ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN points < 0 THEN -points ELSE 0 END), 0)
		 FROM points_transactions WHERE user_id = ?`,
		userID,
	).Scan(&earned, &spent)
	if err != nil {
		return nil, fmt.Errorf("sum balance: %w", err)
	}

	totalEarned := int(earned.Int64)
	totalSpent := int(spent.Int64)

	return &model.PointBalance{
		UserID:      userID,
		TotalEarned: totalEarned,
		TotalSpent:  totalSpent,
		Balance:     totalEarned - totalSpent,
	}, nil
}

// GetPartnerStats assembles the per-user dashboard summary.
func (s *LedgerStore) GetPartnerStats(userID int64, now time.Time) (*model.PartnerStats, error) {
	stats := &model.PartnerStats{UserID: userID}

	err := s.db.QueryRow(
		`SELECT display_name, role FROM profiles WHERE user_id = ?`, userID,
	).Scan(&stats.DisplayName, &stats.Role)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile for stats: %w", err)
	}

	balance, err := s.GetBalance(userID)
	if err != nil {
		return nil, err
	}
	stats.Balance = balance.Balance
	stats.TotalEarned = balance.TotalEarned
	stats.TotalSpent = balance.TotalSpent

	err = s.db.QueryRow(
		`SELECT COUNT(*) FROM habits WHERE assigned_to = ? AND is_active = 1`, userID,
	).Scan(&stats.HabitsAssigned)
	if err != nil {
		return nil, fmt.Errorf("count assigned habits: %w", err)
	}

	err = s.db.QueryRow(
		`SELECT COUNT(*) FROM habit_completions WHERE user_id = ?`, userID,
	).Scan(&stats.TotalCompletions)
	if err != nil {
		return nil, fmt.Errorf("count completions: %w", err)
	}

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	err = s.db.QueryRow(
		`SELECT COUNT(*) FROM habit_completions WHERE user_id = ? AND completed_at >= ?`,
		userID, dayStart.UTC(),
	).Scan(&stats.CompletionsToday)
	if err != nil {
		return nil, fmt.Errorf("count completions today: %w", err)
	}

	// Completion rate over the trailing week: completions vs. opportunities
	// (active daily habits x 7; weekly habits count once).
	var weekCompletions int
	weekStart := dayStart.AddDate(0, 0, -6)
	err = s.db.QueryRow(
		`SELECT COUNT(*) FROM habit_completions WHERE user_id = ? AND completed_at >= ?`,
		userID, weekStart.UTC(),
	).Scan(&weekCompletions)
	if err != nil {
		return nil, fmt.Errorf("count week completions: %w", err)
	}

	var daily, weekly int
	err = s.db.QueryRow(
		`SELECT
			COALESCE(SUM(CASE WHEN frequency IN ('daily', 'custom') THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN frequency = 'weekly' THEN 1 ELSE 0 END), 0)
		 FROM habits WHERE assigned_to = ? AND is_active = 1`,
		userID,
	).Scan(&daily, &weekly)
	if err != nil {
		return nil, fmt.Errorf("count habits by frequency: %w", err)
	}

	opportunities := daily*7 + weekly
	if opportunities > 0 {
		rate := float64(weekCompletions) / float64(opportunities)
		if rate > 1 {
			rate = 1
		}
		stats.WeekCompletionRate = rate
	}

	return stats, nil
}
