package store

import (
	"database/sql"
	"fmt"

	"github.com/jmoreau/tether/internal/model"
	"github.com/jmoreau/tether/internal/points"
	"github.com/jmoreau/tether/internal/reward"
)

type RewardStore struct {
	db *sql.DB
}

func NewRewardStore(db *sql.DB) *RewardStore {
	return &RewardStore{db: db}
}

func scanReward(scanner interface{ Scan(...any) error }) (*model.Reward, error) {
	var r model.Reward
	var active int

	err := scanner.Scan(
		&r.ID, &r.Title, &r.Description, &r.PointsCost, &r.Category,
		&r.CreatedBy, &r.ForUser, &active, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.IsActive = active != 0
	return &r, nil
}

const rewardCols = `id, title, description, points_cost, category, created_by, for_user, is_active, created_at`

func (s *RewardStore) Create(title, description string, pointsCost int, category string, createdBy, forUser int64) (*model.Reward, error) {
	result, err := s.db.Exec(
		`INSERT INTO rewards (title, description, points_cost, category, created_by, for_user)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		title, description, pointsCost, category, createdBy, forUser,
	)
	if err != nil {
		return nil, fmt.Errorf("insert reward: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *RewardStore) GetByID(id int64) (*model.Reward, error) {
	row := s.db.QueryRow(`SELECT `+rewardCols+` FROM rewards WHERE id = ?`, id)
	r, err := scanReward(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get reward: %w", err)
	}
	return r, nil
}

// ListForUser returns the rewards available to a user, active first.
func (s *RewardStore) ListForUser(userID int64) ([]model.Reward, error) {
	rows, err := s.db.Query(
		`SELECT `+rewardCols+` FROM rewards WHERE for_user = ? ORDER BY is_active DESC, points_cost ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list rewards: %w", err)
	}
	defer rows.Close()

	var rewards []model.Reward
	for rows.Next() {
		r, err := scanReward(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reward: %w", err)
		}
		rewards = append(rewards, *r)
	}
	return rewards, rows.Err()
}

func (s *RewardStore) Update(id int64, title, description string, pointsCost int, category string) (*model.Reward, error) {
	_, err := s.db.Exec(
		`UPDATE rewards SET title = ?, description = ?, points_cost = ?, category = ? WHERE id = ?`,
		title, description, pointsCost, category, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update reward: %w", err)
	}
	return s.GetByID(id)
}

func (s *RewardStore) SetActive(id int64, active bool) error {
	var a int
	if active {
		a = 1
	}
	if _, err := s.db.Exec(`UPDATE rewards SET is_active = ? WHERE id = ?`, a, id); err != nil {
		return fmt.Errorf("set reward active: %w", err)
	}
	return nil
}

// --- Purchase methods ---

func scanPurchase(scanner interface{ Scan(...any) error }) (*model.RewardPurchase, error) {
	var p model.RewardPurchase
	err := scanner.Scan(
		&p.ID, &p.RewardID, &p.UserID, &p.PointsSpent, &p.Status,
		&p.RefusalReason, &p.PurchasedAt, &p.ValidatedBy, &p.ValidatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

const purchaseCols = `id, reward_id, user_id, points_spent, status, refusal_reason, purchased_at, validated_by, validated_at`

// Purchase debits the reward's cost and opens a pending purchase. The balance
// check, debit, and purchase insert share one transaction, so the balance can
// never be spent twice.
func (s *RewardStore) Purchase(rewardID, userID int64) (*model.RewardPurchase, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRow(`SELECT `+rewardCols+` FROM rewards WHERE id = ?`, rewardID)
	r, err := scanReward(row)
	if err == sql.ErrNoRows {
		return nil, sql.ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("get reward: %w", err)
	}
	if !r.IsActive {
		return nil, ErrInactive
	}
	if r.ForUser != userID {
		return nil, ErrNotAuthorized
	}

	var balance int64
	err = tx.QueryRow(
		`SELECT COALESCE(SUM(points), 0) FROM points_transactions WHERE user_id = ?`,
		userID,
	).Scan(&balance)
	if err != nil {
		return nil, fmt.Errorf("sum points: %w", err)
	}
	if balance < int64(r.PointsCost) {
		return nil, ErrInsufficientPoints
	}

	result, err := tx.Exec(
		`INSERT INTO reward_purchases (reward_id, user_id, points_spent) VALUES (?, ?, ?)`,
		rewardID, userID, r.PointsCost,
	)
	if err != nil {
		return nil, fmt.Errorf("insert purchase: %w", err)
	}
	purchaseID, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	_, err = tx.Exec(
		`INSERT INTO points_transactions (user_id, created_by, points, type, reason, reference_id)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		userID, userID, -r.PointsCost, string(points.TypeReward),
		fmt.Sprintf("Reward purchased: %s", r.Title), purchaseID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert debit transaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.GetPurchase(purchaseID)
}

func (s *RewardStore) GetPurchase(id int64) (*model.RewardPurchase, error) {
	row := s.db.QueryRow(`SELECT `+purchaseCols+` FROM reward_purchases WHERE id = ?`, id)
	p, err := scanPurchase(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get purchase: %w", err)
	}
	return p, nil
}

func (s *RewardStore) ListPurchasesByUser(userID int64) ([]model.RewardPurchase, error) {
	rows, err := s.db.Query(
		`SELECT `+purchaseCols+` FROM reward_purchases WHERE user_id = ? ORDER BY purchased_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	defer rows.Close()

	var purchases []model.RewardPurchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, fmt.Errorf("scan purchase: %w", err)
		}
		purchases = append(purchases, *p)
	}
	return purchases, rows.Err()
}

// Validate moves a pending purchase to granted. Only the reward's creator may
// validate, and never their own purchase.
func (s *RewardStore) Validate(purchaseID, validatorID int64) (*model.RewardPurchase, error) {
	result, err := s.db.Exec(
		`UPDATE reward_purchases SET status = 'granted', validated_by = ?, validated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = 'pending' AND user_id != ?
		   AND reward_id IN (SELECT id FROM rewards WHERE created_by = ?)`,
		validatorID, purchaseID, validatorID, validatorID,
	)
	if err != nil {
		return nil, fmt.Errorf("validate purchase: %w", err)
	}
	if err := s.transitionError(result, purchaseID, reward.StatusGranted); err != nil {
		return nil, err
	}
	return s.GetPurchase(purchaseID)
}

// MarkUsed moves a granted purchase to used, by its buyer.
func (s *RewardStore) MarkUsed(purchaseID, userID int64) (*model.RewardPurchase, error) {
	result, err := s.db.Exec(
		`UPDATE reward_purchases SET status = 'used'
		 WHERE id = ? AND status = 'granted' AND user_id = ?`,
		purchaseID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("mark purchase used: %w", err)
	}
	if err := s.transitionError(result, purchaseID, reward.StatusUsed); err != nil {
		return nil, err
	}
	return s.GetPurchase(purchaseID)
}

// Refuse moves a pending purchase to refused and refunds the spent points in
// the same transaction. Refused purchases always refund.
func (s *RewardStore) Refuse(purchaseID, validatorID int64, reason string) (*model.RewardPurchase, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRow(`SELECT `+purchaseCols+` FROM reward_purchases WHERE id = ?`, purchaseID)
	p, err := scanPurchase(row)
	if err == sql.ErrNoRows {
		return nil, sql.ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("get purchase: %w", err)
	}
	if p.UserID == validatorID {
		return nil, ErrNotAuthorized
	}
	if !reward.CanTransition(reward.PurchaseStatus(p.Status), reward.StatusRefused) {
		return nil, ErrInvalidTransition
	}

	var title string
	var createdBy int64
	err = tx.QueryRow(`SELECT title, created_by FROM rewards WHERE id = ?`, p.RewardID).Scan(&title, &createdBy)
	if err != nil {
		return nil, fmt.Errorf("get reward: %w", err)
	}
	if createdBy != validatorID {
		return nil, ErrNotAuthorized
	}

	_, err = tx.Exec(
		`UPDATE reward_purchases SET status = 'refused', refusal_reason = ?, validated_by = ?, validated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		reason, validatorID, purchaseID,
	)
	if err != nil {
		return nil, fmt.Errorf("refuse purchase: %w", err)
	}

	_, err = tx.Exec(
		`INSERT INTO points_transactions (user_id, created_by, points, type, reason, reference_id)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.UserID, validatorID, p.PointsSpent, string(points.TypeReward),
		fmt.Sprintf("Reward refused: %s", title), purchaseID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert refund transaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.GetPurchase(purchaseID)
}

// transitionError distinguishes a missing purchase, an illegal status change,
// and a wrong actor after a conditional UPDATE matched no rows.
func (s *RewardStore) transitionError(result sql.Result, purchaseID int64, to reward.PurchaseStatus) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}

	p, err := s.GetPurchase(purchaseID)
	if err != nil {
		return err
	}
	if p == nil {
		return sql.ErrNoRows
	}
	if !reward.CanTransition(reward.PurchaseStatus(p.Status), to) {
		return ErrInvalidTransition
	}
	return ErrNotAuthorized
}
