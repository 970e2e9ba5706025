package handler

import (
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/jmoreau/tether/internal/auth"
	"github.com/jmoreau/tether/internal/database"
	"github.com/jmoreau/tether/internal/model"
	"github.com/jmoreau/tether/internal/notify"
	"github.com/jmoreau/tether/internal/store"
	"github.com/jmoreau/tether/internal/websocket"
)

func setupLedgerHandler(t *testing.T) (*LedgerHandler, *sql.DB, int64, int64) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	users := store.NewUserStore(db)
	profiles := store.NewProfileStore(db)
	partnerships := store.NewPartnershipStore(db)

	domUser, err := users.Create("dom@example.com", "not-a-real-hash")
	if err != nil {
		t.Fatalf("create dominant: %v", err)
	}
	if _, err := profiles.Create(domUser.ID, "Alex", "dominant"); err != nil {
		t.Fatalf("create dominant profile: %v", err)
	}
	subUser, err := users.Create("sub@example.com", "not-a-real-hash")
	if err != nil {
		t.Fatalf("create submissive: %v", err)
	}
	if _, err := profiles.Create(subUser.ID, "Sam", "submissive"); err != nil {
		t.Fatalf("create submissive profile: %v", err)
	}

	p, err := partnerships.Propose(domUser.ID, subUser.ID, domUser.ID)
	if err != nil {
		t.Fatalf("propose partnership: %v", err)
	}
	if _, err := partnerships.Accept(p.ID, subUser.ID); err != nil {
		t.Fatalf("accept partnership: %v", err)
	}

	hub := websocket.NewHub(logger)
	notifier := notify.New(store.NewNotificationStore(db), store.NewPushStore(db), nil, hub, logger)
	h := NewLedgerHandler(store.NewLedgerStore(db), partnerships, notifier, hub, logger)
	return h, db, domUser.ID, subUser.ID
}

func adjustRequest(userID int64, role, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/points/adjust", strings.NewReader(body))
	ctx := auth.WithAuth(req.Context(), auth.AuthContext{UserID: userID, Role: role})
	return req.WithContext(ctx)
}

func TestAdjustRecordsPunishmentDebit(t *testing.T) {
	h, db, dom, sub := setupLedgerHandler(t)

	body := `{"user_id":` + strconv.FormatInt(sub, 10) + `,"points":-5,"type":"punishment","reason":"broke a rule"}`
	rec := httptest.NewRecorder()
	h.Adjust(rec, adjustRequest(dom, "dominant", body))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, http.StatusCreated, rec.Body.String())
	}

	var tx model.PointsTransaction
	if err := json.NewDecoder(rec.Body).Decode(&tx); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if tx.Type != "punishment" {
		t.Errorf("type = %q, want punishment", tx.Type)
	}
	if tx.Points != -5 {
		t.Errorf("points = %d, want -5", tx.Points)
	}
	if tx.UserID != sub || tx.CreatedBy != dom {
		t.Errorf("wrote user=%d by=%d, want user=%d by=%d", tx.UserID, tx.CreatedBy, sub, dom)
	}

	total, err := store.NewLedgerStore(db).SumPoints(sub)
	if err != nil {
		t.Fatalf("sum points: %v", err)
	}
	if total != -5 {
		t.Errorf("balance = %d, want -5", total)
	}
}

func TestAdjustSignMismatchRejected(t *testing.T) {
	h, db, dom, sub := setupLedgerHandler(t)

	body := `{"user_id":` + strconv.FormatInt(sub, 10) + `,"points":5,"type":"punishment","reason":"typo"}`
	rec := httptest.NewRecorder()
	h.Adjust(rec, adjustRequest(dom, "dominant", body))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	total, err := store.NewLedgerStore(db).SumPoints(sub)
	if err != nil {
		t.Fatalf("sum points: %v", err)
	}
	if total != 0 {
		t.Errorf("balance = %d, want 0", total)
	}
}

func TestAdjustRewardTypeRejected(t *testing.T) {
	h, _, dom, sub := setupLedgerHandler(t)

	body := `{"user_id":` + strconv.FormatInt(sub, 10) + `,"points":-5,"type":"reward","reason":"manual refund"}`
	rec := httptest.NewRecorder()
	h.Adjust(rec, adjustRequest(dom, "dominant", body))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestAdjustRequiresPartnership(t *testing.T) {
	h, _, dom, _ := setupLedgerHandler(t)

	// Target is not partnered with the caller.
	body := `{"user_id":9999,"points":-5,"type":"penalty","reason":"not my partner"}`
	rec := httptest.NewRecorder()
	h.Adjust(rec, adjustRequest(dom, "dominant", body))

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}
