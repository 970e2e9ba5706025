package store

import (
	"database/sql"
	"testing"
)

func TestNotificationLifecycle(t *testing.T) {
	db := setupDB(t)
	user := createTestUser(t, db, "a@example.com", "A", "switch")
	notifications := NewNotificationStore(db)

	n, err := notifications.Create(user, "Reward granted", "Movie night was approved", "reward")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if n.IsRead {
		t.Error("new notification is read")
	}

	count, err := notifications.CountUnread(user)
	if err != nil {
		t.Fatalf("count unread: %v", err)
	}
	if count != 1 {
		t.Errorf("unread = %d, want 1", count)
	}

	if err := notifications.MarkRead(n.ID, user); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	count, err = notifications.CountUnread(user)
	if err != nil {
		t.Fatalf("count unread: %v", err)
	}
	if count != 0 {
		t.Errorf("unread after read = %d, want 0", count)
	}
}

func TestNotificationOwnerScoping(t *testing.T) {
	db := setupDB(t)
	a := createTestUser(t, db, "a@example.com", "A", "switch")
	b := createTestUser(t, db, "b@example.com", "B", "switch")
	notifications := NewNotificationStore(db)

	n, err := notifications.Create(a, "Hi", "msg", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := notifications.MarkRead(n.ID, b); err != sql.ErrNoRows {
		t.Errorf("mark read by other user err = %v, want sql.ErrNoRows", err)
	}
	if err := notifications.Delete(n.ID, b); err != sql.ErrNoRows {
		t.Errorf("delete by other user err = %v, want sql.ErrNoRows", err)
	}
	if err := notifications.Delete(n.ID, a); err != nil {
		t.Errorf("delete by owner: %v", err)
	}
}

func TestNotificationUnreadFilter(t *testing.T) {
	db := setupDB(t)
	user := createTestUser(t, db, "a@example.com", "A", "switch")
	notifications := NewNotificationStore(db)

	for i := 0; i < 3; i++ {
		if _, err := notifications.Create(user, "n", "msg", ""); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	if err := notifications.MarkAllRead(user); err != nil {
		t.Fatalf("mark all read: %v", err)
	}
	if _, err := notifications.Create(user, "fresh", "msg", ""); err != nil {
		t.Fatalf("create: %v", err)
	}

	unread, err := notifications.ListByUser(user, true, 0)
	if err != nil {
		t.Fatalf("list unread: %v", err)
	}
	if len(unread) != 1 || unread[0].Title != "fresh" {
		t.Errorf("unread = %d, want the single fresh notification", len(unread))
	}

	all, err := notifications.ListByUser(user, false, 0)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("all = %d, want 4", len(all))
	}
}
