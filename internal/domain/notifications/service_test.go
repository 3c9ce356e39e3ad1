package notifications

import (
	"context"
	"errors"
	"testing"
)

type fakeStore struct {
	created []Notification
	emails  map[string]string
	byUser  map[string][]string
}

func newStore() *fakeStore {
	return &fakeStore{emails: make(map[string]string), byUser: make(map[string][]string)}
}

func (f *fakeStore) CreateNotification(ctx context.Context, userID, ntype, title, body string) error {
	f.created = append(f.created, Notification{Type: ntype, Title: title, Body: body})
	f.byUser[userID] = append(f.byUser[userID], title)
	return nil
}

func (f *fakeStore) UserEmail(ctx context.Context, userID string) (string, error) {
	return f.emails[userID], nil
}

func (f *fakeStore) ListNotifications(ctx context.Context, userID string, limit, offset int) ([]Notification, error) {
	return nil, nil
}

func (f *fakeStore) CountUnread(ctx context.Context, userID string) (int, error) { return 0, nil }

func (f *fakeStore) MarkRead(ctx context.Context, userID, notificationID string) error { return nil }

func (f *fakeStore) MarkAllRead(ctx context.Context, userID string) error { return nil }

type fakeMailer struct {
	sent []string
	err  error
}

func (m *fakeMailer) Send(ctx context.Context, from, to, subject, body string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, to)
	return nil
}

func TestCreateSendsEmailWhenEnabled(t *testing.T) {
	store := newStore()
	store.emails["user-1"] = "user1@example.com"
	mailer := &fakeMailer{}
	svc := New(store, mailer, true, "hr@example.com")

	if err := svc.Create(context.Background(), "user-1", TypeLeaveApproved, "Leave approved", "Your request was approved"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.created) != 1 {
		t.Fatalf("expected stored notification, got %d", len(store.created))
	}
	if len(mailer.sent) != 1 || mailer.sent[0] != "user1@example.com" {
		t.Fatalf("expected one email, got %v", mailer.sent)
	}
}

func TestCreateSkipsEmailWhenDisabled(t *testing.T) {
	store := newStore()
	store.emails["user-1"] = "user1@example.com"
	mailer := &fakeMailer{}
	svc := New(store, mailer, false, "")

	if err := svc.Create(context.Background(), "user-1", TypeLeaveSubmitted, "New request", "4 days annual leave"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.created) != 1 {
		t.Fatal("in-app notification must still be stored")
	}
	if len(mailer.sent) != 0 {
		t.Fatalf("no email expected, got %v", mailer.sent)
	}
}

func TestCreateToleratesMailerFailure(t *testing.T) {
	store := newStore()
	store.emails["user-1"] = "user1@example.com"
	mailer := &fakeMailer{err: errors.New("relay down")}
	svc := New(store, mailer, true, "hr@example.com")

	if err := svc.Create(context.Background(), "user-1", TypeLeaveRejected, "Leave rejected", "See reason"); err != nil {
		t.Fatalf("email failure must not surface: %v", err)
	}
	if len(store.created) != 1 {
		t.Fatal("notification must be stored despite mailer failure")
	}
}

func TestCreateManyContinuesPastEmptyRecipient(t *testing.T) {
	store := newStore()
	svc := New(store, nil, false, "")

	svc.CreateMany(context.Background(), []string{"user-1", "", "user-2"}, TypeLeaveSubmitted, "New request", "body")
	if len(store.byUser["user-1"]) != 1 || len(store.byUser["user-2"]) != 1 {
		t.Fatalf("expected both real recipients notified: %+v", store.byUser)
	}
	if len(store.created) != 2 {
		t.Fatalf("empty recipient must be dropped, got %d rows", len(store.created))
	}
}
