package notify

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"real-estate-matching/internal/models"
	"real-estate-matching/internal/push"

	"go.uber.org/zap"
)

type stubStore struct {
	mu            sync.Mutex
	tokens        map[string][]string
	listErr       error
	removeErr     error
	createErr     error
	removeCalls   int
	notifications []models.Notification
}

func newStubStore() *stubStore {
	return &stubStore{tokens: map[string][]string{}}
}

func (s *stubStore) ListPushTokens(ctx context.Context, userID string) ([]string, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return append([]string(nil), s.tokens[userID]...), nil
}

func (s *stubStore) RemovePushTokens(ctx context.Context, userID string, tokens []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeCalls++
	if s.removeErr != nil {
		return s.removeErr
	}
	drop := map[string]bool{}
	for _, t := range tokens {
		drop[t] = true
	}
	var kept []string
	for _, t := range s.tokens[userID] {
		if !drop[t] {
			kept = append(kept, t)
		}
	}
	s.tokens[userID] = kept
	return nil
}

func (s *stubStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = append(s.notifications, *n)
	return nil
}

// stubSender answers per token: "dead-*" tokens are unregistered, "flaky-*"
// tokens fail transiently, others succeed.
type stubSender struct {
	mu   sync.Mutex
	sent []push.Message
}

func (s *stubSender) Send(ctx context.Context, msg push.Message) (string, error) {
	s.mu.Lock()
	s.sent = append(s.sent, msg)
	s.mu.Unlock()

	switch {
	case len(msg.Token) >= 5 && msg.Token[:5] == "dead-":
		return "", fmt.Errorf("%w: requested entity was not found", push.ErrUnregistered)
	case len(msg.Token) >= 6 && msg.Token[:6] == "flaky-":
		return "", errors.New("unavailable")
	}
	return "msg-" + msg.Token, nil
}

func newTestDispatcher(store *stubStore, sender push.Sender) *Dispatcher {
	d := NewDispatcher(store, store, sender, zap.NewNop())
	d.newID = func() string { return "notif-1" }
	return d
}

func TestNotifyPrunesOnlyInvalidTokens(t *testing.T) {
	store := newStubStore()
	store.tokens["u1"] = []string{"good-1", "dead-1"}
	sender := &stubSender{}

	d := newTestDispatcher(store, sender)
	delivery := d.Notify(context.Background(), Push{
		UserID: "u1",
		Title:  "Nouvelle annonce correspondante !",
		Body:   "Un house à Kaloum correspond à votre recherche",
		Data:   map[string]string{"type": models.NotificationTypeMatch, "listingId": "l1", "requestId": "r1"},
	})

	if delivery.Err != nil {
		t.Fatalf("unexpected delivery error: %v", delivery.Err)
	}
	if got := store.tokens["u1"]; len(got) != 1 || got[0] != "good-1" {
		t.Fatalf("expected only good-1 to remain, got %v", got)
	}
	if len(store.notifications) != 1 {
		t.Fatalf("expected exactly one notification record, got %d", len(store.notifications))
	}
	n := store.notifications[0]
	if n.UserID != "u1" || n.Read || n.Data["listingId"] != "l1" {
		t.Fatalf("unexpected notification record: %+v", n)
	}
	if delivery.Count(OutcomeDelivered) != 1 || delivery.Count(OutcomeInvalid) != 1 {
		t.Fatalf("unexpected outcomes: %+v", delivery.Results)
	}
	if len(sender.sent) != 2 {
		t.Fatalf("expected a send per token, got %d", len(sender.sent))
	}
}

func TestNotifyKeepsTransientFailures(t *testing.T) {
	store := newStubStore()
	store.tokens["u1"] = []string{"flaky-1", "good-1", "dead-1", "dead-2"}

	d := newTestDispatcher(store, &stubSender{})
	delivery := d.Notify(context.Background(), Push{UserID: "u1", Title: "t", Body: "b"})

	remaining := append([]string(nil), store.tokens["u1"]...)
	sort.Strings(remaining)
	if len(remaining) != 2 || remaining[0] != "flaky-1" || remaining[1] != "good-1" {
		t.Fatalf("expected flaky-1 and good-1 to remain, got %v", remaining)
	}
	if store.removeCalls != 1 {
		t.Fatalf("expected a single prune update, got %d", store.removeCalls)
	}
	if len(delivery.Pruned) != 2 {
		t.Fatalf("expected two pruned tokens, got %v", delivery.Pruned)
	}
	if delivery.Count(OutcomeFailed) != 1 {
		t.Fatalf("expected one transient failure, got %+v", delivery.Results)
	}
}

func TestNotifyRecordsEvenWhenAllSendsFail(t *testing.T) {
	store := newStubStore()
	store.tokens["u1"] = []string{"flaky-1", "dead-1"}

	d := newTestDispatcher(store, &stubSender{})
	delivery := d.Notify(context.Background(), Push{UserID: "u1", Title: "t", Body: "b"})

	if len(store.notifications) != 1 {
		t.Fatalf("expected notification record, got %d", len(store.notifications))
	}
	if delivery.NotificationID != "notif-1" {
		t.Fatalf("expected notification id to be reported, got %q", delivery.NotificationID)
	}
}

func TestNotifyNoTokensIsNoop(t *testing.T) {
	store := newStubStore()
	sender := &stubSender{}

	d := newTestDispatcher(store, sender)
	delivery := d.Notify(context.Background(), Push{UserID: "nobody", Title: "t"})

	if delivery.Err != nil || delivery.Attempted() {
		t.Fatalf("expected silent no-op, got %+v", delivery)
	}
	if len(store.notifications) != 0 || len(sender.sent) != 0 {
		t.Fatal("expected no sends and no record")
	}
}

func TestNotifyTokenLoadFailure(t *testing.T) {
	store := newStubStore()
	store.listErr = errors.New("store unavailable")

	d := newTestDispatcher(store, &stubSender{})
	delivery := d.Notify(context.Background(), Push{UserID: "u1"})

	if delivery.Err == nil {
		t.Fatal("expected error to be reported")
	}
	if len(store.notifications) != 0 {
		t.Fatal("no record expected when tokens cannot be read")
	}
}

func TestNotifyPersistenceFailuresAreReported(t *testing.T) {
	store := newStubStore()
	store.tokens["u1"] = []string{"dead-1", "good-1"}
	store.removeErr = errors.New("write conflict")
	store.createErr = errors.New("insert failed")

	d := newTestDispatcher(store, &stubSender{})
	delivery := d.Notify(context.Background(), Push{UserID: "u1", Title: "t"})

	if delivery.Err == nil {
		t.Fatal("expected joined error")
	}
	if len(delivery.Pruned) != 0 || delivery.NotificationID != "" {
		t.Fatalf("nothing should be reported as persisted: %+v", delivery)
	}
	if delivery.Count(OutcomeDelivered) != 1 {
		t.Fatal("delivery to good token should still have happened")
	}
}

type panickySender struct{}

func (panickySender) Send(ctx context.Context, msg push.Message) (string, error) {
	if msg.Token == "bad" {
		panic("driver bug")
	}
	return "ok", nil
}

func TestNotifySenderPanicIsContained(t *testing.T) {
	store := newStubStore()
	store.tokens["u1"] = []string{"bad", "good"}

	d := newTestDispatcher(store, panickySender{})
	delivery := d.Notify(context.Background(), Push{UserID: "u1"})

	if delivery.Count(OutcomeFailed) != 1 || delivery.Count(OutcomeDelivered) != 1 {
		t.Fatalf("unexpected outcomes: %+v", delivery.Results)
	}
	if len(store.tokens["u1"]) != 2 {
		t.Fatal("panicking send must not prune the token")
	}
}
