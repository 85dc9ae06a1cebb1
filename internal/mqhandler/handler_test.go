package mqhandler

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	dbcontracts "projectflow/contracts/db"
	mqcontracts "projectflow/contracts/mq"
	"projectflow/internal/model"
	"projectflow/pkg/mq"
)

type mockNotificationStore struct {
	InsertFunc func(ctx context.Context, n *dbcontracts.Notification) (bool, error)
	rows       []*dbcontracts.Notification
}

func (m *mockNotificationStore) Insert(ctx context.Context, n *dbcontracts.Notification) (bool, error) {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, n)
	}
	m.rows = append(m.rows, n)
	return true, nil
}

type mockActivityStore struct {
	InsertFunc func(ctx context.Context, a *dbcontracts.ActivityLog) error
	rows       []*dbcontracts.ActivityLog
}

func (m *mockActivityStore) Insert(ctx context.Context, a *dbcontracts.ActivityLog) error {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, a)
	}
	m.rows = append(m.rows, a)
	return nil
}

// mockDeduper 用 map 模拟 redis SetNX
type mockDeduper struct {
	seen     map[string]bool
	released []string
}

func newMockDeduper() *mockDeduper {
	return &mockDeduper{seen: map[string]bool{}}
}

func (m *mockDeduper) AcquireOnce(_ context.Context, handler, id string) bool {
	key := handler + ":" + id
	if m.seen[key] {
		return false
	}
	m.seen[key] = true
	return true
}

func (m *mockDeduper) Release(_ context.Context, handler, id string) {
	delete(m.seen, handler+":"+id)
	m.released = append(m.released, id)
}

type mockRetryCounter struct {
	counts map[string]int64
}

func (m *mockRetryCounter) IncrementAndGet(_ context.Context, key string) (int64, error) {
	if m.counts == nil {
		m.counts = map[string]int64{}
	}
	m.counts[key]++
	return m.counts[key], nil
}

func (m *mockRetryCounter) Reset(_ context.Context, key string) error {
	delete(m.counts, key)
	return nil
}

func notificationDelivery(t *testing.T) mq.Delivery {
	t.Helper()
	amount := model.Amount(5000)
	body, err := mqcontracts.Encode(mqcontracts.Notification{
		ID:          "n-1",
		ProjectID:   "p1",
		Type:        mqcontracts.TypeMilestoneProposed,
		UserID:      "h1",
		From:        "c1",
		MilestoneID: "m1",
		Title:       "Foundation",
		Amount:      &amount,
		CreatedAt:   time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatal(err)
	}
	return mq.Delivery{RoutingKey: "user.h1.notifications", Body: body}
}

func TestNotificationHandler_StoresOnce(t *testing.T) {
	store := &mockNotificationStore{}
	h := NewNotificationHandler(store, newMockDeduper(), &mockRetryCounter{}, zap.NewNop())
	d := notificationDelivery(t)

	if err := h.Handle(context.Background(), d); err != nil {
		t.Fatal(err)
	}
	if err := h.Handle(context.Background(), d); err != nil {
		t.Fatal(err)
	}

	if len(store.rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(store.rows))
	}
	row := store.rows[0]
	if row.ID != "n-1" || row.UserID != "h1" || row.ProjectID != "p1" || row.MilestoneID != "m1" {
		t.Fatalf("row = %+v", row)
	}
	if row.Message != "New milestone proposed: Foundation (5000.00)" {
		t.Fatalf("message = %q", row.Message)
	}
}

func TestNotificationHandler_BadPayloadIsDeadLettered(t *testing.T) {
	h := NewNotificationHandler(&mockNotificationStore{}, newMockDeduper(), nil, zap.NewNop())
	err := h.Handle(context.Background(), mq.Delivery{Body: []byte(`{"id":`)})
	if !errors.Is(err, mq.ErrDeadLetter) {
		t.Fatalf("err = %v, want dead letter", err)
	}
}

func TestNotificationHandler_RetryableFailureReleasesDedup(t *testing.T) {
	calls := 0
	store := &mockNotificationStore{
		InsertFunc: func(context.Context, *dbcontracts.Notification) (bool, error) {
			calls++
			if calls == 1 {
				return false, errors.New("connection reset by peer")
			}
			return true, nil
		},
	}
	dedup := newMockDeduper()
	h := NewNotificationHandler(store, dedup, &mockRetryCounter{}, zap.NewNop())
	d := notificationDelivery(t)

	err := h.Handle(context.Background(), d)
	if err == nil || errors.Is(err, mq.ErrDeadLetter) {
		t.Fatalf("first attempt err = %v, want requeue", err)
	}
	if len(dedup.released) != 1 {
		t.Fatal("dedup key not released")
	}
	if err := h.Handle(context.Background(), d); err != nil {
		t.Fatalf("redelivery err = %v", err)
	}
	if calls != 2 {
		t.Fatalf("insert calls = %d, want 2", calls)
	}
}

func TestNotificationHandler_NonRetryableFailureIsAcked(t *testing.T) {
	store := &mockNotificationStore{
		InsertFunc: func(context.Context, *dbcontracts.Notification) (bool, error) {
			return false, errors.New("value too long")
		},
	}
	h := NewNotificationHandler(store, newMockDeduper(), &mockRetryCounter{}, zap.NewNop())
	if err := h.Handle(context.Background(), notificationDelivery(t)); err != nil {
		t.Fatalf("err = %v, want ack", err)
	}
}

func TestNotificationHandler_DeadLettersAfterMaxRetries(t *testing.T) {
	store := &mockNotificationStore{
		InsertFunc: func(context.Context, *dbcontracts.Notification) (bool, error) {
			return false, context.DeadlineExceeded
		},
	}
	h := NewNotificationHandler(store, newMockDeduper(), &mockRetryCounter{}, zap.NewNop())
	d := notificationDelivery(t)

	var err error
	for i := 0; i <= defaultMaxRetries; i++ {
		err = h.Handle(context.Background(), d)
		if i < defaultMaxRetries && (err == nil || errors.Is(err, mq.ErrDeadLetter)) {
			t.Fatalf("attempt %d: err = %v, want requeue", i+1, err)
		}
	}
	if !errors.Is(err, mq.ErrDeadLetter) {
		t.Fatalf("final err = %v, want dead letter", err)
	}
}

func TestActivityHandler_RecordsProjectEvents(t *testing.T) {
	store := &mockActivityStore{}
	h := NewActivityHandler(store, &mockRetryCounter{}, zap.NewNop())
	body, err := mqcontracts.Encode(mqcontracts.MilestoneAccepted{
		MilestoneID: "m1",
		By:          model.RoleHomeowner,
		Acceptance:  model.Acceptance{ContractorAccepted: true, HomeownerAccepted: true},
		Status:      model.StatusActive,
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := h.Handle(context.Background(), mq.Delivery{RoutingKey: "project.p-7.milestones", Body: body}); err != nil {
		t.Fatal(err)
	}
	if len(store.rows) != 1 {
		t.Fatalf("rows = %d", len(store.rows))
	}
	row := store.rows[0]
	if row.ProjectID != "p-7" || row.Kind != "milestones" || row.EventType != mqcontracts.TypeMilestoneAccepted || row.MilestoneID != "m1" {
		t.Fatalf("row = %+v", row)
	}
}

func TestActivityHandler_RejectsPoisonMessages(t *testing.T) {
	h := NewActivityHandler(&mockActivityStore{}, nil, zap.NewNop())
	tests := []mq.Delivery{
		{RoutingKey: "user.h1.notifications", Body: []byte(`{"type":"milestone_deleted"}`)},
		{RoutingKey: "project.p1.milestones", Body: []byte(`{"type":"no_such_event"}`)},
		{RoutingKey: "project.p1.milestones", Body: []byte(`not json`)},
	}
	for _, d := range tests {
		if err := h.Handle(context.Background(), d); !errors.Is(err, mq.ErrDeadLetter) {
			t.Errorf("Handle(%s, %s) err = %v, want dead letter", d.RoutingKey, d.Body, err)
		}
	}
}

func TestDescribe(t *testing.T) {
	fee := model.Amount(12.5)
	amount := model.Amount(100)
	tests := []struct {
		n    mqcontracts.Notification
		want string
	}{
		{mqcontracts.Notification{Type: mqcontracts.TypePaymentRequested, Title: "Roof", Amount: &amount, ApplicationFee: &fee}, "Payment requested for Roof: 100.00 (fee 12.50)"},
		{mqcontracts.Notification{Type: mqcontracts.TypeMilestoneProposed, Title: "Roof"}, "New milestone proposed: Roof (-)"},
		{mqcontracts.Notification{Type: mqcontracts.TypeDocumentUploaded, DocumentName: "plan.pdf"}, "New document shared: plan.pdf"},
		{mqcontracts.Notification{Type: "custom"}, "custom"},
	}
	for _, tt := range tests {
		if got := Describe(tt.n); got != tt.want {
			t.Errorf("Describe(%s) = %q, want %q", tt.n.Type, got, tt.want)
		}
	}
}
