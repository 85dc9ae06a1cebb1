package relay

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"projectflow/contracts/mq"
	"projectflow/internal/model"
	"projectflow/internal/workflow"
	"projectflow/pkg/circuitbreaker"
	"projectflow/pkg/eventbus"
	"projectflow/pkg/outbox"
)

type sent struct {
	routingKey string
	eventType  string
	body       []byte
}

type mockPublisher struct {
	mu             sync.Mutex
	msgs           []sent
	PublishRawFunc func(ctx context.Context, routingKey, eventType string, body []byte) error
}

func (m *mockPublisher) PublishRaw(ctx context.Context, routingKey, eventType string, body []byte) error {
	if m.PublishRawFunc != nil {
		if err := m.PublishRawFunc(ctx, routingKey, eventType, body); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.msgs = append(m.msgs, sent{routingKey, eventType, body})
	m.mu.Unlock()
	return nil
}

type mockParker struct {
	events []*outbox.Event
	err    error
}

func (m *mockParker) Insert(_ context.Context, e *outbox.Event) error {
	if m.err != nil {
		return m.err
	}
	e.ID = int64(len(m.events) + 1)
	m.events = append(m.events, e)
	return nil
}

func setup(t *testing.T, pub *mockPublisher, breaker *circuitbreaker.CircuitBreaker) (*workflow.Registry, *Relay) {
	t.Helper()
	bus := eventbus.New(zap.NewNop())
	r := New(bus, pub, breaker, zap.NewNop())
	reg := workflow.NewRegistry(bus, zap.NewNop())
	reg.OnOpen(r.Attach)
	t.Cleanup(r.Close)
	return reg, r
}

func TestRelay_ForwardsProjectAndNotificationTopics(t *testing.T) {
	ctx := context.Background()
	pub := &mockPublisher{}
	reg, _ := setup(t, pub, nil)

	c, err := reg.Open(ctx, workflow.ProjectInfo{ID: "p1", ContractorID: "c1", HomeownerID: "h1"})
	if err != nil {
		t.Fatal(err)
	}
	m, err := c.ProposeMilestone(ctx, model.Actor{ID: "c1", Role: model.RoleContractor}, workflow.ProposeInput{Title: "Foundation", Amount: 5000})
	if err != nil {
		t.Fatal(err)
	}

	if len(pub.msgs) != 2 {
		t.Fatalf("published %d messages, want 2", len(pub.msgs))
	}
	if pub.msgs[0].routingKey != "project.p1.milestones" || pub.msgs[0].eventType != mq.TypeMilestoneProposed {
		t.Errorf("first = %s %s", pub.msgs[0].routingKey, pub.msgs[0].eventType)
	}
	if pub.msgs[1].routingKey != "user.h1.notifications" {
		t.Errorf("second routing key = %s", pub.msgs[1].routingKey)
	}

	evt, err := mq.Decode(pub.msgs[0].body)
	if err != nil {
		t.Fatal(err)
	}
	if p, ok := evt.(mq.MilestoneProposed); !ok || p.MilestoneID != m.ID {
		t.Fatalf("decoded = %#v", evt)
	}
	var flat map[string]any
	if err := json.Unmarshal(pub.msgs[1].body, &flat); err != nil {
		t.Fatal(err)
	}
	if flat["type"] != mq.TypeMilestoneProposed || flat["userId"] != "h1" {
		t.Fatalf("notification body = %v", flat)
	}
}

func TestRelay_AttachIsIdempotent(t *testing.T) {
	ctx := context.Background()
	reg, r := setup(t, &mockPublisher{}, nil)

	if _, err := reg.Open(ctx, workflow.ProjectInfo{ID: "p1", ContractorID: "c1"}); err != nil {
		t.Fatal(err)
	}
	if got := len(r.Topics()); got != 4 {
		t.Fatalf("topics = %d, want 4", got)
	}
	if _, err := reg.Open(ctx, workflow.ProjectInfo{ID: "p1", ContractorID: "c1", HomeownerID: "h1"}); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Open(ctx, workflow.ProjectInfo{ID: "p2", ContractorID: "c1", HomeownerID: "h1"}); err != nil {
		t.Fatal(err)
	}

	topics := r.Topics()
	sort.Strings(topics)
	want := []string{
		"project:p1:documents", "project:p1:messages", "project:p1:milestones",
		"project:p2:documents", "project:p2:messages", "project:p2:milestones",
		"user:c1:notifications", "user:h1:notifications",
	}
	if len(topics) != len(want) {
		t.Fatalf("topics = %v", topics)
	}
	for i := range want {
		if topics[i] != want[i] {
			t.Fatalf("topics = %v, want %v", topics, want)
		}
	}
}

func TestRelay_ParksEventsWhenBrokerFails(t *testing.T) {
	ctx := context.Background()
	pub := &mockPublisher{
		PublishRawFunc: func(context.Context, string, string, []byte) error {
			return errors.New("connection closed")
		},
	}
	reg, r := setup(t, pub, nil)
	parker := &mockParker{}
	r.WithOutbox(parker)

	c, err := reg.Open(ctx, workflow.ProjectInfo{ID: "p1", ContractorID: "c1"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.PostMessage(ctx, model.Actor{ID: "c1", Role: model.RoleContractor}, "hello"); err != nil {
		t.Fatalf("PostMessage() error = %v", err)
	}

	if len(parker.events) != 1 {
		t.Fatalf("parked %d events, want 1", len(parker.events))
	}
	e := parker.events[0]
	if e.Topic != "project:p1:messages" || e.RoutingKey != "project.p1.messages" || e.EventType != mq.TypeMessagePosted {
		t.Fatalf("parked = %+v", e)
	}
}

func TestRelay_OpenBreakerShortCircuits(t *testing.T) {
	ctx := context.Background()
	calls := 0
	pub := &mockPublisher{
		PublishRawFunc: func(context.Context, string, string, []byte) error {
			calls++
			return errors.New("broker down")
		},
	}
	breaker := circuitbreaker.NewCircuitBreaker(circuitbreaker.Config{
		FailureThreshold:    2,
		SuccessThreshold:    1,
		Timeout:             time.Hour,
		HalfOpenMaxRequests: 1,
	})
	reg, _ := setup(t, pub, breaker)

	c, err := reg.Open(ctx, workflow.ProjectInfo{ID: "p1", ContractorID: "c1"})
	if err != nil {
		t.Fatal(err)
	}
	actor := model.Actor{ID: "c1", Role: model.RoleContractor}
	for i := 0; i < 5; i++ {
		if _, err := c.PostMessage(ctx, actor, "ping"); err != nil {
			t.Fatalf("PostMessage() error = %v", err)
		}
	}

	if calls != 2 {
		t.Fatalf("broker called %d times, want 2 before the breaker opened", calls)
	}
	if breaker.GetState() != circuitbreaker.StateOpen {
		t.Fatalf("breaker state = %v, want open", breaker.GetState())
	}
}
