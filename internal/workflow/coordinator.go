package workflow

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"projectflow/contracts/mq"
	"projectflow/internal/model"
	"projectflow/pkg/logger"
	"projectflow/pkg/metrics"
	"projectflow/pkg/otel"
)

// Publisher is the part of the event bus the coordinator needs. Publish must
// not fail or panic; subscriber failures stay on the bus side.
type Publisher interface {
	Publish(ctx context.Context, topic string, evt mq.Event)
}

// ProjectInfo identifies a project and its two parties. HomeownerID may be
// empty while no homeowner is linked.
type ProjectInfo struct {
	ID           string `json:"id"`
	ContractorID string `json:"contractorId"`
	HomeownerID  string `json:"homeownerId,omitempty"`
}

type Option func(*Coordinator)

func WithClock(now Clock) Option {
	return func(c *Coordinator) { c.clock = now }
}

func WithIDGenerator(gen IDGenerator) Option {
	return func(c *Coordinator) { c.newID = gen }
}

type outgoing struct {
	ctx   context.Context
	topic string
	evt   mq.Event
}

// Coordinator owns the milestones, documents and messages of one project.
// Operations are serialized: each one validates and mutates under the lock,
// then the events it produced are delivered in operation order after the lock
// is released, so subscribers may call back into the coordinator.
type Coordinator struct {
	mu       sync.Mutex
	project  *model.Project
	bus      Publisher
	logger   *zap.Logger
	clock    Clock
	newID    IDGenerator
	recorder *Recorder
	lastAt   time.Time

	outbox   []outgoing
	flushing bool
}

func NewCoordinator(info ProjectInfo, bus Publisher, log *zap.Logger, opts ...Option) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Coordinator{
		project: &model.Project{
			ID:           info.ID,
			ContractorID: info.ContractorID,
			HomeownerID:  info.HomeownerID,
			Milestones:   []*model.Milestone{},
			Documents:    []model.Document{},
			Messages:     []model.Message{},
		},
		bus:    bus,
		logger: log.With(zap.String("project_id", info.ID)),
		clock:  time.Now,
		newID:  newUUID,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.recorder = NewRecorder(c.now, c.newID)
	return c
}

// now never goes backwards, so changelog timestamps follow program order.
// Callers hold c.mu.
func (c *Coordinator) now() time.Time {
	t := c.clock()
	if t.Before(c.lastAt) {
		t = c.lastAt
	}
	c.lastAt = t
	return t
}

// ProjectID never changes after construction.
func (c *Coordinator) ProjectID() string {
	return c.project.ID
}

func (c *Coordinator) Info() ProjectInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ProjectInfo{
		ID:           c.project.ID,
		ContractorID: c.project.ContractorID,
		HomeownerID:  c.project.HomeownerID,
	}
}

// Snapshot returns a deep copy of the project state.
func (c *Coordinator) Snapshot() *model.Project {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.project.Clone()
}

// Milestone returns a copy of one milestone.
func (c *Coordinator) Milestone(id string) (*model.Milestone, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, m := c.findMilestone(id)
	if m == nil {
		return nil, false
	}
	return m.Clone(), true
}

// LinkHomeowner attaches a homeowner to a project created without one.
func (c *Coordinator) LinkHomeowner(homeownerID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.project.HomeownerID {
	case homeownerID:
		return nil
	case "":
		c.project.HomeownerID = homeownerID
		c.logger.Info("Homeowner linked", zap.String("homeowner_id", homeownerID))
		return nil
	default:
		return ErrProjectConflict
	}
}

func (c *Coordinator) ProposeMilestone(ctx context.Context, actor model.Actor, in ProposeInput) (*model.Milestone, error) {
	var created *model.Milestone
	err := c.run(ctx, "propose", actor, "", func(tx *opTx) error {
		m := newMilestone(c.newID(), actor.Role, in, c.now())
		appendEntry(m, c.recorder.Record(actor.ID, model.ActionPropose, map[string]any{
			"title":  m.Title,
			"amount": m.Amount.Float64(),
		}))
		c.project.Milestones = append(c.project.Milestones, m)
		created = m.Clone()

		tx.milestoneID = m.ID
		tx.publish(mq.MilestonesTopic(c.project.ID), mq.MilestoneProposed{MilestoneID: m.ID, Milestone: m.Clone()})
		tx.notify(mq.Notification{
			Type:        mq.TypeMilestoneProposed,
			MilestoneID: m.ID,
			Title:       m.Title,
			Amount:      amountPtr(m.Amount),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// AcceptMilestone records the actor's side of the mutual acceptance. Accepting
// twice is harmless apart from the extra changelog entry.
func (c *Coordinator) AcceptMilestone(ctx context.Context, actor model.Actor, milestoneID string) error {
	return c.run(ctx, "accept", actor, milestoneID, func(tx *opTx) error {
		_, m := c.findMilestone(milestoneID)
		if m == nil {
			return ErrMilestoneNotFound
		}
		if err := acceptMilestone(m, actor.Role); err != nil {
			return err
		}
		appendEntry(m, c.recorder.Record(actor.ID, model.ActionAccept, map[string]any{
			"by":     string(actor.Role),
			"status": string(m.Status),
		}))

		tx.publish(mq.MilestonesTopic(c.project.ID), mq.MilestoneAccepted{
			MilestoneID: m.ID,
			By:          actor.Role,
			Acceptance:  m.Acceptance,
			Status:      m.Status,
		})
		return nil
	})
}

func (c *Coordinator) RequestEditMilestone(ctx context.Context, actor model.Actor, milestoneID string, patch model.MilestonePatch) error {
	return c.run(ctx, "request_edit", actor, milestoneID, func(tx *opTx) error {
		_, m := c.findMilestone(milestoneID)
		if m == nil {
			return ErrMilestoneNotFound
		}
		if err := requestEdit(m, patch, actor.ID, c.now()); err != nil {
			return err
		}
		appendEntry(m, c.recorder.Record(actor.ID, model.ActionRequestEdit, map[string]any{
			"changes": patchDetails(patch),
		}))

		tx.publish(mq.MilestonesTopic(c.project.ID), mq.MilestoneEditRequested{MilestoneID: m.ID, Changes: patch.Clone()})
		tx.notify(mq.Notification{
			Type:        mq.TypeMilestoneEditRequested,
			MilestoneID: m.ID,
			Title:       m.Title,
		})
		return nil
	})
}

func (c *Coordinator) ConfirmEditMilestone(ctx context.Context, actor model.Actor, milestoneID string, accepted bool) error {
	return c.run(ctx, "confirm_edit", actor, milestoneID, func(tx *opTx) error {
		_, m := c.findMilestone(milestoneID)
		if m == nil {
			return ErrMilestoneNotFound
		}
		applied, err := confirmEdit(m, accepted)
		if err != nil {
			return err
		}
		appendEntry(m, c.recorder.Record(actor.ID, model.ActionConfirmEdit, map[string]any{
			"accepted": accepted,
			"applied":  patchDetails(applied),
		}))

		tx.publish(mq.MilestonesTopic(c.project.ID), mq.MilestoneEditConfirmed{MilestoneID: m.ID, Accepted: accepted})
		return nil
	})
}

func (c *Coordinator) RequestDeleteMilestone(ctx context.Context, actor model.Actor, milestoneID string) error {
	return c.run(ctx, "request_delete", actor, milestoneID, func(tx *opTx) error {
		_, m := c.findMilestone(milestoneID)
		if m == nil {
			return ErrMilestoneNotFound
		}
		if err := requestDelete(m, actor.ID, c.now()); err != nil {
			return err
		}
		appendEntry(m, c.recorder.Record(actor.ID, model.ActionRequestDelete, nil))

		tx.publish(mq.MilestonesTopic(c.project.ID), mq.MilestoneDeleteRequested{MilestoneID: m.ID})
		tx.notify(mq.Notification{
			Type:        mq.TypeMilestoneDeleteRequested,
			MilestoneID: m.ID,
			Title:       m.Title,
		})
		return nil
	})
}

// ConfirmDeleteMilestone resolves a pending delete. Accepting removes the
// milestone from the project entirely.
func (c *Coordinator) ConfirmDeleteMilestone(ctx context.Context, actor model.Actor, milestoneID string, accepted bool) error {
	return c.run(ctx, "confirm_delete", actor, milestoneID, func(tx *opTx) error {
		i, m := c.findMilestone(milestoneID)
		if m == nil {
			return ErrMilestoneNotFound
		}
		topic := mq.MilestonesTopic(c.project.ID)

		if accepted {
			if m.PendingDelete == nil {
				return ErrNoPendingNegotiation
			}
			ms := c.project.Milestones
			copy(ms[i:], ms[i+1:])
			ms[len(ms)-1] = nil
			c.project.Milestones = ms[:len(ms)-1]

			tx.publish(topic, mq.MilestoneDeleted{MilestoneID: milestoneID})
			return nil
		}

		if err := rejectDelete(m); err != nil {
			return err
		}
		appendEntry(m, c.recorder.Record(actor.ID, model.ActionConfirmDelete, map[string]any{
			"accepted": false,
		}))
		tx.publish(topic, mq.MilestoneDeleteConfirmed{MilestoneID: m.ID, Accepted: false})
		return nil
	})
}

func (c *Coordinator) UploadProgressImages(ctx context.Context, actor model.Actor, milestoneID string, images []ImageUpload) error {
	return c.run(ctx, "upload_images", actor, milestoneID, func(tx *opTx) error {
		_, m := c.findMilestone(milestoneID)
		if m == nil {
			return ErrMilestoneNotFound
		}
		now := c.now()
		added := make([]model.Attachment, 0, len(images))
		ids := make([]string, 0, len(images))
		for _, img := range images {
			a := model.Attachment{
				ID:         c.newID(),
				Name:       img.Name,
				URL:        img.URL,
				Type:       img.Type,
				UploadedAt: now,
			}
			added = append(added, a)
			ids = append(ids, a.ID)
		}
		attachImages(m, added)
		appendEntry(m, c.recorder.Record(actor.ID, model.ActionUploadImages, map[string]any{
			"count":  len(added),
			"images": ids,
		}))

		tx.publish(mq.MilestonesTopic(c.project.ID), mq.MilestoneImagesUploaded{
			MilestoneID: m.ID,
			Images:      append([]model.Attachment(nil), added...),
		})
		return nil
	})
}

// MarkMilestoneComplete does not require prior acceptance; any party may
// declare completion.
func (c *Coordinator) MarkMilestoneComplete(ctx context.Context, actor model.Actor, milestoneID string) error {
	return c.run(ctx, "mark_complete", actor, milestoneID, func(tx *opTx) error {
		_, m := c.findMilestone(milestoneID)
		if m == nil {
			return ErrMilestoneNotFound
		}
		if err := markComplete(m, c.now()); err != nil {
			return err
		}
		appendEntry(m, c.recorder.Record(actor.ID, model.ActionMarkComplete, map[string]any{
			"completedAt": m.CompletedAt.Format(time.RFC3339Nano),
		}))

		tx.publish(mq.MilestonesTopic(c.project.ID), mq.MilestoneCompleted{MilestoneID: m.ID, CompletedAt: *m.CompletedAt})
		tx.notify(mq.Notification{
			Type:        mq.TypeMilestoneCompleted,
			MilestoneID: m.ID,
			Title:       m.Title,
		})
		return nil
	})
}

// RequestPayment only announces the request; the milestone is not modified and
// no payment record is created here.
func (c *Coordinator) RequestPayment(ctx context.Context, actor model.Actor, milestoneID string, applicationFee model.Amount) error {
	return c.run(ctx, "request_payment", actor, milestoneID, func(tx *opTx) error {
		_, m := c.findMilestone(milestoneID)
		if m == nil {
			return ErrMilestoneNotFound
		}

		tx.publish(mq.MilestonesTopic(c.project.ID), mq.PaymentRequested{
			MilestoneID:    m.ID,
			Amount:         m.Amount,
			ApplicationFee: applicationFee,
		})
		tx.notify(mq.Notification{
			Type:           mq.TypePaymentRequested,
			MilestoneID:    m.ID,
			Title:          m.Title,
			Amount:         amountPtr(m.Amount),
			ApplicationFee: amountPtr(applicationFee),
		})
		return nil
	})
}

func (c *Coordinator) findMilestone(id string) (int, *model.Milestone) {
	for i, m := range c.project.Milestones {
		if m.ID == id {
			return i, m
		}
	}
	return -1, nil
}

func (c *Coordinator) partyID(role model.Role) string {
	switch role {
	case model.RoleContractor:
		return c.project.ContractorID
	case model.RoleHomeowner:
		return c.project.HomeownerID
	}
	return ""
}

func (c *Coordinator) checkActor(a model.Actor) error {
	if a.ID == "" || !a.Role.Valid() {
		return ErrUnknownActor
	}
	if c.partyID(a.Role) != a.ID {
		return ErrUnknownActor
	}
	return nil
}

// opTx collects the events of one operation. They are queued only if the
// operation succeeds.
type opTx struct {
	c           *Coordinator
	ctx         context.Context
	actor       model.Actor
	milestoneID string
	events      []outgoing
	// unchanged marks a successful call that left the project as it was.
	unchanged bool
}

func (tx *opTx) publish(topic string, evt mq.Event) {
	tx.events = append(tx.events, outgoing{ctx: tx.ctx, topic: topic, evt: evt})
}

// notify sends n to the counter-party of the acting actor. Nothing is sent when
// that party is not linked to the project.
func (tx *opTx) notify(n mq.Notification) {
	recipient := tx.c.partyID(tx.actor.Role.Counterparty())
	if recipient == "" {
		return
	}
	n.ID = tx.c.newID()
	n.ProjectID = tx.c.project.ID
	n.UserID = recipient
	n.From = tx.actor.ID
	n.CreatedAt = tx.c.now()
	tx.publish(mq.NotificationsTopic(recipient), n)
}

func (c *Coordinator) run(ctx context.Context, op string, actor model.Actor, milestoneID string, fn func(tx *opTx) error) error {
	ctx, span := otel.StartSpan(ctx, "workflow."+op, trace.WithAttributes(
		attribute.String("project.id", c.project.ID),
		attribute.String("actor.id", actor.ID),
		attribute.String("actor.role", string(actor.Role)),
	))
	defer span.End()

	tx := &opTx{c: c, ctx: ctx, actor: actor, milestoneID: milestoneID}

	c.mu.Lock()
	err := c.checkActor(actor)
	if err == nil {
		err = fn(tx)
	}
	if err == nil {
		c.outbox = append(c.outbox, tx.events...)
	}
	c.mu.Unlock()

	log := logger.WithTrace(ctx, c.logger).With(
		zap.String("op", op),
		zap.String("actor_id", actor.ID),
		zap.String("milestone_id", tx.milestoneID),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Info("Workflow operation rejected", zap.Error(err))
		return err
	}

	if tx.unchanged {
		log.Debug("Workflow operation changed nothing")
		return nil
	}
	metrics.IncMilestoneTransition(op)
	log.Info("Workflow operation applied", zap.Int("events", len(tx.events)))

	c.flush()
	return nil
}

// flush delivers queued events. Only one goroutine drains at a time; a
// re-entrant call from a subscriber just leaves its events for the active
// drain loop.
func (c *Coordinator) flush() {
	c.mu.Lock()
	if c.flushing {
		c.mu.Unlock()
		return
	}
	c.flushing = true
	c.mu.Unlock()

	for {
		c.mu.Lock()
		if len(c.outbox) == 0 {
			c.flushing = false
			c.mu.Unlock()
			return
		}
		o := c.outbox[0]
		c.outbox[0] = outgoing{}
		c.outbox = c.outbox[1:]
		c.mu.Unlock()

		c.bus.Publish(o.ctx, o.topic, o.evt)
	}
}

func amountPtr(a model.Amount) *model.Amount {
	return &a
}

func patchDetails(p model.MilestonePatch) map[string]any {
	d := map[string]any{}
	if p.Title != nil {
		d["title"] = *p.Title
	}
	if p.Description != nil {
		d["description"] = *p.Description
	}
	if p.EstimatedDate != nil {
		d["estimatedDate"] = p.EstimatedDate.Format(time.RFC3339)
	}
	if p.Amount != nil {
		d["amount"] = p.Amount.Float64()
	}
	return d
}
