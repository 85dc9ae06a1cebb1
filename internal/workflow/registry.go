package workflow

import (
	"context"
	"errors"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// OpenHook runs once for every newly opened project.
type OpenHook func(ctx context.Context, c *Coordinator) error

// Registry keeps one Coordinator per project id. All coordinators share the
// registry's bus.
type Registry struct {
	mu     sync.RWMutex
	byID   map[string]*Coordinator
	hooks  []OpenHook
	bus    Publisher
	logger *zap.Logger
	opts   []Option
}

func NewRegistry(bus Publisher, logger *zap.Logger, opts ...Option) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		byID:   make(map[string]*Coordinator),
		bus:    bus,
		logger: logger,
		opts:   opts,
	}
}

func (r *Registry) OnOpen(h OpenHook) {
	r.mu.Lock()
	r.hooks = append(r.hooks, h)
	r.mu.Unlock()
}

// Open returns the coordinator for info.ID, creating it on first use. Opening
// an existing project with the same parties is a no-op; a homeowner may be
// linked to a project that has none. Any other mismatch is ErrProjectConflict.
func (r *Registry) Open(ctx context.Context, info ProjectInfo) (*Coordinator, error) {
	if info.ID == "" || info.ContractorID == "" {
		return nil, errors.New("project id and contractor id are required")
	}

	r.mu.Lock()
	if c, ok := r.byID[info.ID]; ok {
		r.mu.Unlock()
		cur := c.Info()
		if cur.ContractorID != info.ContractorID {
			return nil, ErrProjectConflict
		}
		if info.HomeownerID != "" && info.HomeownerID != cur.HomeownerID {
			if err := c.LinkHomeowner(info.HomeownerID); err != nil {
				return nil, err
			}
			r.runHooks(ctx, c)
		}
		return c, nil
	}
	c := NewCoordinator(info, r.bus, r.logger, r.opts...)
	r.byID[info.ID] = c
	r.mu.Unlock()

	r.logger.Info("Project opened",
		zap.String("project_id", info.ID),
		zap.String("contractor_id", info.ContractorID),
		zap.String("homeowner_id", info.HomeownerID))
	r.runHooks(ctx, c)
	return c, nil
}

// runHooks is also called after a homeowner is linked so subscribers can pick
// up the new party. Hooks must tolerate being called more than once.
func (r *Registry) runHooks(ctx context.Context, c *Coordinator) {
	r.mu.RLock()
	hooks := append([]OpenHook(nil), r.hooks...)
	r.mu.RUnlock()

	for _, h := range hooks {
		if err := h(ctx, c); err != nil {
			r.logger.Error("Open hook failed",
				zap.String("project_id", c.ProjectID()),
				zap.Error(err))
		}
	}
}

func (r *Registry) Get(id string) (*Coordinator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byID[id]
	if !ok {
		return nil, ErrProjectNotFound
	}
	return c, nil
}

// IDs lists the open projects in lexical order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Strings(ids)
	return ids
}
