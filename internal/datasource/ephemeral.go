package datasource

import (
	"context"
	"sync"
	"time"

	"github.com/idilsaglam/todolist/internal/model"
)

// Ephemeral keeps items in process memory only. The collection lives as long
// as the value does.
type Ephemeral struct {
	latency time.Duration
	strict  bool

	mu    sync.Mutex
	items *collection
}

var _ DataSource = (*Ephemeral)(nil)

// NewEphemeral returns a store seeded from opts.
func NewEphemeral(opts Options) *Ephemeral {
	e := &Ephemeral{
		latency: opts.Latency,
		strict:  opts.StrictUpdate,
		items:   newCollection(),
	}
	for _, in := range opts.seed() {
		e.items.add(in)
	}
	return e
}

func (e *Ephemeral) Create(ctx context.Context, in model.CreateInput) ([]model.Item, error) {
	if err := wait(ctx, e.latency); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.items.add(in)
	return e.items.list(), nil
}

func (e *Ephemeral) Fetch(ctx context.Context) ([]model.Item, error) {
	if err := wait(ctx, e.latency); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.items.list(), nil
}

func (e *Ephemeral) Remove(ctx context.Context, it model.Item) ([]model.Item, error) {
	if err := wait(ctx, e.latency); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.items.remove(it.ID)
	return e.items.list(), nil
}

func (e *Ephemeral) Update(ctx context.Context, it model.Item) ([]model.Item, error) {
	if err := wait(ctx, e.latency); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.items.replace(it) && e.strict {
		return nil, invalidID(it.ID)
	}
	return e.items.list(), nil
}

func (e *Ephemeral) Close() error { return nil }
