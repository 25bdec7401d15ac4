// Package service bridges a data source to a single observable list of items
// plus a loading flag for the initial fetch.
package service

import (
	"context"
	"io"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/idilsaglam/todolist/internal/datasource"
	"github.com/idilsaglam/todolist/internal/model"
)

// State is what observers see after each change.
type State struct {
	Loading bool
	Items   []model.Item
}

// TodoListService republishes the collection returned by every data source
// call. It does not catch, retry or recover from data source errors.
type TodoListService struct {
	src datasource.DataSource
	log *log.Logger

	start    sync.Once
	startErr error

	mu      sync.Mutex
	loading bool
	items   []model.Item
	subs    map[int]func(State)
	nextSub int
}

// Option configures a TodoListService.
type Option func(*TodoListService)

// WithLogger sets the logger used for operation traces.
func WithLogger(l *log.Logger) Option {
	return func(s *TodoListService) {
		if l != nil {
			s.log = l
		}
	}
}

// New returns a service in the loading state with no items. Call Start to
// issue the initial fetch.
func New(src datasource.DataSource, opts ...Option) *TodoListService {
	s := &TodoListService{
		src:     src,
		log:     log.New(io.Discard),
		loading: true,
		items:   []model.Item{},
		subs:    map[int]func(State){},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Start fetches the collection once. Later calls return the first result
// without fetching again. On failure the service stays in the loading state.
func (s *TodoListService) Start(ctx context.Context) error {
	s.start.Do(func() {
		s.log.Debug("initial fetch")
		items, err := s.src.Fetch(ctx)
		if err != nil {
			s.startErr = err
			return
		}
		s.publish(items, false)
	})
	return s.startErr
}

// Loading reports whether the initial fetch is still outstanding.
func (s *TodoListService) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Items returns a copy of the current collection.
func (s *TodoListService) Items() []model.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.items)
}

// State returns the current snapshot.
func (s *TodoListService) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{Loading: s.loading, Items: clone(s.items)}
}

// Subscribe registers fn to run after every state change and returns a
// function that removes it.
func (s *TodoListService) Subscribe(fn func(State)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *TodoListService) Create(ctx context.Context, in model.CreateInput) ([]model.Item, error) {
	s.log.Debug("create", "text", in.Text)
	return s.apply(s.src.Create(ctx, in))
}

func (s *TodoListService) Remove(ctx context.Context, it model.Item) ([]model.Item, error) {
	s.log.Debug("remove", "id", it.ID)
	return s.apply(s.src.Remove(ctx, it))
}

func (s *TodoListService) Update(ctx context.Context, it model.Item) ([]model.Item, error) {
	s.log.Debug("update", "id", it.ID)
	return s.apply(s.src.Update(ctx, it))
}

// ToggleComplete flips the completion flag of it.
func (s *TodoListService) ToggleComplete(ctx context.Context, it model.Item) ([]model.Item, error) {
	it.IsComplete = !it.IsComplete
	return s.Update(ctx, it)
}

// UpdateText replaces the text of it.
func (s *TodoListService) UpdateText(ctx context.Context, it model.Item, text string) ([]model.Item, error) {
	it.Text = text
	return s.Update(ctx, it)
}

func (s *TodoListService) apply(items []model.Item, err error) ([]model.Item, error) {
	if err != nil {
		s.log.Debug("data source error", "err", err)
		return nil, err
	}
	s.mu.Lock()
	loading := s.loading
	s.mu.Unlock()
	s.publish(items, loading)
	return items, nil
}

func (s *TodoListService) publish(items []model.Item, loading bool) {
	if items == nil {
		items = []model.Item{}
	}
	s.mu.Lock()
	s.items = items
	s.loading = loading
	st := State{Loading: loading, Items: clone(items)}
	subs := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()
	for _, fn := range subs {
		fn(st)
	}
}

func clone(items []model.Item) []model.Item {
	return append(make([]model.Item, 0, len(items)), items...)
}
