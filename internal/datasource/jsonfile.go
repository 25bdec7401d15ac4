package datasource

import (
	"context"
	"sync"
	"time"

	"github.com/idilsaglam/todolist/internal/model"
	"github.com/idilsaglam/todolist/internal/store/jsonstore"
)

// JSONFile keeps the collection in memory and rewrites the whole file after
// each mutation.
type JSONFile struct {
	path    string
	latency time.Duration
	strict  bool

	mu    sync.Mutex
	items *collection
}

var _ DataSource = (*JSONFile)(nil)

// OpenJSON loads opts.Path, seeding and writing it when it does not exist.
func OpenJSON(opts Options) (*JSONFile, error) {
	s := &JSONFile{
		path:    opts.Path,
		latency: opts.Latency,
		strict:  opts.StrictUpdate,
		items:   newCollection(),
	}
	doc, found, err := jsonstore.Load(opts.Path)
	if err != nil {
		return nil, err
	}
	if !found {
		for _, in := range opts.seed() {
			s.items.add(in)
		}
		if err := s.save(); err != nil {
			return nil, err
		}
		return s, nil
	}
	for _, it := range doc.Items {
		s.items.put(it)
	}
	if doc.NextID > s.items.nextID {
		s.items.nextID = doc.NextID
	}
	return s, nil
}

func (s *JSONFile) save() error {
	return jsonstore.Save(s.path, jsonstore.Document{
		NextID: s.items.nextID,
		Items:  s.items.list(),
	})
}

func (s *JSONFile) Create(ctx context.Context, in model.CreateInput) ([]model.Item, error) {
	if err := wait(ctx, s.latency); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	it := s.items.add(in)
	if err := s.save(); err != nil {
		// roll back so memory matches the file; the id stays burnt
		s.items.remove(it.ID)
		return nil, err
	}
	return s.items.list(), nil
}

func (s *JSONFile) Fetch(ctx context.Context) ([]model.Item, error) {
	if err := wait(ctx, s.latency); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items.list(), nil
}

func (s *JSONFile) Remove(ctx context.Context, it model.Item) ([]model.Item, error) {
	if err := wait(ctx, s.latency); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.items.list()
	if s.items.remove(it.ID) {
		if err := s.save(); err != nil {
			s.restore(prev)
			return nil, err
		}
	}
	return s.items.list(), nil
}

func (s *JSONFile) Update(ctx context.Context, it model.Item) ([]model.Item, error) {
	if err := wait(ctx, s.latency); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, had := s.items.byID[it.ID]
	if !had {
		if s.strict {
			return nil, invalidID(it.ID)
		}
		return s.items.list(), nil
	}
	s.items.replace(it)
	if err := s.save(); err != nil {
		s.items.replace(prev)
		return nil, err
	}
	return s.items.list(), nil
}

func (s *JSONFile) restore(items []model.Item) {
	next := s.items.nextID
	s.items = newCollection()
	for _, it := range items {
		s.items.put(it)
	}
	s.items.nextID = next
}

func (s *JSONFile) Close() error { return nil }
