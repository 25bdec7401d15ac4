package datasource

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/idilsaglam/todolist/internal/model"
)

const (
	bucketItems = "items"
	bucketMeta  = "meta"
	keySeeded   = "seeded"
)

// Bolt stores items in a bbolt bucket keyed by the bucket sequence, so a
// cursor walk yields insertion order and NextSequence never repeats.
type Bolt struct {
	db      *bolt.DB
	latency time.Duration
	strict  bool
}

var _ DataSource = (*Bolt)(nil)

// OpenBolt opens (or creates) the database at opts.Path, seeding it on first
// use.
func OpenBolt(opts Options) (*Bolt, error) {
	db, err := bolt.Open(opts.Path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt: %w", err)
	}
	s := &Bolt{db: db, latency: opts.Latency, strict: opts.StrictUpdate}
	err = db.Update(func(tx *bolt.Tx) error {
		items, err := tx.CreateBucketIfNotExists([]byte(bucketItems))
		if err != nil {
			return err
		}
		meta, err := tx.CreateBucketIfNotExists([]byte(bucketMeta))
		if err != nil {
			return err
		}
		if meta.Get([]byte(keySeeded)) != nil {
			return nil
		}
		for _, in := range opts.seed() {
			if _, err := putNew(items, in); err != nil {
				return err
			}
		}
		return meta.Put([]byte(keySeeded), []byte(time.Now().UTC().Format(time.RFC3339)))
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init bolt: %w", err)
	}
	return s, nil
}

func marshalSeq(seq uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, seq)
	return b
}

func putNew(b *bolt.Bucket, in model.CreateInput) (model.Item, error) {
	seq, err := b.NextSequence()
	if err != nil {
		return model.Item{}, err
	}
	it := model.Item{ID: strconv.FormatUint(seq, 10), Text: in.Text, IsComplete: in.IsComplete}
	v, err := json.Marshal(it)
	if err != nil {
		return model.Item{}, err
	}
	return it, b.Put(marshalSeq(seq), v)
}

func (s *Bolt) Create(ctx context.Context, in model.CreateInput) ([]model.Item, error) {
	items, err := s.mutate(ctx, func(b *bolt.Bucket) error {
		_, err := putNew(b, in)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("bolt create: %w", err)
	}
	return items, nil
}

func (s *Bolt) Fetch(ctx context.Context) ([]model.Item, error) {
	if err := wait(ctx, s.latency); err != nil {
		return nil, err
	}
	var items []model.Item
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		items, err = readAll(tx.Bucket([]byte(bucketItems)))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("bolt fetch: %w", err)
	}
	return items, nil
}

func (s *Bolt) Remove(ctx context.Context, it model.Item) ([]model.Item, error) {
	items, err := s.mutate(ctx, func(b *bolt.Bucket) error {
		seq, ok := parseID(it.ID)
		if !ok {
			return nil
		}
		return b.Delete(marshalSeq(seq))
	})
	if err != nil {
		return nil, fmt.Errorf("bolt remove: %w", err)
	}
	return items, nil
}

func (s *Bolt) Update(ctx context.Context, it model.Item) ([]model.Item, error) {
	items, err := s.mutate(ctx, func(b *bolt.Bucket) error {
		seq, ok := parseID(it.ID)
		if !ok || b.Get(marshalSeq(seq)) == nil {
			if s.strict {
				return invalidID(it.ID)
			}
			return nil
		}
		v, err := json.Marshal(it)
		if err != nil {
			return err
		}
		return b.Put(marshalSeq(seq), v)
	})
	if errors.Is(err, ErrInvalidID) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("bolt update: %w", err)
	}
	return items, nil
}

// mutate waits out the latency, then applies fn and reads the bucket back in
// one write transaction. An error from fn rolls the transaction back.
func (s *Bolt) mutate(ctx context.Context, fn func(b *bolt.Bucket) error) ([]model.Item, error) {
	if err := wait(ctx, s.latency); err != nil {
		return nil, err
	}
	var items []model.Item
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketItems))
		if err := fn(b); err != nil {
			return err
		}
		var err error
		items, err = readAll(b)
		return err
	})
	return items, err
}

func readAll(b *bolt.Bucket) ([]model.Item, error) {
	items := []model.Item{}
	c := b.Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		var it model.Item
		if err := json.Unmarshal(v, &it); err != nil {
			return nil, fmt.Errorf("item %d: %w", binary.BigEndian.Uint64(k), err)
		}
		items = append(items, it)
	}
	return items, nil
}

func (s *Bolt) Close() error { return s.db.Close() }
