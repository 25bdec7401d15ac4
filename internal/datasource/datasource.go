// Package datasource holds the item stores behind the todo list service.
//
// Every store hands back the whole collection after each operation, in
// insertion order, rather than the single item that changed. Stores are
// picked by Kind through New; adding a backend means adding a Kind and a case
// to New.
package datasource

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/idilsaglam/todolist/internal/model"
)

// DataSource is the capability set every store offers.
type DataSource interface {
	Create(ctx context.Context, in model.CreateInput) ([]model.Item, error)
	Fetch(ctx context.Context) ([]model.Item, error)
	Remove(ctx context.Context, it model.Item) ([]model.Item, error)
	Update(ctx context.Context, it model.Item) ([]model.Item, error)
	Close() error
}

// Kind tags a concrete store implementation.
type Kind string

const (
	KindEphemeral Kind = "ephemeral"
	KindJSON      Kind = "json"
	KindSQLite    Kind = "sqlite"
	KindBolt      Kind = "bolt"
	KindRemote    Kind = "remote"
)

// Kinds lists every kind New understands.
func Kinds() []Kind {
	return []Kind{KindEphemeral, KindJSON, KindSQLite, KindBolt, KindRemote}
}

// NeedsPath reports whether the kind stores its items in a local file.
func (k Kind) NeedsPath() bool {
	return k == KindJSON || k == KindSQLite || k == KindBolt
}

var (
	// ErrInvalidID is returned by Update under the strict policy when no item
	// has the given id.
	ErrInvalidID = errors.New("invalid item id")
	// ErrUnknownKind is returned by New and ParseKind for unregistered kinds.
	ErrUnknownKind = errors.New("unknown data source kind")
)

// ParseKind maps a user supplied name onto a Kind.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return KindEphemeral, nil
	}
	for _, k := range Kinds() {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Options configures a store. Backends ignore the fields they have no use for.
type Options struct {
	// Latency delays every read of the collection, emulating a slow network.
	Latency time.Duration
	// Seed is applied when the store is created fresh. A nil Seed means the
	// two sample items; an empty non-nil Seed means start empty.
	Seed []model.CreateInput
	// StrictUpdate makes Update fail with ErrInvalidID for unknown ids
	// instead of returning the collection unchanged.
	StrictUpdate bool
	// Path is the backing file for json, sqlite and bolt stores.
	Path string
	// Addr is the host:port of a todo RPC server for remote stores.
	Addr string
}

// DefaultSeed returns the sample items a store starts with when no seed list
// is configured.
func DefaultSeed() []model.CreateInput {
	return []model.CreateInput{
		{Text: "something", IsComplete: true},
		{Text: "Another thing"},
	}
}

func (o Options) seed() []model.CreateInput {
	if o.Seed == nil {
		return DefaultSeed()
	}
	return o.Seed
}

// New builds the store selected by kind.
func New(kind Kind, opts Options) (DataSource, error) {
	if kind.NeedsPath() && opts.Path == "" {
		return nil, fmt.Errorf("%s data source: path required", kind)
	}
	switch kind {
	case KindEphemeral, "":
		return NewEphemeral(opts), nil
	case KindJSON:
		return OpenJSON(opts)
	case KindSQLite:
		return OpenSQLite(opts)
	case KindBolt:
		return OpenBolt(opts)
	case KindRemote:
		return DialRemote(opts)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

// wait blocks for the simulated latency, giving up early if ctx is done.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func invalidID(id string) error {
	return fmt.Errorf("update %q: %w", id, ErrInvalidID)
}
