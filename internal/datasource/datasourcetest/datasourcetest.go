// Package datasourcetest checks that a data source honours the collection
// contract: ordering, id assignment, and full-collection results.
package datasourcetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/idilsaglam/todolist/internal/datasource"
	"github.com/idilsaglam/todolist/internal/model"
)

// Opener builds a fresh store for one subtest. Implementations register
// cleanup with t.
type Opener func(t *testing.T, opts datasource.Options) datasource.DataSource

// Run executes the suite against open.
func Run(t *testing.T, open Opener) {
	ctx := context.Background()
	empty := datasource.Options{Seed: []model.CreateInput{}}

	// mustOK(t)(src.Fetch(ctx)) fails t on error and returns the items.
	mustOK := func(t *testing.T) func([]model.Item, error) []model.Item {
		return func(items []model.Item, err error) []model.Item {
			t.Helper()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			return items
		}
	}

	t.Run("SeedsWithSamplesByDefault", func(t *testing.T) {
		src := open(t, datasource.Options{})
		got := mustOK(t)(src.Fetch(ctx))
		want := []model.Item{
			{ID: "1", Text: "something", IsComplete: true},
			{ID: "2", Text: "Another thing"},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("seed mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("SeedsWithSuppliedItems", func(t *testing.T) {
		src := open(t, datasource.Options{Seed: []model.CreateInput{{}}})
		got := mustOK(t)(src.Fetch(ctx))
		want := []model.Item{{ID: "1"}}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("seed mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("EmptySeedStartsEmpty", func(t *testing.T) {
		src := open(t, empty)
		if got := mustOK(t)(src.Fetch(ctx)); len(got) != 0 {
			t.Fatalf("expected empty collection, got %+v", got)
		}
	})

	t.Run("CreateAppliesDefaultsAndStartsAtOne", func(t *testing.T) {
		src := open(t, empty)
		got := mustOK(t)(src.Create(ctx, model.CreateInput{}))
		want := []model.Item{{ID: "1", Text: "", IsComplete: false}}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("create mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("CreateKeepsExistingItems", func(t *testing.T) {
		src := open(t, datasource.Options{Seed: []model.CreateInput{{Text: "testing 1"}}})
		before := mustOK(t)(src.Fetch(ctx))
		got := mustOK(t)(src.Create(ctx, model.CreateInput{Text: "testing 2"}))
		if len(got) != len(before)+1 {
			t.Fatalf("expected %d items, got %d", len(before)+1, len(got))
		}
		want := []model.Item{{ID: "1", Text: "testing 1"}, {ID: "2", Text: "testing 2"}}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("create mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("IDsAreNeverReused", func(t *testing.T) {
		src := open(t, empty)
		mustOK(t)(src.Create(ctx, model.CreateInput{Text: "a"}))
		items := mustOK(t)(src.Create(ctx, model.CreateInput{Text: "b"}))
		mustOK(t)(src.Remove(ctx, items[1]))
		mustOK(t)(src.Remove(ctx, items[0]))
		got := mustOK(t)(src.Create(ctx, model.CreateInput{Text: "c"}))
		want := []model.Item{{ID: "3", Text: "c"}}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("id reuse (-want +got):\n%s", diff)
		}
	})

	t.Run("FetchIsIdempotent", func(t *testing.T) {
		src := open(t, datasource.Options{Seed: []model.CreateInput{{Text: "a"}, {Text: "b"}}})
		first := mustOK(t)(src.Fetch(ctx))
		second := mustOK(t)(src.Fetch(ctx))
		if diff := cmp.Diff(first, second); diff != "" {
			t.Fatalf("fetch not idempotent (-first +second):\n%s", diff)
		}
	})

	t.Run("RemoveKeepsOrderOfTheRest", func(t *testing.T) {
		src := open(t, datasource.Options{Seed: []model.CreateInput{{Text: "a"}, {Text: "remove"}, {Text: "c"}}})
		items := mustOK(t)(src.Fetch(ctx))
		got := mustOK(t)(src.Remove(ctx, items[1]))
		want := []model.Item{items[0], items[2]}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("remove mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("RemoveUnknownIsNoop", func(t *testing.T) {
		src := open(t, datasource.Options{Seed: []model.CreateInput{{Text: "remain"}}})
		before := mustOK(t)(src.Fetch(ctx))
		got := mustOK(t)(src.Remove(ctx, model.Item{ID: "fake", Text: "remove"}))
		if diff := cmp.Diff(before, got); diff != "" {
			t.Fatalf("remove of unknown id changed collection (-want +got):\n%s", diff)
		}
	})

	t.Run("UpdateReplacesInPlace", func(t *testing.T) {
		src := open(t, datasource.Options{Seed: []model.CreateInput{{Text: "a"}, {Text: "update"}, {Text: "c"}}})
		items := mustOK(t)(src.Fetch(ctx))
		updated := model.Item{ID: items[1].ID, Text: "updated", IsComplete: true}
		got := mustOK(t)(src.Update(ctx, updated))
		want := []model.Item{items[0], updated, items[2]}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("update mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("UpdateUnknownIsNoopByDefault", func(t *testing.T) {
		src := open(t, datasource.Options{Seed: []model.CreateInput{{Text: "remain"}}})
		before := mustOK(t)(src.Fetch(ctx))
		got := mustOK(t)(src.Update(ctx, model.Item{ID: "fake", Text: "update"}))
		if diff := cmp.Diff(before, got); diff != "" {
			t.Fatalf("update of unknown id changed collection (-want +got):\n%s", diff)
		}
	})

	t.Run("UpdateUnknownFailsWhenStrict", func(t *testing.T) {
		src := open(t, datasource.Options{Seed: []model.CreateInput{{Text: "remain"}}, StrictUpdate: true})
		_, err := src.Update(ctx, model.Item{ID: "42", Text: "update"})
		if !errors.Is(err, datasource.ErrInvalidID) {
			t.Fatalf("expected ErrInvalidID, got %v", err)
		}
	})

	t.Run("CancelledMutationsHaveNoEffect", func(t *testing.T) {
		src := open(t, datasource.Options{Seed: []model.CreateInput{{Text: "keep"}}, Latency: 20 * time.Millisecond})
		before := mustOK(t)(src.Fetch(ctx))

		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		calls := map[string]func() ([]model.Item, error){
			"create": func() ([]model.Item, error) { return src.Create(cancelled, model.CreateInput{Text: "late"}) },
			"remove": func() ([]model.Item, error) { return src.Remove(cancelled, before[0]) },
			"update": func() ([]model.Item, error) {
				return src.Update(cancelled, model.Item{ID: before[0].ID, Text: "late", IsComplete: true})
			},
		}
		for name, call := range calls {
			if _, err := call(); !errors.Is(err, context.Canceled) {
				t.Fatalf("%s: expected context.Canceled, got %v", name, err)
			}
		}

		got := mustOK(t)(src.Fetch(ctx))
		if diff := cmp.Diff(before, got); diff != "" {
			t.Fatalf("cancelled calls changed the collection (-want +got):\n%s", diff)
		}
		after := mustOK(t)(src.Create(ctx, model.CreateInput{Text: "next"}))
		if id := after[len(after)-1].ID; id != "2" {
			t.Fatalf("cancelled create consumed an id: next id is %q", id)
		}
	})

	t.Run("Scenario", func(t *testing.T) {
		src := open(t, empty)
		steps := []struct {
			name string
			run  func() ([]model.Item, error)
			want []model.Item
		}{
			{"create a", func() ([]model.Item, error) { return src.Create(ctx, model.CreateInput{Text: "a"}) },
				[]model.Item{{ID: "1", Text: "a"}}},
			{"create b", func() ([]model.Item, error) { return src.Create(ctx, model.CreateInput{Text: "b"}) },
				[]model.Item{{ID: "1", Text: "a"}, {ID: "2", Text: "b"}}},
			{"remove 1", func() ([]model.Item, error) { return src.Remove(ctx, model.Item{ID: "1"}) },
				[]model.Item{{ID: "2", Text: "b"}}},
			{"update 2", func() ([]model.Item, error) {
				return src.Update(ctx, model.Item{ID: "2", Text: "b2", IsComplete: true})
			}, []model.Item{{ID: "2", Text: "b2", IsComplete: true}}},
		}
		for _, st := range steps {
			got := mustOK(t)(st.run())
			if diff := cmp.Diff(st.want, got); diff != "" {
				t.Fatalf("%s (-want +got):\n%s", st.name, diff)
			}
		}
	})
}
