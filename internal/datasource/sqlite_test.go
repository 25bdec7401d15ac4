package datasource_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/idilsaglam/todolist/internal/datasource"
	"github.com/idilsaglam/todolist/internal/datasource/datasourcetest"
	"github.com/idilsaglam/todolist/internal/model"
)

func TestSQLite(t *testing.T) {
	datasourcetest.Run(t, func(t *testing.T, opts datasource.Options) datasource.DataSource {
		opts.Path = filepath.Join(t.TempDir(), "todos.sqlite")
		src, err := datasource.OpenSQLite(opts)
		if err != nil {
			t.Fatalf("open sqlite: %v", err)
		}
		t.Cleanup(func() { _ = src.Close() })
		return src
	})
}

func TestSQLite_ReopenDoesNotReseed(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "todos.sqlite")

	src, err := datasource.OpenSQLite(datasource.Options{Path: path})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	items, err := src.Fetch(ctx)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if _, err := src.Remove(ctx, items[1]); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := src.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	again, err := datasource.OpenSQLite(datasource.Options{Path: path})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() { _ = again.Close() })
	got, err := again.Create(ctx, model.CreateInput{Text: "new"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	want := []model.Item{
		{ID: "1", Text: "something", IsComplete: true},
		{ID: "3", Text: "new"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("after reopen (-want +got):\n%s", diff)
	}
}
