package datasource_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/idilsaglam/todolist/internal/datasource"
	"github.com/idilsaglam/todolist/internal/datasource/datasourcetest"
	"github.com/idilsaglam/todolist/internal/model"
)

func TestEphemeral(t *testing.T) {
	datasourcetest.Run(t, func(t *testing.T, opts datasource.Options) datasource.DataSource {
		return datasource.NewEphemeral(opts)
	})
}

func TestEphemeral_FetchWaitsForLatency(t *testing.T) {
	src := datasource.NewEphemeral(datasource.Options{Latency: 30 * time.Millisecond})
	start := time.Now()
	if _, err := src.Fetch(context.Background()); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Fatalf("expected fetch to take at least 30ms, took %v", elapsed)
	}
}

func TestEphemeral_LatencyHonoursCancellation(t *testing.T) {
	src := datasource.NewEphemeral(datasource.Options{Latency: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := src.Fetch(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestEphemeral_ConcurrentCreatesGetDistinctIDs(t *testing.T) {
	src := datasource.NewEphemeral(datasource.Options{Seed: []model.CreateInput{}})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := src.Create(ctx, model.CreateInput{Text: "x"}); err != nil {
				t.Errorf("create: %v", err)
			}
		}()
	}
	wg.Wait()

	items, err := src.Fetch(ctx)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(items) != 50 {
		t.Fatalf("expected 50 items, got %d", len(items))
	}
	seen := map[string]bool{}
	for _, it := range items {
		if seen[it.ID] {
			t.Fatalf("duplicate id %q", it.ID)
		}
		seen[it.ID] = true
	}
}

func TestEphemeral_TimedOutCreateLeavesNoItem(t *testing.T) {
	src := datasource.NewEphemeral(datasource.Options{Seed: []model.CreateInput{}, Latency: 50 * time.Millisecond})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	if _, err := src.Create(ctx, model.CreateInput{Text: "x"}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context.DeadlineExceeded, got %v", err)
	}
	items, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("timed out create was applied: %+v", items)
	}
}
