package rpc

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/idilsaglam/todolist/internal/datasource"
	"github.com/idilsaglam/todolist/internal/datasource/datasourcetest"
	"github.com/idilsaglam/todolist/internal/model"
)

// pipeRemote serves backing over an in-memory pipe and returns a client
// built with opts.
func pipeRemote(t *testing.T, backing datasource.DataSource, opts datasource.Options) *datasource.Remote {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	serverEnd, clientEnd := net.Pipe()
	srv := NewServer(backing, nil)
	done := make(chan struct{})
	go func() {
		defer close(done)
		srv.ServeConn(ctx, serverEnd)
	}()
	client := datasource.NewRemote(clientEnd, opts)
	t.Cleanup(func() {
		_ = client.Close()
		cancel()
		<-done
	})
	return client
}

func TestRemoteOverRPC(t *testing.T) {
	datasourcetest.Run(t, func(t *testing.T, opts datasource.Options) datasource.DataSource {
		// latency is simulated by the client so cancellation stops a call
		// before it is sent
		client := datasource.Options{Latency: opts.Latency}
		opts.Latency = 0
		return pipeRemote(t, datasource.NewEphemeral(opts), client)
	})
}

func TestRemote_SharesOneCollection(t *testing.T) {
	ctx := context.Background()
	backing := datasource.NewEphemeral(datasource.Options{Seed: []model.CreateInput{}})
	a := pipeRemote(t, backing, datasource.Options{})
	b := pipeRemote(t, backing, datasource.Options{})

	if _, err := a.Create(ctx, model.CreateInput{Text: "from a"}); err != nil {
		t.Fatalf("create via a: %v", err)
	}
	got, err := b.Fetch(ctx)
	if err != nil {
		t.Fatalf("fetch via b: %v", err)
	}
	want := []model.Item{{ID: "1", Text: "from a"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("shared collection (-want +got):\n%s", diff)
	}
}

func TestRemote_InvalidIDCrossesTheWire(t *testing.T) {
	backing := datasource.NewEphemeral(datasource.Options{StrictUpdate: true})
	client := pipeRemote(t, backing, datasource.Options{})
	_, err := client.Update(context.Background(), model.Item{ID: "99"})
	if !errors.Is(err, datasource.ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
}

func TestServe_AcceptsTCPClients(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	srv := NewServer(datasource.NewEphemeral(datasource.Options{}), nil)
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ctx, ln) }()

	src, err := datasource.New(datasource.KindRemote, datasource.Options{Addr: ln.Addr().String()})
	if err != nil {
		cancel()
		t.Fatalf("dial: %v", err)
	}
	items, err := src.Fetch(ctx)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected the 2 sample items, got %+v", items)
	}
	_ = src.Close()
	cancel()
	if err := <-errc; err != nil {
		t.Fatalf("serve: %v", err)
	}
}

func TestToRPCError(t *testing.T) {
	err := toRPCError(errors.New("boom"))
	if err.Error() == "" {
		t.Fatalf("expected message")
	}
	wrapped := toRPCError(errMethodNotFound)
	if wrapped != errMethodNotFound {
		t.Fatalf("expected jsonrpc2 errors to pass through, got %v", wrapped)
	}
}
