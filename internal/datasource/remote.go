package datasource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/idilsaglam/todolist/internal/model"
)

// JSON-RPC method names served by rpc.Server. Every result is the whole
// collection.
const (
	MethodCreate = "todo.create"
	MethodFetch  = "todo.fetch"
	MethodRemove = "todo.remove"
	MethodUpdate = "todo.update"
)

// CodeInvalidID is the JSON-RPC error code carrying ErrInvalidID.
const CodeInvalidID int64 = -32001

const dialTimeout = 5 * time.Second

// Remote talks to a todo RPC server. The update policy belongs to the
// server's store; StrictUpdate is ignored here.
type Remote struct {
	conn    *jsonrpc2.Conn
	latency time.Duration
}

var _ DataSource = (*Remote)(nil)

// DialRemote connects to the server at opts.Addr over TCP.
func DialRemote(opts Options) (*Remote, error) {
	if opts.Addr == "" {
		return nil, fmt.Errorf("remote data source: addr required")
	}
	nc, err := net.DialTimeout("tcp", opts.Addr, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", opts.Addr, err)
	}
	return NewRemote(nc, opts), nil
}

// NewRemote wraps an established stream. The Remote owns rwc.
func NewRemote(rwc io.ReadWriteCloser, opts Options) *Remote {
	conn := jsonrpc2.NewConn(context.Background(),
		jsonrpc2.NewBufferedStream(rwc, jsonrpc2.VSCodeObjectCodec{}),
		jsonrpc2.HandlerWithError(refuseCalls))
	return &Remote{conn: conn, latency: opts.Latency}
}

// The server never calls back into the client.
func refuseCalls(context.Context, *jsonrpc2.Conn, *jsonrpc2.Request) (any, error) {
	return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: "method not found"}
}

func (r *Remote) call(ctx context.Context, method string, params any) ([]model.Item, error) {
	if err := wait(ctx, r.latency); err != nil {
		return nil, err
	}
	var items []model.Item
	if err := r.conn.Call(ctx, method, params, &items); err != nil {
		var rpcErr *jsonrpc2.Error
		if errors.As(err, &rpcErr) && rpcErr.Code == CodeInvalidID {
			return nil, fmt.Errorf("%s: %w", rpcErr.Message, ErrInvalidID)
		}
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	if items == nil {
		items = []model.Item{}
	}
	return items, nil
}

func (r *Remote) Create(ctx context.Context, in model.CreateInput) ([]model.Item, error) {
	return r.call(ctx, MethodCreate, in)
}

func (r *Remote) Fetch(ctx context.Context) ([]model.Item, error) {
	return r.call(ctx, MethodFetch, nil)
}

func (r *Remote) Remove(ctx context.Context, it model.Item) ([]model.Item, error) {
	return r.call(ctx, MethodRemove, it)
}

func (r *Remote) Update(ctx context.Context, it model.Item) ([]model.Item, error) {
	return r.call(ctx, MethodUpdate, it)
}

func (r *Remote) Close() error { return r.conn.Close() }
