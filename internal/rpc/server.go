// Package rpc exposes a data source over JSON-RPC 2.0 so that remote data
// sources in other processes can share one collection.
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"

	"github.com/charmbracelet/log"
	"github.com/sourcegraph/jsonrpc2"

	"github.com/idilsaglam/todolist/internal/datasource"
	"github.com/idilsaglam/todolist/internal/model"
)

var (
	errMethodNotFound = &jsonrpc2.Error{
		Code: jsonrpc2.CodeMethodNotFound, Message: "method not found"}
	errInvalidParams = &jsonrpc2.Error{
		Code: jsonrpc2.CodeInvalidParams, Message: "invalid params"}
)

// Server answers todo.* calls against a single data source shared by all
// connections.
type Server struct {
	src datasource.DataSource
	log *log.Logger
}

// NewServer returns a server for src. A nil logger discards output.
func NewServer(src datasource.DataSource, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Server{src: src, log: logger}
}

type method func(context.Context, json.RawMessage) (any, error)

// Handler routes requests to the data source.
func (s *Server) Handler() jsonrpc2.Handler {
	return s.routingHandler(map[string]method{
		datasource.MethodCreate: s.create,
		datasource.MethodFetch:  s.fetch,
		datasource.MethodRemove: s.remove,
		datasource.MethodUpdate: s.update,
	})
}

func (s *Server) routingHandler(methods map[string]method) jsonrpc2.Handler {
	return jsonrpc2.HandlerWithError(func(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
		fn, ok := methods[req.Method]
		if !ok {
			s.log.Warn("unknown method", "method", req.Method)
			return nil, errMethodNotFound
		}
		var params json.RawMessage
		if req.Params != nil {
			params = *req.Params
		}
		res, err := fn(ctx, params)
		if err != nil {
			s.log.Error("request failed", "method", req.Method, "err", err)
			return nil, toRPCError(err)
		}
		s.log.Debug("request", "method", req.Method)
		return res, nil
	})
}

func toRPCError(err error) error {
	var rpcErr *jsonrpc2.Error
	switch {
	case errors.As(err, &rpcErr):
		return rpcErr
	case errors.Is(err, datasource.ErrInvalidID):
		return &jsonrpc2.Error{Code: datasource.CodeInvalidID, Message: err.Error()}
	}
	return &jsonrpc2.Error{Code: jsonrpc2.CodeInternalError, Message: err.Error()}
}

func decode(params json.RawMessage, v any) error {
	if len(params) == 0 || string(params) == "null" {
		return nil
	}
	if err := json.Unmarshal(params, v); err != nil {
		return errInvalidParams
	}
	return nil
}

func (s *Server) create(ctx context.Context, params json.RawMessage) (any, error) {
	var in model.CreateInput
	if err := decode(params, &in); err != nil {
		return nil, err
	}
	return s.src.Create(ctx, in)
}

func (s *Server) fetch(ctx context.Context, _ json.RawMessage) (any, error) {
	return s.src.Fetch(ctx)
}

func (s *Server) remove(ctx context.Context, params json.RawMessage) (any, error) {
	var it model.Item
	if err := decode(params, &it); err != nil {
		return nil, err
	}
	return s.src.Remove(ctx, it)
}

func (s *Server) update(ctx context.Context, params json.RawMessage) (any, error) {
	var it model.Item
	if err := decode(params, &it); err != nil {
		return nil, err
	}
	return s.src.Update(ctx, it)
}

// ServeConn serves one stream until the peer disconnects or ctx is done.
func (s *Server) ServeConn(ctx context.Context, rwc io.ReadWriteCloser) {
	conn := jsonrpc2.NewConn(ctx,
		jsonrpc2.NewBufferedStream(rwc, jsonrpc2.VSCodeObjectCodec{}),
		s.Handler())
	select {
	case <-conn.DisconnectNotify():
	case <-ctx.Done():
		_ = conn.Close()
	}
}

// Serve accepts connections on ln until ctx is done. It closes ln.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()
	s.log.Info("serving", "addr", ln.Addr().String())
	for {
		nc, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		s.log.Debug("client connected", "remote", nc.RemoteAddr().String())
		go s.ServeConn(ctx, nc)
	}
}
