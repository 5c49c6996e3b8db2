// Package guest implements the in-VM side of the command protocol: a
// listening socket that serves one framed connection at a time and a
// dispatcher that maps methods onto local actions.
package guest

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/voocel/pilot/logx"
	"github.com/voocel/pilot/schema"
	"github.com/voocel/pilot/wire"
)

// Handler executes one guest method.
type Handler func(ctx context.Context, params json.RawMessage) (any, error)

// Dispatcher maps method names onto handlers and turns one request into one
// response. Implementation failures never escape as panics or protocol
// breakage; they become execution-failed responses.
type Dispatcher struct {
	handlers map[string]Handler
}

// NewDispatcher creates an empty Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]Handler)}
}

// Register binds a method name to a handler. The vocabulary is closed:
// binding a name outside it is a programming error and panics at startup.
func (d *Dispatcher) Register(method string, h Handler) {
	if !schema.IsGuestTool(method) {
		panic(fmt.Sprintf("guest: %q is not in the guest tool vocabulary", method))
	}
	d.handlers[method] = h
}

// Methods returns the registered method names in sorted order.
func (d *Dispatcher) Methods() []string {
	methods := make([]string, 0, len(d.handlers))
	for m := range d.handlers {
		methods = append(methods, m)
	}
	sort.Strings(methods)
	return methods
}

// Handle dispatches one request and always produces a response addressed to
// the request's id.
func (d *Dispatcher) Handle(ctx context.Context, req wire.Request) (resp wire.Response) {
	defer func() {
		if r := recover(); r != nil {
			logx.Log.Error().Str("method", req.Method).Interface("panic", r).Msg("handler panicked")
			resp = wire.ErrorResponse(req.ID, wire.CodeExecutionFailed, "execution failed: %v", r)
		}
	}()

	if schema.IsHostTool(req.Method) {
		return wire.ErrorResponse(req.ID, wire.CodeHostOnlyTool, "host-only tool: %s", req.Method)
	}

	h, ok := d.handlers[req.Method]
	if !ok {
		return wire.ErrorResponse(req.ID, wire.CodeMethodNotFound, "method not found: %s", req.Method)
	}

	result, err := h(ctx, req.Params)
	if err != nil {
		return wire.ErrorResponse(req.ID, wire.CodeExecutionFailed, "%s", err.Error())
	}

	out, err := wire.NewResponse(req.ID, result)
	if err != nil {
		return wire.ErrorResponse(req.ID, wire.CodeInternal, "encode result: %v", err)
	}
	return out
}
