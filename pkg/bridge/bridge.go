// Package bridge implements an out-of-process registry.FunctionRegistry
// that proxies CALL_EXTERNAL over a persistent WebSocket connection to a
// host-function daemon, for hosts that keep dialogue business logic in a
// separate process from the VM. The wire protocol is a JSON
// request/response pair per call, grounded on the teacher's daemon
// (cmd/tt's line-delimited Request/Response and HandleRequest dispatch)
// but carried over a socket instead of a subprocess pipe.
package bridge

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/chazu/dialogvm/pkg/value"
)

// request is one CALL_EXTERNAL proxied to the daemon.
type request struct {
	Name string      `json:"name"`
	Args []wireValue `json:"args"`
}

// response is the daemon's reply: at most one of Result or Error is set;
// a reply with neither set yields an Undefined result.
type response struct {
	Result *wireValue `json:"result,omitempty"`
	Error  string     `json:"error,omitempty"`
}

// wireValue is the JSON-safe rendering of a value.Value, since the
// dynamic tagged union has no direct JSON representation of its own.
type wireValue struct {
	Type   string      `json:"type"`
	Int    int32       `json:"int,omitempty"`
	Double float64     `json:"double,omitempty"`
	String string      `json:"string,omitempty"`
	Array  []wireValue `json:"array,omitempty"`
}

func toWire(v value.Value) wireValue {
	switch v.Tag {
	case value.Int:
		return wireValue{Type: "int", Int: v.I}
	case value.Double:
		return wireValue{Type: "double", Double: v.F}
	case value.String:
		return wireValue{Type: "string", String: v.S}
	case value.Array:
		var elems []value.Value
		if v.A != nil {
			elems = v.A.Elems
		}
		arr := make([]wireValue, len(elems))
		for i, e := range elems {
			arr[i] = toWire(e)
		}
		return wireValue{Type: "array", Array: arr}
	default:
		return wireValue{Type: "undefined"}
	}
}

func fromWire(w wireValue) value.Value {
	switch w.Type {
	case "int":
		return value.Int32(w.Int)
	case "double":
		return value.Float64(w.Double)
	case "string":
		return value.Str(w.String)
	case "array":
		elems := make([]value.Value, len(w.Array))
		for i, e := range w.Array {
			elems[i] = fromWire(e)
		}
		return value.NewArray(elems)
	default:
		return value.Nil
	}
}

// RemoteRegistry implements registry.FunctionRegistry by proxying every
// Invoke call to a WebSocket-connected host-function daemon. Calls are
// serialized behind a mutex: the VM itself never calls Invoke
// concurrently with itself, but a host embedding several VMs against
// one connection might.
type RemoteRegistry struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// Dial connects to a host-function daemon at addr (a ws:// or wss://
// URL) and returns a RemoteRegistry bound to that connection.
func Dial(addr string) (*RemoteRegistry, error) {
	conn, _, err := websocket.DefaultDialer.Dial(addr, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing host-function bridge at %s: %w", addr, err)
	}
	return &RemoteRegistry{conn: conn}, nil
}

// Close closes the underlying WebSocket connection.
func (r *RemoteRegistry) Close() error {
	return r.conn.Close()
}

// Invoke implements registry.FunctionRegistry: it sends a JSON request
// naming the function and its arguments, then blocks for the matching
// JSON response on the same connection.
func (r *RemoteRegistry) Invoke(name string, args []value.Value) (value.Value, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	wireArgs := make([]wireValue, len(args))
	for i, a := range args {
		wireArgs[i] = toWire(a)
	}

	if err := r.conn.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
		return value.Nil, fmt.Errorf("bridge: setting write deadline: %w", err)
	}
	if err := r.conn.WriteJSON(request{Name: name, Args: wireArgs}); err != nil {
		return value.Nil, fmt.Errorf("bridge: sending call to %q: %w", name, err)
	}

	var resp response
	if err := r.conn.SetReadDeadline(time.Now().Add(30 * time.Second)); err != nil {
		return value.Nil, fmt.Errorf("bridge: setting read deadline: %w", err)
	}
	if err := r.conn.ReadJSON(&resp); err != nil {
		return value.Nil, fmt.Errorf("bridge: reading response for %q: %w", name, err)
	}
	if resp.Error != "" {
		return value.Nil, fmt.Errorf("bridge: host function %q failed: %s", name, resp.Error)
	}
	if resp.Result == nil {
		return value.Nil, nil
	}
	return fromWire(*resp.Result), nil
}
