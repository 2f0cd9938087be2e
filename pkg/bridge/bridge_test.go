package bridge

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/chazu/dialogvm/pkg/value"
)

var upgrader = websocket.Upgrader{}

// echoServer replies to every request by echoing back its first
// argument as the result, exercising the wireValue round trip for
// spec.md's "Bridge protocol" scenario (SPEC_FULL.md §8, test 9).
func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		for {
			var req request
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			if req.Name == "fail" {
				conn.WriteJSON(response{Error: "boom"})
				continue
			}
			if len(req.Args) == 0 {
				conn.WriteJSON(response{})
				continue
			}
			conn.WriteJSON(response{Result: &req.Args[0]})
		}
	}))
}

func wsURL(httpURL string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http")
}

func TestRemoteRegistryEchoRoundTrip(t *testing.T) {
	srv := echoServer(t)
	defer srv.Close()

	reg, err := Dial(wsURL(srv.URL))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer reg.Close()

	result, err := reg.Invoke("echo", []value.Value{value.Str("hello")})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if result.Tag != value.String || result.S != "hello" {
		t.Fatalf("result = %+v, want String(hello)", result)
	}

	result, err = reg.Invoke("echo", []value.Value{value.NewArray([]value.Value{value.Int32(1), value.Int32(2)})})
	if err != nil {
		t.Fatalf("Invoke (array): %v", err)
	}
	if result.Tag != value.Array || len(result.A.Elems) != 2 || result.A.Elems[1].I != 2 {
		t.Fatalf("array result = %+v", result)
	}
}

func TestRemoteRegistryHostError(t *testing.T) {
	srv := echoServer(t)
	defer srv.Close()

	reg, err := Dial(wsURL(srv.URL))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer reg.Close()

	if _, err := reg.Invoke("fail", nil); err == nil {
		t.Fatal("expected error for host function failure")
	}
}
