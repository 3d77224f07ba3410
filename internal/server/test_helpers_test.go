package server

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"planning-poker/internal/config"
	"planning-poker/internal/poker"
	"planning-poker/internal/tree"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skipping test; listen unavailable: %v", err)
	}
	ts := &httptest.Server{
		Listener: listener,
		Config:   &http.Server{Handler: handler},
	}
	ts.Start()
	return ts
}

// newTestApp wires a server over an in-memory tree with heartbeats off.
func newTestApp(t *testing.T) (*Server, *poker.Service, *httptest.Server) {
	t.Helper()
	mem := tree.NewMemory()
	t.Cleanup(mem.Close)
	svc := poker.NewService(mem, poker.Options{})
	srv := New(svc, config.Default(), nil)
	ts := newTestServer(t, srv.Handler())
	t.Cleanup(ts.Close)
	return srv, svc, ts
}
