// cmd/a2a-ledger/metrics.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/kathir-ks/a2a-ledger/internal/observability"
	"github.com/kathir-ks/a2a-ledger/pkg/a2a"
	log "github.com/sirupsen/logrus"
)

// metricsServer exposes the driver's collectors while a loop runs.
type metricsServer struct {
	srv *http.Server
	ln  net.Listener
}

func serveMetrics(addr string) (*metricsServer, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener on %s: %w", addr, err)
	}
	router := mux.NewRouter()
	router.Handle(a2a.PathMetrics, observability.Handler()).Methods(http.MethodGet)

	m := &metricsServer{
		srv: &http.Server{Handler: router, ReadTimeout: 10 * time.Second},
		ln:  ln,
	}
	go func() {
		if err := m.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("Metrics server error: %v", err)
		}
	}()
	log.Infof("Serving driver metrics on http://%s%s", ln.Addr(), a2a.PathMetrics)
	return m, nil
}

func (m *metricsServer) Addr() string {
	return m.ln.Addr().String()
}

func (m *metricsServer) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.srv.Shutdown(ctx); err != nil {
		log.Warnf("Metrics server shutdown: %v", err)
	}
}
