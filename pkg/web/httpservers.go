// Package web serves flushes, status queries, health checks and metrics over HTTP.
package web

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/tilinna/clock"

	"github.com/atlassian/kairosrelay"
	"github.com/atlassian/kairosrelay/pkg/healthcheck"
)

// Relay is what the server delivers flushes to and queries the status of.
type Relay interface {
	OnFlush(ctx context.Context, ts time.Time, snap *kairosrelay.Snapshot)
	Status(write kairosrelay.StatusWriter)
}

// Server is the HTTP surface of the relay.
type Server struct {
	logger  logrus.FieldLogger
	address string
	Router  *mux.Router

	relay   Relay
	flushMu sync.Mutex // flushes never overlap
}

type route struct {
	path    string
	handler http.HandlerFunc
	method  string
	name    string
}

var done = struct{}{}

// NewServer creates a Server for relay. When gatherer is nil /metrics is not served.
func NewServer(
	logger logrus.FieldLogger,
	relay Relay,
	gatherer prometheus.Gatherer,
	address string,
	healthChecks []healthcheck.HealthcheckFunc,
	deepChecks []healthcheck.HealthcheckFunc,
) (*Server, error) {
	server := &Server{
		logger:  logger,
		address: address,
		relay:   relay,
	}

	hc := &healthChecker{
		logger:       logger,
		healthChecks: healthChecks,
		deepChecks:   deepChecks,
	}
	routes := []route{
		{path: "/v1/flush", handler: server.flush, method: "POST", name: "flush_post"},
		{path: "/status", handler: server.status, method: "GET", name: "status_get"},
		{path: "/healthcheck", handler: hc.healthCheck, method: "GET", name: "healthcheck_get"},
		{path: "/deepcheck", handler: hc.deepCheck, method: "GET", name: "deepcheck_get"},
	}
	if gatherer != nil {
		routes = append(routes, route{
			path:    "/metrics",
			handler: promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}).ServeHTTP,
			method:  "GET",
			name:    "metrics_get",
		})
	}

	router, err := createRoutes(routes)
	if err != nil {
		return nil, err
	}
	router.NotFoundHandler = server.logRequest(http.HandlerFunc(server.notFound))
	router.Use(server.logRequest)
	server.Router = router

	logger.WithFields(logrus.Fields{
		"address":        address,
		"enable-metrics": gatherer != nil,
		"healthchecks":   len(healthChecks),
		"deepchecks":     len(deepChecks),
	}).Info("created server")

	return server, nil
}

func (s *Server) notFound(w http.ResponseWriter, req *http.Request) {
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte("not found"))
}

func createRoutes(routes []route) (*mux.Router, error) {
	router := mux.NewRouter()

	for _, route := range routes {
		r := router.HandleFunc(route.path, route.handler).Methods(route.method).Name(route.name)
		if err := r.GetError(); err != nil {
			return nil, fmt.Errorf("error creating route %s: %v", route.name, err)
		}
	}

	return router, nil
}

func (s *Server) logRequest(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		logFields := logrus.Fields{
			"srcip": strings.Split(req.RemoteAddr, ":")[0],
			"path":  req.URL.Path,
		}
		if route := mux.CurrentRoute(req); route == nil {
			logFields["method"] = req.Method
		} else {
			logFields["route"] = route.GetName()
		}
		if source := req.Header.Get("X-Forwarded-For"); source != "" {
			logFields["forwarded_for"] = source
		}

		clck := clock.FromContext(req.Context())
		start := clck.Now()
		handler.ServeHTTP(w, req)
		dur := clck.Since(start)

		logFields["duration"] = float64(dur) / float64(time.Millisecond)
		s.logger.WithFields(logFields).Debug("request")
	})
}

// Run serves until ctx is done. Requests see the values of ctx, such as its clock.
func (s *Server) Run(ctx context.Context) {
	server := &http.Server{
		Addr:    s.address,
		Handler: s.Router,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	chStopped := make(chan struct{}, 1)
	go s.waitAndStop(ctx, server, chStopped)

	s.logger.WithField("address", server.Addr).Info("listening")

	err := server.ListenAndServe()
	if err != http.ErrServerClosed {
		s.logger.WithError(err).Error("web server failed")
		return
	}

	// Wait for graceful shutdown of existing connections
	select {
	case <-chStopped:
	case <-time.After(6 * time.Second):
		s.logger.Info("timeout waiting for webserver to stop")
	}
}

// waitAndStop gracefully shuts down server once ctx is done, and signals on chStopped. It
// does not signal if the server fails to shut down.
func (s *Server) waitAndStop(ctx context.Context, server *http.Server, chStopped chan<- struct{}) {
	<-ctx.Done()

	s.logger.Info("shutting down web server")
	timeoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := server.Shutdown(timeoutCtx)
	if err != nil {
		s.logger.WithError(err).Warn("failed to stop web server")
	}
	chStopped <- done
}
