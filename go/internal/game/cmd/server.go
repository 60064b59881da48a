package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mcdev12/quizroyale/go/internal/game/adminrpc"
	"github.com/mcdev12/quizroyale/go/internal/game/gateway"
	"github.com/mcdev12/quizroyale/go/internal/game/health"
	"github.com/mcdev12/quizroyale/go/internal/game/metrics"
)

func setupServer(port string, games *gateway.Handler, admin *adminrpc.Service, prom *metrics.Prometheus, checker *health.Checker) *http.Server {
	mux := http.NewServeMux()

	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})

	// WebSocket and REST routes
	games.RegisterRoutes(mux)

	// Admin RPC
	mux.Handle(admin.Handler())

	mux.Handle("/metrics", prom.Handler())
	mux.Handle("/health", checker)

	return &http.Server{
		Addr:              fmt.Sprintf(":%s", port),
		Handler:           h2c.NewHandler(c.Handler(mux), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
