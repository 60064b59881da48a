package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// Pinger is any dependency that can be probed, such as *sql.DB via
// PingContext or a pgx pool.
type Pinger func(ctx context.Context) error

type Status struct {
	Healthy           bool     `json:"healthy"`
	DatabaseConnected bool     `json:"database_connected"`
	NATSConnected     bool     `json:"nats_connected"`
	ActiveRooms       int      `json:"active_rooms"`
	Connections       int      `json:"connections"`
	Errors            []string `json:"errors"`
}

// Checker reports on the server's dependencies. Unset dependencies are
// skipped.
type Checker struct {
	databases   map[string]Pinger
	natsConn    *nats.Conn
	activeRooms func() int
	connections func() int
}

func NewChecker(natsConn *nats.Conn, activeRooms, connections func() int) *Checker {
	return &Checker{
		databases:   make(map[string]Pinger),
		natsConn:    natsConn,
		activeRooms: activeRooms,
		connections: connections,
	}
}

// AddDatabase registers a database to ping under name.
func (h *Checker) AddDatabase(name string, ping Pinger) {
	h.databases[name] = ping
}

func (h *Checker) Check(ctx context.Context) Status {
	status := Status{
		Healthy:           true,
		DatabaseConnected: len(h.databases) > 0,
		Errors:            []string{},
	}

	for name, ping := range h.databases {
		if err := ping(ctx); err != nil {
			status.DatabaseConnected = false
			status.Healthy = false
			status.Errors = append(status.Errors, fmt.Sprintf("%s ping failed: %v", name, err))
		}
	}

	if h.natsConn != nil {
		status.NATSConnected = h.natsConn.IsConnected()
		if !status.NATSConnected {
			status.Healthy = false
			status.Errors = append(status.Errors, "NATS disconnected")
		}
	}

	if h.activeRooms != nil {
		status.ActiveRooms = h.activeRooms()
	}
	if h.connections != nil {
		status.Connections = h.connections()
	}
	return status
}

func (h *Checker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := h.Check(ctx)

	w.Header().Set("Content-Type", "application/json")
	if !status.Healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(status); err != nil {
		log.Error().Err(err).Msg("failed to write health response")
	}
}
