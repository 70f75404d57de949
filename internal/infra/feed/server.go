package feed

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"dutchswap/internal/domain"
	"dutchswap/internal/infra"
	"dutchswap/internal/service"
)

const (
	subscriberBuffer = 64
	writeTimeout     = 10 * time.Second
)

// Server exposes the read-only observation surface: a websocket stream of
// auction events plus JSON snapshots of auctions, balances and metrics.
// State-mutating calls go through the service directly; this server never
// mutates anything.
type Server struct {
	svc      *service.AuctionService
	hub      *Hub
	upgrader websocket.Upgrader
}

// NewServer creates a feed server over the given service and hub.
func NewServer(svc *service.AuctionService, hub *Hub) *Server {
	return &Server{
		svc: svc,
		hub: hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Routes returns the HTTP handler for the feed.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.HandleFunc("GET /auctions", s.handleAuctions)
	mux.HandleFunc("GET /auctions/{id}", s.handleAuction)
	mux.HandleFunc("GET /auctions/{id}/price", s.handlePrice)
	mux.HandleFunc("GET /balances", s.handleBalances)
	mux.HandleFunc("GET /metrics", s.handleMetrics)
	return mux
}

type outboundMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("Feed upgrade failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	infra.GlobalMetrics.IncrementFeedClients()
	defer infra.GlobalMetrics.DecrementFeedClients()

	sub := s.hub.Subscribe(subscriberBuffer)
	defer s.hub.Unsubscribe(sub)

	// Drain reads so close frames are processed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case ev, ok := <-sub.C():
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			msg := outboundMessage{Type: ev.GetType(), Data: ev}
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		}
	}
}

func (s *Server) handleAuctions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.List())
}

func (s *Server) handleAuction(w http.ResponseWriter, r *http.Request) {
	snap, err := s.svc.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	price, err := s.svc.Price(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"auction_id": id,
		"price":      price.String(),
	})
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Balances())
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, infra.GlobalMetrics.Snapshot())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Feed encode failed", slog.Any("error", err))
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrUnknownAuction):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrNotStarted):
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
