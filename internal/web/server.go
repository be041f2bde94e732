package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"

	"netscope/internal/store"
	"netscope/internal/watchlist"
)

// Server exposes the packet store and alert state over HTTP and WebSocket.
type Server struct {
	store     *store.Store
	watchlist *watchlist.Watchlist
	hub       *Hub
	port      int
	logger    *log.Logger
	server    *http.Server
}

// NewServer creates a server; the hub starts running immediately.
func NewServer(st *store.Store, wl *watchlist.Watchlist, port int, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	hub := NewHub(logger)
	go hub.Run()

	return &Server{
		store:     st,
		watchlist: wl,
		hub:       hub,
		port:      port,
		logger:    logger,
	}
}

// Hub returns the broadcast hub, for publishing alerts and stats snapshots.
func (s *Server) Hub() *Hub { return s.hub }

// Start serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/api/packets", s.handlePackets)
	mux.HandleFunc("/api/alerts", s.handleAlerts)
	mux.HandleFunc("/api/ws", s.hub.ServeWs)

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: mux,
	}

	s.logger.Info("Starting web server", "port", s.port)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.server.Shutdown(shutdownCtx)
	}()

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.store.Stats())
}

func (s *Server) handlePackets(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	type packetView struct {
		Timestamp string `json:"timestamp"`
		Protocol  string `json:"protocol"`
		SrcIP     string `json:"src_ip"`
		DstIP     string `json:"dst_ip"`
		SrcPort   uint16 `json:"src_port"`
		DstPort   uint16 `json:"dst_port"`
		Hostname  string `json:"hostname,omitempty"`
		Category  string `json:"category,omitempty"`
		Summary   string `json:"summary"`
		WireLen   uint32 `json:"wire_len"`
	}

	records := s.store.Recent(limit)
	views := make([]packetView, 0, len(records))
	for i := range records {
		rec := &records[i]
		views = append(views, packetView{
			Timestamp: rec.TimestampString(),
			Protocol:  rec.ProtocolName(),
			SrcIP:     rec.SrcIP,
			DstIP:     rec.DstIP,
			SrcPort:   rec.SrcPort,
			DstPort:   rec.DstPort,
			Hostname:  rec.Hostname,
			Category:  rec.Category,
			Summary:   rec.Summary(),
			WireLen:   rec.WireLen,
		})
	}
	writeJSON(w, views)
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	if s.watchlist == nil {
		writeJSON(w, []watchlist.Alert{})
		return
	}
	writeJSON(w, s.watchlist.RecentAlerts(watchlist.MaxAlerts))
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
