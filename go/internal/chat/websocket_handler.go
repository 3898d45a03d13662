package chat

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// WebSocketHandler handles WebSocket upgrade requests for league chat
type WebSocketHandler struct {
	connectionManager *ConnectionManager
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(cm *ConnectionManager) *WebSocketHandler {
	return &WebSocketHandler{
		connectionManager: cm,
	}
}

// HandleLeagueConnection handles WebSocket connections for a specific league
func (h *WebSocketHandler) HandleLeagueConnection(w http.ResponseWriter, r *http.Request) {
	leagueIDStr := r.URL.Query().Get("league_id")
	if leagueIDStr == "" {
		http.Error(w, "league_id is required", http.StatusBadRequest)
		return
	}

	leagueID, err := uuid.Parse(leagueIDStr)
	if err != nil {
		http.Error(w, "invalid league_id format", http.StatusBadRequest)
		return
	}

	// Extract user ID from query parameter or header
	// In production, this would come from JWT token or session
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		// For development, allow anonymous connections
		userID = "anonymous"
	}

	if err := h.connectionManager.UpgradeConnection(w, r, userID, leagueID); err != nil {
		log.Error().
			Err(err).
			Str("league_id", leagueID.String()).
			Str("user_id", userID).
			Msg("failed to upgrade WebSocket connection")
		http.Error(w, "failed to upgrade connection", http.StatusInternalServerError)
		return
	}

	// Connection is now handled by the connection manager
}

// HandleConnectionStats returns statistics about active connections
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	stats := h.connectionManager.GetConnectionStats()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		log.Error().Err(err).Msg("failed to write connection stats")
	}
}

// RegisterRoutes registers WebSocket routes with an HTTP mux
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/chat", h.HandleLeagueConnection)
	mux.HandleFunc("/ws/stats", h.HandleConnectionStats)
}
