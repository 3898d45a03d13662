package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/devpatel10/gully/go/internal/auction/engine"
	"github.com/devpatel10/gully/go/internal/auction/round"
)

func setupServer(services *Services) *http.Server {
	mux := http.NewServeMux()

	// Setup CORS middleware
	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})

	// Chat socket and admin routes
	services.WSHandler.RegisterRoutes(mux)
	registerAdminRoutes(mux, services)

	// Add health check endpoint
	setupHealthCheck(mux)

	// Wrap with CORS
	handler := c.Handler(mux)

	// Setup HTTP/2 server
	return &http.Server{
		Addr:    fmt.Sprintf(":%s", getEnv("PORT", "8080")),
		Handler: h2c.NewHandler(handler, &http2.Server{}),
	}
}

// registerAdminRoutes exposes the auction lifecycle verbs over plain
// HTTP for operators and bots that do not sit in the chat.
func registerAdminRoutes(mux *http.ServeMux, services *Services) {
	mux.HandleFunc("POST /admin/auction/start", adminHandler(services.Engine.Start))
	mux.HandleFunc("POST /admin/auction/next", adminHandler(services.Engine.Next))
	mux.HandleFunc("POST /admin/auction/finalize", adminHandler(services.Engine.Finalize))
	mux.HandleFunc("POST /admin/auction/reset", adminHandler(services.Engine.Reset))

	// Event lookup for operators chasing a delivery question.
	mux.HandleFunc("GET /admin/outbox/event", func(w http.ResponseWriter, r *http.Request) {
		eventID, err := uuid.Parse(r.URL.Query().Get("id"))
		if err != nil {
			http.Error(w, "invalid event id", http.StatusBadRequest)
			return
		}

		event, err := services.Outbox.GetEventByID(r.Context(), eventID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(event); err != nil {
			log.Printf("Failed to write outbox event response: %v", err)
		}
	})

	mux.HandleFunc("GET /admin/auction/session", func(w http.ResponseWriter, r *http.Request) {
		leagueID, err := leagueIDFromRequest(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		session := services.Engine.Session(leagueID)
		if session == nil {
			http.Error(w, "no auction session", http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(session); err != nil {
			log.Printf("Failed to write session response: %v", err)
		}
	})
}

func adminHandler(fn func(ctx context.Context, leagueID uuid.UUID) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		leagueID, err := leagueIDFromRequest(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		if err := fn(r.Context(), leagueID); err != nil {
			http.Error(w, err.Error(), statusForError(err))
			return
		}

		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Printf("Failed to write admin response: %v", err)
		}
	}
}

func leagueIDFromRequest(r *http.Request) (uuid.UUID, error) {
	raw := r.URL.Query().Get("league_id")
	if raw == "" {
		return uuid.Nil, errors.New("league_id is required")
	}
	leagueID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errors.New("invalid league_id format")
	}
	return leagueID, nil
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, engine.ErrNoActiveAuction):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrAuctionInProgress), errors.Is(err, round.ErrRoundInProgress):
		return http.StatusConflict
	case errors.Is(err, engine.ErrQueueExhausted):
		// Exhaustion on an explicit "next" is a normal completion.
		return http.StatusOK
	default:
		return http.StatusInternalServerError
	}
}

func setupHealthCheck(mux *http.ServeMux) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Printf("Failed to write health check response: %v", err)
		}
	})
}
