package chat

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/devpatel10/gully/go/internal/auction/engine"
	"github.com/devpatel10/gully/go/internal/auction/release"
	"github.com/devpatel10/gully/go/internal/auction/round"
	"github.com/devpatel10/gully/go/internal/ledger"
)

// AuctionService defines what the command router needs from the auction
// engine.
type AuctionService interface {
	Start(ctx context.Context, leagueID uuid.UUID) error
	Next(ctx context.Context, leagueID uuid.UUID) error
	Finalize(ctx context.Context, leagueID uuid.UUID) error
	Reset(ctx context.Context, leagueID uuid.UUID) error
	HandleBid(ctx context.Context, leagueID, participantID uuid.UUID) error
	HandleSkip(ctx context.Context, leagueID, participantID uuid.UUID) error
	SelectForRelease(ctx context.Context, leagueID, participantID, playerID uuid.UUID) error
	Deselect(ctx context.Context, leagueID, participantID, playerID uuid.UUID) error
	SubmitRelease(ctx context.Context, leagueID, participantID uuid.UUID, playerIDs []uuid.UUID) error
}

// ClientMessage is the envelope clients send over the chat socket. Plain
// chat text carries the bid/skip keywords; structured actions carry
// player ids for the release window and admin verbs.
type ClientMessage struct {
	Type      string   `json:"type"` // "message" or "action"
	Text      string   `json:"text,omitempty"`
	Action    string   `json:"action,omitempty"`
	PlayerIDs []string `json:"player_ids,omitempty"`
}

// Router turns inbound chat messages into auction engine calls. Messages
// that are not commands (ordinary chatter) are ignored; a chat surface
// must tolerate arbitrary text.
type Router struct {
	service  AuctionService
	store    ledger.Store
	notifier *Notifier

	// admins maps league id to the chat identity allowed to run admin
	// verbs.
	mu     sync.RWMutex
	admins map[uuid.UUID]string

	// identity cache: league id -> messaging user id -> participant id.
	// Refreshed on miss; participants do not change mid-auction.
	idCache map[uuid.UUID]map[string]uuid.UUID
}

func NewRouter(service AuctionService, store ledger.Store, notifier *Notifier) *Router {
	return &Router{
		service:  service,
		store:    store,
		notifier: notifier,
		admins:   make(map[uuid.UUID]string),
		idCache:  make(map[uuid.UUID]map[string]uuid.UUID),
	}
}

// SetAdmin registers the chat identity allowed to run admin verbs for a
// league.
func (r *Router) SetAdmin(leagueID uuid.UUID, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.admins[leagueID] = userID
}

// Handle is the ConnectionManager inbound hook.
func (r *Router) Handle(ctx context.Context, leagueID uuid.UUID, userID string, raw []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		// Not an envelope; treat the whole frame as chat text.
		msg = ClientMessage{Type: "message", Text: string(raw)}
	}

	switch msg.Type {
	case "message":
		r.handleText(ctx, leagueID, userID, msg.Text)
	case "action":
		r.handleAction(ctx, leagueID, userID, msg)
	default:
		log.Debug().
			Str("league_id", leagueID.String()).
			Str("type", msg.Type).
			Msg("ignoring unknown client message type")
	}
}

// handleText matches the bid/skip keywords and the admin verbs. Anything
// else is ordinary chatter and is left alone.
func (r *Router) handleText(ctx context.Context, leagueID uuid.UUID, userID, text string) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "bid":
		participantID, ok := r.resolveParticipant(ctx, leagueID, userID)
		if !ok {
			return
		}
		if err := r.service.HandleBid(ctx, leagueID, participantID); err != nil {
			r.reportCommandError(ctx, leagueID, "bid", err)
		}
	case "skip":
		participantID, ok := r.resolveParticipant(ctx, leagueID, userID)
		if !ok {
			return
		}
		if err := r.service.HandleSkip(ctx, leagueID, participantID); err != nil {
			r.reportCommandError(ctx, leagueID, "skip", err)
		}
	case "auction start":
		r.runAdmin(ctx, leagueID, userID, "auction start", r.service.Start)
	case "auction next":
		r.runAdmin(ctx, leagueID, userID, "auction next", r.service.Next)
	case "auction finalize":
		r.runAdmin(ctx, leagueID, userID, "auction finalize", r.service.Finalize)
	case "auction reset":
		r.runAdmin(ctx, leagueID, userID, "auction reset", r.service.Reset)
	}
}

// handleAction covers the release-window verbs, which carry player ids
// and so cannot ride on plain text.
func (r *Router) handleAction(ctx context.Context, leagueID uuid.UUID, userID string, msg ClientMessage) {
	participantID, ok := r.resolveParticipant(ctx, leagueID, userID)
	if !ok {
		return
	}

	playerIDs, err := parsePlayerIDs(msg.PlayerIDs)
	if err != nil {
		log.Debug().Err(err).Str("league_id", leagueID.String()).Msg("malformed player ids in action")
		return
	}

	switch msg.Action {
	case "release_select":
		for _, id := range playerIDs {
			if err := r.service.SelectForRelease(ctx, leagueID, participantID, id); err != nil {
				r.reportCommandError(ctx, leagueID, "release select", err)
				return
			}
		}
	case "release_deselect":
		for _, id := range playerIDs {
			if err := r.service.Deselect(ctx, leagueID, participantID, id); err != nil {
				r.reportCommandError(ctx, leagueID, "release deselect", err)
				return
			}
		}
	case "release_submit":
		if err := r.service.SubmitRelease(ctx, leagueID, participantID, playerIDs); err != nil {
			r.reportCommandError(ctx, leagueID, "release submit", err)
		}
	default:
		log.Debug().
			Str("league_id", leagueID.String()).
			Str("action", msg.Action).
			Msg("ignoring unknown client action")
	}
}

func (r *Router) runAdmin(ctx context.Context, leagueID uuid.UUID, userID, verb string, fn func(context.Context, uuid.UUID) error) {
	r.mu.RLock()
	admin, ok := r.admins[leagueID]
	r.mu.RUnlock()
	if !ok || admin != userID {
		log.Warn().
			Str("league_id", leagueID.String()).
			Str("user_id", userID).
			Str("verb", verb).
			Msg("admin verb from non-admin ignored")
		return
	}

	if err := fn(ctx, leagueID); err != nil {
		r.reportCommandError(ctx, leagueID, verb, err)
	}
}

// reportCommandError surfaces expected state errors to the league and
// logs the rest.
func (r *Router) reportCommandError(ctx context.Context, leagueID uuid.UUID, verb string, err error) {
	switch {
	case errors.Is(err, round.ErrRoundInProgress):
		r.notifier.Announce(ctx, leagueID, "A bidding round is already in progress.")
	case errors.Is(err, engine.ErrNoActiveAuction):
		r.notifier.Announce(ctx, leagueID, "No auction is running in this league.")
	case errors.Is(err, engine.ErrAuctionInProgress):
		r.notifier.Announce(ctx, leagueID, "An auction is already running in this league.")
	case errors.Is(err, engine.ErrQueueExhausted):
		// Completion announcement already sent by the engine.
	case errors.Is(err, release.ErrWindowClosed):
		r.notifier.Announce(ctx, leagueID, "The release window is closed.")
	case errors.Is(err, release.ErrAlreadySubmitted):
		r.notifier.Announce(ctx, leagueID, "You already submitted your releases.")
	case errors.Is(err, release.ErrNotOwned):
		r.notifier.Announce(ctx, leagueID, "You can only release players you currently hold.")
	default:
		log.Error().Err(err).
			Str("league_id", leagueID.String()).
			Str("verb", verb).
			Msg("command failed")
	}
}

// resolveParticipant maps a chat identity to a participant id, caching
// per league.
func (r *Router) resolveParticipant(ctx context.Context, leagueID uuid.UUID, userID string) (uuid.UUID, bool) {
	r.mu.RLock()
	if byUser, ok := r.idCache[leagueID]; ok {
		if id, ok := byUser[userID]; ok {
			r.mu.RUnlock()
			return id, true
		}
	}
	r.mu.RUnlock()

	participants, err := r.store.GetParticipants(ctx, leagueID)
	if err != nil {
		log.Error().Err(err).Str("league_id", leagueID.String()).Msg("failed to resolve participant")
		return uuid.Nil, false
	}

	byUser := make(map[string]uuid.UUID, len(participants))
	for _, p := range participants {
		if p.MessagingUserID != nil {
			byUser[*p.MessagingUserID] = p.ID
		}
	}

	r.mu.Lock()
	r.idCache[leagueID] = byUser
	r.mu.Unlock()

	id, ok := byUser[userID]
	if !ok {
		log.Debug().
			Str("league_id", leagueID.String()).
			Str("user_id", userID).
			Msg("message from non-participant ignored")
	}
	return id, ok
}

func parsePlayerIDs(raw []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
