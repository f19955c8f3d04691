package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"trivia-backend/internal/middleware"
	"trivia-backend/internal/models"
	"trivia-backend/internal/services"
)

const awardTimeout = 10 * time.Second

type Leaderboard interface {
	Top(ctx context.Context, sport models.Sport) ([]models.ScoreEntry, error)
	Submit(ctx context.Context, req models.SubmitScoreRequest) error
}

// LeaderboardAwarder unlocks rank achievements for a player found on a board.
type LeaderboardAwarder interface {
	AwardLeaderboard(ctx context.Context, who models.AuthenticatedUser, sport models.Sport, board []models.ScoreEntry) ([]models.Achievement, error)
}

type ScoreHandler struct {
	board   Leaderboard
	awarder LeaderboardAwarder
	pending sync.WaitGroup
}

func NewScoreHandler(board Leaderboard, awarder LeaderboardAwarder) *ScoreHandler {
	return &ScoreHandler{board: board, awarder: awarder}
}

func (h *ScoreHandler) Top(w http.ResponseWriter, r *http.Request) {
	sport, err := services.ParseSport(r.URL.Query().Get("sport"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	entries, err := h.board.Top(r.Context(), sport)
	if err != nil {
		log.Printf("scores: failed to load %s leaderboard: %v", sport, err)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load leaderboard", r))
		return
	}

	if who, ok := middleware.GetIdentity(r.Context()); ok && who.IsAuthenticated && h.awarder != nil && len(entries) > 0 {
		h.award(who, sport, entries)
	}

	writeJSON(w, http.StatusOK, entries)
}

func (h *ScoreHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req models.SubmitScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if err := h.board.Submit(r.Context(), req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *ScoreHandler) award(who models.AuthenticatedUser, sport models.Sport, entries []models.ScoreEntry) {
	board := append([]models.ScoreEntry(nil), entries...)
	h.pending.Add(1)
	go func() {
		defer h.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), awardTimeout)
		defer cancel()
		if _, err := h.awarder.AwardLeaderboard(ctx, who, sport, board); err != nil {
			log.Printf("scores: leaderboard achievements for %s: %v", who.ID, err)
		}
	}()
}

// Wait blocks until background achievement checks finish.
func (h *ScoreHandler) Wait() {
	h.pending.Wait()
}
