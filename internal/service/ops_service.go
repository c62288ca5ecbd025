// Package service exposes the registry to the host process over HTTP: a
// health probe, read-only party and leaderboard views, and the presence
// feed the host uses to report players joining, moving and leaving.
package service

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/mmynk/partykeeper/internal/leaderboard"
	"github.com/mmynk/partykeeper/internal/models"
	"github.com/mmynk/partykeeper/internal/registry"
	"github.com/mmynk/partykeeper/internal/roster"
)

// OpsService serves the ops endpoints.
type OpsService struct {
	reg    *registry.Registry
	roster *roster.Roster
	logger *slog.Logger
}

// NewOpsService creates an OpsService.
func NewOpsService(reg *registry.Registry, r *roster.Roster, logger *slog.Logger) *OpsService {
	if logger == nil {
		logger = slog.Default()
	}
	return &OpsService{reg: reg, roster: r, logger: logger}
}

// Register mounts the endpoints on mux.
func (s *OpsService) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.Health)
	mux.HandleFunc("GET /parties/{id}", s.GetParty)
	mux.HandleFunc("GET /players/{id}/party", s.GetPlayerParty)
	mux.HandleFunc("GET /leaderboard", s.Leaderboard)
	mux.HandleFunc("PUT /players/{id}/presence", s.Connect)
	mux.HandleFunc("DELETE /players/{id}/presence", s.Disconnect)
	mux.HandleFunc("GET /players/{id}/messages", s.Messages)
}

// HealthResponse reports registry population and persistence state.
type HealthResponse struct {
	Status  string `json:"status"`
	Parties int    `json:"parties"`
	Members int    `json:"members"`
	Online  int    `json:"online"`
	Dirty   bool   `json:"dirty"`
}

// Health reports the registry population.
func (s *OpsService) Health(w http.ResponseWriter, r *http.Request) {
	parties, members := s.reg.Count()
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Parties: parties,
		Members: members,
		Online:  len(s.roster.Online()),
		Dirty:   s.reg.Dirty(),
	})
}

// PartyView is a party as the ops API returns it.
type PartyView struct {
	models.PartySnapshot
	OnlineMembers int `json:"online_members"`
}

func (s *OpsService) view(p *models.Party) PartyView {
	return PartyView{PartySnapshot: p.ToSnapshot(), OnlineMembers: s.reg.OnlineMemberCount(p.ID)}
}

// GetParty returns one party by id.
func (s *OpsService) GetParty(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	p, ok := s.reg.Party(id)
	if !ok {
		writeError(w, http.StatusNotFound, registry.ErrPartyNotFound)
		return
	}
	writeJSON(w, http.StatusOK, s.view(p))
}

// GetPlayerParty returns the party the player belongs to.
func (s *OpsService) GetPlayerParty(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	p, ok := s.reg.PlayerParty(id)
	if !ok {
		writeError(w, http.StatusNotFound, registry.ErrNotInParty)
		return
	}
	writeJSON(w, http.StatusOK, s.view(p))
}

// LeaderboardEntry is one ranked row.
type LeaderboardEntry struct {
	Rank    int     `json:"rank"`
	PartyID string  `json:"party_id"`
	Name    string  `json:"name"`
	Leader  string  `json:"leader"`
	Value   float64 `json:"value"`
}

// Leaderboard ranks parties by ?metric= (default kills), up to ?limit=.
func (s *OpsService) Leaderboard(w http.ResponseWriter, r *http.Request) {
	metric := leaderboard.Kills
	if v := r.URL.Query().Get("metric"); v != "" {
		m, err := leaderboard.ParseMetric(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		metric = m
	}
	limit := leaderboard.DefaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, errors.New("limit must be a positive integer"))
			return
		}
		limit = n
	}

	entries := leaderboard.Top(s.reg.Parties(), metric, limit)
	out := make([]LeaderboardEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, LeaderboardEntry{
			Rank:    e.Rank,
			PartyID: e.Party.ID.String(),
			Name:    e.Party.Name,
			Leader:  s.reg.PlayerName(e.Party.Leader),
			Value:   e.Value,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// PresenceRequest is the body of a presence update.
type PresenceRequest struct {
	Name     string          `json:"name"`
	Location models.Location `json:"location"`
}

// Connect marks the player online or updates their position.
func (s *OpsService) Connect(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req PresenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, errors.New("name is required"))
		return
	}

	s.roster.Connect(id, req.Name, req.Location)
	s.reg.RecordPlayerName(id, req.Name)
	w.WriteHeader(http.StatusNoContent)
}

// Disconnect marks the player offline, stamps their last-seen time and
// drops the party when the disband-when-offline policy applies.
func (s *OpsService) Disconnect(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if !s.roster.Disconnect(id) {
		writeError(w, http.StatusNotFound, registry.ErrPlayerOffline)
		return
	}
	s.reg.ForgetPlayer(id)
	if p, ok := s.reg.PlayerParty(id); ok {
		if err := s.reg.MarkSeen(id); err != nil {
			s.logger.Warn("Failed to mark player seen", "player", id, "error", err)
		}
		if s.reg.CheckPartyCleanup(p.ID) {
			s.logger.Info("Party disbanded, all members offline", "party_id", p.ID)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// Messages drains the messages queued for the player.
func (s *OpsService) Messages(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	msgs := s.roster.Drain(id)
	if msgs == nil {
		msgs = []string{}
	}
	writeJSON(w, http.StatusOK, msgs)
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid id"))
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
