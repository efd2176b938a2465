// Package api exposes the admin JSON surface: campaign and recipient
// management, the send action, and the reporting views fed by the stats
// aggregator.
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/campaign-tracker/internal/dispatch"
	"github.com/ignite/campaign-tracker/internal/domain"
	"github.com/ignite/campaign-tracker/internal/repository"
	"github.com/ignite/campaign-tracker/internal/stats"
)

// Handler serves the admin API.
type Handler struct {
	store      repository.Store
	dispatcher *dispatch.Service
	stats      *stats.Service
}

// NewHandler creates the admin API handler.
func NewHandler(store repository.Store, dispatcher *dispatch.Service, statsSvc *stats.Service) *Handler {
	return &Handler{store: store, dispatcher: dispatcher, stats: statsSvc}
}

// Routes returns the admin API router, mounted under /api.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/dashboard", h.HandleDashboard)
	r.Route("/campaigns", func(r chi.Router) {
		r.Post("/", h.HandleCreateCampaign)
		r.Get("/", h.HandleListCampaigns)
		r.Get("/{campaignID}", h.HandleGetCampaign)
		r.Post("/{campaignID}/send", h.HandleSendCampaign)
	})
	r.Route("/recipients", func(r chi.Router) {
		r.Post("/", h.HandleAddRecipient)
		r.Get("/", h.HandleListRecipients)
	})
	return r
}

// HandleCreateCampaign creates a draft campaign.
func (h *Handler) HandleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Subject     string `json:"subject"`
		HTMLContent string `json:"html_content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Subject == "" {
		respondError(w, http.StatusBadRequest, "name and subject are required")
		return
	}

	c := &domain.Campaign{
		Name:        req.Name,
		Subject:     req.Subject,
		HTMLContent: req.HTMLContent,
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.store.CreateCampaign(r.Context(), c); err != nil {
		log.Printf("ERROR create campaign: %v", err)
		respondError(w, http.StatusInternalServerError, "create campaign failed")
		return
	}
	respondJSON(w, http.StatusCreated, c)
}

// HandleListCampaigns lists campaigns, newest first.
func (h *Handler) HandleListCampaigns(w http.ResponseWriter, r *http.Request) {
	campaigns, err := h.store.ListCampaigns(r.Context())
	if err != nil {
		log.Printf("ERROR list campaigns: %v", err)
		respondError(w, http.StatusInternalServerError, "list campaigns failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"campaigns": campaigns})
}

// HandleGetCampaign returns one campaign with its stats and delivery records.
func (h *Handler) HandleGetCampaign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "campaignID")

	campaign, err := h.store.CampaignByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondError(w, http.StatusNotFound, "campaign not found")
			return
		}
		log.Printf("ERROR get campaign %s: %v", id, err)
		respondError(w, http.StatusInternalServerError, "get campaign failed")
		return
	}

	campaignStats, err := h.stats.Campaign(r.Context(), id)
	if err != nil {
		log.Printf("ERROR campaign stats %s: %v", id, err)
		respondError(w, http.StatusInternalServerError, "campaign stats failed")
		return
	}

	emails, err := h.store.EmailsByCampaign(r.Context(), id)
	if err != nil {
		log.Printf("ERROR campaign emails %s: %v", id, err)
		respondError(w, http.StatusInternalServerError, "campaign emails failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"campaign": campaign,
		"stats":    campaignStats,
		"emails":   emails,
	})
}

// HandleSendCampaign dispatches a campaign to the selected recipients.
func (h *Handler) HandleSendCampaign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "campaignID")

	var req struct {
		RecipientIDs []string `json:"recipient_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.RecipientIDs) == 0 {
		respondError(w, http.StatusBadRequest, "recipient_ids is required")
		return
	}

	result, err := h.dispatcher.Send(r.Context(), id, req.RecipientIDs)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondError(w, http.StatusNotFound, "campaign not found")
			return
		}
		log.Printf("ERROR send campaign %s: %v", id, err)
		respondError(w, http.StatusInternalServerError, "send failed")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// HandleAddRecipient upserts a directory entry by email.
func (h *Handler) HandleAddRecipient(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if !validEmail(req.Email) {
		respondError(w, http.StatusBadRequest, "valid email is required")
		return
	}

	recipient, err := h.store.UpsertRecipient(r.Context(), &domain.Recipient{
		Email:     req.Email,
		Name:      req.Name,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		log.Printf("ERROR upsert recipient %s: %v", req.Email, err)
		respondError(w, http.StatusInternalServerError, "add recipient failed")
		return
	}
	respondJSON(w, http.StatusOK, recipient)
}

// HandleListRecipients lists the recipient directory.
func (h *Handler) HandleListRecipients(w http.ResponseWriter, r *http.Request) {
	recipients, err := h.store.ListRecipients(r.Context())
	if err != nil {
		log.Printf("ERROR list recipients: %v", err)
		respondError(w, http.StatusInternalServerError, "list recipients failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"recipients": recipients})
}

// HandleDashboard returns the global engagement snapshot.
func (h *Handler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	global, err := h.stats.Global(r.Context())
	if err != nil {
		log.Printf("ERROR global stats: %v", err)
		respondError(w, http.StatusInternalServerError, "dashboard stats failed")
		return
	}
	respondJSON(w, http.StatusOK, global)
}

// Response helpers

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func validEmail(email string) bool {
	if len(email) < 3 || len(email) > 254 {
		return false
	}
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return false
	}
	local, dom := parts[0], parts[1]
	if local == "" || len(local) > 64 {
		return false
	}
	if dom == "" || !strings.Contains(dom, ".") {
		return false
	}
	return true
}
