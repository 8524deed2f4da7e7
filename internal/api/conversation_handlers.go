package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/evinta/rsvpd/internal/models"
)

// conversationUpdate is the partial-update body for PUT /conversations/{id}.
// Nil fields are left unchanged.
type conversationUpdate struct {
	Step       *string `json:"step,omitempty"`
	RSVPStatus *string `json:"rsvp_status,omitempty"`
	GuestCount *int    `json:"guest_count,omitempty"`
	Notes      *string `json:"notes,omitempty"`
}

// conversationHandler serves /conversations/{participant_id}: GET returns the
// stored state, PUT applies a dashboard-side partial update.
func (s *Server) conversationHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	participantID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/conversations/"), "/")
	if participantID == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Missing participant id"))
		return
	}

	switch r.Method {
	case http.MethodGet:
		cs, err := s.store.GetConversation(participantID)
		if err != nil {
			slog.Error("Server.conversationHandler: lookup failed", "participantID", participantID, "error", err)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load conversation"))
			return
		}
		if cs == nil {
			writeJSONResponse(w, http.StatusNotFound, models.Error("Conversation not found"))
			return
		}
		writeJSONResponse(w, http.StatusOK, models.Success(cs))
	case http.MethodPut:
		s.updateConversation(w, r, participantID)
	default:
		w.Header().Set("Allow", "GET, PUT")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) updateConversation(w http.ResponseWriter, r *http.Request, participantID string) {
	cs, err := s.store.GetConversation(participantID)
	if err != nil {
		slog.Error("Server.updateConversation: lookup failed", "participantID", participantID, "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load conversation"))
		return
	}
	if cs == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Conversation not found"))
		return
	}

	var upd conversationUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		slog.Warn("Server.updateConversation: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if upd.Step != nil {
		step := models.Step(*upd.Step)
		if !models.IsValidStep(step) {
			writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid conversation step"))
			return
		}
		cs.Step = step
	}
	if upd.RSVPStatus != nil {
		status := models.RSVPStatus(*upd.RSVPStatus)
		if status != "" && !models.IsValidRSVPStatus(status) {
			writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid rsvp_status"))
			return
		}
		cs.RSVPStatus = status
	}
	if upd.GuestCount != nil {
		if *upd.GuestCount < 0 {
			writeJSONResponse(w, http.StatusBadRequest, models.Error("guest_count must not be negative"))
			return
		}
		cs.GuestCount = *upd.GuestCount
	}
	if upd.Notes != nil {
		cs.Notes = *upd.Notes
	}
	cs.LastUpdated = time.Now()

	if err := s.store.SaveConversation(*cs); err != nil {
		slog.Error("Server.updateConversation: save failed", "participantID", participantID, "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to save conversation"))
		return
	}
	slog.Info("Server.updateConversation: conversation updated", "participantID", participantID, "step", cs.Step)
	writeJSONResponse(w, http.StatusOK, models.Success(cs))
}

// receiptsHandler serves GET /receipts with every recorded send outcome.
func (s *Server) receiptsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	receipts, err := s.store.GetReceipts()
	if err != nil {
		slog.Error("Server.receiptsHandler: lookup failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list receipts"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(receipts))
}
