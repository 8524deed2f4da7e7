package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/evinta/rsvpd/internal/importer"
	"github.com/evinta/rsvpd/internal/models"
	"github.com/evinta/rsvpd/internal/voice"
)

// MaxCSVUploadBytes caps participant spreadsheet uploads.
const MaxCSVUploadBytes = 10 << 20

// InviteTemplateName is the pre-approved template used for invitation sends.
const InviteTemplateName = "rsvp_invite"

func (s *Server) usersHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	switch r.Method {
	case http.MethodGet:
		users, err := s.store.ListUsers()
		if err != nil {
			slog.Error("Server.usersHandler: failed to list users", "error", err)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list users"))
			return
		}
		writeJSONResponse(w, http.StatusOK, models.Success(users))
	case http.MethodPost:
		var u models.User
		if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
			slog.Warn("Server.usersHandler: failed to decode JSON", "error", err)
			writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
			return
		}
		if u.Name == "" || u.Email == "" {
			writeJSONResponse(w, http.StatusBadRequest, models.Error("Missing required fields: name, email"))
			return
		}
		u.ID = uuid.New().String()
		u.CreatedAt = time.Now()
		if err := s.store.AddUser(u); err != nil {
			slog.Error("Server.usersHandler: failed to add user", "error", err)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to create user"))
			return
		}
		slog.Info("Server.usersHandler: user created", "userID", u.ID)
		writeJSONResponse(w, http.StatusCreated, models.Success(u))
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) eventsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	switch r.Method {
	case http.MethodGet:
		userID := r.URL.Query().Get("user_id")
		if userID == "" {
			writeJSONResponse(w, http.StatusBadRequest, models.Error("Missing required query parameter: user_id"))
			return
		}
		events, err := s.store.ListEventsByUser(userID)
		if err != nil {
			slog.Error("Server.eventsHandler: failed to list events", "error", err)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list events"))
			return
		}
		writeJSONResponse(w, http.StatusOK, models.Success(events))
	case http.MethodPost:
		var e models.Event
		if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
			slog.Warn("Server.eventsHandler: failed to decode JSON", "error", err)
			writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
			return
		}
		if e.Name == "" || e.UserID == "" {
			writeJSONResponse(w, http.StatusBadRequest, models.Error("Missing required fields: event_name, user_id"))
			return
		}
		e.ID = uuid.New().String()
		e.Status = "created"
		e.CreatedAt = time.Now()
		if err := s.store.AddEvent(e); err != nil {
			slog.Error("Server.eventsHandler: failed to add event", "error", err)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to create event"))
			return
		}
		slog.Info("Server.eventsHandler: event created", "eventID", e.ID, "userID", e.UserID)
		writeJSONResponse(w, http.StatusCreated, models.Success(e))
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// eventSubresourceHandler dispatches /events/{id} and its subresources.
func (s *Server) eventSubresourceHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	path := strings.TrimPrefix(r.URL.Path, "/events/")
	parts := strings.SplitN(strings.Trim(path, "/"), "/", 2)
	eventID := parts[0]
	if eventID == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Missing event id"))
		return
	}
	sub := ""
	if len(parts) == 2 {
		sub = parts[1]
	}

	switch sub {
	case "":
		s.getEvent(w, r, eventID)
	case "participants":
		s.eventParticipants(w, r, eventID)
	case "notify":
		s.notifyEvent(w, r, eventID)
	case "calls":
		s.eventCalls(w, r, eventID)
	default:
		writeJSONResponse(w, http.StatusNotFound, models.Error("Unknown resource"))
	}
}

func (s *Server) getEvent(w http.ResponseWriter, r *http.Request, eventID string) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	event, err := s.store.GetEvent(eventID)
	if err != nil {
		slog.Error("Server.getEvent: lookup failed", "eventID", eventID, "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load event"))
		return
	}
	if event == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Event not found"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(event))
}

// eventParticipants lists participants (GET) or imports them from an uploaded
// CSV file (POST multipart field "file").
func (s *Server) eventParticipants(w http.ResponseWriter, r *http.Request, eventID string) {
	switch r.Method {
	case http.MethodGet:
		ps, err := s.store.ListParticipantsByEvent(eventID)
		if err != nil {
			slog.Error("Server.eventParticipants: failed to list", "eventID", eventID, "error", err)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list participants"))
			return
		}
		writeJSONResponse(w, http.StatusOK, models.Success(ps))
	case http.MethodPost:
		s.importParticipants(w, r, eventID)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) importParticipants(w http.ResponseWriter, r *http.Request, eventID string) {
	event, err := s.store.GetEvent(eventID)
	if err != nil {
		slog.Error("Server.importParticipants: event lookup failed", "eventID", eventID, "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load event"))
		return
	}
	if event == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Event not found"))
		return
	}

	if err := r.ParseMultipartForm(MaxCSVUploadBytes); err != nil {
		slog.Warn("Server.importParticipants: invalid multipart form", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Expected a multipart form with a 'file' field"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Missing uploaded file field 'file'"))
		return
	}
	defer file.Close()
	raw, err := io.ReadAll(io.LimitReader(file, MaxCSVUploadBytes))
	if err != nil {
		slog.Warn("Server.importParticipants: failed to read upload", "eventID", eventID, "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Failed to read uploaded file"))
		return
	}

	result, err := importer.ParseCSV(bytes.NewReader(raw), eventID, event.UserID)
	if err != nil {
		slog.Warn("Server.importParticipants: CSV parse failed", "eventID", eventID, "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	if err := s.store.AddParticipants(result.Participants); err != nil {
		slog.Error("Server.importParticipants: failed to persist participants", "eventID", eventID, "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to save participants"))
		return
	}

	// Keep the source spreadsheet for auditing. Losing it does not undo the
	// import, so failures only log.
	if s.docs != nil {
		url, err := s.docs.Store(r.Context(), eventID, "imports", header.Filename, raw, "text/csv")
		if err != nil {
			slog.Warn("Server.importParticipants: failed to archive CSV", "eventID", eventID, "error", err)
		} else {
			event.CSVURL = url
			if err := s.store.AddEvent(*event); err != nil {
				slog.Warn("Server.importParticipants: failed to record CSV URL", "eventID", eventID, "error", err)
			}
		}
	}

	slog.Info("Server.importParticipants: import complete",
		"eventID", eventID, "file", header.Filename, "imported", len(result.Participants), "skipped", result.Skipped)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Participants imported", map[string]int{
		"imported": len(result.Participants),
		"skipped":  result.Skipped,
	}))
}

// notifyEvent sends the invitation template to every participant of the event.
// A conversation row is created only for participants whose send succeeded, so
// a failed invite can simply be retried by calling the endpoint again.
func (s *Server) notifyEvent(w http.ResponseWriter, r *http.Request, eventID string) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	event, err := s.store.GetEvent(eventID)
	if err != nil {
		slog.Error("Server.notifyEvent: event lookup failed", "eventID", eventID, "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load event"))
		return
	}
	if event == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Event not found"))
		return
	}
	participants, err := s.store.ListParticipantsByEvent(eventID)
	if err != nil {
		slog.Error("Server.notifyEvent: failed to list participants", "eventID", eventID, "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list participants"))
		return
	}

	sent, failed := 0, 0
	for _, p := range participants {
		to, err := s.gateway.ValidateAndCanonicalizeRecipient(p.PhoneNumber)
		if err != nil {
			slog.Warn("Server.notifyEvent: skipping invalid recipient", "participantID", p.ID, "error", err)
			failed++
			continue
		}
		if err := s.gateway.SendTemplate(r.Context(), to, InviteTemplateName, []string{p.FullName, event.Name}); err != nil {
			slog.Error("Server.notifyEvent: invite send failed", "participantID", p.ID, "error", err)
			s.addReceipt(to, models.ReceiptStatusFailed)
			failed++
			continue
		}
		s.addReceipt(to, models.ReceiptStatusSent)
		sent++

		if err := s.ensureConversation(p); err != nil {
			slog.Error("Server.notifyEvent: failed to create conversation row", "participantID", p.ID, "error", err)
		}
	}

	if sent > 0 {
		if err := s.store.UpdateEventStatus(eventID, "notified"); err != nil {
			slog.Warn("Server.notifyEvent: failed to update event status", "eventID", eventID, "error", err)
		}
	}
	slog.Info("Server.notifyEvent: campaign finished", "eventID", eventID, "sent", sent, "failed", failed)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Invitations processed", map[string]int{
		"sent":   sent,
		"failed": failed,
	}))
}

// ensureConversation creates the awaiting_rsvp row for a freshly invited
// participant, leaving any existing conversation untouched.
func (s *Server) ensureConversation(p models.Participant) error {
	existing, err := s.store.GetConversation(p.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	return s.store.SaveConversation(models.NewConversationState(p))
}

// eventCalls triggers a voice campaign (POST) or reports the latest batch (GET).
func (s *Server) eventCalls(w http.ResponseWriter, r *http.Request, eventID string) {
	if s.campaigns == nil {
		writeJSONResponse(w, http.StatusServiceUnavailable, models.Error("Voice campaigns are not configured"))
		return
	}
	switch r.Method {
	case http.MethodPost:
		ctx, cancel := context.WithTimeout(r.Context(), voice.DefaultHTTPTimeout)
		defer cancel()
		batch, err := s.campaigns.TriggerEventCalls(ctx, eventID)
		if err != nil {
			if errors.Is(err, voice.ErrBatchInFlight) {
				writeJSONResponse(w, http.StatusConflict, models.Error(err.Error()))
				return
			}
			slog.Error("Server.eventCalls: trigger failed", "eventID", eventID, "error", err)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to trigger call campaign"))
			return
		}
		writeJSONResponse(w, http.StatusAccepted, models.Success(batch))
	case http.MethodGet:
		batch, err := s.store.GetCallBatchByEvent(eventID)
		if err != nil {
			slog.Error("Server.eventCalls: lookup failed", "eventID", eventID, "error", err)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load call batch"))
			return
		}
		if batch == nil {
			writeJSONResponse(w, http.StatusNotFound, models.Error("No call batch for this event"))
			return
		}
		writeJSONResponse(w, http.StatusOK, models.Success(batch))
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) addReceipt(to, status string) {
	r := models.Receipt{To: to, Status: status, Time: time.Now().Unix()}
	if err := s.store.AddReceipt(r); err != nil {
		slog.Warn("Server.addReceipt: failed to record receipt", "to", to, "error", err)
	}
}
