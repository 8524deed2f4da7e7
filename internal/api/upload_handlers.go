package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/evinta/rsvpd/internal/intent"
	"github.com/evinta/rsvpd/internal/models"
)

// MaxDocumentUploadBytes caps direct document submissions.
const MaxDocumentUploadBytes = 25 << 20

// participantSubresourceHandler dispatches /participants/{id}/documents and
// /participants/{id}/documents/{upload_id}.
func (s *Server) participantSubresourceHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/participants/"), "/")
	parts := strings.SplitN(path, "/", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] != "documents" {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Unknown resource"))
		return
	}
	participantID := parts[0]

	if len(parts) == 3 && parts[2] != "" {
		if r.Method != http.MethodPut {
			w.Header().Set("Allow", http.MethodPut)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		s.updateParticipantDocument(w, r, participantID, parts[2])
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.listParticipantDocuments(w, participantID)
	case http.MethodPost:
		s.submitParticipantDocuments(w, r, participantID)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) listParticipantDocuments(w http.ResponseWriter, participantID string) {
	docs, err := s.store.ListDocuments(participantID)
	if err != nil {
		slog.Error("Server.listParticipantDocuments: lookup failed", "participantID", participantID, "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list documents"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(docs))
}

// submitParticipantDocuments accepts a multipart form with one or more files
// under the "file" field, plus attendee_name, role, and document_type fields
// shared by every file in the submission. It complements the conversational
// document sub-flow for dashboard-side uploads.
func (s *Server) submitParticipantDocuments(w http.ResponseWriter, r *http.Request, participantID string) {
	if s.docs == nil {
		writeJSONResponse(w, http.StatusServiceUnavailable, models.Error("Document storage is not configured"))
		return
	}
	participant, err := s.store.GetParticipant(participantID)
	if err != nil {
		slog.Error("Server.submitParticipantDocuments: participant lookup failed", "participantID", participantID, "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load participant"))
		return
	}
	if participant == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Participant not found"))
		return
	}

	if err := r.ParseMultipartForm(MaxDocumentUploadBytes); err != nil {
		slog.Warn("Server.submitParticipantDocuments: invalid multipart form", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Expected a multipart form with a 'file' field"))
		return
	}
	files := r.MultipartForm.File["file"]
	if len(files) == 0 {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Missing uploaded file field 'file'"))
		return
	}

	attendeeName := strings.TrimSpace(r.FormValue("attendee_name"))
	if attendeeName == "" {
		attendeeName = participant.FullName
	}
	role := intent.MatchRole(r.FormValue("role"))
	docType, ok := intent.MatchDocumentType(r.FormValue("document_type"))
	if !ok {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Unknown document_type"))
		return
	}

	var created []models.DocumentRecord
	for _, fh := range files {
		doc, err := s.storeUploadedFile(r, fh, participant, attendeeName, role, docType)
		if err != nil {
			slog.Error("Server.submitParticipantDocuments: upload failed",
				"participantID", participantID, "file", fh.Filename, "error", err)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to store document"))
			return
		}
		created = append(created, *doc)
	}

	slog.Info("Server.submitParticipantDocuments: documents stored", "participantID", participantID, "count", len(created))
	writeJSONResponse(w, http.StatusCreated, models.Success(created))
}

func (s *Server) storeUploadedFile(r *http.Request, fh *multipart.FileHeader, p *models.Participant, attendeeName string, role models.Role, docType models.DocumentType) (*models.DocumentRecord, error) {
	file, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, MaxDocumentUploadBytes))
	if err != nil {
		return nil, err
	}

	url, err := s.docs.Store(r.Context(), p.EventID, p.ID, fh.Filename, data, fh.Header.Get("Content-Type"))
	if err != nil {
		return nil, err
	}
	doc := models.DocumentRecord{
		ID:            uuid.New().String(),
		ParticipantID: p.ID,
		AttendeeName:  attendeeName,
		Role:          role,
		DocumentType:  docType,
		DocumentURL:   url,
		CreatedAt:     time.Now(),
	}
	if err := s.store.AddDocument(doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// documentUpdate is the partial-update body for
// PUT /participants/{id}/documents/{upload_id}. Nil fields are left unchanged.
type documentUpdate struct {
	AttendeeName *string `json:"attendee_name,omitempty"`
	Role         *string `json:"role,omitempty"`
	DocumentType *string `json:"document_type,omitempty"`
	DocumentURL  *string `json:"document_url,omitempty"`
}

func (s *Server) updateParticipantDocument(w http.ResponseWriter, r *http.Request, participantID, uploadID string) {
	docs, err := s.store.ListDocuments(participantID)
	if err != nil {
		slog.Error("Server.updateParticipantDocument: lookup failed", "participantID", participantID, "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load documents"))
		return
	}
	var doc *models.DocumentRecord
	for i := range docs {
		if docs[i].ID == uploadID {
			doc = &docs[i]
			break
		}
	}
	if doc == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Document not found"))
		return
	}

	var upd documentUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		slog.Warn("Server.updateParticipantDocument: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if upd.AttendeeName != nil {
		if strings.TrimSpace(*upd.AttendeeName) == "" {
			writeJSONResponse(w, http.StatusBadRequest, models.Error("attendee_name must not be empty"))
			return
		}
		doc.AttendeeName = strings.TrimSpace(*upd.AttendeeName)
	}
	if upd.Role != nil {
		role := models.Role(*upd.Role)
		if !models.IsValidRole(role) {
			writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid role"))
			return
		}
		doc.Role = role
	}
	if upd.DocumentType != nil {
		dt := models.DocumentType(*upd.DocumentType)
		if !models.IsValidDocumentType(dt) {
			writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid document_type"))
			return
		}
		doc.DocumentType = dt
	}
	if upd.DocumentURL != nil {
		doc.DocumentURL = *upd.DocumentURL
	}

	if err := s.store.UpdateDocument(*doc); err != nil {
		slog.Error("Server.updateParticipantDocument: save failed", "uploadID", uploadID, "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to save document"))
		return
	}
	slog.Info("Server.updateParticipantDocument: document updated", "participantID", participantID, "uploadID", uploadID)
	writeJSONResponse(w, http.StatusOK, models.Success(doc))
}
