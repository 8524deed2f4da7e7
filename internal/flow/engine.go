// Package flow implements the RSVP conversation engine.
//
// The engine consumes one inbound message event plus the stored conversation
// state, runs the state machine, and persists the advanced state only after
// the outbound reply has been sent. A failed send leaves state untouched so a
// redelivered inbound event re-runs identically.
package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/evinta/rsvpd/internal/genai"
	"github.com/evinta/rsvpd/internal/intent"
	"github.com/evinta/rsvpd/internal/messaging"
	"github.com/evinta/rsvpd/internal/models"
)

// ConversationStore is the slice of the persistence layer the engine needs.
type ConversationStore interface {
	GetParticipantByPhone(phone string) (*models.Participant, error)
	GetConversation(participantID string) (*models.ConversationState, error)
	SaveConversation(cs models.ConversationState) error
	AddDocument(d models.DocumentRecord) error
	ListDocuments(participantID string) ([]models.DocumentRecord, error)
	AddReceipt(r models.Receipt) error
}

// MediaResolver retrieves provider-hosted media referenced by inbound messages.
type MediaResolver interface {
	ResolveMediaURL(ctx context.Context, mediaID string) (string, error)
	DownloadMedia(ctx context.Context, url string) ([]byte, string, error)
}

// DocumentStore persists downloaded attachments and returns a public URL.
type DocumentStore interface {
	Store(ctx context.Context, eventID, participantID, filename string, data []byte, contentType string) (string, error)
}

// Oracle is the generative fallback extractor. Its output is untrusted; the
// engine degrades to deterministic replies when it fails or returns garbage.
type Oracle interface {
	ExtractFields(ctx context.Context, systemPrompt, userPrompt string) (*genai.Extraction, error)
}

// Opts holds optional engine collaborators.
type Opts struct {
	Oracle   Oracle
	Media    MediaResolver
	DocStore DocumentStore
}

// Option defines a configuration option for the engine.
type Option func(*Opts)

// WithOracle attaches the generative extraction fallback.
func WithOracle(o Oracle) Option {
	return func(opts *Opts) {
		opts.Oracle = o
	}
}

// WithMedia attaches the provider media resolver used by the document sub-flow.
func WithMedia(m MediaResolver) Option {
	return func(opts *Opts) {
		opts.Media = m
	}
}

// WithDocumentStore attaches the attachment storage backend.
func WithDocumentStore(d DocumentStore) Option {
	return func(opts *Opts) {
		opts.DocStore = d
	}
}

// Engine drives the per-participant RSVP state machine.
type Engine struct {
	store    ConversationStore
	gateway  messaging.Gateway
	oracle   Oracle
	media    MediaResolver
	docStore DocumentStore
}

// NewEngine creates an engine. Store and gateway are required; the oracle,
// media resolver, and document store are optional and the corresponding
// behavior degrades deterministically when absent.
func NewEngine(store ConversationStore, gateway messaging.Gateway, opts ...Option) *Engine {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Engine{
		store:    store,
		gateway:  gateway,
		oracle:   cfg.Oracle,
		media:    cfg.Media,
		docStore: cfg.DocStore,
	}
}

// stepResult is the outcome of one state machine evaluation. A non-nil err is
// a storage-class failure that must fail the acknowledgment instead of
// producing a reply.
type stepResult struct {
	reply   string
	next    models.ConversationState
	doc     *models.DocumentRecord
	persist bool
	err     error
}

// HandleInbound processes one inbound message event end to end.
//
// A nil return acknowledges the event to the provider. Send failures are
// acknowledged without persisting so state never advances past what the
// participant actually received; storage failures (conversation store or
// document store) return an error so the provider may redeliver.
func (e *Engine) HandleInbound(ctx context.Context, msg models.InboundMessage) error {
	phone, err := e.gateway.ValidateAndCanonicalizeRecipient(msg.From)
	if err != nil {
		slog.Warn("flow: ignoring inbound with invalid sender address", "from", msg.From, "error", err)
		return nil
	}

	participant, err := e.store.GetParticipantByPhone(phone)
	if err != nil {
		return fmt.Errorf("failed to look up participant: %w", err)
	}
	if participant == nil {
		// Unregistered numbers get no reply at all.
		slog.Info("flow: ignoring inbound from unknown participant", "from", phone)
		return nil
	}

	state, err := e.store.GetConversation(participant.ID)
	if err != nil {
		return fmt.Errorf("failed to load conversation state: %w", err)
	}
	if state == nil {
		fresh := models.NewConversationState(*participant)
		state = &fresh
	}

	result := e.step(ctx, *participant, *state, msg)
	if result.err != nil {
		return result.err
	}

	if result.reply == "" {
		return nil
	}
	if err := e.gateway.SendText(ctx, phone, result.reply); err != nil {
		// Acknowledge but do not persist: a redelivery re-runs against the
		// unchanged state.
		slog.Error("flow: outbound send failed, state not persisted",
			"participantID", participant.ID, "step", state.Step, "error", err)
		e.recordReceipt(phone, models.ReceiptStatusFailed)
		return nil
	}
	e.recordReceipt(phone, models.ReceiptStatusSent)

	if result.doc != nil {
		if err := e.store.AddDocument(*result.doc); err != nil {
			return fmt.Errorf("failed to persist document record: %w", err)
		}
	}
	if result.persist {
		result.next.LastUpdated = time.Now()
		if err := e.store.SaveConversation(result.next); err != nil {
			return fmt.Errorf("failed to persist conversation state: %w", err)
		}
		slog.Debug("flow: conversation advanced",
			"participantID", participant.ID, "from", state.Step, "to", result.next.Step)
	}
	return nil
}

// step evaluates the state machine for one inbound message. It never touches
// storage for the conversation row; persistence decisions are returned to the
// caller.
func (e *Engine) step(ctx context.Context, p models.Participant, cs models.ConversationState, msg models.InboundMessage) stepResult {
	body := strings.TrimSpace(msg.Body())

	// The upload step consumes attachments before any text classification.
	if cs.Step == models.StepAwaitingDocUpload && msg.Media() != nil {
		return e.handleDocUpload(ctx, p, cs, msg)
	}

	// An explicit update request resets the RSVP cycle from any state.
	// Documents already recorded are kept.
	classified := intent.Classify(body)
	if classified == intent.Update {
		cs.ClearRSVP()
		return stepResult{reply: replyUpdatePrompt, next: cs, persist: true}
	}
	if classified == intent.OffTopic {
		return stepResult{reply: replyOffTopicRedirect, next: cs}
	}

	switch cs.Step {
	case models.StepAwaitingRSVP:
		return e.handleAwaitingRSVP(ctx, p, cs, body, classified)
	case models.StepAwaitingGuestCount:
		return e.handleAwaitingGuestCount(ctx, cs, body)
	case models.StepAwaitingNotes:
		return e.handleAwaitingNotes(p, cs, body)
	case models.StepAwaitingDocName:
		return e.handleDocName(p, cs, body)
	case models.StepAwaitingDocRole:
		return e.handleDocRole(cs, body)
	case models.StepAwaitingDocType:
		return e.handleDocType(cs, body)
	case models.StepAwaitingDocUpload:
		return e.handleDocUploadText(p, cs, body)
	case models.StepAwaitingMoreDocs:
		return e.handleMoreDocs(p, cs, body, classified)
	case models.StepCompleted:
		return e.handleCompleted(ctx, p, cs, body)
	default:
		// Unknown stored step: recover by restarting the cycle rather than
		// wedging the conversation.
		slog.Warn("flow: resetting conversation with invalid step", "participantID", cs.ParticipantID, "step", cs.Step)
		cs.ClearRSVP()
		return stepResult{reply: replyAskRSVP, next: cs, persist: true}
	}
}

func (e *Engine) handleAwaitingRSVP(ctx context.Context, p models.Participant, cs models.ConversationState, body string, classified intent.Intent) stepResult {
	switch classified {
	case intent.Yes:
		cs.RSVPStatus = models.RSVPYes
		cs.Step = models.StepAwaitingGuestCount
		return stepResult{reply: replyAskGuestCount, next: cs, persist: true}
	case intent.No:
		cs.RSVPStatus = models.RSVPNo
		cs.Step = models.StepCompleted
		return stepResult{reply: replyDeclined, next: cs, persist: true}
	case intent.Maybe:
		cs.RSVPStatus = models.RSVPMaybe
		cs.Step = models.StepCompleted
		return stepResult{reply: replyMaybe, next: cs, persist: true}
	}

	// Deterministic pass failed; consult the oracle for an RSVP answer buried
	// in open-ended phrasing.
	if ex := e.consultOracle(ctx, cs, body); ex != nil && ex.RSVPStatus != nil {
		switch models.RSVPStatus(*ex.RSVPStatus) {
		case models.RSVPYes:
			cs.RSVPStatus = models.RSVPYes
			cs.Step = models.StepAwaitingGuestCount
			reply := replyAskGuestCount
			if ex.GuestCount != nil && *ex.GuestCount > 0 {
				cs.GuestCount = *ex.GuestCount
				cs.Step = models.StepAwaitingNotes
				reply = fmt.Sprintf(replyAskNotesFmt, cs.GuestCount)
			}
			return stepResult{reply: reply, next: cs, persist: true}
		case models.RSVPNo:
			cs.RSVPStatus = models.RSVPNo
			cs.Step = models.StepCompleted
			return stepResult{reply: replyDeclined, next: cs, persist: true}
		case models.RSVPMaybe:
			cs.RSVPStatus = models.RSVPMaybe
			cs.Step = models.StepCompleted
			return stepResult{reply: replyMaybe, next: cs, persist: true}
		}
	}
	return stepResult{reply: replyClarifyRSVP, next: cs}
}

func (e *Engine) handleAwaitingGuestCount(ctx context.Context, cs models.ConversationState, body string) stepResult {
	n, ok := intent.ParseGuestCount(body)
	if !ok {
		if ex := e.consultOracle(ctx, cs, body); ex != nil && ex.GuestCount != nil && *ex.GuestCount > 0 {
			n, ok = *ex.GuestCount, true
		}
	}
	if !ok {
		return stepResult{reply: replyRepromptGuestCount, next: cs}
	}
	cs.GuestCount = n
	cs.Step = models.StepAwaitingNotes
	return stepResult{reply: fmt.Sprintf(replyAskNotesFmt, n), next: cs, persist: true}
}

func (e *Engine) handleAwaitingNotes(p models.Participant, cs models.ConversationState, body string) stepResult {
	// Any text is accepted as notes, including an explicit "no".
	cs.Notes = body
	if cs.RSVPStatus == models.RSVPYes {
		cs.Step = models.StepAwaitingDocName
		return stepResult{reply: fmt.Sprintf(replyAskDocNameFmt, p.FullName), next: cs, persist: true}
	}
	cs.Step = models.StepCompleted
	return stepResult{reply: replyFinalized, next: cs, persist: true}
}

func (e *Engine) handleDocName(p models.Participant, cs models.ConversationState, body string) stepResult {
	name := body
	if name == "" || intent.MatchRole(body) == models.RoleSelf {
		name = p.FullName
	}
	cs.DocName = name
	cs.Step = models.StepAwaitingDocRole
	return stepResult{reply: fmt.Sprintf(replyAskDocRoleFmt, name), next: cs, persist: true}
}

func (e *Engine) handleDocRole(cs models.ConversationState, body string) stepResult {
	cs.DocRole = intent.MatchRole(body)
	cs.Step = models.StepAwaitingDocType
	return stepResult{reply: replyAskDocType + documentTypeMenu(), next: cs, persist: true}
}

func (e *Engine) handleDocType(cs models.ConversationState, body string) stepResult {
	docType, ok := intent.MatchDocumentType(body)
	if !ok {
		return stepResult{reply: replyRepromptDocType + documentTypeMenu(), next: cs}
	}
	cs.DocType = docType
	cs.Step = models.StepAwaitingDocUpload
	return stepResult{reply: fmt.Sprintf(replyAskUploadFmt, docType, cs.DocName), next: cs, persist: true}
}

// handleDocUpload processes an attachment in the upload step: the file is
// downloaded from the provider and stored before the record is appended.
// Storage failures fail the acknowledgment so the provider redelivers the
// attachment; only a missing media configuration degrades to a reply, since
// redelivery cannot fix that.
func (e *Engine) handleDocUpload(ctx context.Context, p models.Participant, cs models.ConversationState, msg models.InboundMessage) stepResult {
	media := msg.Media()
	if e.media == nil || e.docStore == nil {
		slog.Warn("flow: media handling not configured, cannot accept upload", "participantID", p.ID, "mediaID", media.ID)
		return stepResult{reply: replyUploadFailed, next: cs}
	}
	url, err := e.storeAttachment(ctx, p, cs, media)
	if err != nil {
		slog.Error("flow: attachment storage failed", "participantID", p.ID, "mediaID", media.ID, "error", err)
		return stepResult{err: fmt.Errorf("failed to store attachment: %w", err)}
	}

	doc := models.DocumentRecord{
		ID:            uuid.New().String(),
		ParticipantID: p.ID,
		AttendeeName:  cs.DocName,
		Role:          cs.DocRole,
		DocumentType:  cs.DocType,
		DocumentURL:   url,
		CreatedAt:     time.Now(),
	}
	cs.ClearDocScratch()
	cs.Step = models.StepAwaitingMoreDocs
	return stepResult{reply: replyAskMoreDocs, next: cs, doc: &doc, persist: true}
}

// handleDocUploadText handles the upload step when no attachment is present:
// a skip phrase records a pending docless entry, anything else reprompts.
func (e *Engine) handleDocUploadText(p models.Participant, cs models.ConversationState, body string) stepResult {
	if !intent.IsSkipPhrase(body) {
		return stepResult{reply: replyRepromptUpload, next: cs}
	}
	doc := models.DocumentRecord{
		ID:            uuid.New().String(),
		ParticipantID: p.ID,
		AttendeeName:  cs.DocName,
		Role:          cs.DocRole,
		DocumentType:  cs.DocType,
		CreatedAt:     time.Now(),
	}
	cs.ClearDocScratch()
	cs.Step = models.StepAwaitingMoreDocs
	return stepResult{reply: replySkippedUpload, next: cs, doc: &doc, persist: true}
}

func (e *Engine) handleMoreDocs(p models.Participant, cs models.ConversationState, body string, classified intent.Intent) stepResult {
	switch classified {
	case intent.Yes:
		cs.ClearDocScratch()
		cs.Step = models.StepAwaitingDocName
		return stepResult{reply: fmt.Sprintf(replyAskDocNameFmt, p.FullName), next: cs, persist: true}
	case intent.No:
		cs.Step = models.StepCompleted
		reply := replyFinalized
		if !e.hasUploadedDocuments(p.ID) {
			reply = replyFinalizedNoDocs
		}
		return stepResult{reply: reply, next: cs, persist: true}
	default:
		return stepResult{reply: replyRepromptMoreDocs, next: cs}
	}
}

func (e *Engine) handleCompleted(ctx context.Context, p models.Participant, cs models.ConversationState, body string) stepResult {
	switch {
	case intent.IsStatusQuery(body):
		return stepResult{reply: e.statusSnapshot(p, cs), next: cs}
	case intent.IsUploadRequest(body):
		// Reopening document collection leaves the rsvp fields alone.
		cs.ClearDocScratch()
		cs.Step = models.StepAwaitingDocName
		return stepResult{reply: fmt.Sprintf(replyAskDocNameFmt, p.FullName), next: cs, persist: true}
	}
	if ex := e.consultOracle(ctx, cs, body); ex != nil && ex.Reply != "" {
		return stepResult{reply: ex.Reply, next: cs}
	}
	return stepResult{reply: replyCompletedAck, next: cs}
}

// consultOracle runs the generative extraction fallback. Any failure or
// malformed output yields nil so callers degrade deterministically.
func (e *Engine) consultOracle(ctx context.Context, cs models.ConversationState, body string) *genai.Extraction {
	if e.oracle == nil || body == "" {
		return nil
	}
	ex, err := e.oracle.ExtractFields(ctx, oracleSystemPrompt, oracleUserPrompt(cs, body))
	if err != nil {
		slog.Warn("flow: oracle fallback unavailable", "participantID", cs.ParticipantID, "error", err)
		return nil
	}
	return ex
}

// storeAttachment downloads the provider media and persists it, returning the
// stored document URL.
func (e *Engine) storeAttachment(ctx context.Context, p models.Participant, cs models.ConversationState, media *models.MediaContent) (string, error) {
	url, err := e.media.ResolveMediaURL(ctx, media.ID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve media url: %w", err)
	}
	data, contentType, err := e.media.DownloadMedia(ctx, url)
	if err != nil {
		return "", fmt.Errorf("failed to download media: %w", err)
	}
	filename := media.Filename
	if filename == "" {
		filename = media.ID
	}
	stored, err := e.docStore.Store(ctx, cs.EventID, p.ID, filename, data, contentType)
	if err != nil {
		return "", fmt.Errorf("failed to store document: %w", err)
	}
	return stored, nil
}

func (e *Engine) hasUploadedDocuments(participantID string) bool {
	docs, err := e.store.ListDocuments(participantID)
	if err != nil {
		slog.Warn("flow: failed to list documents for finalize reply", "participantID", participantID, "error", err)
		return true
	}
	for _, d := range docs {
		if d.Uploaded() {
			return true
		}
	}
	return false
}

// statusSnapshot renders the current stored RSVP record for a status query.
func (e *Engine) statusSnapshot(p models.Participant, cs models.ConversationState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "RSVP status for %s:\n", p.FullName)
	status := string(cs.RSVPStatus)
	if status == "" {
		status = "not answered yet"
	}
	fmt.Fprintf(&b, "- Attending: %s\n", status)
	if cs.GuestCount > 0 {
		fmt.Fprintf(&b, "- Guests: %d\n", cs.GuestCount)
	}
	if cs.Notes != "" {
		fmt.Fprintf(&b, "- Notes: %s\n", cs.Notes)
	}
	docs, err := e.store.ListDocuments(p.ID)
	if err == nil {
		uploaded := 0
		for _, d := range docs {
			if d.Uploaded() {
				uploaded++
			}
		}
		fmt.Fprintf(&b, "- Documents uploaded: %d of %d\n", uploaded, len(docs))
	}
	b.WriteString("Reply 'update' to change your RSVP.")
	return b.String()
}

func (e *Engine) recordReceipt(to, status string) {
	r := models.Receipt{To: to, Status: status, Time: time.Now().Unix()}
	if err := e.store.AddReceipt(r); err != nil {
		slog.Warn("flow: failed to record receipt", "to", to, "error", err)
	}
}
