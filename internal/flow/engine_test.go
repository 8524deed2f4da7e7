package flow

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/evinta/rsvpd/internal/genai"
	"github.com/evinta/rsvpd/internal/messaging"
	"github.com/evinta/rsvpd/internal/models"
	"github.com/evinta/rsvpd/internal/store"
)

const (
	testPhone   = "15551234567"
	testEventID = "event-1"
)

// fakeOracle returns a canned extraction or error.
type fakeOracle struct {
	ex    *genai.Extraction
	err   error
	calls int
}

func (f *fakeOracle) ExtractFields(ctx context.Context, systemPrompt, userPrompt string) (*genai.Extraction, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.ex, nil
}

// fakeMedia resolves every media id to a fixed URL and payload.
type fakeMedia struct {
	failDownload bool
}

func (f *fakeMedia) ResolveMediaURL(ctx context.Context, mediaID string) (string, error) {
	return "https://media.example/" + mediaID, nil
}

func (f *fakeMedia) DownloadMedia(ctx context.Context, url string) ([]byte, string, error) {
	if f.failDownload {
		return nil, "", fmt.Errorf("download failed")
	}
	return []byte("fake-image-bytes"), "image/jpeg", nil
}

// fakeDocStore records stores and returns a deterministic URL.
type fakeDocStore struct {
	stored    int
	failStore bool
}

func (f *fakeDocStore) Store(ctx context.Context, eventID, participantID, filename string, data []byte, contentType string) (string, error) {
	if f.failStore {
		return "", fmt.Errorf("document store unavailable")
	}
	f.stored++
	return fmt.Sprintf("/uploads/%s/%s/%s", eventID, participantID, filename), nil
}

// failingStore wraps the in-memory store to simulate persistence outages.
type failingStore struct {
	*store.InMemoryStore
	failSave bool
}

func (f *failingStore) SaveConversation(cs models.ConversationState) error {
	if f.failSave {
		return fmt.Errorf("store unavailable")
	}
	return f.InMemoryStore.SaveConversation(cs)
}

func textMsg(body string) models.InboundMessage {
	return models.InboundMessage{
		From: testPhone,
		Type: models.MessageTypeText,
		Text: &models.TextContent{Body: body},
	}
}

func imageMsg(id string) models.InboundMessage {
	return models.InboundMessage{
		From:  testPhone,
		Type:  models.MessageTypeImage,
		Image: &models.MediaContent{ID: id, MimeType: "image/jpeg"},
	}
}

// newTestEngine seeds one participant and returns the wired engine plus its
// collaborators for inspection.
func newTestEngine(t *testing.T, opts ...Option) (*Engine, *store.InMemoryStore, *messaging.MockGateway, models.Participant) {
	t.Helper()
	st := store.NewInMemoryStore()
	p := models.Participant{
		ID:          "participant-1",
		EventID:     testEventID,
		FullName:    "Asha Rao",
		PhoneNumber: testPhone,
		CreatedAt:   time.Now(),
	}
	if err := st.AddParticipants([]models.Participant{p}); err != nil {
		t.Fatalf("failed to seed participant: %v", err)
	}
	gw := messaging.NewMockGateway()
	return NewEngine(st, gw, opts...), st, gw, p
}

func mustState(t *testing.T, st *store.InMemoryStore, participantID string) models.ConversationState {
	t.Helper()
	cs, err := st.GetConversation(participantID)
	if err != nil {
		t.Fatalf("failed to load conversation: %v", err)
	}
	if cs == nil {
		t.Fatal("conversation state not persisted")
	}
	return *cs
}

func seedState(t *testing.T, st *store.InMemoryStore, cs models.ConversationState) {
	t.Helper()
	cs.LastUpdated = time.Now()
	if err := st.SaveConversation(cs); err != nil {
		t.Fatalf("failed to seed conversation: %v", err)
	}
}

func TestYesAdvancesToGuestCount(t *testing.T) {
	for _, in := range []string{"Yes", "count me in", "yep!"} {
		e, st, gw, p := newTestEngine(t)
		if err := e.HandleInbound(context.Background(), textMsg(in)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		cs := mustState(t, st, p.ID)
		if cs.Step != models.StepAwaitingGuestCount {
			t.Errorf("input %q: step = %v, want awaiting_guest_count", in, cs.Step)
		}
		if cs.RSVPStatus != models.RSVPYes {
			t.Errorf("input %q: rsvp_status = %v, want Yes", in, cs.RSVPStatus)
		}
		if gw.LastSent() == nil || !strings.Contains(gw.LastSent().Body, "How many guests") {
			t.Errorf("input %q: reply should ask for guest count", in)
		}
	}
}

func TestNoCompletes(t *testing.T) {
	for _, in := range []string{"No", "not coming", "can't make it"} {
		e, st, _, p := newTestEngine(t)
		if err := e.HandleInbound(context.Background(), textMsg(in)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		cs := mustState(t, st, p.ID)
		if cs.Step != models.StepCompleted || cs.RSVPStatus != models.RSVPNo {
			t.Errorf("input %q: got step=%v status=%v, want completed/No", in, cs.Step, cs.RSVPStatus)
		}
	}
}

func TestMaybeCompletes(t *testing.T) {
	e, st, _, p := newTestEngine(t)
	if err := e.HandleInbound(context.Background(), textMsg("not sure yet")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cs := mustState(t, st, p.ID)
	if cs.Step != models.StepCompleted || cs.RSVPStatus != models.RSVPMaybe {
		t.Errorf("got step=%v status=%v, want completed/Maybe", cs.Step, cs.RSVPStatus)
	}
}

func TestRSVPStatusIsWriteOnce(t *testing.T) {
	e, st, _, p := newTestEngine(t)
	ctx := context.Background()
	if err := e.HandleInbound(ctx, textMsg("yes")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// A "no" while awaiting the guest count must not overturn the RSVP.
	if err := e.HandleInbound(ctx, textMsg("no")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cs := mustState(t, st, p.ID)
	if cs.RSVPStatus != models.RSVPYes {
		t.Errorf("rsvp_status = %v, want Yes to survive non-Update input", cs.RSVPStatus)
	}
	if cs.Step != models.StepAwaitingGuestCount {
		t.Errorf("step = %v, want unchanged awaiting_guest_count", cs.Step)
	}
}

func TestUpdateResetsAndKeepsDocuments(t *testing.T) {
	e, st, _, p := newTestEngine(t)
	seedState(t, st, models.ConversationState{
		ParticipantID: p.ID,
		EventID:       testEventID,
		Step:          models.StepCompleted,
		RSVPStatus:    models.RSVPYes,
		GuestCount:    3,
		Notes:         "Vegetarian",
	})
	doc := models.DocumentRecord{
		ID: "doc-1", ParticipantID: p.ID, AttendeeName: p.FullName,
		Role: models.RoleSelf, DocumentType: models.DocumentTypePassport,
		DocumentURL: "/uploads/x", CreatedAt: time.Now(),
	}
	if err := st.AddDocument(doc); err != nil {
		t.Fatalf("failed to seed document: %v", err)
	}

	if err := e.HandleInbound(context.Background(), textMsg("please update my rsvp")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cs := mustState(t, st, p.ID)
	if cs.Step != models.StepAwaitingRSVP || cs.RSVPStatus != "" || cs.GuestCount != 0 || cs.Notes != "" {
		t.Errorf("Update did not reset rsvp fields: %+v", cs)
	}
	docs, err := st.ListDocuments(p.ID)
	if err != nil || len(docs) != 1 {
		t.Errorf("documents should survive an Update reset, got %d", len(docs))
	}
}

func TestGuestCountExtraction(t *testing.T) {
	e, st, gw, p := newTestEngine(t)
	seedState(t, st, models.ConversationState{
		ParticipantID: p.ID, EventID: testEventID,
		Step: models.StepAwaitingGuestCount, RSVPStatus: models.RSVPYes,
	})
	ctx := context.Background()

	// No digit: reprompt, no state change.
	if err := e.HandleInbound(ctx, textMsg("zero")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cs := mustState(t, st, p.ID)
	if cs.Step != models.StepAwaitingGuestCount || cs.GuestCount != 0 {
		t.Errorf("non-numeric input changed state: %+v", cs)
	}
	if gw.LastSent() == nil || !strings.Contains(gw.LastSent().Body, "number") {
		t.Error("expected a numeric reprompt")
	}

	if err := e.HandleInbound(ctx, textMsg("3 people")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cs = mustState(t, st, p.ID)
	if cs.GuestCount != 3 || cs.Step != models.StepAwaitingNotes {
		t.Errorf("got guest_count=%d step=%v, want 3/awaiting_notes", cs.GuestCount, cs.Step)
	}
}

func TestEndToEndYesFlow(t *testing.T) {
	e, st, gw, p := newTestEngine(t)
	ctx := context.Background()

	if err := e.HandleInbound(ctx, textMsg("Yes definitely")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(gw.LastSent().Body, "How many guests") {
		t.Error("reply should contain a guest-count question")
	}
	if cs := mustState(t, st, p.ID); cs.Step != models.StepAwaitingGuestCount {
		t.Fatalf("step = %v, want awaiting_guest_count", cs.Step)
	}

	if err := e.HandleInbound(ctx, textMsg("2")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs := mustState(t, st, p.ID); cs.Step != models.StepAwaitingNotes || cs.GuestCount != 2 {
		t.Fatalf("got step=%v guest_count=%d, want awaiting_notes/2", cs.Step, cs.GuestCount)
	}

	if err := e.HandleInbound(ctx, textMsg("Vegetarian please")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cs := mustState(t, st, p.ID)
	if cs.Step != models.StepAwaitingDocName {
		t.Errorf("step = %v, want awaiting_doc_name after notes with rsvp=Yes", cs.Step)
	}
	if cs.Notes != "Vegetarian please" {
		t.Errorf("notes = %q, want %q", cs.Notes, "Vegetarian please")
	}
}

func TestDeclineThenThanks(t *testing.T) {
	e, st, gw, p := newTestEngine(t)
	ctx := context.Background()

	if err := e.HandleInbound(ctx, textMsg("Not coming")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	before := mustState(t, st, p.ID)
	if before.Step != models.StepCompleted || before.RSVPStatus != models.RSVPNo {
		t.Fatalf("got step=%v status=%v, want completed/No", before.Step, before.RSVPStatus)
	}

	if err := e.HandleInbound(ctx, textMsg("thanks")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	after := mustState(t, st, p.ID)
	if after.Step != before.Step || after.RSVPStatus != before.RSVPStatus || after.LastUpdated != before.LastUpdated {
		t.Error("completed state must not mutate on a plain acknowledgment")
	}
	if gw.LastSent() == nil || gw.LastSent().Body == "" {
		t.Error("expected a short acknowledgment reply")
	}
}

func TestOffTopicRedirectNoMutation(t *testing.T) {
	steps := []models.Step{models.StepAwaitingRSVP, models.StepAwaitingGuestCount, models.StepCompleted}
	for _, step := range steps {
		e, st, gw, p := newTestEngine(t)
		seedState(t, st, models.ConversationState{
			ParticipantID: p.ID, EventID: testEventID, Step: step, RSVPStatus: models.RSVPYes,
		})
		before := mustState(t, st, p.ID)

		if err := e.HandleInbound(context.Background(), textMsg("who won the match")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		after := mustState(t, st, p.ID)
		if after.Step != before.Step || after.LastUpdated != before.LastUpdated {
			t.Errorf("step %v: off-topic input mutated state", step)
		}
		if gw.LastSent() == nil || !strings.Contains(gw.LastSent().Body, "RSVP") {
			t.Errorf("step %v: reply should redirect to the RSVP topic", step)
		}
	}
}

func TestDocumentUploadAppendsOneRecord(t *testing.T) {
	media := &fakeMedia{}
	docs := &fakeDocStore{}
	e, st, _, p := newTestEngine(t, WithMedia(media), WithDocumentStore(docs))
	seedState(t, st, models.ConversationState{
		ParticipantID: p.ID, EventID: testEventID,
		Step: models.StepAwaitingDocUpload, RSVPStatus: models.RSVPYes, GuestCount: 2,
		DocName: "Asha Rao", DocRole: models.RoleSelf, DocType: models.DocumentTypePassport,
	})

	if err := e.HandleInbound(context.Background(), imageMsg("media-123")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cs := mustState(t, st, p.ID)
	if cs.Step != models.StepAwaitingMoreDocs {
		t.Errorf("step = %v, want awaiting_more_docs", cs.Step)
	}
	if cs.DocName != "" || cs.DocRole != "" || cs.DocType != "" {
		t.Error("doc scratch state should be cleared after a finalized record")
	}
	records, err := st.ListDocuments(p.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d document records, want exactly 1", len(records))
	}
	if records[0].DocumentType != models.DocumentTypePassport {
		t.Errorf("document_type = %v, want previously selected Passport", records[0].DocumentType)
	}
	if !records[0].Uploaded() {
		t.Error("record should carry the stored document URL")
	}
	if docs.stored != 1 {
		t.Errorf("document store invoked %d times, want 1", docs.stored)
	}
}

func TestDocStoreOutageSurfacesError(t *testing.T) {
	media := &fakeMedia{}
	docs := &fakeDocStore{failStore: true}
	e, st, gw, p := newTestEngine(t, WithMedia(media), WithDocumentStore(docs))
	seedState(t, st, models.ConversationState{
		ParticipantID: p.ID, EventID: testEventID,
		Step: models.StepAwaitingDocUpload, RSVPStatus: models.RSVPYes,
		DocName: "Asha Rao", DocRole: models.RoleSelf, DocType: models.DocumentTypePassport,
	})
	before := mustState(t, st, p.ID)

	// An unreachable document store is a storage failure: the webhook must be
	// acknowledged as failed so the provider redelivers, with no reply sent.
	if err := e.HandleInbound(context.Background(), imageMsg("media-123")); err == nil {
		t.Fatal("attachment storage failure must produce a failed acknowledgment")
	}
	if gw.LastSent() != nil {
		t.Errorf("no reply should be sent on storage failure, got %q", gw.LastSent().Body)
	}
	after := mustState(t, st, p.ID)
	if after.Step != before.Step || after.LastUpdated != before.LastUpdated {
		t.Error("storage failure must not mutate conversation state")
	}
	if records, _ := st.ListDocuments(p.ID); len(records) != 0 {
		t.Errorf("no document record should be persisted, got %d", len(records))
	}

	// Once the store recovers, the redelivered event completes normally.
	docs.failStore = false
	if err := e.HandleInbound(context.Background(), imageMsg("media-123")); err != nil {
		t.Fatalf("unexpected error after recovery: %v", err)
	}
	if cs := mustState(t, st, p.ID); cs.Step != models.StepAwaitingMoreDocs {
		t.Errorf("step = %v, want awaiting_more_docs after redelivery", cs.Step)
	}
}

func TestSkipUploadRecordsPendingEntry(t *testing.T) {
	e, st, _, p := newTestEngine(t)
	seedState(t, st, models.ConversationState{
		ParticipantID: p.ID, EventID: testEventID,
		Step: models.StepAwaitingDocUpload, RSVPStatus: models.RSVPYes,
		DocName: "Asha Rao", DocRole: models.RoleSelf, DocType: models.DocumentTypePassport,
	})

	if err := e.HandleInbound(context.Background(), textMsg("I'll send it later")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs := mustState(t, st, p.ID); cs.Step != models.StepAwaitingMoreDocs {
		t.Errorf("step = %v, want awaiting_more_docs", cs.Step)
	}
	records, _ := st.ListDocuments(p.ID)
	if len(records) != 1 || records[0].Uploaded() {
		t.Errorf("want exactly one pending docless record, got %+v", records)
	}
}

func TestFinalizeWithoutUploadsIncludesReminder(t *testing.T) {
	e, st, gw, p := newTestEngine(t)
	seedState(t, st, models.ConversationState{
		ParticipantID: p.ID, EventID: testEventID,
		Step: models.StepAwaitingMoreDocs, RSVPStatus: models.RSVPYes, GuestCount: 1,
	})
	if err := st.AddDocument(models.DocumentRecord{
		ID: "doc-1", ParticipantID: p.ID, AttendeeName: p.FullName,
		Role: models.RoleSelf, DocumentType: models.DocumentTypePassport, CreatedAt: time.Now(),
	}); err != nil {
		t.Fatalf("failed to seed document: %v", err)
	}

	if err := e.HandleInbound(context.Background(), textMsg("no")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs := mustState(t, st, p.ID); cs.Step != models.StepCompleted {
		t.Errorf("step = %v, want completed", cs.Step)
	}
	if !strings.Contains(gw.LastSent().Body, "haven't received any document uploads") {
		t.Errorf("finalize reply should remind about missing uploads, got %q", gw.LastSent().Body)
	}
}

func TestSendFailureDoesNotPersist(t *testing.T) {
	e, st, gw, p := newTestEngine(t)
	gw.FailNext = true

	if err := e.HandleInbound(context.Background(), textMsg("yes")); err != nil {
		t.Fatalf("send failure must still acknowledge the event, got %v", err)
	}
	cs, err := st.GetConversation(p.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs != nil {
		t.Errorf("state persisted despite send failure: %+v", cs)
	}

	// The redelivered event now succeeds and advances normally.
	if err := e.HandleInbound(context.Background(), textMsg("yes")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs := mustState(t, st, p.ID); cs.Step != models.StepAwaitingGuestCount {
		t.Errorf("redelivery did not advance state, step = %v", cs.Step)
	}
}

func TestStorageFailureSurfacesError(t *testing.T) {
	st := &failingStore{InMemoryStore: store.NewInMemoryStore(), failSave: true}
	p := models.Participant{ID: "participant-1", EventID: testEventID, FullName: "Asha Rao", PhoneNumber: testPhone, CreatedAt: time.Now()}
	if err := st.AddParticipants([]models.Participant{p}); err != nil {
		t.Fatalf("failed to seed participant: %v", err)
	}
	e := NewEngine(st, messaging.NewMockGateway())

	if err := e.HandleInbound(context.Background(), textMsg("yes")); err == nil {
		t.Error("storage failure must produce a failed acknowledgment")
	}
}

func TestUnknownParticipantSilentlyIgnored(t *testing.T) {
	st := store.NewInMemoryStore()
	gw := messaging.NewMockGateway()
	e := NewEngine(st, gw)

	if err := e.HandleInbound(context.Background(), textMsg("yes")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gw.LastSent() != nil {
		t.Error("unregistered numbers must receive no reply")
	}
}

func TestStatusQueryInCompleted(t *testing.T) {
	e, st, gw, p := newTestEngine(t)
	seedState(t, st, models.ConversationState{
		ParticipantID: p.ID, EventID: testEventID,
		Step: models.StepCompleted, RSVPStatus: models.RSVPYes, GuestCount: 2, Notes: "Vegetarian",
	})
	before := mustState(t, st, p.ID)

	if err := e.HandleInbound(context.Background(), textMsg("what's my status?")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	after := mustState(t, st, p.ID)
	if after.LastUpdated != before.LastUpdated {
		t.Error("status query must not mutate state")
	}
	body := gw.LastSent().Body
	if !strings.Contains(body, "Yes") || !strings.Contains(body, "2") || !strings.Contains(body, "Vegetarian") {
		t.Errorf("status snapshot incomplete: %q", body)
	}
}

func TestUploadKeywordReopensDocFlow(t *testing.T) {
	e, st, _, p := newTestEngine(t)
	seedState(t, st, models.ConversationState{
		ParticipantID: p.ID, EventID: testEventID,
		Step: models.StepCompleted, RSVPStatus: models.RSVPNo,
	})

	if err := e.HandleInbound(context.Background(), textMsg("I want to upload a document")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cs := mustState(t, st, p.ID)
	if cs.Step != models.StepAwaitingDocName {
		t.Errorf("step = %v, want awaiting_doc_name", cs.Step)
	}
	if cs.RSVPStatus != models.RSVPNo {
		t.Error("reopening document collection must not touch rsvp fields")
	}
}

func TestOracleFallbackResolvesAmbiguousRSVP(t *testing.T) {
	yes := "Yes"
	count := 3
	oracle := &fakeOracle{ex: &genai.Extraction{Reply: "Wonderful!", RSVPStatus: &yes, GuestCount: &count}}
	e, st, _, p := newTestEngine(t, WithOracle(oracle))

	if err := e.HandleInbound(context.Background(), textMsg("the whole family is looking forward to it")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cs := mustState(t, st, p.ID)
	if cs.RSVPStatus != models.RSVPYes || cs.GuestCount != 3 || cs.Step != models.StepAwaitingNotes {
		t.Errorf("oracle extraction not applied: %+v", cs)
	}
	if oracle.calls != 1 {
		t.Errorf("oracle consulted %d times, want 1", oracle.calls)
	}
}

func TestOracleFailureDegradesToClarify(t *testing.T) {
	oracle := &fakeOracle{err: fmt.Errorf("oracle down")}
	e, st, gw, p := newTestEngine(t, WithOracle(oracle))

	if err := e.HandleInbound(context.Background(), textMsg("hmm interesting question")); err != nil {
		t.Fatalf("oracle failure must never surface: %v", err)
	}
	if cs, _ := st.GetConversation(p.ID); cs != nil {
		t.Error("clarifying reply must not persist state")
	}
	if !strings.Contains(gw.LastSent().Body, "Yes, No, or Maybe") {
		t.Errorf("expected a clarifying reply, got %q", gw.LastSent().Body)
	}
}

func TestDocNameRoleTypeSequence(t *testing.T) {
	e, st, gw, p := newTestEngine(t)
	seedState(t, st, models.ConversationState{
		ParticipantID: p.ID, EventID: testEventID,
		Step: models.StepAwaitingDocName, RSVPStatus: models.RSVPYes, GuestCount: 2,
	})
	ctx := context.Background()

	if err := e.HandleInbound(ctx, textMsg("Ravi Rao")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cs := mustState(t, st, p.ID)
	if cs.Step != models.StepAwaitingDocRole || cs.DocName != "Ravi Rao" {
		t.Fatalf("got step=%v name=%q", cs.Step, cs.DocName)
	}

	if err := e.HandleInbound(ctx, textMsg("he is my brother")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cs = mustState(t, st, p.ID)
	if cs.Step != models.StepAwaitingDocType || cs.DocRole != models.RoleFamily {
		t.Fatalf("got step=%v role=%v, want awaiting_doc_type/Family", cs.Step, cs.DocRole)
	}

	// Unmatched document type reprompts with the menu.
	if err := e.HandleInbound(ctx, textMsg("something weird")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs = mustState(t, st, p.ID); cs.Step != models.StepAwaitingDocType {
		t.Fatalf("unmatched type advanced state to %v", cs.Step)
	}
	if !strings.Contains(gw.LastSent().Body, "1. National ID") {
		t.Errorf("reprompt should list the document types, got %q", gw.LastSent().Body)
	}

	if err := e.HandleInbound(ctx, textMsg("2")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cs = mustState(t, st, p.ID)
	if cs.Step != models.StepAwaitingDocUpload || cs.DocType != models.DocumentTypePassport {
		t.Errorf("got step=%v type=%v, want awaiting_doc_upload/Passport", cs.Step, cs.DocType)
	}
}
