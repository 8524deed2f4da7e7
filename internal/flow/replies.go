package flow

import (
	"fmt"
	"strings"

	"github.com/evinta/rsvpd/internal/models"
)

// Canned reply texts for the deterministic path of the state machine.
const (
	replyAskRSVP      = "Will you be attending? Please reply Yes, No, or Maybe."
	replyClarifyRSVP  = "Sorry, I didn't catch that. Will you be attending? Please reply Yes, No, or Maybe."
	replyUpdatePrompt = "Let's update your RSVP. Will you be attending? Please reply Yes, No, or Maybe."

	replyOffTopicRedirect = "I can only help with your event RSVP here. Will you be attending? You can also reply 'status' or 'update'."

	replyAskGuestCount      = "Great, you're in! How many guests will be attending in total, including yourself?"
	replyRepromptGuestCount = "Please reply with the number of guests, e.g. 2."

	replyAskNotesFmt = "Noted, %d guest(s). Any notes for us, like dietary needs or arrival time? Reply 'no' if none."

	replyDeclined = "Sorry you can't make it. Your RSVP is recorded as No. Reply 'update' anytime to change it."
	replyMaybe    = "No problem, I've recorded Maybe. Reply 'update' once you've decided."

	replyAskDocNameFmt   = "We also collect ID documents for attendees. Whose document will you send first? Reply with the attendee's name, or 'me' for yourself (%s)."
	replyAskDocRoleFmt   = "What is %s's relationship to you? For example: Self, Spouse, Child, Friend, Family, or Other."
	replyAskDocType      = "Which document type will you send?\n"
	replyRepromptDocType = "Please pick one of these document types, by number or name:\n"

	replyAskUploadFmt   = "Please send a photo or file of the %s for %s now, or reply 'later' to send it another time."
	replyRepromptUpload = "I'm waiting for the document. Please send it as a photo or file, or reply 'later'."
	replyUploadFailed   = "Sorry, I couldn't save that file. Please try sending it again, or reply 'later'."
	replySkippedUpload  = "No problem, you can send it later. Would you like to add a document for another attendee? Yes or No."

	replyAskMoreDocs      = "Saved, thank you! Would you like to add a document for another attendee? Yes or No."
	replyRepromptMoreDocs = "Would you like to add a document for another attendee? Please reply Yes or No."

	replyFinalized       = "All set! Your RSVP is complete. Reply 'status' to review it or 'update' to change it. Thank you!"
	replyFinalizedNoDocs = "All set! Your RSVP is complete. We haven't received any document uploads yet; reply 'upload' whenever you're ready to send them. Thank you!"

	replyCompletedAck = "Thanks! Your RSVP is already recorded. Reply 'status' to review it or 'update' to change it."
)

// documentTypeMenu renders the fixed document-type list as a numbered menu.
func documentTypeMenu() string {
	var b strings.Builder
	for i, dt := range models.DocumentTypes {
		fmt.Fprintf(&b, "%d. %s\n", i+1, dt)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// oracleSystemPrompt pins the oracle to the strict JSON output contract.
const oracleSystemPrompt = `You are an RSVP assistant for an event. ` +
	`You are given the conversation step, the fields collected so far, and the participant's latest message. ` +
	`Respond with a single JSON object and nothing else, using exactly these fields: ` +
	`{"reply": string, "rsvp_status": "Yes"|"No"|"Maybe"|null, "guest_count": integer|null, "notes": string|null}. ` +
	`Only set a field when the message clearly states it; otherwise use null. ` +
	`The reply must be short, friendly, and strictly about the event RSVP. ` +
	`If the message is unrelated to the event, the reply must redirect to the RSVP.`

// oracleUserPrompt embeds the current step and collected fields with the text.
func oracleUserPrompt(cs models.ConversationState, body string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "step: %s\n", cs.Step)
	fmt.Fprintf(&b, "rsvp_status: %s\n", orNull(string(cs.RSVPStatus)))
	if cs.GuestCount > 0 {
		fmt.Fprintf(&b, "guest_count: %d\n", cs.GuestCount)
	} else {
		b.WriteString("guest_count: null\n")
	}
	fmt.Fprintf(&b, "notes: %s\n", orNull(cs.Notes))
	fmt.Fprintf(&b, "message: %s", body)
	return b.String()
}

func orNull(s string) string {
	if s == "" {
		return "null"
	}
	return s
}
