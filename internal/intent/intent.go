// Package intent classifies free-text participant replies into RSVP intents.
//
// Classification is deterministic: text is normalized and matched against
// curated synonym lists using whole-token boundaries, so "no" never matches
// inside "note". Anything the deterministic pass cannot resolve is left to the
// caller, which may consult the generative extraction oracle.
package intent

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/evinta/rsvpd/internal/models"
)

// Intent is the coarse classification of a participant's reply.
type Intent string

const (
	Yes      Intent = "Yes"
	No       Intent = "No"
	Maybe    Intent = "Maybe"
	Update   Intent = "Update"
	OffTopic Intent = "OffTopic"
	Unknown  Intent = "Unknown"
)

// Synonym lists are matched in fixed priority order: Update > Yes > No >
// Maybe > OffTopic. Multi-word entries match as contiguous token sequences.
var (
	updateSynonyms = []string{
		"update", "update rsvp", "change rsvp", "change my rsvp", "redo rsvp", "reset",
	}
	// Bare "attending"/"coming" are absent here so negated phrases such as
	// "not attending" fall through to the No list despite Yes priority.
	yesSynonyms = []string{
		"yes", "yeah", "yep", "yup", "ya", "ok", "okay", "confirm", "confirmed",
		"definitely", "absolutely", "certainly", "of course", "count me in",
		"i will come", "will come", "im coming", "i am coming", "ill be there",
		"will attend", "see you there",
	}
	noSynonyms = []string{
		"no", "nope", "nah", "cant", "cannot", "decline", "declined", "regret",
		"not coming", "not attending", "cant make it", "cant come", "wont come",
		"wont be there", "unable",
	}
	maybeSynonyms = []string{
		"maybe", "perhaps", "possibly", "unsure", "not sure", "might", "tentative",
		"not certain", "depends", "will see", "let you know",
	}
	offTopicSynonyms = []string{
		"match", "game", "score", "won", "weather", "news", "movie", "song",
		"politics", "election", "cricket", "football", "joke", "stock", "crypto",
	}

	// Domain keywords guard off-topic redirection: if any of these appear the
	// text is treated as an event question rather than chit-chat.
	domainKeywords = []string{
		"attend", "attending", "guest", "guests", "rsvp", "venue", "date", "time",
		"status", "upload", "document", "documents", "invite", "invitation",
		"event", "wedding", "party", "ceremony", "dress", "food", "parking",
	}

	skipSynonyms = []string{
		"later", "skip", "not now", "send later", "upload later", "dont have",
	}

	nonAlnum  = regexp.MustCompile(`[^a-z0-9 ]+`)
	digitsRun = regexp.MustCompile(`\d+`)
)

// Normalize lowercases text, strips punctuation, collapses whitespace, and
// splits it into tokens.
func Normalize(text string) []string {
	lower := strings.ToLower(text)
	// Apostrophes are removed rather than replaced so "can't" matches "cant".
	lower = strings.ReplaceAll(lower, "'", "")
	lower = strings.ReplaceAll(lower, "’", "")
	cleaned := nonAlnum.ReplaceAllString(lower, " ")
	return strings.Fields(cleaned)
}

// Classify maps raw user text to an Intent using the deterministic synonym
// pass only. It returns Unknown when nothing matches; resolving Unknown input
// is the caller's concern.
func Classify(text string) Intent {
	tokens := Normalize(text)
	if len(tokens) == 0 {
		return Unknown
	}
	switch {
	case matchAny(tokens, updateSynonyms):
		return Update
	case matchAny(tokens, yesSynonyms):
		return Yes
	case matchAny(tokens, noSynonyms):
		return No
	case matchAny(tokens, maybeSynonyms):
		return Maybe
	case matchAny(tokens, offTopicSynonyms) && !HasDomainKeyword(tokens):
		return OffTopic
	default:
		return Unknown
	}
}

// HasDomainKeyword reports whether any RSVP-domain keyword appears as a token.
func HasDomainKeyword(tokens []string) bool {
	return matchAny(tokens, domainKeywords)
}

// IsSkipPhrase reports whether text asks to defer a pending document upload.
func IsSkipPhrase(text string) bool {
	return matchAny(Normalize(text), skipSynonyms)
}

// IsStatusQuery reports whether text asks for the current RSVP snapshot.
func IsStatusQuery(text string) bool {
	return matchAny(Normalize(text), []string{"status", "my rsvp", "summary"})
}

// IsUploadRequest reports whether text asks to (re)open document collection.
func IsUploadRequest(text string) bool {
	return matchAny(Normalize(text), []string{"upload", "document", "documents", "doc", "docs", "attachment"})
}

// matchAny checks each synonym against the token list. Single-word synonyms
// must appear as a standalone token; multi-word synonyms must appear as a
// contiguous token run.
func matchAny(tokens []string, synonyms []string) bool {
	for _, syn := range synonyms {
		parts := strings.Fields(syn)
		if matchSequence(tokens, parts) {
			return true
		}
	}
	return false
}

func matchSequence(tokens, parts []string) bool {
	if len(parts) == 0 || len(parts) > len(tokens) {
		return false
	}
	for i := 0; i+len(parts) <= len(tokens); i++ {
		matched := true
		for j, p := range parts {
			if tokens[i+j] != p {
				matched = false
				break
			}
		}
		if matched {
			return true
		}
	}
	return false
}

// ParseGuestCount extracts the first embedded digit run from text as a guest
// count. It returns false when no positive integer is present. Spelled-out
// numbers are deliberately not recognized.
func ParseGuestCount(text string) (int, bool) {
	m := digitsRun.FindString(text)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// roleKeywords maps relationship words to the fixed role enum.
var roleKeywords = []struct {
	words []string
	role  models.Role
}{
	{[]string{"self", "me", "myself", "mine", "own"}, models.RoleSelf},
	{[]string{"spouse", "wife", "husband", "partner", "fiance", "fiancee"}, models.RoleSpouse},
	{[]string{"child", "son", "daughter", "kid", "baby"}, models.RoleChild},
	{[]string{"friend", "colleague", "coworker"}, models.RoleFriend},
	{[]string{"family", "brother", "sister", "mother", "father", "mom", "dad", "parent", "cousin", "uncle", "aunt", "relative", "grandmother", "grandfather"}, models.RoleFamily},
}

// MatchRole classifies free text into the fixed role enum, defaulting to Other.
func MatchRole(text string) models.Role {
	tokens := Normalize(text)
	for _, rk := range roleKeywords {
		if matchAny(tokens, rk.words) {
			return rk.role
		}
	}
	return models.RoleOther
}

// documentTypeKeywords maps recognizable words to each accepted document type,
// in the same order as models.DocumentTypes so numeric menu input lines up.
var documentTypeKeywords = [][]string{
	{"national", "id", "identity", "aadhaar", "aadhar"},
	{"passport"},
	{"driver", "drivers", "driving", "license", "licence"},
	{"birth", "certificate"},
	{"other"},
}

// MatchDocumentType matches text against the fixed document-type list, either
// by a 1-based numeric menu index or by keyword. It returns false when no
// entry matches; the caller should reprompt with the explicit list.
func MatchDocumentType(text string) (models.DocumentType, bool) {
	tokens := Normalize(text)
	if len(tokens) == 0 {
		return "", false
	}
	// Numeric menu selection.
	if len(tokens) == 1 {
		if idx, err := strconv.Atoi(tokens[0]); err == nil {
			if idx >= 1 && idx <= len(models.DocumentTypes) {
				return models.DocumentTypes[idx-1], true
			}
			return "", false
		}
	}
	for i, words := range documentTypeKeywords {
		if matchAny(tokens, words) {
			return models.DocumentTypes[i], true
		}
	}
	return "", false
}
