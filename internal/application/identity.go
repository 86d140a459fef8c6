package application

import (
	"strings"
	"time"

	"github.com/pucktrack/rostersync/internal/domain/model"
)

// deriveName extracts a first and last name from a remote contact. Split
// first/last fields win; otherwise a combined display name is split on
// whitespace, first token as first name and the remainder as last name.
// Returns ok=false when no usable first+last pair can be derived; such
// contacts are never written with empty identity fields.
func deriveName(c model.RemoteContact) (first, last string, ok bool) {
	first = strings.TrimSpace(c.FirstName)
	last = strings.TrimSpace(c.LastName)
	if first != "" && last != "" {
		return first, last, true
	}

	fields := strings.Fields(c.DisplayName)
	if len(fields) >= 2 {
		return fields[0], strings.Join(fields[1:], " "), true
	}

	return "", "", false
}

// genderEncodings maps the remote system's letter, word, and numeric gender
// encodings (the numeric codes follow ISO/IEC 5218) onto the local
// vocabulary.
var genderEncodings = map[string]model.Gender{
	"m":      model.GenderMale,
	"male":   model.GenderMale,
	"man":    model.GenderMale,
	"herr":   model.GenderMale,
	"1":      model.GenderMale,
	"f":      model.GenderFemale,
	"w":      model.GenderFemale,
	"female": model.GenderFemale,
	"woman":  model.GenderFemale,
	"frau":   model.GenderFemale,
	"2":      model.GenderFemale,
}

// normalizeGender maps any known remote gender encoding to the local
// vocabulary, defaulting to unknown rather than erroring.
func normalizeGender(raw string) model.Gender {
	if g, ok := genderEncodings[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return g
	}
	return model.GenderUnknown
}

// birthDateFormats are the date layouts seen in federation responses.
var birthDateFormats = []string{
	"2006-01-02",
	time.RFC3339,
	"02.01.2006",
	"2006-01-02T15:04:05",
}

// parseBirthDate parses a remote birth date string, returning nil when it
// is absent or unrecognizable.
func parseBirthDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	for _, layout := range birthDateFormats {
		if t, err := time.Parse(layout, raw); err == nil {
			day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &day
		}
	}
	return nil
}

// needsDetail reports whether a contact row is a bare membership row that
// must be enriched from the contacts endpoint: it carries an id but no
// usable identity fields.
func needsDetail(c model.RemoteContact) bool {
	if c.ID == "" {
		return false
	}
	_, _, ok := deriveName(c)
	return !ok && c.Email == ""
}
