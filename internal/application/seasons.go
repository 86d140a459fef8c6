package application

import (
	"strings"

	"github.com/pucktrack/rostersync/internal/domain/model"
)

// normalizeSeasonLabel canonicalizes a season label for comparison: lowered,
// all whitespace removed, and en/em dashes treated as plain hyphens. The
// remote system is inconsistent about label formatting ("2025-2026" vs
// "2025 – 2026").
func normalizeSeasonLabel(label string) string {
	replacer := strings.NewReplacer(
		"–", "-", // en dash
		"—", "-", // em dash
		"−", "-", // minus sign
	)
	label = replacer.Replace(strings.ToLower(label))

	var b strings.Builder
	b.Grow(len(label))
	for _, r := range label {
		if r == ' ' || r == '\t' || r == ' ' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// seasonLabelsEqual compares two season labels under normalization.
func seasonLabelsEqual(a, b string) bool {
	return normalizeSeasonLabel(a) == normalizeSeasonLabel(b)
}

// seasonMatches decides whether a group row passes a season filter. Rows
// lacking any season information pass through: a missing label cannot prove
// a mismatch. Rows carrying season data match only on agreement, by id when
// both sides have one, else by normalized label.
func seasonMatches(group model.RemoteGroup, wantID, wantLabel string) bool {
	if wantID == "" && wantLabel == "" {
		return true
	}
	if group.SeasonID == "" && group.SeasonLabel == "" {
		return true
	}

	if wantID != "" && group.SeasonID != "" {
		return group.SeasonID == wantID
	}
	if wantLabel != "" && group.SeasonLabel != "" {
		return seasonLabelsEqual(group.SeasonLabel, wantLabel)
	}

	// One side has only an id, the other only a label; nothing to compare.
	return true
}
