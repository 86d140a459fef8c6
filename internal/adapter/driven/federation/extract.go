package federation

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/pucktrack/rostersync/internal/domain/model"
)

// The federation API is inconsistent about field naming across endpoint
// generations. Instead of ad hoc per-call guessing, each logical field has
// an ordered extractor pipeline: the first extractor that produces a value
// wins.

// row is one decoded JSON object from a list response.
type row map[string]any

// stringExtractor tries to pull one string value out of a row.
type stringExtractor func(r row) (string, bool)

// field returns an extractor for a single key, accepting string and numeric
// JSON values (ids arrive as both).
func field(key string) stringExtractor {
	return func(r row) (string, bool) {
		v, ok := r[key]
		if !ok || v == nil {
			return "", false
		}
		switch t := v.(type) {
		case string:
			if t == "" {
				return "", false
			}
			return t, true
		case float64:
			return strconv.FormatFloat(t, 'f', -1, 64), true
		case bool:
			return strconv.FormatBool(t), true
		default:
			return "", false
		}
	}
}

// firstString runs the extractors in priority order and returns the first
// value produced.
func firstString(r row, extractors ...stringExtractor) string {
	for _, extract := range extractors {
		if v, ok := extract(r); ok {
			return v
		}
	}
	return ""
}

// Per-field pipelines, highest-priority spelling first.
var (
	idField        = []stringExtractor{field("id"), field("Id"), field("ID")}
	nameField      = []stringExtractor{field("name"), field("displayName"), field("fullName"), field("title")}
	firstNameField = []stringExtractor{field("firstName"), field("firstname"), field("first_name")}
	lastNameField  = []stringExtractor{field("lastName"), field("lastname"), field("last_name"), field("surname")}
	emailField     = []stringExtractor{field("email"), field("emailAddress"), field("mail")}
	genderField    = []stringExtractor{field("gender"), field("sex")}
	birthDateField = []stringExtractor{field("birthDate"), field("birthdate"), field("dateOfBirth"), field("born")}
	seasonIDField  = []stringExtractor{field("seasonId"), field("season_id")}
	seasonLblField = []stringExtractor{field("seasonName"), field("seasonLabel"), field("season")}
)

// decodeRows unwraps a list response body into rows. Endpoint generations
// return either a bare array or an object envelope keyed "items" or "data".
func decodeRows(body []byte) ([]row, error) {
	var direct []row
	if err := json.Unmarshal(body, &direct); err == nil {
		return direct, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode list response: %w", err)
	}

	for _, key := range []string{"items", "data", "results"} {
		raw, ok := envelope[key]
		if !ok {
			continue
		}
		var rows []row
		if err := json.Unmarshal(raw, &rows); err != nil {
			return nil, fmt.Errorf("decode %q rows: %w", key, err)
		}
		return rows, nil
	}

	return nil, fmt.Errorf("decode list response: no recognized row container")
}

func decodeOrganization(r row) model.RemoteOrganization {
	return model.RemoteOrganization{
		ID:   firstString(r, idField...),
		Name: firstString(r, nameField...),
	}
}

func decodeSeason(r row) model.RemoteSeason {
	return model.RemoteSeason{
		ID:   firstString(r, idField...),
		Name: firstString(r, nameField...),
	}
}

func decodeContact(r row) model.RemoteContact {
	return model.RemoteContact{
		ID:          firstString(r, idField...),
		FirstName:   firstString(r, firstNameField...),
		LastName:    firstString(r, lastNameField...),
		DisplayName: firstString(r, nameField...),
		Email:       firstString(r, emailField...),
		Gender:      firstString(r, genderField...),
		BirthDate:   firstString(r, birthDateField...),
	}
}

// classifyGroupRow inspects the fixed discriminating fields of a group row
// and returns it tagged as either a full group entity or a season-scoped
// relation row. A row is a relation when it references a base group through
// groupId/relationId rather than carrying its own id as the group id.
func classifyGroupRow(r row) model.RemoteGroup {
	relationID := firstString(r, field("relationId"), field("groupRelationId"), field("relation_id"))
	baseGroupID := firstString(r, field("groupId"), field("group_id"))

	if relationID != "" || baseGroupID != "" {
		g := model.RemoteGroup{
			Kind:        model.GroupRowRelation,
			RelationID:  relationID,
			ID:          baseGroupID,
			Name:        firstString(r, nameField...),
			SeasonID:    firstString(r, seasonIDField...),
			SeasonLabel: firstString(r, seasonLblField...),
		}
		if g.ID == "" {
			g.ID = firstString(r, idField...)
		}
		if g.RelationID == "" {
			g.RelationID = firstString(r, idField...)
		}
		return g
	}

	return model.RemoteGroup{
		Kind:        model.GroupRowFull,
		ID:          firstString(r, idField...),
		Name:        firstString(r, nameField...),
		SeasonID:    firstString(r, seasonIDField...),
		SeasonLabel: firstString(r, seasonLblField...),
	}
}

// rowHasAnyID reports whether the row's id matches any of the wanted ids.
// Used by the full-fetch-and-filter fallback for chunked contact lookups.
func rowHasAnyID(id string, wanted map[string]bool) bool {
	return wanted[strings.TrimSpace(id)]
}
