package federation

import (
	"net/url"
	"strings"
)

// canonicalFilters maps every historical spelling of a list filter to its
// canonical comma-joined array parameter. The API has shipped singular
// (`contactId=5`), bracketed (`contactIds[]=5`), and array (`contactIds=5,7`)
// shapes over the years; requests always dispatch the array shape.
var canonicalFilters = map[string]string{
	"contactId":      "contactIds",
	"contactIds[]":   "contactIds",
	"contactIds":     "contactIds",
	"groupId":        "groupIds",
	"groupIds[]":     "groupIds",
	"groupIds":       "groupIds",
	"seasonId":       "seasonIds",
	"seasonIds[]":    "seasonIds",
	"seasonIds":      "seasonIds",
	"organizationId": "organisationId",
	"organisationId": "organisationId",
}

// normalizeParams rewrites all known filter shapes into the canonical array
// shape, merging values that arrive under multiple spellings. Unknown
// parameters pass through untouched.
func normalizeParams(params url.Values) url.Values {
	out := url.Values{}
	merged := map[string][]string{}

	for key, values := range params {
		canonical, known := canonicalFilters[key]
		if !known {
			out[key] = append([]string(nil), values...)
			continue
		}

		for _, v := range values {
			for _, part := range strings.Split(v, ",") {
				part = strings.TrimSpace(part)
				if part != "" {
					merged[canonical] = append(merged[canonical], part)
				}
			}
		}
	}

	for canonical, values := range merged {
		out.Set(canonical, strings.Join(values, ","))
	}

	return out
}
