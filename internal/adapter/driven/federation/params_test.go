package federation

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeParams(t *testing.T) {
	tests := []struct {
		name string
		in   url.Values
		want url.Values
	}{
		{
			name: "singular becomes array",
			in:   url.Values{"contactId": {"5"}},
			want: url.Values{"contactIds": {"5"}},
		},
		{
			name: "bracketed becomes array",
			in:   url.Values{"groupIds[]": {"1", "2"}},
			want: url.Values{"groupIds": {"1,2"}},
		},
		{
			name: "spellings merge",
			in:   url.Values{"contactId": {"5"}, "contactIds": {"7,9"}},
			want: url.Values{"contactIds": {"5,7,9"}},
		},
		{
			name: "organizationId respelled",
			in:   url.Values{"organizationId": {"3"}},
			want: url.Values{"organisationId": {"3"}},
		},
		{
			name: "whitespace and empties dropped",
			in:   url.Values{"seasonId": {" 4 , ,6"}},
			want: url.Values{"seasonIds": {"4,6"}},
		},
		{
			name: "unknown params pass through",
			in:   url.Values{"pageSize": {"100"}, "page": {"2"}},
			want: url.Values{"pageSize": {"100"}, "page": {"2"}},
		},
		{
			name: "empty",
			in:   url.Values{},
			want: url.Values{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeParams(tt.in)
			if tt.name == "spellings merge" {
				// Merge order across spellings is not defined; compare as sets.
				assert.ElementsMatch(t,
					splitCSV(tt.want.Get("contactIds")),
					splitCSV(got.Get("contactIds")),
				)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	return out
}
