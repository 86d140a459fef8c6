package federation

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pucktrack/rostersync/internal/domain/port/driven"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, driven.ErrAuthentication},
		{http.StatusTooManyRequests, driven.ErrRateLimited},
		{http.StatusNotFound, driven.ErrNotFound},
		{http.StatusForbidden, driven.ErrAccessDenied},
		{http.StatusInternalServerError, driven.ErrTransient},
		{http.StatusBadGateway, driven.ErrTransient},
		{http.StatusServiceUnavailable, driven.ErrTransient},
		{http.StatusBadRequest, driven.ErrValidation},
		{http.StatusConflict, driven.ErrValidation},
	}

	for _, tt := range tests {
		err := classifyStatus(tt.status, "body")
		assert.ErrorIs(t, err, tt.want, "status %d", tt.status)
		assert.Equal(t, tt.status, err.StatusCode)
	}
}

func TestClassifyStatus_ErrorsAsAPIError(t *testing.T) {
	err := classifyStatus(http.StatusForbidden, "denied for organisation 7")

	var apiErr *driven.APIError
	require.True(t, errors.As(error(err), &apiErr))
	assert.Equal(t, "denied for organisation 7", apiErr.Body)
}

func TestReadBodyForError_Truncates(t *testing.T) {
	long := strings.Repeat("x", maxErrorBodySize+500)

	body := readBodyForError(strings.NewReader(long))
	assert.True(t, strings.HasSuffix(body, "... (truncated)"))
	assert.LessOrEqual(t, len(body), maxErrorBodySize+len("... (truncated)"))
}
