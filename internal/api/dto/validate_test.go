package dto

import (
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/accio/servicemeow/pkg/util/errorutil"
)

func decodeError(t *testing.T, err error) *apperrors.DomainError {
	t.Helper()
	var domainErr *apperrors.DomainError
	require.True(t, errors.As(err, &domainErr), "expected a domain error, got %v", err)
	return domainErr
}

func TestCreateTicketAcceptsEmptyDescription(t *testing.T) {
	groupID := uuid.New()
	body := `{"title":"Printer jam","description":"","priority":"low","assigned_group_id":"` + groupID.String() + `"}`

	var req CreateTicketRequest
	require.NoError(t, Decode([]byte(body), &req))

	input := req.ToInput()
	assert.Equal(t, "", input.Description)
	assert.Equal(t, groupID, input.AssignedGroupID)
}

func TestCreateTicketRequiresDescriptionKey(t *testing.T) {
	body := `{"title":"Printer jam","priority":"low","assigned_group_id":"` + uuid.NewString() + `"}`

	var req CreateTicketRequest
	domainErr := decodeError(t, Decode([]byte(body), &req))
	assert.Equal(t, apperrors.CodeValidation, domainErr.Code)
	assert.Contains(t, domainErr.Details, "description")
}

func TestDecodeMalformedIdentifierIsValidationError(t *testing.T) {
	var req UpdateTicketRequest
	domainErr := decodeError(t, Decode([]byte(`{"title":"ok","assigned_group_id":"not-a-uuid"}`), &req))

	assert.Equal(t, apperrors.CodeValidation, domainErr.Code)
	assert.Equal(t, http.StatusUnprocessableEntity, domainErr.HTTPStatus)
	assert.Contains(t, domainErr.Details, "assigned_group_id")
	assert.NotContains(t, domainErr.Details, "title")
}

func TestDecodeWrongTypeIsValidationError(t *testing.T) {
	var req CreateTicketRequest
	domainErr := decodeError(t, Decode([]byte(`{"title":42}`), &req))

	assert.Equal(t, apperrors.CodeValidation, domainErr.Code)
	assert.Contains(t, domainErr.Details, "title")
}

func TestDecodeBrokenJSONIsBadRequest(t *testing.T) {
	for name, body := range map[string]string{
		"empty":     ``,
		"truncated": `{"title":`,
		"not json":  `title=x`,
	} {
		t.Run(name, func(t *testing.T) {
			var req UpdateTicketRequest
			domainErr := decodeError(t, Decode([]byte(body), &req))
			assert.Equal(t, apperrors.CodeBadRequest, domainErr.Code)
			assert.Equal(t, http.StatusBadRequest, domainErr.HTTPStatus)
		})
	}
}
