package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFieldErrors(t *testing.T) {
	fieldErrors := NewFieldErrors()
	assert.False(t, fieldErrors.HasErrors())

	fieldErrors.Add("googleId", "googleId is required")
	fieldErrors.Add("email", "email address is not valid")
	fieldErrors.Add("email", "email is too long")

	assert.True(t, fieldErrors.HasErrors())
	assert.Equal(t, "email: email address is not valid; email: email is too long; googleId: googleId is required", fieldErrors.Error())
	assert.Equal(t, map[string][]string{
		"email":    {"email address is not valid", "email is too long"},
		"googleId": {"googleId is required"},
	}, fieldErrors.Fields())
}

func TestFieldErrors_FieldsIsACopy(t *testing.T) {
	fieldErrors := NewFieldErrors()
	fieldErrors.Add("email", "email address is not valid")

	fields := fieldErrors.Fields()
	fields["email"][0] = "changed"

	assert.Equal(t, "email: email address is not valid", fieldErrors.Error())
}
