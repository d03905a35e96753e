package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateDocumentKind(t *testing.T) {
	assert.NoError(t, ValidateDocumentKind("tz"))
	assert.NoError(t, ValidateDocumentKind("KP"))
	assert.Error(t, ValidateDocumentKind("resume"))
	assert.Error(t, ValidateDocumentKind(""))
}

func TestValidateFileName(t *testing.T) {
	assert.NoError(t, ValidateFileName("proposal.pdf"))
	assert.NoError(t, ValidateFileName("КП Ромашка.docx"))
	assert.Error(t, ValidateFileName(""))
	assert.Error(t, ValidateFileName("../etc/passwd"))
	assert.Error(t, ValidateFileName("a/b.pdf"))
	assert.Error(t, ValidateFileName("x;rm.pdf"))
}

func TestValidateTenantID(t *testing.T) {
	assert.NoError(t, ValidateTenantID("acme-1"))
	assert.Error(t, ValidateTenantID(""))
	assert.Error(t, ValidateTenantID("bad tenant!"))
}

func TestValidateRunID(t *testing.T) {
	assert.NoError(t, ValidateRunID("a3f1c2d4-1234-4abc-9def-0123456789ab"))
	assert.Error(t, ValidateRunID(""))
	assert.Error(t, ValidateRunID("not-a-uuid"))
}

func TestValidateLimitAndDays(t *testing.T) {
	assert.Equal(t, 20, ValidateLimit(0))
	assert.Equal(t, 100, ValidateLimit(500))
	assert.Equal(t, 5, ValidateLimit(5))
	assert.Equal(t, 7, ValidateDays(-1))
	assert.Equal(t, 365, ValidateDays(1000))
}
