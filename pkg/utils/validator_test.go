package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestValidatePasswordHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)

	assert.NoError(t, ValidatePasswordHash(string(hash)))
	assert.Error(t, ValidatePasswordHash("secret"))
	assert.Error(t, ValidatePasswordHash(""))
}

func TestValidateBaseURL(t *testing.T) {
	assert.NoError(t, ValidateBaseURL("https://files.example.com"))
	assert.NoError(t, ValidateBaseURL("http://localhost:8080/index"))
	assert.Error(t, ValidateBaseURL("ftp://files.example.com"))
	assert.Error(t, ValidateBaseURL("/relative"))
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "notes.md", SanitizeString("no\x00tes\n.md"))
	assert.Equal(t, "plain name", SanitizeString("plain name"))
}
