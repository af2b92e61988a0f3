package validator

import (
	"strings"
	"testing"
	
	"github.com/stretchr/testify/assert"
)

func TestValidateTitle(t *testing.T) {
	assert.NoError(t, ValidateTitle("Bài viết mới"))
	assert.Error(t, ValidateTitle(""))
	assert.Error(t, ValidateTitle(strings.Repeat("a", 201)))
}

func TestValidateBody(t *testing.T) {
	assert.NoError(t, ValidateBody(""))
	assert.Error(t, ValidateBody(strings.Repeat("b", 1001)))
}

func TestValidatePayloadSize(t *testing.T) {
	assert.NoError(t, ValidatePayloadSize(map[string]any{"title": "T"}))
	assert.Error(t, ValidatePayloadSize(map[string]any{"blob": strings.Repeat("x", MaxPayloadSize)}))
	assert.Error(t, ValidatePayloadSize(map[string]any{"fn": func() {}}))
}
