package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const refreshSchema = `{
	"type": "object",
	"properties": {
		"dryRun": {"type": "boolean"},
		"lookbackDays": {"type": "integer", "minimum": 1}
	},
	"additionalProperties": true
}`

func TestSchema_Validate(t *testing.T) {
	s, err := Compile(refreshSchema)
	require.NoError(t, err)

	res := s.Validate(map[string]interface{}{"dryRun": true, "lookbackDays": 14})
	assert.True(t, res.Valid)
	assert.NoError(t, res.Err())

	res = s.Validate(map[string]interface{}{"dryRun": "yes", "lookbackDays": 0})
	assert.False(t, res.Valid)
	assert.True(t, res.HasErrors("dryRun"))
	assert.True(t, res.HasErrors("lookbackDays"))
	assert.Len(t, res.GetErrorMessages(), 2)
	assert.Error(t, res.Err())
}

func TestCompile_InvalidSchema(t *testing.T) {
	_, err := Compile(`{"type": 12}`)
	assert.Error(t, err)
	assert.Panics(t, func() { MustCompile(`not json`) })
}

func TestValidateURL(t *testing.T) {
	assert.True(t, ValidateURL("https://www.summitpartners.com/news/"))
	assert.True(t, ValidateURL("http://localhost:8080/feed.xml"))
	assert.False(t, ValidateURL("ftp://example.com"))
	assert.False(t, ValidateURL("www.example.com"))
	assert.False(t, ValidateURL(""))
}
