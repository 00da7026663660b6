package schemas

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestEmbeddedSchemas_ValidJSON(t *testing.T) {
	for _, name := range []string{Structure, LinkBank, MaskingBank, Project} {
		t.Run(name, func(t *testing.T) {
			data, err := schemaFiles.ReadFile(name)
			require.NoError(t, err)

			var v any
			assert.NoError(t, json.Unmarshal(data, &v))
		})
	}
}

func decodeYAML(t *testing.T, src string) any {
	t.Helper()
	var doc any
	require.NoError(t, yaml.Unmarshal([]byte(src), &doc))
	return doc
}

func TestValidate_Structure(t *testing.T) {
	doc := decodeYAML(t, `
wiki_name: Gambling Help Wiki
default_category: Regulation
style:
  tone: neutral
  include: [tables]
pages:
  - title: BetStop
    key_points: [self-exclusion, national register]
`)
	assert.NoError(t, Validate(Structure, doc))
}

func TestValidate_Structure_MissingTitle(t *testing.T) {
	doc := decodeYAML(t, `
pages:
  - description: untitled page
`)
	err := Validate(Structure, doc)
	require.Error(t, err)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, Structure, validationErr.Schema)
	assert.NotEmpty(t, validationErr.Errors)
}

func TestValidate_LinkBank_NegativeCount(t *testing.T) {
	doc := decodeYAML(t, `
links:
  - url: https://a.example
    anchors: [a]
    count: -2
`)
	err := Validate(LinkBank, doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestValidate_MaskingBank(t *testing.T) {
	doc := decodeYAML(t, `
masking_links:
  - url: https://www.acma.gov.au
    anchors: [ACMA]
`)
	assert.NoError(t, Validate(MaskingBank, doc))
}

func TestValidate_UnknownSchema(t *testing.T) {
	err := Validate("missing.schema.json", map[string]any{})
	var loadErr *SchemaLoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Contains(t, err.Error(), "missing.schema.json")
}

func TestValidateJSONString_Project(t *testing.T) {
	assert.NoError(t, ValidateJSONString(Project, `{"name":"Docs","platform":"confluence"}`))
	assert.Error(t, ValidateJSONString(Project, `{"platform":"confluence"}`))
}
