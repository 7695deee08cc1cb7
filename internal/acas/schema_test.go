package acas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParserResponseSchemaAcceptsTypicalPayloads(t *testing.T) {
	valid := [][]byte{
		[]byte(`{"hasError":false,"errorMessages":[],"results":{"experimentCode":"EXPT-1","htmlSummary":"<p>ok</p>"}}`),
		[]byte(`{"hasError":true,"errorMessages":[{"errorLevel":"error","message":"bad column"}]}`),
		[]byte(`{"hasError":false}`),
	}
	for _, payload := range valid {
		assert.NoError(t, ValidateJSONAgainstSchema(parserResponseSchema(), payload), string(payload))
	}
}

func TestParserResponseSchemaRejectsWrongShapes(t *testing.T) {
	invalid := [][]byte{
		[]byte(`{}`),                      // hasError missing
		[]byte(`{"hasError":"yes"}`),      // wrong type
		[]byte(`{"hasError":false,"errorMessages":"oops"}`),
		[]byte(`"just a string"`),
	}
	for _, payload := range invalid {
		assert.Error(t, ValidateJSONAgainstSchema(parserResponseSchema(), payload), string(payload))
	}
}

func TestValidateJSONAgainstSchemaMalformedInput(t *testing.T) {
	err := ValidateJSONAgainstSchema(parserResponseSchema(), []byte("not json"))
	require.Error(t, err)
}
