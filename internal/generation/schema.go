package generation

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// RequestSchema returns the JSON schema of Request, served to clients that
// build the submission form.
func RequestSchema() ([]byte, error) {
	r := &jsonschema.Reflector{
		DoNotReference:            true,
		AllowAdditionalProperties: false,
	}
	schema := r.Reflect(&Request{})
	schema.Title = "GenerationRequest"
	return json.MarshalIndent(schema, "", "  ")
}
