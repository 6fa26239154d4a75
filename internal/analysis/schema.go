package analysis

import (
	"embed"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/fairyhunter13/ats-matcher/internal/domain"
)

//go:embed schemas/*.json
var schemaFS embed.FS

var (
	dimensionSchema = mustLoadSchema("schemas/dimension.json")
	strengthsSchema = mustLoadSchema("schemas/strengths.json")
)

func mustLoadSchema(path string) *gojsonschema.Schema {
	b, err := schemaFS.ReadFile(path)
	if err != nil {
		panic(fmt.Sprintf("read schema %s: %v", path, err))
	}
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(b))
	if err != nil {
		panic(fmt.Sprintf("compile schema %s: %v", path, err))
	}
	return s
}

// validateBody checks an oracle body against a schema and reports every
// violation as one malformed-response error.
func validateBody(schema *gojsonschema.Schema, body []byte) error {
	res, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, desc := range res.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		msgs = append(msgs, field+": "+desc.Description())
	}
	return fmt.Errorf("%w: %s", domain.ErrMalformedResponse, strings.Join(msgs, "; "))
}
