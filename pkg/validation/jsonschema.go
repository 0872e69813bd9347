package validation

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	invopop "github.com/invopop/jsonschema"
	"github.com/ogero/stremio-addon-sdk/pkg/stremio"
	"github.com/samber/lo"
)

var resolvedManifestSchema = sync.OnceValues(func() (*jsonschema.Resolved, error) {
	b, err := json.Marshal(ManifestJSONSchema())
	if err != nil {
		return nil, fmt.Errorf("failed to json.Marshal manifest schema: %w", err)
	}

	var schema jsonschema.Schema
	if err := json.Unmarshal(b, &schema); err != nil {
		return nil, fmt.Errorf("failed to json.Unmarshal manifest schema: %w", err)
	}

	resolved, err := schema.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to jsonschema.Schema.Resolve: %w", err)
	}
	return resolved, nil
})

// ManifestJSONSchema reflects the JSON Schema of stremio.Manifest.
func ManifestJSONSchema() *invopop.Schema {
	r := &invopop.Reflector{
		Anonymous:                 true,
		DoNotReference:            true,
		ExpandedStruct:            true,
		AllowAdditionalProperties: true,
		Mapper:                    mapManifestTypes,
	}
	return r.Reflect(&stremio.Manifest{})
}

// mapManifestTypes describes ResourceDecl, which is either a bare resource
// name or an object.
func mapManifestTypes(t reflect.Type) *invopop.Schema {
	if t != reflect.TypeOf(stremio.ResourceDecl{}) {
		return nil
	}

	names := lo.Map(stremio.Resources, func(r stremio.Resource, _ int) any { return string(r) })

	props := invopop.NewProperties()
	props.Set("name", &invopop.Schema{Type: "string", Enum: names})
	props.Set("types", &invopop.Schema{Type: "array", Items: &invopop.Schema{Type: "string"}})
	props.Set("idPrefixes", &invopop.Schema{Type: "array", Items: &invopop.Schema{Type: "string"}})

	return &invopop.Schema{
		OneOf: []*invopop.Schema{
			{Type: "string", Enum: names},
			{Type: "object", Properties: props, Required: []string{"name", "types"}},
		},
	}
}

// JSONSchema returns the base manifest Schema, checking inputs against the
// reflected manifest JSON Schema.
func JSONSchema() Schema {
	return SchemaFunc(func(input any) Outcome {
		resolved, err := resolvedManifestSchema()
		if err != nil {
			return issues(err.Error())
		}

		m, value, err := decode(input)
		if err != nil {
			return issues(err.Error())
		}

		if err := resolved.Validate(value); err != nil {
			return issues(err.Error())
		}

		return Result{Value: m}
	})
}
