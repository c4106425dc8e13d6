package jsoncontract

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/invopop/jsonschema"
)

// SchemaText renders s as a JSON Schema document, for injection into the
// Context Allocator's mandatory json_schema slot (spec.md §4.4) so the
// model sees the exact shape its output will be validated against.
// Grounded on the teacher's pkg/tool/functiontool/schema.go
// generateSchema[T] — reflected from a Go type rather than hand-built,
// here synthesized at runtime via reflect.StructOf since Schema's field
// list isn't a compile-time type.
func SchemaText(s Schema) (string, error) {
	structType := reflect.StructOf(schemaStructFields(s))
	instance := reflect.New(structType).Interface()

	reflector := &jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		DoNotReference:             true,
	}
	schema := reflector.Reflect(instance)

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", fmt.Errorf("jsoncontract: marshal schema %q: %w", s.Name, err)
	}
	return string(data), nil
}

func schemaStructFields(s Schema) []reflect.StructField {
	fields := make([]reflect.StructField, 0, len(s.Fields))
	for _, f := range s.Fields {
		var tagParts []string
		if f.Required {
			tagParts = append(tagParts, "required")
		}
		if len(f.Enum) > 0 {
			tagParts = append(tagParts, "enum="+strings.Join(f.Enum, "|"))
		}
		tag := fmt.Sprintf(`json:"%s" jsonschema:"%s"`, f.Name, strings.Join(tagParts, ","))
		fields = append(fields, reflect.StructField{
			Name: goFieldName(f.Name),
			Type: goTypeFor(f.Kind),
			Tag:  reflect.StructTag(tag),
		})
	}
	return fields
}

// goFieldName converts a snake_case schema field name (e.g.
// "submission_id") into an exported Go identifier (e.g. "SubmissionId"),
// required since reflect.StructOf rejects unexported field names.
func goFieldName(name string) string {
	parts := strings.Split(name, "_")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	joined := strings.Join(parts, "")
	if joined == "" {
		return "Field"
	}
	return joined
}

func goTypeFor(k FieldKind) reflect.Type {
	switch k {
	case KindString:
		return reflect.TypeOf("")
	case KindNumber:
		return reflect.TypeOf(float64(0))
	case KindBool:
		return reflect.TypeOf(false)
	case KindArray:
		return reflect.TypeOf([]any{})
	default:
		return reflect.TypeOf(map[string]any{})
	}
}
