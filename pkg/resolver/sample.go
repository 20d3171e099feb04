package resolver

import (
	"maps"

	"github.com/getkin/kin-openapi/openapi3"
)

// maxSampleDepth bounds recursion through nested and self-referencing
// schemas.
const maxSampleDepth = 8

// sampleSchema derives a deterministic value from a schema. Priority:
// example, enum[0], default, composition, then a fixed value per type.
func sampleSchema(ref *openapi3.SchemaRef, depth int) any {
	if ref == nil || ref.Value == nil || depth > maxSampleDepth {
		return nil
	}
	s := ref.Value

	if s.Example != nil {
		return s.Example
	}
	if len(s.Enum) > 0 {
		return s.Enum[0]
	}
	if s.Default != nil {
		return s.Default
	}

	if len(s.AllOf) > 0 {
		merged := map[string]any{}
		for _, part := range s.AllOf {
			if obj, ok := sampleSchema(part, depth+1).(map[string]any); ok {
				maps.Copy(merged, obj)
			}
		}
		return merged
	}
	if len(s.OneOf) > 0 {
		return sampleSchema(s.OneOf[0], depth+1)
	}
	if len(s.AnyOf) > 0 {
		return sampleSchema(s.AnyOf[0], depth+1)
	}

	switch {
	case s.Type.Includes(openapi3.TypeObject) || (s.Type == nil && len(s.Properties) > 0):
		obj := make(map[string]any, len(s.Properties))
		for name, prop := range s.Properties {
			if v := sampleSchema(prop, depth+1); v != nil {
				obj[name] = v
			}
		}
		return obj
	case s.Type.Includes(openapi3.TypeArray):
		count := 1
		if s.MinItems > 1 {
			count = int(min(s.MinItems, 3))
		}
		item := sampleSchema(s.Items, depth+1)
		if item == nil {
			return []any{}
		}
		arr := make([]any, count)
		for i := range arr {
			arr[i] = item
		}
		return arr
	case s.Type.Includes(openapi3.TypeString):
		return sampleString(s.Format)
	case s.Type.Includes(openapi3.TypeInteger):
		if s.Min != nil {
			return int64(*s.Min)
		}
		return int64(0)
	case s.Type.Includes(openapi3.TypeNumber):
		if s.Min != nil {
			return *s.Min
		}
		return 0.0
	case s.Type.Includes(openapi3.TypeBoolean):
		return false
	default:
		return nil
	}
}

func sampleString(format string) string {
	switch format {
	case "date-time":
		return "1970-01-01T00:00:00Z"
	case "date":
		return "1970-01-01"
	case "time":
		return "00:00:00"
	case "uuid":
		return "00000000-0000-0000-0000-000000000000"
	case "email":
		return "user@example.com"
	case "uri", "url":
		return "https://example.com"
	case "hostname":
		return "example.com"
	case "ipv4":
		return "192.0.2.1"
	case "ipv6":
		return "2001:db8::1"
	case "byte":
		return ""
	default:
		return "string"
	}
}
