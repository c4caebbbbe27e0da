package llm

import (
	"encoding/json"
	"strings"

	"github.com/invopop/jsonschema"
)

// GenerateSchema reflects T into an inline JSON schema suitable for strict
// structured output
func GenerateSchema[T any]() interface{} {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

// extractJSON trims code fences and any prose around the outermost JSON
// object in raw
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	start := strings.IndexAny(raw, "{[")
	end := strings.LastIndexAny(raw, "}]")
	if start < 0 || end < start {
		return strings.TrimSpace(raw)
	}
	return raw[start : end+1]
}

func decodeJSON(raw string, out any) error {
	return json.Unmarshal([]byte(extractJSON(raw)), out)
}
