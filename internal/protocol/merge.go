package protocol

import (
	"encoding/json"
	"strings"

	"github.com/dmckenna-gumgum/component-builder/internal/types"
)

// MergeProperties overlays fresh on prior. Entries in fresh win on key
// collision and prior-only entries are retained. Neither input is modified.
func MergeProperties(prior, fresh map[string]types.Property) map[string]types.Property {
	merged := make(map[string]types.Property, len(prior)+len(fresh))
	for k, v := range prior {
		merged[k] = v
	}
	for k, v := range fresh {
		merged[k] = v
	}

	return merged
}

// PriorProperties extracts the valid properties of the caller-supplied prior
// state. Properties take precedence over a legacy config; either may be an
// object or a JSON-encoded string. Invalid entries are reported as warnings.
func PriorProperties(current *types.CurrentComponent) (map[string]types.Property, []string) {
	if current == nil {
		return nil, nil
	}

	var raw map[string]interface{}
	switch {
	case len(current.Properties) > 0 && !isNull(current.Properties):
		raw = decodeLoose(current.Properties)
	case len(current.Config) > 0 && !isNull(current.Config):
		cfg := decodeLoose(current.Config)
		if inner, ok := cfg["properties"].(map[string]interface{}); ok {
			raw = inner
		} else {
			raw = cfg
		}
	}
	if raw == nil {
		return nil, nil
	}

	raw = flatten(raw)
	for _, field := range metaFields {
		delete(raw, field)
	}

	return validProperties(raw, "prior ")
}

// decodeLoose decodes an object, or a string holding one. Anything else
// yields nil.
func decodeLoose(data json.RawMessage) map[string]interface{} {
	text := string(data)
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		text = s
	}

	obj, err := decodePayload(text)
	if err != nil {
		return nil
	}

	return obj
}

func isNull(data json.RawMessage) bool {
	return strings.TrimSpace(string(data)) == "null"
}
