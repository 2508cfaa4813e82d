package protocol

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dmckenna-gumgum/component-builder/internal/errors"
	"github.com/dmckenna-gumgum/component-builder/internal/types"
)

// SchemaVersion names the component contract enforced by Validate.
const SchemaVersion = "component-schema/v2"

// metaFields must live at the top level of a component, never in properties.
var metaFields = []string{"name", "version", "description"}

var codeFields = []string{"html", "css", "javascript"}

// Validation is a validated component and the warnings collected on the way.
type Validation struct {
	Component *types.Component
	Warnings  []string
}

// Validate checks a decoded payload against the strict component schema and
// merges its properties with the prior state.
//
// Meta fields nested in properties (or in a legacy config object) are hoisted
// to the top level. name, description and version must then be non-empty
// strings, and html, css and javascript must be present strings. Invalid
// properties are dropped with a warning.
func Validate(payload map[string]interface{}, current *types.CurrentComponent) (*Validation, error) {
	raw, ok := payload["component"]
	if !ok || raw == nil {
		return nil, errors.NewMissingComponentError()
	}
	comp, ok := raw.(map[string]interface{})
	if !ok {
		return nil, errors.NewMissingComponentError()
	}

	props, present, err := componentProperties(comp)
	if err != nil {
		return nil, err
	}

	hoistMeta(comp, props)

	out := &types.Component{}
	meta := []*string{&out.Name, &out.Version, &out.Description}
	for i, field := range metaFields {
		s, err := requiredString(comp, field)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(s) == "" {
			return nil, errors.NewMissingRequiredFieldError(field)
		}
		*meta[i] = s
	}

	code := []*string{&out.HTML, &out.CSS, &out.JavaScript}
	for i, field := range codeFields {
		s, err := requiredString(comp, field)
		if err != nil {
			return nil, err
		}
		*code[i] = s
	}

	var warnings []string
	prior, priorWarnings := PriorProperties(current)
	warnings = append(warnings, priorWarnings...)

	if present {
		fresh, freshWarnings := validProperties(props, "")
		warnings = append(warnings, freshWarnings...)
		out.Properties = MergeProperties(prior, fresh)
	} else {
		out.Properties = MergeProperties(prior, nil)
	}

	return &Validation{Component: out, Warnings: warnings}, nil
}

// componentProperties returns the property map of a component, accepting the
// legacy config shape when properties is absent and flattening a doubled
// properties.properties nesting. present is false when neither key exists.
func componentProperties(comp map[string]interface{}) (map[string]interface{}, bool, error) {
	raw, ok := comp["properties"]
	if !ok {
		cfg, hasCfg := comp["config"]
		if !hasCfg || cfg == nil {
			return map[string]interface{}{}, false, nil
		}
		cfgMap, err := asObject("config", cfg)
		if err != nil {
			return nil, false, err
		}
		if inner, ok := cfgMap["properties"]; ok {
			props, err := asObject("config.properties", inner)
			if err != nil {
				return nil, false, err
			}
			// meta fields at the config level count as top-level ones
			for _, field := range metaFields {
				if _, top := comp[field]; !top {
					if v, ok := cfgMap[field]; ok {
						comp[field] = v
					}
				}
			}
			return flatten(props), true, nil
		}
		return flatten(cfgMap), true, nil
	}

	if raw == nil {
		return map[string]interface{}{}, false, nil
	}
	props, err := asObject("properties", raw)
	if err != nil {
		return nil, false, err
	}

	return flatten(props), true, nil
}

// flatten lifts the entries of a nested "properties" object into the outer
// map. Outer sibling entries win on collision.
func flatten(props map[string]interface{}) map[string]interface{} {
	inner, ok := props["properties"].(map[string]interface{})
	if !ok {
		return props
	}

	flat := make(map[string]interface{}, len(inner)+len(props))
	for k, v := range inner {
		flat[k] = v
	}
	for k, v := range props {
		if k == "properties" {
			continue
		}
		flat[k] = v
	}

	return flat
}

// asObject accepts a JSON object or a string holding one.
func asObject(field string, v interface{}) (map[string]interface{}, error) {
	switch t := v.(type) {
	case map[string]interface{}:
		return t, nil
	case string:
		obj, err := decodePayload(t)
		if err != nil {
			return nil, errors.NewInvalidFieldTypeError(field, "object", "string")
		}
		return obj, nil
	default:
		return nil, errors.NewInvalidFieldTypeError(field, "object", jsonKind(v))
	}
}

// hoistMeta moves meta fields out of props into comp when comp lacks them,
// and always removes them from props.
func hoistMeta(comp, props map[string]interface{}) {
	for _, field := range metaFields {
		v, ok := props[field]
		if !ok {
			continue
		}
		delete(props, field)

		if top, exists := comp[field]; exists && top != nil && top != "" {
			continue
		}
		// a meta field written as a property carries its text in value
		if m, ok := v.(map[string]interface{}); ok {
			if inner, ok := m["value"]; ok {
				v = inner
			}
		}
		comp[field] = v
	}
}

func requiredString(comp map[string]interface{}, field string) (string, error) {
	v, ok := comp[field]
	if !ok {
		return "", errors.NewMissingRequiredFieldError(field)
	}
	s, ok := v.(string)
	if !ok {
		return "", errors.NewInvalidFieldTypeError(field, "string", jsonKind(v))
	}

	return s, nil
}

// validProperties converts raw entries to properties, dropping invalid ones.
// prefix labels the warnings ("" or "prior ").
func validProperties(raw map[string]interface{}, prefix string) (map[string]types.Property, []string) {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	props := make(map[string]types.Property, len(raw))
	var warnings []string
	for _, key := range keys {
		prop, warn, err := toProperty(raw[key])
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%sproperty %q dropped: %v", prefix, key, err))
			continue
		}
		if warn != "" {
			warnings = append(warnings, fmt.Sprintf("%sproperty %q %s", prefix, key, warn))
		}
		props[key] = prop
	}

	return props, warnings
}

// toProperty validates one raw property entry. A non-empty warn is returned
// for entries kept despite an oddity.
func toProperty(v interface{}) (types.Property, string, error) {
	m, ok := v.(map[string]interface{})
	if !ok {
		return types.Property{}, "", fmt.Errorf("not an object (got %s)", jsonKind(v))
	}

	rawValue, ok := m["value"]
	if !ok {
		return types.Property{}, "", fmt.Errorf("missing value")
	}
	value, err := scalarString(rawValue)
	if err != nil {
		return types.Property{}, "", fmt.Errorf("value: %w", err)
	}

	rawInput, ok := m["input"]
	if !ok || rawInput == nil {
		return types.Property{}, "", fmt.Errorf("missing input")
	}
	inputMap, ok := rawInput.(map[string]interface{})
	if !ok {
		return types.Property{}, "", fmt.Errorf("input is not an object (got %s)", jsonKind(rawInput))
	}

	input, err := toInput(inputMap)
	if err != nil {
		return types.Property{}, "", err
	}

	var warn string
	if !input.Type.Known() {
		warn = fmt.Sprintf("has unknown input type %q", input.Type)
	}

	return types.Property{Value: value, Input: input}, warn, nil
}

func toInput(m map[string]interface{}) (*types.InputDescriptor, error) {
	typ, _ := m["type"].(string)
	if strings.TrimSpace(typ) == "" {
		return nil, fmt.Errorf("input has no type")
	}

	in := &types.InputDescriptor{Type: types.InputType(typ)}
	in.Label = optionalString(m["label"])
	in.Group = optionalString(m["group"])
	in.Placeholder = optionalString(m["placeholder"])
	in.Accept = optionalString(m["accept"])

	if opts, ok := m["options"].([]interface{}); ok {
		for _, o := range opts {
			s, err := scalarString(o)
			if err != nil {
				return nil, fmt.Errorf("input options: %w", err)
			}
			in.Options = append(in.Options, s)
		}
	}

	in.Min = numericRaw(m["min"])
	in.Max = numericRaw(m["max"])
	in.Step = numericRaw(m["step"])

	return in, nil
}

// scalarString renders a JSON scalar as the opaque string value the editor
// expects. Objects, arrays and null are rejected.
func scalarString(v interface{}) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	case bool:
		return strconv.FormatBool(t), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("must be a string, number or boolean (got %s)", jsonKind(v))
	}
}

func optionalString(v interface{}) string {
	if v == nil {
		return ""
	}
	s, err := scalarString(v)
	if err != nil {
		return ""
	}
	return s
}

// numericRaw keeps min/max/step as raw JSON numbers. Numeric strings are
// accepted as numbers; anything else is dropped.
func numericRaw(v interface{}) json.RawMessage {
	switch t := v.(type) {
	case json.Number:
		return json.RawMessage(t.String())
	case float64:
		return json.RawMessage(strconv.FormatFloat(t, 'f', -1, 64))
	case string:
		s := strings.TrimSpace(t)
		if _, err := strconv.ParseFloat(s, 64); err == nil && json.Valid([]byte(s)) {
			return json.RawMessage(s)
		}
	}
	return nil
}

func jsonKind(v interface{}) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number, float64:
		return "number"
	case []interface{}:
		return "array"
	case map[string]interface{}:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
