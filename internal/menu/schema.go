// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package menu

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/samber/oops"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"

	"github.com/holomush/virtualchest/internal/chest"
)

// SchemaID is the $id of the menu definition schema.
const SchemaID = "https://holomush.dev/schemas/virtualchest-menu.schema.json"

var (
	schemaOnce     sync.Once
	compiledSchema *jschema.Schema
	schemaErr      error
)

// GenerateSchema returns the JSON Schema for menu definition files.
func GenerateSchema() ([]byte, error) {
	r := jsonschema.Reflector{
		DoNotReference: true,
	}
	schema := r.Reflect(&chest.Menu{})
	schema.ID = jsonschema.ID(SchemaID)
	schema.Title = "VirtualChest Menu"
	schema.Description = "Schema for chest GUI definition files"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, oops.Code(CodeSchemaInvalid).Wrapf(err, "marshal schema")
	}
	return data, nil
}

// ValidateSchema validates YAML data against the menu schema.
func ValidateSchema(data []byte) error {
	if len(data) == 0 {
		return oops.Code(CodeSchemaInvalid).Errorf("menu data is empty")
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return oops.Code(CodeSchemaInvalid).Wrapf(err, "invalid YAML")
	}

	sch, err := schemaValidator()
	if err != nil {
		return err
	}
	if err := sch.Validate(toJSONTypes(doc)); err != nil {
		return oops.Code(CodeSchemaInvalid).Wrapf(err, "schema validation failed")
	}
	return nil
}

func schemaValidator() (*jschema.Schema, error) {
	schemaOnce.Do(func() {
		raw, err := GenerateSchema()
		if err != nil {
			schemaErr = err
			return
		}
		doc, err := jschema.UnmarshalJSON(strings.NewReader(string(raw)))
		if err != nil {
			schemaErr = oops.Code(CodeSchemaInvalid).Wrapf(err, "parse schema")
			return
		}
		c := jschema.NewCompiler()
		if err := c.AddResource("menu.schema.json", doc); err != nil {
			schemaErr = oops.Code(CodeSchemaInvalid).Wrapf(err, "add schema resource")
			return
		}
		compiledSchema, schemaErr = c.Compile("menu.schema.json")
		if schemaErr != nil {
			schemaErr = oops.Code(CodeSchemaInvalid).Wrapf(schemaErr, "compile schema")
		}
	})
	return compiledSchema, schemaErr
}

// toJSONTypes rebuilds nested YAML values as plain maps and slices.
func toJSONTypes(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = toJSONTypes(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = toJSONTypes(item)
		}
		return out
	default:
		return val
	}
}
