package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed config.schema.json
var schemaText string

var (
	compiledSchema *jsonschema.Schema
	schemaErr      error
	schemaOnce     sync.Once
)

// Schema returns the JSON schema that configuration documents must satisfy.
func Schema() string {
	return schemaText
}

func getSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiledSchema, schemaErr = jsonschema.CompileString("config.schema.json", schemaText)
	})
	return compiledSchema, schemaErr
}

// Validate checks a decoded TOML document against the configuration schema.
func Validate(doc map[string]interface{}) error {
	sch, err := getSchema()
	if err != nil {
		return fmt.Errorf("bad configuration schema: %w", err)
	}
	// The validator only accepts values as produced by encoding/json.
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return err
	}
	return sch.Validate(v)
}
