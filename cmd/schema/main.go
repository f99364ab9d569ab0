package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"

	"territory/client/internal/net/proto"
)

// wireContract groups every message that crosses the websocket so one
// schema document describes both directions.
type wireContract struct {
	Instruction   proto.Instruction   `json:"instruction" jsonschema:"description=Render instruction pushed by the server"`
	Move          proto.Signal        `json:"move" jsonschema:"description=Move in the signal shape; the bare shape is the direction string alone"`
	MoveContent   proto.MoveContent   `json:"moveContent" jsonschema:"description=JSON document carried in move.content"`
	Customization proto.Customization `json:"customization" jsonschema:"description=Name and color update sent on resume"`
	Direction     proto.Direction     `json:"direction" jsonschema:"enum=up,enum=down,enum=left,enum=right,enum=stop"`
}

func main() {
	var outPath string
	flag.StringVar(&outPath, "out", "", "path to write the JSON schema")
	flag.Parse()

	if outPath == "" {
		fmt.Fprintln(os.Stderr, "--out is required")
		os.Exit(1)
	}

	schema := buildSchema()

	if err := writeSchema(outPath, schema); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write schema: %v\n", err)
		os.Exit(1)
	}
}

func buildSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
	}
	schema := reflector.Reflect(new(wireContract))
	schema.Title = "Territory Client Wire Contract"
	schema.Description = "Messages exchanged between the territory server and its clients"
	return schema
}

func writeSchema(outPath string, schema *jsonschema.Schema) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}

	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}

	return nil
}
