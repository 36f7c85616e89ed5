package services

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Command names, one per request schema.
const (
	CommandCreateProject     = "create_project"
	CommandCastVote          = "cast_vote"
	CommandPublishResult     = "publish_result"
	CommandRequestWithdrawal = "request_withdrawal"
	CommandGrantPoints       = "grant_points"
	CommandCreateUser        = "create_user"
)

//go:embed schemas/*.json
var embeddedSchemas embed.FS

// ErrValidation can be used with errors.Is to detect rejected payloads and arguments.
var ErrValidation = errors.New("validation failed")

// Validator checks command payloads against JSON schemas before they are decoded.
type Validator struct {
	schemas map[string]*jsonschema.Schema
}

// NewValidator compiles the schemas shipped with the binary.
func NewValidator() (*Validator, error) {
	sub, err := fs.Sub(embeddedSchemas, "schemas")
	if err != nil {
		return nil, err
	}
	return NewValidatorFS(sub)
}

// NewValidatorFS compiles every *.json file in fsys; the file name without
// extension is the command name.
func NewValidatorFS(fsys fs.FS) (*Validator, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read schemas: %w", err)
	}
	schemas := make(map[string]*jsonschema.Schema)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		command := strings.TrimSuffix(e.Name(), path.Ext(e.Name()))
		data, err := fs.ReadFile(fsys, e.Name())
		if err != nil {
			return nil, fmt.Errorf("read %q: %w", e.Name(), err)
		}
		schemas[command], err = jsonschema.CompileString("https://pivote.app/schemas/"+command, string(data))
		if err != nil {
			return nil, fmt.Errorf("compile schema %q: %w", command, err)
		}
	}
	return &Validator{schemas: schemas}, nil
}

// Validate rejects a payload that is not JSON or does not match the command's schema.
func (v *Validator) Validate(command string, payload json.RawMessage) error {
	schema, ok := v.schemas[command]
	if !ok {
		return fmt.Errorf("unknown command %q", command)
	}
	var doc interface{}
	if err := json.Unmarshal(payload, &doc); err != nil {
		return fmt.Errorf("%w: invalid JSON: %v", ErrValidation, err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}
