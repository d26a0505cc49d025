package schema

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// ErrNotObject is returned by Validate when the candidate is valid JSON but
// not a JSON object. Nothing can be salvaged from such a document.
var ErrNotObject = errors.New("metadata is not a JSON object")

// Violation is one deviation from the metadata contract. Path is a JSON
// pointer into the document ("" for the root).
type Violation struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

func (v Violation) String() string {
	if v.Path == "" {
		return v.Reason
	}
	return v.Path + ": " + v.Reason
}

// Outcome is the result of validating one candidate document. Result is
// always normalized; Violations is empty when the document conforms.
type Outcome struct {
	Result     *ExtractionResult `json:"metadata"`
	Violations []Violation       `json:"violations"`
}

// Valid reports whether the candidate had no violations.
func (o *Outcome) Valid() bool {
	return len(o.Violations) == 0
}

// Registry holds the compiled contract for one schema version.
type Registry struct {
	version  string
	document []byte
	compiled *jsonschema.Schema
}

// NewRegistry loads and compiles the embedded schema for Version.
func NewRegistry() (*Registry, error) {
	name := fmt.Sprintf("schemas/%s.json", Version)
	doc, err := schemaFS.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema %s: %w", Version, err)
	}

	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(name, bytes.NewReader(doc)); err != nil {
		return nil, fmt.Errorf("failed to load schema %s: %w", Version, err)
	}
	compiled, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema %s: %w", Version, err)
	}

	return &Registry{
		version:  Version,
		document: doc,
		compiled: compiled,
	}, nil
}

// Version returns the schema_version this registry validates.
func (r *Registry) Version() string {
	return r.version
}

// Document returns the JSON Schema document.
func (r *Registry) Document() json.RawMessage {
	return json.RawMessage(r.document)
}

// Validate checks a candidate document against the contract and returns the
// normalized best-effort result with every violation found. It only fails
// when raw is not valid JSON or not a JSON object.
func (r *Registry) Validate(raw json.RawMessage) (*Outcome, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	m, ok := doc.(map[string]any)
	if !ok {
		return nil, ErrNotObject
	}

	var violations []Violation
	if err := r.compiled.Validate(doc); err != nil {
		violations = append(violations, flattenValidationError(err)...)
	}

	result := decodeResult(m)
	violations = append(violations, Check(&result)...)
	Normalize(&result)

	return &Outcome{
		Result:     &result,
		Violations: dedupe(violations),
	}, nil
}

// flattenValidationError turns the jsonschema error tree into its leaf
// violations, ordered by path.
func flattenValidationError(err error) []Violation {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return []Violation{{Reason: err.Error()}}
	}

	var out []Violation
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			out = append(out, Violation{Path: e.InstanceLocation, Reason: e.Message})
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].Reason < out[j].Reason
	})
	return out
}

func dedupe(vs []Violation) []Violation {
	out := make([]Violation, 0, len(vs))
	seen := make(map[Violation]struct{}, len(vs))
	for _, v := range vs {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
