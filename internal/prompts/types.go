// Package prompts holds the embedded prompt texts sent to the vision model.
//
// Prompts are Go templates embedded as .tmpl files and rendered once at
// start-up. Each rendered prompt is registered under a hierarchical key with
// a SHA256 hash, and every inference call records the hash of the prompt it
// used, so a stored result can always be traced to the exact instruction
// text that produced it.
package prompts

// Prompt is the API view of a registered prompt.
type Prompt struct {
	Key           string   `json:"key"`
	Text          string   `json:"text"`
	Description   string   `json:"description,omitempty"`
	Variables     []string `json:"variables,omitempty"`
	Hash          string   `json:"hash"`
	SchemaVersion string   `json:"schema_version,omitempty"`
}

// EmbeddedPrompt represents a prompt loaded from an embedded .tmpl file.
type EmbeddedPrompt struct {
	Key           string   // Hierarchical key: extract.task1.system
	Template      string   // The raw template text
	Text          string   // The rendered prompt text
	Description   string   // Human-readable description
	Variables     []string // Template variables, extracted from Template
	Hash          string   // SHA256 hash of Text
	SchemaVersion string   // Metadata contract the prompt targets, if any
}

// View returns the API representation of the prompt.
func (p EmbeddedPrompt) View() Prompt {
	return Prompt{
		Key:           p.Key,
		Text:          p.Text,
		Description:   p.Description,
		Variables:     p.Variables,
		Hash:          p.Hash,
		SchemaVersion: p.SchemaVersion,
	}
}
