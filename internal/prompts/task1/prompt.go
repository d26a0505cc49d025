// Package task1 renders the IELTS Academic Task 1 extraction prompts.
//
// The system prompt embeds the metadata skeleton and is bound to
// schema.Version: the enums and version string are filled in from the schema
// package, so the text and the validator cannot drift apart silently.
package task1

import (
	_ "embed"
	"strings"

	"github.com/jackzampolin/ieltsmeta/internal/prompts"
	"github.com/jackzampolin/ieltsmeta/internal/schema"
)

//go:embed system.tmpl
var systemPromptTmpl string

//go:embed user.tmpl
var userPromptTmpl string

// Prompt keys
const (
	SystemPromptKey = "extract.task1.system"
	UserPromptKey   = "extract.task1.user"
)

// Vars are the values the system template is rendered with.
type Vars struct {
	SchemaVersion         string
	CategoryList          string
	CategoryUnion         string
	VisualTypeUnion       string
	RelationshipTypeUnion string
	TextRoleUnion         string
}

// CurrentVars returns the template values for the current schema version.
func CurrentVars() Vars {
	categories := make([]string, len(schema.Categories))
	for i, c := range schema.Categories {
		categories[i] = string(c)
	}
	visualTypes := make([]string, len(schema.VisualTypes))
	for i, t := range schema.VisualTypes {
		visualTypes[i] = string(t)
	}

	return Vars{
		SchemaVersion:         schema.Version,
		CategoryList:          `"` + strings.Join(categories, `", "`) + `"`,
		CategoryUnion:         strings.Join(categories, " | "),
		VisualTypeUnion:       strings.Join(visualTypes, " | "),
		RelationshipTypeUnion: strings.Join(schema.RelationshipTypes, " | "),
		TextRoleUnion:         strings.Join(schema.TextRoles, " | "),
	}
}

var systemPrompt = mustRender("system", systemPromptTmpl, CurrentVars())

var userPrompt = strings.TrimSpace(userPromptTmpl)

func mustRender(name, text string, data any) string {
	out, err := prompts.Render(name, text, data)
	if err != nil {
		panic(err)
	}
	return out
}

// SystemPrompt returns the instruction text for metadata extraction. It is
// rendered once and identical on every call.
func SystemPrompt() string {
	return systemPrompt
}

// UserPrompt returns the text sent alongside the image.
func UserPrompt() string {
	return userPrompt
}

// SystemPromptHash identifies the exact system prompt text.
func SystemPromptHash() string {
	return prompts.HashText(systemPrompt)
}

// Prompt returns the system prompt with its traceability hash.
func Prompt() prompts.EmbeddedPrompt {
	return prompts.EmbeddedPrompt{
		Key:           SystemPromptKey,
		Template:      systemPromptTmpl,
		Text:          systemPrompt,
		Description:   "Task 1 metadata extraction system prompt - rules, JSON skeleton and quality checklist",
		Variables:     prompts.ExtractVariables(systemPromptTmpl),
		Hash:          prompts.HashText(systemPrompt),
		SchemaVersion: schema.Version,
	}
}

// RegisterPrompts registers the task1 prompts with the registry.
func RegisterPrompts(r *prompts.Registry) {
	r.Register(Prompt())
	r.Register(prompts.EmbeddedPrompt{
		Key:           UserPromptKey,
		Template:      userPromptTmpl,
		Text:          userPrompt,
		Description:   "Task 1 metadata extraction user instruction sent with the image",
		SchemaVersion: schema.Version,
	})
}
