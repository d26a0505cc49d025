package task1

import (
	"strings"
	"testing"

	"github.com/jackzampolin/ieltsmeta/internal/prompts"
	"github.com/jackzampolin/ieltsmeta/internal/schema"
)

func TestSystemPrompt_Deterministic(t *testing.T) {
	first := SystemPrompt()
	for i := 0; i < 3; i++ {
		if SystemPrompt() != first {
			t.Fatal("SystemPrompt() changed between calls")
		}
	}
	if SystemPromptHash() != prompts.HashText(first) {
		t.Error("SystemPromptHash() does not match the rendered text")
	}
}

func TestSystemPrompt_BoundToSchema(t *testing.T) {
	text := SystemPrompt()

	if strings.Contains(text, "{{") {
		t.Error("SystemPrompt() contains unrendered template actions")
	}
	if want := `"schema_version": "` + schema.Version + `"`; !strings.Contains(text, want) {
		t.Errorf("SystemPrompt() missing %s", want)
	}
	for _, c := range schema.Categories {
		if !strings.Contains(text, `"`+string(c)+`"`) {
			t.Errorf("SystemPrompt() missing category %q", c)
		}
	}
	for _, vt := range schema.VisualTypes {
		if !strings.Contains(text, `(visual_type = "`+string(vt)+`")`) {
			t.Errorf("SystemPrompt() has no structure section for %q", vt)
		}
	}
	for _, rt := range schema.RelationshipTypes {
		if !strings.Contains(text, rt) {
			t.Errorf("SystemPrompt() missing relationship type %q", rt)
		}
	}
}

func TestUserPrompt(t *testing.T) {
	want := "Analyze this IELTS Task 1 image and provide the complete JSON metadata as specified."
	if got := UserPrompt(); got != want {
		t.Errorf("UserPrompt() = %q, want %q", got, want)
	}
}

func TestRegisterPrompts(t *testing.T) {
	r := prompts.NewRegistry(nil)
	RegisterPrompts(r)

	sys, err := r.Get(SystemPromptKey)
	if err != nil {
		t.Fatalf("Get(%s) error = %v", SystemPromptKey, err)
	}
	if sys.Hash != SystemPromptHash() {
		t.Errorf("registered hash = %q, want %q", sys.Hash, SystemPromptHash())
	}
	if sys.SchemaVersion != schema.Version {
		t.Errorf("SchemaVersion = %q, want %q", sys.SchemaVersion, schema.Version)
	}
	wantVars := []string{"CategoryList", "CategoryUnion", "RelationshipTypeUnion", "SchemaVersion", "TextRoleUnion", "VisualTypeUnion"}
	if strings.Join(sys.Variables, ",") != strings.Join(wantVars, ",") {
		t.Errorf("Variables = %v, want %v", sys.Variables, wantVars)
	}

	if _, err := r.Get(UserPromptKey); err != nil {
		t.Errorf("Get(%s) error = %v", UserPromptKey, err)
	}
}

func TestPrompt(t *testing.T) {
	p := Prompt()
	if p.Key != SystemPromptKey {
		t.Errorf("Key = %q, want %q", p.Key, SystemPromptKey)
	}
	if p.Text != SystemPrompt() {
		t.Error("Text differs from SystemPrompt()")
	}
	if p.Hash != SystemPromptHash() {
		t.Errorf("Hash = %q, want %q", p.Hash, SystemPromptHash())
	}
	if len(p.Variables) == 0 {
		t.Error("Variables is empty")
	}
}
