package prompts

import (
	"reflect"
	"strings"
	"testing"
)

func TestExtractVariables(t *testing.T) {
	tests := []struct {
		text string
		want []string
	}{
		{"no variables", nil},
		{"Hello {{.Name}}, you have {{ .Count }} items", []string{"Count", "Name"}},
		{"{{.A}} {{.A}} {{.B.C}}", []string{"A", "B.C"}},
	}
	for _, tt := range tests {
		got := ExtractVariables(tt.text)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ExtractVariables(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestHashText(t *testing.T) {
	a := HashText("prompt")
	if len(a) != 64 {
		t.Errorf("len(HashText()) = %d, want 64", len(a))
	}
	if a != HashText("prompt") {
		t.Error("HashText is not deterministic")
	}
	if a == HashText("prompt ") {
		t.Error("HashText ignores trailing whitespace")
	}
}

func TestRender(t *testing.T) {
	out, err := Render("greet", "Hi {{.Name}}", struct{ Name string }{"Ann"})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if out != "Hi Ann" {
		t.Errorf("Render() = %q, want %q", out, "Hi Ann")
	}

	if _, err := Render("missing", "Hi {{.Name}}", map[string]string{}); err == nil {
		t.Error("Render() with a missing key returned no error")
	}
	if _, err := Render("broken", "Hi {{.Name", nil); err == nil {
		t.Error("Render() with a malformed template returned no error")
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(EmbeddedPrompt{Key: "b.user", Template: "{{.X}}", Text: "x"})
	r.Register(EmbeddedPrompt{Key: "a.system", Template: "plain", Text: "plain"})

	p, err := r.Get("b.user")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if p.Hash != HashText("x") {
		t.Errorf("Hash = %q, want hash of rendered text", p.Hash)
	}
	if !reflect.DeepEqual(p.Variables, []string{"X"}) {
		t.Errorf("Variables = %v, want [X]", p.Variables)
	}

	if _, err := r.Get("missing"); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("Get(missing) error = %v, want not found", err)
	}

	list := r.List()
	if len(list) != 2 || list[0].Key != "a.system" || list[1].Key != "b.user" {
		t.Errorf("List() keys = %v, want [a.system b.user]", list)
	}
}
