package extract

import "testing"

func TestParseModelOutput(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		wantErr bool
	}{
		{name: "plain object", content: `{"a":1}`, want: `{"a":1}`},
		{name: "surrounding whitespace", content: "\n  {\"a\":1}  \n", want: `{"a":1}`},
		{name: "json fence", content: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "bare fence", content: "```\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "prose around object", content: "Here you go: {\"a\":{\"b\":2}} hope this helps", want: `{"a":{"b":2}}`},
		{name: "array", content: `[1,2]`, want: `[1,2]`},
		{name: "empty", content: "   ", wantErr: true},
		{name: "truncated", content: `{"a": [1, 2`, wantErr: true},
		{name: "no json", content: "I cannot see an image.", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseModelOutput(tt.content)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseModelOutput() = %s, want error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseModelOutput() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("parseModelOutput() = %s, want %s", got, tt.want)
			}
		})
	}
}
