package schema

import (
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

var fixtures = []string{"bar_chart.json", "line_and_pie.json", "table_process_map.json"}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	return r
}

func loadFixture(t *testing.T, name string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	return doc
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

// at walks a decoded document by keys and indexes.
func at(doc any, path ...any) any {
	for _, p := range path {
		switch k := p.(type) {
		case string:
			doc = doc.(map[string]any)[k]
		case int:
			doc = doc.([]any)[k]
		}
	}
	return doc
}

func hasViolation(vs []Violation, path, reasonSubstr string) bool {
	for _, v := range vs {
		if v.Path == path && strings.Contains(v.Reason, reasonSubstr) {
			return true
		}
	}
	return false
}

func TestNewRegistry(t *testing.T) {
	r := newTestRegistry(t)
	if r.Version() != "task1_v1" {
		t.Errorf("Version() = %q, want %q", r.Version(), "task1_v1")
	}

	var doc map[string]any
	if err := json.Unmarshal(r.Document(), &doc); err != nil {
		t.Fatalf("Document() is not JSON: %v", err)
	}
	if _, ok := doc["$defs"]; !ok {
		t.Error("Document() has no $defs")
	}
}

func TestValidate_Fixtures(t *testing.T) {
	r := newTestRegistry(t)
	for _, name := range fixtures {
		t.Run(name, func(t *testing.T) {
			outcome, err := r.Validate(mustJSON(t, loadFixture(t, name)))
			if err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
			if !outcome.Valid() {
				t.Errorf("Validate() violations = %v, want none", outcome.Violations)
			}
		})
	}
}

func TestValidate_BarChartScenario(t *testing.T) {
	r := newTestRegistry(t)
	outcome, err := r.Validate(mustJSON(t, loadFixture(t, "bar_chart.json")))
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	res := outcome.Result
	if res.TaskVisualCategory != CategoryBarChart {
		t.Errorf("TaskVisualCategory = %q, want %q", res.TaskVisualCategory, CategoryBarChart)
	}
	if len(res.Visuals) != 1 {
		t.Fatalf("len(Visuals) = %d, want 1", len(res.Visuals))
	}
	bar, ok := res.Visuals[0].Structure.(*BarChartStructure)
	if !ok {
		t.Fatalf("Structure = %T, want *BarChartStructure", res.Visuals[0].Structure)
	}
	switch bar.BarChartType {
	case "single", "grouped", "stacked":
	default:
		t.Errorf("BarChartType = %q, want single, grouped or stacked", bar.BarChartType)
	}
	if got := len(bar.Series[0].DataPoints); got != 2 {
		t.Errorf("len(DataPoints) = %d, want 2", got)
	}
}

func TestValidate_NonObjectListMemberKeepsIndexes(t *testing.T) {
	r := newTestRegistry(t)
	doc := loadFixture(t, "bar_chart.json")
	visual := at(doc, "visuals", 0).(map[string]any)
	visual["visual_id"] = ""
	doc["visuals"] = []any{"junk", visual}

	outcome, err := r.Validate(mustJSON(t, doc))
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if got := len(outcome.Result.Visuals); got != 2 {
		t.Fatalf("len(Visuals) = %d, want 2", got)
	}
	if got := outcome.Result.Visuals[1].VisualType; got != BarChart {
		t.Errorf("Visuals[1].VisualType = %q, want %q", got, BarChart)
	}
	if !hasViolation(outcome.Violations, "/visuals/1/visual_id", "visual_id is empty") {
		t.Errorf("missing /visuals/1/visual_id violation, got %v", outcome.Violations)
	}
}

func TestValidate_NotAnObject(t *testing.T) {
	r := newTestRegistry(t)
	for _, raw := range []string{`[]`, `"text"`, `42`, `null`} {
		_, err := r.Validate(json.RawMessage(raw))
		if !errors.Is(err, ErrNotObject) {
			t.Errorf("Validate(%s) error = %v, want ErrNotObject", raw, err)
		}
	}

	if _, err := r.Validate(json.RawMessage(`{"visuals": [`)); err == nil {
		t.Error("Validate() on truncated JSON returned no error")
	}
}

func TestValidate_EmptyObjectIsNormalized(t *testing.T) {
	r := newTestRegistry(t)
	outcome, err := r.Validate(json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if outcome.Valid() {
		t.Fatal("Validate({}) reported no violations")
	}
	if !hasViolation(outcome.Violations, "/schema_version", "does not match") {
		t.Errorf("missing schema_version violation in %v", outcome.Violations)
	}

	var doc map[string]any
	if err := json.Unmarshal(mustJSON(t, outcome.Result), &doc); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"visuals", "relationships_between_visuals", "raw_text_elements"} {
		list, ok := doc[key].([]any)
		if !ok || len(list) != 0 {
			t.Errorf("%s = %v, want []", key, doc[key])
		}
	}
	if doc["task_visual_category"] != nil {
		t.Errorf("task_visual_category = %v, want null", doc["task_visual_category"])
	}
	if v := at(doc, "topic_context", "time_dimension", "has_time_dimension"); v != false {
		t.Errorf("has_time_dimension = %v, want false", v)
	}
	if v := at(doc, "topic_context", "title"); v != nil {
		t.Errorf("title = %v, want null", v)
	}
}

func TestValidate_Violations(t *testing.T) {
	tests := []struct {
		name    string
		fixture string
		mutate  func(doc map[string]any)
		path    string
		reason  string
	}{
		{
			name:    "unknown relationship visual id",
			fixture: "line_and_pie.json",
			mutate: func(doc map[string]any) {
				at(doc, "relationships_between_visuals", 0).(map[string]any)["visual_ids"] = []any{"v1", "v9"}
			},
			path:   "/relationships_between_visuals/0/visual_ids/1",
			reason: `"v9" does not resolve`,
		},
		{
			name:    "relationship with one visual",
			fixture: "line_and_pie.json",
			mutate: func(doc map[string]any) {
				at(doc, "relationships_between_visuals", 0).(map[string]any)["visual_ids"] = []any{"v1"}
			},
			path:   "/relationships_between_visuals/0/visual_ids",
			reason: "need at least 2",
		},
		{
			name:    "value_range without approximate",
			fixture: "bar_chart.json",
			mutate: func(doc map[string]any) {
				at(doc, "visuals", 0, "structure", "series", 0, "data_points", 0).(map[string]any)["approximate"] = false
			},
			path:   "/visuals/0/structure/series/0/data_points/0/value_range",
			reason: "approximate is false",
		},
		{
			name:    "inverted value_range",
			fixture: "bar_chart.json",
			mutate: func(doc map[string]any) {
				at(doc, "visuals", 0, "structure", "series", 0, "data_points", 0).(map[string]any)["value_range"] = map[string]any{"min": 13.0, "max": 11.0}
			},
			path:   "/visuals/0/structure/series/0/data_points/0/value_range",
			reason: "greater than max",
		},
		{
			name:    "unresolved category id",
			fixture: "bar_chart.json",
			mutate: func(doc map[string]any) {
				at(doc, "visuals", 0, "structure", "series", 1, "data_points", 1).(map[string]any)["category_id"] = "c7"
			},
			path:   "/visuals/0/structure/series/1/data_points/1/category_id",
			reason: `"c7" does not resolve`,
		},
		{
			name:    "duplicate visual id",
			fixture: "line_and_pie.json",
			mutate: func(doc map[string]any) {
				at(doc, "visuals", 1).(map[string]any)["visual_id"] = "v1"
			},
			path:   "/visuals/1/visual_id",
			reason: "duplicate visual_id",
		},
		{
			name:    "composite with one visual",
			fixture: "bar_chart.json",
			mutate: func(doc map[string]any) {
				doc["task_visual_category"] = "multiple_graphs"
			},
			path:   "/visuals",
			reason: "at least 2 visuals",
		},
		{
			name:    "mixed types without composite",
			fixture: "line_and_pie.json",
			mutate: func(doc map[string]any) {
				doc["task_visual_category"] = "line_graph"
			},
			path:   "/task_visual_category",
			reason: "require multiple_graphs",
		},
		{
			name:    "category disagrees with visual type",
			fixture: "bar_chart.json",
			mutate: func(doc map[string]any) {
				doc["task_visual_category"] = "table"
			},
			path:   "/task_visual_category",
			reason: "does not match",
		},
		{
			name:    "unknown category",
			fixture: "bar_chart.json",
			mutate: func(doc map[string]any) {
				doc["task_visual_category"] = "scatter_plot"
			},
			path:   "/task_visual_category",
			reason: "unknown task_visual_category",
		},
		{
			name:    "cross-type structure field",
			fixture: "bar_chart.json",
			mutate: func(doc map[string]any) {
				at(doc, "visuals", 0, "structure").(map[string]any)["slices"] = []any{}
			},
			path:   "/visuals/0/structure",
			reason: "slices",
		},
		{
			name:    "unresolved table column",
			fixture: "table_process_map.json",
			mutate: func(doc map[string]any) {
				at(doc, "visuals", 0, "structure", "cells", 1).(map[string]any)["column_id"] = "c3"
			},
			path:   "/visuals/0/structure/cells/1/column_id",
			reason: `"c3" does not resolve`,
		},
		{
			name:    "unresolved process stage",
			fixture: "table_process_map.json",
			mutate: func(doc map[string]any) {
				at(doc, "visuals", 1, "structure", "connections", 0).(map[string]any)["to_stage_id"] = "s5"
			},
			path:   "/visuals/1/structure/connections/0/to_stage_id",
			reason: `"s5" does not resolve`,
		},
		{
			name:    "unresolved map feature",
			fixture: "table_process_map.json",
			mutate: func(doc map[string]any) {
				at(doc, "visuals", 2, "structure", "changes_between_scenarios", 0).(map[string]any)["involved_feature_ids"] = []any{"f9"}
			},
			path:   "/visuals/2/structure/changes_between_scenarios/0/involved_feature_ids/0",
			reason: `"f9" does not resolve`,
		},
		{
			name:    "unresolved line tick",
			fixture: "line_and_pie.json",
			mutate: func(doc map[string]any) {
				at(doc, "visuals", 0, "structure", "line_series", 0, "data_points", 1).(map[string]any)["x_tick_id"] = "t3"
			},
			path:   "/visuals/0/structure/line_series/0/data_points/1/x_tick_id",
			reason: `"t3" does not resolve`,
		},
		{
			name:    "relationships outside composite",
			fixture: "bar_chart.json",
			mutate: func(doc map[string]any) {
				doc["relationships_between_visuals"] = []any{
					map[string]any{"relationship_id": "rel1", "relationship_type": "other", "visual_ids": []any{"v1", "v1"}},
				}
			},
			path:   "/relationships_between_visuals",
			reason: "only allowed for multiple_graphs",
		},
	}

	r := newTestRegistry(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := loadFixture(t, tt.fixture)
			tt.mutate(doc)

			outcome, err := r.Validate(mustJSON(t, doc))
			if err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
			if outcome.Result == nil {
				t.Fatal("Validate() returned no best-effort result")
			}
			if !hasViolation(outcome.Violations, tt.path, tt.reason) {
				t.Errorf("violations = %v, want %s containing %q", outcome.Violations, tt.path, tt.reason)
			}
		})
	}
}

func TestValidate_LenientFieldTypes(t *testing.T) {
	r := newTestRegistry(t)
	doc := loadFixture(t, "bar_chart.json")
	points := at(doc, "visuals", 0, "structure", "series", 1, "data_points").([]any)
	points[0].(map[string]any)["value"] = "18.0"
	points[1].(map[string]any)["value"] = "about eighteen"

	outcome, err := r.Validate(mustJSON(t, doc))
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	bar := outcome.Result.Visuals[0].Structure.(*BarChartStructure)
	got := bar.Series[1].DataPoints
	if got[0].Value == nil || *got[0].Value != 18.0 {
		t.Errorf("numeric string value = %v, want 18", got[0].Value)
	}
	if got[1].Value != nil {
		t.Errorf("unparseable value = %v, want nil", *got[1].Value)
	}
	if !hasViolation(outcome.Violations, "/visuals/0/structure/series/1/data_points/1/value", "") {
		t.Errorf("violations = %v, want a type violation for the unparseable value", outcome.Violations)
	}
}

func TestValidate_PieChartSumIsDerived(t *testing.T) {
	r := newTestRegistry(t)
	doc := loadFixture(t, "line_and_pie.json")
	slices := at(doc, "visuals", 1, "structure", "slices").([]any)
	slices[2].(map[string]any)["percentage"] = nil
	at(doc, "visuals", 1, "structure").(map[string]any)["percentage_sum_check"] = map[string]any{
		"total_percentage": 100.0, "is_approximately_100": true,
	}

	outcome, err := r.Validate(mustJSON(t, doc))
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	pie := outcome.Result.Visuals[1].Structure.(*PieChartStructure)
	want := PercentageSumCheck{TotalPercentage: 72, IsApproximately100: false, NullPercentages: 1}
	if diff := cmp.Diff(want, pie.PercentageSumCheck); diff != "" {
		t.Errorf("PercentageSumCheck mismatch (-want +got):\n%s", diff)
	}
	if !outcome.Valid() {
		t.Errorf("a failed sum check is advisory, got violations %v", outcome.Violations)
	}
}

func TestValidate_HugePercentagesStillEncode(t *testing.T) {
	r := newTestRegistry(t)
	doc := loadFixture(t, "line_and_pie.json")
	for _, s := range at(doc, "visuals", 1, "structure", "slices").([]any) {
		s.(map[string]any)["percentage"] = 1e308
	}

	outcome, err := r.Validate(mustJSON(t, doc))
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	pie := outcome.Result.Visuals[1].Structure.(*PieChartStructure)
	if math.IsInf(pie.PercentageSumCheck.TotalPercentage, 0) {
		t.Errorf("TotalPercentage = %v, want finite", pie.PercentageSumCheck.TotalPercentage)
	}
	if _, err := json.Marshal(outcome.Result); err != nil {
		t.Errorf("json.Marshal(result) error = %v", err)
	}
}

func TestCheckPercentages(t *testing.T) {
	f := func(v float64) *float64 { return &v }
	tests := []struct {
		name   string
		values []*float64
		want   PercentageSumCheck
	}{
		{"exact", []*float64{f(50), f(50)}, PercentageSumCheck{100, true, 0}},
		{"within tolerance", []*float64{f(49), f(49)}, PercentageSumCheck{98, true, 0}},
		{"upper tolerance", []*float64{f(60), f(42)}, PercentageSumCheck{102, true, 0}},
		{"outside tolerance", []*float64{f(60), f(37.5)}, PercentageSumCheck{97.5, false, 0}},
		{"nulls excluded", []*float64{f(60), nil, f(40)}, PercentageSumCheck{100, true, 1}},
		{"all null", []*float64{nil, nil}, PercentageSumCheck{0, false, 2}},
		{"empty", nil, PercentageSumCheck{}},
		{"overflow clamped", []*float64{f(1e308), f(1e308)}, PercentageSumCheck{math.MaxFloat64, false, 0}},
		{"negative overflow clamped", []*float64{f(-1e308), f(-1e308)}, PercentageSumCheck{-math.MaxFloat64, false, 0}},
		{"non-finite excluded", []*float64{f(math.NaN()), f(math.Inf(1)), f(100)}, PercentageSumCheck{100, true, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slices := make([]Slice, len(tt.values))
			for i, v := range tt.values {
				slices[i].Percentage = v
			}
			if diff := cmp.Diff(tt.want, CheckPercentages(slices)); diff != "" {
				t.Errorf("CheckPercentages() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNormalize_RoundTripIsIdempotent(t *testing.T) {
	r := newTestRegistry(t)
	for _, name := range append(fixtures, "") {
		label := name
		if label == "" {
			label = "empty object"
		}
		t.Run(label, func(t *testing.T) {
			raw := json.RawMessage(`{}`)
			if name != "" {
				raw = mustJSON(t, loadFixture(t, name))
			}
			first, err := r.Validate(raw)
			if err != nil {
				t.Fatalf("Validate() error = %v", err)
			}

			second, err := r.Validate(mustJSON(t, first.Result))
			if err != nil {
				t.Fatalf("Validate(serialized) error = %v", err)
			}
			if diff := cmp.Diff(first.Result, second.Result); diff != "" {
				t.Errorf("validate(serialize(x)) != x (-first +second):\n%s", diff)
			}

			again := Normalize(second.Result)
			if diff := cmp.Diff(first.Result, again); diff != "" {
				t.Errorf("Normalize not idempotent (-first +again):\n%s", diff)
			}
		})
	}
}

func TestExtractionResult_UnmarshalJSON(t *testing.T) {
	var res ExtractionResult
	data, err := os.ReadFile(filepath.Join("testdata", "table_process_map.json"))
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(data, &res); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	wantTypes := []VisualType{Table, ProcessDiagram, Map}
	for i, v := range res.Visuals {
		if v.Structure == nil || v.Structure.VisualType() != wantTypes[i] {
			t.Errorf("Visuals[%d].Structure = %T, want %s", i, v.Structure, wantTypes[i])
		}
	}
	m := res.Visuals[2].Structure.(*MapStructure)
	if got := len(m.Scenarios[1].Features); got != 2 {
		t.Errorf("len(Scenarios[1].Features) = %d, want 2", got)
	}
}
