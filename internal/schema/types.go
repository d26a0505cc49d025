package schema

import "encoding/json"

// Version identifies the metadata contract. The task1 prompt is rendered
// against this value, so any change to the prompt or to these types bumps it.
const Version = "task1_v1"

// VisualCategory classifies the whole image.
type VisualCategory string

const (
	CategoryBarChart       VisualCategory = "bar_chart"
	CategoryLineGraph      VisualCategory = "line_graph"
	CategoryProcessDiagram VisualCategory = "process_diagram"
	CategoryMultipleGraphs VisualCategory = "multiple_graphs"
	CategoryTable          VisualCategory = "table"
	CategoryMap            VisualCategory = "map"
	CategoryPieChart       VisualCategory = "pie_chart"
)

// Categories lists every legal task_visual_category in prompt order.
var Categories = []VisualCategory{
	CategoryBarChart,
	CategoryLineGraph,
	CategoryProcessDiagram,
	CategoryMultipleGraphs,
	CategoryTable,
	CategoryMap,
	CategoryPieChart,
}

// Valid reports whether c is one of the seven categories.
func (c VisualCategory) Valid() bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

// MarshalJSON encodes an unset category as null.
func (c VisualCategory) MarshalJSON() ([]byte, error) {
	if c == "" {
		return []byte("null"), nil
	}
	return json.Marshal(string(c))
}

// VisualType selects the structure variant of a Visual.
type VisualType string

const (
	BarChart       VisualType = "bar_chart"
	LineGraph      VisualType = "line_graph"
	PieChart       VisualType = "pie_chart"
	Table          VisualType = "table"
	ProcessDiagram VisualType = "process_diagram"
	Map            VisualType = "map"
)

// VisualTypes lists every legal visual_type in prompt order.
var VisualTypes = []VisualType{BarChart, LineGraph, PieChart, Table, ProcessDiagram, Map}

// Valid reports whether t is one of the six visual types.
func (t VisualType) Valid() bool {
	for _, v := range VisualTypes {
		if t == v {
			return true
		}
	}
	return false
}

// MarshalJSON encodes an unset type as null.
func (t VisualType) MarshalJSON() ([]byte, error) {
	if t == "" {
		return []byte("null"), nil
	}
	return json.Marshal(string(t))
}

// RelationshipTypes lists the legal relationship_type values.
var RelationshipTypes = []string{
	"before_after",
	"different_groups",
	"different_metrics",
	"summary_vs_detail",
	"redevelopment",
	"other",
}

// TextRoles lists the legal raw_text_elements[].role values.
var TextRoles = []string{"title", "axis_label", "legend", "annotation", "note", "other"}

// ExtractionResult is the metadata document produced for one image.
type ExtractionResult struct {
	SchemaVersion      string          `json:"schema_version"`
	TaskVisualCategory VisualCategory  `json:"task_visual_category"`
	TopicContext       TopicContext    `json:"topic_context"`
	GlobalSemantics    GlobalSemantics `json:"global_semantics"`
	Visuals            []Visual        `json:"visuals"`
	Relationships      []Relationship  `json:"relationships_between_visuals"`
	RawTextElements    []TextElement   `json:"raw_text_elements"`
	ExtractionNotes    ExtractionNotes `json:"extraction_notes"`
}

// UnmarshalJSON decodes leniently: fields with the wrong JSON type are left
// at their absence marker instead of failing the whole document.
func (r *ExtractionResult) UnmarshalJSON(data []byte) error {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	*r = decodeResult(doc)
	return nil
}

type TopicContext struct {
	Title                   *string       `json:"title"`
	Subtitle                *string       `json:"subtitle"`
	Caption                 *string       `json:"caption"`
	TaskInstruction         *string       `json:"task_instruction"`
	TopicSummary            *string       `json:"topic_summary"`
	TimeDimension           TimeDimension `json:"time_dimension"`
	MeasurementDescription  *string       `json:"measurement_description"`
	MainEntitiesDescription *string       `json:"main_entities_description"`
}

type TimeDimension struct {
	HasTimeDimension bool    `json:"has_time_dimension"`
	TimeUnit         *string `json:"time_unit"`
	Start            any     `json:"start"`
	End              any     `json:"end"`
	RawTimeLabels    []any   `json:"raw_time_labels"`
}

type GlobalSemantics struct {
	PrimaryOverview           *string      `json:"primary_overview"`
	PrimaryFeatures           []KeyFeature `json:"primary_features"`
	SecondaryFeatures         []KeyFeature `json:"secondary_features"`
	ExtremesSummary           []any        `json:"extremes_summary"`
	NotableComparisonsSummary []any        `json:"notable_comparisons_summary"`
}

type KeyFeature struct {
	FeatureID       string  `json:"feature_id"`
	Description     *string `json:"description"`
	ImportanceLevel *string `json:"importance_level"`
}

// Visual is one chart, table, map or diagram in the image. Structure holds
// the variant matching VisualType, or nil when the type is unknown.
type Visual struct {
	VisualID      string        `json:"visual_id"`
	VisualType    VisualType    `json:"visual_type"`
	Role          *string       `json:"role"`
	PanelLabel    *string       `json:"panel_label"`
	Title         *string       `json:"title"`
	Caption       *string       `json:"caption"`
	LocalOverview LocalOverview `json:"local_overview"`
	Structure     Structure     `json:"structure"`
}

type LocalOverview struct {
	MainMessage *string `json:"main_message"`
	KeyFeatures []any   `json:"key_features"`
}

type Relationship struct {
	RelationshipID   string   `json:"relationship_id"`
	RelationshipType string   `json:"relationship_type"`
	Description      *string  `json:"description"`
	VisualIDs        []string `json:"visual_ids"`
}

type TextElement struct {
	ElementID      string  `json:"element_id"`
	Role           string  `json:"role"`
	Text           string  `json:"text"`
	ApproxLocation *string `json:"approx_location"`
}

type ExtractionNotes struct {
	ModelConfidenceOverall any   `json:"model_confidence_overall"`
	Warnings               []any `json:"warnings"`
	Assumptions            []any `json:"assumptions"`
}

// Uncertainty is shared by every leaf measurement. A non-nil ValueRange
// requires Approximate.
type Uncertainty struct {
	Approximate   bool        `json:"approximate"`
	ValueRange    *ValueRange `json:"value_range"`
	RawValueLabel *string     `json:"raw_value_label"`
}

type ValueRange struct {
	Min *float64 `json:"min"`
	Max *float64 `json:"max"`
}
