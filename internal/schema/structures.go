package schema

// Structure is the closed set of type-specific visual payloads. Only the
// six types in this file implement it.
type Structure interface {
	VisualType() VisualType
	isStructure()
}

// Bar chart

type BarChartStructure struct {
	BarChartType      string       `json:"bar_chart_type"`
	Orientation       *string      `json:"orientation"`
	Axes              BarAxes      `json:"axes"`
	Series            []BarSeries  `json:"series"`
	StackingInfo      StackingInfo `json:"stacking_info"`
	Extremes          BarExtremes  `json:"extremes"`
	PatternsAndTrends BarPatterns  `json:"patterns_and_trends"`
}

func (*BarChartStructure) VisualType() VisualType { return BarChart }
func (*BarChartStructure) isStructure()           {}

type BarAxes struct {
	CategoryAxis CategoryAxis `json:"category_axis"`
	ValueAxis    ValueAxis    `json:"value_axis"`
}

type CategoryAxis struct {
	Label      *string    `json:"label"`
	Unit       *string    `json:"unit"`
	Categories []Category `json:"categories"`
}

type Category struct {
	CategoryID string  `json:"category_id"`
	Label      *string `json:"label"`
	OrderIndex *int    `json:"order_index"`
	GroupLabel *string `json:"group_label"`
}

// ValueAxis is the measured axis of bar charts and line graphs.
type ValueAxis struct {
	Label    *string  `json:"label"`
	Unit     *string  `json:"unit"`
	MinValue *float64 `json:"min_value"`
	MaxValue *float64 `json:"max_value"`
	Scale    *string  `json:"scale"`
}

type BarSeries struct {
	SeriesID             string         `json:"series_id"`
	Label                *string        `json:"label"`
	LegendLabel          *string        `json:"legend_label"`
	Notes                *string        `json:"notes"`
	DataPoints           []BarDataPoint `json:"data_points"`
	SeriesPatternSummary *string        `json:"series_pattern_summary"`
}

type BarDataPoint struct {
	CategoryID string   `json:"category_id"`
	Value      *float64 `json:"value"`
	Uncertainty
}

type StackingInfo struct {
	IsStacked   bool  `json:"is_stacked"`
	StackGroups []any `json:"stack_groups"`
}

type BarExtremes struct {
	HighestBars []any `json:"highest_bars"`
	LowestBars  []any `json:"lowest_bars"`
}

type BarPatterns struct {
	OverallPattern   []any `json:"overall_pattern"`
	GroupComparisons []any `json:"group_comparisons"`
	NotableOutliers  []any `json:"notable_outliers"`
}

// Line graph

type LineGraphStructure struct {
	Axes              LineAxes     `json:"axes"`
	LineSeries        []LineSeries `json:"line_series"`
	Extremes          LineExtremes `json:"extremes"`
	PatternsAndTrends LinePatterns `json:"patterns_and_trends"`
}

func (*LineGraphStructure) VisualType() VisualType { return LineGraph }
func (*LineGraphStructure) isStructure()           {}

type LineAxes struct {
	XAxis XAxis     `json:"x_axis"`
	YAxis ValueAxis `json:"y_axis"`
}

type XAxis struct {
	Type  *string `json:"type"`
	Label *string `json:"label"`
	Unit  *string `json:"unit"`
	Ticks []Tick  `json:"ticks"`
}

type Tick struct {
	TickID       string   `json:"tick_id"`
	Label        *string  `json:"label"`
	NumericValue *float64 `json:"numeric_value"`
	OrderIndex   *int     `json:"order_index"`
}

type LineSeries struct {
	SeriesID           string          `json:"series_id"`
	Label              *string         `json:"label"`
	LegendLabel        *string         `json:"legend_label"`
	DataPoints         []LineDataPoint `json:"data_points"`
	SeriesTrendSummary *string         `json:"series_trend_summary"`
}

type LineDataPoint struct {
	XTickID       string   `json:"x_tick_id"`
	XLabel        *string  `json:"x_label"`
	XNumericValue *float64 `json:"x_numeric_value"`
	YValue        *float64 `json:"y_value"`
	Uncertainty
}

type LineExtremes struct {
	OverallMaxPoints []any `json:"overall_max_points"`
	OverallMinPoints []any `json:"overall_min_points"`
	PerSeriesMax     []any `json:"per_series_max"`
	PerSeriesMin     []any `json:"per_series_min"`
}

type LinePatterns struct {
	OverallTrendDescription []any `json:"overall_trend_description"`
	CrossSeriesComparisons  []any `json:"cross_series_comparisons"`
	CrossingPoints          []any `json:"crossing_points"`
	StabilityAndFluctuation []any `json:"stability_and_fluctuation"`
}

// Process diagram

type ProcessDiagramStructure struct {
	ProcessTitle          *string          `json:"process_title"`
	IsCycle               bool             `json:"is_cycle"`
	Stages                []Stage          `json:"stages"`
	Connections           []Connection     `json:"connections"`
	InputsAndOutputs      InputsAndOutputs `json:"inputs_and_outputs"`
	LoopsAndCycles        []Loop           `json:"loops_and_cycles"`
	ParallelBranches      []Branch         `json:"parallel_branches"`
	OverallProcessSummary ProcessSummary   `json:"overall_process_summary"`
}

func (*ProcessDiagramStructure) VisualType() VisualType { return ProcessDiagram }
func (*ProcessDiagramStructure) isStructure()           {}

type Stage struct {
	StageID        string  `json:"stage_id"`
	Name           *string `json:"name"`
	OrderIndex     *int    `json:"order_index"`
	IsStart        bool    `json:"is_start"`
	IsEnd          bool    `json:"is_end"`
	Description    *string `json:"description"`
	ApproxLocation *string `json:"approx_location"`
	NotesOnDiagram []any   `json:"notes_on_diagram"`
}

type Connection struct {
	FromStageID    string  `json:"from_stage_id"`
	ToStageID      string  `json:"to_stage_id"`
	ConnectionType *string `json:"connection_type"`
	LabelOnArrow   *string `json:"label_on_arrow"`
}

type InputsAndOutputs struct {
	GlobalInputs  []any     `json:"global_inputs"`
	GlobalOutputs []any     `json:"global_outputs"`
	PerStage      []StageIO `json:"per_stage"`
}

type StageIO struct {
	StageID string `json:"stage_id"`
	Inputs  []any  `json:"inputs"`
	Outputs []any  `json:"outputs"`
}

type Loop struct {
	LoopDescription  *string  `json:"loop_description"`
	InvolvedStageIDs []string `json:"involved_stage_ids"`
}

type Branch struct {
	Description    *string  `json:"description"`
	BranchStageIDs []string `json:"branch_stage_ids"`
}

type ProcessSummary struct {
	NumberOfStages     *int    `json:"number_of_stages"`
	MainPhases         []any   `json:"main_phases"`
	OverallDescription *string `json:"overall_description"`
}

// Table

type TableStructure struct {
	TableTitle         *string            `json:"table_title"`
	RowHeaders         []RowHeader        `json:"row_headers"`
	ColumnHeaders      []ColumnHeader     `json:"column_headers"`
	Cells              []Cell             `json:"cells"`
	DerivedInformation DerivedInformation `json:"derived_information"`
}

func (*TableStructure) VisualType() VisualType { return Table }
func (*TableStructure) isStructure()           {}

type RowHeader struct {
	RowID      string  `json:"row_id"`
	Label      *string `json:"label"`
	GroupLabel *string `json:"group_label"`
	OrderIndex *int    `json:"order_index"`
}

type ColumnHeader struct {
	ColumnID   string  `json:"column_id"`
	Label      *string `json:"label"`
	Unit       *string `json:"unit"`
	GroupLabel *string `json:"group_label"`
	OrderIndex *int    `json:"order_index"`
}

type Cell struct {
	RowID    string   `json:"row_id"`
	ColumnID string   `json:"column_id"`
	Value    *float64 `json:"value"`
	Uncertainty
}

type DerivedInformation struct {
	RowTotals         []any         `json:"row_totals"`
	ColumnTotals      []any         `json:"column_totals"`
	Extremes          TableExtremes `json:"extremes"`
	RowComparisons    []any         `json:"row_comparisons"`
	ColumnComparisons []any         `json:"column_comparisons"`
}

type TableExtremes struct {
	HighestCells []any `json:"highest_cells"`
	LowestCells  []any `json:"lowest_cells"`
}

// Map

type MapStructure struct {
	BaseRegionDescription   *string    `json:"base_region_description"`
	MapOrientation          *string    `json:"map_orientation"`
	Scenarios               []Scenario `json:"scenarios"`
	ChangesBetweenScenarios []Change   `json:"changes_between_scenarios"`
	OverallMapSummary       MapSummary `json:"overall_map_summary"`
}

func (*MapStructure) VisualType() VisualType { return Map }
func (*MapStructure) isStructure()           {}

type Scenario struct {
	ScenarioID  string       `json:"scenario_id"`
	Label       *string      `json:"label"`
	TimeLabel   *string      `json:"time_label"`
	Description *string      `json:"description"`
	Features    []MapFeature `json:"features"`
}

type MapFeature struct {
	FeatureID        string           `json:"feature_id"`
	Type             *string          `json:"type"`
	LabelOnMap       *string          `json:"label_on_map"`
	Category         *string          `json:"category"`
	Status           *string          `json:"status"`
	ApproxLocation   *string          `json:"approx_location"`
	RelativePosition RelativePosition `json:"relative_position"`
	Notes            []any            `json:"notes"`
}

type RelativePosition struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

type Change struct {
	FromScenarioID     string   `json:"from_scenario_id"`
	ToScenarioID       string   `json:"to_scenario_id"`
	ChangeType         *string  `json:"change_type"`
	Description        *string  `json:"description"`
	InvolvedFeatureIDs []string `json:"involved_feature_ids"`
}

type MapSummary struct {
	MainChanges         []any   `json:"main_changes"`
	DominantTrends      []any   `json:"dominant_trends"`
	BeforeAfterContrast *string `json:"before_after_contrast"`
}

// Pie chart

type PieChartStructure struct {
	ContextLabel       *string            `json:"context_label"`
	IsDonutChart       bool               `json:"is_donut_chart"`
	Slices             []Slice            `json:"slices"`
	PercentageSumCheck PercentageSumCheck `json:"percentage_sum_check"`
	Extremes           PieExtremes        `json:"extremes"`
	PatternsAndTrends  PiePatterns        `json:"patterns_and_trends"`
}

func (*PieChartStructure) VisualType() VisualType { return PieChart }
func (*PieChartStructure) isStructure()           {}

type Slice struct {
	SliceID    string   `json:"slice_id"`
	Label      *string  `json:"label"`
	Category   *string  `json:"category"`
	Percentage *float64 `json:"percentage"`
	Value      *float64 `json:"value"`
	Uncertainty
	IsHighlightedOnChart bool  `json:"is_highlighted_on_chart"`
	Notes                []any `json:"notes"`
}

// PercentageSumCheck is derived from the slices on every normalization;
// whatever the model reported is discarded. NullPercentages counts slices
// left out of the total because their percentage was unreadable.
type PercentageSumCheck struct {
	TotalPercentage    float64 `json:"total_percentage"`
	IsApproximately100 bool    `json:"is_approximately_100"`
	NullPercentages    int     `json:"null_percentages"`
}

type PieExtremes struct {
	LargestSlices  []any `json:"largest_slices"`
	SmallestSlices []any `json:"smallest_slices"`
}

type PiePatterns struct {
	WithinPieComparisons     []any `json:"within_pie_comparisons"`
	ComparisonsWithOtherPies []any `json:"comparisons_with_other_pies"`
}
