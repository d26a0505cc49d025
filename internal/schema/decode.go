package schema

import (
	"math"
	"strconv"
	"strings"
)

// object is a decoded JSON object with lenient typed accessors. Every
// accessor returns the field's absence marker when the key is missing or
// holds a value of the wrong JSON type.
type object map[string]any

func (o object) str(key string) string {
	if s := o.optStr(key); s != nil {
		return *s
	}
	return ""
}

func (o object) optStr(key string) *string {
	switch v := o[key].(type) {
	case string:
		return &v
	case float64:
		s := strconv.FormatFloat(v, 'f', -1, 64)
		return &s
	}
	return nil
}

func (o object) num(key string) *float64 {
	switch v := o[key].(type) {
	case float64:
		return &v
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return &f
		}
	}
	return nil
}

func (o object) integer(key string) *int {
	f := o.num(key)
	if f == nil || *f != math.Trunc(*f) {
		return nil
	}
	i := int(*f)
	return &i
}

func (o object) flag(key string) bool {
	b, _ := o[key].(bool)
	return b
}

func (o object) obj(key string) object {
	m, _ := o[key].(map[string]any)
	return m
}

// values returns a free-form list verbatim.
func (o object) values(key string) []any {
	l, _ := o[key].([]any)
	return l
}

// strings returns the string members of a reference list.
func (o object) strings(key string) []string {
	l := o.values(key)
	if l == nil {
		return nil
	}
	out := make([]string, 0, len(l))
	for _, item := range l {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// objects returns the members of a list of objects. A member that is not an
// object decodes as an empty object so indexes still match the input.
func (o object) objects(key string) []object {
	l := o.values(key)
	if l == nil {
		return nil
	}
	out := make([]object, len(l))
	for i, item := range l {
		out[i], _ = item.(map[string]any)
	}
	return out
}

func decodeList[T any](items []object, fn func(object) T) []T {
	if items == nil {
		return nil
	}
	out := make([]T, len(items))
	for i, item := range items {
		out[i] = fn(item)
	}
	return out
}

func decodeResult(o object) ExtractionResult {
	return ExtractionResult{
		SchemaVersion:      o.str("schema_version"),
		TaskVisualCategory: VisualCategory(o.str("task_visual_category")),
		TopicContext:       decodeTopicContext(o.obj("topic_context")),
		GlobalSemantics:    decodeGlobalSemantics(o.obj("global_semantics")),
		Visuals:            decodeList(o.objects("visuals"), decodeVisual),
		Relationships:      decodeList(o.objects("relationships_between_visuals"), decodeRelationship),
		RawTextElements:    decodeList(o.objects("raw_text_elements"), decodeTextElement),
		ExtractionNotes: ExtractionNotes{
			ModelConfidenceOverall: o.obj("extraction_notes")["model_confidence_overall"],
			Warnings:               o.obj("extraction_notes").values("warnings"),
			Assumptions:            o.obj("extraction_notes").values("assumptions"),
		},
	}
}

func decodeTopicContext(o object) TopicContext {
	td := o.obj("time_dimension")
	return TopicContext{
		Title:           o.optStr("title"),
		Subtitle:        o.optStr("subtitle"),
		Caption:         o.optStr("caption"),
		TaskInstruction: o.optStr("task_instruction"),
		TopicSummary:    o.optStr("topic_summary"),
		TimeDimension: TimeDimension{
			HasTimeDimension: td.flag("has_time_dimension"),
			TimeUnit:         td.optStr("time_unit"),
			Start:            td["start"],
			End:              td["end"],
			RawTimeLabels:    td.values("raw_time_labels"),
		},
		MeasurementDescription:  o.optStr("measurement_description"),
		MainEntitiesDescription: o.optStr("main_entities_description"),
	}
}

func decodeGlobalSemantics(o object) GlobalSemantics {
	return GlobalSemantics{
		PrimaryOverview:           o.optStr("primary_overview"),
		PrimaryFeatures:           decodeList(o.objects("primary_features"), decodeKeyFeature),
		SecondaryFeatures:         decodeList(o.objects("secondary_features"), decodeKeyFeature),
		ExtremesSummary:           o.values("extremes_summary"),
		NotableComparisonsSummary: o.values("notable_comparisons_summary"),
	}
}

func decodeKeyFeature(o object) KeyFeature {
	return KeyFeature{
		FeatureID:       o.str("feature_id"),
		Description:     o.optStr("description"),
		ImportanceLevel: o.optStr("importance_level"),
	}
}

func decodeVisual(o object) Visual {
	t := VisualType(o.str("visual_type"))
	lo := o.obj("local_overview")
	return Visual{
		VisualID:   o.str("visual_id"),
		VisualType: t,
		Role:       o.optStr("role"),
		PanelLabel: o.optStr("panel_label"),
		Title:      o.optStr("title"),
		Caption:    o.optStr("caption"),
		LocalOverview: LocalOverview{
			MainMessage: lo.optStr("main_message"),
			KeyFeatures: lo.values("key_features"),
		},
		Structure: decodeStructure(t, o.obj("structure")),
	}
}

func decodeStructure(t VisualType, o object) Structure {
	switch t {
	case BarChart:
		return decodeBarChart(o)
	case LineGraph:
		return decodeLineGraph(o)
	case PieChart:
		return decodePieChart(o)
	case Table:
		return decodeTable(o)
	case ProcessDiagram:
		return decodeProcessDiagram(o)
	case Map:
		return decodeMap(o)
	}
	return nil
}

func decodeRelationship(o object) Relationship {
	return Relationship{
		RelationshipID:   o.str("relationship_id"),
		RelationshipType: o.str("relationship_type"),
		Description:      o.optStr("description"),
		VisualIDs:        o.strings("visual_ids"),
	}
}

func decodeTextElement(o object) TextElement {
	return TextElement{
		ElementID:      o.str("element_id"),
		Role:           o.str("role"),
		Text:           o.str("text"),
		ApproxLocation: o.optStr("approx_location"),
	}
}

func decodeUncertainty(o object) Uncertainty {
	u := Uncertainty{
		Approximate:   o.flag("approximate"),
		RawValueLabel: o.optStr("raw_value_label"),
	}
	if vr := o.obj("value_range"); vr != nil {
		u.ValueRange = &ValueRange{Min: vr.num("min"), Max: vr.num("max")}
	}
	return u
}

func decodeValueAxis(o object) ValueAxis {
	return ValueAxis{
		Label:    o.optStr("label"),
		Unit:     o.optStr("unit"),
		MinValue: o.num("min_value"),
		MaxValue: o.num("max_value"),
		Scale:    o.optStr("scale"),
	}
}

func decodeBarChart(o object) *BarChartStructure {
	axes := o.obj("axes")
	catAxis := axes.obj("category_axis")
	stacking := o.obj("stacking_info")
	extremes := o.obj("extremes")
	patterns := o.obj("patterns_and_trends")
	return &BarChartStructure{
		BarChartType: o.str("bar_chart_type"),
		Orientation:  o.optStr("orientation"),
		Axes: BarAxes{
			CategoryAxis: CategoryAxis{
				Label: catAxis.optStr("label"),
				Unit:  catAxis.optStr("unit"),
				Categories: decodeList(catAxis.objects("categories"), func(c object) Category {
					return Category{
						CategoryID: c.str("category_id"),
						Label:      c.optStr("label"),
						OrderIndex: c.integer("order_index"),
						GroupLabel: c.optStr("group_label"),
					}
				}),
			},
			ValueAxis: decodeValueAxis(axes.obj("value_axis")),
		},
		Series: decodeList(o.objects("series"), func(s object) BarSeries {
			return BarSeries{
				SeriesID:    s.str("series_id"),
				Label:       s.optStr("label"),
				LegendLabel: s.optStr("legend_label"),
				Notes:       s.optStr("notes"),
				DataPoints: decodeList(s.objects("data_points"), func(p object) BarDataPoint {
					return BarDataPoint{
						CategoryID:  p.str("category_id"),
						Value:       p.num("value"),
						Uncertainty: decodeUncertainty(p),
					}
				}),
				SeriesPatternSummary: s.optStr("series_pattern_summary"),
			}
		}),
		StackingInfo: StackingInfo{
			IsStacked:   stacking.flag("is_stacked"),
			StackGroups: stacking.values("stack_groups"),
		},
		Extremes: BarExtremes{
			HighestBars: extremes.values("highest_bars"),
			LowestBars:  extremes.values("lowest_bars"),
		},
		PatternsAndTrends: BarPatterns{
			OverallPattern:   patterns.values("overall_pattern"),
			GroupComparisons: patterns.values("group_comparisons"),
			NotableOutliers:  patterns.values("notable_outliers"),
		},
	}
}

func decodeLineGraph(o object) *LineGraphStructure {
	axes := o.obj("axes")
	xAxis := axes.obj("x_axis")
	extremes := o.obj("extremes")
	patterns := o.obj("patterns_and_trends")
	return &LineGraphStructure{
		Axes: LineAxes{
			XAxis: XAxis{
				Type:  xAxis.optStr("type"),
				Label: xAxis.optStr("label"),
				Unit:  xAxis.optStr("unit"),
				Ticks: decodeList(xAxis.objects("ticks"), func(t object) Tick {
					return Tick{
						TickID:       t.str("tick_id"),
						Label:        t.optStr("label"),
						NumericValue: t.num("numeric_value"),
						OrderIndex:   t.integer("order_index"),
					}
				}),
			},
			YAxis: decodeValueAxis(axes.obj("y_axis")),
		},
		LineSeries: decodeList(o.objects("line_series"), func(s object) LineSeries {
			return LineSeries{
				SeriesID:    s.str("series_id"),
				Label:       s.optStr("label"),
				LegendLabel: s.optStr("legend_label"),
				DataPoints: decodeList(s.objects("data_points"), func(p object) LineDataPoint {
					return LineDataPoint{
						XTickID:       p.str("x_tick_id"),
						XLabel:        p.optStr("x_label"),
						XNumericValue: p.num("x_numeric_value"),
						YValue:        p.num("y_value"),
						Uncertainty:   decodeUncertainty(p),
					}
				}),
				SeriesTrendSummary: s.optStr("series_trend_summary"),
			}
		}),
		Extremes: LineExtremes{
			OverallMaxPoints: extremes.values("overall_max_points"),
			OverallMinPoints: extremes.values("overall_min_points"),
			PerSeriesMax:     extremes.values("per_series_max"),
			PerSeriesMin:     extremes.values("per_series_min"),
		},
		PatternsAndTrends: LinePatterns{
			OverallTrendDescription: patterns.values("overall_trend_description"),
			CrossSeriesComparisons:  patterns.values("cross_series_comparisons"),
			CrossingPoints:          patterns.values("crossing_points"),
			StabilityAndFluctuation: patterns.values("stability_and_fluctuation"),
		},
	}
}

func decodeProcessDiagram(o object) *ProcessDiagramStructure {
	io := o.obj("inputs_and_outputs")
	summary := o.obj("overall_process_summary")
	return &ProcessDiagramStructure{
		ProcessTitle: o.optStr("process_title"),
		IsCycle:      o.flag("is_cycle"),
		Stages: decodeList(o.objects("stages"), func(s object) Stage {
			return Stage{
				StageID:        s.str("stage_id"),
				Name:           s.optStr("name"),
				OrderIndex:     s.integer("order_index"),
				IsStart:        s.flag("is_start"),
				IsEnd:          s.flag("is_end"),
				Description:    s.optStr("description"),
				ApproxLocation: s.optStr("approx_location"),
				NotesOnDiagram: s.values("notes_on_diagram"),
			}
		}),
		Connections: decodeList(o.objects("connections"), func(c object) Connection {
			return Connection{
				FromStageID:    c.str("from_stage_id"),
				ToStageID:      c.str("to_stage_id"),
				ConnectionType: c.optStr("connection_type"),
				LabelOnArrow:   c.optStr("label_on_arrow"),
			}
		}),
		InputsAndOutputs: InputsAndOutputs{
			GlobalInputs:  io.values("global_inputs"),
			GlobalOutputs: io.values("global_outputs"),
			PerStage: decodeList(io.objects("per_stage"), func(p object) StageIO {
				return StageIO{
					StageID: p.str("stage_id"),
					Inputs:  p.values("inputs"),
					Outputs: p.values("outputs"),
				}
			}),
		},
		LoopsAndCycles: decodeList(o.objects("loops_and_cycles"), func(l object) Loop {
			return Loop{
				LoopDescription:  l.optStr("loop_description"),
				InvolvedStageIDs: l.strings("involved_stage_ids"),
			}
		}),
		ParallelBranches: decodeList(o.objects("parallel_branches"), func(b object) Branch {
			return Branch{
				Description:    b.optStr("description"),
				BranchStageIDs: b.strings("branch_stage_ids"),
			}
		}),
		OverallProcessSummary: ProcessSummary{
			NumberOfStages:     summary.integer("number_of_stages"),
			MainPhases:         summary.values("main_phases"),
			OverallDescription: summary.optStr("overall_description"),
		},
	}
}

func decodeTable(o object) *TableStructure {
	derived := o.obj("derived_information")
	extremes := derived.obj("extremes")
	return &TableStructure{
		TableTitle: o.optStr("table_title"),
		RowHeaders: decodeList(o.objects("row_headers"), func(r object) RowHeader {
			return RowHeader{
				RowID:      r.str("row_id"),
				Label:      r.optStr("label"),
				GroupLabel: r.optStr("group_label"),
				OrderIndex: r.integer("order_index"),
			}
		}),
		ColumnHeaders: decodeList(o.objects("column_headers"), func(c object) ColumnHeader {
			return ColumnHeader{
				ColumnID:   c.str("column_id"),
				Label:      c.optStr("label"),
				Unit:       c.optStr("unit"),
				GroupLabel: c.optStr("group_label"),
				OrderIndex: c.integer("order_index"),
			}
		}),
		Cells: decodeList(o.objects("cells"), func(c object) Cell {
			return Cell{
				RowID:       c.str("row_id"),
				ColumnID:    c.str("column_id"),
				Value:       c.num("value"),
				Uncertainty: decodeUncertainty(c),
			}
		}),
		DerivedInformation: DerivedInformation{
			RowTotals:    derived.values("row_totals"),
			ColumnTotals: derived.values("column_totals"),
			Extremes: TableExtremes{
				HighestCells: extremes.values("highest_cells"),
				LowestCells:  extremes.values("lowest_cells"),
			},
			RowComparisons:    derived.values("row_comparisons"),
			ColumnComparisons: derived.values("column_comparisons"),
		},
	}
}

func decodeMap(o object) *MapStructure {
	summary := o.obj("overall_map_summary")
	return &MapStructure{
		BaseRegionDescription: o.optStr("base_region_description"),
		MapOrientation:        o.optStr("map_orientation"),
		Scenarios: decodeList(o.objects("scenarios"), func(s object) Scenario {
			return Scenario{
				ScenarioID:  s.str("scenario_id"),
				Label:       s.optStr("label"),
				TimeLabel:   s.optStr("time_label"),
				Description: s.optStr("description"),
				Features: decodeList(s.objects("features"), func(f object) MapFeature {
					pos := f.obj("relative_position")
					return MapFeature{
						FeatureID:        f.str("feature_id"),
						Type:             f.optStr("type"),
						LabelOnMap:       f.optStr("label_on_map"),
						Category:         f.optStr("category"),
						Status:           f.optStr("status"),
						ApproxLocation:   f.optStr("approx_location"),
						RelativePosition: RelativePosition{X: pos.num("x"), Y: pos.num("y")},
						Notes:            f.values("notes"),
					}
				}),
			}
		}),
		ChangesBetweenScenarios: decodeList(o.objects("changes_between_scenarios"), func(c object) Change {
			return Change{
				FromScenarioID:     c.str("from_scenario_id"),
				ToScenarioID:       c.str("to_scenario_id"),
				ChangeType:         c.optStr("change_type"),
				Description:        c.optStr("description"),
				InvolvedFeatureIDs: c.strings("involved_feature_ids"),
			}
		}),
		OverallMapSummary: MapSummary{
			MainChanges:         summary.values("main_changes"),
			DominantTrends:      summary.values("dominant_trends"),
			BeforeAfterContrast: summary.optStr("before_after_contrast"),
		},
	}
}

func decodePieChart(o object) *PieChartStructure {
	extremes := o.obj("extremes")
	patterns := o.obj("patterns_and_trends")
	return &PieChartStructure{
		ContextLabel: o.optStr("context_label"),
		IsDonutChart: o.flag("is_donut_chart"),
		Slices: decodeList(o.objects("slices"), func(s object) Slice {
			return Slice{
				SliceID:              s.str("slice_id"),
				Label:                s.optStr("label"),
				Category:             s.optStr("category"),
				Percentage:           s.num("percentage"),
				Value:                s.num("value"),
				Uncertainty:          decodeUncertainty(s),
				IsHighlightedOnChart: s.flag("is_highlighted_on_chart"),
				Notes:                s.values("notes"),
			}
		}),
		Extremes: PieExtremes{
			LargestSlices:  extremes.values("largest_slices"),
			SmallestSlices: extremes.values("smallest_slices"),
		},
		PatternsAndTrends: PiePatterns{
			WithinPieComparisons:     patterns.values("within_pie_comparisons"),
			ComparisonsWithOtherPies: patterns.values("comparisons_with_other_pies"),
		},
	}
}
