package schema

import (
	"fmt"
)

// Check reports the semantic violations the JSON Schema cannot express:
// identifier uniqueness, cross-references, the uncertainty invariant and
// the category/visuals consistency rules.
func Check(r *ExtractionResult) []Violation {
	c := &checker{}
	c.result(r)
	return c.violations
}

type checker struct {
	violations []Violation
}

func (c *checker) add(path, format string, args ...any) {
	c.violations = append(c.violations, Violation{Path: path, Reason: fmt.Sprintf(format, args...)})
}

// ids collects identifiers, reporting empties and duplicates.
func (c *checker) ids(kind string, n int, id func(int) (string, string)) map[string]bool {
	set := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		path, v := id(i)
		if v == "" {
			c.add(path, "%s is empty", kind)
			continue
		}
		if set[v] {
			c.add(path, "duplicate %s %q", kind, v)
		}
		set[v] = true
	}
	return set
}

func (c *checker) ref(path, kind, id string, known map[string]bool) {
	if !known[id] {
		c.add(path, "%s %q does not resolve", kind, id)
	}
}

func (c *checker) uncertainty(path string, u Uncertainty) {
	if u.ValueRange == nil {
		return
	}
	if !u.Approximate {
		c.add(path+"/value_range", "value_range is set but approximate is false")
	}
	if u.ValueRange.Min != nil && u.ValueRange.Max != nil && *u.ValueRange.Min > *u.ValueRange.Max {
		c.add(path+"/value_range", "min %v is greater than max %v", *u.ValueRange.Min, *u.ValueRange.Max)
	}
}

func (c *checker) result(r *ExtractionResult) {
	if r.SchemaVersion != Version {
		c.add("/schema_version", "schema_version %q does not match %q", r.SchemaVersion, Version)
	}
	if !r.TaskVisualCategory.Valid() {
		c.add("/task_visual_category", "unknown task_visual_category %q", r.TaskVisualCategory)
	}

	visualIDs := c.ids("visual_id", len(r.Visuals), func(i int) (string, string) {
		return fmt.Sprintf("/visuals/%d/visual_id", i), r.Visuals[i].VisualID
	})

	types := make(map[VisualType]bool)
	for i, v := range r.Visuals {
		path := fmt.Sprintf("/visuals/%d", i)
		if !v.VisualType.Valid() {
			c.add(path+"/visual_type", "unknown visual_type %q", v.VisualType)
			continue
		}
		types[v.VisualType] = true
		c.structure(path+"/structure", v.Structure)
	}

	c.category(r, types)

	for i, rel := range r.Relationships {
		path := fmt.Sprintf("/relationships_between_visuals/%d", i)
		if len(rel.VisualIDs) < 2 {
			c.add(path+"/visual_ids", "relationship links %d visuals, need at least 2", len(rel.VisualIDs))
		}
		for j, id := range rel.VisualIDs {
			c.ref(fmt.Sprintf("%s/visual_ids/%d", path, j), "visual_id", id, visualIDs)
		}
	}
}

// category enforces the composite rules: multiple_graphs needs two or more
// visuals, two or more distinct visual types need multiple_graphs, a single
// chart type must match the category, and relationships only appear in
// composites.
func (c *checker) category(r *ExtractionResult, types map[VisualType]bool) {
	cat := r.TaskVisualCategory
	if cat == CategoryMultipleGraphs {
		if len(r.Visuals) < 2 {
			c.add("/visuals", "multiple_graphs requires at least 2 visuals, got %d", len(r.Visuals))
		}
		return
	}

	if len(types) >= 2 {
		c.add("/task_visual_category", "%d distinct visual types require multiple_graphs, got %q", len(types), cat)
	}
	if len(types) == 1 && cat.Valid() {
		for t := range types {
			if string(t) != string(cat) {
				c.add("/task_visual_category", "visual_type %q does not match task_visual_category %q", t, cat)
			}
		}
	}
	if len(r.Relationships) > 0 {
		c.add("/relationships_between_visuals", "relationships are only allowed for multiple_graphs, got %q", cat)
	}
}

func (c *checker) structure(path string, s Structure) {
	switch st := s.(type) {
	case *BarChartStructure:
		c.barChart(path, st)
	case *LineGraphStructure:
		c.lineGraph(path, st)
	case *PieChartStructure:
		c.pieChart(path, st)
	case *TableStructure:
		c.table(path, st)
	case *ProcessDiagramStructure:
		c.processDiagram(path, st)
	case *MapStructure:
		c.mapStructure(path, st)
	}
}

func (c *checker) barChart(path string, s *BarChartStructure) {
	cats := s.Axes.CategoryAxis.Categories
	known := c.ids("category_id", len(cats), func(i int) (string, string) {
		return fmt.Sprintf("%s/axes/category_axis/categories/%d/category_id", path, i), cats[i].CategoryID
	})
	c.ids("series_id", len(s.Series), func(i int) (string, string) {
		return fmt.Sprintf("%s/series/%d/series_id", path, i), s.Series[i].SeriesID
	})
	for i, series := range s.Series {
		for j, p := range series.DataPoints {
			pp := fmt.Sprintf("%s/series/%d/data_points/%d", path, i, j)
			c.ref(pp+"/category_id", "category_id", p.CategoryID, known)
			c.uncertainty(pp, p.Uncertainty)
		}
	}
}

func (c *checker) lineGraph(path string, s *LineGraphStructure) {
	ticks := s.Axes.XAxis.Ticks
	known := c.ids("tick_id", len(ticks), func(i int) (string, string) {
		return fmt.Sprintf("%s/axes/x_axis/ticks/%d/tick_id", path, i), ticks[i].TickID
	})
	c.ids("series_id", len(s.LineSeries), func(i int) (string, string) {
		return fmt.Sprintf("%s/line_series/%d/series_id", path, i), s.LineSeries[i].SeriesID
	})
	for i, series := range s.LineSeries {
		for j, p := range series.DataPoints {
			pp := fmt.Sprintf("%s/line_series/%d/data_points/%d", path, i, j)
			c.ref(pp+"/x_tick_id", "x_tick_id", p.XTickID, known)
			c.uncertainty(pp, p.Uncertainty)
		}
	}
}

func (c *checker) pieChart(path string, s *PieChartStructure) {
	c.ids("slice_id", len(s.Slices), func(i int) (string, string) {
		return fmt.Sprintf("%s/slices/%d/slice_id", path, i), s.Slices[i].SliceID
	})
	for i, sl := range s.Slices {
		c.uncertainty(fmt.Sprintf("%s/slices/%d", path, i), sl.Uncertainty)
	}
}

func (c *checker) table(path string, s *TableStructure) {
	rows := c.ids("row_id", len(s.RowHeaders), func(i int) (string, string) {
		return fmt.Sprintf("%s/row_headers/%d/row_id", path, i), s.RowHeaders[i].RowID
	})
	cols := c.ids("column_id", len(s.ColumnHeaders), func(i int) (string, string) {
		return fmt.Sprintf("%s/column_headers/%d/column_id", path, i), s.ColumnHeaders[i].ColumnID
	})
	for i, cell := range s.Cells {
		cp := fmt.Sprintf("%s/cells/%d", path, i)
		c.ref(cp+"/row_id", "row_id", cell.RowID, rows)
		c.ref(cp+"/column_id", "column_id", cell.ColumnID, cols)
		c.uncertainty(cp, cell.Uncertainty)
	}
}

func (c *checker) processDiagram(path string, s *ProcessDiagramStructure) {
	stages := c.ids("stage_id", len(s.Stages), func(i int) (string, string) {
		return fmt.Sprintf("%s/stages/%d/stage_id", path, i), s.Stages[i].StageID
	})
	for i, conn := range s.Connections {
		cp := fmt.Sprintf("%s/connections/%d", path, i)
		c.ref(cp+"/from_stage_id", "stage_id", conn.FromStageID, stages)
		c.ref(cp+"/to_stage_id", "stage_id", conn.ToStageID, stages)
	}
	for i, ps := range s.InputsAndOutputs.PerStage {
		c.ref(fmt.Sprintf("%s/inputs_and_outputs/per_stage/%d/stage_id", path, i), "stage_id", ps.StageID, stages)
	}
	for i, l := range s.LoopsAndCycles {
		for j, id := range l.InvolvedStageIDs {
			c.ref(fmt.Sprintf("%s/loops_and_cycles/%d/involved_stage_ids/%d", path, i, j), "stage_id", id, stages)
		}
	}
	for i, b := range s.ParallelBranches {
		for j, id := range b.BranchStageIDs {
			c.ref(fmt.Sprintf("%s/parallel_branches/%d/branch_stage_ids/%d", path, i, j), "stage_id", id, stages)
		}
	}
}

func (c *checker) mapStructure(path string, s *MapStructure) {
	scenarios := c.ids("scenario_id", len(s.Scenarios), func(i int) (string, string) {
		return fmt.Sprintf("%s/scenarios/%d/scenario_id", path, i), s.Scenarios[i].ScenarioID
	})
	// The same feature may appear in several scenarios, so feature ids are
	// only required to be unique within one scenario.
	features := make(map[string]bool)
	for i, sc := range s.Scenarios {
		ids := c.ids("feature_id", len(sc.Features), func(j int) (string, string) {
			return fmt.Sprintf("%s/scenarios/%d/features/%d/feature_id", path, i, j), sc.Features[j].FeatureID
		})
		for id := range ids {
			features[id] = true
		}
	}
	for i, ch := range s.ChangesBetweenScenarios {
		cp := fmt.Sprintf("%s/changes_between_scenarios/%d", path, i)
		c.ref(cp+"/from_scenario_id", "scenario_id", ch.FromScenarioID, scenarios)
		c.ref(cp+"/to_scenario_id", "scenario_id", ch.ToScenarioID, scenarios)
		for j, id := range ch.InvolvedFeatureIDs {
			c.ref(fmt.Sprintf("%s/involved_feature_ids/%d", cp, j), "feature_id", id, features)
		}
	}
}
