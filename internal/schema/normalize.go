package schema

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// PercentageTolerance is how far a pie chart's slice total may drift from
// 100 and still count as approximately 100.
const PercentageTolerance = 2.0

// Normalize replaces missing lists with empty ones and recomputes derived
// diagnostics, so every documented key is present when r is serialized.
// It never invents measurements. Normalize works in place, returns r for
// chaining, and is idempotent.
func Normalize(r *ExtractionResult) *ExtractionResult {
	if r == nil {
		return nil
	}

	td := &r.TopicContext.TimeDimension
	td.RawTimeLabels = orEmpty(td.RawTimeLabels)

	gs := &r.GlobalSemantics
	gs.PrimaryFeatures = orEmpty(gs.PrimaryFeatures)
	gs.SecondaryFeatures = orEmpty(gs.SecondaryFeatures)
	gs.ExtremesSummary = orEmpty(gs.ExtremesSummary)
	gs.NotableComparisonsSummary = orEmpty(gs.NotableComparisonsSummary)

	r.Visuals = orEmpty(r.Visuals)
	for i := range r.Visuals {
		v := &r.Visuals[i]
		v.LocalOverview.KeyFeatures = orEmpty(v.LocalOverview.KeyFeatures)
		normalizeStructure(v.Structure)
	}

	r.Relationships = orEmpty(r.Relationships)
	for i := range r.Relationships {
		r.Relationships[i].VisualIDs = orEmpty(r.Relationships[i].VisualIDs)
	}

	r.RawTextElements = orEmpty(r.RawTextElements)

	r.ExtractionNotes.Warnings = orEmpty(r.ExtractionNotes.Warnings)
	r.ExtractionNotes.Assumptions = orEmpty(r.ExtractionNotes.Assumptions)
	return r
}

func normalizeStructure(s Structure) {
	switch st := s.(type) {
	case *BarChartStructure:
		normalizeBarChart(st)
	case *LineGraphStructure:
		normalizeLineGraph(st)
	case *PieChartStructure:
		normalizePieChart(st)
	case *TableStructure:
		normalizeTable(st)
	case *ProcessDiagramStructure:
		normalizeProcessDiagram(st)
	case *MapStructure:
		normalizeMap(st)
	}
}

func normalizeBarChart(s *BarChartStructure) {
	s.Axes.CategoryAxis.Categories = orEmpty(s.Axes.CategoryAxis.Categories)
	s.Series = orEmpty(s.Series)
	for i := range s.Series {
		s.Series[i].DataPoints = orEmpty(s.Series[i].DataPoints)
	}
	s.StackingInfo.StackGroups = orEmpty(s.StackingInfo.StackGroups)
	s.Extremes.HighestBars = orEmpty(s.Extremes.HighestBars)
	s.Extremes.LowestBars = orEmpty(s.Extremes.LowestBars)
	p := &s.PatternsAndTrends
	p.OverallPattern = orEmpty(p.OverallPattern)
	p.GroupComparisons = orEmpty(p.GroupComparisons)
	p.NotableOutliers = orEmpty(p.NotableOutliers)
}

func normalizeLineGraph(s *LineGraphStructure) {
	s.Axes.XAxis.Ticks = orEmpty(s.Axes.XAxis.Ticks)
	s.LineSeries = orEmpty(s.LineSeries)
	for i := range s.LineSeries {
		s.LineSeries[i].DataPoints = orEmpty(s.LineSeries[i].DataPoints)
	}
	e := &s.Extremes
	e.OverallMaxPoints = orEmpty(e.OverallMaxPoints)
	e.OverallMinPoints = orEmpty(e.OverallMinPoints)
	e.PerSeriesMax = orEmpty(e.PerSeriesMax)
	e.PerSeriesMin = orEmpty(e.PerSeriesMin)
	p := &s.PatternsAndTrends
	p.OverallTrendDescription = orEmpty(p.OverallTrendDescription)
	p.CrossSeriesComparisons = orEmpty(p.CrossSeriesComparisons)
	p.CrossingPoints = orEmpty(p.CrossingPoints)
	p.StabilityAndFluctuation = orEmpty(p.StabilityAndFluctuation)
}

func normalizeProcessDiagram(s *ProcessDiagramStructure) {
	s.Stages = orEmpty(s.Stages)
	for i := range s.Stages {
		s.Stages[i].NotesOnDiagram = orEmpty(s.Stages[i].NotesOnDiagram)
	}
	s.Connections = orEmpty(s.Connections)
	io := &s.InputsAndOutputs
	io.GlobalInputs = orEmpty(io.GlobalInputs)
	io.GlobalOutputs = orEmpty(io.GlobalOutputs)
	io.PerStage = orEmpty(io.PerStage)
	for i := range io.PerStage {
		io.PerStage[i].Inputs = orEmpty(io.PerStage[i].Inputs)
		io.PerStage[i].Outputs = orEmpty(io.PerStage[i].Outputs)
	}
	s.LoopsAndCycles = orEmpty(s.LoopsAndCycles)
	for i := range s.LoopsAndCycles {
		s.LoopsAndCycles[i].InvolvedStageIDs = orEmpty(s.LoopsAndCycles[i].InvolvedStageIDs)
	}
	s.ParallelBranches = orEmpty(s.ParallelBranches)
	for i := range s.ParallelBranches {
		s.ParallelBranches[i].BranchStageIDs = orEmpty(s.ParallelBranches[i].BranchStageIDs)
	}
	s.OverallProcessSummary.MainPhases = orEmpty(s.OverallProcessSummary.MainPhases)
}

func normalizeTable(s *TableStructure) {
	s.RowHeaders = orEmpty(s.RowHeaders)
	s.ColumnHeaders = orEmpty(s.ColumnHeaders)
	s.Cells = orEmpty(s.Cells)
	d := &s.DerivedInformation
	d.RowTotals = orEmpty(d.RowTotals)
	d.ColumnTotals = orEmpty(d.ColumnTotals)
	d.Extremes.HighestCells = orEmpty(d.Extremes.HighestCells)
	d.Extremes.LowestCells = orEmpty(d.Extremes.LowestCells)
	d.RowComparisons = orEmpty(d.RowComparisons)
	d.ColumnComparisons = orEmpty(d.ColumnComparisons)
}

func normalizeMap(s *MapStructure) {
	s.Scenarios = orEmpty(s.Scenarios)
	for i := range s.Scenarios {
		sc := &s.Scenarios[i]
		sc.Features = orEmpty(sc.Features)
		for j := range sc.Features {
			sc.Features[j].Notes = orEmpty(sc.Features[j].Notes)
		}
	}
	s.ChangesBetweenScenarios = orEmpty(s.ChangesBetweenScenarios)
	for i := range s.ChangesBetweenScenarios {
		c := &s.ChangesBetweenScenarios[i]
		c.InvolvedFeatureIDs = orEmpty(c.InvolvedFeatureIDs)
	}
	m := &s.OverallMapSummary
	m.MainChanges = orEmpty(m.MainChanges)
	m.DominantTrends = orEmpty(m.DominantTrends)
}

func normalizePieChart(s *PieChartStructure) {
	s.Slices = orEmpty(s.Slices)
	for i := range s.Slices {
		s.Slices[i].Notes = orEmpty(s.Slices[i].Notes)
	}
	s.PercentageSumCheck = CheckPercentages(s.Slices)
	s.Extremes.LargestSlices = orEmpty(s.Extremes.LargestSlices)
	s.Extremes.SmallestSlices = orEmpty(s.Extremes.SmallestSlices)
	s.PatternsAndTrends.WithinPieComparisons = orEmpty(s.PatternsAndTrends.WithinPieComparisons)
	s.PatternsAndTrends.ComparisonsWithOtherPies = orEmpty(s.PatternsAndTrends.ComparisonsWithOtherPies)
}

// CheckPercentages sums the readable slice percentages. Slices without a
// finite percentage are excluded from the total and counted in
// NullPercentages. A chart with no readable percentage is never approximately
// 100. The total is clamped to the float64 range so it always encodes.
func CheckPercentages(slices []Slice) PercentageSumCheck {
	var check PercentageSumCheck
	values := make([]float64, 0, len(slices))
	for _, s := range slices {
		if s.Percentage == nil || math.IsNaN(*s.Percentage) || math.IsInf(*s.Percentage, 0) {
			check.NullPercentages++
			continue
		}
		values = append(values, *s.Percentage)
	}
	if len(values) == 0 {
		return check
	}
	check.TotalPercentage = floats.Sum(values)
	if math.IsInf(check.TotalPercentage, 0) {
		check.TotalPercentage = math.Copysign(math.MaxFloat64, check.TotalPercentage)
	}
	check.IsApproximately100 = math.Abs(check.TotalPercentage-100) <= PercentageTolerance
	return check
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
