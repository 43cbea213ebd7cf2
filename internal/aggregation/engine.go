package aggregation

import (
	"context"
	"fmt"
	"sort"
)

// Engine computes chart aggregates from a record store. Stateless and safe
// for concurrent use; every call queries the store fresh.
type Engine struct {
	store Store
}

// NewEngine creates an aggregation engine over the given store.
func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// ComputeChartData queries the store and pivots the region/gender counts
// into one dense series per gender.
//
// A store failure propagates as an error so the caller can render an
// explicit empty/error state; partial aggregates are never returned.
// Repeated calls against an unchanged store yield identical results except
// for gender-label tie order among equal counts, which is store-dependent.
func (e *Engine) ComputeChartData(ctx context.Context) (*ChartData, error) {
	genderCounts, err := e.store.CountByGender(ctx)
	if err != nil {
		return nil, fmt.Errorf("count by gender: %w", err)
	}

	regionCounts, err := e.store.CountByRegionGender(ctx)
	if err != nil {
		return nil, fmt.Errorf("count by region and gender: %w", err)
	}

	data := &ChartData{
		GenderLabels:     make([]string, len(genderCounts)),
		GenderCounts:     make([]int, len(genderCounts)),
		RegionLabels:     distinctRegions(regionCounts),
		GenderCategories: distinctGenders(regionCounts),
	}

	for i, gc := range genderCounts {
		data.GenderLabels[i] = gc.Gender
		data.GenderCounts[i] = gc.Count
	}

	// Dense lookup: (region, gender) -> count, 0 when absent.
	lookup := make(map[string]map[string]int, len(data.RegionLabels))
	for _, rc := range regionCounts {
		if lookup[rc.Region] == nil {
			lookup[rc.Region] = make(map[string]int)
		}

		lookup[rc.Region][rc.Gender] = rc.Count
	}

	data.RegionDatasets = make([]RegionDataset, 0, len(data.GenderCategories))

	for _, gender := range data.GenderCategories {
		series := RegionDataset{
			Label: gender,
			Data:  make([]int, len(data.RegionLabels)),
		}

		for i, region := range data.RegionLabels {
			series.Data[i] = lookup[region][gender]
		}

		data.RegionDatasets = append(data.RegionDatasets, series)
	}

	return data, nil
}

// distinctRegions returns the sorted distinct regions of the result set.
func distinctRegions(counts []RegionGenderCount) []string {
	seen := make(map[string]struct{}, len(counts))

	regions := make([]string, 0, len(counts))

	for _, rc := range counts {
		if _, ok := seen[rc.Region]; ok {
			continue
		}

		seen[rc.Region] = struct{}{}
		regions = append(regions, rc.Region)
	}

	sort.Strings(regions)

	return regions
}

// distinctGenders returns the sorted distinct genders of the result set.
// This may differ from the full gender set when some genders never co-occur
// with a non-empty region.
func distinctGenders(counts []RegionGenderCount) []string {
	seen := make(map[string]struct{}, len(counts))

	genders := make([]string, 0, len(counts))

	for _, rc := range counts {
		if _, ok := seen[rc.Gender]; ok {
			continue
		}

		seen[rc.Gender] = struct{}{}
		genders = append(genders, rc.Gender)
	}

	sort.Strings(genders)

	return genders
}
