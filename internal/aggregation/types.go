// Package aggregation computes pivoted chart aggregates over persisted
// demographic records: counts by gender, and counts by region and gender
// pivoted into one dense series per gender.
package aggregation

import "context"

type (
	// GenderCount is one row of the gender group-by query.
	GenderCount struct {
		Gender string
		Count  int
	}

	// RegionGenderCount is one row of the region/gender group-by query.
	// Rows with null or empty regions are excluded at the store.
	RegionGenderCount struct {
		Region string
		Gender string
		Count  int
	}

	// RegionDataset is one chart series: a gender label plus one count per
	// region, index-aligned with ChartData.RegionLabels.
	RegionDataset struct {
		Label string `json:"label"`
		Data  []int  `json:"data"`
	}

	// ChartData is the aggregate result consumed by the chart layer.
	//
	// GenderLabels and GenderCounts are index-aligned and ordered by count
	// descending (tie order among equal counts is store-dependent and not
	// part of the contract). RegionLabels and GenderCategories are sorted
	// ascending; every RegionDataset.Data has len(RegionLabels) entries with
	// 0 for combinations that never occur.
	ChartData struct {
		GenderLabels     []string        `json:"gender_labels"`
		GenderCounts     []int           `json:"gender_counts"`
		RegionLabels     []string        `json:"region_labels"`
		GenderCategories []string        `json:"gender_categories"`
		RegionDatasets   []RegionDataset `json:"region_datasets"`
	}
)

// Store defines the read surface the aggregation engine consumes. The
// PostgreSQL and in-memory person stores both implement it.
type Store interface {
	// Exists reports whether the store currently holds any records.
	Exists(ctx context.Context) (bool, error)

	// CountByGender returns record counts grouped by gender, ordered by
	// count descending.
	CountByGender(ctx context.Context) ([]GenderCount, error)

	// CountByRegionGender returns record counts grouped by (region, gender),
	// excluding records with null or empty region, ordered by count
	// descending.
	CountByRegionGender(ctx context.Context) ([]RegionGenderCount, error)
}
