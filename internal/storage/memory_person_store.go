package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/demoscope-io/demoscope/internal/aggregation"
	"github.com/demoscope-io/demoscope/internal/ingestion"
)

// MemoryPersonStore satisfies the same interfaces as PersonStore.
var (
	_ ingestion.Store   = (*MemoryPersonStore)(nil)
	_ aggregation.Store = (*MemoryPersonStore)(nil)
)

// MemoryPersonStore provides thread-safe in-memory record storage for unit
// tests and dependency-free local runs.
//
// Group-by results are ordered by count descending with lexicographic
// tie-breaks, one valid concrete ordering of the store-dependent tie
// contract.
type MemoryPersonStore struct {
	// persons holds records in insertion order
	persons []ingestion.Person
	// mutex protects concurrent access to persons
	mutex sync.RWMutex
}

// NewMemoryPersonStore creates an empty in-memory person store.
func NewMemoryPersonStore() *MemoryPersonStore {
	return &MemoryPersonStore{}
}

// BulkInsert appends all records in one critical section.
func (s *MemoryPersonStore) BulkInsert(_ context.Context, persons []ingestion.Person) error {
	if len(persons) == 0 {
		return nil
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.persons = append(s.persons, persons...)

	return nil
}

// Exists reports whether any records are stored.
func (s *MemoryPersonStore) Exists(_ context.Context) (bool, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return len(s.persons) > 0, nil
}

// CountByGender returns record counts grouped by gender, count descending.
func (s *MemoryPersonStore) CountByGender(_ context.Context) ([]aggregation.GenderCount, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	tally := make(map[string]int)
	for _, p := range s.persons {
		tally[p.Gender]++
	}

	counts := make([]aggregation.GenderCount, 0, len(tally))
	for gender, count := range tally {
		counts = append(counts, aggregation.GenderCount{Gender: gender, Count: count})
	}

	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}

		return counts[i].Gender < counts[j].Gender
	})

	return counts, nil
}

// CountByRegionGender returns record counts grouped by (region, gender),
// excluding records without a region, count descending.
func (s *MemoryPersonStore) CountByRegionGender(_ context.Context) ([]aggregation.RegionGenderCount, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	type key struct {
		region string
		gender string
	}

	tally := make(map[key]int)

	for _, p := range s.persons {
		if p.Region == nil || *p.Region == "" {
			continue
		}

		tally[key{region: *p.Region, gender: p.Gender}]++
	}

	counts := make([]aggregation.RegionGenderCount, 0, len(tally))
	for k, count := range tally {
		counts = append(counts, aggregation.RegionGenderCount{
			Region: k.region,
			Gender: k.gender,
			Count:  count,
		})
	}

	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}

		if counts[i].Region != counts[j].Region {
			return counts[i].Region < counts[j].Region
		}

		return counts[i].Gender < counts[j].Gender
	})

	return counts, nil
}

// List returns a page of records ordered by external_id.
func (s *MemoryPersonStore) List(_ context.Context, limit, offset int) ([]ingestion.Person, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	ordered := make([]ingestion.Person, len(s.persons))
	copy(ordered, s.persons)

	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ExternalID < ordered[j].ExternalID
	})

	if offset >= len(ordered) {
		return []ingestion.Person{}, nil
	}

	end := offset + limit
	if end > len(ordered) {
		end = len(ordered)
	}

	// Return copies to prevent external modification
	page := make([]ingestion.Person, end-offset)
	copy(page, ordered[offset:end])

	return page, nil
}

// Count returns the total number of stored records.
func (s *MemoryPersonStore) Count(_ context.Context) (int, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return len(s.persons), nil
}
