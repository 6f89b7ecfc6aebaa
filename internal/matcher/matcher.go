// Package matcher ranks volunteers eligible for dispatch by geospatial
// proximity, the way the Matcher component picks who gets notified about a
// new alert.
package matcher

import (
	"context"
	"fmt"
	"sort"

	"treewatch/internal/geo"
	"treewatch/internal/store"
)

// DefaultMaxResults caps FindNearbyAvailable's result set.
const DefaultMaxResults = 50

// Matcher finds volunteers eligible for dispatch.
type Matcher struct {
	volunteers store.VolunteerStore
	maxResults int
}

// New builds a Matcher over the given volunteer store.
func New(volunteers store.VolunteerStore) *Matcher {
	return &Matcher{volunteers: volunteers, maxResults: DefaultMaxResults}
}

type ranked struct {
	id       string
	distance float64
}

// FindNearbyAvailable returns available, active volunteer ids within
// radiusMeters of point, ordered by ascending great-circle distance: for
// eligible V1, V2 with d(V1) < d(V2), V1 precedes V2. Capped at
// DefaultMaxResults.
func (m *Matcher) FindNearbyAvailable(ctx context.Context, point geo.Point, radiusMeters float64) ([]string, error) {
	minLat, minLng, maxLat, maxLng := geo.BoundingBox(point, radiusMeters)

	candidates, err := m.volunteers.ListAvailableInBox(ctx, minLat, minLng, maxLat, maxLng)
	if err != nil {
		return nil, fmt.Errorf("matcher: list candidates in box: %w", err)
	}

	rankedCandidates := make([]ranked, 0, len(candidates))
	for _, v := range candidates {
		if !v.Active {
			continue
		}
		d := geo.DistanceMeters(point, v.Location)
		if d <= radiusMeters {
			rankedCandidates = append(rankedCandidates, ranked{id: v.ID, distance: d})
		}
	}

	sort.SliceStable(rankedCandidates, func(i, j int) bool {
		return rankedCandidates[i].distance < rankedCandidates[j].distance
	})

	if len(rankedCandidates) > m.maxResults {
		rankedCandidates = rankedCandidates[:m.maxResults]
	}

	ids := make([]string, len(rankedCandidates))
	for i, r := range rankedCandidates {
		ids[i] = r.id
	}
	return ids, nil
}

// FindAllAvailable returns every available, active volunteer id, unordered,
// for the retry sweep's fallback broadcast.
func (m *Matcher) FindAllAvailable(ctx context.Context) ([]string, error) {
	volunteers, err := m.volunteers.ListAvailable(ctx)
	if err != nil {
		return nil, fmt.Errorf("matcher: list available: %w", err)
	}

	ids := make([]string, 0, len(volunteers))
	for _, v := range volunteers {
		if v.Active {
			ids = append(ids, v.ID)
		}
	}
	return ids, nil
}
