package schedule

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/width"

	"github.com/Haruday0/sendai-bus-map-v2/apps/api/models"
)

// NormalizeStopName folds full-width and half-width variants of digits, latin
// letters and kana, so "ＪＲ仙台駅" and "JR仙台駅" share one key
func NormalizeStopName(name string) string {
	return strings.TrimSpace(width.Fold.String(name))
}

func buildNameGroups(stops models.StopsData) map[string][]string {
	groups := make(map[string][]string)
	for id, stop := range stops {
		key := NormalizeStopName(stop.Name)
		if key == "" {
			continue
		}
		groups[key] = append(groups[key], id)
	}
	for _, ids := range groups {
		sort.Strings(ids)
	}
	return groups
}

// CoNamedStops returns the ids of every stop sharing stopID's display name,
// stopID included, sorted
func (s *Snapshot) CoNamedStops(stopID string) ([]string, error) {
	stop, ok := s.tables.Stops[stopID]
	if !ok {
		return nil, fmt.Errorf("stop %q: %w", stopID, ErrNotFound)
	}
	ids, ok := s.nameGroups[NormalizeStopName(stop.Name)]
	if !ok {
		return []string{stopID}, nil
	}
	out := make([]string, len(ids))
	copy(out, ids)
	return out, nil
}
