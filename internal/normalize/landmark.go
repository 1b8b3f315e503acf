package normalize

import (
	"fmt"
	"sort"

	"transitguide.org/internal/models"
)

// Landmarks normalizes city landmark records.
//
// landmark_name, latitude and longitude are required; address is optional and
// kept verbatim. The id falls back to the name when absent. Records are
// deduplicated by id and then by name so the name can serve as a selection key.
func Landmarks(raw []RawRecord) ([]models.LandmarkRecord, Report, error) {
	report := newReport(string(models.SourceLandmark), len(raw))
	if len(raw) == 0 {
		return nil, report, fmt.Errorf("landmarks: %w", ErrDataUnavailable)
	}

	seenIDs := make(map[string]struct{}, len(raw))
	seenNames := make(map[string]struct{}, len(raw))
	landmarks := make([]models.LandmarkRecord, 0, len(raw))

	for _, rec := range raw {
		name, ok := stringValue(rec["landmark_name"])
		if !ok {
			report.drop(ReasonMissingName)
			continue
		}
		point, reason := coordinates(rec["latitude"], rec["longitude"])
		if reason != "" {
			report.drop(reason)
			continue
		}

		id, ok := stringValue(rec["id"])
		if !ok {
			id = name
		}
		if _, dup := seenIDs[id]; dup {
			report.drop(ReasonDuplicateID)
			continue
		}
		seenIDs[id] = struct{}{}
		if _, dup := seenNames[name]; dup {
			report.drop(ReasonDuplicateName)
			continue
		}
		seenNames[name] = struct{}{}

		address, _ := stringValue(rec["address"])
		landmarks = append(landmarks, models.LandmarkRecord{
			ID:        id,
			Name:      name,
			Address:   address,
			Latitude:  point.Lat,
			Longitude: point.Lon,
		})
	}

	report.Kept = len(landmarks)
	if len(landmarks) == 0 {
		return nil, report, fmt.Errorf("landmarks: no usable records in %d received: %w", len(raw), ErrDataUnavailable)
	}
	return landmarks, report, nil
}

// SortLandmarksByName returns a copy of landmarks ordered by name, the order
// used by the selection control.
func SortLandmarksByName(landmarks []models.LandmarkRecord) []models.LandmarkRecord {
	sorted := append([]models.LandmarkRecord(nil), landmarks...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})
	return sorted
}
