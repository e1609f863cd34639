package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// snapshotTimeLayouts are the timestamp shapes the collector has produced
// over time. None carry a zone offset; they are interpreted in loc.
var snapshotTimeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// ParseRawEvent deserializes a snapshot message into per-hospital raw
// observations. Naive timestamps are interpreted in loc; a snapshot without a
// parseable timestamp falls back to the message timestamp set by the broker.
func ParseRawEvent(raw RawEvent, loc *time.Location) ([]RawObservation, error) {
	var snap RawSnapshot
	if err := json.Unmarshal(raw.Value, &snap); err != nil {
		return nil, fmt.Errorf("parse raw snapshot: %w", err)
	}
	if len(snap.Data) == 0 {
		return nil, fmt.Errorf("parse raw snapshot: no hospital entries")
	}

	collectedAt := parseSnapshotTime(snap.Timestamp, loc, raw.Timestamp)

	sourceID := snap.Source
	if sourceID == "" {
		sourceID = raw.Headers["source"]
	}

	obs := make([]RawObservation, 0, len(snap.Data))
	for name, waitText := range snap.Data {
		obs = append(obs, RawObservation{
			SourceID:     sourceID,
			HospitalName: name,
			WaitText:     waitText,
			CollectedAt:  collectedAt,
		})
	}
	return obs, nil
}

func parseSnapshotTime(value string, loc *time.Location, fallback time.Time) time.Time {
	for _, layout := range snapshotTimeLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t
		}
	}
	return fallback.In(loc)
}
