package streetsmart

import (
	"encoding/json"
	"fmt"
)

// Viewer event names the session subscribes to.
const (
	EventViewChange     = "VIEW_CHANGE"
	EventRecordingClick = "RECORDING_CLICK"
)

// Event is a viewer event with its raw detail payload. Detail is decoded
// lazily through the typed accessors so unknown events pass through intact.
type Event struct {
	Name   string          `json:"name"`
	Detail json.RawMessage `json:"detail"`
}

// ViewChangeDetail is the detail payload of EventViewChange. The vendor
// reports the viewing direction as yaw; hosts consume it as heading.
type ViewChangeDetail struct {
	Yaw   float64 `json:"yaw"`
	Pitch float64 `json:"pitch"`
}

// ViewChange decodes the event detail as a view change.
func (e Event) ViewChange() (ViewChangeDetail, error) {
	var d ViewChangeDetail
	if err := json.Unmarshal(e.Detail, &d); err != nil {
		return ViewChangeDetail{}, fmt.Errorf("decode %s detail: %w", e.Name, err)
	}
	return d, nil
}

// RecordingClickDetail is the detail payload of EventRecordingClick.
type RecordingClickDetail struct {
	Recording Recording `json:"recording"`
}

// RecordingClick decodes the event detail as a recording click.
func (e Event) RecordingClick() (RecordingClickDetail, error) {
	var d RecordingClickDetail
	if err := json.Unmarshal(e.Detail, &d); err != nil {
		return RecordingClickDetail{}, fmt.Errorf("decode %s detail: %w", e.Name, err)
	}
	return d, nil
}

// Recording is the vendor's free-form recording object: one captured
// image with its coordinates, identifier and whatever else the vendor
// attaches.
type Recording map[string]any

// XYZ returns the recording's coordinate triple. The bool is false unless
// the recording carries a 3-element numeric array under "xyz".
func (r Recording) XYZ() ([3]float64, bool) {
	var xyz [3]float64
	switch raw := r["xyz"].(type) {
	case []any:
		if len(raw) != 3 {
			return xyz, false
		}
		for i, v := range raw {
			f, ok := v.(float64)
			if !ok {
				return xyz, false
			}
			xyz[i] = f
		}
	case []float64:
		if len(raw) != 3 {
			return xyz, false
		}
		copy(xyz[:], raw)
	default:
		return xyz, false
	}
	return xyz, true
}

// ID returns the recording's identifier. The bool is false unless the
// recording carries a non-empty string under "id".
func (r Recording) ID() (string, bool) {
	id, ok := r["id"].(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}
