package domain

// PointOfView is a viewing direction inside an opened panorama.
// Heading is degrees clockwise from north; Pitch is degrees above the horizon.
type PointOfView struct {
	Heading float64 `json:"heading"`
	Pitch   float64 `json:"pitch"`
}
