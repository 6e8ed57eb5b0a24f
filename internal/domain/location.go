package domain

// ImageIDProperty is the properties key holding the panorama image identifier.
const ImageIDProperty = "imageId"

// LatLng is a geographic coordinate in the viewer's spatial reference system.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Location is a geographic position together with the property bag of the
// panorama recorded there. Properties is free-form; only ImageIDProperty
// carries meaning for the session lifecycle.
type Location struct {
	LatLng     LatLng         `json:"latLng"`
	Properties map[string]any `json:"properties,omitempty"`
}

// ImageID extracts the panorama image identifier from the property bag.
// It returns "" when the property is absent or not a string.
func (l Location) ImageID() string {
	if l.Properties == nil {
		return ""
	}
	id, _ := l.Properties[ImageIDProperty].(string)
	return id
}

// WithImageID returns a copy of the location whose property bag carries the
// given image identifier. The original property bag is not modified.
func (l Location) WithImageID(id string) Location {
	props := make(map[string]any, len(l.Properties)+1)
	for k, v := range l.Properties {
		props[k] = v
	}
	props[ImageIDProperty] = id
	l.Properties = props
	return l
}
