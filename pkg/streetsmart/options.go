package streetsmart

// Fixed vendor defaults. ScriptURL pins the API version the bootstrap page
// loads; SRS and locale are the fixed values passed to init unless the host
// overrides them through the pass-through options.
const (
	DefaultScriptURL = "https://streetsmart.cyclomedia.com/api/v23.8/StreetSmartApi.js"
	DefaultSRS       = "EPSG:4326"
	DefaultLocale    = "en"
)

// ViewerTypePanorama is the vendor constant selecting panorama viewers in
// an open call.
const ViewerTypePanorama = "panorama"

// InitOptions carries the authenticate-and-initialize parameters.
type InitOptions struct {
	TargetElement string
	Username      string
	Password      string
	APIKey        string
	SRS           string
	Locale        string

	// Extra is the host's free-form initialization map. It is merged into
	// the payload last, so hosts may override recognized fields, including
	// srs and locale.
	Extra map[string]any
}

// Payload renders the wire form of the init call. OAuth login is always
// disabled; Extra keys win over the fixed fields.
func (o InitOptions) Payload() map[string]any {
	srs := o.SRS
	if srs == "" {
		srs = DefaultSRS
	}
	locale := o.Locale
	if locale == "" {
		locale = DefaultLocale
	}

	p := map[string]any{
		"targetElement": o.TargetElement,
		"username":      o.Username,
		"password":      o.Password,
		"apiKey":        o.APIKey,
		"loginOauth":    false,
		"srs":           srs,
		"locale":        locale,
	}
	for k, v := range o.Extra {
		p[k] = v
	}
	return p
}

// ViewerOptions configures an open call.
type ViewerOptions struct {
	ViewerType []string        `json:"viewerType"`
	SRS        string          `json:"srs"`
	Panorama   PanoramaOptions `json:"panoramaViewer"`
}

// PanoramaOptions is the panorama-viewer portion of the open configuration.
type PanoramaOptions struct {
	Closable                 bool `json:"closable"`
	Maximizable              bool `json:"maximizable"`
	Replace                  bool `json:"replace"`
	RecordingsVisible        bool `json:"recordingsVisible"`
	NavbarVisible            bool `json:"navbarVisible"`
	TimeTravelVisible        bool `json:"timeTravelVisible"`
	MeasureTypeButtonVisible bool `json:"measureTypeButtonVisible"`
	MeasureTypeButtonStart   bool `json:"measureTypeButtonStart"`
	MeasureTypeButtonToggle  bool `json:"measureTypeButtonToggle"`
}

// DefaultViewerOptions returns the fixed panorama open configuration: a
// non-closable, maximizable viewer that replaces the previous image on
// open, with recordings, navigation bar, time travel and measurement
// tooling all enabled.
func DefaultViewerOptions(srs string) ViewerOptions {
	if srs == "" {
		srs = DefaultSRS
	}
	return ViewerOptions{
		ViewerType: []string{ViewerTypePanorama},
		SRS:        srs,
		Panorama: PanoramaOptions{
			Closable:                 false,
			Maximizable:              true,
			Replace:                  true,
			RecordingsVisible:        true,
			NavbarVisible:            true,
			TimeTravelVisible:        true,
			MeasureTypeButtonVisible: true,
			MeasureTypeButtonStart:   true,
			MeasureTypeButtonToggle:  true,
		},
	}
}
