package app

import (
	"context"
	"fmt"
	"time"

	"github.com/meridian-labs/panobridge/internal/domain"
	"github.com/meridian-labs/panobridge/internal/ports"
	"github.com/meridian-labs/panobridge/pkg/streetsmart"
)

// SessionSink receives the host-facing updates produced by viewer events.
type SessionSink interface {
	// OnPointOfView forwards a view change as {heading, pitch}.
	OnPointOfView(pov domain.PointOfView)

	// OnLocationChange forwards a recording click as a new location.
	OnLocationChange(loc domain.Location)

	// OnSessionError surfaces an open or subscribe failure.
	OnSessionError(err error)
}

// SessionInputs is the dependency tuple the session reacts to.
type SessionInputs struct {
	API         streetsmart.API
	Initialized bool
	ImageID     string
}

// ready reports whether a panorama can be opened.
func (in SessionInputs) ready() bool {
	return in.API != nil && in.Initialized && in.ImageID != ""
}

// SessionConfig carries the fixed open parameters.
type SessionConfig struct {
	SRS         string
	CallTimeout time.Duration
}

// Session opens a panorama for the current image identifier once the
// lifecycle is initialized, and keeps it in sync with identifier changes.
//
// All methods run on the controller loop. The open call is asynchronous
// and posts its completion back; viewer events are posted back as well.
// Every completion and handler closes over the specific viewer instance
// it belongs to, so stale arrivals cannot touch a newer session.
type Session struct {
	cfg    SessionConfig
	post   func(func()) bool
	logger ports.Logger
	sink   SessionSink

	applied bool
	last    SessionInputs

	viewer streetsmart.PanoramaViewer
	subs   []streetsmart.Subscription

	// gen invalidates in-flight open completions after a teardown.
	gen uint64
}

// NewSession creates a session manager posting its completions through post.
func NewSession(cfg SessionConfig, post func(func()) bool, logger ports.Logger, sink SessionSink) *Session {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}
	return &Session{
		cfg:    cfg,
		post:   post,
		logger: logger,
		sink:   sink,
	}
}

// Active reports whether a viewer session is currently subscribed.
func (s *Session) Active() bool {
	return s.viewer != nil
}

// Apply re-runs the unsubscribe/open pairing for a changed input tuple.
// An unchanged tuple is a no-op. Teardown of the previous session is
// synchronous, so both handlers are off the old viewer before the new
// open is issued.
func (s *Session) Apply(ctx context.Context, in SessionInputs) {
	if s.applied && in == s.last {
		return
	}

	s.Teardown(ctx)
	s.last = in
	s.applied = true

	if !in.ready() {
		return
	}

	gen := s.gen
	api := in.API
	imageID := in.ImageID
	opts := streetsmart.DefaultViewerOptions(s.cfg.SRS)
	timeout := s.cfg.CallTimeout

	go func() {
		cctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		viewers, err := api.Open(cctx, imageID, opts)
		s.post(func() { s.completeOpen(ctx, gen, imageID, viewers, err) })
	}()
}

// Teardown unsubscribes the handlers registered on the current viewer,
// exactly once each. Unsubscribe failures are logged and swallowed.
func (s *Session) Teardown(ctx context.Context) {
	s.gen++
	s.applied = false

	if s.viewer == nil {
		return
	}

	viewer := s.viewer
	subs := s.subs
	s.viewer = nil
	s.subs = nil

	for _, sub := range subs {
		cctx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
		if err := viewer.Off(cctx, sub); err != nil {
			s.logger.Debug("viewer unsubscribe failed",
				ports.String("event", sub.Event),
				ports.Err(err),
			)
		}
		cancel()
	}
}

// completeOpen applies the result of an open issued by Apply. Completions
// from a torn-down generation are logged and discarded.
func (s *Session) completeOpen(ctx context.Context, gen uint64, imageID string, viewers []streetsmart.PanoramaViewer, err error) {
	if gen != s.gen {
		s.logger.Debug("discarding stale open completion",
			ports.String("imageId", imageID),
		)
		return
	}
	if err != nil {
		s.sink.OnSessionError(fmt.Errorf("open panorama %q: %w", imageID, err))
		return
	}
	if len(viewers) == 0 {
		s.sink.OnSessionError(streetsmart.ErrNoViewer)
		return
	}

	viewer := viewers[0]
	subs, err := s.subscribe(ctx, viewer)
	if err != nil {
		s.sink.OnSessionError(err)
		return
	}

	s.viewer = viewer
	s.subs = subs

	s.logger.Info("panorama session open",
		ports.String("imageId", imageID),
	)
}

// subscribe registers the two session handlers on viewer. On a partial
// failure the successful registration is rolled back so a failed session
// leaves nothing subscribed.
func (s *Session) subscribe(ctx context.Context, viewer streetsmart.PanoramaViewer) ([]streetsmart.Subscription, error) {
	onView := func(ev streetsmart.Event) {
		s.post(func() { s.handleViewChange(viewer, ev) })
	}
	onClick := func(ev streetsmart.Event) {
		s.post(func() { s.handleRecordingClick(viewer, ev) })
	}

	cctx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	defer cancel()

	viewSub, err := viewer.On(cctx, streetsmart.EventViewChange, onView)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", streetsmart.EventViewChange, err)
	}
	clickSub, err := viewer.On(cctx, streetsmart.EventRecordingClick, onClick)
	if err != nil {
		if offErr := viewer.Off(cctx, viewSub); offErr != nil {
			s.logger.Debug("viewer unsubscribe failed",
				ports.String("event", viewSub.Event),
				ports.Err(offErr),
			)
		}
		return nil, fmt.Errorf("subscribe %s: %w", streetsmart.EventRecordingClick, err)
	}

	return []streetsmart.Subscription{viewSub, clickSub}, nil
}

// handleViewChange maps a view-change event to a point-of-view update.
// Events from a viewer other than the current one are dropped.
func (s *Session) handleViewChange(viewer streetsmart.PanoramaViewer, ev streetsmart.Event) {
	if viewer != s.viewer {
		return
	}

	d, err := ev.ViewChange()
	if err != nil {
		s.logger.Warn("bad view-change detail", ports.Err(err))
		return
	}

	s.sink.OnPointOfView(domain.PointOfView{Heading: d.Yaw, Pitch: d.Pitch})
}

// handleRecordingClick maps a recording click to a location update. The
// recording must carry a coordinate triple and an identifier; anything
// else is dropped. The forwarded location copies the full recording into
// the property bag with the identifier duplicated under imageId.
func (s *Session) handleRecordingClick(viewer streetsmart.PanoramaViewer, ev streetsmart.Event) {
	if viewer != s.viewer {
		return
	}

	d, err := ev.RecordingClick()
	if err != nil {
		s.logger.Warn("bad recording-click detail", ports.Err(err))
		return
	}

	rec := d.Recording
	xyz, ok := rec.XYZ()
	if !ok {
		s.logger.Debug("recording click without coordinate triple")
		return
	}
	id, ok := rec.ID()
	if !ok {
		s.logger.Debug("recording click without identifier")
		return
	}

	props := make(map[string]any, len(rec)+1)
	for k, v := range rec {
		props[k] = v
	}
	props[domain.ImageIDProperty] = id

	s.sink.OnLocationChange(domain.Location{
		LatLng:     domain.LatLng{Lat: xyz[1], Lng: xyz[0]},
		Properties: props,
	})
}
