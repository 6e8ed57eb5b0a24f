package sandbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/meridian-labs/panobridge/pkg/streetsmart"
)

// apiProxy implements streetsmart.API over one bridge connection. The
// handle dies with its connection: once the bridge drops, every call
// fails with the connection's close error and the next hello delivers a
// replacement handle.
type apiProxy struct {
	conn *bridgeConn
}

func (a *apiProxy) Init(ctx context.Context, opts streetsmart.InitOptions) error {
	_, err := a.conn.call(ctx, methodInit, opts.Payload())
	return err
}

type openParams struct {
	ImageID string                    `json:"imageId"`
	Options streetsmart.ViewerOptions `json:"options"`
}

type openResult struct {
	Viewers []string `json:"viewers"`
}

func (a *apiProxy) Open(ctx context.Context, imageID string, opts streetsmart.ViewerOptions) ([]streetsmart.PanoramaViewer, error) {
	raw, err := a.conn.call(ctx, methodOpen, openParams{ImageID: imageID, Options: opts})
	if err != nil {
		return nil, err
	}

	var res openResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("decode open result: %w", err)
	}

	viewers := make([]streetsmart.PanoramaViewer, len(res.Viewers))
	for i, id := range res.Viewers {
		viewers[i] = &viewerProxy{conn: a.conn, id: id}
	}
	return viewers, nil
}

func (a *apiProxy) Destroy(ctx context.Context, opts streetsmart.DestroyOptions) error {
	_, err := a.conn.call(ctx, methodDestroy, opts)
	return err
}

// viewerProxy implements streetsmart.PanoramaViewer for one page-side
// viewer instance.
type viewerProxy struct {
	conn *bridgeConn
	id   string
}

type onParams struct {
	Viewer string `json:"viewer"`
	Event  string `json:"event"`
}

type onResult struct {
	Subscription string `json:"subscription"`
}

type offParams struct {
	Viewer       string `json:"viewer"`
	Subscription string `json:"subscription"`
}

// On subscribes fn to the named event. Events arrive on the bridge
// reader goroutine; handlers must hand work off instead of blocking.
func (v *viewerProxy) On(ctx context.Context, event string, fn func(streetsmart.Event)) (streetsmart.Subscription, error) {
	raw, err := v.conn.call(ctx, methodOn, onParams{Viewer: v.id, Event: event})
	if err != nil {
		return streetsmart.Subscription{}, err
	}

	var res onResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return streetsmart.Subscription{}, fmt.Errorf("decode on result: %w", err)
	}

	v.conn.addHandler(res.Subscription, fn)
	return streetsmart.Subscription{ID: res.Subscription, Event: event}, nil
}

// Off removes the subscription. The local handler is dropped before the
// page round-trip so no event fires after Off returns.
func (v *viewerProxy) Off(ctx context.Context, sub streetsmart.Subscription) error {
	v.conn.removeHandler(sub.ID)
	_, err := v.conn.call(ctx, methodOff, offParams{Viewer: v.id, Subscription: sub.ID})
	return err
}
