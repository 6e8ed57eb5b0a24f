package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/meridian-labs/panobridge/internal/domain"
	"github.com/meridian-labs/panobridge/internal/ports"
	"github.com/meridian-labs/panobridge/pkg/streetsmart"
)

const waitTimeout = 2 * time.Second

func testControllerConfig() ControllerConfig {
	return ControllerConfig{
		APIKey:          "key-1",
		SRS:             streetsmart.DefaultSRS,
		Locale:          streetsmart.DefaultLocale,
		MapPointVisible: true,
	}
}

func testCatalog() mapCatalog {
	return mapCatalog{domain.MsgInvalidCredentials: "Invalid credentials"}
}

func TestController_StartStop(t *testing.T) {
	rt := newFakeRuntime()
	c := NewController(testControllerConfig(), rt, newMemStore(), testCatalog(), mockLogger{}, nil)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	if err := c.Start(context.Background()); !errors.Is(err, domain.ErrAlreadyRunning) {
		t.Errorf("second Start() = %v, want ErrAlreadyRunning", err)
	}

	if err := c.Stop(); err != nil {
		t.Fatalf("Stop() = %v", err)
	}
	if err := c.Stop(); !errors.Is(err, domain.ErrNotRunning) {
		t.Errorf("second Stop() = %v, want ErrNotRunning", err)
	}
}

func TestController_StartRuntimeError(t *testing.T) {
	rt := newFakeRuntime()
	rt.startErr = errors.New("no display")
	c := NewController(testControllerConfig(), rt, newMemStore(), testCatalog(), mockLogger{}, nil)

	if err := c.Start(context.Background()); err == nil {
		t.Fatal("Start() = nil, want runtime error")
	}
}

func TestController_FullFlow(t *testing.T) {
	rt := newFakeRuntime()
	emitter := &recordingEmitter{}
	viewer := newFakeViewer()
	api := &fakeAPI{viewers: []streetsmart.PanoramaViewer{viewer}}

	c := NewController(testControllerConfig(), rt, newMemStore(), testCatalog(), mockLogger{}, emitter)
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	defer c.Stop()

	// Without credentials only the prompt is presented.
	waitUntil(t, waitTimeout, func() bool {
		return c.View().Kind == domain.ViewCredentials
	})

	creds := domain.Credentials{Username: "alice", Password: "secret"}
	if err := c.SetCredentials(context.Background(), creds); err != nil {
		t.Fatalf("SetCredentials() = %v", err)
	}

	// Credentials alone leave the view waiting for the API handle.
	waitUntil(t, waitTimeout, func() bool {
		return c.View().Kind == domain.ViewLoadingAPI
	})

	rt.deliver(ports.Ready{API: api, TargetElement: "#panobridge-viewer"})

	waitUntil(t, waitTimeout, func() bool {
		snap := c.Snapshot()
		return snap.State == StateInitialized && snap.View.Kind == domain.ViewNoImage
	})

	opts := api.lastInit(t)
	if opts.TargetElement != "#panobridge-viewer" || opts.Username != "alice" || opts.APIKey != "key-1" {
		t.Errorf("init options = %+v, want resolved target and credentials", opts)
	}

	loc := domain.Location{
		LatLng:     domain.LatLng{Lat: 52.1, Lng: 5.3},
		Properties: map[string]any{"imageId": "img-1"},
	}
	if err := c.SetLocation(loc); err != nil {
		t.Fatalf("SetLocation() = %v", err)
	}

	waitUntil(t, waitTimeout, func() bool {
		snap := c.Snapshot()
		return snap.SessionActive && snap.View.Kind == domain.ViewPanorama
	})

	// A view change inside the viewer reaches the host as a POV update.
	viewer.emit(streetsmart.EventViewChange, `{"yaw": 45, "pitch": -10}`)
	waitUntil(t, waitTimeout, func() bool {
		povs := emitter.povList()
		return len(povs) == 1 && povs[0].Heading == 45 && povs[0].Pitch == -10
	})

	// A recording click reaches the host as a location and moves the
	// session to the clicked image.
	viewer.emit(streetsmart.EventRecordingClick, `{"recording": {"xyz": [10, 20, 5], "id": "img-2"}}`)
	waitUntil(t, waitTimeout, func() bool {
		locs := emitter.locationList()
		return len(locs) == 1 && locs[0].ImageID() == "img-2"
	})
	waitUntil(t, waitTimeout, func() bool {
		opens := api.opens()
		return len(opens) == 2 && opens[1] == "img-2"
	})
}

func TestController_CredentialsLoadedFromStore(t *testing.T) {
	rt := newFakeRuntime()
	store := newMemStore()
	store.entries[domain.CredentialRef] = domain.Credentials{Username: "alice", Password: "secret"}
	api := &fakeAPI{viewers: []streetsmart.PanoramaViewer{newFakeViewer()}}

	c := NewController(testControllerConfig(), rt, store, testCatalog(), mockLogger{}, nil)
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	defer c.Stop()

	rt.deliver(ports.Ready{API: api, TargetElement: "#panobridge-viewer"})

	// Stored credentials initialize without a SetCredentials call.
	waitUntil(t, waitTimeout, func() bool {
		return c.Snapshot().State == StateInitialized
	})
	if got := api.initCount(); got != 1 {
		t.Errorf("init calls = %d, want 1", got)
	}
}

func TestController_InitFailure_PresentsDerivedMessage(t *testing.T) {
	rt := newFakeRuntime()
	emitter := &recordingEmitter{}
	store := newMemStore()
	store.entries[domain.CredentialRef] = domain.Credentials{Username: "alice", Password: "wrong"}
	api := &fakeAPI{initErr: errors.New("init::Loading user info failed with status code 401")}

	c := NewController(testControllerConfig(), rt, store, testCatalog(), mockLogger{}, emitter)
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	defer c.Stop()

	rt.deliver(ports.Ready{API: api, TargetElement: "#panobridge-viewer"})

	waitUntil(t, waitTimeout, func() bool {
		view := c.View()
		return view.Kind == domain.ViewError && view.ErrorMessage == "Invalid credentials"
	})

	if view := c.View(); view.CanReload {
		t.Error("CanReload = true for a failure during Initializing")
	}
	waitUntil(t, waitTimeout, func() bool {
		msgs := emitter.errorMessages()
		return len(msgs) == 1 && msgs[0] == "Invalid credentials"
	})
}

func TestController_OpenFailure_ReloadRecovers(t *testing.T) {
	rt := newFakeRuntime()
	store := newMemStore()
	store.entries[domain.CredentialRef] = domain.Credentials{Username: "alice", Password: "secret"}
	viewer := newFakeViewer()
	api := &fakeAPI{
		viewers: []streetsmart.PanoramaViewer{viewer},
		openErr: errors.New("image not found"),
	}

	cfg := testControllerConfig()
	cfg.Location = &domain.Location{Properties: map[string]any{"imageId": "img-404"}}

	c := NewController(cfg, rt, store, testCatalog(), mockLogger{}, nil)
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	defer c.Stop()

	rt.deliver(ports.Ready{API: api, TargetElement: "#panobridge-viewer"})

	// The failed open surfaces as a recoverable error: the machine had
	// been initialized when it failed.
	waitUntil(t, waitTimeout, func() bool {
		view := c.View()
		return view.Kind == domain.ViewError && view.CanReload
	})

	api.mu.Lock()
	api.openErr = nil
	api.mu.Unlock()

	if err := c.Reload(); err != nil {
		t.Fatalf("Reload() = %v", err)
	}

	waitUntil(t, waitTimeout, func() bool {
		snap := c.Snapshot()
		return snap.Epoch == 1 && snap.State == StateInitialized && snap.SessionActive
	})

	if got := len(api.destroys()); got != 1 {
		t.Errorf("destroy calls = %d, want exactly 1 for the reload", got)
	}
	if got := api.initCount(); got != 2 {
		t.Errorf("init calls = %d, want 2", got)
	}
}

func TestController_ReadyRefire_ReinitializesOnNewHandle(t *testing.T) {
	rt := newFakeRuntime()
	store := newMemStore()
	store.entries[domain.CredentialRef] = domain.Credentials{Username: "alice", Password: "secret"}
	oldAPI := &fakeAPI{viewers: []streetsmart.PanoramaViewer{newFakeViewer()}}
	newAPI := &fakeAPI{viewers: []streetsmart.PanoramaViewer{newFakeViewer()}}

	c := NewController(testControllerConfig(), rt, store, testCatalog(), mockLogger{}, nil)
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	defer c.Stop()

	rt.deliver(ports.Ready{API: oldAPI, TargetElement: "#panobridge-viewer"})
	waitUntil(t, waitTimeout, func() bool {
		return c.Snapshot().State == StateInitialized
	})

	// A remount delivers a fresh handle; the old one is destroyed and the
	// new one initialized.
	rt.deliver(ports.Ready{API: newAPI, TargetElement: "#panobridge-viewer"})
	waitUntil(t, waitTimeout, func() bool {
		return newAPI.initCount() == 1
	})
	waitUntil(t, waitTimeout, func() bool {
		return c.Snapshot().State == StateInitialized
	})

	if got := len(oldAPI.destroys()); got != 1 {
		t.Errorf("old handle destroys = %d, want 1", got)
	}
}
