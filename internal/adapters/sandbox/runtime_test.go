package sandbox

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-labs/panobridge/internal/domain"
	"github.com/meridian-labs/panobridge/internal/ports"
	"github.com/meridian-labs/panobridge/pkg/streetsmart"
)

const testTimeout = 2 * time.Second

// hostPage plays the bootstrap page's side of the bridge over a real
// WebSocket connection.
type hostPage struct {
	t  *testing.T
	ws *websocket.Conn
}

func startRuntime(t *testing.T) *Runtime {
	t.Helper()
	rt := NewRuntime(Config{})
	require.NoError(t, rt.Start(context.Background()))
	t.Cleanup(func() { _ = rt.Close() })
	return rt
}

func dialBridge(t *testing.T, rt *Runtime) *hostPage {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial("ws://"+rt.Addr()+"/bridge", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return &hostPage{t: t, ws: ws}
}

func (p *hostPage) hello() {
	p.send(frame{Type: frameHello, API: helloAPI, Target: DefaultTargetElement})
}

func (p *hostPage) send(f frame) {
	p.t.Helper()
	require.NoError(p.t, p.ws.WriteJSON(f))
}

func (p *hostPage) read() frame {
	p.t.Helper()
	require.NoError(p.t, p.ws.SetReadDeadline(time.Now().Add(testTimeout)))
	var f frame
	require.NoError(p.t, p.ws.ReadJSON(&f))
	return f
}

// goodbye performs a graceful close handshake from the page side.
func (p *hostPage) goodbye() {
	deadline := time.Now().Add(time.Second)
	_ = p.ws.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
		deadline,
	)
	_ = p.ws.Close()
}

func waitReady(t *testing.T, rt *Runtime) ports.Ready {
	t.Helper()
	select {
	case ready, ok := <-rt.Ready():
		require.True(t, ok, "ready channel closed early")
		return ready
	case <-time.After(testTimeout):
		t.Fatal("timed out waiting for ready")
		return ports.Ready{}
	}
}

// TestRuntime_ServesBootstrapPage verifies the embedded page carries the
// mount element, the bridge script and the configured vendor script URL.
func TestRuntime_ServesBootstrapPage(t *testing.T) {
	rt := NewRuntime(Config{ScriptURL: "https://vendor.example/api.js"})
	require.NoError(t, rt.Start(context.Background()))
	t.Cleanup(func() { _ = rt.Close() })

	resp, err := http.Get(rt.URL())
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	page := string(body)
	assert.Contains(t, page, `id="panobridge-viewer"`)
	assert.Contains(t, page, "https://vendor.example/api.js")
	assert.Contains(t, page, "/bridge")

	// Anything but the page itself is not served.
	other, err := http.Get(rt.URL() + "missing")
	require.NoError(t, err)
	other.Body.Close()
	assert.Equal(t, http.StatusNotFound, other.StatusCode)
}

func TestRuntime_StartTwice(t *testing.T) {
	rt := startRuntime(t)
	assert.ErrorIs(t, rt.Start(context.Background()), domain.ErrAlreadyRunning)
}

func TestRuntime_RemountBeforeStart(t *testing.T) {
	rt := NewRuntime(Config{})
	assert.ErrorIs(t, rt.Remount(), domain.ErrNotRunning)
}

// TestRuntime_ReadyOnHello verifies a hello frame resolves to a usable
// handle bound to the declared mount element.
func TestRuntime_ReadyOnHello(t *testing.T) {
	rt := startRuntime(t)
	page := dialBridge(t, rt)
	page.hello()

	ready := waitReady(t, rt)
	assert.Equal(t, DefaultTargetElement, ready.TargetElement)
	assert.NotNil(t, ready.API)
}

// TestRuntime_RejectsNonHelloFrame verifies a connection that does not
// identify itself is dropped without producing a ready signal.
func TestRuntime_RejectsNonHelloFrame(t *testing.T) {
	rt := startRuntime(t)
	page := dialBridge(t, rt)
	page.send(frame{Type: frameResult, ID: "bogus"})

	select {
	case <-rt.Ready():
		t.Fatal("unexpected ready for unidentified connection")
	case <-time.After(200 * time.Millisecond):
	}

	require.NoError(t, page.ws.SetReadDeadline(time.Now().Add(testTimeout)))
	var f frame
	assert.Error(t, page.ws.ReadJSON(&f), "connection should be closed")
}

// TestRuntime_InitRoundTrip drives a full init call through the bridge
// and checks the wire payload the page receives.
func TestRuntime_InitRoundTrip(t *testing.T) {
	rt := startRuntime(t)
	page := dialBridge(t, rt)
	page.hello()
	ready := waitReady(t, rt)

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- ready.API.Init(ctx, streetsmart.InitOptions{
			TargetElement: ready.TargetElement,
			Username:      "alice",
			Password:      "secret",
			APIKey:        "key-1",
		})
	}()

	call := page.read()
	assert.Equal(t, frameCall, call.Type)
	assert.Equal(t, methodInit, call.Method)
	assert.NotEmpty(t, call.ID)

	var params map[string]any
	require.NoError(t, json.Unmarshal(call.Params, &params))
	assert.Equal(t, DefaultTargetElement, params["targetElement"])
	assert.Equal(t, "alice", params["username"])
	assert.Equal(t, "secret", params["password"])
	assert.Equal(t, "key-1", params["apiKey"])
	assert.Equal(t, false, params["loginOauth"])
	assert.Equal(t, streetsmart.DefaultSRS, params["srs"])
	assert.Equal(t, streetsmart.DefaultLocale, params["locale"])

	page.send(frame{Type: frameResult, ID: call.ID, Result: json.RawMessage(`{}`)})

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(testTimeout):
		t.Fatal("init did not complete")
	}
}

// TestRuntime_OpenSubscribeEventFlow drives open, subscribe, an event
// delivery and unsubscribe through the bridge.
func TestRuntime_OpenSubscribeEventFlow(t *testing.T) {
	rt := startRuntime(t)
	page := dialBridge(t, rt)
	page.hello()
	ready := waitReady(t, rt)

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	type openOut struct {
		viewers []streetsmart.PanoramaViewer
		err     error
	}
	openCh := make(chan openOut, 1)
	go func() {
		viewers, err := ready.API.Open(ctx, "img-1", streetsmart.DefaultViewerOptions(""))
		openCh <- openOut{viewers: viewers, err: err}
	}()

	call := page.read()
	assert.Equal(t, methodOpen, call.Method)
	var open openParams
	require.NoError(t, json.Unmarshal(call.Params, &open))
	assert.Equal(t, "img-1", open.ImageID)
	assert.Equal(t, []string{streetsmart.ViewerTypePanorama}, open.Options.ViewerType)

	page.send(frame{Type: frameResult, ID: call.ID, Result: json.RawMessage(`{"viewers":["viewer-1"]}`)})

	var out openOut
	select {
	case out = <-openCh:
	case <-time.After(testTimeout):
		t.Fatal("open did not complete")
	}
	require.NoError(t, out.err)
	require.Len(t, out.viewers, 1)

	// Subscribe and receive one event.
	events := make(chan streetsmart.Event, 1)
	type subOut struct {
		sub streetsmart.Subscription
		err error
	}
	subCh := make(chan subOut, 1)
	go func() {
		sub, err := out.viewers[0].On(ctx, streetsmart.EventViewChange, func(ev streetsmart.Event) {
			events <- ev
		})
		subCh <- subOut{sub: sub, err: err}
	}()

	onCall := page.read()
	assert.Equal(t, methodOn, onCall.Method)
	var on onParams
	require.NoError(t, json.Unmarshal(onCall.Params, &on))
	assert.Equal(t, "viewer-1", on.Viewer)
	assert.Equal(t, streetsmart.EventViewChange, on.Event)

	page.send(frame{Type: frameResult, ID: onCall.ID, Result: json.RawMessage(`{"subscription":"sub-1"}`)})

	var sub subOut
	select {
	case sub = <-subCh:
	case <-time.After(testTimeout):
		t.Fatal("subscribe did not complete")
	}
	require.NoError(t, sub.err)
	assert.Equal(t, "sub-1", sub.sub.ID)
	assert.Equal(t, streetsmart.EventViewChange, sub.sub.Event)

	page.send(frame{
		Type:         frameEvent,
		Viewer:       "viewer-1",
		Subscription: "sub-1",
		Event:        streetsmart.EventViewChange,
		Detail:       json.RawMessage(`{"yaw": 45, "pitch": -10}`),
	})

	select {
	case ev := <-events:
		assert.Equal(t, streetsmart.EventViewChange, ev.Name)
		vc, err := ev.ViewChange()
		require.NoError(t, err)
		assert.Equal(t, 45.0, vc.Yaw)
		assert.Equal(t, -10.0, vc.Pitch)
	case <-time.After(testTimeout):
		t.Fatal("event not delivered")
	}

	// Unsubscribe drops the handler before the page round-trip.
	offErrCh := make(chan error, 1)
	go func() {
		offErrCh <- out.viewers[0].Off(ctx, sub.sub)
	}()

	offCall := page.read()
	assert.Equal(t, methodOff, offCall.Method)
	page.send(frame{Type: frameResult, ID: offCall.ID, Result: json.RawMessage(`{}`)})

	select {
	case err := <-offErrCh:
		assert.NoError(t, err)
	case <-time.After(testTimeout):
		t.Fatal("off did not complete")
	}

	page.send(frame{
		Type:         frameEvent,
		Viewer:       "viewer-1",
		Subscription: "sub-1",
		Event:        streetsmart.EventViewChange,
		Detail:       json.RawMessage(`{"yaw": 1, "pitch": 2}`),
	})
	select {
	case <-events:
		t.Fatal("event delivered after Off")
	case <-time.After(100 * time.Millisecond):
	}
}

// TestRuntime_CallErrorPreservesMessage verifies page-side rejection
// reasons cross the bridge verbatim.
func TestRuntime_CallErrorPreservesMessage(t *testing.T) {
	rt := startRuntime(t)
	page := dialBridge(t, rt)
	page.hello()
	ready := waitReady(t, rt)

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- ready.API.Init(ctx, streetsmart.InitOptions{Username: "alice", Password: "bad", APIKey: "key-1"})
	}()

	call := page.read()
	page.send(frame{Type: frameResult, ID: call.ID, Error: "init::Loading user info failed with status code 401"})

	select {
	case err := <-errCh:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status code 401")
		assert.True(t, streetsmart.IsUnauthorized(err))
	case <-time.After(testTimeout):
		t.Fatal("init did not complete")
	}
}

// TestRuntime_DisconnectFailsPendingCall verifies an in-flight call
// resolves with the close error when the page goes away.
func TestRuntime_DisconnectFailsPendingCall(t *testing.T) {
	rt := startRuntime(t)
	page := dialBridge(t, rt)
	page.hello()
	ready := waitReady(t, rt)

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- ready.API.Destroy(ctx, streetsmart.DestroyOptions{TargetElement: ready.TargetElement})
	}()

	// Make sure the call is on the wire before dropping the connection.
	call := page.read()
	assert.Equal(t, methodDestroy, call.Method)
	page.goodbye()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, domain.ErrRuntimeClosed)
	case <-time.After(testTimeout):
		t.Fatal("pending call not failed on disconnect")
	}

	// Later calls on the dead handle fail immediately.
	err := ready.API.Destroy(ctx, streetsmart.DestroyOptions{TargetElement: ready.TargetElement})
	assert.ErrorIs(t, err, domain.ErrRuntimeClosed)
}

// TestRuntime_ReconnectDeliversFreshHandle verifies latest-wins handle
// replacement across page reconnects.
func TestRuntime_ReconnectDeliversFreshHandle(t *testing.T) {
	rt := startRuntime(t)

	first := dialBridge(t, rt)
	first.hello()
	ready1 := waitReady(t, rt)

	second := dialBridge(t, rt)
	second.hello()
	ready2 := waitReady(t, rt)

	assert.NotSame(t, ready1.API, ready2.API)

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	// The replaced handle is dead.
	err := ready1.API.Destroy(ctx, streetsmart.DestroyOptions{TargetElement: ready1.TargetElement})
	require.Error(t, err)

	// The fresh handle answers over the new connection.
	errCh := make(chan error, 1)
	go func() {
		errCh <- ready2.API.Destroy(ctx, streetsmart.DestroyOptions{TargetElement: ready2.TargetElement})
	}()
	call := second.read()
	assert.Equal(t, methodDestroy, call.Method)
	second.send(frame{Type: frameResult, ID: call.ID, Result: json.RawMessage(`{}`)})

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(testTimeout):
		t.Fatal("destroy did not complete")
	}
}

// TestRuntime_CloseClosesReadyChannel verifies consumers observe
// shutdown as channel closure.
func TestRuntime_CloseClosesReadyChannel(t *testing.T) {
	rt := startRuntime(t)
	require.NoError(t, rt.Close())

	select {
	case _, ok := <-rt.Ready():
		assert.False(t, ok)
	case <-time.After(testTimeout):
		t.Fatal("ready channel not closed")
	}

	// Close is idempotent.
	assert.NoError(t, rt.Close())
}

// TestStderrWriter verifies child stderr is logged line by line.
func TestStderrWriter(t *testing.T) {
	logged := &capturingLogger{}
	w := &stderrWriter{logger: logged}

	_, err := w.Write([]byte("first li"))
	require.NoError(t, err)
	assert.Empty(t, logged.lines())

	_, err = w.Write([]byte("ne\r\nsecond line\npartial"))
	require.NoError(t, err)
	assert.Equal(t, []string{"first line", "second line"}, logged.lines())

	_, err = w.Write([]byte("\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"first line", "second line", "partial"}, logged.lines())
}

// capturingLogger records debug lines for assertions.
type capturingLogger struct {
	captured []string
}

func (l *capturingLogger) Debug(msg string, fields ...ports.Field) {
	for _, f := range fields {
		if f.Key == "line" {
			if s, ok := f.Value.(string); ok {
				l.captured = append(l.captured, s)
			}
		}
	}
}

func (l *capturingLogger) Info(msg string, fields ...ports.Field)  {}
func (l *capturingLogger) Warn(msg string, fields ...ports.Field)  {}
func (l *capturingLogger) Error(msg string, fields ...ports.Field) {}

func (l *capturingLogger) lines() []string {
	return l.captured
}
