package app

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/meridian-labs/panobridge/internal/domain"
	"github.com/meridian-labs/panobridge/internal/ports"
	"github.com/meridian-labs/panobridge/pkg/streetsmart"
)

// mockLogger implements ports.Logger for testing.
type mockLogger struct{}

func (mockLogger) Debug(msg string, fields ...ports.Field) {}
func (mockLogger) Info(msg string, fields ...ports.Field)  {}
func (mockLogger) Warn(msg string, fields ...ports.Field)  {}
func (mockLogger) Error(msg string, fields ...ports.Field) {}

// taskQueue stands in for the controller loop: posted tasks are executed
// only when the test drains them, keeping completions deterministic.
type taskQueue struct {
	ch chan func()
}

func newTaskQueue() *taskQueue {
	return &taskQueue{ch: make(chan func(), 32)}
}

func (q *taskQueue) post(fn func()) bool {
	q.ch <- fn
	return true
}

// runNext executes the next posted task, failing the test if none arrives.
func (q *taskQueue) runNext(t *testing.T) {
	t.Helper()
	select {
	case fn := <-q.ch:
		fn()
	case <-time.After(time.Second):
		t.Fatal("no task posted within 1s")
	}
}

// empty reports whether no task is pending.
func (q *taskQueue) empty() bool {
	return len(q.ch) == 0
}

// fakeAPI implements streetsmart.API with scripted results.
type fakeAPI struct {
	mu sync.Mutex

	initCalls []streetsmart.InitOptions
	initErr   error

	openCalls []string
	openErr   error
	viewers   []streetsmart.PanoramaViewer

	destroyCalls []streetsmart.DestroyOptions
	destroyErr   error
}

func (f *fakeAPI) Init(ctx context.Context, opts streetsmart.InitOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.initCalls = append(f.initCalls, opts)
	return f.initErr
}

func (f *fakeAPI) Open(ctx context.Context, imageID string, opts streetsmart.ViewerOptions) ([]streetsmart.PanoramaViewer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.openCalls = append(f.openCalls, imageID)
	if f.openErr != nil {
		return nil, f.openErr
	}
	return f.viewers, nil
}

func (f *fakeAPI) Destroy(ctx context.Context, opts streetsmart.DestroyOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.destroyCalls = append(f.destroyCalls, opts)
	return f.destroyErr
}

func (f *fakeAPI) initCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.initCalls)
}

func (f *fakeAPI) lastInit(t *testing.T) streetsmart.InitOptions {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.initCalls) == 0 {
		t.Fatal("no init call recorded")
	}
	return f.initCalls[len(f.initCalls)-1]
}

func (f *fakeAPI) destroys() []streetsmart.DestroyOptions {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]streetsmart.DestroyOptions{}, f.destroyCalls...)
}

func (f *fakeAPI) opens() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.openCalls...)
}

// fakeViewer implements streetsmart.PanoramaViewer and lets tests emit
// viewer events through the registered handlers.
type fakeViewer struct {
	mu       sync.Mutex
	nextID   int
	handlers map[string]func(streetsmart.Event)
	onErrFor map[string]error
	offErr   error
	offCalls []streetsmart.Subscription
}

func newFakeViewer() *fakeViewer {
	return &fakeViewer{
		handlers: make(map[string]func(streetsmart.Event)),
		onErrFor: make(map[string]error),
	}
}

func (v *fakeViewer) On(ctx context.Context, event string, fn func(streetsmart.Event)) (streetsmart.Subscription, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.onErrFor[event]; err != nil {
		return streetsmart.Subscription{}, err
	}
	v.nextID++
	v.handlers[event] = fn
	return streetsmart.Subscription{ID: fmt.Sprintf("sub-%d", v.nextID), Event: event}, nil
}

func (v *fakeViewer) Off(ctx context.Context, sub streetsmart.Subscription) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.offCalls = append(v.offCalls, sub)
	delete(v.handlers, sub.Event)
	return v.offErr
}

// emit invokes the handler registered for the named event, if any.
func (v *fakeViewer) emit(name, detail string) {
	v.mu.Lock()
	fn := v.handlers[name]
	v.mu.Unlock()
	if fn != nil {
		fn(streetsmart.Event{Name: name, Detail: []byte(detail)})
	}
}

func (v *fakeViewer) offs() []streetsmart.Subscription {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]streetsmart.Subscription{}, v.offCalls...)
}

func (v *fakeViewer) handlerCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.handlers)
}

// subCount returns how many registrations On has accepted.
func (v *fakeViewer) subCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.nextID
}

// recordingLifecycleEmitter tracks lifecycle changes.
type recordingLifecycleEmitter struct {
	mu     sync.Mutex
	events []lifecycleChange
}

type lifecycleChange struct {
	previous LifecycleState
	current  LifecycleState
	reason   string
}

func (m *recordingLifecycleEmitter) OnLifecycleChange(previous, current LifecycleState, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, lifecycleChange{previous, current, reason})
}

func (m *recordingLifecycleEmitter) changes() []lifecycleChange {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]lifecycleChange{}, m.events...)
}

// recordingSink tracks session outputs.
type recordingSink struct {
	mu        sync.Mutex
	povs      []domain.PointOfView
	locations []domain.Location
	errors    []error
}

func (m *recordingSink) OnPointOfView(pov domain.PointOfView) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.povs = append(m.povs, pov)
}

func (m *recordingSink) OnLocationChange(loc domain.Location) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations = append(m.locations, loc)
}

func (m *recordingSink) OnSessionError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, err)
}

func (m *recordingSink) povList() []domain.PointOfView {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.PointOfView{}, m.povs...)
}

func (m *recordingSink) locationList() []domain.Location {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Location{}, m.locations...)
}

func (m *recordingSink) errorList() []error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]error{}, m.errors...)
}

// mapCatalog implements ports.MessageCatalog over a map, falling back to
// the id text.
type mapCatalog map[domain.MessageID]string

func (c mapCatalog) Resolve(id domain.MessageID) string {
	if s, ok := c[id]; ok {
		return s
	}
	return string(id)
}

// fakeRuntime implements ports.ViewerRuntime; tests deliver ready signals
// by hand.
type fakeRuntime struct {
	mu       sync.Mutex
	ready    chan ports.Ready
	startErr error
	started  bool
	closed   bool
	remounts int
}

func newFakeRuntime() *fakeRuntime {
	return &fakeRuntime{ready: make(chan ports.Ready, 4)}
}

func (r *fakeRuntime) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.startErr != nil {
		return r.startErr
	}
	r.started = true
	return nil
}

func (r *fakeRuntime) Ready() <-chan ports.Ready {
	return r.ready
}

func (r *fakeRuntime) Remount() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remounts++
	return nil
}

func (r *fakeRuntime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.closed {
		r.closed = true
		close(r.ready)
	}
	return nil
}

func (r *fakeRuntime) deliver(ready ports.Ready) {
	r.ready <- ready
}

// memStore implements ports.CredentialStore in memory.
type memStore struct {
	mu      sync.Mutex
	entries map[string]domain.Credentials
	getErr  error
	setErr  error
}

func newMemStore() *memStore {
	return &memStore{entries: make(map[string]domain.Credentials)}
}

func (s *memStore) Get(ctx context.Context, ref string) (domain.Credentials, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return domain.Credentials{}, false, s.getErr
	}
	c, ok := s.entries[ref]
	return c, ok, nil
}

func (s *memStore) Set(ctx context.Context, ref string, creds domain.Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	s.entries[ref] = creds
	return nil
}

// recordingEmitter implements ControllerEmitter and records everything.
type recordingEmitter struct {
	mu        sync.Mutex
	changes   []lifecycleChange
	povs      []domain.PointOfView
	locations []domain.Location
	views     []domain.ViewState
	errMsgs   []string
}

func (m *recordingEmitter) OnLifecycleChange(previous, current LifecycleState, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.changes = append(m.changes, lifecycleChange{previous, current, reason})
}

func (m *recordingEmitter) OnPointOfView(pov domain.PointOfView) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.povs = append(m.povs, pov)
}

func (m *recordingEmitter) OnLocationChange(loc domain.Location) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations = append(m.locations, loc)
}

func (m *recordingEmitter) OnViewChange(view domain.ViewState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.views = append(m.views, view)
}

func (m *recordingEmitter) OnViewerError(err error, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errMsgs = append(m.errMsgs, message)
}

func (m *recordingEmitter) povList() []domain.PointOfView {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.PointOfView{}, m.povs...)
}

func (m *recordingEmitter) locationList() []domain.Location {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Location{}, m.locations...)
}

func (m *recordingEmitter) errorMessages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.errMsgs...)
}

// waitUntil polls cond until it holds or the timeout expires.
func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}
