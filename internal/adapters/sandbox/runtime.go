package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/meridian-labs/panobridge/internal/domain"
	"github.com/meridian-labs/panobridge/internal/ports"
	pblog "github.com/meridian-labs/panobridge/pkg/log"
	"github.com/meridian-labs/panobridge/pkg/streetsmart"
)

// Default runtime configuration values.
const (
	DefaultListenAddr = "127.0.0.1:0"

	// helloTimeout bounds how long a fresh bridge connection may take to
	// identify itself.
	helloTimeout = 10 * time.Second
)

// Config configures the sandbox runtime.
type Config struct {
	// Command is the viewer host command line. The bootstrap page URL is
	// appended as the final argument. When empty no child is spawned and
	// the runtime waits for an external host to open the page.
	Command []string

	// ListenAddr is the loopback address the bootstrap server binds.
	// Defaults to an ephemeral port on 127.0.0.1.
	ListenAddr string

	// ScriptURL is the vendor API script the bootstrap page loads.
	ScriptURL string

	Logger ports.Logger
}

// Runtime serves the bootstrap page, supervises the viewer host child
// process and turns each bridge connection into a ready signal. It
// implements ports.ViewerRuntime.
type Runtime struct {
	cfg    Config
	logger ports.Logger

	ready       chan ports.Ready
	readyMu     sync.Mutex
	readyClosed bool

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
	conn     *bridgeConn
	child    *exec.Cmd
	started  bool
	closing  bool

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewRuntime creates a sandbox runtime from cfg, filling in defaults.
func NewRuntime(cfg Config) *Runtime {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = DefaultListenAddr
	}
	if cfg.ScriptURL == "" {
		cfg.ScriptURL = streetsmart.DefaultScriptURL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = pblog.NewNoopLogger()
	}

	return &Runtime{
		cfg:    cfg,
		logger: logger,
		ready:  make(chan ports.Ready),
		done:   make(chan struct{}),
	}
}

// Start binds the bootstrap server and, when a command is configured,
// launches the supervised viewer host. It returns once serving; the
// first ready signal arrives asynchronously when the page connects.
func (r *Runtime) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return domain.ErrAlreadyRunning
	}
	r.started = true
	r.mu.Unlock()

	page, err := renderBootstrap(r.cfg.ScriptURL)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", r.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", r.cfg.ListenAddr, err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path != "/" {
			http.NotFound(w, req)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(page)
	})
	mux.HandleFunc("/bridge", r.handleBridge)
	srv := &http.Server{Handler: mux}

	r.mu.Lock()
	r.listener = ln
	r.server = srv
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.logger.Warn("bootstrap server stopped", ports.Err(err))
		}
	}()

	r.logger.Info("sandbox runtime listening", ports.String("url", r.URL()))

	if len(r.cfg.Command) > 0 {
		r.wg.Add(1)
		go r.supervise(ctx)
	} else {
		r.logger.Info("no viewer host command configured; waiting for external bridge connection")
	}

	return nil
}

// Ready returns the channel on which a fresh API handle is delivered
// for every bridge connection. The channel is closed by Close.
func (r *Runtime) Ready() <-chan ports.Ready {
	return r.ready
}

// URL returns the bootstrap page address once Start bound the listener.
func (r *Runtime) URL() string {
	addr := r.Addr()
	if addr == "" {
		return ""
	}
	return "http://" + addr + "/"
}

// Addr returns the bound listen address, empty before Start.
func (r *Runtime) Addr() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listener == nil {
		return ""
	}
	return r.listener.Addr().String()
}

// Remount forces a fresh mount: the live bridge connection is dropped
// and the child killed so the supervisor relaunches it. The page's next
// hello delivers a new handle. With an external host only the connection
// drop applies; the page reconnects on its own.
func (r *Runtime) Remount() error {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return domain.ErrNotRunning
	}
	conn := r.conn
	child := r.child
	r.mu.Unlock()

	if conn != nil {
		conn.close()
	}
	if child != nil && child.Process != nil {
		if err := child.Process.Kill(); err != nil {
			return fmt.Errorf("kill viewer host: %w", err)
		}
	}
	return nil
}

// Close stops the supervisor, kills the child, drops the bridge and
// closes the ready channel. Safe to call more than once.
func (r *Runtime) Close() error {
	r.closeOnce.Do(func() {
		close(r.done)

		r.mu.Lock()
		r.closing = true
		conn := r.conn
		child := r.child
		srv := r.server
		r.mu.Unlock()

		if conn != nil {
			conn.close()
		}
		if child != nil && child.Process != nil {
			_ = child.Process.Kill()
		}
		if srv != nil {
			_ = srv.Close()
		}
		r.wg.Wait()

		r.readyMu.Lock()
		r.readyClosed = true
		close(r.ready)
		r.readyMu.Unlock()
	})
	return nil
}

// handleBridge runs one bridge connection: hello, ready delivery, then
// the read loop until the connection dies.
func (r *Runtime) handleBridge(w http.ResponseWriter, req *http.Request) {
	ws, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Warn("bridge upgrade failed", ports.Err(err))
		return
	}

	conn := newBridgeConn(ws, r.logger)

	// The first frame identifies the page and its mount element.
	_ = ws.SetReadDeadline(time.Now().Add(helloTimeout))
	var hello frame
	if err := ws.ReadJSON(&hello); err != nil {
		r.logger.Warn("bridge hello not received", ports.Err(err))
		conn.close()
		return
	}
	_ = ws.SetReadDeadline(time.Time{})

	ready, err := resolveReady(hello, conn)
	if err != nil {
		r.logger.Warn("bridge rejected", ports.Err(err))
		conn.close()
		return
	}

	// Latest connection wins: a reconnect means the host page reloaded,
	// so any previous bridge is dead weight.
	r.mu.Lock()
	if r.closing {
		r.mu.Unlock()
		conn.close()
		return
	}
	prev := r.conn
	r.conn = conn
	r.mu.Unlock()
	if prev != nil {
		prev.close()
	}

	r.logger.Info("viewer bridge connected",
		ports.String("target", ready.TargetElement),
		ports.String("remote", req.RemoteAddr),
	)

	r.deliver(ready)
	conn.readLoop()

	r.mu.Lock()
	if r.conn == conn {
		r.conn = nil
	}
	r.mu.Unlock()

	r.logger.Info("viewer bridge disconnected", ports.String("remote", req.RemoteAddr))
}

// deliver hands a ready signal to the consumer. It blocks until the
// signal is taken or the runtime closes; after close it is a no-op.
func (r *Runtime) deliver(ready ports.Ready) {
	r.readyMu.Lock()
	defer r.readyMu.Unlock()
	if r.readyClosed {
		return
	}
	select {
	case r.ready <- ready:
	case <-r.done:
	}
}

// supervise relaunches the viewer host until the runtime closes,
// backing off between exits. A host that stayed up long enough resets
// the backoff so a later crash starts the schedule over.
func (r *Runtime) supervise(ctx context.Context) {
	defer r.wg.Done()

	argv := append(append([]string{}, r.cfg.Command...), r.URL())
	b := newBackoff(backoffInitial, backoffMax)

	for {
		select {
		case <-r.done:
			return
		case <-ctx.Done():
			return
		default:
		}

		started := time.Now()
		err := r.runChild(ctx, argv)
		uptime := time.Since(started)

		select {
		case <-r.done:
			return
		case <-ctx.Done():
			return
		default:
		}

		if err != nil {
			r.logger.Warn("viewer host exited",
				ports.Err(err),
				ports.Duration("uptime", uptime),
				ports.Duration("backoff", b.Current()),
			)
		} else {
			r.logger.Warn("viewer host exited cleanly, relaunching",
				ports.Duration("uptime", uptime),
				ports.Duration("backoff", b.Current()),
			)
		}

		if uptime >= backoffResetUptime {
			b.Reset()
		}
		if !b.Sleep(r.done) {
			return
		}
	}
}

// runChild starts one viewer host process and waits for it to exit.
// Start and registration happen under the runtime lock so Close always
// sees, and kills, a child it raced with.
func (r *Runtime) runChild(ctx context.Context, argv []string) error {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stderr = &stderrWriter{logger: r.logger}

	r.mu.Lock()
	if r.closing {
		r.mu.Unlock()
		return nil
	}
	if err := cmd.Start(); err != nil {
		r.mu.Unlock()
		return fmt.Errorf("start %s: %w", argv[0], err)
	}
	r.child = cmd
	r.mu.Unlock()

	r.logger.Info("viewer host started",
		ports.Strs("command", argv),
		ports.Int("pid", cmd.Process.Pid),
	)

	err := cmd.Wait()

	r.mu.Lock()
	if r.child == cmd {
		r.child = nil
	}
	r.mu.Unlock()

	return err
}

// The page is served from this same loopback listener, so any origin
// the browser reports is acceptable.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// stderrWriter forwards viewer host stderr to the logger line by line.
type stderrWriter struct {
	logger ports.Logger
	buf    []byte
}

func (w *stderrWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		line := strings.TrimRight(string(w.buf[:i]), "\r")
		w.buf = w.buf[i+1:]
		if line != "" {
			w.logger.Debug("viewer host stderr", ports.String("line", line))
		}
	}
	// Cap the partial-line buffer so a host that never writes newlines
	// cannot grow it without bound.
	if len(w.buf) > 1<<16 {
		w.logger.Debug("viewer host stderr", ports.String("line", string(w.buf)))
		w.buf = w.buf[:0]
	}
	return len(p), nil
}
