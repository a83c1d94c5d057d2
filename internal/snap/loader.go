// Package snap integrates the external Snap checkout gateway: loading and
// readiness tracking of the vendor bootstrap script, and the one-shot pay
// attempts resolved by the vendor's asynchronous outcome notifications.
package snap

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	apperrors "github.com/ckckckcz/pulseprotect-sub000/internal/errors"
)

// payEntryMarker is the gateway entry point the bootstrap script must expose.
// A load only counts as successful once the marker is detected in the
// fetched script.
const payEntryMarker = "snap.pay"

// maxScriptBytes bounds how much of the vendor script is read while probing
// for the entry marker.
const maxScriptBytes = 1 << 20

// ErrGatewayUnavailable is returned once the load retry ceiling is exhausted.
// Checkout attempts must be refused with this error instead of hanging.
var ErrGatewayUnavailable = fmt.Errorf("payment system unavailable: %w", apperrors.ErrUnavailable)

// State is the gateway readiness lifecycle.
type State int

const (
	// StateIdle means no load has been attempted yet (lazy init).
	StateIdle State = iota
	// StateLoading means a load is in flight.
	StateLoading
	// StateReady means the gateway entry point is available.
	StateReady
	// StateFailed means the last load failed. Retryable until the ceiling.
	StateFailed
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Loader drives the gateway readiness state machine. It is shared
// process-wide: initialized lazily on first use and torn down only on
// process restart. Concurrent loads coalesce into one in-flight fetch.
type Loader struct {
	scriptURL  string
	clientKey  string
	timeout    time.Duration
	maxRetries int
	httpClient *http.Client
	logger     *slog.Logger

	mu       sync.Mutex
	state    State
	failures int
	handle   *Handle

	group singleflight.Group
}

// NewLoader creates a gateway loader. A nil httpClient defaults to
// http.DefaultClient; a non-positive timeout defaults to 10s.
func NewLoader(
	scriptURL, clientKey string,
	timeout time.Duration,
	maxRetries int,
	httpClient *http.Client,
	logger *slog.Logger,
) *Loader {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Loader{
		scriptURL:  scriptURL,
		clientKey:  clientKey,
		timeout:    timeout,
		maxRetries: maxRetries,
		httpClient: httpClient,
		logger:     logger,
	}
}

// State returns the current readiness state.
func (l *Loader) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Handle returns the gateway entry point, or nil when the gateway is not
// ready.
func (l *Loader) Handle() *Handle {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != StateReady {
		return nil
	}
	return l.handle
}

// Ensure returns a ready gateway handle, loading the bootstrap script if
// necessary. A failed gateway is retried up to the configured ceiling, after
// which Ensure keeps returning ErrGatewayUnavailable without further
// fetches. Concurrent callers share one in-flight load.
func (l *Loader) Ensure(ctx context.Context) (*Handle, error) {
	l.mu.Lock()
	switch {
	case l.state == StateReady && l.handle != nil:
		handle := l.handle
		l.mu.Unlock()
		return handle, nil
	case l.state == StateFailed && l.failures >= l.maxRetries:
		l.mu.Unlock()
		return nil, ErrGatewayUnavailable
	}
	l.mu.Unlock()

	result, err, _ := l.group.Do("load", func() (any, error) {
		return l.load()
	})
	if err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	return result.(*Handle), nil
}

// Reload performs one last-resort synchronous fetch with the bounded load
// timeout. Used when readiness reports Ready but the handle has been lost, a
// desync that should not normally happen.
func (l *Loader) Reload(ctx context.Context) (*Handle, error) {
	result, err, _ := l.group.Do("load", func() (any, error) {
		return l.load()
	})
	if err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	return result.(*Handle), nil
}

// load runs one full load attempt: Loading, then Ready or Failed.
// It uses its own bounded context so a single caller's cancellation cannot
// abort a load other callers are waiting on.
func (l *Loader) load() (*Handle, error) {
	l.mu.Lock()
	if l.state == StateReady && l.handle != nil {
		handle := l.handle
		l.mu.Unlock()
		return handle, nil
	}
	if l.state == StateFailed && l.failures >= l.maxRetries {
		l.mu.Unlock()
		return nil, ErrGatewayUnavailable
	}
	l.state = StateLoading
	l.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	err := l.fetchScript(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()

	if err != nil {
		l.failures++
		l.state = StateFailed
		if l.logger != nil {
			l.logger.Warn("gateway script load failed",
				slog.Int("failures", l.failures),
				slog.Int("max_retries", l.maxRetries),
				slog.Any("error", err),
			)
		}
		if l.failures >= l.maxRetries {
			return nil, ErrGatewayUnavailable
		}
		return nil, apperrors.Wrap(err, "gateway script load failed")
	}

	l.failures = 0
	l.state = StateReady
	if l.handle == nil {
		// The attempt registry survives reloads.
		l.handle = NewHandle(l.logger)
	}
	if l.logger != nil {
		l.logger.Info("gateway script loaded", slog.String("url", l.scriptURL))
	}
	return l.handle, nil
}

// fetchScript retrieves the vendor bootstrap script with the client key
// attached and verifies it exposes the pay entry point.
func (l *Loader) fetchScript(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.scriptURL, nil)
	if err != nil {
		return apperrors.Wrap(err, "failed to build script request")
	}
	req.Header.Set("X-Client-Key", l.clientKey)

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return apperrors.Wrap(err, "script request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return apperrors.New(fmt.Sprintf("script request returned HTTP status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxScriptBytes))
	if err != nil {
		return apperrors.Wrap(err, "failed to read script body")
	}

	if !strings.Contains(string(body), payEntryMarker) {
		return apperrors.New("script does not expose the pay entry point")
	}

	return nil
}
