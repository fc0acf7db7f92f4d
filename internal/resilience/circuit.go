package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

var breakerNopLogger = zerolog.Nop()

// ErrOpenCircuit means the breaker refused the call without touching the
// upstream commerce API.
var ErrOpenCircuit = errors.New("resilience: circuit breaker open")

// State is the breaker's position in its closed/open/half-open cycle.
type State int

const (
	// Closed passes traffic and counts outcomes.
	Closed State = iota
	// Open sheds traffic until the cool-off elapses.
	Open
	// HalfOpen lets a probe through to test recovery.
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

func (s State) gauge() float64 {
	switch s {
	case Closed:
		return 0
	case Open:
		return 1
	case HalfOpen:
		return 2
	default:
		return -1
	}
}

// tally is the rolling outcome window the closed breaker trips on.
type tally struct {
	calls  int
	failed int
}

func (t *tally) observe(success bool) {
	t.calls++
	if !success {
		t.failed++
	}
}

func (t *tally) ratio() float64 {
	if t.calls == 0 {
		return 0
	}
	return float64(t.failed) / float64(t.calls)
}

// decay halves both counters so old outcomes stop dominating the window.
func (t *tally) decay() {
	ok := t.calls - t.failed
	t.failed = int(math.Ceil(float64(t.failed) * 0.5))
	t.calls = t.failed + int(math.Ceil(float64(ok)*0.5))
}

func (t *tally) reset() { *t = tally{} }

// Breaker implements a simple failure-ratio circuit breaker guarding the
// upstream commerce API.
type Breaker struct {
	mu        sync.Mutex
	state     State
	window    tally
	minCalls  int
	threshold float64
	openedAt  time.Time
	coolOff   time.Duration
	target    string
	logger    *zerolog.Logger
}

// NewBreaker builds a breaker that trips once the failure ratio crosses the
// threshold after minRequests observed calls, and stays open for openFor.
func NewBreaker(minRequests int, failureRatio float64, openFor time.Duration) *Breaker {
	if minRequests <= 0 {
		minRequests = 1
	}
	if failureRatio <= 0 {
		failureRatio = 0.5
	}
	if failureRatio > 1 {
		failureRatio = 1
	}
	if openFor <= 0 {
		openFor = 30 * time.Second
	}
	return &Breaker{minCalls: minRequests, threshold: failureRatio, coolOff: openFor}
}

// WithTarget names the guarded dependency for metric and log labels.
func (b *Breaker) WithTarget(target string) *Breaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.target = strings.TrimSpace(target)
	b.publishState()
	return b
}

// WithLogger sets the fallback logger for transition events when the request
// context carries none.
func (b *Breaker) WithLogger(logger zerolog.Logger) *Breaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logger = &logger
	return b
}

// Allow reports whether the next upstream call may proceed. An open breaker
// whose cool-off has elapsed moves to half-open and admits one probe.
func (b *Breaker) Allow(ctx context.Context) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != Open {
		return true
	}
	if time.Since(b.openedAt) < b.coolOff {
		return false
	}
	b.transition(ctx, HalfOpen)
	return true
}

// Report feeds one call outcome into the state machine. A half-open probe
// decides the next state on its own.
func (b *Breaker) Report(ctx context.Context, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		return
	case HalfOpen:
		if success {
			b.transition(ctx, Closed)
		} else {
			b.transition(ctx, Open)
		}
		return
	}

	b.window.observe(success)
	if b.window.calls < b.minCalls {
		return
	}
	if b.window.ratio() >= b.threshold {
		b.transition(ctx, Open)
		return
	}
	if b.window.calls > b.minCalls*2 {
		b.window.decay()
	}
}

// Backoff doubles the base per attempt. jitterPct spreads retries as a
// fraction of the computed delay (0.2 means plus or minus 20%).
func Backoff(base time.Duration, attempt int, jitterPct float64) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	d := base * time.Duration(1<<uint(attempt-1))
	if jitterPct <= 0 {
		return d
	}
	spread := float64(d) * jitterPct
	return d + time.Duration((rand.Float64()*2-1)*spread)
}

// transition moves the state machine and emits telemetry. Caller holds the lock.
func (b *Breaker) transition(ctx context.Context, next State) {
	prev := b.state
	if prev == next {
		b.publishState()
		return
	}
	b.state = next
	b.window.reset()
	switch next {
	case Open:
		b.openedAt = time.Now()
	case Closed:
		b.openedAt = time.Time{}
	}
	b.publishState()

	label := b.label()
	if BreakerTransitions != nil {
		BreakerTransitions.WithLabelValues(label, prev.String(), next.String()).Inc()
	}
	if next == Open && BreakerOpenedTotal != nil {
		BreakerOpenedTotal.WithLabelValues(label).Inc()
	}
	evt := b.log(ctx).Info().
		Str("target", label).
		Str("from_state", prev.String()).
		Str("to_state", next.String())
	if span := trace.SpanContextFromContext(ctx); span.IsValid() {
		evt = evt.Str("trace_id", span.TraceID().String())
	}
	evt.Msg("breaker_transition")
}

func (b *Breaker) publishState() {
	if BreakerState != nil {
		BreakerState.WithLabelValues(b.label()).Set(b.state.gauge())
	}
}

func (b *Breaker) label() string {
	if b.target == "" {
		return "default"
	}
	return b.target
}

func (b *Breaker) log(ctx context.Context) *zerolog.Logger {
	if ctxLogger := zerolog.Ctx(ctx); ctxLogger != nil {
		logger := ctxLogger.With().Logger()
		return &logger
	}
	if b.logger == nil {
		return &breakerNopLogger
	}
	return b.logger
}
