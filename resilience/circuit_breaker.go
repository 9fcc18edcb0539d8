package resilience

import (
	"errors"
	"sync"
	"time"
)

// State is a circuit breaker state.
type State int

const (
	// StateClosed lets every call through.
	StateClosed State = iota
	// StateOpen rejects calls until the cooldown elapsed.
	StateOpen
	// StateHalfOpen lets a few probe calls through.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// ErrCircuitOpen is returned while the breaker rejects calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerConfig configures a circuit breaker.
type CircuitBreakerConfig struct {
	// Name identifies the breaker in callbacks.
	Name string `mapstructure:"name"`
	// MaxFailures is the number of consecutive failures that opens the
	// circuit. Defaults to 5.
	MaxFailures int `mapstructure:"max_failures" validate:"gte=0"`
	// Cooldown is how long the circuit stays open before probing.
	// Defaults to 30s.
	Cooldown time.Duration `mapstructure:"cooldown" validate:"gte=0"`
	// HalfOpenMaxCalls is the number of probes allowed, and the number of
	// successes needed to close again. Defaults to 1.
	HalfOpenMaxCalls int `mapstructure:"half_open_max_calls" validate:"gte=0"`
	// IsFailure decides whether a result counts against the end-point.
	// Defaults to every non-nil error.
	IsFailure func(error) bool `mapstructure:"-"`
	// OnStateChange observes transitions.
	OnStateChange func(name string, from, to State) `mapstructure:"-"`
}

// DefaultCircuitBreakerConfig returns the default breaker settings.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		MaxFailures:      5,
		Cooldown:         30 * time.Second,
		HalfOpenMaxCalls: 1,
	}
}

// CircuitBreaker fails fast once an end-point produced MaxFailures
// consecutive failures. Calls are admitted with Allow and report their
// result through the returned done function; results of calls admitted
// before the last transition are ignored.
type CircuitBreaker struct {
	config CircuitBreakerConfig
	now    func() time.Time

	mu         sync.Mutex
	state      State
	generation uint64
	failures   int
	probes     int
	successes  int
	openedAt   time.Time
}

// NewCircuitBreaker creates a closed breaker.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.MaxFailures <= 0 {
		config.MaxFailures = 5
	}
	if config.Cooldown <= 0 {
		config.Cooldown = 30 * time.Second
	}
	if config.HalfOpenMaxCalls <= 0 {
		config.HalfOpenMaxCalls = 1
	}
	if config.IsFailure == nil {
		config.IsFailure = func(err error) bool { return err != nil }
	}
	return &CircuitBreaker{config: config, now: time.Now}
}

// Allow admits one call or returns ErrCircuitOpen. done must be called
// exactly once with the call's result.
func (cb *CircuitBreaker) Allow() (done func(err error), err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.current() {
	case StateOpen:
		return nil, ErrCircuitOpen
	case StateHalfOpen:
		if cb.probes >= cb.config.HalfOpenMaxCalls {
			return nil, ErrCircuitOpen
		}
		cb.probes++
	}

	gen := cb.generation
	return func(err error) { cb.record(gen, err) }, nil
}

// Execute runs fn when the breaker admits it.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	done, err := cb.Allow()
	if err != nil {
		return err
	}
	err = fn()
	done(err)
	return err
}

// State returns the current state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.current()
}

// Failures returns the consecutive failure count.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

// Reset closes the circuit.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.transition(StateClosed)
}

func (cb *CircuitBreaker) record(gen uint64, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	state := cb.current()
	if gen != cb.generation {
		return
	}
	if !cb.config.IsFailure(err) {
		switch state {
		case StateClosed:
			cb.failures = 0
		case StateHalfOpen:
			cb.successes++
			if cb.successes >= cb.config.HalfOpenMaxCalls {
				cb.transition(StateClosed)
			}
		}
		return
	}

	cb.failures++
	if state == StateHalfOpen || cb.failures >= cb.config.MaxFailures {
		cb.transition(StateOpen)
	}
}

// current moves an open circuit to half-open once the cooldown elapsed.
// Callers hold mu.
func (cb *CircuitBreaker) current() State {
	if cb.state == StateOpen && cb.now().Sub(cb.openedAt) >= cb.config.Cooldown {
		cb.transition(StateHalfOpen)
	}
	return cb.state
}

func (cb *CircuitBreaker) transition(to State) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	cb.generation++
	cb.probes, cb.successes = 0, 0
	switch to {
	case StateClosed:
		cb.failures = 0
	case StateOpen:
		cb.openedAt = cb.now()
	}
	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(cb.config.Name, from, to)
	}
}
