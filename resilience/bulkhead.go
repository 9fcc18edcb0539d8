package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrBulkheadFull is returned when no slot is free and waiting is disabled.
	ErrBulkheadFull = errors.New("bulkhead is full")
	// ErrBulkheadTimeout is returned when no slot freed up within MaxWait.
	ErrBulkheadTimeout = errors.New("bulkhead wait timeout")
)

// BulkheadConfig configures a bulkhead.
type BulkheadConfig struct {
	// Name identifies the bulkhead in callbacks.
	Name string `mapstructure:"name"`
	// MaxConcurrent is the number of slots. Defaults to 10.
	MaxConcurrent int `mapstructure:"max_concurrent" validate:"gte=0"`
	// MaxWait bounds the wait for a slot. 0 rejects at once.
	MaxWait time.Duration `mapstructure:"max_wait" validate:"gte=0"`
	// OnReject is called for every rejected acquisition.
	OnReject func(name string, err error) `mapstructure:"-"`
}

// DefaultBulkheadConfig returns a bulkhead of 10 slots that rejects at once.
func DefaultBulkheadConfig(name string) BulkheadConfig {
	return BulkheadConfig{Name: name, MaxConcurrent: 10}
}

// Bulkhead caps the number of concurrent holders. A slot is held from
// Acquire until its release function runs, which lets a caller keep it for
// as long as a streamed response stays open.
type Bulkhead struct {
	config BulkheadConfig
	slots  chan struct{}
}

// NewBulkhead creates a bulkhead.
func NewBulkhead(config BulkheadConfig) *Bulkhead {
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 10
	}
	return &Bulkhead{config: config, slots: make(chan struct{}, config.MaxConcurrent)}
}

// Acquire takes a slot. The returned release is idempotent.
func (b *Bulkhead) Acquire(ctx context.Context) (release func(), err error) {
	if err := b.wait(ctx); err != nil {
		if b.config.OnReject != nil {
			b.config.OnReject(b.config.Name, err)
		}
		return nil, err
	}
	var once sync.Once
	return func() { once.Do(func() { <-b.slots }) }, nil
}

func (b *Bulkhead) wait(ctx context.Context) error {
	select {
	case b.slots <- struct{}{}:
		return nil
	default:
	}
	if b.config.MaxWait <= 0 {
		return ErrBulkheadFull
	}

	timer := time.NewTimer(b.config.MaxWait)
	defer timer.Stop()
	select {
	case b.slots <- struct{}{}:
		return nil
	case <-timer.C:
		return ErrBulkheadTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Execute runs fn while holding a slot.
func (b *Bulkhead) Execute(ctx context.Context, fn func() error) error {
	release, err := b.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}

// InUse returns the number of held slots.
func (b *Bulkhead) InUse() int { return len(b.slots) }

// Available returns the number of free slots.
func (b *Bulkhead) Available() int { return cap(b.slots) - len(b.slots) }
