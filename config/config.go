// Package config collects the tunables the reliability core is built
// around: a small set of named constants with sane defaults, but exposed
// as a builder so tests can construct a Config with an exaggerated or
// shrunken threshold instead of waiting on wall-clock values.
package config

import (
	"fmt"
	"time"
)

// MaxAckDelayExponent is the ceiling on ack_delay_exponent: it is encoded
// as a 2-bit-derived shift in the QUIC transport parameters and values
// above it would overflow the field on the wire.
const MaxAckDelayExponent uint8 = 20

const (
	// DefaultAckDelayExponent is the shift applied to ack_delay_microseconds
	// before it goes on the wire.
	DefaultAckDelayExponent uint8 = 3

	// DefaultMaxAckDelay bounds how long an aggregator may hold pending
	// packet numbers before flushing, independent of the ack-eliciting
	// trigger (not yet wired to a timer in this core; reserved for a
	// future max_ack_delay-driven flush).
	DefaultMaxAckDelay = 25 * time.Millisecond

	// DefaultLossThreshold is how long a buffered packet may go unacked
	// before LossDetector resends it.
	DefaultLossThreshold = 1 * time.Second

	// DefaultLossDetectionPeriod is how often LossDetector sweeps the
	// buffer.
	DefaultLossDetectionPeriod = 200 * time.Millisecond

	// DefaultIdleTimeout closes a connection that exchanges nothing for
	// this long.
	DefaultIdleTimeout = 30 * time.Second

	// DefaultMaxPacketSize is the MTU budget left after IP/UDP/QUIC headers.
	DefaultMaxPacketSize = 1200
)

// Config holds every tunable a Connection needs at construction. Use
// NewBuilder to assemble one; the zero value is not valid.
type Config struct {
	ackDelayExponent    uint8
	maxAckDelay         time.Duration
	lossThreshold       time.Duration
	lossDetectionPeriod time.Duration
	idleTimeout         time.Duration
	maxPacketSize       int
}

func (c Config) AckDelayExponent() uint8            { return c.ackDelayExponent }
func (c Config) MaxAckDelay() time.Duration         { return c.maxAckDelay }
func (c Config) LossThreshold() time.Duration       { return c.lossThreshold }
func (c Config) LossDetectionPeriod() time.Duration { return c.lossDetectionPeriod }
func (c Config) IdleTimeout() time.Duration         { return c.idleTimeout }
func (c Config) MaxPacketSize() int                 { return c.maxPacketSize }

// Builder assembles a Config, defaulting every field until overridden.
type Builder struct {
	cfg Config
}

// NewBuilder returns a Builder pre-populated with every Default* constant.
func NewBuilder() *Builder {
	return &Builder{cfg: Config{
		ackDelayExponent:    DefaultAckDelayExponent,
		maxAckDelay:         DefaultMaxAckDelay,
		lossThreshold:       DefaultLossThreshold,
		lossDetectionPeriod: DefaultLossDetectionPeriod,
		idleTimeout:         DefaultIdleTimeout,
		maxPacketSize:       DefaultMaxPacketSize,
	}}
}

func (b *Builder) AckDelayExponent(v uint8) *Builder {
	b.cfg.ackDelayExponent = v
	return b
}

func (b *Builder) MaxAckDelay(d time.Duration) *Builder {
	b.cfg.maxAckDelay = d
	return b
}

func (b *Builder) LossThreshold(d time.Duration) *Builder {
	b.cfg.lossThreshold = d
	return b
}

func (b *Builder) LossDetectionPeriod(d time.Duration) *Builder {
	b.cfg.lossDetectionPeriod = d
	return b
}

func (b *Builder) IdleTimeout(d time.Duration) *Builder {
	b.cfg.idleTimeout = d
	return b
}

func (b *Builder) MaxPacketSize(n int) *Builder {
	b.cfg.maxPacketSize = n
	return b
}

// Build validates the assembled Config and returns it.
func (b *Builder) Build() (Config, error) {
	if b.cfg.ackDelayExponent > MaxAckDelayExponent {
		return Config{}, fmt.Errorf("config: ack_delay_exponent %d exceeds max %d", b.cfg.ackDelayExponent, MaxAckDelayExponent)
	}
	if b.cfg.maxAckDelay <= 0 {
		return Config{}, fmt.Errorf("config: max_ack_delay must be positive, got %s", b.cfg.maxAckDelay)
	}
	if b.cfg.lossThreshold <= 0 {
		return Config{}, fmt.Errorf("config: loss_threshold must be positive, got %s", b.cfg.lossThreshold)
	}
	if b.cfg.lossDetectionPeriod <= 0 {
		return Config{}, fmt.Errorf("config: loss_detection_period must be positive, got %s", b.cfg.lossDetectionPeriod)
	}
	if b.cfg.idleTimeout <= 0 {
		return Config{}, fmt.Errorf("config: idle_timeout must be positive, got %s", b.cfg.idleTimeout)
	}
	if b.cfg.maxPacketSize <= 0 {
		return Config{}, fmt.Errorf("config: max_packet_size must be positive, got %d", b.cfg.maxPacketSize)
	}
	return b.cfg, nil
}

// MustBuild validates and returns the assembled Config, panicking if
// validation fails. For callers building a Config from fixed compile-time
// defaults, where a validation failure would mean a bug in this package
// rather than bad input.
func (b *Builder) MustBuild() Config {
	cfg, err := b.Build()
	if err != nil {
		panic(err)
	}
	return cfg
}
