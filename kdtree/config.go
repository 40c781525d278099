package kdtree

import (
	"context"
	"math"
	"runtime"
)

// Config holds every tunable of the builder and traverser. Zero-value
// Config is never used directly; defaultConfig supplies the spec's
// defaults, and Option functions layer caller overrides on top.
type Config struct {
	Ktrav      float64
	Kquery     float64
	EmptyBonus float64

	MaxDepth           int // 0 selects the automatic depth formula at Build time
	StopPrims          int
	MaxBadRefines      int
	ExactPrimThreshold int
	MinMaxBins         int

	Clip          bool
	Retract       bool
	ParallelBuild bool
	MaxWorkers    int // 0 selects runtime.GOMAXPROCS(0)-1, floored at 0

	// Ctx is checked once during Build, after the root bounding box is
	// computed and before construction starts; if it is already cancelled,
	// Build returns ctx.Err(). A cancellation after that point does not
	// interrupt the build.
	Ctx context.Context
}

// defaultConfig returns the spec's documented defaults. MaxDepth is left at
// 0 here; autoMaxDepth resolves it once the primitive count is known.
func defaultConfig() Config {
	return Config{
		Ktrav:              15,
		Kquery:             20,
		EmptyBonus:         0.9,
		StopPrims:          6,
		MaxBadRefines:      3,
		ExactPrimThreshold: 65536,
		MinMaxBins:         128,
		Clip:               true,
		Retract:            true,
		ParallelBuild:      true,
		Ctx:                context.Background(),
	}
}

// autoMaxDepth implements the spec's depth formula:
// min(ceil(8 + 1.3*log2(N)), 48).
func autoMaxDepth(primCount int) int {
	if primCount < 1 {
		primCount = 1
	}
	d := math.Ceil(8 + 1.3*math.Log2(float64(primCount)))
	if d > 48 {
		d = 48
	}
	if d < 1 {
		d = 1
	}
	return int(d)
}

// Option configures a Tree's Build call. Options are applied in order, so a
// later option overrides an earlier one.
type Option func(*Config)

// WithTraversalCost overrides Ktrav, the fixed cost of descending one more
// inner node.
func WithTraversalCost(v float64) Option { return func(c *Config) { c.Ktrav = v } }

// WithIntersectionCost overrides Kquery, the cost of testing one primitive.
func WithIntersectionCost(v float64) Option { return func(c *Config) { c.Kquery = v } }

// WithEmptySpaceBonus overrides the multiplier applied to splits that carve
// away empty space.
func WithEmptySpaceBonus(v float64) Option { return func(c *Config) { c.EmptyBonus = v } }

// WithMaxDepth overrides the recursion depth limit. A value of 0 restores
// the automatic formula.
func WithMaxDepth(v int) Option { return func(c *Config) { c.MaxDepth = v } }

// WithStopPrims overrides the primitive count below which a node always
// becomes a leaf without considering a split.
func WithStopPrims(v int) Option { return func(c *Config) { c.StopPrims = v } }

// WithMaxBadRefines overrides the number of unprofitable splits tolerated
// on the path from the root before forcing a leaf. The count is not reset
// by a profitable split.
func WithMaxBadRefines(v int) Option { return func(c *Config) { c.MaxBadRefines = v } }

// WithExactPrimThreshold overrides the primitive count at which the builder
// transitions from approximate min-max binning to the exact event sweep.
func WithExactPrimThreshold(v int) Option { return func(c *Config) { c.ExactPrimThreshold = v } }

// WithMinMaxBins overrides the number of bins per axis used during the
// binning phase.
func WithMinMaxBins(v int) Option { return func(c *Config) { c.MinMaxBins = v } }

// WithClipping toggles Sutherland-Hodgman perfect splits during the exact
// sweep phase.
func WithClipping(v bool) Option { return func(c *Config) { c.Clip = v } }

// WithRetraction toggles subtree retraction when a fully-built subtree's
// cost turns out no better than a leaf.
func WithRetraction(v bool) Option { return func(c *Config) { c.Retract = v } }

// WithParallelBuild toggles the worker pool. With false, Build runs
// entirely on the calling goroutine.
func WithParallelBuild(v bool) Option { return func(c *Config) { c.ParallelBuild = v } }

// WithMaxWorkers overrides the worker pool size (excluding the dispatcher).
// 0 selects runtime.GOMAXPROCS(0)-1, floored at 0.
func WithMaxWorkers(v int) Option { return func(c *Config) { c.MaxWorkers = v } }

// WithContext sets the context Build checks once before construction
// starts (see Config.Ctx); Build returns ctx.Err() if it is already
// cancelled then, and does not check it again afterwards.
func WithContext(ctx context.Context) Option { return func(c *Config) { c.Ctx = ctx } }

func (c Config) workerCount() int {
	if !c.ParallelBuild {
		return 0
	}
	if c.MaxWorkers > 0 {
		return c.MaxWorkers
	}
	n := runtime.GOMAXPROCS(0) - 1
	if n < 0 {
		n = 0
	}
	return n
}

// validate checks the constraints spec 7 lists as configuration errors.
func (c Config) validate() error {
	if c.Ktrav <= 0 || c.Kquery <= 0 {
		return &ConfigurationError{Err: ErrBadCost}
	}
	if c.EmptyBonus <= 0 || c.EmptyBonus > 1 {
		return &ConfigurationError{Err: ErrBadEmptyBonus}
	}
	if c.MinMaxBins <= 1 {
		return &ConfigurationError{Err: ErrBadBinCount}
	}
	return nil
}
