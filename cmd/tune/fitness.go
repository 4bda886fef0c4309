package main

import (
	"log/slog"
	"math"
	"sync"

	"github.com/pthm-cable/beads/config"
	"github.com/pthm-cable/beads/game"
	"github.com/pthm-cable/beads/telemetry"
)

// Scoring constants.
const (
	divergedPenalty = 1e6  // any NaN/Inf particle
	speedWeight     = 0.05 // weight of the p90 speed against the density error
	warmupFrames    = 30   // frames before sampling starts
	sampleEvery     = 10   // frames between samples
)

// FitnessEvaluator runs headless simulations and scores how well the fluid
// holds its rest density.
type FitnessEvaluator struct {
	params     *ParamVector
	maxFrames  int
	seeds      []int64
	baseConfig *config.Config

	mu          sync.Mutex
	lastDensity float64 // mean density from the most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, maxFrames int, seeds []int64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:     params,
		maxFrames:  maxFrames,
		seeds:      seeds,
		baseConfig: baseCfg,
	}
}

// LastDensity returns the mean sampled density of the most recent evaluation.
func (fe *FitnessEvaluator) LastDensity() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastDensity
}

// runResult holds the samples from a single simulation run.
type runResult struct {
	samples []telemetry.FrameStats
	err     error
}

// Evaluate computes fitness for a parameter vector (lower = better).
// Seeds run in parallel; the result is their mean score.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	cfg := fe.copyConfig()
	fe.params.ApplyToConfig(cfg, x)

	results := make([]runResult, len(fe.seeds))
	var wg sync.WaitGroup
	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			results[idx] = fe.runSimulation(cfg, s)
		}(i, seed)
	}
	wg.Wait()

	var total, density float64
	var sampled int
	for _, r := range results {
		if r.err != nil {
			slog.Warn("evaluation failed", "error", r.err)
			total += divergedPenalty
			continue
		}
		total += score(r.samples, cfg.Simulation.RestDensity)
		for _, s := range r.samples {
			density += s.DensityMean
			sampled++
		}
	}

	fe.mu.Lock()
	if sampled > 0 {
		fe.lastDensity = density / float64(sampled)
	}
	fe.mu.Unlock()

	return total / float64(len(fe.seeds))
}

// runSimulation executes a single headless run and samples its frame stats.
// A run stops early once any particle diverges.
func (fe *FitnessEvaluator) runSimulation(cfg *config.Config, seed int64) runResult {
	g, err := game.NewGameWithOptions(game.Options{Config: cfg, Seed: seed, Workers: 1})
	if err != nil {
		return runResult{err: err}
	}
	defer g.Unload()

	var res runResult
	mass := float32(cfg.Simulation.Mass)
	for int(g.Tick()) < fe.maxFrames {
		g.UpdateHeadless()

		tick := int(g.Tick())
		if tick < warmupFrames || tick%sampleEvery != 0 {
			continue
		}
		fs := telemetry.ComputeFrameStats(g.Current(), g.Store().DensityPressure, mass)
		res.samples = append(res.samples, fs)
		if fs.NonFinite > 0 {
			break
		}
	}
	return res
}

// copyConfig returns a copy of the base config safe to modify per evaluation.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	cfg := *fe.baseConfig
	return &cfg
}

// score averages the per-sample density error and speed penalty.
// Formula per sample: ((mean-rest)/rest)^2 + (std/rest)^2 + speedWeight*p90.
func score(samples []telemetry.FrameStats, rest float64) float64 {
	if len(samples) == 0 {
		return divergedPenalty
	}
	var sum float64
	for _, s := range samples {
		if s.NonFinite > 0 || math.IsNaN(s.KineticEnergy) || math.IsInf(s.KineticEnergy, 0) {
			return divergedPenalty
		}
		meanErr := (s.DensityMean - rest) / rest
		spread := s.DensityStd / rest
		sum += meanErr*meanErr + spread*spread + speedWeight*s.SpeedP90
	}
	return sum / float64(len(samples))
}
