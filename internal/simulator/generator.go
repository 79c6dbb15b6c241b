package simulator

import (
	"math"
	"math/rand"
	"sync"

	"github.com/OldStager01/forecast-autoscaler/internal/forecast"
	"github.com/OldStager01/forecast-autoscaler/pkg/models"
)

// CompletionWeights is the synthetic ground truth linking activity to the
// average completion time: intercept + admin*Admin + config*Config + end*EndUser.
type CompletionWeights struct {
	Intercept float64 `json:"intercept"`
	Admin     float64 `json:"admin"`
	Config    float64 `json:"config"`
	EndUser   float64 `json:"end_user"`
}

func DefaultCompletionWeights() CompletionWeights {
	return CompletionWeights{Intercept: 10, Admin: 0.5, Config: 0.3, EndUser: 0.2}
}

func (w CompletionWeights) Apply(s models.ActivitySample) float64 {
	return w.Intercept + w.Admin*s.AdminUsers + w.Config*s.ConfigUsers + w.EndUser*s.EndUsers
}

// Model returns the weights as a completion-time artifact.
func (w CompletionWeights) Model() *forecast.LinearModel {
	return forecast.NewLinearModel([]float64{w.Admin, w.Config, w.EndUser}, w.Intercept)
}

type GeneratorConfig struct {
	BaseAdmin   float64
	BaseConfig  float64
	BaseEndUser float64
	// Variance is the relative noise applied to every sample (0.1 = +/-10%).
	Variance    float64
	StepsPerDay int
	Seed        int64
	Weights     CompletionWeights
}

func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		BaseAdmin:   20,
		BaseConfig:  30,
		BaseEndUser: 60,
		Variance:    0.05,
		StepsPerDay: 24,
		Seed:        1,
		Weights:     DefaultCompletionWeights(),
	}
}

// Spike multiplies activity by Factor for Length samples counted back from the
// end of the series. RampUp samples lead into the peak linearly.
type Spike struct {
	Factor float64 `json:"factor"`
	Length int     `json:"length"`
	RampUp int     `json:"ramp_up"`
}

// Generator produces synthetic activity datasets.
type Generator struct {
	config  GeneratorConfig
	pattern Pattern
	spike   *Spike
	mu      sync.RWMutex
}

func NewGenerator(cfg GeneratorConfig) *Generator {
	if cfg.StepsPerDay <= 0 {
		cfg.StepsPerDay = 24
	}
	if cfg.Weights == (CompletionWeights{}) {
		cfg.Weights = DefaultCompletionWeights()
	}
	return &Generator{config: cfg, pattern: PatternSteady}
}

func (g *Generator) SetPattern(pattern Pattern) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pattern = pattern
}

func (g *Generator) Pattern() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.pattern.Name()
}

func (g *Generator) InjectSpike(spike Spike) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.spike = &spike
}

func (g *Generator) ClearSpike() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.spike = nil
}

func (g *Generator) Weights() CompletionWeights {
	return g.config.Weights
}

// Generate returns n chronological samples and their completion-time labels.
func (g *Generator) Generate(n int) *models.Dataset {
	g.mu.RLock()
	defer g.mu.RUnlock()

	rng := rand.New(rand.NewSource(g.config.Seed))
	ds := &models.Dataset{
		Samples: make([]models.ActivitySample, n),
		Labels:  make([]float64, n),
	}

	for step := 0; step < n; step++ {
		factor := g.spikeFactor(step, n)
		sample := models.ActivitySample{
			AdminUsers:  g.value(rng, g.config.BaseAdmin, step, factor),
			ConfigUsers: g.value(rng, g.config.BaseConfig, step, factor),
			EndUsers:    g.value(rng, g.config.BaseEndUser, step, factor),
		}
		ds.Samples[step] = sample
		ds.Labels[step] = round2(g.config.Weights.Apply(sample))
	}
	return ds
}

func (g *Generator) value(rng *rand.Rand, base float64, step int, factor float64) float64 {
	v := g.pattern.Apply(base, step, g.config.StepsPerDay) * factor
	v += v * (rng.Float64()*2 - 1) * g.config.Variance
	if v < 0 {
		v = 0
	}
	return round2(v)
}

func (g *Generator) spikeFactor(step, n int) float64 {
	if g.spike == nil || g.spike.Length <= 0 {
		return 1
	}
	start := n - g.spike.Length
	if step < start {
		return 1
	}
	if into := step - start; into < g.spike.RampUp {
		progress := float64(into+1) / float64(g.spike.RampUp+1)
		return 1 + (g.spike.Factor-1)*progress
	}
	return g.spike.Factor
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
