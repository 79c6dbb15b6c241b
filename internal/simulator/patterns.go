package simulator

import (
	"math"
	"math/rand"
)

// Pattern shapes a base activity level over sample steps. One step is one
// telemetry interval; stepsPerDay maps steps onto hours of the day.
type Pattern interface {
	Apply(base float64, step, stepsPerDay int) float64
	Name() string
}

var (
	PatternSteady      Pattern = &SteadyPattern{}
	PatternDaily       Pattern = &DailyPattern{}
	PatternWeekly      Pattern = &WeeklyPattern{}
	PatternGradualRise Pattern = &GradualRisePattern{PercentPerStep: 2, MaxPercent: 50}
	PatternSineWave    Pattern = &SineWavePattern{PeriodSteps: 48, Amplitude: 0.3}
)

// ParsePattern falls back to steady for unknown names. random is seeded so a
// dataset can be regenerated exactly.
func ParsePattern(name string, seed int64) Pattern {
	switch name {
	case "daily":
		return PatternDaily
	case "weekly":
		return PatternWeekly
	case "random":
		return NewRandomPattern(seed)
	case "gradual_rise":
		return PatternGradualRise
	case "sine_wave":
		return PatternSineWave
	default:
		return PatternSteady
	}
}

func PatternNames() []string {
	return []string{"steady", "daily", "weekly", "random", "gradual_rise", "sine_wave"}
}

func hourOf(step, stepsPerDay int) int {
	if stepsPerDay <= 0 {
		stepsPerDay = 24
	}
	return (step % stepsPerDay) * 24 / stepsPerDay
}

// SteadyPattern - constant load
type SteadyPattern struct{}

func (p *SteadyPattern) Apply(base float64, step, stepsPerDay int) float64 {
	return base
}

func (p *SteadyPattern) Name() string {
	return "steady"
}

// DailyPattern - busy business hours, quiet nights
type DailyPattern struct{}

func (p *DailyPattern) Apply(base float64, step, stepsPerDay int) float64 {
	return base * dailyModifier(hourOf(step, stepsPerDay))
}

func dailyModifier(hour int) float64 {
	switch {
	case hour >= 9 && hour <= 11:
		return 1.4
	case hour >= 14 && hour <= 16:
		return 1.3
	case hour >= 17 && hour <= 20:
		return 1.1
	case hour >= 0 && hour <= 6:
		return 0.6
	default:
		return 1.0
	}
}

func (p *DailyPattern) Name() string {
	return "daily"
}

// WeeklyPattern - daily cycle on weekdays, half load on days 6 and 7
type WeeklyPattern struct{}

func (p *WeeklyPattern) Apply(base float64, step, stepsPerDay int) float64 {
	if stepsPerDay <= 0 {
		stepsPerDay = 24
	}
	day := (step / stepsPerDay) % 7
	if day >= 5 {
		return base * 0.5
	}
	return base * dailyModifier(hourOf(step, stepsPerDay))
}

func (p *WeeklyPattern) Name() string {
	return "weekly"
}

// RandomPattern - unpredictable spikes and drops between 0.5x and 1.5x
type RandomPattern struct {
	rng *rand.Rand
}

func NewRandomPattern(seed int64) *RandomPattern {
	return &RandomPattern{rng: rand.New(rand.NewSource(seed))}
}

func (p *RandomPattern) Apply(base float64, step, stepsPerDay int) float64 {
	return base * (0.5 + p.rng.Float64())
}

func (p *RandomPattern) Name() string {
	return "random"
}

// GradualRisePattern - grows by PercentPerStep, capped at MaxPercent
type GradualRisePattern struct {
	PercentPerStep float64
	MaxPercent     float64
}

func (p *GradualRisePattern) Apply(base float64, step, stepsPerDay int) float64 {
	increase := math.Min(float64(step)*p.PercentPerStep, p.MaxPercent)
	return base * (1 + increase/100)
}

func (p *GradualRisePattern) Name() string {
	return "gradual_rise"
}

// SineWavePattern - smooth oscillation of +/- Amplitude (a fraction of base)
type SineWavePattern struct {
	PeriodSteps int
	Amplitude   float64
}

func (p *SineWavePattern) Apply(base float64, step, stepsPerDay int) float64 {
	period := p.PeriodSteps
	if period <= 0 {
		period = 48
	}
	phase := float64(step) / float64(period) * 2 * math.Pi
	return base * (1 + p.Amplitude*math.Sin(phase))
}

func (p *SineWavePattern) Name() string {
	return "sine_wave"
}
