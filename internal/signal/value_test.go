package signal

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestEvaluate_HomeValue(t *testing.T) {
	e := NewEvaluator(DefaultConfig())

	// Model 62%, market priced at 54% -> 800 bps on the home side
	res := e.Evaluate(Input{
		HomeProbability: 0.62,
		Confidence:      0.7,
		YesPrice:        0.54,
		NoPrice:         0.46,
		TopHolderShare:  0.2,
	})

	assert.Equal(t, SideHome, res.Side)
	assert.True(t, res.EdgeBps.Equal(decimal.NewFromInt(800)), "got %s", res.EdgeBps)
	assert.Empty(t, res.Reason)
}

func TestEvaluate_AwayValue(t *testing.T) {
	e := NewEvaluator(DefaultConfig())

	// Model says 40% home, market prices home at 52%
	res := e.Evaluate(Input{
		HomeProbability: 0.40,
		Confidence:      0.7,
		YesPrice:        0.52,
		NoPrice:         0.48,
	})

	assert.Equal(t, SideAway, res.Side)
	assert.True(t, res.EdgeBps.Equal(decimal.NewFromInt(1200)), "got %s", res.EdgeBps)
}

func TestEvaluate_EdgeBelowThreshold(t *testing.T) {
	e := NewEvaluator(DefaultConfig())

	res := e.Evaluate(Input{
		HomeProbability: 0.56,
		Confidence:      0.7,
		YesPrice:        0.54,
		NoPrice:         0.46,
	})

	assert.Equal(t, SideNone, res.Side)
	assert.Equal(t, "edge below threshold", res.Reason)
	assert.True(t, res.EdgeBps.Equal(decimal.NewFromInt(200)), "raw edge is still reported")
}

func TestEvaluate_ExactThresholdPasses(t *testing.T) {
	e := NewEvaluator(DefaultConfig())

	// Exactly 500 bps, exactly the 0.5 confidence floor
	res := e.Evaluate(Input{
		HomeProbability: 0.59,
		Confidence:      0.5,
		YesPrice:        0.54,
		NoPrice:         0.46,
	})

	assert.Equal(t, SideHome, res.Side)
}

func TestEvaluate_LowConfidence(t *testing.T) {
	e := NewEvaluator(DefaultConfig())

	res := e.Evaluate(Input{
		HomeProbability: 0.65,
		Confidence:      0.3,
		YesPrice:        0.50,
		NoPrice:         0.50,
	})

	assert.Equal(t, SideNone, res.Side)
	assert.Equal(t, "confidence below threshold", res.Reason)
}

func TestEvaluate_ConcentratedMarket(t *testing.T) {
	e := NewEvaluator(DefaultConfig())

	res := e.Evaluate(Input{
		HomeProbability: 0.65,
		Confidence:      0.7,
		YesPrice:        0.50,
		NoPrice:         0.50,
		TopHolderShare:  0.8,
	})

	assert.Equal(t, SideNone, res.Side)
	assert.Equal(t, "position concentration too high", res.Reason)
}

func TestEvaluate_ConcentrationCheckDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ConcentrationOK = false
	e := NewEvaluator(cfg)

	res := e.Evaluate(Input{
		HomeProbability: 0.65,
		Confidence:      0.7,
		YesPrice:        0.50,
		NoPrice:         0.50,
		TopHolderShare:  0.8,
	})

	assert.Equal(t, SideHome, res.Side)
}

func TestEdgeBps(t *testing.T) {
	assert.InDelta(t, 800, EdgeBps(0.62, 0.54), 1e-9)
	assert.InDelta(t, -400, EdgeBps(0.50, 0.54), 1e-9)
	assert.Zero(t, EdgeBps(0.54, 0.54))
}
