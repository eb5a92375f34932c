// Package signal turns prediction output and market prices into
// actionable value signals. All arithmetic runs on decimals so edge
// thresholds compare exactly.
package signal

import (
	"github.com/shopspring/decimal"
)

// Side names the outcome a signal points at.
type Side string

const (
	SideHome Side = "home"
	SideAway Side = "away"
	SideNone Side = "none"
)

// Config holds the signal thresholds.
type Config struct {
	MinEdgeBps      float64 // minimum edge in basis points
	MinConfidence   float64 // minimum prediction confidence
	MaxHolderShare  float64 // skip markets dominated by one wallet
	ConcentrationOK bool    // when false, ignore the holder check
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		MinEdgeBps:      500,
		MinConfidence:   0.5,
		MaxHolderShare:  0.5,
		ConcentrationOK: true,
	}
}

// Evaluator computes value signals.
type Evaluator struct {
	minEdgeBps     decimal.Decimal
	minConfidence  decimal.Decimal
	maxHolderShare decimal.Decimal
	checkHolders   bool
}

// NewEvaluator creates a signal evaluator.
func NewEvaluator(cfg Config) *Evaluator {
	return &Evaluator{
		minEdgeBps:     decimal.NewFromFloat(cfg.MinEdgeBps),
		minConfidence:  decimal.NewFromFloat(cfg.MinConfidence),
		maxHolderShare: decimal.NewFromFloat(cfg.MaxHolderShare),
		checkHolders:   cfg.ConcentrationOK,
	}
}

// Input carries one market evaluation.
type Input struct {
	HomeProbability float64 // blended model probability for the home side
	Confidence      float64
	YesPrice        float64 // market price of the home-wins outcome
	NoPrice         float64 // market price of the away-wins outcome
	TopHolderShare  float64 // largest wallet's share of held positions, 0 when unknown
}

// Result is the evaluated signal. EdgeBps is the edge on the chosen side;
// when Side is SideNone it holds the home-side edge for observability.
type Result struct {
	Side    Side            `json:"side"`
	EdgeBps decimal.Decimal `json:"edgeBps"`
	Reason  string          `json:"reason,omitempty"`
}

// Evaluate compares the model probability against both outcome prices and
// reports the better side when its edge clears the thresholds. Buying the
// away outcome at price NoPrice wins when the home side loses, so its
// edge uses the complement probability.
func (e *Evaluator) Evaluate(in Input) Result {
	homeProb := decimal.NewFromFloat(in.HomeProbability)
	one := decimal.NewFromInt(1)
	bps := decimal.NewFromInt(10000)

	homeEdge := homeProb.Sub(decimal.NewFromFloat(in.YesPrice)).Mul(bps)
	awayEdge := one.Sub(homeProb).Sub(decimal.NewFromFloat(in.NoPrice)).Mul(bps)

	side, edge := SideHome, homeEdge
	if awayEdge.GreaterThan(homeEdge) {
		side, edge = SideAway, awayEdge
	}

	res := Result{Side: side, EdgeBps: edge}

	if decimal.NewFromFloat(in.Confidence).LessThan(e.minConfidence) {
		res.Side = SideNone
		res.Reason = "confidence below threshold"
		return res
	}
	if edge.LessThan(e.minEdgeBps) {
		res.Side = SideNone
		res.Reason = "edge below threshold"
		return res
	}
	if e.checkHolders && decimal.NewFromFloat(in.TopHolderShare).GreaterThan(e.maxHolderShare) {
		res.Side = SideNone
		res.Reason = "position concentration too high"
		return res
	}

	return res
}

// EdgeBps returns the raw home-side edge in basis points, for persisting
// alongside a prediction regardless of whether a signal fired.
func EdgeBps(homeProbability, yesPrice float64) float64 {
	edge := decimal.NewFromFloat(homeProbability).
		Sub(decimal.NewFromFloat(yesPrice)).
		Mul(decimal.NewFromInt(10000))
	f, _ := edge.Float64()
	return f
}
