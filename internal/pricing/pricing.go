package pricing

import "math"

// Category names understood by the default rate table.
const (
	CategoryEconomy = "economy"
	CategoryComfort = "comfort"
	CategoryPremium = "premium"
)

// Normalization fallbacks for missing or non-positive inputs.
const (
	fallbackDistanceKm  = 1.0
	fallbackDurationMin = 5.0
	minDistanceKm       = 0.01
	minDurationMin      = 1
)

// Upper bounds on priced inputs. Larger values saturate.
const (
	MaxDistanceKm  = 1000.0
	MaxDurationMin = 1440.0
	MaxAddOn       = 1_000_000.0
)

// Rate is the fixed tariff of one category.
type Rate struct {
	BaseFare  float64
	PerKm     float64
	PerMinute float64
}

// DefaultRates is the tariff table. The first entry of Categories is the
// fallback for unknown categories.
var DefaultRates = map[string]Rate{
	CategoryEconomy: {BaseFare: 35, PerKm: 11, PerMinute: 1.2},
	CategoryComfort: {BaseFare: 55, PerKm: 16, PerMinute: 1.8},
	CategoryPremium: {BaseFare: 90, PerKm: 24, PerMinute: 2.8},
}

// Categories lists the priced categories from cheapest to most expensive.
var Categories = []string{CategoryEconomy, CategoryComfort, CategoryPremium}

// Params holds the traffic multiplier tuning constants.
type Params struct {
	FreeFlowSpeedKmH float64
	MinBaselineMin   float64
	MinMultiplier    float64
	MaxMultiplier    float64
}

// DefaultParams returns the production tuning: 35 km/h free flow, a 3 minute
// minimum baseline and a [0.9, 2.2] multiplier band.
func DefaultParams() Params {
	return Params{
		FreeFlowSpeedKmH: 35,
		MinBaselineMin:   3,
		MinMultiplier:    0.9,
		MaxMultiplier:    2.2,
	}
}

// Breakdown is an itemized fare.
type Breakdown struct {
	Category          string  `json:"ride_type"`
	BaseFare          float64 `json:"base_fare"`
	DistanceFare      float64 `json:"distance_fare"`
	TimeFare          float64 `json:"time_fare"`
	TrafficMultiplier float64 `json:"traffic_multiplier"`
	TrafficCharge     float64 `json:"traffic_charge"`
	AddOn             int64   `json:"user_price_addon"`
	Subtotal          float64 `json:"subtotal"`
	Total             int64   `json:"total"`
	DistanceKm        float64 `json:"distance_km"`
	DurationMin       int     `json:"duration_min"`
}

// Engine computes fares. It holds no mutable state and is safe for
// concurrent use.
type Engine struct {
	rates  map[string]Rate
	params Params
}

// NewEngine creates an Engine over DefaultRates. Zero fields in params take
// their DefaultParams value.
func NewEngine(params Params) *Engine {
	def := DefaultParams()
	if params.FreeFlowSpeedKmH <= 0 {
		params.FreeFlowSpeedKmH = def.FreeFlowSpeedKmH
	}
	if params.MinBaselineMin <= 0 {
		params.MinBaselineMin = def.MinBaselineMin
	}
	if params.MinMultiplier <= 0 {
		params.MinMultiplier = def.MinMultiplier
	}
	if params.MaxMultiplier < params.MinMultiplier {
		params.MaxMultiplier = math.Max(def.MaxMultiplier, params.MinMultiplier)
	}

	return &Engine{rates: DefaultRates, params: params}
}

// Params returns the engine's tuning constants.
func (e *Engine) Params() Params {
	return e.params
}

// IsKnownCategory reports whether category has its own tariff.
func (e *Engine) IsKnownCategory(category string) bool {
	_, ok := e.rates[category]
	return ok
}

// TrafficMultiplier returns clamp(duration / freeFlowDuration) rounded to two
// decimals. Inputs are expected to be normalized already.
func (e *Engine) TrafficMultiplier(distanceKm float64, durationMin float64) float64 {
	freeFlow := float64(distanceKm/e.params.FreeFlowSpeedKmH) * 60
	baseline := math.Max(e.params.MinBaselineMin, freeFlow)
	ratio := durationMin / baseline
	return round2(clamp(ratio, e.params.MinMultiplier, e.params.MaxMultiplier))
}

// Breakdown prices one ride. Unknown categories use economy rates but keep
// the requested category name in the result.
func (e *Engine) Breakdown(category string, distanceKm, durationMin, addOn float64) Breakdown {
	distance := normalizeDistance(distanceKm)
	duration := normalizeDuration(durationMin)
	extra := normalizeAddOn(addOn)

	rate, ok := e.rates[category]
	if !ok {
		rate = e.rates[Categories[0]]
	}

	multiplier := e.TrafficMultiplier(distance, float64(duration))

	// Conversions round each step to float64; no fused multiply-add.
	distanceFare := float64(distance * rate.PerKm)
	timeFare := float64(float64(duration) * rate.PerMinute)
	subtotal := float64(float64(rate.BaseFare+distanceFare) + timeFare)
	trafficCharge := float64(subtotal * float64(multiplier-1))
	total := math.Max(0, math.Round(float64(subtotal+trafficCharge)+float64(extra)))

	return Breakdown{
		Category:          category,
		BaseFare:          round2(rate.BaseFare),
		DistanceFare:      round2(distanceFare),
		TimeFare:          round2(timeFare),
		TrafficMultiplier: multiplier,
		TrafficCharge:     round2(trafficCharge),
		AddOn:             extra,
		Subtotal:          round2(subtotal),
		Total:             int64(total),
		DistanceKm:        distance,
		DurationMin:       duration,
	}
}

// Quotes prices the same trip in every category, cheapest first.
func (e *Engine) Quotes(distanceKm, durationMin, addOn float64) []Breakdown {
	quotes := make([]Breakdown, 0, len(Categories))
	for _, category := range Categories {
		quotes = append(quotes, e.Breakdown(category, distanceKm, durationMin, addOn))
	}
	return quotes
}

func normalizeDistance(km float64) float64 {
	d := round2(math.Min(positiveOr(km, fallbackDistanceKm), MaxDistanceKm))
	if d < minDistanceKm {
		return minDistanceKm
	}
	return d
}

func normalizeDuration(min float64) int {
	d := int(math.Round(math.Min(positiveOr(min, fallbackDurationMin), MaxDurationMin)))
	if d < minDurationMin {
		return minDurationMin
	}
	return d
}

func normalizeAddOn(v float64) int64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return int64(math.Round(math.Min(v, MaxAddOn)))
}

func positiveOr(v, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return fallback
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
