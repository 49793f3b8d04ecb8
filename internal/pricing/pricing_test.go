package pricing

import (
	"math"
	"testing"
)

func TestBreakdown_GoldenEconomyTrip(t *testing.T) {
	t.Parallel()

	e := NewEngine(DefaultParams())
	b := e.Breakdown(CategoryEconomy, 10, 25, 0)

	if b.TrafficMultiplier != 1.46 {
		t.Errorf("expected multiplier 1.46, got %v", b.TrafficMultiplier)
	}
	if b.Subtotal != 175 {
		t.Errorf("expected subtotal 175, got %v", b.Subtotal)
	}
	if b.TrafficCharge != 80.5 {
		t.Errorf("expected traffic charge 80.5, got %v", b.TrafficCharge)
	}
	if b.Total != 256 {
		t.Errorf("expected total 256, got %d", b.Total)
	}
	if b.BaseFare != 35 || b.DistanceFare != 110 || b.TimeFare != 30 {
		t.Errorf("unexpected itemization: %+v", b)
	}
	if b.DistanceKm != 10 || b.DurationMin != 25 || b.AddOn != 0 {
		t.Errorf("unexpected normalized inputs: %+v", b)
	}
}

func TestBreakdown_CategoryRates(t *testing.T) {
	t.Parallel()

	e := NewEngine(DefaultParams())

	cases := []struct {
		category string
		subtotal float64
		total    int64
	}{
		{CategoryEconomy, 175, 256},
		{CategoryComfort, 260, 380},
		{CategoryPremium, 400, 584},
	}

	for _, tc := range cases {
		b := e.Breakdown(tc.category, 10, 25, 0)
		if b.Subtotal != tc.subtotal {
			t.Errorf("%s: expected subtotal %v, got %v", tc.category, tc.subtotal, b.Subtotal)
		}
		if b.Total != tc.total {
			t.Errorf("%s: expected total %d, got %d", tc.category, tc.total, b.Total)
		}
	}
}

func TestBreakdown_UnknownCategoryUsesEconomyRates(t *testing.T) {
	t.Parallel()

	e := NewEngine(DefaultParams())
	b := e.Breakdown("limousine", 10, 25, 0)

	if b.Category != "limousine" {
		t.Errorf("expected category to be echoed, got %q", b.Category)
	}
	if b.Total != 256 {
		t.Errorf("expected economy total 256, got %d", b.Total)
	}
}

func TestBreakdown_NormalizesMissingInputs(t *testing.T) {
	t.Parallel()

	e := NewEngine(DefaultParams())
	b := e.Breakdown(CategoryEconomy, 0, -3, -40)

	if b.DistanceKm != 1 {
		t.Errorf("expected fallback distance 1, got %v", b.DistanceKm)
	}
	if b.DurationMin != 5 {
		t.Errorf("expected fallback duration 5, got %d", b.DurationMin)
	}
	if b.AddOn != 0 {
		t.Errorf("expected add-on 0, got %d", b.AddOn)
	}
	// 5 min against a 3 min baseline.
	if b.TrafficMultiplier != 1.67 {
		t.Errorf("expected multiplier 1.67, got %v", b.TrafficMultiplier)
	}
	if b.Total != 87 {
		t.Errorf("expected total 87, got %d", b.Total)
	}
}

func TestBreakdown_RoundsInputs(t *testing.T) {
	t.Parallel()

	e := NewEngine(DefaultParams())
	b := e.Breakdown(CategoryEconomy, 4.567, 12.4, 49.6)

	if b.DistanceKm != 4.57 {
		t.Errorf("expected distance 4.57, got %v", b.DistanceKm)
	}
	if b.DurationMin != 12 {
		t.Errorf("expected duration 12, got %d", b.DurationMin)
	}
	if b.AddOn != 50 {
		t.Errorf("expected add-on 50, got %d", b.AddOn)
	}
}

func TestBreakdown_FastTripIsDiscountedToFloor(t *testing.T) {
	t.Parallel()

	e := NewEngine(DefaultParams())
	b := e.Breakdown(CategoryEconomy, 30, 10, 0)

	if b.TrafficMultiplier != 0.9 {
		t.Errorf("expected floor multiplier 0.9, got %v", b.TrafficMultiplier)
	}
	if b.TrafficCharge >= 0 {
		t.Errorf("expected negative traffic charge, got %v", b.TrafficCharge)
	}
	if b.Total != 339 {
		t.Errorf("expected total 339, got %d", b.Total)
	}
}

func TestBreakdown_AddOnIsAddedToTotal(t *testing.T) {
	t.Parallel()

	e := NewEngine(DefaultParams())
	without := e.Breakdown(CategoryEconomy, 10, 25, 0)
	with := e.Breakdown(CategoryEconomy, 10, 25, 120)

	if with.Total-without.Total != 120 {
		t.Errorf("expected add-on to raise total by 120, got %d", with.Total-without.Total)
	}
}

func TestBreakdown_IsDeterministic(t *testing.T) {
	t.Parallel()

	e := NewEngine(DefaultParams())
	inputs := [][3]float64{{10, 25, 0}, {3.33, 7, 15}, {0.4, 90, 0}, {55, 40, 200}}
	categories := []string{CategoryEconomy, CategoryComfort, CategoryPremium, "unknown"}

	for _, in := range inputs {
		for _, category := range categories {
			a := e.Breakdown(category, in[0], in[1], in[2])
			b := e.Breakdown(category, in[0], in[1], in[2])
			if a != b {
				t.Errorf("non-deterministic breakdown for %s %v: %+v vs %+v", category, in, a, b)
			}
		}
	}
}

func TestBreakdown_InvariantsHoldAcrossInputGrid(t *testing.T) {
	t.Parallel()

	e := NewEngine(DefaultParams())
	distances := []float64{-5, 0, 0.001, 0.5, 1, 7.25, 20, 80, 500, 1e18, math.MaxFloat64, math.NaN(), math.Inf(1)}
	durations := []float64{-1, 0, 0.2, 1, 3, 14, 60, 240, 1000, 1e19, math.MaxFloat64, math.NaN()}
	addOns := []float64{-100, 0, 10, 80, 1000, 1e19, math.MaxFloat64, math.Inf(-1)}

	for _, d := range distances {
		for _, m := range durations {
			for _, a := range addOns {
				for _, category := range Categories {
					b := e.Breakdown(category, d, m, a)
					if b.Total < 0 {
						t.Fatalf("negative total for (%v, %v, %v, %v): %+v", category, d, m, a, b)
					}
					if b.TrafficMultiplier < 0.9 || b.TrafficMultiplier > 2.2 {
						t.Fatalf("multiplier out of band for (%v, %v, %v): %v", d, m, a, b.TrafficMultiplier)
					}
					if b.DistanceKm <= 0 || b.DurationMin <= 0 || b.AddOn < 0 {
						t.Fatalf("normalization failed for (%v, %v, %v): %+v", d, m, a, b)
					}
					if b.DistanceKm > MaxDistanceKm || float64(b.DurationMin) > MaxDurationMin || float64(b.AddOn) > MaxAddOn {
						t.Fatalf("inputs not saturated for (%v, %v, %v): %+v", d, m, a, b)
					}
				}
			}
		}
	}
}

func TestBreakdown_SaturatesHugeInputs(t *testing.T) {
	t.Parallel()

	e := NewEngine(DefaultParams())

	b := e.Breakdown(CategoryEconomy, 10, 25, 1e19)
	if b.AddOn != int64(MaxAddOn) {
		t.Errorf("expected add-on capped at %v, got %d", MaxAddOn, b.AddOn)
	}
	if b.Total < b.AddOn {
		t.Errorf("expected total to include the capped add-on, got %+v", b)
	}

	b = e.Breakdown(CategoryEconomy, 1e18, 25, 0)
	if b.DistanceKm != MaxDistanceKm || b.Total <= 0 {
		t.Errorf("expected distance capped with a positive total, got %+v", b)
	}

	b = e.Breakdown(CategoryEconomy, 10, 1e19, 0)
	if b.DurationMin != int(MaxDurationMin) {
		t.Errorf("expected duration capped at %v, got %d", MaxDurationMin, b.DurationMin)
	}
}

func TestQuotes_OnePerCategoryInOrder(t *testing.T) {
	t.Parallel()

	e := NewEngine(DefaultParams())
	quotes := e.Quotes(10, 25, 0)

	if len(quotes) != len(Categories) {
		t.Fatalf("expected %d quotes, got %d", len(Categories), len(quotes))
	}
	for i, q := range quotes {
		if q.Category != Categories[i] {
			t.Errorf("quote %d: expected %s, got %s", i, Categories[i], q.Category)
		}
		if i > 0 && q.Total <= quotes[i-1].Total {
			t.Errorf("expected quotes to increase in price, got %d after %d", q.Total, quotes[i-1].Total)
		}
	}
}

func TestNewEngine_CustomParams(t *testing.T) {
	t.Parallel()

	e := NewEngine(Params{FreeFlowSpeedKmH: 60, MinBaselineMin: 3, MinMultiplier: 0.9, MaxMultiplier: 2.2})
	// 10 km at 60 km/h is 10 min free flow; 25 min is 2.5x, clamped to 2.2.
	if m := e.TrafficMultiplier(10, 25); m != 2.2 {
		t.Errorf("expected clamped multiplier 2.2, got %v", m)
	}
}

func TestNewEngine_ZeroParamsUseDefaults(t *testing.T) {
	t.Parallel()

	e := NewEngine(Params{})
	if e.Params() != DefaultParams() {
		t.Errorf("expected default params, got %+v", e.Params())
	}
}
