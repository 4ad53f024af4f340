// Package strategy recomputes target weights from price signals. It takes
// plain aligned series and emits weight changes; converting those into
// simulator directives is the engine's job.
package strategy

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/markcheno/go-talib"
)

// talib computes SMAs with a running sum, so a flat price after a large
// move can land a few ulps off the true mean. Tier comparisons ignore
// differences below this relative tolerance.
const smaTolerance = 1e-9

// Tier factors: how much of an asset's base weight the current trend
// supports. Tier is the number of moving averages the close sits above.
var tierFactor = map[int]float64{
	0: 0,
	1: 0.5,
	2: 1,
	3: 2,
}

// Params configures the three-average trend strategy.
type Params struct {
	Short int // short moving-average window
	Mid   int // mid moving-average window
	Long  int // long moving-average window

	// ConfirmDays is how many consecutive days a new tier must hold before
	// it is acted on. Zero means act immediately.
	ConfirmDays int
	// CooldownDays blocks further changes for an asset after one is applied.
	CooldownDays int

	// CashCode and BondCode name the buffer assets that absorb weight shed
	// by de-risked assets. Either may be empty.
	CashCode string
	BondCode string

	// FastMoveWindow and FastMoveThreshold bypass confirmation when the
	// trailing return over the window exceeds the threshold in magnitude.
	FastMoveWindow    int
	FastMoveThreshold float64
}

const (
	defaultFastMoveWindow    = 10
	defaultFastMoveThreshold = 0.06
)

// Validate checks window ordering and day counts.
func (p Params) Validate() error {
	if p.Short <= 0 || p.Mid <= 0 || p.Long <= 0 {
		return fmt.Errorf("moving-average windows must be positive, got %d/%d/%d", p.Short, p.Mid, p.Long)
	}
	if !(p.Short < p.Mid && p.Mid < p.Long) {
		return fmt.Errorf("moving-average windows must be strictly increasing, got %d/%d/%d", p.Short, p.Mid, p.Long)
	}
	if p.ConfirmDays < 0 || p.CooldownDays < 0 {
		return fmt.Errorf("confirm and cooldown days must not be negative")
	}
	return nil
}

// WeightChange is one recomputed target weight set, effective on Date.
type WeightChange struct {
	Date    time.Time
	Weights map[string]float64
	Reason  string
}

// assetState tracks one risk asset's applied tier and pending transition.
type assetState struct {
	tier        int // applied tier
	pendingTier int
	streak      int // consecutive days at pendingTier
	cooldown    int // days left before the next change may apply
}

// TValue runs the trend strategy over aligned series. dates and every
// closes column must have equal length. base holds the full target weight
// set including any cash/bond buffers; buffer assets carry no signal of
// their own. The first change can fire no earlier than the long window plus
// the fast-move window, whichever ends later.
func TValue(dates []time.Time, closes map[string][]float64, base map[string]float64, p Params) ([]WeightChange, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.FastMoveWindow <= 0 {
		p.FastMoveWindow = defaultFastMoveWindow
	}
	if p.FastMoveThreshold <= 0 {
		p.FastMoveThreshold = defaultFastMoveThreshold
	}

	riskCodes := make([]string, 0, len(base))
	for code := range base {
		if code == p.CashCode || code == p.BondCode {
			continue
		}
		riskCodes = append(riskCodes, code)
	}
	sort.Strings(riskCodes)
	if len(riskCodes) == 0 {
		return nil, fmt.Errorf("no risk assets left after excluding buffers")
	}

	for _, code := range riskCodes {
		series, ok := closes[code]
		if !ok {
			return nil, fmt.Errorf("no price series for %s", code)
		}
		if len(series) != len(dates) {
			return nil, fmt.Errorf("series length mismatch for %s: %d closes, %d dates", code, len(series), len(dates))
		}
	}

	warmup := p.Long
	if p.FastMoveWindow+1 > warmup {
		warmup = p.FastMoveWindow + 1
	}
	if len(dates) <= warmup {
		return nil, nil
	}

	smaShort := make(map[string][]float64, len(riskCodes))
	smaMid := make(map[string][]float64, len(riskCodes))
	smaLong := make(map[string][]float64, len(riskCodes))
	for _, code := range riskCodes {
		smaShort[code] = talib.Sma(closes[code], p.Short)
		smaMid[code] = talib.Sma(closes[code], p.Mid)
		smaLong[code] = talib.Sma(closes[code], p.Long)
	}

	states := make(map[string]*assetState, len(riskCodes))
	for _, code := range riskCodes {
		// The initial allocation holds the base weights, tier 2 equivalent.
		states[code] = &assetState{tier: 2, pendingTier: 2}
	}

	var out []WeightChange
	for i := warmup; i < len(dates); i++ {
		changed := false
		reason := "tier_change"

		for _, code := range riskCodes {
			st := states[code]
			if st.cooldown > 0 {
				st.cooldown--
			}

			price := closes[code][i]
			tier := 0
			if aboveAvg(price, smaShort[code][i]) {
				tier++
			}
			if aboveAvg(price, smaMid[code][i]) {
				tier++
			}
			if aboveAvg(price, smaLong[code][i]) {
				tier++
			}

			if tier == st.pendingTier {
				st.streak++
			} else {
				st.pendingTier = tier
				st.streak = 1
			}

			if st.pendingTier == st.tier || st.cooldown > 0 {
				continue
			}

			fast := fastMove(closes[code], i, p.FastMoveWindow, p.FastMoveThreshold)
			if !fast && st.streak < p.ConfirmDays {
				continue
			}

			prev := st.tier
			st.tier = st.pendingTier
			st.cooldown = p.CooldownDays
			changed = true
			if fast {
				if st.tier > prev {
					reason = "fast_up"
				} else {
					reason = "fast_down"
				}
			}
		}

		if !changed {
			continue
		}
		weights := rebuildWeights(base, riskCodes, states, p)
		if len(weights) == 0 {
			// Every asset at tier 0 and no buffer to park in; hold as is.
			continue
		}
		out = append(out, WeightChange{
			Date:    dates[i],
			Weights: weights,
			Reason:  reason,
		})
	}

	return out, nil
}

// aboveAvg reports whether price sits above the average by more than the
// rounding noise of the running-sum SMA.
func aboveAvg(price, avg float64) bool {
	return price-avg > smaTolerance*math.Abs(avg)
}

// fastMove reports whether the trailing return over the window exceeds the
// threshold in magnitude.
func fastMove(series []float64, i, window int, threshold float64) bool {
	prev := series[i-window]
	if prev == 0 {
		return false
	}
	r := series[i]/prev - 1
	return r >= threshold || r <= -threshold
}

// rebuildWeights scales each risk asset's base weight by its tier factor and
// routes the freed (or borrowed) weight through the bond buffer first, then
// cash. Negative buffers clamp to zero; the simulator renormalizes, so an
// over-allocated tier-3 regime simply dilutes everything proportionally.
func rebuildWeights(base map[string]float64, riskCodes []string, states map[string]*assetState, p Params) map[string]float64 {
	out := make(map[string]float64, len(base))

	freed := 0.0
	for _, code := range riskCodes {
		scaled := base[code] * tierFactor[states[code].tier]
		freed += base[code] - scaled
		if scaled > 0 {
			out[code] = scaled
		}
	}

	bond := base[p.BondCode]
	cash := base[p.CashCode]
	if p.BondCode != "" {
		bond += freed
		if bond < 0 {
			cash += bond
			bond = 0
		}
	} else {
		cash += freed
	}
	if cash < 0 {
		cash = 0
	}

	if p.BondCode != "" && bond > 0 {
		out[p.BondCode] = bond
	}
	if p.CashCode != "" && cash > 0 {
		out[p.CashCode] = cash
	}
	return out
}
