// Package detector implements the suspicion indicators and their
// aggregation into an insider probability. All functions are pure over
// trade slices; malformed input degrades to a zero score rather than
// an error so one bad market never aborts a scan.
package detector

import (
	"math"
	"sort"
	"time"

	"github.com/marketsentinel/sentinel/internal/domain"
)

// clampScore bounds an indicator score to the 0-10 scale.
func clampScore(s float64) float64 {
	if math.IsNaN(s) || s < 0 {
		return 0
	}
	return math.Min(s, 10)
}

// Concentration scores how concentrated trading volume is across
// accounts using a Herfindahl index over per-address volume shares.
// Volume is measured in shares traded, not notional, so a position
// built at long odds weighs the same as one built at even odds.
// A single dominant account yields the maximum score of 10.
func Concentration(trades []domain.Trade) domain.IndicatorScore {
	if len(trades) == 0 {
		return domain.IndicatorScore{}
	}

	volumes := make(map[string]float64)
	var total float64
	for _, t := range trades {
		addr := t.Address()
		if addr == "" {
			continue
		}
		volumes[addr] += t.Size
		total += t.Size
	}
	if total <= 0 || len(volumes) == 0 {
		return domain.IndicatorScore{}
	}

	shares := make([]float64, 0, len(volumes))
	var herfindahl float64
	for _, v := range volumes {
		share := v / total
		herfindahl += share * share
		shares = append(shares, share)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(shares)))

	var top3 float64
	for i := 0; i < len(shares) && i < 3; i++ {
		top3 += shares[i]
	}

	return domain.IndicatorScore{
		Score: clampScore(herfindahl * 10),
		Details: map[string]float64{
			"herfindahl":       herfindahl,
			"unique_addresses": float64(len(volumes)),
			"top3_ratio":       top3,
			"total_volume":     total,
		},
	}
}

// Velocity scores the trading rate in trades per hour over the span of
// the supplied history. Fewer than two trades carry no rate signal.
func Velocity(trades []domain.Trade) domain.IndicatorScore {
	if len(trades) < 2 {
		return domain.IndicatorScore{}
	}

	sorted := sortedByTime(trades)
	span := sorted[len(sorted)-1].Timestamp.Sub(sorted[0].Timestamp).Hours()
	// Sub-6-minute bursts would otherwise divide by ~zero.
	if span < 0.1 {
		span = 0.1
	}
	perHour := float64(len(sorted)) / span

	cutoff := sorted[len(sorted)-1].Timestamp.Add(-24 * time.Hour)
	var recentCount int
	var recentVolume float64
	for _, t := range sorted {
		if !t.Timestamp.Before(cutoff) {
			recentCount++
			recentVolume += t.Size
		}
	}

	return domain.IndicatorScore{
		Score: clampScore(perHour / 10),
		Details: map[string]float64{
			"trades_per_hour": perHour,
			"time_span_hours": span,
			"total_trades":    float64(len(sorted)),
			"trades_24h":      float64(recentCount),
			"volume_24h":      recentVolume,
		},
	}
}

// OutcomeSkew scores how far the volume-weighted outcome distribution
// sits from an even split. A perfect 50/50 market scores zero; a
// market where one side takes all the volume scores 10.
func OutcomeSkew(trades []domain.Trade) domain.IndicatorScore {
	volumes := OutcomeVolumes(trades)
	if len(volumes) == 0 {
		return domain.IndicatorScore{}
	}

	var total, largest float64
	for _, v := range volumes {
		total += v
		if v > largest {
			largest = v
		}
	}
	if total <= 0 {
		return domain.IndicatorScore{}
	}

	share := largest / total
	return domain.IndicatorScore{
		Score: clampScore(math.Abs(share-0.5) * 20),
		Details: map[string]float64{
			"largest_share": share,
			"num_outcomes":  float64(len(volumes)),
			"total_volume":  total,
		},
	}
}

// OutcomeVolumes aggregates shares traded per outcome. Trades with a
// blank outcome are ignored.
func OutcomeVolumes(trades []domain.Trade) map[string]float64 {
	if len(trades) == 0 {
		return nil
	}
	volumes := make(map[string]float64)
	for _, t := range trades {
		if t.Outcome == "" {
			continue
		}
		volumes[t.Outcome] += t.Size
	}
	if len(volumes) == 0 {
		return nil
	}
	return volumes
}

// PriceMovement scores the volatility of successive fill prices via
// the mean and standard deviation of absolute relative price changes.
// Fewer than three trades cannot establish a movement pattern.
func PriceMovement(trades []domain.Trade) domain.IndicatorScore {
	if len(trades) < 3 {
		return domain.IndicatorScore{}
	}

	sorted := sortedByTime(trades)
	changes := make([]float64, 0, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		prev := sorted[i-1].Price
		if prev <= 0 {
			continue
		}
		changes = append(changes, math.Abs(sorted[i].Price-prev)/prev)
	}
	if len(changes) == 0 {
		return domain.IndicatorScore{}
	}

	var sum float64
	for _, c := range changes {
		sum += c
	}
	mean := sum / float64(len(changes))

	var stdev float64
	if len(changes) > 1 {
		var ss float64
		for _, c := range changes {
			d := c - mean
			ss += d * d
		}
		stdev = math.Sqrt(ss / float64(len(changes)-1))
	}

	return domain.IndicatorScore{
		Score: clampScore((mean + stdev) * 50),
		Details: map[string]float64{
			"avg_change": mean,
			"std_change": stdev,
			"num_moves":  float64(len(changes)),
		},
	}
}

// WhaleAccumulation scores how aggressively the fastest repeat account
// built its position, in shares per hour. Accounts with a single
// trade are not accumulation patterns.
func WhaleAccumulation(trades []domain.Trade) (domain.IndicatorScore, []domain.WhalePosition) {
	if len(trades) == 0 {
		return domain.IndicatorScore{}, nil
	}

	type acc struct {
		position float64
		count    int
		first    time.Time
		last     time.Time
	}
	byAddr := make(map[string]*acc)
	for _, t := range trades {
		addr := t.Address()
		if addr == "" {
			continue
		}
		a, ok := byAddr[addr]
		if !ok {
			a = &acc{first: t.Timestamp, last: t.Timestamp}
			byAddr[addr] = a
		}
		a.position += t.Size
		a.count++
		if t.Timestamp.Before(a.first) {
			a.first = t.Timestamp
		}
		if t.Timestamp.After(a.last) {
			a.last = t.Timestamp
		}
	}

	whales := make([]domain.WhalePosition, 0, len(byAddr))
	for addr, a := range byAddr {
		if a.count < 2 {
			continue
		}
		hours := a.last.Sub(a.first).Hours()
		if hours < 1 {
			hours = 1
		}
		whales = append(whales, domain.WhalePosition{
			Address:           addr,
			Position:          a.position,
			TradeCount:        a.count,
			FirstTrade:        a.first,
			LastTrade:         a.last,
			AccumulationSpeed: a.position / hours,
		})
	}
	if len(whales) == 0 {
		return domain.IndicatorScore{}, nil
	}

	sort.Slice(whales, func(i, j int) bool {
		return whales[i].AccumulationSpeed > whales[j].AccumulationSpeed
	})
	top := whales[0]

	score := domain.IndicatorScore{
		Score: clampScore(top.AccumulationSpeed / 100),
		Details: map[string]float64{
			"num_whales":   float64(len(whales)),
			"top_speed":    top.AccumulationSpeed,
			"top_position": top.Position,
		},
	}
	return score, whales
}

// sortedByTime returns a copy of trades in ascending timestamp order.
func sortedByTime(trades []domain.Trade) []domain.Trade {
	sorted := make([]domain.Trade, len(trades))
	copy(sorted, trades)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})
	return sorted
}
