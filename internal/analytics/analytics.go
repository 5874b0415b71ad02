package analytics

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/dmartell/tradejournal/internal/types"
)

const dateLayout = "2006-01-02"

// Period is the relative time filter applied to metrics, evaluated against
// the current moment.
type Period string

const (
	PeriodAll   Period = "all"
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// ParsePeriod maps a query value to a Period. An empty value means all-time.
func ParsePeriod(value string) (Period, error) {
	switch Period(value) {
	case "", PeriodAll:
		return PeriodAll, nil
	case PeriodDay, PeriodWeek, PeriodMonth, PeriodYear:
		return Period(value), nil
	}
	return "", fmt.Errorf("unknown period %q", value)
}

// BalancePoint is one point of the balance-evolution series.
type BalancePoint struct {
	Date    string  `json:"date"`
	Balance float64 `json:"balance"`
}

// Metrics is the aggregate performance view for one period. The window
// applies to the trade counts, sums and averages; TotalProfit and
// GlobalProfitPercentage are always computed over the entire entry log.
type Metrics struct {
	Period                 Period  `json:"period"`
	TotalTrades            int     `json:"total_trades"`
	ProfitTrades           int     `json:"profit_trades"`
	LossTrades             int     `json:"loss_trades"`
	ProfitPercentage       float64 `json:"profit_percentage"`
	AvgProfit              float64 `json:"avg_profit"`
	AvgLoss                float64 `json:"avg_loss"`
	RiskRewardRatio        float64 `json:"risk_reward_ratio"`
	GlobalProfitPercentage float64 `json:"global_profit_percentage"`
	TotalProfit            float64 `json:"total_profit"`
	TotalProfitAmount      float64 `json:"total_profit_amount"`
	TotalLossAmount        float64 `json:"total_loss_amount"`
}

// EvolutionSeries reconstructs the balance history from the entry log and
// the current total. No historical snapshots are stored, so the starting
// balance is derived by subtracting every entry amount from the current
// total, then replayed in date order. The series opens with a synthetic
// point at the earlier of the first entry date and three months ago (now
// when the journal is empty), and closes with a synthetic point for today
// when today is not already the last entry date.
//
// Pure function of its inputs: recomputing yields an identical series.
func EvolutionSeries(entries []types.TradeEntry, totalBalance float64, now time.Time) []BalancePoint {
	sorted := make([]types.TradeEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date < sorted[j].Date
	})

	var sum float64
	for _, entry := range sorted {
		sum += entry.Amount
	}
	balance := totalBalance - sum

	startDate := now
	if len(sorted) > 0 {
		if parsed, err := time.Parse(dateLayout, sorted[0].Date); err == nil {
			startDate = parsed
		}
	}
	threeMonthsAgo := now.AddDate(0, -3, 0)
	firstDate := threeMonthsAgo
	if startDate.Before(threeMonthsAgo) {
		firstDate = startDate
	}

	series := []BalancePoint{{
		Date:    firstDate.Format(dateLayout),
		Balance: balance,
	}}

	for _, entry := range sorted {
		balance += entry.Amount
		series = append(series, BalancePoint{
			Date:    entry.Date,
			Balance: balance,
		})
	}

	today := now.Format(dateLayout)
	if series[len(series)-1].Date != today {
		series = append(series, BalancePoint{
			Date:    today,
			Balance: totalBalance,
		})
	}

	return series
}

// ComputeMetrics partitions the entries matching the period into profit and
// loss trades and derives the aggregate figures. The global profit
// percentage divides by the reconstructed initial balance; when that is
// zero the result is not finite, matching the observed behavior of the
// system this journal mirrors.
func ComputeMetrics(entries []types.TradeEntry, totalBalance float64, period Period, now time.Time) Metrics {
	cutoff, bounded := periodCutoff(period, now)

	var filtered []types.TradeEntry
	for _, entry := range entries {
		if !bounded {
			filtered = append(filtered, entry)
			continue
		}
		parsed, err := time.Parse(dateLayout, entry.Date)
		if err == nil && parsed.After(cutoff) {
			filtered = append(filtered, entry)
		}
	}

	var profitCount, lossCount int
	var profitSum, lossSum float64
	for _, entry := range filtered {
		switch {
		case entry.Amount > 0:
			profitCount++
			profitSum += entry.Amount
		case entry.Amount < 0:
			lossCount++
			lossSum += entry.Amount
		}
	}
	lossMagnitude := math.Abs(lossSum)

	totalMovement := profitSum + lossMagnitude
	var profitPercentage float64
	if totalMovement > 0 {
		profitPercentage = profitSum / totalMovement * 100
	}

	var avgProfit, avgLoss float64
	if profitCount > 0 {
		avgProfit = profitSum / float64(profitCount)
	}
	if lossCount > 0 {
		avgLoss = lossMagnitude / float64(lossCount)
	}
	var riskReward float64
	if avgLoss > 0 {
		riskReward = avgProfit / avgLoss
	}

	var allSum float64
	for _, entry := range entries {
		allSum += entry.Amount
	}
	initialBalance := totalBalance - allSum
	globalProfitPercentage := (totalBalance - initialBalance) / math.Abs(initialBalance) * 100

	return Metrics{
		Period:                 period,
		TotalTrades:            len(filtered),
		ProfitTrades:           profitCount,
		LossTrades:             lossCount,
		ProfitPercentage:       profitPercentage,
		AvgProfit:              avgProfit,
		AvgLoss:                avgLoss,
		RiskRewardRatio:        riskReward,
		GlobalProfitPercentage: globalProfitPercentage,
		TotalProfit:            allSum,
		TotalProfitAmount:      profitSum,
		TotalLossAmount:        lossMagnitude,
	}
}

// periodCutoff returns the inclusive-exclusive window start for a period.
// The all-time period has no bound.
func periodCutoff(period Period, now time.Time) (time.Time, bool) {
	switch period {
	case PeriodDay:
		return now.AddDate(0, 0, -1), true
	case PeriodWeek:
		return now.AddDate(0, 0, -7), true
	case PeriodMonth:
		return now.AddDate(0, -1, 0), true
	case PeriodYear:
		return now.AddDate(-1, 0, 0), true
	}
	return time.Time{}, false
}
