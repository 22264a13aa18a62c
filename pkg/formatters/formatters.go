package formatters

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/shopspring/decimal"

	"github.com/StatArbTrader/pairs-bot/internal/models"
	"github.com/StatArbTrader/pairs-bot/internal/position"
	"github.com/StatArbTrader/pairs-bot/internal/stats"
)

// Colors for different values
var (
	ColorGreen  = text.FgGreen
	ColorRed    = text.FgRed
	ColorYellow = text.FgYellow
	ColorGray   = text.FgHiBlack
)

// FormatDollarAmount formats a dollar amount with appropriate color
func FormatDollarAmount(amount decimal.Decimal) string {
	amountStr := fmt.Sprintf("$%.2f", amount.Abs().InexactFloat64())

	if amount.IsNegative() {
		return ColorRed.Sprint("-" + amountStr)
	}
	return ColorGreen.Sprint(amountStr)
}

// FormatZScore colors a z-score by how far it sits from the entry band
func FormatZScore(z, entryThreshold float64) string {
	s := fmt.Sprintf("%+.3f", z)
	switch {
	case z >= entryThreshold || z <= -entryThreshold:
		return ColorRed.Sprint(s)
	case z >= entryThreshold/2 || z <= -entryThreshold/2:
		return ColorYellow.Sprint(s)
	default:
		return ColorGreen.Sprint(s)
	}
}

// FormatMode colors the position mode
func FormatMode(mode position.Mode) string {
	switch mode {
	case position.LongSpread:
		return ColorGreen.Sprint(string(mode))
	case position.ShortSpread:
		return ColorRed.Sprint(string(mode))
	default:
		return ColorGray.Sprint(string(mode))
	}
}

// FormatPairStatus renders the current pair state as a table
func FormatPairStatus(pair string, state position.State, sample stats.SpreadSample, entryThreshold float64) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)

	t.AppendRow(table.Row{"Pair", text.Bold.Sprint(pair)})
	t.AppendRow(table.Row{"Mode", FormatMode(state.Mode)})
	if state.EntryZScore != nil {
		t.AppendRow(table.Row{"Entry Z-Score", fmt.Sprintf("%+.3f", *state.EntryZScore)})
	}
	if state.EntryTime != nil {
		t.AppendRow(table.Row{"Entered At", state.EntryTime.Format(time.RFC3339)})
	}
	t.AppendSeparator()
	t.AppendRow(table.Row{"Spread", fmt.Sprintf("%.4f", sample.Spread)})
	t.AppendRow(table.Row{"Rolling Mean", fmt.Sprintf("%.4f", sample.RollingMean)})
	t.AppendRow(table.Row{"Rolling Std", fmt.Sprintf("%.4f", sample.RollingStd)})
	t.AppendRow(table.Row{"Z-Score", FormatZScore(sample.ZScore, entryThreshold)})

	return t.Render()
}

// FormatCointegration renders a cointegration verdict as a table
func FormatCointegration(pair string, verdict stats.CointegrationVerdict) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)

	result := ColorRed.Sprint("NOT COINTEGRATED")
	if verdict.IsCointegrated {
		result = ColorGreen.Sprint("COINTEGRATED")
	}

	t.AppendRow(table.Row{"Pair", text.Bold.Sprint(pair)})
	t.AppendRow(table.Row{"Result", result})
	t.AppendSeparator()
	t.AppendRow(table.Row{"P-Value", fmt.Sprintf("%.4f", verdict.PValue)})
	t.AppendRow(table.Row{"ADF Statistic", fmt.Sprintf("%.4f", verdict.TStat)})
	t.AppendRow(table.Row{"Hedge Ratio", fmt.Sprintf("%.4f", verdict.HedgeRatio)})
	t.AppendRow(table.Row{"Samples", verdict.Samples})

	return t.Render()
}

// FormatPositionsTable renders broker positions for the pair legs
func FormatPositionsTable(positions []*models.Position) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)

	t.AppendHeader(table.Row{"Symbol", "Qty", "Avg Cost", "Current", "P&L", "Value"})

	totalPL := decimal.Zero
	for _, pos := range positions {
		plColor := ColorGreen
		if pos.UnrealizedPL.IsNegative() {
			plColor = ColorRed
		}

		t.AppendRow(table.Row{
			pos.Symbol,
			pos.Qty.String(),
			fmt.Sprintf("$%.2f", pos.AvgEntryPrice.InexactFloat64()),
			fmt.Sprintf("$%.2f", pos.CurrentPrice.InexactFloat64()),
			plColor.Sprintf("$%.2f", pos.UnrealizedPL.InexactFloat64()),
			fmt.Sprintf("$%.2f", pos.MarketValue.InexactFloat64()),
		})
		totalPL = totalPL.Add(pos.UnrealizedPL)
	}

	if len(positions) == 0 {
		t.AppendRow(table.Row{"No open positions", "", "", "", "", ""})
	} else {
		t.AppendSeparator()
		t.AppendRow(table.Row{"TOTAL", "", "", "", FormatDollarAmount(totalPL), ""})
	}

	return t.Render()
}

// FormatAccount renders an account summary table
func FormatAccount(account *models.Account) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)

	dailyPL := account.Equity.Sub(account.LastEquity)
	dailyPLPercent := decimal.Zero
	if !account.LastEquity.IsZero() {
		dailyPLPercent = dailyPL.Div(account.LastEquity).Mul(decimal.NewFromInt(100))
	}

	t.AppendRow(table.Row{"Account Number", account.AccountNumber})
	t.AppendRow(table.Row{"Status", ColorGreen.Sprint(account.Status)})
	t.AppendSeparator()
	t.AppendRow(table.Row{"Equity", fmt.Sprintf("$%.2f", account.Equity.InexactFloat64())})
	t.AppendRow(table.Row{"Cash", fmt.Sprintf("$%.2f", account.Cash.InexactFloat64())})
	t.AppendRow(table.Row{"Buying Power", ColorGreen.Sprintf("$%.2f", account.BuyingPower.InexactFloat64())})
	t.AppendSeparator()
	t.AppendRow(table.Row{"Daily P&L", FormatDollarAmount(dailyPL)})
	t.AppendRow(table.Row{"Daily P&L %", fmt.Sprintf("%+.2f%%", dailyPLPercent.InexactFloat64())})

	return t.Render()
}
