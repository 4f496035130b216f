package cli

import (
	"fmt"
	"time"

	"mcxdesk/internal/models"
	"mcxdesk/pkg/utils"
)

// ChainView is the JSON form of a fetched chain.
type ChainView struct {
	Snapshot  *models.Snapshot         `json:"snapshot"`
	Analytics *models.AnalyticsSummary `json:"analytics"`
}

// renderChain prints the strike table in exchange order: puts on the left,
// calls on the right.
func renderChain(out *Output, snap *models.Snapshot) {
	if snap.Len() == 0 {
		out.Warning("No option chain data")
		return
	}

	out.Bold("%s %s  underlying %s  (%s)", snap.Instrument, snap.Expiry,
		utils.FormatFixed2(snap.UnderlyingValue), snap.FetchedAt.Format(time.RFC3339))

	table := NewTable(out,
		"PE OI", "PE Vol", "PE Chg", "PE LTP", "Strike", "CE LTP", "CE Chg", "CE Vol", "CE OI")
	for _, r := range snap.Records {
		table.AddRow(
			utils.FormatCount(r.Put.OI),
			utils.FormatCount(r.Put.Volume),
			out.Change(r.Put.AbsChange),
			utils.FormatFixed2(r.Put.LTP),
			utils.FormatStrike(r.Strike),
			utils.FormatFixed2(r.Call.LTP),
			out.Change(r.Call.AbsChange),
			utils.FormatCount(r.Call.Volume),
			utils.FormatCount(r.Call.OI),
		)
	}
	table.Render()
}

// renderAnalytics prints the analytics card.
func renderAnalytics(out *Output, a *models.AnalyticsSummary) {
	if a == nil {
		return
	}
	out.Box("Option Chain Analytics", []string{
		fmt.Sprintf("Underlying       %s", utils.FormatFixed2(a.UnderlyingValue)),
		fmt.Sprintf("Put/Call OI      %.2f  %s", a.PutCallRatio, out.Sentiment(a.Sentiment)),
		fmt.Sprintf("Volume ratio     %.2f", a.VolumeRatio),
		fmt.Sprintf("Turnover ratio   %.2f", a.TurnoverRatio),
		fmt.Sprintf("Total PE OI      %s", utils.FormatCount(a.TotalPEOI)),
		fmt.Sprintf("Total CE OI      %s", utils.FormatCount(a.TotalCEOI)),
		fmt.Sprintf("Max PE OI        %s @ %s", utils.FormatCount(a.MaxPEOI), utils.FormatStrike(a.MaxPEOIStrike)),
		fmt.Sprintf("Max CE OI        %s @ %s", utils.FormatCount(a.MaxCEOI), utils.FormatStrike(a.MaxCEOIStrike)),
		fmt.Sprintf("PE turnover      %s", utils.FormatCompact(a.TotalPETurnover)),
		fmt.Sprintf("CE turnover      %s", utils.FormatCompact(a.TotalCETurnover)),
		fmt.Sprintf("Avg abs change   PE %s  CE %s", utils.FormatFixed2(a.AvgPEAbsChange), utils.FormatFixed2(a.AvgCEAbsChange)),
	})
}

// renderAlerts prints the alert ring, newest first.
func renderAlerts(out *Output, alerts []models.PriceAlert) {
	if len(alerts) == 0 {
		out.Dim("No alerts")
		return
	}
	for _, a := range alerts {
		line := fmt.Sprintf("%s  %s", a.Timestamp.Format("15:04:05"), a.Summary())
		if a.Critical {
			out.Error("%s", line)
		} else {
			out.Warning("%s", line)
		}
	}
}
