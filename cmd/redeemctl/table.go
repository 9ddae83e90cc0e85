package main

import (
	"fmt"
	"os"
	"time"

	"redeem/internal/models"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
)

// renderRecord prints a record snapshot. Rich table output on a TTY,
// plain key/value lines otherwise so output stays parseable in scripts.
func renderRecord(snap *models.RedemptionSnapshot) string {
	if snap == nil {
		return ""
	}

	rows := [][2]string{
		{"Code", snap.Code},
		{"Status", snap.Status},
		{"Offer", snap.Offer.Title},
		{"Purchaser", snap.UserName},
		{"Email", snap.UserEmail},
		{"Regular price", fmt.Sprintf("$%.2f", snap.Pricing.RegularPrice)},
		{"Discount", fmt.Sprintf("%.0f%% (-$%.2f)", snap.Pricing.DiscountPercentage, snap.Pricing.DiscountAmount)},
		{"Paid", fmt.Sprintf("$%.2f", snap.Pricing.DiscountPrice)},
		{"Redeemed at", snap.RedeemedAt.Format(time.RFC3339)},
	}
	if snap.PointsSpent != nil {
		rows = append(rows, [2]string{"Points spent", fmt.Sprintf("%d", *snap.PointsSpent)})
	}
	if snap.UsedAt != nil {
		rows = append(rows, [2]string{"Used at", snap.UsedAt.Format(time.RFC3339)})
	}

	if !isatty.IsTerminal(os.Stdout.Fd()) {
		out := ""
		for _, row := range rows {
			out += fmt.Sprintf("%s: %s\n", row[0], row[1])
		}
		return out
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft},
		{Number: 2, Align: text.AlignLeft},
	})
	for _, row := range rows {
		tw.AppendRow(table.Row{row[0], row[1]})
	}
	return tw.Render()
}
