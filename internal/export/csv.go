// Package export renders a plan as a spreadsheet-friendly CSV document.
package export

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/i474232898/tabilog/internal/trip"
)

const bom = "\uFEFF"

var (
	itineraryHeader = []string{"日期", "星期", "地點", "時間", "活動名稱", "類型", "詳細說明", "備註", "預算/花費"}
	expenseHeader   = []string{"日期", "項目", "類別", "幣別", "金額", "匯率換算(約)"}
)

// CSV renders the itinerary and expenses as a BOM-prefixed UTF-8 CSV with
// an itinerary section followed by an expense section.
func CSV(days []trip.Day, expenses []trip.Expense, rate float64) []byte {
	var buf bytes.Buffer
	buf.WriteString(bom)

	buf.WriteString("行程規劃 Itinerary\n")
	writeRow(&buf, itineraryHeader)
	for _, day := range days {
		for _, act := range day.Activities {
			location := act.Location
			if location == "" {
				location = day.Location
			}
			writeRow(&buf, []string{
				day.Date,
				trip.Weekday(day.Date),
				quote(location),
				quote(act.Time),
				quote(act.Title),
				string(act.Type),
				quote(act.Description),
				quote(act.Notes),
				"",
			})
		}
	}

	buf.WriteString("\n\n")

	buf.WriteString("消費紀錄 Expenses\n")
	writeRow(&buf, expenseHeader)
	for _, exp := range expenses {
		writeRow(&buf, []string{
			exp.Date,
			quote(exp.Description),
			quote(exp.Category),
			string(exp.Currency),
			strconv.FormatFloat(exp.Amount, 'f', -1, 64),
			converted(exp, rate),
		})
	}

	return buf.Bytes()
}

// Filename is the download name for a plan export.
func Filename(title string) string {
	return fmt.Sprintf("%s_export.csv", title)
}

func writeRow(buf *bytes.Buffer, fields []string) {
	buf.WriteString(strings.Join(fields, ","))
	buf.WriteByte('\n')
}

// quote wraps free text in double quotes, doubling embedded quotes.
// Empty text stays an empty field.
func quote(text string) string {
	if text == "" {
		return ""
	}
	return `"` + strings.ReplaceAll(text, `"`, `""`) + `"`
}

func converted(exp trip.Expense, rate float64) string {
	amount, cur := exp.Converted(rate)
	symbol := "NT$"
	if cur == trip.CurrencyJPY {
		symbol = "¥"
	}
	return fmt.Sprintf("%s %d", symbol, int64(math.Round(amount)))
}
