package analytics

import (
	"strings"
	"time"
)

type Period string

const (
	PeriodToday      Period = "Hoje"
	Period7Days      Period = "7 dias"
	Period15Days     Period = "15 dias"
	Period30Days     Period = "30 dias"
	Period3Months    Period = "3 meses"
	Period6Months    Period = "6 meses"
	Period1Year      Period = "1 ano"
	PeriodCustom     Period = "Customizado"
	customDateLayout        = "2006-01-02"
)

// Periods lists every label the dashboard offers, in display order.
var Periods = []Period{
	PeriodToday, Period7Days, Period15Days, Period30Days,
	Period3Months, Period6Months, Period1Year, PeriodCustom,
}

var periodAliases = map[string]Period{
	"hoje":        PeriodToday,
	"today":       PeriodToday,
	"7 dias":      Period7Days,
	"7d":          Period7Days,
	"week":        Period7Days,
	"15 dias":     Period15Days,
	"15d":         Period15Days,
	"30 dias":     Period30Days,
	"30d":         Period30Days,
	"month":       Period30Days,
	"3 meses":     Period3Months,
	"3m":          Period3Months,
	"quarter":     Period3Months,
	"6 meses":     Period6Months,
	"6m":          Period6Months,
	"1 ano":       Period1Year,
	"1y":          Period1Year,
	"year":        Period1Year,
	"customizado": PeriodCustom,
	"custom":      PeriodCustom,
}

// ParsePeriod maps a label or alias to a Period. Unknown labels resolve to
// PeriodToday, matching the engine's fallback window.
func ParsePeriod(value string) (Period, bool) {
	p, ok := periodAliases[strings.ToLower(strings.TrimSpace(value))]
	if !ok {
		return PeriodToday, false
	}
	return p, true
}

// CustomRange carries the user-picked bounds of PeriodCustom, as YYYY-MM-DD.
type CustomRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(999*time.Millisecond), t.Location())
}

// ResolveRange turns a period label into an inclusive [start, end] window
// relative to now. now should already be in the reporting location.
func ResolveRange(period Period, custom *CustomRange, now time.Time) DateRange {
	today := DateRange{Start: startOfDay(now), End: endOfDay(now)}

	switch period {
	case Period7Days:
		return DateRange{Start: startOfDay(now.AddDate(0, 0, -7)), End: today.End}
	case Period15Days:
		return DateRange{Start: startOfDay(now.AddDate(0, 0, -15)), End: today.End}
	case Period30Days:
		return DateRange{Start: startOfDay(now.AddDate(0, 0, -30)), End: today.End}
	case Period3Months:
		return DateRange{Start: startOfDay(now.AddDate(0, -3, 0)), End: today.End}
	case Period6Months:
		return DateRange{Start: startOfDay(now.AddDate(0, -6, 0)), End: today.End}
	case Period1Year:
		return DateRange{Start: startOfDay(now.AddDate(-1, 0, 0)), End: today.End}
	case PeriodCustom:
		if custom == nil {
			return today
		}
		start, okStart := parseCustomDate(custom.Start, now.Location())
		end, okEnd := parseCustomDate(custom.End, now.Location())
		if !okStart || !okEnd {
			return today
		}
		return DateRange{Start: startOfDay(start), End: endOfDay(end)}
	default:
		return today
	}
}

func parseCustomDate(value string, loc *time.Location) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	if parsed, err := time.ParseInLocation(customDateLayout, value, loc); err == nil {
		return parsed, true
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return parsed.In(loc), true
	}
	return time.Time{}, false
}

// FilterOrdersByDate keeps the orders whose timestamp falls inside r, in input
// order.
func FilterOrdersByDate(orders []Order, r DateRange) []Order {
	out := make([]Order, 0, len(orders))
	for _, order := range orders {
		if r.Contains(order.Timestamp) {
			out = append(out, order)
		}
	}
	return out
}
