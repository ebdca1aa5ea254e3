package eventmodels

import (
	"fmt"
	"strings"
	"time"
)

var calendarDateLayouts = []string{
	CalendarDateLayout,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"01/02/2006",
	"1/2/2006",
}

type CsvPriceBarDTO struct {
	Date  string  `csv:"Date"`
	Open  float64 `csv:"Open"`
	High  float64 `csv:"High"`
	Low   float64 `csv:"Low"`
	Close float64 `csv:"Close"`
}

// ParseCalendarDate accepts the layouts commonly found in exported chart data and
// truncates the result to midnight UTC.
func ParseCalendarDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range calendarDateLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return NormalizeCalendarDate(t), nil
		}
	}

	return time.Time{}, fmt.Errorf("ParseCalendarDate: unrecognized date %q", value)
}

func NormalizeCalendarDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (c *CsvPriceBarDTO) ToModel() (PriceBar, error) {
	date, err := ParseCalendarDate(c.Date)
	if err != nil {
		return PriceBar{}, fmt.Errorf("CsvPriceBarDTO.ToModel: %w", err)
	}

	return PriceBar{
		Date:  date,
		Open:  c.Open,
		High:  c.High,
		Low:   c.Low,
		Close: c.Close,
	}, nil
}
