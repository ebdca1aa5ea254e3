package eventmodels

import "time"

// CalendarDateLayout is the canonical representation of a bar's date.
const CalendarDateLayout = "2006-01-02"

type PriceBar struct {
	Date  time.Time
	Open  float64
	High  float64
	Low   float64
	Close float64
}

type PriceBarDTO struct {
	Date  string  `json:"Date"`
	Open  float64 `json:"Open"`
	High  float64 `json:"High"`
	Low   float64 `json:"Low"`
	Close float64 `json:"Close"`
}

func (b PriceBar) ToDTO() PriceBarDTO {
	return PriceBarDTO{
		Date:  b.Date.Format(CalendarDateLayout),
		Open:  b.Open,
		High:  b.High,
		Low:   b.Low,
		Close: b.Close,
	}
}

func PriceBarsToDTO(bars []PriceBar) []PriceBarDTO {
	out := make([]PriceBarDTO, 0, len(bars))
	for _, b := range bars {
		out = append(out, b.ToDTO())
	}

	return out
}
