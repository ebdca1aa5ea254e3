package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gocarina/gocsv"
	polygon "github.com/polygon-io/client-go/rest"
	polygon_models "github.com/polygon-io/client-go/rest/models"
	log "github.com/sirupsen/logrus"

	"github.com/jiaming2012/chart-trainer/src/backtester-api/models"
	"github.com/jiaming2012/chart-trainer/src/eventmodels"
)

type PolygonSeriesSource struct {
	Client *polygon.Client
}

func (s *PolygonSeriesSource) FetchPriceSeries(ctx context.Context, symbol string, multiplier int, timespan string, from, to time.Time) (*models.PriceSeries, error) {
	log.Debugf("fetching polygon aggregates for %s from %s to %s", symbol, from.Format(eventmodels.CalendarDateLayout), to.Format(eventmodels.CalendarDateLayout))

	params := polygon_models.ListAggsParams{
		Ticker:     symbol,
		Multiplier: multiplier,
		Timespan:   polygon_models.Timespan(timespan),
		From:       polygon_models.Millis(from),
		To:         polygon_models.Millis(to),
	}.WithOrder(polygon_models.Asc).WithAdjusted(true)

	iter := s.Client.ListAggs(ctx, params)

	var bars []eventmodels.PriceBar
	for iter.Next() {
		agg := iter.Item()
		bars = append(bars, eventmodels.PriceBar{
			Date:  eventmodels.NormalizeCalendarDate(time.Time(agg.Timestamp)),
			Open:  agg.Open,
			High:  agg.High,
			Low:   agg.Low,
			Close: agg.Close,
		})
	}

	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("FetchPriceSeries: list aggs for %s: %w", symbol, err)
	}

	return models.NewPriceSeries(bars), nil
}

func NewPolygonSeriesSource(apiKey string) *PolygonSeriesSource {
	return &PolygonSeriesSource{
		Client: polygon.New(apiKey),
	}
}

func ReadPriceSeriesCsv(r io.Reader) (*models.PriceSeries, error) {
	var rows []*eventmodels.CsvPriceBarDTO
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("ReadPriceSeriesCsv: unmarshal: %w", err)
	}

	bars := make([]eventmodels.PriceBar, 0, len(rows))
	for i, row := range rows {
		bar, err := row.ToModel()
		if err != nil {
			return nil, fmt.Errorf("ReadPriceSeriesCsv: row %d: %w", i+1, err)
		}

		bars = append(bars, bar)
	}

	return models.NewPriceSeries(bars), nil
}

func ImportPriceSeriesFromCsv(path string) (*models.PriceSeries, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ImportPriceSeriesFromCsv: %w", err)
	}
	defer f.Close()

	series, err := ReadPriceSeriesCsv(f)
	if err != nil {
		return nil, fmt.Errorf("ImportPriceSeriesFromCsv: %s: %w", path, err)
	}

	log.Infof("Imported %d bars from %s", series.Len(), path)

	return series, nil
}

// LoadPriceSeries builds the series described by cfg. The series is loaded once at
// startup and never mutated afterwards.
func LoadPriceSeries(ctx context.Context, cfg eventmodels.DataSourceConfigYAML, polygonApiKey string) (*models.PriceSeries, error) {
	switch cfg.Type {
	case eventmodels.DataSourceCSV:
		return ImportPriceSeriesFromCsv(cfg.CSVFilename)
	case eventmodels.DataSourcePolygon:
		if polygonApiKey == "" {
			return nil, fmt.Errorf("LoadPriceSeries: $POLYGON_API_KEY not set")
		}

		from, err := eventmodels.ParseCalendarDate(cfg.From)
		if err != nil {
			return nil, fmt.Errorf("LoadPriceSeries: from: %w", err)
		}

		to, err := eventmodels.ParseCalendarDate(cfg.To)
		if err != nil {
			return nil, fmt.Errorf("LoadPriceSeries: to: %w", err)
		}

		return NewPolygonSeriesSource(polygonApiKey).FetchPriceSeries(ctx, cfg.Symbol, cfg.Multiplier, cfg.Timespan, from, to)
	default:
		return nil, fmt.Errorf("LoadPriceSeries: unknown data source %q", cfg.Type)
	}
}
