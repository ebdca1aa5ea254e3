package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdk_trace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/jiaming2012/chart-trainer/src/backtester-api/models"
	"github.com/jiaming2012/chart-trainer/src/backtester-api/router"
	"github.com/jiaming2012/chart-trainer/src/backtester-api/services"
	"github.com/jiaming2012/chart-trainer/src/eventmodels"
	"github.com/jiaming2012/chart-trainer/src/eventpubsub"
	"github.com/jiaming2012/chart-trainer/src/logger"
	"github.com/jiaming2012/chart-trainer/src/utils"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Main: %v", err)
	}
}

// setupOTelSDK bootstraps the OpenTelemetry pipeline.
// If it does not return an error, make sure to call shutdown for proper cleanup.
func setupOTelSDK(ctx context.Context) (shutdown func(context.Context) error, err error) {
	var shutdownFuncs []func(context.Context) error

	// shutdown calls cleanup functions registered via shutdownFuncs.
	// The errors from the calls are joined.
	shutdown = func(ctx context.Context) error {
		var err error
		for _, fn := range shutdownFuncs {
			err = errors.Join(err, fn(ctx))
		}
		shutdownFuncs = nil
		return err
	}

	prop := propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	)
	otel.SetTextMapPropagator(prop)

	traceExporter, err := otlptrace.New(ctx, otlptracehttp.NewClient())
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx, resource.WithAttributes(attribute.String("service.name", "chart-trainer")))
	if err != nil {
		return nil, errors.Join(err, shutdown(ctx))
	}

	tracerProvider := sdk_trace.NewTracerProvider(
		sdk_trace.WithBatcher(traceExporter),
		sdk_trace.WithResource(res),
	)
	shutdownFuncs = append(shutdownFuncs, tracerProvider.Shutdown)
	otel.SetTracerProvider(tracerProvider)

	metricExporter, err := otlpmetrichttp.New(ctx)
	if err != nil {
		return nil, errors.Join(err, shutdown(ctx))
	}

	meterProvider := metric.NewMeterProvider(
		metric.WithReader(metric.NewPeriodicReader(metricExporter)),
		metric.WithResource(res),
	)
	shutdownFuncs = append(shutdownFuncs, meterProvider.Shutdown)
	otel.SetMeterProvider(meterProvider)

	if err = runtime.Start(runtime.WithMinimumReadMemStatsInterval(time.Second)); err != nil {
		return nil, errors.Join(fmt.Errorf("runtime.Start: %w", err), shutdown(ctx))
	}

	return shutdown, nil
}

func run() (err error) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up
	if err := utils.InitEnvironmentVariables(); err != nil {
		return fmt.Errorf("failed to init environment variables: %w", err)
	}

	configFile := utils.GetEnvOrDefault("SIMULATOR_CONFIG_FILE", "config.yaml")
	config, err := eventmodels.LoadSimulatorConfig(configFile)
	if err != nil {
		return err
	}

	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", configFile, err)
	}

	// Set up Telemetry
	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")

	if err := logger.Setup(config.Log.Level, config.Log.Format, otelEndpoint != ""); err != nil {
		return err
	}

	if otelEndpoint != "" {
		otelShutdown, otelErr := setupOTelSDK(ctx)
		if otelErr != nil {
			return fmt.Errorf("failed to setup otel sdk: %w", otelErr)
		}

		// Handle shutdown properly so nothing leaks.
		defer func() {
			err = errors.Join(err, otelShutdown(context.Background()))
		}()

		log.Infof("exporting telemetry to %s", otelEndpoint)
	}

	// Load the price series
	var polygonApiKey string
	if config.DataSource.Type == eventmodels.DataSourcePolygon {
		if polygonApiKey, err = utils.GetEnv("POLYGON_API_KEY"); err != nil {
			return err
		}
	}

	series, err := services.LoadPriceSeries(ctx, config.DataSource, polygonApiKey)
	if err != nil {
		return fmt.Errorf("failed to load price series: %w", err)
	}

	log.Infof("loaded %d bars from %s source", series.Len(), config.DataSource.Type)

	// Set up the simulator
	evaluator, err := models.NewPositionEvaluator(models.EvaluationMode(config.Evaluation.Mode), config.Evaluation.Window)
	if err != nil {
		return err
	}

	ledger := models.NewAccountLedger(config.Account.StartingBalance)
	bus := eventpubsub.NewBus()
	history := services.NewEvaluationHistory(config.HistorySize)

	simulator, err := services.NewSimulatorService(series, ledger, evaluator, bus, history)
	if err != nil {
		return err
	}

	// Setup router
	r := mux.NewRouter()
	if _, err := router.SetupHandler(r, simulator, config.Server.EvaluateRateLimit, config.Server.EvaluateBurst); err != nil {
		return err
	}

	srv := &http.Server{
		Handler: otelhttp.NewHandler(logger.AccessLog(r), "/"),
		Addr:    fmt.Sprintf(":%s", config.Server.Port),
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	serverErr := make(chan error, 1)

	// Start web server
	go func() {
		log.Infof("listening on :%s (mode=%s, starting balance=%.2f)", config.Server.Port, evaluator.GetMode(), ledger.GetStartingBalance())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Create channel for shutdown signals.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	log.Info("Main: init complete")

	// Block here until program is shut down
	select {
	case <-stop:
	case err := <-serverErr:
		return fmt.Errorf("failed to start server: %w", err)
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}

	log.Info("Main: gracefully stopped!")
	return nil
}
