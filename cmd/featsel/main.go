package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"featsel/internal/cfg"
	"featsel/internal/common"
	"featsel/internal/dataset"
	"featsel/internal/metrics"
	"featsel/internal/prep"
	"featsel/internal/report"
	"featsel/internal/selection"
	"featsel/internal/storage"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Parse command line arguments
	var (
		dataPath    = flag.String("data", "", "Path to the CSV dataset (overrides config)")
		target      = flag.String("target", "", "Target column name (overrides config)")
		degree      = flag.Int("degree", 0, "Polynomial expansion degree (overrides config)")
		scale       = flag.String("scale", "", "Scaling: none, standard, minmax (overrides config)")
		outputPath  = flag.String("output", "", "Output directory for reports (overrides config)")
		logLevel    = flag.String("log-level", "", "Log level: debug, info, warn, error")
		storePath   = flag.String("store", "", "Directory of the run history database")
		metricsFile = flag.String("metrics-file", "", "Write Prometheus metrics to this textfile")
	)
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Load configuration
	settings, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	// Override config with command line arguments
	if *dataPath != "" {
		settings.DataPath = *dataPath
	}
	if *target != "" {
		settings.Target = *target
	}
	if *degree != 0 {
		settings.Poly.Degree = *degree
	}
	if *scale != "" {
		settings.Scale = *scale
	}
	if *outputPath != "" {
		settings.OutputPath = *outputPath
	}
	if *logLevel != "" {
		settings.LogLevel = *logLevel
	}
	if *storePath != "" {
		settings.StorePath = *storePath
	}
	if *metricsFile != "" {
		settings.MetricsFile = *metricsFile
	}
	if err := settings.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	// Setup logging
	level, err := zerolog.ParseLevel(settings.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if settings.DataPath == "" {
		log.Fatal().Msg("No dataset given, use -data or DATA_PATH")
	}

	registry := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(registry)
	defer writeMetrics(settings.MetricsFile, registry)

	if err := run(settings, m); err != nil {
		writeMetrics(settings.MetricsFile, registry)
		log.Fatal().Err(err).Msg("Feature selection failed")
	}
}

func run(settings cfg.Settings, m *metrics.Metrics) error {
	ds, err := dataset.LoadCSV(settings.DataPath, settings.Target)
	if err != nil {
		return err
	}
	log.Info().
		Str("dataset", ds.Name).
		Int("rows", ds.Features.Rows()).
		Int("features", ds.Features.Cols()).
		Msg("Dataset loaded")

	features, err := prepare(ds.Features, settings)
	if err != nil {
		return err
	}

	selCfg, err := settings.SelectionConfig()
	if err != nil {
		return err
	}

	pipeline, err := selection.New(selCfg,
		selection.WithLogger(log.Logger.With().Str("dataset", ds.Name).Logger()),
		selection.WithMetrics(metrics.NewWrapper(m)),
	)
	if err != nil {
		return err
	}

	res, err := pipeline.Run(features, ds.Target)
	if err != nil {
		return err
	}
	m.RecordResult(len(res.Retained), res.ModelScore)

	runCfg := storage.RunConfig{
		Selection: selCfg,
		Degree:    settings.Poly.Degree,
		Scale:     settings.Scale,
	}
	if selCfg.WrapperK != nil {
		runCfg.Model = settings.Model
	}
	rec := storage.NewRunRecord(ds.Name, features.Rows(), features.Cols(), runCfg, res, time.Now())

	reporter := report.NewReporter(rec, settings.OutputPath)
	if err := reporter.GenerateReport(); err != nil {
		return err
	}
	reporter.PrintSummary(os.Stdout)

	if settings.StorePath != "" {
		if err := saveRun(settings.StorePath, rec); err != nil {
			return err
		}
	}
	return nil
}

// prepare applies polynomial expansion and scaling.
func prepare(features *selection.FeatureMatrix, settings cfg.Settings) (*selection.FeatureMatrix, error) {
	var err error
	if settings.Poly.Degree > 1 {
		features, err = prep.PolynomialFeatures(features, settings.Poly)
		if err != nil {
			return nil, fmt.Errorf("polynomial expansion: %w", err)
		}
		log.Info().Int("degree", settings.Poly.Degree).Int("features", features.Cols()).Msg("Expanded features")
	}

	switch settings.Scale {
	case common.ScaleStandard:
		features, err = prep.Standardize(features)
	case common.ScaleMinMax:
		features, err = prep.MinMaxScale(features)
	}
	if err != nil {
		return nil, fmt.Errorf("scaling: %w", err)
	}
	return features, nil
}

func saveRun(dir string, rec storage.RunRecord) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}
	store, err := storage.New(dir)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.SaveRun(rec); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	history, err := store.GetRuns(rec.Dataset, time.Unix(0, 0), rec.Timestamp)
	if err != nil {
		return err
	}
	records, err := store.GetFeatureRecords(rec.Dataset, time.Unix(0, 0), rec.Timestamp)
	if err != nil {
		return err
	}
	rates := storage.RetentionRates(records)
	for _, name := range rec.Retained {
		log.Debug().Str("feature", name).Float64("retention", rates[name]).Msg("Feature retention across runs")
	}
	log.Info().Str("id", rec.ID).Int("runs", len(history)).Msg("Run saved")
	return nil
}

func writeMetrics(path string, registry *prometheus.Registry) {
	if path == "" {
		return
	}
	if err := metrics.WriteTextfile(path, registry); err != nil {
		log.Error().Err(err).Str("file", path).Msg("Failed to write metrics")
	}
}
