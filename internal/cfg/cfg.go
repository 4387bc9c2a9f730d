package cfg

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"featsel/internal/common"
	"featsel/internal/model"
	"featsel/internal/prep"
	"featsel/internal/selection"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Settings struct {
	DataPath             string
	Target               string
	Poly                 prep.PolynomialOptions
	Scale                string
	VarianceThreshold    *float64
	CorrelationThreshold *float64
	WrapperK             *int
	WrapperStep          int
	Model                string
	Lasso                model.LassoConfig
	OutputPath           string
	StorePath            string
	MetricsFile          string
	LogLevel             string
}

type ConfigFile struct {
	Data struct {
		Path   string `yaml:"path"`
		Target string `yaml:"target"`
	} `yaml:"data"`

	Prep struct {
		Degree          int    `yaml:"degree"`
		InteractionOnly bool   `yaml:"interactionOnly"`
		Scale           string `yaml:"scale"`
	} `yaml:"prep"`

	Selection struct {
		VarianceThreshold    *float64 `yaml:"varianceThreshold"`
		CorrelationThreshold *float64 `yaml:"correlationThreshold"`
		WrapperK             *int     `yaml:"wrapperK"`
		WrapperStep          int      `yaml:"wrapperStep"`
	} `yaml:"selection"`

	Model struct {
		Kind  string            `yaml:"kind"`
		Lasso model.LassoConfig `yaml:"lasso"`
	} `yaml:"model"`

	Output struct {
		Path        string `yaml:"path"`
		StorePath   string `yaml:"storePath"`
		MetricsFile string `yaml:"metricsFile"`
	} `yaml:"output"`

	System struct {
		LogLevel string `yaml:"logLevel"`
	} `yaml:"system"`
}

// Load reads an optional .env file, then the YAML file named by CONFIG_FILE
// when set, and finally applies environment overrides.
func Load() (Settings, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Settings{}, fmt.Errorf("failed to load .env: %w", err)
	}

	if configPath := os.Getenv(common.EnvConfigFile); configPath != "" {
		return loadFromYAML(configPath)
	}
	return loadFromEnv()
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	lasso := config.Model.Lasso
	if lasso.Lambda == 0 {
		lasso.Lambda = common.DefaultLassoLambda
	}
	if lasso.MaxIter == 0 {
		lasso.MaxIter = common.DefaultLassoMaxIter
	}
	if lasso.Tol == 0 {
		lasso.Tol = common.DefaultLassoTol
	}

	settings := Settings{
		DataPath: getEnvOrDefault(common.EnvDataPath, config.Data.Path),
		Target:   getEnvOrDefault(common.EnvTarget, orDefault(config.Data.Target, common.DefaultTarget)),
		Poly: prep.PolynomialOptions{
			Degree:          getIntFromEnvOrConfig(common.EnvPolyDegree, config.Prep.Degree, common.DefaultPolyDegree),
			InteractionOnly: getBoolFromEnvOrConfig(common.EnvInteractionOnly, config.Prep.InteractionOnly),
		},
		Scale:       getEnvOrDefault(common.EnvScale, orDefault(config.Prep.Scale, common.DefaultScale)),
		WrapperStep: getIntFromEnvOrConfig(common.EnvWrapperStep, config.Selection.WrapperStep, 0),
		Model:       getEnvOrDefault(common.EnvModel, orDefault(config.Model.Kind, common.DefaultModel)),
		Lasso: model.LassoConfig{
			Lambda:  getFloatOrDefault(common.EnvLassoLambda, lasso.Lambda),
			MaxIter: getIntOrDefault(common.EnvLassoMaxIter, lasso.MaxIter),
			Tol:     lasso.Tol,
		},
		OutputPath:  getEnvOrDefault(common.EnvOutputPath, orDefault(config.Output.Path, common.DefaultOutputPath)),
		StorePath:   getEnvOrDefault(common.EnvStorePath, config.Output.StorePath),
		MetricsFile: getEnvOrDefault(common.EnvMetricsFile, config.Output.MetricsFile),
		LogLevel:    getEnvOrDefault(common.EnvLogLevel, orDefault(config.System.LogLevel, common.DefaultLogLevel)),
	}

	if settings.VarianceThreshold, err = getOptionalFloat(common.EnvVarianceThreshold, config.Selection.VarianceThreshold); err != nil {
		return Settings{}, err
	}
	if settings.CorrelationThreshold, err = getOptionalFloat(common.EnvCorrelationThreshold, config.Selection.CorrelationThreshold); err != nil {
		return Settings{}, err
	}
	if settings.WrapperK, err = getOptionalInt(common.EnvWrapperK, config.Selection.WrapperK); err != nil {
		return Settings{}, err
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return settings, nil
}

func loadFromEnv() (Settings, error) {
	settings := Settings{
		DataPath: os.Getenv(common.EnvDataPath),
		Target:   getEnvOrDefault(common.EnvTarget, common.DefaultTarget),
		Poly: prep.PolynomialOptions{
			Degree:          getIntOrDefault(common.EnvPolyDegree, common.DefaultPolyDegree),
			InteractionOnly: getBoolOrDefault(common.EnvInteractionOnly, false),
		},
		Scale:       getEnvOrDefault(common.EnvScale, common.DefaultScale),
		WrapperStep: getIntOrDefault(common.EnvWrapperStep, 0),
		Model:       getEnvOrDefault(common.EnvModel, common.DefaultModel),
		Lasso: model.LassoConfig{
			Lambda:  getFloatOrDefault(common.EnvLassoLambda, common.DefaultLassoLambda),
			MaxIter: getIntOrDefault(common.EnvLassoMaxIter, common.DefaultLassoMaxIter),
			Tol:     common.DefaultLassoTol,
		},
		OutputPath:  getEnvOrDefault(common.EnvOutputPath, common.DefaultOutputPath),
		StorePath:   os.Getenv(common.EnvStorePath), // optional
		MetricsFile: os.Getenv(common.EnvMetricsFile),
		LogLevel:    getEnvOrDefault(common.EnvLogLevel, common.DefaultLogLevel),
	}

	var err error
	if settings.VarianceThreshold, err = getOptionalFloat(common.EnvVarianceThreshold, selection.Float(common.DefaultVarianceThreshold)); err != nil {
		return Settings{}, err
	}
	if settings.CorrelationThreshold, err = getOptionalFloat(common.EnvCorrelationThreshold, nil); err != nil {
		return Settings{}, err
	}
	if settings.WrapperK, err = getOptionalInt(common.EnvWrapperK, nil); err != nil {
		return Settings{}, err
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return settings, nil
}

// Validate re-checks settings after command line overrides.
func (s *Settings) Validate() error {
	return validateSettings(s)
}

// Estimator builds the wrapper model named by Settings.Model.
func (s *Settings) Estimator() (selection.Estimator, error) {
	switch s.Model {
	case common.ModelOLS:
		return model.NewOLS(), nil
	case common.ModelLasso:
		return model.NewLasso(s.Lasso)
	default:
		return nil, fmt.Errorf("unknown model %q", s.Model)
	}
}

// SelectionConfig assembles the pipeline configuration.
func (s *Settings) SelectionConfig() (selection.Config, error) {
	c := selection.Config{
		VarianceThreshold:    s.VarianceThreshold,
		CorrelationThreshold: s.CorrelationThreshold,
		WrapperK:             s.WrapperK,
		WrapperStep:          s.WrapperStep,
	}
	if s.WrapperK != nil {
		est, err := s.Estimator()
		if err != nil {
			return selection.Config{}, err
		}
		c.Model = est
	}
	return c, c.Validate()
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

func getIntFromEnvOrConfig(key string, configValue, defaultValue int) int {
	if configValue != 0 {
		defaultValue = configValue
	}
	return getIntOrDefault(key, defaultValue)
}

func getBoolFromEnvOrConfig(key string, configValue bool) bool {
	return getBoolOrDefault(key, configValue)
}

// getOptionalFloat returns configValue unless the env key is set; the value
// "off" disables the setting.
func getOptionalFloat(key string, configValue *float64) (*float64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	switch {
	case v == "":
		return configValue, nil
	case strings.EqualFold(v, common.Disabled):
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return &f, nil
}

func getOptionalInt(key string, configValue *int) (*int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	switch {
	case v == "":
		return configValue, nil
	case strings.EqualFold(v, common.Disabled):
		return nil, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return &i, nil
}

// validateSettings performs comprehensive validation of configuration values
func validateSettings(settings *Settings) error {
	if settings.Target == "" {
		return fmt.Errorf("target column cannot be empty")
	}

	if settings.Poly.Degree < 1 || settings.Poly.Degree > common.MaxPolyDegree {
		return fmt.Errorf("polynomial degree must be between 1 and %d, got %d", common.MaxPolyDegree, settings.Poly.Degree)
	}

	switch settings.Scale {
	case common.ScaleNone, common.ScaleStandard, common.ScaleMinMax:
	default:
		return fmt.Errorf("scale must be one of none, standard, minmax, got %q", settings.Scale)
	}

	if t := settings.VarianceThreshold; t != nil && !(*t >= 0) {
		return fmt.Errorf("variance threshold must be >= 0, got %f", *t)
	}
	if t := settings.CorrelationThreshold; t != nil && !(*t > 0 && *t <= 1) {
		return fmt.Errorf("correlation threshold must be in (0, 1], got %f", *t)
	}
	if k := settings.WrapperK; k != nil && (*k < 1 || *k > common.MaxWrapperK) {
		return fmt.Errorf("wrapper k must be between 1 and %d, got %d", common.MaxWrapperK, *k)
	}
	if settings.WrapperStep < 0 {
		return fmt.Errorf("wrapper step must be >= 0, got %d", settings.WrapperStep)
	}

	switch settings.Model {
	case common.ModelOLS:
	case common.ModelLasso:
		if settings.Lasso.Lambda < 0 {
			return fmt.Errorf("lasso lambda must be >= 0, got %f", settings.Lasso.Lambda)
		}
		if settings.Lasso.MaxIter <= 0 {
			return fmt.Errorf("lasso max iterations must be > 0, got %d", settings.Lasso.MaxIter)
		}
	default:
		return fmt.Errorf("model must be %s or %s, got %q", common.ModelOLS, common.ModelLasso, settings.Model)
	}

	if settings.OutputPath == "" {
		return fmt.Errorf("output path cannot be empty")
	}
	return nil
}
