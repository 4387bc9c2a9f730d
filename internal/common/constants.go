package common

// Environment variable keys
const (
	EnvConfigFile           = "CONFIG_FILE"
	EnvDataPath             = "DATA_PATH"
	EnvTarget               = "TARGET"
	EnvPolyDegree           = "POLY_DEGREE"
	EnvInteractionOnly      = "INTERACTION_ONLY"
	EnvScale                = "SCALE"
	EnvVarianceThreshold    = "VARIANCE_THRESHOLD"
	EnvCorrelationThreshold = "CORRELATION_THRESHOLD"
	EnvWrapperK             = "WRAPPER_K"
	EnvWrapperStep          = "WRAPPER_STEP"
	EnvModel                = "MODEL"
	EnvLassoLambda          = "LASSO_LAMBDA"
	EnvLassoMaxIter         = "LASSO_MAX_ITER"
	EnvOutputPath           = "OUTPUT_PATH"
	EnvStorePath            = "STORE_PATH"
	EnvMetricsFile          = "METRICS_FILE"
	EnvLogLevel             = "LOG_LEVEL"
)

// Model kinds
const (
	ModelOLS   = "ols"
	ModelLasso = "lasso"
)

// Scaling modes
const (
	ScaleNone     = "none"
	ScaleStandard = "standard"
	ScaleMinMax   = "minmax"
)

// Configuration defaults
const (
	DefaultTarget            = "target"
	DefaultPolyDegree        = 1
	DefaultScale             = ScaleNone
	DefaultVarianceThreshold = 0.0
	DefaultModel             = ModelOLS
	DefaultLassoLambda       = 0.01
	DefaultLassoMaxIter      = 1000
	DefaultLassoTol          = 1e-6
	DefaultOutputPath        = "selection-out"
	DefaultLogLevel          = "info"
)

// Validation constants
const (
	MaxPolyDegree = 5
	MaxWrapperK   = 10000
)

// Disabled is the environment value that switches an optional stage off.
// In YAML a stage is off when its key is absent or null.
const Disabled = "off"
