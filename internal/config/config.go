package config

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"digitforge/internal/dataset"
	"digitforge/internal/logging"
	"digitforge/internal/model"
)

// EnvPrefix prefixes environment overrides, e.g. DIGITFORGE_MLP_ALPHA.
const EnvPrefix = "digitforge"

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config captures the runtime knobs for a pipeline run.
type Config struct {
	Data    DataConfig     `mapstructure:"data"`
	Split   SplitConfig    `mapstructure:"split"`
	MLP     MLPConfig      `mapstructure:"mlp"`
	Preview PreviewConfig  `mapstructure:"preview"`
	Log     logging.Config `mapstructure:"log"`
}

// DataConfig selects the sample source. For the builtin source Path is the
// directory the handwritten digits are cached in (empty means the user cache
// directory) and URL is where a missing copy is downloaded from.
type DataConfig struct {
	Source string `mapstructure:"source"`
	Path   string `mapstructure:"path"`
	URL    string `mapstructure:"url"`
}

// SplitConfig controls the train/evaluation partition.
type SplitConfig struct {
	TestFraction float64 `mapstructure:"test_fraction"`
	// Seed 0 draws a fresh partition on every run.
	Seed int64 `mapstructure:"seed"`
}

// MLPConfig holds classifier hyperparameters.
type MLPConfig struct {
	Hidden           []int   `mapstructure:"hidden"`
	Activation       string  `mapstructure:"activation"`
	Alpha            float64 `mapstructure:"alpha"`
	Solver           string  `mapstructure:"solver"`
	Tol              float64 `mapstructure:"tol"`
	LearningRateInit float64 `mapstructure:"learning_rate_init"`
	MaxIter          int     `mapstructure:"max_iter"`
	BatchSize        int     `mapstructure:"batch_size"`
	Momentum         float64 `mapstructure:"momentum"`
	Nesterov         bool    `mapstructure:"nesterov"`
	NIterNoChange    int     `mapstructure:"n_iter_no_change"`
	Seed             int64   `mapstructure:"seed"`
	Verbose          bool    `mapstructure:"verbose"`
}

// PreviewConfig controls the rendered sample strip.
type PreviewConfig struct {
	Path  string `mapstructure:"path"`
	Count int    `mapstructure:"count"`
}

// Params converts the MLP section into model hyperparameters.
func (c MLPConfig) Params() model.Params {
	return model.Params{
		Hidden:       append([]int(nil), c.Hidden...),
		Activation:   c.Activation,
		Alpha:        c.Alpha,
		Solver:       c.Solver,
		LearningRate: c.LearningRateInit,
		Momentum:     c.Momentum,
		Nesterov:     c.Nesterov,
		Seed:         c.Seed,
	}
}

var defaults = map[string]interface{}{
	"data.source":            string(dataset.SourceBuiltin),
	"data.path":              "",
	"data.url":               dataset.DigitsURL,
	"split.test_fraction":    0.5,
	"split.seed":             0,
	"mlp.hidden":             []int{50},
	"mlp.activation":         "logistic",
	"mlp.alpha":              1e-4,
	"mlp.solver":             "sgd",
	"mlp.tol":                1e-4,
	"mlp.learning_rate_init": 0.1,
	"mlp.max_iter":           200,
	"mlp.batch_size":         0,
	"mlp.momentum":           0.9,
	"mlp.nesterov":           true,
	"mlp.n_iter_no_change":   10,
	"mlp.seed":               1,
	"mlp.verbose":            true,
	"preview.path":           "",
	"preview.count":          4,
	"log.level":              "info",
	"log.file":               "",
}

// FlagKeys maps CLI flag names to config keys.
var FlagKeys = map[string]string{
	"source":        "data.source",
	"data":          "data.path",
	"data-url":      "data.url",
	"test-fraction": "split.test_fraction",
	"split-seed":    "split.seed",
	"hidden":        "mlp.hidden",
	"activation":    "mlp.activation",
	"alpha":         "mlp.alpha",
	"solver":        "mlp.solver",
	"tol":           "mlp.tol",
	"learning-rate": "mlp.learning_rate_init",
	"max-iter":      "mlp.max_iter",
	"seed":          "mlp.seed",
	"verbose":       "mlp.verbose",
	"preview":       "preview.path",
	"log-level":     "log.level",
	"log-file":      "log.file",
}

// Default returns the configuration with every default applied.
func Default() *Config {
	cfg, err := Load("", nil)
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load layers defaults, the YAML file at path (if any), DIGITFORGE_*
// environment variables and changed flags, in increasing precedence, then
// validates the result.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, "read config")
		}
	}

	if flags != nil {
		for name, key := range FlagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, errors.Wrapf(err, "bind flag %s", name)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate verifies the config is runnable.
func (c *Config) Validate() error {
	if c == nil {
		return errors.Wrap(ErrInvalid, "config is nil")
	}
	switch dataset.Source(c.Data.Source) {
	case dataset.SourceBuiltin:
	case dataset.SourceCSV, dataset.SourceShards:
		if c.Data.Path == "" {
			return errors.Wrapf(ErrInvalid, "data.path is required for source %s", c.Data.Source)
		}
	default:
		return errors.Wrapf(ErrInvalid, "data.source %q is not one of builtin, csv, shards", c.Data.Source)
	}
	if !(c.Split.TestFraction > 0 && c.Split.TestFraction < 1) {
		return errors.Wrapf(ErrInvalid, "split.test_fraction must be in (0,1) (got %v)", c.Split.TestFraction)
	}
	if err := c.MLP.Params().Validate(); err != nil {
		return errors.Wrap(ErrInvalid, err.Error())
	}
	if c.MLP.Tol <= 0 {
		return errors.Wrapf(ErrInvalid, "mlp.tol must be > 0 (got %v)", c.MLP.Tol)
	}
	if c.MLP.MaxIter <= 0 {
		return errors.Wrapf(ErrInvalid, "mlp.max_iter must be > 0 (got %d)", c.MLP.MaxIter)
	}
	if c.MLP.BatchSize < 0 {
		return errors.Wrapf(ErrInvalid, "mlp.batch_size must be >= 0 (got %d)", c.MLP.BatchSize)
	}
	if c.MLP.NIterNoChange <= 0 {
		return errors.Wrapf(ErrInvalid, "mlp.n_iter_no_change must be > 0 (got %d)", c.MLP.NIterNoChange)
	}
	if c.Preview.Count < 0 {
		return errors.Wrapf(ErrInvalid, "preview.count must be >= 0 (got %d)", c.Preview.Count)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrap(ErrInvalid, err.Error())
	}
	return nil
}
