// Package config describes a training run as a YAML document and builds the
// network, optimizer and learning-rate schedule it names.
package config

import (
	"embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/FlavioCFOliveira/deepgo/internal/layer"
	"github.com/FlavioCFOliveira/deepgo/internal/loss"
	"github.com/FlavioCFOliveira/deepgo/internal/net"
	"github.com/FlavioCFOliveira/deepgo/internal/opt"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is returned for a configuration that fails validation.
var ErrInvalid = errors.New("config: invalid")

//go:embed presets/*.yaml
var presetFS embed.FS

// Layer types.
const (
	LayerAffine         = "affine"
	LayerSigmoid        = "sigmoid"
	LayerTanh           = "tanh"
	LayerReLU           = "relu"
	LayerLeakyReLU      = "leaky_relu"
	LayerGELU           = "gelu"
	LayerSoftMax        = "softmax"
	LayerNormalSampling = "normal_sampling"
	LayerDropout        = "dropout"
)

// Loss names.
const (
	LossCrossEntropy       = "cross_entropy"
	LossBinaryCrossEntropy = "binary_cross_entropy"
	LossMSE                = "mse"
)

// Schedule types.
const (
	ScheduleConstant    = "constant"
	ScheduleTriangular  = "triangular"
	ScheduleTriangular2 = "triangular2"
	ScheduleStep        = "step"
	ScheduleExponential = "exponential"
)

// Config is a training run.
type Config struct {
	Name           string    `yaml:"name"`
	Seed           *int64    `yaml:"seed"`
	BatchSize      int       `yaml:"batch_size"`
	Epochs         int       `yaml:"epochs"`
	Clip           float64   `yaml:"clip"`
	Classification bool      `yaml:"classification"`
	Reconstruct    bool      `yaml:"reconstruct"`
	LogLevel       string    `yaml:"log_level"`
	Layers         []Layer   `yaml:"layers"`
	Loss           string    `yaml:"loss"`
	Optimizer      Optimizer `yaml:"optimizer"`
	Schedule       Schedule  `yaml:"schedule"`
	Data           Data      `yaml:"data"`
	Images         Images    `yaml:"images"`
	Noise          *Noise    `yaml:"noise"`
	History        string    `yaml:"history"`
}

// Layer configures one layer. Only the fields of its type are used.
type Layer struct {
	Type  string  `yaml:"type"`
	In    int     `yaml:"in"`
	Out   int     `yaml:"out"`
	Alpha float64 `yaml:"alpha"`
	Keep  float64 `yaml:"keep"`
	Exact bool    `yaml:"exact"`
}

// Optimizer selects adam or sgd. Zero betas and epsilon take Adam defaults.
type Optimizer struct {
	Type    string  `yaml:"type"`
	Beta1   float64 `yaml:"beta1"`
	Beta2   float64 `yaml:"beta2"`
	Epsilon float64 `yaml:"epsilon"`
}

// Schedule configures the learning rate per epoch.
type Schedule struct {
	Type     string  `yaml:"type"`
	Rate     float64 `yaml:"rate"`
	Base     float64 `yaml:"base"`
	Max      float64 `yaml:"max"`
	StepSize int     `yaml:"step_size"`
	StepUp   int     `yaml:"step_up"`
	StepDown int     `yaml:"step_down"`
	Gamma    float64 `yaml:"gamma"`
}

// Data holds dataset paths. Test is optional.
type Data struct {
	Train string `yaml:"train"`
	Test  string `yaml:"test"`
}

// Images configures sample dumps. An empty Dir disables them.
type Images struct {
	Dir         string `yaml:"dir"`
	Height      int    `yaml:"height"`
	Width       int    `yaml:"width"`
	Every       int    `yaml:"every"`
	Predictions int    `yaml:"predictions"`
	InputName   string `yaml:"input_name"`
	OutputName  string `yaml:"output_name"`
}

// Noise is the Gaussian noise added to inputs for denoising.
type Noise struct {
	Mean float64 `yaml:"mean"`
	Std  float64 `yaml:"std"`
}

// Parse decodes a YAML document, applies defaults and validates it.
// Unknown keys are rejected.
func Parse(r io.Reader) (*Config, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var c Config
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Load reads and parses the file at path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Preset returns one of the built-in configurations.
func Preset(name string) (*Config, error) {
	f, err := presetFS.Open("presets/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("%w: unknown preset %q (have %s)", ErrInvalid, name, strings.Join(Presets(), ", "))
	}
	defer f.Close()
	return Parse(f)
}

// Presets lists the built-in configuration names.
func Presets() []string {
	entries, _ := presetFS.ReadDir("presets")
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names
}

// ApplyDefaults fills unset optional fields. It is idempotent.
func (c *Config) ApplyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Optimizer.Type == "" {
		c.Optimizer.Type = "adam"
	}
	if c.Optimizer.Type == "adam" {
		def := opt.NewAdam()
		if c.Optimizer.Beta1 == 0 {
			c.Optimizer.Beta1 = def.Beta1
		}
		if c.Optimizer.Beta2 == 0 {
			c.Optimizer.Beta2 = def.Beta2
		}
		if c.Optimizer.Epsilon == 0 {
			c.Optimizer.Epsilon = def.Epsilon
		}
	}
	if c.Schedule.Type == "" {
		c.Schedule.Type = ScheduleConstant
	}
	if c.Schedule.Type == ScheduleConstant && c.Schedule.Rate == 0 {
		c.Schedule.Rate = net.DefaultLearningRate
	}
	if c.Images.Dir != "" {
		if c.Images.InputName == "" {
			c.Images.InputName = "input"
		}
		if c.Images.OutputName == "" {
			c.Images.OutputName = "output"
		}
	}
}

// Validate reports every problem found, wrapped in ErrInvalid.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.BatchSize <= 0 {
		add("batch_size must be positive, got %d", c.BatchSize)
	}
	if c.Epochs <= 0 {
		add("epochs must be positive, got %d", c.Epochs)
	}
	if c.Clip < 0 {
		add("clip must not be negative, got %v", c.Clip)
	}
	if _, err := c.Level(); err != nil {
		add("log_level: %v", err)
	}

	if len(c.Layers) == 0 {
		add("at least one layer is required")
	}
	for i, l := range c.Layers {
		if err := l.validate(); err != nil {
			add("layers[%d]: %v", i, err)
		}
	}

	switch c.Loss {
	case LossCrossEntropy, LossBinaryCrossEntropy, LossMSE:
	default:
		add("unknown loss %q", c.Loss)
	}

	switch c.Optimizer.Type {
	case "sgd":
	case "adam":
		if _, err := opt.NewAdamWith(c.Optimizer.Beta1, c.Optimizer.Beta2, c.Optimizer.Epsilon); err != nil {
			add("optimizer: %v", err)
		}
	default:
		add("unknown optimizer %q", c.Optimizer.Type)
	}

	if err := c.Schedule.validate(); err != nil {
		add("schedule: %v", err)
	}

	if c.Data.Train == "" {
		add("data.train is required")
	}
	if c.Images.Dir != "" && (c.Images.Height <= 0 || c.Images.Width <= 0) {
		add("images: height and width must be positive")
	}
	if c.Noise != nil && c.Noise.Std < 0 {
		add("noise.std must not be negative, got %v", c.Noise.Std)
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}

func (l Layer) validate() error {
	switch l.Type {
	case LayerAffine:
		if l.In <= 0 || l.Out <= 0 {
			return fmt.Errorf("affine needs positive in and out, got %d -> %d", l.In, l.Out)
		}
	case LayerDropout:
		if l.Keep < 0 || l.Keep > 1 {
			return fmt.Errorf("dropout keep must be in [0, 1], got %v", l.Keep)
		}
	case LayerSigmoid, LayerTanh, LayerReLU, LayerLeakyReLU, LayerGELU, LayerSoftMax, LayerNormalSampling:
	default:
		return fmt.Errorf("unknown layer type %q", l.Type)
	}
	return nil
}

func (s Schedule) validate() error {
	switch s.Type {
	case ScheduleConstant:
		if s.Rate <= 0 {
			return fmt.Errorf("rate must be positive, got %v", s.Rate)
		}
	case ScheduleTriangular, ScheduleTriangular2:
		if s.Base < 0 || s.Max < s.Base {
			return fmt.Errorf("need 0 <= base <= max, got base %v max %v", s.Base, s.Max)
		}
		if s.Type == ScheduleTriangular && s.StepSize <= 0 {
			return fmt.Errorf("step_size must be positive, got %d", s.StepSize)
		}
		if s.Type == ScheduleTriangular2 && (s.StepUp < 0 || s.StepDown < 0 || s.StepUp+s.StepDown <= 0) {
			return fmt.Errorf("step_up and step_down must be non-negative with a positive sum")
		}
	case ScheduleStep, ScheduleExponential:
		if s.Rate <= 0 {
			return fmt.Errorf("rate must be positive, got %v", s.Rate)
		}
		if s.Gamma <= 0 || s.Gamma > 1 {
			return fmt.Errorf("gamma must be in (0, 1], got %v", s.Gamma)
		}
		if s.Type == ScheduleStep && s.StepSize <= 0 {
			return fmt.Errorf("step_size must be positive, got %d", s.StepSize)
		}
	default:
		return fmt.Errorf("unknown schedule %q", s.Type)
	}
	return nil
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var lvl slog.Level
	err := lvl.UnmarshalText([]byte(c.LogLevel))
	return lvl, err
}

// Rand returns a generator seeded from Seed, or from the clock when unset.
func (c *Config) Rand() *rand.Rand {
	seed := time.Now().UnixNano()
	if c.Seed != nil {
		seed = *c.Seed
	}
	return rand.New(rand.NewSource(seed))
}

// Scheduler returns the configured learning-rate schedule.
func (c *Config) Scheduler() opt.Scheduler {
	s := c.Schedule
	switch s.Type {
	case ScheduleTriangular:
		return opt.NewTriangularCyclic(s.Base, s.Max, s.StepSize)
	case ScheduleTriangular2:
		return opt.NewTriangular2Cyclic(s.Base, s.Max, s.StepUp, s.StepDown)
	case ScheduleStep:
		return opt.NewStepDecay(s.Rate, s.Gamma, s.StepSize)
	case ScheduleExponential:
		return opt.ExponentialDecay{Initial: s.Rate, Gamma: s.Gamma}
	}
	return opt.Constant{Rate: s.Rate}
}

// NewOptimizer returns a fresh optimizer of the configured type.
func (c *Config) NewOptimizer() (opt.Optimizer, error) {
	if c.Optimizer.Type == "sgd" {
		return opt.NewSGD(), nil
	}
	a, err := opt.NewAdamWith(c.Optimizer.Beta1, c.Optimizer.Beta2, c.Optimizer.Epsilon)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return a, nil
}

// NewLoss returns the configured loss.
func (c *Config) NewLoss() (loss.Loss, error) {
	switch c.Loss {
	case LossCrossEntropy:
		return loss.CrossEntropy{}, nil
	case LossBinaryCrossEntropy:
		return loss.BinaryCrossEntropy{}, nil
	case LossMSE:
		return loss.MeanSquaredError{}, nil
	}
	return nil, fmt.Errorf("%w: unknown loss %q", ErrInvalid, c.Loss)
}

// NewLayers constructs the layers, drawing initial weights and noise from rng.
func (c *Config) NewLayers(rng *rand.Rand) ([]layer.Layer, error) {
	layers := make([]layer.Layer, 0, len(c.Layers))
	for i, l := range c.Layers {
		var (
			ly  layer.Layer
			err error
		)
		switch l.Type {
		case LayerAffine:
			ly, err = layer.NewAffine(l.In, l.Out, rng)
		case LayerSigmoid:
			ly = layer.NewSigmoid()
		case LayerTanh:
			ly = layer.NewTanh()
		case LayerReLU:
			ly = layer.NewReLU()
		case LayerLeakyReLU:
			ly = layer.NewLeakyReLU(l.Alpha)
		case LayerGELU:
			ly = layer.NewGELU()
		case LayerSoftMax:
			ly = layer.NewSoftMax()
		case LayerNormalSampling:
			ly = layer.NewNormalSampling(rng, l.Exact)
		case LayerDropout:
			ly, err = layer.NewDropout(l.Keep, rng)
		default:
			err = fmt.Errorf("%w: unknown layer type %q", ErrInvalid, l.Type)
		}
		if err != nil {
			return nil, fmt.Errorf("layers[%d]: %w", i, err)
		}
		layers = append(layers, ly)
	}
	return layers, nil
}

// Build constructs the network the configuration describes.
func (c *Config) Build(rng *rand.Rand) (*net.Network, error) {
	layers, err := c.NewLayers(rng)
	if err != nil {
		return nil, err
	}
	l, err := c.NewLoss()
	if err != nil {
		return nil, err
	}
	o, err := c.NewOptimizer()
	if err != nil {
		return nil, err
	}
	return net.New(layers, l, o)
}

// FitConfig returns the training-loop settings. Transform and Eval are left
// for the caller, which owns the data.
func (c *Config) FitConfig() net.FitConfig {
	return net.FitConfig{
		Epochs:         c.Epochs,
		BatchSize:      c.BatchSize,
		Schedule:       c.Scheduler(),
		Clip:           c.Clip,
		Reconstruct:    c.Reconstruct,
		Classification: c.Classification,
	}
}
