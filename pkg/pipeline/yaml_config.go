package pipeline

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// yamlConfig mirrors the subset of Config an operator can override from a
// batch/offline YAML file: an alternative to flags/env for
// runs that aren't driven interactively from the CLI. Every field is a
// pointer so an absent key in the file leaves the corresponding Config
// field at its default rather than zeroing it out.
type yamlConfig struct {
	MaxSpeakers       *int    `yaml:"max_speakers"`
	MaxSpeakersPolicy *string `yaml:"max_speakers_policy"`
	HeuristicsOnly    *bool   `yaml:"heuristics_only"`

	Normalize *struct {
		WindowSizeMS   *int64 `yaml:"window_size_ms"`
		WindowStrideMS *int64 `yaml:"window_stride_ms"`
		AnchorMS       *int64 `yaml:"anchor_ms"`
	} `yaml:"normalize"`

	Heuristic *struct {
		MicroTurnMS      *int64   `yaml:"micro_turn_ms"`
		FloorWindowMS    *int64   `yaml:"floor_window_ms"`
		BackchannelWords []string `yaml:"backchannel_words"`
	} `yaml:"heuristics"`

	Stage1 *struct {
		EditBudgetPct              *float64 `yaml:"edit_budget_pct"`
		WorkerConcurrency          *int     `yaml:"worker_concurrency"`
		RequestTimeoutMS           *int64   `yaml:"request_timeout_ms"`
		MaxTransportRetries        *int     `yaml:"max_transport_retries"`
		CostDeltaThresholdPerToken *float64 `yaml:"cost_delta_threshold_per_token"`
	} `yaml:"local_edit"`

	Reconcile *struct {
		DefaultExplicitConfidence *float64 `yaml:"default_explicit_confidence"`
		DefaultNullConfidence     *float64 `yaml:"default_null_confidence"`
		StableSpanMinMS           *int64   `yaml:"stable_span_ms"`
		StableSpanMinConfidence   *float64 `yaml:"stable_span_conf"`
		MinTurnDurationMS         *int64   `yaml:"min_turn_ms"`
		SwitchRateWindowMS        *int64   `yaml:"switch_rate_window_ms"`
		MaxSwitchesPerWindow      *int     `yaml:"max_switches_per_sec"`
		MaxIterations             *int     `yaml:"max_iterations"`
	} `yaml:"reconcile"`
}

// LoadYAMLConfig reads a YAML configuration file at path and overlays it
// onto DefaultConfig(), returning the merged result. Unset keys keep their
// default value; this is the CLI's `-config` flag target, an alternative
// to flags/env for batch/offline runs.
func LoadYAMLConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("pipeline: open config %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := loadYAMLConfigFromReader(f)
	if err != nil {
		return Config{}, fmt.Errorf("pipeline: parse config %q: %w", path, err)
	}
	return cfg, nil
}

func loadYAMLConfigFromReader(r io.Reader) (Config, error) {
	var yc yamlConfig
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&yc); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode yaml: %w", err)
	}

	cfg := DefaultConfig()

	if yc.MaxSpeakers != nil {
		cfg.MaxSpeakers = *yc.MaxSpeakers
	}
	if yc.MaxSpeakersPolicy != nil {
		cfg.MaxSpeakersPolicy = MaxSpeakersPolicy(*yc.MaxSpeakersPolicy)
	}
	if yc.HeuristicsOnly != nil {
		cfg.HeuristicsOnly = *yc.HeuristicsOnly
	}

	if n := yc.Normalize; n != nil {
		if n.WindowSizeMS != nil {
			cfg.Normalize.WindowSizeMS = *n.WindowSizeMS
		}
		if n.WindowStrideMS != nil {
			cfg.Normalize.WindowStrideMS = *n.WindowStrideMS
		}
		if n.AnchorMS != nil {
			cfg.Normalize.AnchorMS = *n.AnchorMS
		}
	}

	if h := yc.Heuristic; h != nil {
		if h.MicroTurnMS != nil {
			cfg.Heuristic.MicroTurnMS = *h.MicroTurnMS
		}
		if h.FloorWindowMS != nil {
			cfg.Heuristic.FloorWindowMS = *h.FloorWindowMS
		}
		if len(h.BackchannelWords) > 0 {
			words := make(map[string]bool, len(h.BackchannelWords))
			for _, w := range h.BackchannelWords {
				words[w] = true
			}
			cfg.Heuristic.BackchannelWords = words
		}
	}

	if s := yc.Stage1; s != nil {
		if s.EditBudgetPct != nil {
			cfg.Stage1.EditBudgetPct = *s.EditBudgetPct
		}
		if s.WorkerConcurrency != nil {
			cfg.Stage1.WorkerConcurrency = *s.WorkerConcurrency
		}
		if s.RequestTimeoutMS != nil {
			cfg.Stage1.RequestTimeout = time.Duration(*s.RequestTimeoutMS) * time.Millisecond
		}
		if s.MaxTransportRetries != nil {
			cfg.Stage1.MaxTransportRetries = *s.MaxTransportRetries
		}
		if s.CostDeltaThresholdPerToken != nil {
			cfg.Stage1.Validation.CostDeltaThresholdPerToken = *s.CostDeltaThresholdPerToken
		}
	}

	if rc := yc.Reconcile; rc != nil {
		if rc.DefaultExplicitConfidence != nil {
			cfg.Reconcile.DefaultExplicitConfidence = *rc.DefaultExplicitConfidence
		}
		if rc.DefaultNullConfidence != nil {
			cfg.Reconcile.DefaultNullConfidence = *rc.DefaultNullConfidence
		}
		if rc.StableSpanMinMS != nil {
			cfg.Reconcile.StableSpanMinMS = *rc.StableSpanMinMS
		}
		if rc.StableSpanMinConfidence != nil {
			cfg.Reconcile.StableSpanMinConfidence = *rc.StableSpanMinConfidence
		}
		if rc.MinTurnDurationMS != nil {
			cfg.Reconcile.MinTurnDurationMS = *rc.MinTurnDurationMS
		}
		if rc.SwitchRateWindowMS != nil {
			cfg.Reconcile.SwitchRateWindowMS = *rc.SwitchRateWindowMS
		}
		if rc.MaxSwitchesPerWindow != nil {
			cfg.Reconcile.MaxSwitchesPerWindow = *rc.MaxSwitchesPerWindow
		}
		if rc.MaxIterations != nil {
			cfg.Reconcile.MaxIterations = *rc.MaxIterations
		}
	}

	return cfg, nil
}
