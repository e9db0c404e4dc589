package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Pipeline holds the audio processing tunables. They ship with defaults
// that match the original dataset recipe and can be overridden from a
// YAML file passed with --config.
type Pipeline struct {
	Audio        AudioParams        `yaml:"audio"`
	Quality      QualityParams      `yaml:"quality"`
	Segmentation SegmentationParams `yaml:"segmentation"`
}

type AudioParams struct {
	TargetSampleRate int `yaml:"target_sample_rate"`
}

type QualityParams struct {
	MinSNRDB         float64 `yaml:"min_snr_db"`
	MaxClippingRatio float64 `yaml:"max_clipping_ratio"`
	MinDurationMs    int     `yaml:"min_duration_ms"`
}

type SegmentationParams struct {
	MinSilenceMs      int     `yaml:"min_silence_ms"`
	KeepSilenceMs     int     `yaml:"keep_silence_ms"`
	ThresholdOffsetDB float64 `yaml:"threshold_offset_db"`
	SeekStepMs        int     `yaml:"seek_step_ms"`
	MaxSegmentMs      int     `yaml:"max_segment_ms"`
}

func DefaultPipeline() Pipeline {
	return Pipeline{
		Audio: AudioParams{
			TargetSampleRate: 22050,
		},
		Quality: QualityParams{
			MinSNRDB:         15,
			MaxClippingRatio: 0.01,
			MinDurationMs:    0,
		},
		Segmentation: SegmentationParams{
			MinSilenceMs:      500,
			KeepSilenceMs:     250,
			ThresholdOffsetDB: 14,
			SeekStepMs:        10,
			MaxSegmentMs:      0,
		},
	}
}

// LoadPipeline reads tunables from path, layered over the defaults.
// An empty path returns the defaults unchanged.
func LoadPipeline(path string) (Pipeline, error) {
	p := DefaultPipeline()
	if path == "" {
		return p, p.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Pipeline{}, fmt.Errorf("read pipeline config: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Pipeline{}, fmt.Errorf("parse pipeline config: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Pipeline{}, err
	}
	return p, nil
}

func (p *Pipeline) Validate() error {
	if err := p.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}
	if err := p.Quality.Validate(); err != nil {
		return fmt.Errorf("quality config: %w", err)
	}
	if err := p.Segmentation.Validate(); err != nil {
		return fmt.Errorf("segmentation config: %w", err)
	}
	return nil
}

func (a *AudioParams) Validate() error {
	if a.TargetSampleRate < 8000 || a.TargetSampleRate > 96000 {
		return fmt.Errorf("target_sample_rate must be between 8000 and 96000, got %d", a.TargetSampleRate)
	}
	return nil
}

func (q *QualityParams) Validate() error {
	if q.MinSNRDB < 0 {
		return fmt.Errorf("min_snr_db must not be negative, got %g", q.MinSNRDB)
	}
	if q.MaxClippingRatio < 0 || q.MaxClippingRatio > 1 {
		return fmt.Errorf("max_clipping_ratio must be between 0 and 1, got %g", q.MaxClippingRatio)
	}
	if q.MinDurationMs < 0 {
		return fmt.Errorf("min_duration_ms must not be negative, got %d", q.MinDurationMs)
	}
	return nil
}

func (s *SegmentationParams) Validate() error {
	if s.MinSilenceMs <= 0 {
		return fmt.Errorf("min_silence_ms must be positive, got %d", s.MinSilenceMs)
	}
	if s.KeepSilenceMs < 0 {
		return fmt.Errorf("keep_silence_ms must not be negative, got %d", s.KeepSilenceMs)
	}
	if s.ThresholdOffsetDB <= 0 {
		return fmt.Errorf("threshold_offset_db must be positive, got %g", s.ThresholdOffsetDB)
	}
	if s.SeekStepMs <= 0 {
		return fmt.Errorf("seek_step_ms must be positive, got %d", s.SeekStepMs)
	}
	if s.MaxSegmentMs < 0 {
		return fmt.Errorf("max_segment_ms must not be negative, got %d", s.MaxSegmentMs)
	}
	if s.MaxSegmentMs > 0 && s.MaxSegmentMs < s.MinSilenceMs {
		return fmt.Errorf("max_segment_ms (%d) must not be smaller than min_silence_ms (%d)", s.MaxSegmentMs, s.MinSilenceMs)
	}
	return nil
}
