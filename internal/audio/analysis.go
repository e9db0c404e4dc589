package audio

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/berndkaliwes-ai/Docker-lsg/internal/config"
)

var (
	ErrLowSNR   = errors.New("Low SNR")
	ErrClipping = errors.New("Clipping detected")
	ErrTooShort = errors.New("Audio too short")
)

const (
	// statsFrameMs is the window used for the level histogram behind the
	// SNR estimate.
	statsFrameMs = 20

	// noiseFloorDBFS bounds silent frames so decile means stay finite.
	noiseFloorDBFS = -96.0

	// clipThreshold marks a sample as clipped when its magnitude reaches
	// ~99.8% of full scale.
	clipThreshold = 32700
)

// Stats summarizes a clip's signal quality. SNR is estimated as the gap
// between the loudest and quietest decile of 20ms frame levels, which
// treats pauses between words as the noise floor.
type Stats struct {
	DurationSeconds float64
	RMS             float64
	Peak            float64
	SNR             float64
	ClippingRatio   float64
}

func Analyze(c *Clip) Stats {
	s := Stats{
		DurationSeconds: c.DurationSeconds(),
		RMS:             c.DBFS(),
		Peak:            math.Inf(-1),
	}
	if len(c.Samples) == 0 {
		return s
	}

	maxAbs := 0
	clipped := 0
	for _, v := range c.Samples {
		a := v
		if a < 0 {
			a = -a
		}
		if a > maxAbs {
			maxAbs = a
		}
		if a >= clipThreshold {
			clipped++
		}
	}
	if maxAbs > 0 {
		s.Peak = 20 * math.Log10(float64(maxAbs)/fullScale)
	}
	s.ClippingRatio = float64(clipped) / float64(len(c.Samples))

	frames := frameLevels(c, statsFrameMs)
	if len(frames) == 0 {
		return s
	}
	sort.Float64s(frames)
	decile := len(frames) / 10
	if decile < 1 {
		decile = 1
	}
	floor := mean(frames[:decile])
	ceiling := mean(frames[len(frames)-decile:])
	s.SNR = ceiling - floor
	return s
}

// CheckQuality returns nil when the clip is usable for TTS training, or
// a sentinel-wrapped error naming the reason it was rejected.
func CheckQuality(s Stats, q config.QualityParams) error {
	if q.MinDurationMs > 0 && s.DurationSeconds*1000 < float64(q.MinDurationMs) {
		return fmt.Errorf("%w: %.2fs is below the %dms minimum", ErrTooShort, s.DurationSeconds, q.MinDurationMs)
	}
	if math.IsNaN(s.SNR) || s.SNR < q.MinSNRDB {
		return fmt.Errorf("%w: estimated %.1f dB, need at least %.1f dB", ErrLowSNR, s.SNR, q.MinSNRDB)
	}
	if s.ClippingRatio > q.MaxClippingRatio {
		return fmt.Errorf("%w: %.2f%% of samples at full scale", ErrClipping, s.ClippingRatio*100)
	}
	return nil
}

// frameLevels returns the RMS level of each whole frame in dBFS, clamped
// to the representable noise floor. A clip shorter than one frame is
// measured as a single frame.
func frameLevels(c *Clip, frameMs int) []float64 {
	frameLen := c.sampleIndex(frameMs)
	if frameLen <= 0 || frameLen > len(c.Samples) {
		frameLen = len(c.Samples)
	}
	if frameLen == 0 {
		return nil
	}

	levels := make([]float64, 0, len(c.Samples)/frameLen)
	for start := 0; start+frameLen <= len(c.Samples); start += frameLen {
		level := rmsDBFS(c.Samples[start : start+frameLen])
		if level < noiseFloorDBFS {
			level = noiseFloorDBFS
		}
		levels = append(levels, level)
	}
	return levels
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
