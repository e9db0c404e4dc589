// Package audio implements the PCM stages of the dataset pipeline:
// signal statistics, quality gating, and silence-based segmentation of
// mono 16-bit clips.
package audio

import (
	"fmt"
	"math"
	"os"
	"time"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// fullScale is the largest magnitude a signed 16-bit sample can hold.
const fullScale = 32768.0

// Clip is a mono 16-bit PCM stream held in memory.
type Clip struct {
	Samples    []int
	SampleRate int
}

// ReadWAV decodes path into a Clip. The pipeline normalizes every input
// to mono 16-bit PCM before this point, so anything else is an error.
func ReadWAV(path string) (*Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if buf.Format == nil {
		return nil, fmt.Errorf("decode %s: missing format chunk", path)
	}
	if buf.Format.NumChannels != 1 {
		return nil, fmt.Errorf("decode %s: expected mono, got %d channels", path, buf.Format.NumChannels)
	}
	if dec.BitDepth != 16 {
		return nil, fmt.Errorf("decode %s: expected 16-bit PCM, got %d-bit", path, dec.BitDepth)
	}

	return &Clip{Samples: buf.Data, SampleRate: buf.Format.SampleRate}, nil
}

// WriteWAV encodes the clip as a 16-bit mono PCM WAV file at path.
func (c *Clip) WriteWAV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	enc := wav.NewEncoder(f, c.SampleRate, 16, 1, 1)
	buf := &gaudio.IntBuffer{
		Format:         &gaudio.Format{NumChannels: 1, SampleRate: c.SampleRate},
		Data:           c.Samples,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("finalize %s: %w", path, err)
	}
	return f.Close()
}

func (c *Clip) Duration() time.Duration {
	if c.SampleRate == 0 {
		return 0
	}
	return time.Duration(int64(len(c.Samples))) * time.Second / time.Duration(c.SampleRate)
}

func (c *Clip) DurationSeconds() float64 {
	if c.SampleRate == 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(c.SampleRate)
}

// DBFS is the RMS level of the whole clip relative to full scale.
// A digitally silent clip reports negative infinity.
func (c *Clip) DBFS() float64 {
	return rmsDBFS(c.Samples)
}

// Slice returns the samples between startMs and endMs as a new Clip.
// The returned clip shares the backing array.
func (c *Clip) Slice(startMs, endMs int) *Clip {
	lo := c.sampleIndex(startMs)
	hi := c.sampleIndex(endMs)
	if lo < 0 {
		lo = 0
	}
	if hi > len(c.Samples) {
		hi = len(c.Samples)
	}
	if hi < lo {
		hi = lo
	}
	return &Clip{Samples: c.Samples[lo:hi], SampleRate: c.SampleRate}
}

func (c *Clip) lengthMs() int {
	if c.SampleRate == 0 {
		return 0
	}
	return int(int64(len(c.Samples)) * 1000 / int64(c.SampleRate))
}

func (c *Clip) sampleIndex(ms int) int {
	return int(int64(ms) * int64(c.SampleRate) / 1000)
}

func rmsDBFS(samples []int) float64 {
	if len(samples) == 0 {
		return math.Inf(-1)
	}
	var sum float64
	for _, s := range samples {
		v := float64(s)
		sum += v * v
	}
	rms := math.Sqrt(sum / float64(len(samples)))
	if rms == 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(rms/fullScale)
}
