package audio

import (
	"math"

	"github.com/berndkaliwes-ai/Docker-lsg/internal/config"
)

// Span is a half-open range of milliseconds within a clip.
type Span struct {
	StartMs int
	EndMs   int
}

// Segment is a voiced slice of a source clip, padded with a margin of
// the surrounding silence.
type Segment struct {
	Clip    *Clip
	StartMs int
	EndMs   int
}

func (s Segment) StartSeconds() float64 {
	return float64(s.StartMs) / 1000
}

func (s Segment) EndSeconds() float64 {
	return float64(s.EndMs) / 1000
}

func (s Segment) DurationSeconds() float64 {
	return float64(s.EndMs-s.StartMs) / 1000
}

// SplitOnSilence cuts the clip at silences of at least MinSilenceMs,
// keeping KeepSilenceMs of padding on both sides of every voiced span.
// The silence threshold floats with the clip: a window is silent when
// its RMS sits ThresholdOffsetDB below the whole-clip level. A fully
// silent clip yields no segments; a clip without a qualifying silence
// yields one segment. When neighbouring padded spans overlap, the
// overlap is shared at its midpoint, so segments never duplicate audio.
func SplitOnSilence(c *Clip, p config.SegmentationParams) []Segment {
	step := p.SeekStepMs
	if step <= 0 {
		step = 1
	}
	threshold := c.DBFS() - p.ThresholdOffsetDB

	voiced := DetectNonSilent(c, p.MinSilenceMs, threshold, step)
	if len(voiced) == 0 {
		return nil
	}

	lengthMs := c.lengthMs()
	padded := make([]Span, len(voiced))
	for i, v := range voiced {
		padded[i] = Span{v.StartMs - p.KeepSilenceMs, v.EndMs + p.KeepSilenceMs}
	}
	for i := 0; i < len(padded)-1; i++ {
		if padded[i].EndMs > padded[i+1].StartMs {
			mid := (padded[i].EndMs + padded[i+1].StartMs) / 2
			padded[i].EndMs = mid
			padded[i+1].StartMs = mid
		}
	}

	var out []Segment
	for _, sp := range padded {
		start := max(sp.StartMs, 0)
		end := min(sp.EndMs, lengthMs)
		if end <= start {
			continue
		}
		for _, piece := range splitOversized(Span{start, end}, p.MaxSegmentMs) {
			out = append(out, Segment{
				Clip:    c.Slice(piece.StartMs, piece.EndMs),
				StartMs: piece.StartMs,
				EndMs:   piece.EndMs,
			})
		}
	}
	return out
}

// DetectNonSilent returns the voiced spans of the clip. A region is
// silent when every minSilenceMs window inside it stays at or below
// thresholdDBFS.
func DetectNonSilent(c *Clip, minSilenceMs int, thresholdDBFS float64, seekStepMs int) []Span {
	lengthMs := c.lengthMs()
	if lengthMs == 0 {
		return nil
	}

	silent := detectSilence(c, minSilenceMs, thresholdDBFS, seekStepMs)
	if len(silent) == 0 {
		return []Span{{0, lengthMs}}
	}
	if silent[0].StartMs == 0 && silent[0].EndMs == lengthMs {
		return nil
	}

	var voiced []Span
	prevEnd := 0
	for _, s := range silent {
		voiced = append(voiced, Span{prevEnd, s.StartMs})
		prevEnd = s.EndMs
	}
	if silent[len(silent)-1].EndMs != lengthMs {
		voiced = append(voiced, Span{prevEnd, lengthMs})
	}
	if len(voiced) > 0 && voiced[0].StartMs == 0 && voiced[0].EndMs == 0 {
		voiced = voiced[1:]
	}
	return voiced
}

// detectSilence slides a minSilenceMs window across the clip in
// seekStepMs steps and merges consecutive quiet windows into spans.
func detectSilence(c *Clip, minSilenceMs int, thresholdDBFS float64, seekStepMs int) []Span {
	lengthMs := c.lengthMs()
	if lengthMs < minSilenceMs {
		return nil
	}

	// comparisons happen on linear RMS in sample space
	threshold := math.Pow(10, thresholdDBFS/20) * fullScale
	if math.IsInf(thresholdDBFS, -1) {
		threshold = 0
	}

	prefix := make([]float64, len(c.Samples)+1)
	for i, v := range c.Samples {
		f := float64(v)
		prefix[i+1] = prefix[i] + f*f
	}
	windowRMS := func(startMs int) float64 {
		lo := c.sampleIndex(startMs)
		hi := c.sampleIndex(startMs + minSilenceMs)
		if hi > len(c.Samples) {
			hi = len(c.Samples)
		}
		if hi <= lo {
			return 0
		}
		return math.Sqrt((prefix[hi] - prefix[lo]) / float64(hi-lo))
	}

	lastStart := lengthMs - minSilenceMs
	starts := make([]int, 0, lastStart/seekStepMs+2)
	for ms := 0; ms <= lastStart; ms += seekStepMs {
		starts = append(starts, ms)
	}
	if lastStart%seekStepMs != 0 {
		starts = append(starts, lastStart)
	}

	var silentStarts []int
	for _, ms := range starts {
		if windowRMS(ms) <= threshold {
			silentStarts = append(silentStarts, ms)
		}
	}
	if len(silentStarts) == 0 {
		return nil
	}

	// windows merge while contiguous; a gap shorter than the window
	// itself still belongs to the same silence
	var spans []Span
	rangeStart := silentStarts[0]
	prev := silentStarts[0]
	for _, cur := range silentStarts[1:] {
		continuous := cur == prev+seekStepMs
		hasGap := cur > prev+minSilenceMs
		if !continuous && hasGap {
			spans = append(spans, Span{rangeStart, prev + minSilenceMs})
			rangeStart = cur
		}
		prev = cur
	}
	spans = append(spans, Span{rangeStart, prev + minSilenceMs})
	return spans
}

func splitOversized(sp Span, maxMs int) []Span {
	length := sp.EndMs - sp.StartMs
	if maxMs <= 0 || length <= maxMs {
		return []Span{sp}
	}
	n := (length + maxMs - 1) / maxMs
	size := (length + n - 1) / n
	out := make([]Span, 0, n)
	for start := sp.StartMs; start < sp.EndMs; start += size {
		out = append(out, Span{start, min(start+size, sp.EndMs)})
	}
	return out
}
