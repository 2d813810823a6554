package analysis

import (
	"math"

	"github.com/cockroachdb/errors"
)

// PitchClasses is the number of chroma bins (C through B).
const PitchClasses = 12

// noiseFloor is the normalized magnitude at or below which a pitch class is
// treated as absent.
const noiseFloor = 0.2

// NoteNames maps a pitch-class index to its name, starting at C.
var NoteNames = [PitchClasses]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

var (
	ErrChromaShape  = errors.New("chroma must have 12 rows of equal, non-zero length")
	ErrSilentChroma = errors.New("chroma has no energy")
)

// ChromaVector is a per-pitch-class profile normalized so its peak is 1, with
// entries at or below the noise floor zeroed.
type ChromaVector [PitchClasses]float64

// MeanChroma averages a 12xT chroma matrix over time.
func MeanChroma(chroma [][]float64) ([]float64, error) {
	if len(chroma) != PitchClasses {
		return nil, errors.Wrapf(ErrChromaShape, "got %d rows", len(chroma))
	}
	frames := len(chroma[0])
	if frames == 0 {
		return nil, errors.Wrap(ErrChromaShape, "no frames")
	}

	out := make([]float64, PitchClasses)
	for i, row := range chroma {
		if len(row) != frames {
			return nil, errors.Wrapf(ErrChromaShape, "row %d has %d frames, want %d", i, len(row), frames)
		}
		var sum float64
		for _, v := range row {
			sum += v
		}
		out[i] = sum / float64(frames)
	}
	return out, nil
}

// NewChromaVector reduces a 12xT chroma matrix to a ChromaVector.
func NewChromaVector(chroma [][]float64) (ChromaVector, error) {
	var v ChromaVector

	mean, err := MeanChroma(chroma)
	if err != nil {
		return v, err
	}

	peak := math.Inf(-1)
	for _, m := range mean {
		if math.IsNaN(m) || math.IsInf(m, 0) {
			return v, errors.Newf("chroma mean is not finite: %v", m)
		}
		if m > peak {
			peak = m
		}
	}
	if peak <= 0 {
		return v, ErrSilentChroma
	}

	for i, m := range mean {
		n := m / peak
		if n > noiseFloor {
			v[i] = n
		}
	}
	return v, nil
}

// Tonic returns the index of the strongest pitch class; ties go to the lowest index.
func (c ChromaVector) Tonic() int {
	best := 0
	for i := 1; i < PitchClasses; i++ {
		if c[i] > c[best] {
			best = i
		}
	}
	return best
}
