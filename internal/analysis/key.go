package analysis

import (
	"math"
	"strings"

	"github.com/cockroachdb/errors"
)

// UnknownKey is reported whenever a key cannot be derived from the chroma.
const UnknownKey = "Unknown"

const (
	KeyMethodParity  = "parity"
	KeyMethodProfile = "profile"
)

// KeyEstimator turns a 12xT chroma matrix into a "<Note> <major|minor>" label.
// Implementations never fail; degenerate input yields UnknownKey.
type KeyEstimator interface {
	EstimateKey(chroma [][]float64) string
}

// EstimatorFor resolves a method name to an estimator.
func EstimatorFor(method string) (KeyEstimator, error) {
	switch strings.ToLower(strings.TrimSpace(method)) {
	case "", KeyMethodParity:
		return ParityEstimator{}, nil
	case KeyMethodProfile:
		return ProfileEstimator{}, nil
	default:
		return nil, errors.Newf("unknown key estimation method %q", method)
	}
}

// ParityEstimator picks the strongest pitch class as the tonic and calls the
// key major when the tonic index is even, minor when odd. The mode rule has no
// music-theory basis; it is kept so labels match earlier analysis output.
type ParityEstimator struct{}

func (ParityEstimator) EstimateKey(chroma [][]float64) string {
	v, err := NewChromaVector(chroma)
	if err != nil {
		return UnknownKey
	}
	tonic := v.Tonic()
	mode := "major"
	if tonic%2 != 0 {
		mode = "minor"
	}
	return NoteNames[tonic%PitchClasses] + " " + mode
}

// Krumhansl-Kessler probe-tone profiles, indexed from the tonic.
var (
	majorProfile = [PitchClasses]float64{6.35, 2.23, 3.48, 2.33, 4.38, 4.09, 2.52, 5.19, 2.39, 3.66, 2.29, 2.88}
	minorProfile = [PitchClasses]float64{6.33, 2.68, 3.52, 5.38, 2.60, 3.53, 2.54, 4.75, 3.98, 2.69, 3.34, 3.17}
)

// ProfileEstimator correlates the chroma vector against all 24 rotations of
// the major and minor key profiles and reports the best match.
type ProfileEstimator struct{}

func (ProfileEstimator) EstimateKey(chroma [][]float64) string {
	v, err := NewChromaVector(chroma)
	if err != nil {
		return UnknownKey
	}

	bestScore := math.Inf(-1)
	label := UnknownKey
	for _, m := range []struct {
		name    string
		profile [PitchClasses]float64
	}{{"major", majorProfile}, {"minor", minorProfile}} {
		for tonic := 0; tonic < PitchClasses; tonic++ {
			var rotated [PitchClasses]float64
			for i := range rotated {
				rotated[i] = m.profile[(i-tonic+PitchClasses)%PitchClasses]
			}
			score := pearson(v[:], rotated[:])
			if math.IsNaN(score) {
				continue
			}
			if score > bestScore {
				bestScore = score
				label = NoteNames[tonic] + " " + m.name
			}
		}
	}
	return label
}

func pearson(a, b []float64) float64 {
	n := float64(len(a))
	var sa, sb float64
	for i := range a {
		sa += a[i]
		sb += b[i]
	}
	ma, mb := sa/n, sb/n

	var cov, va, vb float64
	for i := range a {
		da, db := a[i]-ma, b[i]-mb
		cov += da * db
		va += da * da
		vb += db * db
	}
	if va == 0 || vb == 0 {
		return math.NaN()
	}
	return cov / math.Sqrt(va*vb)
}
