package analysis

import "github.com/cockroachdb/errors"

// MFCCCoefficients is the number of cepstral coefficients the extractor emits.
const MFCCCoefficients = 13

// Features is the raw frame-level output of the external extractor. Matrices
// are row-major: one row per bin/coefficient, one column per frame.
type Features struct {
	SampleRate        int         `json:"sample_rate"`
	Tempo             float64     `json:"tempo"`
	Beats             []float64   `json:"beats"`
	Chroma            [][]float64 `json:"chroma"`
	MFCC              [][]float64 `json:"mfcc"`
	SpectralContrast  [][]float64 `json:"spectral_contrast"`
	SpectralCentroid  []float64   `json:"spectral_centroid"`
	SpectralBandwidth []float64   `json:"spectral_bandwidth"`
	SpectralRolloff   []float64   `json:"spectral_rolloff"`
	RMS               []float64   `json:"rms"`

	Error string `json:"error,omitempty"`
}

// Validate checks the matrix shapes the result depends on.
func (f *Features) Validate() error {
	if f.Error != "" {
		return errors.Newf("extractor reported: %s", f.Error)
	}
	if len(f.Chroma) != PitchClasses {
		return errors.Newf("chroma has %d rows, want %d", len(f.Chroma), PitchClasses)
	}
	if len(f.MFCC) != MFCCCoefficients {
		return errors.Newf("mfcc has %d rows, want %d", len(f.MFCC), MFCCCoefficients)
	}
	return nil
}
