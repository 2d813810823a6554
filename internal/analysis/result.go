package analysis

import "github.com/Bahadou-Badr/PhantomChain-Audio-Toolkit-Go/pkg/utils"

// AnalysisResult is the JSON summary printed by the features command.
type AnalysisResult struct {
	Tempo            float64          `json:"tempo"`
	SpectralCentroid float64          `json:"spectral_centroid"`
	RMS              float64          `json:"rms"`
	Key              string           `json:"key"`
	Beats            []float64        `json:"beats"`
	Melody           []float64        `json:"melody"`
	MFCC             []float64        `json:"mfcc"`
	SpectralFeatures SpectralFeatures `json:"spectral_features"`
}

type SpectralFeatures struct {
	Centroid  float64   `json:"centroid"`
	Bandwidth float64   `json:"bandwidth"`
	Contrast  []float64 `json:"contrast"`
	Rolloff   float64   `json:"rolloff"`
}

// BuildResult aggregates frame-level features into an AnalysisResult. All
// numbers are finite; NaN and Inf collapse to 0.
func BuildResult(f *Features, estimator KeyEstimator) *AnalysisResult {
	centroid := utils.FiniteOr(utils.Mean(f.SpectralCentroid), 0)

	return &AnalysisResult{
		Tempo:            utils.FiniteOr(f.Tempo, 0),
		SpectralCentroid: centroid,
		RMS:              utils.FiniteOr(utils.Mean(f.RMS), 0),
		Key:              estimator.EstimateKey(f.Chroma),
		Beats:            utils.FiniteSlice(f.Beats, 0),
		Melody:           utils.FiniteSlice(utils.RowMeans(f.Chroma), 0),
		MFCC:             utils.FiniteSlice(utils.RowMeans(f.MFCC), 0),
		SpectralFeatures: SpectralFeatures{
			Centroid:  centroid,
			Bandwidth: utils.FiniteOr(utils.Mean(f.SpectralBandwidth), 0),
			Contrast:  utils.FiniteSlice(utils.RowMeans(f.SpectralContrast), 0),
			Rolloff:   utils.FiniteOr(utils.Mean(f.SpectralRolloff), 0),
		},
	}
}
