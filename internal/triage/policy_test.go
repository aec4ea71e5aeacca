package triage

import (
	"errors"
	"math"
	"testing"

	"github.com/Veraticus/heartline/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustThresholds(t *testing.T, abnormal, margin float64) model.ClinicalThresholds {
	t.Helper()
	th, err := model.NewClinicalThresholds(abnormal, margin)
	require.NoError(t, err)
	return th
}

func TestDecide_Scenarios(t *testing.T) {
	th := model.DefaultThresholds()

	tests := []struct {
		name           string
		wantLabel      model.DecisionLabel
		wantColor      model.ColorTag
		p              float64
		wantConfidence float64
	}{
		{name: "clearly abnormal", p: 0.85, wantLabel: model.LabelAbnormal, wantConfidence: 0.85, wantColor: model.ColorRed},
		{name: "exactly at threshold", p: 0.70, wantLabel: model.LabelNormal, wantConfidence: 0.30, wantColor: model.ColorGreen},
		{name: "center of band", p: 0.50, wantLabel: model.LabelUncertain, wantConfidence: 1.0, wantColor: model.ColorOrange},
		{name: "inside band below center", p: 0.48, wantLabel: model.LabelUncertain, wantConfidence: 0.96, wantColor: model.ColorOrange},
		{name: "clearly normal", p: 0.10, wantLabel: model.LabelNormal, wantConfidence: 0.90, wantColor: model.ColorGreen},
		{name: "near certain abnormal", p: 0.99, wantLabel: model.LabelAbnormal, wantConfidence: 0.99, wantColor: model.ColorRed},
		{name: "zero probability", p: 0, wantLabel: model.LabelNormal, wantConfidence: 1, wantColor: model.ColorGreen},
		{name: "unit probability", p: 1, wantLabel: model.LabelAbnormal, wantConfidence: 1, wantColor: model.ColorRed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decide(tt.p, th)
			assert.Equal(t, tt.wantLabel, got.Label)
			assert.Equal(t, tt.wantColor, got.Color)
			assert.InDelta(t, tt.wantConfidence, got.Confidence, 1e-9)
		})
	}
}

func TestDecide_BandEdgesAreExclusive(t *testing.T) {
	th := mustThresholds(t, 0.9, 0.5)

	// Band is (0.25, 0.75); both edges land in NORMAL.
	assert.Equal(t, model.LabelNormal, Decide(0.25, th).Label)
	assert.Equal(t, model.LabelNormal, Decide(0.75, th).Label)
	assert.Equal(t, model.LabelUncertain, Decide(0.26, th).Label)
	assert.Equal(t, model.LabelUncertain, Decide(0.74, th).Label)
}

func TestDecide_Totality(t *testing.T) {
	thresholdSets := []model.ClinicalThresholds{
		model.DefaultThresholds(),
		mustThresholds(t, 1.0, 0.2),
		mustThresholds(t, 0.5, 0),
		mustThresholds(t, 0.4, 0.6), // abnormal region overlaps the band
		mustThresholds(t, 0.01, 0.99),
	}

	for _, th := range thresholdSets {
		for i := 0; i <= 1000; i++ {
			p := float64(i) / 1000
			d := Decide(p, th)

			require.True(t, d.Label.Valid(), "p=%v th=%v", p, th)
			require.True(t, d.Color.Valid(), "p=%v th=%v", p, th)
			require.GreaterOrEqual(t, d.Confidence, 0.0, "p=%v th=%v", p, th)
			require.LessOrEqual(t, d.Confidence, 1.0, "p=%v th=%v", p, th)

			if p > th.AbnormalThreshold() {
				require.Equal(t, model.LabelAbnormal, d.Label, "abnormal must win for p=%v th=%v", p, th)
			}
		}
	}
}

func TestDecide_MonotonicAbnormalFlip(t *testing.T) {
	th := model.DefaultThresholds()

	seenAbnormal := false
	for i := 0; i <= 1000; i++ {
		p := float64(i) / 1000
		isAbnormal := Decide(p, th).Label == model.LabelAbnormal
		if seenAbnormal {
			require.True(t, isAbnormal, "decision flipped back at p=%v", p)
		}
		if isAbnormal {
			require.Greater(t, p, th.AbnormalThreshold())
			seenAbnormal = true
		}
	}
	assert.True(t, seenAbnormal)
}

func TestDecide_SymmetricAroundHalf(t *testing.T) {
	th := mustThresholds(t, 1.0, 0.2)

	for _, eps := range []float64{0.001, 0.01, 0.05, 0.09} {
		below := Decide(0.5-eps, th)
		above := Decide(0.5+eps, th)

		assert.Equal(t, model.LabelUncertain, below.Label, "eps=%v", eps)
		assert.Equal(t, model.LabelUncertain, above.Label, "eps=%v", eps)
		assert.InDelta(t, below.Confidence, above.Confidence, 1e-12, "eps=%v", eps)
	}
}

func TestDecide_ZeroMarginNeverUncertain(t *testing.T) {
	th := mustThresholds(t, 0.7, 0)

	for i := 0; i <= 1000; i++ {
		p := float64(i) / 1000
		assert.NotEqual(t, model.LabelUncertain, Decide(p, th).Label, "p=%v", p)
	}
	assert.Equal(t, model.LabelNormal, Decide(0.5, th).Label)
}

func TestCheckProbability(t *testing.T) {
	for _, p := range []float64{0, 0.5, 1} {
		assert.NoError(t, CheckProbability(p))
	}

	for _, p := range []float64{-0.001, 1.0001, math.NaN(), math.Inf(1)} {
		err := CheckProbability(p)
		require.Error(t, err)
		var violation *PreconditionViolation
		assert.True(t, errors.As(err, &violation))
	}
}

func BenchmarkDecide(b *testing.B) {
	th := model.DefaultThresholds()
	for i := 0; i < b.N; i++ {
		_ = Decide(float64(i%1000)/1000, th)
	}
}
