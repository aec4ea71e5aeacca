package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/heartline/internal/model"
	"github.com/Veraticus/heartline/internal/service"
)

func TestAnalysisBuilder(t *testing.T) {
	a := NewAnalysis("a1").WithProbability(0.85).Labeled(1).FromSource("beats.csv", 4).Build()
	assert.Equal(t, model.LabelAbnormal, a.Decision.Label)
	assert.Equal(t, model.ColorRed, a.Decision.Color)
	assert.InDelta(t, 0.7, a.AbnormalThreshold, 1e-12)
	require.NotNil(t, a.TrueLabel)
	assert.Equal(t, 4, a.Row)

	strict, err := model.NewClinicalThresholds(0.9, 0)
	require.NoError(t, err)
	b := NewAnalysis("b1").WithProbability(0.85).WithThresholds(strict).Build()
	assert.Equal(t, model.LabelNormal, b.Decision.Label)
}

func TestSetupTestDB(t *testing.T) {
	db := SetupTestDB(t,
		NewAnalysis("a1").WithProbability(0.9).Build(),
		NewAnalysis("a2").WithProbability(0.5).At(BaseTime.Add(time.Minute)).Build(),
	)

	all := db.MustList(service.AnalysisFilter{})
	require.Len(t, all, 2)
	assert.Equal(t, "a2", all[0].ID, "newest first")

	uncertain := db.MustList(service.AnalysisFilter{Label: model.LabelUncertain})
	require.Len(t, uncertain, 1)
	assert.Equal(t, "a2", uncertain[0].ID)
}
