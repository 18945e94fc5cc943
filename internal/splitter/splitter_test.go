package splitter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ppisljar/speech-dataset-creator/internal/model"
)

func TestPlan_NoSilenceCutsAtTarget(t *testing.T) {
	got := Plan(nil, 25000, 10000)
	want := []Boundary{
		{StartMS: 0, EndMS: 10000},
		{StartMS: 10000, EndMS: 20000},
		{StartMS: 20000, EndMS: 25000},
	}
	assert.Equal(t, want, got)
}

func TestPlan_PrefersSilenceMidpointNearTarget(t *testing.T) {
	silences := model.SilenceMap{{StartMS: 9800, EndMS: 10200}}
	got := Plan(silences, 20000, 10000)
	assert.Equal(t, 10000, got[0].EndMS)
}

func TestPlan_ShortAudioYieldsOneBoundary(t *testing.T) {
	got := Plan(nil, 5000, 10000)
	assert.Equal(t, []Boundary{{StartMS: 0, EndMS: 5000}}, got)
}

func TestPlan_ZeroTotalYieldsNil(t *testing.T) {
	assert.Nil(t, Plan(nil, 0, 10000))
}
