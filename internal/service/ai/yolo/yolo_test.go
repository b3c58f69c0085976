package yolo

import (
	"testing"

	"cctvstation/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCeilConfidence(t *testing.T) {
	tests := []struct {
		raw  float64
		want float64
	}{
		{0.8734, 0.88},
		{0.88, 0.88},
		{0.8801, 0.89},
		{0.07, 0.07},
		{0.29, 0.29},
		{0.001, 0.01},
		{0, 0},
		{1, 1},
		{float64(float32(0.5)), 0.5},
		{float64(float32(0.87)), 0.87},
		{float64(float32(0.29)), 0.29},
		{float64(float32(0.8734)), 0.88},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, CeilConfidence(tt.raw, 2), 1e-12, "raw=%v", tt.raw)
	}
}

func TestCeilConfidence_NeverBelowRaw(t *testing.T) {
	for i := 0; i <= 1000; i++ {
		raw := float64(i) / 1000
		assert.GreaterOrEqual(t, CeilConfidence(raw, 2)+1e-9, raw)
	}
}

// output builds a [4+nc, n] tensor from per-anchor columns.
func output(nc int, anchors ...[]float32) ([]float32, int, int) {
	rows, cols := 4+nc, len(anchors)
	data := make([]float32, rows*cols)
	for c, a := range anchors {
		for r, v := range a {
			data[r*cols+c] = v
		}
	}
	return data, rows, cols
}

func TestDecode_PicksBestClassAndScales(t *testing.T) {
	data, rows, cols := output(3,
		[]float32{320, 320, 100, 50, 0.1, 0.8734, 0.2},
		[]float32{10, 10, 4, 4, 0.05, 0.01, 0.02},
	)

	cands, err := Decode(data, rows, cols, 2, 1, 1280, 640, 0.25)
	require.NoError(t, err)
	require.Len(t, cands, 1)

	assert.Equal(t, 1, cands[0].ClassID)
	assert.InDelta(t, 0.8734, cands[0].Score, 1e-6)
	assert.Equal(t, model.Box{X1: 540, Y1: 295, X2: 740, Y2: 345}, cands[0].Box)
}

func TestDecode_ClampsToFrame(t *testing.T) {
	data, rows, cols := output(1, []float32{5, 5, 40, 40, 0.9})

	cands, err := Decode(data, rows, cols, 1, 1, 100, 100, 0.5)
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, model.Box{X1: 0, Y1: 0, X2: 25, Y2: 25}, cands[0].Box)
}

func TestDecode_BadShape(t *testing.T) {
	_, err := Decode(make([]float32, 8), 4, 2, 1, 1, 10, 10, 0.1)
	assert.Error(t, err)

	_, err = Decode(make([]float32, 3), 6, 2, 1, 1, 10, 10, 0.1)
	assert.Error(t, err)
}

func TestToDetections_OrdersByScoreAndRounds(t *testing.T) {
	names := []string{"Assault_weapon", "Blunt-objects", "Handguns"}
	cands := []Candidate{
		{ClassID: 0, Score: 0.41, Box: model.NewBox(0, 0, 1, 1)},
		{ClassID: 2, Score: 0.8734, Box: model.NewBox(1, 1, 2, 2)},
		{ClassID: 7, Score: 0.6, Box: model.NewBox(2, 2, 3, 3)},
	}

	dets := ToDetections(cands, []int{0, 1, 2, 99}, names)
	require.Len(t, dets, 3)
	assert.Equal(t, "Handguns", dets[0].Label)
	assert.InDelta(t, 0.88, dets[0].Confidence, 1e-9)
	assert.Equal(t, "class7", dets[1].Label)
	assert.Equal(t, "Assault_weapon", dets[2].Label)
}

func TestToDetections_ExactHundredthsKept(t *testing.T) {
	cands := []Candidate{
		{ClassID: 3, Score: 0.87, Box: model.NewBox(0, 0, 4, 4)},
		{ClassID: 3, Score: 0.57, Box: model.NewBox(5, 5, 9, 9)},
	}

	dets := ToDetections(cands, []int{0, 1}, nil)
	require.Len(t, dets, 2)
	assert.InDelta(t, 0.87, dets[0].Confidence, 1e-12)
	assert.InDelta(t, 0.57, dets[1].Confidence, 1e-12)
}

func TestToDetections_Empty(t *testing.T) {
	dets := ToDetections(nil, nil, nil)
	assert.NotNil(t, dets)
	assert.Empty(t, dets)
}
