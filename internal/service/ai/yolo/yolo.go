// Package yolo decodes YOLOv8 detection heads into labelled boxes.
package yolo

import (
	"fmt"
	"math"
	"sort"

	"cctvstation/internal/model"
)

// CeilConfidence rounds raw up at the given number of decimals (0.8734 -> 0.88 for 2).
// Scores come out of the network as float32, so the scaling is done at float32 precision:
// float32(0.87) scales to exactly 87 and stays 0.87.
func CeilConfidence(raw float64, decimals int) float64 {
	scale := math.Pow10(decimals)
	scaled := float32(float32(raw) * float32(scale))
	return math.Ceil(float64(scaled)) / scale
}

// Candidate is a decoded box before non-maximum suppression.
type Candidate struct {
	ClassID int
	Score   float32
	Box     model.Box
}

// Decode reads a [4+nc, n] row-major output (cx, cy, w, h, class scores...) and keeps the
// anchors whose best class score reaches floor. Coordinates are multiplied by scaleX/scaleY
// and clamped to frameW x frameH.
func Decode(data []float32, rows, cols int, scaleX, scaleY float64, frameW, frameH int, floor float32) ([]Candidate, error) {
	if rows < 5 {
		return nil, fmt.Errorf("unexpected output shape: %d rows", rows)
	}
	if len(data) < rows*cols {
		return nil, fmt.Errorf("output has %d values, expected %d", len(data), rows*cols)
	}

	at := func(r, c int) float32 { return data[r*cols+c] }

	var out []Candidate
	for c := 0; c < cols; c++ {
		best, bestScore := -1, float32(0)
		for r := 4; r < rows; r++ {
			if s := at(r, c); s > bestScore {
				best, bestScore = r-4, s
			}
		}
		if best < 0 || bestScore < floor {
			continue
		}

		cx, cy := float64(at(0, c)), float64(at(1, c))
		w, h := float64(at(2, c)), float64(at(3, c))
		x1 := clamp(int((cx-w/2)*scaleX), 0, frameW)
		y1 := clamp(int((cy-h/2)*scaleY), 0, frameH)
		x2 := clamp(int((cx+w/2)*scaleX), 0, frameW)
		y2 := clamp(int((cy+h/2)*scaleY), 0, frameH)

		out = append(out, Candidate{ClassID: best, Score: bestScore, Box: model.NewBox(x1, y1, x2, y2)})
	}
	return out, nil
}

// ToDetections converts the kept candidates in score order, mapping class ids to labels
// and rounding confidence up to two decimals.
func ToDetections(cands []Candidate, keep []int, classNames []string) []model.Detection {
	kept := make([]Candidate, 0, len(keep))
	for _, i := range keep {
		if i >= 0 && i < len(cands) {
			kept = append(kept, cands[i])
		}
	}
	sort.SliceStable(kept, func(a, b int) bool { return kept[a].Score > kept[b].Score })

	out := make([]model.Detection, 0, len(kept))
	for _, c := range kept {
		out = append(out, model.Detection{
			Label:      ClassLabel(classNames, c.ClassID),
			Confidence: CeilConfidence(float64(c.Score), 2),
			Box:        c.Box,
		})
	}
	return out
}

// ClassLabel maps a class id to its configured name.
func ClassLabel(classNames []string, id int) string {
	if id >= 0 && id < len(classNames) {
		return classNames[id]
	}
	return fmt.Sprintf("class%d", id)
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
