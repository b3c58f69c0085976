// DetectionFilters narrow the detection history returned by the index.
package dto

type DetectionFilters struct {
	SessionID string
	Label     string
	Limit     int
	Offset    int
}
