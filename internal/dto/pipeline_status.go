// PipelineStatus is the payload of GET /api/pipeline/status.
package dto

type PipelineStatus struct {
	State        string       `json:"state"`
	Source       string       `json:"source,omitempty"`
	Session      *SessionInfo `json:"session,omitempty"`
	AlertState   string       `json:"alertState"`
	AlertEnabled bool         `json:"alertEnabled"`
	Tally        int          `json:"tally"`
	PortOpen     bool         `json:"portOpen"`
	Port         string       `json:"port,omitempty"`
}
