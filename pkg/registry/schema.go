// pkg/registry/schema.go
package registry

type StageRegistry struct {
	Version     string      `json:"version"`
	LastUpdated string      `json:"lastUpdated"`
	Stages      []StageInfo `json:"stages"`
}

type StageInfo struct {
	ID               string   `json:"id"`
	DisplayName      string   `json:"displayName"`
	Description      string   `json:"description"`
	EstimatedMinutes int      `json:"estimatedMinutes"`
	Tags             []string `json:"tags,omitempty"`
}
