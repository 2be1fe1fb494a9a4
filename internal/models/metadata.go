package models

import "time"

// RunMetadata records how a bundle was processed.
type RunMetadata struct {
	RunID         string    `json:"run_id"`
	Input         string    `json:"input"`
	GeneratedAt   time.Time `json:"generated_at"`
	BBEnabled     bool      `json:"bb_enabled"`
	BBParsed      bool      `json:"bb_parsed"`
	BBSources     []string  `json:"bb_sources"`
	// ArtifactCount is the number of BlackBox captures discovered.
	ArtifactCount int       `json:"artifact_count"`
	FaultsEnabled bool      `json:"faults_enabled"`
}
