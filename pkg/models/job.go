package models

import (
	"github.com/google/uuid"
)

// NormalizeJob asks a worker to normalize one source image into an artifact
// named after ArtifactID.
type NormalizeJob struct {
	JobID      string `json:"job_id"`
	ArtifactID string `json:"artifact_id"`
	SourcePath string `json:"source_path"`
}

// NormalizationResult describes one artifact written by the normalizer.
// Width and Height are the final dimensions, never the source ones.
type NormalizationResult struct {
	ArtifactID     string `json:"artifact_id"`
	SourcePath     string `json:"source_path"`
	OutputPath     string `json:"output_path"`
	Codec          string `json:"codec"`
	OriginalSize   uint64 `json:"original_size"`
	CompressedSize uint64 `json:"compressed_size"`
	Width          uint32 `json:"width"`
	Height         uint32 `json:"height"`
	ContentHash    string `json:"content_hash"`
	PerceptualHash string `json:"perceptual_hash,omitempty"`
}

// JobResult is published back after a job has been processed. Exactly one of
// Result or Error is set.
type JobResult struct {
	JobID     string               `json:"job_id"`
	Result    *NormalizationResult `json:"result,omitempty"`
	Error     string               `json:"error,omitempty"`
	ErrorKind string               `json:"error_kind,omitempty"`
}

// NewNormalizeJob creates a job with a fresh job ID. An empty artifactID is
// replaced by a new UUID.
func NewNormalizeJob(sourcePath, artifactID string) NormalizeJob {
	if artifactID == "" {
		artifactID = uuid.New().String()
	}

	return NormalizeJob{
		JobID:      uuid.New().String(),
		ArtifactID: artifactID,
		SourcePath: sourcePath,
	}
}
