package normalize

import (
	"fmt"
	"time"

	"github.com/vatsal3003/snapnorm/internal/logger"
	"github.com/vatsal3003/snapnorm/internal/syncx"
	"github.com/vatsal3003/snapnorm/pkg/models"
)

// ResultPublisher receives the outcome of every processed job.
type ResultPublisher interface {
	PublishResult(result models.JobResult) error
}

// Processor adapts a Normalizer to queue jobs: it serializes jobs sharing an
// artifact ID, logs around each run and reports results.
type Processor struct {
	normalizer *Normalizer
	results    ResultPublisher
	locks      *syncx.KeyedMutex
	log        logger.Logger
}

// NewProcessor creates a job processor. results may be nil.
func NewProcessor(normalizer *Normalizer, results ResultPublisher, log logger.Logger) *Processor {
	if log == nil {
		log = logger.GetDefault()
	}
	return &Processor{
		normalizer: normalizer,
		results:    results,
		locks:      syncx.NewKeyedMutex(),
		log:        log,
	}
}

// ProcessJob normalizes one job. The returned error is the normalization
// error; a failure to publish the result is only logged.
func (p *Processor) ProcessJob(job models.NormalizeJob) error {
	log := p.log.With("job_id", job.JobID, "artifact_id", job.ArtifactID)

	unlock := p.locks.Lock(job.ArtifactID)
	defer unlock()

	start := time.Now()
	result, err := p.normalizer.Normalize(Request{
		SourcePath: job.SourcePath,
		ArtifactID: job.ArtifactID,
	})

	out := models.JobResult{JobID: job.JobID}
	if err != nil {
		log.Error("failed to normalize image", "source", job.SourcePath, "kind", KindOf(err), "error", err)
		out.Error = err.Error()
		out.ErrorKind = KindOf(err).String()
	} else {
		log.Info("normalized image",
			"source", job.SourcePath,
			"output", result.OutputPath,
			"size", fmt.Sprintf("%dx%d", result.Width, result.Height),
			"original_bytes", result.OriginalSize,
			"compressed_bytes", result.CompressedSize,
			"hash", result.ContentHash,
			"took", time.Since(start),
		)
		out.Result = result
	}

	if p.results != nil {
		if perr := p.results.PublishResult(out); perr != nil {
			log.Warn("failed to publish job result", "error", perr)
		}
	}

	return err
}
