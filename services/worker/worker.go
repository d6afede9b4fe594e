package worker

import (
	"context"
	"errors"
	"time"

	"sjsage522/keypriceworker/helpers"
	"sjsage522/keypriceworker/internal/crawler"
	"sjsage522/keypriceworker/logger"
	"sjsage522/keypriceworker/services/exporter"
	"sjsage522/keypriceworker/services/publisher"
)

// Job is one table build: a builder, the game it is asked for and the file
// its table is exported to
type Job struct {
	// Pipeline identifies the job in logs, streams and snapshots
	Pipeline string
	Builder  crawler.Builder
	GameName string
	FileName func(capturedOn time.Time) string
}

// TopJob builds the ranked top-click table
func TopJob(b crawler.Builder) Job {
	return Job{
		Pipeline: "top50",
		Builder:  b,
		FileName: exporter.TopFileName,
	}
}

// GameJob builds the offers table of one game
func GameJob(b crawler.Builder, gameName string) Job {
	return Job{
		Pipeline: helpers.Slugify(gameName),
		Builder:  b,
		GameName: gameName,
		FileName: func(capturedOn time.Time) string {
			return exporter.GameFileName(gameName, capturedOn)
		},
	}
}

// Exporter writes a finalized table and returns where it went
type Exporter interface {
	Export(fileName string, t *crawler.Table) (string, error)
}

// Store keeps a snapshot of a finalized table
type Store interface {
	SaveTable(ctx context.Context, pipeline string, t *crawler.Table) (int64, error)
}

// Result is the outcome of one job
type Result struct {
	Pipeline string
	Path     string
	Rows     int
}

// Worker runs jobs one after the other and persists their tables
type Worker struct {
	ctx           context.Context
	jobs          []Job
	exporter      Exporter
	publisher     publisher.Publisher
	store         Store
	crawlInterval time.Duration

	now func() time.Time
}

// NewWorker creates a new worker. pub and store may be nil.
func NewWorker(
	ctx context.Context,
	jobs []Job,
	exp Exporter,
	pub publisher.Publisher,
	store Store,
	crawlInterval time.Duration,
) *Worker {
	return &Worker{
		ctx:           ctx,
		jobs:          jobs,
		exporter:      exp,
		publisher:     pub,
		store:         store,
		crawlInterval: crawlInterval,
		now:           time.Now,
	}
}

// Start runs the jobs once when no interval is set. Otherwise it repeats
// them every interval until the context is cancelled.
func (w *Worker) Start() error {
	if w.crawlInterval <= 0 {
		_, err := w.RunOnce()
		return err
	}

	log := logger.ForWorker()
	for {
		start := time.Now()
		if _, err := w.RunOnce(); err != nil {
			log.Error().Err(err).Msg("Run finished with errors")
		}
		log.Info().Dur("elapsed", time.Since(start)).Dur("next_in", w.crawlInterval).Msg("Run finished")

		select {
		case <-w.ctx.Done():
			return nil
		case <-time.After(w.crawlInterval):
		}
	}
}

// RunOnce runs every job in order. A failing job does not stop the others;
// the returned error joins every job error.
func (w *Worker) RunOnce() ([]Result, error) {
	var results []Result
	var errs []error

	for _, job := range w.jobs {
		if err := w.ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		result, err := w.runJob(job)
		if err != nil {
			logger.LogError(job.Pipeline, err, "Job failed")
			errs = append(errs, err)
			continue
		}
		results = append(results, result)
	}

	if w.publisher != nil {
		if err := w.publisher.TrimStreams(); err != nil {
			logger.LogError("StreamTrimming", err, "Failed to trim streams")
		}
	}

	return results, errors.Join(errs...)
}

// runJob builds one table and persists it. Exporting is mandatory; the
// stream and the snapshot store are best effort.
func (w *Worker) runJob(job Job) (Result, error) {
	log := logger.ForWorker().WithField("pipeline", job.Pipeline)
	capturedOn := w.now()

	table, err := crawler.Construct(w.ctx, job.Builder, job.GameName, capturedOn)
	if err != nil {
		return Result{}, err
	}

	path, err := w.exporter.Export(job.FileName(capturedOn), table)
	if err != nil {
		return Result{}, err
	}

	if w.publisher != nil {
		if err := publisher.PublishTable(w.publisher, table); err != nil {
			log.Warn().Err(err).Msg("Failed to publish table")
		}
	}

	if w.store != nil {
		if _, err := w.store.SaveTable(w.ctx, job.Pipeline, table); err != nil {
			log.Warn().Err(err).Msg("Failed to store snapshot")
		}
	}

	if logger.IsDebugEnabled() {
		log.Debug().Msg("Table built\n" + table.String())
	}
	log.Info().
		Str("builder", job.Builder.GetName()).
		Int("rows", table.Len()).
		Str("path", path).
		Msg("Table exported")

	return Result{Pipeline: job.Pipeline, Path: path, Rows: table.Len()}, nil
}
