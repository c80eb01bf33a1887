package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dgallion1/docatom/internal/hasher"
	"github.com/dgallion1/docatom/internal/processor"
)

// Worker runs the processor for one job at a time.
type Worker struct {
	proc  *processor.Processor
	stats *Stats
	log   *slog.Logger
}

func NewWorker(proc *processor.Processor, stats *Stats, log *slog.Logger) *Worker {
	return &Worker{proc: proc, stats: stats, log: log}
}

// Process drains the job's chunk stream into the job. A read failure fails
// the job; cancellation keeps the chunks produced so far.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "filename", job.Filename)
	start := time.Now()
	defer job.ReleaseFileData()

	data := job.FileData()
	job.SetContentHash(hasher.ContentHashHex(data))

	job.SetStatus(StatusReading, "reading")
	n := 0
	for c, err := range w.proc.ProcessBytes(ctx, job.Filename, data) {
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				log.Warn("job canceled", "chunks", n)
				job.AddError(err.Error())
				job.SetStatus(StatusCanceled, "chunking")
				return
			}
			log.Error("processing failed", "error", err)
			job.AddError(err.Error())
			job.SetStatus(StatusFailed, "reading")
			return
		}
		if n == 0 {
			job.SetStatus(StatusChunking, "chunking")
		}
		job.AddChunk(c)
		n++
	}

	elapsed := time.Since(start)
	if w.stats != nil {
		w.stats.Record(elapsed, n)
	}
	if n == 0 {
		log.Warn("no chunks produced")
		job.SetStatus(StatusCompleted, "empty")
		return
	}
	log.Info("job complete", "chunks", n, "duration_ms", elapsed.Milliseconds())
	job.SetStatus(StatusCompleted, "done")
}
