// Package bulk runs ingestion and evaluation for batches of files on a
// bounded queue of persisted jobs.
package bulk

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"example.com/compliance-auditor/internal/eval"
	"example.com/compliance-auditor/internal/metrics"
	"example.com/compliance-auditor/internal/model"
)

// ErrQueueFull is returned by Submit when no worker can take the job.
var ErrQueueFull = errors.New("bulk queue is full")

type Ingester interface {
	Ingest(ctx context.Context, path, filename string, data []byte) (*model.Document, error)
}

type Evaluator interface {
	Evaluate(ctx context.Context, doc *model.Document, types []model.ComplianceType) (eval.Result, error)
}

type JobStore interface {
	Create(ctx context.Context, j *model.BulkJob) error
	Get(ctx context.Context, id uuid.UUID) (*model.BulkJob, error)
	Save(ctx context.Context, j *model.BulkJob) error
	Unfinished(ctx context.Context) ([]model.BulkJob, error)
}

// Lister expands a directory or bucket prefix into the files under it.
type Lister interface {
	List(ctx context.Context, dir string) ([]string, error)
}

type Options struct {
	Workers         int
	QueueSize       int
	FileConcurrency int
	// Lister, when set, expands file entries ending in "/" at submit time.
	Lister Lister
}

const (
	resultSuccess = "success"
	resultError   = "error"
)

type Processor struct {
	ingest  Ingester
	eval    Evaluator
	jobs    JobStore
	opts    Options
	queue   chan uuid.UUID
	wg      sync.WaitGroup
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

func NewProcessor(ing Ingester, ev Evaluator, jobs JobStore, opts Options, logger zerolog.Logger, m *metrics.Metrics) *Processor {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 16
	}
	if opts.FileConcurrency <= 0 {
		opts.FileConcurrency = 1
	}
	return &Processor{
		ingest:  ing,
		eval:    ev,
		jobs:    jobs,
		opts:    opts,
		queue:   make(chan uuid.UUID, opts.QueueSize),
		logger:  logger,
		metrics: m,
	}
}

// Submit persists a new job and queues it. When the queue is full the job
// is recorded as failed and ErrQueueFull is returned with it.
func (p *Processor) Submit(ctx context.Context, name string, files []string, types []model.ComplianceType) (*model.BulkJob, error) {
	files, err := p.expand(ctx, files)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, &model.ValidationError{Field: "files", Reason: "at least one file is required"}
	}
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	if name == "" {
		name = fmt.Sprintf("bulk job (%d files)", len(files))
	}
	job := &model.BulkJob{
		Name:            name,
		Status:          model.JobPending,
		ComplianceTypes: names,
		Files:           files,
		TotalFiles:      len(files),
	}
	if err := p.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	if !p.enqueue(job.ID) {
		job.Status = model.JobFailed
		job.Error = ErrQueueFull.Error()
		if err := p.jobs.Save(ctx, job); err != nil {
			p.logger.Error().Err(err).Str("job_id", job.ID.String()).Msg("save rejected job")
		}
		return job, ErrQueueFull
	}
	p.logger.Info().Str("job_id", job.ID.String()).Int("files", len(files)).Msg("bulk job queued")
	return job, nil
}

func (p *Processor) expand(ctx context.Context, files []string) ([]string, error) {
	if p.opts.Lister == nil {
		return files, nil
	}
	out := make([]string, 0, len(files))
	for _, f := range files {
		if !strings.HasSuffix(f, "/") {
			out = append(out, f)
			continue
		}
		listed, err := p.opts.Lister.List(ctx, f)
		if err != nil {
			return nil, &model.ValidationError{Field: "files", Reason: fmt.Sprintf("list %s: %v", f, err), Err: err}
		}
		out = append(out, listed...)
	}
	return out, nil
}

func (p *Processor) enqueue(id uuid.UUID) bool {
	select {
	case p.queue <- id:
		p.metrics.SetQueueDepth(len(p.queue))
		return true
	default:
		return false
	}
}

// Resume re-queues jobs a previous process left pending or processing.
// Jobs that do not fit stay pending for the next start.
func (p *Processor) Resume(ctx context.Context) (int, error) {
	jobs, err := p.jobs.Unfinished(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, j := range jobs {
		if !p.enqueue(j.ID) {
			p.logger.Warn().Int("remaining", len(jobs)-n).Msg("queue full while resuming jobs")
			break
		}
		n++
	}
	return n, nil
}

func (p *Processor) Status(ctx context.Context, id uuid.UUID) (*model.BulkJob, error) {
	return p.jobs.Get(ctx, id)
}

// Start launches the workers. They stop when ctx is cancelled; Wait blocks
// until they have.
func (p *Processor) Start(ctx context.Context) {
	for i := 0; i < p.opts.Workers; i++ {
		p.wg.Add(1)
		go func(worker int) {
			defer p.wg.Done()
			log := p.logger.With().Int("worker", worker).Logger()
			for {
				select {
				case <-ctx.Done():
					return
				case id := <-p.queue:
					p.metrics.SetQueueDepth(len(p.queue))
					if err := p.run(ctx, id); err != nil {
						log.Error().Err(err).Str("job_id", id.String()).Msg("bulk job stopped")
					}
				}
			}
		}(i)
	}
}

func (p *Processor) Wait() { p.wg.Wait() }

func (p *Processor) run(ctx context.Context, id uuid.UUID) error {
	job, err := p.jobs.Get(ctx, id)
	if err != nil {
		return err
	}
	if job.Status.Finished() {
		return nil
	}
	types := make([]model.ComplianceType, 0, len(job.ComplianceTypes))
	for _, t := range job.ComplianceTypes {
		ct, err := model.ParseComplianceType(t)
		if err != nil {
			return p.finish(ctx, job, err)
		}
		types = append(types, ct)
	}

	done := make(map[string]bool, len(job.Results))
	for _, r := range job.Results {
		done[r.File] = true
	}
	job.Status = model.JobProcessing
	job.ProcessedFiles = len(job.Results)
	if err := p.jobs.Save(ctx, job); err != nil {
		return err
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.FileConcurrency)
	for _, f := range job.Files {
		if done[f] {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res := p.processFile(gctx, f, types)
			p.metrics.ObserveBulkFile(res.Status)

			mu.Lock()
			defer mu.Unlock()
			job.Results = append(job.Results, res)
			job.ProcessedFiles++
			if err := p.jobs.Save(gctx, job); err != nil {
				p.logger.Warn().Err(err).Str("job_id", job.ID.String()).Msg("save progress")
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		// Cancelled: leave the job processing so Resume picks it up.
		return err
	}
	return p.finish(ctx, job, nil)
}

func (p *Processor) processFile(ctx context.Context, path string, types []model.ComplianceType) model.JobResult {
	res := model.JobResult{File: path, Status: resultError}
	doc, err := p.ingest.Ingest(ctx, path, filepath.Base(path), nil)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.DocumentID = doc.ID.String()
	out, err := p.eval.Evaluate(ctx, doc, types)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Status = resultSuccess
	res.ComplianceScore = out.Score
	res.ComplianceStatus = out.Status
	res.IssueCount = len(out.Issues)
	return res
}

func (p *Processor) finish(ctx context.Context, job *model.BulkJob, cause error) error {
	order := make(map[string]int, len(job.Files))
	for i, f := range job.Files {
		order[f] = i
	}
	sort.SliceStable(job.Results, func(i, j int) bool {
		return order[job.Results[i].File] < order[job.Results[j].File]
	})

	job.Status = model.JobCompleted
	failed := 0
	for _, r := range job.Results {
		if r.Status != resultSuccess {
			failed++
		}
	}
	switch {
	case cause != nil:
		job.Status = model.JobFailed
		job.Error = cause.Error()
	case len(job.Results) > 0 && failed == len(job.Results):
		job.Status = model.JobFailed
		job.Error = "all files failed"
	}
	if err := p.jobs.Save(ctx, job); err != nil {
		return err
	}
	p.logger.Info().
		Str("job_id", job.ID.String()).
		Str("status", string(job.Status)).
		Int("processed", job.ProcessedFiles).
		Int("failed", failed).
		Msg("bulk job finished")
	return nil
}
