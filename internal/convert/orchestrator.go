// Package convert drives one document through the full pipeline: stage,
// convert, aggregate, package. Every failure is recovered here into the
// uniform error envelope.
package convert

import (
	"context"
	"errors"
	"time"

	"github.com/feichai0017/doc-converter/internal/capability"
	"github.com/feichai0017/doc-converter/internal/engine"
	"github.com/feichai0017/doc-converter/internal/export"
	"github.com/feichai0017/doc-converter/internal/models"
	"github.com/feichai0017/doc-converter/internal/staging"
	"github.com/feichai0017/doc-converter/internal/stats"
	"github.com/feichai0017/doc-converter/pkg/logger"
)

// EngineSelector picks a conversion backend for a staged document.
// *engine.Factory satisfies it; tests substitute stubs.
type EngineSelector interface {
	EngineFor(mimeType string, profile capability.Profile) (engine.Engine, error)
}

// Config bounds one job. Values are resolved once at startup and passed
// explicitly; nothing here is mutated per request.
type Config struct {
	DefaultCapability capability.Level
	ConvertTimeout    time.Duration
	MaxPages          int
}

// Orchestrator runs conversion jobs. One document, one engine attempt;
// retry policy belongs to the queue, not here.
type Orchestrator struct {
	stager  *staging.Stager
	engines EngineSelector
	cfg     Config
	logger  logger.Logger
}

func NewOrchestrator(stager *staging.Stager, engines EngineSelector, cfg Config, log logger.Logger) *Orchestrator {
	if cfg.ConvertTimeout <= 0 {
		cfg.ConvertTimeout = 10 * time.Minute
	}
	if cfg.DefaultCapability == "" {
		cfg.DefaultCapability = capability.High
	}
	return &Orchestrator{
		stager:  stager,
		engines: engines,
		cfg:     cfg,
		logger:  log,
	}
}

// Process runs one job to completion and always returns an envelope;
// failures never escape as errors.
func (o *Orchestrator) Process(ctx context.Context, req *models.DocumentRequest) *models.ResponseEnvelope {
	envelope, err := o.run(ctx, req)
	if err != nil {
		o.logger.Error("Conversion job failed",
			logger.String("source", req.Source()),
			logger.String("kind", string(models.KindOf(err))),
			logger.Error(err),
		)
		return export.PackageError(err)
	}
	return envelope
}

func (o *Orchestrator) run(ctx context.Context, req *models.DocumentRequest) (*models.ResponseEnvelope, error) {
	format, err := models.ParseExportFormat(req.ExportFormat)
	if err != nil {
		return nil, err
	}

	level := o.cfg.DefaultCapability
	if req.DeviceCapability != "" {
		level = capability.Level(req.DeviceCapability)
	}
	profile, err := capability.Resolve(level)
	if err != nil {
		return nil, err
	}

	staged, err := o.stager.Stage(ctx, req)
	if err != nil {
		return nil, err
	}
	defer staged.Release()

	eng, err := o.engines.EngineFor(staged.MIME, profile)
	if err != nil {
		return nil, err
	}

	opts := engine.OptionsFromProfile(profile)
	opts.MaxPages = o.cfg.MaxPages

	o.logger.Info("Converting document",
		logger.String("filename", staged.Filename),
		logger.String("mime", staged.MIME),
		logger.String("capability", string(profile.Level)),
	)

	doc, err := o.convertOnce(ctx, eng, staged, opts)
	if err != nil {
		return nil, err
	}

	aggregated := stats.Aggregate(doc)

	envelope, err := export.Package(req, doc, aggregated, format, profile)
	if err != nil {
		return nil, err
	}

	o.logger.Info("Conversion completed",
		logger.String("filename", staged.Filename),
		logger.Int("pages", doc.PageCount),
		logger.Int("tables", aggregated.Tables),
		logger.Int("images", aggregated.Images),
	)

	return envelope, nil
}

type convertResult struct {
	doc *models.Document
	err error
}

// convertOnce invokes the engine exactly once under the job's time
// budget. The engine call is treated as atomic: on expiry the result is
// discarded and the goroutine left to finish on its own.
func (o *Orchestrator) convertOnce(ctx context.Context, eng engine.Engine, staged *staging.Staged, opts engine.Options) (*models.Document, error) {
	reader, err := staged.Reader()
	if err != nil {
		return nil, models.WrapJobError(models.KindConversion, err, "staged document unavailable")
	}

	src := engine.Source{
		Reader:   reader,
		Filename: staged.Filename,
		MIME:     staged.MIME,
		Size:     staged.Size,
	}

	convertCtx, cancel := context.WithTimeout(ctx, o.cfg.ConvertTimeout)
	defer cancel()

	resultCh := make(chan convertResult, 1)
	go func() {
		// Engine backends parse attacker-supplied bytes; a panic here
		// must fail the job, not the process.
		defer func() {
			if r := recover(); r != nil {
				resultCh <- convertResult{
					err: models.NewJobError(models.KindConversion, "conversion engine panic: %v", r),
				}
			}
		}()
		doc, err := eng.Convert(convertCtx, src, opts)
		resultCh <- convertResult{doc: doc, err: err}
	}()

	select {
	case <-convertCtx.Done():
		return nil, models.WrapJobError(models.KindTimeout, convertCtx.Err(), "document conversion timed out")
	case result := <-resultCh:
		if result.err != nil {
			var jobErr *models.JobError
			if errors.As(result.err, &jobErr) {
				return nil, result.err
			}
			if errors.Is(result.err, context.DeadlineExceeded) {
				return nil, models.WrapJobError(models.KindTimeout, result.err, "document conversion timed out")
			}
			return nil, models.WrapJobError(models.KindConversion, result.err, "document conversion failed")
		}
		return result.doc, nil
	}
}
