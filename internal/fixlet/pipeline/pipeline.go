package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"fixlet/internal/fixlet/client"
	"fixlet/internal/fixlet/domain"
	"fixlet/internal/fixlet/download"
	"fixlet/internal/fixlet/oss"
	"fixlet/internal/fixlet/progress"
	"fixlet/internal/fixlet/quota"
	"fixlet/pkg/config"
	"fixlet/pkg/errors"
	"fixlet/pkg/logger"
)

// Pipeline runs the repair stages strictly in order: validate, consume
// quota, negotiate upload, transfer, submit, track, optionally fetch. A
// failure at any stage aborts the rest. Quota is consumed before any network
// call, so a later failure still spends an invocation.
type Pipeline struct {
	guard    *quota.Guard
	client   *client.Client
	uploader *oss.Uploader
	tracker  *progress.Tracker
	fetcher  *download.Fetcher
	logger   *logger.Logger
}

// Options are the per-invocation parameters, already parsed by the CLI.
type Options struct {
	FilePath  string
	Catalogue string
	Method    string
	IsAsync   bool
	Download  bool
	OutputDir string
}

// Result is the single success payload written to stdout.
type Result struct {
	JobID     string          `json:"job_id"`
	ObjKey    string          `json:"obj_key"`
	URLs      []string        `json:"urls"`
	FirstURL  string          `json:"first_url"`
	LocalPath *string         `json:"local_path"`
	Progress  json.RawMessage `json:"progress"`
}

func New(cfg *config.Config) (*Pipeline, error) {
	quotaPath, err := cfg.QuotaFilePath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve quota file: %w", err)
	}

	return &Pipeline{
		guard: quota.NewGuard(quotaPath, cfg.Quota.DailyLimit),
		client: client.New(client.Options{
			BaseURL:          cfg.Server.BaseURL,
			NegotiateTimeout: cfg.Timeouts.Negotiate,
			SubmitTimeout:    cfg.Timeouts.Submit,
		}),
		uploader: oss.NewUploader(cfg.Timeouts.Upload),
		tracker:  progress.NewTracker(cfg.Server.WSURL, cfg.Timeouts.Watchdog),
		fetcher:  download.NewFetcher(cfg.Timeouts.Download),
		logger:   logger.WithField("component", "pipeline"),
	}, nil
}

// Run executes one invocation end to end and returns the success payload.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Result, error) {
	file, err := domain.DescribeFile(opts.FilePath)
	if err != nil {
		return nil, errors.Wrap(errors.CodeArgError, err, "cannot read input file %s", opts.FilePath)
	}

	if err := file.Validate(); err != nil {
		p.logger.Error("file rejected", "path", file.Path, "error", err)
		return nil, err
	}
	p.logger.Info("file accepted",
		"name", file.Name, "sizeBytes", file.SizeBytes, "contentType", file.ContentType)

	if err := p.guard.Consume(); err != nil {
		return nil, err
	}

	ticket, err := p.client.NegotiateUpload(ctx, file, opts.Catalogue)
	if err != nil {
		p.logger.Error("upload negotiation failed", "error", err)
		return nil, err
	}

	if err := p.uploader.Put(ctx, ticket.URL, file.Path, file.ContentType, file.SizeBytes); err != nil {
		p.logger.Error("object upload failed", "objKey", ticket.ObjKey, "error", err)
		return nil, err
	}
	p.logger.Info("object uploaded", "objKey", ticket.ObjKey)

	job, err := p.client.SubmitRepair(ctx, ticket.ObjKey, opts.Method, opts.IsAsync)
	if err != nil {
		p.logger.Error("job submission failed", "error", err)
		return nil, err
	}

	event, err := p.tracker.Wait(ctx, job.JobID)
	if err != nil {
		p.logger.Error("job did not complete", "jobId", job.JobID, "error", err)
		return nil, err
	}

	urls := event.ArtifactURLs()
	result := &Result{
		JobID:    job.JobID,
		ObjKey:   job.ObjKey,
		URLs:     urls,
		Progress: event.Raw,
	}
	if len(urls) > 0 {
		result.FirstURL = urls[0]
	}

	if opts.Download {
		if len(urls) == 0 {
			p.logger.Warn("download requested but the job produced no artifact", "jobId", job.JobID)
		} else {
			dest := download.OutputPath(file.Path, opts.OutputDir)
			if err := p.fetcher.Fetch(ctx, urls[0], dest); err != nil {
				p.logger.Error("artifact download failed", "url", urls[0], "error", err)
				return nil, err
			}
			result.LocalPath = &dest
		}
	}

	return result, nil
}
