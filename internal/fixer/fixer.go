// Package fixer runs one fix request end to end: prompt, model call, reply
// parsing, reconciliation and packaging.
package fixer

import (
	"context"
	"time"

	"go.uber.org/zap"

	"repofix/internal/archive"
	"repofix/internal/fileset"
	llmclient "repofix/internal/llmClient"
	"repofix/internal/merge"
	"repofix/internal/prompt"
	"repofix/internal/reply"
)

// Limits bounds a single request. Zero disables a ceiling.
type Limits struct {
	MaxFiles        int
	MaxTotalBytes   int
	MaxPromptTokens int
}

// Result is everything one fix produced.
type Result struct {
	Files   *fileset.FileSet
	Archive []byte
	Report  merge.Report
	Parse   reply.Result
}

// Service is safe for concurrent use; it holds no per-request state.
type Service struct {
	llm         llmclient.LLMClient
	limits      Limits
	log         *zap.Logger
	countTokens func(string) int
	now         func() time.Time
}

func New(client llmclient.LLMClient, limits Limits, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		llm:         client,
		limits:      limits,
		log:         logger.Named("fixer"),
		countTokens: llmclient.CountTokens,
		now:         time.Now,
	}
}

// ModelName names the configured model client.
func (s *Service) ModelName() string { return s.llm.Name() }

// Fix asks the model to repair files and returns the reconciled project.
// Errors are *InputError, *LimitError, *llmclient.UpstreamError or
// *archive.EncodingError.
func (s *Service) Fix(ctx context.Context, files *fileset.FileSet, opts prompt.Options) (*Result, error) {
	if files.Len() == 0 {
		return nil, &InputError{Reason: "no files part"}
	}
	if err := s.checkSize(files); err != nil {
		return nil, err
	}

	text := prompt.Build(files, opts)
	if limit := s.limits.MaxPromptTokens; limit > 0 {
		if n := s.countTokens(text); n > limit {
			return nil, &LimitError{What: "prompt tokens", Limit: limit, Got: n}
		}
	}
	s.log.Debug("sending prompt",
		zap.Int("files", files.Len()),
		zap.Int("prompt_bytes", len(text)),
		zap.Bool("fix_lint", opts.FixLint),
		zap.Bool("add_comments", opts.AddComments),
	)

	raw, err := s.llm.GenerateText(ctx, text)
	if err != nil {
		return nil, llmclient.Classify(s.llm.Name(), err)
	}

	parsed := reply.Parse(raw)
	for _, b := range parsed.Skipped() {
		s.log.Warn("skipping malformed reply block",
			zap.Int("block", b.Index),
			zap.String("path", b.Path),
			zap.Stringer("reason", b.Outcome),
		)
	}

	merged, report := merge.Reconcile(files, parsed.Replacements())
	if len(report.Dropped) > 0 {
		s.log.Warn("dropping replacements for files that were not uploaded",
			zap.Strings("paths", report.Dropped))
	}

	zipped, err := archive.Bytes(merged, archive.Options{Modified: s.now()})
	if err != nil {
		return nil, err
	}
	s.log.Info("fix complete",
		zap.Int("files", merged.Len()),
		zap.Int("changed", len(report.Changed)),
		zap.Int("skipped_blocks", len(parsed.Skipped())),
		zap.Int("archive_bytes", len(zipped)),
	)
	return &Result{Files: merged, Archive: zipped, Report: report, Parse: parsed}, nil
}

func (s *Service) checkSize(files *fileset.FileSet) error {
	if limit := s.limits.MaxFiles; limit > 0 && files.Len() > limit {
		return &LimitError{What: "file count", Limit: limit, Got: files.Len()}
	}
	if limit := s.limits.MaxTotalBytes; limit > 0 {
		if n := files.TotalBytes(); n > limit {
			return &LimitError{What: "total bytes", Limit: limit, Got: n}
		}
	}
	return nil
}
