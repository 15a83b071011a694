package application

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"os"
	"time"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"github.com/pensieve/pensieve-doctor/internal/domain"
)

// ParallelAnalyzer fans file analysis out over a bounded worker pool. Each
// (file, analyzer) pair gets its own deadline so one pathological file cannot
// stall the whole scan, and results come back in input order regardless of
// completion order.
type ParallelAnalyzer struct {
	parser   domain.SourceParser
	cache    domain.AnalysisCache
	logger   hclog.Logger
	workers  int
	deadline time.Duration
}

func NewParallelAnalyzer(parser domain.SourceParser, cache domain.AnalysisCache, workers int, deadline time.Duration, logger hclog.Logger) *ParallelAnalyzer {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &ParallelAnalyzer{
		parser:   parser,
		cache:    cache,
		logger:   logger,
		workers:  workers,
		deadline: deadline,
	}
}

// AnalyzeFiles runs every analyzer over every file. The returned slice is
// indexed like files; a TimedOut result carries nil findings.
func (p *ParallelAnalyzer) AnalyzeFiles(ctx context.Context, files []domain.SelectedFile, analyzers []domain.Analyzer) ([]domain.FileResult, error) {
	results := make([]domain.FileResult, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for i, f := range files {
		g.Go(func() error {
			results[i] = p.analyzeOne(ctx, f, analyzers)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (p *ParallelAnalyzer) analyzeOne(ctx context.Context, file domain.SelectedFile, analyzers []domain.Analyzer) domain.FileResult {
	result := domain.FileResult{Path: file.Path}

	src, err := os.ReadFile(file.AbsPath)
	if err != nil {
		p.logger.Warn("skipping unreadable file", "path", file.Path, "error", err)
		return result
	}
	checksum := contentChecksum(src)

	ctx, cancel := context.WithTimeout(ctx, p.deadline)
	defer cancel()

	allCached := true
	done := make(chan struct{})
	go func() {
		defer close(done)
		var parsed *domain.SourceFile
		for _, a := range analyzers {
			if ctx.Err() != nil {
				return
			}
			if p.cache != nil {
				if findings, ok := p.cache.Load(file.Path, a.Name(), checksum); ok {
					result.Findings = append(result.Findings, findings...)
					continue
				}
			}
			allCached = false
			if parsed == nil {
				parsed, err = p.parser.ParseFile(file.AbsPath)
				if err != nil {
					p.logger.Warn("skipping unparseable file", "path", file.Path, "error", err)
					return
				}
				parsed.Path = file.Path
				parsed.Category = file.Category
			}
			findings := a.Analyze(parsed)
			result.Findings = append(result.Findings, findings...)
			if p.cache != nil {
				if err := p.cache.Save(file.Path, a.Name(), checksum, findings); err != nil {
					p.logger.Debug("cache write failed", "path", file.Path, "error", err)
				}
			}
		}
	}()

	select {
	case <-done:
		result.Cached = allCached && len(analyzers) > 0
	case <-ctx.Done():
		p.logger.Warn("analysis timed out", "path", file.Path, "deadline", p.deadline)
		return domain.FileResult{Path: file.Path, TimedOut: true}
	}
	return result
}

func contentChecksum(src []byte) string {
	sum := md5.Sum(src)
	return hex.EncodeToString(sum[:])
}
