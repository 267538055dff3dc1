package analysis

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// PRHost provides the source-code host operations the analyzer needs. The
// GitHub adapter in internal/githost is the production implementation.
type PRHost interface {
	HistoricalSource
	PullRequest(ctx context.Context, owner, repo string, number int) (PullRequest, error)
}

// FindingClassifier sends change-set context to the external model and
// returns its structured findings.
type FindingClassifier interface {
	ClassifyChanges(ctx context.Context, files []ChangedFile) (*Classification, error)
}

// AnalyzerConfig tunes the PR analyzer.
type AnalyzerConfig struct {
	Regression RegressionConfig
}

// Analyzer runs the full PR analysis pipeline: risk delta from the pattern
// matcher, regression detection against historical security fixes, and
// classifier findings folded into an aggregate security score.
type Analyzer struct {
	host       PRHost
	classifier FindingClassifier
	matcher    *Matcher
	detector   *RegressionDetector
}

// NewAnalyzer wires an analyzer from its collaborators.
func NewAnalyzer(host PRHost, classifier FindingClassifier, config AnalyzerConfig) *Analyzer {
	return &Analyzer{
		host:       host,
		classifier: classifier,
		matcher:    NewMatcher(),
		detector:   NewRegressionDetector(host, config.Regression),
	}
}

// UseMatcher replaces the standard matcher, typically after applying project
// rules from .codearmor.yaml.
func (a *Analyzer) UseMatcher(m *Matcher) {
	a.matcher = m
}

// AnalyzePR analyzes one pull request end to end.
//
// PR metadata and the change set are fetched concurrently; regression
// detection and classification then run concurrently as well, since they
// depend only on the change set. A classifier contract violation fails the
// whole analysis; regression detection degrades to partial results on its
// own.
func (a *Analyzer) AnalyzePR(ctx context.Context, owner, repo string, number int) (*PRAnalysisResult, error) {
	var files []ChangedFile

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := a.host.PullRequest(gctx, owner, repo, number)
		if err != nil {
			return fmt.Errorf("fetch pull request #%d: %w", number, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		files, err = a.host.ChangedFiles(gctx, owner, repo, number)
		if err != nil {
			return fmt.Errorf("fetch changed files for #%d: %w", number, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	delta := a.matcher.RiskDelta(files)

	var regressions []SecurityRegression
	var classification *Classification

	g, gctx = errgroup.WithContext(ctx)
	g.Go(func() error {
		regressions = a.detector.Detect(gctx, owner, repo, files)
		return nil
	})
	g.Go(func() error {
		var err error
		classification, err = a.classifier.ClassifyChanges(gctx, files)
		if err != nil {
			return fmt.Errorf("classify changes for #%d: %w", number, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &PRAnalysisResult{
		RiskDelta:   delta,
		Regressions: regressions,
		Findings:    classification.Findings,
		Assumptions: classification.Assumptions,
		Score:       Score(classification.Findings),
		Truncated:   classification.Truncated,
	}, nil
}
