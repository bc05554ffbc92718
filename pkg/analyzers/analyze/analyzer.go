// Package analyze defines the snapshot analyzer contract and the factory
// that runs registered analyzers over a parsed checkout.
package analyze

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"
)

// Report is a map of string keys to arbitrary values representing analysis output.
type Report = map[string]any

// Analyzer is the contract every snapshot analyzer satisfies. Analyzers are
// pure: the same snapshot always yields the same report.
type Analyzer interface {
	Name() string
	Description() string

	Analyze(snapshot *Snapshot) (Report, error)
}

// Factory manages registration and execution of snapshot analyzers.
type Factory struct {
	analyzers   map[string]Analyzer
	maxParallel int
}

// NewFactory creates a factory with the given analyzers registered.
func NewFactory(analyzers []Analyzer) *Factory {
	factory := &Factory{
		analyzers:   make(map[string]Analyzer),
		maxParallel: runtime.NumCPU(),
	}

	for _, a := range analyzers {
		factory.RegisterAnalyzer(a)
	}

	return factory
}

// WithMaxParallelism sets the maximum number of analyzers run concurrently.
func (f *Factory) WithMaxParallelism(n int) *Factory {
	if n < 1 {
		n = 1
	}

	f.maxParallel = n

	return f
}

// RegisterAnalyzer adds an analyzer to the registry.
func (f *Factory) RegisterAnalyzer(analyzer Analyzer) {
	f.analyzers[analyzer.Name()] = analyzer
}

// Names returns the registered analyzer names, sorted.
func (f *Factory) Names() []string {
	names := make([]string, 0, len(f.analyzers))
	for name := range f.analyzers {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// RunAnalyzer executes the named analyzer against the snapshot.
func (f *Factory) RunAnalyzer(name string, snapshot *Snapshot) (Report, error) {
	analyzer, ok := f.analyzers[name]
	if !ok {
		return nil, fmt.Errorf("no registered analyzer with name=%s", name) //nolint:err113 // dynamic error is acceptable here.
	}

	return analyzer.Analyze(snapshot)
}

// RunAnalyzers runs the named analyzers against one snapshot and returns
// their reports keyed by analyzer name.
func (f *Factory) RunAnalyzers(ctx context.Context, snapshot *Snapshot, names []string) (map[string]Report, error) {
	for _, name := range names {
		if _, ok := f.analyzers[name]; !ok {
			return nil, fmt.Errorf("no registered analyzer with name=%s", name) //nolint:err113 // dynamic error is acceptable here.
		}
	}

	if len(names) == 0 {
		return map[string]Report{}, nil
	}

	if ctx.Err() != nil {
		return nil, fmt.Errorf("runanalyzers: %w", ctx.Err())
	}

	if len(names) == 1 || f.maxParallel <= 1 {
		return f.runSequentially(ctx, snapshot, names)
	}

	combinedReport := make(map[string]Report)
	reportMu := sync.Mutex{}
	errs := make([]string, 0)
	errMu := sync.Mutex{}
	wg := sync.WaitGroup{}
	sem := make(chan struct{}, f.maxParallel)

	for _, name := range names {
		wg.Add(1)

		go func() {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}

			if ctx.Err() != nil {
				return
			}

			report, err := f.RunAnalyzer(name, snapshot)
			if err != nil {
				errMu.Lock()

				errs = append(errs, fmt.Sprintf("analyzer %s error: %v", name, err))

				errMu.Unlock()

				return
			}

			reportMu.Lock()

			combinedReport[name] = report

			reportMu.Unlock()
		}()
	}

	wg.Wait()

	if ctx.Err() != nil {
		return nil, fmt.Errorf("runanalyzers: %w", ctx.Err())
	}

	if len(errs) > 0 {
		sort.Strings(errs)

		return nil, fmt.Errorf("analysis failed: %s", strings.Join(errs, "; ")) //nolint:err113 // dynamic error is acceptable here.
	}

	return combinedReport, nil
}

func (f *Factory) runSequentially(ctx context.Context, snapshot *Snapshot, names []string) (map[string]Report, error) {
	combinedReport := make(map[string]Report)

	for _, name := range names {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("runsequentially: %w", ctx.Err())
		}

		report, err := f.RunAnalyzer(name, snapshot)
		if err != nil {
			return nil, err
		}

		combinedReport[name] = report
	}

	return combinedReport, nil
}
