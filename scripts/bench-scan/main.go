// bench-scan measures wall time and heap memory across the scan phases
// (history walk, head snapshot, analyzers, summary) on a target repository.
//
// Usage:
//
//	go run ./scripts/bench-scan --repo ~/sources/flask --workers 8 \
//	  --profile-dir docs/profiles/flask-scan
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"time"

	"github.com/Sumatoshi-tech/testevo/pkg/analyzers/analyze"
	"github.com/Sumatoshi-tech/testevo/pkg/analyzers/doubles"
	"github.com/Sumatoshi-tech/testevo/pkg/analyzers/flaky"
	"github.com/Sumatoshi-tech/testevo/pkg/analyzers/funccov"
	"github.com/Sumatoshi-tech/testevo/pkg/analyzers/smells"
	"github.com/Sumatoshi-tech/testevo/pkg/analyzers/testtypes"
	"github.com/Sumatoshi-tech/testevo/pkg/gitlib"
	"github.com/Sumatoshi-tech/testevo/pkg/history"
)

type phaseResult struct {
	label     string
	duration  time.Duration
	heapInUse uint64
	heapSys   uint64
}

func main() {
	repoPath := flag.String("repo", "", "Path to git repository")
	workers := flag.Int("workers", 0, "Parse workers (0 = CPU count)")
	profileDir := flag.String("profile-dir", "", "Directory to write heap profiles (optional)")
	cpuProfile := flag.Bool("cpu-profile", false, "Write CPU profile to profile-dir/cpu.prof")

	flag.Parse()

	if *repoPath == "" {
		log.Fatal("--repo is required")
	}

	if *profileDir != "" {
		if err := os.MkdirAll(*profileDir, 0o755); err != nil {
			log.Fatalf("mkdir profile-dir: %v", err)
		}
	}

	if *cpuProfile {
		if *profileDir == "" {
			log.Fatal("--cpu-profile requires --profile-dir")
		}

		cpuPath := filepath.Join(*profileDir, "cpu.prof")

		cpuFile, cpuErr := os.Create(cpuPath)
		if cpuErr != nil {
			log.Fatalf("create cpu profile: %v", cpuErr)
		}
		defer cpuFile.Close()

		if startErr := pprof.StartCPUProfile(cpuFile); startErr != nil {
			log.Fatalf("start cpu profile: %v", startErr)
		}

		defer pprof.StopCPUProfile()

		log.Printf("CPU profiling enabled -> %s", cpuPath)
	}

	repo, err := gitlib.OpenRepository(*repoPath)
	if err != nil {
		log.Fatalf("open repo: %v", err)
	}
	defer repo.Free()

	scanner := history.NewScanner(repo, history.Options{Workers: *workers})
	ctx := context.Background()

	var results []phaseResult

	measure := func(label string, fn func() error) {
		started := time.Now()

		if err := fn(); err != nil {
			log.Fatalf("%s: %v", label, err)
		}

		elapsed := time.Since(started)

		runtime.GC()
		runtime.GC()

		var m runtime.MemStats
		runtime.ReadMemStats(&m)

		results = append(results, phaseResult{
			label:     label,
			duration:  elapsed,
			heapInUse: m.HeapInuse,
			heapSys:   m.HeapSys,
		})

		log.Printf("  [phase] %-16s %10s  inuse=%6.1f MB  sys=%6.1f MB",
			label, elapsed.Round(time.Millisecond), float64(m.HeapInuse)/1e6, float64(m.HeapSys)/1e6)

		writeHeapProfile(*profileDir, "heap_"+label+".prof")
	}

	var walk *history.WalkResult

	measure("walk_history", func() error {
		walk, err = scanner.WalkHistory(ctx)

		return err
	})

	log.Printf("walked %d commits", walk.TotalCommits)

	var snapshot *analyze.Snapshot

	measure("head_snapshot", func() error {
		snapshot, err = scanner.Snapshot(ctx)

		return err
	})

	factory := analyze.NewFactory([]analyze.Analyzer{
		testtypes.NewAnalyzer(),
		doubles.NewAnalyzer(),
		smells.NewAnalyzer(),
		flaky.NewAnalyzer(),
		funccov.NewAnalyzer(),
	})

	measure("analyzers", func() error {
		_, runErr := factory.RunAnalyzers(ctx, snapshot, factory.Names())

		return runErr
	})

	measure("summarize", func() error {
		_, sumErr := scanner.Summarize()

		return sumErr
	})

	fmt.Println()
	fmt.Println("=== Scan Phase Timeline ===")
	fmt.Printf("%-20s %12s %10s %10s\n", "Phase", "Duration", "InUse(MB)", "Sys(MB)")
	fmt.Println("--------------------+------------+----------+----------")

	var total time.Duration

	for _, r := range results {
		total += r.duration
		fmt.Printf("%-20s %12s %10.1f %10.1f\n",
			r.label, r.duration.Round(time.Millisecond), float64(r.heapInUse)/1e6, float64(r.heapSys)/1e6)
	}

	fmt.Printf("%-20s %12s\n", "total", total.Round(time.Millisecond))
}

func writeHeapProfile(dir, name string) {
	if dir == "" {
		return
	}

	runtime.GC()
	runtime.GC()

	path := filepath.Join(dir, name)

	f, ferr := os.Create(path)
	if ferr != nil {
		log.Printf("warning: create heap profile %s: %v", path, ferr)

		return
	}
	defer f.Close()

	if perr := pprof.WriteHeapProfile(f); perr != nil {
		log.Printf("warning: write heap profile %s: %v", path, perr)
	}
}
