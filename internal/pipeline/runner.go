package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/dbsmedya/layoutdiff/internal/config"
	"github.com/dbsmedya/layoutdiff/internal/discovery"
	"github.com/dbsmedya/layoutdiff/internal/format"
	"github.com/dbsmedya/layoutdiff/internal/layout"
	"github.com/dbsmedya/layoutdiff/internal/logger"
	"github.com/dbsmedya/layoutdiff/internal/source"
	"github.com/dbsmedya/layoutdiff/internal/store"
)

// Saver persists a finished comparison. *store.Store implements it.
type Saver interface {
	Save(ctx context.Context, run *store.Run) (int64, bool, error)
}

// PairResult is the outcome of one pair of a batch.
type PairResult struct {
	Pair     discovery.Pair
	Result   *Result
	RunID    int64
	Inserted bool
	Err      error
}

// BatchResult summarizes a batch run.
type BatchResult struct {
	Pairs     []PairResult
	Succeeded int
	Failed    int
	Duration  time.Duration
}

// Runner compares version pairs, writes their records and optionally
// stores them.
type Runner struct {
	resolver *source.Resolver
	files    format.Files
	output   config.OutputConfig
	saver    Saver
	logger   *logger.Logger

	// DryRun skips writing files and storing runs.
	DryRun bool
}

// NewRunner creates a runner. saver may be nil.
func NewRunner(output config.OutputConfig, resolver *source.Resolver, saver Saver, log *logger.Logger) *Runner {
	if log == nil {
		log = logger.NewNop()
	}
	return &Runner{
		resolver: resolver,
		files: format.Files{
			CommonObjects: output.CommonObjectsFile,
			Types:         output.TypesFile,
		},
		output: output,
		saver:  saver,
		logger: log,
	}
}

// LoadPair loads both layouts of pair.
func (r *Runner) LoadPair(ctx context.Context, pair discovery.Pair) (*layout.Layout, *layout.Layout, error) {
	resolver := r.resolver
	if pair.Contract != "" {
		resolver = resolver.WithContract(pair.Contract)
	}

	oldLayout, err := resolver.Load(ctx, pair.Old)
	if err != nil {
		return nil, nil, fmt.Errorf("load old layout: %w", err)
	}
	newLayout, err := resolver.Load(ctx, pair.New)
	if err != nil {
		return nil, nil, fmt.Errorf("load new layout: %w", err)
	}
	return oldLayout, newLayout, nil
}

// RunPair compares one pair. Files are written only after the comparison
// succeeded, and the run is stored only after the files were written.
func (r *Runner) RunPair(ctx context.Context, pair discovery.Pair) PairResult {
	pr := PairResult{Pair: pair}
	log := r.logger.WithPair(pair.Name)

	opts, err := OptionsFromConfig(pair.Comparison, r.output)
	if err != nil {
		pr.Err = err
		return pr
	}

	oldLayout, newLayout, err := r.LoadPair(ctx, pair)
	if err != nil {
		pr.Err = err
		return pr
	}

	result, err := NewComparator(opts, log).Compare(oldLayout, newLayout)
	if err != nil {
		pr.Err = err
		return pr
	}
	pr.Result = result

	if r.DryRun {
		log.Infow("Dry run, records not written", "cid", result.ReportCID)
		return pr
	}

	if err := format.WriteFiles(pair.OutputDir, r.files, result.CommonObjectsJSON, result.TypesJSON); err != nil {
		pr.Err = err
		return pr
	}
	log.Infow("Records written",
		"dir", pair.OutputDir,
		"common_objects_file", r.files.CommonObjects,
		"types_file", r.files.Types,
	)

	if r.saver != nil {
		id, inserted, err := r.saver.Save(ctx, &store.Run{
			Pair:              pair.Name,
			ReportCID:         result.ReportCID,
			CommonObjects:     result.Stats.CommonObjects,
			MergedTypes:       result.Stats.MergedTypes,
			CommonObjectsJSON: result.CommonObjectsJSON,
			TypesJSON:         result.TypesJSON,
		})
		if err != nil {
			pr.Err = err
			return pr
		}
		pr.RunID = id
		pr.Inserted = inserted
	}

	return pr
}

// Run processes pairs sequentially. A failing pair is logged and the batch
// continues; cancellation of ctx stops the batch between pairs and is the
// only error returned.
func (r *Runner) Run(ctx context.Context, pairs []discovery.Pair) (*BatchResult, error) {
	start := time.Now()
	batch := &BatchResult{}

	r.logger.Infow("Starting batch", "pairs", len(pairs), "dry_run", r.DryRun)

	for _, pair := range pairs {
		if err := ctx.Err(); err != nil {
			r.logger.Warn("Context cancelled - stopping before next pair")
			batch.Duration = time.Since(start)
			return batch, err
		}

		pr := r.RunPair(ctx, pair)
		batch.Pairs = append(batch.Pairs, pr)
		if pr.Err != nil {
			batch.Failed++
			r.logger.WithPair(pair.Name).Errorw("Pair failed", "error", pr.Err)
			continue
		}
		batch.Succeeded++
	}

	batch.Duration = time.Since(start)
	r.logger.Infow("Batch completed",
		"succeeded", batch.Succeeded,
		"failed", batch.Failed,
		"duration", batch.Duration,
	)
	return batch, nil
}
