package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/oplego/lexharvest/internal/model"
)

// RunFunc executes one pipeline run for a jurisdiction
type RunFunc func(ctx context.Context, j model.Jurisdiction) (*model.ImportResult, error)

// JurisdictionJob runs a pipeline for one jurisdiction
type JurisdictionJob struct {
	Jurisdiction model.Jurisdiction
	Run          RunFunc
	index        int
}

// Execute executes the job
func (j *JurisdictionJob) Execute(ctx context.Context) Result {
	result, err := j.Run(ctx, j.Jurisdiction)
	return &JurisdictionResult{
		Jurisdiction: j.Jurisdiction,
		Result:       result,
		Error:        err,
		index:        j.index,
	}
}

// JurisdictionResult represents the result of a jurisdiction job
type JurisdictionResult struct {
	Jurisdiction model.Jurisdiction
	Result       *model.ImportResult
	Error        error
	index        int
}

// GetError returns the error from the run
func (r *JurisdictionResult) GetError() error {
	return r.Error
}

// BatchProcessor drives several jurisdictions at once. This is safe because
// every jurisdiction owns an independent rate limiter; acts inside one
// jurisdiction are still processed sequentially by the run itself.
type BatchProcessor struct {
	run         RunFunc
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(run RunFunc, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		run:         run,
		concurrency: concurrency,
	}
}

// ProcessJurisdictions runs every jurisdiction and returns results in input order
func (b *BatchProcessor) ProcessJurisdictions(ctx context.Context, jurisdictions []model.Jurisdiction) []*JurisdictionResult {
	if len(jurisdictions) == 0 {
		return []*JurisdictionResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for i, j := range jurisdictions {
		job := &JurisdictionJob{
			Jurisdiction: j,
			Run:          b.run,
			index:        i,
		}
		if !pool.Submit(job) {
			break
		}
	}

	results := pool.Wait()

	out := make([]*JurisdictionResult, 0, len(results))
	for _, result := range results {
		out = append(out, result.(*JurisdictionResult))
	}
	sort.Slice(out, func(a, b int) bool { return out[a].index < out[b].index })

	return out
}

// ReadIDsFromFile reads source identifiers from a file (one per line).
// Blank lines and # comments are skipped, duplicates dropped.
func ReadIDsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var ids []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			ids = append(ids, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return ids, nil
}
