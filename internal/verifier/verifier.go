// Package verifier checks emitted comparison records against a stored run.
package verifier

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dbsmedya/layoutdiff/internal/cidutil"
	"github.com/dbsmedya/layoutdiff/internal/discovery"
	"github.com/dbsmedya/layoutdiff/internal/format"
	"github.com/dbsmedya/layoutdiff/internal/logger"
	"github.com/dbsmedya/layoutdiff/internal/store"
)

// VerificationMethod defines how records are checked.
type VerificationMethod string

const (
	// MethodCount compares the number of common objects and merged types (fast)
	MethodCount VerificationMethod = "count"
	// MethodCID recomputes the report CID over both records (exact)
	MethodCID VerificationMethod = "cid"
	// MethodSkip skips verification entirely
	MethodSkip VerificationMethod = "skip"
)

// ParseMethod converts a flag value. Empty selects MethodCID.
func ParseMethod(s string) (VerificationMethod, error) {
	switch VerificationMethod(s) {
	case "", MethodCID:
		return MethodCID, nil
	case MethodCount:
		return MethodCount, nil
	case MethodSkip:
		return MethodSkip, nil
	default:
		return "", fmt.Errorf("invalid verification method %q (must be 'cid', 'count' or 'skip')", s)
	}
}

// RunLookup returns the latest stored run of a pair. *store.Store
// implements it.
type RunLookup interface {
	Latest(ctx context.Context, pair string) (*store.Run, error)
}

// VerifyResult holds the verification result of a single pair.
type VerifyResult struct {
	Pair            string
	Method          VerificationMethod
	ExpectedCID     string
	ActualCID       string
	ExpectedObjects int
	ActualObjects   int
	ExpectedTypes   int
	ActualTypes     int
	Match           bool
	ErrorMessage    string
}

// VerifyStats contains overall verification statistics.
type VerifyStats struct {
	PairsVerified int
	PairsPassed   int
	PairsFailed   int
	Method        VerificationMethod
	Results       []*VerifyResult
}

// Verifier compares the records in a pair's output directory with the
// run the store holds for that pair.
type Verifier struct {
	runs   RunLookup
	files  format.Files
	method VerificationMethod
	logger *logger.Logger
}

// NewVerifier creates a new verifier.
func NewVerifier(runs RunLookup, files format.Files, method VerificationMethod, log *logger.Logger) (*Verifier, error) {
	if runs == nil && method != MethodSkip {
		return nil, fmt.Errorf("run lookup is nil")
	}
	if files.CommonObjects == "" || files.Types == "" {
		return nil, fmt.Errorf("record file names are required")
	}
	if log == nil {
		log = logger.NewNop()
	}

	switch method {
	case MethodCount, MethodCID, MethodSkip:
	default:
		return nil, fmt.Errorf("unsupported verification method: %s", method)
	}

	return &Verifier{
		runs:   runs,
		files:  files,
		method: method,
		logger: log,
	}, nil
}

// Verify checks every pair. Unlike a comparison batch, verification keeps
// going after a mismatch and reports all of them at the end.
func (v *Verifier) Verify(ctx context.Context, pairs []discovery.Pair) (*VerifyStats, error) {
	if v.method == MethodSkip {
		v.logger.Info("Verification SKIPPED (method=skip)")
		return &VerifyStats{Method: MethodSkip}, nil
	}

	stats := &VerifyStats{Method: v.method}
	v.logger.Infof("Starting verification (method=%s) for %d pairs", v.method, len(pairs))

	for _, pair := range pairs {
		if err := ctx.Err(); err != nil {
			return stats, fmt.Errorf("verification interrupted: %w", err)
		}

		result, err := v.VerifyPair(ctx, pair)
		if err != nil {
			return stats, fmt.Errorf("verification failed for pair %s: %w", pair.Name, err)
		}

		stats.PairsVerified++
		stats.Results = append(stats.Results, result)
		if result.Match {
			stats.PairsPassed++
			v.logger.Debugf("Verification PASSED for pair %q", pair.Name)
		} else {
			stats.PairsFailed++
			v.logger.Errorf("Verification FAILED for pair %q: %s", pair.Name, result.ErrorMessage)
		}
	}

	v.logger.Infof("Verification complete: %d pairs verified, %d passed, %d failed",
		stats.PairsVerified, stats.PairsPassed, stats.PairsFailed)

	if stats.PairsFailed > 0 {
		return stats, fmt.Errorf("verification failed: %d pairs had mismatches", stats.PairsFailed)
	}
	return stats, nil
}

// VerifyPair checks one pair's records on disk against its latest run.
func (v *Verifier) VerifyPair(ctx context.Context, pair discovery.Pair) (*VerifyResult, error) {
	run, err := v.runs.Latest(ctx, pair.Name)
	if err != nil {
		return nil, err
	}

	commonJSON, typesJSON, err := v.readRecords(pair.OutputDir)
	if err != nil {
		return nil, err
	}

	switch v.method {
	case MethodCount:
		return verifyByCount(pair.Name, run, commonJSON, typesJSON)
	case MethodCID:
		return verifyByCID(pair.Name, run, commonJSON, typesJSON), nil
	default:
		return nil, fmt.Errorf("unsupported verification method: %s", v.method)
	}
}

func (v *Verifier) readRecords(dir string) ([]byte, []byte, error) {
	commonJSON, err := os.ReadFile(filepath.Join(dir, v.files.CommonObjects))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read common objects: %w", err)
	}
	typesJSON, err := os.ReadFile(filepath.Join(dir, v.files.Types))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read type graph: %w", err)
	}
	return commonJSON, typesJSON, nil
}

// verifyByCount compares record lengths with the counts stored with the run.
func verifyByCount(pair string, run *store.Run, commonJSON, typesJSON []byte) (*VerifyResult, error) {
	var common, types []json.RawMessage
	if err := json.Unmarshal(commonJSON, &common); err != nil {
		return nil, fmt.Errorf("failed to decode common objects: %w", err)
	}
	if err := json.Unmarshal(typesJSON, &types); err != nil {
		return nil, fmt.Errorf("failed to decode type graph: %w", err)
	}

	result := &VerifyResult{
		Pair:            pair,
		Method:          MethodCount,
		ExpectedObjects: run.CommonObjects,
		ActualObjects:   len(common),
		ExpectedTypes:   run.MergedTypes,
		ActualTypes:     len(types),
	}
	result.Match = result.ExpectedObjects == result.ActualObjects && result.ExpectedTypes == result.ActualTypes
	if !result.Match {
		result.ErrorMessage = fmt.Sprintf("count mismatch: stored=%d/%d, on disk=%d/%d (common objects/types)",
			result.ExpectedObjects, result.ExpectedTypes, result.ActualObjects, result.ActualTypes)
	}
	return result, nil
}

// verifyByCID recomputes the report CID over the files as written.
func verifyByCID(pair string, run *store.Run, commonJSON, typesJSON []byte) *VerifyResult {
	result := &VerifyResult{
		Pair:        pair,
		Method:      MethodCID,
		ExpectedCID: run.ReportCID,
		ActualCID:   cidutil.ReportCID(commonJSON, typesJSON),
	}
	result.Match = result.ExpectedCID == result.ActualCID
	if !result.Match {
		result.ErrorMessage = fmt.Sprintf("CID mismatch: stored=%s, on disk=%s", result.ExpectedCID, result.ActualCID)
	}
	return result
}

// GetMethod returns the configured verification method.
func (v *Verifier) GetMethod() VerificationMethod {
	return v.method
}
