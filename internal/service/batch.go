// internal/service/batch.go
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/evanxz0/apikey-validation-service/internal/config"
	"github.com/evanxz0/apikey-validation-service/internal/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// BatchValidator partitions a key list into concurrency-sized groups and
// runs the per-key validator under a semaphore cap, so a large batch never
// exceeds the configured number of in-flight probes no matter what the
// caller requests.
type BatchValidator struct {
	cfg    *config.Config
	single SingleValidator

	// sleep is the inter-group delay; tests replace it to avoid real waits.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewBatchValidator wires a batch orchestrator over the given single-key
// validator.
func NewBatchValidator(cfg *config.Config, single SingleValidator) *BatchValidator {
	return &BatchValidator{
		cfg:    cfg,
		single: single,
		sleep:  sleepCtx,
	}
}

// ValidateKeys validates every key in the request and returns exactly one
// result per input key, in arbitrary order. Per-key failures of any kind are
// folded into result records; the returned error is non-nil only when ctx
// ended before the batch completed, in which case no partial results are
// returned.
func (bv *BatchValidator) ValidateKeys(ctx context.Context, req BatchRequest) ([]ValidationResult, error) {
	if len(req.Keys) == 0 {
		return []ValidationResult{}, nil
	}

	groupSize := utils.ClampInt(req.Concurrency, 1, bv.cfg.MaxConcurrency)
	runID := uuid.New().String()
	log := utils.WithComponent("batch_validator")
	log.Info("batch started",
		zap.String(utils.FieldBatchID, runID),
		zap.Int(utils.FieldCount, len(req.Keys)),
		zap.Int("concurrency", groupSize),
		zap.String(utils.FieldProvider, string(req.Provider)))

	// The semaphore is the hard cap; the group partitioning additionally
	// spreads load over time with an inter-group delay.
	sem := semaphore.NewWeighted(int64(groupSize))
	results := make(chan ValidationResult, len(req.Keys))
	opts := req.Options()

	for start := 0; start < len(req.Keys); start += groupSize {
		if start > 0 {
			if err := bv.sleep(ctx, bv.cfg.InterBatchDelay); err != nil {
				return nil, err
			}
		}
		end := start + groupSize
		if end > len(req.Keys) {
			end = len(req.Keys)
		}

		var wg sync.WaitGroup
		for _, key := range req.Keys[start:end] {
			wg.Add(1)
			go func(key string) {
				defer wg.Done()
				results <- bv.validateOne(ctx, sem, key, opts)
			}(key)
		}
		wg.Wait()

		if err := ctx.Err(); err != nil {
			log.Warn("batch aborted",
				zap.String(utils.FieldBatchID, runID),
				zap.Error(err))
			return nil, err
		}
	}
	close(results)

	out := make([]ValidationResult, 0, len(req.Keys))
	for res := range results {
		out = append(out, res)
	}

	summary := Summarize(out)
	log.Info("batch finished",
		zap.String(utils.FieldBatchID, runID),
		zap.Int("valid", summary.Valid),
		zap.Int("invalid", summary.Invalid))
	return out, nil
}

// validateOne runs one key under the semaphore and converts panics and
// stray errors into EXCEPTION results so a single bad key can never abort
// the batch.
func (bv *BatchValidator) validateOne(ctx context.Context, sem *semaphore.Weighted, key string, opts Options) (res ValidationResult) {
	defer func() {
		if r := recover(); r != nil {
			utils.WithComponent("batch_validator").Error("validation task panicked",
				zap.String(utils.FieldKey, utils.MaskKey(key)),
				zap.Any("panic", r))
			res = exceptionResult(key, fmt.Sprintf("validation task panicked: %v", r))
		}
	}()

	if err := sem.Acquire(ctx, 1); err != nil {
		return exceptionResult(key, err.Error())
	}
	defer sem.Release(1)

	res, err := bv.single.ValidateKey(ctx, key, opts)
	if err != nil {
		// Context ended mid-validation; the group loop will abort the batch,
		// this placeholder never reaches the caller.
		return exceptionResult(key, err.Error())
	}
	return res
}

func exceptionResult(key, message string) ValidationResult {
	return ValidationResult{
		Key:          utils.SanitizeKey(key),
		ErrorCode:    CodeException,
		ErrorMessage: message,
		CheckedAt:    time.Now().UTC(),
	}
}

// sleepCtx sleeps for d unless ctx ends first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
