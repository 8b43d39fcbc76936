// Package recommend composes validation, inference, enrichment, and ledger
// logging into the prediction request contract.
package recommend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/kiranshivaraju/cropwise/internal/cache"
	"github.com/kiranshivaraju/cropwise/internal/features"
	"github.com/kiranshivaraju/cropwise/internal/knowledge"
	"github.com/kiranshivaraju/cropwise/pkg/models"
)

// ErrInternal is returned for failures no stage classified, including panics.
var ErrInternal = errors.New("internal error")

const defaultAppendTimeout = 5 * time.Second

// Inferrer is the inference capability the service depends on.
type Inferrer interface {
	Infer(vec models.FeatureVector) (models.InferenceResult, error)
	Fingerprint() string
}

// Ledger is the prediction history the service writes to and reads from.
type Ledger interface {
	Append(ctx context.Context, vec models.FeatureVector, crop string)
	Recent(ctx context.Context, limit int) ([]models.PredictionRecord, error)
	Export(ctx context.Context, w io.Writer) error
	Ping(ctx context.Context) error
}

// Recommendation is the successful response to a prediction request.
type Recommendation struct {
	RecommendedCrop    string                     `json:"recommended_crop"`
	FeatureImportances []models.FeatureImportance `json:"feature_importances"`
	CropDetails        models.CropDetail          `json:"crop_details"`
}

// Options configures optional collaborators.
type Options struct {
	// Cache stores inference results; nil disables caching.
	Cache    cache.Cache
	CacheTTL time.Duration
	// AppendTimeout bounds each background ledger write.
	AppendTimeout time.Duration
}

// Service is the request orchestrator. It is safe for concurrent use.
type Service struct {
	model         Inferrer
	knowledge     *knowledge.Table
	ledger        Ledger
	cache         cache.Cache
	cacheTTL      time.Duration
	appendTimeout time.Duration

	pending sync.WaitGroup
}

// NewService creates a Service.
func NewService(m Inferrer, k *knowledge.Table, l Ledger, opts Options) *Service {
	c := opts.Cache
	if c == nil {
		c = cache.Nop{}
	}
	timeout := opts.AppendTimeout
	if timeout <= 0 {
		timeout = defaultAppendTimeout
	}
	return &Service{
		model:         m,
		knowledge:     k,
		ledger:        l,
		cache:         c,
		cacheTTL:      opts.CacheTTL,
		appendTimeout: timeout,
	}
}

// Recommend validates raw, infers a crop, enriches it, and schedules a ledger
// append. Validation failures are returned as *features.FieldError, inference
// failures wrap model.ErrInference, and anything else wraps ErrInternal.
func (s *Service) Recommend(ctx context.Context, raw map[string]any) (rec *Recommendation, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in recommend pipeline",
				"error", r,
				"stack", string(debug.Stack()),
			)
			rec = nil
			err = fmt.Errorf("%w: %v", ErrInternal, r)
		}
	}()

	vec, err := features.Validate(raw)
	if err != nil {
		return nil, err
	}

	result, err := s.infer(ctx, vec)
	if err != nil {
		return nil, err
	}

	details := s.knowledge.Lookup(result.CropLabel)

	s.appendAsync(vec, result.CropLabel)

	return &Recommendation{
		RecommendedCrop:    result.CropLabel,
		FeatureImportances: result.FeatureImportances,
		CropDetails:        details,
	}, nil
}

// infer consults the cache before calling the model. Cache failures fail open.
func (s *Service) infer(ctx context.Context, vec models.FeatureVector) (models.InferenceResult, error) {
	key := cache.PredictionKey(s.model.Fingerprint(), vec)

	if data, found, err := s.cache.Get(ctx, key); err != nil {
		slog.Warn("prediction cache read failed", "error", err)
	} else if found {
		var cached models.InferenceResult
		if err := json.Unmarshal(data, &cached); err == nil && len(cached.FeatureImportances) == models.NumFeatures {
			return cached, nil
		}
		slog.Warn("ignoring unreadable prediction cache entry", "key", key)
	}

	result, err := s.model.Infer(vec)
	if err != nil {
		slog.Error("inference failed", "error", err)
		return models.InferenceResult{}, err
	}

	if s.cacheTTL > 0 {
		if data, err := json.Marshal(result); err == nil {
			if err := s.cache.Set(ctx, key, data, s.cacheTTL); err != nil {
				slog.Warn("prediction cache write failed", "error", err)
			}
		}
	}
	return result, nil
}

// appendAsync logs the prediction in the background, detached from the
// request context so a finished response does not cancel the write.
func (s *Service) appendAsync(vec models.FeatureVector, crop string) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		defer func() {
			if r := recover(); r != nil {
				slog.Error("panic while logging prediction", "error", r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), s.appendTimeout)
		defer cancel()
		s.ledger.Append(ctx, vec, crop)
	}()
}

// Recent returns up to limit logged predictions, most recent first.
func (s *Service) Recent(ctx context.Context, limit int) ([]models.PredictionRecord, error) {
	return s.ledger.Recent(ctx, limit)
}

// Export writes the full prediction history as CSV.
func (s *Service) Export(ctx context.Context, w io.Writer) error {
	return s.ledger.Export(ctx, w)
}

// Ping reports whether the ledger storage is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.ledger.Ping(ctx)
}

// Close waits for in-flight ledger appends to finish.
func (s *Service) Close() {
	s.pending.Wait()
}
