package nutrition

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/airyou-code/ai-nutritiolog-bot/models"
)

const similarFoodsTopK = 3

// Analyzer drives one description-to-nutrition resolution: cache lookup,
// optional similar-food grounding, the oracle round trip, normalization and
// the single stricter retry after malformed output. It guarantees at most one
// oracle call per fingerprint within the cache TTL; concurrent identical
// requests may both miss and both call the oracle, which only wastes oracle
// cost since writes are last-write-wins on an immutable value.
type Analyzer struct {
	oracle Oracle
	cache  Cache
	foods  SimilarFoodIndex // may be nil
	logger *zap.Logger
}

func NewAnalyzer(oracle Oracle, cache Cache, foods SimilarFoodIndex) *Analyzer {
	return &Analyzer{
		oracle: oracle,
		cache:  cache,
		foods:  foods,
		logger: zap.L().Named("analyzer"),
	}
}

// AnalyzeText resolves a text food description into a validated FoodAnalysis.
func (a *Analyzer) AnalyzeText(ctx context.Context, description, portionHint string) (models.FoodAnalysis, error) {
	key := TextFingerprint(description, portionHint)
	if analysis, ok := a.cached(ctx, key); ok {
		return analysis, nil
	}

	description = a.withSimilarContext(ctx, description)

	analysis, err := a.normalizeWithRetry(ctx, key, func(strict bool) (string, error) {
		return a.oracle.AnalyzeText(ctx, description, portionHint, strict)
	})
	if err != nil {
		return models.FoodAnalysis{}, err
	}
	return analysis, nil
}

// AnalyzePhoto resolves a food photo (optionally captioned) the same way.
// The image must already be prepared for the vision call.
func (a *Analyzer) AnalyzePhoto(ctx context.Context, image []byte, caption string) (models.FoodAnalysis, error) {
	key := PhotoFingerprint(image, caption)
	if analysis, ok := a.cached(ctx, key); ok {
		return analysis, nil
	}

	analysis, err := a.normalizeWithRetry(ctx, key, func(strict bool) (string, error) {
		return a.oracle.AnalyzeImage(ctx, image, caption, strict)
	})
	if err != nil {
		return models.FoodAnalysis{}, err
	}
	return analysis, nil
}

// Remember records a confirmed food in the similar-food index so later
// analyses of related descriptions get grounding context. Best effort.
func (a *Analyzer) Remember(ctx context.Context, analysis models.FoodAnalysis) {
	if a.foods == nil || !analysis.IsFood {
		return
	}
	if err := a.foods.Remember(ctx, analysis.FoodName, analysis.Description); err != nil {
		a.logger.Warn("failed to index confirmed food", zap.Error(err), zap.String("food", analysis.FoodName))
	}
}

func (a *Analyzer) normalizeWithRetry(ctx context.Context, key string, call func(strict bool) (string, error)) (models.FoodAnalysis, error) {
	analysis, err := a.callAndNormalize(call, false)
	if errors.Is(err, models.ErrMalformedOutput) {
		a.logger.Warn("malformed oracle output, retrying with strict prompt", zap.Error(err), zap.String("key", key))
		analysis, err = a.callAndNormalize(call, true)
	}
	if err != nil {
		return models.FoodAnalysis{}, err
	}

	a.store(ctx, key, analysis)
	return analysis, nil
}

func (a *Analyzer) callAndNormalize(call func(strict bool) (string, error), strict bool) (models.FoodAnalysis, error) {
	raw, err := call(strict)
	if err != nil {
		// A hung or failed oracle call is indistinguishable from garbage
		// output to the dialogue; fold it into the malformed kind so the
		// retry and user-facing recovery paths apply.
		return models.FoodAnalysis{}, fmt.Errorf("oracle call failed: %v: %w", err, models.ErrMalformedOutput)
	}
	return Normalize(raw)
}

func (a *Analyzer) cached(ctx context.Context, key string) (models.FoodAnalysis, bool) {
	value, err := a.cache.Get(ctx, key)
	if err != nil {
		a.logger.Warn("cache read failed", zap.Error(err), zap.String("key", key))
		return models.FoodAnalysis{}, false
	}
	if value == nil {
		return models.FoodAnalysis{}, false
	}

	var analysis models.FoodAnalysis
	if err := json.Unmarshal(value, &analysis); err != nil {
		a.logger.Warn("dropping undecodable cache entry", zap.Error(err), zap.String("key", key))
		return models.FoodAnalysis{}, false
	}

	a.logger.Debug("using cached food analysis", zap.String("key", key))
	return analysis, true
}

func (a *Analyzer) store(ctx context.Context, key string, analysis models.FoodAnalysis) {
	value, err := json.Marshal(analysis)
	if err != nil {
		a.logger.Warn("failed to marshal analysis for cache", zap.Error(err))
		return
	}
	if err := a.cache.Put(ctx, key, value, DefaultCacheTTL); err != nil {
		a.logger.Warn("cache write failed", zap.Error(err), zap.String("key", key))
	}
}

func (a *Analyzer) withSimilarContext(ctx context.Context, description string) string {
	if a.foods == nil {
		return description
	}

	similar, err := a.foods.Similar(ctx, description, similarFoodsTopK)
	if err != nil {
		a.logger.Warn("similar-food lookup failed", zap.Error(err))
		return description
	}
	if len(similar) == 0 {
		return description
	}

	grounding := "Ранее распознанные похожие блюда:\n"
	for _, s := range similar {
		grounding += "- " + s + "\n"
	}
	return grounding + "\nБлюдо: " + description
}
