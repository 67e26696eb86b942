package nutrition

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airyou-code/ai-nutritiolog-bot/models"
)

// stubOracle lets each test script the oracle's raw responses.
type stubOracle struct {
	classify     func(text string) (string, error)
	analyzeText  func(description, hint string, strict bool) (string, error)
	analyzeImage func(image []byte, caption string, strict bool) (string, error)

	classifyCalls int
	analyzeCalls  int
}

func (s *stubOracle) Classify(ctx context.Context, text string) (string, error) {
	s.classifyCalls++
	if s.classify == nil {
		return "", errors.New("unexpected classify call")
	}
	return s.classify(text)
}

func (s *stubOracle) AnalyzeText(ctx context.Context, description, hint string, strict bool) (string, error) {
	s.analyzeCalls++
	if s.analyzeText == nil {
		return "", errors.New("unexpected analyze call")
	}
	return s.analyzeText(description, hint, strict)
}

func (s *stubOracle) AnalyzeImage(ctx context.Context, image []byte, caption string, strict bool) (string, error) {
	s.analyzeCalls++
	if s.analyzeImage == nil {
		return "", errors.New("unexpected image call")
	}
	return s.analyzeImage(image, caption, strict)
}

func TestClassifyGreetingSkipsOracle(t *testing.T) {
	oracle := &stubOracle{}
	c := NewClassifier(oracle)

	result := c.Classify(context.Background(), "Привет!")

	assert.False(t, result.IsFoodRelated)
	assert.Equal(t, models.AnalysisNotFood, result.Type)
	assert.Equal(t, 0, oracle.classifyCalls, "lexical rejection must not call the oracle")
}

func TestClassifyExactQuantity(t *testing.T) {
	oracle := &stubOracle{}
	c := NewClassifier(oracle)

	result := c.Classify(context.Background(), "2 банана")

	require.True(t, result.IsFoodRelated)
	assert.Equal(t, models.AnalysisExact, result.Type)
	assert.Equal(t, 0, oracle.classifyCalls)
}

func TestClassifyGramQuantity(t *testing.T) {
	c := NewClassifier(&stubOracle{})

	result := c.Classify(context.Background(), "гречка 150 г")

	require.True(t, result.IsFoodRelated)
	assert.Equal(t, models.AnalysisExact, result.Type)
	assert.Contains(t, result.PortionHint, "150 г")
}

func TestClassifyBareFoodWordIsApproximate(t *testing.T) {
	c := NewClassifier(&stubOracle{})

	result := c.Classify(context.Background(), "борщ")

	require.True(t, result.IsFoodRelated)
	assert.Equal(t, models.AnalysisApproximate, result.Type)
}

func TestClassifySizeAdjectiveKeepsHint(t *testing.T) {
	c := NewClassifier(&stubOracle{})

	result := c.Classify(context.Background(), "маленькая тарелка каши")

	require.True(t, result.IsFoodRelated)
	assert.Equal(t, models.AnalysisApproximate, result.Type)
	assert.Contains(t, result.PortionHint, "маленькая")
}

func TestClassifyContainerWithLiquidIsExact(t *testing.T) {
	c := NewClassifier(&stubOracle{})

	result := c.Classify(context.Background(), "стакан молока")

	require.True(t, result.IsFoodRelated)
	assert.Equal(t, models.AnalysisExact, result.Type)
}

func TestClassifyOracleFallback(t *testing.T) {
	oracle := &stubOracle{
		classify: func(text string) (string, error) {
			return `Вот ответ: {"is_food_related": true, "analysis_type": "approximate",
				"food_description": "десерт", "portion_info": "", "confidence": 0.7}`, nil
		},
	}
	c := NewClassifier(oracle)

	result := c.Classify(context.Background(), "что-то сладкое после тренировки")

	assert.Equal(t, 1, oracle.classifyCalls)
	require.True(t, result.IsFoodRelated)
	assert.Equal(t, models.AnalysisApproximate, result.Type)
	assert.Equal(t, "десерт", result.FoodDescription)
	assert.Equal(t, "что-то сладкое после тренировки", result.OriginalInput)
	assert.InDelta(t, 0.7, result.Confidence, 1e-9)
}

func TestClassifyUnparseableOracleDegrades(t *testing.T) {
	oracle := &stubOracle{
		classify: func(text string) (string, error) {
			return "no json here at all", nil
		},
	}
	c := NewClassifier(oracle)

	result := c.Classify(context.Background(), "асдф ячсм")

	assert.False(t, result.IsFoodRelated)
	assert.Equal(t, models.AnalysisNotFood, result.Type)
	assert.InDelta(t, 0.3, result.Confidence, 1e-9)
}

func TestClassifyOracleErrorDegrades(t *testing.T) {
	oracle := &stubOracle{
		classify: func(text string) (string, error) {
			return "", errors.New("timeout")
		},
	}
	c := NewClassifier(oracle)

	result := c.Classify(context.Background(), "асдф ячсм")

	assert.False(t, result.IsFoodRelated)
	assert.InDelta(t, 0.3, result.Confidence, 1e-9)
}

func TestClassifyNotFoodVerdictFromOracle(t *testing.T) {
	oracle := &stubOracle{
		classify: func(text string) (string, error) {
			return `{"is_food_related": false, "analysis_type": "not_food", "confidence": 0.95}`, nil
		},
	}
	c := NewClassifier(oracle)

	result := c.Classify(context.Background(), "расскажи анекдот про кота")

	assert.False(t, result.IsFoodRelated)
	assert.Equal(t, models.AnalysisNotFood, result.Type)
}

func TestClassifyIsDeterministic(t *testing.T) {
	c := NewClassifier(&stubOracle{})

	first := c.Classify(context.Background(), "2 банана")
	second := c.Classify(context.Background(), "2 банана")

	assert.Equal(t, first, second)
}
