package nutrition

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/airyou-code/ai-nutritiolog-bot/models"
)

// Classifier decides whether a user message describes food and how precise
// the portion information is. It is a pure function of its input plus one
// optional oracle call: identical text always classifies identically.
type Classifier struct {
	oracle Oracle
	logger *zap.Logger
}

func NewClassifier(oracle Oracle) *Classifier {
	return &Classifier{
		oracle: oracle,
		logger: zap.L().Named("classifier"),
	}
}

// Canonical non-food openers: greetings, small talk, acknowledgements,
// punctuation-only. Matching any of these rejects without an oracle call.
var nonFoodPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(привет|здравствуй|добрый день|доброе утро|добрый вечер|hi|hello)`),
	regexp.MustCompile(`^(как дела|что делаешь|как поживаешь|как жизнь|что нового)`),
	regexp.MustCompile(`^(спасибо|благодарю|thanks|пасиб)`),
	regexp.MustCompile(`^(пока|до свидания|увидимся|bye)`),
	regexp.MustCompile(`^(да|нет|не знаю|может быть|возможно)$`),
	regexp.MustCompile(`^(хорошо|плохо|нормально|отлично|классно|ужасно)$`),
	regexp.MustCompile(`^(помоги|помощь|что делать|не понимаю)`),
	regexp.MustCompile(`^[!@#$%^&*()_+\-=\[\]{};':"\\|,.<>/?]*$`),
}

var foodKeywords = []string{
	// meals
	"завтрак", "обед", "ужин", "перекус", "съел", "ел", "поел",
	// dishes and staples
	"суп", "борщ", "каша", "салат", "мясо", "курица", "рыба", "хлеб",
	"молоко", "творог", "сыр", "яйцо", "картофель", "рис", "гречка",
	"макароны", "паста", "пицца", "бургер", "шаурма", "роллы",
	// fruits and vegetables
	"банан", "яблок", "апельсин", "груш", "помидор", "огурец", "морковь",
	// drinks
	"чай", "кофе", "сок", "кефир", "компот",
	// quantities
	"грамм", "килограмм", "литр", "миллилитр", "штук", "кусочек", "тарелка",
	"стакан", "чашка", "ложка", "порция",
}

// Measurement units are Cyrillic, where \b (an ASCII word boundary in RE2)
// never fires, so unit patterns end with an explicit non-letter guard.
var measuredQuantityPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\d+\s*(?:грамм[а-яё]*|килограмм[а-яё]*|кг|гр?)(?:[^а-яё]|$)`),
	regexp.MustCompile(`\d+\s*(?:миллилитр[а-яё]*|литр[а-яё]*|мл|л)(?:[^а-яё]|$)`),
	regexp.MustCompile(`\d+\s*(?:штук[а-яё]*|шт)(?:[^а-яё]|$)`),
	regexp.MustCompile(`\d+\s*(?:банан|яблок|огурц|помидор|кусоч)`),
}

var exactPatterns = append(measuredQuantityPatterns,
	// a concrete container bound to a liquid word
	regexp.MustCompile(`(стакан|чашка|тарелка|кружка|бутылка)\s+(молока|воды|сока|чая|кофе|супа|борща)`),
)

var sizeIndicators = []string{"маленьк", "средн", "больш", "огромн", "крошечн"}

var vaguePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(еда|блюдо|что-то|немного|чуть-чуть)$`),
	regexp.MustCompile(`^[а-яё]{1,3}$`),
}

// Classify runs the cheap lexical pass first and falls back to the oracle
// only when the text is neither an obvious rejection nor obvious food.
// It never returns an error for malformed oracle output: classification
// degrades to a low-confidence keyword heuristic instead.
func (c *Classifier) Classify(ctx context.Context, text string) models.ClassificationResult {
	input := strings.TrimSpace(text)
	lower := strings.ToLower(input)

	for _, p := range nonFoodPatterns {
		if p.MatchString(lower) {
			return models.ClassificationResult{
				IsFoodRelated: false,
				Type:          models.AnalysisNotFood,
				Confidence:    0.9,
				OriginalInput: input,
			}
		}
	}

	if c.looksLikeFood(lower) {
		return models.ClassificationResult{
			IsFoodRelated:   true,
			Type:            portionType(lower),
			FoodDescription: input,
			PortionHint:     extractPortionHint(lower),
			Confidence:      0.9,
			OriginalInput:   input,
		}
	}

	raw, err := c.oracle.Classify(ctx, input)
	if err != nil {
		c.logger.Warn("oracle classification failed, using keyword fallback",
			zap.Error(err), zap.String("input", input))
		return keywordFallback(lower, input)
	}

	result, err := parseClassification(raw)
	if err != nil {
		c.logger.Warn("unparseable oracle classification, using keyword fallback",
			zap.Error(err), zap.String("content", raw))
		return keywordFallback(lower, input)
	}

	result.OriginalInput = input
	if result.FoodDescription == "" {
		result.FoodDescription = input
	}
	return result
}

func (c *Classifier) looksLikeFood(lower string) bool {
	for _, kw := range foodKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	for _, p := range measuredQuantityPatterns {
		if p.MatchString(lower) {
			return true
		}
	}
	return false
}

// portionType picks the analysis type in priority order: explicit exact
// measurements, then size adjectives, then too-vague residuals, otherwise
// approximate.
func portionType(lower string) models.AnalysisType {
	for _, p := range exactPatterns {
		if p.MatchString(lower) {
			return models.AnalysisExact
		}
	}
	for _, ind := range sizeIndicators {
		if strings.Contains(lower, ind) {
			return models.AnalysisApproximate
		}
	}
	trimmed := strings.TrimSpace(lower)
	for _, p := range vaguePatterns {
		if p.MatchString(trimmed) {
			return models.AnalysisNeedClarification
		}
	}
	return models.AnalysisApproximate
}

var portionHintPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\d+(?:[.,]\d+)?\s*(?:грамм[а-яё]*|килограмм[а-яё]*|кг|гр?)`),
	regexp.MustCompile(`\d+(?:[.,]\d+)?\s*(?:миллилитр[а-яё]*|литр[а-яё]*|мл|л)`),
	regexp.MustCompile(`\d+(?:[.,]\d+)?\s*(?:штук[а-яё]*|шт|банан[а-яё]*|яблок[а-яё]*|огурц[а-яё]*|помидор[а-яё]*|кусоч[а-яё]*)`),
	regexp.MustCompile(`(?:стакан|чашка|тарелка|кружка|бутылка|миска)[а-яё]*`),
	regexp.MustCompile(`(?:маленьк|средн|больш|огромн|крошечн)[а-яё]*`),
}

func extractPortionHint(lower string) string {
	var parts []string
	for _, p := range portionHintPatterns {
		parts = append(parts, p.FindAllString(lower, -1)...)
	}
	return strings.Join(parts, ", ")
}

type classificationPayload struct {
	IsFoodRelated   bool    `json:"is_food_related"`
	AnalysisType    string  `json:"analysis_type"`
	FoodDescription string  `json:"food_description"`
	PortionInfo     string  `json:"portion_info"`
	Confidence      float64 `json:"confidence"`
}

func parseClassification(content string) (models.ClassificationResult, error) {
	jsonStr, err := ExtractJSON(content)
	if err != nil {
		return models.ClassificationResult{}, err
	}

	var payload classificationPayload
	if err := json.Unmarshal([]byte(jsonStr), &payload); err != nil {
		return models.ClassificationResult{}, err
	}

	t := models.AnalysisType(payload.AnalysisType)
	switch t {
	case models.AnalysisExact, models.AnalysisApproximate,
		models.AnalysisNeedClarification, models.AnalysisNotFood:
	default:
		t = models.AnalysisNotFood
	}
	if !payload.IsFoodRelated {
		t = models.AnalysisNotFood
	}

	return models.ClassificationResult{
		IsFoodRelated:   payload.IsFoodRelated,
		Type:            t,
		FoodDescription: payload.FoodDescription,
		PortionHint:     payload.PortionInfo,
		Confidence:      payload.Confidence,
	}, nil
}

// keywordFallback is the degraded path for a broken oracle answer: a crude
// keyword check at confidence 0.3 rather than a hard failure.
func keywordFallback(lower, input string) models.ClassificationResult {
	isFood := false
	for _, w := range []string{"еда", "блюдо", "съел", "поел"} {
		if strings.Contains(lower, w) {
			isFood = true
			break
		}
	}

	t := models.AnalysisNotFood
	if isFood {
		t = models.AnalysisApproximate
	}

	return models.ClassificationResult{
		IsFoodRelated:   isFood,
		Type:            t,
		FoodDescription: input,
		Confidence:      0.3,
		OriginalInput:   input,
	}
}
