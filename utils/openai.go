package utils

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
)

const chatCompletionsURL = "https://api.openai.com/v1/chat/completions"
const embeddingsURL = "https://api.openai.com/v1/embeddings"

// Appended on the retry after a malformed answer.
const strictSuffix = "\n\nВАЖНО: верни ТОЛЬКО один валидный JSON-объект, без пояснений, без markdown, без другого текста."

// OpenAIClient is the oracle adapter: it turns food descriptions and photos
// into raw completion text. Parsing and validation belong to the caller.
type OpenAIClient struct {
	APIKey string
	Model  string
	Client *http.Client
}

type GPTMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type GPTResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type ImageContent struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL *struct {
		URL string `json:"url"`
	} `json:"image_url,omitempty"`
}

func NewOpenAIClient() *OpenAIClient {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		zap.L().Fatal("OPENAI_API_KEY environment variable not set")
	}

	model := os.Getenv("OPENAI_MODEL")
	if model == "" {
		model = "gpt-4o"
	}

	return &OpenAIClient{
		APIKey: apiKey,
		Model:  model,
		Client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Classify asks the oracle whether the text describes concrete food and how
// precise the portion is, with a strict JSON answer format.
func (c *OpenAIClient) Classify(ctx context.Context, text string) (string, error) {
	prompt := classificationPrompt + fmt.Sprintf("\n\nПользователь написал: '%s'", text)

	requestBody := map[string]interface{}{
		"model":       c.Model,
		"messages":    []GPTMessage{{Role: "user", Content: prompt}},
		"max_tokens":  400,
		"temperature": 0.3,
	}

	return c.sendRequest(ctx, requestBody)
}

// AnalyzeText asks the oracle for a structured nutrition estimate of a food
// description.
func (c *OpenAIClient) AnalyzeText(ctx context.Context, description, portionHint string, strict bool) (string, error) {
	prompt := fmt.Sprintf("Проанализируй описание блюда и верни результат в формате JSON:\n\nБлюдо: %s\n", description)
	if portionHint != "" {
		prompt += fmt.Sprintf("Порция: %s\n", portionHint)
	}
	prompt += analysisFormat
	if strict {
		prompt += strictSuffix
	}

	requestBody := map[string]interface{}{
		"model":       c.Model,
		"messages":    []GPTMessage{{Role: "user", Content: prompt}},
		"max_tokens":  800,
		"temperature": 0.3,
	}

	return c.sendRequest(ctx, requestBody)
}

// AnalyzeImage sends a prepared JPEG to the vision endpoint as a base64 data
// URL together with the analysis prompt.
func (c *OpenAIClient) AnalyzeImage(ctx context.Context, image []byte, caption string, strict bool) (string, error) {
	base64Image := base64.StdEncoding.EncodeToString(image)
	imageURL := fmt.Sprintf("data:image/jpeg;base64,%s", base64Image)

	prompt := "Проанализируй это изображение еды и верни результат в формате JSON.\n" + analysisFormat
	if caption != "" {
		prompt += fmt.Sprintf("\n\nДополнительное описание от пользователя: %s", caption)
	}
	if strict {
		prompt += strictSuffix
	}

	content := []ImageContent{
		{Type: "text", Text: prompt},
		{
			Type: "image_url",
			ImageURL: &struct {
				URL string `json:"url"`
			}{URL: imageURL},
		},
	}

	requestBody := map[string]interface{}{
		"model":       c.Model,
		"messages":    []GPTMessage{{Role: "user", Content: content}},
		"max_tokens":  1000,
		"temperature": 0.3,
	}

	return c.sendRequest(ctx, requestBody)
}

// Embed vectorizes text for the similar-food index.
func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	requestBody := map[string]interface{}{
		"input": text,
		"model": "text-embedding-ada-002",
	}
	requestBodyBytes, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", embeddingsURL, bytes.NewBuffer(requestBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send HTTP request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OpenAI API returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var responseData struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(bodyBytes, &responseData); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response JSON: %w", err)
	}
	if len(responseData.Data) == 0 {
		return nil, fmt.Errorf("no data in OpenAI API response")
	}
	return responseData.Data[0].Embedding, nil
}

func (c *OpenAIClient) sendRequest(ctx context.Context, requestBody map[string]interface{}) (string, error) {
	requestBodyBytes, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", chatCompletionsURL, bytes.NewBuffer(requestBodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create HTTP request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send HTTP request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("OpenAI API returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var response GPTResponse
	if err := json.Unmarshal(bodyBytes, &response); err != nil {
		return "", fmt.Errorf("failed to unmarshal response JSON: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no choices in OpenAI API response")
	}

	content := response.Choices[0].Message.Content
	zap.L().Debug("OpenAI response content", zap.String("content", content))
	return content, nil
}

const classificationPrompt = `Ты строгий анализатор пользовательского ввода для приложения учета питания.

ЗАДАЧА: Определить, описывает ли пользователь КОНКРЕТНУЮ ЕДУ или БЛЮДО.

Отклоняй ВСЕ что НЕ является едой: приветствия, вопросы, общие фразы, эмоции.
Принимай только еду: названия блюд, продукты, описания с количеством.

Формат ответа JSON:
{
    "is_food_related": true/false,
    "analysis_type": "exact"/"approximate"/"need_clarification"/"not_food",
    "food_description": "название еды или пустая строка",
    "portion_info": "информация о порции или null",
    "confidence": 0.0-1.0,
    "reasoning": "почему это еда или не еда"
}

Типы анализа:
- "exact": точные измерения (200г курицы, 2 банана, стакан молока)
- "approximate": нечеткие описания (большая порция, салат цезарь)
- "need_clarification": слишком неясно (просто "еда", "что-то вкусное")
- "not_food": НЕ связано с едой (привет, как дела, спасибо)

Будь очень строгим: лучше отклонить сомнительный случай.
Верни только JSON-объект, без другого текста.`

const analysisFormat = `
Формат ответа:
{
    "is_food": true/false,
    "food_name": "название блюда",
    "description": "краткое описание состава",
    "portion_options": [
        {"size": "small", "weight": вес_в_граммах, "description": "описание"},
        {"size": "medium", "weight": вес_в_граммах, "description": "описание"},
        {"size": "large", "weight": вес_в_граммах, "description": "описание"}
    ],
    "nutrition_per_100g": {
        "calories": калории_на_100г,
        "protein": белки_на_100г,
        "fat": жиры_на_100г,
        "carbs": углеводы_на_100г
    }
}

Если пользователь указал конкретный вес или количество, верни один вариант
порции с "size": "exact" и соответствующим весом.
Если на входе нет еды, верни {"is_food": false, "description": "что обнаружено"}.
Будь точным в расчетах БЖУ. Если не можешь точно определить, укажи примерные
значения для похожих блюд.`
