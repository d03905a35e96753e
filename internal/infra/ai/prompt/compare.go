package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	domain "github.com/kp-analyzer/backend/internal/domain/analysis"
)

// GetSystemPrompt returns the evaluator instructions. The model must answer
// with the exact JSON schema below so ParseResult can normalize it.
func GetSystemPrompt() string {
	return `Ты — эксперт по оценке тендерных предложений. Тебе дают техническое задание (ТЗ) и одно коммерческое предложение (КП). Сравни КП с требованиями ТЗ и верни СТРОГО один JSON-объект без пояснений:
{
  "company_name": "название компании из КП",
  "compliance_score": 0-100,
  "scores": {"technical": 0-100, "commercial": 0-100, "experience": 0-100},
  "strengths": ["..."],
  "weaknesses": ["..."],
  "recommendations": ["..."]
}
Все оценки — целые числа от 0 до 100. Все текстовые поля — на русском языке.`
}

// GetUserPrompt builds the per-KP request.
func GetUserPrompt(tzURL, kpURL, fileName string) string {
	return fmt.Sprintf("Техническое задание: %s\nКоммерческое предложение (%s): %s\nОцени соответствие КП требованиям ТЗ.", tzURL, fileName, kpURL)
}

// rawResult mirrors the schema the model is asked for. Everything is
// optional; normalization happens once here, not in rendering code.
type rawResult struct {
	CompanyName     string   `json:"company_name"`
	ComplianceScore *float64 `json:"compliance_score"`
	Scores          struct {
		Technical  *float64 `json:"technical"`
		Commercial *float64 `json:"commercial"`
		Experience *float64 `json:"experience"`
	} `json:"scores"`
	Strengths       []string `json:"strengths"`
	Weaknesses      []string `json:"weaknesses"`
	Recommendations []string `json:"recommendations"`
}

// ParseResult normalizes the model's JSON into a Result: scores clamp to
// 0-100, missing numbers become 0, a missing company name falls back to
// the file name. List order is kept as received.
func ParseResult(raw, fileName string) (*domain.Result, error) {
	cleaned := stripFences(raw)

	var rr rawResult
	if err := json.Unmarshal([]byte(cleaned), &rr); err != nil {
		return nil, fmt.Errorf("decoding ai response: %w", err)
	}

	company := strings.TrimSpace(rr.CompanyName)
	if company == "" {
		company = fileName
	}

	return &domain.Result{
		CompanyName:     company,
		FileName:        fileName,
		ComplianceScore: clampScore(rr.ComplianceScore),
		Scores: domain.Scores{
			Technical:  clampScore(rr.Scores.Technical),
			Commercial: clampScore(rr.Scores.Commercial),
			Experience: clampScore(rr.Scores.Experience),
		},
		Strengths:       rr.Strengths,
		Weaknesses:      rr.Weaknesses,
		Recommendations: rr.Recommendations,
	}, nil
}

func clampScore(v *float64) int {
	if v == nil {
		return 0
	}
	s := int(*v)
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}

// stripFences removes a ```json ... ``` wrapper some models add despite
// the JSON response format.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
