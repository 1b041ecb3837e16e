package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"flash-resume/internal/model"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

const defaultAPIURL = "https://openrouter.ai/api/v1/chat/completions"

// GenerationError means the model produced empty, unparseable, or
// schema-invalid output. It is not retried internally; the caller should
// treat the job as retryable by resubmission.
type GenerationError struct {
	Reason string
	Err    error
}

func (e *GenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("resume generation: %s: %v", e.Reason, e.Err)
	}
	return "resume generation: " + e.Reason
}

func (e *GenerationError) Unwrap() error { return e.Err }

const systemPrompt = `You are an expert professional resume writer and career consultant.
You combine scraped professional profile data, code-activity data from the
candidate's repositories, and (when present) a target job posting into a
single polished, ATS-friendly resume.

Rules:
- Prioritize ACCURACY: only include information supported by the provided data.
- Write a compelling professional summary highlighting both professional
  experience and technical activity. Use <strong> tags for key highlights.
- Organize technical skills by category; only include categories that have content.
- Use strong action verbs and quantify achievements wherever the data supports it.
- When a target job posting is provided, tailor wording and keyword choices toward it.
- Respond with a single valid JSON object matching the requested schema.
  No text outside the JSON object, no markdown code fences.`

const userPromptTemplate = `Based on the following data sources, generate a complete professional resume.
Write all free-text content in this language: %s.

## Data Sources
%s

## Required JSON Output Schema
Respond with a JSON object with this EXACT structure:
{
    "full_name": "Candidate's full name",
    "title": "Professional title/headline",
    "email": "email@example.com",
    "github_url": "https://github.com/username",
    "linkedin_url": "https://linkedin.com/in/username",
    "professional_summary": "3-5 sentence summary. Use <strong> tags for key highlights.",
    "technical_skills": {
        "languages_frameworks": "comma separated",
        "data_infrastructure": "comma separated",
        "cloud_devops": "comma separated",
        "testing_practices": "comma separated"
    },
    "experience": [
        {"company": "...", "position": "...", "date_range": "Month Year - Month Year", "bullets": ["..."]}
    ],
    "education": [
        {"institution": "...", "degree": "...", "date_range": "Year - Year"}
    ],
    "languages": ["English (Fluent)"],
    "personal_projects": [
        {"name": "...", "description": "...", "url": "https://...", "stack": "..."}
    ],
    "keywords": ["optional", "ats", "keywords"]
}

IMPORTANT: Respond ONLY with the JSON object, no additional text.`

// Client generates structured resume content through the OpenRouter
// chat-completions API.
type Client struct {
	http   *resty.Client
	apiKey string
	model  string

	// APIURL is overridable for tests.
	APIURL string
}

func NewClient(apiKey, model string) *Client {
	return &Client{
		http:   resty.New().SetTimeout(120 * time.Second),
		apiKey: apiKey,
		model:  model,
		APIURL: defaultAPIURL,
	}
}

// GenerateResume sends the acquired raw sources to the model and returns
// the generated content as a map already validated against the fixed
// resume schema.
func (c *Client) GenerateResume(ctx context.Context, sources map[string]interface{}, language string) (map[string]interface{}, error) {
	srcJSON, err := json.MarshalIndent(sources, "", "  ")
	if err != nil {
		return nil, err
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(c.apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]interface{}{
			"model": c.model,
			"messages": []map[string]string{
				{"role": "system", "content": systemPrompt},
				{"role": "user", "content": fmt.Sprintf(userPromptTemplate, language, string(srcJSON))},
			},
			"temperature": 0.3,
			"max_tokens":  8000,
		}).
		Post(c.APIURL)
	if err != nil {
		return nil, &GenerationError{Reason: "request failed", Err: err}
	}
	if resp.StatusCode() != 200 {
		return nil, &GenerationError{Reason: fmt.Sprintf("model API returned %d", resp.StatusCode())}
	}

	content := gjson.GetBytes(resp.Body(), "choices.0.message.content").String()
	if strings.TrimSpace(content) == "" {
		return nil, &GenerationError{Reason: "model returned empty content"}
	}

	out := map[string]interface{}{}
	if err := json.Unmarshal([]byte(stripFences(content)), &out); err != nil {
		return nil, &GenerationError{Reason: "model output is not valid JSON", Err: err}
	}
	if err := model.ValidateMap(out); err != nil {
		return nil, &GenerationError{Reason: "model output does not match the resume schema", Err: err}
	}
	return out, nil
}

// stripFences removes a markdown code-block wrapper some models insist on.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	lines := strings.Split(s, "\n")
	if len(lines) < 2 {
		return s
	}
	lines = lines[1:]
	if strings.HasPrefix(strings.TrimSpace(lines[len(lines)-1]), "```") {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}
