package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.openai.com/v1"

const summarizePrompt = `You are Readr's news summarizer.

Return ONLY valid JSON that matches this structure:
{
  "headline": string,
  "whatHappened": string,
  "whyItMatters": string,
  "whatsNext": string,
  "source": string
}

Rules:
- Keep it concise and factual.
- Use the provided source as the "source" field (do not invent new publishers).
- If "whatsNext" is not clear, return an empty string "" (but the key must exist).

Input:
Title: %s
Source: %s
URL: %s
Snippet: %s`

// newsSummarySchema is the strict output schema: five required string
// fields, no additional properties.
var newsSummarySchema = map[string]any{
	"type":                 "object",
	"additionalProperties": false,
	"properties": map[string]any{
		"headline":     map[string]any{"type": "string"},
		"whatHappened": map[string]any{"type": "string"},
		"whyItMatters": map[string]any{"type": "string"},
		"whatsNext":    map[string]any{"type": "string"},
		"source":       map[string]any{"type": "string"},
	},
	"required": []string{"headline", "whatHappened", "whyItMatters", "whatsNext", "source"},
}

// Input describes one news item to summarize.
type Input struct {
	Title   string
	Source  string
	URL     string
	Snippet string
}

// Summarizer calls the OpenAI Responses API with a strict JSON schema.
type Summarizer struct {
	Model   string
	APIKey  string
	BaseURL string
	client  *http.Client
}

// NewSummarizer creates a summarizer. An empty baseURL selects the public
// OpenAI endpoint.
func NewSummarizer(model, apiKey, baseURL string) *Summarizer {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Summarizer{
		Model:   model,
		APIKey:  apiKey,
		BaseURL: baseURL,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

// IsConfigured checks if the API key is set.
func (s *Summarizer) IsConfigured() bool {
	return s.APIKey != ""
}

// Summarize generates a NewsSummary for the given item. The result always
// satisfies the NewsSummary invariant: every field except WhatsNext is
// non-empty after normalization.
func (s *Summarizer) Summarize(ctx context.Context, in Input) (NewsSummary, error) {
	if s.APIKey == "" {
		return NewsSummary{}, ErrNotConfigured
	}

	snippet := strings.TrimSpace(in.Snippet)
	if snippet == "" {
		snippet = "(none)"
	}
	prompt := fmt.Sprintf(summarizePrompt, in.Title, in.Source, in.URL, snippet)

	body := map[string]any{
		"model": s.Model,
		"input": prompt,
		"text": map[string]any{
			"format": map[string]any{
				"type":   "json_schema",
				"name":   "news_summary",
				"strict": true,
				"schema": newsSummarySchema,
			},
		},
	}

	data, err := json.Marshal(body)
	if err != nil {
		return NewsSummary{}, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.BaseURL+"/responses", bytes.NewReader(data))
	if err != nil {
		return NewsSummary{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return NewsSummary{}, fmt.Errorf("summarizer API error: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return NewsSummary{}, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return NewsSummary{}, &UpstreamError{Status: resp.StatusCode, Message: string(respBody)}
	}

	raw := extractOutputText(respBody)
	if raw == "" {
		return NewsSummary{}, ErrEmptyOutput
	}

	var parsed NewsSummary
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return NewsSummary{}, &MalformedOutputError{Raw: raw}
	}

	return normalize(parsed, in), nil
}

// responsesBody models the two shapes the Responses API delivers text in:
// a single output_text field, or output[].content[] fragments tagged
// "output_text".
type responsesBody struct {
	OutputText string `json:"output_text"`
	Output     []struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
}

func extractOutputText(body []byte) string {
	var resp responsesBody
	if err := json.Unmarshal(body, &resp); err != nil {
		return ""
	}

	if text := strings.TrimSpace(resp.OutputText); text != "" {
		return text
	}

	var chunks []string
	for _, out := range resp.Output {
		for _, c := range out.Content {
			if c.Type != "output_text" {
				continue
			}
			if text := strings.TrimSpace(c.Text); text != "" {
				chunks = append(chunks, text)
			}
		}
	}
	return strings.TrimSpace(strings.Join(chunks, "\n"))
}

// normalize coerces every field to a trimmed string and fills headline and
// source from the input when the model left them empty. WhatsNext may stay
// empty.
func normalize(parsed NewsSummary, in Input) NewsSummary {
	out := NewsSummary{
		Headline:     strings.TrimSpace(parsed.Headline),
		WhatHappened: strings.TrimSpace(parsed.WhatHappened),
		WhyItMatters: strings.TrimSpace(parsed.WhyItMatters),
		WhatsNext:    strings.TrimSpace(parsed.WhatsNext),
		Source:       strings.TrimSpace(parsed.Source),
	}
	if out.Headline == "" {
		out.Headline = in.Title
	}
	if out.Source == "" {
		out.Source = in.Source
	}
	return out
}
