package summary

import (
	"errors"
	"fmt"
)

// NewsSummary is the structured summary produced for one news item.
// WhatsNext is the only field allowed to be empty.
type NewsSummary struct {
	Headline     string `json:"headline"`
	WhatHappened string `json:"whatHappened"`
	WhyItMatters string `json:"whyItMatters"`
	WhatsNext    string `json:"whatsNext"`
	Source       string `json:"source"`
}

// ErrNotConfigured indicates no API key is available. Fatal for the call,
// never retried.
var ErrNotConfigured = errors.New("summarizer API key not configured")

// ErrEmptyOutput indicates the upstream response carried no output text.
var ErrEmptyOutput = errors.New("summarizer returned empty output text")

// UpstreamError is a non-success response from the generation API.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("summarizer upstream error %d: %s", e.Status, e.Message)
}

// MalformedOutputError indicates the upstream output text was not valid JSON.
// Raw carries the text for diagnosis.
type MalformedOutputError struct {
	Raw string
}

func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("summarizer returned non-JSON output: %s", e.Raw)
}
