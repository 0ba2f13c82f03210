/*
 * Copyright 2025 Google LLC
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *    https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package genai turns an aggregate prompt into a short narrative with the Gemini API.
package genai

import (
	"context"
	"fmt"
	"strings"

	"github.com/GoogleCloudPlatform/csv-report-extraction/internal/logging"
	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-1.5-flash-latest"

// Config holds configuration for the GenAI client.
type Config struct {
	APIKey string
	Model  string
	Retry  RetryOptions
}

type generateFunc func(ctx context.Context, prompt string) (*genai.GenerateContentResponse, error)

// Client narrates markdown prompts with Gemini.
type Client struct {
	client   *genai.Client
	cfg      Config
	logger   *zap.Logger
	generate generateFunc
}

// NewClient creates a new Gemini client.
func NewClient(ctx context.Context, cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("cannot create Gemini client: API key is missing")
	}
	logger = logging.OrNop(logger)

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	if cfg.Model == "" {
		cfg.Model = DefaultModel
		logger.Info("Gemini model not specified, using default", zap.String("model", cfg.Model))
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = DefaultRetryOptions
	}

	c := &Client{client: client, cfg: cfg, logger: logger}
	c.generate = c.generateWithModel
	return c, nil
}

// Close cleans up the underlying Gemini client.
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// IsAPIKeyValid checks if the Gemini API key is valid by listing models.
func (c *Client) IsAPIKeyValid(ctx context.Context) error {
	if c.client == nil {
		return fmt.Errorf("gemini client not initialized (likely missing API key)")
	}

	modelIterator := c.client.ListModels(ctx)
	if _, err := modelIterator.Next(); err != nil {
		if st, ok := status.FromError(err); ok {
			if st.Code() == codes.Unauthenticated || st.Code() == codes.PermissionDenied {
				return fmt.Errorf("invalid Gemini API key or insufficient permissions: %w", err)
			}
		}
		return fmt.Errorf("failed to verify Gemini API key by listing models: %w", err)
	}
	return nil
}

// Narrate asks the model for a short analytical summary of the aggregate tables in prompt.
func (c *Client) Narrate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("prompt is empty")
	}
	if c.generate == nil {
		return "", fmt.Errorf("gemini client not initialized")
	}

	full := buildPrompt(prompt)
	resp, err := withRetry(ctx, c.logger, c.cfg.Retry, func(ctx context.Context) (*genai.GenerateContentResponse, error) {
		return c.generate(ctx, full)
	})
	if err != nil {
		return "", fmt.Errorf("Gemini API call failed: %w", err)
	}

	text, err := getFirstTextPart(resp)
	if err != nil {
		return "", err
	}
	c.logger.Info("Generated narrative", zap.String("model", c.cfg.Model), zap.Int("chars", len(text)))
	return strings.TrimSpace(text), nil
}

func (c *Client) generateWithModel(ctx context.Context, prompt string) (*genai.GenerateContentResponse, error) {
	model := c.client.GenerativeModel(c.cfg.Model)
	model.SetTemperature(0.3)
	model.SetMaxOutputTokens(1024)
	model.SetTopP(0.9)
	model.SetTopK(40)
	return model.GenerateContent(ctx, genai.Text(prompt))
}

func buildPrompt(markdown string) string {
	return fmt.Sprintf(`
	You are a data analyst. The tables below were aggregated from a CSV file.

	********** Aggregates **********
	%s
	********** End Aggregates **********

	**Instructions:**
	1. Use ONLY the numbers in the tables. Do not invent values.
	2. Write at most three short paragraphs highlighting the dominant categories and locations.
	3. Output plain text without markdown headings.
	`, markdown)
}

// getFirstTextPart extracts the first text part from a Gemini response.
func getFirstTextPart(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		e := &ErrEmptyResponse{FinishReason: "unknown", SafetyRatings: "none"}
		if resp != nil && len(resp.Candidates) > 0 {
			e.FinishReason = resp.Candidates[0].FinishReason.String()
			if resp.Candidates[0].SafetyRatings != nil {
				e.SafetyRatings = fmt.Sprintf("%v", resp.Candidates[0].SafetyRatings)
			}
		}
		return "", e
	}
	part := resp.Candidates[0].Content.Parts[0]
	text, ok := part.(genai.Text)
	if !ok {
		return "", fmt.Errorf("unexpected response part type: %T", part)
	}
	return string(text), nil
}
