// Package vision extracts structured expense fields from receipt images
// using an OpenAI vision model. Its output is untrusted free-form input:
// callers prefill forms with it and fall back to manual entry on failure.
package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const prompt = `Analyze this receipt image and extract the following information in JSON format:
{
  "amount": number (total amount),
  "description": string (brief description of items/service),
  "category": string (one of: "Office Supplies", "Travel", "Meals & Entertainment", "Software & Subscriptions", "Equipment", "Marketing", "Training", "Other"),
  "date": string (date in YYYY-MM-DD format),
  "merchant": string (store/vendor name)
}

If any information is unclear or missing, make reasonable assumptions. For category, choose the most appropriate one from the list provided.`

// Extraction holds the structured fields read from a receipt.
type Extraction struct {
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Date        string  `json:"date"`
	Merchant    string  `json:"merchant"`
}

// Fallback is the defaulted result used when extraction fails, degrading
// receipt scanning to "fill the form manually".
func Fallback(now time.Time) Extraction {
	return Extraction{
		Amount:      0,
		Description: "Receipt processing failed - please enter manually",
		Category:    "Other",
		Date:        now.Format("2006-01-02"),
		Merchant:    "Unknown",
	}
}

// Config configures the extraction endpoint and HTTP behavior.
type Config struct {
	APIKey     string
	Model      string
	Endpoint   string
	HTTPClient *http.Client
}

// Client calls the vision model over HTTP.
type Client struct {
	cfg Config
}

// NewClient builds a vision client, filling in endpoint and model defaults.
func NewClient(cfg Config) *Client {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}
	if strings.TrimSpace(cfg.Endpoint) == "" {
		cfg.Endpoint = "https://api.openai.com/v1/chat/completions"
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = "gpt-4o"
	}
	return &Client{cfg: cfg}
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Extract sends the receipt image to the vision model and parses the
// structured fields out of its reply.
func (c *Client) Extract(ctx context.Context, image []byte, mimeType string) (Extraction, error) {
	if c.cfg.APIKey == "" {
		return Extraction{}, fmt.Errorf("vision: no API key configured")
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(image))
	body, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{{
			Role: "user",
			Content: []contentPart{
				{Type: "text", Text: prompt},
				{Type: "image_url", ImageURL: &imageURL{URL: dataURL}},
			},
		}},
		MaxTokens: 500,
	})
	if err != nil {
		return Extraction{}, fmt.Errorf("vision: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return Extraction{}, fmt.Errorf("vision: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return Extraction{}, fmt.Errorf("vision: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return Extraction{}, fmt.Errorf("vision: status %d: %s", resp.StatusCode, payload)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Extraction{}, fmt.Errorf("vision: decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return Extraction{}, fmt.Errorf("vision: empty response")
	}

	content := stripFences(parsed.Choices[0].Message.Content)
	var out Extraction
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return Extraction{}, fmt.Errorf("vision: parse extraction: %w", err)
	}
	return out, nil
}

// stripFences removes a markdown code fence the model sometimes wraps its
// JSON reply in.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
