package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Candidate is a single task extracted from a transcript.
type Candidate struct {
	Title string `json:"title"`
	Notes string `json:"notes,omitempty"`
}

// Client calls the extraction service, which turns free-form transcript text
// into structured task candidates.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: "https://api.openai.com/v1/chat/completions",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if an API key is set.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

const extractionPrompt = `Extract actionable tasks from the following transcript. Respond with a JSON object of the form {"tasks":[{"title":"...","notes":"..."}]}. Titles are short imperative phrases. Use notes for supporting detail. If the transcript contains no actionable tasks, return an empty list.`

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat *respFormat   `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type respFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type extractionResult struct {
	Tasks []Candidate `json:"tasks"`
}

// Extract sends the transcript to the extraction service and returns the task
// candidates with non-empty titles. Candidates whose titles are blank after
// trimming are dropped.
func (c *Client) Extract(ctx context.Context, transcript string) ([]Candidate, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("extraction client not configured: missing API key")
	}

	body, err := json.Marshal(chatRequest{
		Model: "gpt-4o-mini",
		Messages: []chatMessage{
			{Role: "system", Content: extractionPrompt},
			{Role: "user", Content: transcript},
		},
		ResponseFormat: &respFormat{Type: "json_object"},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("extraction request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("extraction API returned status %d", resp.StatusCode)
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, fmt.Errorf("decode extraction response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return nil, fmt.Errorf("extraction response had no choices")
	}

	var result extractionResult
	if err := json.Unmarshal([]byte(cr.Choices[0].Message.Content), &result); err != nil {
		return nil, fmt.Errorf("parse extraction result: %w", err)
	}

	return Filter(result.Tasks), nil
}

// Filter drops candidates with blank titles and trims whitespace on the rest.
func Filter(candidates []Candidate) []Candidate {
	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		title := strings.TrimSpace(c.Title)
		if title == "" {
			continue
		}
		out = append(out, Candidate{
			Title: title,
			Notes: strings.TrimSpace(c.Notes),
		})
	}
	return out
}
