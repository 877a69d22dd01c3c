package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"sniper/internal/model"
)

// UpstreamError marks a failure of the scoring collaborator: transport
// errors, non-2xx responses, unparseable output, or out-of-contract
// values. It is the one pipeline failure that surfaces to the user.
type UpstreamError struct {
	Reason string
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("scoring upstream: %s: %v", e.Reason, e.Err)
	}
	return "scoring upstream: " + e.Reason
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// PromptInput carries the fields embedded into the scoring prompt.
type PromptInput struct {
	URL     string
	Domain  string
	Product model.Product

	// PageExcerpt is an optional markdown rendering of the product page,
	// truncated by the caller. Empty when the fetch was blocked or failed.
	PageExcerpt string
}

// Scorer asks an LLM for a WINNER/LOSER judgment over extracted product
// metadata.
type Scorer interface {
	Score(ctx context.Context, in PromptInput) (model.Verdict, error)
}

// BuildPrompt renders the deterministic scoring prompt. Field order and
// wording are fixed so identical inputs produce identical prompts.
func BuildPrompt(in PromptInput) string {
	var b strings.Builder

	b.WriteString("Analyze this e-commerce product for dropshipping/resale potential.\n\n")
	fmt.Fprintf(&b, "URL: %s\n", in.URL)
	fmt.Fprintf(&b, "Domain: %s\n", in.Domain)
	fmt.Fprintf(&b, "Title: %s\n", orUnknown(in.Product.Title))
	fmt.Fprintf(&b, "Price: %s\n", orUnknown(in.Product.Price))
	fmt.Fprintf(&b, "Currency: %s\n", orUnknown(in.Product.Currency))
	fmt.Fprintf(&b, "Rating: %s\n", orUnknown(in.Product.Rating))
	fmt.Fprintf(&b, "Review count: %s\n", orUnknown(in.Product.ReviewCount))
	fmt.Fprintf(&b, "Image URL: %s\n", orUnknown(in.Product.ImageURL))

	if in.PageExcerpt != "" {
		b.WriteString("\nPage content (markdown excerpt):\n")
		b.WriteString(in.PageExcerpt)
		b.WriteString("\n")
	}

	b.WriteString(`
Score the product from 0 to 100 (an integer on a 0-100 scale, not 0-10, no decimals).

Return ONLY valid JSON, exactly one object with these keys:

{
  "score": number,
  "verdict": "WINNER" or "LOSER",
  "reason": "short explanation"
}
`)

	return b.String()
}

func orUnknown(v *string) string {
	if v == nil || *v == "" {
		return "unknown"
	}
	return *v
}

// OpenAIScorer implements Scorer against an OpenAI-compatible Chat
// Completions endpoint with a JSON-constrained response.
type OpenAIScorer struct {
	apiKey  string
	baseURL string
	model   string
	http    *http.Client
}

func NewOpenAIScorer(apiKey, baseURL, model string) (*OpenAIScorer, error) {
	if apiKey == "" || model == "" {
		return nil, errors.New("openai scorer is not fully configured")
	}
	return &OpenAIScorer{
		apiKey:  apiKey,
		baseURL: baseURL,
		model:   model,
		http:    &http.Client{Timeout: 30 * time.Second},
	}, nil
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *OpenAIScorer) Score(ctx context.Context, in PromptInput) (model.Verdict, error) {
	body := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "user", Content: BuildPrompt(in)},
		},
		Temperature:    0.0,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return model.Verdict{}, &UpstreamError{Reason: "marshal request", Err: err}
	}

	endpoint := c.baseURL
	if endpoint == "" {
		endpoint = "https://api.openai.com/v1"
	}
	endpoint = endpoint + "/chat/completions"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return model.Verdict{}, &UpstreamError{Reason: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return model.Verdict{}, &UpstreamError{Reason: "completion request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return model.Verdict{}, &UpstreamError{Reason: fmt.Sprintf("completion failed with status %d", resp.StatusCode)}
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return model.Verdict{}, &UpstreamError{Reason: "decode response", Err: err}
	}
	if len(parsed.Choices) == 0 {
		return model.Verdict{}, &UpstreamError{Reason: "completion returned no choices"}
	}

	return ParseVerdict(parsed.Choices[0].Message.Content)
}

// ParseVerdict parses the raw completion text into a Verdict and enforces
// the contract: score in [0,100] and verdict WINNER or LOSER. Whether
// verdict agrees with score is deliberately not checked; the label is
// passed through as the model supplied it.
func ParseVerdict(content string) (model.Verdict, error) {
	obj, err := firstJSONObject(content)
	if err != nil {
		return model.Verdict{}, &UpstreamError{Reason: "non-JSON completion output", Err: err}
	}

	var v model.Verdict
	if err := json.Unmarshal(obj, &v); err != nil {
		return model.Verdict{}, &UpstreamError{Reason: "completion output shape mismatch", Err: err}
	}

	if v.Score < 0 || v.Score > 100 {
		return model.Verdict{}, &UpstreamError{Reason: fmt.Sprintf("score %d out of [0,100]", v.Score)}
	}
	if v.Verdict != model.VerdictWinner && v.Verdict != model.VerdictLoser {
		return model.Verdict{}, &UpstreamError{Reason: fmt.Sprintf("unexpected verdict %q", v.Verdict)}
	}

	return v, nil
}

// firstJSONObject tries the whole string first, then falls back to the
// first {...} block, for models that wrap JSON in prose despite the
// response format.
func firstJSONObject(content string) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(content)
	if json.Valid([]byte(trimmed)) && strings.HasPrefix(trimmed, "{") {
		return json.RawMessage(trimmed), nil
	}

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end <= start {
		return nil, errors.New("no JSON object found in content")
	}

	snippet := content[start : end+1]
	if !json.Valid([]byte(snippet)) {
		return nil, errors.New("embedded JSON object does not parse")
	}
	return json.RawMessage(snippet), nil
}
