// Package llm summarizes sessions directly against an OpenAI-compatible
// chat-completions endpoint, using structured output to keep the response
// machine-readable.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/invopop/jsonschema"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"

	"github.com/dkrizanic/frontdesk-core/core/summaries"
	"github.com/dkrizanic/frontdesk-core/internal/utils"
)

const defaultBaseURL = "https://api.cerebras.ai/v1"

const systemPrompt = "You are a professional assistant summarizing a call."

const promptTemplate = `Summarize this appointment booking conversation.
Include:
1. Main purpose of the call
2. Actions taken (bookings, cancellations)
3. User preferences mentioned
4. Any follow-up needed

Transcript:
%s

Keep it professional and concise (max 150 words).`

var _ summaries.Summarizer = (*Client)(nil)

type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

// WithBaseURL points the client at a different OpenAI-compatible endpoint.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = baseURL }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// NewClient creates a completion-backed summarizer.
func NewClient(apiKey, model string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		model:      model,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type       string      `json:"type"`
	JSONSchema *jsonSchema `json:"json_schema,omitempty"`
}

type jsonSchema struct {
	Name   string            `json:"name"`
	Schema jsonschema.Schema `json:"schema"`
	Strict bool              `json:"strict"`
}

type requestBody struct {
	Model          string          `json:"model"`
	Messages       []message       `json:"messages"`
	Temperature    *float64        `json:"temperature,omitempty"`
	MaxTokens      *int            `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type completionResponseBody struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type structuredSummary struct {
	SummaryText string `json:"summary_text" jsonschema:"title=SummaryText,description=Concise professional summary of the call"`
}

func (c *Client) Summarize(ctx context.Context, transcript []summaries.Turn) (string, error) {
	ctx, span := tracer.Start(ctx, "summarize via completion")
	defer span.End()
	span.SetAttributes(attribute.String("request.model", c.model))

	var transcriptText strings.Builder
	for _, turn := range transcript {
		fmt.Fprintf(&transcriptText, "%s: %s\n", turn.Role, turn.Text)
	}
	if transcriptText.Len() == 0 {
		return "", fmt.Errorf("no transcript to summarize")
	}

	reflector := jsonschema.Reflector{DoNotReference: true}
	schema := reflector.Reflect(structuredSummary{})

	reqBody := requestBody{
		Model: c.model,
		Messages: []message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf(promptTemplate, transcriptText.String())},
		},
		Temperature: utils.Ptr(0.3),
		MaxTokens:   utils.Ptr(400),
		ResponseFormat: &responseFormat{
			Type: "json_schema",
			JSONSchema: &jsonSchema{
				Name:   "structuredSummary",
				Schema: *schema,
				Strict: true,
			},
		},
	}

	requestBodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		err = fmt.Errorf("error marshalling JSON: %w", err)
		span.RecordError(err)
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewBuffer(requestBodyBytes))
	if err != nil {
		return "", fmt.Errorf("error creating HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("non-OK HTTP status: %s", resp.Status)
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("error reading response body: %w", err)
	}

	var responseBody completionResponseBody
	if err := json.Unmarshal(bodyBytes, &responseBody); err != nil {
		return "", fmt.Errorf("error unmarshalling response body: %w", err)
	}
	if len(responseBody.Choices) == 0 {
		return "", fmt.Errorf("completion returned no choices")
	}

	var structured structuredSummary
	if err := json.Unmarshal([]byte(responseBody.Choices[0].Message.Content), &structured); err != nil {
		return "", fmt.Errorf("error unmarshalling structured summary: %w", err)
	}

	return structured.SummaryText, nil
}
