package llm

import (
	"context"
	"fmt"
	"strings"

	genai "google.golang.org/genai"

	"zentra/internal/llmtool"
)

// GeminiClient is a thin wrapper around the official genai client.
// It only focuses on the API call itself. Cross-cutting concerns
// (rate limiting, logging) are applied via Middleware.
type GeminiClient struct {
	cli   *genai.Client
	model string
}

func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: api key is required")
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultGeminiModel
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: init client: %w", err)
	}
	return &GeminiClient{cli: cli, model: model}, nil
}

const DefaultGeminiModel = "gemini-2.5-flash"

func (g *GeminiClient) Name() string { return "Gemini:" + g.model }
func (g *GeminiClient) Close() error { return nil }

// Complete sends the prompt. In structured mode it asks for
// application/json and forwards the response schema when one is given.
func (g *GeminiClient) Complete(ctx context.Context, req Request) (string, error) {
	var cfg *genai.GenerateContentConfig
	if req.Mode == ModeStructuredJSON {
		cfg = &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}
		if req.Schema != nil {
			cfg.ResponseSchema = toGenaiSchema(*req.Schema)
		}
	}
	resp, err := g.cli.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: req.Prompt}}}},
		cfg,
	)
	if err != nil {
		return "", err
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		if resp != nil && resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("%w: prompt blocked (%s)", ErrEmptyResponse, resp.PromptFeedback.BlockReason)
		}
		return "", ErrEmptyResponse
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		b.WriteString(part.Text)
	}
	return b.String(), nil
}

func toGenaiSchema(s llmtool.Schema) *genai.Schema {
	obj := &genai.Schema{
		Type:             genai.TypeObject,
		Title:            s.Name,
		Properties:       make(map[string]*genai.Schema, len(s.Fields)),
		PropertyOrdering: s.FieldNames(),
	}
	for _, f := range s.Fields {
		prop := &genai.Schema{Description: f.Description}
		switch f.Type {
		case llmtool.TypeNumber:
			prop.Type = genai.TypeNumber
		case llmtool.TypeStringList:
			prop.Type = genai.TypeArray
			prop.Items = &genai.Schema{Type: genai.TypeString}
			if f.Len > 0 {
				prop.MinItems = int64Ptr(f.Len)
				prop.MaxItems = int64Ptr(f.Len)
			}
		default:
			prop.Type = genai.TypeString
		}
		obj.Properties[f.Name] = prop
		if f.Required {
			obj.Required = append(obj.Required, f.Name)
		}
	}
	if s.Count <= 0 {
		return obj
	}
	return &genai.Schema{
		Type:     genai.TypeArray,
		Items:    obj,
		MinItems: int64Ptr(s.Count),
		MaxItems: int64Ptr(s.Count),
	}
}

func int64Ptr(n int) *int64 {
	v := int64(n)
	return &v
}
