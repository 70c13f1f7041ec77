// AngelaMos | 2026
// client.go

package gemini

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/genai"

	"github.com/carterperez-dev/fortune-api/internal/config"
	"github.com/carterperez-dev/fortune-api/internal/core"
)

const FinishReasonTimeout = "TIMEOUT"

type Request struct {
	Model             string
	Prompt            string
	SystemInstruction string
}

type Usage struct {
	PromptTokenCount     int32 `json:"promptTokenCount"`
	CandidatesTokenCount int32 `json:"candidatesTokenCount"`
	TotalTokenCount      int32 `json:"totalTokenCount"`
}

type Chunk struct {
	Text         string
	FinishReason string
	Usage        *Usage
}

type Result struct {
	Text         string
	FinishReason string
	Usage        *Usage
}

// Stream yields chunks until Next returns io.EOF. Close must be called
// whenever Open succeeded.
type Stream interface {
	Next() (Chunk, error)
	Close()
}

type Client struct {
	client *genai.Client
	cfg    config.GeminiConfig
}

func NewClient(ctx context.Context, cfg config.GeminiConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Client{client: client, cfg: cfg}, nil
}

func (c *Client) Open(ctx context.Context, req Request) (Stream, error) {
	model := c.cfg.ResolveModel(req.Model)

	ctx, span := core.StartSpan(ctx, "gemini.stream",
		attribute.String("gemini.model", model),
		attribute.Int("gemini.prompt_chars", len(req.Prompt)),
	)

	seq := c.client.Models.GenerateContentStream(
		ctx,
		model,
		contents(req.Prompt),
		c.generationConfig(req),
	)

	next, stop := iter.Pull2(seq)

	first, err, ok := next()
	if !ok {
		stop()
		span.End()
		return &stream{done: true}, nil
	}
	if err != nil {
		stop()
		core.SetSpanError(ctx, err)
		span.End()
		return nil, fmt.Errorf("open stream: %w", err)
	}

	return &stream{
		next:    next,
		stop:    stop,
		pending: first,
		end:     func() { span.End() },
	}, nil
}

func (c *Client) Generate(ctx context.Context, req Request) (*Result, error) {
	model := c.cfg.ResolveModel(req.Model)

	ctx, span := core.StartSpan(ctx, "gemini.generate",
		attribute.String("gemini.model", model),
	)
	defer span.End()

	resp, err := c.client.Models.GenerateContent(
		ctx,
		model,
		contents(req.Prompt),
		c.generationConfig(req),
	)
	if err != nil {
		core.SetSpanError(ctx, err)
		return nil, fmt.Errorf("generate content: %w", err)
	}

	chunk := toChunk(resp)
	return &Result{
		Text:         chunk.Text,
		FinishReason: chunk.FinishReason,
		Usage:        chunk.Usage,
	}, nil
}

func (c *Client) generationConfig(req Request) *genai.GenerateContentConfig {
	gc := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(c.cfg.Temperature),
		MaxOutputTokens: c.cfg.MaxOutputTokens,
	}

	if req.SystemInstruction != "" {
		gc.SystemInstruction = genai.NewContentFromText(
			req.SystemInstruction,
			genai.RoleUser,
		)
	}

	return gc
}

func contents(prompt string) []*genai.Content {
	return []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
}

type stream struct {
	next    func() (*genai.GenerateContentResponse, error, bool)
	stop    func()
	end     func()
	pending *genai.GenerateContentResponse
	done    bool
}

func (s *stream) Next() (Chunk, error) {
	if s.done {
		return Chunk{}, io.EOF
	}

	if s.pending != nil {
		resp := s.pending
		s.pending = nil
		return toChunk(resp), nil
	}

	resp, err, ok := s.next()
	if !ok {
		s.done = true
		return Chunk{}, io.EOF
	}
	if err != nil {
		s.done = true
		return Chunk{}, fmt.Errorf("read stream: %w", err)
	}

	return toChunk(resp), nil
}

func (s *stream) Close() {
	if s.stop != nil {
		s.stop()
	}
	if s.end != nil {
		s.end()
		s.end = nil
	}
	s.done = true
}

func toChunk(resp *genai.GenerateContentResponse) Chunk {
	var chunk Chunk
	if resp == nil {
		return chunk
	}

	if len(resp.Candidates) > 0 && resp.Candidates[0] != nil {
		cand := resp.Candidates[0]
		chunk.FinishReason = string(cand.FinishReason)

		if cand.Content != nil {
			var sb strings.Builder
			for _, part := range cand.Content.Parts {
				if part == nil || part.Thought {
					continue
				}
				sb.WriteString(part.Text)
			}
			chunk.Text = sb.String()
		}
	}

	if um := resp.UsageMetadata; um != nil {
		chunk.Usage = &Usage{
			PromptTokenCount:     um.PromptTokenCount,
			CandidatesTokenCount: um.CandidatesTokenCount,
			TotalTokenCount:      um.TotalTokenCount,
		}
	}

	return chunk
}

// IsRetryable reports whether an open failure looks like an upstream 500.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == 500
	}

	return strings.Contains(err.Error(), "500")
}
