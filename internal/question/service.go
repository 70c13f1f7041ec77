// AngelaMos | 2026
// service.go

package question

import (
	"context"
	"fmt"
	"strings"

	"github.com/carterperez-dev/fortune-api/internal/core"
	"github.com/carterperez-dev/fortune-api/internal/gemini"
	"github.com/carterperez-dev/fortune-api/internal/markup"
	"github.com/carterperez-dev/fortune-api/internal/prompt"
)

type Generator interface {
	Generate(ctx context.Context, req gemini.Request) (*gemini.Result, error)
}

type Service struct {
	generator      Generator
	retry          gemini.RetryPolicy
	maxAnswerChars int
}

func NewService(
	generator Generator,
	retry gemini.RetryPolicy,
	maxAnswerChars int,
) *Service {
	return &Service{
		generator:      generator,
		retry:          retry,
		maxAnswerChars: maxAnswerChars,
	}
}

func (s *Service) Answer(
	ctx context.Context,
	req prompt.QuestionRequest,
) (*AnswerResponse, error) {
	req.MaxAnswerChars = s.maxAnswerChars

	gr := gemini.Request{
		Model:  req.Model,
		Prompt: prompt.BuildQuestionPrompt(req),
	}

	result, err := gemini.Do(ctx, s.retry,
		func(ctx context.Context) (*gemini.Result, error) {
			return s.generator.Generate(ctx, gr)
		},
	)
	if err != nil {
		return nil, core.UpstreamError("answer generation", err)
	}

	answer := markup.PlainText(markup.Clean(result.Text))
	answer = markup.TruncateRunes(answer, s.maxAnswerChars)

	if strings.TrimSpace(answer) == "" {
		return nil, core.UpstreamError(
			"answer generation",
			fmt.Errorf("empty answer, finish reason %q", result.FinishReason),
		)
	}

	return &AnswerResponse{Answer: answer}, nil
}
