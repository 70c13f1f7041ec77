// AngelaMos | 2026
// service.go

package reading

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/carterperez-dev/fortune-api/internal/gemini"
	"github.com/carterperez-dev/fortune-api/internal/markup"
	"github.com/carterperez-dev/fortune-api/internal/prompt"
)

const (
	errGenerationFailed  = "풀이 생성 중 오류가 발생했습니다. 잠시 후 다시 시도해주세요."
	errStreamInterrupted = "풀이 전송이 중단되었습니다. 다시 시도해주세요."
)

type Streamer interface {
	Open(ctx context.Context, req gemini.Request) (gemini.Stream, error)
}

type Options struct {
	GenerationTimeout time.Duration
	Retry             gemini.RetryPolicy
	Logger            *slog.Logger
}

type Service struct {
	streamer Streamer
	opts     Options
	logger   *slog.Logger
}

func NewService(streamer Streamer, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		streamer: streamer,
		opts:     opts,
		logger:   logger,
	}
}

// Stream runs one generation and reports it through emit. Failures after
// the caller has started streaming are reported as an error event; the
// returned error is non-nil only when emit itself failed or ctx ended.
func (s *Service) Stream(
	ctx context.Context,
	req prompt.ReadingRequest,
	emit func(Event) error,
) error {
	genCtx := ctx
	if s.opts.GenerationTimeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, s.opts.GenerationTimeout)
		defer cancel()
	}

	gr := gemini.Request{
		Model:  req.Model,
		Prompt: prompt.BuildReadingPrompt(req),
	}

	started := time.Now()

	stream, err := gemini.Do(genCtx, s.opts.Retry,
		func(ctx context.Context) (gemini.Stream, error) {
			return s.streamer.Open(ctx, gr)
		},
	)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.Error("open reading stream failed",
			"model", req.Model,
			"second_request", req.IsSecondRequest,
			"error", err,
		)
		return emit(ErrorEvent{Type: EventError, Error: errGenerationFailed})
	}
	defer stream.Close()

	var (
		acc          strings.Builder
		accLen       int
		finishReason string
		usage        *gemini.Usage
	)

	for {
		chunk, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			if errors.Is(genCtx.Err(), context.DeadlineExceeded) {
				s.logger.Warn("reading generation timed out",
					"elapsed", time.Since(started),
					"accumulated_length", accLen,
				)
				finishReason = gemini.FinishReasonTimeout
				break
			}

			s.logger.Error("reading stream failed",
				"accumulated_length", accLen,
				"error", err,
			)
			return emit(ErrorEvent{Type: EventError, Error: errStreamInterrupted})
		}

		if chunk.FinishReason != "" {
			finishReason = chunk.FinishReason
		}
		if chunk.Usage != nil {
			usage = chunk.Usage
		}

		if chunk.Text == "" {
			continue
		}

		acc.WriteString(chunk.Text)
		accLen += utf8.RuneCountInString(chunk.Text)

		if err := emit(ChunkEvent{
			Type:              EventChunk,
			Text:              chunk.Text,
			AccumulatedLength: accLen,
		}); err != nil {
			return fmt.Errorf("emit chunk: %w", err)
		}
	}

	done := BuildDone(acc.String(), finishReason, usage, req)

	s.logger.Info("reading completed",
		"model", req.Model,
		"finish_reason", done.FinishReason,
		"truncated", done.IsTruncated,
		"second_request", req.IsSecondRequest,
		"accumulated_length", accLen,
		"elapsed", time.Since(started),
	)

	return emit(done)
}

// BuildDone post-processes the accumulated model output into the final
// event. On a second request, sections the client already holds are
// removed regardless of whether the model repeated them.
func BuildDone(
	raw string,
	finishReason string,
	usage *gemini.Usage,
	req prompt.ReadingRequest,
) DoneEvent {
	html := markup.Clean(raw)
	if req.IsSecondRequest {
		html = markup.DropSubtitles(html, req.CompletedSubtitles)
	}

	if finishReason == "" {
		finishReason = "STOP"
	}

	return DoneEvent{
		Type:               EventDone,
		HTML:               html,
		IsTruncated:        IsTruncated(finishReason),
		FinishReason:       finishReason,
		Usage:              usage,
		CompletedSubtitles: markup.CompletedSubtitles(html),
	}
}

func IsTruncated(finishReason string) bool {
	return finishReason == "MAX_TOKENS" ||
		finishReason == gemini.FinishReasonTimeout
}
