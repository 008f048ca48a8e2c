// Package coping asks the generator for coping strategies tailored to a
// user's addiction, progress and triggers.
package coping

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/julianstephens/rehab/internal/constants"
	apperrors "github.com/julianstephens/rehab/internal/errors"
	"github.com/julianstephens/rehab/internal/llm"
	"github.com/julianstephens/rehab/internal/logger"
	"github.com/julianstephens/rehab/internal/validation"
)

// Input describes the user's situation
type Input struct {
	AddictionType string `json:"addictionType" validate:"required,addiction"`
	Progress      string `json:"progress" validate:"notblank,maxbytes"`
	Triggers      string `json:"triggers" validate:"required,min=5,maxbytes"`
}

// DefaultProgress phrases a day count the way the dashboard does
func DefaultProgress(soberDays int) string {
	if soberDays == 1 {
		return "1 day sober"
	}
	return fmt.Sprintf("%d days sober", soberDays)
}

type Suggester struct {
	gen llm.Generator
}

func NewSuggester(gen llm.Generator) *Suggester {
	return &Suggester{gen: gen}
}

// Suggest returns a list of strategies. Validation failures are returned
// before any generator call.
func (s *Suggester) Suggest(ctx context.Context, user string, in Input) ([]string, error) {
	in.Triggers = strings.TrimSpace(in.Triggers)
	in.Progress = strings.TrimSpace(in.Progress)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	text, err := s.gen.Generate(ctx, llm.Request{
		System: systemPrompt(),
		Prompt: fmt.Sprintf("Addiction Type: %s\nProgress: %s\nTriggers: %s", in.AddictionType, in.Progress, in.Triggers),
		User:   user,
	})
	if err != nil {
		return nil, wrap(err)
	}

	strategies := parseStrategies(text)
	if len(strategies) == 0 {
		return nil, wrap(llm.ErrEmptyCompletion)
	}
	logger.Debug("Generated coping strategies", "count", len(strategies))
	return strategies, nil
}

// wrap keeps a rate limit a rate limit and tags everything else as a generation failure
func wrap(err error) error {
	kind := apperrors.KindGeneration
	if apperrors.KindOf(err) == apperrors.KindRateLimited {
		kind = apperrors.KindRateLimited
	}
	return apperrors.Wrap(kind, err, "failed to generate coping strategies")
}

func systemPrompt() string {
	var b strings.Builder
	b.WriteString("You are an AI assistant that provides coping strategies for people trying to overcome their addictions.\n\n")
	b.WriteString("Consider the user's addiction type, their progress, and their stated triggers when suggesting coping strategies.\n\n")
	b.WriteString("Select from the following list of established coping techniques:\n")
	for _, t := range constants.CopingTechniques {
		b.WriteString("- ")
		b.WriteString(t)
		b.WriteString("\n")
	}
	b.WriteString("\nSuggest the strategies most relevant to the user's situation. ")
	b.WriteString(`Reply with only a JSON object of the form {"strategies": ["..."]}.`)
	return b.String()
}

// parseStrategies reads the first JSON object in text, falling back to
// bulleted or numbered lines when the model ignored the format.
func parseStrategies(text string) []string {
	if start := strings.Index(text, "{"); start >= 0 {
		if end := strings.LastIndex(text, "}"); end > start {
			var out struct {
				Strategies []string `json:"strategies"`
			}
			if err := json.Unmarshal([]byte(text[start:end+1]), &out); err == nil {
				return clean(out.Strategies)
			}
		}
	}

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*• ")
		line = strings.TrimLeft(line, "0123456789")
		line = strings.TrimLeft(line, ".) ")
		lines = append(lines, line)
	}
	return clean(lines)
}

func clean(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
