package issues

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"nstools/lib/nsapi"

	"go.opentelemetry.io/otel/attribute"
)

// Chooser picks the option id an issue is answered with.
type Chooser func(issue nsapi.Issue) (int, error)

// FixedOption answers with the option at index, counting available
// options from zero. Issues with fewer options are answered with their
// last one.
func FixedOption(index int) Chooser {
	return func(issue nsapi.Issue) (int, error) {
		if len(issue.Options) == 0 {
			return 0, fmt.Errorf("issue %d has no options", issue.ID)
		}
		if index < 0 || index >= len(issue.Options) {
			return issue.Options[len(issue.Options)-1], nil
		}
		return issue.Options[index], nil
	}
}

// RandomOption answers with a uniformly chosen option.
func RandomOption(rng *rand.Rand) Chooser {
	return func(issue nsapi.Issue) (int, error) {
		if len(issue.Options) == 0 {
			return 0, fmt.Errorf("issue %d has no options", issue.ID)
		}
		return issue.Options[rng.IntN(len(issue.Options))], nil
	}
}

// AnswerAll answers every open issue of an authenticated nation.
func AnswerAll(ctx context.Context, nation *nsapi.Nation, choose Chooser) ([]nsapi.IssueResult, error) {
	ctx, span := tracer.Start(ctx, "AnswerAll")
	defer span.End()

	open, err := nation.Issues(ctx)
	if err != nil {
		return nil, fmt.Errorf("issues of %s: %w", nation.Name, err)
	}
	span.SetAttributes(attribute.Int("issues", len(open)))

	var out []nsapi.IssueResult
	for _, issue := range open {
		option, err := choose(issue)
		if err != nil {
			return out, err
		}
		result, err := nation.AnswerIssue(ctx, issue.ID, option)
		if err != nil {
			return out, fmt.Errorf("answer issue %d: %w", issue.ID, err)
		}
		slog.InfoContext(ctx, "answered issue", "nation", nation.Name, "issue", issue.ID, "option", option)
		out = append(out, result)
	}
	return out, nil
}
