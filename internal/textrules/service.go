package textrules

import (
	"context"
	"strings"
	"unicode"
)

// Markdown leftovers that models sometimes emit despite the prompt.
var builtinLetterRules = []LetterRule{
	{From: "*"}, {From: "#"}, {From: "_"}, {From: "`"},
	{From: "•"}, {From: "◦"}, {From: "▪"},
}

var builtinWordRules = []WordRule{
	{From: "-"}, {From: ">"},
}

type service struct {
	repo Repo
}

// NewService returns a scrubber. repo may be nil, then only the built-in rules apply.
func NewService(repo Repo) Service {
	return &service{repo: repo}
}

func (s *service) Process(ctx context.Context, text string) (string, error) {
	letterRules := builtinLetterRules
	wordRules := builtinWordRules

	if s.repo != nil {
		extra, err := s.repo.ListLetterRules(ctx)
		if err != nil {
			return "", err
		}
		letterRules = append(append([]LetterRule{}, extra...), letterRules...)

		extraWords, err := s.repo.ListWordRules(ctx)
		if err != nil {
			return "", err
		}
		wordRules = append(append([]WordRule{}, extraWords...), wordRules...)
	}

	// 1) letters
	var b strings.Builder
	for _, r := range text {
		replaced, keep := r, true
		for _, rule := range letterRules {
			from := []rune(rule.From)
			if len(from) != 1 || r != from[0] {
				continue
			}
			if to := []rune(rule.To); len(to) > 0 {
				replaced = to[0]
			} else {
				keep = false
			}
			break
		}
		if keep {
			b.WriteRune(replaced)
		}
	}

	// 2) words; splitting on whitespace also folds newlines and runs of spaces
	tokens := strings.FieldsFunc(b.String(), unicode.IsSpace)

	out := tokens[:0]
	for _, tok := range tokens {
		for _, rule := range wordRules {
			if tok == rule.From {
				tok = rule.To
				break
			}
		}
		if tok != "" {
			out = append(out, tok)
		}
	}

	return strings.Join(out, " "), nil
}
