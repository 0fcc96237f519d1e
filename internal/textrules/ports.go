package textrules

import "context"

type LetterRule struct {
	From string `json:"from"` // 1 rune
	To   string `json:"to"`   // 0 or 1 rune, empty drops the letter
}

type WordRule struct {
	From string `json:"from"`
	To   string `json:"to"` // empty drops the word
}

type Repo interface {
	ListLetterRules(ctx context.Context) ([]LetterRule, error)
	ListWordRules(ctx context.Context) ([]WordRule, error)
}

type Service interface {
	Process(ctx context.Context, text string) (string, error)
}
