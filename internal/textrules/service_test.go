package textrules

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	letters []LetterRule
	words   []WordRule
	err     error
}

func (f *fakeRepo) ListLetterRules(context.Context) ([]LetterRule, error) { return f.letters, f.err }
func (f *fakeRepo) ListWordRules(context.Context) ([]WordRule, error)     { return f.words, f.err }

func TestProcessStripsMarkdown(t *testing.T) {
	svc := NewService(nil)

	cases := map[string]string{
		"A red square.":                          "A red square.",
		"**A desk** with a `laptop`":             "A desk with a laptop",
		"# Room\n\n- a chair\n- a _lamp_":        "Room a chair a lamp",
		"• Sign reads   \"EXIT\"\t near the door": "Sign reads \"EXIT\" near the door",
		"well-lit street":                        "well-lit street",
		"":                                       "",
	}
	for in, want := range cases {
		got, err := svc.Process(context.Background(), in)
		require.NoError(t, err)
		assert.Equal(t, want, got, "input %q", in)
	}
}

func TestProcessAppliesRepoRules(t *testing.T) {
	svc := NewService(&fakeRepo{
		letters: []LetterRule{{From: "&", To: "+"}},
		words:   []WordRule{{From: "+", To: "and"}, {From: "TV", To: "television"}},
	})

	got, err := svc.Process(context.Background(), "A *TV* & a sofa")
	require.NoError(t, err)
	assert.Equal(t, "A television and a sofa", got)
}

func TestProcessRepoError(t *testing.T) {
	svc := NewService(&fakeRepo{err: errors.New("db down")})

	_, err := svc.Process(context.Background(), "text")
	assert.Error(t, err)
}
