package delivery

import (
	"net/http"

	tr "github.com/Vovarama1992/scene_narrator/internal/textrules"
)

// TextRuleHandler exposes the database rules the speech scrubber applies on
// top of its built-in markdown rules.
type TextRuleHandler struct {
	repo tr.Repo
}

func NewTextRuleHandler(repo tr.Repo) *TextRuleHandler {
	return &TextRuleHandler{repo: repo}
}

// GET /text-rules
func (h *TextRuleHandler) List(w http.ResponseWriter, r *http.Request) {
	letters, err := h.repo.ListLetterRules(r.Context())
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	words, err := h.repo.ListWordRules(r.Context())
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}

	if letters == nil {
		letters = []tr.LetterRule{}
	}
	if words == nil {
		words = []tr.WordRule{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"letters": letters,
		"words":   words,
	})
}
