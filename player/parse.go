package player

import (
	"errors"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/contacteval/contact/game"
)

var ErrUnparsable = errors.New("unparsable response")

// extractJSON returns the outermost {...} in text. Models like to wrap
// their answer in prose or code fences.
func extractJSON(text string) (gjson.Result, error) {
	i := strings.Index(text, "{")
	j := strings.LastIndex(text, "}")
	if i < 0 || j < i {
		return gjson.Result{}, ErrUnparsable
	}
	js := text[i : j+1]
	if !gjson.Valid(js) {
		return gjson.Result{}, ErrUnparsable
	}
	return gjson.Parse(js), nil
}

func stringField(r gjson.Result, path string) string {
	v := r.Get(path)
	if v.Type != gjson.String {
		return ""
	}
	return strings.TrimSpace(v.String())
}

// ParseAttackerMove reads {"prefix_word": ..., "full_word_guess": ...}.
func ParseAttackerMove(text string) (game.Move, error) {
	r, err := extractJSON(text)
	if err != nil {
		return game.Move{}, err
	}
	mv := game.Move{
		PrefixWord:    stringField(r, "prefix_word"),
		FullWordGuess: stringField(r, "full_word_guess"),
	}
	if strings.EqualFold(mv.FullWordGuess, "null") {
		mv.FullWordGuess = ""
	}
	if mv.PrefixWord == "" && mv.FullWordGuess == "" {
		return mv, ErrUnparsable
	}
	return mv, nil
}

// ParseHolderGuess reads {"guess": ...}.
func ParseHolderGuess(text string) (string, error) {
	r, err := extractJSON(text)
	if err != nil {
		return "", err
	}
	g := stringField(r, "guess")
	if g == "" {
		return "", ErrUnparsable
	}
	return g, nil
}
