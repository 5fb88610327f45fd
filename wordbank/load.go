package wordbank

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
)

var ErrEmptyWordList = errors.New("word list is empty")

// LoadWords reads a word list from path. Files ending in .json must hold a
// JSON array of strings; anything else is read as one word per line.
func LoadWords(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var words []string
	if strings.EqualFold(filepath.Ext(path), ".json") {
		words, err = parseJSONWords(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	} else {
		scanner := bufio.NewScanner(bytes.NewReader(data))
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			words = append(words, line)
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmptyWordList)
	}
	return words, nil
}

func parseJSONWords(data []byte) ([]string, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.New("invalid json")
	}
	root := gjson.ParseBytes(data)
	if !root.IsArray() {
		return nil, errors.New("expected a json array of words")
	}
	var words []string
	var bad error
	root.ForEach(func(_, v gjson.Result) bool {
		if v.Type != gjson.String {
			bad = fmt.Errorf("non-string entry %s", v.Raw)
			return false
		}
		if w := strings.TrimSpace(v.Str); w != "" {
			words = append(words, w)
		}
		return true
	})
	if bad != nil {
		return nil, bad
	}
	return words, nil
}

// Load reads a word list and builds a bank from it.
func Load(id, path string, opts ...Option) (*Bank, error) {
	words, err := LoadWords(path)
	if err != nil {
		return nil, err
	}
	return New(id, words, opts...), nil
}
