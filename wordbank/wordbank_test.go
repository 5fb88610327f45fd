package wordbank

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matryer/is"
)

var testWords = []string{"eagle", "Elbow", "ELEPHANT", "elevator", "engine", "element", "apple", "eagle"}

func TestValidateIsCaseInsensitive(t *testing.T) {
	is := is.New(t)
	b := New("test", testWords)
	is.Equal(b.Len(), 7)
	is.True(b.Validate("elephant"))
	is.True(b.Validate("ElEpHaNt"))
	is.True(b.Validate("  elbow "))
	is.True(!b.Validate("elephants"))
	is.True(!b.Validate(""))
}

func TestMatches(t *testing.T) {
	is := is.New(t)
	b := New("test", testWords)
	is.Equal(b.Matches("el", nil), []string{"ELBOW", "ELEMENT", "ELEPHANT", "ELEVATOR"})
	is.Equal(b.Matches("ELE", NewWordSet("element", "ELEVATOR")), []string{"ELEPHANT"})
	is.Equal(len(b.Matches("z", nil)), 0)
	// A full word is its own prefix.
	is.Equal(b.Matches("engine", nil), []string{"ENGINE"})
}

func TestRandomMatchNeverViolatesPrefixOrExclusion(t *testing.T) {
	is := is.New(t)
	b := New("test", testWords)
	exclude := NewWordSet("ELBOW", "elephant")
	for i := 0; i < 200; i++ {
		w, ok := b.RandomMatch("El", exclude)
		is.True(ok)
		is.True(strings.HasPrefix(w, "EL"))
		is.True(!exclude.Has(w))
	}
	_, ok := b.RandomMatch("ELEP", NewWordSet("ELEPHANT"))
	is.True(!ok)
	_, ok = b.RandomMatch("Q", nil)
	is.True(!ok)
}

func TestRandomMatchUsesPicker(t *testing.T) {
	is := is.New(t)
	b := New("test", testWords, WithPicker(func(n int) int { return n - 1 }))
	w, ok := b.RandomMatch("E", nil)
	is.True(ok)
	is.Equal(w, "ENGINE")
}

func TestLoadWords(t *testing.T) {
	is := is.New(t)
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "words.json")
	is.NoErr(os.WriteFile(jsonPath, []byte(`["apple", "Banana", " cherry "]`), 0o644))
	b, err := Load("en_v1", jsonPath)
	is.NoErr(err)
	is.Equal(b.ID(), "en_v1")
	is.Equal(b.Words(), []string{"APPLE", "BANANA", "CHERRY"})

	txtPath := filepath.Join(dir, "words.txt")
	is.NoErr(os.WriteFile(txtPath, []byte("# comment\napple\n\nbanana\n"), 0o644))
	words, err := LoadWords(txtPath)
	is.NoErr(err)
	is.Equal(words, []string{"apple", "banana"})

	emptyPath := filepath.Join(dir, "empty.txt")
	is.NoErr(os.WriteFile(emptyPath, []byte("\n\n"), 0o644))
	_, err = LoadWords(emptyPath)
	is.True(err != nil)

	badPath := filepath.Join(dir, "bad.json")
	is.NoErr(os.WriteFile(badPath, []byte(`["apple", 3]`), 0o644))
	_, err = LoadWords(badPath)
	is.True(err != nil)
}
