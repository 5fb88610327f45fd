package cache

import (
	"errors"
	"testing"

	"github.com/matryer/is"
)

func TestLoadCachesSuccessOnly(t *testing.T) {
	is := is.New(t)
	calls := 0
	load := func() (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("disk on fire")
		}
		return "words", nil
	}
	_, err := Load("t1", load)
	is.True(err != nil)
	v, err := Load("t1", load)
	is.NoErr(err)
	is.Equal(v, "words")
	v, err = Load("t1", load)
	is.NoErr(err)
	is.Equal(v, "words")
	is.Equal(calls, 2)

	Forget("t1")
	_, err = Load("t1", load)
	is.NoErr(err)
	is.Equal(calls, 3)
}
