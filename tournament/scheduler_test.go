package tournament

import (
	"errors"
	"testing"

	"github.com/matryer/is"
)

func noShuffle(int, func(i, j int)) {}

func TestSchedulerFourParticipants(t *testing.T) {
	is := is.New(t)
	s, err := NewScheduler([]string{"m1", "m2", "m3", "m4"}, "en")
	is.NoErr(err)
	configs, err := s.Generate([]string{"CAT", "DOG"}, 3)
	is.NoErr(err)
	is.Equal(len(configs), 4)
	for _, c := range configs {
		is.Equal(len(c.AttackerIDs), 3)
		is.Equal(c.DictionaryID, "en")
		is.NoErr(c.Validate())
		for _, a := range c.AttackerIDs {
			is.True(a != c.HolderID)
		}
	}
}

func TestSchedulerNeedsFourDistinctParticipants(t *testing.T) {
	is := is.New(t)
	_, err := NewScheduler([]string{"m1", "m2", "m3"}, "en")
	is.True(errors.Is(err, ErrConfiguration))
	_, err = NewScheduler([]string{"m1", "m2", "m3", "m3", ""}, "en")
	is.True(errors.Is(err, ErrConfiguration))

	s, err := NewScheduler([]string{"m1", "m2", "m3", "m4"}, "en")
	is.NoErr(err)
	_, err = s.Generate(nil, 3)
	is.True(errors.Is(err, ErrConfiguration))
}

func TestSchedulerCyclesWordsAndSeatings(t *testing.T) {
	is := is.New(t)
	s, err := NewScheduler([]string{"a", "b", "c", "d"}, "en", WithShuffle(noShuffle))
	is.NoErr(err)
	// 4 players have 24 ordered seatings; 24 games is exactly one cycle.
	configs, err := s.Generate([]string{"ONE", "TWO", "THREE"}, 18)
	is.NoErr(err)
	is.Equal(len(configs), 24)
	for i, c := range configs {
		is.Equal(c.Word, []string{"ONE", "TWO", "THREE"}[i%3])
	}
	// A full cycle of seatings gives everyone identical exposure.
	exp := CountExposure(configs)
	for _, id := range []string{"a", "b", "c", "d"} {
		is.Equal(exp.Holder[id], 6)
		is.Equal(exp.Attacker[id], 18)
	}
}

func TestSchedulerShuffleIsApplied(t *testing.T) {
	is := is.New(t)
	calls := 0
	reverse := func(n int, swap func(i, j int)) {
		calls++
		for i := 0; i < n/2; i++ {
			swap(i, n-1-i)
		}
	}
	plain, _ := NewScheduler([]string{"a", "b", "c", "d", "e"}, "en", WithShuffle(noShuffle))
	rev, _ := NewScheduler([]string{"a", "b", "c", "d", "e"}, "en", WithShuffle(reverse))
	p, err := plain.Generate([]string{"X"}, 3)
	is.NoErr(err)
	r, err := rev.Generate([]string{"X"}, 3)
	is.NoErr(err)
	is.Equal(calls, 1)
	is.Equal(len(p), 5)
	is.True(p[0].HolderID != r[0].HolderID || p[0].AttackerIDs[0] != r[0].AttackerIDs[0])
}
