package rating

import "math"

// DefaultNoiseVariance is the observation noise R of a single game score.
const DefaultNoiseVariance = 4.0

// Updater applies a scalar Kalman update to a rating. Sigma can only
// shrink, which gives a decaying learning rate without a schedule.
type Updater struct {
	NoiseVariance float64
}

// Update folds one observed score into r. difficulty is the expected
// offset of this word for the role; positive means the word is easy.
func (u Updater) Update(r *Rating, observed, difficulty float64) {
	noise := u.NoiseVariance
	if noise <= 0 {
		noise = DefaultNoiseVariance
	}
	variance := r.Sigma * r.Sigma
	residual := observed - (r.Mu + difficulty)
	gain := variance / (variance + noise)

	r.Mu += gain * residual
	r.Sigma = math.Sqrt(variance * (1 - gain))
	r.GamesPlayed++
	r.Provisional = r.GamesPlayed < ProvisionalGames
}
