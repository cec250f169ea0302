package domain

// ScoreResult is the scorer's answer for one article. A degraded dimension
// carries all-zero values; Cause explains why and is only meant for logs.
type ScoreResult struct {
	JobScores         map[Job]float64
	InterestScores    []float64
	JobsDegraded      bool
	InterestsDegraded bool
	Cause             error
}

// Degraded reports whether any dimension fell back to zeros.
func (r ScoreResult) Degraded() bool {
	return r.JobsDegraded || r.InterestsDegraded
}

// ZeroScores is the degraded default for every dimension.
func ZeroScores(jobs []Job, interests []Interest, cause error) ScoreResult {
	js := make(map[Job]float64, len(jobs))
	for _, j := range jobs {
		js[j] = 0
	}
	return ScoreResult{
		JobScores:         js,
		InterestScores:    make([]float64, len(interests)),
		JobsDegraded:      true,
		InterestsDegraded: true,
		Cause:             cause,
	}
}

// SummaryResult is the scorer's synopsis; Text is empty when degraded.
type SummaryResult struct {
	Text     string
	Degraded bool
	Cause    error
}

// ArticleScores are the rows written next to a new article.
type ArticleScores struct {
	Jobs      map[Job]float64
	Interests map[int64]float64
}

// ScoresFor aligns positional interest scores with interest ids.
func ScoresFor(result ScoreResult, interests []Interest) ArticleScores {
	out := ArticleScores{
		Jobs:      make(map[Job]float64, len(result.JobScores)),
		Interests: make(map[int64]float64, len(interests)),
	}
	for job, score := range result.JobScores {
		out.Jobs[job] = score
	}
	for i, interest := range interests {
		if i < len(result.InterestScores) {
			out.Interests[interest.ID] = result.InterestScores[i]
		} else {
			out.Interests[interest.ID] = 0
		}
	}
	return out
}

const (
	MinScore = 0.0
	MaxScore = 100.0
)

// ClampScore bounds a score to [MinScore, MaxScore]; NaN becomes MinScore.
func ClampScore(v float64) float64 {
	if v != v || v < MinScore {
		return MinScore
	}
	if v > MaxScore {
		return MaxScore
	}
	return v
}
