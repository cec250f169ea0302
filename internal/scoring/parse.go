package scoring

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"SecFeed/internal/domain"
)

var (
	// The whole rest of the line is captured so a stray word fails the parse.
	jobScoresExpr      = regexp.MustCompile(`(?i)JOB_SCORES:\s*([^\r\n]*)`)
	interestScoresExpr = regexp.MustCompile(`(?i)INTEREST_SCORES:\s*([^\r\n]*)`)
)

// ParseScores reads the labeled score lines out of a model response.
// Each dimension degrades to zeros independently.
func ParseScores(response string, jobs []domain.Job, interestCount int) domain.ScoreResult {
	result := domain.ScoreResult{
		JobScores:      make(map[domain.Job]float64, len(jobs)),
		InterestScores: make([]float64, interestCount),
	}

	var causes []error

	jobValues, err := parseLine(jobScoresExpr, response, len(jobs))
	if err != nil {
		result.JobsDegraded = true
		causes = append(causes, fmt.Errorf("job scores: %w", err))
		jobValues = make([]float64, len(jobs))
	}
	for i, job := range jobs {
		result.JobScores[job] = jobValues[i]
	}

	interestValues, err := parseLine(interestScoresExpr, response, interestCount)
	if err != nil {
		result.InterestsDegraded = true
		causes = append(causes, fmt.Errorf("interest scores: %w", err))
		interestValues = make([]float64, interestCount)
	}
	copy(result.InterestScores, interestValues)

	result.Cause = errors.Join(causes...)
	return result
}

// parseLine returns exactly want clamped values: missing positions are zero,
// extras are dropped.
func parseLine(expr *regexp.Regexp, response string, want int) ([]float64, error) {
	match := expr.FindStringSubmatch(response)
	if match == nil {
		return nil, errors.New("label not found")
	}

	values := make([]float64, want)
	i := 0
	for _, raw := range strings.Split(match[1], ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", raw, err)
		}
		if i < want {
			values[i] = domain.ClampScore(v)
		}
		i++
	}
	if i == 0 && want > 0 {
		return nil, errors.New("no values after label")
	}
	return values, nil
}
