package testcandidates

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/okian/campsift/internal/domain/model"
	"github.com/okian/campsift/pkg/logger"
)

// Constants for random number generation.
const (
	randomFloatDivisor = 1000000
	profileDivisor     = 8
	duplicateDivisor   = 20
)

// Constants for candidate shape profiles.
const (
	caseFullyParsed   = 0
	caseRawTextOnly   = 1
	caseMissingPrice  = 2
	caseMissingTimes  = 3
	caseSparse        = 4
	caseGradeShaped   = 5
	caseFreeProgram   = 6
	caseFlexibleDates = 7
)

var activityNames = []string{
	"Soccer Camp", "Pottery Studio Camp", "Robotics Camp", "Swim Camp",
	"Theater Workshop", "Nature Explorers", "Chess Academy", "Rock Climbing Camp",
	"Art Adventures", "Coding Bootcamp", "Basketball Skills Camp", "Dance Intensive",
}

var locations = []string{
	"Lincoln Community Center, 450 Oak Street",
	"Riverside Park Pavilion, 12 River Road",
	"Westside Recreation Complex, 890 Elm Avenue",
	"Maple Grove Elementary, 33 Maple Grove Lane",
}

var categories = []string{"sports", "arts", "stem", "outdoors"}

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

// getRandomInt returns a random int in [0, max) using crypto/rand.
func getRandomInt(max int) int {
	n, _ := rand.Int(rand.Reader, big.NewInt(int64(max)))
	return int(n.Int64())
}

// generateCandidates creates the specified number of candidates with varied
// completeness and a deliberate fraction of exact repeats.
func generateCandidates(ctx context.Context, config *Config, stats *Stats) ([]model.Candidate, error) {
	logger.Get().Info(ctx, "generating candidates", logger.Int("numCandidates", config.NumCandidates))

	candidates := make([]model.Candidate, 0, config.NumCandidates)

	for i := 0; i < config.NumCandidates; i++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled during candidate generation: %w", ctx.Err())
		default:
		}

		// Roughly 5% exact repeats to exercise the idempotency path.
		if len(candidates) > 0 && getRandomInt(duplicateDivisor) == 0 {
			candidates = append(candidates, candidates[getRandomInt(len(candidates))])
			continue
		}
		candidates = append(candidates, generateSingleCandidate(i, config.NumSources))
	}

	stats.CandidatesGenerated = len(candidates)
	logger.Get().Info(ctx, "generated candidates successfully", logger.Int("count", len(candidates)))

	return candidates, nil
}

// generateSingleCandidate creates one candidate with a randomly chosen shape
// profile, from fully parsed down to name-only.
func generateSingleCandidate(index, numSources int) model.Candidate {
	sourceN := getRandomInt(numSources)
	week := getRandomInt(8)
	start := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC).AddDate(0, 0, week*7)
	end := start.AddDate(0, 0, 4)

	name := activityNames[getRandomInt(len(activityNames))] + " Week " + strconv.Itoa(week+1)
	c := model.Candidate{
		SourceID: "load-src-" + strconv.Itoa(sourceN+1),
		CityID:   "load-city-1",
		Name:     name,
	}

	switch getRandomInt(profileDivisor) {
	case caseFullyParsed:
		c.StartDate, c.EndDate = &start, &end
		c.DropOffHour, c.PickUpHour = intp(9), intp(15)
		c.Location = locations[getRandomInt(len(locations))]
		c.MinAge, c.MaxAge = intp(6), intp(12)
		c.PriceCents = intp(20000 + getRandomInt(30)*1000)
		c.RegistrationURL = "https://example.org/register/" + strconv.Itoa(index)
		c.Categories = []string{categories[getRandomInt(len(categories))]}
	case caseRawTextOnly:
		c.DateText = start.Format("January 2") + "-" + end.Format("2, 2006")
		c.TimeText = "9:00 AM - 3:00 PM"
		c.AgeText = "Ages 6-12"
		c.PriceText = "$" + strconv.Itoa(200+getRandomInt(200))
		c.Location = locations[getRandomInt(len(locations))]
	case caseMissingPrice:
		c.StartDate, c.EndDate = &start, &end
		c.TimeText = "8:30 AM - 4:00 PM"
		c.AgeText = "Ages 7-14"
		c.Location = locations[getRandomInt(len(locations))]
	case caseMissingTimes:
		c.StartDate, c.EndDate = &start, &end
		c.AgeText = "Ages 5-10"
		c.PriceText = "$" + strconv.Itoa(150+getRandomInt(150))
		c.Location = locations[getRandomInt(len(locations))]
	case caseSparse:
		// Name only; everything else is left for the validator to flag.
	case caseGradeShaped:
		c.DateText = start.Format("January 2") + "-" + end.Format("2, 2006")
		c.AgeText = "Grades K-" + strconv.Itoa(2+getRandomInt(4))
		c.PriceText = "$" + strconv.Itoa(175+getRandomInt(100))
	case caseFreeProgram:
		c.StartDate, c.EndDate = &start, &end
		c.TimeText = "10:00 AM - 2:00 PM"
		c.AgeText = "Ages 8-12"
		c.PriceText = "Free"
		c.PriceCents = intp(0)
		c.Location = locations[getRandomInt(len(locations))]
	case caseFlexibleDates:
		c.DateText = "Summer 2026"
		c.FlexibleDates = true
		c.AgeText = "Ages 6-13"
		c.PriceText = "$" + strconv.Itoa(250+getRandomInt(250))
	}

	return c
}

func intp(v int) *int { return &v }
