package dedup

import (
	"context"
	"math"
	"time"

	"github.com/opentracing/opentracing-go"

	"github.com/makedealcrm/dealstack/interfaces"
	"github.com/makedealcrm/dealstack/internal/logger"
	"github.com/makedealcrm/dealstack/internal/models"
	"github.com/makedealcrm/dealstack/internal/tracing"
	"github.com/makedealcrm/dealstack/internal/utils"
)

const (
	// DuplicateThreshold must be exceeded, a score of exactly 0.7 is
	// not a duplicate
	DuplicateThreshold = 0.7

	weightName    = 0.3
	weightAccount = 0.3
	weightAmount  = 0.2
	weightRecency = 0.2

	recencyWindow = 7 * 24 * time.Hour
)

// Incoming describes the deal fields of an email under evaluation
type Incoming struct {
	Name        string
	AccountName string
	Amount      float64
}

// Match is a detected duplicate with its score
type Match struct {
	Deal  *models.Deal
	Score float64
}

type Detector struct {
	dealRepository interfaces.DealRepository
	log            logger.Logger
}

func NewDetector(dealRepository interfaces.DealRepository, log logger.Logger) *Detector {
	return &Detector{
		dealRepository: dealRepository,
		log:            log,
	}
}

// FindDuplicate checks incoming deal fields against existing deals and
// returns the best match scoring above the threshold, or nil.
func (d *Detector) FindDuplicate(ctx context.Context, incoming Incoming) (*Match, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "DedupDetector.FindDuplicate")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	if incoming.Name == "" && incoming.AccountName == "" && incoming.Amount == 0 {
		return nil, nil
	}

	candidates, err := d.dealRepository.FindCandidates(ctx, incoming.Name, incoming.AccountName, incoming.Amount)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	var best *Match
	now := utils.Now()
	for _, candidate := range candidates {
		score := scoreCandidate(incoming, candidate, now)
		if isDuplicateScore(score) && (best == nil || score > best.Score) {
			best = &Match{Deal: candidate, Score: score}
		}
	}

	if best != nil {
		span.SetTag("duplicate_deal_id", best.Deal.ID)
		span.LogKV("score", best.Score)
		d.log.Infof("duplicate deal detected: %s (score %.2f)", best.Deal.ID, best.Score)
	}

	return best, nil
}

// isDuplicateScore applies the strict threshold, exactly 0.7 is not a
// duplicate
func isDuplicateScore(score float64) bool {
	return score > DuplicateThreshold
}

// scoreCandidate computes the weighted similarity between incoming
// fields and an existing deal. Factors where either side is absent are
// excluded from the weighting entirely.
func scoreCandidate(incoming Incoming, candidate *models.Deal, now time.Time) float64 {
	score := 0.0
	factors := 0.0

	if incoming.Name != "" && candidate.Name != "" {
		score += StringSimilarity(incoming.Name, candidate.Name) * weightName
		factors += weightName
	}

	if incoming.AccountName != "" && candidate.AccountName != "" {
		score += StringSimilarity(incoming.AccountName, candidate.AccountName) * weightAccount
		factors += weightAccount
	}

	if incoming.Amount > 0 && candidate.Amount > 0 {
		diff := math.Abs(incoming.Amount-candidate.Amount) / math.Max(incoming.Amount, candidate.Amount)
		score += (1 - diff) * weightAmount
		factors += weightAmount
	}

	// Recency decays linearly over seven days, older deals contribute
	// nothing and drop out of the weighting
	age := now.Sub(candidate.CreatedAt)
	if age >= 0 && age <= recencyWindow {
		recency := 1 - age.Hours()/recencyWindow.Hours()
		score += recency * weightRecency
		factors += weightRecency
	}

	if factors == 0 {
		return 0
	}
	return score / factors
}
