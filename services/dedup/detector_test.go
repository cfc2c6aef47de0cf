package dedup

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/makedealcrm/dealstack/internal/logger"
	"github.com/makedealcrm/dealstack/internal/models"
	"github.com/makedealcrm/dealstack/internal/utils"
)

type stubDealRepository struct {
	candidates []*models.Deal
	err        error
}

func (s *stubDealRepository) Create(ctx context.Context, deal *models.Deal) (string, error) {
	return "", nil
}

func (s *stubDealRepository) GetByID(ctx context.Context, id string) (*models.Deal, error) {
	return nil, nil
}

func (s *stubDealRepository) Update(ctx context.Context, deal *models.Deal) error {
	return nil
}

func (s *stubDealRepository) FindCandidates(ctx context.Context, name, accountName string, amount float64) ([]*models.Deal, error) {
	return s.candidates, s.err
}

func (s *stubDealRepository) AppendPipelineNote(ctx context.Context, dealID string, line string) error {
	return nil
}

func newTestDetector(candidates []*models.Deal) *Detector {
	core, _ := observer.New(zap.InfoLevel)
	return NewDetector(&stubDealRepository{candidates: candidates}, logger.NewAppLoggerFromZap(zap.New(core)))
}

func TestFindDuplicate_ExactMatchIsDuplicate(t *testing.T) {
	old := utils.Now().Add(-30 * 24 * time.Hour)
	detector := newTestDetector([]*models.Deal{
		{
			ID:          "deal_existing",
			Name:        "Acme Manufacturing Sale",
			AccountName: "Acme Manufacturing",
			Amount:      2500000,
			CreatedAt:   old,
		},
	})

	match, err := detector.FindDuplicate(context.Background(), Incoming{
		Name:        "Acme Manufacturing Sale",
		AccountName: "Acme Manufacturing",
		Amount:      2500000,
	})

	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "deal_existing", match.Deal.ID)
	assert.InDelta(t, 1.0, match.Score, 0.0001)
}

func TestFindDuplicate_UnrelatedDealIsNot(t *testing.T) {
	old := utils.Now().Add(-30 * 24 * time.Hour)
	detector := newTestDetector([]*models.Deal{
		{
			ID:          "deal_other",
			Name:        "Completely Different Venture",
			AccountName: "Zenith Logistics",
			Amount:      90000,
			CreatedAt:   old,
		},
	})

	match, err := detector.FindDuplicate(context.Background(), Incoming{
		Name:        "Acme Manufacturing Sale",
		AccountName: "Acme Manufacturing",
		Amount:      2500000,
	})

	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestFindDuplicate_NoFieldsNoLookup(t *testing.T) {
	detector := newTestDetector(nil)

	match, err := detector.FindDuplicate(context.Background(), Incoming{})

	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestFindDuplicate_PicksBestOfSeveral(t *testing.T) {
	old := utils.Now().Add(-30 * 24 * time.Hour)
	detector := newTestDetector([]*models.Deal{
		{
			ID:          "deal_close",
			Name:        "Acme Manufacturing Sail",
			AccountName: "Acme Manufacturing",
			Amount:      2400000,
			CreatedAt:   old,
		},
		{
			ID:          "deal_exact",
			Name:        "Acme Manufacturing Sale",
			AccountName: "Acme Manufacturing",
			Amount:      2500000,
			CreatedAt:   old,
		},
	})

	match, err := detector.FindDuplicate(context.Background(), Incoming{
		Name:        "Acme Manufacturing Sale",
		AccountName: "Acme Manufacturing",
		Amount:      2500000,
	})

	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "deal_exact", match.Deal.ID)
}

func TestScoreCandidate_AbsentFactorsExcluded(t *testing.T) {
	now := utils.Now()
	old := now.Add(-30 * 24 * time.Hour)

	// only the name factor participates, a perfect name match alone
	// scores 1.0 rather than being dragged down by missing fields
	score := scoreCandidate(
		Incoming{Name: "Acme Sale"},
		&models.Deal{Name: "Acme Sale", CreatedAt: old},
		now,
	)
	assert.InDelta(t, 1.0, score, 0.0001)
}

func TestScoreCandidate_RecencyDecaysOverSevenDays(t *testing.T) {
	now := utils.Now()

	fresh := scoreCandidate(
		Incoming{Name: "Acme Sale"},
		&models.Deal{Name: "Acme Sale", CreatedAt: now},
		now,
	)
	aging := scoreCandidate(
		Incoming{Name: "Acme Sale"},
		&models.Deal{Name: "Acme Sale", CreatedAt: now.Add(-6 * 24 * time.Hour)},
		now,
	)
	expired := scoreCandidate(
		Incoming{Name: "Acme Sale"},
		&models.Deal{Name: "Acme Sale", CreatedAt: now.Add(-8 * 24 * time.Hour)},
		now,
	)

	assert.InDelta(t, 1.0, fresh, 0.0001)
	assert.Less(t, aging, fresh)
	// past the window the factor drops out instead of scoring zero
	assert.InDelta(t, 1.0, expired, 0.0001)
	assert.Greater(t, expired, aging)
}

func TestScoreCandidate_ThresholdIsStrict(t *testing.T) {
	now := utils.Now()
	old := now.Add(-30 * 24 * time.Hour)

	// name similarity 0.5 on its own normalizes to 0.5, well below
	score := scoreCandidate(
		Incoming{Name: "aaaa"},
		&models.Deal{Name: "aazz", CreatedAt: old},
		now,
	)
	assert.InDelta(t, 0.5, score, 0.0001)
	assert.False(t, isDuplicateScore(score))
}

func TestIsDuplicateScore_BoundaryIsStrict(t *testing.T) {
	assert.False(t, isDuplicateScore(0.69))
	assert.False(t, isDuplicateScore(0.70))
	assert.True(t, isDuplicateScore(0.71))
}
