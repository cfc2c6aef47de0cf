package cron

import (
	"context"
	"testing"
	"time"

	cronv3 "github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makedealcrm/dealstack/config"
	"github.com/makedealcrm/dealstack/internal/logger"
	"github.com/makedealcrm/dealstack/internal/models"
)

type stubThreadRepository struct {
	retireCalls  int
	retireCutoff time.Time
	retired      int64
}

func (s *stubThreadRepository) Create(ctx context.Context, entry *models.ThreadEntry) (string, error) {
	return "", nil
}

func (s *stubThreadRepository) GetByMessageID(ctx context.Context, messageID string) (*models.ThreadEntry, error) {
	return nil, nil
}

func (s *stubThreadRepository) ListByThreadID(ctx context.Context, threadID string) ([]*models.ThreadEntry, error) {
	return nil, nil
}

func (s *stubThreadRepository) GetThreadDeal(ctx context.Context, threadID string) (string, error) {
	return "", nil
}

func (s *stubThreadRepository) FindRecentByAddress(ctx context.Context, address string, since time.Time) ([]*models.ThreadEntry, error) {
	return nil, nil
}

func (s *stubThreadRepository) RetireOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	s.retireCalls++
	s.retireCutoff = cutoff
	return s.retired, nil
}

func getLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{
		DevMode: true,
	})
	appLogger.InitLogger()
	return appLogger
}

func testConfig() *config.Config {
	return &config.Config{
		AppConfig: &config.AppConfig{
			Logger: &logger.Config{
				LogLevel: "info",
			},
		},
		PipelineConfig: &config.PipelineConfig{
			RetirementHorizon: 90 * 24 * time.Hour,
		},
	}
}

func TestNewCronManager(t *testing.T) {
	cfg := testConfig()
	log := getLogger()
	repo := &stubThreadRepository{}

	cm := NewCronManager(cfg, log, repo)

	assert.NotNil(t, cm)
	assert.Equal(t, cfg, cm.cfg)
	assert.Equal(t, log, cm.log)
	assert.NotNil(t, cm.jobIDs)
}

func TestCronManager_RegisterJobs(t *testing.T) {
	cm := NewCronManager(testConfig(), getLogger(), &stubThreadRepository{})

	c := cronv3.New(cronv3.WithSeconds())
	cm.registerJobs(c)

	assert.Len(t, cm.jobIDs, 2)
	assert.Contains(t, cm.jobIDs, "heartbeat")
	assert.Contains(t, cm.jobIDs, "thread_retirement")
}

func TestCronManager_RetireInactiveThreads(t *testing.T) {
	repo := &stubThreadRepository{retired: 7}
	cm := NewCronManager(testConfig(), getLogger(), repo)

	cm.retireInactiveThreads()

	require.Equal(t, 1, repo.retireCalls)
	// cutoff sits one horizon back from now
	expected := time.Now().UTC().Add(-90 * 24 * time.Hour)
	assert.WithinDuration(t, expected, repo.retireCutoff, time.Minute)
}

func TestCronManager_Stop(t *testing.T) {
	cm := NewCronManager(testConfig(), getLogger(), &stubThreadRepository{})

	c := cronv3.New()
	c.Start()
	cm.cron = c

	cm.Stop()

	select {
	case <-cm.stopCh:
		// channel closed as expected
	default:
		t.Error("Stop channel was not closed")
	}
}
