package cron

import (
	"context"
	"os"
	"sync"

	"github.com/caarlos0/env/v6"
	cronv3 "github.com/robfig/cron/v3"

	"github.com/makedealcrm/dealstack/config"
	"github.com/makedealcrm/dealstack/interfaces"
	cron_config "github.com/makedealcrm/dealstack/internal/cron/config"
	"github.com/makedealcrm/dealstack/internal/logger"
	"github.com/makedealcrm/dealstack/internal/tracing"
	"github.com/makedealcrm/dealstack/internal/utils"
)

const (
	// GroupIngestion is the group for ingestion related jobs
	GroupIngestion = "ingestion"
)

// LOCK MANAGEMENT
var jobLocks = struct {
	sync.Mutex
	locks map[string]*sync.Mutex
}{
	locks: map[string]*sync.Mutex{
		GroupIngestion: new(sync.Mutex),
	},
}

type CronManager struct {
	cfg              *config.Config
	log              logger.Logger
	cron             *cronv3.Cron
	stopCh           chan struct{}
	jobIDs           map[string]cronv3.EntryID
	threadRepository interfaces.ThreadRepository
}

func NewCronManager(cfg *config.Config, log logger.Logger, threadRepository interfaces.ThreadRepository) *CronManager {
	return &CronManager{
		cfg:              cfg,
		log:              log,
		stopCh:           make(chan struct{}),
		jobIDs:           make(map[string]cronv3.EntryID),
		threadRepository: threadRepository,
	}
}

// Stop gracefully stops the cron manager
func (cm *CronManager) Stop() {
	if cm.cron != nil {
		cm.log.Info("Stopping cron manager")
		ctx := cm.cron.Stop()
		// Wait for jobs to finish
		<-ctx.Done()
	}
	close(cm.stopCh)
}

// registerJobs adds all cron jobs to the scheduler
func (cm *CronManager) registerJobs(c *cronv3.Cron) {
	// Load cron config from environment variables
	var cronConfig cron_config.Config
	if err := env.Parse(&cronConfig); err != nil {
		cm.log.Fatalf("Failed to parse cron config from environment: %v", err)
	}

	// Register heartbeat job
	if cronConfig.CronScheduleHeartbeat != "" {
		podName := os.Getenv("POD_NAME")
		if podName == "" {
			podName = "local"
		}
		id, err := c.AddFunc(cronConfig.CronScheduleHeartbeat, func() {
			defer tracing.RecoverAndLogToJaeger(cm.log)
			cm.log.Infof("Cron heartbeat from pod: %s", podName)
		})
		if err != nil {
			cm.log.Fatalf("Could not add heartbeat cron job: %v", err)
		}
		cm.jobIDs["heartbeat"] = id
		cm.log.Infof("Registered heartbeat job with schedule: %s", cronConfig.CronScheduleHeartbeat)
	}

	// Register thread retirement job
	if cronConfig.CronScheduleThreadRetirement != "" {
		id, err := c.AddFunc(cronConfig.CronScheduleThreadRetirement, func() {
			defer tracing.RecoverAndLogToJaeger(cm.log)
			jobLocks.locks[GroupIngestion].Lock()
			defer jobLocks.locks[GroupIngestion].Unlock()
			cm.retireInactiveThreads()
		})
		if err != nil {
			cm.log.Fatalf("Could not add thread retirement cron job: %v", err)
		}
		cm.jobIDs["thread_retirement"] = id
		cm.log.Infof("Registered thread retirement job with schedule: %s", cronConfig.CronScheduleThreadRetirement)
	}
}

// StartCron initializes and starts the cron scheduler
func (cm *CronManager) StartCron() {
	cm.log.Info("Starting cron manager")
	// Create a new cron with seconds field enabled and panic recovery
	cronOptions := []cronv3.Option{
		cronv3.WithSeconds(),
		cronv3.WithChain(
			cronv3.SkipIfStillRunning(cronv3.DefaultLogger),
			cronv3.Recover(cronv3.DefaultLogger),
		),
	}
	c := cronv3.New(cronOptions...)
	cm.registerJobs(c)
	c.Start()
	cm.cron = c
}

// retireInactiveThreads marks thread entries past the retirement
// horizon so they stop being correlation candidates
func (cm *CronManager) retireInactiveThreads() {
	cm.log.Info("Running thread retirement sweep")

	ctx := context.Background()

	span, ctx := tracing.StartTracerSpan(ctx, "CronManager.retireInactiveThreads")
	defer span.Finish()
	tracing.TagComponentCronJob(span)

	cutoff := utils.Now().Add(-cm.cfg.PipelineConfig.RetirementHorizon)
	retired, err := cm.threadRepository.RetireOlderThan(ctx, cutoff)
	if err != nil {
		tracing.TraceErr(span, err)
		cm.log.Errorf("Failed to retire inactive threads: %v", err)
		return
	}

	span.LogKV("retired.count", retired)
	cm.log.Infof("Retired %d inactive thread entries", retired)
}
