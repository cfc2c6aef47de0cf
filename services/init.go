package services

import (
	"github.com/makedealcrm/dealstack/config"
	"github.com/makedealcrm/dealstack/interfaces"
	"github.com/makedealcrm/dealstack/internal/logger"
	"github.com/makedealcrm/dealstack/internal/repository"
	"github.com/makedealcrm/dealstack/services/contacts"
	"github.com/makedealcrm/dealstack/services/dedup"
	"github.com/makedealcrm/dealstack/services/events"
	"github.com/makedealcrm/dealstack/services/extraction"
	"github.com/makedealcrm/dealstack/services/ingestion"
	"github.com/makedealcrm/dealstack/services/threads"
)

type Services struct {
	ExtractionService *extraction.Service
	DuplicateDetector *dedup.Detector
	ThreadTracker     *threads.Tracker
	ContactResolver   *contacts.Resolver
	Publisher         *events.RabbitMQPublisher
	Orchestrator      *ingestion.Orchestrator
}

func InitServices(cfg *config.Config, log logger.Logger, repos *repository.Repositories) (*Services, error) {
	var publisher *events.RabbitMQPublisher
	if cfg.AppConfig.RabbitMQURL != "" {
		publisherConfig := &events.PublisherConfig{
			MessageTTL:          events.DefaultMessageTTL,
			MaxRetries:          events.DefaultMaxRetries,
			PublishTimeout:      events.DefaultPublishTimeout,
			ReconnectBackoff:    events.DefaultReconnectBackoff,
			MaxReconnectBackoff: events.DefaultMaxReconnectBackoff,
		}

		rabbitPublisher, err := events.NewRabbitMQPublisher(cfg.AppConfig.RabbitMQURL, log, publisherConfig)
		if err != nil {
			return nil, err
		}
		publisher = rabbitPublisher
	} else {
		log.Warn("RABBITMQ_URL not set, outcome notifications are disabled")
	}

	extractionService := extraction.NewService(log)
	duplicateDetector := dedup.NewDetector(repos.DealRepository, log)
	threadTracker := threads.NewTracker(repos.ThreadRepository, log)
	contactResolver := contacts.NewResolver(repos.ContactRepository, log)

	// keep the interface nil when there is no broker, a typed nil would
	// defeat the orchestrator's nil check
	var notifier interfaces.NotificationPublisher
	if publisher != nil {
		notifier = publisher
	}

	orchestrator := ingestion.NewOrchestrator(
		cfg.PipelineConfig,
		repos.DealRepository,
		repos.NoteRepository,
		repos.AttachmentRepository,
		repos.ProcessingLogRepository,
		extractionService,
		duplicateDetector,
		threadTracker,
		contactResolver,
		notifier,
		log,
	)

	services := Services{
		ExtractionService: extractionService,
		DuplicateDetector: duplicateDetector,
		ThreadTracker:     threadTracker,
		ContactResolver:   contactResolver,
		Publisher:         publisher,
		Orchestrator:      orchestrator,
	}

	return &services, nil
}
