package handlers

import (
	"github.com/makedealcrm/dealstack/internal/repository"
	"github.com/makedealcrm/dealstack/services"
)

type APIHandlers struct {
	Ingest  *IngestHandler
	Deals   *DealHandler
	Threads *ThreadHandler
}

func InitHandlers(repos *repository.Repositories, svcs *services.Services) *APIHandlers {
	return &APIHandlers{
		Ingest:  NewIngestHandler(svcs.Orchestrator),
		Deals:   NewDealHandler(repos.DealRepository, repos.NoteRepository),
		Threads: NewThreadHandler(svcs.ThreadTracker),
	}
}
