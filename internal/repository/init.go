package repository

import (
	"gorm.io/gorm"

	"github.com/makedealcrm/dealstack/interfaces"
	"github.com/makedealcrm/dealstack/internal/models"
)

type Repositories struct {
	DealRepository          interfaces.DealRepository
	ContactRepository       interfaces.ContactRepository
	NoteRepository          interfaces.NoteRepository
	AttachmentRepository    interfaces.AttachmentRepository
	ThreadRepository        interfaces.ThreadRepository
	ProcessingLogRepository interfaces.ProcessingLogRepository
}

func InitRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		DealRepository:          NewDealRepository(db),
		ContactRepository:       NewContactRepository(db),
		NoteRepository:          NewNoteRepository(db),
		AttachmentRepository:    NewAttachmentRepository(db),
		ThreadRepository:        NewThreadRepository(db),
		ProcessingLogRepository: NewProcessingLogRepository(db),
	}
}

func MigrateDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	sqlDB.SetMaxOpenConns(5)

	err = db.AutoMigrate(
		&models.Deal{},
		&models.Contact{},
		&models.DealContact{},
		&models.DealNote{},
		&models.EmailAttachment{},
		&models.ThreadEntry{},
		&models.ProcessingLog{},
	)
	if err != nil {
		return err
	}

	return nil
}
