package repository

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/makedealcrm/dealstack/interfaces"
	"github.com/makedealcrm/dealstack/internal/models"
	"github.com/makedealcrm/dealstack/internal/tracing"
	"github.com/makedealcrm/dealstack/internal/utils"
)

type noteRepository struct {
	db *gorm.DB
}

// NewNoteRepository creates a new deal note repository
func NewNoteRepository(db *gorm.DB) interfaces.NoteRepository {
	return &noteRepository{
		db: db,
	}
}

// Create inserts a new deal note into the database
func (r *noteRepository) Create(ctx context.Context, note *models.DealNote) (string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "noteRepository.Create")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	if note == nil {
		err := errors.New("note cannot be nil")
		tracing.TraceErr(span, err)
		return "", err
	}
	if note.DealID == "" {
		err := errors.New("deal ID cannot be empty")
		tracing.TraceErr(span, err)
		return "", err
	}
	span.SetTag("deal_id", note.DealID)

	if note.MessageID != "" {
		note.MessageID = utils.NormalizeMessageID(note.MessageID)
	}

	now := utils.Now()
	note.CreatedAt = now
	note.UpdatedAt = now

	if err := r.db.WithContext(ctx).Create(note).Error; err != nil {
		tracing.TraceErr(span, err)
		return "", err
	}

	return note.ID, nil
}

// ListByDeal retrieves notes for a deal, newest first
func (r *noteRepository) ListByDeal(ctx context.Context, dealID string) ([]*models.DealNote, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "noteRepository.ListByDeal")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	span.SetTag("deal_id", dealID)

	if dealID == "" {
		err := errors.New("deal ID cannot be empty")
		tracing.TraceErr(span, err)
		return nil, err
	}

	var notes []*models.DealNote
	err := r.db.WithContext(ctx).
		Where("deal_id = ?", dealID).
		Order("created_at DESC").
		Find(&notes).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	return notes, nil
}
