package repository

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/makedealcrm/dealstack/interfaces"
	"github.com/makedealcrm/dealstack/internal/enum"
	"github.com/makedealcrm/dealstack/internal/models"
	"github.com/makedealcrm/dealstack/internal/tracing"
	"github.com/makedealcrm/dealstack/internal/utils"
)

type processingLogRepository struct {
	db *gorm.DB
}

// NewProcessingLogRepository creates a new processing log repository
func NewProcessingLogRepository(db *gorm.DB) interfaces.ProcessingLogRepository {
	return &processingLogRepository{
		db: db,
	}
}

// Create records the outcome of processing a message. A message that is
// reprocessed after a failed or skipped outcome keeps its row, the
// terminal outcome overwrites the earlier one.
func (r *processingLogRepository) Create(ctx context.Context, entry *models.ProcessingLog) (string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "processingLogRepository.Create")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	if entry == nil {
		err := errors.New("log entry cannot be nil")
		tracing.TraceErr(span, err)
		return "", err
	}
	if entry.MessageID == "" {
		err := errors.New("message ID cannot be empty")
		tracing.TraceErr(span, err)
		return "", err
	}

	entry.MessageID = utils.NormalizeMessageID(entry.MessageID)
	tracing.TagMessageId(span, entry.MessageID)

	now := utils.Now()
	entry.CreatedAt = now
	entry.UpdatedAt = now

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "message_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"outcome", "deal_id", "error", "attempts", "result_data", "updated_at"}),
		}).
		Create(entry).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return "", err
	}

	return entry.ID, nil
}

// GetByMessageID retrieves the processing record for a message ID.
// Returns nil without error when the message was never processed.
func (r *processingLogRepository) GetByMessageID(ctx context.Context, messageID string) (*models.ProcessingLog, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "processingLogRepository.GetByMessageID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagMessageId(span, messageID)

	if messageID == "" {
		err := errors.New("message ID cannot be empty")
		tracing.TraceErr(span, err)
		return nil, err
	}

	var entry models.ProcessingLog
	err := r.db.WithContext(ctx).
		Where("message_id = ?", utils.NormalizeMessageID(messageID)).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, err
	}

	return &entry, nil
}

// ExistsWithOutcome reports whether the message already has a ledger
// entry with one of the given outcomes
func (r *processingLogRepository) ExistsWithOutcome(ctx context.Context, messageID string, outcomes ...enum.ProcessingOutcome) (bool, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "processingLogRepository.ExistsWithOutcome")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagMessageId(span, messageID)

	if messageID == "" {
		err := errors.New("message ID cannot be empty")
		tracing.TraceErr(span, err)
		return false, err
	}

	query := r.db.WithContext(ctx).Model(&models.ProcessingLog{}).
		Select("COUNT(*) > 0").
		Where("message_id = ?", utils.NormalizeMessageID(messageID))
	if len(outcomes) > 0 {
		query = query.Where("outcome IN ?", outcomes)
	}

	var exists bool
	if err := query.Find(&exists).Error; err != nil {
		tracing.TraceErr(span, err)
		return false, err
	}

	return exists, nil
}
