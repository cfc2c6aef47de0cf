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

type attachmentRepository struct {
	db *gorm.DB
}

// NewAttachmentRepository creates a new email attachment repository
func NewAttachmentRepository(db *gorm.DB) interfaces.AttachmentRepository {
	return &attachmentRepository{
		db: db,
	}
}

// Create inserts an attachment record
func (r *attachmentRepository) Create(ctx context.Context, attachment *models.EmailAttachment) (string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "attachmentRepository.Create")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	if attachment == nil {
		err := errors.New("attachment cannot be nil")
		tracing.TraceErr(span, err)
		return "", err
	}

	attachment.MessageID = utils.NormalizeMessageID(attachment.MessageID)

	now := utils.Now()
	attachment.CreatedAt = now
	attachment.UpdatedAt = now

	if err := r.db.WithContext(ctx).Create(attachment).Error; err != nil {
		tracing.TraceErr(span, err)
		return "", err
	}

	return attachment.ID, nil
}

// ListByMessage retrieves attachments recorded for a message ID
func (r *attachmentRepository) ListByMessage(ctx context.Context, messageID string) ([]*models.EmailAttachment, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "attachmentRepository.ListByMessage")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagMessageId(span, messageID)

	if messageID == "" {
		err := errors.New("message ID cannot be empty")
		tracing.TraceErr(span, err)
		return nil, err
	}

	var attachments []*models.EmailAttachment
	err := r.db.WithContext(ctx).
		Where("message_id = ?", utils.NormalizeMessageID(messageID)).
		Order("created_at ASC").
		Find(&attachments).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	return attachments, nil
}

// LinkToDeal points every attachment of a message at a deal
func (r *attachmentRepository) LinkToDeal(ctx context.Context, messageID, dealID string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "attachmentRepository.LinkToDeal")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagMessageId(span, messageID)
	span.SetTag("deal_id", dealID)

	if messageID == "" || dealID == "" {
		err := errors.New("message ID and deal ID cannot be empty")
		tracing.TraceErr(span, err)
		return err
	}

	err := r.db.WithContext(ctx).Model(&models.EmailAttachment{}).
		Where("message_id = ?", utils.NormalizeMessageID(messageID)).
		Updates(map[string]interface{}{
			"deal_id":    dealID,
			"updated_at": utils.Now(),
		}).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	return nil
}
