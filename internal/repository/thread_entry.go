package repository

import (
	"context"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/makedealcrm/dealstack/interfaces"
	"github.com/makedealcrm/dealstack/internal/models"
	"github.com/makedealcrm/dealstack/internal/tracing"
	"github.com/makedealcrm/dealstack/internal/utils"
)

type threadRepository struct {
	db *gorm.DB
}

// NewThreadRepository creates a new thread entry repository
func NewThreadRepository(db *gorm.DB) interfaces.ThreadRepository {
	return &threadRepository{
		db: db,
	}
}

// Create inserts a new thread entry into the database
func (r *threadRepository) Create(ctx context.Context, entry *models.ThreadEntry) (string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "threadRepository.Create")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	if entry == nil {
		err := errors.New("thread entry cannot be nil")
		tracing.TraceErr(span, err)
		return "", err
	}
	if entry.ThreadID == "" {
		err := errors.New("thread ID cannot be empty")
		tracing.TraceErr(span, err)
		return "", err
	}
	span.SetTag("thread_id", entry.ThreadID)

	entry.MessageID = utils.NormalizeMessageID(entry.MessageID)
	if entry.InReplyTo != "" {
		entry.InReplyTo = utils.NormalizeMessageID(entry.InReplyTo)
	}
	for i, ref := range entry.References {
		entry.References[i] = utils.NormalizeMessageID(ref)
	}

	now := utils.Now()
	entry.CreatedAt = now
	entry.UpdatedAt = now

	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		tracing.TraceErr(span, tx.Error)
		return "", tx.Error
	}

	if err := tx.Create(entry).Error; err != nil {
		tx.Rollback()
		tracing.TraceErr(span, err)
		return "", err
	}

	if err := tx.Commit().Error; err != nil {
		tracing.TraceErr(span, err)
		return "", err
	}

	return entry.ID, nil
}

// GetByMessageID retrieves the thread entry recorded for a message ID.
// Returns nil without error when the message is unknown.
func (r *threadRepository) GetByMessageID(ctx context.Context, messageID string) (*models.ThreadEntry, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "threadRepository.GetByMessageID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagMessageId(span, messageID)

	if messageID == "" {
		err := errors.New("message ID cannot be empty")
		tracing.TraceErr(span, err)
		return nil, err
	}

	var entry models.ThreadEntry
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

// ListByThreadID retrieves all entries of a thread, oldest first
func (r *threadRepository) ListByThreadID(ctx context.Context, threadID string) ([]*models.ThreadEntry, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "threadRepository.ListByThreadID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	span.SetTag("thread_id", threadID)

	if threadID == "" {
		err := errors.New("thread ID cannot be empty")
		tracing.TraceErr(span, err)
		return nil, err
	}

	var entries []*models.ThreadEntry
	err := r.db.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Order("sent_at ASC").
		Find(&entries).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	return entries, nil
}

// GetThreadDeal returns the deal bound to a thread, empty when the
// thread exists without a binding.
func (r *threadRepository) GetThreadDeal(ctx context.Context, threadID string) (string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "threadRepository.GetThreadDeal")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	span.SetTag("thread_id", threadID)

	if threadID == "" {
		err := errors.New("thread ID cannot be empty")
		tracing.TraceErr(span, err)
		return "", err
	}

	var entry models.ThreadEntry
	err := r.db.WithContext(ctx).
		Select("deal_id").
		Where("thread_id = ? AND deal_id <> ''", threadID).
		Order("created_at ASC").
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		tracing.TraceErr(span, err)
		return "", err
	}

	return entry.DealID, nil
}

// FindRecentByAddress returns non-retired entries touching an address
// after the cutoff, newest first.
func (r *threadRepository) FindRecentByAddress(ctx context.Context, address string, since time.Time) ([]*models.ThreadEntry, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "threadRepository.FindRecentByAddress")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	span.SetTag("address", address)

	if address == "" {
		err := errors.New("address cannot be empty")
		tracing.TraceErr(span, err)
		return nil, err
	}

	var entries []*models.ThreadEntry
	err := r.db.WithContext(ctx).
		Where("retired = false AND sent_at >= ?", since).
		Where("LOWER(from_address) = LOWER(?) OR ? = ANY(participants)", address, address).
		Order("sent_at DESC").
		Find(&entries).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "error querying recent thread entries")
	}

	return entries, nil
}

// RetireOlderThan marks entries last active before the cutoff as
// retired, so correlation stops considering them.
func (r *threadRepository) RetireOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "threadRepository.RetireOlderThan")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	span.SetTag("cutoff", cutoff.String())

	result := r.db.WithContext(ctx).Model(&models.ThreadEntry{}).
		Where("retired = false AND sent_at < ?", cutoff).
		Updates(map[string]interface{}{
			"retired":    true,
			"updated_at": utils.Now(),
		})
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return 0, result.Error
	}

	span.LogKV("retired.count", result.RowsAffected)
	return result.RowsAffected, nil
}
