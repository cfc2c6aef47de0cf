package repository

import (
	"context"
	"fmt"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/makedealcrm/dealstack/interfaces"
	"github.com/makedealcrm/dealstack/internal/models"
	"github.com/makedealcrm/dealstack/internal/tracing"
	"github.com/makedealcrm/dealstack/internal/utils"
)

type dealRepository struct {
	db *gorm.DB
}

// NewDealRepository creates a new deal repository
func NewDealRepository(db *gorm.DB) interfaces.DealRepository {
	return &dealRepository{
		db: db,
	}
}

// Create inserts a new deal into the database
func (r *dealRepository) Create(ctx context.Context, deal *models.Deal) (string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "dealRepository.Create")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	if deal == nil {
		err := errors.New("deal cannot be nil")
		tracing.TraceErr(span, err)
		return "", err
	}

	now := utils.Now()
	deal.CreatedAt = now
	deal.UpdatedAt = now

	if err := r.db.WithContext(ctx).Create(deal).Error; err != nil {
		tracing.TraceErr(span, err)
		return "", err
	}

	span.SetTag("deal_id", deal.ID)
	return deal.ID, nil
}

// GetByID retrieves a deal by its ID
func (r *dealRepository) GetByID(ctx context.Context, id string) (*models.Deal, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "dealRepository.GetByID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	span.SetTag("deal_id", id)

	if id == "" {
		err := errors.New("deal ID cannot be empty")
		tracing.TraceErr(span, err)
		return nil, err
	}

	var deal models.Deal
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&deal).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			notFoundErr := fmt.Errorf("deal with ID %s not found", id)
			tracing.TraceErr(span, notFoundErr)
			return nil, notFoundErr
		}
		tracing.TraceErr(span, err)
		return nil, err
	}

	return &deal, nil
}

// Update persists changed fields of an existing deal
func (r *dealRepository) Update(ctx context.Context, deal *models.Deal) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "dealRepository.Update")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	if deal == nil {
		err := errors.New("deal cannot be nil")
		tracing.TraceErr(span, err)
		return err
	}
	if deal.ID == "" {
		err := errors.New("deal ID cannot be empty")
		tracing.TraceErr(span, err)
		return err
	}
	span.SetTag("deal_id", deal.ID)

	deal.UpdatedAt = utils.Now()

	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		tracing.TraceErr(span, tx.Error)
		return tx.Error
	}

	var exists bool
	err := tx.Model(&models.Deal{}).
		Select("COUNT(*) > 0").
		Where("id = ?", deal.ID).
		Find(&exists).Error
	if err != nil {
		tx.Rollback()
		tracing.TraceErr(span, err)
		return err
	}
	if !exists {
		tx.Rollback()
		err := fmt.Errorf("deal with ID %s not found", deal.ID)
		tracing.TraceErr(span, err)
		return err
	}

	if err := tx.Save(deal).Error; err != nil {
		tx.Rollback()
		tracing.TraceErr(span, err)
		return err
	}

	if err := tx.Commit().Error; err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	return nil
}

// FindCandidates returns open deals that could be duplicates of an
// incoming deal, most recently created first. A candidate matches on
// exact name, exact account name, or amount within 10 percent of the
// incoming amount.
func (r *dealRepository) FindCandidates(ctx context.Context, name, accountName string, amount float64) ([]*models.Deal, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "dealRepository.FindCandidates")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	span.SetTag("name", name)
	span.SetTag("account_name", accountName)

	query := r.db.WithContext(ctx).Model(&models.Deal{})

	conditions := r.db.Where("1 = 0")
	if name != "" {
		conditions = conditions.Or("LOWER(name) = LOWER(?)", name)
	}
	if accountName != "" {
		conditions = conditions.Or("LOWER(account_name) = LOWER(?)", accountName)
	}
	if amount > 0 {
		conditions = conditions.Or("amount BETWEEN ? AND ?", amount*0.9, amount*1.1)
	}

	var deals []*models.Deal
	err := query.
		Where(conditions).
		Order("created_at DESC").
		Limit(50).
		Find(&deals).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "error querying duplicate candidates")
	}

	span.LogKV("result.count", len(deals))
	return deals, nil
}

// AppendPipelineNote appends a line to the deal's pipeline notes
func (r *dealRepository) AppendPipelineNote(ctx context.Context, dealID string, line string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "dealRepository.AppendPipelineNote")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	span.SetTag("deal_id", dealID)

	if dealID == "" {
		err := errors.New("deal ID cannot be empty")
		tracing.TraceErr(span, err)
		return err
	}

	result := r.db.WithContext(ctx).Model(&models.Deal{}).
		Where("id = ?", dealID).
		Updates(map[string]interface{}{
			"pipeline_notes": gorm.Expr("CASE WHEN pipeline_notes = '' THEN ? ELSE pipeline_notes || E'\\n' || ? END", line, line),
			"updated_at":     utils.Now(),
		})
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		err := fmt.Errorf("deal with ID %s not found", dealID)
		tracing.TraceErr(span, err)
		return err
	}

	return nil
}
