package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/makedealcrm/dealstack/interfaces"
	"github.com/makedealcrm/dealstack/internal/models"
	"github.com/makedealcrm/dealstack/internal/tracing"
	"github.com/makedealcrm/dealstack/internal/utils"
)

type contactRepository struct {
	db *gorm.DB
}

// NewContactRepository creates a new contact repository
func NewContactRepository(db *gorm.DB) interfaces.ContactRepository {
	return &contactRepository{
		db: db,
	}
}

// Create inserts a new contact into the database
func (r *contactRepository) Create(ctx context.Context, contact *models.Contact) (string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "contactRepository.Create")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	if contact == nil {
		err := errors.New("contact cannot be nil")
		tracing.TraceErr(span, err)
		return "", err
	}

	contact.Email = strings.ToLower(strings.TrimSpace(contact.Email))

	now := utils.Now()
	contact.CreatedAt = now
	contact.UpdatedAt = now

	if err := r.db.WithContext(ctx).Create(contact).Error; err != nil {
		tracing.TraceErr(span, err)
		return "", err
	}

	span.SetTag("contact_id", contact.ID)
	return contact.ID, nil
}

// GetByID retrieves a contact by its ID
func (r *contactRepository) GetByID(ctx context.Context, id string) (*models.Contact, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "contactRepository.GetByID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	span.SetTag("contact_id", id)

	if id == "" {
		err := errors.New("contact ID cannot be empty")
		tracing.TraceErr(span, err)
		return nil, err
	}

	var contact models.Contact
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&contact).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			notFoundErr := fmt.Errorf("contact with ID %s not found", id)
			tracing.TraceErr(span, notFoundErr)
			return nil, notFoundErr
		}
		tracing.TraceErr(span, err)
		return nil, err
	}

	return &contact, nil
}

// GetByEmail looks up a contact by email, case insensitive. Returns
// nil without error when no contact matches.
func (r *contactRepository) GetByEmail(ctx context.Context, email string) (*models.Contact, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "contactRepository.GetByEmail")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	if email == "" {
		err := errors.New("email cannot be empty")
		tracing.TraceErr(span, err)
		return nil, err
	}

	var contact models.Contact
	err := r.db.WithContext(ctx).
		Where("LOWER(email) = LOWER(?)", strings.TrimSpace(email)).
		First(&contact).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, err
	}

	return &contact, nil
}

// GetByName looks up a contact by first and last name. Returns nil
// without error when no contact matches.
func (r *contactRepository) GetByName(ctx context.Context, firstName, lastName string) (*models.Contact, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "contactRepository.GetByName")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	if firstName == "" && lastName == "" {
		err := errors.New("contact name cannot be empty")
		tracing.TraceErr(span, err)
		return nil, err
	}

	var contact models.Contact
	err := r.db.WithContext(ctx).
		Where("LOWER(first_name) = LOWER(?) AND LOWER(last_name) = LOWER(?)", firstName, lastName).
		First(&contact).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, err
	}

	return &contact, nil
}

// Update persists changed fields of an existing contact
func (r *contactRepository) Update(ctx context.Context, contact *models.Contact) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "contactRepository.Update")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	if contact == nil {
		err := errors.New("contact cannot be nil")
		tracing.TraceErr(span, err)
		return err
	}
	if contact.ID == "" {
		err := errors.New("contact ID cannot be empty")
		tracing.TraceErr(span, err)
		return err
	}
	span.SetTag("contact_id", contact.ID)

	contact.Email = strings.ToLower(strings.TrimSpace(contact.Email))
	contact.UpdatedAt = utils.Now()

	if err := r.db.WithContext(ctx).Save(contact).Error; err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	return nil
}

// LinkToDeal associates a contact with a deal, idempotent on repeats
func (r *contactRepository) LinkToDeal(ctx context.Context, contactID, dealID string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "contactRepository.LinkToDeal")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	span.SetTag("contact_id", contactID)
	span.SetTag("deal_id", dealID)

	if contactID == "" || dealID == "" {
		err := errors.New("contact ID and deal ID cannot be empty")
		tracing.TraceErr(span, err)
		return err
	}

	link := models.DealContact{
		DealID:    dealID,
		ContactID: contactID,
		CreatedAt: utils.Now(),
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&link).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	return nil
}
