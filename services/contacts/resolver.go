package contacts

import (
	"context"
	"fmt"

	"github.com/opentracing/opentracing-go"

	"github.com/makedealcrm/dealstack/interfaces"
	"github.com/makedealcrm/dealstack/internal/logger"
	"github.com/makedealcrm/dealstack/internal/models"
	"github.com/makedealcrm/dealstack/internal/tracing"
	"github.com/makedealcrm/dealstack/services/extraction"
)

const defaultLastName = "Unknown"

// Resolver matches extracted contact candidates against existing
// contact records, creating new ones as needed, and links them to a
// deal.
type Resolver struct {
	contactRepository interfaces.ContactRepository
	log               logger.Logger
}

func NewResolver(contactRepository interfaces.ContactRepository, log logger.Logger) *Resolver {
	return &Resolver{
		contactRepository: contactRepository,
		log:               log,
	}
}

// ResolveAndLink processes candidates one by one. A failing candidate
// is logged and skipped so the rest of the batch still lands.
func (r *Resolver) ResolveAndLink(ctx context.Context, candidates []extraction.ContactCandidate, dealID, actingUserID string) []string {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ContactResolver.ResolveAndLink")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagEntity(span, dealID)
	span.SetTag("candidates.count", len(candidates))

	var contactIDs []string
	for _, candidate := range candidates {
		contactID, err := r.resolveOne(ctx, candidate, actingUserID)
		if err != nil {
			tracing.TraceErr(span, err)
			r.log.Warnf("failed to resolve contact %s for deal %s: %v", candidate.Email, dealID, err)
			continue
		}
		if contactID == "" {
			continue
		}

		if err := r.contactRepository.LinkToDeal(ctx, contactID, dealID); err != nil {
			tracing.TraceErr(span, err)
			r.log.Warnf("failed to link contact %s to deal %s: %v", contactID, dealID, err)
			continue
		}
		contactIDs = append(contactIDs, contactID)
	}

	span.LogKV("resolved.count", len(contactIDs))
	return contactIDs
}

func (r *Resolver) resolveOne(ctx context.Context, candidate extraction.ContactCandidate, actingUserID string) (string, error) {
	if candidate.Email == "" && candidate.FirstName == "" {
		return "", nil
	}

	if candidate.Email != "" {
		existing, err := r.contactRepository.GetByEmail(ctx, candidate.Email)
		if err != nil {
			return "", err
		}
		if existing != nil {
			return existing.ID, r.mergeInto(ctx, existing, candidate)
		}
	}

	if candidate.FirstName != "" {
		lastName := candidate.LastName
		if lastName == "" {
			lastName = defaultLastName
		}
		existing, err := r.contactRepository.GetByName(ctx, candidate.FirstName, lastName)
		if err != nil {
			return "", err
		}
		if existing != nil {
			return existing.ID, r.mergeInto(ctx, existing, candidate)
		}
	}

	return r.createContact(ctx, candidate, actingUserID)
}

// mergeInto fills gaps on an existing record without overwriting
// anything already set
func (r *Resolver) mergeInto(ctx context.Context, existing *models.Contact, candidate extraction.ContactCandidate) error {
	changed := false

	if existing.Email == "" && candidate.Email != "" {
		existing.Email = candidate.Email
		changed = true
	}
	if existing.Phone == "" && candidate.Phone != "" {
		existing.Phone = candidate.Phone
		changed = true
	}
	if existing.Role == "" && candidate.Role != "" {
		existing.Role = candidate.Role.String()
		changed = true
	}

	if !changed {
		return nil
	}
	return r.contactRepository.Update(ctx, existing)
}

func (r *Resolver) createContact(ctx context.Context, candidate extraction.ContactCandidate, actingUserID string) (string, error) {
	lastName := candidate.LastName
	if lastName == "" {
		lastName = defaultLastName
	}

	contact := &models.Contact{
		FirstName:      candidate.FirstName,
		LastName:       lastName,
		Email:          candidate.Email,
		Phone:          candidate.Phone,
		Role:           candidate.Role.String(),
		Description:    fmt.Sprintf("Contact extracted from email (source: %s)", candidate.Source),
		LeadSource:     "Email",
		AssignedUserID: actingUserID,
	}

	return r.contactRepository.Create(ctx, contact)
}
