package ingestion

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/makedealcrm/dealstack/config"
	"github.com/makedealcrm/dealstack/dto"
	"github.com/makedealcrm/dealstack/interfaces"
	"github.com/makedealcrm/dealstack/internal/enum"
	appErrors "github.com/makedealcrm/dealstack/internal/errors"
	"github.com/makedealcrm/dealstack/internal/logger"
	"github.com/makedealcrm/dealstack/internal/models"
	"github.com/makedealcrm/dealstack/internal/tracing"
	"github.com/makedealcrm/dealstack/internal/utils"
	"github.com/makedealcrm/dealstack/services/contacts"
	"github.com/makedealcrm/dealstack/services/dedup"
	"github.com/makedealcrm/dealstack/services/extraction"
	"github.com/makedealcrm/dealstack/services/threads"
)

const (
	defaultPipelineStage = "sourcing"
	defaultSalesStage    = "Prospecting"
	defaultProbability   = 10
	defaultCloseHorizon  = 90 * 24 * time.Hour
	dealSourceEmail      = "Email"

	updateExcerptLength = 500
)

// Result describes what the pipeline did with one email
type Result struct {
	Outcome           enum.ProcessingOutcome
	DealID            string
	DealName          string
	ThreadID          string
	ContactIDs        []string
	AttachmentsLinked int
	Attempts          int
	SkipReason        string
}

// Orchestrator runs the full email-to-deal pipeline: gate, extract,
// correlate, dedupe, then create or update, with retries around the
// processing core.
type Orchestrator struct {
	cfg             *config.PipelineConfig
	dealRepository  interfaces.DealRepository
	noteRepository  interfaces.NoteRepository
	attachmentRepo  interfaces.AttachmentRepository
	processingLog   interfaces.ProcessingLogRepository
	extractor       *extraction.Service
	detector        *dedup.Detector
	tracker         *threads.Tracker
	contactResolver *contacts.Resolver
	publisher       interfaces.NotificationPublisher
	log             logger.Logger
}

func NewOrchestrator(
	cfg *config.PipelineConfig,
	dealRepository interfaces.DealRepository,
	noteRepository interfaces.NoteRepository,
	attachmentRepo interfaces.AttachmentRepository,
	processingLog interfaces.ProcessingLogRepository,
	extractor *extraction.Service,
	detector *dedup.Detector,
	tracker *threads.Tracker,
	contactResolver *contacts.Resolver,
	publisher interfaces.NotificationPublisher,
	log logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		cfg:             cfg,
		dealRepository:  dealRepository,
		noteRepository:  noteRepository,
		attachmentRepo:  attachmentRepo,
		processingLog:   processingLog,
		extractor:       extractor,
		detector:        detector,
		tracker:         tracker,
		contactResolver: contactResolver,
		publisher:       publisher,
		log:             log,
	}
}

// ProcessEmail runs one email through the pipeline. Gate rejections
// return a skipped result without error. Processing failures are
// retried, and only after the last attempt fails does the email get a
// failed outcome.
func (o *Orchestrator) ProcessEmail(ctx context.Context, email *dto.InboundEmail) (*Result, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "IngestionOrchestrator.ProcessEmail")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagMessageId(span, email.MessageID)

	if utils.NormalizeMessageID(email.MessageID) == "" {
		tracing.TraceErr(span, appErrors.ErrMissingMessageID)
		return nil, appErrors.ErrMissingMessageID
	}

	if skip, reason, err := o.shouldSkip(ctx, email); err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	} else if skip {
		span.SetTag("skip_reason", reason)
		o.log.Infof("skipping message %s: %s", email.MessageID, reason)
		result := &Result{Outcome: enum.OutcomeSkipped, SkipReason: reason}
		if reason != "already processed" {
			o.recordOutcome(ctx, email, result, "")
		}
		return result, nil
	}

	var result *Result
	var lastErr error
	for attempt := 1; attempt <= o.cfg.RetryAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, o.cfg.AttemptTimeout)
		result, lastErr = o.processAttempt(attemptCtx, email)
		cancel()

		if lastErr == nil {
			result.Attempts = attempt
			break
		}

		o.log.Warnf("processing attempt %d/%d failed for message %s: %v",
			attempt, o.cfg.RetryAttempts, email.MessageID, lastErr)
		if attempt < o.cfg.RetryAttempts {
			time.Sleep(o.cfg.RetryDelay)
		}
	}

	if lastErr != nil {
		tracing.TraceErr(span, lastErr)
		failed := &Result{Outcome: enum.OutcomeFailed, Attempts: o.cfg.RetryAttempts}
		o.recordOutcome(ctx, email, failed, lastErr.Error())
		o.notify(ctx, email, failed, lastErr.Error())
		return failed, lastErr
	}

	o.recordOutcome(ctx, email, result, "")
	o.notify(ctx, email, result, "")

	span.SetTag("outcome", result.Outcome.String())
	tracing.TagEntity(span, result.DealID)
	return result, nil
}

// shouldSkip applies the intake gate: update events, non-inbound
// types, wrong recipients, replays and stale emails are all dropped
// before any processing happens.
func (o *Orchestrator) shouldSkip(ctx context.Context, email *dto.InboundEmail) (bool, string, error) {
	if email.IsUpdate {
		return true, "update event", nil
	}

	if email.Type != enum.EmailInbound && email.Type != enum.EmailArchived {
		return true, fmt.Sprintf("email type %s not processed", email.Type), nil
	}

	if !o.addressedToIntake(email) {
		return true, "not addressed to intake alias", nil
	}

	// Only outcomes that bound the message to a record count as
	// processed. A message that previously failed or was skipped may be
	// delivered again.
	processed, err := o.processingLog.ExistsWithOutcome(ctx, email.MessageID,
		enum.OutcomeCreated, enum.OutcomeUpdated, enum.OutcomeDuplicateFound)
	if err != nil {
		return false, "", err
	}
	if processed {
		return true, "already processed", nil
	}

	if email.SentAt != nil && email.SentAt.Before(utils.Now().Add(-o.cfg.StalenessWindow)) {
		return true, "email older than staleness window", nil
	}

	return false, "", nil
}

func (o *Orchestrator) addressedToIntake(email *dto.InboundEmail) bool {
	alias := strings.ToLower(o.cfg.IntakeAlias)
	for _, recipient := range email.AllRecipients() {
		if strings.Contains(strings.ToLower(recipient), alias) {
			return true
		}
	}
	return false
}

func (o *Orchestrator) processAttempt(ctx context.Context, email *dto.InboundEmail) (*Result, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "IngestionOrchestrator.processAttempt")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	extracted := o.extractor.Extract(ctx, email)

	threadInfo, err := o.tracker.GetThreadInfo(ctx, email)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	// An email that belongs to a thread with a bound deal updates that
	// deal, duplicate detection never gets a say
	if threadInfo != nil && threadInfo.DealID != "" {
		return o.updateDeal(ctx, email, extracted, threadInfo.DealID)
	}

	if threadInfo == nil {
		match, err := o.detector.FindDuplicate(ctx, dedup.Incoming{
			Name:        extracted.Deal.Name,
			AccountName: extracted.Deal.AccountName,
			Amount:      extracted.Deal.Amount,
		})
		if err != nil {
			tracing.TraceErr(span, err)
			return nil, err
		}
		if match != nil {
			return o.handleDuplicate(ctx, email, match)
		}
	}

	return o.createDeal(ctx, email, extracted)
}

func (o *Orchestrator) createDeal(ctx context.Context, email *dto.InboundEmail, extracted *extraction.Result) (*Result, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "IngestionOrchestrator.createDeal")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	closeDate := utils.Now().Add(defaultCloseHorizon)
	deal := &models.Deal{
		Name:            extracted.Deal.Name,
		Amount:          extracted.Deal.Amount,
		AccountName:     extracted.Deal.AccountName,
		Industry:        extracted.Deal.Industry,
		AnnualRevenue:   extracted.Deal.AnnualRevenue,
		Ebitda:          extracted.Deal.Ebitda,
		Description:     extracted.Deal.Description + "\n\nEmail ID: " + utils.NormalizeMessageID(email.MessageID),
		DealSource:      dealSourceEmail,
		PipelineStage:   defaultPipelineStage,
		SalesStage:      defaultSalesStage,
		Probability:     defaultProbability,
		ExpectedCloseAt: &closeDate,
		AssignedUserID:  o.actingUserID(ctx),
	}

	dealID, err := o.dealRepository.Create(ctx, deal)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "failed to create deal")
	}

	result := &Result{
		Outcome:  enum.OutcomeCreated,
		DealID:   dealID,
		DealName: deal.Name,
	}
	if err := o.attachAndTrack(ctx, email, extracted, result); err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	o.log.Infof("created deal %s from message %s", dealID, email.MessageID)
	return result, nil
}

func (o *Orchestrator) updateDeal(ctx context.Context, email *dto.InboundEmail, extracted *extraction.Result, dealID string) (*Result, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "IngestionOrchestrator.updateDeal")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagEntity(span, dealID)

	deal, err := o.dealRepository.GetByID(ctx, dealID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrapf(err, "failed to load deal %s", dealID)
	}

	// Amount only ever moves up
	if extracted.Deal.Amount > deal.Amount {
		deal.Amount = extracted.Deal.Amount
	}

	// Financial metrics fill gaps, never overwrite
	if extracted.Deal.AnnualRevenue > 0 && deal.AnnualRevenue == 0 {
		deal.AnnualRevenue = extracted.Deal.AnnualRevenue
	}
	if extracted.Deal.Ebitda > 0 && deal.Ebitda == 0 {
		deal.Ebitda = extracted.Deal.Ebitda
	}

	excerpt := email.BodyText
	if len(excerpt) > updateExcerptLength {
		excerpt = excerpt[:updateExcerptLength]
	}
	deal.Description += fmt.Sprintf("\n\n--- Update from email (%s) ---\n%s\nEmail ID: %s",
		utils.Now().Format("2006-01-02 15:04:05"), excerpt, utils.NormalizeMessageID(email.MessageID))

	if err := o.dealRepository.Update(ctx, deal); err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrapf(err, "failed to update deal %s", dealID)
	}

	noteLine := fmt.Sprintf("Email update: %s (%s)", email.Subject, utils.Now().Format("2006-01-02"))
	if err := o.dealRepository.AppendPipelineNote(ctx, dealID, noteLine); err != nil {
		tracing.TraceErr(span, err)
		o.log.Warnf("failed to append pipeline note on deal %s: %v", dealID, err)
	}

	result := &Result{
		Outcome:  enum.OutcomeUpdated,
		DealID:   dealID,
		DealName: deal.Name,
	}
	if err := o.attachAndTrack(ctx, email, extracted, result); err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	o.log.Infof("updated deal %s from message %s", dealID, email.MessageID)
	return result, nil
}

// handleDuplicate leaves an annotation on the existing deal and stops.
// No contacts are linked and the email is not tracked in a thread.
func (o *Orchestrator) handleDuplicate(ctx context.Context, email *dto.InboundEmail, match *dedup.Match) (*Result, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "IngestionOrchestrator.handleDuplicate")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagEntity(span, match.Deal.ID)

	sentAt := ""
	if email.SentAt != nil {
		sentAt = email.SentAt.Format(time.RFC3339)
	}

	note := &models.DealNote{
		DealID:    match.Deal.ID,
		Subject:   "Duplicate email received",
		MessageID: email.MessageID,
		Body: fmt.Sprintf("Duplicate email detected:\nSubject: %s\nFrom: %s\nDate: %s\n\n"+
			"Email was not processed as it appears to be a duplicate.",
			email.Subject, email.FromAddress, sentAt),
	}

	if _, err := o.noteRepository.Create(ctx, note); err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "failed to create duplicate note")
	}

	o.log.Infof("duplicate of deal %s detected for message %s", match.Deal.ID, email.MessageID)
	return &Result{
		Outcome:  enum.OutcomeDuplicateFound,
		DealID:   match.Deal.ID,
		DealName: match.Deal.Name,
	}, nil
}

// attachAndTrack runs the post-write steps shared by the create and
// update paths: contacts, attachments, thread tracking.
func (o *Orchestrator) attachAndTrack(ctx context.Context, email *dto.InboundEmail, extracted *extraction.Result, result *Result) error {
	result.ContactIDs = o.contactResolver.ResolveAndLink(ctx, extracted.Contacts, result.DealID, o.actingUserID(ctx))

	linked, err := o.linkAttachments(ctx, email, result.DealID)
	if err != nil {
		return err
	}
	result.AttachmentsLinked = linked

	threadID, err := o.tracker.Track(ctx, email, result.DealID)
	if err != nil {
		return errors.Wrap(err, "failed to track thread")
	}
	result.ThreadID = threadID

	return nil
}

func (o *Orchestrator) linkAttachments(ctx context.Context, email *dto.InboundEmail, dealID string) (int, error) {
	if len(email.Attachments) == 0 {
		return 0, nil
	}

	for _, attachment := range email.Attachments {
		record := &models.EmailAttachment{
			MessageID:   email.MessageID,
			DealID:      dealID,
			Filename:    attachment.Filename,
			ContentType: attachment.ContentType,
			Size:        attachment.Size,
		}
		if _, err := o.attachmentRepo.Create(ctx, record); err != nil {
			return 0, errors.Wrap(err, "failed to record attachment")
		}
	}

	return len(email.Attachments), nil
}

func (o *Orchestrator) actingUserID(ctx context.Context) string {
	if userID := utils.GetUserIdFromContext(ctx); userID != "" {
		return userID
	}
	return o.cfg.DefaultUserID
}

// recordOutcome writes the idempotency ledger entry. Failures here are
// logged but never override the pipeline outcome.
func (o *Orchestrator) recordOutcome(ctx context.Context, email *dto.InboundEmail, result *Result, errMessage string) {
	entry := &models.ProcessingLog{
		MessageID: email.MessageID,
		Outcome:   result.Outcome,
		DealID:    result.DealID,
		Error:     errMessage,
		Attempts:  result.Attempts,
		ResultData: models.JSONMap{
			"threadId":          result.ThreadID,
			"contactsLinked":    len(result.ContactIDs),
			"attachmentsLinked": result.AttachmentsLinked,
			"skipReason":        result.SkipReason,
		},
	}

	if _, err := o.processingLog.Create(ctx, entry); err != nil {
		o.log.Errorf("failed to record processing outcome for message %s: %v", email.MessageID, err)
	}
}

// notify publishes the outcome, fire and forget
func (o *Orchestrator) notify(ctx context.Context, email *dto.InboundEmail, result *Result, errMessage string) {
	if o.publisher == nil {
		return
	}

	event := dto.EmailProcessed{
		MessageID: utils.NormalizeMessageID(email.MessageID),
		Outcome:   result.Outcome,
		DealID:    result.DealID,
		DealName:  result.DealName,
		ThreadID:  result.ThreadID,
		Error:     errMessage,
	}

	if err := o.publisher.Publish(ctx, dto.EventEmailProcessed, event); err != nil {
		o.log.Warnf("failed to publish %s event for message %s: %v", dto.EventEmailProcessed, email.MessageID, err)
	}
}
