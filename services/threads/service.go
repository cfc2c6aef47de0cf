package threads

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/opentracing/opentracing-go"

	"github.com/makedealcrm/dealstack/dto"
	"github.com/makedealcrm/dealstack/interfaces"
	"github.com/makedealcrm/dealstack/internal/logger"
	"github.com/makedealcrm/dealstack/internal/models"
	"github.com/makedealcrm/dealstack/internal/tracing"
	"github.com/makedealcrm/dealstack/internal/utils"
)

const (
	subjectMatchWindow = 7 * 24 * time.Hour

	scoreExactSubject     = 100
	scoreContainedSubject = 80
	subjectScoreThreshold = 70
)

// ThreadInfo is the correlation result for one email
type ThreadInfo struct {
	ThreadID string
	DealID   string
}

// Tracker correlates inbound emails into conversation threads and
// records them. Lookups are cached per message ID, the cache is safe
// for concurrent use.
type Tracker struct {
	threadRepository interfaces.ThreadRepository
	log              logger.Logger
	cache            sync.Map
}

func NewTracker(threadRepository interfaces.ThreadRepository, log logger.Logger) *Tracker {
	return &Tracker{
		threadRepository: threadRepository,
		log:              log,
	}
}

// GetThreadInfo resolves the thread an email belongs to, trying
// references, then the in-reply-to header, then subject similarity.
// Returns nil when the email starts a new conversation.
func (t *Tracker) GetThreadInfo(ctx context.Context, email *dto.InboundEmail) (*ThreadInfo, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ThreadTracker.GetThreadInfo")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagMessageId(span, email.MessageID)

	messageID := utils.NormalizeMessageID(email.MessageID)
	if messageID != "" {
		if cached, ok := t.cache.Load(messageID); ok {
			span.SetTag("cache_hit", true)
			info, _ := cached.(*ThreadInfo)
			return info, nil
		}
	}

	info, err := t.findByReferences(ctx, email)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	if info == nil && email.InReplyTo != "" {
		info, err = t.findByReplyTo(ctx, email)
		if err != nil {
			tracing.TraceErr(span, err)
			return nil, err
		}
	}

	if info == nil {
		info, err = t.findBySubject(ctx, email)
		if err != nil {
			tracing.TraceErr(span, err)
			return nil, err
		}
	}

	if messageID != "" {
		t.cache.Store(messageID, info)
	}

	if info != nil {
		span.SetTag("thread_id", info.ThreadID)
	}
	return info, nil
}

// Track records an email in its thread and returns the thread ID. The
// deal binding written here belongs to the entry, the thread level
// binding is whichever entry bound first.
func (t *Tracker) Track(ctx context.Context, email *dto.InboundEmail, dealID string) (string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ThreadTracker.Track")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagMessageId(span, email.MessageID)
	tracing.TagEntity(span, dealID)

	threadID, err := t.resolveThreadID(ctx, email, dealID)
	if err != nil {
		tracing.TraceErr(span, err)
		return "", err
	}
	span.SetTag("thread_id", threadID)

	entry := &models.ThreadEntry{
		ThreadID:     threadID,
		MessageID:    email.MessageID,
		DealID:       dealID,
		Subject:      email.Subject,
		FromAddress:  strings.ToLower(email.FromAddress),
		Participants: email.AllRecipients(),
		SentAt:       email.SentAt,
		InReplyTo:    email.InReplyTo,
		References:   email.References,
	}

	if _, err := t.threadRepository.Create(ctx, entry); err != nil {
		tracing.TraceErr(span, err)
		return "", err
	}

	messageID := utils.NormalizeMessageID(email.MessageID)
	if messageID != "" {
		t.cache.Store(messageID, &ThreadInfo{ThreadID: threadID, DealID: dealID})
	}

	t.log.Infof("tracked message %s in thread %s for deal %s", messageID, threadID, dealID)
	return threadID, nil
}

func (t *Tracker) resolveThreadID(ctx context.Context, email *dto.InboundEmail, dealID string) (string, error) {
	info, err := t.GetThreadInfo(ctx, email)
	if err != nil {
		return "", err
	}
	if info != nil && info.ThreadID != "" {
		return info.ThreadID, nil
	}

	// New thread, derive a deterministic ID from the message ID so
	// reprocessing lands in the same thread
	messageID := utils.NormalizeMessageID(email.MessageID)
	if messageID != "" {
		return DeterministicThreadID(messageID), nil
	}
	return DeterministicThreadID(fmt.Sprintf("%s_%d", dealID, utils.Now().Unix())), nil
}

// DeterministicThreadID derives a stable thread ID from a seed string
func DeterministicThreadID(seed string) string {
	sum := md5.Sum([]byte(seed))
	return "thread_" + hex.EncodeToString(sum[:])
}

func (t *Tracker) findByReferences(ctx context.Context, email *dto.InboundEmail) (*ThreadInfo, error) {
	refs := make([]string, 0, len(email.References)+1)
	for _, ref := range email.References {
		refs = append(refs, utils.NormalizeMessageID(ref))
	}
	if email.InReplyTo != "" {
		refs = append(refs, utils.NormalizeMessageID(email.InReplyTo))
	}
	refs = utils.UniqueStrings(refs)

	if len(refs) == 0 {
		return nil, nil
	}

	// Pick the most recently sent entry among all referenced messages
	var best *models.ThreadEntry
	for _, ref := range refs {
		if ref == "" {
			continue
		}
		entry, err := t.threadRepository.GetByMessageID(ctx, ref)
		if err != nil {
			return nil, err
		}
		if entry == nil {
			continue
		}
		if best == nil || laterSentAt(entry, best) {
			best = entry
		}
	}

	if best == nil {
		return nil, nil
	}
	return t.threadInfoForEntry(ctx, best)
}

func (t *Tracker) findByReplyTo(ctx context.Context, email *dto.InboundEmail) (*ThreadInfo, error) {
	entry, err := t.threadRepository.GetByMessageID(ctx, utils.NormalizeMessageID(email.InReplyTo))
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, nil
	}
	return t.threadInfoForEntry(ctx, entry)
}

// findBySubject falls back to fuzzy matching against recent entries
// exchanged with the same sender
func (t *Tracker) findBySubject(ctx context.Context, email *dto.InboundEmail) (*ThreadInfo, error) {
	cleanSubject := utils.CollapseWhitespace(utils.NormalizeEmailSubject(email.Subject))
	if cleanSubject == "" || email.FromAddress == "" {
		return nil, nil
	}

	since := utils.Now().Add(-subjectMatchWindow)
	entries, err := t.threadRepository.FindRecentByAddress(ctx, email.FromAddress, since)
	if err != nil {
		return nil, err
	}

	var best *models.ThreadEntry
	bestScore := 0
	for _, entry := range entries {
		score := subjectScore(email.Subject, cleanSubject, entry.Subject)
		if score <= subjectScoreThreshold {
			continue
		}
		if score > bestScore || (score == bestScore && best != nil && laterSentAt(entry, best)) {
			best = entry
			bestScore = score
		}
	}

	if best == nil {
		return nil, nil
	}
	return t.threadInfoForEntry(ctx, best)
}

func subjectScore(rawSubject, cleanSubject, candidateSubject string) int {
	if candidateSubject == rawSubject {
		return scoreExactSubject
	}
	if strings.Contains(strings.ToLower(candidateSubject), strings.ToLower(cleanSubject)) {
		return scoreContainedSubject
	}
	return 0
}

// threadInfoForEntry resolves the thread level deal binding, which may
// differ from the matched entry when an earlier entry bound first
func (t *Tracker) threadInfoForEntry(ctx context.Context, entry *models.ThreadEntry) (*ThreadInfo, error) {
	dealID, err := t.threadRepository.GetThreadDeal(ctx, entry.ThreadID)
	if err != nil {
		return nil, err
	}
	return &ThreadInfo{ThreadID: entry.ThreadID, DealID: dealID}, nil
}

func laterSentAt(a, b *models.ThreadEntry) bool {
	if a.SentAt == nil {
		return false
	}
	if b.SentAt == nil {
		return true
	}
	return a.SentAt.After(*b.SentAt)
}
