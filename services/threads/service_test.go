package threads

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/makedealcrm/dealstack/dto"
	"github.com/makedealcrm/dealstack/internal/logger"
	"github.com/makedealcrm/dealstack/internal/models"
	"github.com/makedealcrm/dealstack/internal/utils"
)

type memThreadRepository struct {
	mu      sync.Mutex
	entries []*models.ThreadEntry
}

func (m *memThreadRepository) Create(ctx context.Context, entry *models.ThreadEntry) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry.MessageID = utils.NormalizeMessageID(entry.MessageID)
	entry.CreatedAt = utils.Now()
	m.entries = append(m.entries, entry)
	return entry.MessageID, nil
}

func (m *memThreadRepository) GetByMessageID(ctx context.Context, messageID string) (*models.ThreadEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, entry := range m.entries {
		if entry.MessageID == utils.NormalizeMessageID(messageID) {
			return entry, nil
		}
	}
	return nil, nil
}

func (m *memThreadRepository) ListByThreadID(ctx context.Context, threadID string) ([]*models.ThreadEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*models.ThreadEntry
	for _, entry := range m.entries {
		if entry.ThreadID == threadID {
			result = append(result, entry)
		}
	}
	return result, nil
}

func (m *memThreadRepository) GetThreadDeal(ctx context.Context, threadID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var bound *models.ThreadEntry
	for _, entry := range m.entries {
		if entry.ThreadID != threadID || entry.DealID == "" {
			continue
		}
		if bound == nil || entry.CreatedAt.Before(bound.CreatedAt) {
			bound = entry
		}
	}
	if bound == nil {
		return "", nil
	}
	return bound.DealID, nil
}

func (m *memThreadRepository) FindRecentByAddress(ctx context.Context, address string, since time.Time) ([]*models.ThreadEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*models.ThreadEntry
	for _, entry := range m.entries {
		if entry.Retired || entry.SentAt == nil || entry.SentAt.Before(since) {
			continue
		}
		if strings.EqualFold(entry.FromAddress, address) {
			result = append(result, entry)
			continue
		}
		for _, p := range entry.Participants {
			if strings.EqualFold(p, address) {
				result = append(result, entry)
				break
			}
		}
	}
	return result, nil
}

func (m *memThreadRepository) RetireOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, entry := range m.entries {
		if !entry.Retired && entry.SentAt != nil && entry.SentAt.Before(cutoff) {
			entry.Retired = true
			count++
		}
	}
	return count, nil
}

func newTestTracker(repo *memThreadRepository) *Tracker {
	core, _ := observer.New(zap.InfoLevel)
	return NewTracker(repo, logger.NewAppLoggerFromZap(zap.New(core)))
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func TestDeterministicThreadID(t *testing.T) {
	first := DeterministicThreadID("msg-100@example.com")
	second := DeterministicThreadID("msg-100@example.com")
	other := DeterministicThreadID("msg-200@example.com")

	assert.Equal(t, first, second)
	assert.NotEqual(t, first, other)
	assert.True(t, strings.HasPrefix(first, "thread_"))
	assert.Len(t, first, len("thread_")+32)
}

func TestTrack_NewThreadUsesMessageID(t *testing.T) {
	repo := &memThreadRepository{}
	tracker := newTestTracker(repo)

	email := &dto.InboundEmail{
		MessageID:   "<msg-100@example.com>",
		Subject:     "Acme Sale",
		FromAddress: "jane@acme.com",
		SentAt:      timePtr(utils.Now()),
	}

	threadID, err := tracker.Track(context.Background(), email, "deal_1")
	require.NoError(t, err)
	assert.Equal(t, DeterministicThreadID("msg-100@example.com"), threadID)
}

func TestGetThreadInfo_MatchesByReferences(t *testing.T) {
	repo := &memThreadRepository{}
	tracker := newTestTracker(repo)

	first := &dto.InboundEmail{
		MessageID:   "msg-100@example.com",
		Subject:     "Acme Sale",
		FromAddress: "jane@acme.com",
		SentAt:      timePtr(utils.Now().Add(-time.Hour)),
	}
	_, err := tracker.Track(context.Background(), first, "deal_1")
	require.NoError(t, err)

	reply := &dto.InboundEmail{
		MessageID:   "msg-101@example.com",
		Subject:     "Re: Acme Sale",
		FromAddress: "buyer@other.com",
		References:  []string{"<msg-100@example.com>"},
		SentAt:      timePtr(utils.Now()),
	}

	info, err := tracker.GetThreadInfo(context.Background(), reply)
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, DeterministicThreadID("msg-100@example.com"), info.ThreadID)
	assert.Equal(t, "deal_1", info.DealID)
}

func TestGetThreadInfo_MatchesByInReplyTo(t *testing.T) {
	repo := &memThreadRepository{}
	tracker := newTestTracker(repo)

	first := &dto.InboundEmail{
		MessageID:   "msg-100@example.com",
		Subject:     "Acme Sale",
		FromAddress: "jane@acme.com",
		SentAt:      timePtr(utils.Now().Add(-time.Hour)),
	}
	_, err := tracker.Track(context.Background(), first, "deal_1")
	require.NoError(t, err)

	reply := &dto.InboundEmail{
		MessageID:   "msg-102@example.com",
		Subject:     "totally different subject",
		FromAddress: "buyer@other.com",
		InReplyTo:   "<msg-100@example.com>",
		SentAt:      timePtr(utils.Now()),
	}

	info, err := tracker.GetThreadInfo(context.Background(), reply)
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "deal_1", info.DealID)
}

func TestGetThreadInfo_SubjectFallback(t *testing.T) {
	repo := &memThreadRepository{}
	tracker := newTestTracker(repo)

	first := &dto.InboundEmail{
		MessageID:   "msg-100@example.com",
		Subject:     "Acme Sale",
		FromAddress: "jane@acme.com",
		SentAt:      timePtr(utils.Now().Add(-time.Hour)),
	}
	_, err := tracker.Track(context.Background(), first, "deal_1")
	require.NoError(t, err)

	// no headers, same sender, prefixed subject
	followUp := &dto.InboundEmail{
		MessageID:   "msg-103@example.com",
		Subject:     "Re: Acme Sale",
		FromAddress: "jane@acme.com",
		SentAt:      timePtr(utils.Now()),
	}

	info, err := tracker.GetThreadInfo(context.Background(), followUp)
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, DeterministicThreadID("msg-100@example.com"), info.ThreadID)
}

func TestGetThreadInfo_SubjectFallbackIgnoresOldEntries(t *testing.T) {
	repo := &memThreadRepository{}
	tracker := newTestTracker(repo)

	stale := &dto.InboundEmail{
		MessageID:   "msg-100@example.com",
		Subject:     "Acme Sale",
		FromAddress: "jane@acme.com",
		SentAt:      timePtr(utils.Now().Add(-10 * 24 * time.Hour)),
	}
	_, err := tracker.Track(context.Background(), stale, "deal_1")
	require.NoError(t, err)

	followUp := &dto.InboundEmail{
		MessageID:   "msg-104@example.com",
		Subject:     "Re: Acme Sale",
		FromAddress: "jane@acme.com",
		SentAt:      timePtr(utils.Now()),
	}

	info, err := tracker.GetThreadInfo(context.Background(), followUp)
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestGetThreadInfo_DealBindingSetOnce(t *testing.T) {
	repo := &memThreadRepository{}
	tracker := newTestTracker(repo)

	first := &dto.InboundEmail{
		MessageID:   "msg-100@example.com",
		Subject:     "Acme Sale",
		FromAddress: "jane@acme.com",
		SentAt:      timePtr(utils.Now().Add(-2 * time.Hour)),
	}
	threadID, err := tracker.Track(context.Background(), first, "deal_1")
	require.NoError(t, err)

	// later entry in the same thread carries a different deal ID, the
	// thread binding stays with the first
	second := &dto.InboundEmail{
		MessageID:   "msg-105@example.com",
		Subject:     "Re: Acme Sale",
		FromAddress: "buyer@other.com",
		InReplyTo:   "msg-100@example.com",
		SentAt:      timePtr(utils.Now().Add(-time.Hour)),
	}
	secondThreadID, err := tracker.Track(context.Background(), second, "deal_2")
	require.NoError(t, err)
	assert.Equal(t, threadID, secondThreadID)

	third := &dto.InboundEmail{
		MessageID:   "msg-106@example.com",
		Subject:     "Re: Acme Sale",
		FromAddress: "jane@acme.com",
		InReplyTo:   "msg-105@example.com",
		SentAt:      timePtr(utils.Now()),
	}
	info, err := tracker.GetThreadInfo(context.Background(), third)
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "deal_1", info.DealID)
}

func TestGetThreadInfo_CacheIsConcurrencySafe(t *testing.T) {
	repo := &memThreadRepository{}
	tracker := newTestTracker(repo)

	first := &dto.InboundEmail{
		MessageID:   "msg-100@example.com",
		Subject:     "Acme Sale",
		FromAddress: "jane@acme.com",
		SentAt:      timePtr(utils.Now().Add(-time.Hour)),
	}
	_, err := tracker.Track(context.Background(), first, "deal_1")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reply := &dto.InboundEmail{
				MessageID:   "msg-107@example.com",
				Subject:     "Re: Acme Sale",
				FromAddress: "jane@acme.com",
				InReplyTo:   "msg-100@example.com",
				SentAt:      timePtr(utils.Now()),
			}
			info, err := tracker.GetThreadInfo(context.Background(), reply)
			assert.NoError(t, err)
			assert.NotNil(t, info)
		}()
	}
	wg.Wait()
}

func TestGetThreadSummary(t *testing.T) {
	repo := &memThreadRepository{}
	tracker := newTestTracker(repo)

	first := &dto.InboundEmail{
		MessageID:   "msg-100@example.com",
		Subject:     "Acme Sale",
		FromAddress: "jane@acme.com",
		To:          []string{"deals@mycrm"},
		SentAt:      timePtr(utils.Now().Add(-48 * time.Hour)),
	}
	threadID, err := tracker.Track(context.Background(), first, "deal_1")
	require.NoError(t, err)

	second := &dto.InboundEmail{
		MessageID:   "msg-108@example.com",
		Subject:     "Re: Acme Sale",
		FromAddress: "buyer@other.com",
		To:          []string{"deals@mycrm"},
		InReplyTo:   "msg-100@example.com",
		SentAt:      timePtr(utils.Now()),
	}
	_, err = tracker.Track(context.Background(), second, "deal_1")
	require.NoError(t, err)

	summary, err := tracker.GetThreadSummary(context.Background(), threadID)
	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, 2, summary.EmailCount)
	assert.Equal(t, "deal_1", summary.DealID)
	assert.Equal(t, 2, summary.DurationDays)
	assert.Contains(t, summary.Participants, "jane@acme.com")
	assert.Contains(t, summary.Participants, "buyer@other.com")
	assert.Contains(t, summary.Participants, "deals@mycrm")
}
