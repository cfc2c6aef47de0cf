package contacts

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/makedealcrm/dealstack/internal/enum"
	"github.com/makedealcrm/dealstack/internal/logger"
	"github.com/makedealcrm/dealstack/internal/models"
	"github.com/makedealcrm/dealstack/services/extraction"
)

type memContactRepository struct {
	mu       sync.Mutex
	contacts []*models.Contact
	links    map[string][]string
	nextID   int
}

func newMemContactRepository() *memContactRepository {
	return &memContactRepository{links: make(map[string][]string)}
}

func (m *memContactRepository) Create(ctx context.Context, contact *models.Contact) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	contact.ID = strings.Repeat("c", 4) + string(rune('0'+m.nextID))
	contact.Email = strings.ToLower(contact.Email)
	m.contacts = append(m.contacts, contact)
	return contact.ID, nil
}

func (m *memContactRepository) GetByID(ctx context.Context, id string) (*models.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.contacts {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, nil
}

func (m *memContactRepository) GetByEmail(ctx context.Context, email string) (*models.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.contacts {
		if strings.EqualFold(c.Email, email) {
			return c, nil
		}
	}
	return nil, nil
}

func (m *memContactRepository) GetByName(ctx context.Context, firstName, lastName string) (*models.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.contacts {
		if strings.EqualFold(c.FirstName, firstName) && strings.EqualFold(c.LastName, lastName) {
			return c, nil
		}
	}
	return nil, nil
}

func (m *memContactRepository) Update(ctx context.Context, contact *models.Contact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, c := range m.contacts {
		if c.ID == contact.ID {
			m.contacts[i] = contact
			return nil
		}
	}
	return nil
}

func (m *memContactRepository) LinkToDeal(ctx context.Context, contactID, dealID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links[dealID] = append(m.links[dealID], contactID)
	return nil
}

func newTestResolver(repo *memContactRepository) *Resolver {
	core, _ := observer.New(zap.InfoLevel)
	return NewResolver(repo, logger.NewAppLoggerFromZap(zap.New(core)))
}

func TestResolveAndLink_CreatesNewContact(t *testing.T) {
	repo := newMemContactRepository()
	resolver := newTestResolver(repo)

	ids := resolver.ResolveAndLink(context.Background(), []extraction.ContactCandidate{
		{
			FirstName: "Jane",
			LastName:  "Doe",
			Email:     "jane@acme.com",
			Source:    enum.ContactSourceSender,
		},
	}, "deal_1", "user_1")

	require.Len(t, ids, 1)
	contact, err := repo.GetByEmail(context.Background(), "jane@acme.com")
	require.NoError(t, err)
	require.NotNil(t, contact)
	assert.Equal(t, "Jane", contact.FirstName)
	assert.Equal(t, "Doe", contact.LastName)
	assert.Equal(t, "Email", contact.LeadSource)
	assert.Equal(t, "user_1", contact.AssignedUserID)
	assert.Contains(t, contact.Description, "source: sender")
	assert.Equal(t, []string{contact.ID}, repo.links["deal_1"])
}

func TestResolveAndLink_MatchesByEmailCaseInsensitive(t *testing.T) {
	repo := newMemContactRepository()
	existingID, err := repo.Create(context.Background(), &models.Contact{
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     "jane@acme.com",
	})
	require.NoError(t, err)

	resolver := newTestResolver(repo)
	ids := resolver.ResolveAndLink(context.Background(), []extraction.ContactCandidate{
		{FirstName: "Janet", Email: "JANE@ACME.COM"},
	}, "deal_1", "user_1")

	require.Len(t, ids, 1)
	assert.Equal(t, existingID, ids[0])
	// no second contact created
	assert.Len(t, repo.contacts, 1)
}

func TestResolveAndLink_MergeFillsOnlyEmptyFields(t *testing.T) {
	repo := newMemContactRepository()
	_, err := repo.Create(context.Background(), &models.Contact{
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     "jane@acme.com",
		Phone:     "(555) 000-0000",
	})
	require.NoError(t, err)

	resolver := newTestResolver(repo)
	resolver.ResolveAndLink(context.Background(), []extraction.ContactCandidate{
		{
			Email: "jane@acme.com",
			Phone: "(555) 123-4567",
			Role:  enum.RoleSeller,
		},
	}, "deal_1", "user_1")

	contact, err := repo.GetByEmail(context.Background(), "jane@acme.com")
	require.NoError(t, err)
	// existing phone kept, empty role filled
	assert.Equal(t, "(555) 000-0000", contact.Phone)
	assert.Equal(t, "seller", contact.Role)
}

func TestResolveAndLink_MatchesByNameWhenNoEmail(t *testing.T) {
	repo := newMemContactRepository()
	existingID, err := repo.Create(context.Background(), &models.Contact{
		FirstName: "Bob",
		LastName:  "Smith",
		Email:     "bob@acme.com",
	})
	require.NoError(t, err)

	resolver := newTestResolver(repo)
	ids := resolver.ResolveAndLink(context.Background(), []extraction.ContactCandidate{
		{FirstName: "Bob", LastName: "Smith", Phone: "(555) 123-4567"},
	}, "deal_1", "user_1")

	require.Len(t, ids, 1)
	assert.Equal(t, existingID, ids[0])
}

func TestResolveAndLink_LastNameDefaultsToUnknown(t *testing.T) {
	repo := newMemContactRepository()
	resolver := newTestResolver(repo)

	ids := resolver.ResolveAndLink(context.Background(), []extraction.ContactCandidate{
		{FirstName: "Madonna", Email: "m@label.com"},
	}, "deal_1", "user_1")

	require.Len(t, ids, 1)
	contact, err := repo.GetByID(context.Background(), ids[0])
	require.NoError(t, err)
	assert.Equal(t, "Unknown", contact.LastName)
}

func TestResolveAndLink_SkipsCandidatesWithNothingToGoOn(t *testing.T) {
	repo := newMemContactRepository()
	resolver := newTestResolver(repo)

	ids := resolver.ResolveAndLink(context.Background(), []extraction.ContactCandidate{
		{Phone: "(555) 123-4567"},
	}, "deal_1", "user_1")

	assert.Empty(t, ids)
	assert.Empty(t, repo.contacts)
}
