package extraction

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/makedealcrm/dealstack/dto"
	"github.com/makedealcrm/dealstack/internal/enum"
	"github.com/makedealcrm/dealstack/internal/logger"
)

func newTestService() *Service {
	core, _ := observer.New(zap.InfoLevel)
	return NewService(logger.NewAppLoggerFromZap(zap.New(core)))
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected float64
	}{
		{"millions suffix", "$2.5M", 2500000},
		{"thousands suffix", "$750K", 750000},
		{"lowercase suffix", "750k", 750000},
		{"plain with separators", "$1,234.56", 1234.56},
		{"no currency symbol", "500000", 500000},
		{"empty", "", 0},
		{"garbage", "n/a", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseAmount(tt.input))
		})
	}
}

func TestCleanSubject(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"strips reply prefix", "Re: Acme Manufacturing", "Acme Manufacturing"},
		{"strips stacked prefixes", "Re: Fwd: Deal Alpha", "Deal Alpha"},
		{"keeps deal keywords", "New Opportunity - Acme", "New Opportunity - Acme"},
		{"collapses whitespace", "Acme    Manufacturing   Sale", "Acme Manufacturing Sale"},
		{"already clean", "Opportunity", "Opportunity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanSubject(tt.input))
		})
	}
}

func TestNormalizeIndustry(t *testing.T) {
	assert.Equal(t, "Technology", NormalizeIndustry("tech"))
	assert.Equal(t, "Technology", NormalizeIndustry("Software"))
	assert.Equal(t, "Manufacturing", NormalizeIndustry("mfg"))
	assert.Equal(t, "Financial Services", NormalizeIndustry("banking"))
	assert.Equal(t, "Underwater Basket Weaving", NormalizeIndustry("Underwater Basket Weaving"))
}

func TestFormatPhoneNumber(t *testing.T) {
	assert.Equal(t, "(555) 123-4567", FormatPhoneNumber("555-123-4567"))
	assert.Equal(t, "(555) 123-4567", FormatPhoneNumber("(555) 123.4567"))
	assert.Equal(t, "15551234567", FormatPhoneNumber("+1 555 123 4567"))
}

func TestExtract_DealFields(t *testing.T) {
	svc := newTestService()

	email := &dto.InboundEmail{
		MessageID:   "msg-001@example.com",
		Subject:     "New Opportunity - Acme",
		FromName:    "Jane Doe",
		FromAddress: "jane.doe@acme.com",
		BodyText: "We have a business for sale.\n" +
			"Company: Acme Manufacturing\n" +
			"Industry: mfg\n" +
			"Asking Price: $2.5M\n" +
			"Revenue: $4.2M\n" +
			"EBITDA: $750K\n",
	}

	result := svc.Extract(context.Background(), email)
	require.NotNil(t, result)

	assert.Equal(t, "New Opportunity - Acme", result.Deal.Name)
	assert.Equal(t, float64(2500000), result.Deal.Amount)
	assert.Equal(t, "Acme Manufacturing", result.Deal.AccountName)
	assert.Equal(t, "Manufacturing", result.Deal.Industry)
	assert.Equal(t, float64(4200000), result.Deal.AnnualRevenue)
	assert.Equal(t, float64(750000), result.Deal.Ebitda)
	assert.Contains(t, result.Deal.Description, "Deal created from email: New Opportunity - Acme")
	assert.Contains(t, result.Deal.Description, "We have a business for sale.")
}

func TestExtract_AskingPriceWinsOverBareAmount(t *testing.T) {
	svc := newTestService()

	email := &dto.InboundEmail{
		MessageID: "msg-002@example.com",
		Subject:   "Acme",
		BodyText:  "Closing costs around $15,000.\nAsking Price: $900K\n",
	}

	result := svc.Extract(context.Background(), email)
	assert.Equal(t, float64(900000), result.Deal.Amount)
}

func TestExtract_PrefersHTMLBody(t *testing.T) {
	svc := newTestService()

	email := &dto.InboundEmail{
		MessageID: "msg-003@example.com",
		Subject:   "Acme",
		BodyText:  "Company: WrongCo\n",
		BodyHTML:  "<html><body><p>Company: RightCo</p></body></html>",
	}

	result := svc.Extract(context.Background(), email)
	assert.Equal(t, "RightCo", result.Deal.AccountName)
}

func TestExtract_LongBodyTruncatedInDescription(t *testing.T) {
	svc := newTestService()

	body := ""
	for i := 0; i < 200; i++ {
		body += "0123456789"
	}

	email := &dto.InboundEmail{
		MessageID: "msg-004@example.com",
		Subject:   "Acme",
		BodyText:  body,
	}

	result := svc.Extract(context.Background(), email)
	assert.Contains(t, result.Deal.Description, "...")
	assert.Less(t, len(result.Deal.Description), len(body))
}

func TestExtract_Contacts(t *testing.T) {
	svc := newTestService()

	email := &dto.InboundEmail{
		MessageID:   "msg-005@example.com",
		Subject:     "Acme for sale",
		FromName:    "Jane Doe",
		FromAddress: "Jane.Doe@acme.com",
		BodyText: "Hello,\n" +
			"Seller: Bob Smith bob@acme.com 555-123-4567\n" +
			"Broker: Carol Jones carol@brokerage.com\n" +
			"\n" +
			"Best regards,\n" +
			"Mark Advisor\n" +
			"mark@advisory.com\n" +
			"(555) 999-8888\n",
	}

	result := svc.Extract(context.Background(), email)

	byEmail := make(map[string]ContactCandidate)
	for _, c := range result.Contacts {
		byEmail[c.Email] = c
	}

	sender, ok := byEmail["jane.doe@acme.com"]
	require.True(t, ok)
	assert.Equal(t, "Jane", sender.FirstName)
	assert.Equal(t, "Doe", sender.LastName)
	assert.Equal(t, enum.ContactSourceSender, sender.Source)

	seller, ok := byEmail["bob@acme.com"]
	require.True(t, ok)
	assert.Equal(t, enum.RoleSeller, seller.Role)
	assert.Equal(t, enum.ContactSourceBody, seller.Source)
	assert.Equal(t, "(555) 123-4567", seller.Phone)

	broker, ok := byEmail["carol@brokerage.com"]
	require.True(t, ok)
	assert.Equal(t, enum.RoleBroker, broker.Role)

	signature, ok := byEmail["mark@advisory.com"]
	require.True(t, ok)
	assert.Equal(t, enum.ContactSourceSignature, signature.Source)
	assert.Equal(t, "Mark", signature.FirstName)
	assert.Equal(t, "(555) 999-8888", signature.Phone)
}

func TestExtract_ContactsDeduplicatedByEmail(t *testing.T) {
	svc := newTestService()

	email := &dto.InboundEmail{
		MessageID:   "msg-006@example.com",
		Subject:     "Acme",
		FromName:    "Jane Doe",
		FromAddress: "jane@acme.com",
		BodyText:    "Reach me at jane@acme.com any time.\n",
	}

	result := svc.Extract(context.Background(), email)

	count := 0
	for _, c := range result.Contacts {
		if c.Email == "jane@acme.com" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}
