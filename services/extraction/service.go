package extraction

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/jaytaylor/html2text"
	"github.com/opentracing/opentracing-go"

	"github.com/makedealcrm/dealstack/dto"
	"github.com/makedealcrm/dealstack/internal/logger"
	"github.com/makedealcrm/dealstack/internal/tracing"
	"github.com/makedealcrm/dealstack/internal/utils"
)

const descriptionExcerptLength = 1000

// DealFields holds the deal attributes extracted from one email.
// Zero values mean the field was absent.
type DealFields struct {
	Name          string
	Amount        float64
	AccountName   string
	Industry      string
	AnnualRevenue float64
	Ebitda        float64
	Description   string
}

// Result is the full extraction output for one email
type Result struct {
	Deal     DealFields
	Contacts []ContactCandidate
}

var (
	askingPriceRegex = regexp.MustCompile(`(?i)(?:Asking Price|Price|Valuation):\s*\$?\s?([0-9,]+(?:\.[0-9]+)?\s?[KkMm]?)`)
	amountRegex      = regexp.MustCompile(`\$\s?([0-9]{1,3}(?:,?[0-9]{3})*(?:\.[0-9]+)?\s?[KkMm]?)`)
	companyRegex     = regexp.MustCompile(`(?i)(?:Company|Business|Firm|Corporation):\s*([^\n]+)`)
	industryRegex    = regexp.MustCompile(`(?i)(?:Industry|Sector|Market):\s*([^\n]+)`)
	revenueRegex     = regexp.MustCompile(`(?i)(?:Revenue|Sales|Income):\s*\$?\s?([0-9,]+(?:\.[0-9]+)?\s?[KkMm]?)`)
	ebitdaRegex      = regexp.MustCompile(`(?i)(?:EBITDA|Earnings):\s*\$?\s?([0-9,]+(?:\.[0-9]+)?\s?[KkMm]?)`)
)

var industryMap = map[string]string{
	"tech":          "Technology",
	"it":            "Technology",
	"software":      "Technology",
	"mfg":           "Manufacturing",
	"manufacturing": "Manufacturing",
	"retail":        "Retail",
	"ecommerce":     "Retail",
	"healthcare":    "Healthcare",
	"medical":       "Healthcare",
	"finance":       "Financial Services",
	"banking":       "Financial Services",
	"realestate":    "Real Estate",
	"property":      "Real Estate",
}

type Service struct {
	log logger.Logger
}

func NewService(log logger.Logger) *Service {
	return &Service{
		log: log,
	}
}

// Extract parses an inbound email into deal fields and contact
// candidates. It never fails on unparseable content, missing fields
// simply stay at their zero values.
func (s *Service) Extract(ctx context.Context, email *dto.InboundEmail) *Result {
	span, _ := opentracing.StartSpanFromContext(ctx, "ExtractionService.Extract")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagMessageId(span, email.MessageID)

	body := s.emailBody(email)
	content := email.Subject + "\n" + body

	result := &Result{
		Deal:     s.extractDealFields(email.Subject, body, content),
		Contacts: s.extractContacts(email, body),
	}

	span.LogKV("deal.name", result.Deal.Name, "contacts.count", len(result.Contacts))
	return result
}

// emailBody prefers the HTML part, converted to text, over plain text
func (s *Service) emailBody(email *dto.InboundEmail) string {
	if email.BodyHTML != "" {
		text, err := html2text.FromString(email.BodyHTML, html2text.Options{TextOnly: true})
		if err == nil && text != "" {
			return text
		}
		if err != nil {
			s.log.Warnf("failed to convert html body for message %s: %v", email.MessageID, err)
		}
	}
	return email.BodyText
}

func (s *Service) extractDealFields(subject, body, content string) DealFields {
	fields := DealFields{
		Name: CleanSubject(subject),
	}

	// Labeled asking price wins over the first bare dollar figure
	if matches := askingPriceRegex.FindStringSubmatch(content); matches != nil {
		fields.Amount = ParseAmount(matches[1])
	} else if matches := amountRegex.FindStringSubmatch(content); matches != nil {
		fields.Amount = ParseAmount(matches[1])
	}

	if matches := companyRegex.FindStringSubmatch(content); matches != nil {
		fields.AccountName = strings.TrimSpace(matches[1])
	}

	if matches := industryRegex.FindStringSubmatch(content); matches != nil {
		fields.Industry = NormalizeIndustry(strings.TrimSpace(matches[1]))
	}

	if matches := revenueRegex.FindStringSubmatch(content); matches != nil {
		fields.AnnualRevenue = ParseAmount(matches[1])
	}

	if matches := ebitdaRegex.FindStringSubmatch(content); matches != nil {
		fields.Ebitda = ParseAmount(matches[1])
	}

	fields.Description = buildDescription(subject, body)

	return fields
}

func buildDescription(subject, body string) string {
	excerpt := body
	suffix := ""
	if len(excerpt) > descriptionExcerptLength {
		excerpt = excerpt[:descriptionExcerptLength]
		suffix = "..."
	}
	return fmt.Sprintf("Deal created from email: %s\n\n%s%s", subject, excerpt, suffix)
}

// CleanSubject turns an email subject into a deal name by stripping
// reply and forward prefixes and collapsing whitespace
func CleanSubject(subject string) string {
	return utils.CollapseWhitespace(utils.NormalizeEmailSubject(subject))
}

// NormalizeIndustry maps free-form industry mentions onto canonical
// names, passing unknown values through untouched
func NormalizeIndustry(industry string) string {
	if normalized, ok := industryMap[strings.ToLower(strings.TrimSpace(industry))]; ok {
		return normalized
	}
	return industry
}
