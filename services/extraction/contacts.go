package extraction

import (
	"regexp"
	"strings"

	"github.com/makedealcrm/dealstack/dto"
	"github.com/makedealcrm/dealstack/internal/enum"
)

// ContactCandidate is a person mentioned in an email, before it is
// resolved against existing contact records
type ContactCandidate struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Role      enum.ContactRole
	Source    enum.ContactSource
}

var (
	emailRegex = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	phoneRegex = regexp.MustCompile(`(\+?1[-.\s]?)?\(?([0-9]{3})\)?[-.\s]?([0-9]{3})[-.\s]?([0-9]{4})`)

	signOffRegex  = regexp.MustCompile(`(?im)^(?:Best regards|Sincerely|Thanks|Regards|Best),?\s*$`)
	nonDigitRegex = regexp.MustCompile(`[^0-9]`)
)

// rolePatterns are checked in order, first match per role wins
var rolePatterns = []struct {
	role    enum.ContactRole
	pattern *regexp.Regexp
}{
	{enum.RoleSeller, regexp.MustCompile(`(?i)(?:Seller|Owner|Proprietor):\s*([^\n]+)`)},
	{enum.RoleBroker, regexp.MustCompile(`(?i)(?:Broker|Agent|Representative):\s*([^\n]+)`)},
	{enum.RoleAttorney, regexp.MustCompile(`(?i)(?:Attorney|Lawyer|Counsel):\s*([^\n]+)`)},
	{enum.RoleAccountant, regexp.MustCompile(`(?i)(?:Accountant|CPA|CFO):\s*([^\n]+)`)},
	{enum.RoleBuyer, regexp.MustCompile(`(?i)(?:Buyer|Purchaser|Investor):\s*([^\n]+)`)},
}

func (s *Service) extractContacts(email *dto.InboundEmail, body string) []ContactCandidate {
	var contacts []ContactCandidate

	if email.FromAddress != "" {
		sender := ContactCandidate{
			Email:  strings.ToLower(email.FromAddress),
			Source: enum.ContactSourceSender,
		}
		sender.FirstName, sender.LastName = splitName(email.FromName)
		contacts = append(contacts, sender)
	}

	for _, rp := range rolePatterns {
		matches := rp.pattern.FindStringSubmatch(body)
		if matches == nil {
			continue
		}
		if candidate, ok := parseContactLine(matches[1]); ok {
			candidate.Role = rp.role
			candidate.Source = enum.ContactSourceBody
			contacts = append(contacts, candidate)
		}
	}

	if candidate, ok := parseSignature(body); ok {
		candidate.Source = enum.ContactSourceSignature
		contacts = append(contacts, candidate)
	}

	// Sweep remaining addresses mentioned anywhere in the body
	for _, address := range emailRegex.FindAllString(body, -1) {
		address = strings.ToLower(address)
		known := false
		for _, existing := range contacts {
			if existing.Email == address {
				known = true
				break
			}
		}
		if !known {
			contacts = append(contacts, ContactCandidate{
				Email:  address,
				Source: enum.ContactSourceBodyScan,
			})
		}
	}

	return deduplicateContacts(contacts)
}

// parseContactLine pulls name, email and phone out of one line of text
func parseContactLine(text string) (ContactCandidate, bool) {
	var candidate ContactCandidate

	if match := emailRegex.FindString(text); match != "" {
		candidate.Email = strings.ToLower(match)
		text = strings.Replace(text, match, "", 1)
	}

	if match := phoneRegex.FindString(text); match != "" {
		candidate.Phone = FormatPhoneNumber(match)
		text = strings.Replace(text, match, "", 1)
	}

	nameText := strings.Trim(strings.TrimSpace(text), ",;-()")
	if nameText != "" {
		candidate.FirstName, candidate.LastName = splitName(nameText)
	}

	if candidate.Email == "" && candidate.Phone == "" && candidate.FirstName == "" {
		return ContactCandidate{}, false
	}
	return candidate, true
}

// parseSignature reads the lines following a sign-off like
// "Best regards," treating the first plain line as the name
func parseSignature(body string) (ContactCandidate, bool) {
	loc := signOffRegex.FindStringIndex(body)
	if loc == nil {
		return ContactCandidate{}, false
	}

	var candidate ContactCandidate
	var name string

	lines := strings.Split(body[loc[1]:], "\n")
	seen := 0
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		seen++
		if seen > 4 {
			break
		}

		if match := emailRegex.FindString(line); match != "" {
			candidate.Email = strings.ToLower(match)
			continue
		}
		if match := phoneRegex.FindString(line); match != "" {
			candidate.Phone = FormatPhoneNumber(match)
			continue
		}
		if name == "" {
			name = line
		}
	}

	if name != "" {
		candidate.FirstName, candidate.LastName = splitName(name)
	}

	if candidate.Email == "" && candidate.Phone == "" && candidate.FirstName == "" {
		return ContactCandidate{}, false
	}
	return candidate, true
}

// FormatPhoneNumber renders 10-digit numbers as (XXX) XXX-XXXX and
// leaves anything else as its bare digits
func FormatPhoneNumber(phone string) string {
	digits := nonDigitRegex.ReplaceAllString(phone, "")
	if len(digits) == 10 {
		return "(" + digits[:3] + ") " + digits[3:6] + "-" + digits[6:]
	}
	return digits
}

func splitName(fullName string) (string, string) {
	parts := strings.Fields(strings.TrimSpace(fullName))
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

// deduplicateContacts keeps the first candidate per email address,
// falling back to the first per full name when no email is present
func deduplicateContacts(contacts []ContactCandidate) []ContactCandidate {
	var unique []ContactCandidate
	seen := make(map[string]bool)

	for _, contact := range contacts {
		var key string
		switch {
		case contact.Email != "":
			key = contact.Email
		case contact.FirstName != "" && contact.LastName != "":
			key = contact.FirstName + "|" + contact.LastName
		default:
			unique = append(unique, contact)
			continue
		}
		if !seen[key] {
			seen[key] = true
			unique = append(unique, contact)
		}
	}

	return unique
}
