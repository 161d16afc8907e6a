package messenger

import (
	"strings"

	"github.com/aura-webinar/gtw-tools/internal/models"
)

// Placeholder is replaced by the attendee's checkout link.
const Placeholder = "{{checkoutLink}}"

// affiliateWords mark a registration question as carrying the affiliate id.
var affiliateWords = []string{"affiliate", "referral"}

// ValidateTemplate requires the checkout link placeholder.
func ValidateTemplate(template string) error {
	if strings.TrimSpace(template) == "" {
		return &ValidationError{Field: "messageTemplate", Message: "Message template is required"}
	}
	if !strings.Contains(template, Placeholder) {
		return &ValidationError{Field: "messageTemplate", Message: "Message template must contain " + Placeholder}
	}
	return nil
}

// ResolveAffiliateID returns the answer to the first question mentioning an affiliate or
// referral, or def when there is no such question or it was left blank.
func ResolveAffiliateID(reg models.Registrant, def string) string {
	for _, q := range reg.Answers() {
		if !q.Mentions(affiliateWords...) {
			continue
		}
		if q.Answer != "" {
			return q.Answer
		}
		break
	}
	return def
}

// CheckoutLink builds base?aid=<affiliateID>&email=<lower-cased, percent-encoded email>.
// The affiliate id is inserted as-is.
func CheckoutLink(base, affiliateID, email string) string {
	return base + "?aid=" + affiliateID + "&email=" + encodeComponent(strings.ToLower(email))
}

// Personalize replaces the first placeholder in template with link.
func Personalize(template, link string) (string, error) {
	if err := ValidateTemplate(template); err != nil {
		return "", err
	}
	return strings.Replace(template, Placeholder, link, 1), nil
}

const upperHex = "0123456789ABCDEF"

// encodeComponent percent-encodes every UTF-8 byte except A-Z a-z 0-9 and -_.!~*'(),
// matching JavaScript's encodeURIComponent.
func encodeComponent(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if componentSafe(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperHex[c>>4])
		b.WriteByte(upperHex[c&0x0f])
	}
	return b.String()
}

func componentSafe(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}
