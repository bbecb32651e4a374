package inbox

import (
	"regexp"
	"strings"

	"campaign-inbox-go/internal/mail"
)

// Phrases that only appear in machine-generated non-delivery reports.
// Deliberately specific so ordinary replies quoting an error never match.
var bounceIndicators = []string{
	"permanent fatal errors",
	"final-recipient: rfc822",
	"diagnostic-code: smtp",
	"reporting-mta:",
	"action: failed",
	"status: 5.",
	"delivery failure",
	"delivery status notification",
	"undeliverable",
	"mailbox unavailable",
	"user unknown",
	"address not found",
	"recipient address rejected",
	"message rejected",
	"returned mail",
	"mail delivery subsystem",
	"hop count exceeded",
	"mail loop",
}

// System sender prefixes that mark automated mail-system notifications.
var bounceSenderPrefixes = []string{
	"mailer-daemon@",
	"postmaster@",
	"bounce@",
	"double-bounce@",
}

// IsBounce reports whether a message is a delivery-failure notification
// rather than a human reply.
func IsBounce(from, subject, body string) bool {
	text := strings.ToLower(body + " " + subject)
	for _, indicator := range bounceIndicators {
		if strings.Contains(text, indicator) {
			return true
		}
	}

	// DSN report bodies carry the status/action/diagnostic field trio.
	if strings.Contains(text, "status:") &&
		strings.Contains(text, "action:") &&
		strings.Contains(text, "diagnostic-code:") {
		return true
	}

	sender := strings.ToLower(strings.TrimSpace(from))
	for _, prefix := range bounceSenderPrefixes {
		if strings.HasPrefix(sender, prefix) {
			return true
		}
	}
	return false
}

// Recipient patterns in rough order of reliability. Structured DSN fields
// first, then prose phrasings that echo the rejected address.
var bounceRecipientPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Final-Recipient:\s*RFC822;\s*([\w.-]+@[\w.-]+\.\w+)`),
	regexp.MustCompile(`(?i)X-Actual-Recipient:\s*rfc822;\s*([\w.-]+@[\w.-]+\.\w+)`),
	regexp.MustCompile(`(?i)Original-Recipient:\s*rfc822;\s*([\w.-]+@[\w.-]+\.\w+)`),
	regexp.MustCompile(`(?is)permanent fatal errors.*?<([\w.-]+@[\w.-]+\.\w+)>`),
	regexp.MustCompile(`(?i)user unknown.*?([\w.-]+@[\w.-]+\.\w+)`),
	regexp.MustCompile(`(?i)mailbox unavailable.*?([\w.-]+@[\w.-]+\.\w+)`),
	regexp.MustCompile(`(?i)address not found.*?([\w.-]+@[\w.-]+\.\w+)`),
	regexp.MustCompile(`<([\w.-]+@[\w.-]+\.\w+)>`),
}

// ExtractBounceRecipient recovers the address the original outbound
// message was meant for. Addresses on owned domains are skipped since
// failure bodies also echo the platform's own sender. Returns "" when
// nothing usable is found.
func ExtractBounceRecipient(body string, ownedDomains map[string]struct{}) string {
	for _, pattern := range bounceRecipientPatterns {
		for _, m := range pattern.FindAllStringSubmatch(body, -1) {
			if addr := notOwned(strings.ToLower(m[1]), ownedDomains); addr != "" {
				return addr
			}
		}
	}

	// Last resort for prose bounces with no DSN fields or angle brackets:
	// the first bare address that is not one of ours.
	for _, addr := range mail.ExtractAddresses(body) {
		if addr = notOwned(addr, ownedDomains); addr != "" {
			return addr
		}
	}
	return ""
}

func notOwned(addr string, ownedDomains map[string]struct{}) string {
	if at := strings.LastIndex(addr, "@"); at >= 0 {
		if _, owned := ownedDomains[addr[at+1:]]; owned {
			return ""
		}
	}
	return addr
}
