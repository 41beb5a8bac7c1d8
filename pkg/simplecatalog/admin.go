package simplecatalog

import "strings"

// IsAdmin reports whether email is on the admin allow-list. Comparison is
// case-insensitive and ignores surrounding whitespace.
func IsAdmin(email string, allowList []string) bool {
	email = normalizeEmail(email)
	if email == "" {
		return false
	}
	for _, admin := range allowList {
		if normalizeEmail(admin) == email {
			return true
		}
	}
	return false
}

// ParseAdminEmails merges comma-separated allow-list values, such as the
// ADMIN_EMAILS list and the single legacy ADMIN_EMAIL, dropping blanks and duplicates.
func ParseAdminEmails(values ...string) []string {
	seen := make(map[string]struct{})
	var emails []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			email := normalizeEmail(part)
			if email == "" {
				continue
			}
			if _, ok := seen[email]; ok {
				continue
			}
			seen[email] = struct{}{}
			emails = append(emails, email)
		}
	}
	return emails
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
