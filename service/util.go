package service

import (
	"regexp"
	"strings"

	"go.accountd.dev/accountd/db/models"
	"gorm.io/gorm"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

func validSlug(slug string) bool {
	return len(slug) > 0 && len(slug) <= 64 && slugPattern.MatchString(slug)
}

// slugify derives a URL-safe slug from free-form text.
func slugify(s string) string {
	s = strings.ToLower(s)

	var b strings.Builder
	prevDash := true
	for _, r := range s {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}

	out := strings.Trim(b.String(), "-")
	if len(out) > 64 {
		out = strings.Trim(out[:64], "-")
	}

	return out
}

// authMethodCount sums the account's usable sign-in methods, the password
// credential plus every linked provider identity. Removal of the last one is
// rejected by the callers.
func authMethodCount(tx *gorm.DB, accountID uint) (int64, error) {
	var credentials int64
	if err := tx.Model(&models.Credential{}).Where("account_id = ?", accountID).Count(&credentials).Error; err != nil {
		return 0, err
	}

	var logins int64
	if err := tx.Model(&models.ExternalLogin{}).Where("account_id = ?", accountID).Count(&logins).Error; err != nil {
		return 0, err
	}

	return credentials + logins, nil
}
