package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func init() {
	registerModel(&Account{})
}

// Account is the durable identity anchor. Authentication material, linked
// provider identities, profile data and preferences live in their own
// tables and reference it by ID.
type Account struct {
	gorm.Model
	PublicID    string `gorm:"uniqueIndex;size:36"`
	Email       string `gorm:"uniqueIndex;size:255"`
	DisplayName string `gorm:"size:255"`
	Slug        string `gorm:"uniqueIndex;size:64"`
	Active      bool   `gorm:"default:true"`
	Verified    bool   `gorm:"default:false"`
	Roles       string `gorm:"size:255"`
	LastLogin   *time.Time
	LastLoginIP string `gorm:"size:45"`

	Credential     *Credential
	ExternalLogins []ExternalLogin
	Profile        *Profile
	Preferences    *Preferences
}

func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.PublicID == "" {
		// UUIDv7 keeps public ids sortable by creation time.
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		a.PublicID = id.String()
	}

	a.Email = strings.ToLower(a.Email)

	return nil
}

// RoleList splits the stored role tags. Tags are opaque to the identity
// core; the authorization collaborator owns their meaning.
func (a *Account) RoleList() []string {
	if a.Roles == "" {
		return []string{}
	}
	return strings.Split(a.Roles, ",")
}

func (a *Account) SetRoleList(roles []string) {
	a.Roles = strings.Join(roles, ",")
}
