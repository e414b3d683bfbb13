package core

import "time"

const EXPORT_SERVICE = "export"

// ExportVersion is bumped whenever a store or field is added to the export,
// so downstream consumers know what completeness to expect.
const ExportVersion = "2.0"

type ExportService interface {
	// ExportAccount produces the complete, versioned dump of the account's
	// personal data across every store. A failure in any store fails the
	// whole export.
	ExportAccount(accountID uint) (*AccountExport, error)

	Service
}

type AccountExport struct {
	ExportVersion  string                  `json:"exportVersion"`
	ExportedAt     time.Time               `json:"exportedAt"`
	Account        ExportAccountSection    `json:"account"`
	Authentication ExportAuthSection       `json:"authentication"`
	ExternalLogins []ExportExternalLogin   `json:"externalLogins"`
	Profile        *ExportProfileSection   `json:"profile"`
	Preferences    ExportPreferenceSection `json:"preferences"`
}

type ExportAccountSection struct {
	PublicID    string    `json:"publicId"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	Slug        string    `json:"slug"`
	Active      bool      `json:"active"`
	Roles       []string  `json:"roles"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ExportAuthSection reports only the presence of a password and when its
// hash was last updated. The hash itself is never exported.
type ExportAuthSection struct {
	HasPassword       bool       `json:"hasPassword"`
	PasswordUpdatedAt *time.Time `json:"passwordUpdatedAt"`
}

type ExportExternalLogin struct {
	Provider string    `json:"provider"`
	Subject  string    `json:"subject"`
	LinkedAt time.Time `json:"linkedAt"`
}

type ExportProfileSection struct {
	RealName  string    `json:"realName,omitempty"`
	Bio       string    `json:"bio,omitempty"`
	AvatarURL string    `json:"avatarUrl,omitempty"`
	Location  string    `json:"location,omitempty"`
	Website   string    `json:"website,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type ExportPreferenceSection struct {
	PublicProfile bool      `json:"publicProfile"`
	ShowEmail     bool      `json:"showEmail"`
	Theme         string    `json:"theme"`
	Locale        string    `json:"locale"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}
