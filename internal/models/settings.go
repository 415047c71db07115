package models

// Settings keys in the local settings collection.
const (
	SettingPasswordConfig = "password_config"
	SettingShareConfig    = "share_config"
)

// PasswordConfig holds the argon2 hashes of the view and edit passwords.
// Absence of the record means first run.
type PasswordConfig struct {
	ViewHash  []byte `json:"viewHash"`
	EditHash  []byte `json:"editHash"`
	Salt      []byte `json:"salt"`
	UpdatedAt int64  `json:"updatedAt"`
}

// ShareMode selects which memories a viewer sees.
type ShareMode string

const (
	ShareUnlimited ShareMode = "unlimited"
	ShareRange     ShareMode = "range"
)

// ShareConfig is the singleton share setting. StartDate and EndDate are
// inclusive and only meaningful for ShareRange.
type ShareConfig struct {
	Mode      ShareMode `json:"mode"`
	StartDate string    `json:"startDate,omitempty"`
	EndDate   string    `json:"endDate,omitempty"`
	UpdatedAt int64     `json:"updatedAt"`
}
