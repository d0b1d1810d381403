package models

// User is a platform account (gym owner) authenticated at the root domain.
type User struct {
	Base
	Email     string  `gorm:"uniqueIndex;not null" json:"email"`
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Role      string  `gorm:"default:'owner'" json:"role"`
	IsActive  bool    `gorm:"default:false" json:"is_active"`

	// Relationships
	Tenants []Tenant `gorm:"foreignKey:OwnerID" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// ProfileComplete reports whether the owner finished onboarding.
func (u *User) ProfileComplete() bool {
	return nonEmpty(u.FirstName) && nonEmpty(u.LastName) && nonEmpty(u.Phone) && u.IsActive
}

// DisplayName joins first and last name, falling back to the email.
func (u *User) DisplayName() string {
	if !nonEmpty(u.FirstName) {
		return u.Email
	}
	if !nonEmpty(u.LastName) {
		return *u.FirstName
	}
	return *u.FirstName + " " + *u.LastName
}

func nonEmpty(s *string) bool {
	return s != nil && *s != ""
}
