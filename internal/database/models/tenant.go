package models

// Tenant is a gym addressed by its subdomain slug. Tenants are never
// deleted, only deactivated.
type Tenant struct {
	Base
	Name     string `gorm:"not null" json:"name"`
	Slug     string `gorm:"uniqueIndex;not null;size:50" json:"slug"`
	OwnerID  uint   `gorm:"index;not null" json:"owner_id"`
	IsActive bool   `gorm:"default:true" json:"is_active"`

	// Relationships
	Owner   *User    `gorm:"foreignKey:OwnerID" json:"-"`
	Clients []Client `gorm:"foreignKey:TenantID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Tenant) TableName() string {
	return "gyms"
}
