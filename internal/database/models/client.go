package models

// Client is a gym member. Email is optional but unique within a tenant and
// is what a Google login is matched against.
type Client struct {
	Base
	TenantID uint    `gorm:"not null;uniqueIndex:idx_clients_tenant_email" json:"tenant_id"`
	Name     string  `gorm:"not null" json:"name"`
	Email    *string `gorm:"uniqueIndex:idx_clients_tenant_email" json:"email,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	IsActive bool    `gorm:"default:true" json:"is_active"`

	// Relationships
	Tenant     *Tenant      `gorm:"foreignKey:TenantID" json:"-"`
	Attendance []Attendance `gorm:"foreignKey:ClientID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Client) TableName() string {
	return "clients"
}
