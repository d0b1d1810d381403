package models

const AttendancePresent = "present"

// DateLayout is the calendar-day format attendance is keyed by.
const DateLayout = "2006-01-02"

type Attendance struct {
	Base
	ClientID uint   `gorm:"not null;uniqueIndex:idx_attendance_client_date" json:"client_id"`
	TenantID uint   `gorm:"not null;index" json:"tenant_id"`
	Date     string `gorm:"not null;size:10;uniqueIndex:idx_attendance_client_date" json:"date"`
	Status   string `gorm:"not null;default:'present'" json:"status"`

	Client *Client `gorm:"foreignKey:ClientID" json:"-"`
}

func (Attendance) TableName() string {
	return "attendance"
}
