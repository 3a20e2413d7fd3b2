package models

// Student is a roster entry. It corresponds to the 'students' table.
type Student struct {
	StudentID string `gorm:"primaryKey;column:student_id" json:"student_id"`
	Name      string `gorm:"not null" json:"name"`
	CreatedAt int64  `gorm:"not null" json:"created_at"` // Unix timestamp
	UpdatedAt int64  `gorm:"not null" json:"updated_at"` // Unix timestamp
}

// TableName explicitly sets the table name for GORM.
func (Student) TableName() string {
	return "students"
}

// Label is the composite "Name_ID" key used by gallery entries.
func (s Student) Label() string {
	return s.Name + "_" + s.StudentID
}
