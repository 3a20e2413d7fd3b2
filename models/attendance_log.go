package models

// AttendanceStatus is the per-day status of a student.
type AttendanceStatus string

const (
	StatusPresent AttendanceStatus = "Present"
	StatusAbsent  AttendanceStatus = "Absent"
)

// Valid reports whether s is one of the known statuses.
func (s AttendanceStatus) Valid() bool {
	return s == StatusPresent || s == StatusAbsent
}

// AttendanceLog is one student's status for one calendar day.
// It corresponds to the 'attendance_logs' table; (student_id, date) is unique.
type AttendanceLog struct {
	LogID     uint             `gorm:"primaryKey;autoIncrement;column:log_id" json:"log_id"`
	StudentID string           `gorm:"not null;uniqueIndex:idx_attendance_student_date,priority:1" json:"student_id"`
	Name      string           `gorm:"not null" json:"name"`
	Date      string           `gorm:"not null;index;uniqueIndex:idx_attendance_student_date,priority:2" json:"date"` // YYYY-MM-DD
	Status    AttendanceStatus `gorm:"not null" json:"status"`

	Student *Student `gorm:"foreignKey:StudentID;references:StudentID" json:"-"`
}

// TableName explicitly sets the table name for GORM.
func (AttendanceLog) TableName() string {
	return "attendance_logs"
}
