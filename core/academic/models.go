package academic

import (
	"github.com/nojinx/ssm/core"
)

// Attendance statuses
const (
	StatusPresent = "Present"
	StatusAbsent  = "Absent"
)

type Subject struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Semester int    `json:"semester"`
	StaffID  string `json:"staff_id"` // assigned staff, may be empty
}

// IsAssignedTo reports whether staffID teaches the subject.
func (s Subject) IsAssignedTo(staffID string) bool {
	return s.StaffID != "" && s.StaffID == staffID
}

type NewSubject struct {
	Code     string `json:"code" validate:"required,max=20,alphanum_"`
	Name     string `json:"name" validate:"required,max=100"`
	Semester int    `json:"semester" validate:"required,semester"`
	StaffID  string `json:"staff_id"`
}

func (ns *NewSubject) clean() {
	ns.Code = core.CleanString(ns.Code)
	ns.Name = core.CleanString(ns.Name)
	ns.StaffID = core.CleanString(ns.StaffID)
}

// AttendanceRecord is unique per (student, subject, date).
type AttendanceRecord struct {
	ID          string    `json:"id"`
	RollNumber  string    `json:"roll_number"`
	SubjectCode string    `json:"subject_code"`
	Date        core.Date `json:"date"`
	Status      string    `json:"status"`
}

type Marks struct {
	RollNumber    string   `json:"roll_number"`
	SubjectCode   string   `json:"subject_code"`
	InternalMarks *float64 `json:"internal_marks"`
}

// AttendanceSheet is the attendance of a subject's class on a given day.
type AttendanceSheet struct {
	Date    core.Date         `json:"date"`
	Records []AttendanceEntry `json:"records" validate:"required,min=1,dive"`
}

type AttendanceEntry struct {
	RollNumber string `json:"roll_number" validate:"required"`
	Status     string `json:"status" validate:"required,oneof=Present Absent"`
}

type MarksSheet struct {
	Marks []MarksEntry `json:"marks" validate:"required,min=1,dive"`
}

type MarksEntry struct {
	RollNumber    string   `json:"roll_number" validate:"required"`
	InternalMarks *float64 `json:"internal_marks" validate:"omitempty,min=0,max=100"`
}

// RiskStudent is a student showing at least one risk factor in a subject.
type RiskStudent struct {
	Name                 string      `json:"name"`
	RollNumber           string      `json:"roll_number"`
	CurrentSemester      int         `json:"current_semester"`
	AttendancePercentage float64     `json:"attendance_percentage"`
	InternalMarks        interface{} `json:"internal_marks"` // number or "-"
	RiskFactors          []string    `json:"risk_factors"`
}
