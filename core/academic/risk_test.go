package academic

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nojinx/ssm/core"
	"github.com/nojinx/ssm/core/student"
)

func TestComputeRisk(t *testing.T) {
	students := []student.Student{
		{RollNumber: "21CS003", Name: "C", CurrentSemester: 3},
		{RollNumber: "21CS001", Name: "A", CurrentSemester: 3},
		{RollNumber: "21CS002", Name: "B", CurrentSemester: 3},
		{RollNumber: "21CS004", Name: "D", CurrentSemester: 3},
	}
	mark := func(f float64) *float64 { return &f }
	att := func(roll string, day int, status string) AttendanceRecord {
		return AttendanceRecord{RollNumber: roll, SubjectCode: "CS301", Date: core.NewDate(2024, time.March, day), Status: status}
	}

	t.Run("no records", func(t *testing.T) {
		assert.Empty(t, ComputeRisk(students, nil, nil))
	})

	t.Run("low internal only", func(t *testing.T) {
		got := ComputeRisk(students, nil, []Marks{{RollNumber: "21CS002", InternalMarks: mark(39.5)}, {RollNumber: "21CS001", InternalMarks: mark(40)}})
		assert.Equal(t, []RiskStudent{
			{Name: "B", RollNumber: "21CS002", CurrentSemester: 3, AttendancePercentage: 0, InternalMarks: 39.5, RiskFactors: []string{"Low Internal (39.5)"}},
		}, got)
	})

	t.Run("attendance and internals", func(t *testing.T) {
		attendance := []AttendanceRecord{
			att("21CS001", 1, StatusPresent), att("21CS001", 2, StatusPresent), att("21CS001", 3, StatusAbsent),
			att("21CS002", 1, StatusPresent), att("21CS002", 2, StatusPresent), att("21CS002", 3, StatusPresent),
			att("21CS003", 1, StatusAbsent),
			// 21CS004 was never marked
		}
		marks := []Marks{
			{RollNumber: "21CS001", InternalMarks: mark(12)},
			{RollNumber: "21CS002", InternalMarks: mark(90)},
			{RollNumber: "21CS003"},
		}

		got := ComputeRisk(students, attendance, marks)
		assert.Equal(t, []RiskStudent{
			{Name: "A", RollNumber: "21CS001", CurrentSemester: 3, AttendancePercentage: 66.7, InternalMarks: 12.0, RiskFactors: []string{"Low Attendance (66.7%)", "Low Internal (12)"}},
			{Name: "C", RollNumber: "21CS003", CurrentSemester: 3, AttendancePercentage: 0, InternalMarks: "-", RiskFactors: []string{"Low Attendance (0.0%)"}},
			{Name: "D", RollNumber: "21CS004", CurrentSemester: 3, AttendancePercentage: 0, InternalMarks: "-", RiskFactors: []string{"Low Attendance (0.0%)"}},
		}, got)
	})

	t.Run("halves round to even", func(t *testing.T) {
		// 80 distinct dates: 1/80 = 1.25%, 5/80 = 6.25%
		first := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
		var attendance []AttendanceRecord
		for i := 0; i < 80; i++ {
			day := core.DateOf(first.AddDate(0, 0, i))
			statusA, statusB := StatusAbsent, StatusAbsent
			if i < 1 {
				statusA = StatusPresent
			}
			if i < 5 {
				statusB = StatusPresent
			}
			attendance = append(attendance,
				AttendanceRecord{RollNumber: "21CS001", SubjectCode: "CS301", Date: day, Status: statusA},
				AttendanceRecord{RollNumber: "21CS002", SubjectCode: "CS301", Date: day, Status: statusB},
			)
		}

		got := ComputeRisk(students[1:3], attendance, nil)
		if assert.Len(t, got, 2) {
			assert.Equal(t, 1.2, got[0].AttendancePercentage)
			assert.Equal(t, []string{"Low Attendance (1.2%)"}, got[0].RiskFactors)
			assert.Equal(t, 6.2, got[1].AttendancePercentage)
			assert.Equal(t, []string{"Low Attendance (6.2%)"}, got[1].RiskFactors)
		}
	})

	t.Run("75% is not at risk", func(t *testing.T) {
		attendance := []AttendanceRecord{
			att("21CS001", 1, StatusPresent), att("21CS001", 2, StatusPresent), att("21CS001", 3, StatusPresent), att("21CS001", 4, StatusAbsent),
		}
		got := ComputeRisk(students[1:2], attendance, nil)
		assert.Empty(t, got)
	})
}

func TestSubject_IsAssignedTo(t *testing.T) {
	assert.True(t, Subject{StaffID: "S001"}.IsAssignedTo("S001"))
	assert.False(t, Subject{StaffID: "S001"}.IsAssignedTo("S002"))
	assert.False(t, Subject{}.IsAssignedTo(""))
}

func TestRound1(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{in: 66.66666666666667, want: 66.7},
		{in: 1.25, want: 1.2},
		{in: 6.25, want: 6.2},
		{in: 0.35, want: 0.3}, // 0.35 is stored slightly below the half
		{in: 87.5, want: 87.5},
		{in: 0.05, want: 0.1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, round1(tt.in), "round1(%v)", tt.in)
	}
}
