package academic

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/nojinx/ssm/core/student"
)

const (
	// MinAttendancePercentage below which a student is at risk.
	MinAttendancePercentage = 75.0
	// MinInternalMarks below which a student is at risk.
	MinInternalMarks = 40.0
)

// ComputeRisk returns the students at risk in a subject, ordered by roll number.
// students are the subject's semester students; attendance and marks are the subject's records.
// Attendance is measured against the number of distinct dates attendance was taken for the subject.
func ComputeRisk(students []student.Student, attendance []AttendanceRecord, marks []Marks) []RiskStudent {
	dates := make(map[string]bool)
	present := make(map[string]int)
	for _, rec := range attendance {
		dates[rec.Date.String()] = true
		if rec.Status == StatusPresent {
			present[rec.RollNumber]++
		}
	}
	totalDates := len(dates)

	internals := make(map[string]*float64, len(marks))
	for _, m := range marks {
		internals[m.RollNumber] = m.InternalMarks
	}

	sorted := make([]student.Student, len(students))
	copy(sorted, students)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].RollNumber < sorted[j].RollNumber })

	atRisk := make([]RiskStudent, 0)
	for _, s := range sorted {
		var pct float64
		if totalDates > 0 {
			pct = float64(present[s.RollNumber]) / float64(totalDates) * 100
		}
		internal := internals[s.RollNumber]

		var factors []string
		if totalDates > 0 && pct < MinAttendancePercentage {
			factors = append(factors, fmt.Sprintf("Low Attendance (%.1f%%)", round1(pct)))
		}
		if internal != nil && *internal < MinInternalMarks {
			factors = append(factors, fmt.Sprintf("Low Internal (%s)", formatMarks(*internal)))
		}
		if len(factors) == 0 {
			continue
		}

		rs := RiskStudent{
			Name:                 s.Name,
			RollNumber:           s.RollNumber,
			CurrentSemester:      s.CurrentSemester,
			AttendancePercentage: round1(pct),
			InternalMarks:        "-",
			RiskFactors:          factors,
		}
		if internal != nil {
			rs.InternalMarks = *internal
		}
		atRisk = append(atRisk, rs)
	}
	return atRisk
}

// round1 rounds f to one decimal, exact halves going to the even digit (1.25 -> 1.2).
func round1(f float64) float64 {
	r, _ := strconv.ParseFloat(strconv.FormatFloat(f, 'f', 1, 64), 64)
	return r
}

func formatMarks(m float64) string {
	return strconv.FormatFloat(m, 'f', -1, 64)
}
