package inmemdb

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nojinx/ssm/core"
	"github.com/nojinx/ssm/core/academic"
	"github.com/nojinx/ssm/core/audit"
	"github.com/nojinx/ssm/core/news"
	"github.com/nojinx/ssm/core/staff"
	"github.com/nojinx/ssm/core/student"
)

var errDuplicateKey = errors.New("duplicate key")

type (
	// DB is an in-memory database, used when `database.engine` is "memory" and in tests.
	DB struct {
		staff      *staffTable
		student    *studentTable
		subject    *subjectTable
		attendance *attendanceTable
		marks      *marksTable
		timetable  *timetableTable
		exams      *examTable
		leaves     *leaveTable
		news       *newsTable
		audit      *auditTable
		blacklist  *blacklistTable
	}

	staffTable struct {
		sync.RWMutex
		table map[string]*staff.Staff
	}

	studentTable struct {
		sync.RWMutex
		txMutex sync.Mutex
		table   map[string]*student.Student
	}

	subjectTable struct {
		sync.RWMutex
		table map[string]*academic.Subject
	}

	attendanceTable struct {
		sync.RWMutex
		table map[string]*academic.AttendanceRecord // key: roll|subject|date
	}

	marksTable struct {
		sync.RWMutex
		table map[string]*academic.Marks // key: roll|subject
	}

	timetableTable struct {
		sync.RWMutex
		table map[string]*academic.TimetableEntry
	}

	examTable struct {
		sync.RWMutex
		table map[string]*academic.ExamSchedule
	}

	leaveTable struct {
		sync.RWMutex
		table map[string]*staff.LeaveRequest
	}

	newsTable struct {
		sync.RWMutex
		table map[string]*news.News
	}

	auditTable struct {
		sync.RWMutex
		rows []audit.Entry
	}

	blacklistTable struct {
		sync.RWMutex
		table map[string]time.Time
	}
)

func Open() *DB {
	return &DB{
		staff:      &staffTable{table: make(map[string]*staff.Staff)},
		student:    &studentTable{table: make(map[string]*student.Student)},
		subject:    &subjectTable{table: make(map[string]*academic.Subject)},
		attendance: &attendanceTable{table: make(map[string]*academic.AttendanceRecord)},
		marks:      &marksTable{table: make(map[string]*academic.Marks)},
		timetable:  &timetableTable{table: make(map[string]*academic.TimetableEntry)},
		exams:      &examTable{table: make(map[string]*academic.ExamSchedule)},
		leaves:     &leaveTable{table: make(map[string]*staff.LeaveRequest)},
		news:       &newsTable{table: make(map[string]*news.News)},
		audit:      &auditTable{},
		blacklist:  &blacklistTable{table: make(map[string]time.Time)},
	}
}

// containsFold reports whether any of vals contains substr, ignoring case.
func containsFold(substr string, vals ...string) bool {
	substr = strings.ToLower(substr)
	for _, v := range vals {
		if strings.Contains(strings.ToLower(v), substr) {
			return true
		}
	}
	return false
}

// orderBy sorts items using the comparison of the first ordering field that differs.
// cmp returns -1, 0 or 1 comparing items i and j on field.
func orderBy(n int, swap func(i, j int), ordering []core.DBOrdering, cmp func(field string, i, j int) int) {
	if len(ordering) == 0 {
		return
	}
	sort.Stable(sorter{n: n, swap: swap, less: func(i, j int) bool {
		for _, ord := range ordering {
			c := cmp(ord.Field, i, j)
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	}})
}

type sorter struct {
	n    int
	swap func(i, j int)
	less func(i, j int) bool
}

func (s sorter) Len() int           { return s.n }
func (s sorter) Swap(i, j int)      { s.swap(i, j) }
func (s sorter) Less(i, j int) bool { return s.less(i, j) }

func cmpStrings(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

func cmpInts(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpTimes(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}
