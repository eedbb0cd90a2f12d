package inmemdb

import (
	"context"
	"sort"

	"github.com/nojinx/ssm/core/academic"
)

type academicRepository struct {
	subject    *subjectTable
	attendance *attendanceTable
	marks      *marksTable
}

var _ academic.Repository = (*academicRepository)(nil) // interface compliance check

func NewAcademicRepository(db *DB) academic.Repository {
	return &academicRepository{subject: db.subject, attendance: db.attendance, marks: db.marks}
}

func (repo *academicRepository) CreateSubject(_ context.Context, s academic.Subject) (academic.Subject, error) {
	repo.subject.Lock()
	defer repo.subject.Unlock()

	if _, ok := repo.subject.table[s.Code]; ok {
		return academic.Subject{}, academic.ErrSubjectExists
	}
	repo.subject.table[s.Code] = &s
	return s, nil
}

func (repo *academicRepository) GetSubject(_ context.Context, code string) (academic.Subject, error) {
	repo.subject.RLock()
	defer repo.subject.RUnlock()

	if s, ok := repo.subject.table[code]; ok {
		return *s, nil
	}
	return academic.Subject{}, academic.ErrSubjectNotFound
}

func (repo *academicRepository) QuerySubjects(_ context.Context, semester int, staffID string) ([]academic.Subject, error) {
	repo.subject.RLock()
	defer repo.subject.RUnlock()

	subjects := make([]academic.Subject, 0)
	for _, s := range repo.subject.table {
		if semester > 0 && s.Semester != semester {
			continue
		}
		if staffID != "" && s.StaffID != staffID {
			continue
		}
		subjects = append(subjects, *s)
	}
	sort.Slice(subjects, func(i, j int) bool {
		if subjects[i].Semester != subjects[j].Semester {
			return subjects[i].Semester < subjects[j].Semester
		}
		return subjects[i].Code < subjects[j].Code
	})
	return subjects, nil
}

func attendanceKey(rec academic.AttendanceRecord) string {
	return rec.RollNumber + "|" + rec.SubjectCode + "|" + rec.Date.String()
}

func (repo *academicRepository) SaveAttendance(_ context.Context, records []academic.AttendanceRecord) error {
	repo.attendance.Lock()
	defer repo.attendance.Unlock()

	for _, rec := range records {
		rec := rec
		if orig, ok := repo.attendance.table[attendanceKey(rec)]; ok {
			rec.ID = orig.ID // overwrite in place
		}
		repo.attendance.table[attendanceKey(rec)] = &rec
	}
	return nil
}

func (repo *academicRepository) SubjectAttendance(_ context.Context, code string) ([]academic.AttendanceRecord, error) {
	repo.attendance.RLock()
	defer repo.attendance.RUnlock()

	records := make([]academic.AttendanceRecord, 0)
	for _, rec := range repo.attendance.table {
		if rec.SubjectCode == code {
			records = append(records, *rec)
		}
	}
	sort.Slice(records, func(i, j int) bool { return attendanceKey(records[i]) < attendanceKey(records[j]) })
	return records, nil
}

func (repo *academicRepository) SaveMarks(_ context.Context, marks []academic.Marks) error {
	repo.marks.Lock()
	defer repo.marks.Unlock()

	for _, m := range marks {
		m := m
		repo.marks.table[m.RollNumber+"|"+m.SubjectCode] = &m
	}
	return nil
}

func (repo *academicRepository) SubjectMarks(_ context.Context, code string) ([]academic.Marks, error) {
	repo.marks.RLock()
	defer repo.marks.RUnlock()

	marks := make([]academic.Marks, 0)
	for _, m := range repo.marks.table {
		if m.SubjectCode == code {
			marks = append(marks, *m)
		}
	}
	sort.Slice(marks, func(i, j int) bool { return marks[i].RollNumber < marks[j].RollNumber })
	return marks, nil
}
