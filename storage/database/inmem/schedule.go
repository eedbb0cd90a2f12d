package inmemdb

import (
	"context"
	"sort"

	"github.com/nojinx/ssm/core/academic"
)

type scheduleRepository struct {
	timetable *timetableTable
	exams     *examTable
}

var _ academic.ScheduleRepository = (*scheduleRepository)(nil) // interface compliance check

func NewScheduleRepository(db *DB) academic.ScheduleRepository {
	return &scheduleRepository{timetable: db.timetable, exams: db.exams}
}

func (repo *scheduleRepository) CreateEntry(_ context.Context, e academic.TimetableEntry) (academic.TimetableEntry, error) {
	repo.timetable.Lock()
	defer repo.timetable.Unlock()

	for _, other := range repo.timetable.table {
		if other.Semester == e.Semester && other.Day == e.Day && other.Period == e.Period {
			return academic.TimetableEntry{}, academic.ErrSlotTaken
		}
	}
	repo.timetable.table[e.ID] = &e
	return e, nil
}

func (repo *scheduleRepository) Timetable(_ context.Context, semester int, staffID string) ([]academic.TimetableEntry, error) {
	repo.timetable.RLock()
	defer repo.timetable.RUnlock()

	entries := make([]academic.TimetableEntry, 0)
	for _, e := range repo.timetable.table {
		if semester > 0 && e.Semester != semester {
			continue
		}
		if staffID != "" && e.StaffID != staffID {
			continue
		}
		entries = append(entries, *e)
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Semester != b.Semester {
			return a.Semester < b.Semester
		}
		if da, db := academic.DayIndex(a.Day), academic.DayIndex(b.Day); da != db {
			return da < db
		}
		return a.Period < b.Period
	})
	return entries, nil
}

func (repo *scheduleRepository) DeleteEntry(_ context.Context, id string) error {
	repo.timetable.Lock()
	defer repo.timetable.Unlock()

	if _, ok := repo.timetable.table[id]; !ok {
		return academic.ErrEntryNotFound
	}
	delete(repo.timetable.table, id)
	return nil
}

func (repo *scheduleRepository) CreateExam(_ context.Context, e academic.ExamSchedule) (academic.ExamSchedule, error) {
	repo.exams.Lock()
	defer repo.exams.Unlock()

	for _, other := range repo.exams.table {
		if other.Semester == e.Semester && other.Date.Equal(e.Date.Time) && other.Session == e.Session {
			return academic.ExamSchedule{}, academic.ErrExamSlotTaken
		}
	}
	repo.exams.table[e.ID] = &e
	return e, nil
}

func (repo *scheduleRepository) Exams(_ context.Context, semester int) ([]academic.ExamSchedule, error) {
	repo.exams.RLock()
	defer repo.exams.RUnlock()

	exams := make([]academic.ExamSchedule, 0)
	for _, e := range repo.exams.table {
		if semester > 0 && e.Semester != semester {
			continue
		}
		exams = append(exams, *e)
	}
	sort.Slice(exams, func(i, j int) bool {
		a, b := exams[i], exams[j]
		if !a.Date.Equal(b.Date.Time) {
			return a.Date.Before(b.Date)
		}
		if a.Session != b.Session {
			return a.Session == academic.SessionFN
		}
		return a.Semester < b.Semester
	})
	return exams, nil
}

func (repo *scheduleRepository) DeleteExam(_ context.Context, id string) error {
	repo.exams.Lock()
	defer repo.exams.Unlock()

	if _, ok := repo.exams.table[id]; !ok {
		return academic.ErrExamNotFound
	}
	delete(repo.exams.table, id)
	return nil
}
