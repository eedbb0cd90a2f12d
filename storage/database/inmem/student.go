package inmemdb

import (
	"context"
	"time"

	"github.com/nojinx/ssm/core"
	"github.com/nojinx/ssm/core/student"
)

type studentRepository struct {
	db *studentTable

	// pending holds the rows written inside a transaction; nil outside of one.
	pending map[string]*student.Student
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *DB) student.Repository {
	return &studentRepository{db: db.student}
}

// rows merges the committed rows with the pending ones. Callers must hold the table lock.
func (repo *studentRepository) rows() map[string]*student.Student {
	if repo.pending == nil {
		return repo.db.table
	}
	merged := make(map[string]*student.Student, len(repo.db.table)+len(repo.pending))
	for roll, s := range repo.db.table {
		merged[roll] = s
	}
	for roll, s := range repo.pending {
		merged[roll] = s
	}
	return merged
}

// save writes s to the pending rows inside a transaction, to the table otherwise.
func (repo *studentRepository) save(s student.Student) {
	if repo.pending != nil {
		repo.pending[s.RollNumber] = &s
		return
	}
	repo.db.table[s.RollNumber] = &s
}

func (repo *studentRepository) Get(_ context.Context, roll string) (student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if s, ok := repo.rows()[roll]; ok {
		return *s, nil
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) Existing(_ context.Context, rolls ...string) (map[string]bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	rows := repo.rows()
	existing := make(map[string]bool, len(rolls))
	for _, roll := range rolls {
		if _, ok := rows[roll]; ok {
			existing[roll] = true
		}
	}
	return existing, nil
}

func (repo *studentRepository) Query(_ context.Context, filter *student.QueryFilter, ordering []core.DBOrdering) ([]student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	students := make([]student.Student, 0)
	for _, s := range repo.rows() {
		if filter != nil {
			if filter.Search != "" && !containsFold(filter.Search, s.RollNumber, s.Name, s.Email) {
				continue
			}
			if filter.Semester > 0 && s.CurrentSemester != filter.Semester {
				continue
			}
			if filter.ProgramLevel != "" && s.ProgramLevel != filter.ProgramLevel {
				continue
			}
			if filter.UGEntryType != "" && s.UGEntryType != filter.UGEntryType {
				continue
			}
		}
		students = append(students, *s)
	}

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "roll_number", Ascending: true}}
	}
	orderBy(len(students), func(i, j int) { students[i], students[j] = students[j], students[i] }, ordering,
		func(field string, i, j int) int {
			a, b := students[i], students[j]
			switch field {
			case "roll_number":
				return cmpStrings(a.RollNumber, b.RollNumber)
			case "student_name":
				return cmpStrings(a.Name, b.Name)
			case "current_semester":
				return cmpInts(a.CurrentSemester, b.CurrentSemester)
			case "created_at":
				return cmpTimes(a.CreatedAt, b.CreatedAt)
			}
			return 0
		})
	return students, nil
}

func (repo *studentRepository) Create(_ context.Context, s student.Student) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.rows()[s.RollNumber]; ok {
		return student.Student{}, errDuplicateKey
	}
	repo.save(s)
	return s, nil
}

func (repo *studentRepository) Update(_ context.Context, s student.Student) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.rows()[s.RollNumber]
	if !ok {
		return student.Student{}, student.ErrNotFound
	}
	s.CreatedAt = orig.CreatedAt
	s.LastLogin = orig.LastLogin
	if s.PasswordHash == nil {
		s.PasswordHash = orig.PasswordHash
	}
	repo.save(s)
	return s, nil
}

func (repo *studentRepository) SetLastLogin(_ context.Context, roll string, t time.Time) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	s, ok := repo.rows()[roll]
	if !ok {
		return student.ErrNotFound
	}
	updated := *s
	updated.LastLogin = t
	repo.save(updated)
	return nil
}

func (repo *studentRepository) Promote(_ context.Context, rolls []string, now time.Time) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	rows := repo.rows()
	var count int
	for _, roll := range rolls {
		s, ok := rows[roll]
		if !ok || !s.CanBePromoted() {
			continue
		}
		updated := *s
		updated.CurrentSemester++
		updated.UpdatedAt = now
		repo.save(updated)
		count++
	}
	return count, nil
}

// InTx serializes transactions; writes made by fn are only applied to the table if it succeeds.
func (repo *studentRepository) InTx(ctx context.Context, fn func(repo student.Repository) error) error {
	if repo.pending != nil { // already in a transaction
		return fn(repo)
	}

	repo.db.txMutex.Lock()
	defer repo.db.txMutex.Unlock()

	tx := &studentRepository{db: repo.db, pending: make(map[string]*student.Student)}
	if err := fn(tx); err != nil {
		return err
	}

	repo.db.Lock()
	defer repo.db.Unlock()
	for roll, s := range tx.pending {
		repo.db.table[roll] = s
	}
	return nil
}
