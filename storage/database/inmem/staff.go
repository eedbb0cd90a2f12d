package inmemdb

import (
	"context"
	"time"

	"github.com/nojinx/ssm/core"
	"github.com/nojinx/ssm/core/staff"
)

type staffRepository struct {
	db *staffTable
}

var _ staff.Repository = (*staffRepository)(nil) // interface compliance check

func NewStaffRepository(db *DB) staff.Repository {
	return &staffRepository{db: db.staff}
}

func (repo *staffRepository) query() []staff.Staff {
	members := make([]staff.Staff, 0, len(repo.db.table))
	for _, s := range repo.db.table {
		members = append(members, *s)
	}
	return members
}

func (repo *staffRepository) CheckUniqueness(_ context.Context, staffID, email string, excluded ...staff.Staff) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	isExcluded := func(s staff.Staff) bool {
		for _, ex := range excluded {
			if ex.ID == s.ID {
				return true
			}
		}
		return false
	}
	for _, s := range repo.query() {
		if isExcluded(s) {
			continue
		}
		if staffID != "" && s.ID == staffID {
			return staff.ErrStaffIDExists
		}
		if email != "" && s.Email == email {
			return staff.ErrEmailExists
		}
	}
	return nil
}

func (repo *staffRepository) Create(_ context.Context, s staff.Staff) (staff.Staff, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[s.ID]; ok {
		return staff.Staff{}, staff.ErrStaffIDExists
	}
	repo.db.table[s.ID] = &s
	return s, nil
}

func (repo *staffRepository) Get(_ context.Context, id string) (staff.Staff, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if s, ok := repo.db.table[id]; ok {
		return *s, nil
	}
	return staff.Staff{}, staff.ErrNotFound
}

func (repo *staffRepository) Query(_ context.Context, filter *staff.QueryFilter, ordering []core.DBOrdering) ([]staff.Staff, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	members := make([]staff.Staff, 0)
	for _, s := range repo.query() {
		if filter != nil {
			if filter.Search != "" && !containsFold(filter.Search, s.ID, s.Name, s.Email) {
				continue
			}
			if len(filter.Roles) > 0 && !hasRole(filter.Roles, s.Role) {
				continue
			}
			if filter.Department != "" && !containsFold(filter.Department, s.Department) {
				continue
			}
			if filter.IsActive != nil && s.IsActive != *filter.IsActive {
				continue
			}
		}
		members = append(members, s)
	}

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "staff_id", Ascending: true}}
	}
	orderBy(len(members), func(i, j int) { members[i], members[j] = members[j], members[i] }, ordering,
		func(field string, i, j int) int {
			a, b := members[i], members[j]
			switch field {
			case "staff_id":
				return cmpStrings(a.ID, b.ID)
			case "name":
				return cmpStrings(a.Name, b.Name)
			case "email":
				return cmpStrings(a.Email, b.Email)
			case "department":
				return cmpStrings(a.Department, b.Department)
			case "role":
				return cmpStrings(a.Role, b.Role)
			case "created_at":
				return cmpTimes(a.CreatedAt, b.CreatedAt)
			}
			return 0
		})
	return members, nil
}

func (repo *staffRepository) FindByRole(_ context.Context, role string, semester *int) ([]staff.Staff, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	members := make([]staff.Staff, 0)
	for _, s := range repo.query() {
		if s.Role != role {
			continue
		}
		if semester != nil && (s.AssignedSemester == nil || *s.AssignedSemester != *semester) {
			continue
		}
		members = append(members, s)
	}
	return members, nil
}

func (repo *staffRepository) Update(_ context.Context, s staff.Staff) (staff.Staff, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[s.ID]
	if !ok {
		return staff.Staff{}, staff.ErrNotFound
	}
	s.CreatedAt = orig.CreatedAt
	s.LastLogin = orig.LastLogin
	if s.PasswordHash == nil {
		s.PasswordHash = orig.PasswordHash
	}
	repo.db.table[s.ID] = &s
	return s, nil
}

func (repo *staffRepository) SetLastLogin(_ context.Context, id string, t time.Time) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	s, ok := repo.db.table[id]
	if !ok {
		return staff.ErrNotFound
	}
	s.LastLogin = t
	return nil
}

func (repo *staffRepository) Delete(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return staff.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}

func hasRole(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
