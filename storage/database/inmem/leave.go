package inmemdb

import (
	"context"
	"sort"

	"github.com/nojinx/ssm/core/staff"
)

type leaveRepository struct {
	leaves *leaveTable
}

var _ staff.LeaveRepository = (*leaveRepository)(nil) // interface compliance check

func NewLeaveRepository(db *DB) staff.LeaveRepository {
	return &leaveRepository{leaves: db.leaves}
}

func (repo *leaveRepository) CreateLeave(_ context.Context, lr staff.LeaveRequest) (staff.LeaveRequest, error) {
	repo.leaves.Lock()
	defer repo.leaves.Unlock()

	if _, ok := repo.leaves.table[lr.ID]; ok {
		return staff.LeaveRequest{}, errDuplicateKey
	}
	repo.leaves.table[lr.ID] = &lr
	return lr, nil
}

func (repo *leaveRepository) GetLeave(_ context.Context, id string) (staff.LeaveRequest, error) {
	repo.leaves.RLock()
	defer repo.leaves.RUnlock()

	if lr, ok := repo.leaves.table[id]; ok {
		return *lr, nil
	}
	return staff.LeaveRequest{}, staff.ErrLeaveNotFound
}

func (repo *leaveRepository) QueryLeaves(_ context.Context, filter staff.LeaveFilter) ([]staff.LeaveRequest, error) {
	repo.leaves.RLock()
	defer repo.leaves.RUnlock()

	leaves := make([]staff.LeaveRequest, 0)
	for _, lr := range repo.leaves.table {
		if filter.StaffID != "" && lr.StaffID != filter.StaffID {
			continue
		}
		if filter.Status != "" && lr.Status != filter.Status {
			continue
		}
		leaves = append(leaves, *lr)
	}
	sort.Slice(leaves, func(i, j int) bool {
		if !leaves[i].CreatedAt.Equal(leaves[j].CreatedAt) {
			return leaves[i].CreatedAt.After(leaves[j].CreatedAt)
		}
		return leaves[i].ID < leaves[j].ID
	})
	return leaves, nil
}

func (repo *leaveRepository) UpdateLeave(_ context.Context, lr staff.LeaveRequest) (staff.LeaveRequest, error) {
	repo.leaves.Lock()
	defer repo.leaves.Unlock()

	if _, ok := repo.leaves.table[lr.ID]; !ok {
		return staff.LeaveRequest{}, staff.ErrLeaveNotFound
	}
	repo.leaves.table[lr.ID] = &lr
	return lr, nil
}

func (repo *leaveRepository) DeleteLeave(_ context.Context, id string) error {
	repo.leaves.Lock()
	defer repo.leaves.Unlock()

	if _, ok := repo.leaves.table[id]; !ok {
		return staff.ErrLeaveNotFound
	}
	delete(repo.leaves.table, id)
	return nil
}
