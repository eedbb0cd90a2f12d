package student_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nojinx/ssm/core"
	"github.com/nojinx/ssm/core/student"
	inmemdb "github.com/nojinx/ssm/storage/database/inmem"
	"github.com/nojinx/ssm/tests"
)

var errDiskFull = errors.New("disk full")

// failingRepo fails to create the student failOn, inside transactions too.
type failingRepo struct {
	student.Repository
	failOn string
}

func (repo failingRepo) Create(ctx context.Context, s student.Student) (student.Student, error) {
	if s.RollNumber == repo.failOn {
		return student.Student{}, errDiskFull
	}
	return repo.Repository.Create(ctx, s)
}

func (repo failingRepo) InTx(ctx context.Context, fn func(repo student.Repository) error) error {
	return repo.Repository.InTx(ctx, func(tx student.Repository) error {
		return fn(failingRepo{Repository: tx, failOn: repo.failOn})
	})
}

func newService(repo student.Repository) *student.Service {
	validate, _ := core.NewValidate()
	return student.NewService(repo, validate)
}

func TestService_Generate(t *testing.T) {
	ctx := context.Background()

	t.Run("nothing selected", func(t *testing.T) {
		svc := newService(inmemdb.NewStudentRepository(inmemdb.Open()))
		_, err := svc.Generate(ctx, []string{" ", ""})
		require.Error(t, err)
		assert.True(t, core.IsValidationError(err))
		assert.Equal(t, "No students selected for generation.", err.Error())
	})

	t.Run("existing and repeated rolls", func(t *testing.T) {
		repo := inmemdb.NewStudentRepository(inmemdb.Open())
		testutil.CreateStudent(t, repo, "21CS001", "Hero", "hero@test.edu", "student-pwd", 3)
		svc := newService(repo)

		creds, err := svc.Generate(ctx, []string{"21CS001", " 21CS002 ", "21CS002"})
		require.NoError(t, err)
		require.Len(t, creds, 3)
		assert.Equal(t, student.Credential{RollNumber: "21CS001", TempPassword: student.ExistingPasswordDisplay}, creds[0])
		assert.True(t, creds[1].Created)
		assert.Regexp(t, `^Pass[1-9]\d{3}$`, creds[1].TempPassword)
		assert.Equal(t, student.Credential{RollNumber: "21CS002", TempPassword: student.ExistingPasswordDisplay}, creds[2])

		created, err := repo.Get(ctx, "21CS002")
		require.NoError(t, err)
		assert.NoError(t, created.CheckPassword(creds[1].TempPassword))
		assert.False(t, created.IsProfileComplete)
		assert.False(t, created.IsPasswordChanged)

		existing, err := repo.Get(ctx, "21CS001")
		require.NoError(t, err)
		assert.NoError(t, existing.CheckPassword("student-pwd"), "existing students keep their password")
	})

	t.Run("all or nothing", func(t *testing.T) {
		repo := inmemdb.NewStudentRepository(inmemdb.Open())
		svc := newService(failingRepo{Repository: repo, failOn: "21CS003"})

		_, err := svc.Generate(ctx, []string{"21CS001", "21CS002", "21CS003", "21CS004"})
		assert.Equal(t, errDiskFull, errors.Cause(err))

		existing, err := repo.Existing(ctx, "21CS001", "21CS002", "21CS003", "21CS004")
		require.NoError(t, err)
		assert.Empty(t, existing)
	})
}

func TestService_GenerateSingle(t *testing.T) {
	ctx := context.Background()
	repo := inmemdb.NewStudentRepository(inmemdb.Open())
	testutil.CreateStudent(t, repo, "21CS001", "Hero", "hero@test.edu", "student-pwd", 3)
	svc := newService(repo)

	_, err := svc.GenerateSingle(ctx, "  ")
	assert.True(t, core.IsValidationError(err))

	cred, err := svc.GenerateSingle(ctx, " 21CS001 ")
	require.NoError(t, err)
	assert.False(t, cred.Created)
	assert.Equal(t, "21CS001", cred.RollNumber)

	reset, err := repo.Get(ctx, "21CS001")
	require.NoError(t, err)
	assert.NoError(t, reset.CheckPassword(cred.TempPassword), "existing students get a new password")
}
