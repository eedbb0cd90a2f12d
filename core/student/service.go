package student

import (
	"context"
	"math/big"
	"math/rand"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/nojinx/ssm/core"
)

var (
	// errors
	ErrNotFound        = errors.New("student not found")
	ErrInvalidPassword = errors.New("old password is incorrect")

	// generation messages
	errRangeRequired   = "Start Roll Number and End Suffix are required."
	errSuffixTooLong   = "End Suffix cannot be longer than Start Roll Number."
	errSuffixNumeric   = "Roll number suffix must be numeric."
	errNothingSelected = "No students selected for generation."
	errRollRequired    = "Please enter a Roll Number."

	// ExistingPasswordDisplay replaces the temp password of students that already existed.
	ExistingPasswordDisplay = "Existing Password"

	randIntFunc = rand.Intn // mockable
)

type (
	Repository interface {
		Get(ctx context.Context, roll string) (Student, error)
		// Existing returns the subset of rolls that belong to a Student.
		Existing(ctx context.Context, rolls ...string) (map[string]bool, error)
		// Query applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of roll number, name or email.
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Student, error)
		Create(ctx context.Context, s Student) (Student, error)
		Update(ctx context.Context, s Student) (Student, error)
		SetLastLogin(ctx context.Context, roll string, t time.Time) error
		// Promote increments the semester of the listed students still within the course. Returns the count.
		Promote(ctx context.Context, rolls []string, now time.Time) (int, error)
		// InTx runs fn inside a transaction: if fn returns an error, all its changes are discarded.
		InTx(ctx context.Context, fn func(repo Repository) error) error
	}

	ServiceInterface interface {
		Get(ctx context.Context, roll string) (Student, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Student, error)
		Update(ctx context.Context, orig Student, us UpdateStudent) (Student, error)
		ChangePassword(ctx context.Context, s Student, cp ChangePassword) error
		SetPassword(ctx context.Context, roll, pwd string) error
		SetLastLogin(ctx context.Context, roll string) error
		Promote(ctx context.Context, rolls []string) (int, error)
		PreviewGeneration(ctx context.Context, rng GenerationRange) ([]PreviewEntry, error)
		Generate(ctx context.Context, rolls []string) ([]Credential, error)
		GenerateSingle(ctx context.Context, roll string) (Credential, error)
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, validate *validator.Validate) *Service {
	return &Service{repo: repo, validate: validate}
}

func (svc *Service) Get(ctx context.Context, roll string) (Student, error) {
	return svc.repo.Get(ctx, core.CleanString(roll))
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Student, error) {
	return svc.repo.Query(ctx, filter, ordering)
}

func (svc *Service) Update(ctx context.Context, orig Student, us UpdateStudent) (Student, error) {
	us.clean()
	if err := svc.validate.Struct(us); err != nil {
		return Student{}, err
	}
	s := us.Apply(orig)
	s.UpdatedAt = time.Now().UTC()
	return svc.repo.Update(ctx, s)
}

func (svc *Service) ChangePassword(ctx context.Context, s Student, cp ChangePassword) error {
	if err := svc.validate.Struct(cp); err != nil {
		return err
	}
	if err := s.CheckPassword(cp.OldPassword); err != nil {
		return core.NewValidationError(ErrInvalidPassword, core.FieldError{Field: "old_password", Error: ErrInvalidPassword.Error()})
	}
	if tag := core.ValidatePassword(cp.Password, s.RollNumber, s.Name); tag != "" {
		return core.PasswordError(tag)
	}
	if err := s.SetPassword(cp.Password); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	s.IsPasswordChanged = true
	s.UpdatedAt = time.Now().UTC()
	_, err := svc.repo.Update(ctx, s)
	return err
}

// SetPassword sets roll's password without applying the password policy (operators only).
func (svc *Service) SetPassword(ctx context.Context, roll, pwd string) error {
	s, err := svc.Get(ctx, roll)
	if err != nil {
		return err
	}
	if err := s.SetPassword(pwd); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	s.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.Update(ctx, s)
	return err
}

func (svc *Service) SetLastLogin(ctx context.Context, roll string) error {
	return svc.repo.SetLastLogin(ctx, roll, time.Now().UTC())
}

func (svc *Service) Promote(ctx context.Context, rolls []string) (int, error) {
	cleaned := cleanRolls(rolls)
	if len(cleaned) == 0 {
		return 0, nil
	}
	return svc.repo.Promote(ctx, cleaned, time.Now().UTC())
}

// PreviewGeneration expands a roll number range into the rolls it covers:
// the last len(EndSuffix) characters of StartRoll are the first sequence number, EndSuffix the last one.
func (svc *Service) PreviewGeneration(ctx context.Context, rng GenerationRange) ([]PreviewEntry, error) {
	rolls, err := ExpandRange(rng)
	if err != nil {
		return nil, err
	}
	existing, err := svc.repo.Existing(ctx, rolls...)
	if err != nil {
		return nil, errors.Wrap(err, "checking existing students")
	}

	entries := make([]PreviewEntry, 0, len(rolls))
	for _, roll := range rolls {
		entries = append(entries, PreviewEntry{Roll: roll, Exists: existing[roll]})
	}
	return entries, nil
}

// ExpandRange validates rng and returns the roll numbers it covers, in order.
// Lengths are counted in characters and the suffixes may hold any number of digits.
func ExpandRange(rng GenerationRange) ([]string, error) {
	start := []rune(strings.TrimSpace(rng.StartRoll))
	endSuffix := strings.TrimSpace(rng.EndSuffix)
	if len(start) == 0 || endSuffix == "" {
		return nil, core.NewValidationError(errors.New(errRangeRequired))
	}

	n := utf8.RuneCountInString(endSuffix)
	if n > len(start) {
		return nil, core.NewValidationError(errors.New(errSuffixTooLong))
	}
	prefix, startSuffix := string(start[:len(start)-n]), string(start[len(start)-n:])

	startSeq, ok := parseSeq(startSuffix)
	if !ok {
		return nil, core.NewValidationError(errors.New(errSuffixNumeric))
	}
	endSeq, ok := parseSeq(endSuffix)
	if !ok {
		return nil, core.NewValidationError(errors.New(errSuffixNumeric))
	}
	if endSeq.Cmp(startSeq) < 0 {
		return nil, core.NewValidationError(
			errors.Errorf("End Suffix (%d) cannot be less than the start sequence (%d).", endSeq, startSeq))
	}
	count := new(big.Int).Sub(endSeq, startSeq)
	count.Add(count, big.NewInt(1))
	if count.Cmp(big.NewInt(MaxGenerationCount)) > 0 {
		return nil, core.NewValidationError(
			errors.Errorf("Cannot generate %d students at once (Limit: %d).", count, MaxGenerationCount))
	}

	rolls := make([]string, 0, count.Int64())
	one := big.NewInt(1)
	for seq := new(big.Int).Set(startSeq); seq.Cmp(endSeq) <= 0; seq.Add(seq, one) {
		digits := seq.String()
		if pad := n - len(digits); pad > 0 {
			digits = strings.Repeat("0", pad) + digits
		}
		rolls = append(rolls, prefix+digits)
	}
	return rolls, nil
}

// parseSeq parses a run of ASCII digits of any length.
func parseSeq(s string) (*big.Int, bool) {
	if s == "" {
		return nil, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return nil, false
		}
	}
	return new(big.Int).SetString(s, 10)
}

// Generate gets or creates a Student for every roll, all or nothing.
// Created students get a temporary password; existing ones are left untouched.
func (svc *Service) Generate(ctx context.Context, rolls []string) ([]Credential, error) {
	rolls = cleanRolls(rolls)
	if len(rolls) == 0 {
		return nil, core.NewValidationError(errors.New(errNothingSelected))
	}

	creds := make([]Credential, 0, len(rolls))
	err := svc.repo.InTx(ctx, func(repo Repository) error {
		for _, roll := range rolls {
			s, created, err := getOrCreate(ctx, repo, roll)
			if err != nil {
				return err
			}
			cred := Credential{RollNumber: roll, TempPassword: ExistingPasswordDisplay, Created: created}
			if created {
				cred.TempPassword = TempPassword()
				if err := s.SetPassword(cred.TempPassword); err != nil {
					return errors.Wrap(err, "hashing password")
				}
				if _, err := repo.Update(ctx, s); err != nil {
					return errors.Wrapf(err, "saving student %s", roll)
				}
			}
			creds = append(creds, cred)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return creds, nil
}

// GenerateSingle gets or creates a Student and always resets its password to a new temporary one.
func (svc *Service) GenerateSingle(ctx context.Context, roll string) (Credential, error) {
	roll = strings.TrimSpace(roll)
	if roll == "" {
		return Credential{}, core.NewValidationError(errors.New(errRollRequired))
	}

	var cred Credential
	err := svc.repo.InTx(ctx, func(repo Repository) error {
		s, created, err := getOrCreate(ctx, repo, roll)
		if err != nil {
			return err
		}
		cred = Credential{RollNumber: roll, TempPassword: TempPassword(), Created: created}
		if err := s.SetPassword(cred.TempPassword); err != nil {
			return errors.Wrap(err, "hashing password")
		}
		s.UpdatedAt = time.Now().UTC()
		if _, err := repo.Update(ctx, s); err != nil {
			return errors.Wrapf(err, "saving student %s", roll)
		}
		return nil
	})
	if err != nil {
		return Credential{}, err
	}
	return cred, nil
}

// TempPassword returns "Pass" followed by a random number in [1000, 9999].
func TempPassword() string {
	return "Pass" + strconv.Itoa(1000+randIntFunc(9000))
}

func getOrCreate(ctx context.Context, repo Repository, roll string) (Student, bool, error) {
	s, err := repo.Get(ctx, roll)
	switch errors.Cause(err) {
	case nil:
		return s, false, nil
	case ErrNotFound:
		now := time.Now().UTC()
		s, err = repo.Create(ctx, Student{
			RollNumber:      roll,
			CurrentSemester: core.MinSemester,
			ProgramLevel:    ProgramUG,
			UGEntryType:     EntryRegular,
			IsActive:        true,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
		if err != nil {
			return Student{}, false, errors.Wrapf(err, "creating student %s", roll)
		}
		return s, true, nil
	default:
		return Student{}, false, errors.Wrapf(err, "finding student %s", roll)
	}
}

// cleanRolls trims rolls and drops the blank ones. Repeated rolls are kept: each one gets its own credential.
func cleanRolls(rolls []string) []string {
	cleaned := make([]string, 0, len(rolls))
	for _, roll := range rolls {
		if roll = strings.TrimSpace(roll); roll != "" {
			cleaned = append(cleaned, roll)
		}
	}
	return cleaned
}
