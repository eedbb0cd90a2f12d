package student

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nojinx/ssm/core"
)

func TestExpandRange(t *testing.T) {
	tests := []struct {
		name    string
		rng     GenerationRange
		want    []string
		wantErr string
	}{
		{name: "missing start", rng: GenerationRange{EndSuffix: "10"}, wantErr: errRangeRequired},
		{name: "missing end", rng: GenerationRange{StartRoll: "21CS001", EndSuffix: " "}, wantErr: errRangeRequired},
		{name: "suffix too long", rng: GenerationRange{StartRoll: "12", EndSuffix: "123"}, wantErr: errSuffixTooLong},
		{name: "non numeric start", rng: GenerationRange{StartRoll: "21CSA1", EndSuffix: "05"}, wantErr: errSuffixNumeric},
		{name: "non numeric end", rng: GenerationRange{StartRoll: "21CS01", EndSuffix: "0x"}, wantErr: errSuffixNumeric},
		{name: "reversed", rng: GenerationRange{StartRoll: "21CS10", EndSuffix: "09"}, wantErr: "End Suffix (9) cannot be less than the start sequence (10)."},
		{name: "too many", rng: GenerationRange{StartRoll: "0000", EndSuffix: "9999"}, wantErr: "Cannot generate 10000 students at once (Limit: 500)."},
		{name: "single", rng: GenerationRange{StartRoll: "21CS007", EndSuffix: "7"}, want: []string{"21CS007"}},
		{name: "zero padded", rng: GenerationRange{StartRoll: " 21CS098 ", EndSuffix: "101"}, want: []string{"21CS098", "21CS099", "21CS100", "21CS101"}},
		{name: "whole roll", rng: GenerationRange{StartRoll: "08", EndSuffix: "10"}, want: []string{"08", "09", "10"}},
		{name: "limit", rng: GenerationRange{StartRoll: "R001", EndSuffix: "500"}},
		{name: "multibyte prefix", rng: GenerationRange{StartRoll: "ÉTU01", EndSuffix: "03"}, want: []string{"ÉTU01", "ÉTU02", "ÉTU03"}},
		{name: "multibyte suffix", rng: GenerationRange{StartRoll: "21CS01", EndSuffix: "0é"}, wantErr: errSuffixNumeric},
		{
			name: "long suffix",
			rng:  GenerationRange{StartRoll: "R" + strings.Repeat("0", 21) + "1", EndSuffix: strings.Repeat("0", 21) + "3"},
			want: []string{"R" + strings.Repeat("0", 21) + "1", "R" + strings.Repeat("0", 21) + "2", "R" + strings.Repeat("0", 21) + "3"},
		},
		{
			name:    "long suffix too many",
			rng:     GenerationRange{StartRoll: "R" + strings.Repeat("0", 25), EndSuffix: strings.Repeat("9", 25)},
			wantErr: "Cannot generate 1" + strings.Repeat("0", 25) + " students at once (Limit: 500).",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandRange(tt.rng)
			if tt.wantErr != "" {
				if assert.Error(t, err) {
					assert.True(t, core.IsValidationError(err))
					assert.Equal(t, tt.wantErr, err.Error())
				}
				return
			}
			assert.NoError(t, err)
			if tt.want != nil {
				assert.Equal(t, tt.want, got)
			}
		})
	}

	rolls, err := ExpandRange(GenerationRange{StartRoll: "R001", EndSuffix: "500"})
	assert.NoError(t, err)
	assert.Len(t, rolls, MaxGenerationCount)
}

func TestTempPassword(t *testing.T) {
	orig := randIntFunc
	defer func() { randIntFunc = orig }()

	for n, want := range map[int]string{0: "Pass1000", 42: "Pass1042", 8999: "Pass9999"} {
		n := n
		randIntFunc = func(int) int { return n }
		assert.Equal(t, want, TempPassword())
	}
}

func TestCleanRolls(t *testing.T) {
	assert.Equal(t, []string{"A1", "B2", "A1"}, cleanRolls([]string{" A1", "", "B2", "A1 ", "  "}))
	assert.Empty(t, cleanRolls(nil))
}

func TestStudent_SemesterDisplay(t *testing.T) {
	tests := []struct {
		semester   int
		want       interface{}
		canPromote bool
	}{
		{semester: 1, want: 1, canPromote: true},
		{semester: 8, want: 8, canPromote: true},
		{semester: 9, want: CourseCompleted},
	}
	for _, tt := range tests {
		s := Student{CurrentSemester: tt.semester}
		assert.Equal(t, tt.want, s.SemesterDisplay())
		assert.Equal(t, tt.canPromote, s.CanBePromoted())
	}
}

func TestUpdateStudent_Apply(t *testing.T) {
	name, email := "Hero", "hero@test.edu"
	orig := Student{RollNumber: "21CS001", CurrentSemester: 3}

	us := UpdateStudent{Name: &name}
	assert.False(t, us.Apply(orig).IsProfileComplete)

	us.Email = &email
	updated := us.Apply(orig)
	assert.True(t, updated.IsProfileComplete)
	assert.Equal(t, 3, updated.CurrentSemester)
	assert.False(t, us.HasStaffFields())
}
