package core

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name  string
		pwd   string
		attrs []string
		want  string
	}{
		{name: "too short", pwd: "abc12", want: PwdMinLenTag},
		{name: "6 runes", pwd: "éèàùçô"},
		{name: "same as ID", pwd: "21CS001", attrs: []string{"21cs001"}, want: PwdAttrSimTag},
		{name: "close to email", pwd: "jane@test.ed", attrs: []string{"S001", "jane@test.edu"}, want: PwdAttrSimTag},
		{name: "empty attr ignored", pwd: "Gr33n-Tr3e", attrs: []string{"", "  "}},
		{name: "ok", pwd: "Gr33n-Tr3e-House", attrs: []string{"S001", "Jane Doe", "jane@test.edu"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidatePassword(tt.pwd, tt.attrs...))
		})
	}
}

func TestCustomValidators(t *testing.T) {
	validate, translator := NewValidate()

	type form struct {
		Code     string `json:"code" validate:"required,alphanum_"`
		Name     string `json:"name" validate:"omitempty,personname"`
		Semester int    `json:"semester" validate:"omitempty,semester"`
	}

	tests := []struct {
		name    string
		form    form
		wantErr map[string]string
	}{
		{name: "valid", form: form{Code: "CS-301_a", Name: "Dr. A. Kumar", Semester: 8}},
		{name: "required", form: form{}, wantErr: map[string]string{"code": "this field is required"}},
		{name: "invalid code", form: form{Code: "CS 301"}, wantErr: map[string]string{"code": alphaNumUnderText}},
		{name: "invalid name", form: form{Code: "CS301", Name: "R2D2"}, wantErr: map[string]string{"name": "name must contain only letters, dots and spaces"}},
		{name: "invalid semester", form: form{Code: "CS301", Semester: 9}, wantErr: map[string]string{"semester": "semester must be between 1 and 8"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Struct(tt.form)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.IsType(t, validator.ValidationErrors{}, err)
			got := make(map[string]string)
			for _, fe := range err.(validator.ValidationErrors) {
				got[fe.Field()] = fe.Translate(translator)
			}
			assert.Equal(t, tt.wantErr, got)
		})
	}
}

func TestParseOrdering(t *testing.T) {
	allowed := []string{"name", "created_at"}
	tests := []struct {
		raw  string
		want []DBOrdering
	}{
		{raw: ""},
		{raw: "name", want: []DBOrdering{{Field: "name", Ascending: true}}},
		{raw: "-created_at, name", want: []DBOrdering{{Field: "created_at"}, {Field: "name", Ascending: true}}},
		{raw: "password,-,name", want: []DBOrdering{{Field: "name", Ascending: true}}},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseOrdering(tt.raw, allowed...))
		})
	}
	assert.Equal(t, "created_at DESC", DBOrdering{Field: "created_at"}.String())
}

func TestDate(t *testing.T) {
	d := NewDate(2024, time.March, 1)
	data, err := json.Marshal(struct {
		D Date `json:"d"`
		Z Date `json:"z"`
	}{D: d})
	require.NoError(t, err)
	assert.JSONEq(t, `{"d":"2024-03-01","z":null}`, string(data))

	var parsed struct {
		D Date `json:"d"`
		Z Date `json:"z"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"d":"2024-03-01","z":null}`), &parsed))
	assert.Equal(t, d, parsed.D)
	assert.True(t, parsed.Z.IsZero())

	assert.Error(t, json.Unmarshal([]byte(`{"d":"01/03/2024"}`), &parsed))

	var param Date
	require.NoError(t, param.UnmarshalParam("2024-03-01"))
	assert.Equal(t, d, param)

	assert.Equal(t, d, DateOf(time.Date(2024, time.March, 1, 23, 59, 0, 0, time.UTC)))
	assert.True(t, d.Before(NewDate(2024, time.March, 2)))
	assert.False(t, d.After(d))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 5))
	assert.Equal(t, "héllo...", Truncate("héllo world", 5))
}
