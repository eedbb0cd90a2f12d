package news

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/nojinx/ssm/core"
)

// Targets
const (
	TargetAll      = "all"
	TargetStaff    = "staff"
	TargetStudents = "students"
)

var (
	newsTargetTag  = "newstarget"
	newsTargetText = "target must be one of all, staff or students"

	endBeforeStartTag  = "endbeforestart"
	endBeforeStartText = "end date cannot be before start date"

	indicatorRangeTag  = "indicatorrange"
	indicatorRangeText = "NEW indicator end cannot be before its start"

	indicatorPastEndTag  = "indicatorpastend"
	indicatorPastEndText = "NEW indicator end cannot be after the news end date"
)

type News struct {
	ID                string    `json:"id"`
	Content           string    `json:"content"`
	Link              string    `json:"link"`
	DocumentURL       string    `json:"document_url"`
	Target            string    `json:"target"`
	Date              time.Time `json:"date"` // UTC
	StartDate         core.Date `json:"start_date"`
	EndDate           core.Date `json:"end_date"`
	IsActive          bool      `json:"is_active"`
	NewIndicatorStart core.Date `json:"new_indicator_start"`
	NewIndicatorEnd   core.Date `json:"new_indicator_end"`
}

// IsVisible reports whether n is shown on day.
func (n News) IsVisible(day core.Date) bool {
	if !n.IsActive {
		return false
	}
	if !n.StartDate.IsZero() && n.StartDate.After(day) {
		return false
	}
	if !n.EndDate.IsZero() && n.EndDate.Before(day) {
		return false
	}
	return true
}

// ShouldShowNewIndicator reports whether day lies within the NEW indicator range.
func (n News) ShouldShowNewIndicator(day core.Date) bool {
	if n.NewIndicatorStart.IsZero() || n.NewIndicatorEnd.IsZero() {
		return false
	}
	return !day.Before(n.NewIndicatorStart) && !day.After(n.NewIndicatorEnd)
}

// IsExpired reports whether n is still active past its end date.
func (n News) IsExpired(day core.Date) bool {
	return n.IsActive && !n.EndDate.IsZero() && n.EndDate.Before(day)
}

// ContentShort is used when listing news on the command line.
func (n News) ContentShort() string {
	return core.Truncate(n.Content, 50)
}

// VisibleNews is a News as listed to its audience.
type VisibleNews struct {
	News
	ShowNewIndicator bool `json:"show_new_indicator"`
}

// NewsInput contains information needed to create or replace a News.
type NewsInput struct {
	Content           string    `json:"content" validate:"required"`
	Link              string    `json:"link" validate:"omitempty,url"`
	DocumentURL       string    `json:"document_url" validate:"omitempty,url"`
	Target            string    `json:"target" validate:"omitempty,newstarget"`
	StartDate         core.Date `json:"start_date"`
	EndDate           core.Date `json:"end_date"`
	IsActive          *bool     `json:"is_active"`
	NewIndicatorStart core.Date `json:"new_indicator_start"`
	NewIndicatorEnd   core.Date `json:"new_indicator_end"`
}

func (ni *NewsInput) clean() {
	ni.Content = core.CleanString(ni.Content)
	ni.Link = core.CleanString(ni.Link)
	ni.DocumentURL = core.CleanString(ni.DocumentURL)
	ni.Target = core.CleanString(ni.Target, true /* lower */)
	if ni.Target == "" {
		ni.Target = TargetAll
	}
}

// Validate cleans and validates ni.
func (ni *NewsInput) Validate(validate *validator.Validate) error {
	ni.clean()
	return validate.Struct(ni)
}

// apply copies ni onto n.
func (ni NewsInput) apply(n News) News {
	n.Content = ni.Content
	n.Link = ni.Link
	n.DocumentURL = ni.DocumentURL
	n.Target = ni.Target
	n.StartDate = ni.StartDate
	n.EndDate = ni.EndDate
	n.NewIndicatorStart = ni.NewIndicatorStart
	n.NewIndicatorEnd = ni.NewIndicatorEnd
	if ni.IsActive != nil {
		n.IsActive = *ni.IsActive
	}
	return n
}

type QueryFilter struct {
	Target   string `query:"target"`
	IsActive *bool  `query:"is_active"`
}

// InitValidators registers the news validations on validate.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(newsTargetTag, newsTargetValidation)
	core.RegisterCustomTranslation(validate, translator, newsTargetTag, newsTargetText)

	validate.RegisterStructValidation(newsStructValidation, NewsInput{})
	core.RegisterCustomTranslation(validate, translator, endBeforeStartTag, endBeforeStartText)
	core.RegisterCustomTranslation(validate, translator, indicatorRangeTag, indicatorRangeText)
	core.RegisterCustomTranslation(validate, translator, indicatorPastEndTag, indicatorPastEndText)
}

func newsTargetValidation(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case TargetAll, TargetStaff, TargetStudents:
		return true
	}
	return false
}

// newsStructValidation checks the date ranges of a NewsInput.
func newsStructValidation(sl validator.StructLevel) {
	ni, ok := sl.Current().Interface().(NewsInput)
	if !ok {
		return
	}
	if !ni.StartDate.IsZero() && !ni.EndDate.IsZero() && ni.EndDate.Before(ni.StartDate) {
		sl.ReportError(ni.EndDate, "end_date", "EndDate", endBeforeStartTag, "")
	}
	if !ni.NewIndicatorStart.IsZero() && !ni.NewIndicatorEnd.IsZero() && ni.NewIndicatorEnd.Before(ni.NewIndicatorStart) {
		sl.ReportError(ni.NewIndicatorEnd, "new_indicator_end", "NewIndicatorEnd", indicatorRangeTag, "")
	}
	if !ni.NewIndicatorEnd.IsZero() && !ni.EndDate.IsZero() && ni.NewIndicatorEnd.After(ni.EndDate) {
		sl.ReportError(ni.NewIndicatorEnd, "new_indicator_end", "NewIndicatorEnd", indicatorPastEndTag, "")
	}
}
