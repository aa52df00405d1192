package member

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/japhetcordova/clc-sub000/core"
)

const (
	GenderMale   = "male"
	GenderFemale = "female"
)

var Genders = []string{GenderMale, GenderFemale}

const (
	errInvalidDate        = "enter a valid date (YYYY-MM-DD)"
	errInvalidJoinedRange = "joined_from must not be after joined_to"
)

type Member struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Gender    string    `json:"gender"`
	BirthDate string    `json:"birth_date"` // YYYY-MM-DD
	Address   string    `json:"address"`
	Ministry  string    `json:"ministry"`
	PhotoKey  string    `json:"photo_key,omitempty"`
	IsActive  bool      `json:"is_active"`
	JoinedAt  time.Time `json:"joined_at"`  // UTC
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

func (m Member) FullName() string {
	return m.FirstName + " " + m.LastName
}

// BirthMonthDay returns the "MM-DD" part of BirthDate, if any.
func (m Member) BirthMonthDay() string {
	if len(m.BirthDate) != len(core.DateLayout) {
		return ""
	}
	return m.BirthDate[5:]
}

// NewMember contains information needed to register a Member.
type NewMember struct {
	FirstName string `json:"first_name" form:"first_name" validate:"required,notblank,max=100"`
	LastName  string `json:"last_name" form:"last_name" validate:"required,notblank,max=100"`
	Email     string `json:"email" form:"email" validate:"required_without=Phone,omitempty,email,max=254"`
	Phone     string `json:"phone" form:"phone" validate:"required_without=Email,omitempty,phone"`
	Gender    string `json:"gender" form:"gender" validate:"required,oneof=male female"`
	BirthDate string `json:"birth_date" form:"birth_date" validate:"omitempty,date,pastdate"`
	Address   string `json:"address" form:"address" validate:"max=255"`
	Ministry  string `json:"ministry" form:"ministry" validate:"max=100"`
}

func (nm *NewMember) clean() {
	nm.FirstName = core.CleanName(nm.FirstName)
	nm.LastName = core.CleanName(nm.LastName)
	nm.Email = core.CleanString(nm.Email, true /* lower */)
	nm.Phone = core.CleanString(nm.Phone)
	nm.Gender = core.CleanString(nm.Gender, true /* lower */)
	nm.BirthDate = core.CleanString(nm.BirthDate)
	nm.Address = core.CleanString(nm.Address)
	nm.Ministry = core.CleanString(nm.Ministry)
}

func (nm *NewMember) Validate(validate *validator.Validate, svc ServiceInterface) error {
	nm.clean()
	if err := validate.Struct(nm); err != nil {
		return err
	}
	return svc.CheckUniqueness(nm.Email, nm.Phone)
}

// UpdateMember defines what information may be provided to modify an existing Member.
// An absent or null optional field keeps the current value, an empty string clears it.
type UpdateMember struct {
	FirstName string      `json:"first_name"`
	LastName  string      `json:"last_name"`
	Gender    string      `json:"gender"`
	Email     null.String `json:"email"`
	Phone     null.String `json:"phone"`
	BirthDate null.String `json:"birth_date"`
	Address   null.String `json:"address"`
	Ministry  null.String `json:"ministry"`
	IsActive  *bool       `json:"is_active"`
}

// Validate merges um into orig and validates the result with the NewMember rules;
// um then holds the merged values.
func (um *UpdateMember) Validate(orig Member, validate *validator.Validate, svc ServiceInterface) error {
	keep := func(val, origVal string) string {
		if core.CleanString(val) == "" {
			return origVal
		}
		return val
	}
	keepNull := func(val null.String, origVal string) string {
		if !val.Valid {
			return origVal
		}
		return val.String
	}
	nm := NewMember{
		FirstName: keep(um.FirstName, orig.FirstName),
		LastName:  keep(um.LastName, orig.LastName),
		Gender:    keep(um.Gender, orig.Gender),
		Email:     keepNull(um.Email, orig.Email),
		Phone:     keepNull(um.Phone, orig.Phone),
		BirthDate: keepNull(um.BirthDate, orig.BirthDate),
		Address:   keepNull(um.Address, orig.Address),
		Ministry:  keepNull(um.Ministry, orig.Ministry),
	}
	nm.clean()
	if err := validate.Struct(nm); err != nil {
		return err
	}

	um.FirstName, um.LastName, um.Gender = nm.FirstName, nm.LastName, nm.Gender
	um.Email = null.StringFrom(nm.Email)
	um.Phone = null.StringFrom(nm.Phone)
	um.BirthDate = null.StringFrom(nm.BirthDate)
	um.Address = null.StringFrom(nm.Address)
	um.Ministry = null.StringFrom(nm.Ministry)
	if um.IsActive == nil {
		active := orig.IsActive
		um.IsActive = &active
	}
	return svc.CheckUniqueness(nm.Email, nm.Phone, orig)
}

type QueryFilter struct {
	Search     string `query:"search"`
	Gender     string `query:"gender"`
	Ministry   string `query:"ministry"`
	IsActive   *bool  `query:"is_active"`
	JoinedFrom string `query:"joined_from"` // YYYY-MM-DD, inclusive
	JoinedTo   string `query:"joined_to"`   // YYYY-MM-DD, inclusive

	// set by Clean from JoinedFrom and JoinedTo: JoinedSince <= joined_at < JoinedUntil
	JoinedSince time.Time `query:"-" json:"-"`
	JoinedUntil time.Time `query:"-" json:"-"`
}

// Clean normalizes the filter and resolves the joined dates to instants in loc.
func (qf *QueryFilter) Clean(loc *time.Location) error {
	qf.Search = core.CleanString(qf.Search, true /* lower */)
	qf.Gender = core.CleanString(qf.Gender, true /* lower */)
	qf.Ministry = core.CleanString(qf.Ministry)
	qf.JoinedFrom = core.CleanString(qf.JoinedFrom)
	qf.JoinedTo = core.CleanString(qf.JoinedTo)

	var flds []core.FieldError
	qf.JoinedSince, qf.JoinedUntil = time.Time{}, time.Time{}
	if qf.JoinedFrom != "" {
		d, err := core.ParseDate(qf.JoinedFrom, loc)
		if err != nil {
			flds = append(flds, core.FieldError{Field: "joined_from", Error: errInvalidDate})
		}
		qf.JoinedSince = d
	}
	if qf.JoinedTo != "" {
		d, err := core.ParseDate(qf.JoinedTo, loc)
		if err != nil {
			flds = append(flds, core.FieldError{Field: "joined_to", Error: errInvalidDate})
		} else {
			qf.JoinedUntil = d.AddDate(0, 0, 1)
		}
	}
	if len(flds) > 0 {
		return core.NewValidationError(nil, flds...)
	}
	if !qf.JoinedSince.IsZero() && !qf.JoinedUntil.IsZero() && !qf.JoinedSince.Before(qf.JoinedUntil) {
		return core.NewValidationError(nil, core.FieldError{Field: "joined_from", Error: errInvalidJoinedRange})
	}
	return nil
}

// GetFilter selects a single Member; the first non-empty field wins.
type GetFilter struct {
	ID    string
	Code  string
	Email string
	Phone string
}

// Stats are head counts used by the dashboard.
type Stats struct {
	Total  int `json:"total"`
	Active int `json:"active"`
	New    int `json:"new"`
}

// OrderingFields are the fields members can be ordered by.
var OrderingFields = core.OrderingFields{
	"first_name": "first_name",
	"last_name":  "last_name",
	"code":       "code",
	"ministry":   "ministry",
	"joined_at":  "joined_at",
	"created_at": "created_at",
}
