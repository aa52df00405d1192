package class

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/japhetcordova/clc-sub000/core"
)

const (
	StatusEnrolled  = "enrolled"
	StatusCompleted = "completed"
	StatusDropped   = "dropped"
)

type Class struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Teacher     string    `json:"teacher"`
	Schedule    string    `json:"schedule"`
	Capacity    int       `json:"capacity"` // 0: unlimited
	StartsOn    string    `json:"starts_on"`
	EndsOn      string    `json:"ends_on"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// filled on reads
	Enrolled int `json:"enrolled"`
}

// Ended reports whether the class ended before the given local date.
func (c Class) Ended(today string) bool {
	return c.EndsOn != "" && c.EndsOn < today
}

// Full reports whether no more members can be enrolled.
func (c Class) Full() bool {
	return c.Capacity > 0 && c.Enrolled >= c.Capacity
}

type Enrollment struct {
	ClassID    string    `json:"class_id"`
	MemberID   string    `json:"member_id"`
	Status     string    `json:"status"`
	EnrolledAt time.Time `json:"enrolled_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// filled on reads
	MemberCode string `json:"member_code,omitempty"`
	MemberName string `json:"member_name,omitempty"`
	ClassName  string `json:"class_name,omitempty"`
}

type NewClass struct {
	Name        string `json:"name" validate:"required,notblank,max=150"`
	Description string `json:"description"`
	Teacher     string `json:"teacher" validate:"max=150"`
	Schedule    string `json:"schedule" validate:"max=150"`
	Capacity    int    `json:"capacity" validate:"min=0"`
	StartsOn    string `json:"starts_on" validate:"required,date"`
	EndsOn      string `json:"ends_on" validate:"omitempty,date"`
}

func (nc *NewClass) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Description = core.CleanString(nc.Description)
	nc.Teacher = core.CleanString(nc.Teacher)
	nc.Schedule = core.CleanString(nc.Schedule)
	nc.StartsOn = core.CleanString(nc.StartsOn)
	nc.EndsOn = core.CleanString(nc.EndsOn)
	return validate.Struct(nc)
}

// UpdateClass holds the new values of a class; nil fields keep their current values.
type UpdateClass struct {
	Name        *string `json:"name" validate:"omitempty,notblank,max=150"`
	Description *string `json:"description"`
	Teacher     *string `json:"teacher" validate:"omitempty,max=150"`
	Schedule    *string `json:"schedule" validate:"omitempty,max=150"`
	Capacity    *int    `json:"capacity" validate:"omitempty,min=0"`
	StartsOn    *string `json:"starts_on" validate:"omitempty,date"`
	EndsOn      *string `json:"ends_on" validate:"omitempty,len=0|date"`
	IsActive    *bool   `json:"is_active"`
}

func (uc *UpdateClass) Validate(validate *validator.Validate) error {
	for _, s := range []*string{uc.Name, uc.Description, uc.Teacher, uc.Schedule, uc.StartsOn, uc.EndsOn} {
		if s != nil {
			*s = core.CleanString(*s)
		}
	}
	return validate.Struct(uc)
}

// apply sets the provided values on c.
func (uc UpdateClass) apply(c Class) Class {
	if uc.Name != nil {
		c.Name = *uc.Name
	}
	if uc.Description != nil {
		c.Description = *uc.Description
	}
	if uc.Teacher != nil {
		c.Teacher = *uc.Teacher
	}
	if uc.Schedule != nil {
		c.Schedule = *uc.Schedule
	}
	if uc.Capacity != nil {
		c.Capacity = *uc.Capacity
	}
	if uc.StartsOn != nil {
		c.StartsOn = *uc.StartsOn
	}
	if uc.EndsOn != nil {
		c.EndsOn = *uc.EndsOn
	}
	if uc.IsActive != nil {
		c.IsActive = *uc.IsActive
	}
	return c
}

type SetStatus struct {
	Status string `json:"status" validate:"required,oneof=enrolled completed dropped"`
}

type QueryFilter struct {
	Search   string `query:"search"`
	IsActive *bool  `query:"is_active"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search, true /* lower */)
}

// Stats are counts used by the dashboard.
type Stats struct {
	ActiveClasses     int `json:"active_classes"`
	ActiveEnrollments int `json:"active_enrollments"`
}

// OrderingFields are the fields classes can be ordered by.
var OrderingFields = core.OrderingFields{
	"name":       "name",
	"starts_on":  "starts_on",
	"created_at": "created_at",
}
