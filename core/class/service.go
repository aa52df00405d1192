package class

import (
	"context"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/japhetcordova/clc-sub000/core"
	"github.com/japhetcordova/clc-sub000/core/member"
)

var (
	// errors
	ErrNotFound           = core.NewNotFoundError("class not found")
	ErrEnrollmentNotFound = core.NewNotFoundError("enrollment not found")
	ErrClassExists        = core.NewConflictError("a class with this name already exists")
	ErrClassFull          = core.NewConflictError("class is full")
	ErrAlreadyEnrolled    = core.NewConflictError("member is already enrolled")
	ErrClassClosed        = core.NewConflictError("class is not open for enrollment")
	ErrInactiveMember     = core.NewConflictError("member is not active")
	errEndsBeforeStart    = errors.New("ends_on must not be before starts_on")
	errCapacityTooLow     = errors.New("capacity cannot be lower than the number of enrolled members")
)

type (
	Repository interface {
		// CreateClass returns ErrClassExists when the name is taken.
		CreateClass(ctx context.Context, c Class) (Class, error)
		QueryClasses(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, page core.Page) ([]Class, int, error)
		GetClass(ctx context.Context, id string) (Class, error)
		UpdateClass(ctx context.Context, c Class) (Class, error)
		DeleteClass(ctx context.Context, id string) error
		// Enroll atomically enrolls a member, or re-enrolls a dropped one, unless the class holds
		// capacity enrolled members (ErrClassFull) or the member is enrolled already (ErrAlreadyEnrolled).
		Enroll(ctx context.Context, classID, memberID string, capacity int, at time.Time) (Enrollment, error)
		GetEnrollment(ctx context.Context, classID, memberID string) (Enrollment, error)
		UpdateEnrollment(ctx context.Context, e Enrollment) (Enrollment, error)
		ClassEnrollments(ctx context.Context, classID string, status string) ([]Enrollment, error)
		MemberEnrollments(ctx context.Context, memberID string) ([]Enrollment, error)
		ClassStats(ctx context.Context, today string) (Stats, error)
	}

	MemberGetter interface {
		GetByID(ctx context.Context, id string) (member.Member, error)
	}

	ServiceInterface interface {
		Create(ctx context.Context, nc NewClass) (Class, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, page core.Page) (core.PageResult[Class], error)
		GetByID(ctx context.Context, id string) (Class, error)
		Update(ctx context.Context, c Class, uc UpdateClass) (Class, error)
		Delete(ctx context.Context, id string) error
		Enroll(ctx context.Context, c Class, memberID string) (Enrollment, error)
		SetStatus(ctx context.Context, classID, memberID string, status string) (Enrollment, error)
		// Enrollments lists the enrollments of a class, optionally restricted to a status.
		Enrollments(ctx context.Context, classID string, status string) ([]Enrollment, error)
		MemberClasses(ctx context.Context, memberID string) ([]Enrollment, error)
		IsEnrolled(ctx context.Context, classID, memberID string) (bool, error)
		Stats(ctx context.Context) (Stats, error)
	}

	service struct {
		repo    Repository
		members MemberGetter
		loc     *time.Location
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(repo Repository, members MemberGetter, conf *core.Config) ServiceInterface {
	vala.BeginValidation().Validate(
		core.NotNil(repo, "repo"),
		core.NotNil(members, "members"),
		core.NotNil(conf, "conf"),
	).CheckAndPanic()

	return &service{repo: repo, members: members, loc: conf.Location}
}

func (svc *service) today() string {
	return core.LocalDate(core.NowFunc(), svc.loc)
}

func checkDates(startsOn, endsOn string) error {
	if endsOn != "" && endsOn < startsOn {
		return core.NewValidationError(errEndsBeforeStart, core.FieldError{Field: "ends_on", Error: errEndsBeforeStart.Error()})
	}
	return nil
}

func nameTaken(err error) error {
	if errors.Is(err, ErrClassExists) {
		return core.NewValidationError(err, core.FieldError{Field: "name", Error: err.Error()})
	}
	return err
}

func (svc *service) Create(ctx context.Context, nc NewClass) (Class, error) {
	if err := checkDates(nc.StartsOn, nc.EndsOn); err != nil {
		return Class{}, err
	}
	now := core.NowFunc().UTC()
	c, err := svc.repo.CreateClass(ctx, Class{
		Name:        nc.Name,
		Description: nc.Description,
		Teacher:     nc.Teacher,
		Schedule:    nc.Schedule,
		Capacity:    nc.Capacity,
		StartsOn:    nc.StartsOn,
		EndsOn:      nc.EndsOn,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	return c, nameTaken(err)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, page core.Page) (core.PageResult[Class], error) {
	ordering, err := OrderingFields.Resolve(ordering)
	if err != nil {
		return core.PageResult[Class]{}, err
	}
	if filter != nil {
		filter.Clean()
	}
	page.Clean()

	classes, count, err := svc.repo.QueryClasses(ctx, filter, ordering, page)
	if err != nil {
		return core.PageResult[Class]{}, err
	}
	return core.NewPageResult(classes, count, page), nil
}

func (svc *service) GetByID(ctx context.Context, id string) (Class, error) {
	return svc.repo.GetClass(ctx, id)
}

func (svc *service) Update(ctx context.Context, c Class, uc UpdateClass) (Class, error) {
	c = uc.apply(c)
	if err := checkDates(c.StartsOn, c.EndsOn); err != nil {
		return Class{}, err
	}
	if c.Capacity > 0 && c.Capacity < c.Enrolled {
		return Class{}, core.NewValidationError(errCapacityTooLow, core.FieldError{Field: "capacity", Error: errCapacityTooLow.Error()})
	}
	c.UpdatedAt = core.NowFunc().UTC()
	updated, err := svc.repo.UpdateClass(ctx, c)
	return updated, nameTaken(err)
}

func (svc *service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteClass(ctx, id)
}

func (svc *service) Enroll(ctx context.Context, c Class, memberID string) (Enrollment, error) {
	if !c.IsActive || c.Ended(svc.today()) {
		return Enrollment{}, ErrClassClosed
	}
	m, err := svc.members.GetByID(ctx, memberID)
	if err != nil {
		return Enrollment{}, err
	}
	if !m.IsActive {
		return Enrollment{}, ErrInactiveMember
	}

	e, err := svc.repo.Enroll(ctx, c.ID, m.ID, c.Capacity, core.NowFunc().UTC())
	if err != nil {
		return Enrollment{}, err
	}
	e.MemberCode = m.Code
	e.MemberName = m.FullName()
	e.ClassName = c.Name
	return e, nil
}

func (svc *service) SetStatus(ctx context.Context, classID, memberID string, status string) (Enrollment, error) {
	e, err := svc.repo.GetEnrollment(ctx, classID, memberID)
	if err != nil {
		return Enrollment{}, err
	}
	if e.Status == status {
		return e, nil
	}
	if status == StatusEnrolled {
		// back into the class: capacity applies
		c, err := svc.repo.GetClass(ctx, classID)
		if err != nil {
			return Enrollment{}, err
		}
		return svc.Enroll(ctx, c, memberID)
	}
	e.Status = status
	e.UpdatedAt = core.NowFunc().UTC()
	return svc.repo.UpdateEnrollment(ctx, e)
}

func (svc *service) Enrollments(ctx context.Context, classID string, status string) ([]Enrollment, error) {
	if _, err := svc.repo.GetClass(ctx, classID); err != nil {
		return nil, err
	}
	return svc.repo.ClassEnrollments(ctx, classID, core.CleanString(status, true /* lower */))
}

func (svc *service) MemberClasses(ctx context.Context, memberID string) ([]Enrollment, error) {
	return svc.repo.MemberEnrollments(ctx, memberID)
}

func (svc *service) IsEnrolled(ctx context.Context, classID, memberID string) (bool, error) {
	e, err := svc.repo.GetEnrollment(ctx, classID, memberID)
	if core.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return e.Status == StatusEnrolled, nil
}

func (svc *service) Stats(ctx context.Context) (Stats, error) {
	return svc.repo.ClassStats(ctx, svc.today())
}
