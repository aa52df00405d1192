package attendance

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/japhetcordova/clc-sub000/core"
	"github.com/japhetcordova/clc-sub000/core/member"
)

var (
	// errors
	ErrNotFound         = core.NewNotFoundError("attendance record not found")
	ErrAlreadyCheckedIn = core.NewConflictError("member already checked in")
	ErrInactiveMember   = core.NewConflictError("member is not active")
	ErrNotEnrolled      = core.NewConflictError("member is not enrolled in this class")
	errInvalidGroupBy   = errors.New("group_by must be one of day, week, month, slot, gender, ministry")
	errInvalidRange     = errors.New("date_from must not be after date_to")
)

// DuplicateError is returned by CheckIn when the member was already checked in; it carries the first record.
type DuplicateError struct {
	Existing Record
}

func (e *DuplicateError) Error() string { return ErrAlreadyCheckedIn.Error() }
func (e *DuplicateError) Unwrap() error { return ErrAlreadyCheckedIn }

type (
	Repository interface {
		// CreateRecord returns ErrAlreadyCheckedIn when the member/date/slot/class key exists.
		CreateRecord(ctx context.Context, rec Record) (Record, error)
		FindRecord(ctx context.Context, memberID, date, slot, classID string) (Record, error)
		QueryRecords(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, page core.Page) ([]Record, int, error)
		GetRecord(ctx context.Context, id string) (Record, error)
		DeleteRecord(ctx context.Context, id string) error
		SummaryRows(ctx context.Context, filter *QueryFilter) ([]SummaryRow, error)
	}

	// MemberFinder resolves the member being checked in.
	MemberFinder interface {
		GetByID(ctx context.Context, id string) (member.Member, error)
		GetByPayload(ctx context.Context, payload string) (member.Member, error)
	}

	// EnrollmentChecker tells whether a member is actively enrolled in a class.
	EnrollmentChecker interface {
		IsEnrolled(ctx context.Context, classID, memberID string) (bool, error)
	}

	ServiceInterface interface {
		Slots() Slots
		// CheckIn records the attendance of a member; scanner is the acting user ID or "pin:<date>".
		CheckIn(ctx context.Context, ci CheckIn, scanner string) (Record, member.Member, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, page core.Page) (core.PageResult[Record], error)
		GetByID(ctx context.Context, id string) (Record, error)
		Delete(ctx context.Context, id string) error
		Summary(ctx context.Context, filter *QueryFilter, groupBy string) (Summary, error)
	}

	service struct {
		repo     Repository
		members  MemberFinder
		classes  EnrollmentChecker
		validate *validator.Validate
		slots    Slots
		loc      *time.Location
	}
)

var _ ServiceInterface = (*service)(nil)

// NewService panics if conf.AttendanceSlots is invalid.
func NewService(
	repo Repository,
	members MemberFinder,
	classes EnrollmentChecker,
	validate *validator.Validate,
	conf *core.Config,
) ServiceInterface {
	vala.BeginValidation().Validate(
		core.NotNil(repo, "repo"),
		core.NotNil(members, "members"),
		core.NotNil(classes, "classes"),
		core.NotNil(validate, "validate"),
		core.NotNil(conf, "conf"),
	).CheckAndPanic()

	slots, err := ParseSlots(conf.AttendanceSlots)
	if err != nil {
		panic(errors.Wrap(err, "parsing attendance slots"))
	}
	return &service{
		repo:     repo,
		members:  members,
		classes:  classes,
		validate: validate,
		slots:    slots,
		loc:      conf.Location,
	}
}

func (svc *service) Slots() Slots { return svc.slots }

func (svc *service) CheckIn(ctx context.Context, ci CheckIn, scanner string) (Record, member.Member, error) {
	if err := ci.Validate(svc.validate); err != nil {
		return Record{}, member.Member{}, err
	}

	var (
		m      member.Member
		err    error
		method = MethodQR
	)
	if ci.Payload != "" {
		m, err = svc.members.GetByPayload(ctx, ci.Payload)
		if errors.Is(err, member.ErrInvalidPayload) {
			return Record{}, member.Member{}, core.NewValidationError(err, core.FieldError{Field: "payload", Error: err.Error()})
		}
	} else {
		method = MethodManual
		m, err = svc.members.GetByID(ctx, ci.MemberID)
	}
	if err != nil {
		return Record{}, member.Member{}, err
	}
	if !m.IsActive {
		return Record{}, m, ErrInactiveMember
	}

	if ci.ClassID != "" {
		enrolled, err := svc.classes.IsEnrolled(ctx, ci.ClassID, m.ID)
		if err != nil {
			return Record{}, m, errors.Wrap(err, "checking enrollment")
		}
		if !enrolled {
			return Record{}, m, ErrNotEnrolled
		}
	}

	at := ci.At
	if at.IsZero() {
		at = core.NowFunc()
	} else {
		method = MethodManual
	}
	local := at.In(svc.loc)
	rec := Record{
		MemberID:  m.ID,
		Date:      local.Format(core.DateLayout),
		Slot:      svc.slots.Classify(local),
		ClassID:   ci.ClassID,
		Method:    method,
		ScannedBy: scanner,
		ScannedAt: at.UTC(),
	}

	created, err := svc.repo.CreateRecord(ctx, rec)
	if errors.Is(err, ErrAlreadyCheckedIn) {
		existing, ferr := svc.repo.FindRecord(ctx, rec.MemberID, rec.Date, rec.Slot, rec.ClassID)
		if ferr != nil {
			return Record{}, m, errors.Wrap(ferr, "finding existing record")
		}
		return Record{}, m, &DuplicateError{Existing: withMember(existing, m)}
	}
	if err != nil {
		return Record{}, m, errors.Wrap(err, "creating record")
	}
	return withMember(created, m), m, nil
}

func withMember(rec Record, m member.Member) Record {
	rec.MemberCode = m.Code
	rec.MemberName = m.FullName()
	return rec
}

func (svc *service) cleanFilter(filter *QueryFilter) error {
	if filter == nil {
		return nil
	}
	filter.Clean()
	if err := svc.validate.Struct(filter); err != nil {
		return err
	}
	if filter.DateFrom != "" && filter.DateTo != "" && filter.DateFrom > filter.DateTo {
		return core.NewValidationError(errInvalidRange, core.FieldError{Field: "date_from", Error: errInvalidRange.Error()})
	}
	return nil
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, page core.Page) (core.PageResult[Record], error) {
	ordering, err := OrderingFields.Resolve(ordering)
	if err != nil {
		return core.PageResult[Record]{}, err
	}
	if err = svc.cleanFilter(filter); err != nil {
		return core.PageResult[Record]{}, err
	}
	page.Clean()

	records, count, err := svc.repo.QueryRecords(ctx, filter, ordering, page)
	if err != nil {
		return core.PageResult[Record]{}, err
	}
	return core.NewPageResult(records, count, page), nil
}

func (svc *service) GetByID(ctx context.Context, id string) (Record, error) {
	return svc.repo.GetRecord(ctx, id)
}

func (svc *service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteRecord(ctx, id)
}

func (svc *service) Summary(ctx context.Context, filter *QueryFilter, groupBy string) (Summary, error) {
	groupBy = core.CleanString(groupBy, true /* lower */)
	if groupBy == "" {
		groupBy = GroupByDay
	}
	if !validGroupBy(groupBy) {
		return Summary{}, core.NewValidationError(errInvalidGroupBy, core.FieldError{Field: "group_by", Error: errInvalidGroupBy.Error()})
	}
	if err := svc.cleanFilter(filter); err != nil {
		return Summary{}, err
	}

	rows, err := svc.repo.SummaryRows(ctx, filter)
	if err != nil {
		return Summary{}, errors.Wrap(err, "loading summary rows")
	}
	return Summarize(rows, groupBy, svc.slots), nil
}

func validGroupBy(groupBy string) bool {
	for _, g := range GroupByValues {
		if g == groupBy {
			return true
		}
	}
	return false
}
