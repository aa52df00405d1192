package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/japhetcordova/clc-sub000/core"
	"github.com/japhetcordova/clc-sub000/core/class"
	"github.com/japhetcordova/clc-sub000/storage/database"
)

const (
	classColumns = "id, name, description, teacher, schedule, capacity, starts_on, ends_on, is_active, created_at, updated_at, " +
		"(SELECT COUNT(*) FROM enrollments e WHERE e.class_id = classes.id AND e.status = 'enrolled') AS enrolled"
	enrollmentColumns = "e.class_id, e.member_id, e.status, e.enrolled_at, e.updated_at, " +
		"m.code AS member_code, m.first_name || ' ' || m.last_name AS member_name, c.name AS class_name"
)

type classRow struct {
	ID          string      `db:"id"`
	Name        string      `db:"name"`
	Description string      `db:"description"`
	Teacher     string      `db:"teacher"`
	Schedule    string      `db:"schedule"`
	Capacity    int         `db:"capacity"`
	StartsOn    string      `db:"starts_on"`
	EndsOn      null.String `db:"ends_on"`
	IsActive    bool        `db:"is_active"`
	CreatedAt   time.Time   `db:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
	Enrolled    int         `db:"enrolled"`
}

func (row classRow) toClass() class.Class {
	return class.Class{
		ID:          row.ID,
		Name:        row.Name,
		Description: row.Description,
		Teacher:     row.Teacher,
		Schedule:    row.Schedule,
		Capacity:    row.Capacity,
		StartsOn:    row.StartsOn,
		EndsOn:      row.EndsOn.String,
		IsActive:    row.IsActive,
		CreatedAt:   row.CreatedAt.UTC(),
		UpdatedAt:   row.UpdatedAt.UTC(),
		Enrolled:    row.Enrolled,
	}
}

func classValues(c class.Class) map[string]interface{} {
	return map[string]interface{}{
		"id":          c.ID,
		"name":        c.Name,
		"description": c.Description,
		"teacher":     c.Teacher,
		"schedule":    c.Schedule,
		"capacity":    c.Capacity,
		"starts_on":   c.StartsOn,
		"ends_on":     nullString(c.EndsOn),
		"is_active":   c.IsActive,
		"created_at":  c.CreatedAt.UTC(),
		"updated_at":  c.UpdatedAt.UTC(),
	}
}

type enrollmentRow struct {
	ClassID    string    `db:"class_id"`
	MemberID   string    `db:"member_id"`
	Status     string    `db:"status"`
	EnrolledAt time.Time `db:"enrolled_at"`
	UpdatedAt  time.Time `db:"updated_at"`
	MemberCode string    `db:"member_code"`
	MemberName string    `db:"member_name"`
	ClassName  string    `db:"class_name"`
}

func (row enrollmentRow) toEnrollment() class.Enrollment {
	return class.Enrollment{
		ClassID:    row.ClassID,
		MemberID:   row.MemberID,
		Status:     row.Status,
		EnrolledAt: row.EnrolledAt.UTC(),
		UpdatedAt:  row.UpdatedAt.UTC(),
		MemberCode: row.MemberCode,
		MemberName: row.MemberName,
		ClassName:  row.ClassName,
	}
}

type classRepository struct {
	repo
}

var _ class.Repository = (*classRepository)(nil) // interface compliance check

func NewClassRepository(db *sqlx.DB) class.Repository {
	return &classRepository{repo: newRepo(db)}
}

func (cr *classRepository) CreateClass(ctx context.Context, c class.Class) (class.Class, error) {
	c.ID = uuid.New().String()
	if _, err := cr.exec(ctx, cr.db, cr.sb.Insert("classes").SetMap(classValues(c))); err != nil {
		if database.IsUniqueViolation(err) {
			return class.Class{}, class.ErrClassExists
		}
		return class.Class{}, errors.Wrap(err, "inserting class")
	}
	return c, nil
}

func (cr *classRepository) QueryClasses(ctx context.Context, filter *class.QueryFilter, ordering []core.DBOrdering, page core.Page) ([]class.Class, int, error) {
	q := cr.sb.Select(classColumns).From("classes")
	if filter != nil {
		if filter.Search != "" {
			q = q.Where(like(filter.Search, "name", "teacher", "description"))
		}
		if filter.IsActive != nil {
			q = q.Where(sq.Eq{"is_active": *filter.IsActive})
		}
	}

	count, err := cr.count(ctx, cr.db, q)
	if err != nil {
		return nil, 0, errors.Wrap(err, "counting classes")
	}

	var rows []classRow
	q = paginate(orderBy(q, ordering, "starts_on DESC", "name ASC"), page)
	if err = cr.sel(ctx, cr.db, &rows, q); err != nil {
		return nil, 0, errors.Wrap(err, "querying classes")
	}
	classes := make([]class.Class, 0, len(rows))
	for _, row := range rows {
		classes = append(classes, row.toClass())
	}
	return classes, count, nil
}

func (cr *classRepository) GetClass(ctx context.Context, id string) (class.Class, error) {
	if _, err := uuid.Parse(id); err != nil {
		return class.Class{}, class.ErrNotFound
	}
	var row classRow
	if err := cr.get(ctx, cr.db, &row, cr.sb.Select(classColumns).From("classes").Where(sq.Eq{"id": id})); err != nil {
		return class.Class{}, trapNoRows(err, class.ErrNotFound, "getting class")
	}
	return row.toClass(), nil
}

func (cr *classRepository) UpdateClass(ctx context.Context, c class.Class) (class.Class, error) {
	vals := classValues(c)
	delete(vals, "id")
	delete(vals, "created_at")

	n, err := cr.exec(ctx, cr.db, cr.sb.Update("classes").SetMap(vals).Where(sq.Eq{"id": c.ID}))
	if err != nil {
		if database.IsUniqueViolation(err) {
			return class.Class{}, class.ErrClassExists
		}
		return class.Class{}, errors.Wrap(err, "updating class")
	}
	if n == 0 {
		return class.Class{}, class.ErrNotFound
	}
	return c, nil
}

func (cr *classRepository) DeleteClass(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return class.ErrNotFound
	}
	n, err := cr.exec(ctx, cr.db, cr.sb.Delete("classes").Where(sq.Eq{"id": id}))
	if err != nil {
		return errors.Wrap(err, "deleting class")
	}
	if n == 0 {
		return class.ErrNotFound
	}
	return nil
}

func (cr *classRepository) Enroll(ctx context.Context, classID, memberID string, capacity int, at time.Time) (class.Enrollment, error) {
	e := class.Enrollment{ClassID: classID, MemberID: memberID, Status: class.StatusEnrolled, EnrolledAt: at.UTC(), UpdatedAt: at.UTC()}

	err := cr.inTx(ctx, func(tx *sqlx.Tx) error {
		// serialize enrollments of the class
		lock := cr.sb.Select("id").From("classes").Where(sq.Eq{"id": classID})
		if tx.DriverName() == database.EnginePostgres {
			lock = lock.Suffix("FOR UPDATE")
		}
		var id string
		if err := cr.get(ctx, tx, &id, lock); err != nil {
			return trapNoRows(err, class.ErrNotFound, "locking class")
		}

		var status string
		found := true
		err := cr.get(ctx, tx, &status, cr.sb.Select("status").From("enrollments").
			Where(sq.Eq{"class_id": classID, "member_id": memberID}))
		if errors.Is(err, sql.ErrNoRows) {
			found = false
		} else if err != nil {
			return errors.Wrap(err, "getting enrollment")
		}
		if found && status == class.StatusEnrolled {
			return class.ErrAlreadyEnrolled
		}

		if capacity > 0 {
			n, err := cr.count(ctx, tx, cr.sb.Select("class_id").From("enrollments").
				Where(sq.Eq{"class_id": classID, "status": class.StatusEnrolled}))
			if err != nil {
				return errors.Wrap(err, "counting enrollments")
			}
			if n >= capacity {
				return class.ErrClassFull
			}
		}

		if found {
			_, err = cr.exec(ctx, tx, cr.sb.Update("enrollments").
				SetMap(map[string]interface{}{"status": e.Status, "enrolled_at": e.EnrolledAt, "updated_at": e.UpdatedAt}).
				Where(sq.Eq{"class_id": classID, "member_id": memberID}))
			return errors.Wrap(err, "re-enrolling member")
		}
		_, err = cr.exec(ctx, tx, cr.sb.Insert("enrollments").SetMap(map[string]interface{}{
			"class_id":    e.ClassID,
			"member_id":   e.MemberID,
			"status":      e.Status,
			"enrolled_at": e.EnrolledAt,
			"updated_at":  e.UpdatedAt,
		}))
		if database.IsUniqueViolation(err) {
			return class.ErrAlreadyEnrolled
		}
		return errors.Wrap(err, "enrolling member")
	})
	if err != nil {
		return class.Enrollment{}, err
	}
	return e, nil
}

func (cr *classRepository) selectEnrollments() sq.SelectBuilder {
	return cr.sb.Select(enrollmentColumns).From("enrollments e").
		Join("members m ON m.id = e.member_id").
		Join("classes c ON c.id = e.class_id")
}

func (cr *classRepository) queryEnrollments(ctx context.Context, q sq.SelectBuilder) ([]class.Enrollment, error) {
	var rows []enrollmentRow
	if err := cr.sel(ctx, cr.db, &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}
	enrollments := make([]class.Enrollment, 0, len(rows))
	for _, row := range rows {
		enrollments = append(enrollments, row.toEnrollment())
	}
	return enrollments, nil
}

func (cr *classRepository) GetEnrollment(ctx context.Context, classID, memberID string) (class.Enrollment, error) {
	var row enrollmentRow
	q := cr.selectEnrollments().Where(sq.Eq{"e.class_id": classID, "e.member_id": memberID})
	if err := cr.get(ctx, cr.db, &row, q); err != nil {
		return class.Enrollment{}, trapNoRows(err, class.ErrEnrollmentNotFound, "getting enrollment")
	}
	return row.toEnrollment(), nil
}

func (cr *classRepository) UpdateEnrollment(ctx context.Context, e class.Enrollment) (class.Enrollment, error) {
	n, err := cr.exec(ctx, cr.db, cr.sb.Update("enrollments").
		SetMap(map[string]interface{}{"status": e.Status, "updated_at": e.UpdatedAt.UTC()}).
		Where(sq.Eq{"class_id": e.ClassID, "member_id": e.MemberID}))
	if err != nil {
		return class.Enrollment{}, errors.Wrap(err, "updating enrollment")
	}
	if n == 0 {
		return class.Enrollment{}, class.ErrEnrollmentNotFound
	}
	return e, nil
}

func (cr *classRepository) ClassEnrollments(ctx context.Context, classID string, status string) ([]class.Enrollment, error) {
	q := cr.selectEnrollments().Where(sq.Eq{"e.class_id": classID})
	if status != "" {
		q = q.Where(sq.Eq{"e.status": status})
	}
	return cr.queryEnrollments(ctx, q.OrderBy("m.last_name ASC", "m.first_name ASC"))
}

func (cr *classRepository) MemberEnrollments(ctx context.Context, memberID string) ([]class.Enrollment, error) {
	q := cr.selectEnrollments().Where(sq.Eq{"e.member_id": memberID}).OrderBy("e.enrolled_at DESC")
	return cr.queryEnrollments(ctx, q)
}

func (cr *classRepository) ClassStats(ctx context.Context, today string) (class.Stats, error) {
	open := sq.And{
		sq.Eq{"c.is_active": true},
		sq.Or{sq.Eq{"c.ends_on": nil}, sq.GtOrEq{"c.ends_on": today}},
	}

	var stats class.Stats
	n, err := cr.count(ctx, cr.db, cr.sb.Select("c.id").From("classes c").Where(open))
	if err != nil {
		return stats, errors.Wrap(err, "counting classes")
	}
	stats.ActiveClasses = n

	n, err = cr.count(ctx, cr.db, cr.sb.Select("e.class_id").From("enrollments e").
		Join("classes c ON c.id = e.class_id").
		Where(open).Where(sq.Eq{"e.status": class.StatusEnrolled}))
	if err != nil {
		return stats, errors.Wrap(err, "counting enrollments")
	}
	stats.ActiveEnrollments = n
	return stats, nil
}
