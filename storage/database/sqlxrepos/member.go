package sqlxrepos

import (
	"context"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/japhetcordova/clc-sub000/core"
	"github.com/japhetcordova/clc-sub000/core/member"
	"github.com/japhetcordova/clc-sub000/storage/database"
)

const memberColumns = "id, code, first_name, last_name, email, phone, gender, birth_date, address, ministry, photo_key, is_active, joined_at, created_at, updated_at"

type memberRow struct {
	ID        string      `db:"id"`
	Code      string      `db:"code"`
	FirstName string      `db:"first_name"`
	LastName  string      `db:"last_name"`
	Email     null.String `db:"email"`
	Phone     null.String `db:"phone"`
	Gender    string      `db:"gender"`
	BirthDate null.String `db:"birth_date"`
	Address   string      `db:"address"`
	Ministry  string      `db:"ministry"`
	PhotoKey  null.String `db:"photo_key"`
	IsActive  bool        `db:"is_active"`
	JoinedAt  time.Time   `db:"joined_at"`
	CreatedAt time.Time   `db:"created_at"`
	UpdatedAt time.Time   `db:"updated_at"`
}

func nullString(s string) null.String {
	return null.NewString(s, s != "")
}

func toMemberRow(m member.Member) memberRow {
	return memberRow{
		ID:        m.ID,
		Code:      m.Code,
		FirstName: m.FirstName,
		LastName:  m.LastName,
		Email:     nullString(m.Email),
		Phone:     nullString(m.Phone),
		Gender:    m.Gender,
		BirthDate: nullString(m.BirthDate),
		Address:   m.Address,
		Ministry:  m.Ministry,
		PhotoKey:  nullString(m.PhotoKey),
		IsActive:  m.IsActive,
		JoinedAt:  m.JoinedAt.UTC(),
		CreatedAt: m.CreatedAt.UTC(),
		UpdatedAt: m.UpdatedAt.UTC(),
	}
}

func (row memberRow) toMember() member.Member {
	return member.Member{
		ID:        row.ID,
		Code:      row.Code,
		FirstName: row.FirstName,
		LastName:  row.LastName,
		Email:     row.Email.String,
		Phone:     row.Phone.String,
		Gender:    row.Gender,
		BirthDate: row.BirthDate.String,
		Address:   row.Address,
		Ministry:  row.Ministry,
		PhotoKey:  row.PhotoKey.String,
		IsActive:  row.IsActive,
		JoinedAt:  row.JoinedAt.UTC(),
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}
}

func (row memberRow) values() map[string]interface{} {
	return map[string]interface{}{
		"id":         row.ID,
		"code":       row.Code,
		"first_name": row.FirstName,
		"last_name":  row.LastName,
		"email":      row.Email,
		"phone":      row.Phone,
		"gender":     row.Gender,
		"birth_date": row.BirthDate,
		"address":    row.Address,
		"ministry":   row.Ministry,
		"photo_key":  row.PhotoKey,
		"is_active":  row.IsActive,
		"joined_at":  row.JoinedAt,
		"created_at": row.CreatedAt,
		"updated_at": row.UpdatedAt,
	}
}

func toMembers(rows []memberRow) []member.Member {
	members := make([]member.Member, 0, len(rows))
	for _, row := range rows {
		members = append(members, row.toMember())
	}
	return members
}

// memberConflict maps a unique violation to the member error of the violated column.
func memberConflict(err error) error {
	if strings.Contains(database.ViolatedConstraint(err), "code") {
		return member.ErrCodeTaken
	}
	return member.ErrMemberExists
}

type memberRepository struct {
	repo
}

var _ member.Repository = (*memberRepository)(nil) // interface compliance check

func NewMemberRepository(db *sqlx.DB) member.Repository {
	return &memberRepository{repo: newRepo(db)}
}

func (mr *memberRepository) FindDuplicates(ctx context.Context, email, phone, excludedID string) (bool, bool, error) {
	var or sq.Or
	if email != "" {
		or = append(or, sq.Eq{"email": email})
	}
	if phone != "" {
		or = append(or, sq.Eq{"phone": phone})
	}
	if len(or) == 0 {
		return false, false, nil
	}

	q := mr.sb.Select("email", "phone").From("members").Where(or)
	if excludedID != "" {
		q = q.Where(sq.NotEq{"id": excludedID})
	}
	var rows []struct {
		Email null.String `db:"email"`
		Phone null.String `db:"phone"`
	}
	if err := mr.sel(ctx, mr.db, &rows, q); err != nil {
		return false, false, errors.Wrap(err, "finding duplicates")
	}

	var emailTaken, phoneTaken bool
	for _, row := range rows {
		emailTaken = emailTaken || (email != "" && row.Email.String == email)
		phoneTaken = phoneTaken || (phone != "" && row.Phone.String == phone)
	}
	return emailTaken, phoneTaken, nil
}

func (mr *memberRepository) CreateMember(ctx context.Context, m member.Member) (member.Member, error) {
	m.ID = uuid.New().String()
	row := toMemberRow(m)
	if _, err := mr.exec(ctx, mr.db, mr.sb.Insert("members").SetMap(row.values())); err != nil {
		if database.IsUniqueViolation(err) {
			return member.Member{}, memberConflict(err)
		}
		return member.Member{}, errors.Wrap(err, "inserting member")
	}
	return row.toMember(), nil
}

func (mr *memberRepository) QueryMembers(ctx context.Context, filter *member.QueryFilter, ordering []core.DBOrdering, page core.Page) ([]member.Member, int, error) {
	q := mr.sb.Select(memberColumns).From("members")

	if filter != nil {
		if filter.Search != "" {
			q = q.Where(like(filter.Search, "first_name", "last_name", "email", "phone", "code",
				"first_name || ' ' || last_name"))
		}
		if filter.Gender != "" {
			q = q.Where(sq.Eq{"gender": filter.Gender})
		}
		if filter.Ministry != "" {
			q = q.Where(sq.Expr("LOWER(ministry) = ?", strings.ToLower(filter.Ministry)))
		}
		if filter.IsActive != nil {
			q = q.Where(sq.Eq{"is_active": *filter.IsActive})
		}
		if !filter.JoinedSince.IsZero() {
			q = q.Where(sq.GtOrEq{"joined_at": filter.JoinedSince.UTC()})
		}
		if !filter.JoinedUntil.IsZero() {
			q = q.Where(sq.Lt{"joined_at": filter.JoinedUntil.UTC()})
		}
	}

	count, err := mr.count(ctx, mr.db, q)
	if err != nil {
		return nil, 0, errors.Wrap(err, "counting members")
	}

	var rows []memberRow
	q = paginate(orderBy(q, ordering, "last_name ASC", "first_name ASC", "id ASC"), page)
	if err = mr.sel(ctx, mr.db, &rows, q); err != nil {
		return nil, 0, errors.Wrap(err, "querying members")
	}
	return toMembers(rows), count, nil
}

func (mr *memberRepository) GetMember(ctx context.Context, filter member.GetFilter) (member.Member, error) {
	q := mr.sb.Select(memberColumns).From("members")
	switch {
	case filter.ID != "":
		if _, err := uuid.Parse(filter.ID); err != nil {
			return member.Member{}, member.ErrNotFound
		}
		q = q.Where(sq.Eq{"id": filter.ID})
	case filter.Code != "":
		q = q.Where(sq.Eq{"code": filter.Code})
	case filter.Email != "":
		q = q.Where(sq.Eq{"email": filter.Email})
	case filter.Phone != "":
		q = q.Where(sq.Eq{"phone": filter.Phone})
	default:
		return member.Member{}, member.ErrNotFound
	}

	var row memberRow
	if err := mr.get(ctx, mr.db, &row, q.Limit(1)); err != nil {
		return member.Member{}, trapNoRows(err, member.ErrNotFound, "getting member")
	}
	return row.toMember(), nil
}

func (mr *memberRepository) UpdateMember(ctx context.Context, m member.Member) (member.Member, error) {
	row := toMemberRow(m)
	vals := row.values()
	delete(vals, "id")
	delete(vals, "code")
	delete(vals, "created_at")

	n, err := mr.exec(ctx, mr.db, mr.sb.Update("members").SetMap(vals).Where(sq.Eq{"id": m.ID}))
	if err != nil {
		if database.IsUniqueViolation(err) {
			return member.Member{}, memberConflict(err)
		}
		return member.Member{}, errors.Wrap(err, "updating member")
	}
	if n == 0 {
		return member.Member{}, member.ErrNotFound
	}
	return row.toMember(), nil
}

func (mr *memberRepository) DeleteMembersByID(ctx context.Context, ids ...string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	n, err := mr.exec(ctx, mr.db, mr.sb.Delete("members").Where(sq.Eq{"id": ids}))
	return n, errors.Wrap(err, "deleting members")
}

func (mr *memberRepository) MembersByBirthMonth(ctx context.Context, month int) ([]member.Member, error) {
	q := mr.sb.Select(memberColumns).From("members").
		Where(sq.Eq{"is_active": true}).
		Where(sq.Expr("SUBSTR(birth_date, 6, 2) = ?", fmt.Sprintf("%02d", month))).
		OrderBy("SUBSTR(birth_date, 9, 2) ASC", "last_name ASC", "first_name ASC")

	var rows []memberRow
	if err := mr.sel(ctx, mr.db, &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying birthdays")
	}
	return toMembers(rows), nil
}

func (mr *memberRepository) MemberStats(ctx context.Context, joinedFrom, joinedTo time.Time) (member.Stats, error) {
	q := mr.sb.Select(
		"COUNT(*) AS total",
		"COALESCE(SUM(CASE WHEN is_active THEN 1 ELSE 0 END), 0) AS active",
	).Column(
		sq.Expr("COALESCE(SUM(CASE WHEN joined_at >= ? AND joined_at < ? THEN 1 ELSE 0 END), 0) AS new_members",
			joinedFrom.UTC(), joinedTo.UTC()),
	).From("members")

	var row struct {
		Total  int `db:"total"`
		Active int `db:"active"`
		New    int `db:"new_members"`
	}
	if err := mr.get(ctx, mr.db, &row, q); err != nil {
		return member.Stats{}, errors.Wrap(err, "counting members")
	}
	return member.Stats{Total: row.Total, Active: row.Active, New: row.New}, nil
}
