package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/japhetcordova/clc-sub000/core"
	"github.com/japhetcordova/clc-sub000/core/attendance"
	"github.com/japhetcordova/clc-sub000/storage/database"
)

const recordColumns = "a.id, a.member_id, a.date, a.slot, a.class_id, a.method, a.scanned_by, a.scanned_at, " +
	"m.code AS member_code, m.first_name || ' ' || m.last_name AS member_name"

type recordRow struct {
	ID         string    `db:"id"`
	MemberID   string    `db:"member_id"`
	Date       string    `db:"date"`
	Slot       string    `db:"slot"`
	ClassID    string    `db:"class_id"`
	Method     string    `db:"method"`
	ScannedBy  string    `db:"scanned_by"`
	ScannedAt  time.Time `db:"scanned_at"`
	MemberCode string    `db:"member_code"`
	MemberName string    `db:"member_name"`
}

func (row recordRow) toRecord() attendance.Record {
	return attendance.Record{
		ID:         row.ID,
		MemberID:   row.MemberID,
		Date:       row.Date,
		Slot:       row.Slot,
		ClassID:    row.ClassID,
		Method:     row.Method,
		ScannedBy:  row.ScannedBy,
		ScannedAt:  row.ScannedAt.UTC(),
		MemberCode: row.MemberCode,
		MemberName: row.MemberName,
	}
}

type attendanceRepository struct {
	repo
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *sqlx.DB) attendance.Repository {
	return &attendanceRepository{repo: newRepo(db)}
}

func (ar *attendanceRepository) selectRecords() sq.SelectBuilder {
	return ar.sb.Select(recordColumns).From("attendance a").Join("members m ON m.id = a.member_id")
}

func applyRecordFilter(q sq.SelectBuilder, filter *attendance.QueryFilter) sq.SelectBuilder {
	if filter == nil {
		return q
	}
	if filter.DateFrom != "" {
		q = q.Where(sq.GtOrEq{"a.date": filter.DateFrom})
	}
	if filter.DateTo != "" {
		q = q.Where(sq.LtOrEq{"a.date": filter.DateTo})
	}
	if len(filter.Slots) > 0 {
		q = q.Where(sq.Eq{"a.slot": filter.Slots})
	}
	if filter.MemberID != "" {
		q = q.Where(sq.Eq{"a.member_id": filter.MemberID})
	}
	if filter.ClassID != "" {
		q = q.Where(sq.Eq{"a.class_id": filter.ClassID})
	}
	if filter.Method != "" {
		q = q.Where(sq.Eq{"a.method": filter.Method})
	}
	return q
}

func (ar *attendanceRepository) CreateRecord(ctx context.Context, rec attendance.Record) (attendance.Record, error) {
	rec.ID = uuid.New().String()
	q := ar.sb.Insert("attendance").SetMap(map[string]interface{}{
		"id":         rec.ID,
		"member_id":  rec.MemberID,
		"date":       rec.Date,
		"slot":       rec.Slot,
		"class_id":   rec.ClassID,
		"method":     rec.Method,
		"scanned_by": rec.ScannedBy,
		"scanned_at": rec.ScannedAt.UTC(),
	})
	if _, err := ar.exec(ctx, ar.db, q); err != nil {
		if database.IsUniqueViolation(err) {
			return attendance.Record{}, attendance.ErrAlreadyCheckedIn
		}
		return attendance.Record{}, errors.Wrap(err, "inserting attendance record")
	}
	return rec, nil
}

func (ar *attendanceRepository) FindRecord(ctx context.Context, memberID, date, slot, classID string) (attendance.Record, error) {
	q := ar.selectRecords().Where(sq.Eq{
		"a.member_id": memberID,
		"a.date":      date,
		"a.slot":      slot,
		"a.class_id":  classID,
	}).Limit(1)

	var row recordRow
	if err := ar.get(ctx, ar.db, &row, q); err != nil {
		return attendance.Record{}, trapNoRows(err, attendance.ErrNotFound, "finding attendance record")
	}
	return row.toRecord(), nil
}

func (ar *attendanceRepository) QueryRecords(ctx context.Context, filter *attendance.QueryFilter, ordering []core.DBOrdering, page core.Page) ([]attendance.Record, int, error) {
	q := applyRecordFilter(ar.selectRecords(), filter)

	count, err := ar.count(ctx, ar.db, q)
	if err != nil {
		return nil, 0, errors.Wrap(err, "counting attendance records")
	}

	var rows []recordRow
	q = paginate(orderBy(q, ordering, "a.scanned_at DESC", "a.id ASC"), page)
	if err = ar.sel(ctx, ar.db, &rows, q); err != nil {
		return nil, 0, errors.Wrap(err, "querying attendance records")
	}
	records := make([]attendance.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.toRecord())
	}
	return records, count, nil
}

func (ar *attendanceRepository) GetRecord(ctx context.Context, id string) (attendance.Record, error) {
	if _, err := uuid.Parse(id); err != nil {
		return attendance.Record{}, attendance.ErrNotFound
	}
	var row recordRow
	if err := ar.get(ctx, ar.db, &row, ar.selectRecords().Where(sq.Eq{"a.id": id})); err != nil {
		return attendance.Record{}, trapNoRows(err, attendance.ErrNotFound, "getting attendance record")
	}
	return row.toRecord(), nil
}

func (ar *attendanceRepository) DeleteRecord(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return attendance.ErrNotFound
	}
	n, err := ar.exec(ctx, ar.db, ar.sb.Delete("attendance").Where(sq.Eq{"id": id}))
	if err != nil {
		return errors.Wrap(err, "deleting attendance record")
	}
	if n == 0 {
		return attendance.ErrNotFound
	}
	return nil
}

func (ar *attendanceRepository) SummaryRows(ctx context.Context, filter *attendance.QueryFilter) ([]attendance.SummaryRow, error) {
	q := ar.sb.Select("a.member_id", "a.date", "a.slot", "m.gender", "m.ministry").
		From("attendance a").Join("members m ON m.id = a.member_id")
	q = applyRecordFilter(q, filter)

	var rows []struct {
		MemberID string `db:"member_id"`
		Date     string `db:"date"`
		Slot     string `db:"slot"`
		Gender   string `db:"gender"`
		Ministry string `db:"ministry"`
	}
	if err := ar.sel(ctx, ar.db, &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying attendance summary")
	}
	out := make([]attendance.SummaryRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, attendance.SummaryRow(row))
	}
	return out, nil
}
