package sqlxrepos

import (
	"context"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/japhetcordova/clc-sub000/core"
	"github.com/japhetcordova/clc-sub000/core/devotion"
	"github.com/japhetcordova/clc-sub000/storage/database"
)

const verseColumns = "id, reference, text, translation, scheduled_for, created_at"

type verseRow struct {
	ID           string      `db:"id"`
	Reference    string      `db:"reference"`
	Text         string      `db:"text"`
	Translation  string      `db:"translation"`
	ScheduledFor null.String `db:"scheduled_for"`
	CreatedAt    time.Time   `db:"created_at"`
}

func (row verseRow) toVerse() devotion.Verse {
	return devotion.Verse{
		ID:           row.ID,
		Reference:    row.Reference,
		Text:         row.Text,
		Translation:  row.Translation,
		ScheduledFor: row.ScheduledFor.String,
		CreatedAt:    row.CreatedAt.UTC(),
	}
}

func verseValues(v devotion.Verse) map[string]interface{} {
	return map[string]interface{}{
		"id":            v.ID,
		"reference":     v.Reference,
		"text":          v.Text,
		"translation":   v.Translation,
		"scheduled_for": nullString(v.ScheduledFor),
		"created_at":    v.CreatedAt.UTC(),
	}
}

func verseConflict(err error) error {
	if strings.Contains(database.ViolatedConstraint(err), "scheduled_for") {
		return devotion.ErrDateTaken
	}
	return devotion.ErrVerseExists
}

type verseRepository struct {
	repo
}

var _ devotion.Repository = (*verseRepository)(nil) // interface compliance check

func NewVerseRepository(db *sqlx.DB) devotion.Repository {
	return &verseRepository{repo: newRepo(db)}
}

func (vr *verseRepository) getOne(ctx context.Context, q sq.SelectBuilder, msg string) (devotion.Verse, error) {
	var row verseRow
	if err := vr.get(ctx, vr.db, &row, q.Limit(1)); err != nil {
		return devotion.Verse{}, trapNoRows(err, devotion.ErrNotFound, msg)
	}
	return row.toVerse(), nil
}

func (vr *verseRepository) CreateVerse(ctx context.Context, v devotion.Verse) (devotion.Verse, error) {
	v.ID = uuid.New().String()
	if _, err := vr.exec(ctx, vr.db, vr.sb.Insert("verses").SetMap(verseValues(v))); err != nil {
		if database.IsUniqueViolation(err) {
			return devotion.Verse{}, verseConflict(err)
		}
		return devotion.Verse{}, errors.Wrap(err, "inserting verse")
	}
	return v, nil
}

func (vr *verseRepository) QueryVerses(ctx context.Context, filter *devotion.QueryFilter, ordering []core.DBOrdering, page core.Page) ([]devotion.Verse, int, error) {
	q := vr.sb.Select(verseColumns).From("verses")
	if filter != nil {
		if filter.Search != "" {
			q = q.Where(like(filter.Search, "reference", "text"))
		}
		if filter.Scheduled != nil {
			if *filter.Scheduled {
				q = q.Where(sq.NotEq{"scheduled_for": nil})
			} else {
				q = q.Where(sq.Eq{"scheduled_for": nil})
			}
		}
	}

	count, err := vr.count(ctx, vr.db, q)
	if err != nil {
		return nil, 0, errors.Wrap(err, "counting verses")
	}

	var rows []verseRow
	q = paginate(orderBy(q, ordering, "created_at ASC", "id ASC"), page)
	if err = vr.sel(ctx, vr.db, &rows, q); err != nil {
		return nil, 0, errors.Wrap(err, "querying verses")
	}
	verses := make([]devotion.Verse, 0, len(rows))
	for _, row := range rows {
		verses = append(verses, row.toVerse())
	}
	return verses, count, nil
}

func (vr *verseRepository) GetVerse(ctx context.Context, id string) (devotion.Verse, error) {
	if _, err := uuid.Parse(id); err != nil {
		return devotion.Verse{}, devotion.ErrNotFound
	}
	return vr.getOne(ctx, vr.sb.Select(verseColumns).From("verses").Where(sq.Eq{"id": id}), "getting verse")
}

func (vr *verseRepository) UpdateVerse(ctx context.Context, v devotion.Verse) (devotion.Verse, error) {
	vals := verseValues(v)
	delete(vals, "id")
	delete(vals, "created_at")

	n, err := vr.exec(ctx, vr.db, vr.sb.Update("verses").SetMap(vals).Where(sq.Eq{"id": v.ID}))
	if err != nil {
		if database.IsUniqueViolation(err) {
			return devotion.Verse{}, verseConflict(err)
		}
		return devotion.Verse{}, errors.Wrap(err, "updating verse")
	}
	if n == 0 {
		return devotion.Verse{}, devotion.ErrNotFound
	}
	return v, nil
}

func (vr *verseRepository) DeleteVerse(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return devotion.ErrNotFound
	}
	n, err := vr.exec(ctx, vr.db, vr.sb.Delete("verses").Where(sq.Eq{"id": id}))
	if err != nil {
		return errors.Wrap(err, "deleting verse")
	}
	if n == 0 {
		return devotion.ErrNotFound
	}
	return nil
}

func (vr *verseRepository) ScheduledVerse(ctx context.Context, date string) (devotion.Verse, error) {
	return vr.getOne(ctx, vr.sb.Select(verseColumns).From("verses").Where(sq.Eq{"scheduled_for": date}), "getting scheduled verse")
}

func (vr *verseRepository) CountUnscheduled(ctx context.Context) (int, error) {
	n, err := vr.count(ctx, vr.db, vr.sb.Select("id").From("verses").Where(sq.Eq{"scheduled_for": nil}))
	return n, errors.Wrap(err, "counting unscheduled verses")
}

func (vr *verseRepository) UnscheduledVerseAt(ctx context.Context, index int) (devotion.Verse, error) {
	q := vr.sb.Select(verseColumns).From("verses").
		Where(sq.Eq{"scheduled_for": nil}).
		OrderBy("created_at ASC", "id ASC").
		Offset(uint64(index))
	return vr.getOne(ctx, q, "getting verse in rotation")
}
