package devotion

import (
	"context"
	"io"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/japhetcordova/clc-sub000/core"
)

const cacheKeyPrefix = "votd:"

var (
	// errors
	ErrNotFound    = core.NewNotFoundError("verse not found")
	ErrVerseExists = core.NewConflictError("this verse already exists in this translation")
	ErrDateTaken   = core.NewConflictError("another verse is scheduled for this date")

	rotationEpoch = time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)
)

type (
	Repository interface {
		// CreateVerse returns ErrVerseExists or ErrDateTaken on unique violations.
		CreateVerse(ctx context.Context, v Verse) (Verse, error)
		QueryVerses(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, page core.Page) ([]Verse, int, error)
		GetVerse(ctx context.Context, id string) (Verse, error)
		UpdateVerse(ctx context.Context, v Verse) (Verse, error)
		DeleteVerse(ctx context.Context, id string) error
		ScheduledVerse(ctx context.Context, date string) (Verse, error)
		CountUnscheduled(ctx context.Context) (int, error)
		// UnscheduledVerseAt returns the index-th unscheduled verse by creation order.
		UnscheduledVerseAt(ctx context.Context, index int) (Verse, error)
	}

	ServiceInterface interface {
		Create(ctx context.Context, nv NewVerse) (Verse, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, page core.Page) (core.PageResult[Verse], error)
		GetByID(ctx context.Context, id string) (Verse, error)
		Update(ctx context.Context, v Verse, uv UpdateVerse) (Verse, error)
		Delete(ctx context.Context, id string) error
		// Import creates the verses of a YAML document, skipping the ones that exist already.
		Import(ctx context.Context, r io.Reader) (ImportResult, error)
		// Today returns the verse of the day.
		Today(ctx context.Context) (Verse, error)
	}

	service struct {
		repo     Repository
		cache    core.KVStore
		validate *validator.Validate
		loc      *time.Location
		logger   core.Logger
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(repo Repository, cache core.KVStore, validate *validator.Validate, conf *core.Config, logger core.Logger) ServiceInterface {
	vala.BeginValidation().Validate(
		core.NotNil(repo, "repo"),
		core.NotNil(cache, "cache"),
		core.NotNil(validate, "validate"),
		core.NotNil(conf, "conf"),
		core.NotNil(logger, "logger"),
	).CheckAndPanic()

	return &service{repo: repo, cache: cache, validate: validate, loc: conf.Location, logger: logger}
}

func conflictField(err error) error {
	switch {
	case errors.Is(err, ErrVerseExists):
		return core.NewValidationError(err, core.FieldError{Field: "reference", Error: err.Error()})
	case errors.Is(err, ErrDateTaken):
		return core.NewValidationError(err, core.FieldError{Field: "scheduled_for", Error: err.Error()})
	}
	return err
}

func (svc *service) Create(ctx context.Context, nv NewVerse) (Verse, error) {
	v, err := svc.repo.CreateVerse(ctx, Verse{
		Reference:    nv.Reference,
		Text:         nv.Text,
		Translation:  nv.Translation,
		ScheduledFor: nv.ScheduledFor,
		CreatedAt:    core.NowFunc().UTC(),
	})
	if err != nil {
		return Verse{}, conflictField(err)
	}
	svc.forgetToday(ctx)
	return v, nil
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, page core.Page) (core.PageResult[Verse], error) {
	ordering, err := OrderingFields.Resolve(ordering)
	if err != nil {
		return core.PageResult[Verse]{}, err
	}
	if filter != nil {
		filter.Clean()
	}
	page.Clean()

	verses, count, err := svc.repo.QueryVerses(ctx, filter, ordering, page)
	if err != nil {
		return core.PageResult[Verse]{}, err
	}
	return core.NewPageResult(verses, count, page), nil
}

func (svc *service) GetByID(ctx context.Context, id string) (Verse, error) {
	return svc.repo.GetVerse(ctx, id)
}

func (svc *service) Update(ctx context.Context, v Verse, uv UpdateVerse) (Verse, error) {
	if uv.Reference != nil {
		v.Reference = *uv.Reference
	}
	if uv.Text != nil {
		v.Text = *uv.Text
	}
	if uv.Translation != nil {
		v.Translation = *uv.Translation
	}
	if uv.ScheduledFor != nil {
		v.ScheduledFor = *uv.ScheduledFor
	}
	v, err := svc.repo.UpdateVerse(ctx, v)
	if err != nil {
		return Verse{}, conflictField(err)
	}
	svc.forgetToday(ctx)
	return v, nil
}

func (svc *service) Delete(ctx context.Context, id string) error {
	if err := svc.repo.DeleteVerse(ctx, id); err != nil {
		return err
	}
	svc.forgetToday(ctx)
	return nil
}

func (svc *service) Import(ctx context.Context, r io.Reader) (ImportResult, error) {
	var (
		file importFile
		res  ImportResult
	)
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return res, core.NewValidationError(errors.Wrap(err, "decoding verses"), core.FieldError{Field: "file", Error: err.Error()})
	}

	// nothing is created unless every verse is valid
	for i := range file.Verses {
		if err := file.Verses[i].Validate(svc.validate); err != nil {
			return res, errors.Wrapf(err, "verse #%d (%s)", i+1, file.Verses[i].Reference)
		}
	}
	for i, nv := range file.Verses {
		if _, err := svc.Create(ctx, nv); err != nil {
			if core.IsConflict(err) {
				res.Skipped++
				continue
			}
			return res, errors.Wrapf(err, "verse #%d (%s)", i+1, nv.Reference)
		}
		res.Created++
	}
	return res, nil
}

func (svc *service) Today(ctx context.Context) (Verse, error) {
	now := core.NowFunc()
	date := core.LocalDate(now, svc.loc)
	key := cacheKeyPrefix + date

	if id, err := svc.cache.Get(ctx, key); err == nil {
		v, err := svc.repo.GetVerse(ctx, id)
		if err == nil {
			return v, nil
		}
		if !core.IsNotFound(err) {
			return Verse{}, err
		}
	} else if !errors.Is(err, core.ErrKeyNotFound) {
		svc.logger.Warn("devotion.Today: "+err.Error(), err)
	}

	v, err := svc.pick(ctx, date)
	if err != nil {
		return Verse{}, err
	}
	if err = svc.cache.Set(ctx, key, v.ID, core.NextMidnight(now, svc.loc)); err != nil {
		svc.logger.Warn("devotion.Today: "+err.Error(), err)
	}
	return v, nil
}

// pick chooses the verse of date: the verse scheduled for it, else the next one in rotation.
func (svc *service) pick(ctx context.Context, date string) (Verse, error) {
	v, err := svc.repo.ScheduledVerse(ctx, date)
	if err == nil {
		return v, nil
	}
	if !core.IsNotFound(err) {
		return Verse{}, err
	}

	count, err := svc.repo.CountUnscheduled(ctx)
	if err != nil {
		return Verse{}, err
	}
	if count == 0 {
		return Verse{}, ErrNotFound
	}
	d, err := time.Parse(core.DateLayout, date)
	if err != nil {
		return Verse{}, errors.Wrapf(err, "parsing date %q", date)
	}
	days := int(d.Sub(rotationEpoch).Hours() / 24)
	return svc.repo.UnscheduledVerseAt(ctx, RotationIndex(days, count))
}

// RotationIndex maps a day number onto [0, count).
func RotationIndex(days, count int) int {
	idx := days % count
	if idx < 0 {
		idx += count
	}
	return idx
}

func (svc *service) forgetToday(ctx context.Context) {
	key := cacheKeyPrefix + core.LocalDate(core.NowFunc(), svc.loc)
	if err := svc.cache.Delete(ctx, key); err != nil {
		svc.logger.Warn("devotion.forgetToday: "+err.Error(), err)
	}
}
