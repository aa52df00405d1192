package member

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/mail"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/japhetcordova/clc-sub000/core"
)

const (
	MaxPhotoSize   = 5 << 20
	codeAttempts   = 5
	photoKeyPrefix = "members/"
)

var (
	// errors
	ErrNotFound     = core.NewNotFoundError("member not found")
	ErrMemberExists = core.NewConflictError("a member with this email or phone already exists")
	ErrCodeTaken    = core.NewConflictError("member code already taken")
	ErrNoPhoto      = core.NewNotFoundError("member has no photo")
	ErrInvalidPhoto = errors.New("photo must be a JPEG or PNG image of at most 5MB")
	errInvalidMonth = errors.New("month must be between 1 and 12")
)

type (
	Repository interface {
		// FindDuplicates reports whether email and phone are already used by members other than excludedID.
		FindDuplicates(ctx context.Context, email, phone, excludedID string) (emailTaken, phoneTaken bool, err error)
		// CreateMember returns ErrCodeTaken when the member code collides.
		CreateMember(ctx context.Context, m Member) (Member, error)
		// QueryMembers returns a page of members matching filter along with the total count.
		// QueryFilter.Search does a case-insensitive match on names, email, phone and code.
		QueryMembers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, page core.Page) ([]Member, int, error)
		GetMember(ctx context.Context, filter GetFilter) (Member, error)
		UpdateMember(ctx context.Context, m Member) (Member, error)
		DeleteMembersByID(ctx context.Context, ids ...string) (int, error)
		// MembersByBirthMonth returns active members born in month, ordered by day of month.
		MembersByBirthMonth(ctx context.Context, month int) ([]Member, error)
		MemberStats(ctx context.Context, joinedFrom, joinedTo time.Time) (Stats, error)
	}

	// CardRenderer draws a member's ID card as a PNG image.
	CardRenderer interface {
		Render(m Member, payload string) ([]byte, error)
	}

	ServiceInterface interface {
		CheckUniqueness(email, phone string, exclMembers ...Member) error
		// Register creates a member and emails them their digital ID.
		Register(ctx context.Context, nm NewMember) (Member, error)
		Create(ctx context.Context, nm NewMember) (Member, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, page core.Page) (core.PageResult[Member], error)
		GetByID(ctx context.Context, id string) (Member, error)
		GetByCode(ctx context.Context, code string) (Member, error)
		// GetByPayload finds the member whose signed QR payload is given.
		GetByPayload(ctx context.Context, payload string) (Member, error)
		Payload(m Member) string
		Card(m Member) ([]byte, error)
		Update(ctx context.Context, m Member, um UpdateMember) (Member, error)
		SetActive(ctx context.Context, m Member, active bool) (Member, error)
		Delete(ctx context.Context, ids ...string) error
		SetPhoto(ctx context.Context, m Member, r io.Reader) (Member, error)
		Photo(ctx context.Context, m Member) (io.ReadCloser, error)
		Birthdays(ctx context.Context, month int) ([]Member, error)
		Stats(ctx context.Context, joinedFrom, joinedTo time.Time) (Stats, error)
	}

	service struct {
		repo    Repository
		mailSvc core.EmailService
		blobs   core.BlobStore
		cards   CardRenderer
		signer  Signer
		logger  core.Logger
		loc     *time.Location
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(
	repo Repository,
	mailSvc core.EmailService,
	blobs core.BlobStore,
	cards CardRenderer,
	conf *core.Config,
	logger core.Logger,
) ServiceInterface {
	vala.BeginValidation().Validate(
		core.NotNil(repo, "repo"),
		core.NotNil(mailSvc, "mailSvc"),
		core.NotNil(blobs, "blobs"),
		core.NotNil(cards, "cards"),
		core.NotNil(conf, "conf"),
		core.NotNil(logger, "logger"),
	).CheckAndPanic()

	return &service{
		repo:    repo,
		mailSvc: mailSvc,
		blobs:   blobs,
		cards:   cards,
		signer:  NewSigner(conf.SecretKey),
		logger:  logger,
		loc:     conf.Location,
	}
}

func (svc *service) CheckUniqueness(email, phone string, exclMembers ...Member) error {
	var exclID string
	if len(exclMembers) > 0 {
		exclID = exclMembers[0].ID
	}
	emailTaken, phoneTaken, err := svc.repo.FindDuplicates(context.Background(), email, phone, exclID)
	if err != nil {
		return errors.Wrap(err, "checking uniqueness")
	}

	var fields []core.FieldError
	if emailTaken {
		fields = append(fields, core.FieldError{Field: "email", Error: "a member with this email already exists"})
	}
	if phoneTaken {
		fields = append(fields, core.FieldError{Field: "phone", Error: "a member with this phone already exists"})
	}
	if len(fields) > 0 {
		return core.NewValidationError(ErrMemberExists, fields...)
	}
	return nil
}

func (svc *service) Register(ctx context.Context, nm NewMember) (Member, error) {
	m, err := svc.Create(ctx, nm)
	if err != nil {
		return Member{}, err
	}
	go svc.sendWelcomeMail(m)
	return m, nil
}

func (svc *service) sendWelcomeMail(m Member) {
	if m.Email == "" {
		return
	}

	payload := svc.Payload(m)
	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: m.FullName(), Address: m.Email}},
		Subject:      "Welcome! Here is your digital ID",
		TemplateName: "welcome",
		TemplateData: map[string]interface{}{
			"FirstName": m.FirstName,
			"Code":      m.Code,
			"Payload":   payload,
		},
	}
	card, err := svc.cards.Render(m, payload)
	if err == nil {
		err = msg.Attach(bytes.NewReader(card), "id-"+m.Code+".png", "image/png")
	}
	if err != nil {
		// still send the link to the card
		svc.logger.Error("member.sendWelcomeMail: "+err.Error(), err, map[string]interface{}{"member": m.ID})
	}
	svc.mailSvc.SendMessages(msg)
}

func (svc *service) Create(ctx context.Context, nm NewMember) (Member, error) {
	now := core.NowFunc().UTC()
	m := Member{
		FirstName: nm.FirstName,
		LastName:  nm.LastName,
		Email:     nm.Email,
		Phone:     nm.Phone,
		Gender:    nm.Gender,
		BirthDate: nm.BirthDate,
		Address:   nm.Address,
		Ministry:  nm.Ministry,
		IsActive:  true,
		JoinedAt:  now,
		CreatedAt: now,
		UpdatedAt: now,
	}

	for attempt := 1; ; attempt++ {
		code, err := NewCode()
		if err != nil {
			return Member{}, err
		}
		m.Code = code

		created, err := svc.repo.CreateMember(ctx, m)
		if err == nil {
			return created, nil
		}
		if !errors.Is(err, ErrCodeTaken) || attempt == codeAttempts {
			return Member{}, errors.Wrap(err, "creating member")
		}
	}
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, page core.Page) (core.PageResult[Member], error) {
	ordering, err := OrderingFields.Resolve(ordering)
	if err != nil {
		return core.PageResult[Member]{}, err
	}
	if filter != nil {
		if err = filter.Clean(svc.loc); err != nil {
			return core.PageResult[Member]{}, err
		}
	}
	page.Clean()

	members, count, err := svc.repo.QueryMembers(ctx, filter, ordering, page)
	if err != nil {
		return core.PageResult[Member]{}, err
	}
	return core.NewPageResult(members, count, page), nil
}

func (svc *service) GetByID(ctx context.Context, id string) (Member, error) {
	return svc.repo.GetMember(ctx, GetFilter{ID: id})
}

func (svc *service) GetByCode(ctx context.Context, code string) (Member, error) {
	code = core.CleanString(code)
	if !validCode(code) {
		return Member{}, ErrNotFound
	}
	return svc.repo.GetMember(ctx, GetFilter{Code: code})
}

func (svc *service) GetByPayload(ctx context.Context, payload string) (Member, error) {
	code, err := svc.signer.Parse(payload)
	if err != nil {
		return Member{}, err
	}
	return svc.repo.GetMember(ctx, GetFilter{Code: code})
}

func (svc *service) Payload(m Member) string {
	return svc.signer.Payload(m.Code)
}

func (svc *service) Card(m Member) ([]byte, error) {
	return svc.cards.Render(m, svc.Payload(m))
}

func (svc *service) Update(ctx context.Context, m Member, um UpdateMember) (Member, error) {
	m.FirstName = um.FirstName
	m.LastName = um.LastName
	m.Email = um.Email.String
	m.Phone = um.Phone.String
	m.Gender = um.Gender
	m.BirthDate = um.BirthDate.String
	m.Address = um.Address.String
	m.Ministry = um.Ministry.String
	if um.IsActive != nil {
		m.IsActive = *um.IsActive
	}
	m.UpdatedAt = core.NowFunc().UTC()
	return svc.repo.UpdateMember(ctx, m)
}

func (svc *service) SetActive(ctx context.Context, m Member, active bool) (Member, error) {
	m.IsActive = active
	m.UpdatedAt = core.NowFunc().UTC()
	return svc.repo.UpdateMember(ctx, m)
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	for _, id := range ids {
		m, err := svc.repo.GetMember(ctx, GetFilter{ID: id})
		if err != nil || m.PhotoKey == "" {
			continue
		}
		if err = svc.blobs.Delete(ctx, m.PhotoKey); err != nil && !core.IsNotFound(err) {
			svc.logger.Warn("member.Delete: "+err.Error(), err)
		}
	}
	_, err := svc.repo.DeleteMembersByID(ctx, ids...)
	return err
}

func (svc *service) SetPhoto(ctx context.Context, m Member, r io.Reader) (Member, error) {
	content, err := io.ReadAll(io.LimitReader(r, MaxPhotoSize+1))
	if err != nil {
		return Member{}, errors.Wrap(err, "reading photo")
	}
	ct := http.DetectContentType(content)
	if len(content) > MaxPhotoSize || (ct != "image/jpeg" && ct != "image/png") {
		return Member{}, core.NewValidationError(ErrInvalidPhoto, core.FieldError{Field: "photo", Error: ErrInvalidPhoto.Error()})
	}

	key := photoKeyPrefix + m.ID + "/photo"
	if err = svc.blobs.Put(ctx, key, bytes.NewReader(content), ct); err != nil {
		return Member{}, errors.Wrap(err, "storing photo")
	}
	m.PhotoKey = key
	m.UpdatedAt = core.NowFunc().UTC()
	return svc.repo.UpdateMember(ctx, m)
}

func (svc *service) Photo(ctx context.Context, m Member) (io.ReadCloser, error) {
	if m.PhotoKey == "" {
		return nil, ErrNoPhoto
	}
	rc, err := svc.blobs.Get(ctx, m.PhotoKey)
	if core.IsNotFound(err) {
		return nil, ErrNoPhoto
	}
	return rc, err
}

func (svc *service) Birthdays(ctx context.Context, month int) ([]Member, error) {
	if month < 1 || month > 12 {
		return nil, core.NewValidationError(errInvalidMonth, core.FieldError{Field: "month", Error: errInvalidMonth.Error()})
	}
	return svc.repo.MembersByBirthMonth(ctx, month)
}

func (svc *service) Stats(ctx context.Context, joinedFrom, joinedTo time.Time) (Stats, error) {
	return svc.repo.MemberStats(ctx, joinedFrom, joinedTo)
}
