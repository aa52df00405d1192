package member

import (
	"context"

	"github.com/japhetcordova/clc-sub000/core"
)

type serviceMock struct {
	service
}

// NewServiceMock returns a service that sends welcome emails synchronously.
func NewServiceMock(
	repo Repository,
	mailSvc core.EmailService,
	blobs core.BlobStore,
	cards CardRenderer,
	conf *core.Config,
	logger core.Logger,
) ServiceInterface {
	return &serviceMock{
		service: service{
			repo:    repo,
			mailSvc: mailSvc,
			blobs:   blobs,
			cards:   cards,
			signer:  NewSigner(conf.SecretKey),
			logger:  logger,
			loc:     conf.Location,
		},
	}
}

func (svc *serviceMock) Register(ctx context.Context, nm NewMember) (Member, error) {
	m, err := svc.Create(ctx, nm)
	if err != nil {
		return Member{}, err
	}
	// run synchronously
	svc.sendWelcomeMail(m)
	return m, nil
}
