package user

import (
	"github.com/japhetcordova/clc-sub000/core"
)

type serviceMock struct {
	service
}

// NewServiceMock returns a service that sends password reset emails synchronously.
func NewServiceMock(repo Repository, mailSvc core.EmailService, conf *core.Config) ServiceInterface {
	return &serviceMock{
		service: service{
			repo:    repo,
			mailSvc: mailSvc,
			conf:    conf,
			tokens:  newTokenGenerator(conf),
		},
	}
}

// MakeResetToken exposes the reset token of usr for tests.
func (svc *serviceMock) MakeResetToken(usr User) string {
	return svc.tokens.makeToken(usr)
}

func (svc *serviceMock) RequestPasswordReset(email string) error {
	usr, err := svc.GetByEmail(email)
	if err != nil {
		return err
	}
	if !usr.Active() {
		return ErrNotFound
	}
	// run synchronously
	svc.sendPasswordResetMail(usr)
	return nil
}
