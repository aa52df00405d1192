package accesspin

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"math/big"
	"strings"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/japhetcordova/clc-sub000/core"
)

const (
	DefaultLength = 6
	keyPrefix     = "pin:"
)

var (
	// errors
	ErrInvalidPIN = errors.New("invalid or expired PIN")
)

// PIN is the code ushers type on scanner devices; it is valid for one church-local day.
type PIN struct {
	Value     string    `json:"pin"`
	Date      string    `json:"date"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ScannerID is the identity recorded on check-ins made with the PIN of date.
func ScannerID(date string) string {
	return keyPrefix + date
}

type (
	ServiceInterface interface {
		// Current returns today's PIN, generating it on first use.
		Current(ctx context.Context) (PIN, error)
		// Rotate replaces today's PIN.
		Rotate(ctx context.Context) (PIN, error)
		// Verify returns today's PIN when pin matches it.
		Verify(ctx context.Context, pin string) (PIN, error)
	}

	service struct {
		store  core.KVStore
		loc    *time.Location
		length int
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(store core.KVStore, conf *core.Config) ServiceInterface {
	vala.BeginValidation().Validate(
		core.NotNil(store, "store"),
		core.NotNil(conf, "conf"),
	).CheckAndPanic()

	length := conf.PINLength
	if length < 4 {
		length = DefaultLength
	}
	return &service{store: store, loc: conf.Location, length: length}
}

func (svc *service) today() (string, time.Time) {
	now := core.NowFunc()
	return core.LocalDate(now, svc.loc), core.NextMidnight(now, svc.loc)
}

func (svc *service) Current(ctx context.Context) (PIN, error) {
	date, expiresAt := svc.today()
	key := keyPrefix + date

	val, err := svc.store.Get(ctx, key)
	if err == nil {
		return PIN{Value: val, Date: date, ExpiresAt: expiresAt}, nil
	}
	if !errors.Is(err, core.ErrKeyNotFound) {
		return PIN{}, errors.Wrap(err, "getting PIN")
	}

	val, err = Generate(svc.length)
	if err != nil {
		return PIN{}, err
	}
	ok, err := svc.store.SetNX(ctx, key, val, expiresAt)
	if err != nil {
		return PIN{}, errors.Wrap(err, "storing PIN")
	}
	if !ok {
		// generated concurrently
		if val, err = svc.store.Get(ctx, key); err != nil {
			return PIN{}, errors.Wrap(err, "getting PIN")
		}
	}
	return PIN{Value: val, Date: date, ExpiresAt: expiresAt}, nil
}

func (svc *service) Rotate(ctx context.Context) (PIN, error) {
	date, expiresAt := svc.today()
	val, err := Generate(svc.length)
	if err != nil {
		return PIN{}, err
	}
	if err = svc.store.Set(ctx, keyPrefix+date, val, expiresAt); err != nil {
		return PIN{}, errors.Wrap(err, "storing PIN")
	}
	return PIN{Value: val, Date: date, ExpiresAt: expiresAt}, nil
}

func (svc *service) Verify(ctx context.Context, pin string) (PIN, error) {
	pin = strings.TrimSpace(pin)
	if len(pin) != svc.length {
		return PIN{}, ErrInvalidPIN
	}

	date, expiresAt := svc.today()
	val, err := svc.store.Get(ctx, keyPrefix+date)
	if errors.Is(err, core.ErrKeyNotFound) {
		return PIN{}, ErrInvalidPIN
	}
	if err != nil {
		return PIN{}, errors.Wrap(err, "getting PIN")
	}
	if subtle.ConstantTimeCompare([]byte(val), []byte(pin)) != 1 {
		return PIN{}, ErrInvalidPIN
	}
	return PIN{Value: val, Date: date, ExpiresAt: expiresAt}, nil
}

// Generate returns a random string of length decimal digits.
func Generate(length int) (string, error) {
	var sb strings.Builder
	sb.Grow(length)
	ten := big.NewInt(10)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", errors.Wrap(err, "generating PIN")
		}
		sb.WriteByte(byte('0' + n.Int64()))
	}
	return sb.String(), nil
}
