package echoapi

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/japhetcordova/clc-sub000/core"
	"github.com/japhetcordova/clc-sub000/core/accesspin"
	"github.com/japhetcordova/clc-sub000/core/user"
)

const (
	tokenContextKey = "userToken"
	contextUserKey  = "user"
	tokenAudience   = "clc"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.RegisteredClaims
	OrigIssuedAt int64    `json:"oriat,omitempty"`
	Username     string   `json:"username,omitempty"`
	Email        string   `json:"email,omitempty"`
	IsAdmin      bool     `json:"is_admin,omitempty"`
	IsTeacher    bool     `json:"is_teacher,omitempty"`
	IsUsher      bool     `json:"is_usher,omitempty"`
	IsScanner    bool     `json:"is_scanner,omitempty"` // PIN unlocked device; may only check members in
	PinTag       string   `json:"pin_tag,omitempty"`
	Roles        []string `json:"roles,omitempty"`
}

// GetUserClaims returns the claims of a token issued to usr.
func GetUserClaims(usr user.User, conf *core.Config, origIat ...int64) *Claims {
	now := time.Now()
	oriat := now.Unix()
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    conf.AppName,
			Subject:   usr.ID,
			Audience:  jwt.ClaimStrings{tokenAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(conf.Server.JWTExpirationDelta)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		OrigIssuedAt: oriat,
		Username:     usr.Username,
		Email:        usr.Email,
		IsAdmin:      usr.IsAdmin(),
		IsTeacher:    usr.IsTeacher(),
		IsUsher:      usr.IsUsher(),
		Roles:        usr.Roles,
	}
}

// GetScannerClaims returns the claims of a scanner token unlocked with pin; it expires with the PIN.
func GetScannerClaims(pin accesspin.PIN, conf *core.Config) *Claims {
	now := time.Now()
	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    conf.AppName,
			Subject:   accesspin.ScannerID(pin.Date),
			Audience:  jwt.ClaimStrings{tokenAudience},
			ExpiresAt: jwt.NewNumericDate(pin.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		OrigIssuedAt: now.Unix(),
		IsScanner:    true,
		PinTag:       pinTag(pin, conf.SecretKey),
	}
}

// pinTag binds a scanner token to the PIN that unlocked it, so that rotating the PIN revokes it.
func pinTag(pin accesspin.PIN, secretKey string) string {
	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write([]byte(pin.Date + ":" + pin.Value))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil)[:12])
}

// GenerateToken generates a signed JWT token string representing the Claims.
func GenerateToken(claims *Claims, secretKey string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString([]byte(secretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

type authenticator struct {
	conf   *core.Config
	usrSvc user.ServiceInterface
	pinSvc accesspin.ServiceInterface
}

func newAuthenticator(conf *core.Config, usrSvc user.ServiceInterface, pinSvc accesspin.ServiceInterface) *authenticator {
	return &authenticator{conf: conf, usrSvc: usrSvc, pinSvc: pinSvc}
}

// middleware is the JWT auth middleware; it stores the *jwt.Token under tokenContextKey.
func (a *authenticator) middleware() echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		SigningKey:    []byte(a.conf.SecretKey),
		SigningMethod: echojwt.AlgorithmHS256,
		ContextKey:    tokenContextKey,
		NewClaimsFunc: func(echo.Context) jwt.Claims { return new(Claims) },
		// missing, malformed and expired tokens are all reported as 401
		ErrorHandler: func(echo.Context, error) error { return errUnauthorized },
	})
}

func (a *authenticator) authenticate(uname, pwd string) (*Claims, error) {
	usr, err := a.usrSvc.GetByUsernameOrEmail(uname)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, errAuthenticationFailed
		}
		return nil, errors.Wrap(err, "finding user by username or email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return nil, errAuthenticationFailed
	}
	if !usr.Active() {
		return nil, errAccountDeactivated
	}
	usr, err = a.usrSvc.SetLastLogin(usr)
	if err != nil {
		return nil, errors.Wrap(err, "setting lastLogin")
	}
	return GetUserClaims(usr, a.conf), nil
}

func (a *authenticator) generateToken(claims *Claims) (string, error) {
	return GenerateToken(claims, a.conf.SecretKey)
}

func (a *authenticator) refreshToken(ctx echo.Context) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}

	usr, err := getContextUser(ctx, a.usrSvc, claims)
	if err != nil {
		return "", errors.Wrap(err, "getting context user")
	}

	// check if user is still active
	if !usr.Active() {
		return "", errAccountDeactivated
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(a.conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	return a.generateToken(GetUserClaims(usr, a.conf, claims.OrigIssuedAt))
}

// checkScanner makes sure the PIN that unlocked a scanner token is still today's PIN.
func (a *authenticator) checkScanner(ctx echo.Context, claims Claims) error {
	pin, err := a.pinSvc.Current(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "getting current PIN")
	}
	if accesspin.ScannerID(pin.Date) != claims.Subject ||
		subtle.ConstantTimeCompare([]byte(pinTag(pin, a.conf.SecretKey)), []byte(claims.PinTag)) != 1 {
		return errPinRotated
	}
	return nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(tokenContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// getContextUser loads the user of the token; scanner tokens have no user.
func getContextUser(ctx echo.Context, svc user.ServiceInterface, clms ...Claims) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}

	var (
		claims Claims
		err    error
	)
	if len(clms) > 0 {
		claims = clms[0]
	} else {
		claims, err = getContextClaims(ctx)
		if err != nil {
			return user.User{}, errors.Wrap(err, "getting context claims")
		}
	}
	if claims.IsScanner {
		return user.User{}, errHttpForbidden
	}

	usr, err := svc.GetByID(claims.Subject)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.User{}, errUnauthorized
		}
		return user.User{}, errors.Wrap(err, "finding user by ID")
	}
	ctx.Set(contextUserKey, usr)
	return usr, nil
}

func contextHasAnyRole(ctx echo.Context, roles []string) bool {
	if len(roles) == 0 {
		return true
	}
	if claims, err := getContextClaims(ctx); err == nil {
		for _, role := range roles {
			for _, has := range claims.Roles {
				if role == has {
					return true
				}
			}
		}
	}
	return false
}
