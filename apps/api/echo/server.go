package echoapi

import (
	"context"
	"io"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/japhetcordova/clc-sub000/core"
	"github.com/japhetcordova/clc-sub000/core/accesspin"
	"github.com/japhetcordova/clc-sub000/core/attendance"
	"github.com/japhetcordova/clc-sub000/core/class"
	"github.com/japhetcordova/clc-sub000/core/dashboard"
	"github.com/japhetcordova/clc-sub000/core/devotion"
	"github.com/japhetcordova/clc-sub000/core/member"
	"github.com/japhetcordova/clc-sub000/core/user"
)

type (
	// Reporter renders the PDF exports of the dashboard.
	Reporter interface {
		AttendancePDF(w io.Writer, ov dashboard.Overview) error
		MembersPDF(w io.Writer, members []member.Member) error
	}

	Deps struct {
		Conf       *core.Config
		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator
		Templates  fs.FS // holds templates/site
		Mail       core.EmailService

		UserSvc       user.ServiceInterface
		MemberSvc     member.ServiceInterface
		AttendanceSvc attendance.ServiceInterface
		ClassSvc      class.ServiceInterface
		PinSvc        accesspin.ServiceInterface
		DevotionSvc   devotion.ServiceInterface
		DashboardSvc  dashboard.ServiceInterface
		Reports       Reporter
	}

	Server struct {
		deps     *Deps
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ http.Handler = (*Server)(nil)

// NewServer panics if the site templates cannot be parsed.
func NewServer(deps *Deps) *Server {
	vala.BeginValidation().Validate(
		core.NotNil(deps, "deps"),
	).CheckAndPanic()
	vala.BeginValidation().Validate(
		core.NotNil(deps.Conf, "conf"),
		core.NotNil(deps.Logger, "logger"),
		core.NotNil(deps.Validate, "validate"),
		core.NotNil(deps.Translator, "translator"),
		core.NotNil(deps.Templates, "templates"),
		core.NotNil(deps.Mail, "mail"),
		core.NotNil(deps.UserSvc, "userSvc"),
		core.NotNil(deps.MemberSvc, "memberSvc"),
		core.NotNil(deps.AttendanceSvc, "attendanceSvc"),
		core.NotNil(deps.ClassSvc, "classSvc"),
		core.NotNil(deps.PinSvc, "pinSvc"),
		core.NotNil(deps.DevotionSvc, "devotionSvc"),
		core.NotNil(deps.DashboardSvc, "dashboardSvc"),
		core.NotNil(deps.Reports, "reports"),
	).CheckAndPanic()

	s := &Server{
		deps:     deps,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	renderer, err := newTemplateRenderer(s.deps.Templates)
	if err != nil {
		panic(err)
	}
	s.app.Renderer = renderer
	s.app.HideBanner = true
	s.app.Debug = conf.Debug

	s.app.Pre(middleware.RemoveTrailingSlash())
	if conf.Tracing {
		s.app.Use(otelecho.Middleware(conf.AppName))
	}
	if !conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	auth := newAuthenticator(conf, s.deps.UserSvc, s.deps.PinSvc)
	jwt := auth.middleware()

	site := registerSite(s.app, s.deps)
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, site.notFound, s.signalShutdown)

	v1 := s.app.Group("/v1")
	registerUserAPI(v1, jwt, auth, s.deps)
	registerMemberAPI(v1, jwt, s.deps)
	registerAttendanceAPI(v1, jwt, auth, s.deps)
	registerClassAPI(v1, jwt, s.deps)
	registerPinAPI(v1, jwt, auth, s.deps)
	registerVerseAPI(v1, jwt, s.deps)
	registerDashboardAPI(v1, jwt, s.deps)
}

// Start blocks serving requests; listener errors are sent to Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

// ShutdownSignal receives SIGINT, SIGTERM and the shutdown requests of the error handler.
func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already shutting down
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	signal.Stop(s.shutdown)
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}
