package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/nojinx/ssm/core"
	"github.com/nojinx/ssm/core/academic"
	"github.com/nojinx/ssm/core/audit"
	"github.com/nojinx/ssm/core/auth"
	"github.com/nojinx/ssm/core/news"
	"github.com/nojinx/ssm/core/staff"
	"github.com/nojinx/ssm/core/student"
)

type (
	Options struct {
		Conf           *core.Config
		Logger         core.Logger
		Validate       *validator.Validate
		Translator     ut.Translator
		DisableReqLogs bool

		AuthSvc     *auth.Service
		AuditSvc    *audit.Service
		StaffSvc    staff.ServiceInterface
		StudentSvc  student.ServiceInterface
		AcademicSvc academic.ServiceInterface
		ScheduleSvc academic.ScheduleServiceInterface
		LeaveSvc    staff.LeaveServiceInterface
		NewsSvc     news.ServiceInterface
	}

	Server interface {
		http.Handler
		Start()
		Shutdown(context.Context) error
		Close() error
		ShutdownSignal() <-chan os.Signal
		Errors() <-chan error
	}

	server struct {
		opts     *Options
		app      *echo.Echo
		shutdown chan os.Signal
		errors   chan error
	}
)

var _ Server = (*server)(nil) // interface compliance check

func NewServer(opts *Options) Server {
	s := &server{
		opts:     opts,
		app:      echo.New(),
		shutdown: make(chan os.Signal, 1),
		errors:   make(chan error, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.opts.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)

	g := s.app.Group("/api")
	jwt := jwtMiddleware(conf, s.opts.AuthSvc)

	registerAuthAPI(g, s.opts)
	registerStaffAPI(g, jwt, s.opts)
	registerStudentAPI(g, jwt, s.opts)
	registerSubjectAPI(g, jwt, s.opts)
	registerScheduleAPI(g, jwt, s.opts)
	registerLeaveAPI(g, jwt, s.opts)
	registerNewsAPI(g, jwt, s.opts)
	registerAuditAPI(g, jwt, s.opts)
}

func (s *server) Start() {
	if err := s.app.Start(s.opts.Conf.Server.Addr); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *server) Errors() <-chan error {
	return s.errors
}

func (s *server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already signaled
	}
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to SSM API!")
}
