package echoapi

import (
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"net/mail"
	"path"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/japhetcordova/clc-sub000/core"
	"github.com/japhetcordova/clc-sub000/core/attendance"
	"github.com/japhetcordova/clc-sub000/core/devotion"
	"github.com/japhetcordova/clc-sub000/core/member"
)

const (
	siteTemplatesDir = "templates/site"
	siteLayout       = "_layout.gohtml"

	registeredMsg  = "Welcome! Your digital ID is ready and a copy was sent to you."
	contactSentMsg = "Thank you for reaching out. We will get back to you soon."
)

var sitePages = []string{"home", "about", "contact", "register", "card", "notfound"}

// templateRenderer renders the site pages, each parsed together with the shared layout.
type templateRenderer struct {
	pages map[string]*template.Template
}

func newTemplateRenderer(fsys fs.FS) (*templateRenderer, error) {
	paths, err := fs.Glob(fsys, path.Join(siteTemplatesDir, "*.gohtml"))
	if err != nil {
		return nil, errors.Wrap(err, "listing site templates")
	}

	r := &templateRenderer{pages: make(map[string]*template.Template, len(paths))}
	for _, p := range paths {
		base := path.Base(p)
		if strings.HasPrefix(base, "_") {
			continue
		}
		tmpl, err := template.ParseFS(fsys, path.Join(siteTemplatesDir, siteLayout), p)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing %s", base)
		}
		r.pages[strings.TrimSuffix(base, ".gohtml")] = tmpl
	}
	for _, name := range sitePages {
		if _, ok := r.pages[name]; !ok {
			return nil, errors.Errorf("site template %q missing", name)
		}
	}
	return r, nil
}

func (r *templateRenderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	tmpl, ok := r.pages[name]
	if !ok {
		return errors.Errorf("site template %q not found", name)
	}
	return tmpl.ExecuteTemplate(w, "layout", data)
}

type (
	page struct {
		ChurchName string
		Year       int
		Verse      *devotion.Verse
		Slots      attendance.Slots
		Form       interface{}
		Errors     map[string]string
		Success    string
		Member     member.Member
		Payload    string
	}

	contactForm struct {
		Name    string `json:"name" form:"name" validate:"required,notblank,max=100"`
		Email   string `json:"email" form:"email" validate:"required,email,max=254"`
		Phone   string `json:"phone" form:"phone" validate:"omitempty,phone"`
		Message string `json:"message" form:"message" validate:"required,notblank,max=5000"`
	}

	siteHandler struct {
		deps       *Deps
		validate   *validator.Validate
		translator ut.Translator
	}
)

func registerSite(app *echo.Echo, deps *Deps) *siteHandler {
	h := &siteHandler{deps: deps, validate: deps.Validate, translator: deps.Translator}

	app.GET("/", h.home)
	app.GET("/about", h.about)
	app.GET("/contact", h.contact)
	app.POST("/contact", h.sendContact, rateLimiter(deps.Conf.Server))
	app.GET("/register", h.register)
	app.POST("/register", h.submitRegister, rateLimiter(deps.Conf.Server))
	app.GET("/id/:payload", h.card)
	return h
}

func (h *siteHandler) newPage() *page {
	return &page{
		ChurchName: h.deps.Conf.ChurchName,
		Year:       core.NowFunc().In(h.deps.Conf.Location).Year(),
	}
}

// Handlers

func (h *siteHandler) home(ctx echo.Context) error {
	p := h.newPage()
	p.Slots = h.deps.AttendanceSvc.Slots()

	v, err := h.deps.DevotionSvc.Today(ctx.Request().Context())
	switch {
	case err == nil:
		p.Verse = &v
	case !core.IsNotFound(err):
		h.deps.Logger.Warn("site home: "+err.Error(), err)
	}
	return ctx.Render(http.StatusOK, "home", p)
}

func (h *siteHandler) about(ctx echo.Context) error {
	return ctx.Render(http.StatusOK, "about", h.newPage())
}

func (h *siteHandler) notFound(ctx echo.Context) error {
	return ctx.Render(http.StatusNotFound, "notfound", h.newPage())
}

func (h *siteHandler) contact(ctx echo.Context) error {
	p := h.newPage()
	p.Form = contactForm{}
	return ctx.Render(http.StatusOK, "contact", p)
}

func (h *siteHandler) sendContact(ctx echo.Context) error {
	var form contactForm
	if err := ctx.Bind(&form); err != nil {
		return errors.Wrap(err, "binding to contactForm")
	}
	form.Name = core.CleanName(form.Name)
	form.Email = core.CleanString(form.Email, true /* lower */)
	form.Phone = core.CleanString(form.Phone)
	form.Message = strings.TrimSpace(form.Message)

	p := h.newPage()
	p.Form = form
	if err := h.validate.Struct(form); err != nil {
		return h.renderErrors(ctx, "contact", p, err)
	}

	h.deps.Mail.SendMessages(&core.EmailMessage{
		To:           []mail.Address{h.deps.Conf.OfficeEmail},
		ReplyTo:      &mail.Address{Name: form.Name, Address: form.Email},
		Subject:      "Website message from " + form.Name,
		TemplateName: "contact",
		TemplateData: form,
	})

	p.Form = contactForm{}
	p.Success = contactSentMsg
	return ctx.Render(http.StatusOK, "contact", p)
}

func (h *siteHandler) register(ctx echo.Context) error {
	p := h.newPage()
	p.Form = member.NewMember{}
	return ctx.Render(http.StatusOK, "register", p)
}

func (h *siteHandler) submitRegister(ctx echo.Context) error {
	var data member.NewMember
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMember")
	}

	p := h.newPage()
	err := data.Validate(h.validate, h.deps.MemberSvc)
	p.Form = data
	if err != nil {
		return h.renderErrors(ctx, "register", p, err)
	}

	m, err := h.deps.MemberSvc.Register(ctx.Request().Context(), data)
	if err != nil {
		if core.IsConflict(err) {
			return h.renderErrors(ctx, "register", p, core.NewValidationError(err))
		}
		return errors.Wrap(err, "registering member")
	}

	p.Member = m
	p.Payload = h.deps.MemberSvc.Payload(m)
	p.Success = registeredMsg
	return ctx.Render(http.StatusCreated, "card", p)
}

func (h *siteHandler) card(ctx echo.Context) error {
	payload := ctx.Param("payload")
	m, err := h.deps.MemberSvc.GetByPayload(ctx.Request().Context(), payload)
	if err != nil {
		if errors.Is(err, member.ErrInvalidPayload) || core.IsNotFound(err) {
			return h.notFound(ctx)
		}
		return errors.Wrap(err, "finding member by payload")
	}

	p := h.newPage()
	p.Member = m
	p.Payload = payload
	return ctx.Render(http.StatusOK, "card", p)
}

// renderErrors re-renders a form page with the field errors of err.
func (h *siteHandler) renderErrors(ctx echo.Context, name string, p *page, err error) error {
	fldErrs, ok := fieldErrors(err, h.translator)
	if !ok {
		return err
	}
	p.Errors = fldErrs
	return ctx.Render(http.StatusBadRequest, name, p)
}
