// Package idcard draws member ID cards.
package idcard

import (
	"bytes"
	"image/color"
	"strings"
	"sync"
	"time"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/pkg/errors"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/japhetcordova/clc-sub000/core"
	"github.com/japhetcordova/clc-sub000/core/member"
	qrsvc "github.com/japhetcordova/clc-sub000/services/qrcode"
)

// CR80 card at 300 DPI
const (
	Width  = 1012
	Height = 638

	margin    = 48
	bannerH   = 120
	qrSize    = 340
	minFontPt = 22
)

var (
	bannerColor = color.RGBA{R: 0x1d, G: 0x3a, B: 0x6e, A: 0xff}
	accentColor = color.RGBA{R: 0xe0, G: 0xa8, B: 0x2e, A: 0xff}
	textColor   = color.RGBA{R: 0x22, G: 0x22, B: 0x22, A: 0xff}
	mutedColor  = color.RGBA{R: 0x6b, G: 0x72, B: 0x80, A: 0xff}
)

type Renderer struct {
	church string
	loc    *time.Location

	regular *truetype.Font
	bold    *truetype.Font

	mu    sync.Mutex
	faces map[faceKey]font.Face
}

type faceKey struct {
	bold bool
	size float64
}

var _ member.CardRenderer = (*Renderer)(nil)

func NewRenderer(conf *core.Config) (*Renderer, error) {
	regular, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, errors.Wrap(err, "parsing regular font")
	}
	bold, err := truetype.Parse(gobold.TTF)
	if err != nil {
		return nil, errors.Wrap(err, "parsing bold font")
	}
	return &Renderer{
		church:  conf.ChurchName,
		loc:     conf.Location,
		regular: regular,
		bold:    bold,
		faces:   make(map[faceKey]font.Face),
	}, nil
}

// face returns a cached face; faces are not safe for concurrent use, so Render holds r.mu.
func (r *Renderer) face(bold bool, size float64) font.Face {
	key := faceKey{bold: bold, size: size}
	if f, ok := r.faces[key]; ok {
		return f
	}
	ttf := r.regular
	if bold {
		ttf = r.bold
	}
	f := truetype.NewFace(ttf, &truetype.Options{Size: size, DPI: 72, Hinting: font.HintingFull})
	r.faces[key] = f
	return f
}

// fit picks the biggest size <= size at which s fits in maxW.
func (r *Renderer) fit(dc *gg.Context, s string, bold bool, size, maxW float64) {
	for ; size > minFontPt; size -= 2 {
		dc.SetFontFace(r.face(bold, size))
		if w, _ := dc.MeasureString(s); w <= maxW {
			return
		}
	}
	dc.SetFontFace(r.face(bold, minFontPt))
}

// Render draws m's card with payload as its QR code.
func (r *Renderer) Render(m member.Member, payload string) ([]byte, error) {
	qr, err := qrsvc.Image(payload, qrSize)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	dc := gg.NewContext(Width, Height)
	dc.SetColor(color.White)
	dc.Clear()

	// banner
	dc.SetColor(bannerColor)
	dc.DrawRectangle(0, 0, Width, bannerH)
	dc.Fill()
	dc.SetColor(accentColor)
	dc.DrawRectangle(0, bannerH, Width, 8)
	dc.Fill()
	dc.SetColor(color.White)
	r.fit(dc, strings.ToUpper(r.church), true, 48, Width-2*margin)
	dc.DrawStringAnchored(strings.ToUpper(r.church), Width/2, bannerH/2, 0.5, 0.35)

	// details
	textW := float64(Width - 3*margin - qrSize)
	y := float64(bannerH + 100)
	dc.SetColor(textColor)
	r.fit(dc, m.FullName(), true, 52, textW)
	dc.DrawString(m.FullName(), margin, y)

	lines := []struct{ label, value string }{
		{"MEMBER CODE", m.Code},
		{"MINISTRY", m.Ministry},
		{"MEMBER SINCE", m.JoinedAt.In(r.loc).Format("January 2, 2006")},
	}
	y += 30
	for _, l := range lines {
		if l.value == "" {
			continue
		}
		y += 34
		dc.SetColor(mutedColor)
		dc.SetFontFace(r.face(false, 22))
		dc.DrawString(l.label, margin, y)
		y += 40
		dc.SetColor(textColor)
		r.fit(dc, l.value, false, 34, textW)
		dc.DrawString(l.value, margin, y)
	}

	// qr code, bottom right
	qrX, qrY := Width-margin-qrSize, bannerH+8+(Height-bannerH-8-qrSize)/2
	dc.DrawImage(qr, qrX, qrY)

	dc.SetColor(mutedColor)
	dc.SetFontFace(r.face(false, 20))
	dc.DrawString("Present this card at the entrance", margin, Height-margin+10)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, errors.Wrap(err, "encoding card")
	}
	return buf.Bytes(), nil
}
