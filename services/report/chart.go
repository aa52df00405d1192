package report

import (
	"bytes"
	"image/color"
	"strconv"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/pkg/errors"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/japhetcordova/clc-sub000/core/attendance"
)

var (
	totalColor  = color.RGBA{R: 0x1d, G: 0x3a, B: 0x6e, A: 0xff}
	uniqueColor = color.RGBA{R: 0xe0, G: 0xa8, B: 0x2e, A: 0xff}
	axisColor   = color.RGBA{R: 0x6b, G: 0x72, B: 0x80, A: 0xff}
	gridColor   = color.RGBA{R: 0xe5, G: 0xe7, B: 0xeb, A: 0xff}

	chartFont *truetype.Font
)

func init() {
	var err error
	if chartFont, err = truetype.Parse(goregular.TTF); err != nil {
		panic(err)
	}
}

func chartFace(size float64) font.Face {
	return truetype.NewFace(chartFont, &truetype.Options{Size: size, DPI: 72, Hinting: font.HintingFull})
}

// BarChart draws total and unique attendance per bucket as a width x height PNG.
func BarChart(buckets []attendance.Bucket, width, height int) ([]byte, error) {
	if width < 200 || height < 150 {
		return nil, errors.New("chart too small")
	}
	const (
		left, right, top, bottom = 56.0, 16.0, 36.0, 48.0
		maxLabels                = 12
	)
	w, h := float64(width), float64(height)
	plotW, plotH := w-left-right, h-top-bottom

	dc := gg.NewContext(width, height)
	dc.SetColor(color.White)
	dc.Clear()
	dc.SetFontFace(chartFace(13))

	maxVal := 0
	for _, b := range buckets {
		if b.Total > maxVal {
			maxVal = b.Total
		}
	}
	step := niceStep(maxVal)
	ceil := step * 4

	// grid and y labels
	for i := 0; i <= 4; i++ {
		y := top + plotH - plotH*float64(i)/4
		dc.SetColor(gridColor)
		dc.DrawLine(left, y, w-right, y)
		dc.Stroke()
		dc.SetColor(axisColor)
		dc.DrawStringAnchored(strconv.Itoa(step*i), left-8, y, 1, 0.35)
	}

	if len(buckets) > 0 {
		slot := plotW / float64(len(buckets))
		barW := slot * 0.38
		labelEvery := (len(buckets) + maxLabels - 1) / maxLabels
		for i, b := range buckets {
			x := left + slot*float64(i) + slot*0.12
			for j, v := range []int{b.Total, b.Unique} {
				bh := plotH * float64(v) / float64(ceil)
				dc.SetColor(totalColor)
				if j == 1 {
					dc.SetColor(uniqueColor)
				}
				dc.DrawRectangle(x+barW*float64(j), top+plotH-bh, barW, bh)
				dc.Fill()
			}
			if i%labelEvery == 0 {
				dc.SetColor(axisColor)
				dc.DrawStringAnchored(shortKey(b.Key), left+slot*float64(i)+slot/2, top+plotH+18, 0.5, 0.5)
			}
		}
	}

	// axis
	dc.SetColor(axisColor)
	dc.SetLineWidth(1.5)
	dc.DrawLine(left, top+plotH, w-right, top+plotH)
	dc.Stroke()

	// legend
	for i, l := range []struct {
		label string
		c     color.Color
	}{{"Total", totalColor}, {"Unique members", uniqueColor}} {
		x := left + float64(i)*120
		dc.SetColor(l.c)
		dc.DrawRectangle(x, 12, 12, 12)
		dc.Fill()
		dc.SetColor(axisColor)
		dc.DrawStringAnchored(l.label, x+18, 18, 0, 0.35)
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, errors.Wrap(err, "encoding chart")
	}
	return buf.Bytes(), nil
}

// niceStep returns the smallest of 1, 2 and 5 times a power of ten such that 4 steps cover max.
func niceStep(max int) int {
	need := (max + 3) / 4
	if need < 1 {
		return 1
	}
	for mag := 1; ; mag *= 10 {
		for _, base := range []int{1, 2, 5} {
			if base*mag >= need {
				return base * mag
			}
		}
	}
}

// shortKey trims dates to MM-DD so date buckets fit under their bars.
func shortKey(key string) string {
	if len(key) == len("2006-01-02") && key[4] == '-' && key[7] == '-' {
		return key[5:]
	}
	if len(key) > 14 {
		return key[:13] + "…"
	}
	return key
}
