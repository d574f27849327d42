package raster

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"strings"

	"github.com/skip2/go-qrcode"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	_ "golang.org/x/image/webp"

	"eligicert/internal/certificate"
	"eligicert/internal/eligibility"
)

// Base certificate size in points; the output is this times the scale.
const (
	baseWidth  = 800
	baseHeight = 640
)

var (
	white     = color.RGBA{0xff, 0xff, 0xff, 0xff}
	ink       = color.RGBA{0x1f, 0x29, 0x37, 0xff}
	grey      = color.RGBA{0x6b, 0x72, 0x80, 0xff}
	lightGrey = color.RGBA{0x9c, 0xa3, 0xaf, 0xff}
	brandRed  = color.RGBA{0xdc, 0x26, 0x26, 0xff}
	brandBlue = color.RGBA{0x1e, 0x40, 0xaf, 0xff}
	gold      = color.RGBA{0xf5, 0x9e, 0x0b, 0xff}
	panel     = color.RGBA{0xfe, 0xf3, 0xc7, 0xff}
	green     = color.RGBA{0x16, 0xa3, 0x4a, 0xff}
	orange    = color.RGBA{0xea, 0x58, 0x0c, 0xff}
)

// Canvas draws certificates in pure Go.
type Canvas struct {
	regular *opentype.Font
	bold    *opentype.Font
	italic  *opentype.Font
}

func NewCanvas() (*Canvas, error) {
	regular, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse regular font: %w", err)
	}
	bold, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse bold font: %w", err)
	}
	italic, err := opentype.Parse(goitalic.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse italic font: %w", err)
	}
	return &Canvas{regular: regular, bold: bold, italic: italic}, nil
}

// Rasterize implements certificate.Rasterizer.
func (c *Canvas) Rasterize(ctx context.Context, l certificate.Layout, scale float64) (certificate.ImageAsset, error) {
	if scale <= 0 {
		return certificate.ImageAsset{}, fmt.Errorf("invalid scale %v", scale)
	}

	var photo image.Image
	if l.Photo != nil {
		img, _, err := image.Decode(bytes.NewReader(l.Photo.Data))
		if err != nil {
			return certificate.ImageAsset{}, fmt.Errorf("decode photo: %w", err)
		}
		photo = img
	}

	p := &painter{
		c:     c,
		scale: scale,
		dst:   image.NewRGBA(image.Rect(0, 0, int(baseWidth*scale), int(baseHeight*scale))),
		faces: map[faceKey]font.Face{},
	}
	defer p.close()

	if err := p.draw(l, photo); err != nil {
		return certificate.ImageAsset{}, err
	}
	if err := ctx.Err(); err != nil {
		return certificate.ImageAsset{}, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, p.dst); err != nil {
		return certificate.ImageAsset{}, fmt.Errorf("encode png: %w", err)
	}
	b := p.dst.Bounds()
	return certificate.ImageAsset{
		ContentType: "image/png",
		Data:        buf.Bytes(),
		Width:       b.Dx(),
		Height:      b.Dy(),
	}, nil
}

type faceKey struct {
	f    *opentype.Font
	size float64
}

type painter struct {
	c     *Canvas
	scale float64
	dst   *image.RGBA
	faces map[faceKey]font.Face
}

func (p *painter) close() {
	for _, f := range p.faces {
		f.Close()
	}
}

func (p *painter) s(v float64) int { return int(v * p.scale) }

func (p *painter) rect(x0, y0, x1, y1 float64) image.Rectangle {
	return image.Rect(p.s(x0), p.s(y0), p.s(x1), p.s(y1))
}

func (p *painter) face(f *opentype.Font, size float64) (font.Face, error) {
	k := faceKey{f, size}
	if face, ok := p.faces[k]; ok {
		return face, nil
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size * p.scale,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("font face %.0fpt: %w", size, err)
	}
	p.faces[k] = face
	return face, nil
}

func (p *painter) fill(r image.Rectangle, c color.Color) {
	draw.Draw(p.dst, r, image.NewUniform(c), image.Point{}, draw.Src)
}

func (p *painter) stroke(x0, y0, x1, y1, width float64, c color.Color) {
	p.fill(p.rect(x0, y0, x1, y0+width), c)
	p.fill(p.rect(x0, y1-width, x1, y1), c)
	p.fill(p.rect(x0, y0, x0+width, y1), c)
	p.fill(p.rect(x1-width, y0, x1, y1), c)
}

func (p *painter) textAt(face font.Face, c color.Color, x int, y float64, s string) int {
	d := font.Drawer{
		Dst:  p.dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, p.s(y)),
	}
	d.DrawString(s)
	return d.Dot.X.Ceil()
}

func (p *painter) centered(face font.Face, c color.Color, cx, y float64, s string) {
	w := font.MeasureString(face, s).Ceil()
	p.textAt(face, c, p.s(cx)-w/2, y, s)
}

// span is a run of text drawn with one face and colour.
type span struct {
	face font.Face
	col  color.Color
	text string
}

func (p *painter) centeredSpans(cx, y float64, spans ...span) {
	total := 0
	for _, sp := range spans {
		total += font.MeasureString(sp.face, sp.text).Ceil()
	}
	x := p.s(cx) - total/2
	for _, sp := range spans {
		x = p.textAt(sp.face, sp.col, x, y, sp.text)
	}
}

func (p *painter) wrapped(face font.Face, c color.Color, cx, y, width, leading float64, s string) float64 {
	var line string
	for _, word := range strings.Fields(s) {
		next := word
		if line != "" {
			next = line + " " + word
		}
		if line != "" && font.MeasureString(face, next).Ceil() > p.s(width) {
			p.centered(face, c, cx, y, line)
			y += leading
			line = word
			continue
		}
		line = next
	}
	if line != "" {
		p.centered(face, c, cx, y, line)
		y += leading
	}
	return y
}

func (p *painter) draw(l certificate.Layout, photo image.Image) error {
	c := p.c
	var err error
	face := func(f *opentype.Font, size float64) font.Face {
		if err != nil {
			return nil
		}
		var fc font.Face
		fc, err = p.face(f, size)
		return fc
	}

	heading := face(c.bold, 34)
	small := face(c.regular, 13)
	lead := face(c.bold, 20)
	name := face(c.bold, 38)
	body := face(c.regular, 17)
	bodyBold := face(c.bold, 17)
	position := face(c.bold, 26)
	venue := face(c.bold, 15)
	message := face(c.italic, 14)
	footer := face(c.regular, 15)
	footerBold := face(c.bold, 15)
	stamp := face(c.bold, 13)
	if err != nil {
		return err
	}

	p.fill(p.dst.Bounds(), white)
	p.stroke(10, 10, baseWidth-10, baseHeight-10, 8, brandBlue)
	p.stroke(26, 26, baseWidth-26, baseHeight-26, 2, gold)

	p.centered(heading, brandRed, baseWidth/2, 82, l.Heading)
	p.centered(small, grey, baseWidth/2, 108, "Certificate ID: "+l.CertificateID)
	p.centered(lead, ink, baseWidth/2, 150, l.Lead)
	p.centered(name, brandBlue, baseWidth/2, 200, l.Name)

	if photo != nil {
		p.stroke(146, 226, 282, 394, 4, ink)
		drawCover(p.dst, p.rect(150, 230, 278, 390), photo)
	}

	verdict := green
	if !l.Eligible {
		verdict = brandRed
	}
	p.centeredSpans(480, 256,
		span{body, ink, "has been found "},
		span{bodyBold, verdict, l.Display.Verdict},
		span{body, ink, " to join as"},
	)
	p.fill(p.rect(320, 272, 640, 352), panel)
	p.centered(position, ink, 480, 306, l.Display.Position)
	p.centered(venue, ink, 480, 336, l.Display.Venue)
	p.centered(body, ink, 480, 384, fmt.Sprintf("10th: %s    12th: %s", l.TenthMarks, l.TwelfthMarks))

	p.wrapped(message, grey, baseWidth/2, 432, 460, 20, l.Message)

	p.drawStamp(l, stamp)

	if l.QRPayload != "" {
		if err := p.drawQR(l.QRPayload, 360, 500, 80); err != nil {
			return err
		}
	}

	p.textAt(footer, ink, p.s(60), 556, "Date of Issue:")
	p.textAt(footerBold, ink, p.s(60), 578, l.IssuedOn)
	p.centered(message, lightGrey, 640, 550, l.Signature)
	p.fill(p.rect(540, 558, 740, 559), ink)
	p.centered(small, ink, 640, 578, l.Institute)
	p.centered(small, lightGrey, baseWidth/2, 604, l.Disclaimer)
	return nil
}

func (p *painter) drawStamp(l certificate.Layout, face font.Face) {
	col := brandRed
	switch l.Tier {
	case eligibility.TierEntry:
		col = orange
	case eligibility.TierNone:
		col = grey
	}
	const x0, y0, x1, y1 = 620.0, 410.0, 760.0, 490.0
	p.stroke(x0, y0, x1, y1, 3, col)
	p.stroke(x0+5, y0+5, x1-5, y1-5, 1, col)
	y := y0 + 28.0
	for _, line := range l.Display.Stamp {
		p.centered(face, col, (x0+x1)/2, y, line)
		y += 18
	}
}

func (p *painter) drawQR(payload string, x, y, size float64) error {
	q, err := qrcode.New(payload, qrcode.Medium)
	if err != nil {
		return fmt.Errorf("qr code: %w", err)
	}
	q.DisableBorder = true
	img := q.Image(p.s(size))
	dst := p.rect(x, y, x+size, y+size)
	draw.NearestNeighbor.Scale(p.dst, dst, img, img.Bounds(), draw.Over, nil)
	return nil
}

// drawCover scales src to fill r, cropping the overflow around the centre.
func drawCover(dst draw.Image, r image.Rectangle, src image.Image) {
	sb := src.Bounds()
	sw, sh := sb.Dx(), sb.Dy()
	if sw == 0 || sh == 0 {
		return
	}
	var crop image.Rectangle
	if sw*r.Dy() > sh*r.Dx() {
		w := sh * r.Dx() / r.Dy()
		off := (sw - w) / 2
		crop = image.Rect(sb.Min.X+off, sb.Min.Y, sb.Min.X+off+w, sb.Max.Y)
	} else {
		h := sw * r.Dy() / r.Dx()
		off := (sh - h) / 2
		crop = image.Rect(sb.Min.X, sb.Min.Y+off, sb.Max.X, sb.Min.Y+off+h)
	}
	draw.CatmullRom.Scale(dst, r, src, crop, draw.Over, nil)
}
