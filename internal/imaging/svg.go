package imaging

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	"golang.org/x/net/html/charset"
)

// SVGRenderDPI is the resolution SVG documents are rasterized at.
const SVGRenderDPI = 150

// SVG user units are CSS pixels, defined at 96 per inch.
const cssPixelsPerInch = 96

// CSS pixels per absolute length unit.
var cssUnits = map[string]float64{
	"":   1,
	"px": 1,
	"in": cssPixelsPerInch,
	"cm": cssPixelsPerInch / 2.54,
	"mm": cssPixelsPerInch / 25.4,
	"pt": cssPixelsPerInch / 72.0,
	"pc": cssPixelsPerInch / 6.0,
}

// viewBox is the user coordinate system, laid out like oksvg.SvgIcon.ViewBox.
type viewBox struct{ X, Y, W, H float64 }

// svgRoot holds the sizing attributes of the root <svg> element.
type svgRoot struct {
	Width   string
	Height  string
	ViewBox string
}

// RasterizeSVG renders an SVG document to PNG bytes at SVGRenderDPI.
//
// The output size comes from the root width and height converted to inches.
// A percentage, relative or missing dimension falls back to the viewBox,
// treated as CSS pixels, keeping the viewBox aspect ratio when the other
// dimension is known.
func RasterizeSVG(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read SVG: %w", err)
	}

	icon, err := oksvg.ReadIconStream(bytes.NewReader(data), oksvg.IgnoreErrorMode)
	if err != nil {
		return nil, fmt.Errorf("failed to parse SVG: %w", err)
	}
	root, err := readSVGRoot(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse SVG: %w", err)
	}

	vb, width, height, ok := svgGeometry(root)
	if !ok {
		return nil, errors.New("SVG has no drawable size (missing viewBox or width/height)")
	}
	icon.ViewBox = vb

	scale := float64(SVGRenderDPI) / cssPixelsPerInch
	w := max(1, int(math.Round(width*scale)))
	h := max(1, int(math.Round(height*scale)))

	icon.SetTarget(0, 0, float64(w), float64(h))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	scanner := rasterx.NewScannerGV(w, h, img, img.Bounds())
	icon.Draw(rasterx.NewDasher(w, h, scanner), 1.0)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}

func readSVGRoot(data []byte) (svgRoot, error) {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	decoder.CharsetReader = charset.NewReaderLabel
	for {
		tok, err := decoder.Token()
		if err != nil {
			return svgRoot{}, err
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if start.Name.Local != "svg" {
			return svgRoot{}, fmt.Errorf("root element is <%s>, not <svg>", start.Name.Local)
		}
		var root svgRoot
		for _, attr := range start.Attr {
			switch attr.Name.Local {
			case "width":
				root.Width = attr.Value
			case "height":
				root.Height = attr.Value
			case "viewBox":
				root.ViewBox = attr.Value
			}
		}
		return root, nil
	}
}

// svgGeometry returns the user coordinate system and the rendered size in
// CSS pixels.
func svgGeometry(root svgRoot) (vb viewBox, width, height float64, ok bool) {
	vb, hasViewBox := parseViewBox(root.ViewBox)
	w, hasW := parseLength(root.Width)
	h, hasH := parseLength(root.Height)

	switch {
	case hasW && hasH:
		width, height = w, h
	case hasViewBox && hasW:
		width, height = w, w*vb.H/vb.W
	case hasViewBox && hasH:
		width, height = h*vb.W/vb.H, h
	case hasViewBox:
		width, height = vb.W, vb.H
	default:
		return vb, 0, 0, false
	}

	if !hasViewBox {
		vb = viewBox{W: width, H: height}
	}
	return vb, width, height, true
}

func parseViewBox(s string) (viewBox, bool) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	if len(fields) != 4 {
		return viewBox{}, false
	}
	var v [4]float64
	for i, f := range fields {
		n, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return viewBox{}, false
		}
		v[i] = n
	}
	if v[2] <= 0 || v[3] <= 0 {
		return viewBox{}, false
	}
	return viewBox{X: v[0], Y: v[1], W: v[2], H: v[3]}, true
}

// parseLength converts an absolute SVG length to CSS pixels. Percentages and
// font-relative units have no fixed size and report false.
func parseLength(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	i := len(s)
	for i > 0 && (s[i-1] >= 'a' && s[i-1] <= 'z' || s[i-1] >= 'A' && s[i-1] <= 'Z') {
		i--
	}
	perUnit, ok := cssUnits[strings.ToLower(s[i:])]
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(s[:i]), 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n * perUnit, true
}
