package theme

import (
	"html"
	"image"
	"os"
	"regexp"
	"strconv"
	"strings"

	//image formats accepted for pixmaps
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

//Metrics measures item content
type Metrics interface {
	//TextSize is the extent of label markup drawn in font
	TextSize(markup, font string) Size
	//ImageSize is the pixel size of an image file
	ImageSize(path string) (int, int, error)
}

//basePoints is the point size the built in face is drawn at
const basePoints = 10

type faceMetrics struct {
	face font.Face
}

//DefaultMetrics measures text with a fixed 7x13 face scaled by the
//point size found at the end of the font description
func DefaultMetrics() Metrics {
	return &faceMetrics{face: basicfont.Face7x13}
}

var markupTag = regexp.MustCompile(`<[^>]*>`)

func (m *faceMetrics) TextSize(markup, desc string) Size {
	text := html.UnescapeString(markupTag.ReplaceAllString(markup, ""))
	scale := float64(fontPoints(desc)) / basePoints
	lineHeight := m.face.Metrics().Height.Ceil()
	s := Size{}
	lines := strings.Split(text, "\n")
	for _, line := range lines {
		if w := font.MeasureString(m.face, line).Ceil(); w > s.Width {
			s.Width = w
		}
	}
	s.Height = lineHeight * len(lines)
	s.Width = int(float64(s.Width) * scale)
	s.Height = int(float64(s.Height) * scale)
	return s
}

func (m *faceMetrics) ImageSize(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()
	c, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, err
	}
	return c.Width, c.Height, nil
}

//fontPoints takes the trailing size of a description like "Sans Bold 12"
func fontPoints(desc string) int {
	fields := strings.Fields(desc)
	if len(fields) == 0 {
		return basePoints
	}
	if n, err := strconv.Atoi(fields[len(fields)-1]); err == nil && n > 0 {
		return n
	}
	return basePoints
}

//fontScale shrinks text on small screens
func fontScale(screenWidth int) float64 {
	switch {
	case screenWidth <= 0:
		return 1
	case screenWidth <= 640:
		return 1 / (1.2 * 1.2)
	case screenWidth <= 800:
		return 1 / 1.2
	}
	return 1
}
