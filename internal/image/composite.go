package image

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"

	"github.com/manash/roomdesign/pkg/models"
)

const handleWidth = 3

var handleColor = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// Wipe renders the compare view: after fills the frame and before covers
// the left position percent of it, with a divider line at the boundary.
// before is scaled to after's size when they differ.
func Wipe(before, after models.Image, position float64) (models.Image, error) {
	afterImg, err := Decode(after)
	if err != nil {
		return models.Image{}, err
	}
	beforeImg, err := Decode(before)
	if err != nil {
		return models.Image{}, err
	}

	bounds := afterImg.Bounds()
	frame := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(frame, frame.Bounds(), afterImg, bounds.Min, draw.Src)

	scaled := image.NewRGBA(frame.Bounds())
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), beforeImg, beforeImg.Bounds(), draw.Src, nil)

	split := SplitColumn(frame.Bounds().Dx(), position)
	if split > 0 {
		clip := image.Rect(0, 0, split, frame.Bounds().Dy())
		draw.Draw(frame, clip, scaled, image.Point{}, draw.Src)
	}

	line := image.Rect(split-handleWidth/2, 0, split-handleWidth/2+handleWidth, frame.Bounds().Dy()).Intersect(frame.Bounds())
	draw.Draw(frame, line, image.NewUniform(handleColor), image.Point{}, draw.Src)

	return EncodePNG(frame)
}

// SplitColumn returns the pixel column at position percent of width.
func SplitColumn(width int, position float64) int {
	switch {
	case position <= 0:
		return 0
	case position >= 100:
		return width
	}
	return int(float64(width) * position / 100)
}
