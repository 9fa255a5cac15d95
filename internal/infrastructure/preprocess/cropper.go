package preprocess

import (
	"image"

	"github.com/fitconnect/mealscan/internal/core/domain"
)

type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

// Cropper reduces a captured still to the region shown inside the on-screen
// scan frame, independent of device aspect ratio.
type Cropper struct {
	frameSide    int
	screenWidth  int
	screenHeight int
}

func NewCropper(frameSide, screenWidth, screenHeight int) *Cropper {
	if frameSide <= 0 {
		frameSide = 260
	}
	if screenWidth <= 0 {
		screenWidth = 390
	}
	if screenHeight <= 0 {
		screenHeight = 844
	}
	return &Cropper{
		frameSide:    frameSide,
		screenWidth:  screenWidth,
		screenHeight: screenHeight,
	}
}

// Crop returns the centered square covering what the user aligned inside the
// scan frame. The side length is the frame side scaled by the larger
// pixels-per-point factor of the two axes. If the region does not fit the
// image, the original is returned unchanged rather than failing the pipeline.
func (c *Cropper) Crop(img image.Image, frame domain.CapturedFrame) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	screenW, screenH := frame.ScreenWidth, frame.ScreenHeight
	if screenW <= 0 {
		screenW = c.screenWidth
	}
	if screenH <= 0 {
		screenH = c.screenHeight
	}
	frameSide := frame.FrameSide
	if frameSide <= 0 {
		frameSide = c.frameSide
	}

	side := CropSide(w, h, screenW, screenH, frameSide)
	if side <= 0 || side > w || side > h {
		return img
	}

	x0 := bounds.Min.X + (w-side)/2
	y0 := bounds.Min.Y + (h-side)/2
	region := image.Rect(x0, y0, x0+side, y0+side)

	sub, ok := img.(subImager)
	if !ok {
		return img
	}
	return sub.SubImage(region)
}

// CropSide computes the square side in pixels: frameSide points scaled by the
// larger of the two axis pixel-per-point factors.
func CropSide(imgW, imgH, screenW, screenH, frameSide int) int {
	if imgW <= 0 || imgH <= 0 || screenW <= 0 || screenH <= 0 {
		return 0
	}
	scaleX := float64(imgW) / float64(screenW)
	scaleY := float64(imgH) / float64(screenH)
	scale := scaleX
	if scaleY > scale {
		scale = scaleY
	}
	return int(float64(frameSide)*scale + 0.5)
}
