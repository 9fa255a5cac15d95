package webcam

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/fitconnect/mealscan/internal/core/domain"
)

// Source is a webcam-backed capture device. The device is opened lazily on
// StartSession and held until StopSession; Capture grabs one frame and
// encodes it as JPEG. A host webcam has no permission prompt and no torch,
// so RequestAccess probes the device instead and ToggleTorch is a no-op.
type Source struct {
	deviceID     int
	frameSide    int
	screenWidth  int
	screenHeight int

	mu  sync.Mutex
	cam *gocv.VideoCapture
}

func New(deviceID, frameSide, screenWidth, screenHeight int) *Source {
	return &Source{
		deviceID:     deviceID,
		frameSide:    frameSide,
		screenWidth:  screenWidth,
		screenHeight: screenHeight,
	}
}

// RequestAccess opens and immediately releases the device to verify it is
// reachable. An unopenable device reports as denied so callers route to
// their permission-failure path.
func (s *Source) RequestAccess(_ context.Context) (domain.PermissionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cam != nil {
		return domain.PermissionAuthorized, nil
	}
	cam, err := gocv.OpenVideoCapture(s.deviceID)
	if err != nil {
		return domain.PermissionDenied, nil
	}
	if err := cam.Close(); err != nil {
		return "", fmt.Errorf("release probe device: %w", err)
	}
	return domain.PermissionAuthorized, nil
}

func (s *Source) StartSession(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cam != nil {
		return nil
	}
	cam, err := gocv.OpenVideoCapture(s.deviceID)
	if err != nil {
		return domain.WrapError(domain.ErrCaptureFailed, "open camera",
			fmt.Errorf("device %d: %w", s.deviceID, err))
	}
	s.cam = cam
	return nil
}

func (s *Source) Capture(ctx context.Context) (domain.CapturedFrame, error) {
	if err := ctx.Err(); err != nil {
		return domain.CapturedFrame{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cam == nil {
		return domain.CapturedFrame{}, domain.WrapError(domain.ErrCaptureFailed, "capture frame",
			fmt.Errorf("no active camera session"))
	}

	mat := gocv.NewMat()
	defer mat.Close()

	if ok := s.cam.Read(&mat); !ok || mat.Empty() {
		return domain.CapturedFrame{}, domain.WrapError(domain.ErrCaptureFailed, "capture frame",
			fmt.Errorf("device %d returned no frame", s.deviceID))
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, mat)
	if err != nil {
		return domain.CapturedFrame{}, domain.WrapError(domain.ErrCaptureFailed, "encode frame", err)
	}
	defer buf.Close()

	raw := make([]byte, len(buf.GetBytes()))
	copy(raw, buf.GetBytes())

	return domain.CapturedFrame{
		Image:        raw,
		PixelWidth:   mat.Cols(),
		PixelHeight:  mat.Rows(),
		ScreenWidth:  s.screenWidth,
		ScreenHeight: s.screenHeight,
		FrameSide:    s.frameSide,
		CapturedAt:   time.Now().UTC(),
	}, nil
}

// ToggleTorch is a no-op: webcams expose no torch control.
func (s *Source) ToggleTorch(context.Context) error { return nil }

func (s *Source) StopSession() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cam == nil {
		return nil
	}
	err := s.cam.Close()
	s.cam = nil
	if err != nil {
		return fmt.Errorf("close camera: %w", err)
	}
	return nil
}
