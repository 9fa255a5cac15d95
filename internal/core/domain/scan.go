package domain

import "time"

type ScanStatus string

const (
	ScanUploaded    ScanStatus = "uploaded"
	ScanClassifying ScanStatus = "classifying"
	ScanReady       ScanStatus = "ready"        // prediction at or above the accept threshold
	ScanNeedsReview ScanStatus = "needs_review" // prediction kept, user must rescan or override
	ScanFailed      ScanStatus = "failed"
)

// PermissionState mirrors the platform camera authorization states.
type PermissionState string

const (
	PermissionNotDetermined PermissionState = "not_determined"
	PermissionAuthorized    PermissionState = "authorized"
	PermissionDenied        PermissionState = "denied"
	PermissionRestricted    PermissionState = "restricted"
)

// FoodPrediction is the classifier result for one image. Immutable once
// produced; only a derived MealEntry is ever persisted.
type FoodPrediction struct {
	Label      string         `json:"label"`
	Confidence float64        `json:"confidence"`
	Nutrition  NutritionFacts `json:"nutrition"`
}

// CapturedFrame is a raw still image plus the capture geometry active at
// capture time. Consumed exactly once by the pre-processor.
type CapturedFrame struct {
	Image []byte // encoded still (JPEG or PNG)

	// Pixel dimensions of the still.
	PixelWidth  int
	PixelHeight int

	// Point-based screen dimensions and the on-screen scan-frame side
	// length shown to the user at capture time.
	ScreenWidth  int
	ScreenHeight int
	FrameSide    int

	CapturedAt time.Time
}

// ScanRecord is the durable state of a gallery-submitted scan as it moves
// through the asynchronous pipeline.
type ScanRecord struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	StoragePath string          `json:"storage_path"`
	Status      ScanStatus      `json:"status"`
	Prediction  *FoodPrediction `json:"prediction,omitempty"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
