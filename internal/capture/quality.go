// Package capture decides whether a captured frame is good enough to run OCR
// on.
package capture

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"math"

	"gonum.org/v1/gonum/stat"
)

// ErrUndecodableFrame is returned when a frame is not a JPEG or PNG image.
var ErrUndecodableFrame = errors.New("capture: frame is not a decodable image")

// Thresholds defines the limits a frame must meet
type Thresholds struct {
	// Minimum Laplacian variance; lower values mean a blurry frame
	MinSharpness float64

	// Mean gray level bounds (0-255)
	MinBrightness float64
	MaxBrightness float64

	// Resolution of the MRZ crop or full frame
	MinWidth  int
	MinHeight int

	// Skew beyond this many degrees is reported as a warning
	MaxSkewAngle float64
}

// DefaultThresholds returns thresholds tuned for MRZ crops from a webcam.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinSharpness:  100.0,
		MinBrightness: 40.0,
		MaxBrightness: 235.0,
		MinWidth:      320,
		MinHeight:     100,
		MaxSkewAngle:  5.0,
	}
}

// Severity of a quality issue
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue represents a quality validation issue
type Issue struct {
	Type        string   `json:"type"`
	Message     string   `json:"message"`
	Severity    Severity `json:"severity"`
	ActualValue float64  `json:"actual_value,omitempty"`
	Threshold   float64  `json:"threshold,omitempty"`
}

// Assessment is the measured quality of one frame.
type Assessment struct {
	Width      int      `json:"width"`
	Height     int      `json:"height"`
	Sharpness  float64  `json:"sharpness"`
	Brightness float64  `json:"brightness"`
	SkewAngle  *float64 `json:"skew_angle,omitempty"`
	Issues     []Issue  `json:"issues,omitempty"`
}

// Usable reports whether the frame has no error-level issues.
func (a Assessment) Usable() bool {
	for _, issue := range a.Issues {
		if issue.Severity == SeverityError {
			return false
		}
	}
	return true
}

// Messages flattens the issues into human-readable strings.
func (a Assessment) Messages() []string {
	messages := make([]string, 0, len(a.Issues))
	for _, issue := range a.Issues {
		messages = append(messages, issue.Message)
	}
	return messages
}

// Assessor measures frames against fixed thresholds.
type Assessor struct {
	thresholds Thresholds
}

// NewAssessor creates an assessor with the given thresholds.
func NewAssessor(thresholds Thresholds) *Assessor {
	return &Assessor{thresholds: thresholds}
}

// AssessBytes decodes an encoded JPEG or PNG frame and assesses it.
func (a *Assessor) AssessBytes(frame []byte) (Assessment, error) {
	img, _, err := image.Decode(bytes.NewReader(frame))
	if err != nil {
		return Assessment{}, fmt.Errorf("%w: %v", ErrUndecodableFrame, err)
	}
	return a.Assess(img), nil
}

// Assess measures img and records every threshold it violates.
func (a *Assessor) Assess(img image.Image) Assessment {
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	draw.Draw(gray, bounds, img, bounds.Min, draw.Src)

	result := Assessment{
		Width:      bounds.Dx(),
		Height:     bounds.Dy(),
		Sharpness:  laplacianVariance(gray),
		Brightness: brightness(gray),
		SkewAngle:  detectSkew(gray),
	}

	th := a.thresholds
	if result.Width < th.MinWidth || result.Height < th.MinHeight {
		result.Issues = append(result.Issues, Issue{
			Type:        "resolution",
			Message:     fmt.Sprintf("frame too small: %dx%d (minimum %dx%d)", result.Width, result.Height, th.MinWidth, th.MinHeight),
			Severity:    SeverityError,
			ActualValue: float64(result.Width * result.Height),
			Threshold:   float64(th.MinWidth * th.MinHeight),
		})
	}
	if result.Sharpness < th.MinSharpness {
		result.Issues = append(result.Issues, Issue{
			Type:        "blur",
			Message:     "frame is too blurry to read",
			Severity:    SeverityError,
			ActualValue: result.Sharpness,
			Threshold:   th.MinSharpness,
		})
	}
	if result.Brightness < th.MinBrightness {
		result.Issues = append(result.Issues, Issue{
			Type:        "too_dark",
			Message:     "frame is too dark",
			Severity:    SeverityError,
			ActualValue: result.Brightness,
			Threshold:   th.MinBrightness,
		})
	}
	if result.Brightness > th.MaxBrightness {
		result.Issues = append(result.Issues, Issue{
			Type:        "too_bright",
			Message:     "frame is overexposed",
			Severity:    SeverityError,
			ActualValue: result.Brightness,
			Threshold:   th.MaxBrightness,
		})
	}
	if result.SkewAngle != nil && math.Abs(*result.SkewAngle) > th.MaxSkewAngle {
		result.Issues = append(result.Issues, Issue{
			Type:        "skew",
			Message:     fmt.Sprintf("document is tilted by %.1f degrees", *result.SkewAngle),
			Severity:    SeverityWarning,
			ActualValue: *result.SkewAngle,
			Threshold:   th.MaxSkewAngle,
		})
	}

	return result
}

// laplacianVariance is the variance of the 4-neighbour Laplacian response.
func laplacianVariance(gray *image.Gray) float64 {
	bounds := gray.Bounds()
	if bounds.Dx() < 3 || bounds.Dy() < 3 {
		return 0
	}

	data := make([]float64, 0, (bounds.Dx()-2)*(bounds.Dy()-2))
	for y := bounds.Min.Y + 1; y < bounds.Max.Y-1; y++ {
		for x := bounds.Min.X + 1; x < bounds.Max.X-1; x++ {
			center := float64(gray.GrayAt(x, y).Y)
			top := float64(gray.GrayAt(x, y-1).Y)
			bottom := float64(gray.GrayAt(x, y+1).Y)
			left := float64(gray.GrayAt(x-1, y).Y)
			right := float64(gray.GrayAt(x+1, y).Y)
			data = append(data, -4*center+top+bottom+left+right)
		}
	}
	return stat.Variance(data, nil)
}

func brightness(gray *image.Gray) float64 {
	bounds := gray.Bounds()
	if bounds.Empty() {
		return 0
	}
	var total float64
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			total += float64(gray.GrayAt(x, y).Y)
		}
	}
	return total / float64(bounds.Dx()*bounds.Dy())
}

// detectSkew fits a line through strong horizontal edges (text baselines) and
// returns its angle in degrees, or nil when there are too few edges.
func detectSkew(gray *image.Gray) *float64 {
	bounds := gray.Bounds()
	var xs, ys []float64
	for y := bounds.Min.Y + 1; y < bounds.Max.Y-1; y++ {
		for x := bounds.Min.X + 1; x < bounds.Max.X-1; x++ {
			gy := sobelY(gray, x, y)
			gx := sobelX(gray, x, y)
			// Only edges that are predominantly horizontal.
			if gy*gy > 2500 && abs(gy) > 2*abs(gx) {
				xs = append(xs, float64(x))
				ys = append(ys, float64(y))
			}
		}
	}
	if len(xs) < 10 {
		return nil
	}

	_, slope := stat.LinearRegression(xs, ys, nil, false)
	angle := math.Atan(slope) * 180 / math.Pi
	if math.IsNaN(angle) || math.IsInf(angle, 0) {
		return nil
	}
	return &angle
}

func sobelX(gray *image.Gray, x, y int) int {
	return -int(gray.GrayAt(x-1, y-1).Y) + int(gray.GrayAt(x+1, y-1).Y) +
		-2*int(gray.GrayAt(x-1, y).Y) + 2*int(gray.GrayAt(x+1, y).Y) +
		-int(gray.GrayAt(x-1, y+1).Y) + int(gray.GrayAt(x+1, y+1).Y)
}

func sobelY(gray *image.Gray, x, y int) int {
	return -int(gray.GrayAt(x-1, y-1).Y) - 2*int(gray.GrayAt(x, y-1).Y) - int(gray.GrayAt(x+1, y-1).Y) +
		int(gray.GrayAt(x-1, y+1).Y) + 2*int(gray.GrayAt(x, y+1).Y) + int(gray.GrayAt(x+1, y+1).Y)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
