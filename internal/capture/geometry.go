package capture

// Transform positions a draw in model space: translate, then rotate about
// the Z axis. Angles are limited to 90-degree steps.
type Transform struct {
	TranslateX float64
	TranslateY float64
	Angle      int // degrees clockwise, one of 0/90/180/270
}

// IsIdentity reports whether the transform leaves coordinates unchanged.
func (t Transform) IsIdentity() bool {
	return t.TranslateX == 0 && t.TranslateY == 0 && t.Angle == 0
}

// NormalizeRotation maps a reported rotation to the supported 90-degree
// steps. Anything outside the contract degrades to 0 rather than producing
// an undefined transform.
func NormalizeRotation(degrees int) int {
	switch degrees {
	case 0, 90, 180, 270:
		return degrees
	default:
		return 0
	}
}

// EffectiveDimensions returns the capture size as downstream consumers must
// see it: raw texture dimensions with display rotation applied. Raw
// dimensions never leak past this function.
func EffectiveDimensions(rawW, rawH uint32, rotationDegrees int) (uint32, uint32) {
	if NormalizeRotation(rotationDegrees)%180 == 0 {
		return rawW, rawH
	}
	return rawH, rawW
}

// RenderTransform returns the model-space transform that places a raw
// (pre-rotation) texture correctly on a display rotated by rotationDegrees.
func RenderTransform(rotationDegrees int, rawW, rawH uint32) Transform {
	switch NormalizeRotation(rotationDegrees) {
	case 90:
		return Transform{TranslateX: float64(rawH), TranslateY: 0, Angle: 90}
	case 180:
		return Transform{TranslateX: float64(rawW), TranslateY: float64(rawH), Angle: 180}
	case 270:
		return Transform{TranslateX: 0, TranslateY: float64(rawW), Angle: 270}
	default:
		return Transform{}
	}
}
