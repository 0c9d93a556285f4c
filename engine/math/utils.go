package math

import (
	gomath "math"

	"golang.org/x/exp/constraints"
)

const (
	PI         float32 = gomath.Pi
	DEG2RAD    float32 = PI / 180.0
	FLOAT_EPS  float32 = 1.192092896e-07
	HALF_PI    float32 = PI / 2.0
	TWO_PI     float32 = PI * 2.0
	INFINITY32 float32 = gomath.MaxFloat32
)

// Clamp returns the value `f` clamped to the range [low, high].
// It works for any numeric type (integers and floats).
func Clamp[T constraints.Ordered](f, low, high T) T {
	if f < low {
		return low
	}
	if f > high {
		return high
	}
	return f
}

func Abs[T constraints.Signed | constraints.Float](v T) T {
	if v < 0 {
		return -v
	}
	return v
}

func DegToRad(deg float32) float32 {
	return deg * DEG2RAD
}

func Sqrt(x float32) float32 { return float32(gomath.Sqrt(float64(x))) }
func Sin(x float32) float32  { return float32(gomath.Sin(float64(x))) }
func Cos(x float32) float32  { return float32(gomath.Cos(float64(x))) }
func Tan(x float32) float32  { return float32(gomath.Tan(float64(x))) }
func Asin(x float32) float32 { return float32(gomath.Asin(float64(x))) }
func Atan2(y, x float32) float32 {
	return float32(gomath.Atan2(float64(y), float64(x)))
}
func Round(x float32) float32 { return float32(gomath.Round(float64(x))) }

// CopySign returns |mag| carrying the sign of sign.
func CopySign(mag, sign float32) float32 {
	return float32(gomath.Copysign(float64(mag), float64(sign)))
}
