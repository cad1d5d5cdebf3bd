// Package joystick implements the on-screen joystick: pointer tracking, clamping, and normalization.
package joystick

import "math"

// Point is a position or offset in client pixels.
type Point struct {
	X float64
	Y float64
}

// Rect is the bounding box of the joystick base in client pixels.
type Rect struct {
	X float64
	Y float64
	W float64
	H float64
}

// Center returns the center point of the rectangle.
func (r Rect) Center() Point {
	return Point{X: r.X + r.W/2, Y: r.Y + r.H/2}
}

// Vector is a normalized stick position, each axis in [-1, 1] with up positive.
type Vector struct {
	X float64
	Y float64
}

// IsZero reports whether the vector is at rest.
func (v Vector) IsZero() bool {
	return v.X == 0 && v.Y == 0
}

// Clamp limits offset to a circle of radius maxDistance, preserving its angle.
func Clamp(offset Point, maxDistance float64) Point {
	distance := math.Hypot(offset.X, offset.Y)
	if distance <= maxDistance || distance == 0 {
		return offset
	}
	return Point{
		X: (offset.X / distance) * maxDistance,
		Y: (offset.Y / distance) * maxDistance,
	}
}

// Normalize scales a clamped offset into [-1, 1], inverting Y so screen-up is positive.
func Normalize(offset Point, maxDistance float64) Vector {
	if maxDistance <= 0 {
		return Vector{}
	}
	return Vector{
		X: offset.X / maxDistance,
		Y: -offset.Y / maxDistance,
	}
}
