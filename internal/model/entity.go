// Package model holds the wire-level and in-memory data types shared by
// every engine: ground-truth entities, observation packets, signed
// envelopes, and fused tracks.
package model

import (
	"github.com/google/uuid"
)

// Vec3 is a 3-vector: position or velocity in meters / meters-per-second.
type Vec3 struct {
	X, Y, Z float64
}

// Add returns the element-wise sum of v and o.
func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

// Scale returns v scaled by s.
func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

// GeoPosition is a global coordinate: latitude/longitude in degrees,
// altitude in meters above a reference datum.
type GeoPosition struct {
	Lat, Lon, Alt float64
}

// Entity is a ground-truth object owned by the simulation oracle.
// Created by the environment, mutated only by physics, destroyed on
// deactivation.
type Entity struct {
	ID         uuid.UUID
	Position   Vec3 // local frame (x, y, z), meters
	Velocity   Vec3 // meters/second
	Class      string
	TimestampMs int64
	Confidence float64 // [0,1]
	Active     bool
}

// Step advances the entity's position by velocity * dt, the only
// mutation physics performs per tick.
func (e *Entity) Step(dtSeconds float64) {
	e.Position = e.Position.Add(e.Velocity.Scale(dtSeconds))
}
