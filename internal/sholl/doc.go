// Package sholl owns the radial profile data model shared by the ring
// sampler and the profile statistics.
//
// Responsibilities: profile entries sorted by radius, calibration, the
// string-keyed properties map, radius schedules and small order statistics.
// Key types: Profile, Entry, Point, Calibration.
//
// Dependency rule: sholl never imports sampler or stats. Samplers build a
// Profile, freeze it, and hand it to stats, which only read it.
package sholl
