// Package handle implements the single-owner wrapper around native objects
// that every index and transform type builds on.
//
// A Handle pairs a native pointer with the free function of its kind. It is
// freed exactly once: by Close, by the composite that adopted it, or as a last
// resort by a runtime cleanup when the owning handle became unreachable.
package handle
