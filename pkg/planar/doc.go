// Package planar maintains the planar curve database: the canonical set of
// placements, the projection of every member curve onto its placement, the
// symmetric "touched" graph between intersecting coplanar curves, and the
// fragments each curve is cut into.
//
// Database methods that mutate state must run on the store's single-writer
// queue. The read accessors are safe to call from anywhere but may observe
// a pass in progress.
package planar
