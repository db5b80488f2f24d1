// Package store holds the document items of a curvenet session: user
// curves and the fragments and regions derived from them. All mutations of
// the curve network are serialised through the store's single-writer Queue.
package store
