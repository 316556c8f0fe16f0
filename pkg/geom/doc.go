// Package geom is the geometry kernel for kerf: points, circular arcs, paths
// built from them, linearized polygons, and the lossy arc-fitting and line
// simplification used to shrink toolpaths before G-code emission.
//
// All values are immutable. Operations return new values and never modify
// their receivers or arguments.
package geom
