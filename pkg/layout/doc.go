// Package layout computes layered (Sugiyama-style) layouts for flowcharts.
//
// # Overview
//
// [Build] takes a [flowchart.Graph] and returns a [Layout] in which every
// node has a rank, a position within its rank and pixel coordinates, and
// every edge has a polyline route. Four stages run in sequence on one
// Layout and never revisit an earlier stage:
//
//  1. [AssignRanks]: longest-path-from-root layering with a visit-once
//     depth-first walk
//  2. [Normalize]: edges spanning several ranks are split through
//     zero-sized dummy nodes
//  3. [MinimizeCrossings]: bounded pairwise-swap search within each rank
//  4. [AssignCoordinates]: direction-aware positions and edge routes
//
// Each stage is exported so it can be run and inspected on its own.
//
// # Degenerate input
//
// The engine recovers rather than failing. A graph where every node has an
// incoming edge starts from its first declared node. Nodes no root reaches
// are placed at rank 0. Edges between nodes of the same rank are kept and
// routed straight. An empty graph produces an empty layout. Every recovery
// is recorded in [Stats] so callers can report it.
//
// # Determinism
//
// Given the same graph and options, Build always returns the same layout:
// roots, children and swap candidates are all visited in a fixed order.
//
// # Persistence
//
// [Marshal], [Unmarshal], [WriteFile] and [ReadFile] use a JSON form with a
// node map and an edge list whose points are [x, y] pairs. Dummy nodes are
// left out by default; see [WithDummies].
//
// # Concurrency
//
// The package holds no global state. Separate layouts may be built
// concurrently; a single Layout must not be shared between goroutines while
// a stage runs on it.
package layout
