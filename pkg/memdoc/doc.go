// Package memdoc is an in-memory host document. It implements every oracle
// of package host: walls are kernel solids answered by ray tracing, created
// holes are staged in transactions and only become visible on commit.
//
// Linked documents share the host's coordinate system; a wall seen through a
// link is keyed by the link instance id.
package memdoc
