// Package model defines the value types shared by the hole placement
// pipeline: element identities, conduits and their cross-sections,
// centerlines, crossings and hole requests.
package model
