package model

import "fmt"

// ElementID identifies an element inside a host document.
type ElementID int64

// InvalidElementID marks the absence of an element, e.g. the link component
// of a surface that lives in the host document itself.
const InvalidElementID ElementID = -1

// Valid reports whether id refers to an element.
func (id ElementID) Valid() bool {
	return id != InvalidElementID
}

// ElementHandle identifies an element created by a placement.
type ElementHandle string

// SurfaceKey is the composite identity of a wall. Two records refer to the
// same wall iff both components match. Link is InvalidElementID for walls of
// the host document and the link instance id for walls seen through a link.
type SurfaceKey struct {
	Element ElementID `json:"element"`
	Link    ElementID `json:"link"`
}

// HostSurface returns the key of a wall owned by the host document.
func HostSurface(id ElementID) SurfaceKey {
	return SurfaceKey{Element: id, Link: InvalidElementID}
}

// LinkedSurface returns the key of a wall owned by the linked document
// placed by link instance link.
func LinkedSurface(link, id ElementID) SurfaceKey {
	return SurfaceKey{Element: id, Link: link}
}

// IsLinked reports whether the surface is seen through a link instance.
func (k SurfaceKey) IsLinked() bool {
	return k.Link.Valid()
}

// Less orders keys by link, then element.
func (k SurfaceKey) Less(o SurfaceKey) bool {
	if k.Link != o.Link {
		return k.Link < o.Link
	}
	return k.Element < o.Element
}

func (k SurfaceKey) String() string {
	if k.IsLinked() {
		return fmt.Sprintf("%d@link:%d", k.Element, k.Link)
	}
	return fmt.Sprintf("%d", k.Element)
}

// SurfaceRef is a raw reference to a struck surface as reported by a ray
// query. Several refs (one per face) may share the same Key.
type SurfaceRef struct {
	Key  SurfaceKey `json:"key"`
	Face int        `json:"face"`
}
