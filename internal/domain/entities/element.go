package entities

// Point is a position in some coordinate space (frame-local or container-local)
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a width/height pair
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Rect mirrors a DOMRect: position plus size, edges derived
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Right returns the x coordinate of the right edge
func (r Rect) Right() float64 { return r.Left + r.Width }

// Bottom returns the y coordinate of the bottom edge
func (r Rect) Bottom() float64 { return r.Top + r.Height }

// CenterX returns the horizontal center
func (r Rect) CenterX() float64 { return r.Left + r.Width/2 }

// CenterY returns the vertical center
func (r Rect) CenterY() float64 { return r.Top + r.Height/2 }

// Translate returns the rect moved by dx, dy
func (r Rect) Translate(dx, dy float64) Rect {
	r.Left += dx
	r.Top += dy
	return r
}

// ElementRef is the minimal identity of an element in a selection message
type ElementRef struct {
	TagName   string `json:"tagName"`
	ID        string `json:"id"`
	ClassName string `json:"className"`
}

// ElementData is a serializable description of an element living in the frame
// document. It never references a node; consumers re-resolve ElementPath.
type ElementData struct {
	ID             string            `json:"id"`
	TagName        string            `json:"tagName"`
	ClassName      string            `json:"className"`
	TextContent    string            `json:"textContent"`
	ElementPath    string            `json:"elementPath"`
	BoundingRect   Rect              `json:"boundingRect"`
	ComputedStyles map[string]string `json:"computedStyles"`
}

// Key returns the identifier used to tag alignment guides: the element id
// when present, the element path otherwise
func (e ElementData) Key() string {
	if e.ID != "" {
		return e.ID
	}
	return e.ElementPath
}

// Clone returns a deep copy so callers can never share the styles map
func (e ElementData) Clone() ElementData {
	if e.ComputedStyles != nil {
		styles := make(map[string]string, len(e.ComputedStyles))
		for k, v := range e.ComputedStyles {
			styles[k] = v
		}
		e.ComputedStyles = styles
	}
	return e
}

// RemovedElement captures a deleted node and where to put it back
type RemovedElement struct {
	OuterHTML  string `json:"outerHTML"`
	ParentPath string `json:"parentPath"`
	// Index is the child-node position inside the parent before removal
	Index int `json:"index"`
}

// SurfaceGeometry is the layout of a render surface after a resize:
// the uniform scale and where the scaled frame sits in container coordinates
type SurfaceGeometry struct {
	Scale     float64 `json:"scale"`
	Container Size    `json:"container"`
	Frame     Rect    `json:"frame"`
}
