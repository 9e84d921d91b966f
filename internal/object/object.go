package object

// Transform positions a visual object on the canvas.
type Transform struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	ScaleX   float64 `json:"scaleX,omitempty"`
	ScaleY   float64 `json:"scaleY,omitempty"`
	Rotation float64 `json:"rotation,omitempty"`
}

// Visual is one object of a layout: a table, a stage, a label.
// Attrs holds whatever else the renderer needs and is never interpreted here.
// Only the id is validated; geometry is whatever the editor produced.
type Visual struct {
	ID   string `json:"id" validate:"required,max=256"`
	Type string `json:"type,omitempty"`
	Transform
	Width  float64        `json:"width,omitempty"`
	Height float64        `json:"height,omitempty"`
	Attrs  map[string]any `json:"attrs,omitempty"`
}

// Clone returns a copy that shares no top-level attribute map with v.
func (v Visual) Clone() Visual {
	if v.Attrs != nil {
		attrs := make(map[string]any, len(v.Attrs))
		for k, val := range v.Attrs {
			attrs[k] = val
		}
		v.Attrs = attrs
	}
	return v
}
