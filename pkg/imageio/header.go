package imageio

import "github.com/abworrall/dust-sed/pkg/coords"

// Overrides is a Header where keywords in Top win over those in Base. It
// is how a config can fix up or supply WCS keywords, e.g. forcing an NCP
// projection onto a radio map.
type Overrides struct {
	Top  coords.MapHeader
	Base coords.Header
}

func WithOverrides(base coords.Header, top coords.MapHeader) coords.Header {
	if len(top) == 0 {
		return base
	}
	if base == nil {
		return top
	}
	return Overrides{Top: top, Base: base}
}

func (o Overrides) Float(key string) (float64, bool) {
	if v, ok := o.Top.Float(key); ok {
		return v, true
	}
	return o.Base.Float(key)
}

func (o Overrides) String(key string) (string, bool) {
	if v, ok := o.Top.String(key); ok {
		return v, true
	}
	return o.Base.String(key)
}
