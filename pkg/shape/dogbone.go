package shape

import (
	"math"

	"github.com/chazu/kerf/pkg/camerr"
	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/kernel"
)

// DogboneThreshold is the smallest turn, in radians, that gets a relief
// circle.
const DogboneThreshold = math.Pi / 6

// Dogbones adds corner relief to the closed path so that a round tool of
// toolRadius can reach its sharp corners.
//
// For an inside cut the relief circles sit at the convex corners and are
// unioned into the area to clear. For an outside cut they sit at the
// concave corners and are subtracted from the part. Each circle has radius
// toolRadius plus two grid units, lies on the corner bisector on the side
// being cut, and passes through the corner.
func Dogbones(k kernel.Kernel, path geom.Path, toolRadius float64, outside bool, s geom.Settings) ([]geom.Polygon, error) {
	const op = "shape: dogbones"
	if !path.Closed {
		return nil, camerr.InvalidInput(op, "dogbones need a closed path")
	}
	if toolRadius <= 0 {
		return nil, camerr.InvalidInput(op, "tool radius %g must be positive", toolRadius)
	}
	poly := path.Linearize(s).Oriented(true)
	base := []geom.Polygon{poly}
	circles := reliefCircles(poly, toolRadius+2*s.Epsilon(), outside, s)
	if len(circles) == 0 {
		return base, nil
	}
	if outside {
		return k.Difference(base, circles)
	}
	return k.Union(base, circles)
}

// reliefCircles returns one circle per corner of the CCW ring poly that
// turns further than DogboneThreshold towards the side being cut.
func reliefCircles(poly geom.Polygon, radius float64, outside bool, s geom.Settings) []geom.Polygon {
	n := len(poly)
	if n < 3 {
		return nil
	}
	steps := max(s.ArcSteps(radius, 2*math.Pi), 16)
	var circles []geom.Polygon
	for i, v := range poly {
		a, b := poly[(i+n-1)%n], poly[(i+1)%n]
		d1, d2 := v.Sub(a).Unit(), b.Sub(v).Unit()
		if d1 == (geom.Point{}) || d2 == (geom.Point{}) {
			continue
		}
		turn := math.Atan2(d1.Cross(d2), d1.Dot(d2))
		if outside {
			turn = -turn
		}
		if turn <= DogboneThreshold {
			continue
		}
		bis := d2.Sub(d1).Unit()
		c := geom.Circle{Center: v.Add(bis.Scale(radius)), R: radius}
		start := c.Angle(v)
		ring := make(geom.Polygon, steps)
		for j := range ring {
			ring[j] = c.At(start + 2*math.Pi*float64(j)/float64(steps))
		}
		ring[0] = v
		circles = append(circles, ring)
	}
	return circles
}
