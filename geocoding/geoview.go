package geocoding

import (
	"fmt"
	"io"

	"bitbucket.org/kleinnic74/photopost/domain/gps"
	svg "github.com/ajstarks/svgo"
)

var (
	strokeGrid = []string{`stroke="gray"`, `stroke-width="0.2px"`, `fill="none"`}
	strokeCell = []string{`stroke="red"`, `stroke-width="0.1px"`, `fill="none"`}
)

// GeoView renders the coverage of the geocode cache as an SVG map,
// one rectangle per cached cell. Debugging aid, see cmd/geoview.
type GeoView struct {
	canvas *svg.SVG
}

func NewGeoView(out io.Writer) *GeoView {
	return &GeoView{canvas: svg.New(out)}
}

func rectPath(bounds gps.Rect) string {
	return fmt.Sprintf("M %f %f l 0 %f l %f 0 l 0 %f Z", bounds.X0(), bounds.Y0(), bounds.H(), bounds.W(), -bounds.H())
}

func (g *GeoView) Begin(bounds gps.Rect) {
	g.canvas.Startpercent(100, 100, fmt.Sprintf(`viewBox="%f %f %f %f"`, bounds.X0(), bounds.Y0(), bounds.W(), bounds.H()))
	g.canvas.Gtransform("scale(1,-1)")
	g.canvas.Path("M 0 -90 l 0 180", strokeGrid...)
	g.canvas.Path("M -180 0 l 360 0", strokeGrid...)
	g.canvas.Path("M -180 -90 L -180 90 L 180 90 L 180 -90 Z", strokeGrid...)
}

func (g *GeoView) Cell(bounds gps.Rect) {
	g.canvas.Path(rectPath(bounds), strokeCell...)
}

func (g *GeoView) End() {
	g.canvas.Gend()
	g.canvas.End()
}
