package gps

import "math"

type Rect [4]float64

var WorldBounds = Rect{-180, -90, 180, 90}

func RectFrom(x0, y0, x1, y1 float64) Rect {
	return Rect([4]float64{math.Min(x0, x1), math.Min(y0, y1), math.Max(x0, x1), math.Max(y0, y1)})
}

func (r Rect) W() float64 {
	return r[2] - r[0]
}

func (r Rect) H() float64 {
	return r[3] - r[1]
}

func (r Rect) X0() float64 {
	return r[0]
}

func (r Rect) Y0() float64 {
	return r[1]
}

func (r Rect) Center() Point {
	return Point{(r[0] + r[2]) / 2, (r[1] + r[3]) / 2}
}

type Point [2]float64

func PointFromLatLon(lat, lon float64) Point {
	return Point{lon, lat}
}

func (p Point) X() float64 {
	return p[0]
}

func (p Point) Y() float64 {
	return p[1]
}

func (p Point) In(r Rect) bool {
	return p[0] >= r[0] && p[0] < r[2] && p[1] >= r[1] && p[1] < r[3]
}
