package gps

import (
	"encoding/json"
	"fmt"
)

type Coordinates struct {
	lat  float64
	long float64
}

func NewCoordinates(lat, long float64) *Coordinates {
	return &Coordinates{lat: lat, long: long}
}

func (c *Coordinates) Lat() float64 {
	return c.lat
}

func (c *Coordinates) Long() float64 {
	return c.long
}

// IsValid reports whether the coordinates denote an actual position on
// the globe. The zero value (0,0) is treated as unset, EXIF writers
// commonly emit it for missing GPS data.
func (c *Coordinates) IsValid() bool {
	if c == nil {
		return false
	}
	if c.lat == 0 && c.long == 0 {
		return false
	}
	return c.lat >= -90 && c.lat <= 90 && c.long >= -180 && c.long <= 180
}

func (c Coordinates) String() string {
	return fmt.Sprintf("[%f;%f]", c.lat, c.long)
}

func (c *Coordinates) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Lat  float64 `json:"lat"`
		Long float64 `json:"long"`
	}{
		Lat:  c.lat,
		Long: c.long,
	})
}

func (c *Coordinates) UnmarshalJSON(buf []byte) error {
	var v struct {
		Lat  float64 `json:"lat"`
		Long float64 `json:"long"`
	}
	if err := json.Unmarshal(buf, &v); err != nil {
		return err
	}
	c.lat = v.Lat
	c.long = v.Long
	return nil
}
