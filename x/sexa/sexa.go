// Package sexa formats decimal hours and degrees as sexagesimal
// hour-minute-second and degree-arcminute-arcsecond values, the usual
// presentation for right ascension and declination.
package sexa

import "fmt"

// HMS is an hour angle split into hours, minutes and seconds.
type HMS struct {
	Hour int
	Min  int
	Sec  float64
}

// HMSOf splits decimal hours into sexagesimal components.
func HMSOf(hours float64) HMS {
	h := floorInt(hours)
	m := floorInt((hours - float64(h)) * 60)
	s := (hours - float64(h) - float64(m)/60) * 3600
	return HMS{Hour: h, Min: m, Sec: s}
}

// String renders the value as "12h 34m 56.79s".
func (v HMS) String() string {
	return fmt.Sprintf("%02dh %02dm %.2fs", v.Hour, v.Min, v.Sec)
}

// DMS is an angle split into degrees, arcminutes and arcseconds.
type DMS struct {
	Deg int
	Min int
	Sec float64
}

// DMSOf splits decimal degrees into sexagesimal components.
func DMSOf(degrees float64) DMS {
	d := floorInt(degrees)
	m := floorInt((degrees - float64(d)) * 60)
	s := (degrees - float64(d) - float64(m)/60) * 3600
	return DMS{Deg: d, Min: m, Sec: s}
}

// String renders the value as "12° 34′ 56.79″".
func (v DMS) String() string {
	return fmt.Sprintf("%02d° %02d′ %.2f″", v.Deg, v.Min, v.Sec)
}

// floorInt truncates toward negative infinity, so negative angles keep
// their minute and second components positive offsets from the floor.
func floorInt(v float64) int {
	n := int(v)
	if v < 0 && float64(n) != v {
		n--
	}
	return n
}
