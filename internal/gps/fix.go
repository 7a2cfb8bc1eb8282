// Package gps turns NMEA sentences from a serial GPS receiver into
// compact fix records for JSON and MQTT.
package gps

// Fix is one combined position/velocity report, built from an RMC
// sentence by ParseLine.
type Fix struct {
	Time       string  `json:"time"`        // e.g. "12:34:56"
	Date       string  `json:"date"`        // receiver-reported date
	Latitude   float64 `json:"lat"`         // decimal degrees, south negative
	Longitude  float64 `json:"lon"`         // decimal degrees, west negative
	SpeedKnots float64 `json:"speed_knots"` // speed over ground
	CourseDeg  float64 `json:"course_deg"`  // course over ground
	Validity   string  `json:"validity"`    // "A" (valid) / "V" (void)
}
