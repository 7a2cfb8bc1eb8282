package gps

import (
	"math"
	"testing"

	"github.com/matryer/is"
)

func TestParseLineRMC(t *testing.T) {
	is := is.New(t)

	fix, ok := ParseLine("$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*6A\r\n")
	is.True(ok)
	is.Equal(fix.Validity, "A")
	is.True(math.Abs(fix.Latitude-48.1173) < 1e-4)
	is.True(math.Abs(fix.Longitude-11.5166) < 1e-3)
	is.True(math.Abs(fix.SpeedKnots-22.4) < 1e-9)
	is.True(math.Abs(fix.CourseDeg-84.4) < 1e-9)
	is.True(fix.Time != "")
	is.True(fix.Date != "")
}

func TestParseLineIgnoresNonRMC(t *testing.T) {
	is := is.New(t)

	for _, line := range []string{
		"",
		"garbage without a dollar sign",
		"$GPRMC,123519,A,4807.038,N*00", // bad checksum
		"$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47",
	} {
		_, ok := ParseLine(line)
		is.True(!ok)
	}
}
