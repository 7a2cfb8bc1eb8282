package gps

import (
	"strings"

	nmea "github.com/adrianmo/go-nmea"
)

// ParseLine parses one line from the receiver and returns a Fix when the
// line carries an RMC sentence. Blank lines, non-NMEA noise, checksum
// failures and other sentence types (GGA, GSA, ...) report ok=false.
func ParseLine(line string) (Fix, bool) {
	line = strings.TrimSpace(line)
	if line == "" || !strings.HasPrefix(line, "$") {
		return Fix{}, false
	}

	sentence, err := nmea.Parse(line)
	if err != nil {
		// noisy GPS or partial sentences
		return Fix{}, false
	}

	if sentence.DataType() != nmea.TypeRMC {
		return Fix{}, false
	}
	m := sentence.(nmea.RMC)

	return Fix{
		Time:       m.Time.String(),
		Date:       m.Date.String(),
		Latitude:   m.Latitude,
		Longitude:  m.Longitude,
		SpeedKnots: m.Speed,
		CourseDeg:  m.Course,
		Validity:   string(m.Validity),
	}, true
}
