// Package mgrs converts WGS84 latitude/longitude pairs into Military Grid
// Reference System strings. UTM is used between 80S and 84N, UPS elsewhere.
// Easting and northing are rounded half-to-even at the requested precision.
package mgrs

import (
	"fmt"
	"math"
	"strings"
)

const (
	// DefaultPrecision yields 1 m easting/northing digits.
	DefaultPrecision = 5
	// MaxPrecision is the finest supported digit count per axis.
	MaxPrecision = 5

	semiMajorAxis = 6378137.0
	flattening    = 1 / 298.257223563

	utmScale         = 0.9996
	utmFalseEasting  = 500000.0
	utmFalseNorthing = 10000000.0

	upsScale    = 0.994
	upsFalseOff = 2000000.0

	squareSize = 100000.0
	rowCycle   = 2000000.0

	minUTMLat = -80.0
	maxUTMLat = 84.0
)

const (
	latitudeBands = "CDEFGHJKLMNPQRSTUVWX"
	rowLetters    = "ABCDEFGHJKLMNPQRSTUV"
)

var columnSets = [3]string{"ABCDEFGH", "JKLMNPQR", "STUVWXYZ"}

var (
	eccSquared       = flattening * (2 - flattening)
	eccentricity     = math.Sqrt(eccSquared)
	eccPrimeSquared  = eccSquared / (1 - eccSquared)
	meridianArcCoeff = [4]float64{
		1 - eccSquared/4 - 3*eccSquared*eccSquared/64 - 5*math.Pow(eccSquared, 3)/256,
		3*eccSquared/8 + 3*eccSquared*eccSquared/32 + 45*math.Pow(eccSquared, 3)/1024,
		15*eccSquared*eccSquared/256 + 45*math.Pow(eccSquared, 3)/1024,
		35 * math.Pow(eccSquared, 3) / 3072,
	}
)

// Converter turns coordinates into MGRS references at a fixed precision.
// It holds no mutable state and is safe for concurrent use.
type Converter struct {
	precision int
	divisor   float64
}

// New creates a converter emitting precision digits per axis (0..5).
func New(precision int) (*Converter, error) {
	if precision < 0 || precision > MaxPrecision {
		return nil, fmt.Errorf("mgrs precision must be between 0 and %d, got %d", MaxPrecision, precision)
	}
	return &Converter{
		precision: precision,
		divisor:   math.Pow10(MaxPrecision - precision),
	}, nil
}

// Precision returns the digit count per axis.
func (c *Converter) Precision() int {
	return c.precision
}

// Convert returns the grid reference for lat/lon given in decimal degrees.
func (c *Converter) Convert(lat, lon float64) (string, error) {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return "", &ConversionError{Lat: lat, Lon: lon, Reason: "coordinates must be finite"}
	}
	if lat < -90 || lat > 90 {
		return "", &ConversionError{Lat: lat, Lon: lon, Reason: "latitude outside [-90, 90]"}
	}
	if lon < -180 || lon > 180 {
		return "", &ConversionError{Lat: lat, Lon: lon, Reason: "longitude outside [-180, 180]"}
	}
	if lon == 180 {
		lon = -180
	}

	if lat < minUTMLat || lat > maxUTMLat {
		return c.fromUPS(lat, lon), nil
	}
	return c.fromUTM(lat, lon), nil
}

func (c *Converter) fromUTM(lat, lon float64) string {
	zone := utmZone(lat, lon)
	easting, northing := toUTM(lat, lon, zone)
	easting, northing = c.round(easting), c.round(northing)

	set := (zone - 1) % 3
	column := int(math.Floor(easting/squareSize)) - 1
	rowOffset := 0
	if zone%2 == 0 {
		rowOffset = 5
	}
	row := (int(math.Floor(math.Mod(northing, rowCycle)/squareSize)) + rowOffset) % len(rowLetters)

	var b strings.Builder
	fmt.Fprintf(&b, "%02d", zone)
	b.WriteByte(latitudeBand(lat))
	b.WriteByte(columnSets[set][clamp(column, 0, len(columnSets[set])-1)])
	b.WriteByte(rowLetters[row])
	c.writeDigits(&b, easting, northing)
	return b.String()
}

func (c *Converter) fromUPS(lat, lon float64) string {
	easting, northing := toUPS(lat, lon)
	easting, northing = c.round(easting), c.round(northing)

	// The zone letter follows the rounded easting, so points that round onto
	// the 2,000,000 m meridian use the eastern table.
	var table upsBand
	switch {
	case lat > 0 && easting < upsFalseOff:
		table = upsBands['Y']
	case lat > 0:
		table = upsBands['Z']
	case easting < upsFalseOff:
		table = upsBands['A']
	default:
		table = upsBands['B']
	}

	row := int((northing - table.falseNorthing) / squareSize)
	if row > letterIndex('H') {
		row++
	}
	if row > letterIndex('N') {
		row++
	}

	column := letterIndex(table.columnLow) + int((easting-table.falseEasting)/squareSize)
	if easting < upsFalseOff {
		if column > letterIndex('L') {
			column += 3
		}
		if column > letterIndex('U') {
			column += 2
		}
	} else {
		if column > letterIndex('C') {
			column += 2
		}
		if column > letterIndex('H') {
			column++
		}
		if column > letterIndex('L') {
			column += 3
		}
	}

	var b strings.Builder
	b.WriteByte(table.letter)
	b.WriteByte(byte('A' + clamp(column, 0, 25)))
	b.WriteByte(byte('A' + clamp(row, 0, 25)))
	c.writeDigits(&b, easting, northing)
	return b.String()
}

// round snaps a metric value to the grid unit of the configured precision.
// Letters are derived from the rounded value so carries move into the next
// square.
func (c *Converter) round(v float64) float64 {
	return math.RoundToEven(v/c.divisor) * c.divisor
}

func (c *Converter) writeDigits(b *strings.Builder, easting, northing float64) {
	if c.precision == 0 {
		return
	}
	e := int(math.Round(math.Mod(easting, squareSize) / c.divisor))
	n := int(math.Round(math.Mod(northing, squareSize) / c.divisor))
	fmt.Fprintf(b, "%0*d%0*d", c.precision, e, c.precision, n)
}

type upsBand struct {
	letter        byte
	columnLow     byte
	falseEasting  float64
	falseNorthing float64
}

var upsBands = map[byte]upsBand{
	'A': {letter: 'A', columnLow: 'J', falseEasting: 800000, falseNorthing: 800000},
	'B': {letter: 'B', columnLow: 'A', falseEasting: 2000000, falseNorthing: 800000},
	'Y': {letter: 'Y', columnLow: 'J', falseEasting: 800000, falseNorthing: 1300000},
	'Z': {letter: 'Z', columnLow: 'A', falseEasting: 2000000, falseNorthing: 1300000},
}

func utmZone(lat, lon float64) int {
	zone := int(math.Floor((lon+180)/6)) + 1
	if zone > 60 {
		zone = 60
	}
	// Norway and Svalbard exceptions.
	if lat >= 56 && lat < 64 && lon >= 3 && lon < 12 {
		return 32
	}
	if lat >= 72 && lat <= 84 && lon >= 0 && lon < 42 {
		switch {
		case lon < 9:
			return 31
		case lon < 21:
			return 33
		case lon < 33:
			return 35
		default:
			return 37
		}
	}
	return zone
}

func latitudeBand(lat float64) byte {
	index := int(math.Floor((lat - minUTMLat) / 8))
	return latitudeBands[clamp(index, 0, len(latitudeBands)-1)]
}

func toUTM(lat, lon float64, zone int) (float64, float64) {
	phi := lat * math.Pi / 180
	centralMeridian := float64((zone-1)*6-180+3) * math.Pi / 180
	lambda := lon * math.Pi / 180

	sinPhi, cosPhi := math.Sincos(phi)
	tanPhi := math.Tan(phi)

	n := semiMajorAxis / math.Sqrt(1-eccSquared*sinPhi*sinPhi)
	t := tanPhi * tanPhi
	cc := eccPrimeSquared * cosPhi * cosPhi
	a := cosPhi * (lambda - centralMeridian)

	m := semiMajorAxis * (meridianArcCoeff[0]*phi -
		meridianArcCoeff[1]*math.Sin(2*phi) +
		meridianArcCoeff[2]*math.Sin(4*phi) -
		meridianArcCoeff[3]*math.Sin(6*phi))

	a2 := a * a
	a3 := a2 * a
	a4 := a3 * a
	a5 := a4 * a
	a6 := a5 * a

	easting := utmScale*n*(a+(1-t+cc)*a3/6+(5-18*t+t*t+72*cc-58*eccPrimeSquared)*a5/120) + utmFalseEasting
	northing := utmScale * (m + n*tanPhi*(a2/2+(5-t+9*cc+4*cc*cc)*a4/24+(61-58*t+t*t+600*cc-330*eccPrimeSquared)*a6/720))
	if lat < 0 {
		northing += utmFalseNorthing
	}
	return easting, northing
}

func toUPS(lat, lon float64) (float64, float64) {
	north := lat > 0
	phi := math.Abs(lat) * math.Pi / 180
	lambda := lon * math.Pi / 180

	esin := eccentricity * math.Sin(phi)
	t := math.Tan(math.Pi/4-phi/2) / math.Pow((1-esin)/(1+esin), eccentricity/2)
	rho := 2 * semiMajorAxis * upsScale * t /
		math.Sqrt(math.Pow(1+eccentricity, 1+eccentricity)*math.Pow(1-eccentricity, 1-eccentricity))

	easting := upsFalseOff + rho*math.Sin(lambda)
	if north {
		return easting, upsFalseOff - rho*math.Cos(lambda)
	}
	return easting, upsFalseOff + rho*math.Cos(lambda)
}

func letterIndex(letter byte) int {
	return int(letter - 'A')
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
