package angle

import "math"

const TwoPi = 2 * math.Pi

// PlusMinusPi is an angle in radians, stored as a value in range (-π, π].
// All operations wrap their output into range.
type PlusMinusPi struct {
	float64
}

func (a PlusMinusPi) Add(b PlusMinusPi) PlusMinusPi {
	return FromFloat(a.float64 + b.float64)
}

func (a PlusMinusPi) Sub(b PlusMinusPi) PlusMinusPi {
	return FromFloat(a.float64 - b.float64)
}

func (a PlusMinusPi) AddFloat(f float64) PlusMinusPi {
	return FromFloat(a.float64 + f)
}

// Float returns the angle in radians, range (-π, π].
func (a PlusMinusPi) Float() float64 {
	return a.float64
}

// FromFloat converts a float of any magnitude to a PlusMinusPi by calculating
// f mod 2π and shifting into range.
func FromFloat(f float64) PlusMinusPi {
	d := math.Mod(f, TwoPi)
	if d <= -math.Pi {
		d += TwoPi
	} else if d > math.Pi {
		d -= TwoPi
	}
	return PlusMinusPi{d}
}

// Heading is a compass-style angle in radians, range [0, 2π).
type Heading struct {
	float64
}

func HeadingFromFloat(f float64) Heading {
	d := math.Mod(f, TwoPi)
	if d < 0 {
		d += TwoPi
	}
	if d >= TwoPi {
		// -tiny + 2π rounds up to exactly 2π.
		d = 0
	}
	return Heading{d}
}

func (h Heading) AddFloat(f float64) Heading {
	return HeadingFromFloat(h.float64 + f)
}

// Sub returns the shortest signed rotation from b to h.
func (h Heading) Sub(b Heading) PlusMinusPi {
	return FromFloat(h.float64 - b.float64)
}

func (h Heading) Float() float64 {
	return h.float64
}

// Degrees is for log output only.
func (h Heading) Degrees() float64 {
	return h.float64 * 180 / math.Pi
}
