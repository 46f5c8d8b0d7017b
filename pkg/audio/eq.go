package audio

import (
	"fmt"
	"math"
)

// EQ band layout: a fixed three-stage chain applied in series during
// live playback. Offline export never runs through the EQ.
const (
	BandLow  = 0 // low shelf, 100 Hz
	BandMid  = 1 // peaking, 1000 Hz, unit bandwidth
	BandHigh = 2 // high shelf, 3000 Hz

	eqBandCount = 3

	// EQGainMinDB and EQGainMaxDB bound per-band gain adjustments.
	EQGainMinDB = -12.0
	EQGainMaxDB = 12.0

	lowShelfFreq  = 100.0
	peakingFreq   = 1000.0
	highShelfFreq = 3000.0
)

// EQ is a three-band playback equalizer. All bands default to 0 dB,
// which is an exact passthrough.
type EQ struct {
	sampleRate int
	gains      [eqBandCount]float64
	filters    [eqBandCount]*biquad
}

// NewEQ creates a flat EQ for the given sample rate.
func NewEQ(sampleRate int) *EQ {
	eq := &EQ{sampleRate: sampleRate}
	eq.Reset()
	return eq
}

// SetBandGain sets one band's gain in decibels.
func (e *EQ) SetBandGain(band int, gainDB float64) error {
	if band < 0 || band >= eqBandCount {
		return fmt.Errorf("invalid EQ band %d", band)
	}
	if gainDB < EQGainMinDB || gainDB > EQGainMaxDB {
		return fmt.Errorf("EQ gain %.1f dB out of range [%.0f, %.0f]", gainDB, EQGainMinDB, EQGainMaxDB)
	}

	e.gains[band] = gainDB
	e.filters[band] = e.makeFilter(band, gainDB)
	return nil
}

// BandGain returns one band's current gain in decibels.
func (e *EQ) BandGain(band int) float64 {
	if band < 0 || band >= eqBandCount {
		return 0
	}
	return e.gains[band]
}

// Reset returns every band to flat (0 dB) and clears filter state.
func (e *EQ) Reset() {
	for band := range e.filters {
		e.gains[band] = 0
		e.filters[band] = e.makeFilter(band, 0)
	}
}

// Process runs samples through the filter chain in place.
func (e *EQ) Process(samples []float32) {
	for _, f := range e.filters {
		if f == nil {
			continue
		}
		f.process(samples)
	}
}

func (e *EQ) makeFilter(band int, gainDB float64) *biquad {
	// Flat bands are skipped entirely rather than run as identity
	// filters.
	if gainDB == 0 {
		return nil
	}

	fs := float64(e.sampleRate)
	switch band {
	case BandLow:
		return newLowShelf(fs, lowShelfFreq, gainDB)
	case BandMid:
		return newPeaking(fs, peakingFreq, 1.0, gainDB)
	default:
		return newHighShelf(fs, highShelfFreq, gainDB)
	}
}

// biquad is a direct-form-I second-order IIR section. Coefficients
// follow the Audio EQ Cookbook (R. Bristow-Johnson).
type biquad struct {
	b0, b1, b2, a1, a2 float64
	x1, x2, y1, y2     float64
}

func (f *biquad) process(samples []float32) {
	for i, x := range samples {
		in := float64(x)
		out := f.b0*in + f.b1*f.x1 + f.b2*f.x2 - f.a1*f.y1 - f.a2*f.y2
		f.x2, f.x1 = f.x1, in
		f.y2, f.y1 = f.y1, out
		samples[i] = float32(out)
	}
}

func newBiquad(b0, b1, b2, a0, a1, a2 float64) *biquad {
	return &biquad{
		b0: b0 / a0,
		b1: b1 / a0,
		b2: b2 / a0,
		a1: a1 / a0,
		a2: a2 / a0,
	}
}

func newLowShelf(fs, freq, gainDB float64) *biquad {
	amp := math.Pow(10, gainDB/40)
	w0 := 2 * math.Pi * freq / fs
	cosW0 := math.Cos(w0)
	// shelf slope S = 1
	alpha := math.Sin(w0) / 2 * math.Sqrt2
	beta := 2 * math.Sqrt(amp) * alpha

	return newBiquad(
		amp*((amp+1)-(amp-1)*cosW0+beta),
		2*amp*((amp-1)-(amp+1)*cosW0),
		amp*((amp+1)-(amp-1)*cosW0-beta),
		(amp+1)+(amp-1)*cosW0+beta,
		-2*((amp-1)+(amp+1)*cosW0),
		(amp+1)+(amp-1)*cosW0-beta,
	)
}

func newHighShelf(fs, freq, gainDB float64) *biquad {
	amp := math.Pow(10, gainDB/40)
	w0 := 2 * math.Pi * freq / fs
	cosW0 := math.Cos(w0)
	alpha := math.Sin(w0) / 2 * math.Sqrt2
	beta := 2 * math.Sqrt(amp) * alpha

	return newBiquad(
		amp*((amp+1)+(amp-1)*cosW0+beta),
		-2*amp*((amp-1)+(amp+1)*cosW0),
		amp*((amp+1)+(amp-1)*cosW0-beta),
		(amp+1)-(amp-1)*cosW0+beta,
		2*((amp-1)-(amp+1)*cosW0),
		(amp+1)-(amp-1)*cosW0-beta,
	)
}

func newPeaking(fs, freq, q, gainDB float64) *biquad {
	amp := math.Pow(10, gainDB/40)
	w0 := 2 * math.Pi * freq / fs
	cosW0 := math.Cos(w0)
	alpha := math.Sin(w0) / (2 * q)

	return newBiquad(
		1+alpha*amp,
		-2*cosW0,
		1-alpha*amp,
		1+alpha/amp,
		-2*cosW0,
		1-alpha/amp,
	)
}
