// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math"
	"math/cmplx"
	"strings"
	"sync"

	"looper/pkg/bitint"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
	"gonum.org/v1/gonum/floats"
)

// WindowFunc defines the type for selecting an FFT window function.
type WindowFunc int

// Enum for available window functions.
const (
	Hann WindowFunc = iota
	Hamming
	Blackman
	BlackmanNuttall
	Nuttall
)

// ParseWindowFunc converts a string name (case-insensitive) to a WindowFunc,
// returns Hann and an error if the name is unknown.
func ParseWindowFunc(name string) (WindowFunc, error) {
	switch strings.ToLower(name) {
	case "hann", "hanning":
		return Hann, nil
	case "hamming":
		return Hamming, nil
	case "blackman":
		return Blackman, nil
	case "blackmannuttall":
		return BlackmanNuttall, nil
	case "nuttall":
		return Nuttall, nil
	default:
		return Hann, fmt.Errorf("unknown FFT window function name: '%s'", name)
	}
}

// Band is a named frequency range of the spectrum display.
type Band struct {
	Name   string
	LowHz  float64
	HighHz float64
}

// Bands is the fixed band layout, low to high. The last band is open ended
// up to Nyquist.
var Bands = [...]Band{
	{Name: "sub", LowHz: 20, HighHz: 60},
	{Name: "bass", LowHz: 60, HighHz: 250},
	{Name: "lowMid", LowHz: 250, HighHz: 500},
	{Name: "mid", LowHz: 500, HighHz: 2000},
	{Name: "highMid", LowHz: 2000, HighHz: 4000},
	{Name: "treble", LowHz: 4000, HighHz: math.Inf(1)},
}

// NumBands is the number of spectrum bands.
const NumBands = len(Bands)

// BandLevels holds one normalized level in [0, 1] per band.
type BandLevels [NumBands]float64

// Spectrum accumulates the looper output into FFT frames and reduces each
// frame to band levels. The FFT workspace belongs to the audio goroutine;
// only the finished band levels are shared.
type Spectrum struct {
	fft        *fourier.FFT
	size       int
	sampleRate float64

	window  []float64
	frame   []float64 // Samples collected for the next transform.
	fill    int
	input   []float64 // Windowed copy of frame.
	coeffs  []complex128
	binBand []int // Band index per bin, -1 when outside every band.
	norm    float64

	energy [NumBands]float64
	counts [NumBands]int

	mu     sync.Mutex
	levels BandLevels
}

// NewSpectrum returns a Spectrum with the given power-of-two FFT size.
func NewSpectrum(size int, sampleRate float64, windowType WindowFunc) (*Spectrum, error) {
	if !bitint.IsPowerOfTwo(size) {
		return nil, fmt.Errorf("fft size must be a power of 2, got %d", size)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %f", sampleRate)
	}

	coeffs := make([]float64, size)
	applyWindow(coeffs, windowType)

	bins := size/2 + 1
	binBand := make([]int, bins)
	for i := range binBand {
		binBand[i] = bandForFrequency(float64(i) * sampleRate / float64(size))
	}

	return &Spectrum{
		fft:        fourier.NewFFT(size),
		size:       size,
		sampleRate: sampleRate,
		window:     coeffs,
		frame:      make([]float64, size),
		input:      make([]float64, size),
		coeffs:     make([]complex128, bins),
		binBand:    binBand,
		norm:       2 / floats.Sum(coeffs), // Full-scale sine reads as 1.
	}, nil
}

func bandForFrequency(hz float64) int {
	for i, b := range Bands {
		if hz >= b.LowHz && hz < b.HighHz {
			return i
		}
	}
	return -1
}

// Process appends block to the current frame and transforms every frame that
// fills up. It does not allocate.
func (s *Spectrum) Process(block []float32) {
	for len(block) > 0 {
		n := copyFloat32(s.frame[s.fill:], block)
		s.fill += n
		block = block[n:]
		if s.fill == s.size {
			s.transform()
			s.fill = 0
		}
	}
}

func copyFloat32(dst []float64, src []float32) int {
	n := min(len(dst), len(src))
	for i := range n {
		dst[i] = float64(src[i])
	}
	return n
}

func (s *Spectrum) transform() {
	floats.MulTo(s.input, s.frame, s.window)
	s.fft.Coefficients(s.coeffs, s.input)

	clear(s.energy[:])
	clear(s.counts[:])
	for i, c := range s.coeffs {
		b := s.binBand[i]
		if b < 0 {
			continue
		}
		mag := cmplx.Abs(c) * s.norm
		s.energy[b] += mag * mag
		s.counts[b]++
	}

	// A reader holding the lock costs us one frame, never a wait.
	if !s.mu.TryLock() {
		return
	}
	for b := range s.levels {
		level := 0.0
		if s.counts[b] > 0 {
			level = math.Sqrt(s.energy[b])
		}
		s.levels[b] = min(level, 1)
	}
	s.mu.Unlock()
}

// Levels returns the band levels of the last complete frame.
func (s *Spectrum) Levels() BandLevels {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.levels
}

// Size returns the FFT size.
func (s *Spectrum) Size() int { return s.size }

// FrequencyForBin returns the center frequency (Hz) for a given FFT bin index.
func (s *Spectrum) FrequencyForBin(binIndex int) float64 {
	if binIndex < 0 || binIndex >= len(s.coeffs) {
		return 0
	}
	return float64(binIndex) * s.sampleRate / float64(s.size)
}

// applyWindow fills coeffs with the selected window.
func applyWindow(coeffs []float64, windowType WindowFunc) {
	for i := range coeffs {
		coeffs[i] = 1
	}
	switch windowType {
	case Hamming:
		window.Hamming(coeffs)
	case Blackman:
		window.Blackman(coeffs)
	case BlackmanNuttall:
		window.BlackmanNuttall(coeffs)
	case Nuttall:
		window.Nuttall(coeffs)
	default:
		window.Hann(coeffs)
	}
}
