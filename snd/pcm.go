package snd

import (
	"encoding/binary"
	"math"
)

// EncodePCM16 converts normalized float32 samples into little-endian signed
// 16-bit PCM. Samples outside [-1, 1] are clamped; non-finite samples become
// silence so NaN never reaches the wire.
func EncodePCM16(samples []float32) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		f := float64(s)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			f = 0
		}
		var v int16
		switch {
		case f >= 1.0:
			v = math.MaxInt16
		case f <= -1.0:
			v = math.MinInt16
		case f >= 0:
			v = int16(f * 32767)
		default:
			v = int16(f * 32768)
		}
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(v))
	}
	return buf
}

// Level returns the RMS level of a frame, in [0, 1], for the UI meter.
func Level(samples []float32) float32 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		f := float64(s)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			continue
		}
		sum += f * f
	}
	rms := math.Sqrt(sum / float64(len(samples)))
	if rms > 1 {
		rms = 1
	}
	return float32(rms)
}
