// Package audio provides the Audio Source abstraction (loopback/app/device
// capture producing mono 16 kHz float32 samples) plus the PCM16 codec and
// echo-guard hygiene layer shared by every STT backend.
package audio

import "encoding/binary"

// EncodePCM16LE converts mono float32 samples in [-1, 1] to little-endian
// 16-bit PCM bytes: clamp, scale by 32767, saturate to int16.
func EncodePCM16LE(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		v := int32(s * 32767)
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(v)))
	}
	return out
}

// DecodePCM16LE converts little-endian 16-bit PCM bytes back to float32
// samples in [-1, 1]. Truncates a trailing odd byte, if any.
func DecodePCM16LE(pcm []byte) []float32 {
	n := len(pcm) / 2
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		v := int16(binary.LittleEndian.Uint16(pcm[i*2:]))
		out[i] = float32(v) / 32767
	}
	return out
}
