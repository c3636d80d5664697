package audio

import (
	"encoding/binary"
	"fmt"
	"math"
)

// DecodePCM16 converts little-endian 16-bit PCM bytes to samples
func DecodePCM16(pcmData []byte) ([]int16, error) {
	if len(pcmData)%2 != 0 {
		return nil, fmt.Errorf("PCM data length must be even (16-bit samples), got %d bytes", len(pcmData))
	}

	samples := make([]int16, len(pcmData)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(pcmData[i*2:]))
	}
	return samples, nil
}

// EncodePCM16 converts samples to little-endian 16-bit PCM bytes
func EncodePCM16(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

// ConvertSampleRate resamples mono 16-bit PCM from inputRate to outputRate.
// Input and output are little-endian PCM bytes.
func ConvertSampleRate(pcmData []byte, inputRate, outputRate int) ([]byte, error) {
	if inputRate <= 0 || outputRate <= 0 {
		return nil, fmt.Errorf("invalid sample rates %d -> %d", inputRate, outputRate)
	}
	if inputRate == outputRate {
		return pcmData, nil
	}

	samples, err := DecodePCM16(pcmData)
	if err != nil {
		return nil, err
	}
	return EncodePCM16(Resample(samples, inputRate, outputRate)), nil
}

// Resample performs linear interpolation resampling.
// Browsers capture at 44.1 or 48 kHz while recognizers want 16 kHz speech,
// for which linear interpolation is adequate.
func Resample(samples []int16, inputRate, outputRate int) []int16 {
	if inputRate == outputRate || len(samples) == 0 {
		return samples
	}

	ratio := float64(outputRate) / float64(inputRate)
	outputLength := int(float64(len(samples)) * ratio)
	output := make([]int16, outputLength)

	for i := 0; i < outputLength; i++ {
		srcPos := float64(i) / ratio

		idx0 := int(srcPos)
		if idx0 >= len(samples) {
			idx0 = len(samples) - 1
		}
		idx1 := idx0 + 1
		if idx1 >= len(samples) {
			idx1 = len(samples) - 1
		}

		fraction := srcPos - float64(idx0)
		output[i] = int16(float64(samples[idx0])*(1.0-fraction) + float64(samples[idx1])*fraction)
	}

	return output
}

// CalculateRMS calculates the root mean square (RMS) of audio samples
func CalculateRMS(samples []int16) float64 {
	if len(samples) == 0 {
		return 0.0
	}

	sum := 0.0
	for _, sample := range samples {
		sum += float64(sample) * float64(sample)
	}

	return math.Sqrt(sum / float64(len(samples)))
}

// FrameSize returns the number of samples in a 20ms frame at sampleRate
func FrameSize(sampleRate int) int {
	return sampleRate / 50
}
