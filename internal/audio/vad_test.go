package audio

import (
	"testing"
)

func constantFrame(size int, value int16) []int16 {
	samples := make([]int16, size)
	for i := range samples {
		samples[i] = value
	}
	return samples
}

func testVADConfig() *VADConfig {
	return &VADConfig{
		EnergyThreshold: 500.0,
		SilenceFrames:   10,
		FrameSize:       320,
	}
}

func TestVADDetector_ProcessFrame_Speech(t *testing.T) {
	vad := NewVADDetector(testVADConfig())
	samples := constantFrame(320, 5000)

	for i := 0; i < 5; i++ {
		isSpeaking, speechStarted, _ := vad.ProcessFrame(samples)
		if !isSpeaking {
			t.Errorf("Expected speech detection on frame %d", i)
		}
		if i == 0 && !speechStarted {
			t.Error("Expected speech to start on first frame")
		}
		if i > 0 && speechStarted {
			t.Errorf("Expected speech start only once, got it again on frame %d", i)
		}
	}
}

func TestVADDetector_ProcessFrame_Silence(t *testing.T) {
	vad := NewVADDetector(testVADConfig())
	samples := constantFrame(320, 10)

	for i := 0; i < 15; i++ {
		isSpeaking, _, _ := vad.ProcessFrame(samples)
		if isSpeaking {
			t.Errorf("Expected silence on frame %d", i)
		}
	}
}

func TestVADDetector_ProcessFrame_SpeechToSilence(t *testing.T) {
	vad := NewVADDetector(testVADConfig())
	high := constantFrame(320, 5000)
	low := constantFrame(320, 10)

	for i := 0; i < 5; i++ {
		vad.ProcessFrame(high)
	}

	endedAt := -1
	for i := 0; i < 15; i++ {
		if _, _, ended := vad.ProcessFrame(low); ended {
			endedAt = i
			break
		}
	}

	if endedAt != 9 {
		t.Errorf("Expected speech to end on the 10th silent frame, got index %d", endedAt)
	}
	if vad.IsSpeaking() {
		t.Error("Expected not speaking after silence")
	}
}

func TestVADDetector_ProcessSamples_CarriesPartialFrames(t *testing.T) {
	vad := NewVADDetector(testVADConfig())

	// Half a frame of speech is not enough to decide
	speaking, changed := vad.ProcessSamples(constantFrame(160, 5000))
	if speaking || changed {
		t.Error("Expected no decision from a partial frame")
	}

	// Completing the frame flips to speaking
	speaking, changed = vad.ProcessSamples(constantFrame(160, 5000))
	if !speaking || !changed {
		t.Errorf("Expected speaking=true changed=true, got %v %v", speaking, changed)
	}

	speaking, changed = vad.ProcessSamples(constantFrame(640, 5000))
	if !speaking || changed {
		t.Errorf("Expected speaking=true changed=false, got %v %v", speaking, changed)
	}
}

func TestVADDetector_Reset(t *testing.T) {
	vad := NewVADDetector(testVADConfig())
	vad.ProcessFrame(constantFrame(320, 5000))
	vad.ProcessSamples(constantFrame(100, 5000))

	vad.Reset()
	if vad.IsSpeaking() {
		t.Error("Expected not speaking after reset")
	}
	if len(vad.pending) != 0 {
		t.Errorf("Expected pending samples to be dropped, got %d", len(vad.pending))
	}
}

func TestNewVADDetector_Defaults(t *testing.T) {
	vad := NewVADDetector(nil)
	if vad.config.FrameSize != 320 {
		t.Errorf("Expected default frame size 320, got %d", vad.config.FrameSize)
	}
}
