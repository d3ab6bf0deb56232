package energy_test

import (
	"testing"

	"github.com/MrWong99/edna/pkg/provider/vad"
	"github.com/MrWong99/edna/pkg/provider/vad/energy"
)

// constantFrame returns a 20 ms frame at 16 kHz whose every sample has the
// given amplitude, so its RMS equals that amplitude exactly.
func constantFrame(amplitude int16) []int16 {
	frame := make([]int16, 320)
	for i := range frame {
		frame[i] = amplitude
	}
	return frame
}

func newDetector(t *testing.T, mode vad.Aggressiveness) *energy.Detector {
	t.Helper()
	d, err := energy.New(vad.Config{SampleRate: 16000, Mode: mode}, 20)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d
}

func TestClassifyAgainstModeThresholds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		mode      vad.Aggressiveness
		amplitude int16
		want      bool
	}{
		{"quality passes quiet speech", vad.ModeQuality, 250, true},
		{"quality rejects silence", vad.ModeQuality, 150, false},
		{"aggressive rejects quiet speech", vad.ModeAggressive, 400, false},
		{"aggressive passes loud speech", vad.ModeAggressive, 500, true},
		{"very aggressive needs more", vad.ModeVeryAggressive, 650, false},
		{"very aggressive passes", vad.ModeVeryAggressive, 800, true},
		{"zero frame is silence", vad.ModeQuality, 0, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			d := newDetector(t, tc.mode)
			got, err := d.Classify(constantFrame(tc.amplitude))
			if err != nil {
				t.Fatalf("Classify: %v", err)
			}
			if got != tc.want {
				t.Fatalf("Classify(amplitude %d, mode %v) = %v, want %v",
					tc.amplitude, tc.mode, got, tc.want)
			}
		})
	}
}

func TestClassifyNegativeAmplitude(t *testing.T) {
	t.Parallel()

	// RMS is sign-insensitive.
	d := newDetector(t, vad.ModeQuality)
	got, err := d.Classify(constantFrame(-500))
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if !got {
		t.Fatal("negative-amplitude speech must classify as voiced")
	}
}

func TestClassifyRejectsWrongFrameSize(t *testing.T) {
	t.Parallel()

	d := newDetector(t, vad.ModeQuality)
	if _, err := d.Classify(make([]int16, 100)); err == nil {
		t.Fatal("want error for short frame")
	}
}

func TestNewRejectsBadInput(t *testing.T) {
	t.Parallel()

	if _, err := energy.New(vad.Config{SampleRate: 16000, Mode: vad.ModeQuality}, 25); err == nil {
		t.Fatal("want error for unsupported frame duration")
	}
	if _, err := energy.New(vad.Config{SampleRate: 0, Mode: vad.ModeQuality}, 20); err == nil {
		t.Fatal("want error for invalid config")
	}
}
