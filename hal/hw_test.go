package hal

import "testing"

func TestModeLinesRoundTrip(t *testing.T) {
	tests := []struct {
		mode   Mode
		m0, m1 Level
		name   string
	}{
		{ModeNormal, Low, Low, "normal"},
		{ModeWakeUp, High, Low, "wake-up"},
		{ModePowerSave, Low, High, "power-saving"},
		{ModeSleep, High, High, "sleep"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m0, m1, ok := LinesForMode(tt.mode)
			if !ok {
				t.Fatalf("LinesForMode(%d) not ok", tt.mode)
			}
			if m0 != tt.m0 || m1 != tt.m1 {
				t.Errorf("LinesForMode(%d) = %v/%v, want %v/%v", tt.mode, m0, m1, tt.m0, tt.m1)
			}
			if got := ModeFromLines(m0, m1); got != tt.mode {
				t.Errorf("ModeFromLines(%v, %v) = %d, want %d", m0, m1, got, tt.mode)
			}
			if got := ModeName(tt.mode); got != tt.name {
				t.Errorf("ModeName(%d) = %q, want %q", tt.mode, got, tt.name)
			}
		})
	}
}

func TestConfigModeIsSleep(t *testing.T) {
	m0, m1, _ := LinesForMode(ModeConfig)
	if m0 != High || m1 != High {
		t.Errorf("config mode lines = %v/%v, want HIGH/HIGH", m0, m1)
	}
}

func TestUnknownMode(t *testing.T) {
	if _, _, ok := LinesForMode(Mode(42)); ok {
		t.Error("LinesForMode(42) reported ok")
	}
	if got := ModeName(Mode(42)); got != "unknown" {
		t.Errorf("ModeName(42) = %q", got)
	}
}
