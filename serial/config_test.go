package serial

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.BaudRate != 115200 {
		t.Errorf("BaudRate = %d, want 115200", config.BaudRate)
	}
	if config.DataBits != 8 {
		t.Errorf("DataBits = %d, want 8", config.DataBits)
	}
	if config.StopBits != 1 {
		t.Errorf("StopBits = %d, want 1", config.StopBits)
	}
	if config.Parity != ParityNone {
		t.Errorf("Parity = %v, want ParityNone", config.Parity)
	}
	if config.FlowControl != FlowControlNone {
		t.Errorf("FlowControl = %v, want FlowControlNone", config.FlowControl)
	}
	if config.ReadTimeout != 1000*time.Millisecond {
		t.Errorf("ReadTimeout = %v, want 1s", config.ReadTimeout)
	}
	if config.InitialRTS != nil || config.InitialDTR != nil {
		t.Error("InitialRTS/InitialDTR should be nil by default")
	}
}

func TestWithBaudRate(t *testing.T) {
	tests := []struct {
		rate    int
		wantErr bool
	}{
		{9600, false},
		{115200, false},
		{4000000, false},
		{0, true},
		{-9600, true},
		{12345, true},
	}

	for _, tt := range tests {
		config := DefaultConfig()
		err := WithBaudRate(tt.rate)(&config)
		if (err != nil) != tt.wantErr {
			t.Errorf("WithBaudRate(%d) error = %v, wantErr %v", tt.rate, err, tt.wantErr)
		}
		if err == nil && config.BaudRate != tt.rate {
			t.Errorf("BaudRate = %d, want %d", config.BaudRate, tt.rate)
		}
	}
}

func TestWithDataBits(t *testing.T) {
	tests := []struct {
		bits    int
		wantErr bool
	}{
		{5, false},
		{6, false},
		{7, false},
		{8, false},
		{4, true},
		{9, true},
		{0, true},
	}

	for _, tt := range tests {
		config := DefaultConfig()
		err := WithDataBits(tt.bits)(&config)
		if (err != nil) != tt.wantErr {
			t.Errorf("WithDataBits(%d) error = %v, wantErr %v", tt.bits, err, tt.wantErr)
		}
	}
}

func TestWithStopBits(t *testing.T) {
	tests := []struct {
		bits    int
		wantErr bool
	}{
		{1, false},
		{2, false},
		{0, true},
		{3, true},
	}

	for _, tt := range tests {
		config := DefaultConfig()
		err := WithStopBits(tt.bits)(&config)
		if (err != nil) != tt.wantErr {
			t.Errorf("WithStopBits(%d) error = %v, wantErr %v", tt.bits, err, tt.wantErr)
		}
	}
}

func TestWithReadTimeout(t *testing.T) {
	tests := []struct {
		name    string
		timeout time.Duration
		wantErr bool
	}{
		{"0ms (non-blocking)", 0, false},
		{"100ms (valid)", 100 * time.Millisecond, false},
		{"500ms (valid)", 500 * time.Millisecond, false},
		{"2500ms (valid)", 2500 * time.Millisecond, false},
		{"25500ms (max)", 25500 * time.Millisecond, false},
		{"150ms (not multiple of 100ms)", 150 * time.Millisecond, true},
		{"250ns (not multiple of 100ms)", 250 * time.Nanosecond, true},
		{"25600ms (exceeds max)", 25600 * time.Millisecond, true},
		{"-100ms (negative)", -100 * time.Millisecond, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			opt := WithReadTimeout(tt.timeout)
			err := opt(&config)
			if (err != nil) != tt.wantErr {
				t.Errorf("WithReadTimeout(%v) error = %v, wantErr %v", tt.timeout, err, tt.wantErr)
			}
			if err == nil && config.ReadTimeout != tt.timeout {
				t.Errorf("ReadTimeout = %v, want %v", config.ReadTimeout, tt.timeout)
			}
		})
	}
}

func TestWithInitialLines(t *testing.T) {
	config := DefaultConfig()

	if err := WithInitialRTS(true)(&config); err != nil {
		t.Fatalf("WithInitialRTS failed: %v", err)
	}
	if config.InitialRTS == nil || !*config.InitialRTS {
		t.Error("InitialRTS should be set to true")
	}

	if err := WithInitialDTR(false)(&config); err != nil {
		t.Fatalf("WithInitialDTR failed: %v", err)
	}
	if config.InitialDTR == nil || *config.InitialDTR {
		t.Error("InitialDTR should be set to false")
	}
}

func TestWithSyncWrite(t *testing.T) {
	config := DefaultConfig()
	if config.WriteMode != WriteModeBuffered {
		t.Errorf("default WriteMode = %v, want WriteModeBuffered", config.WriteMode)
	}
	if err := WithSyncWrite()(&config); err != nil {
		t.Fatalf("WithSyncWrite failed: %v", err)
	}
	if config.WriteMode != WriteModeSynced {
		t.Errorf("WriteMode = %v, want WriteModeSynced", config.WriteMode)
	}
}
