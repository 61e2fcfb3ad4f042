package manager

import (
	"testing"

	"github.com/allbin/serialmux/serial"
)

func TestParseDataBits(t *testing.T) {
	tests := []struct {
		token    string
		expected int
		wantErr  bool
	}{
		{"Five", 5, false},
		{"Six", 6, false},
		{"Seven", 7, false},
		{"Eight", 8, false},
		{"Nine", 0, true},
		{"eight", 0, true}, // Tokens are case-sensitive
		{"", 0, true},
	}

	for _, tt := range tests {
		got, err := parseDataBits(tt.token)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseDataBits(%q) error = %v, wantErr %v", tt.token, err, tt.wantErr)
			continue
		}
		if err != nil {
			if !IsCode(err, CodeInvalidParam) {
				t.Errorf("parseDataBits(%q) error code = %v, want InvalidParam", tt.token, err)
			}
			continue
		}
		if got != tt.expected {
			t.Errorf("parseDataBits(%q) = %d, want %d", tt.token, got, tt.expected)
		}
	}
}

func TestParseParity(t *testing.T) {
	tests := []struct {
		token    string
		expected serial.Parity
		wantErr  bool
	}{
		{"None", serial.ParityNone, false},
		{"Odd", serial.ParityOdd, false},
		{"Even", serial.ParityEven, false},
		{"Mark", 0, true},
		{"odd", 0, true},
	}

	for _, tt := range tests {
		got, err := parseParity(tt.token)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseParity(%q) error = %v, wantErr %v", tt.token, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.expected {
			t.Errorf("parseParity(%q) = %v, want %v", tt.token, got, tt.expected)
		}
	}
}

func TestParseStopBits(t *testing.T) {
	tests := []struct {
		token    string
		expected int
		wantErr  bool
	}{
		{"One", 1, false},
		{"Two", 2, false},
		{"Three", 0, true},
		{"1", 0, true},
	}

	for _, tt := range tests {
		got, err := parseStopBits(tt.token)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseStopBits(%q) error = %v, wantErr %v", tt.token, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.expected {
			t.Errorf("parseStopBits(%q) = %d, want %d", tt.token, got, tt.expected)
		}
	}
}

func TestParseFlowControl(t *testing.T) {
	tests := []struct {
		token    string
		expected serial.FlowControl
		wantErr  bool
	}{
		{"None", serial.FlowControlNone, false},
		{"Software", serial.FlowControlSoftware, false},
		{"Hardware", serial.FlowControlHardware, false},
		{"XonXoff", 0, true},
		{"RTS", 0, true},
	}

	for _, tt := range tests {
		got, err := parseFlowControl(tt.token)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseFlowControl(%q) error = %v, wantErr %v", tt.token, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.expected {
			t.Errorf("parseFlowControl(%q) = %v, want %v", tt.token, got, tt.expected)
		}
	}
}

func TestDeviceFingerprint(t *testing.T) {
	tests := []struct {
		name     string
		desc     PortDescriptor
		expected string
	}{
		{
			name: "usb with serial",
			desc: PortDescriptor{
				Name:      "/dev/ttyUSB0",
				Transport: serial.TransportUSB,
				USB:       &serial.USBInfo{VID: 0x0403, PID: 0x6001, SerialNumber: "A7003abc"},
			},
			expected: "usb:0403:6001:A7003abc",
		},
		{
			name: "usb without serial",
			desc: PortDescriptor{
				Name:      "/dev/ttyACM0",
				Transport: serial.TransportUSB,
				USB:       &serial.USBInfo{VID: 0x2341, PID: 0x0043},
			},
			expected: "usb:2341:0043:unknown",
		},
		{
			name: "usb vid formatting pads and uppercases",
			desc: PortDescriptor{
				Name: "/dev/ttyUSB1",
				USB:  &serial.USBInfo{VID: 0x1a, PID: 0xbeef, SerialNumber: "x"},
			},
			expected: "usb:001A:BEEF:x",
		},
		{
			name:     "non-usb falls back to port name",
			desc:     PortDescriptor{Name: "/dev/ttyS0"},
			expected: "port:/dev/ttyS0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := deviceFingerprint(tt.desc); got != tt.expected {
				t.Errorf("deviceFingerprint() = %q, want %q", got, tt.expected)
			}
		})
	}
}
