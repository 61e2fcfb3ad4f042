package serial

import (
	"strings"
	"testing"
)

func TestListPorts(t *testing.T) {
	ports, err := ListPorts()
	if err != nil {
		t.Errorf("ListPorts failed: %v", err)
	}

	// Check that all returned ports are valid paths
	for _, port := range ports {
		if !strings.HasPrefix(port, "/dev/") {
			t.Errorf("Port path doesn't start with /dev/: %s", port)
		}

		// Verify it's a character device
		if !isCharacterDevice(port) {
			t.Errorf("Port is not a character device: %s", port)
		}
	}

	// Check that ports are sorted
	for i := 1; i < len(ports); i++ {
		if ports[i-1] > ports[i] {
			t.Errorf("Ports are not sorted: %s > %s", ports[i-1], ports[i])
		}
	}
}

func TestIsCharacterDevice(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{"/dev/null", true},
		{"/dev/zero", true},
		{"/tmp", false},
		{"/nonexistent", false},
	}

	for _, test := range tests {
		result := isCharacterDevice(test.path)
		if result != test.expected {
			t.Errorf("isCharacterDevice(%s) = %v, expected %v", test.path, result, test.expected)
		}
	}
}

func TestGetPortDescription(t *testing.T) {
	tests := []struct {
		name     string
		expected string
	}{
		{"ttyUSB0", "USB Serial Port"},
		{"ttyACM0", "USB CDC/ACM Device"},
		{"ttyS0", "Standard Serial Port"},
		{"ttyAMA0", "ARM Serial Port"},
		{"ttymxc0", "i.MX Serial Port"},
		{"ttyO0", "OMAP Serial Port"},
		{"ttySAC0", "Samsung Serial Port"},
		{"ttyTHS0", "Tegra Serial Port"},
		{"rfcomm0", "Bluetooth Serial Port"},
		{"unknown", "Serial Port"},
	}

	for _, test := range tests {
		result := getPortDescription(test.name)
		if result != test.expected {
			t.Errorf("getPortDescription(%s) = %s, expected %s", test.name, result, test.expected)
		}
	}
}

func TestClassifyTransport(t *testing.T) {
	// Point sysfs lookups at an empty directory so ttyS classification does
	// not depend on the host machine's bus layout
	orig := sysfsTTYDir
	sysfsTTYDir = t.TempDir()
	defer func() { sysfsTTYDir = orig }()

	tests := []struct {
		name     string
		expected TransportKind
	}{
		{"ttyUSB0", TransportUSB},
		{"ttyACM3", TransportUSB},
		{"rfcomm0", TransportBluetooth},
		{"ttyS0", TransportUnknown},
		{"ttyAMA0", TransportUnknown},
	}

	for _, test := range tests {
		result := classifyTransport(test.name)
		if result != test.expected {
			t.Errorf("classifyTransport(%s) = %v, expected %v", test.name, result, test.expected)
		}
	}
}

func TestTransportKindString(t *testing.T) {
	tests := []struct {
		kind     TransportKind
		expected string
	}{
		{TransportUSB, "USB"},
		{TransportPCI, "PCI"},
		{TransportBluetooth, "Bluetooth"},
		{TransportUnknown, "Unknown"},
	}

	for _, test := range tests {
		if got := test.kind.String(); got != test.expected {
			t.Errorf("TransportKind(%d).String() = %s, expected %s", test.kind, got, test.expected)
		}
	}
}

func TestGetPortInfo(t *testing.T) {
	// Test with /dev/null as it should always exist and be a character device
	info, err := GetPortInfo("/dev/null")
	if err != nil {
		t.Errorf("GetPortInfo failed for /dev/null: %v", err)
	}

	if info == nil {
		t.Error("GetPortInfo returned nil info")
		return
	}

	if info.Name != "null" {
		t.Errorf("Expected name 'null', got '%s'", info.Name)
	}

	if info.Path != "/dev/null" {
		t.Errorf("Expected path '/dev/null', got '%s'", info.Path)
	}

	if info.Description == "" {
		t.Error("Description should not be empty")
	}

	if info.USB != nil {
		t.Error("USB metadata should be nil for non-USB devices")
	}

	// Test with non-existent device
	_, err = GetPortInfo("/dev/nonexistent")
	if err == nil {
		t.Error("Expected error for non-existent device")
	}
	if err != ErrDeviceNotFound {
		t.Errorf("Expected ErrDeviceNotFound, got %v", err)
	}
}

// BenchmarkListPorts benchmarks the ListPorts function
func BenchmarkListPorts(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, err := ListPorts()
		if err != nil {
			b.Errorf("ListPorts failed: %v", err)
		}
	}
}
