package serial

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// sysfsTTYDir is the sysfs root for tty devices, overridable in tests
var sysfsTTYDir = "/sys/class/tty"

// readSysfsFile reads a single-value sysfs attribute and trims whitespace.
// Returns the empty string when the file is missing or unreadable.
func readSysfsFile(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// devicePathContains reports whether the resolved sysfs device path of a tty
// contains the given fragment (e.g. "/pci" or "/usb")
func devicePathContains(name, fragment string) bool {
	resolved, err := filepath.EvalSymlinks(filepath.Join(sysfsTTYDir, name, "device"))
	if err != nil {
		return false
	}
	return strings.Contains(resolved, fragment)
}

// lookupUSBInfo walks up the sysfs device hierarchy of a tty to find the USB
// device directory (the one carrying idVendor/idProduct) and reads its
// descriptor attributes. Returns nil if no USB device is found.
//
// A ttyUSB node typically resolves to
// .../usb1/1-1/1-1.2/1-1.2:1.0/ttyUSB0 so the attributes live two or three
// levels up from the tty's device link.
func lookupUSBInfo(name string) *USBInfo {
	dir, err := filepath.EvalSymlinks(filepath.Join(sysfsTTYDir, name, "device"))
	if err != nil {
		return nil
	}

	for i := 0; i < 5; i++ {
		vendor := readSysfsFile(filepath.Join(dir, "idVendor"))
		product := readSysfsFile(filepath.Join(dir, "idProduct"))
		if vendor != "" && product != "" {
			return parseUSBDeviceDir(dir, vendor, product)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return nil
}

// parseUSBDeviceDir builds USBInfo from a sysfs USB device directory
func parseUSBDeviceDir(dir, vendor, product string) *USBInfo {
	vid, err := strconv.ParseUint(vendor, 16, 16)
	if err != nil {
		return nil
	}
	pid, err := strconv.ParseUint(product, 16, 16)
	if err != nil {
		return nil
	}

	return &USBInfo{
		VID:          uint16(vid),
		PID:          uint16(pid),
		SerialNumber: readSysfsFile(filepath.Join(dir, "serial")),
		Manufacturer: readSysfsFile(filepath.Join(dir, "manufacturer")),
		Product:      readSysfsFile(filepath.Join(dir, "product")),
	}
}
