package manager

import "fmt"

// deviceFingerprint derives a stable device identity from the transport
// descriptor. USB devices get usb:<VID>:<PID>:<serial> so their audit
// history survives port-name renumbering; everything else falls back to the
// port name.
func deviceFingerprint(desc PortDescriptor) string {
	if usb := desc.USB; usb != nil {
		serialNumber := usb.SerialNumber
		if serialNumber == "" {
			serialNumber = "unknown"
		}
		return fmt.Sprintf("usb:%04X:%04X:%s", usb.VID, usb.PID, serialNumber)
	}
	return fmt.Sprintf("port:%s", desc.Name)
}
