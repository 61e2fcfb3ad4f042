// Package serial provides a clean, idiomatic Go library for serial port
// communication on Linux, covering port configuration, raw I/O, modem
// control lines and device discovery.
//
// # Basic Usage
//
// Open a serial port with default configuration (115200 8N1, no flow control):
//
//	port, err := serial.Open("/dev/ttyUSB0")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer port.Close()
//
//	// Simple I/O
//	n, err := port.Write([]byte("Hello"))
//	buffer := make([]byte, 256)
//	n, err = port.Read(buffer)
//
// # Configuration Options
//
// Use functional options for custom configuration:
//
//	port, err := serial.Open("/dev/ttyUSB0",
//	    serial.WithBaudRate(9600),
//	    serial.WithDataBits(8),
//	    serial.WithParity(serial.ParityNone),
//	    serial.WithStopBits(1),
//	    serial.WithFlowControl(serial.FlowControlHardware),
//	    serial.WithInitialDTR(true),
//	    serial.WithReadTimeout(500*time.Millisecond),
//	)
//
// Reads use VMIN=0/VTIME, so a read that times out returns (0, nil). A read
// against a device that disappeared returns io.EOF.
//
// # Port Discovery
//
// List available serial ports and get USB device metadata:
//
//	ports, err := serial.ListPorts()
//	for _, portPath := range ports {
//	    info, _ := serial.GetPortInfo(portPath)
//	    if info.USB != nil {
//	        fmt.Printf("%s: %s (VID=%04x PID=%04x Serial=%s)\n",
//	            info.Path, info.Description, info.USB.VID, info.USB.PID, info.USB.SerialNumber)
//	    }
//	}
//
// # Modem Signals
//
// Read signal states and control RTS/DTR:
//
//	signals, err := port.GetModemSignals()
//	fmt.Printf("CTS=%v DSR=%v DCD=%v RI=%v\n",
//	    signals.CTS, signals.DSR, signals.DCD, signals.RI)
//
//	err = port.SetRTS(true)
//	err = port.SetDTR(false)
//
// # Error Handling
//
// The library provides specific error types for robust error handling:
//
//	var (
//	    ErrDeviceNotFound   // No such device node
//	    ErrPermissionDenied // Missing permissions on the device node
//	    ErrDeviceInUse      // Device opened elsewhere
//	    ErrPortClosed       // Port already closed
//	    // ... and more
//	)
//
// Use errors.Is() for error type checking.
//
// # Platform Support
//
// Core serial communication works on all Linux systems. USB metadata
// extraction is Linux-only and relies on sysfs.
package serial
