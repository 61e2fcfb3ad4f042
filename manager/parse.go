package manager

import "github.com/allbin/serialmux/serial"

// Parameter tokens accepted by Open. The token sets are part of the command
// surface and are validated before any hardware action.

// parseDataBits maps a data-bits token to its numeric value
func parseDataBits(value string) (int, error) {
	switch value {
	case "Five":
		return 5, nil
	case "Six":
		return 6, nil
	case "Seven":
		return 7, nil
	case "Eight":
		return 8, nil
	default:
		return 0, newError(CodeInvalidParam,
			"the data_bits param must be one of: Five, Six, Seven, Eight, got %q", value)
	}
}

// parseParity maps a parity token to the serial package's parity mode
func parseParity(value string) (serial.Parity, error) {
	switch value {
	case "None":
		return serial.ParityNone, nil
	case "Odd":
		return serial.ParityOdd, nil
	case "Even":
		return serial.ParityEven, nil
	default:
		return 0, newError(CodeInvalidParam,
			"the parity param must be one of: None, Odd, Even, got %q", value)
	}
}

// parseStopBits maps a stop-bits token to its numeric value
func parseStopBits(value string) (int, error) {
	switch value {
	case "One":
		return 1, nil
	case "Two":
		return 2, nil
	default:
		return 0, newError(CodeInvalidParam,
			"the stop_bits param must be one of: One, Two, got %q", value)
	}
}

// parseFlowControl maps a flow-control token to the serial package's mode
func parseFlowControl(value string) (serial.FlowControl, error) {
	switch value {
	case "None":
		return serial.FlowControlNone, nil
	case "Software":
		return serial.FlowControlSoftware, nil
	case "Hardware":
		return serial.FlowControlHardware, nil
	default:
		return 0, newError(CodeInvalidParam,
			"the flow_control param must be one of: None, Software, Hardware, got %q", value)
	}
}
