/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/allbin/serialmux/manager"
)

// addOpenFlags registers the shared line-parameter flags on commands that
// open a port
func addOpenFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("baud", "b", 115200, "Baud rate")
	cmd.Flags().String("data-bits", "Eight", "Data bits: Five, Six, Seven, Eight")
	cmd.Flags().String("parity", "None", "Parity: None, Odd, Even")
	cmd.Flags().String("stop-bits", "One", "Stop bits: One, Two")
	cmd.Flags().StringP("flow-control", "f", "None", "Flow control: None, Software, Hardware")
	cmd.Flags().Bool("dtr", false, "Assert DTR on open")
	cmd.Flags().Duration("timeout", 500*time.Millisecond, "Read timeout (multiple of 100ms)")
}

// openRequestFromFlags builds an OpenRequest from the shared flags
func openRequestFromFlags(cmd *cobra.Command, portName string) manager.OpenRequest {
	baud, _ := cmd.Flags().GetInt("baud")
	dataBits, _ := cmd.Flags().GetString("data-bits")
	parity, _ := cmd.Flags().GetString("parity")
	stopBits, _ := cmd.Flags().GetString("stop-bits")
	flowControl, _ := cmd.Flags().GetString("flow-control")
	dtr, _ := cmd.Flags().GetBool("dtr")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	return manager.OpenRequest{
		PortName:    portName,
		BaudRate:    baud,
		DataBits:    dataBits,
		Parity:      parity,
		StopBits:    stopBits,
		FlowControl: flowControl,
		InitialDTR:  dtr,
		Timeout:     timeout,
	}
}
