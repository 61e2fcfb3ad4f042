/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/allbin/serialmux/manager"
	"github.com/allbin/serialmux/serial"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List known serial ports",
	Long: `Discover serial ports and list every port the registry knows about.

This command scans for communication-capable serial devices including:
- USB serial adapters (ttyUSB*)
- USB CDC/ACM devices (ttyACM*)
- Standard serial ports (ttyS*)
- ARM/Raspberry Pi ports (ttyAMA*)
- And other platform-specific serial devices

Virtual terminals and pseudo-terminals are excluded from the listing.
USB ports show vendor/product/serial metadata read from sysfs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, store, logger, err := setupApp()
		if err != nil {
			return err
		}
		defer store.Close()
		defer logger.Sync()

		ports, err := mgr.Discover()
		if err != nil {
			return err
		}

		if len(ports) == 0 {
			fmt.Println("No serial ports found")
			return nil
		}

		usbOnly, _ := cmd.Flags().GetBool("usb")

		w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
		fmt.Fprintln(w, "PORT\tTRANSPORT\tDEVICE\tSTATUS\tRX\tTX")
		for _, port := range ports {
			if usbOnly && port.Descriptor.Transport != serial.TransportUSB {
				continue
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\n",
				port.Descriptor.Name,
				port.Descriptor.Transport,
				describeDevice(port),
				describeStatus(port),
				port.BytesRead,
				port.BytesWritten)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().BoolP("usb", "u", false, "Only show USB-attached ports")
}

// describeDevice summarizes the USB identity of a port, if any
func describeDevice(port manager.PortInfo) string {
	usb := port.Descriptor.USB
	if usb == nil {
		return "-"
	}
	name := usb.Product
	if name == "" {
		name = usb.Manufacturer
	}
	if name != "" {
		return fmt.Sprintf("%04x:%04x %s", usb.VID, usb.PID, name)
	}
	return fmt.Sprintf("%04x:%04x", usb.VID, usb.PID)
}

// describeStatus renders the open profile of a port, if any
func describeStatus(port manager.PortInfo) string {
	if !port.IsOpen() {
		return "closed"
	}
	p := port.Opened
	return fmt.Sprintf("open %d-%d-%s-%d", p.BaudRate, p.DataBits, p.Parity, p.StopBits)
}
