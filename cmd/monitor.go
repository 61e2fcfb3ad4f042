/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/allbin/serialmux/manager"
)

// monitorCmd represents the monitor command
var monitorCmd = &cobra.Command{
	Use:   "monitor <port>",
	Short: "Open a port and stream its traffic and line changes",
	Long: `Open a serial port with the given line parameters and print every
notification its session produces: inbound data, modem control line changes,
errors and the eventual close. All traffic is recorded in the audit log.

Press Ctrl+C to close the port and exit.

Examples:
  serialmux monitor /dev/ttyUSB0
  serialmux monitor /dev/ttyACM0 -b 9600 --parity Even --dtr
  serialmux monitor /dev/ttyUSB0 --hex`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, store, logger, err := setupApp()
		if err != nil {
			return err
		}
		defer store.Close()
		defer logger.Sync()

		ctx := cmd.Context()
		hex, _ := cmd.Flags().GetBool("hex")
		rts, _ := cmd.Flags().GetBool("rts")

		notes, cancel := mgr.Subscribe()
		defer cancel()

		result, err := mgr.Open(ctx, openRequestFromFlags(cmd, args[0]))
		if err != nil {
			return err
		}
		fmt.Printf("Opened %s (session %s)\n", args[0], result.SessionID)

		if rts {
			if err := mgr.SetRTS(ctx, args[0], true); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to assert RTS: %v\n", err)
			}
		}

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sig)

		for {
			select {
			case <-sig:
				fmt.Println("\nClosing port...")
				closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer closeCancel()
				if err := mgr.Close(closeCtx, args[0]); err != nil {
					return err
				}
				mgr.Shutdown(closeCtx)
				return nil
			case note, ok := <-notes:
				if !ok {
					return nil
				}
				printNotification(note, hex)
				if note.Type == manager.NotePortClosed && note.PortName == args[0] {
					shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
					mgr.Shutdown(shutdownCtx)
					shutdownCancel()
					return nil
				}
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(monitorCmd)

	addOpenFlags(monitorCmd)
	monitorCmd.Flags().Bool("rts", false, "Assert RTS after opening")
	monitorCmd.Flags().Bool("hex", false, "Print inbound data as hex instead of text")
}

// printNotification renders one subscriber event on stdout
func printNotification(note manager.Notification, hex bool) {
	stamp := time.UnixMilli(note.TimestampMs).Format("15:04:05.000")
	switch note.Type {
	case manager.NotePortRead:
		if hex {
			fmt.Printf("[%s] RX % X\n", stamp, note.Data)
		} else {
			fmt.Printf("[%s] RX %q\n", stamp, note.Data)
		}
	case manager.NotePortStatus:
		m := note.Modem
		fmt.Printf("[%s] status CD=%t CTS=%t DSR=%t RING=%t\n",
			stamp, m.CD, m.CTS, m.DSR, m.Ring)
	case manager.NotePortError:
		fmt.Printf("[%s] error: %s\n", stamp, note.Message)
	case manager.NotePortClosed:
		fmt.Printf("[%s] closed (%s)\n", stamp, note.Reason)
	case manager.NotePortOpened:
		fmt.Printf("[%s] opened\n", stamp)
	}
}
