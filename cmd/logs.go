/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/allbin/serialmux/storage"
)

// logsCmd represents the logs command
var logsCmd = &cobra.Command{
	Use:   "logs <session-id>",
	Short: "Show audit log records for a session",
	Long: `Query the append-only audit log for the transfers recorded under a
session id, newest first. Session ids are printed by "monitor" and "send"
when a port is opened.

With --device the argument is treated as a device fingerprint instead, which
spans every session ever run against that physical device.

Examples:
  serialmux logs 4f6c1c2e-...
  serialmux logs usb:0403:6001:A7003abc --device --limit 100`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, store, logger, err := setupApp()
		if err != nil {
			return err
		}
		defer store.Close()
		defer logger.Sync()

		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")
		byDevice, _ := cmd.Flags().GetBool("device")
		asHex, _ := cmd.Flags().GetBool("hex")

		var records []storage.Record
		if byDevice {
			records, err = store.QueryByDevice(cmd.Context(), args[0], max(limit, 1), offset)
		} else {
			records, err = mgr.QueryLogs(cmd.Context(), args[0], limit, offset)
		}
		if err != nil {
			return err
		}

		if len(records) == 0 {
			fmt.Println("No log records found")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTIME\tPORT\tDIR\tBYTES\tDATA")
		for _, r := range records {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\n",
				r.ID,
				time.UnixMilli(r.TimestampMs).Format("2006-01-02 15:04:05.000"),
				r.PortName,
				r.Direction,
				len(r.Data),
				formatPayload(r.Data, asHex))
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(logsCmd)

	logsCmd.Flags().IntP("limit", "l", 50, "Maximum number of records to return")
	logsCmd.Flags().Int("offset", 0, "Number of records to skip")
	logsCmd.Flags().Bool("device", false, "Query by device fingerprint instead of session id")
	logsCmd.Flags().Bool("hex", false, "Print payloads as hex instead of text")
}

// formatPayload renders a record payload for the table, truncated so one row
// stays on one line
func formatPayload(data []byte, asHex bool) string {
	const maxShown = 32
	truncated := false
	if len(data) > maxShown {
		data = data[:maxShown]
		truncated = true
	}
	var out string
	if asHex {
		out = fmt.Sprintf("% X", data)
	} else {
		out = fmt.Sprintf("%q", data)
	}
	if truncated {
		out += "..."
	}
	return out
}
