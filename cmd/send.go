/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send <port> <data>",
	Short: "Open a port, write a payload and close it again",
	Long: `Open a serial port, write the given payload through its session,
wait for the write to be acknowledged and close the port. The transfer is
recorded in the audit log under a fresh session id, which is printed so the
matching rows can be pulled up with "serialmux logs".

Data is sent as-is. With --hex the argument is parsed as hexadecimal bytes
(spaces and colons are ignored), with --newline a trailing LF is appended.

Examples:
  serialmux send /dev/ttyUSB0 "AT" --newline
  serialmux send /dev/ttyUSB0 "01 02 0a" --hex -b 9600`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, store, logger, err := setupApp()
		if err != nil {
			return err
		}
		defer store.Close()
		defer logger.Sync()

		data, err := payloadFromArg(cmd, args[1])
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		result, err := mgr.Open(ctx, openRequestFromFlags(cmd, args[0]))
		if err != nil {
			return err
		}

		messageID := uuid.NewString()
		writeErr := mgr.Write(ctx, args[0], messageID, data)

		if err := mgr.Close(ctx, args[0]); err != nil && writeErr == nil {
			writeErr = err
		}
		mgr.Shutdown(ctx)

		if writeErr != nil {
			return writeErr
		}
		fmt.Printf("Sent %d bytes to %s (session %s, message %s)\n",
			len(data), args[0], result.SessionID, messageID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)

	addOpenFlags(sendCmd)
	sendCmd.Flags().Bool("hex", false, "Parse data as hexadecimal bytes")
	sendCmd.Flags().BoolP("newline", "n", false, "Append a trailing newline")
}

// payloadFromArg decodes the data argument per the --hex and --newline flags
func payloadFromArg(cmd *cobra.Command, arg string) ([]byte, error) {
	asHex, _ := cmd.Flags().GetBool("hex")
	newline, _ := cmd.Flags().GetBool("newline")

	var data []byte
	if asHex {
		cleaned := strings.NewReplacer(" ", "", ":", "", "0x", "").Replace(arg)
		decoded, err := hex.DecodeString(cleaned)
		if err != nil {
			return nil, fmt.Errorf("invalid hex data: %w", err)
		}
		data = decoded
	} else {
		data = []byte(arg)
	}
	if newline {
		data = append(data, '\n')
	}
	return data, nil
}
