package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	wirekeep "github.com/wirekeep/wirekeep-go"
)

func init() {
	sendFileCmd.Flags().DurationVar(&flagWaitOpen, "wait", 10*time.Second, "how long to wait for the session to open")
	rootCmd.AddCommand(sendFileCmd)
}

var sendFileCmd = &cobra.Command{
	Use:   "sendfile <path>",
	Short: "Stream a file over the session in chunks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("cannot open file: %w", err)
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil {
			return fmt.Errorf("cannot stat file: %w", err)
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := newLogger(flagVerbose)
		client, err := newSessionClient(cfg, flagURL, logger)
		if err != nil {
			return err
		}
		defer client.Destroy()

		opened := make(chan struct{})
		client.Once(wirekeep.EventOpen, func(wirekeep.Event) { close(opened) })

		if err := client.Connect(); err != nil {
			return err
		}
		select {
		case <-opened:
		case <-time.After(flagWaitOpen):
			return fmt.Errorf("session did not open within %s", flagWaitOpen)
		}

		id, err := client.SendFile(cmd.Context(), filepath.Base(path), info.Size(), f, &wirekeep.FileTransferOptions{
			OnProgress: func(sent, total int64) {
				fmt.Printf("\r%d/%d bytes", sent, total)
			},
		})
		fmt.Println()
		if err != nil {
			return err
		}
		fmt.Printf("transfer %s complete\n", id)
		return client.Close(wirekeep.StatusNormalClosure, "done")
	},
}
