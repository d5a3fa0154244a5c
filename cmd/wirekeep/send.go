package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	wirekeep "github.com/wirekeep/wirekeep-go"
)

var flagWaitOpen time.Duration

func init() {
	sendCmd.Flags().DurationVar(&flagWaitOpen, "wait", 10*time.Second, "how long to wait for the session to open")
	rootCmd.AddCommand(sendCmd)
}

var sendCmd = &cobra.Command{
	Use:   "send <payload>",
	Short: "Connect, send one payload, and disconnect",
	Long: "Send a single payload to the configured endpoint. A payload that\n" +
		"parses as JSON is sent structured; anything else is sent as text.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
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

		var payload any = args[0]
		var structured map[string]any
		if json.Unmarshal([]byte(args[0]), &structured) == nil {
			payload = structured
		}
		if err := client.Send(payload); err != nil {
			return err
		}
		fmt.Println("sent")
		return client.Close(wirekeep.StatusNormalClosure, "done")
	},
}
