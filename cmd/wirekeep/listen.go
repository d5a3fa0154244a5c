package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	wirekeep "github.com/wirekeep/wirekeep-go"
)

func init() {
	rootCmd.AddCommand(listenCmd)
}

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Connect and stream session events to stdout",
	Long: "Connect to the configured endpoint and print every message and\n" +
		"lifecycle event until interrupted. Reconnects automatically.",
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

		client.OnStatusChange(func(newState, oldState wirekeep.State) {
			fmt.Printf("* state %s -> %s\n", oldState, newState)
		})
		client.On(wirekeep.EventMessage, func(ev wirekeep.Event) {
			fmt.Println(renderPayload(ev.Data))
		})
		client.On(wirekeep.EventReconnecting, func(ev wirekeep.Event) {
			info := ev.Data.(wirekeep.ReconnectingInfo)
			fmt.Printf("* reconnecting: attempt %d/%d in %s\n", info.Attempt, info.Limit, info.Delay)
		})
		client.On(wirekeep.EventReconnectFailed, func(ev wirekeep.Event) {
			info := ev.Data.(wirekeep.ReconnectFailedInfo)
			fmt.Printf("* reconnect failed after %d/%d attempts\n", info.Attempts, info.Limit)
		})
		client.On(wirekeep.EventHeartbeatTimeout, func(ev wirekeep.Event) {
			fmt.Println("* heartbeat timeout")
		})
		client.On(wirekeep.EventError, func(ev wirekeep.Event) {
			fmt.Printf("* error: %v\n", ev.Data)
		})
		client.On(wirekeep.EventClose, func(ev wirekeep.Event) {
			info := ev.Data.(wirekeep.CloseInfo)
			fmt.Printf("* closed (%d) %s\n", info.Code, info.Reason)
		})

		if err := client.Connect(); err != nil {
			return err
		}

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		return client.Close(wirekeep.StatusNormalClosure, "interrupted")
	},
}

// renderPayload pretty-prints decoded payloads and passes raw ones through.
func renderPayload(data any) string {
	switch v := data.(type) {
	case string:
		return v
	case []byte:
		return fmt.Sprintf("<%d binary bytes>", len(v))
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}
