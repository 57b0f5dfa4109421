package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var healthcheckAddr string

var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Probe a running riptide server's /healthz endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := healthcheckAddr
		if addr == "" {
			addr = cfg.Server.Addr
		}
		client := &http.Client{Timeout: 5 * time.Second}
		resp, err := client.Get("http://" + trimAddr(addr) + "/healthz")
		if err != nil {
			return fmt.Errorf("healthcheck request failed: %w", err)
		}
		defer resp.Body.Close()

		var body map[string]interface{}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return fmt.Errorf("decoding healthz response: %w", err)
		}
		fmt.Printf("status: %v (http %d)\n", body["status"], resp.StatusCode)
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("server reported degraded health")
		}
		return nil
	},
}

func init() {
	healthcheckCmd.Flags().StringVar(&healthcheckAddr, "addr", "", "server address to probe (defaults to config server.addr)")
}

// trimAddr rewrites a listen address like ":8080" into a dialable
// "localhost:8080" for the healthcheck client.
func trimAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
