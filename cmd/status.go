package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"mirrord/internal/orchestrator"
	"mirrord/internal/repository"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "View daemon status",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := http.Get(daemonURL("/status"))
		if err != nil {
			return fmt.Errorf("daemon not running: %w", err)
		}

		defer func(Body io.ReadCloser) {
			_ = Body.Close()
		}(resp.Body)

		var result struct {
			State  orchestrator.Snapshot `json:"state"`
			Totals repository.Stats      `json:"totals"`
		}

		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return fmt.Errorf("failed to decode status response: %w", err)
		}
		snap := result.State

		lastMirror := "-"
		if snap.LastMirror != nil {
			lastMirror = snap.LastMirror.Format("2006-01-02 15:04:05")
		}

		uptime := time.Since(snap.StartedAt).Round(time.Second)
		fmt.Printf("phase:       %s\n", snap.Phase)
		fmt.Printf("source:      %s\n", snap.Source)
		fmt.Printf("destination: %s\n", snap.Destination)
		fmt.Printf("uptime:      %s\n", uptime)
		fmt.Printf("copied:      %d\n", snap.Copied)
		fmt.Printf("skipped:     %d\n", snap.Skipped)
		fmt.Printf("failed:      %d\n", snap.Failed)
		fmt.Printf("last mirror: %s\n", lastMirror)
		fmt.Printf("all time:    %d mirrored, %d failed of %d events\n",
			result.Totals.Copied, result.Totals.Failed, result.Totals.Total)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
