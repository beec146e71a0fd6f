package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"mirrord/internal/model"
	"net/http"

	"github.com/spf13/cobra"
)

var (
	historyN      int
	historyFailed bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View mirror history",
	RunE: func(cmd *cobra.Command, args []string) error {
		url := fmt.Sprintf("%s?n=%d", daemonURL("/history"), historyN)
		if historyFailed {
			url = daemonURL("/history/failed")
		}
		resp, err := http.Get(url)
		if err != nil {
			return fmt.Errorf("daemon not running: %w", err)
		}

		defer func(Body io.ReadCloser) {
			_ = Body.Close()
		}(resp.Body)

		var histories []model.History
		if err := json.NewDecoder(resp.Body).Decode(&histories); err != nil {
			return err
		}

		if len(histories) == 0 {
			fmt.Println("no history yet")
			return nil
		}

		for _, h := range histories {
			status := "✓"
			if h.Outcome == model.OutcomeFailed {
				status = "✗"
			}

			fmt.Printf("%s [%s] %-18s %s\n",
				status,
				h.MirroredAt.Format("2006-01-02 15:04:05"),
				h.Outcome,
				h.SrcPath,
			)
		}

		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyN, "n", 20, "number of history entries to show")
	historyCmd.Flags().BoolVar(&historyFailed, "failed", false, "show only failed mirrors")
	rootCmd.AddCommand(historyCmd)
}
