// Command feed-sim prints recommendation passes and replays recorded feed
// sessions offline.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fpang/brand-feed/internal/engagement"
	"github.com/fpang/brand-feed/internal/logging"
	"github.com/fpang/brand-feed/internal/recommend"
)

// CLI flags
var (
	brandsFlag []string
	userFlag   string
	passesFlag int
	scoresFlag string
)

var rootCmd = &cobra.Command{
	Use:   "feed-sim",
	Short: "Offline tools for the brand feed",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init()
	},
}

var passesCmd = &cobra.Command{
	Use:   "passes",
	Short: "Print the brand order of consecutive passes",
	Long: `Passes prints the brand order a user would see. The first pass is the
user's seeded shuffle; later passes are ranked by the scores file, a JSON
object of brand to score.

Examples:
  feed-sim passes --brands nike,adidas,puma --user u-42
  feed-sim passes --brands nike,adidas,puma --user u-42 --passes 3 --scores scores.json`,
	RunE: runPasses,
}

var replayCmd = &cobra.Command{
	Use:   "replay <script.json>",
	Short: "Replay a recorded session script",
	Long: `Replay feeds a recorded event script through a feed session and prints
one JSON line per event followed by the final engagement scores.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	passesCmd.Flags().StringSliceVar(&brandsFlag, "brands", nil, "Comma-separated brand catalog")
	passesCmd.Flags().StringVarP(&userFlag, "user", "u", "", "User ID seeding the first pass (empty uses the clock)")
	passesCmd.Flags().IntVarP(&passesFlag, "passes", "n", 2, "Number of passes to print")
	passesCmd.Flags().StringVar(&scoresFlag, "scores", "", "JSON file of engagement scores by brand")
	_ = passesCmd.MarkFlagRequired("brands")

	rootCmd.AddCommand(passesCmd, replayCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runPasses(cmd *cobra.Command, args []string) error {
	scores := engagement.NewStore()
	if scoresFlag != "" {
		data, err := os.ReadFile(scoresFlag)
		if err != nil {
			return fmt.Errorf("read scores: %w", err)
		}
		var loaded map[string]engagement.Score
		if err := json.Unmarshal(data, &loaded); err != nil {
			return fmt.Errorf("parse scores %s: %w", scoresFlag, err)
		}
		scores.Load(loaded)
	}

	engine := recommend.NewEngine(brandsFlag, userFlag, scores, recommend.WithClock(time.Now))
	pass := engine.Start()
	for i := 0; i < passesFlag; i++ {
		if i > 0 {
			pass = engine.NextPass()
		}
		fmt.Fprintf(cmd.OutOrStdout(), "pass %d: %s\n", pass.Number, strings.Join(pass.Brands, ", "))
	}
	return nil
}

func runReplay(cmd *cobra.Command, args []string) error {
	script, err := readScript(args[0])
	if err != nil {
		return err
	}
	scores, err := Replay(cmd.Context(), script, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{"scores": scores})
}
