package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"montage/core/player"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print a project's timeline as a table",
	Run: func(cmd *cobra.Command, args []string) {
		if projectPath == "" {
			log.Fatal("inspect requires --project")
		}
		pf, err := player.LoadProjectFile(projectPath)
		if err != nil {
			log.Fatalf("project load failed: %v", err)
		}

		seq := pf.Sequence
		seq.RecalcDuration()
		fmt.Printf("%s (%dx%d @ %.3g fps) — %.2fs, %d tracks, %d assets, %d beats\n",
			seq.Name, seq.Width, seq.Height, seq.FPS, seq.Duration,
			len(seq.Tracks), len(pf.Assets), len(pf.Beats))

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Track", "Kind", "Clip", "Media", "Start", "End", "Trim", "Speed"})
		for _, track := range seq.Tracks {
			for _, clip := range track.Clips {
				speed := "-"
				if len(clip.SpeedCurve) > 0 {
					speed = fmt.Sprintf("%d keys", len(clip.SpeedCurve))
				}
				t.AppendRow(table.Row{
					track.ID,
					track.Kind,
					clip.ID,
					clip.MediaID,
					fmt.Sprintf("%.2f", clip.Start),
					fmt.Sprintf("%.2f", clip.EndTime()),
					fmt.Sprintf("[%.2f,%.2f]", clip.TrimStart, clip.TrimEnd),
					speed,
				})
			}
			t.AppendSeparator()
		}
		t.Render()
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
