package cmd

import (
	"context"
	"fmt"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"montage/cache"
	"montage/config"
	"montage/core/player"
	"montage/storage"
)

var (
	renderTime   float64
	renderEvery  float64
	renderOutput string
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render frames of a project offline",
	Long: `Render one composited frame (-t) or a contact sheet of frames
(--every N seconds) from a project file, without starting the server.`,
	Run: func(cmd *cobra.Command, args []string) {
		if projectPath == "" {
			log.Fatal("render requires --project")
		}

		cfg := config.Load()
		if err := cache.ConnectRedis(cfg); err == nil {
			defer cache.CloseRedis()
		}

		store, err := storage.NewAssetStore(cfg)
		if err != nil {
			log.Printf("asset store unavailable, local asset paths only: %v", err)
			store = nil
		}

		p, err := player.New(cfg, store, player.Options{})
		if err != nil {
			log.Fatalf("player init failed: %v", err)
		}
		defer p.Close()

		if err := p.LoadProject(projectPath); err != nil {
			log.Fatalf("project load failed: %v", err)
		}

		ctx := context.Background()
		if renderEvery > 0 {
			dur := p.Timeline().Duration()
			base := strings.TrimSuffix(renderOutput, filepath.Ext(renderOutput))
			n := 0
			for t := 0.0; t <= dur; t += renderEvery {
				out := fmt.Sprintf("%s_%04d.png", base, n)
				if err := renderPNG(ctx, p, t, out); err != nil {
					log.Fatalf("render %.3fs failed: %v", t, err)
				}
				n++
			}
			fmt.Printf("Rendered %d frames to %s_*.png\n", n, base)
			return
		}

		if err := renderPNG(ctx, p, renderTime, renderOutput); err != nil {
			log.Fatalf("render failed: %v", err)
		}
		fmt.Printf("Rendered frame at %.3fs to %s\n", renderTime, renderOutput)
	},
}

func renderPNG(ctx context.Context, p *player.Player, t float64, out string) error {
	img, err := p.RenderPoster(ctx, t)
	if err != nil {
		return err
	}
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}

func init() {
	rootCmd.AddCommand(renderCmd)
	renderCmd.Flags().Float64VarP(&renderTime, "time", "t", 0, "playback time to render, in seconds")
	renderCmd.Flags().Float64Var(&renderEvery, "every", 0, "render a frame every N seconds instead of a single time")
	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "frame.png", "output PNG path")
}
