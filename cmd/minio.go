package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"montage/config"
	"montage/storage"
)

var minioPrefix string

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "List media assets in the object store",
	Long:  `Connect to the MinIO asset store and list the objects the engine can resolve, optionally filtered by prefix.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		fmt.Printf("MinIO: %s, bucket %s\n", cfg.MinioEndpoint, cfg.MinioBucket)

		store, err := storage.NewAssetStore(cfg)
		if err != nil {
			log.Fatalf("connect failed: %v", err)
		}

		var count int
		var total int64
		err = store.ListObjects(context.Background(), minioPrefix, func(key string, size int64) error {
			fmt.Printf("  %10d  %s\n", size, key)
			count++
			total += size
			return nil
		})
		if err != nil {
			log.Fatalf("list failed: %v", err)
		}
		fmt.Printf("%d objects, %d bytes\n", count, total)
	},
}

func init() {
	rootCmd.AddCommand(minioCmd)
	minioCmd.Flags().StringVar(&minioPrefix, "prefix", "", "filter objects by prefix")

	minioCmd.Example = `  # list every asset
  montage minio

  # only thumbnails
  montage minio --prefix "thumbs/"`
}
