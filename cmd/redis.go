package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"montage/cache"
	"montage/config"
)

var redisCmd = &cobra.Command{
	Use:   "redis",
	Short: "Test the Redis connection",
	Long:  `Verify the persisted frame cache backend is reachable and does basic reads and writes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		fmt.Printf("Redis: %s:%s, DB %d\n", cfg.RedisHost, cfg.RedisPort, cfg.RedisDB)

		if err := cache.ConnectRedis(cfg); err != nil {
			log.Fatalf("connect failed: %v", err)
		}
		fmt.Println("Connected.")

		if err := cache.TestRedis(); err != nil {
			log.Fatalf("round-trip failed: %v", err)
		}
		fmt.Println("Round-trip OK.")

		if err := cache.CloseRedis(); err != nil {
			log.Printf("close error: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(redisCmd)
}
