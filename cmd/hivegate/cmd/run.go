package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/hivegate/hivegate/pkg/db"
	"github.com/hivegate/hivegate/pkg/hapi"
	"github.com/hivegate/hivegate/pkg/hapi/config"
	"github.com/hivegate/hivegate/pkg/hapi/routes"
	"github.com/hivegate/hivegate/pkg/hapi/services"
	"github.com/hivegate/hivegate/pkg/hlog"
	"github.com/hivegate/hivegate/pkg/kv"
	"github.com/hivegate/hivegate/pkg/sched"
	"github.com/hivegate/hivegate/pkg/usage"
	"github.com/spf13/cobra"
)

var schedConfigFile string

// runCmd starts the gateway.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the admission gateway",
	Run:   run,
}

func init() {
	runCmd.Flags().StringVar(&schedConfigFile, "scheduler-config", "", "path to the scheduler validator config file")
	rootCmd.AddCommand(runCmd)
}

func run(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	logger := hlog.NewDefault()

	cfg, err := config.ValidateEnv()
	if err != nil {
		log.Fatalf("%v\n", err)
	}
	cfg.Print(log.Printf)

	database, err := db.New(ctx, db.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		Database: cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}
	defer database.Close()

	var kvStore kv.Store
	if cfg.ValkeyAddr != "" {
		kvStore, err = kv.NewValkeyStore(kv.ValkeyConfig{
			Addr:     cfg.ValkeyAddr,
			Password: cfg.ValkeyPassword,
			DB:       cfg.ValkeyDB,
		})
		if err != nil {
			log.Fatalf("failed to connect to valkey: %v", err)
		}
	} else {
		kvStore = kv.NewMemoryStore()
	}
	defer kvStore.Close()

	schedCfg, err := sched.LoadConfig(schedConfigFile)
	if err != nil {
		log.Fatalf("failed to load scheduler config: %v", err)
	}
	schedClient := usage.MakePesterClient(logger)
	schedClient.Timeout = schedCfg.Timeout

	svcs := services.NewServices(cfg, database, kvStore, schedCfg.Validator(schedClient), logger)

	api := hapi.NewApi()
	routes.RegisterAPI(api.Api, svcs)

	addr := fmt.Sprintf(":%s", cfg.Port)

	log.Printf("Gateway starting on %s\n", addr)
	log.Printf("OpenAPI docs: %s/docs\n", cfg.BaseURL)
	log.Printf("OpenAPI spec: %s/openapi.json\n", cfg.BaseURL)

	if err := http.ListenAndServe(addr, api.Router); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
