// @title Vet Clinic Records API
// @version 1.0
// @description Owners, mascotas y sus atributos libres (nombre/valor/orden).
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"vet-clinic-records/internal/config"
	"vet-clinic-records/internal/platform/logger"
)

var (
	cfg config.Config
	log logger.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "vet-clinic",
		Short:        "Vet clinic records: owners, pets and pet attributes",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			log = logger.New(logger.Options{
				Level:  logger.ParseLevel(cfg.LogLevel),
				Format: logger.ParseFormat(cfg.LogFormat),
				App:    cfg.AppName,
			})
			return nil
		},
	}

	rootCmd.AddCommand(
		serveCmd(),
		migrateCmd(),
		tokenCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
