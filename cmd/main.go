package main

import (
	"os"

	"github.com/franciscosanchezn/gin-token-exchange/internal/config"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "token-exchange",
	Short: "Virtual credential OAuth2 exchange",
	Long: `token-exchange hands clients virtual tokens in place of real provider
service account credentials and resolves them for the edge router.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		loadDotenvFile()
		setUpLogger()
	},
	SilenceUsage: true,
}

// @title Token Exchange API
// @version 1.0
// @description OAuth2 token exchange issuing virtual credentials backed by upstream service accounts
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the admin JWT.
func main() {
	rootCmd.AddCommand(serveCmd, sweepCmd, publishCmd, seedCmd, adminTokenCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadDotenvFile loads environment variables from a .env file
// If the file is not found, it will log a warning and use system environment variables
func loadDotenvFile() {
	if err := godotenv.Load(); err != nil {
		log.Warn("No .env file found, using system environment variables")
	}
}

// setUpLogger initializes the logger with a JSON formatter and sets the log level based on the environment.
// LOG_LEVEL wins over the environment default when it parses.
func setUpLogger() {
	log.SetFormatter(&log.JSONFormatter{})
	environment := config.GetEnvWithDefault("APP_ENV", "development")
	switch environment {
	case "development":
		log.SetLevel(log.DebugLevel)
	case "production":
		log.SetLevel(log.ErrorLevel)
	default:
		log.SetLevel(log.InfoLevel)
	}
	if level, err := log.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		log.SetLevel(level)
	}
}
