// Package main provides the entry point for the shawty URL shortener service.
//
//	@title			shawty URL Shortener API
//	@version		1.0.0
//	@description	URL shortener with password protected links, click quotas and click analytics.
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8080
//	@BasePath	/
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT Authorization header. Format: "Bearer {token}"
package main

import (
	"fmt"
	lg "log"
	"os"
	"time"

	"shawty-backend/internal/auth"
	"shawty-backend/internal/config"
	"shawty-backend/internal/database"
	"shawty-backend/pkg/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "backend",
	Short: "shawty URL shortener backend",
	Long:  "Redirect and analytics service: short links with optional password, expiry and click quota.",
	// без подкоманды запускаем сервер
	RunE: runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server and the analytics workers",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and exit",
	RunE:  runMigrate,
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an access token for local testing of owner endpoints",
	RunE:  runToken,
}

func init() {
	tokenCmd.Flags().Int64("user", 0, "User ID to put into the token")
	tokenCmd.Flags().String("email", "", "Optional email claim")
	tokenCmd.Flags().Duration("ttl", 0, "Token lifetime (default from config)")
	_ = tokenCmd.MarkFlagRequired("user")

	rootCmd.AddCommand(serveCmd, migrateCmd, tokenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMigrate(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("cannot read config: %w", err)
	}
	log := logger.New(cfg.Env)
	defer syncLogger(log)

	if cfg.Database.Driver == driverMemory {
		log.Info("memory driver selected, nothing to migrate")
		return nil
	}

	db, err := database.NewConnection(&cfg.Database, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(db, log); err != nil {
			log.Error("failed to close database connection", zap.Error(err))
		}
	}()

	return database.AutoMigrate(db, log)
}

func runToken(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("cannot read config: %w", err)
	}

	userID, _ := cmd.Flags().GetInt64("user")
	email, _ := cmd.Flags().GetString("email")
	ttl, _ := cmd.Flags().GetDuration("ttl")
	if userID <= 0 {
		return fmt.Errorf("--user must be positive")
	}

	jwtConfig := auth.NewJWTConfig(&cfg.Auth)
	if ttl > 0 {
		jwtConfig.AccessTokenDuration = ttl
	}
	token, err := auth.NewJWTService(jwtConfig).GenerateAccessToken(userID, email)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), token)
	fmt.Fprintf(cmd.ErrOrStderr(), "expires at %s\n", time.Now().Add(jwtConfig.AccessTokenDuration).UTC().Format(time.RFC3339))
	return nil
}

func syncLogger(log *zap.Logger) {
	if err := log.Sync(); err != nil {
		lg.Printf("ERROR: failed to sync zap logger: %v\n", err)
	}
}
