// Command seed creates a user account in the system of record
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/garyjia/po-approval/internal/config"
	"github.com/garyjia/po-approval/internal/container"
	"github.com/garyjia/po-approval/internal/domain/entity"
	"github.com/garyjia/po-approval/pkg/utils"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	email := flag.String("email", "", "email address of the new user")
	name := flag.String("name", "", "display name recorded on decisions")
	password := flag.String("password", "", "password (defaults to $PO_PASSWORD)")
	role := flag.String("role", string(entity.RoleRequester), "requester or reviewer")
	flag.Parse()

	if *password == "" {
		*password = os.Getenv("PO_PASSWORD")
	}
	if *email == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "usage: seed -email EMAIL -password PASSWORD [-name NAME] [-role requester|reviewer]")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.ValidateServer(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{Level: "warn", OutputPath: "stderr", Format: "console"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		logger.Fatal("Failed to create database directory", zap.Error(err))
	}

	ctr, err := container.NewContainer(cfg.ToContainerConfig(), logger)
	if err != nil {
		logger.Fatal("Failed to create container", zap.Error(err))
	}

	ctx := context.Background()
	if err := ctr.Start(ctx); err != nil {
		logger.Fatal("Failed to start container", zap.Error(err))
	}
	defer ctr.Close()

	user, err := ctr.Services().Auth.Register(ctx, *email, *name, *password, entity.Role(*role))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create user: %v\n", err)
		ctr.Close()
		os.Exit(1)
	}

	fmt.Printf("created %s %s (%s)\n", user.Role, user.Email, user.ID)
}
