package main

import (
	"fmt"
	"os"

	"github.com/alvarovalenzuelac/presuapp/internal/config"
	"github.com/alvarovalenzuelac/presuapp/internal/database"
	"github.com/alvarovalenzuelac/presuapp/internal/logger"
	"github.com/alvarovalenzuelac/presuapp/internal/services"
)

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Seed error: %v", err)
	}
}

func run() error {
	if _, err := config.Load(); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	dbConfig, err := database.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load database configuration: %w", err)
	}

	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}

	if err := dbManager.Migrate(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	parents, children, err := services.SeedGlobalCategories(dbManager.DB())
	if err != nil {
		return err
	}

	logger.Get().Infof("Seed complete: %d root categories and %d subcategories created", parents, children)
	return nil
}
