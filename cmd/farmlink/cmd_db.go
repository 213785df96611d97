package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"farmlink/config"
	"farmlink/database/seeders"
	"farmlink/pkg/database"
)

// bootDB loads config and opens the database connection.
func bootDB(ctx context.Context) (*database.DB, error) {
	if err := config.Load(); err != nil {
		return nil, err
	}
	return database.Connect(ctx)
}

// farmlink db:index — create the MongoDB indexes.
var dbIndexCmd = &cobra.Command{
	Use:   "db:index",
	Short: "Create the MongoDB indexes",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		db, err := bootDB(ctx)
		if err != nil {
			return err
		}
		defer db.Close(context.Background())

		fmt.Println("Creating indexes…")
		if err := db.EnsureIndexes(ctx); err != nil {
			return err
		}
		fmt.Println("Indexes ready.")
		return nil
	},
}

// farmlink db:seed — run all database seeders.
var dbSeedCmd = &cobra.Command{
	Use:   "db:seed",
	Short: "Run all database seeders",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
		defer cancel()

		db, err := bootDB(ctx)
		if err != nil {
			return err
		}
		defer db.Close(context.Background())

		fmt.Println("Running seeders…")
		return seeders.RunAll(ctx, db)
	},
}
