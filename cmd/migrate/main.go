package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"contratos.app/internal/migrate"
)

func main() {
	var dsn string
	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Apply the contratos PostgreSQL schema",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&dsn, "dsn", os.Getenv("CONTRATOS_DATABASE_DSN"), "PostgreSQL DSN")

	run := func(op func(*migrate.Manager, context.Context) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			if dsn == "" {
				return errors.New("missing DSN: provide via --dsn or CONTRATOS_DATABASE_DSN")
			}
			db, err := sql.Open("pgx", dsn)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer db.Close()
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			return op(migrate.NewManager(db), ctx)
		}
	}
	root.AddCommand(
		&cobra.Command{Use: "up", Short: "Apply pending migrations", Args: cobra.NoArgs, RunE: run((*migrate.Manager).Up)},
		&cobra.Command{Use: "down", Short: "Roll back the latest migration", Args: cobra.NoArgs, RunE: run((*migrate.Manager).Down)},
		&cobra.Command{Use: "status", Short: "Print migration status", Args: cobra.NoArgs, RunE: run((*migrate.Manager).Status)},
	)

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}
