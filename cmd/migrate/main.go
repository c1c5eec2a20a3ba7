package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"time"

	"hosi.com/identity/internal/migrate"
	"hosi.com/identity/internal/store/sqlstore"
	"hosi.com/identity/ops/migrations"
)

func main() {
	log.SetFlags(0)
	var (
		driver         = flag.String("driver", envOr("IDENTITY_DB_DRIVER", sqlstore.DriverPostgres), "Database driver (pgx or sqlite)")
		dsn            = flag.String("dsn", os.Getenv("IDENTITY_DB_DSN"), "Database DSN")
		migrationsPath = flag.String("migrations", "", "Directory of SQL migrations (default: embedded)")
		seedsPath      = flag.String("seeds", "", "Directory of SQL seeds (default: embedded)")
	)
	flag.Parse()

	if *dsn == "" {
		log.Fatal("missing DSN: provide via -dsn or IDENTITY_DB_DSN")
	}
	if len(flag.Args()) == 0 {
		log.Fatal("usage: migrate [up|down|seed|status]")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := sqlstore.Open(*driver, *dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer store.Close()

	mgr := migrate.NewManager(store.DB(), dirOr(*migrationsPath, migrations.SQL()), dirOr(*seedsPath, migrations.Seeds()))

	switch flag.Arg(0) {
	case "up":
		err = mgr.Up(ctx)
	case "down":
		err = mgr.Down(ctx)
	case "seed":
		err = mgr.Seed(ctx)
	case "status":
		var history []string
		history, err = mgr.Status(ctx)
		if err == nil {
			for _, item := range history {
				fmt.Println(item)
			}
		}
	default:
		log.Fatalf("unknown command %q", flag.Arg(0))
	}
	if err != nil {
		log.Fatalf("migrate %s: %v", flag.Arg(0), err)
	}
}

func dirOr(dir string, fallback fs.FS) fs.FS {
	if dir == "" {
		return fallback
	}
	return os.DirFS(dir)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
