package main

import (
	"context"
	"os"

	"github.com/fjod/scoremash/internal/config"
	"github.com/fjod/scoremash/internal/logger"
	"github.com/fjod/scoremash/internal/repository"
	"github.com/fjod/scoremash/internal/seed"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "scoremash",
		Usage: "cricket gear shop: cart, checkout and accounts",
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
			seedCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		logrus.WithError(err).Fatal("scoremash failed")
	}
}

// bootstrap loads config, builds the logger and opens the database.
func bootstrap(ctx context.Context) (*config.Config, *logrus.Logger, *repository.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "load config")
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "build logger")
	}

	db, err := repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return nil, nil, nil, err
	}
	log.WithField("database", cfg.MongoDB).Info("connected to MongoDB")
	return cfg, log, repository.NewStore(db), nil
}

func disconnect(store *repository.Store, log logrus.FieldLogger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := store.Close(ctx); err != nil {
		log.WithError(err).Warn("mongo disconnect")
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "apply or roll back database migrations",
		Subcommands: []*cli.Command{
			{
				Name:  "up",
				Usage: "apply all pending migrations",
				Action: func(c *cli.Context) error {
					_, log, store, err := bootstrap(c.Context)
					if err != nil {
						return err
					}
					defer disconnect(store, log)

					if err := repository.RunMigrations(store.DB); err != nil {
						return err
					}
					log.Info("migrations applied")
					return nil
				},
			},
			{
				Name:  "down",
				Usage: "roll back migrations",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "steps", Value: 1, Usage: "number of migrations to roll back"},
				},
				Action: func(c *cli.Context) error {
					steps := c.Int("steps")
					if steps <= 0 {
						return errors.New("steps must be positive")
					}
					_, log, store, err := bootstrap(c.Context)
					if err != nil {
						return err
					}
					defer disconnect(store, log)

					if err := repository.RollbackMigrations(store.DB, steps); err != nil {
						return err
					}
					log.WithField("steps", steps).Info("migrations rolled back")
					return nil
				},
			},
		},
	}
}

func seedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "load the product catalog from a JSON file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Required: true, Usage: "catalog JSON file"},
		},
		Action: func(c *cli.Context) error {
			products, err := seed.LoadFile(c.String("file"))
			if err != nil {
				return err
			}

			_, log, store, err := bootstrap(c.Context)
			if err != nil {
				return err
			}
			defer disconnect(store, log)

			if err := repository.RunMigrations(store.DB); err != nil {
				return err
			}
			n, err := seed.NewSeeder(store.Products, log).Seed(c.Context, products)
			if err != nil {
				return err
			}
			log.WithField("products", n).Info("catalog seeded")
			return nil
		},
	}
}
