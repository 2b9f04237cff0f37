package main

import (
	"context"
	"flag"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"yatube/cache"
	"yatube/crud"
	"yatube/database"
	yhttp "yatube/http"
	"yatube/storage"
)

// main is the app's entry point.
func main() {
	// "-prod" means we're running in production and a config file must be present.
	prod := flag.Bool("prod", false, "Provide this flag in production to ensure that a config file is provided before the application starts.")
	configPath := flag.String("config", ".config.json", "Path of the json config file.")
	// "-reset" drops and recreates every table. Development only.
	reset := flag.Bool("reset", false, "Drop and recreate all tables before starting. Refused in production.")
	flag.Parse()

	config, err := LoadConfig(*configPath, *prod)
	must(err)
	setupLogging(config)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Open a database connection and execute migrations.
	db, err := database.Open(config.Database, config.IsProd())
	must(err)
	defer database.Close(db)
	must(migrate(db, *reset, config.IsProd()))

	// Uploaded images live on disk.
	images := storage.NewImageService(config.MediaDir)

	// Start the crud services.
	services, err := crud.NewServices(
		db.Gorm,
		crud.WithImages(images),
		crud.WithUser(config.Pepper, config.HMACKey),
		crud.WithPost(config.PageSize),
		crud.WithGroup(),
		crud.WithComment(),
		crud.WithFollow(),
	)
	must(err)

	// Seed the groups.
	groups, err := database.LoadGroups(config.GroupsFile)
	must(err)
	must(services.Group.Seed(ctx, groups))

	pages, err := openPageCache(ctx, config.Cache)
	must(err)
	if closer, ok := pages.(io.Closer); ok {
		defer closer.Close()
	}

	// Set up a webserver.
	server := yhttp.NewServer(services, images, yhttp.Options{
		IsProd:   config.IsProd(),
		CSRFKey:  config.CSRFKey,
		MediaDir: config.MediaDir,
		Pages:    pages,
	})

	// Serve the app.
	if err := server.Run(ctx, config.Port); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Fatal("server stopped")
	}
}

// migrate brings the schema up to date. With reset it wipes the database first,
// which is never allowed in production.
func migrate(db *database.DB, reset, isProd bool) error {
	if !reset {
		return database.AutoMigrate(db)
	}
	if isProd {
		return errors.New("refusing to reset the database in production")
	}
	log.Warn("resetting the database")
	return database.DestructiveReset(db)
}

// setupLogging configures logrus for the environment: json in production, text otherwise.
func setupLogging(c Config) {
	if c.IsProd() {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		log.WithField("level", c.LogLevel).Warn("unknown log level, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

// openPageCache returns the page store selected by the config, or nil if caching is off.
func openPageCache(ctx context.Context, c CacheConfig) (cache.Store, error) {
	switch c.Backend {
	case "redis":
		r, err := cache.NewRedis(ctx, c.Redis, c.TTL())
		if err != nil {
			return nil, err
		}
		return r, nil
	case "none", "":
		return nil, nil
	default:
		return cache.NewMemory(c.Size, c.TTL()), nil
	}
}

// must is a little helper for shortening the panic instruction.
func must(err error) {
	if err != nil {
		panic(err)
	}
}
