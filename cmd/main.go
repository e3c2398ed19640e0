package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"gas_usage/internal/handlers"
	"gas_usage/internal/logger"
	"gas_usage/internal/repository"
	"gas_usage/internal/server"
	"gas_usage/internal/service"
	"gas_usage/internal/source"

	"github.com/spf13/viper"
)

// Fallbacks for optional config keys.
const (
	defaultK             = 7.97
	defaultGasPrice      = 0.50 // EUR per cubic meter
	defaultRefreshTick   = 1 * time.Minute
	defaultRefreshWindow = 24 * time.Hour
	defaultSnapshotHours = 24
)

func main() {
	// load config.yml first so the logger can pick up its level
	cfgErr := loadConfig()

	log := logger.Get(viper.GetString("log_level"))
	if cfgErr != nil {
		log.Fatalw("error reading config", "err", cfgErr)
	}

	// open DB
	db, err := openDB(log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			log.Fatalw("failed to close sqlite", "err", cerr)
		}
	}()

	// wire dependencies
	repos := repository.NewRepository(db)
	src := source.NewInfluxClient(influxConfig(), log)
	services := service.NewService(repos, src, log, viper.GetString("auth.signing_key"), modelDefaults())
	apiHandler := handlers.NewHandler(services, log)

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// start the trailing-window refresher (via composed service)
	go services.Refresher.Run(ctx, refreshTick())

	// start HTTP server
	srv := &server.Server{}
	runHTTPServer(srv, viper.GetString("port"), apiHandler, log)

	// graceful shutdown
	waitForShutdown(cancel, srv, log)
}

func loadConfig() error {
	viper.AddConfigPath("configs") // configs/config.yml
	viper.SetConfigName("config")

	// Credentials can be supplied as GAS_USAGE_INFLUX_PASSWORD etc.
	viper.SetEnvPrefix("GAS_USAGE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	return viper.ReadInConfig()
}

// openDB initializes the SQLite database using configuration.
func openDB(log *logger.Logger) (*sql.DB, error) {
	dbPath := viper.GetString("db.path")
	if dbPath == "" {
		log.Infow("db.path not set in config; using default file", "default", "app.db")
		dbPath = "app.db"
	}
	return repository.InitDB(dbPath)
}

// influxConfig reads the historian connection settings.
func influxConfig() source.Config {
	return source.Config{
		Host:            viper.GetString("influx.host"),
		Port:            viper.GetString("influx.port"),
		Database:        viper.GetString("influx.database"),
		RetentionPolicy: viper.GetString("influx.retention_policy"),
		Username:        viper.GetString("influx.username"),
		Password:        viper.GetString("influx.password"),
		SSL:             viper.GetBool("influx.ssl"),
	}
}

// modelDefaults reads the gas-model seeds and refresher shape, falling
// back to the built-in constants for anything unset.
func modelDefaults() service.Defaults {
	d := service.Defaults{
		K:              viper.GetFloat64("model.default_k"),
		GasPrice:       viper.GetFloat64("model.default_gas_price"),
		GasMeterOffset: viper.GetDuration("model.gas_meter_offset"),
		RefreshWindow:  viper.GetDuration("refresher.window"),
		SnapshotHours:  viper.GetInt("refresher.snapshot_hours"),
	}
	if d.K <= 0 {
		d.K = defaultK
	}
	if d.GasPrice <= 0 {
		d.GasPrice = defaultGasPrice
	}
	if d.RefreshWindow <= 0 {
		d.RefreshWindow = defaultRefreshWindow
	}
	if d.SnapshotHours <= 0 {
		d.SnapshotHours = defaultSnapshotHours
	}
	return d
}

func refreshTick() time.Duration {
	if tick := viper.GetDuration("refresher.tick"); tick > 0 {
		return tick
	}
	return defaultRefreshTick
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if port == "" {
			port = "8080"
		}
		if err := srv.Run(port, handler.InitRoutes()); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop background goroutines
	cancel()

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalw("server forced to shutdown", "err", err)
	}
}
