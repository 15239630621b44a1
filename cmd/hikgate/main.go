// hikgate is an access-control gateway in front of a HikCentral
// Professional appliance. It signs calls to the Artemis OpenAPI, keeps a
// vehicle index, runs the person create and update workflows and serves
// them behind role-based authentication.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata" // workflow.timezone must load on hosts without zoneinfo

	_ "github.com/hikgate/hikgate-core/migrations"

	"github.com/hikgate/hikgate-core/internal/api"
	"github.com/hikgate/hikgate-core/internal/audit"
	"github.com/hikgate/hikgate-core/internal/auth"
	"github.com/hikgate/hikgate-core/internal/events"
	"github.com/hikgate/hikgate-core/internal/hikcentral"
	"github.com/hikgate/hikgate-core/internal/infrastructure/config"
	"github.com/hikgate/hikgate-core/internal/infrastructure/database"
	"github.com/hikgate/hikgate-core/internal/infrastructure/influxdb"
	"github.com/hikgate/hikgate-core/internal/infrastructure/logging"
	"github.com/hikgate/hikgate-core/internal/infrastructure/mqtt"
	"github.com/hikgate/hikgate-core/internal/person"
	"github.com/hikgate/hikgate-core/internal/search"
	"github.com/hikgate/hikgate-core/internal/vehicle"
)

// Version information, set at build time via ldflags:
// go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run wires every component and blocks until ctx is cancelled.
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // linear startup sequence
	log := logging.Default()
	log.Info("starting hikgate",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	users := auth.NewUserRepository(db.DB)
	if _, seedErr := auth.SeedAdmin(ctx, users, cfg.Security.Seed.AdminUsername, cfg.Security.Seed.AdminPassword, log.Logger); seedErr != nil {
		return fmt.Errorf("seeding admin account: %w", seedErr)
	}

	health := map[string]api.HealthChecker{"database": db}

	// Vendor call metrics (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		health["influxdb"] = influxClient
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	vendor := hikcentral.New(hikcentral.Config{
		BaseURL: cfg.HikCentral.BaseURL,
		Credentials: hikcentral.Credentials{
			AppKey:    cfg.HikCentral.AppKey,
			AppSecret: cfg.HikCentral.AppSecret,
			UserID:    cfg.HikCentral.UserID,
		},
		VerifySSL:    cfg.HikCentral.VerifySSL,
		Timeout:      cfg.GetVendorTimeout(),
		VehicleGroup: cfg.HikCentral.VehicleGroup,
	})
	vendor.SetLogger(log.With("component", "hikcentral"))
	if influxClient != nil {
		vendor.SetObserver(influxClient)
	}
	health["hikcentral"] = vendorHealth{vendor}
	log.Info("HikCentral client ready",
		"base_url", cfg.HikCentral.BaseURL,
		"verify_ssl", cfg.HikCentral.VerifySSL,
	)

	vehicles := vehicle.NewCache(vendor, vehicle.Options{
		TTL:      cfg.GetVehicleTTL(),
		Workers:  cfg.Cache.VehicleWorkers,
		PageSize: cfg.Cache.VehiclePageSize,
		MaxPages: cfg.Cache.VehicleMaxPages,
		Logger:   log.With("component", "vehicle_cache"),
	})

	workflow := person.NewWorkflow(vendor, vehicles, person.Options{
		ResolveDelay:    cfg.GetResolveDelay(),
		ResolvePageSize: cfg.Workflow.ResolvePageSize,
		ResolveMaxPages: cfg.Workflow.ResolveMaxPages,
		VehicleWorkers:  cfg.Cache.VehicleWorkers,
		VehiclePageSize: cfg.Cache.VehiclePageSize,
		VehicleMaxPages: cfg.Cache.VehicleMaxPages,
		ValidityDays:    cfg.Workflow.DefaultValidityDays,
		Location:        cfg.Location(),
		Logger:          log.With("component", "workflow"),
	})

	searcher := search.New(vendor, vehicles, search.Options{
		Workers:  cfg.Search.Workers,
		PageSize: cfg.Search.PageSize,
		Limit:    cfg.Search.Limit,
		Logger:   log.With("component", "search"),
	})

	// Change notifications (optional)
	var publisher events.Publisher = events.Noop{}
	if cfg.MQTT.Enabled {
		mqttClient, mqttErr := mqtt.Connect(cfg.MQTT)
		if mqttErr != nil {
			return fmt.Errorf("connecting to MQTT: %w", mqttErr)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		publisher = events.NewMQTTPublisher(mqttClient)
		health["mqtt"] = mqttClient
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
			"topic_prefix", mqttClient.Topics().Prefix(),
		)
	} else {
		log.Info("MQTT disabled")
	}

	accessTTL := time.Duration(cfg.Security.JWT.AccessTokenTTL) * time.Minute
	server, err := api.New(api.Deps{
		Config:     cfg.API,
		Logger:     log,
		Vendor:     vendor,
		Workflow:   workflow,
		Searcher:   searcher,
		Vehicles:   vehicles,
		Users:      users,
		Tokens:     auth.NewTokenIssuer(cfg.Security.JWT.Secret, accessTTL),
		Audit:      audit.NewSQLiteRepository(db.DB),
		Events:     publisher,
		DefaultOrg: cfg.HikCentral.OrgIndexCode,
		Health:     health,
		Version:    version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	// Deferred closes run in reverse: API server (flushes audit), MQTT,
	// InfluxDB, database.
	return nil
}

// getConfigPath returns HIKGATE_CONFIG when set, otherwise the default path.
func getConfigPath() string {
	if path := os.Getenv("HIKGATE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// vendorHealth reports the appliance reachable when a one-row organisation
// listing succeeds. Business errors still prove reachability.
type vendorHealth struct {
	client *hikcentral.Client
}

func (v vendorHealth) HealthCheck(ctx context.Context) error {
	_, err := v.client.ListOrganizations(ctx, 1, 1)
	if err != nil && hikcentral.IsLocal(err) {
		return fmt.Errorf("hikcentral unreachable: %w", err)
	}
	return nil
}
