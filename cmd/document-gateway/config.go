package main

import (
	"context"
	"flag"
	"io"
	"strings"

	"github.com/diwise/document-gateway/internal/pkg/infrastructure/database"
	"github.com/diwise/service-chassis/pkg/infrastructure/env"
)

type FlagType int
type FlagMap map[FlagType]string

const (
	listenAddress FlagType = iota
	servicePort

	storeBackend
	resourcesConfigPath
	normalizeErrors
	allowedOrigins

	logFormat
)

type AppConfig struct {
	store           database.Config
	resourcesConfig io.ReadCloser
	normalizeErrors bool
	allowedOrigins  []string
}

func DefaultFlags(ctx context.Context) FlagMap {
	return FlagMap{
		listenAddress: "",
		servicePort:   env.GetVariableOrDefault(ctx, "SERVICE_PORT", "5000"),

		storeBackend:        env.GetVariableOrDefault(ctx, "STORE_BACKEND", database.BackendMongo),
		resourcesConfigPath: env.GetVariableOrDefault(ctx, "RESOURCES_CONFIG_PATH", ""),
		normalizeErrors:     env.GetVariableOrDefault(ctx, "NORMALIZE_ERROR_STATUS", "false"),
		allowedOrigins:      env.GetVariableOrDefault(ctx, "ALLOWED_ORIGINS", "*"),

		logFormat: env.GetVariableOrDefault(ctx, "LOG_FORMAT", "json"),
	}
}

// parseExternalConfig lets command line flags override the environment
func parseExternalConfig(flags FlagMap, args []string) (FlagMap, error) {
	fs := flag.NewFlagSet("document-gateway", flag.ContinueOnError)

	apply := func(f FlagType) func(string) error {
		return func(value string) error {
			flags[f] = value
			return nil
		}
	}

	fs.Func("address", "address to listen on (all interfaces by default)", apply(listenAddress))
	fs.Func("port", "port number to serve requests on", apply(servicePort))
	fs.Func("store", "document store backend: mongo, bolt, postgres, sqlite or memory", apply(storeBackend))
	fs.Func("resources", "path to a yaml file declaring the served resources", apply(resourcesConfigPath))
	fs.Func("log-format", "log output format, json or text", apply(logFormat))

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	return flags, nil
}

func newStoreConfig(ctx context.Context, flags FlagMap) database.Config {
	return database.Config{
		Backend: flags[storeBackend],

		MongoURI:      env.GetVariableOrDefault(ctx, "MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: env.GetVariableOrDefault(ctx, "MONGO_DATABASE", "TuneThreads"),

		BoltPath:   env.GetVariableOrDefault(ctx, "BOLT_PATH", "./data/gateway.db"),
		SqlitePath: env.GetVariableOrDefault(ctx, "SQLITE_PATH", "./data/gateway.sqlite"),

		Postgres: database.PostgresConfig{
			Host:     env.GetVariableOrDefault(ctx, "POSTGRES_HOST", ""),
			User:     env.GetVariableOrDefault(ctx, "POSTGRES_USER", ""),
			Password: env.GetVariableOrDefault(ctx, "POSTGRES_PASSWORD", ""),
			Port:     env.GetVariableOrDefault(ctx, "POSTGRES_PORT", "5432"),
			DBName:   env.GetVariableOrDefault(ctx, "POSTGRES_DBNAME", "tunethreads"),
			SSLMode:  env.GetVariableOrDefault(ctx, "POSTGRES_SSLMODE", "disable"),
		},
	}
}

func splitOrigins(origins string) []string {
	result := []string{}

	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			result = append(result, o)
		}
	}

	if len(result) == 0 {
		result = append(result, "*")
	}

	return result
}
