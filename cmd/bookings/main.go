package main

import (
	"stylo/pkg/app"
	"stylo/pkg/config"
)

const ServiceName = "bookings"

func main() {
	cfg := config.Load(ServiceName)

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal("Invalid configuration", "error", err)
	}
	cfg.LogConfiguration()

	if !cfg.UsesMemoryStore() {
		cfg.SetMongo()
		cfg.SetRedis()
	}
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Bookings service", "store", cfg.StoreBackend)
	serverApp, err := app.NewApplication(cfg)
	if err != nil {
		cfg.GracefulShutdown()
		cfg.Log.Fatal("Failed to initialize application", "error", err)
	}
	serverApp.Run()
}
