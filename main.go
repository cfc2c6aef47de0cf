package main

import (
	"fmt"
	"log"
	"os"

	"github.com/makedealcrm/dealstack/config"
	"github.com/makedealcrm/dealstack/internal/database"
	"github.com/makedealcrm/dealstack/internal/repository"
	"github.com/makedealcrm/dealstack/server"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: dealstack <command>")
		fmt.Println("Commands:")
		fmt.Println("  migrate   Run database migrations")
		fmt.Println("  server    Start the application server")
		os.Exit(1)
	}

	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("Config initialization failed: %v", err)
	}
	if cfg == nil {
		log.Fatalf("config is empty")
	}

	// Setup the database
	dealstackDB, err := database.InitDealstackDatabase(&database.DatabaseConfig{
		DBName:          cfg.DealstackDatabaseConfig.DBName,
		Host:            cfg.DealstackDatabaseConfig.Host,
		Port:            cfg.DealstackDatabaseConfig.Port,
		User:            cfg.DealstackDatabaseConfig.User,
		Password:        cfg.DealstackDatabaseConfig.Password,
		MaxConn:         cfg.DealstackDatabaseConfig.MaxConn,
		MaxIdleConn:     cfg.DealstackDatabaseConfig.MaxIdleConn,
		ConnMaxLifetime: cfg.DealstackDatabaseConfig.ConnMaxLifetime,
		LogLevel:        cfg.DealstackDatabaseConfig.LogLevel,
		SSLMode:         cfg.DealstackDatabaseConfig.SSLMode,
	})
	if err != nil {
		log.Fatalf("Dealstack database initialization failed: %v", err)
	}

	switch os.Args[1] {
	case "migrate":

		err := repository.MigrateDB(dealstackDB)
		if err != nil {
			log.Fatalf("Database migration failed: %v", err)
		}
		log.Println("Database migration completed successfully")

	case "server":

		log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
		log.Println("DealStack starting up...")

		srv, err := server.NewServer(cfg, dealstackDB)
		if err != nil {
			log.Fatalf("Server setup failed: %v", err)
		}

		err = srv.Run()
		if err != nil {
			log.Fatalf("Server startup failed: %v", err)
		}

		log.Println("Shutdown complete")

	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		fmt.Println("Usage: dealstack <command>")
		fmt.Println("Commands:")
		fmt.Println("  migrate   Run database migrations")
		fmt.Println("  server    Start the application server")
		os.Exit(1)
	}
}
