package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"transport_routes/internal/config"
)

var configPath = flag.String("config", os.Getenv("CONFIG_FILE"), "optional YAML config file")

// serverDatabase is the maintenance database used to reach the server
// before the target database is known to exist.
var serverDatabase = map[string]string{
	config.DriverPostgres: "postgres",
	config.DriverMySQL:    "",
}

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("❌ Invalid configuration: %v\n", err)
		os.Exit(1)
	}
	dbCfg := cfg.Database

	fmt.Println("🚀 DATABASE CONNECTION DIAGNOSTIC")
	fmt.Println("==================================================")
	fmt.Printf("   OS: %s/%s, Go: %s\n\n", runtime.GOOS, runtime.GOARCH, runtime.Version())

	fmt.Println("🔍 Connection settings:")
	fmt.Printf("   %s\n\n", dbCfg.String())

	ok := checkServer(dbCfg) && checkDatabase(dbCfg)

	if !ok {
		printHints(dbCfg)
		os.Exit(1)
	}
	fmt.Println("✅ All checks passed")
}

func open(c config.DatabaseConfig) (*gorm.DB, error) {
	return config.Open(c, &gorm.Config{Logger: gormlogger.Discard})
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}

// checkServer connects without the target database and reports the engine
// version and the databases it hosts.
func checkServer(c config.DatabaseConfig) bool {
	fmt.Println("🔗 Step 1: connecting to the database server...")
	serverCfg := c
	if name, ok := serverDatabase[c.Driver]; ok {
		serverCfg = c.WithName(name)
	}

	db, err := open(serverCfg)
	if err != nil {
		fmt.Printf("❌ Server connection failed: %v\n", err)
		return false
	}
	defer closeDB(db)
	fmt.Println("✅ Server connection OK")

	versionQuery := "SELECT version()"
	if c.Driver == config.DriverSQLite {
		versionQuery = "SELECT sqlite_version()"
	}
	var version string
	if err := db.Raw(versionQuery).Row().Scan(&version); err != nil {
		fmt.Printf("❌ Version query failed: %v\n", err)
		return false
	}
	fmt.Printf("📊 Engine version: %s\n", version)

	var databases []string
	switch c.Driver {
	case config.DriverPostgres:
		err = db.Raw("SELECT datname FROM pg_database WHERE datistemplate = false ORDER BY datname").Scan(&databases).Error
	case config.DriverMySQL:
		err = db.Raw("SHOW DATABASES").Scan(&databases).Error
	}
	if err != nil {
		fmt.Printf("⚠️  Could not list databases: %v\n", err)
	} else if len(databases) > 0 {
		fmt.Printf("📋 Databases: %v\n", databases)
	}
	fmt.Println()
	return true
}

// checkDatabase connects to the configured database and inspects its tables.
func checkDatabase(c config.DatabaseConfig) bool {
	fmt.Printf("🔗 Step 2: connecting to %q...\n", c.Name)
	db, err := open(c)
	if err != nil {
		fmt.Printf("❌ Database connection failed: %v\n", err)
		return false
	}
	defer closeDB(db)
	fmt.Println("✅ Database connection OK")

	tables, err := db.Migrator().GetTables()
	if err != nil {
		fmt.Printf("❌ Could not list tables: %v\n", err)
		return false
	}
	fmt.Printf("📋 Tables: %v\n", tables)

	if db.Migrator().HasTable("routes") {
		var count int64
		if err := db.Table("routes").Count(&count).Error; err != nil {
			fmt.Printf("❌ Could not count routes: %v\n", err)
			return false
		}
		fmt.Printf("🛣️  Routes: %d\n", count)
	} else {
		fmt.Println("⚠️  Table 'routes' not found; start the server with DB_AUTO_MIGRATE=true to create it")
	}
	fmt.Println()
	return true
}

func printHints(c config.DatabaseConfig) {
	fmt.Println("\n💡 Common fixes:")
	switch c.Driver {
	case config.DriverPostgres:
		fmt.Println("1. Check the server: sudo systemctl status postgresql")
		fmt.Printf("2. Create the database: CREATE DATABASE %s WITH ENCODING 'UTF8';\n", c.Name)
		fmt.Println("3. Check DB_USER / DB_PASSWORD and pg_hba.conf authentication")
		fmt.Println("4. Encoding errors: set PGCLIENTENCODING=UTF8")
	case config.DriverMySQL:
		fmt.Println("1. Check the server: sudo systemctl status mysql")
		fmt.Printf("2. Create the database: CREATE DATABASE %s CHARACTER SET utf8mb4;\n", c.Name)
		fmt.Println("3. Check DB_USER / DB_PASSWORD grants")
	case config.DriverSQLite:
		fmt.Printf("1. Check that the directory of %s exists and is writable\n", c.Path)
	}
}
