// Package config loads application settings from the environment and an
// optional .env file.
//
// Every setting is declared on a section struct with a 'mapstructure' key and
// a 'default' tag; the environment variable name is the upper-cased dotted
// key with dots replaced by underscores:
//   - Server: listen port, API key and shutdown timeout (SERVER_PORT)
//   - Database: driver (mysql or sqlite) and connection details (DATABASE_DRIVER)
//   - Storage: MinIO/S3 endpoint, credentials and bucket (STORAGE_BUCKET)
//   - Log: level and format (LOG_LEVEL)
//   - Things: the things feature (THINGS_AUTO_MIGRATE)
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Server.Address())
package config
