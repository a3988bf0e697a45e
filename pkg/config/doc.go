// Package config loads the role administration console and dev backend
// configuration.
//
// Values come from built-in defaults, then an optional YAML file
// (ROLEADMIN_CONFIG_FILE), then ROLEADMIN_* environment variables:
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := cfg.Console.RequireAPI(); err != nil {
//		log.Fatal(err)
//	}
//
// Example file:
//
//	console:
//	  apiUrl: https://api.fooddie.example
//	  searchDebounce: 250ms
//	  candidateLimit: 50
//	devserver:
//	  store: postgres
//	  postgresUrl: postgres://localhost/roleadmin?sslmode=disable
package config
