// Package config loads restkit settings and service properties.
//
// LoadConfig unmarshals a YAML/JSON/TOML settings file into a struct such
// as Settings, with RESTKIT_* environment variables overriding file values.
// LoadProperties flattens a properties source into the dotted key map read
// by rest.PropertiesSource:
//
//	props, err := config.LoadProperties(
//	    config.WithConfigFile("service.properties"),
//	    config.WithEnvFile(".env"),
//	)
//
// Both loaders read a .env file with godotenv first. Environment variables
// override property values by upper-casing the key and replacing '.' and
// '-' with '_' (SERVICE_ITEMS_END_POINT overrides service.items.end-point).
package config
