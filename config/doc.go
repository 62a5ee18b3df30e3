// Package config loads layered configuration with viper and godotenv.
//
// A config.yml is looked up under ./cmd/<service>/, ./config/ and the
// working directory, a .env file is loaded into the process environment,
// and prefixed environment variables override both. See LoadConfig for the
// environment key format.
package config
