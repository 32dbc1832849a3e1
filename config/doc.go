// Package config loads the configuration of a loop-based program.
//
// Load searches for config.yml and a .env file in the usual locations
// (./cmd/<name>/, ./config/, the working directory and its parents), then
// lets environment variables override file values. An environment variable
// is mapped to every nested key it could name, so POOL_WORKERS sets
// pool.workers and TELEMETRY_SAMPLE_RATE sets telemetry.sample_rate.
//
//	var cfg config.Config
//	if err := config.Load("loopbench", &cfg, config.WithConfigFile(path)); err != nil {
//	    return err
//	}
//	cfg.ApplyDefaults()
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
package config
