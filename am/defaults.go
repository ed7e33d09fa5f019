package am

import (
	"github.com/spf13/viper"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Store: no default location, the operator must supply one
	v.SetDefault("store.connection_string", "")

	// Resetter
	v.SetDefault("reset.database_name", "orchestrator")
	v.SetDefault("reset.collection_name", "jobs")

	// Retrier
	v.SetDefault("retry.database_name", "orchestrator_v2")
	v.SetDefault("retry.collection_name", "jobs")
	v.SetDefault("retry.base_url", "http://localhost:3000")
	v.SetDefault("retry.retry_delay", 2)     // seconds between calls
	v.SetDefault("retry.batch_size", 1)      // fetch one document per round trip
	v.SetDefault("retry.timeout_seconds", 30)
	v.SetDefault("retry.block_private_ip", false) // retry endpoints usually live on localhost
	v.SetDefault("retry.schedule", "")

	// Metrics
	v.SetDefault("metrics.pushgateway_url", "")
	v.SetDefault("metrics.job_name", "jobsweep")

	// Logging
	v.SetDefault("log.json", false)
	v.SetDefault("log.theme", "everforest")
}

// BindSensitiveEnvVars explicitly binds sensitive configuration to environment variables
func BindSensitiveEnvVars(v *viper.Viper) {
	// Connection strings commonly carry credentials; accept the conventional name too
	_ = v.BindEnv("store.connection_string", EnvPrefix+"_STORE_CONNECTION_STRING", "MONGO_URI")
}
