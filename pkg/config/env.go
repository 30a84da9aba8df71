package config

// Environment constants
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// IsProductionLike reports whether the environment should enforce
// production configuration requirements.
func IsProductionLike(environment string) bool {
	return environment == EnvProduction || environment == EnvStaging
}
