package config

// Exported for tests in config_test.
var (
	ResolveToken = resolveToken
	Validate     = validate
)
