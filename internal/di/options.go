package di

// ConfigFile is the path of a YAML config file. When set it replaces both
// SSM and environment variables as the configuration source.
type ConfigFile string

// DisableSSM selects environment variables (and .env) over Parameter Store.
type DisableSSM bool

// Option is a function that configures the dependency injection container.
type Option func(*options)

func WithConfigFile(path string) Option {
	return func(opts *options) {
		opts.configFile = ConfigFile(path)
	}
}

func WithDisableSSM(disable bool) Option {
	return func(opts *options) {
		opts.disableSSM = disable
	}
}

// WithProviders adds constructor functions to the dependency injection container.
// Each provider should be a constructor function that returns one or more values.
// Providers can declare dependencies as function parameters, which will be
// automatically resolved by the container.
//
// Example:
//
//	WithProviders(
//	    func() *prometheus.Registry { return prometheus.NewRegistry() },
//	)
func WithProviders(providers ...any) Option {
	return func(opts *options) {
		opts.providers = append(opts.providers, providers...)
	}
}

type options struct {
	configFile ConfigFile
	disableSSM bool
	providers  []any
}
