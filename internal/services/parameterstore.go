package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ParameterStore defines the interface for accessing configuration parameters
type ParameterStore interface {
	// GetParameter retrieves a single parameter by name
	GetParameter(ctx context.Context, name string) (string, error)

	// GetConfig loads all application configuration
	GetConfig(ctx context.Context) (*Config, error)
}

// parseConfig fills a Config from vars keyed by environment variable name,
// applying defaults for anything missing.
func parseConfig(vars map[string]string) (*Config, error) {
	var config Config
	if err := env.ParseWithOptions(&config, env.Options{Environment: vars}); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &config, nil
}

// SSMParameterName converts a parameter suffix such as "client-id" into the
// matching environment variable name, CLIENT_ID.
func SSMParameterName(suffix string) string {
	return strings.ToUpper(strings.ReplaceAll(suffix, "-", "_"))
}

// SSMAPI is the subset of the SSM client used by SSMParameterStore.
type SSMAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
	GetParametersByPath(ctx context.Context, params *ssm.GetParametersByPathInput, optFns ...func(*ssm.Options)) (*ssm.GetParametersByPathOutput, error)
}

// SSMParameterStore implements ParameterStore using AWS Systems Manager Parameter Store.
// Parameters live under /{env}/auth-broker/, e.g. /prod/auth-broker/client-id.
type SSMParameterStore struct {
	client SSMAPI
	env    string
	mu     sync.RWMutex
	cache  map[string]string
}

// NewSSMParameterStore creates a new SSM-backed parameter store
func NewSSMParameterStore(client SSMAPI, env string) *SSMParameterStore {
	return &SSMParameterStore{
		client: client,
		env:    env,
		cache:  make(map[string]string),
	}
}

// SSMParameterPath returns the Parameter Store path holding the configuration
// for env.
func SSMParameterPath(env string) string {
	return fmt.Sprintf("/%s/auth-broker", env)
}

func (s *SSMParameterStore) path() string {
	return SSMParameterPath(s.env)
}

// GetParameter retrieves a single parameter from SSM Parameter Store
func (s *SSMParameterStore) GetParameter(ctx context.Context, name string) (string, error) {
	s.mu.RLock()
	if value, ok := s.cache[name]; ok {
		s.mu.RUnlock()
		return value, nil
	}
	s.mu.RUnlock()

	result, err := s.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("failed to get parameter %s: %w", name, err)
	}

	if result.Parameter == nil || result.Parameter.Value == nil {
		return "", fmt.Errorf("parameter %s not found", name)
	}

	value := *result.Parameter.Value

	s.mu.Lock()
	s.cache[name] = value
	s.mu.Unlock()

	return value, nil
}

// GetConfig loads all application configuration from Parameter Store
func (s *SSMParameterStore) GetConfig(ctx context.Context) (*Config, error) {
	path := s.path()

	vars := make(map[string]string)
	paginator := ssm.NewGetParametersByPathPaginator(s.client, &ssm.GetParametersByPathInput{
		Path:           aws.String(path),
		Recursive:      aws.Bool(true),
		WithDecryption: aws.Bool(true),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get parameters by path %s: %w", path, err)
		}

		s.mu.Lock()
		for _, param := range page.Parameters {
			if param.Name == nil || param.Value == nil {
				continue
			}
			s.cache[*param.Name] = *param.Value

			suffix := strings.TrimPrefix(strings.TrimPrefix(*param.Name, path), "/")
			vars[SSMParameterName(suffix)] = *param.Value
		}
		s.mu.Unlock()
	}

	return parseConfig(vars)
}

// EnvParameterStore implements ParameterStore using environment variables.
// Values from dotenv files fill in anything the process environment leaves unset.
type EnvParameterStore struct {
	env   string
	files []string
}

// NewEnvParameterStore creates a new environment variable-backed parameter store.
// With no files, .env in the working directory is read if present.
func NewEnvParameterStore(env string, files ...string) *EnvParameterStore {
	if len(files) == 0 {
		files = []string{".env"}
	}
	return &EnvParameterStore{
		env:   env,
		files: files,
	}
}

func (e *EnvParameterStore) environment() (map[string]string, error) {
	vars := make(map[string]string)
	for _, file := range e.files {
		values, err := godotenv.Read(file)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", file, err)
		}
		for k, v := range values {
			if _, ok := vars[k]; !ok {
				vars[k] = v
			}
		}
	}

	for k, v := range env.ToMap(os.Environ()) {
		vars[k] = v
	}
	return vars, nil
}

// GetParameter retrieves a parameter from environment variables
func (e *EnvParameterStore) GetParameter(ctx context.Context, name string) (string, error) {
	vars, err := e.environment()
	if err != nil {
		return "", err
	}
	return vars[name], nil
}

// GetConfig loads all application configuration from environment variables
func (e *EnvParameterStore) GetConfig(ctx context.Context) (*Config, error) {
	vars, err := e.environment()
	if err != nil {
		return nil, err
	}
	return parseConfig(vars)
}

// FileParameterStore implements ParameterStore using a YAML file whose keys
// match the yaml tags on Config. Unset keys keep their defaults.
type FileParameterStore struct {
	filename string
}

// NewFileParameterStore creates a new YAML file-backed parameter store
func NewFileParameterStore(filename string) *FileParameterStore {
	return &FileParameterStore{
		filename: filename,
	}
}

func (f *FileParameterStore) read() (map[string]any, []byte, error) {
	data, err := os.ReadFile(f.filename)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read config file %s: %w", f.filename, err)
	}

	var values map[string]any
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, nil, fmt.Errorf("failed to parse config file %s: %w", f.filename, err)
	}
	return values, data, nil
}

// GetParameter returns the top-level key name from the file, formatted as a string.
func (f *FileParameterStore) GetParameter(ctx context.Context, name string) (string, error) {
	values, _, err := f.read()
	if err != nil {
		return "", err
	}

	value, ok := values[name]
	if !ok || value == nil {
		return "", nil
	}
	return fmt.Sprint(value), nil
}

// GetConfig loads all application configuration from the YAML file
func (f *FileParameterStore) GetConfig(ctx context.Context) (*Config, error) {
	_, data, err := f.read()
	if err != nil {
		return nil, err
	}

	config, err := parseConfig(map[string]string{})
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", f.filename, err)
	}
	return config, nil
}
