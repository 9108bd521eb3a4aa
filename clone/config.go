package clone

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"go.uber.org/config"
)

// DefaultPublicDomain is the suffix stripped from fully qualified xMatters URLs.
const DefaultPublicDomain = "xmatters.com"

// SecretsEnvVar names the environment variable holding a JSON object of secrets
// used to expand ${...} references in the config files.
const SecretsEnvVar = "XMCLONE_SECRETS"

type Config struct {
	API APISettings
	// Responses maps the lowercased first word of a notification response to the clone it triggers.
	Responses map[string]ResponseAction
}

type APISettings struct {
	// Endpoint is the base URL all calls are made relative to, e.g. https://acme.xmatters.com
	Endpoint   string
	Domain     string
	Username   string
	Password   string
	MaxRetries *int `yaml:"maxRetries"`
	Timeout    time.Duration
}

// ResponseAction clones the responded-to event onto the form at TargetURL.
type ResponseAction struct {
	TargetURL    string `yaml:"targetURL"`
	CloneOptions `yaml:",inline"`
}

func (s APISettings) PublicDomain() string {
	if s.Domain == "" {
		return DefaultPublicDomain
	}
	return s.Domain
}

func (s APISettings) Retries() int {
	if s.MaxRetries == nil {
		return DefaultMaxRetries
	}
	if *s.MaxRetries < 0 {
		return 0
	}
	return *s.MaxRetries
}

func (s APISettings) RequestTimeout() time.Duration {
	if s.Timeout <= 0 {
		return HTTPRequestTimeout
	}
	return s.Timeout
}

// CompositeEnvVar resolves ${VAR} references in config files before the process environment is consulted.
type CompositeEnvVar interface {
	LookupEnv(child string) (string, bool)
}

// JSONCompositeEnvVar holds several secrets in one environment variable as a
// flat JSON object, e.g. XMCLONE_SECRETS={"XMATTERS_PASSWORD":"..."}.
type JSONCompositeEnvVar struct {
	Parent string
}

func (c JSONCompositeEnvVar) LookupEnv(child string) (string, bool) {
	if c.Parent == "" {
		return "", false
	}
	secrets, set := os.LookupEnv(c.Parent)
	if !set || secrets == "" {
		return "", false
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(secrets), &m); err != nil {
		log.Printf("Warning: %s is not a JSON object of strings, ignoring it: %v", c.Parent, err)
		return "", false
	}
	v, exists := m[child]
	return v, exists
}

// lookupEnv resolves from compev first and falls back to the process environment.
func lookupEnv(compev CompositeEnvVar) func(string) (string, bool) {
	return func(key string) (string, bool) {
		if compev != nil {
			if v, exists := compev.LookupEnv(key); exists {
				return v, true
			}
		}
		return os.LookupEnv(key)
	}
}

type YAMLConfigUnmarshaler struct{}

// Unmarshal merges sources in order, later files overriding earlier ones.
func (u YAMLConfigUnmarshaler) Unmarshal(compev CompositeEnvVar, sources ...ConfigFile) (Config, error) {
	var result Config
	var options []config.YAMLOption
	for _, s := range sources {
		if s.Length > 0 {
			options = append(options, config.Source(s.Reader))
		}
	}
	options = append(options, config.Expand(lookupEnv(compev)))
	yaml, err := config.NewYAML(options...)
	if err != nil {
		return result, fmt.Errorf("failed to read yaml config %w", err)
	}
	readError := func(key string, cause error) error {
		return fmt.Errorf("failed to read '%s' from yaml config %w", key, cause)
	}
	key := "api"
	err = yaml.Get(key).Populate(&result.API)
	if err != nil {
		return result, readError(key, err)
	}
	key = "responses"
	if yaml.Get(key).HasValue() {
		var responses map[string]ResponseAction
		err = yaml.Get(key).Populate(&responses)
		if err != nil {
			return result, readError(key, err)
		}
		result.Responses = make(map[string]ResponseAction, len(responses))
		for k, v := range responses {
			v.AdditionalProperties = normalizeYAMLMap(v.AdditionalProperties)
			result.Responses[strings.ToLower(k)] = v
		}
	}

	return result, result.Validate()
}

// Validate checks the settings needed to make any call.
func (c Config) Validate() error {
	if c.API.Endpoint == "" {
		return errors.New("api.endpoint is required")
	}
	for k, v := range c.Responses {
		if v.TargetURL == "" {
			return fmt.Errorf("responses.%s.targetURL is required", k)
		}
	}
	return nil
}

// normalizeYAMLMap converts the map[interface{}]interface{} values produced by
// the yaml decoder into map[string]interface{} so they can be sent as JSON.
func normalizeYAMLMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	result := make(map[string]interface{}, len(m))
	for k, v := range m {
		result[k] = normalizeYAMLValue(v)
	}
	return result
}

func normalizeYAMLValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(t))
		for k, e := range t {
			m[fmt.Sprintf("%v", k)] = normalizeYAMLValue(e)
		}
		return m
	case map[string]interface{}:
		return normalizeYAMLMap(t)
	case []interface{}:
		s := make([]interface{}, len(t))
		for i, e := range t {
			s[i] = normalizeYAMLValue(e)
		}
		return s
	default:
		return v
	}
}

// LoadConfig reads required.yaml, the optional defaults.yaml and the deployment
// file <deployment>.yaml from files, expanding secrets from SecretsEnvVar.
func LoadConfig(files ConfigFiles, deployment string) (Config, error) {
	var result Config
	requiredConfigFile, err := files.MustFindRequiredConfigFile()
	if err != nil {
		return result, fmt.Errorf("failed to read required config file %w", err)
	}
	defaultsConfigFile, err := files.FindDefaultsConfigFile()
	if err != nil {
		return result, fmt.Errorf("failed to read defaults config file %w", err)
	}
	sources := []ConfigFile{requiredConfigFile, defaultsConfigFile}
	if deployment != "" {
		deploymentConfigFile, err := files.MustFindDeploymentConfigFile(deployment)
		if err != nil {
			return result, fmt.Errorf("failed to read deployment config file %w", err)
		}
		sources = append(sources, deploymentConfigFile)
	}
	result, err = YAMLConfigUnmarshaler{}.Unmarshal(JSONCompositeEnvVar{Parent: SecretsEnvVar}, sources...)
	if err != nil {
		return result, fmt.Errorf("failed to load config %w", err)
	}
	return result, nil
}
