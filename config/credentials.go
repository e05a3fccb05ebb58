package config

import (
	"fmt"
	"strings"

	kjson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment variables consulted for any connection setting not given in the
// credentials file or the [project] table.
const (
	EnvServer       = "CATMAID_SERVER"
	EnvProjectID    = "CATMAID_PROJECT_ID"
	EnvAPIToken     = "CATMAID_API_TOKEN"
	EnvHTTPUser     = "CATMAID_HTTP_USER"
	EnvHTTPPassword = "CATMAID_HTTP_PASSWORD"
)

const envPrefix = "CATMAID_"

// Credentials holds everything needed to connect to a CATMAID project.
type Credentials struct {
	Server       string `json:"server" koanf:"server"`
	ProjectID    int    `json:"project_id" koanf:"project_id"`
	APIToken     string `json:"api_token" koanf:"api_token"`
	HTTPUser     string `json:"http_user" koanf:"http_user"`
	HTTPPassword string `json:"http_password" koanf:"http_password"`
}

// ReadCredentials reads credentials from a JSON file.
func ReadCredentials(path string) (*Credentials, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), kjson.Parser()); err != nil {
		return nil, fmt.Errorf("could not read credentials file %q: %w", path, err)
	}
	creds := new(Credentials)
	if err := k.Unmarshal("", creds); err != nil {
		return nil, fmt.Errorf("could not parse credentials file %q: %w", path, err)
	}
	return creds, nil
}

// LookupFunc retrieves the value of an environment variable, e.g. os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ResolveCredentials merges connection settings.  Values in the credentials
// file take precedence over the [project] table, which takes precedence over
// environment variables.  Empty values never override.  The file may be nil,
// and a nil lookup reads the process environment.
func ResolveCredentials(project ProjectConfig, fromFile *Credentials, lookup LookupFunc) (Credentials, error) {
	var c Credentials
	k := koanf.New(".")
	if err := k.Load(envProvider(lookup), nil); err != nil {
		return c, fmt.Errorf("could not read %s environment: %w", envPrefix, err)
	}
	layers := []Credentials{{Server: project.ServerURL, ProjectID: project.ProjectID}}
	if fromFile != nil {
		layers = append(layers, *fromFile)
	}
	for _, layer := range layers {
		if err := k.Load(confmap.Provider(layer.values(), "."), nil); err != nil {
			return c, err
		}
	}
	if err := k.Unmarshal("", &c); err != nil {
		return c, fmt.Errorf("bad connection settings (check %s): %w", EnvProjectID, err)
	}
	c.Server = strings.TrimSpace(c.Server)

	if c.Server == "" {
		return c, fmt.Errorf("no CATMAID server given in config, credentials or %s", EnvServer)
	}
	if c.ProjectID <= 0 {
		return c, fmt.Errorf("no CATMAID project ID given in config, credentials or %s", EnvProjectID)
	}
	return c, nil
}

// envKey maps CATMAID_API_TOKEN to api_token.
func envKey(name string) string {
	return strings.ToLower(strings.TrimPrefix(name, envPrefix))
}

func envProvider(lookup LookupFunc) koanf.Provider {
	if lookup == nil {
		return env.Provider(envPrefix, ".", envKey)
	}
	m := make(map[string]interface{})
	for _, name := range []string{EnvServer, EnvProjectID, EnvAPIToken, EnvHTTPUser, EnvHTTPPassword} {
		if v, ok := lookup(name); ok {
			m[envKey(name)] = strings.TrimSpace(v)
		}
	}
	return confmap.Provider(m, ".")
}

// values returns the non-empty settings keyed as in the credentials file.
func (c Credentials) values() map[string]interface{} {
	m := make(map[string]interface{})
	if c.Server != "" {
		m["server"] = c.Server
	}
	if c.ProjectID != 0 {
		m["project_id"] = c.ProjectID
	}
	if c.APIToken != "" {
		m["api_token"] = c.APIToken
	}
	if c.HTTPUser != "" {
		m["http_user"] = c.HTTPUser
	}
	if c.HTTPPassword != "" {
		m["http_password"] = c.HTTPPassword
	}
	return m
}

// String hides secrets.
func (c Credentials) String() string {
	token := "none"
	if c.APIToken != "" {
		token = "set"
	}
	return fmt.Sprintf("server %s, project %d, API token %s, HTTP user %q", c.Server, c.ProjectID, token, c.HTTPUser)
}
