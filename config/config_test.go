package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/janelia-flyem/catpub/catpub"
	. "github.com/janelia-flyem/go/gocheck"
)

// Hook up gocheck into the "go test" runner.
func Test(t *testing.T) { TestingT(t) }

type ConfigSuite struct {
	dir string
}

var _ = Suite(&ConfigSuite{})

func (s *ConfigSuite) SetUpSuite(c *C) {
	catpub.SetLogMode(catpub.WarningMode)
}

func (s *ConfigSuite) SetUpTest(c *C) {
	s.dir = c.MkDir()
}

func (s *ConfigSuite) write(c *C, name, text string) string {
	path := filepath.Join(s.dir, name)
	c.Assert(os.WriteFile(path, []byte(text), 0644), IsNil)
	return path
}

const fullConfig = `
[project]
server_url = "https://catmaid.example.org"
project_id = 1
units = "nm"
requests_per_second = 5.0

[citation]
doi = "10.1234/abcd"
url = "https://example.org/paper"
biblatex = """
@article{a, title={b}}
"""

[annotations]
annotated = ["published"]
names = ["extra"]
rename = { "old ann" = "new ann" }

[skeletons]
annotated = ["published"]
names = true
rename = { "neuron a" = "A" }

[skeletons.tags]
names = ["soma", "ends"]
rename = { ends = "end" }

[landmarks]
groups = true
group_rename = { g = "G" }
names = false

[volumes]
names = ["v1"]
rename = { v2 = "volume 2" }

[logging]
logfile = "logs/catpub.log"
max_log_size = 10
`

func (s *ConfigSuite) TestLoadConfig(c *C) {
	path := s.write(c, "config.toml", fullConfig)
	cfg, err := LoadConfig(path)
	c.Assert(err, IsNil)
	c.Assert(cfg.Location(), Equals, path)

	c.Assert(cfg.Project.ServerURL, Equals, "https://catmaid.example.org")
	c.Assert(cfg.Project.ProjectID, Equals, 1)
	c.Assert(cfg.Project.Units, Equals, "nm")
	c.Assert(cfg.Project.RequestsPerSecond, Equals, 5.0)
	c.Assert(cfg.Citation.DOI, Equals, "10.1234/abcd")
	c.Assert(cfg.Citation.Empty(), Equals, false)

	c.Assert(cfg.Annotations.Annotated, DeepEquals, []string{"published"})
	c.Assert(cfg.Annotations.Names.Names(), DeepEquals, []string{"extra"})
	c.Assert(cfg.Annotations.Rename, DeepEquals, map[string]string{"old ann": "new ann"})

	c.Assert(cfg.Skeletons.Names.All(), Equals, true)
	c.Assert(cfg.Skeletons.Tags.Names.Names(), DeepEquals, []string{"ends", "soma"})
	c.Assert(cfg.Skeletons.Tags.Rename["ends"], Equals, "end")

	c.Assert(cfg.Landmarks.Groups.All(), Equals, true)
	c.Assert(cfg.Landmarks.Names.Empty(), Equals, true)
	c.Assert(cfg.Landmarks.GroupRename["g"], Equals, "G")

	c.Assert(cfg.Volumes.Names.Names(), DeepEquals, []string{"v1"})
	c.Assert(cfg.Volumes.Rename["v2"], Equals, "volume 2")

	c.Assert(cfg.Logging.Logfile, Equals, filepath.Join(s.dir, "logs", "catpub.log"))
	c.Assert(cfg.Logging.MaxSize, Equals, 10)
}

func (s *ConfigSuite) TestDefaultsSelectNothing(c *C) {
	cfg, err := Decode(`
[project]
server_url = "http://localhost:8000"
project_id = 3
units = "nm"
`)
	c.Assert(err, IsNil)
	c.Assert(cfg.Annotations.Names.Empty(), Equals, true)
	c.Assert(cfg.Skeletons.Names.Empty(), Equals, true)
	c.Assert(cfg.Skeletons.Tags.Names.Empty(), Equals, true)
	c.Assert(cfg.Landmarks.Groups.Empty(), Equals, true)
	c.Assert(cfg.Volumes.Names.Empty(), Equals, true)
	c.Assert(cfg.Citation.Empty(), Equals, true)
}

func (s *ConfigSuite) TestInvalidConfigs(c *C) {
	bad := []string{
		// no project
		`[volumes]
names = true`,
		// missing units
		`[project]
server_url = "http://x"
project_id = 1`,
		// unknown table
		`[project]
server_url = "http://x"
project_id = 1
units = "nm"
[neurons]
names = true`,
		// selection must be boolean or array of strings
		`[project]
server_url = "http://x"
project_id = 1
units = "nm"
[volumes]
names = "all"`,
		// project id must be an integer
		`[project]
server_url = "http://x"
project_id = "one"
units = "nm"`,
		// not a URL
		`[project]
server_url = "catmaid.example.org"
project_id = 1
units = "nm"`,
	}
	for i, text := range bad {
		_, err := Decode(text)
		c.Assert(err, NotNil, Commentf("config %d should be invalid", i))
	}

	_, err := LoadConfig(filepath.Join(s.dir, "missing.toml"))
	c.Assert(err, NotNil)
	_, err = LoadConfig("")
	c.Assert(err, NotNil)
}

func (s *ConfigSuite) TestHashTOML(c *C) {
	a := s.write(c, "a.toml", `
# a comment
[project]
server_url = "http://x"
project_id = 1
units = "nm"

[volumes]
names = ["b", "a"]
`)
	b := s.write(c, "b.toml", `
[volumes]
names = [ "a", "b" ]

[project]
units = "nm"
project_id = 1
server_url = "http://x"
`)
	different := s.write(c, "c.toml", `
[project]
server_url = "http://x"
project_id = 2
units = "nm"
`)
	ha, err := HashTOML(a)
	c.Assert(err, IsNil)
	hb, err := HashTOML(b)
	c.Assert(err, IsNil)
	hc, err := HashTOML(different)
	c.Assert(err, IsNil)

	c.Assert(ha, Equals, hb)
	c.Assert(ha, Not(Equals), hc)
	c.Assert(ha, HasLen, 64)

	again, err := HashTOML(a)
	c.Assert(err, IsNil)
	c.Assert(again, Equals, ha)
}

func (s *ConfigSuite) TestResolveCredentials(c *C) {
	env := map[string]string{
		EnvServer:    "http://env",
		EnvProjectID: "9",
		EnvAPIToken:  "envtoken",
		EnvHTTPUser:  "envuser",
	}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	creds, err := ResolveCredentials(ProjectConfig{}, nil, lookup)
	c.Assert(err, IsNil)
	c.Assert(creds, DeepEquals, Credentials{Server: "http://env", ProjectID: 9, APIToken: "envtoken", HTTPUser: "envuser"})

	project := ProjectConfig{ServerURL: "http://config", ProjectID: 2}
	creds, err = ResolveCredentials(project, nil, lookup)
	c.Assert(err, IsNil)
	c.Assert(creds.Server, Equals, "http://config")
	c.Assert(creds.ProjectID, Equals, 2)
	c.Assert(creds.APIToken, Equals, "envtoken")

	path := s.write(c, "creds.json", `{"api_token": "filetoken", "http_password": "pw"}`)
	file, err := ReadCredentials(path)
	c.Assert(err, IsNil)
	creds, err = ResolveCredentials(project, file, lookup)
	c.Assert(err, IsNil)
	c.Assert(creds, DeepEquals, Credentials{
		Server:       "http://config",
		ProjectID:    2,
		APIToken:     "filetoken",
		HTTPUser:     "envuser",
		HTTPPassword: "pw",
	})
	c.Assert(creds.String(), Not(Matches), ".*filetoken.*")

	empty := func(string) (string, bool) { return "", false }
	_, err = ResolveCredentials(ProjectConfig{ServerURL: "http://x"}, nil, empty)
	c.Assert(err, ErrorMatches, "no CATMAID project ID.*")
	_, err = ResolveCredentials(ProjectConfig{ProjectID: 1}, nil, empty)
	c.Assert(err, ErrorMatches, "no CATMAID server.*")

	env[EnvProjectID] = "nine"
	_, err = ResolveCredentials(ProjectConfig{}, nil, lookup)
	c.Assert(err, NotNil)
}

func (s *ConfigSuite) TestCredentialsFromEnvironment(c *C) {
	for key, value := range map[string]string{
		EnvServer:    "http://process-env",
		EnvProjectID: "7",
		EnvAPIToken:  "processtoken",
	} {
		old, had := os.LookupEnv(key)
		c.Assert(os.Setenv(key, value), IsNil)
		if had {
			defer os.Setenv(key, old)
		} else {
			defer os.Unsetenv(key)
		}
	}

	creds, err := ResolveCredentials(ProjectConfig{}, nil, nil)
	c.Assert(err, IsNil)
	c.Assert(creds.Server, Equals, "http://process-env")
	c.Assert(creds.ProjectID, Equals, 7)
	c.Assert(creds.APIToken, Equals, "processtoken")

	path := s.write(c, "creds.json", `{"server": "", "project_id": 3, "http_user": "u"}`)
	file, err := ReadCredentials(path)
	c.Assert(err, IsNil)
	creds, err = ResolveCredentials(ProjectConfig{}, file, nil)
	c.Assert(err, IsNil)
	c.Assert(creds.Server, Equals, "http://process-env")
	c.Assert(creds.ProjectID, Equals, 3)
	c.Assert(creds.HTTPUser, Equals, "u")
}

func (s *ConfigSuite) TestReadCredentialsErrors(c *C) {
	_, err := ReadCredentials(filepath.Join(s.dir, "missing.json"))
	c.Assert(err, ErrorMatches, "could not read credentials file.*")
	_, err = ReadCredentials(s.write(c, "bad.json", `{"api_token": `))
	c.Assert(err, NotNil)
	_, err = ReadCredentials(s.write(c, "badid.json", `{"project_id": "one"}`))
	c.Assert(err, ErrorMatches, "could not parse credentials file.*")
}

func (s *ConfigSuite) TestSchemaAvailable(c *C) {
	c.Assert(Schema(), Matches, "(?s).*server_url.*")
}
