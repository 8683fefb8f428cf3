package loadbalancer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidharthv96/caprover/internal/certs"
	"github.com/sidharthv96/caprover/internal/config"
	"github.com/sidharthv96/caprover/internal/store"
	"github.com/sidharthv96/caprover/internal/templating"
	"github.com/sidharthv96/caprover/pkg/fileswap"
)

// fakeStore serves a fixed app list.
type fakeStore struct {
	apps []store.App
	err  error
}

func (f *fakeStore) Apps() ([]store.App, error)          { return f.apps, f.err }
func (f *fakeStore) App(name string) (*store.App, error) { return nil, &store.ErrAppNotFound{Name: name} }
func (f *fakeStore) SaveApp(app *store.App) error        { return nil }
func (f *fakeStore) RemoveApp(name string) error         { return nil }
func (f *fakeStore) SetBasicAuth(name, user, password string) error {
	return nil
}
func (f *fakeStore) Close() error { return nil }

func generatorConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Server: config.ServerConfig{
			RootDomain:        "example.com",
			HasRootSsl:        false,
			PlatformSubdomain: "captain",
			RegistrySubdomain: "registry",
			ApiPort:           3000,
		},
		Proxy: config.ProxyConfig{ServiceName: "captain-nginx", SettleSeconds: 30},
		Paths: config.PathsConfig{DataDir: t.TempDir()},
	}
}

func newTestGenerator(t *testing.T, apps []store.App) (*Generator, *config.Config) {
	t.Helper()
	cfg := generatorConfig(t)
	cfg.Paths.LetsEncryptDir = filepath.Join(cfg.Paths.DataDir, "letsencrypt")
	g := NewGenerator(cfg, &fakeStore{apps: apps}, templating.NewTextRenderer(), certs.NewLetsEncryptResolver(ContainerCertsDir))
	return g, cfg
}

func TestGenerator_RegenerateNamespace(t *testing.T) {
	g, cfg := newTestGenerator(t, []store.App{
		{Name: "foo"},
		{Name: "bar", CustomDomains: []store.CustomDomain{{Domain: "www.bar.dev"}}},
	})

	require.NoError(t, g.RegenerateNamespace(NamespaceApps))

	content, err := os.ReadFile(cfg.NamespaceConfPath("apps"))
	require.NoError(t, err)
	text := string(content)

	assert.Contains(t, text, "server_name  foo.example.com;")
	assert.Contains(t, text, "server_name  bar.example.com;")
	assert.Contains(t, text, "server_name  www.bar.dev;")
	assert.Contains(t, text, "proxy_pass http://srv-foo:80;")

	// Descriptor order is preserved in the concatenated output.
	assert.Less(t,
		strings.Index(text, "foo.example.com"),
		strings.Index(text, "bar.example.com"))
}

func TestGenerator_WritesAuthFiles(t *testing.T) {
	g, cfg := newTestGenerator(t, []store.App{
		{Name: "foo", AuthUser: "admin", AuthPasswordHashed: "hashed"},
		{Name: "open"},
	})

	require.NoError(t, g.RegenerateNamespace(NamespaceApps))

	auth, err := os.ReadFile(cfg.AuthFilePath("apps", "foo.example.com"))
	require.NoError(t, err)
	assert.Equal(t, "admin:hashed\n", string(auth))

	_, err = os.Stat(cfg.AuthFilePath("apps", "open.example.com"))
	assert.True(t, os.IsNotExist(err))

	content, err := os.ReadFile(cfg.NamespaceConfPath("apps"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "auth_basic_user_file /etc/nginx/conf.d/apps-foo.example.com.auth;")
}

func TestGenerator_PipelineAlsoWritesRootConfig(t *testing.T) {
	g, cfg := newTestGenerator(t, nil)

	require.NoError(t, g.RegenerateRoot())

	content, err := os.ReadFile(cfg.RootConfPath())
	require.NoError(t, err)
	text := string(content)

	assert.Contains(t, text, "server_name  captain.example.com;")
	assert.Contains(t, text, "server_name  registry.example.com;")
	assert.Contains(t, text, "proxy_pass http://captain:3000;")
}

func TestGenerator_RootConfigUsesFakeCertsUntilIssued(t *testing.T) {
	g, cfg := newTestGenerator(t, nil)
	cfg.Server.HasRootSsl = true

	require.NoError(t, g.RegenerateRoot())

	content, err := os.ReadFile(cfg.RootConfPath())
	require.NoError(t, err)
	assert.Contains(t, string(content), "ssl_certificate      /etc/ssl/fake/fullchain.pem;")

	// Drop an issued certificate into the host layout and regenerate.
	liveDir := filepath.Join(cfg.Paths.LetsEncryptDir, "live", "captain.example.com")
	require.NoError(t, os.MkdirAll(liveDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(liveDir, "fullchain.pem"), []byte("cert"), 0o644))

	require.NoError(t, g.RegenerateRoot())

	content, err = os.ReadFile(cfg.RootConfPath())
	require.NoError(t, err)
	assert.Contains(t, string(content), "ssl_certificate      /etc/letsencrypt/live/captain.example.com/fullchain.pem;")
}

func TestGenerator_RemovesStaleFutureFile(t *testing.T) {
	g, cfg := newTestGenerator(t, nil)

	target := cfg.NamespaceConfPath("apps")
	require.NoError(t, os.MkdirAll(filepath.Dir(target), 0o755))
	require.NoError(t, os.WriteFile(fileswap.FuturePath(target), []byte("stale"), 0o644))

	require.NoError(t, g.RegenerateNamespace(NamespaceApps))

	_, err := os.Stat(fileswap.FuturePath(target))
	assert.True(t, os.IsNotExist(err))
}

func TestGenerator_BadCustomTemplateAbortsWholeBatch(t *testing.T) {
	g, cfg := newTestGenerator(t, []store.App{
		{Name: "good"},
		{Name: "broken", CustomTemplate: "{{.NoSuchField}}"},
	})

	err := g.RegenerateNamespace(NamespaceApps)
	require.Error(t, err)

	var renderErr *templating.RenderError
	assert.ErrorAs(t, err, &renderErr)

	// Nothing was swapped in: one bad definition fails the batch.
	_, statErr := os.Stat(cfg.NamespaceConfPath("apps"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestGenerator_WriteBaseConfig(t *testing.T) {
	g, cfg := newTestGenerator(t, nil)

	require.NoError(t, g.WriteBaseConfig(8081))

	content, err := os.ReadFile(cfg.BaseConfPath())
	require.NoError(t, err)
	assert.Contains(t, string(content), "listen       8081;")
	assert.Contains(t, string(content), "include /etc/nginx/conf.d/*.conf;")

	// Direct overwrite, no sidecars.
	_, err = os.Stat(fileswap.BackupPath(cfg.BaseConfPath()))
	assert.True(t, os.IsNotExist(err))
}
