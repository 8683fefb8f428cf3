package loadbalancer

import (
	"crypto/tls"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidharthv96/caprover/internal/templating"
)

func TestBootstrap_ProvisionsStaticPages(t *testing.T) {
	cfg := generatorConfig(t)
	b := NewBootstrap(cfg, templating.NewTextRenderer())

	_, err := b.Run()
	require.NoError(t, err)

	index, err := os.ReadFile(filepath.Join(cfg.StaticDir(), "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(index), "example.com")

	page502, err := os.ReadFile(filepath.Join(cfg.ErrorPagesDir(), "502.html"))
	require.NoError(t, err)
	assert.Contains(t, string(page502), "502")

	_, err = os.Stat(filepath.Join(cfg.ErrorPagesDir(), "404.html"))
	assert.NoError(t, err)
}

func TestBootstrap_FakeCertsAreValidKeyPair(t *testing.T) {
	cfg := generatorConfig(t)
	b := NewBootstrap(cfg, templating.NewTextRenderer())

	_, err := b.Run()
	require.NoError(t, err)

	certPath := filepath.Join(cfg.FakeCertDir(), FakeCertFile)
	keyPath := filepath.Join(cfg.FakeCertDir(), FakeKeyFile)

	_, err = tls.LoadX509KeyPair(certPath, keyPath)
	assert.NoError(t, err)
}

func TestBootstrap_DoesNotOverwriteExistingFakeCerts(t *testing.T) {
	cfg := generatorConfig(t)
	b := NewBootstrap(cfg, templating.NewTextRenderer())

	_, err := b.Run()
	require.NoError(t, err)

	certPath := filepath.Join(cfg.FakeCertDir(), FakeCertFile)
	before, err := os.ReadFile(certPath)
	require.NoError(t, err)

	_, err = b.Run()
	require.NoError(t, err)

	after, err := os.ReadFile(certPath)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestBootstrap_WritesFreshTokenEachRun(t *testing.T) {
	cfg := generatorConfig(t)
	b := NewBootstrap(cfg, templating.NewTextRenderer())

	token1, err := b.Run()
	require.NoError(t, err)
	require.NotEmpty(t, token1)

	onDisk, err := os.ReadFile(cfg.TokenPath())
	require.NoError(t, err)
	assert.Equal(t, token1, string(onDisk))

	token2, err := b.Run()
	require.NoError(t, err)
	assert.NotEqual(t, token1, token2)
}
