package loadbalancer

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/sidharthv96/caprover/internal/config"
	"github.com/sidharthv96/caprover/internal/templating"
	"github.com/sidharthv96/caprover/pkg/fileswap"
	"github.com/sidharthv96/caprover/pkg/logger"
)

// Bootstrap provisions everything the proxy expects on disk before it
// starts: default and error static pages, the fake self-signed certificate
// bundle, and the per-startup reachability token.
type Bootstrap struct {
	cfg      *config.Config
	renderer templating.Renderer
}

func NewBootstrap(cfg *config.Config, renderer templating.Renderer) *Bootstrap {
	return &Bootstrap{cfg: cfg, renderer: renderer}
}

// Run performs the full provisioning pass. Errors are fatal to startup; a
// proxy without these files cannot serve anything meaningful.
func (b *Bootstrap) Run() (string, error) {
	if err := b.ensureStaticPages(); err != nil {
		return "", err
	}
	if err := b.ensureFakeCerts(); err != nil {
		return "", err
	}
	token, err := b.writeConfirmationToken()
	if err != nil {
		return "", err
	}

	logger.Info("Bootstrap provisioning complete", "static_dir", b.cfg.StaticDir())
	return token, nil
}

func (b *Bootstrap) ensureStaticPages() error {
	defaultPage, err := b.renderer.Render("default-page", defaultPageTemplate, map[string]any{
		"RootDomain": b.cfg.Server.RootDomain,
	})
	if err != nil {
		return err
	}
	if err := fileswap.WriteDirect(filepath.Join(b.cfg.StaticDir(), "index.html"), []byte(defaultPage)); err != nil {
		return err
	}

	errorPages := map[string]string{
		"502.html": "The app is starting up or crashed. Try again shortly.",
		"404.html": "There is nothing on this address.",
	}
	for name, message := range errorPages {
		page, err := b.renderer.Render("error-page", errorPageTemplate, map[string]any{
			"RootDomain": b.cfg.Server.RootDomain,
			"Code":       name[:3],
			"Message":    message,
		})
		if err != nil {
			return err
		}
		if err := fileswap.WriteDirect(filepath.Join(b.cfg.ErrorPagesDir(), name), []byte(page)); err != nil {
			return err
		}
	}

	return nil
}

// ensureFakeCerts writes a self-signed bundle to the host-shared fake-cert
// path, so SSL directives referencing it always resolve even before real
// certificates are issued. An existing bundle is left alone.
func (b *Bootstrap) ensureFakeCerts() error {
	certPath := filepath.Join(b.cfg.FakeCertDir(), FakeCertFile)
	keyPath := filepath.Join(b.cfg.FakeCertDir(), FakeKeyFile)

	if _, err := os.Stat(certPath); err == nil {
		if _, err := os.Stat(keyPath); err == nil {
			return nil
		}
	}

	certPEM, keyPEM, err := generateSelfSigned([]string{
		b.cfg.Server.RootDomain,
		"*." + b.cfg.Server.RootDomain,
	})
	if err != nil {
		return fmt.Errorf("generating fake certificate: %w", err)
	}

	if err := fileswap.WriteDirect(certPath, certPEM); err != nil {
		return err
	}
	if err := fileswap.WriteDirect(keyPath, keyPEM); err != nil {
		return err
	}

	logger.Info("Fake certificate bundle written", "dir", b.cfg.FakeCertDir())
	return nil
}

// writeConfirmationToken writes a fresh random token to the well-known
// static path. External callers fetch it over plain HTTP to prove this
// instance is the one answering for its domains.
func (b *Bootstrap) writeConfirmationToken() (string, error) {
	token := uuid.NewString()
	if err := fileswap.WriteDirect(b.cfg.TokenPath(), []byte(token)); err != nil {
		return "", err
	}
	return token, nil
}

// generateSelfSigned creates a short-lived self-signed certificate for the
// given domains and returns the PEM-encoded certificate and key.
func generateSelfSigned(domains []string) ([]byte, []byte, error) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("generating private key: %w", err)
	}

	serialNumberLimit := new(big.Int).Lsh(big.NewInt(1), 128)
	serialNumber, err := rand.Int(rand.Reader, serialNumberLimit)
	if err != nil {
		return nil, nil, fmt.Errorf("generating serial number: %w", err)
	}

	notBefore := time.Now()
	template := x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			Organization: []string{"Self-Signed Placeholder"},
			CommonName:   domains[0],
		},
		NotBefore:             notBefore,
		NotAfter:              notBefore.Add(365 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		DNSNames:              domains,
	}

	derBytes, err := x509.CreateCertificate(rand.Reader, &template, &template, &privateKey.PublicKey, privateKey)
	if err != nil {
		return nil, nil, fmt.Errorf("creating certificate: %w", err)
	}

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: derBytes})

	privateKeyBytes, err := x509.MarshalPKCS8PrivateKey(privateKey)
	if err != nil {
		return nil, nil, fmt.Errorf("marshaling private key: %w", err)
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privateKeyBytes})

	return certPEM, keyPEM, nil
}
