package loadbalancer

import (
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/sidharthv96/caprover/internal/certs"
	"github.com/sidharthv96/caprover/internal/config"
	"github.com/sidharthv96/caprover/internal/store"
	"github.com/sidharthv96/caprover/internal/templating"
	"github.com/sidharthv96/caprover/pkg/fileswap"
	"github.com/sidharthv96/caprover/pkg/logger"
)

// Namespace names one configuration scope a reload request targets.
type Namespace string

const (
	// NamespaceApps is the per-app virtual-host tree.
	NamespaceApps Namespace = "apps"
	// NamespaceRoot is the platform's own virtual hosts.
	NamespaceRoot Namespace = "root"
)

// RootConfigContext is the binding set for the root config template.
type RootConfigContext struct {
	RootDomain       string
	PlatformDomain   string
	RegistryDomain   string
	HasPlatformSsl   bool
	HasRegistrySsl   bool
	PlatformCertPath string
	PlatformKeyPath  string
	RegistryCertPath string
	RegistryKeyPath  string
	FakeCertPath     string
	FakeKeyPath      string
	PlatformUpstream string
	RegistryUpstream string
	StaticRoot       string
}

// Generator turns store state into config files on disk. It performs no
// locking of its own; the reload coordinator guarantees a single writer.
type Generator struct {
	cfg      *config.Config
	store    store.Store
	renderer templating.Renderer
	certs    certs.Resolver
}

// NewGenerator builds a Generator. The resolver must produce
// container-visible certificate paths, since they end up in rendered config.
func NewGenerator(cfg *config.Config, st store.Store, renderer templating.Renderer, resolver certs.Resolver) *Generator {
	return &Generator{cfg: cfg, store: st, renderer: renderer, certs: resolver}
}

// RegenerateNamespace rebuilds and atomically swaps the config file of one
// namespace. The root namespace holds the platform's own virtual hosts; any
// other namespace holds the flattened app virtual-host list.
func (g *Generator) RegenerateNamespace(ns Namespace) error {
	target := g.cfg.NamespaceConfPath(string(ns))

	if err := fileswap.RemoveFuture(target); err != nil {
		return err
	}

	if ns == NamespaceRoot {
		return g.regenerateRootLocked()
	}

	apps, err := g.store.Apps()
	if err != nil {
		return fmt.Errorf("loading app definitions: %w", err)
	}

	hosts := BuildVirtualHosts(BuildParams{
		Apps:            apps,
		DefaultTemplate: defaultVhostTemplate,
		HasRootSsl:      g.cfg.Server.HasRootSsl,
		RootDomain:      g.cfg.Server.RootDomain,
		Namespace:       ns,
		Certs:           g.certs,
	})

	if err := g.writeAuthFiles(ns, hosts); err != nil {
		return err
	}

	var blocks []string
	for i := range hosts {
		block, err := g.renderer.Render(hosts[i].PublicDomain, hosts[i].TemplateSource, &hosts[i])
		if err != nil {
			return err
		}
		blocks = append(blocks, block)
	}

	if err := fileswap.Swap(target, []byte(strings.Join(blocks, "\n"))); err != nil {
		return err
	}

	logger.Debug("Namespace config regenerated", "namespace", ns, "vhosts", len(hosts))
	return nil
}

// RegenerateRoot rebuilds and swaps the root proxy config.
func (g *Generator) RegenerateRoot() error {
	if err := fileswap.RemoveFuture(g.cfg.RootConfPath()); err != nil {
		return err
	}
	return g.regenerateRootLocked()
}

func (g *Generator) regenerateRootLocked() error {
	ctx := g.rootContext()

	text, err := g.renderer.Render("root", rootConfTemplate, ctx)
	if err != nil {
		return err
	}

	if err := fileswap.Swap(g.cfg.RootConfPath(), []byte(text)); err != nil {
		return err
	}

	logger.Debug("Root config regenerated", "platform_domain", ctx.PlatformDomain)
	return nil
}

func (g *Generator) rootContext() *RootConfigContext {
	fakeCert := path.Join(ContainerFakeCertDir, FakeCertFile)
	fakeKey := path.Join(ContainerFakeCertDir, FakeKeyFile)

	ctx := &RootConfigContext{
		RootDomain:       g.cfg.Server.RootDomain,
		PlatformDomain:   g.cfg.PlatformDomain(),
		RegistryDomain:   g.cfg.RegistryDomain(),
		HasPlatformSsl:   g.cfg.Server.HasRootSsl,
		HasRegistrySsl:   g.cfg.Server.HasRootSsl,
		FakeCertPath:     fakeCert,
		FakeKeyPath:      fakeKey,
		PlatformUpstream: fmt.Sprintf("%s:%d", g.cfg.Server.PlatformSubdomain, g.cfg.Server.ApiPort),
		RegistryUpstream: g.cfg.Server.RegistrySubdomain + ":5000",
		StaticRoot:       ContainerStaticDir,
	}

	// Until real certificates are issued the fake bundle keeps the SSL
	// directives resolvable; swap in the real paths once present.
	ctx.PlatformCertPath, ctx.PlatformKeyPath = fakeCert, fakeKey
	ctx.RegistryCertPath, ctx.RegistryKeyPath = fakeCert, fakeKey
	if g.certExistsOnHost(ctx.PlatformDomain) {
		ctx.PlatformCertPath = g.certs.CertPath(ctx.PlatformDomain)
		ctx.PlatformKeyPath = g.certs.KeyPath(ctx.PlatformDomain)
	}
	if g.certExistsOnHost(ctx.RegistryDomain) {
		ctx.RegistryCertPath = g.certs.CertPath(ctx.RegistryDomain)
		ctx.RegistryKeyPath = g.certs.KeyPath(ctx.RegistryDomain)
	}

	return ctx
}

// certExistsOnHost checks the host-side letsencrypt layout for an issued
// certificate. The resolver paths are container-visible, so the check maps
// onto the host directory.
func (g *Generator) certExistsOnHost(domain string) bool {
	hostResolver := certs.NewLetsEncryptResolver(g.cfg.Paths.LetsEncryptDir)
	_, err := os.Stat(hostResolver.CertPath(domain))
	return err == nil
}

// WriteBaseConfig writes the top-level proxy config. No swap protocol; the
// file is only read on proxy startup and reload.
func (g *Generator) WriteBaseConfig(statusPort int) error {
	text, err := g.renderer.Render("base", baseConfTemplate, map[string]any{
		"StatusPort": statusPort,
		"ConfDir":    ContainerConfDir,
	})
	if err != nil {
		return err
	}
	return fileswap.WriteDirect(g.cfg.BaseConfPath(), []byte(text))
}

// writeAuthFiles materializes one credential file per protected domain.
// Plain writes: the files are tiny and only referenced after the config
// swap that follows succeeds.
func (g *Generator) writeAuthFiles(ns Namespace, hosts []VirtualHost) error {
	for i := range hosts {
		if hosts[i].BasicAuthCredential == "" {
			continue
		}
		hostPath := g.cfg.AuthFilePath(string(ns), hosts[i].PublicDomain)
		if err := fileswap.WriteDirect(hostPath, []byte(hosts[i].BasicAuthCredential+"\n")); err != nil {
			return err
		}
	}
	return nil
}
