package loadbalancer

import (
	"fmt"

	"github.com/sidharthv96/caprover/internal/certs"
	"github.com/sidharthv96/caprover/internal/store"
)

// defaultContainerPort is assumed when an app does not name one.
const defaultContainerPort = 80

// VirtualHost is one routable domain-to-upstream mapping with its TLS, auth
// and template settings. CertPath/KeyPath are set iff HasSsl;
// BasicAuthFilePath is set iff BasicAuthCredential is present;
// StaticWebRoot/ErrorPagesDir are set only on the app's primary domain.
type VirtualHost struct {
	PublicDomain        string
	LocalUpstream       string
	HasSsl              bool
	CertPath            string
	KeyPath             string
	ForceSsl            bool
	WebsocketSupport    bool
	ContainerPort       int
	TemplateSource      string
	BasicAuthCredential string
	BasicAuthFilePath   string
	StaticWebRoot       string
	ErrorPagesDir       string
}

// BuildParams are the inputs of one virtual-host derivation pass.
type BuildParams struct {
	Apps            []store.App
	DefaultTemplate string
	HasRootSsl      bool
	RootDomain      string
	Namespace       Namespace
	Certs           certs.Resolver
}

// BuildVirtualHosts flattens app definitions into an ordered virtual-host
// list. Output order follows the input app order: each app's generated
// subdomain first, then its custom domains in stored order. The function
// performs no sorting of its own; a stable store order is the caller's
// contract.
func BuildVirtualHosts(p BuildParams) []VirtualHost {
	var hosts []VirtualHost

	for i := range p.Apps {
		app := &p.Apps[i]
		if app.NotExposed {
			continue
		}

		port := app.ContainerPort
		if port == 0 {
			port = defaultContainerPort
		}
		upstream := fmt.Sprintf("%s:%d", app.ServiceName(), port)

		credential := ""
		if app.AuthUser != "" && app.AuthPasswordHashed != "" {
			credential = app.AuthUser + ":" + app.AuthPasswordHashed
		}

		templateSource := p.DefaultTemplate
		if app.CustomTemplate != "" {
			templateSource = app.CustomTemplate
		}

		primaryDomain := app.Name + "." + p.RootDomain
		primary := VirtualHost{
			PublicDomain:        primaryDomain,
			LocalUpstream:       upstream,
			HasSsl:              p.HasRootSsl && app.HasDefaultSubDomainSsl,
			ForceSsl:            app.ForceSsl,
			WebsocketSupport:    app.WebsocketSupport,
			ContainerPort:       port,
			TemplateSource:      templateSource,
			BasicAuthCredential: credential,
			StaticWebRoot:       containerWebRootPath(primaryDomain),
			ErrorPagesDir:       containerErrorPagesPath(),
		}
		if primary.HasSsl {
			primary.CertPath = p.Certs.CertPath(primaryDomain)
			primary.KeyPath = p.Certs.KeyPath(primaryDomain)
		}
		if credential != "" {
			primary.BasicAuthFilePath = containerAuthFilePath(p.Namespace, primaryDomain)
		}
		hosts = append(hosts, primary)

		for _, custom := range app.CustomDomains {
			vh := VirtualHost{
				PublicDomain:        custom.Domain,
				LocalUpstream:       upstream,
				HasSsl:              custom.HasSsl,
				ForceSsl:            app.ForceSsl,
				WebsocketSupport:    app.WebsocketSupport,
				ContainerPort:       port,
				TemplateSource:      templateSource,
				BasicAuthCredential: credential,
			}
			if vh.HasSsl {
				vh.CertPath = p.Certs.CertPath(custom.Domain)
				vh.KeyPath = p.Certs.KeyPath(custom.Domain)
			}
			if credential != "" {
				vh.BasicAuthFilePath = containerAuthFilePath(p.Namespace, custom.Domain)
			}
			hosts = append(hosts, vh)
		}
	}

	return hosts
}
