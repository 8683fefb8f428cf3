package loadbalancer

import "embed"

// Embedded default templates for the generated proxy configuration and the
// provisioned static pages. Apps may override the virtual-host template with
// a custom one stored on the app definition.

//go:embed templates/*
var templateFS embed.FS

func mustTemplate(name string) string {
	data, err := templateFS.ReadFile("templates/" + name)
	if err != nil {
		panic(err)
	}
	return string(data)
}

var (
	defaultVhostTemplate = mustTemplate("vhost.conf.tmpl")
	rootConfTemplate     = mustTemplate("root.conf.tmpl")
	baseConfTemplate     = mustTemplate("base.conf.tmpl")
	defaultPageTemplate  = mustTemplate("default-page.html.tmpl")
	errorPageTemplate    = mustTemplate("error-page.html.tmpl")
)

// DefaultVhostTemplate exposes the built-in virtual-host template source.
func DefaultVhostTemplate() string { return defaultVhostTemplate }
