// Package store holds the application definitions the load balancer derives
// its virtual-host configuration from.
package store

import "fmt"

// CustomDomain is an extra domain attached to an app, with its own SSL flag.
type CustomDomain struct {
	Domain string `json:"domain" yaml:"domain"`
	HasSsl bool   `json:"has_ssl" yaml:"has_ssl"`
}

// App is one deployed application definition.
type App struct {
	Name                   string         `json:"name" yaml:"name"`
	InternalName           string         `json:"internal_name,omitempty" yaml:"internal_name,omitempty"`
	NotExposed             bool           `json:"not_exposed" yaml:"not_exposed"`
	HasDefaultSubDomainSsl bool           `json:"has_default_subdomain_ssl" yaml:"has_default_subdomain_ssl"`
	ForceSsl               bool           `json:"force_ssl" yaml:"force_ssl"`
	WebsocketSupport       bool           `json:"websocket_support" yaml:"websocket_support"`
	ContainerPort          int            `json:"container_port,omitempty" yaml:"container_port,omitempty"`
	CustomTemplate         string         `json:"custom_template,omitempty" yaml:"custom_template,omitempty"`
	AuthUser               string         `json:"auth_user,omitempty" yaml:"auth_user,omitempty"`
	AuthPasswordHashed     string         `json:"auth_password_hashed,omitempty" yaml:"auth_password_hashed,omitempty"`
	CustomDomains          []CustomDomain `json:"custom_domains,omitempty" yaml:"custom_domains,omitempty"`
}

// ServiceName is the cluster-internal service name traffic is proxied to.
func (a *App) ServiceName() string {
	if a.InternalName != "" {
		return a.InternalName
	}
	return "srv-" + a.Name
}

// ErrAppNotFound is returned when a named app does not exist.
type ErrAppNotFound struct {
	Name string
}

func (e *ErrAppNotFound) Error() string {
	return fmt.Sprintf("app %q not found", e.Name)
}

// Store is the persistent collection of app definitions. Apps returns
// definitions in stable name order; the virtual-host builder relies on that
// ordering and performs no sorting of its own.
type Store interface {
	Apps() ([]App, error)
	App(name string) (*App, error)
	SaveApp(app *App) error
	RemoveApp(name string) error
	SetBasicAuth(name, user, password string) error
	Close() error
}
