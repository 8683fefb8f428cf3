package loadbalancer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidharthv96/caprover/internal/certs"
	"github.com/sidharthv96/caprover/internal/store"
)

func buildParams(apps []store.App) BuildParams {
	return BuildParams{
		Apps:            apps,
		DefaultTemplate: "default-template",
		HasRootSsl:      true,
		RootDomain:      "example.com",
		Namespace:       NamespaceApps,
		Certs:           certs.NewLetsEncryptResolver(ContainerCertsDir),
	}
}

func TestBuildVirtualHosts_PrimaryDomainWithSsl(t *testing.T) {
	hosts := BuildVirtualHosts(buildParams([]store.App{
		{Name: "foo", HasDefaultSubDomainSsl: true},
	}))

	require.Len(t, hosts, 1)
	assert.Equal(t, "foo.example.com", hosts[0].PublicDomain)
	assert.True(t, hosts[0].HasSsl)
	assert.Equal(t, "srv-foo:80", hosts[0].LocalUpstream)
	assert.Equal(t, 80, hosts[0].ContainerPort)
}

func TestBuildVirtualHosts_CountEqualsAppsPlusCustomDomains(t *testing.T) {
	hosts := BuildVirtualHosts(buildParams([]store.App{
		{Name: "foo", CustomDomains: []store.CustomDomain{
			{Domain: "www.foo.dev"},
			{Domain: "foo.dev"},
		}},
		{Name: "bar"},
		{Name: "hidden", NotExposed: true, CustomDomains: []store.CustomDomain{{Domain: "x.dev"}}},
	}))

	// (1+2) for foo, 1 for bar, 0 for the hidden app.
	assert.Len(t, hosts, 4)
}

func TestBuildVirtualHosts_CertPathsIffSsl(t *testing.T) {
	hosts := BuildVirtualHosts(buildParams([]store.App{
		{Name: "secure", HasDefaultSubDomainSsl: true},
		{Name: "plain", HasDefaultSubDomainSsl: false},
		{Name: "mixed", CustomDomains: []store.CustomDomain{
			{Domain: "tls.mixed.dev", HasSsl: true},
			{Domain: "plain.mixed.dev", HasSsl: false},
		}},
	}))

	for _, vh := range hosts {
		if vh.HasSsl {
			assert.NotEmpty(t, vh.CertPath, vh.PublicDomain)
			assert.NotEmpty(t, vh.KeyPath, vh.PublicDomain)
		} else {
			assert.Empty(t, vh.CertPath, vh.PublicDomain)
			assert.Empty(t, vh.KeyPath, vh.PublicDomain)
		}
	}
}

func TestBuildVirtualHosts_SubdomainSslNeedsRootSsl(t *testing.T) {
	params := buildParams([]store.App{{Name: "foo", HasDefaultSubDomainSsl: true}})
	params.HasRootSsl = false

	hosts := BuildVirtualHosts(params)
	require.Len(t, hosts, 1)
	assert.False(t, hosts[0].HasSsl)
}

func TestBuildVirtualHosts_OrderingPrimaryFirstThenStoredOrder(t *testing.T) {
	hosts := BuildVirtualHosts(buildParams([]store.App{
		{Name: "foo", CustomDomains: []store.CustomDomain{
			{Domain: "zz.foo.dev"},
			{Domain: "aa.foo.dev"},
		}},
		{Name: "bar"},
	}))

	require.Len(t, hosts, 4)
	assert.Equal(t, "foo.example.com", hosts[0].PublicDomain)
	assert.Equal(t, "zz.foo.dev", hosts[1].PublicDomain)
	assert.Equal(t, "aa.foo.dev", hosts[2].PublicDomain)
	assert.Equal(t, "bar.example.com", hosts[3].PublicDomain)
}

func TestBuildVirtualHosts_CustomDomainsShareUpstreamAndAuth(t *testing.T) {
	hosts := BuildVirtualHosts(buildParams([]store.App{
		{
			Name:               "foo",
			ContainerPort:      8080,
			AuthUser:           "admin",
			AuthPasswordHashed: "hashed",
			CustomDomains:      []store.CustomDomain{{Domain: "www.foo.dev"}},
		},
	}))

	require.Len(t, hosts, 2)
	primary, custom := hosts[0], hosts[1]

	assert.Equal(t, "srv-foo:8080", primary.LocalUpstream)
	assert.Equal(t, primary.LocalUpstream, custom.LocalUpstream)
	assert.Equal(t, "admin:hashed", primary.BasicAuthCredential)
	assert.Equal(t, primary.BasicAuthCredential, custom.BasicAuthCredential)
	assert.NotEmpty(t, primary.BasicAuthFilePath)
	assert.NotEmpty(t, custom.BasicAuthFilePath)
	assert.NotEqual(t, primary.BasicAuthFilePath, custom.BasicAuthFilePath)

	// Static paths only exist on the generated subdomain.
	assert.NotEmpty(t, primary.StaticWebRoot)
	assert.NotEmpty(t, primary.ErrorPagesDir)
	assert.Empty(t, custom.StaticWebRoot)
	assert.Empty(t, custom.ErrorPagesDir)
}

func TestBuildVirtualHosts_AuthNeedsBothUserAndPassword(t *testing.T) {
	hosts := BuildVirtualHosts(buildParams([]store.App{
		{Name: "foo", AuthUser: "admin"},
	}))

	require.Len(t, hosts, 1)
	assert.Empty(t, hosts[0].BasicAuthCredential)
	assert.Empty(t, hosts[0].BasicAuthFilePath)
}

func TestBuildVirtualHosts_CustomTemplateOverridesDefault(t *testing.T) {
	hosts := BuildVirtualHosts(buildParams([]store.App{
		{Name: "custom", CustomTemplate: "my-template", CustomDomains: []store.CustomDomain{{Domain: "c.dev"}}},
		{Name: "plain"},
	}))

	require.Len(t, hosts, 3)
	assert.Equal(t, "my-template", hosts[0].TemplateSource)
	assert.Equal(t, "my-template", hosts[1].TemplateSource)
	assert.Equal(t, "default-template", hosts[2].TemplateSource)
}
