package loadbalancer

import "path"

// Paths as seen from inside the proxy container. Rendered config references
// files by these paths; the lifecycle manager mounts the matching host
// directories onto them.
const (
	ContainerConfDir     = "/etc/nginx/conf.d"
	ContainerBaseConf    = "/etc/nginx/nginx.conf"
	ContainerStaticDir   = "/usr/share/nginx/static"
	ContainerFakeCertDir = "/etc/ssl/fake"
	ContainerCertsDir    = "/etc/letsencrypt"
	ContainerStateDir    = "/var/lib/proxy-state"
)

// FakeCertFile and FakeKeyFile are the file names of the self-signed bundle.
const (
	FakeCertFile = "fullchain.pem"
	FakeKeyFile  = "privkey.pem"
)

func containerAuthFilePath(namespace Namespace, domain string) string {
	return path.Join(ContainerConfDir, string(namespace)+"-"+domain+".auth")
}

func containerWebRootPath(domain string) string {
	return path.Join(ContainerStaticDir, "webroot", domain)
}

func containerErrorPagesPath() string {
	return path.Join(ContainerStaticDir, "errors")
}
