// Package certs resolves certificate and key file paths for a domain.
// Certificate issuance itself is handled elsewhere; this package only knows
// the on-disk layout the issuer maintains.
package certs

import "path/filepath"

// Resolver supplies certificate/key file paths for a domain.
type Resolver interface {
	CertPath(domain string) string
	KeyPath(domain string) string
}

// LetsEncryptResolver maps domains onto the standard letsencrypt layout:
// <base>/live/<domain>/fullchain.pem and privkey.pem.
type LetsEncryptResolver struct {
	BaseDir string
}

func NewLetsEncryptResolver(baseDir string) *LetsEncryptResolver {
	return &LetsEncryptResolver{BaseDir: baseDir}
}

func (r *LetsEncryptResolver) CertPath(domain string) string {
	return filepath.Join(r.BaseDir, "live", domain, "fullchain.pem")
}

func (r *LetsEncryptResolver) KeyPath(domain string) string {
	return filepath.Join(r.BaseDir, "live", domain, "privkey.pem")
}

var _ Resolver = (*LetsEncryptResolver)(nil)
