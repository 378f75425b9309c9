// Package alias maps recipient addresses of the form user-<key>@<domain> to tenant
// alias keys and generates new keys.
package alias

import (
	"fmt"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	LocalPartPrefix = "user-"
	KeyAlphabet     = "abcdefghijklmnopqrstuvwxyz0123456789"
	KeyLength       = 8
)

type Resolver struct {
	domain string
}

func NewResolver(domain string) *Resolver {
	return &Resolver{domain: strings.ToLower(strings.TrimSpace(domain))}
}

func (r *Resolver) Domain() string {
	return r.domain
}

// Resolve returns the alias key encoded in address, or false when the address is not a
// tenant mailbox on the configured domain. It does not check that the tenant exists.
func (r *Resolver) Resolve(address string) (string, bool) {
	lower := strings.ToLower(strings.TrimSpace(address))
	lower = strings.TrimSuffix(strings.TrimPrefix(lower, "<"), ">")

	local, domain, found := strings.Cut(lower, "@")
	if !found || domain != r.domain {
		return "", false
	}
	key, ok := strings.CutPrefix(local, LocalPartPrefix)
	if !ok || key == "" {
		return "", false
	}
	return key, true
}

// ResolveAll resolves each address in order, dropping non-matches and duplicates.
func (r *Resolver) ResolveAll(addresses []string) []string {
	keys := make([]string, 0, len(addresses))
	for _, address := range addresses {
		key, ok := r.Resolve(address)
		if !ok || containsKey(keys, key) {
			continue
		}
		keys = append(keys, key)
	}
	return keys
}

func Address(key, domain string) string {
	return fmt.Sprintf("%s%s@%s", LocalPartPrefix, key, domain)
}

func NewKey() (string, error) {
	return gonanoid.Generate(KeyAlphabet, KeyLength)
}

func containsKey(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}
