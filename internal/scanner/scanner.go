package scanner

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"SecFeed/internal/domain"
)

// Page is one listing page: article links plus the older-posts URL.
type Page struct {
	Links []string
	Next  string
}

// Scanner captures a single site strategy (The Hacker News, etc.).
type Scanner interface {
	Name() string
	Discover(ctx context.Context, pageURL string) (Page, error)
	Extract(ctx context.Context, link string) (domain.Candidate, error)
}

// Registry keeps a mapping from scanner names to their implementations.
type Registry struct {
	scanners map[string]Scanner
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{scanners: map[string]Scanner{}}
}

// Register adds a site strategy. Names are case-insensitive and unique.
func (r *Registry) Register(s Scanner) error {
	if s == nil {
		return fmt.Errorf("register nil scanner")
	}
	name := normalizeName(s.Name())
	if name == "" {
		return fmt.Errorf("scanner has no name")
	}
	if r.scanners == nil {
		r.scanners = map[string]Scanner{}
	}
	if _, dup := r.scanners[name]; dup {
		return fmt.Errorf("scanner %s already registered", name)
	}
	r.scanners[name] = s
	return nil
}

// Resolve returns a scanner by name or an error listing the known ones.
func (r *Registry) Resolve(name string) (Scanner, error) {
	if s, ok := r.scanners[normalizeName(name)]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("scanner %s is not registered (known: %v)", name, r.Names())
}

// Names lists registered scanners in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.scanners))
	for name := range r.scanners {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
