// Package catalog maps auction display names to venue item ids.
package catalog

import (
	"context"
	"strings"
	"sync"
	"unicode"

	"go.uber.org/zap"

	"skyflip/internal/models"
)

// Source is the read side of the catalog table.
type Source interface {
	ListCatalogItems(ctx context.Context) ([]models.CatalogItem, error)
}

// Resolver keeps an in-memory copy of the catalog. Lookups never hit the store;
// Refresh swaps the whole table at once.
type Resolver struct {
	Source Source
	Logger *zap.Logger

	mu     sync.RWMutex
	byName map[string]string
}

func NewResolver(src Source, logger *zap.Logger) *Resolver {
	return &Resolver{Source: src, Logger: logger, byName: map[string]string{}}
}

func (r *Resolver) Refresh(ctx context.Context) error {
	if r == nil || r.Source == nil {
		return nil
	}
	items, err := r.Source.ListCatalogItems(ctx)
	if err != nil {
		if r.Logger != nil {
			r.Logger.Warn("catalog refresh failed", zap.Error(err))
		}
		return err
	}
	next := make(map[string]string, len(items))
	for _, it := range items {
		id := strings.TrimSpace(it.ItemID)
		name := NormalizeName(it.DisplayName)
		if id == "" || name == "" {
			continue
		}
		next[name] = id
	}
	r.mu.Lock()
	r.byName = next
	r.mu.Unlock()
	if r.Logger != nil {
		r.Logger.Debug("catalog refreshed", zap.Int("items", len(next)))
	}
	return nil
}

// Resolve returns the item id for a listing name. Names missing from the catalog fall
// back to FallbackID so an unknown item still gets a stable key.
func (r *Resolver) Resolve(displayName string) string {
	name := NormalizeName(displayName)
	if name == "" {
		return ""
	}
	if r != nil {
		r.mu.RLock()
		id, ok := r.byName[name]
		r.mu.RUnlock()
		if ok {
			return id
		}
	}
	return FallbackID(name)
}

func (r *Resolver) Len() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byName)
}

// NormalizeName lower-cases a listing name and drops formatting codes (§x), upgrade
// stars and pet level prefixes, leaving single-spaced words.
func NormalizeName(val string) string {
	s := stripFormatting(val)
	s = strings.ToLower(strings.TrimSpace(s))
	if strings.HasPrefix(s, "[lvl ") {
		if i := strings.Index(s, "]"); i > 0 {
			s = s[i+1:]
		}
	}
	var b strings.Builder
	space := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'' || r == '-':
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		default:
			space = true
		}
	}
	return b.String()
}

// FallbackID turns a normalized name into an upper-snake id, e.g. "aspect of the end"
// becomes ASPECT_OF_THE_END.
func FallbackID(normalized string) string {
	s := strings.ToUpper(strings.TrimSpace(normalized))
	s = strings.ReplaceAll(s, "'", "")
	s = strings.ReplaceAll(s, "-", "_")
	return strings.ReplaceAll(s, " ", "_")
}

func stripFormatting(s string) string {
	if !strings.ContainsRune(s, '§') {
		return s
	}
	var b strings.Builder
	skip := false
	for _, r := range s {
		if skip {
			skip = false
			continue
		}
		if r == '§' {
			skip = true
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
