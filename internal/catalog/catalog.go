package catalog

import (
	"strings"
)

// Catalog is the set of values the entry form accepts.
type Catalog struct {
	Currencies     []string          `yaml:"currencies"`
	Categories     []string          `yaml:"categories"`
	PaymentMethods []string          `yaml:"payment_methods"`
	Aliases        map[string]string `yaml:"aliases,omitempty"` // legacy code -> ISO code
}

// Service answers membership and normalization questions over a Catalog.
type Service struct {
	cat        Catalog
	currencies map[string]struct{}
	categories map[string]string // lower-case -> canonical
	payments   map[string]string // lower-case -> canonical
	aliases    map[string]string
}

// NewService indexes c. Empty lists fall back to the defaults.
func NewService(c Catalog) *Service {
	def := Default()
	if len(c.Currencies) == 0 {
		c.Currencies = def.Currencies
	}
	if len(c.Categories) == 0 {
		c.Categories = def.Categories
	}
	if len(c.PaymentMethods) == 0 {
		c.PaymentMethods = def.PaymentMethods
	}
	if c.Aliases == nil {
		c.Aliases = def.Aliases
	}

	s := &Service{
		currencies: make(map[string]struct{}, len(c.Currencies)),
		categories: make(map[string]string, len(c.Categories)),
		payments:   make(map[string]string, len(c.PaymentMethods)),
		aliases:    make(map[string]string, len(c.Aliases)),
	}
	for from, to := range c.Aliases {
		s.aliases[strings.ToUpper(strings.TrimSpace(from))] = strings.ToUpper(strings.TrimSpace(to))
	}

	// Currencies are stored normalized so "euro" in a config still lands on EUR.
	var currencies []string
	for _, code := range c.Currencies {
		code = s.NormalizeCurrency(code)
		if code == "" {
			continue
		}
		if _, dup := s.currencies[code]; dup {
			continue
		}
		s.currencies[code] = struct{}{}
		currencies = append(currencies, code)
	}
	c.Currencies = currencies
	c.Categories = index(c.Categories, s.categories)
	c.PaymentMethods = index(c.PaymentMethods, s.payments)
	s.cat = c
	return s
}

func index(names []string, into map[string]string) []string {
	var out []string
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		key := strings.ToLower(n)
		if _, dup := into[key]; dup {
			continue
		}
		into[key] = n
		out = append(out, n)
	}
	return out
}

// NormalizeCurrency maps user input to a standard code: trimmed,
// upper-cased and with aliases applied ("euro" -> "EUR").
func (s *Service) NormalizeCurrency(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if to, ok := s.aliases[code]; ok {
		return to
	}
	return code
}

// HasCurrency reports whether the normalized code is offered.
func (s *Service) HasCurrency(code string) bool {
	_, ok := s.currencies[s.NormalizeCurrency(code)]
	return ok
}

// Category returns the canonical spelling of a category name.
func (s *Service) Category(name string) (string, bool) {
	c, ok := s.categories[strings.ToLower(strings.TrimSpace(name))]
	return c, ok
}

// Payment returns the canonical spelling of a payment method.
func (s *Service) Payment(name string) (string, bool) {
	p, ok := s.payments[strings.ToLower(strings.TrimSpace(name))]
	return p, ok
}

// Currencies returns the offered currency codes in display order.
func (s *Service) Currencies() []string {
	return append([]string(nil), s.cat.Currencies...)
}

// Categories returns the offered categories in display order.
func (s *Service) Categories() []string {
	return append([]string(nil), s.cat.Categories...)
}

// PaymentMethods returns the offered payment methods in display order.
func (s *Service) PaymentMethods() []string {
	return append([]string(nil), s.cat.PaymentMethods...)
}

// Catalog returns the normalized catalog.
func (s *Service) Catalog() Catalog {
	c := s.cat
	c.Currencies = s.Currencies()
	c.Categories = s.Categories()
	c.PaymentMethods = s.PaymentMethods()
	return c
}
