package devserver

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/angelmondragon/salessavvy-storefront/pkg/config"
	"github.com/angelmondragon/salessavvy-storefront/pkg/logger"
	"github.com/angelmondragon/salessavvy-storefront/pkg/security"
)

const resetTokenTTL = time.Hour

// Service is the in-memory storefront backend: accounts, carts and orders
// for local development and contract tests. All state is lost on restart.
type Service struct {
	cfg    config.DevServerConfig
	params security.ArgonParams
	logger *logger.Logger
	now    func() time.Time

	mu              sync.Mutex
	nextUserID      int64
	nextCartItemID  int64
	nextOrderItemID int64
	users           map[int64]*account
	products        map[int64]*Product
	carts           map[int64][]*cartLine
	orders          map[string]*Order
	orderSeq        []string
	resetTokens     map[string]resetToken
	revoked         map[string]time.Time
}

// Option configures optional Service behavior.
type Option func(*Service)

// WithLogger attaches a structured logger.
func WithLogger(logg *logger.Logger) Option {
	return func(s *Service) {
		if logg != nil {
			s.logger = logg
		}
	}
}

// WithClock overrides time.Now, used for token and reset expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithCatalog replaces the seeded catalogue.
func WithCatalog(products []Product) Option {
	return func(s *Service) {
		s.products = make(map[int64]*Product, len(products))
		for i := range products {
			p := products[i]
			s.products[p.ID] = &p
		}
	}
}

// New builds a Service. The seeded catalogue is loaded when cfg.SeedCatalog is set.
func New(cfg config.DevServerConfig, opts ...Option) *Service {
	s := &Service{
		cfg:         cfg,
		params:      security.ParamsFromConfig(cfg),
		logger:      logger.Nop(),
		now:         time.Now,
		users:       map[int64]*account{},
		products:    map[int64]*Product{},
		carts:       map[int64][]*cartLine{},
		orders:      map[string]*Order{},
		resetTokens: map[string]resetToken{},
		revoked:     map[string]time.Time{},
	}
	if cfg.SeedCatalog {
		WithCatalog(seedCatalog())(s)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Products lists the catalogue ordered by id.
func (s *Service) Products(ctx context.Context) []Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Product returns one catalogue entry.
func (s *Service) Product(ctx context.Context, id int64) (Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return Product{}, false
	}
	return *p, true
}
