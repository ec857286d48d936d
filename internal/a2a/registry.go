package a2a

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"a2a-support-desk/internal/reqid"
)

const defaultTimeout = 30 * time.Second

// CardStore mirrors discovered agent cards to durable storage.
type CardStore interface {
	SaveAgent(ctx context.Context, card AgentCard) error
	LoadAgents(ctx context.Context) ([]AgentCard, error)
}

// Entry is one registry key and the card it resolves to.
type Entry struct {
	Key  string    `json:"key"`
	Card AgentCard `json:"card"`
}

// Registry caches agent cards by key. Cards are cached under their own id
// on discovery and may additionally be registered under role aliases.
// Entries never expire; rediscovery replaces a card wholesale.
type Registry struct {
	mu         sync.RWMutex
	cards      map[string]AgentCard
	httpClient *http.Client
	store      CardStore
	logger     *zap.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithHTTPClient overrides the client used to fetch cards.
func WithHTTPClient(c *http.Client) RegistryOption {
	return func(r *Registry) { r.httpClient = c }
}

// WithCardStore mirrors discovered cards to s.
func WithCardStore(s CardStore) RegistryOption {
	return func(r *Registry) { r.store = s }
}

// WithRegistryLogger sets the registry logger.
func WithRegistryLogger(l *zap.Logger) RegistryOption {
	return func(r *Registry) { r.logger = l }
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		cards:      make(map[string]AgentCard),
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With(zap.String("component", "registry"))
	return r
}

// Warm loads persisted cards into the cache.
func (r *Registry) Warm(ctx context.Context) (int, error) {
	if r.store == nil {
		return 0, nil
	}
	cards, err := r.store.LoadAgents(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load agent cards: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, card := range cards {
		r.cards[card.ID] = card
	}
	return len(cards), nil
}

// Discover fetches the card served at address and caches it under the
// card's id.
func (r *Registry) Discover(ctx context.Context, address string) (AgentCard, error) {
	address = strings.TrimRight(address, "/")
	card, err := r.fetchCard(ctx, address)
	if err != nil {
		return AgentCard{}, &DiscoveryError{Address: address, Err: err}
	}
	if err := card.Validate(); err != nil {
		return AgentCard{}, &DiscoveryError{Address: address, Err: err}
	}

	r.mu.Lock()
	r.cards[card.ID] = card
	r.mu.Unlock()

	if r.store != nil {
		if err := r.store.SaveAgent(context.WithoutCancel(ctx), card); err != nil {
			r.logger.Warn("failed to persist agent card", zap.String("agent_id", card.ID), zap.Error(err))
		}
	}

	r.logger.Info("discovered agent",
		zap.String("agent_id", card.ID),
		zap.String("name", card.Name),
		zap.String("base_url", card.BaseURL),
	)
	return card, nil
}

func (r *Registry) fetchCard(ctx context.Context, address string) (AgentCard, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, address+CardPath, nil)
	if err != nil {
		return AgentCard{}, fmt.Errorf("failed to create agent card request: %w", err)
	}
	if id := reqid.From(ctx); id != "" {
		req.Header.Set(reqid.Header, id)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return AgentCard{}, fmt.Errorf("failed to fetch agent card: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return AgentCard{}, fmt.Errorf("failed to read agent card response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return AgentCard{}, fmt.Errorf("agent card request failed with status %d: %s", resp.StatusCode, body)
	}

	var card AgentCard
	if err := json.Unmarshal(body, &card); err != nil {
		return AgentCard{}, fmt.Errorf("failed to parse agent card: %w", err)
	}
	return card, nil
}

// Register stores card under key, typically a role alias.
func (r *Registry) Register(key string, card AgentCard) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cards[key] = card
}

// Lookup returns the card registered under key.
func (r *Registry) Lookup(key string) (AgentCard, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	card, ok := r.cards[key]
	if !ok {
		return AgentCard{}, fmt.Errorf("agent %q: %w", key, ErrNotFound)
	}
	return card, nil
}

// List returns all entries sorted by key.
func (r *Registry) List() []Entry {
	r.mu.RLock()
	entries := make([]Entry, 0, len(r.cards))
	for key, card := range r.cards {
		entries = append(entries, Entry{Key: key, Card: card})
	}
	r.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries
}
