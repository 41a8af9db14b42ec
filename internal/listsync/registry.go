package listsync

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/lumora-app/listsync/internal/accounts"
	"github.com/lumora-app/listsync/internal/logging"
	"github.com/lumora-app/listsync/internal/nostr"
)

// Registry hands out one orchestrator per (account, list) pair, building
// the tier adapters on first use and reusing them afterwards. All accounts
// share one session store and one pool per account.
type Registry struct {
	dataDir  string
	store    *SessionStore
	poolOpts nostr.PoolOptions
	cacheTTL time.Duration
	clock    clockwork.Clock
	log      logging.Logger

	mu    sync.Mutex
	pools map[string]*nostr.Pool
	orchs map[string]any
}

func NewRegistry(dataDir string, store *SessionStore, poolOpts nostr.PoolOptions, cacheTTL time.Duration, clock clockwork.Clock, log logging.Logger) *Registry {
	return &Registry{
		dataDir:  dataDir,
		store:    store,
		poolOpts: poolOpts,
		cacheTTL: cacheTTL,
		clock:    clock,
		log:      log,
		pools:    make(map[string]*nostr.Pool),
		orchs:    make(map[string]any),
	}
}

func (r *Registry) pool(account *accounts.Account) *nostr.Pool {
	if p, ok := r.pools[account.PubKey]; ok {
		return p
	}
	p := nostr.NewPool(account.Relays, r.poolOpts, r.log)
	r.pools[account.PubKey] = p
	return p
}

// ForSchema returns the account's orchestrator for one list schema,
// creating it and its tier adapters on first use. It is a package function
// because methods cannot introduce type parameters.
func ForSchema[T any](r *Registry, account *accounts.Account, schema Schema[T]) (*Orchestrator[T], error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := account.PubKey + ":" + schema.StorageKey
	if v, ok := r.orchs[key]; ok {
		if o, ok := v.(*Orchestrator[T]); ok {
			return o, nil
		}
	}

	file, err := NewFileAdapter(schema, r.dataDir, account.PubKey)
	if err != nil {
		return nil, err
	}
	folders, err := NewFolderStore(r.dataDir, account.PubKey, schema.StorageKey, r.clock)
	if err != nil {
		return nil, err
	}

	cache := NewCacheAdapter(r.store, schema, account.PubKey, r.clock)
	network := NewNetworkAdapter(schema, account, r.pool(account), r.clock, r.log)

	o := NewOrchestrator(schema, cache, file, network, folders, r.clock, r.log, r.cacheTTL)
	r.orchs[key] = o
	return o, nil
}
