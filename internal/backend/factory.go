package backend

import (
	"context"
	"fmt"

	"bilancio/internal/cache"
	"bilancio/internal/log"
	"bilancio/internal/storage"
	"bilancio/internal/storage/memory"
	"bilancio/internal/storage/redis"
	"bilancio/internal/storage/sheets"
	"bilancio/internal/storage/sqlite"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.NewNop()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		res *Result
		err error
	)
	switch config.Type {
	case MemoryBackend:
		res = f.createMemoryBackend()
	case SQLiteBackend:
		res, err = f.createSQLiteBackend(config)
	case RedisBackend:
		res, err = f.createRedisBackend(ctx, config)
	case SheetsBackend:
		res, err = f.createSheetsBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}
	res.Type = config.Type

	if config.Type.Remote() && config.CacheSize > 0 {
		f.withCache(res, config)
	}
	return res, nil
}

func (f *DefaultFactory) createMemoryBackend() *Result {
	f.logger.Warn("Using in-memory backend, the budget is lost on restart")
	return &Result{KV: memory.New()}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*Result, error) {
	repo, err := sqlite.NewRepository(config.SQLiteDBPath, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return &Result{KV: repo, Cleanup: repo.Close}, nil
}

func (f *DefaultFactory) createRedisBackend(ctx context.Context, config Config) (*Result, error) {
	store, err := redis.New(ctx, config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Redis client: %w", err)
	}

	f.logger.Info("Initialized Redis backend")
	return &Result{KV: store, Cleanup: store.Close}, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*Result, error) {
	store, err := sheets.New(ctx, sheets.Config{
		SpreadsheetID:   config.GoogleSpreadsheetID,
		SheetName:       config.GoogleSheetName,
		CredentialsJSON: config.GoogleServiceAccountJSON,
		CredentialsFile: config.GoogleServiceAccountFile,
	}, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.Info("Initialized Google Sheets backend", "spreadsheet_id", config.GoogleSpreadsheetID)
	return &Result{KV: store}, nil
}

// withCache puts an LRU read cache in front of res.KV and evicts expired
// entries in the background until cleanup.
func (f *DefaultFactory) withCache(res *Result, config Config) {
	lru := cache.NewLRU[string](config.CacheSize, config.CacheTTL)
	manager := cache.NewManager(f.logger)
	manager.Register(lru)
	manager.StartCleanup(config.CacheTTL)

	res.KV = storage.NewCached(res.KV, lru)
	inner := res.Cleanup
	res.Cleanup = func() error {
		manager.Stop()
		st := lru.Stats()
		f.logger.Info("Read cache closed",
			log.FieldBackend, string(config.Type), "hits", st.Hits, "misses", st.Misses, "evictions", st.Evictions)
		if inner != nil {
			return inner()
		}
		return nil
	}

	f.logger.Info("Enabled read cache",
		log.FieldBackend, string(config.Type), "size", config.CacheSize, "ttl", config.CacheTTL)
}
