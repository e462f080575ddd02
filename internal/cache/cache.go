package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/mohammad-safakhou/tickerbrief/models"
)

// DefaultTTL is how long a cached entry stays fresh.
const DefaultTTL = 10 * time.Minute

// entry is the stored envelope. Timestamp is the write time; freshness
// is decided at read time against the layer's clock.
type entry struct {
	Ticker    string          `json:"ticker"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Layer is a TTL cache keyed by (collection, ticker). Expired entries
// are not purged, only masked at read. A broken store degrades reads to
// a miss rather than failing the caller.
type Layer struct {
	store  Store
	logger *log.Logger
	ttl    time.Duration
	nowFn  func() time.Time
}

func NewLayer(store Store, ttl time.Duration, logger *log.Logger) *Layer {
	if logger == nil {
		logger = log.New(log.Writer(), "[CACHE] ", log.LstdFlags)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Layer{
		store:  store,
		logger: logger,
		ttl:    ttl,
		nowFn:  time.Now,
	}
}

func cacheKey(collection, ticker string) string {
	return fmt.Sprintf("tickerbrief:%s:%s", collection, ticker)
}

// Set normalizes value to a JSON-native shape and writes it under
// (collection, ticker), stamped with the current time.
func (l *Layer) Set(ctx context.Context, collection, ticker string, value interface{}) error {
	normalized, err := Normalize(value)
	if err != nil {
		return fmt.Errorf("normalize %s/%s: %w", collection, ticker, err)
	}
	data, err := json.Marshal(normalized)
	if err != nil {
		return fmt.Errorf("marshal %s/%s: %w", collection, ticker, err)
	}
	blob, err := json.Marshal(entry{
		Ticker:    ticker,
		Timestamp: l.nowFn(),
		Data:      data,
	})
	if err != nil {
		return err
	}
	if err := l.store.Put(ctx, cacheKey(collection, ticker), blob); err != nil {
		return fmt.Errorf("cache write %s/%s: %w", collection, ticker, err)
	}
	l.logger.Printf("cached %s/%s (%d bytes)", collection, ticker, len(data))
	return nil
}

// Get unmarshals the cached value for (collection, ticker) into out.
// Returns models.ErrCacheMiss when the entry is absent, expired, or
// the store is unavailable.
func (l *Layer) Get(ctx context.Context, collection, ticker string, out interface{}) error {
	blob, err := l.store.Get(ctx, cacheKey(collection, ticker))
	if err != nil {
		if err != ErrNotFound {
			l.logger.Printf("cache read %s/%s degraded to miss: %v", collection, ticker, err)
		}
		return models.ErrCacheMiss
	}
	var e entry
	if err := json.Unmarshal(blob, &e); err != nil {
		l.logger.Printf("corrupt cache entry %s/%s: %v", collection, ticker, err)
		return models.ErrCacheMiss
	}
	if l.nowFn().Sub(e.Timestamp) > l.ttl {
		return models.ErrCacheMiss
	}
	return json.Unmarshal(e.Data, out)
}

// Normalize recursively converts value to JSON-native form: timestamps
// become ISO-8601 strings, maps and slices are walked, structs are
// flattened through their JSON encoding. The result is idempotent:
// normalizing twice yields the same shape.
func Normalize(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case nil, bool, string, float64, float32, int, int32, int64, uint, uint32, uint64:
		return v, nil
	case time.Time:
		return v.Format(time.RFC3339), nil
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, item := range v {
			n, err := Normalize(item)
			if err != nil {
				return nil, err
			}
			out[k] = n
		}
		return out, nil
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			n, err := Normalize(item)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	default:
		// Structs and typed slices: flatten through the JSON encoding,
		// then walk the generic form.
		blob, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		var generic interface{}
		if err := json.Unmarshal(blob, &generic); err != nil {
			return nil, err
		}
		if _, again := generic.(map[string]interface{}); again {
			return Normalize(generic)
		}
		if _, again := generic.([]interface{}); again {
			return Normalize(generic)
		}
		return generic, nil
	}
}
