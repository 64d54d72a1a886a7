package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/rueidis"

	"github.com/climate-lab/eofkit/internal/config"
)

// Redis records completed downloads in Redis so that batches resume across
// runs and hosts.
type Redis struct {
	client rueidis.Client
	prefix string
	ttl    time.Duration
}

func NewRedis(cfg *config.RedisEnvConfig) (*Redis, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress: []string{fmt.Sprintf("%s:%d", cfg.RedisHost, cfg.RedisPort)},
		Username:    cfg.RedisUsername,
		Password:    cfg.RedisPassword,
		SelectDB:    cfg.RedisDB,
	})
	if err != nil {
		return nil, err
	}

	return &Redis{
		client: client,
		prefix: cfg.LedgerPrefix,
		ttl:    cfg.LedgerTTL,
	}, nil
}

func (r *Redis) Done(ctx context.Context, key string) (string, bool, error) {
	resp := r.client.Do(ctx, r.client.B().Get().Key(r.prefix+key).Build())
	if err := resp.Error(); err != nil {
		if rueidis.IsRedisNil(err) {
			return "", false, nil
		}
		return "", false, err
	}
	file, err := resp.ToString()
	if err != nil {
		return "", false, err
	}
	return file, true, nil
}

func (r *Redis) MarkDone(ctx context.Context, key, file string) error {
	if r.ttl > 0 {
		return r.client.Do(ctx, r.client.B().Set().Key(r.prefix+key).Value(file).Ex(r.ttl).Build()).Error()
	}
	return r.client.Do(ctx, r.client.B().Set().Key(r.prefix+key).Value(file).Build()).Error()
}

func (r *Redis) Close() {
	r.client.Close()
}
