// Package streambus wraps a Redis/Valkey-compatible stream server, the
// way the teacher's internal/eventbus.RedisEventBus wraps go-redis, but
// narrowed to the primitive operations the spec calls out by name:
// publish, ensureGroup, readGroup, ack, ping.
package streambus

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/sambitmohanty1/transit-dispatch/internal/errs"
)

// Client talks to a single Redis-family server over the stream commands
// XADD, XGROUP CREATE, XREADGROUP and XACK.
type Client struct {
	rdb             *redis.Client
	logger          *zap.Logger
	defaultBlock    time.Duration
	defaultCount    int64
}

// Config holds the connection-wide defaults a Client is built with;
// readGroup calls may override BlockMs/Count per call.
type Config struct {
	URL          string
	DefaultBlock time.Duration
	DefaultCount int64
}

// NewClient parses a Redis URL and builds a Client. It does not connect
// eagerly; call Connect (or Ping) to verify reachability.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, errs.Transport("invalid streambus url", err)
	}
	return &Client{
		rdb:          redis.NewClient(opts),
		logger:       logger,
		defaultBlock: cfg.DefaultBlock,
		defaultCount: cfg.DefaultCount,
	}, nil
}

// Connect verifies the connection is live. It is idempotent.
func (c *Client) Connect(ctx context.Context) error {
	return c.Ping(ctx)
}

// Ping checks liveness of the underlying connection.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return errs.Transport("streambus ping failed", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Publish appends one entry to stream holding a single field named "json"
// with the JSON-serialized payload. XADD <stream> [MAXLEN ~ <N>] * json
// <jsonString>. maxLenApprox <= 0 means no trim directive is sent.
func (c *Client) Publish(ctx context.Context, stream string, payload any, maxLenApprox int64) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", errs.Wrap(errs.KindInternal, "failed to marshal stream payload", err)
	}

	args := &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{"json": string(body)},
	}
	if maxLenApprox > 0 {
		args.MaxLen = maxLenApprox
		args.Approx = true
	}

	id, err := c.rdb.XAdd(ctx, args).Result()
	if err != nil {
		return "", errs.Transport("xadd failed", err)
	}
	return id, nil
}

// EnsureGroup idempotently creates a consumer group on stream, creating
// the stream itself when mkstream is true. A "BUSYGROUP" failure (the
// group already exists) is swallowed, never surfaced as an error.
func (c *Client) EnsureGroup(ctx context.Context, stream, group, startFromID string, mkstream bool) error {
	if startFromID == "" {
		startFromID = "0"
	}

	var err error
	if mkstream {
		err = c.rdb.XGroupCreateMkStream(ctx, stream, group, startFromID).Err()
	} else {
		err = c.rdb.XGroupCreate(ctx, stream, group, startFromID).Err()
	}
	if err == nil {
		return nil
	}
	if isBusyGroup(err) {
		return nil
	}
	return errs.Transport("xgroup create failed", err)
}

func isBusyGroup(err error) bool {
	return strings.Contains(err.Error(), "BUSYGROUP")
}

// ReadOptions overrides the connection-wide block/count defaults for one
// readGroup call.
type ReadOptions struct {
	BlockMs int
	Count   int64
}

// NormalizedMessage is one delivered stream entry.
type NormalizedMessage struct {
	ID      string
	Message map[string]string
}

// NormalizedStream groups the messages delivered for one stream name in a
// single XREADGROUP response.
type NormalizedStream struct {
	Name     string
	Messages []NormalizedMessage
}

// ReadGroup performs a blocking consumer-group read:
// XREADGROUP GROUP <g> <c> [BLOCK <ms>] [COUNT <n>] STREAMS <stream> <id>.
// It returns nil (no error) on timeout/no data.
func (c *Client) ReadGroup(ctx context.Context, group, consumer, stream, id string, opts ReadOptions) ([]NormalizedStream, error) {
	block := c.defaultBlock
	if opts.BlockMs > 0 {
		block = time.Duration(opts.BlockMs) * time.Millisecond
	}
	count := c.defaultCount
	if opts.Count > 0 {
		count = opts.Count
	}

	res, err := c.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{stream, id},
		Count:    count,
		Block:    block,
	}).Result()

	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Transport("xreadgroup failed", err)
	}
	if len(res) == 0 {
		return nil, nil
	}

	out := make([]NormalizedStream, 0, len(res))
	for _, s := range res {
		ns := NormalizedStream{Name: s.Stream}
		for _, m := range s.Messages {
			fields := make(map[string]string, len(m.Values))
			for k, v := range m.Values {
				if sv, ok := v.(string); ok {
					fields[k] = sv
				}
			}
			ns.Messages = append(ns.Messages, NormalizedMessage{ID: m.ID, Message: fields})
		}
		out = append(out, ns)
	}
	return out, nil
}

// Ack acknowledges one delivered entry, removing it from the consumer
// group's pending-entries list.
func (c *Client) Ack(ctx context.Context, stream, group, id string) (int64, error) {
	n, err := c.rdb.XAck(ctx, stream, group, id).Result()
	if err != nil {
		return 0, errs.Transport("xack failed", err)
	}
	return n, nil
}
