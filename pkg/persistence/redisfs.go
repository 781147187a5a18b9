package persistence

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces the keys written by RedisFS.
const DefaultRedisPrefix = "wgtunnel:"

// DefaultRedisTimeout bounds each Redis round trip.
const DefaultRedisTimeout = 2 * time.Second

// RedisFS is an FS that keeps each document in a Redis string key. Redis has
// no directories, so Mkdir records the name in a set and writes never need a
// parent. Exists("/") reports whether the server answers.
type RedisFS struct {
	client  *redis.Client
	prefix  string
	timeout time.Duration
}

// NewRedisFS returns a RedisFS over client. An empty prefix selects
// DefaultRedisPrefix.
func NewRedisFS(client *redis.Client, prefix string) *RedisFS {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisFS{client: client, prefix: prefix, timeout: DefaultRedisTimeout}
}

// NewRedisFSFromURL parses a redis:// URL and connects lazily.
func NewRedisFSFromURL(rawURL, prefix string) (*RedisFS, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return NewRedisFS(redis.NewClient(opts), prefix), nil
}

// Close releases the client.
func (r *RedisFS) Close() error {
	return r.client.Close()
}

func (r *RedisFS) key(name string) string {
	return r.prefix + "file:" + path.Clean("/"+name)
}

func (r *RedisFS) dirsKey() string {
	return r.prefix + "dirs"
}

func (r *RedisFS) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), r.timeout)
}

// Exists reports whether name is a stored document or a recorded directory.
func (r *RedisFS) Exists(name string) bool {
	if r == nil || r.client == nil {
		return false
	}
	ctx, cancel := r.ctx()
	defer cancel()

	name = path.Clean("/" + name)
	if name == "/" {
		return r.client.Ping(ctx).Err() == nil
	}
	n, err := r.client.Exists(ctx, r.key(name)).Result()
	if err == nil && n > 0 {
		return true
	}
	isDir, err := r.client.SIsMember(ctx, r.dirsKey(), name).Result()
	return err == nil && isDir
}

// Open opens name. Writes are buffered and stored on Close.
func (r *RedisFS) Open(name string, mode OpenMode) (File, error) {
	switch mode {
	case ModeRead:
		ctx, cancel := r.ctx()
		defer cancel()

		data, err := r.client.Get(ctx, r.key(name)).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil, fs.ErrNotExist
		}
		if err != nil {
			return nil, err
		}
		return &redisFile{r: bytes.NewReader(data)}, nil
	case ModeWrite:
		return &redisFile{fs: r, name: name}, nil
	default:
		return nil, errors.New("unsupported open mode")
	}
}

// Mkdir records a directory name.
func (r *RedisFS) Mkdir(name string) error {
	ctx, cancel := r.ctx()
	defer cancel()

	added, err := r.client.SAdd(ctx, r.dirsKey(), path.Clean("/"+name)).Result()
	if err != nil {
		return err
	}
	if added == 0 {
		return fs.ErrExist
	}
	return nil
}

type redisFile struct {
	r    *bytes.Reader
	buf  bytes.Buffer
	fs   *RedisFS
	name string
}

func (f *redisFile) Read(p []byte) (int, error) {
	if f.r == nil {
		return 0, errors.New("file not open for reading")
	}
	return f.r.Read(p)
}

func (f *redisFile) Write(p []byte) (int, error) {
	if f.fs == nil {
		return 0, errors.New("file not open for writing")
	}
	return f.buf.Write(p)
}

func (f *redisFile) Close() error {
	if f.fs == nil {
		return nil
	}
	ctx, cancel := f.fs.ctx()
	defer cancel()

	return f.fs.client.Set(ctx, f.fs.key(f.name), f.buf.Bytes(), 0).Err()
}

// Compile-time interface satisfaction check.
var _ FS = (*RedisFS)(nil)
