package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bvweerd/wgtunnel/pkg/discovery"
	"github.com/bvweerd/wgtunnel/pkg/engine"
	"github.com/bvweerd/wgtunnel/pkg/log"
	"github.com/bvweerd/wgtunnel/pkg/persistence"
	"github.com/bvweerd/wgtunnel/pkg/security"
	"github.com/bvweerd/wgtunnel/pkg/service"
	"github.com/bvweerd/wgtunnel/pkg/settings"
	"github.com/bvweerd/wgtunnel/pkg/stateful"
	"github.com/bvweerd/wgtunnel/pkg/wgkey"
)

func tunnelConfig(t *testing.T) settings.TunnelConfig {
	t.Helper()
	priv, err := wgkey.Generate()
	require.NoError(t, err)
	peerPriv, err := wgkey.Generate()
	require.NoError(t, err)
	peer, err := peerPriv.PublicKey()
	require.NoError(t, err)

	cfg := settings.Defaults()
	cfg.Enabled = true
	cfg.PrivateKey = priv.String()
	cfg.PeerPublicKey = peer.String()
	cfg.Address = "10.8.0.2"
	cfg.Endpoint = "vpn.example.com"
	return cfg
}

func TestNewEventLogger(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	t.Run("disabled", func(t *testing.T) {
		cfg := DefaultConfig()
		events, closeFn, err := newEventLogger(cfg, logger)
		require.NoError(t, err)
		defer closeFn()
		assert.IsType(t, log.NoopLogger{}, events)
	})

	t.Run("debug mirrors to slog", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.LogLevel = "debug"
		events, closeFn, err := newEventLogger(cfg, logger)
		require.NoError(t, err)
		defer closeFn()
		assert.IsType(t, &log.SlogAdapter{}, events)
	})

	t.Run("file and slog", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.LogLevel = "debug"
		cfg.EventLog = filepath.Join(t.TempDir(), "trace", "events.cbor")

		events, closeFn, err := newEventLogger(cfg, logger)
		require.NoError(t, err)

		multi, ok := events.(*log.MultiLogger)
		require.True(t, ok)
		assert.Equal(t, 2, multi.Len())

		events.Log(log.Event{Timestamp: time.Now(), Layer: log.LayerTunnel, Category: log.CategoryState})
		closeFn()

		r, err := log.NewReader(cfg.EventLog)
		require.NoError(t, err)
		defer r.Close()
		ev, err := r.Next()
		require.NoError(t, err)
		assert.Equal(t, log.LayerTunnel, ev.Layer)
	})
}

func TestNewEngine(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Standalone = true
	assert.IsType(t, &engine.NoopEngine{}, newEngine(cfg, nil))

	cfg.Standalone = false
	assert.IsType(t, &engine.CommandEngine{}, newEngine(cfg, nil))
}

func TestInstanceName(t *testing.T) {
	name := instanceName()
	assert.NotEmpty(t, name)
	assert.NoError(t, discovery.ValidateInstanceName(name))
}

func TestNewSettingsFS(t *testing.T) {
	t.Run("directory", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.DataDir = t.TempDir()
		store, closeFn, err := newSettingsFS(cfg)
		require.NoError(t, err)
		defer closeFn()
		assert.IsType(t, &persistence.DirFS{}, store)
		assert.True(t, store.Exists("/"))
	})

	t.Run("missing directory is created", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.DataDir = filepath.Join(t.TempDir(), "data")
		store, closeFn, err := newSettingsFS(cfg)
		require.NoError(t, err)
		defer closeFn()
		require.True(t, store.Exists("/"))

		svcConfig := service.DefaultConfig()
		svcConfig.FS = store
		svcConfig.Engine = engine.NewNoopEngine()
		svc, err := service.New(svcConfig)
		require.NoError(t, err)
		svc.Begin()

		root := stateful.Object{}
		settings.Read(tunnelConfig(t), root)
		result, err := svc.UpdateSettings(root, service.SourceREST)
		require.NoError(t, err)
		assert.Equal(t, stateful.ChangedRestart, result)
		assert.True(t, svc.Persistence().HandlerEnabled())

		data, err := os.ReadFile(filepath.Join(cfg.DataDir, "config", "wireguardSettings.json"))
		require.NoError(t, err)
		assert.Contains(t, string(data), "vpn.example.com")
	})

	t.Run("data directory is a file", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.DataDir = filepath.Join(t.TempDir(), "data")
		require.NoError(t, os.WriteFile(cfg.DataDir, nil, 0644))
		_, _, err := newSettingsFS(cfg)
		assert.Error(t, err)
	})

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cfg := DefaultConfig()
		cfg.Store = StoreRedis
		cfg.RedisURL = "redis://" + mr.Addr()
		store, closeFn, err := newSettingsFS(cfg)
		require.NoError(t, err)
		defer closeFn()
		assert.IsType(t, &persistence.RedisFS{}, store)
		assert.True(t, store.Exists("/"))
	})

	t.Run("bad redis url", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Store = StoreRedis
		cfg.RedisURL = "http://example.com"
		_, _, err := newSettingsFS(cfg)
		assert.Error(t, err)
	})
}

func TestNewToken(t *testing.T) {
	cfg := DefaultConfig()
	_, err := newToken(cfg, "admin")
	assert.Error(t, err)

	cfg.JWTSecret = "0123456789abcdef"
	token, err := newToken(cfg, "ops")
	require.NoError(t, err)

	sec, err := newSecurity(cfg)
	require.NoError(t, err)
	user, err := sec.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, security.User{Username: "ops", Admin: true}, user)
}
