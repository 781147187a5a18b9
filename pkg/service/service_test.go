package service_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bvweerd/wgtunnel/pkg/discovery"
	"github.com/bvweerd/wgtunnel/pkg/engine"
	"github.com/bvweerd/wgtunnel/pkg/log"
	"github.com/bvweerd/wgtunnel/pkg/persistence"
	"github.com/bvweerd/wgtunnel/pkg/service"
	"github.com/bvweerd/wgtunnel/pkg/settings"
	"github.com/bvweerd/wgtunnel/pkg/stateful"
	"github.com/bvweerd/wgtunnel/pkg/tunnel"
	"github.com/bvweerd/wgtunnel/pkg/wgkey"
)

type recordingEvents struct {
	mu     sync.Mutex
	events []log.Event
}

func (r *recordingEvents) Log(e log.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingEvents) configChanges() []*log.ConfigChangeEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*log.ConfigChangeEvent
	for _, e := range r.events {
		if e.ConfigChange != nil {
			out = append(out, e.ConfigChange)
		}
	}
	return out
}

type fakeAdvertiser struct {
	mu         sync.Mutex
	advertised []*discovery.ServiceInfo
	updates    []*discovery.ServiceInfo
	stops      int
}

func (f *fakeAdvertiser) Advertise(_ context.Context, info *discovery.ServiceInfo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.advertised = append(f.advertised, info)
	return nil
}

func (f *fakeAdvertiser) Update(info *discovery.ServiceInfo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, info)
	return nil
}

func (f *fakeAdvertiser) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	return nil
}

func (f *fakeAdvertiser) stopCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stops
}

type testEnv struct {
	svc    *service.TunnelService
	fs     *persistence.MemFS
	engine *engine.NoopEngine
	events *recordingEvents
	adv    *fakeAdvertiser
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		fs:     persistence.NewMemFS(),
		engine: engine.NewNoopEngine(),
		events: &recordingEvents{},
		adv:    &fakeAdvertiser{},
	}

	cfg := service.DefaultConfig()
	cfg.FS = env.fs
	cfg.Engine = env.engine
	cfg.Interface = "wg0"
	cfg.PollInterval = 10 * time.Millisecond
	cfg.EventLogger = env.events
	cfg.Advertiser = env.adv
	cfg.Instance = "gateway"
	cfg.Port = 8080

	svc, err := service.New(cfg)
	require.NoError(t, err)
	env.svc = svc
	return env
}

func validSettings(t *testing.T) settings.TunnelConfig {
	t.Helper()
	priv, err := wgkey.Generate()
	require.NoError(t, err)
	peerPriv, err := wgkey.Generate()
	require.NoError(t, err)
	peer, err := peerPriv.PublicKey()
	require.NoError(t, err)

	return settings.TunnelConfig{
		Enabled:             true,
		PrivateKey:          priv.String(),
		PeerPublicKey:       peer.String(),
		Address:             "10.0.0.2",
		Netmask:             "255.255.255.0",
		Endpoint:            "vpn.example.com",
		Port:                51820,
		PersistentKeepalive: 25,
	}
}

func toObject(c settings.TunnelConfig) stateful.Object {
	root := stateful.Object{}
	settings.Read(c, root)
	return root
}

func storeDocument(t *testing.T, fs *persistence.MemFS, c settings.TunnelConfig) {
	t.Helper()
	data, err := json.Marshal(c)
	require.NoError(t, err)
	fs.WriteFile(settings.FilePath, data)
}

func TestNewValidatesConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*service.Config)
	}{
		{"missing engine", func(c *service.Config) { c.Engine = nil }},
		{"relative path", func(c *service.Config) { c.SettingsPath = "config/x.json" }},
		{"zero poll interval", func(c *service.Config) { c.PollInterval = 0 }},
		{"bad restart schedule", func(c *service.Config) { c.RestartSchedule = "every tuesday" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := service.DefaultConfig()
			cfg.Engine = engine.NewNoopEngine()
			tt.mutate(&cfg)

			_, err := service.New(cfg)
			assert.ErrorIs(t, err, service.ErrInvalidConfig)
		})
	}
}

func TestBeginWritesDefaults(t *testing.T) {
	env := newTestEnv(t)
	env.svc.Begin()

	assert.Equal(t, settings.Defaults(), env.svc.Store().Get())
	assert.False(t, env.svc.Manager().Enabled())

	data, ok := env.fs.ReadFile(settings.FilePath)
	require.True(t, ok, "defaults should be persisted")
	assert.Contains(t, string(data), `"netmask": "255.255.255.255"`)
}

func TestBeginStagesStoredConfig(t *testing.T) {
	env := newTestEnv(t)
	stored := validSettings(t)
	storeDocument(t, env.fs, stored)

	env.svc.Begin()

	assert.Equal(t, stored, env.svc.Store().Get())
	assert.True(t, env.svc.Manager().Enabled())
	assert.Equal(t, tunnel.StateIdle, env.svc.Manager().State())
	assert.Equal(t, 0, env.fs.Writes(), "loading must not rewrite the document")
}

func TestUpdateSettings(t *testing.T) {
	t.Run("invalid settings are rejected", func(t *testing.T) {
		env := newTestEnv(t)
		env.svc.Begin()

		bad := validSettings(t)
		bad.Address = "not-an-ip"
		result, err := env.svc.UpdateSettings(toObject(bad), service.SourceREST)

		assert.ErrorIs(t, err, settings.ErrInvalidAddress)
		assert.Equal(t, stateful.Unchanged, result)
		assert.Equal(t, settings.Defaults(), env.svc.Store().Get())
		assert.Empty(t, env.events.configChanges())
	})

	t.Run("restart relevant change", func(t *testing.T) {
		env := newTestEnv(t)
		env.svc.Begin()
		writes := env.fs.Writes()

		result, err := env.svc.UpdateSettings(toObject(validSettings(t)), service.SourceREST)
		require.NoError(t, err)

		assert.Equal(t, stateful.ChangedRestart, result)
		assert.True(t, env.svc.RestartPending())
		assert.Equal(t, writes+1, env.fs.Writes())
		assert.Equal(t, 1, env.svc.Store().HandlerCount(), "persistence is the only subscriber")

		changes := env.events.configChanges()
		require.Len(t, changes, 1)
		assert.Equal(t, "CHANGED_RESTART", changes[0].Result)
		assert.Equal(t, service.SourceREST, changes[0].Source)
		assert.Contains(t, changes[0].Keys, settings.KeyEnabled)
		assert.Contains(t, changes[0].Keys, settings.KeyEndpoint)
	})

	t.Run("live change does not restart", func(t *testing.T) {
		env := newTestEnv(t)
		cfg := validSettings(t)
		storeDocument(t, env.fs, cfg)
		env.svc.Begin()

		result, err := env.svc.SetSetting(settings.KeyPersistentKeepalive, 10, service.SourceConsole)
		require.NoError(t, err)

		assert.Equal(t, stateful.Changed, result)
		assert.False(t, env.svc.RestartPending())
		assert.Equal(t, uint16(10), env.svc.Store().Get().PersistentKeepalive)

		changes := env.events.configChanges()
		require.Len(t, changes, 1)
		assert.Equal(t, []string{settings.KeyPersistentKeepalive}, changes[0].Keys)
		assert.Equal(t, service.SourceConsole, changes[0].Source)
	})

	t.Run("unchanged update", func(t *testing.T) {
		env := newTestEnv(t)
		env.svc.Begin()
		writes := env.fs.Writes()

		result, err := env.svc.UpdateSettings(toObject(settings.Defaults()), service.SourceREST)
		require.NoError(t, err)

		assert.Equal(t, stateful.Unchanged, result)
		assert.Equal(t, writes, env.fs.Writes())
		assert.Empty(t, env.events.configChanges())
	})

	t.Run("unknown key", func(t *testing.T) {
		env := newTestEnv(t)
		env.svc.Begin()

		_, err := env.svc.SetSetting("mtu", 1420, service.SourceConsole)
		assert.ErrorIs(t, err, service.ErrInvalidConfig)
	})
}

func TestTickAppliesRestart(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.svc.Begin()

	// Disabled: ticking does nothing.
	env.svc.Tick(ctx)
	assert.Equal(t, tunnel.StateIdle, env.svc.Manager().State())

	_, err := env.svc.UpdateSettings(toObject(validSettings(t)), service.SourceREST)
	require.NoError(t, err)

	env.svc.Tick(ctx)
	assert.False(t, env.svc.RestartPending())
	assert.True(t, env.svc.Manager().Connected())
	assert.Equal(t, 1, env.engine.Connects())
	assert.Len(t, env.engine.AllowedIPs(), 1)

	// Disabling stops the tunnel on the next tick.
	_, err = env.svc.SetSetting(settings.KeyEnabled, false, service.SourceConsole)
	require.NoError(t, err)
	env.svc.Tick(ctx)

	assert.Equal(t, tunnel.StateIdle, env.svc.Manager().State())
	assert.False(t, env.svc.Manager().Enabled())
}

func TestRun(t *testing.T) {
	env := newTestEnv(t)
	storeDocument(t, env.fs, validSettings(t))
	env.svc.Begin()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- env.svc.Run(ctx) }()

	require.Eventually(t, func() bool {
		return env.svc.Manager().Connected()
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, service.StateRunning, env.svc.State())
	assert.ErrorIs(t, env.svc.Run(ctx), service.ErrAlreadyRunning)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}

	assert.Equal(t, service.StateStopped, env.svc.State())
	assert.Equal(t, tunnel.StateIdle, env.svc.Manager().State())
	assert.Equal(t, 1, env.adv.stopCount())

	env.adv.mu.Lock()
	defer env.adv.mu.Unlock()
	require.Len(t, env.adv.advertised, 1)
	assert.Equal(t, "gateway", env.adv.advertised[0].Instance)
	assert.Equal(t, service.StatusPath, env.adv.advertised[0].Path)
	require.NotEmpty(t, env.adv.updates)
	assert.Equal(t, "CONNECTED", env.adv.updates[len(env.adv.updates)-1].State)
}

func TestServiceStateString(t *testing.T) {
	tests := []struct {
		state service.ServiceState
		want  string
	}{
		{service.StateIdle, "IDLE"},
		{service.StateRunning, "RUNNING"},
		{service.StateStopped, "STOPPED"},
		{service.ServiceState(99), "UNKNOWN"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.state.String())
	}
}

func TestRunAfterStop(t *testing.T) {
	env := newTestEnv(t)
	env.svc.Begin()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, env.svc.Run(ctx))
	assert.ErrorIs(t, env.svc.Run(context.Background()), service.ErrStopped)
}

func TestRunScheduledRestart(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for the cron scheduler")
	}

	fs := persistence.NewMemFS()
	eng := engine.NewNoopEngine()
	storeDocument(t, fs, validSettings(t))

	cfg := service.DefaultConfig()
	cfg.FS = fs
	cfg.Engine = eng
	cfg.PollInterval = 10 * time.Millisecond
	cfg.RestartSchedule = "@every 1s"

	svc, err := service.New(cfg)
	require.NoError(t, err)
	svc.Begin()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	require.Eventually(t, func() bool {
		return eng.Connects() >= 2
	}, 5*time.Second, 20*time.Millisecond, "scheduled restart should reconnect")

	cancel()
	require.NoError(t, <-done)
}
