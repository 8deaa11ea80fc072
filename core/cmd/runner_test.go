package cmd

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/bookbot/core/config"
	coretelegram "github.com/m3rciful/bookbot/core/telegram"
)

type fakeApp struct {
	closed bool
}

func (f *fakeApp) TelegramRunOptions() (coretelegram.RunOptions, error) {
	return coretelegram.RunOptions{}, nil
}

func (f *fakeApp) Close() error {
	f.closed = true
	return nil
}

func TestResolveConfigPath(t *testing.T) {
	t.Setenv("BOOKBOT_CONFIG", "/etc/bookbot.yaml")

	p, err := ResolveConfigPath("/flag.yaml", "BOOKBOT_CONFIG", "config.yaml")
	require.NoError(t, err)
	assert.Equal(t, "/flag.yaml", p)

	p, err = ResolveConfigPath("", "BOOKBOT_CONFIG", "config.yaml")
	require.NoError(t, err)
	assert.Equal(t, "/etc/bookbot.yaml", p)

	p, err = ResolveConfigPath("", "BOOKBOT_UNSET", "config.yaml")
	require.NoError(t, err)
	assert.Equal(t, "config.yaml", p)

	_, err = ResolveConfigPath("", "BOOKBOT_UNSET", "")
	assert.Error(t, err)
}

func TestRunContextLifecycle(t *testing.T) {
	app := &fakeApp{}
	var started, stopped bool
	err := RunContext(context.Background(), Options{
		ConfigPath:     "config.yaml",
		LoadConfig:     func(string) (*coreconfig.Config, error) { return &coreconfig.Config{}, nil },
		Bootstrap:      func(context.Context, *coreconfig.Config) (TelegramApp, error) { return app, nil },
		ShutdownLogger: func() error { return nil },
		RunTelegram: func(ctx context.Context, opts coretelegram.RunOptions) error {
			require.NoError(t, opts.OnStart(ctx, coretelegram.Runtime{}))
			started = true
			require.NoError(t, opts.OnStop(ctx, coretelegram.Runtime{}))
			stopped = true
			return nil
		},
	})
	require.NoError(t, err)
	assert.True(t, started)
	assert.True(t, stopped)
	assert.True(t, app.closed)
}

func TestRunContextFailures(t *testing.T) {
	boom := errors.New("boom")
	load := func(string) (*coreconfig.Config, error) { return &coreconfig.Config{}, nil }

	err := RunContext(context.Background(), Options{ConfigPath: "x", LoadConfig: load})
	assert.Error(t, err, "bootstrap is required")

	err = RunContext(context.Background(), Options{
		ConfigPath: "x",
		LoadConfig: func(string) (*coreconfig.Config, error) { return nil, boom },
		Bootstrap:  func(context.Context, *coreconfig.Config) (TelegramApp, error) { return &fakeApp{}, nil },
	})
	assert.ErrorIs(t, err, boom)

	err = RunContext(context.Background(), Options{
		ConfigPath: "x",
		LoadConfig: load,
		Bootstrap:  func(context.Context, *coreconfig.Config) (TelegramApp, error) { return nil, boom },
	})
	assert.ErrorIs(t, err, boom)
}
