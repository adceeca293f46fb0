package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/talisman"
	"github.com/aretw0/talisman/internal/config"
	"github.com/aretw0/talisman/internal/logging"
	"github.com/aretw0/talisman/pkg/adapters/file"
	"github.com/aretw0/talisman/pkg/domain"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func offlineConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Offline = true
	cfg.Pacing.Instant = true
	cfg.Artifact.Interval = time.Millisecond
	require.NoError(t, cfg.Validate())
	return &cfg
}

func newTestApp(t *testing.T, cfg *config.Config, opts ...AppOption) *App {
	t.Helper()
	app, err := NewApp(cfg, logging.NewNop(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close(context.Background()) })
	return app
}

func TestNewApp_OfflineMemory(t *testing.T) {
	app := newTestApp(t, offlineConfig(t))
	ctx := context.Background()

	require.NotNil(t, app.Metrics)
	conv, err := app.Sessions.Create(ctx, domain.Profile{})
	require.NoError(t, err)
	require.NoError(t, conv.Handle(ctx, talisman.StartEvent()))
	require.NoError(t, conv.Handle(ctx, talisman.Text("이직해도 될까요")))

	snap := conv.Snapshot()
	assert.Equal(t, domain.StepFortuneResult, snap.State.Step)
	assert.True(t, snap.Affordances.CanGenerateArtifact)
	assert.True(t, snap.Affordances.CanSave)

	families, err := app.Metrics.Registry().Gather()
	require.NoError(t, err)
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "talisman_transitions_total")
}

func TestNewApp_FileSessionsAndSQLite(t *testing.T) {
	dir := t.TempDir()
	cfg := offlineConfig(t)
	cfg.Sessions.Driver = "file"
	cfg.Sessions.Path = filepath.Join(dir, "sessions")
	cfg.Store.Driver = "sqlite"
	cfg.Store.Path = filepath.Join(dir, "talisman.db")
	cfg.Metrics.Enabled = false

	ctx := context.Background()
	app, err := NewApp(cfg, logging.NewNop())
	require.NoError(t, err)
	assert.Nil(t, app.Metrics)

	conv, err := app.Sessions.Create(ctx, domain.Profile{Name: "지수"})
	require.NoError(t, err)
	id := conv.ID()
	require.NoError(t, conv.Handle(ctx, talisman.StartEvent()))
	require.NoError(t, conv.Handle(ctx, talisman.Text("시험에 붙을까요")))
	consultationID, err := conv.Save(ctx)
	require.NoError(t, err)
	require.NoError(t, app.Close(ctx))

	reopened := newTestApp(t, cfg)
	resumed, err := reopened.Sessions.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StepFortuneResult, resumed.State().Step)
	assert.Equal(t, consultationID, resumed.Snapshot().SavedID)

	got, err := reopened.Engine.Consultations().GetConsultation(ctx, consultationID)
	require.NoError(t, err)
	assert.Equal(t, "시험에 붙을까요", got.Title)
}

func TestNewApp_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := offlineConfig(t)
	cfg.Sessions.Driver = "redis"
	cfg.Sessions.Lock = true
	cfg.Store.Driver = "redis"
	require.NoError(t, cfg.Validate())

	app := newTestApp(t, cfg, WithRedisClient(client))
	ctx := context.Background()

	conv, err := app.Sessions.Create(ctx, domain.Profile{})
	require.NoError(t, err)
	err = app.Sessions.Do(ctx, conv.ID(), func(ctx context.Context, c *talisman.Conversation) error {
		return c.Handle(ctx, talisman.StartEvent())
	})
	require.NoError(t, err)

	assert.True(t, mr.Exists("talisman:session:"+conv.ID()))
	ids, err := app.Sessions.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, ids, conv.ID())
}

func TestNewApp_SealedFileSessions(t *testing.T) {
	dir := t.TempDir()
	cfg := offlineConfig(t)
	cfg.Sessions.Driver = "file"
	cfg.Sessions.Path = dir
	cfg.Sessions.EncryptionKey = "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA="
	cfg.Sessions.MaskPII = []string{"^name$"}
	require.NoError(t, cfg.Validate())

	ctx := context.Background()
	app, err := NewApp(cfg, logging.NewNop())
	require.NoError(t, err)
	conv, err := app.Sessions.Create(ctx, domain.Profile{Name: "지수"})
	require.NoError(t, err)
	require.NoError(t, conv.Handle(ctx, talisman.StartEvent()))
	require.NoError(t, app.Close(ctx))

	raw, err := file.New(dir).Load(ctx, conv.ID())
	require.NoError(t, err)
	assert.NotEmpty(t, raw.Sealed)
	assert.Empty(t, raw.Profile.Name)

	reopened := newTestApp(t, cfg)
	snap, err := reopened.Sessions.Inspect(ctx, conv.ID())
	require.NoError(t, err)
	assert.Equal(t, "***", snap.Profile.Name)
	assert.Equal(t, domain.StepConcernSelect, snap.State.Step)
}

func TestNewApp_TaxonomyFile(t *testing.T) {
	cfg := offlineConfig(t)
	cfg.Taxonomy = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := NewApp(cfg, logging.NewNop())
	assert.ErrorContains(t, err, "error loading taxonomy")
}

func TestNewApp_OnlineWithoutImagesDisablesArtifacts(t *testing.T) {
	cfg := config.Default()
	cfg.Inference.URL = "http://127.0.0.1:1"
	cfg.Pacing.Instant = true

	var logs bytes.Buffer
	app, err := NewApp(&cfg, logging.NewWithFormat(&logs, 0, "text"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close(context.Background()) })

	assert.Contains(t, logs.String(), "artifact generation disabled")
}

func TestRunChat_TextMode(t *testing.T) {
	app := newTestApp(t, offlineConfig(t))

	var out bytes.Buffer
	err := RunChat(context.Background(), app, ChatOptions{
		SessionID: "cli-chat",
		In:        strings.NewReader("직접 입력하기\n요즘 잠이 안 와요\n:quit\n"),
		Out:       &out,
	})
	require.NoError(t, err)

	snap, err := app.Sessions.Inspect(context.Background(), "cli-chat")
	require.NoError(t, err)
	assert.Equal(t, domain.StepFortuneResult, snap.State.Step)
	assert.Equal(t, "요즘 잠이 안 와요", snap.State.FreeText)
	assert.NotContains(t, out.String(), ">>>", "non-interactive chats stay quiet")
}

func TestRunChat_ResumesNamedSession(t *testing.T) {
	cfg := offlineConfig(t)
	cfg.Sessions.Driver = "file"
	cfg.Sessions.Path = t.TempDir()
	ctx := context.Background()

	first, err := NewApp(cfg, logging.NewNop())
	require.NoError(t, err)
	require.NoError(t, RunChat(ctx, first, ChatOptions{
		SessionID: "resume-me",
		In:        strings.NewReader("1\n"),
		Out:       &bytes.Buffer{},
	}))
	require.NoError(t, first.Close(ctx))

	second := newTestApp(t, cfg)
	var out bytes.Buffer
	require.NoError(t, RunChat(ctx, second, ChatOptions{
		SessionID: "resume-me",
		JSON:      true,
		In:        strings.NewReader(""),
		Out:       &out,
	}))
	assert.Contains(t, out.String(), `"step":"detail_level_1"`)
}
