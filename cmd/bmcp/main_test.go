package main

import (
	"errors"
	"flag"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/bmcp/internal/config"
	bmcperrors "github.com/standardbeagle/bmcp/internal/errors"
)

func TestClassifyExit_ErrConfigSentinelWrapsToExitConf(t *testing.T) {
	wrapped := fmt.Errorf("resolve root: %w", errConfig)
	assert.Equal(t, exitConf, classifyExit(wrapped))
}

func TestClassifyExit_TypedConfigErrorIsExitConf(t *testing.T) {
	err := bmcperrors.NewConfigError("store.kind", "bogus", errors.New("unsupported"))
	assert.Equal(t, exitConf, classifyExit(err))
}

func TestClassifyExit_OtherErrorsAreExitErr(t *testing.T) {
	assert.Equal(t, exitErr, classifyExit(errors.New("boom")))
}

func TestBuildStore_MemoryIsDefault(t *testing.T) {
	cfg := config.Default()
	st, err := buildStore(cfg)
	require.NoError(t, err)
	require.NotNil(t, st)
}

func TestBuildStore_UnknownKindIsConfigError(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Kind = "postgres"
	_, err := buildStore(cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errConfig))
	assert.Equal(t, exitConf, classifyExit(err))
}

func TestLoadConfigWithOverrides_AppliesFlagsOntoDefaults(t *testing.T) {
	set := flag.NewFlagSet("test", 0)
	set.String("root", "", "")
	set.Int("workers", 0, "")
	set.String("store-kind", "", "")
	set.String("store-dsn", "", "")
	require.NoError(t, set.Set("root", t.TempDir()))
	require.NoError(t, set.Set("workers", "7"))
	require.NoError(t, set.Set("store-kind", "memory"))

	ctx := cli.NewContext(cli.NewApp(), set, nil)
	cfg, err := loadConfigWithOverrides(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Dispatcher.WorkerCount)
	assert.Equal(t, "memory", cfg.Store.Kind)
}

func TestIsFatalBatchError(t *testing.T) {
	assert.True(t, isFatalBatchError(bmcperrors.NewStoreError("upsert", "a.go", errors.New("boom"))))
	assert.True(t, isFatalBatchError(bmcperrors.NewInvariantError("gid collision", "a", "b")))
	assert.False(t, isFatalBatchError(bmcperrors.NewParseFailureError("a.go", errors.New("syntax"))))
}
