package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/apperror"
	"stockledger/pkg/config"
)

func TestParseArgs(t *testing.T) {
	a := parseArgs([]string{
		"--business", "b1",
		"--qty", "-3",
		"--draft",
		"--reason=damaged in transit",
		"stray",
		"--all",
	})

	assert.Equal(t, "b1", a["business"])
	assert.Equal(t, "-3", a["qty"])
	assert.True(t, a.flag("draft"))
	assert.True(t, a.flag("all"))
	assert.Equal(t, "damaged in transit", a["reason"])
	assert.NotContains(t, a, "stray")
}

func TestArgs_Require(t *testing.T) {
	a := parseArgs([]string{"--variant", "v"})

	err := a.require("variant", "from", "to")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--from, --to")
	assert.NoError(t, a.require("variant"))
}

func TestArgs_Parsers(t *testing.T) {
	a := parseArgs([]string{"--id", "nope", "--qty", "1.5", "--limit", "x", "--from", "2024-03-01"})

	_, err := a.id("id")
	assert.Error(t, err)

	q, err := a.quantity("qty")
	require.NoError(t, err)
	assert.Equal(t, "1.5", q.String())

	_, err = a.int("limit", 10)
	assert.Error(t, err)
	n, err := a.int("offset", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	d, err := a.date("from")
	require.NoError(t, err)
	assert.Equal(t, 2024, d.Year())

	missing, err := a.optionalID("location")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDemo_MemoryStorage(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{
		App:       config.AppConfig{Env: "test", Storage: config.StorageMemory},
		Numbering: config.NumberingConfig{Strategy: "strict", RangeSize: 50},
	}

	a, err := newApp(ctx, cfg)
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, runDemo(ctx, a, args{}))

	err = runMigrate(ctx, a, args{})
	assert.Error(t, err)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 2, exitCode(apperror.NewAlreadyFinalized("t1")))
	assert.Equal(t, 2, exitCode(apperror.NewValidation("bad")))
	assert.Equal(t, 1, exitCode(apperror.NewTransferIncomplete(errors.New("credit failed"))))
	assert.Equal(t, 1, exitCode(errors.New("boom")))
}
