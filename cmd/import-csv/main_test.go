package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"resenas/internal/reviews"
	"resenas/internal/storage"
	"resenas/pkg/utils"
)

func writeCSV(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "in.csv")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func testConfig(t *testing.T) utils.Config {
	cfg := utils.DefaultConfig()
	cfg.StoragePath = filepath.Join(t.TempDir(), "resenas.json")
	return cfg
}

func TestImportAppends(t *testing.T) {
	cfg := testConfig(t)
	in := writeCSV(t, "id,autores,titulo,valoracion\n7,A;B,Uno,5\n9,C,Dos,\n")

	n, err := importFile(context.Background(), cfg, zap.NewNop(), in, false)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = importFile(context.Background(), cfg, zap.NewNop(), in, false)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	all, err := reviews.NewStore(storage.NewFile(cfg.StoragePath), zap.NewNop()).List(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 4)
	for i, r := range all {
		assert.EqualValues(t, i+1, r.ID, "appended rows get fresh ids")
	}
	assert.Equal(t, []string{"A", "B"}, all[0].Authors)
}

func TestImportReplaceKeepsIDs(t *testing.T) {
	cfg := testConfig(t)
	in := writeCSV(t, "id,autores,titulo\n7,A,Uno\n9,C,Dos\n")

	n, err := importFile(context.Background(), cfg, zap.NewNop(), in, true)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	all, err := reviews.NewStore(storage.NewFile(cfg.StoragePath), zap.NewNop()).List(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.EqualValues(t, 7, all[0].ID)
	assert.EqualValues(t, 9, all[1].ID)
}

func TestImportStopsAtInvalidRow(t *testing.T) {
	cfg := testConfig(t)
	in := writeCSV(t, "autores,titulo,valoracion\nA,Uno,3\nB,Dos,8\n")

	n, err := importFile(context.Background(), cfg, zap.NewNop(), in, false)
	require.Error(t, err)
	assert.Equal(t, 1, n)
	assert.Contains(t, err.Error(), "row 2")
}

func TestImportMainExitCodes(t *testing.T) {
	t.Setenv("RESENAS_CONFIG", "")
	t.Setenv("RESENAS_STORAGE_DRIVER", "")
	data := filepath.Join(t.TempDir(), "resenas.json")

	assert.Equal(t, 2, importMain([]string{"-nope"}))
	assert.Equal(t, 1, importMain([]string{"-data", data, "-in", filepath.Join(t.TempDir(), "missing.csv")}))

	in := writeCSV(t, "autores,titulo\nA,Uno\n")
	assert.Equal(t, 0, importMain([]string{"-data", data, "-in", in}))
	_, err := os.Stat(data)
	assert.NoError(t, err)
}
