package hardhat

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/btube/btube-deploy/internal/chains"
)

const contract = "DecentralizedVideoPlatform"

// writeProject lays out a compiled hardhat project in a temp dir
func writeProject(t *testing.T, bytecode string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hardhat.config.js"), []byte("module.exports = {}"), 0644))

	artifactDir := filepath.Join(dir, "artifacts", "contracts", contract+".sol")
	buildInfoDir := filepath.Join(dir, "artifacts", "build-info")
	require.NoError(t, os.MkdirAll(artifactDir, 0755))
	require.NoError(t, os.MkdirAll(buildInfoDir, 0755))

	writeJSON(t, filepath.Join(artifactDir, contract+".json"), map[string]any{
		"_format":          "hh-sol-artifact-1",
		"contractName":     contract,
		"sourceName":       "contracts/" + contract + ".sol",
		"abi":              []map[string]any{{"type": "function", "name": "uploadVideo"}},
		"bytecode":         bytecode,
		"deployedBytecode": "0x6080",
		"linkReferences":   map[string]any{},
	})
	writeJSON(t, filepath.Join(artifactDir, contract+".dbg.json"), map[string]any{
		"_format":   "hh-sol-dbg-1",
		"buildInfo": "../../build-info/a1b2c3.json",
	})
	writeJSON(t, filepath.Join(buildInfoDir, "a1b2c3.json"), map[string]any{
		"id":              "a1b2c3",
		"_format":         "hh-sol-build-info-1",
		"solcVersion":     "0.8.0",
		"solcLongVersion": "0.8.0+commit.c7dfd78e",
		"input": map[string]any{
			"language": "Solidity",
			"sources": map[string]any{
				"contracts/" + contract + ".sol": map[string]any{"content": "pragma solidity ^0.8.0;"},
			},
			"settings": map[string]any{
				"optimizer": map[string]any{"enabled": true, "runs": 200},
			},
		},
		"output": map[string]any{
			"contracts": map[string]any{
				"contracts/" + contract + ".sol": map[string]any{contract: map[string]any{}},
			},
		},
	})
	return dir
}

func writeJSON(t *testing.T, path string, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0644))
}

func TestBuilder_Metadata(t *testing.T) {
	b := New("")

	assert.Equal(t, "hardhat", b.Name())
	assert.Equal(t, "Hardhat", b.DisplayName())
	assert.Equal(t, "evm", b.Chain())
	assert.Equal(t, "hardhat.config.js", b.ConfigFile())
}

func TestBuilder_Detect(t *testing.T) {
	b := New("")

	t.Run("typescript config", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "hardhat.config.ts"), []byte("export default {}"), 0644))

		detected, err := b.Detect(dir)
		require.NoError(t, err)
		assert.True(t, detected)
	})

	t.Run("no config", func(t *testing.T) {
		detected, err := b.Detect(t.TempDir())
		require.NoError(t, err)
		assert.False(t, detected)
	})
}

func TestBuilder_FindArtifact(t *testing.T) {
	b := New("")

	t.Run("found", func(t *testing.T) {
		dir := writeProject(t, "0x6001600c60003960016000f300")

		a, err := b.FindArtifact(dir, contract)
		require.NoError(t, err)
		assert.Equal(t, contract, a.Name)
		assert.Equal(t, "contracts/DecentralizedVideoPlatform.sol:DecentralizedVideoPlatform", a.QualifiedName())
		require.NotNil(t, a.EVM)
		assert.Equal(t, "0x6001600c60003960016000f300", a.EVM.Bytecode)
		assert.Equal(t, "0.8.0+commit.c7dfd78e", a.EVM.Compiler.Version)
		assert.True(t, a.EVM.Compiler.Optimizer.Enabled)
		assert.Equal(t, 200, a.EVM.Compiler.Optimizer.Runs)
	})

	t.Run("unknown contract", func(t *testing.T) {
		dir := writeProject(t, "0x6001")

		_, err := b.FindArtifact(dir, "Missing")
		assert.ErrorIs(t, err, chains.ErrArtifactNotFound)
	})

	t.Run("not compiled", func(t *testing.T) {
		_, err := b.FindArtifact(t.TempDir(), contract)
		assert.ErrorIs(t, err, chains.ErrArtifactNotFound)
	})

	t.Run("interface", func(t *testing.T) {
		dir := writeProject(t, "0x")

		_, err := b.FindArtifact(dir, contract)
		assert.ErrorIs(t, err, chains.ErrNoBytecode)
	})

	t.Run("custom artifacts dir", func(t *testing.T) {
		dir := writeProject(t, "0x6001")
		require.NoError(t, os.Rename(filepath.Join(dir, "artifacts"), filepath.Join(dir, "build")))

		a, err := New("build").FindArtifact(dir, contract)
		require.NoError(t, err)
		assert.Equal(t, contract, a.Name)
	})
}

func TestBuilder_VerificationInput(t *testing.T) {
	b := New("")
	dir := writeProject(t, "0x6001")

	t.Run("via debug file", func(t *testing.T) {
		vi, err := b.VerificationInput(dir, contract, "")
		require.NoError(t, err)
		assert.Equal(t, "0.8.0+commit.c7dfd78e", vi.SolcLongVersion)

		var input map[string]any
		require.NoError(t, json.Unmarshal(vi.StandardJSON, &input))
		assert.Equal(t, "Solidity", input["language"])
		assert.Contains(t, input, "sources")
	})

	t.Run("scan when debug file is missing", func(t *testing.T) {
		require.NoError(t, os.Remove(filepath.Join(dir, "artifacts", "contracts", contract+".sol", contract+".dbg.json")))

		vi, err := b.VerificationInput(dir, contract, "")
		require.NoError(t, err)
		assert.Equal(t, "0.8.0+commit.c7dfd78e", vi.SolcLongVersion)
	})
}
