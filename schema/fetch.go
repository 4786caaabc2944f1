// Copyright 2020-2025 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FetchConfig names a sparse, game-scoped slice of a paramdex-shaped git
// repository: <subpath>/<game>/{Defs,Meta,Enums.json}.
type FetchConfig struct {
	GitURL      string
	BranchOrTag string
	Subpath     string
	Game        string
}

// fetchMeta is the sidecar manifest written alongside a completed fetch,
// used to decide whether a cached checkout already satisfies a request.
type fetchMeta struct {
	GitURL      string `json:"git_url"`
	BranchOrTag string `json:"branch_or_tag"`
	Subpath     string `json:"subpath"`
	Game        string `json:"game"`
}

func (c FetchConfig) toMeta() fetchMeta {
	return fetchMeta{GitURL: c.GitURL, BranchOrTag: c.BranchOrTag, Subpath: c.Subpath, Game: c.Game}
}

const metaFileName = ".paramdex_fetch_meta.json"

// CommandError wraps a failed subprocess invocation, carrying its combined
// stdout and stderr output (in Stderr) for diagnosis, per spec §7 family 3
// (schema ingestion errors carry subprocess stderr).
type CommandError struct {
	Cmd    string
	Err    error
	Stderr string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("schema: %s failed: %v\n%s", e.Cmd, e.Err, e.Stderr)
}

func (e *CommandError) Unwrap() error { return e.Err }

// FetchCached materializes cfg's schema slice under cacheDir, skipping the
// network round-trip entirely when a manifest matching cfg already exists
// there. Returns the canonicalized directory holding Defs/Meta/Enums.json
// for cfg.Game.
//
// Ported from original_source/codegen/src/paramdex_fetch.rs's
// fetch/fetch_cached, with a uuid-named scratch clone directory added so
// concurrent builds for different games never race on a half-populated
// cache directory (see SPEC_FULL.md §4.7).
func FetchCached(log *zap.Logger, cfg FetchConfig, cacheDir string) (string, error) {
	gameDir := filepath.Join(cacheDir, cfg.Game)
	metaPath := filepath.Join(gameDir, metaFileName)

	if existing, err := readFetchMeta(metaPath); err == nil && existing == cfg.toMeta() {
		log.Debug("schema cache hit", zap.String("game", cfg.Game), zap.String("dir", gameDir))
		return filepath.Abs(gameDir)
	}

	absCache, err := filepath.Abs(cacheDir)
	if err != nil {
		return "", fmt.Errorf("schema: resolving cache directory: %w", err)
	}
	scratch := filepath.Join(absCache, ".fetch-"+uuid.NewString())
	if err := os.MkdirAll(filepath.Dir(scratch), 0o755); err != nil {
		return "", fmt.Errorf("schema: creating cache directory: %w", err)
	}
	defer os.RemoveAll(scratch)

	log.Info("fetching schema",
		zap.String("git_url", cfg.GitURL), zap.String("ref", cfg.BranchOrTag), zap.String("game", cfg.Game))

	if err := run(cacheDir, "git", "clone", "-n", "--depth=1",
		"--filter=tree:0", "--sparse", "-b", cfg.BranchOrTag, cfg.GitURL, scratch); err != nil {
		return "", err
	}

	subGame := filepath.ToSlash(filepath.Join(cfg.Subpath, cfg.Game))
	if err := run(scratch, "git", "-C", scratch, "sparse-checkout", "set", "--no-cone",
		subGame+"/Defs", subGame+"/Meta", subGame+"/Enums.json"); err != nil {
		return "", err
	}
	if err := run(scratch, "git", "-C", scratch, "checkout"); err != nil {
		return "", err
	}

	fetchedGameDir := filepath.Join(scratch, filepath.FromSlash(subGame))
	if err := os.RemoveAll(gameDir); err != nil {
		return "", fmt.Errorf("schema: clearing stale cache entry: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(gameDir), 0o755); err != nil {
		return "", fmt.Errorf("schema: creating cache directory: %w", err)
	}
	if err := os.Rename(fetchedGameDir, gameDir); err != nil {
		return "", fmt.Errorf("schema: finalizing cache entry: %w", err)
	}

	if err := writeFetchMeta(metaPath, cfg.toMeta()); err != nil {
		return "", fmt.Errorf("schema: writing fetch manifest: %w", err)
	}

	return filepath.Abs(gameDir)
}

func run(dir, name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return &CommandError{Cmd: fmt.Sprintf("%s %v", name, args), Err: err, Stderr: string(out)}
	}
	return nil
}

func readFetchMeta(path string) (fetchMeta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return fetchMeta{}, err
	}
	var m fetchMeta
	if err := json.Unmarshal(data, &m); err != nil {
		return fetchMeta{}, fmt.Errorf("schema: parsing fetch manifest: %w", err)
	}
	return m, nil
}

func writeFetchMeta(path string, m fetchMeta) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
