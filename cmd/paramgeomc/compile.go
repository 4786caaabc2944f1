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

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/blightmarch/ppatch"
	"github.com/blightmarch/ppatch/georepo"
	"github.com/blightmarch/ppatch/schema"
)

func runCompile(logger *zap.Logger, flags compileFlags, game string) error {
	cfg := schema.FetchConfig{
		GitURL:      flags.gitURL,
		BranchOrTag: flags.branch,
		Subpath:     flags.subpath,
		Game:        game,
	}

	gameDir, err := schema.FetchCached(logger, cfg, flags.cacheDir)
	if err != nil {
		return fmt.Errorf("paramgeomc: fetching schema: %w", err)
	}

	defsDir := filepath.Join(gameDir, "Defs")
	entries, err := os.ReadDir(defsDir)
	if err != nil {
		return fmt.Errorf("paramgeomc: listing %s: %w", defsDir, err)
	}

	repo := make(map[string][]ppatch.FieldBlock[uint32])
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".xml") {
			continue
		}

		path := filepath.Join(defsDir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("paramgeomc: reading %s: %w", path, err)
		}

		def, err := schema.ParseParamdef(data)
		if err != nil {
			return fmt.Errorf("paramgeomc: %s: %w", path, err)
		}

		schema.ComputeFieldOffsets(def, flags.version)
		repo[def.ParamType] = schema.Compile(def)

		logger.Debug("compiled paramdef",
			zap.String("param_type", def.ParamType), zap.Int("blocks", len(repo[def.ParamType])))
	}

	blob := georepo.Build(repo)
	if err := os.WriteFile(flags.out, blob, 0o644); err != nil {
		return fmt.Errorf("paramgeomc: writing %s: %w", flags.out, err)
	}

	logger.Info("wrote geometry blob",
		zap.String("game", game), zap.Int("row_types", len(repo)), zap.String("out", flags.out))
	return nil
}
