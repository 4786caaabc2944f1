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

// Command paramgeomc compiles a paramdex-shaped schema directory into a
// geometry blob loadable by package georepo (spec §6 "Build-time
// configuration").
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "paramgeomc",
		Short:         "Compile a paramdex schema into a field-geometry blob",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newCompileCmd())
	return root
}

type compileFlags struct {
	gitURL       string
	branch       string
	subpath      string
	cacheDir     string
	out          string
	version      uint64
	ds3, er, ac6 bool
	production   bool
}

func newCompileCmd() *cobra.Command {
	var flags compileFlags

	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Fetch a game's schema and compile it into a geometry blob",
		RunE: func(cmd *cobra.Command, args []string) error {
			game, err := flags.selectedGame()
			if err != nil {
				return err
			}

			logger, err := newLogger(flags.production)
			if err != nil {
				return fmt.Errorf("paramgeomc: building logger: %w", err)
			}
			defer logger.Sync()

			return runCompile(logger, flags, game)
		},
	}

	cmd.Flags().StringVar(&flags.gitURL, "paramdex-url", "https://github.com/soulsmods/Paramdex", "paramdex git remote")
	cmd.Flags().StringVar(&flags.branch, "branch", "main", "branch or tag to fetch")
	cmd.Flags().StringVar(&flags.subpath, "subpath", "", "subpath within the repository holding game directories")
	cmd.Flags().StringVar(&flags.cacheDir, "cache-dir", ".paramdex-cache", "local schema cache directory")
	cmd.Flags().StringVar(&flags.out, "out", "regulation.geom", "output blob path")
	cmd.Flags().Uint64Var(&flags.version, "version", ^uint64(0), "schema version to compile for (default: latest)")
	cmd.Flags().BoolVar(&flags.ds3, "game=ds3", false, "compile Dark Souls III schema")
	cmd.Flags().BoolVar(&flags.er, "game=er", false, "compile Elden Ring schema")
	cmd.Flags().BoolVar(&flags.ac6, "game=ac6", false, "compile Armored Core VI schema")
	cmd.Flags().BoolVar(&flags.production, "production-logging", false, "use zap's production encoder instead of development")
	cmd.MarkFlagsMutuallyExclusive("game=ds3", "game=er", "game=ac6")

	return cmd
}

// selectedGame enforces spec §6's "exactly one game tag" rule: cobra's
// MutuallyExclusive group only rejects setting more than one, not setting
// none.
func (f compileFlags) selectedGame() (string, error) {
	set := map[string]bool{"ds3": f.ds3, "er": f.er, "ac6": f.ac6}
	var chosen string
	for game, isSet := range set {
		if isSet {
			chosen = game
		}
	}
	if chosen == "" {
		return "", fmt.Errorf("paramgeomc: exactly one of --game=ds3, --game=er, --game=ac6 must be set")
	}
	return chosen, nil
}

func newLogger(production bool) (*zap.Logger, error) {
	if production {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
