package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/eringen/folio/content/sqlstore"
)

var importCmd = &cobra.Command{
	Use:   "import <site-dir>",
	Short: "Commit a checked-out site into the local content store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath, _ := cmd.Flags().GetString("db")
		branch, _ := cmd.Flags().GetString("branch")
		message, _ := cmd.Flags().GetString("message")

		files, err := readSite(args[0])
		if err != nil {
			return err
		}
		if len(files) == 0 {
			return fmt.Errorf("no files found in %s", args[0])
		}

		store, err := sqlstore.NewStore(dbPath, branch)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer store.Close()

		commit, err := store.ImportFiles(cmd.Context(), files, message)
		if err != nil {
			return fmt.Errorf("import: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d files into %s@%s (%s)\n", len(files), dbPath, branch, commit)
		return nil
	},
}

func init() {
	importCmd.Flags().String("db", "data/site.db", "local content store path")
	importCmd.Flags().String("branch", "main", "branch to commit to")
	importCmd.Flags().StringP("message", "m", "Import site", "commit message")
}

// readSite loads every regular file under dir keyed by its slash-separated
// relative path, skipping dot directories such as .git.
func readSite(dir string) (map[string][]byte, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, errors.New(dir + " is not a directory")
	}
	files := map[string][]byte{}
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(rel)] = data
		return nil
	})
	return files, err
}
