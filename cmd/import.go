package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/spf13/cobra"

	"github.com/wildrank/wrscout/internal/model"
)

var importSubmissions bool

// importCmd loads JSON blobs from a directory into the store.
var importCmd = &cobra.Command{
	Use:   "import <dir>",
	Short: "Store every JSON file in a directory",
	Long: `Store every *.json (or zstd-compressed *.json.zst) file in <dir> under its
base name, e.g. teams-2024mibkn.json is stored as teams-2024mibkn.

With --submissions every file is decoded as a scouting submission and saved
to the selected event under a fresh result key instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().BoolVar(&importSubmissions, "submissions", false, "treat files as scouting submissions for --event")
}

func runImport(cmd *cobra.Command, args []string) error {
	files, err := importFiles(args[0])
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintf(os.Stderr, "No .json files in %s\n", args[0])
		return nil
	}
	if importSubmissions {
		return importAsSubmissions(cmd, files)
	}

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	stored := 0
	for _, f := range files {
		b, err := readJSONFile(f)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  skip %s: %v\n", filepath.Base(f), err)
			continue
		}
		key := blobKey(f)
		if err := db.Set(ctx, key, b); err != nil {
			return fmt.Errorf("store %s: %w", key, err)
		}
		fmt.Fprintf(os.Stdout, "  %s\n", key)
		stored++
	}
	fmt.Fprintf(os.Stdout, "Stored %d of %d files.\n", stored, len(files))
	return nil
}

func importAsSubmissions(cmd *cobra.Command, files []string) error {
	ctx := cmd.Context()
	db, d, err := openEvent(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	saved := 0
	for _, f := range files {
		b, err := readJSONFile(f)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  skip %s: %v\n", filepath.Base(f), err)
			continue
		}
		raw, err := model.DecodeRawResult(b)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  skip %s: %v\n", filepath.Base(f), err)
			continue
		}
		key, err := d.SaveSubmission(ctx, raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  skip %s: %v\n", filepath.Base(f), err)
			continue
		}
		fmt.Fprintf(os.Stdout, "  %s -> %s\n", filepath.Base(f), key)
		saved++
	}
	fmt.Fprintf(os.Stdout, "Saved %d of %d submissions to %s.\n", saved, len(files), d.EventID)
	return nil
}

func importFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !(strings.HasSuffix(name, ".json") || strings.HasSuffix(name, ".json.zst")) {
			continue
		}
		out = append(out, filepath.Join(dir, name))
	}
	return out, nil
}

func blobKey(path string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, ".zst")
	return strings.TrimSuffix(name, ".json")
}

// readJSONFile reads path, decompressing .zst files, and checks that the
// content is valid JSON.
func readJSONFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".zst") {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		defer dec.Close()
		r = dec
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	if !json.Valid(b) {
		return nil, fmt.Errorf("not valid JSON")
	}
	return b, nil
}
