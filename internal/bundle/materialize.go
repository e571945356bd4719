package bundle

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
)

// Materialize copies every entry into outputRoot, creating parent
// directories as needed. Progress goes to out, one line per entry. Copy
// failures abort immediately: a partially materialized bundle is unsafe to
// deploy, so there is no continue-on-error mode.
func Materialize(list *List, outputRoot string, out io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	root, err := filepath.Abs(outputRoot)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("create output root: %w", err)
	}

	fmt.Fprintf(out, "total package looks like: %s\n", humanize.Bytes(uint64(list.TotalSize)))
	for i, entry := range list.Entries {
		fmt.Fprintf(out, "copying %d/%d: %s\n", i+1, len(list.Entries), entry.Dest)

		dest := filepath.Join(root, entry.Dest)
		if _, err := os.Lstat(dest); err == nil {
			return fmt.Errorf("destination %s already exists, refusing to overwrite", entry.Dest)
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return fmt.Errorf("create parent for %s: %w", entry.Dest, err)
		}

		info, err := os.Stat(entry.Source)
		if err != nil {
			return fmt.Errorf("source %s vanished: %w", entry.Source, err)
		}
		if info.IsDir() {
			err = os.CopyFS(dest, os.DirFS(entry.Source))
		} else {
			err = copyFile(entry.Source, dest)
		}
		if err != nil {
			return fmt.Errorf("copy %s -> %s: %w", entry.Source, entry.Dest, err)
		}
	}
	return nil
}

// copyFile copies contents byte for byte. Permissions and mtimes are not
// preserved; deployment targets re-own the tree anyway.
func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
