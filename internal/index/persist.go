package index

import (
	"bufio"
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/lumora-labs/paperask/internal/domain"
)

// File format: an 8-byte magic marker followed by a gob-encoded snapshot.
// The magic lets Load distinguish "wrong file" from "gob drifted" cheaply.
var fileMagic = []byte("PPRASKIX")

const formatVersion = 1

// snapshot is the on-disk representation of an Index.
type snapshot struct {
	FormatVersion int
	Identity      domain.Identity
	Dims          int
	Entries       []entry
}

// Save persists the index to path. The write goes through a temporary file
// in the same directory and a rename, so a crashed save never leaves a
// half-written index behind.
func (ix *Index) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".paperask-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp index file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	if _, err := w.Write(fileMagic); err != nil {
		tmp.Close()
		return fmt.Errorf("write index header: %w", err)
	}

	snap := snapshot{
		FormatVersion: formatVersion,
		Identity:      ix.identity,
		Dims:          ix.dims,
		Entries:       ix.entries,
	}
	if err := gob.NewEncoder(w).Encode(snap); err != nil {
		tmp.Close()
		return fmt.Errorf("encode index: %w", err)
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp index file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace index file: %w", err)
	}
	return nil
}

// Load reads a persisted index from path. A missing file maps to
// domain.ErrIndexNotFound, anything unreadable to domain.ErrIndexCorrupt, so
// callers can tell "run ingestion first" apart from "re-run ingestion".
func Load(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, domain.ErrIndexNotFound)
		}
		return nil, fmt.Errorf("open index %s: %w", path, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	magic := make([]byte, len(fileMagic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return nil, fmt.Errorf("read index header %s: %w", path, domain.ErrIndexCorrupt)
	}
	if !bytes.Equal(magic, fileMagic) {
		return nil, fmt.Errorf("%s is not a paperask index: %w", path, domain.ErrIndexCorrupt)
	}

	var snap snapshot
	if err := gob.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode index %s: %v: %w", path, err, domain.ErrIndexCorrupt)
	}
	if snap.FormatVersion != formatVersion {
		return nil, fmt.Errorf("index format version %d, want %d: %w",
			snap.FormatVersion, formatVersion, domain.ErrIndexCorrupt)
	}

	return &Index{
		identity: snap.Identity,
		dims:     snap.Dims,
		entries:  snap.Entries,
	}, nil
}
