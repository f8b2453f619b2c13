package vectorstore

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Snapshot layout per tenant directory:
//
//	index.bin      magic, version, dim, count, then count*dim float32 LE
//	payloads.jsonl one JSON payload per line, insertion order
//
// Both files are written on every mutation; a tenant has a store only
// when both are present. Single-file presence is corruption.
const (
	indexFileName   = "index.bin"
	payloadFileName = "payloads.jsonl"

	snapshotMagic   uint32 = 0x54494458 // "TIDX"
	snapshotVersion uint32 = 1
)

// saveSnapshot writes both snapshot files atomically (temp file +
// rename). Any failure is reported as ErrPersistFailed; the in-memory
// index is then ahead of disk.
func saveSnapshot(dir string, ix *TenantIndex) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: creating %s: %v", ErrPersistFailed, dir, err)
	}
	if err := writeAtomic(filepath.Join(dir, indexFileName), func(w io.Writer) error {
		return writeIndex(w, ix)
	}); err != nil {
		return fmt.Errorf("%w: writing index: %v", ErrPersistFailed, err)
	}
	if err := writeAtomic(filepath.Join(dir, payloadFileName), func(w io.Writer) error {
		return writePayloads(w, ix.payloads)
	}); err != nil {
		return fmt.Errorf("%w: writing payloads: %v", ErrPersistFailed, err)
	}
	return nil
}

// loadSnapshot loads a tenant index from dir. Returns (nil, nil) when
// no snapshot exists. Partial presence or a count mismatch between the
// two files returns ErrStoreCorrupted.
func loadSnapshot(dir string, dim int) (*TenantIndex, error) {
	indexPath := filepath.Join(dir, indexFileName)
	payloadPath := filepath.Join(dir, payloadFileName)

	indexExists := fileExists(indexPath)
	payloadExists := fileExists(payloadPath)

	switch {
	case !indexExists && !payloadExists:
		return nil, nil
	case indexExists != payloadExists:
		return nil, fmt.Errorf("%w: partial snapshot in %s (index=%t, payloads=%t)",
			ErrStoreCorrupted, dir, indexExists, payloadExists)
	}

	ix, err := readIndex(indexPath, dim)
	if err != nil {
		return nil, err
	}
	payloads, err := readPayloads(payloadPath)
	if err != nil {
		return nil, err
	}
	if vectorRows(ix) != len(payloads) {
		return nil, fmt.Errorf("%w: %s has %d vectors but %d payload records",
			ErrStoreCorrupted, dir, vectorRows(ix), len(payloads))
	}
	ix.payloads = payloads
	return ix, nil
}

// deleteSnapshot removes the tenant's snapshot directory. Missing
// directories are a no-op.
func deleteSnapshot(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("%w: removing %s: %v", ErrPersistFailed, dir, err)
	}
	return nil
}

// snapshotExists reports whether dir holds any snapshot file at all.
func snapshotExists(dir string) bool {
	return fileExists(filepath.Join(dir, indexFileName)) ||
		fileExists(filepath.Join(dir, payloadFileName))
}

func vectorRows(ix *TenantIndex) int {
	return len(ix.vectors) / ix.dim
}

func writeIndex(w io.Writer, ix *TenantIndex) error {
	header := []uint32{snapshotMagic, snapshotVersion, uint32(ix.dim), uint32(vectorRows(ix))}
	for _, h := range header {
		if err := binary.Write(w, binary.LittleEndian, h); err != nil {
			return err
		}
	}
	return binary.Write(w, binary.LittleEndian, ix.vectors)
}

func readIndex(path string, dim int) (*TenantIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening index: %v", ErrStoreCorrupted, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var magic, version, fileDim, count uint32
	for _, p := range []*uint32{&magic, &version, &fileDim, &count} {
		if err := binary.Read(r, binary.LittleEndian, p); err != nil {
			return nil, fmt.Errorf("%w: truncated index header: %v", ErrStoreCorrupted, err)
		}
	}
	if magic != snapshotMagic {
		return nil, fmt.Errorf("%w: bad index magic %#x", ErrStoreCorrupted, magic)
	}
	if version != snapshotVersion {
		return nil, fmt.Errorf("%w: unsupported index version %d", ErrStoreCorrupted, version)
	}
	if int(fileDim) != dim {
		return nil, fmt.Errorf("%w: index dimension %d, expected %d", ErrStoreCorrupted, fileDim, dim)
	}

	ix, err := NewTenantIndex(dim)
	if err != nil {
		return nil, err
	}
	ix.vectors = make([]float32, int(count)*dim)
	if err := binary.Read(r, binary.LittleEndian, ix.vectors); err != nil {
		return nil, fmt.Errorf("%w: truncated vector data: %v", ErrStoreCorrupted, err)
	}
	return ix, nil
}

func writePayloads(w io.Writer, payloads []Payload) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for _, p := range payloads {
		if err := enc.Encode(p); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func readPayloads(path string) ([]Payload, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening payloads: %v", ErrStoreCorrupted, err)
	}
	defer f.Close()

	payloads := []Payload{}
	dec := json.NewDecoder(bufio.NewReader(f))
	for {
		var p Payload
		if err := dec.Decode(&p); err != nil {
			if errors.Is(err, io.EOF) {
				return payloads, nil
			}
			return nil, fmt.Errorf("%w: decoding payload record %d: %v", ErrStoreCorrupted, len(payloads), err)
		}
		payloads = append(payloads, p)
	}
}

// writeAtomic writes via a temp file in the same directory and renames
// into place so a crash mid-write never leaves a half-written file
// under the final name.
func writeAtomic(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
