package store

import (
	"io"
	"os"
	"path/filepath"

	"cvxlab/internal/cverrors"
)

// Backup copies the current store file to name (a file name relative to
// the adapter's base directory), leaving the open connection untouched.
func (s *SQLiteStore) Backup(name string) error {
	return copyFile(filepath.Join(s.dir, s.fileName), filepath.Join(s.dir, name))
}

// Restore closes the open connection, overwrites the canonical store
// file with name's contents, and reopens it. Callers must not use the
// Store concurrently while Restore is in flight.
func (s *SQLiteStore) Restore(name string) error {
	if err := s.db.Close(); err != nil {
		return cverrors.Wrap(cverrors.KindOperational, err, "restore %s: closing current handle", name)
	}
	if err := copyFile(filepath.Join(s.dir, name), filepath.Join(s.dir, s.fileName)); err != nil {
		return err
	}
	reopened, err := Open(s.dir, s.fileName, s.batchSize, s.timeout)
	if err != nil {
		return cverrors.Wrap(cverrors.KindOperational, err, "restore %s: reopening store", name)
	}
	reopened.tables = s.tables
	*s = *reopened
	return nil
}

// Delete removes a snapshot file. Deleting a file that does not exist is
// not an error, matching the coupling loop's "previous is always deleted
// on every iteration exit" discipline even when nothing was written.
func (s *SQLiteStore) Delete(name string) error {
	path := filepath.Join(s.dir, name)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return cverrors.Wrap(cverrors.KindOperational, err, "delete %s", name)
	}
	return nil
}

// Rename renames a snapshot file in place.
func (s *SQLiteStore) Rename(oldName, newName string) error {
	oldPath := filepath.Join(s.dir, oldName)
	newPath := filepath.Join(s.dir, newName)
	if err := os.Rename(oldPath, newPath); err != nil {
		return cverrors.Wrap(cverrors.KindOperational, err, "rename %s -> %s", oldName, newName)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return cverrors.Wrap(cverrors.KindOperational, err, "copying %s", src)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return cverrors.Wrap(cverrors.KindOperational, err, "copying to %s", dst)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return cverrors.Wrap(cverrors.KindOperational, err, "copying %s to %s", src, dst)
	}
	return out.Sync()
}
