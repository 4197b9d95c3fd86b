package fsmanager

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

const (
	dirPerm  = 0o750
	filePerm = 0o640

	copyBufSize = 32 * 1024
)

// tempSuffix returns a short random hex string used to make temp file names
// collision-free across concurrent writers of the same object, so a temp
// file left behind by a crashed writer can never block a later insert of
// the same id.
func tempSuffix() (string, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}

// writeAtomic writes the bytes read from src to finalPath without ever
// exposing a partial file at that path.
//
// The write goes through four states: a temp file is opened for exclusive
// creation (Opening), the source is copied into it (Writing), the temp file
// is closed so all writes reach the OS (Flushed), and finally the temp file
// is linked onto finalPath (Renamed) so a concurrent writer of the same
// object loses the race with ErrAlreadyExists rather than silently
// clobbering completed data. Any failure before the link step discards the
// temp file (Aborted); os.Rename is deliberately avoided for the last step
// because, unlike link, it would overwrite an existing finalPath instead of
// failing. Once the link lands, the temp sibling is unlinked immediately
// (the classic link-then-unlink atomic-publish idiom) so it never lingers
// as a permanent extra directory entry alongside finalPath.
func writeAtomic(dir, finalPath string, src io.Reader) (err error) {
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("%w: mkdir %s: %v", ErrIoFailure, dir, err)
	}

	suffix, err := tempSuffix()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIoFailure, err)
	}
	tempPath := finalPath + "." + suffix + ".temp"

	f, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, filePerm)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIoFailure, err)
	}

	finalized := false
	defer func() {
		if !finalized {
			os.Remove(tempPath)
		}
	}()

	buf := make([]byte, copyBufSize)
	if _, copyErr := io.CopyBuffer(f, src, buf); copyErr != nil {
		f.Close()
		return fmt.Errorf("%w: %v", ErrStreamAborted, copyErr)
	}
	if closeErr := f.Close(); closeErr != nil {
		return fmt.Errorf("%w: %v", ErrIoFailure, closeErr)
	}

	if linkErr := os.Link(tempPath, finalPath); linkErr != nil {
		if os.IsExist(linkErr) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("%w: %v", ErrIoFailure, linkErr)
	}
	os.Remove(tempPath)

	finalized = true
	return nil
}
