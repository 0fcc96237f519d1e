package speech

import (
	"io"
	"os"
	"path/filepath"
)

// writeAudio creates outPath and fills it with write. A failed close is
// reported like a failed write.
func writeAudio(outPath string, write func(w io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return err
	}

	out, err := os.Create(outPath)
	if err != nil {
		return err
	}

	if err := write(out); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
