package sdkprep

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"lukechampine.com/blake3"
)

// checksumSuffix is appended to an archive path to name its sidecar.
const checksumSuffix = ".b3"

// ComputeChecksum returns the hex BLAKE3-256 digest of a file.
func ComputeChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := blake3.New(32, nil)
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// writeChecksumFile writes "<digest>  <name>" next to path, b3sum style.
func writeChecksumFile(path string) (string, error) {
	sum, err := ComputeChecksum(path)
	if err != nil {
		return "", err
	}
	line := fmt.Sprintf("%s  %s\n", sum, filepath.Base(path))
	if err := writeFileAtomic(path+checksumSuffix, []byte(line), 0o644); err != nil {
		return "", err
	}
	return sum, nil
}

// readChecksumFile returns the digest recorded for path.
func readChecksumFile(path string) (string, error) {
	f, err := os.Open(path + checksumSuffix)
	if err != nil {
		return "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) >= 2 && fields[len(fields)-1] == filepath.Base(path) {
			return fields[0], nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("no checksum for %s in %s", filepath.Base(path), path+checksumSuffix)
}
