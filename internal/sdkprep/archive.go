package sdkprep

import (
	"archive/tar"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
	"github.com/schollz/progressbar/v3"
	"github.com/ulikunitz/xz"
	"golang.org/x/term"
)

// archiveExt maps an archive format to its file extension.
var archiveExt = map[string]string{
	"gz":  ".tar.gz",
	"xz":  ".tar.xz",
	"zst": ".tar.zst",
}

// PackOptions controls 'sdkprep pack'.
type PackOptions struct {
	Format  string // gz, xz or zst
	Version string
	Output  string // directory receiving the archive, the layout root when empty
	Extra   []string
}

// SDKArchiveName returns the archive file name for a version and format.
func SDKArchiveName(ver, format string) (string, error) {
	ext, ok := archiveExt[format]
	if !ok {
		return "", fmt.Errorf("unsupported archive format %q (choose from gz, xz, zst)", format)
	}
	if ver == "" {
		ver = "dev"
	}
	return "liblinphone-iphone-sdk-" + ver + ext, nil
}

// packExcluded reports whether a tutorial file is left out of the SDK.
func packExcluded(rel string) bool {
	if strings.Contains(rel, "/build/") || strings.HasSuffix(rel, "/build") {
		return true
	}
	return strings.HasSuffix(rel, ".pbxuser") || strings.HasSuffix(rel, ".mode1v3")
}

type packEntry struct {
	abs  string
	name string
	info fs.FileInfo
}

// collectPackEntries lists the files of every root, in lexical order.
func collectPackEntries(base string, roots []string) ([]packEntry, int64, error) {
	var entries []packEntry
	var total int64
	for _, root := range roots {
		absRoot := root
		if !filepath.IsAbs(absRoot) {
			absRoot = filepath.Join(base, root)
		}
		if _, err := os.Stat(absRoot); err != nil {
			if root == roots[0] {
				return nil, 0, fmt.Errorf("nothing to pack: %w", err)
			}
			debugf("Skipping missing %s\n", absRoot)
			continue
		}
		err := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			rel, err := filepath.Rel(base, path)
			if err != nil {
				return err
			}
			rel = filepath.ToSlash(rel)
			if packExcluded(rel) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return err
			}
			if info.Mode().IsRegular() {
				total += info.Size()
			}
			entries = append(entries, packEntry{abs: path, name: rel, info: info})
			return nil
		})
		if err != nil {
			return nil, 0, err
		}
	}
	return entries, total, nil
}

// newCompressor wraps w with the compressor of format.
func newCompressor(w io.Writer, format string) (io.WriteCloser, error) {
	switch format {
	case "gz":
		return pgzip.NewWriter(w), nil
	case "xz":
		return xz.NewWriter(w)
	case "zst":
		return zstd.NewWriter(w)
	default:
		return nil, fmt.Errorf("unsupported archive format %q", format)
	}
}

// newDecompressor opens the reader matching the archive name.
func newDecompressor(r io.Reader, name string) (io.ReadCloser, error) {
	switch {
	case strings.HasSuffix(name, ".tar.gz"):
		return pgzip.NewReader(r)
	case strings.HasSuffix(name, ".tar.xz"):
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(xr), nil
	case strings.HasSuffix(name, ".tar.zst"):
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return zr.IOReadCloser(), nil
	default:
		return nil, fmt.Errorf("unknown archive type: %s", name)
	}
}

func newByteProgress(total int64, desc string) *progressbar.ProgressBar {
	if term.IsTerminal(int(os.Stdout.Fd())) {
		return progressbar.DefaultBytes(total, desc)
	}
	return progressbar.DefaultBytesSilent(total, desc)
}

// CreateSDKArchive packs the merged SDK tree (and the tutorials, when present)
// into a compressed tarball with a BLAKE3 sidecar. Entries are written in
// lexical order with root ownership.
func CreateSDKArchive(l Layout, opts PackOptions) (string, error) {
	format := opts.Format
	if format == "" {
		format = "zst"
	}
	name, err := SDKArchiveName(opts.Version, format)
	if err != nil {
		return "", err
	}
	outDir := opts.Output
	if outDir == "" {
		outDir = l.Root
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", err
	}
	archivePath := filepath.Join(outDir, name)

	roots := append([]string{l.MergedDir()}, opts.Extra...)
	entries, total, err := collectPackEntries(l.Root, roots)
	if err != nil {
		return "", err
	}

	step("Generating SDK archive %s", name)
	tmp, err := os.CreateTemp(outDir, "."+name+".*")
	if err != nil {
		return "", fmt.Errorf("failed to create archive: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := writeTarball(tmp, format, entries, total); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return "", err
	}
	if err := os.Rename(tmpPath, archivePath); err != nil {
		return "", err
	}

	sum, err := writeChecksumFile(archivePath)
	if err != nil {
		return "", fmt.Errorf("failed to write checksum: %w", err)
	}
	if info, err := os.Stat(archivePath); err == nil {
		step("SDK archive created: %s (%s, blake3 %s)", archivePath, humanReadableSize(info.Size()), sum[:16])
	}
	return archivePath, nil
}

func writeTarball(w io.Writer, format string, entries []packEntry, total int64) error {
	cw, err := newCompressor(w, format)
	if err != nil {
		return err
	}
	tw := tar.NewWriter(cw)
	bar := newByteProgress(total, "packing")

	for _, e := range entries {
		var link string
		if e.info.Mode()&os.ModeSymlink != 0 {
			if link, err = os.Readlink(e.abs); err != nil {
				return fmt.Errorf("readlink %s: %w", e.abs, err)
			}
		}
		hdr, err := tar.FileInfoHeader(e.info, link)
		if err != nil {
			return err
		}
		hdr.Name = e.name
		if e.info.IsDir() {
			hdr.Name += "/"
		}
		hdr.Uid, hdr.Gid = 0, 0
		hdr.Uname, hdr.Gname = "root", "root"
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if !e.info.Mode().IsRegular() {
			continue
		}
		f, err := os.Open(e.abs)
		if err != nil {
			return err
		}
		_, err = io.Copy(io.MultiWriter(tw, bar), f)
		f.Close()
		if err != nil {
			return fmt.Errorf("failed to add %s: %w", e.name, err)
		}
	}
	bar.Finish()

	if err := tw.Close(); err != nil {
		return err
	}
	return cw.Close()
}

// ArchiveReport describes a verified archive.
type ArchiveReport struct {
	Path     string
	Checksum string
	Entries  int
	Files    int
	Bytes    int64
}

// VerifySDKArchive checks an archive against its sidecar checksum and reads
// it end to end.
func VerifySDKArchive(path string) (*ArchiveReport, error) {
	want, err := readChecksumFile(path)
	if err != nil {
		return nil, err
	}
	got, err := ComputeChecksum(path)
	if err != nil {
		return nil, err
	}
	if got != want {
		return nil, fmt.Errorf("checksum mismatch for %s: expected %s, got %s", path, want, got)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	dr, err := newDecompressor(f, path)
	if err != nil {
		return nil, err
	}
	defer dr.Close()

	rep := &ArchiveReport{Path: path, Checksum: got}
	tr := tar.NewReader(dr)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("corrupt archive %s: %w", path, err)
		}
		rep.Entries++
		if hdr.Typeflag == tar.TypeReg {
			rep.Files++
			n, err := io.Copy(io.Discard, tr)
			if err != nil {
				return nil, fmt.Errorf("corrupt archive %s: %w", path, err)
			}
			rep.Bytes += n
		}
	}
	return rep, nil
}
