package sdkprep

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stageMergedTree fills the merged SDK tree and the tutorials.
func stageMergedTree(t *testing.T, l Layout) {
	t.Helper()
	merged := l.abs(l.MergedDir())
	writeTestFile(t, filepath.Join(merged, "lib", "libortp.a"), "fat ortp")
	writeTestFile(t, filepath.Join(merged, "include", "ortp", "ortp.h"), "/* ortp */")
	writeTestFile(t, filepath.Join(l.Root, "liblinphone-tutorials", "hello", "main.m"), "int main() {}")
	writeTestFile(t, filepath.Join(l.Root, "liblinphone-tutorials", "hello", "hello.pbxuser"), "user state")
	writeTestFile(t, filepath.Join(l.Root, "liblinphone-tutorials", "hello", "build", "out.o"), "obj")
}

func TestSDKArchiveName(t *testing.T) {
	name, err := SDKArchiveName("4.5.1", "zst")
	require.NoError(t, err)
	assert.Equal(t, "liblinphone-iphone-sdk-4.5.1.tar.zst", name)

	name, err = SDKArchiveName("", "gz")
	require.NoError(t, err)
	assert.Equal(t, "liblinphone-iphone-sdk-dev.tar.gz", name)

	_, err = SDKArchiveName("1", "zip")
	assert.Error(t, err)
}

func TestCreateAndVerifySDKArchive(t *testing.T) {
	for _, format := range []string{"gz", "xz", "zst"} {
		t.Run(format, func(t *testing.T) {
			l := testLayout(t)
			stageMergedTree(t, l)

			path, err := CreateSDKArchive(l, PackOptions{
				Format:  format,
				Version: "1.0",
				Output:  filepath.Join(l.Root, "dist"),
				Extra:   []string{"liblinphone-tutorials"},
			})
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(l.Root, "dist", "liblinphone-iphone-sdk-1.0"+archiveExt[format]), path)
			assert.FileExists(t, path+checksumSuffix)

			rep, err := VerifySDKArchive(path)
			require.NoError(t, err)
			// 3 files plus liblinphone-sdk/apple-darwin, include, include/ortp,
			// lib, liblinphone-tutorials and hello directories.
			assert.Equal(t, 3, rep.Files)
			assert.Equal(t, 9, rep.Entries)
			assert.Equal(t, int64(len("fat ortp")+len("/* ortp */")+len("int main() {}")), rep.Bytes)

			sum, err := ComputeChecksum(path)
			require.NoError(t, err)
			assert.Equal(t, sum, rep.Checksum)
		})
	}
}

func TestCreateSDKArchiveWithoutMergedTree(t *testing.T) {
	l := testLayout(t)
	_, err := CreateSDKArchive(l, PackOptions{Format: "zst"})
	assert.Error(t, err)
}

func TestVerifySDKArchiveDetectsTampering(t *testing.T) {
	l := testLayout(t)
	stageMergedTree(t, l)
	path, err := CreateSDKArchive(l, PackOptions{Format: "gz", Version: "2"})
	require.NoError(t, err)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	require.NoError(t, err)
	_, err = f.WriteString("junk")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = VerifySDKArchive(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checksum mismatch")
}

func TestVerifySDKArchiveWithoutSidecar(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sdk.tar.zst")
	writeTestFile(t, path, "not an archive")
	_, err := VerifySDKArchive(path)
	assert.Error(t, err)
}

func TestChecksumFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.bin")
	writeTestFile(t, path, "hello")

	sum, err := writeChecksumFile(path)
	require.NoError(t, err)
	assert.Len(t, sum, 64)
	assert.Equal(t, sum+"  file.bin\n", readTestFile(t, path+checksumSuffix))

	got, err := readChecksumFile(path)
	require.NoError(t, err)
	assert.Equal(t, sum, got)
}

func TestPackExcluded(t *testing.T) {
	assert.True(t, packExcluded("liblinphone-tutorials/hello/build"))
	assert.True(t, packExcluded("liblinphone-tutorials/hello/build/out.o"))
	assert.True(t, packExcluded("liblinphone-tutorials/hello/hello.mode1v3"))
	assert.False(t, packExcluded("liblinphone-sdk/apple-darwin/lib/libbuild.a"))
}
