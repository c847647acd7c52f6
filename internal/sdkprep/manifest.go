package sdkprep

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
)

// manifestPattern matches static library declarations of the Xcode project,
// for example:
//
//	name = libspeexdsp.a; path = "liblinphone-sdk/apple-darwin/lib/libspeexdsp.a"; sourceTree = "<group>"; };
func manifestPattern(mergedDir string) *regexp.Regexp {
	return regexp.MustCompile(`name = (lib(\S+)\.a); path = "` + regexp.QuoteMeta(mergedDir) + `/`)
}

// ExtractLibraries returns the static libraries the project descriptor
// references from the merged SDK tree, deduplicated and sorted. Lines that do
// not look like a declaration are skipped.
func ExtractLibraries(descriptor, mergedDir string) ([]string, error) {
	f, err := os.Open(descriptor)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrManifestUnreadable, descriptor, err)
	}
	defer f.Close()

	re := manifestPattern(mergedDir)
	seen := make(map[string]bool)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		m := re.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		seen[m[1]] = true
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrManifestUnreadable, descriptor, err)
	}

	libs := make([]string, 0, len(seen))
	for lib := range seen {
		libs = append(libs, lib)
	}
	sort.Strings(libs)
	return libs, nil
}

// warnIfNoLibraries reports a descriptor that declares nothing under
// mergedDir, which leaves the dummy backstop with nothing to check.
func warnIfNoLibraries(out io.Writer, libs []string, descriptor, mergedDir string) {
	if len(libs) > 0 {
		return
	}
	fmt.Fprint(out, colWarn.Sprint("WARNING: "))
	fmt.Fprintf(out, "%s declares no library under %s/ (check SDKPREP_SDK_DIR)\n", descriptor, mergedDir)
}
