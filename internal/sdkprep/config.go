package sdkprep

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// Config struct
type Config struct {
	Values map[string]string
}

// Load sdkprep.conf and apply defaults
func loadConfig(path string) (*Config, error) {
	cfg := &Config{Values: make(map[string]string)}

	// A missing file is not an error: every key has a default.
	file, err := os.Open(path)
	if err == nil {
		defer file.Close()
		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			parts := strings.SplitN(line, "=", 2)
			if len(parts) != 2 {
				continue
			}
			key := strings.TrimSpace(parts[0])
			val := strings.TrimSpace(parts[1])
			val = strings.Trim(val, `"'`)
			cfg.Values[key] = val
		}
		if err := scanner.Err(); err != nil {
			return cfg, err
		}
	}

	mergeEnvOverrides(cfg)

	return cfg, nil
}

// Merge SDKPREP_* and S3_* env overrides
func mergeEnvOverrides(cfg *Config) {
	for _, env := range os.Environ() {
		if strings.HasPrefix(env, "SDKPREP_") || strings.HasPrefix(env, "S3_") {
			parts := strings.SplitN(env, "=", 2)
			if len(parts) == 2 {
				cfg.Values[parts[0]] = parts[1]
			}
		}
	}
}

func (c *Config) get(key, def string) string {
	if c == nil {
		return def
	}
	if v := strings.TrimSpace(c.Values[key]); v != "" {
		return v
	}
	return def
}

// Layout is the on-disk arrangement of a prepare run. Paths other than Root
// are relative to Root, which is also how they appear in the generated
// Makefile.
type Layout struct {
	Root           string
	WorkDir        string // per-target CMake trees: <WorkDir>/ios-<arch>
	SDKDir         string // staging trees: <SDKDir>/<arch>-<PlatformSuffix>
	PlatformSuffix string // e.g. "apple-darwin.ios"
	MergedName     string // merged tree: <SDKDir>/<MergedName>
	SourceDir      string // external sources handed to the builder
	Project        string // project descriptor scanned for library names
	DummyLib       string // placeholder static library
	PluginDir      string // plugin libraries, relative to the merged tree
	PluginPrefix   string // library name prefix routed to PluginDir
	GitHookSource  string
}

// MergedDir is the architecture-independent SDK tree.
func (l Layout) MergedDir() string {
	return filepath.Join(l.SDKDir, l.MergedName)
}

// StagingName is the directory name of one architecture's staging tree.
func (l Layout) StagingName(arch string) string {
	return arch + "-" + l.PlatformSuffix
}

// abs resolves a Root-relative path.
func (l Layout) abs(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(l.Root, rel)
}

// Tools names the external programs sdkprep drives.
type Tools struct {
	CMake string
	Lipo  string
	Make  string
}

// Settings is the resolved configuration of one process.
type Settings struct {
	Layout        Layout
	Tools         Tools
	ArchiveFormat string
	S3            S3Settings
}

// S3Settings configures 'sdkprep publish'.
type S3Settings struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Prefix          string
}

// DefaultLayout returns the layout of the liblinphone iOS tree rooted at root.
func DefaultLayout(root string) Layout {
	return Layout{
		Root:           root,
		WorkDir:        "WORK",
		SDKDir:         "liblinphone-sdk",
		PlatformSuffix: "apple-darwin.ios",
		MergedName:     "apple-darwin",
		SourceDir:      "submodules",
		Project:        filepath.Join("linphone.xcodeproj", "project.pbxproj"),
		DummyLib:       filepath.Join("submodules", "binaries", "libdummy.a"),
		PluginDir:      filepath.Join("lib", "mediastreamer", "plugins"),
		PluginPrefix:   "libms",
		GitHookSource:  ".git-pre-commit",
	}
}

func initConfig(cfg *Config, root string) Settings {
	Debug = cfg.get("SDKPREP_DEBUG", "0") == "1"

	l := DefaultLayout(root)
	l.WorkDir = cfg.get("SDKPREP_WORK_DIR", l.WorkDir)
	l.SDKDir = cfg.get("SDKPREP_SDK_DIR", l.SDKDir)
	l.SourceDir = cfg.get("SDKPREP_SOURCE_DIR", l.SourceDir)
	l.Project = cfg.get("SDKPREP_PROJECT", l.Project)
	l.DummyLib = cfg.get("SDKPREP_DUMMY_LIB", l.DummyLib)

	s := Settings{
		Layout: l,
		Tools: Tools{
			CMake: cfg.get("SDKPREP_CMAKE", "cmake"),
			Lipo:  cfg.get("SDKPREP_LIPO", "lipo"),
			Make:  cfg.get("SDKPREP_MAKE", "make"),
		},
		ArchiveFormat: cfg.get("SDKPREP_ARCHIVE_FORMAT", "zst"),
		S3: S3Settings{
			Endpoint:        strings.TrimRight(cfg.get("S3_ENDPOINT", ""), "/"),
			Region:          cfg.get("S3_REGION", "auto"),
			Bucket:          cfg.get("S3_BUCKET", ""),
			AccessKeyID:     cfg.get("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: cfg.get("S3_SECRET_ACCESS_KEY", ""),
			Prefix:          strings.Trim(cfg.get("S3_PREFIX", ""), "/"),
		},
	}
	debugf("=> Work dir %s, SDK dir %s\n", l.WorkDir, l.SDKDir)
	return s
}
