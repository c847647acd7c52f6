package sdkprep

import (
	"os"
	"path/filepath"
)

// installGitHook copies the project's pre-commit hook into .git/hooks when
// the repository has a hooks directory and no pre-commit hook yet.
func installGitHook(l Layout) error {
	hooksDir := l.abs(filepath.Join(".git", "hooks"))
	if info, err := os.Stat(hooksDir); err != nil || !info.IsDir() {
		return nil
	}
	hookPath := filepath.Join(hooksDir, "pre-commit")
	if _, err := os.Stat(hookPath); err == nil {
		return nil
	}
	src := l.abs(l.GitHookSource)
	if !fileExists(src) {
		debugf("No %s to install\n", src)
		return nil
	}
	step("Installing Git pre-commit hook")
	if err := copyFile(src, hookPath); err != nil {
		return err
	}
	return os.Chmod(hookPath, 0o755)
}
