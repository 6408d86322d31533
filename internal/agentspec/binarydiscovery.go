package agentspec

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
)

// wellKnownInstallDirs lists additional directories worth probing beyond
// PATH, covering the common package-manager install locations agent CLIs
// land in (Homebrew, npm global, user-local bin).
func wellKnownInstallDirs() []string {
	home, _ := os.UserHomeDir()
	dirs := []string{
		"/opt/homebrew/bin",
		"/usr/local/bin",
	}
	if home != "" {
		dirs = append(dirs,
			filepath.Join(home, ".local", "bin"),
			filepath.Join(home, ".npm-global", "bin"),
		)
	}
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			dirs = append(dirs, filepath.Join(appData, "npm"))
		}
	}
	return dirs
}

// binaryCache memoizes Resolve results for the lifetime of the process;
// agent binaries essentially never move while schaltwerkd is running.
type binaryCache struct {
	mu    sync.RWMutex
	paths map[string]string
}

var binaries = &binaryCache{paths: make(map[string]string)}

// Resolve returns the effective executable path for agentID: an explicit
// DefaultBinaryPath override (if it points at something runnable), else the
// first match found by searching PATH and wellKnownInstallDirs for the
// manifest's BinaryName. Results are cached per agent id for the process
// lifetime; call InvalidateBinaryCache to force a re-probe.
func Resolve(agentID string) (string, bool) {
	binaries.mu.RLock()
	if cached, ok := binaries.paths[agentID]; ok {
		binaries.mu.RUnlock()
		return cached, true
	}
	binaries.mu.RUnlock()

	def, ok := Get(agentID)
	if !ok {
		return "", false
	}

	resolved, found := resolveBinary(def)
	if !found {
		return "", false
	}

	binaries.mu.Lock()
	binaries.paths[agentID] = resolved
	binaries.mu.Unlock()
	return resolved, true
}

func resolveBinary(def Definition) (string, bool) {
	if path := strings.TrimSpace(def.DefaultBinaryPath); path != "" && path != def.BinaryName {
		if isExecutableFile(path) {
			return path, true
		}
	}

	if path, err := exec.LookPath(def.BinaryName); err == nil {
		return path, true
	}

	for _, dir := range wellKnownInstallDirs() {
		candidate := filepath.Join(dir, def.BinaryName)
		if isExecutableFile(candidate) {
			return candidate, true
		}
	}

	return def.BinaryName, true
}

func isExecutableFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}

// InvalidateBinaryCache forgets every cached resolution, or just agentID's
// when non-empty.
func InvalidateBinaryCache(agentID string) {
	binaries.mu.Lock()
	defer binaries.mu.Unlock()
	if agentID == "" {
		binaries.paths = make(map[string]string)
		return
	}
	delete(binaries.paths, agentID)
}
