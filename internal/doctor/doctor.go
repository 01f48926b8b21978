package doctor

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"whisperstt/internal/config"
	"whisperstt/internal/hook"
)

// Result represents a diagnostic check.
type Result struct {
	Name   string
	Pass   bool
	Detail string
}

// Run executes doctor checks.
func Run(cfg *config.Config) []Result {
	results := []Result{
		checkFile("config path", cfg.Paths.ConfigPath),
		checkWritableDir("audio dir", filepath.Dir(cfg.Paths.AudioFile)),
	}
	switch strings.ToLower(cfg.ASR.Backend) {
	case "exec":
		results = append(results, checkCommand("asr.command", cfg.ASR.Command))
	default:
		results = append(results, checkFile("model file", cfg.ASR.ModelPath))
	}
	if strings.TrimSpace(cfg.Hook.Command) != "" {
		results = append(results, checkCommand("hook.command", cfg.Hook.Command))
	}
	results = append(results, checkPortAudioPkgConfig())
	results = append(results, checkPortAudio())
	return results
}

func checkFile(label, path string) Result {
	if path == "" {
		return Result{Name: label, Pass: false, Detail: "not set"}
	}
	if _, err := os.Stat(os.ExpandEnv(path)); err != nil {
		return Result{Name: label, Pass: false, Detail: err.Error()}
	}
	return Result{Name: label, Pass: true, Detail: path}
}

func checkWritableDir(label, dir string) Result {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Result{Name: label, Pass: false, Detail: err.Error()}
	}
	f, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return Result{Name: label, Pass: false, Detail: err.Error()}
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	return Result{Name: label, Pass: true, Detail: dir}
}

// checkCommand resolves the executable of a shell-quoted command line.
func checkCommand(label, cmdline string) Result {
	argv, err := hook.ParseArgs(cmdline)
	if err != nil {
		return Result{Name: label, Pass: false, Detail: err.Error()}
	}
	if len(argv) == 0 {
		return Result{Name: label, Pass: false, Detail: "not set"}
	}
	path := os.ExpandEnv(argv[0])
	// If contains a path separator, treat as explicit path.
	if strings.Contains(path, "/") || strings.Contains(path, "\\") {
		info, err := os.Stat(path)
		if err != nil {
			return Result{Name: label, Pass: false, Detail: err.Error()}
		}
		if info.IsDir() {
			return Result{Name: label, Pass: false, Detail: "is a directory; point it at an executable file"}
		}
		if info.Mode().Perm()&0o111 == 0 {
			return Result{Name: label, Pass: false, Detail: "not executable; chmod +x or choose another command"}
		}
		return Result{Name: label, Pass: true, Detail: path}
	}
	// Else search PATH.
	resolved, err := exec.LookPath(path)
	if err != nil {
		return Result{Name: label, Pass: false, Detail: err.Error()}
	}
	return Result{Name: label, Pass: true, Detail: resolved}
}

func checkPortAudioPkgConfig() Result {
	pkg, err := exec.LookPath("pkg-config")
	if err != nil {
		return Result{Name: "pkg-config", Pass: false, Detail: "pkg-config not found (install pkg-config)"}
	}
	cmd := exec.Command(pkg, "--exists", "portaudio-2.0")
	if err := cmd.Run(); err != nil {
		return Result{Name: "portaudio", Pass: false, Detail: "portaudio-2.0 not found (brew install portaudio / apt install portaudio19-dev)"}
	}
	versionCmd := exec.Command(pkg, "--modversion", "portaudio-2.0")
	if out, err := versionCmd.Output(); err == nil {
		return Result{Name: "portaudio", Pass: true, Detail: strings.TrimSpace(string(out))}
	}
	return Result{Name: "portaudio", Pass: true, Detail: "found via pkg-config"}
}
