package mcp

import (
	"fmt"
	"os/exec"
	"regexp"
	"sort"
	"strings"
)

// CheckCommand verifies a plugin command resolves in PATH before any spawn
// is attempted, so a typo'd command fails with a readable error.
func CheckCommand(command string) error {
	if command == "" {
		return fmt.Errorf("empty command")
	}
	if _, err := exec.LookPath(command); err != nil {
		return fmt.Errorf("command %q not found in PATH", command)
	}
	return nil
}

// Runtime describes one of the interpreters plugin servers commonly run on.
type Runtime struct {
	Name      string
	Installed bool
	Version   string
	Path      string
	Error     string
}

// RuntimeChecker probes for the runtimes local plugins tend to need. The
// plugin overview shows its results so a missing interpreter is visible
// before a start is even tried.
type RuntimeChecker struct {
	runtimes map[string]*Runtime
}

func NewRuntimeChecker() *RuntimeChecker {
	return &RuntimeChecker{
		runtimes: make(map[string]*Runtime),
	}
}

func (rc *RuntimeChecker) DetectAll() {
	rc.detectNodeJS()
	rc.detectNPX()
	rc.detectPython()
	rc.detectGo()
}

// List detects all runtimes and returns them sorted by name.
func (rc *RuntimeChecker) List() []*Runtime {
	rc.DetectAll()

	runtimes := make([]*Runtime, 0, len(rc.runtimes))
	for _, rt := range rc.runtimes {
		runtimes = append(runtimes, rt)
	}
	sort.Slice(runtimes, func(i, j int) bool {
		return runtimes[i].Name < runtimes[j].Name
	})
	return runtimes
}

func (rc *RuntimeChecker) detectNodeJS() {
	runtime := &Runtime{Name: "node"}

	path, err := exec.LookPath("node")
	if err != nil {
		runtime.Error = "Node.js not found"
		rc.runtimes["node"] = runtime
		return
	}

	output, err := exec.Command("node", "--version").Output()
	if err != nil {
		runtime.Error = "Failed to get Node.js version"
		rc.runtimes["node"] = runtime
		return
	}

	version := strings.TrimSpace(string(output))
	version = strings.TrimPrefix(version, "v")

	runtime.Installed = true
	runtime.Version = version
	runtime.Path = path
	rc.runtimes["node"] = runtime
}

func (rc *RuntimeChecker) detectNPX() {
	runtime := &Runtime{Name: "npx"}

	path, err := exec.LookPath("npx")
	if err != nil {
		runtime.Error = "npx not found"
		rc.runtimes["npx"] = runtime
		return
	}

	output, err := exec.Command("npx", "--version").Output()
	if err != nil {
		runtime.Error = "Failed to get npx version"
		rc.runtimes["npx"] = runtime
		return
	}

	runtime.Installed = true
	runtime.Version = strings.TrimSpace(string(output))
	runtime.Path = path
	rc.runtimes["npx"] = runtime
}

func (rc *RuntimeChecker) detectPython() {
	runtime := &Runtime{Name: "python"}

	pythonCmd := ""
	for _, cmd := range []string{"python3", "python"} {
		if _, err := exec.LookPath(cmd); err == nil {
			pythonCmd = cmd
			break
		}
	}
	if pythonCmd == "" {
		runtime.Error = "Python not found"
		rc.runtimes["python"] = runtime
		return
	}

	path, _ := exec.LookPath(pythonCmd)
	runtime.Path = path

	output, err := exec.Command(pythonCmd, "--version").Output()
	if err != nil {
		runtime.Error = "Failed to get Python version"
		rc.runtimes["python"] = runtime
		return
	}

	version := strings.TrimSpace(string(output))
	runtime.Version = strings.TrimPrefix(version, "Python ")
	runtime.Installed = true
	rc.runtimes["python"] = runtime
}

func (rc *RuntimeChecker) detectGo() {
	runtime := &Runtime{Name: "go"}

	path, err := exec.LookPath("go")
	if err != nil {
		runtime.Error = "Go not found"
		rc.runtimes["go"] = runtime
		return
	}

	output, err := exec.Command("go", "version").Output()
	if err != nil {
		runtime.Error = "Failed to get Go version"
		rc.runtimes["go"] = runtime
		return
	}

	version := strings.TrimSpace(string(output))
	re := regexp.MustCompile(`go(\d+\.\d+(?:\.\d+)?)`)
	if matches := re.FindStringSubmatch(version); len(matches) > 1 {
		version = matches[1]
	}

	runtime.Installed = true
	runtime.Version = version
	runtime.Path = path
	rc.runtimes["go"] = runtime
}
