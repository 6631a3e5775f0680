package open

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// URL opens target in the user's browser. $BROWSER wins over the
// platform default.
func URL(target string) error {
	name, args := command(os.Getenv("BROWSER"), runtime.GOOS, target)
	if name == "" {
		return fmt.Errorf("no browser launcher for %s", runtime.GOOS)
	}
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch %s: %w", name, err)
	}
	// the launcher detaches; reap it without blocking the caller
	go cmd.Wait()
	return nil
}

func command(browser, goos, target string) (string, []string) {
	if browser != "" {
		fields := strings.Fields(browser)
		return fields[0], append(fields[1:], target)
	}
	switch goos {
	case "darwin":
		return "open", []string{target}
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", target}
	case "linux", "freebsd", "openbsd", "netbsd":
		return "xdg-open", []string{target}
	default:
		return "", nil
	}
}
