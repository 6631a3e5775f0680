package open

import (
	"reflect"
	"testing"
)

func TestCommand(t *testing.T) {
	const u = "https://example.com/auth?x=1"
	tests := []struct {
		browser, goos string
		name          string
		args          []string
	}{
		{"", "linux", "xdg-open", []string{u}},
		{"", "darwin", "open", []string{u}},
		{"", "windows", "rundll32", []string{"url.dll,FileProtocolHandler", u}},
		{"firefox --new-window", "linux", "firefox", []string{"--new-window", u}},
		{"", "plan9", "", nil},
	}
	for _, tt := range tests {
		name, args := command(tt.browser, tt.goos, u)
		if name != tt.name || !reflect.DeepEqual(args, tt.args) {
			t.Errorf("command(%q, %q) = %q %v, want %q %v", tt.browser, tt.goos, name, args, tt.name, tt.args)
		}
	}
}
