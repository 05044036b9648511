package ui

import "testing"

func TestShouldUseColor(t *testing.T) {
	for _, tc := range []struct {
		name string
		env  map[string]string
		want bool
	}{
		{"no color wins", map[string]string{"NO_COLOR": "1", "CLICOLOR_FORCE": "1"}, false},
		{"forced", map[string]string{"CLICOLOR_FORCE": "1"}, true},
		{"clicolor off", map[string]string{"CLICOLOR": "0"}, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			for _, k := range []string{"NO_COLOR", "CLICOLOR_FORCE", "CLICOLOR"} {
				t.Setenv(k, tc.env[k])
			}
			if got := ShouldUseColor(); got != tc.want {
				t.Fatalf("ShouldUseColor() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRender(t *testing.T) {
	noColor = false
	t.Cleanup(func() { noColor = false })

	if got := RenderAccent("title"); got != "\x1b[38;5;74mtitle\x1b[0m" {
		t.Fatalf("RenderAccent = %q", got)
	}

	ForceNoColor()
	for _, fn := range []func(string) string{RenderAccent, RenderMuted, RenderOK, RenderWarn, RenderError} {
		if got := fn("x"); got != "x" {
			t.Fatalf("expected plain text with color disabled, got %q", got)
		}
	}
}
