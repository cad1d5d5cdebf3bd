package web

import (
	"io/fs"
	"strings"
	"testing"
)

// TestStaticFS_ContainsUI verifies the joystick page and script are embedded.
func TestStaticFS_ContainsUI(t *testing.T) {
	sub, err := StaticFS()
	if err != nil {
		t.Fatalf("static fs: %v", err)
	}
	for _, name := range []string{"index.html", "app.js", "style.css"} {
		if _, err := fs.Stat(sub, name); err != nil {
			t.Fatalf("missing %s: %v", name, err)
		}
	}
}

// TestAppJS_WindowListenersScopedToDrag verifies the client binds window listeners per drag and sends the box on moves.
func TestAppJS_WindowListenersScopedToDrag(t *testing.T) {
	sub, err := StaticFS()
	if err != nil {
		t.Fatalf("static fs: %v", err)
	}
	raw, err := fs.ReadFile(sub, "app.js")
	if err != nil {
		t.Fatalf("read app.js: %v", err)
	}
	src := string(raw)
	for _, want := range []string{
		"window.removeEventListener('mousemove'",
		"window.removeEventListener('touchend'",
		"t: 'move', src: 'mouse', x: ev.clientX, y: ev.clientY, box: box()",
		"t: 'move', src: 'touch', touches: touches(ev), box: box()",
	} {
		if !strings.Contains(src, want) {
			t.Fatalf("app.js missing %q", want)
		}
	}
}
