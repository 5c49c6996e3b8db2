package actions

import "testing"

func TestParseWindowList(t *testing.T) {
	out := []byte(`0x03400003  0 0    0    1920 1080 guest Desktop
0x04a00001  0 128  96   1024 768  guest Mozilla Firefox
0x05200007  1 200  150  800  600  guest term — htop
malformed line
`)

	root := parseWindowList(out)
	if root.Role != "desktop" {
		t.Errorf("Expected desktop root, got %s", root.Role)
	}
	if len(root.Children) != 3 {
		t.Fatalf("Expected 3 windows, got %d", len(root.Children))
	}

	ff := root.Children[1]
	if ff.Name != "Mozilla Firefox" {
		t.Errorf("Expected Mozilla Firefox, got %q", ff.Name)
	}
	if ff.X != 128 || ff.Y != 96 || ff.Width != 1024 || ff.Height != 768 {
		t.Errorf("unexpected geometry: %+v", ff)
	}

	term := root.Children[2]
	if term.Name != "term — htop" {
		t.Errorf("multi-word title mangled: %q", term.Name)
	}
}

func TestParseWindowListEmpty(t *testing.T) {
	root := parseWindowList(nil)
	if len(root.Children) != 0 {
		t.Errorf("Expected no windows, got %d", len(root.Children))
	}
}
