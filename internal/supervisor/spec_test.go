package supervisor

import (
	"testing"
)

func TestBuildCommandEmpty(t *testing.T) {
	s := Spec{Name: "x"}
	cmd := s.BuildCommand()
	if cmd.Path != "/bin/true" {
		t.Fatalf("empty command should become /bin/true, got %q", cmd.Path)
	}
}

func TestBuildCommandFields(t *testing.T) {
	s := Spec{Name: "x", Command: "sleep 0.2"}
	cmd := s.BuildCommand()
	if len(cmd.Args) != 2 || cmd.Args[1] != "0.2" {
		t.Fatalf("unexpected args: %#v", cmd.Args)
	}
}

func TestBuildCommandShellMeta(t *testing.T) {
	s := Spec{Name: "x", Command: "echo hi > /dev/null"}
	cmd := s.BuildCommand()
	if cmd.Path != "/bin/sh" || len(cmd.Args) != 3 || cmd.Args[1] != "-c" {
		t.Fatalf("metacharacters should use /bin/sh -c, got %q %#v", cmd.Path, cmd.Args)
	}
}

func TestBuildCommandExplicitArgs(t *testing.T) {
	s := Spec{Name: "x", Command: "sleep", Args: []string{"1", "2"}}
	cmd := s.BuildCommand()
	if len(cmd.Args) != 3 || cmd.Args[1] != "1" || cmd.Args[2] != "2" {
		t.Fatalf("explicit args not honored: %#v", cmd.Args)
	}
}
