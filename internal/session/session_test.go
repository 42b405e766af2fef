package session

import (
	"strings"
	"testing"
)

func TestParsePermissionMode(t *testing.T) {
	tests := []struct {
		input   string
		want    PermissionMode
		wantErr bool
	}{
		{"", "", false},
		{"default", PermissionDefault, false},
		{"acceptEdits", PermissionAcceptEdits, false},
		{"plan", PermissionPlan, false},
		{"bypassPermissions", PermissionBypass, false},
		{"yolo", "", true},
		{"Default", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePermissionMode(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePermissionMode(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParsePermissionMode(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestContainerCommand_Interactive(t *testing.T) {
	s := &Session{}
	if cmd := s.ContainerCommand(); cmd != nil {
		t.Errorf("no instruction should use the image default command, got %v", cmd)
	}
}

func TestContainerCommand_InstructionWithMode(t *testing.T) {
	s := &Session{Instruction: "fix the tests", PermissionMode: PermissionPlan}

	cmd := s.ContainerCommand()
	if len(cmd) != 3 || cmd[0] != "bash" || cmd[1] != "-c" {
		t.Fatalf("cmd = %v, want bash -c <line>", cmd)
	}

	line := cmd[2]
	for _, want := range []string{
		"claude",
		"--permission-mode plan",
		"-p 'fix the tests'",
		"--output-format stream-json",
		"--verbose",
	} {
		if !strings.Contains(line, want) {
			t.Errorf("command line missing %q: %s", want, line)
		}
	}
}

func TestContainerCommand_UnsetModeSkipsPermissions(t *testing.T) {
	s := &Session{Instruction: "hello"}

	line := s.ContainerCommand()[2]
	if !strings.Contains(line, "--dangerously-skip-permissions") {
		t.Errorf("unset mode must skip permission prompts: %s", line)
	}
	if strings.Contains(line, "--permission-mode") {
		t.Errorf("unset mode must not pass --permission-mode: %s", line)
	}
}

func TestContainerCommand_QuotesInstruction(t *testing.T) {
	s := &Session{Instruction: `say "hi"; rm -rf /`}

	line := s.ContainerCommand()[2]
	// The instruction passes through bash -c; it must arrive as one argument.
	if strings.Contains(line, `; rm`) && !strings.Contains(line, `\;`) && !strings.Contains(line, `'`) {
		t.Errorf("instruction not quoted: %s", line)
	}
}
