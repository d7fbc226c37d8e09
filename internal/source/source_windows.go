//go:build windows

package source

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// im-select prints the active keyboard locale id with no argument and
// selects one when given as an argument (e.g. "1033", "2052").
const imSelectBin = "im-select.exe"

// DefaultTarget is the fallback source when no idle return target is
// configured. 1033 is en-US.
const DefaultTarget = "1033"

type imSelectService struct{}

func newPlatform() (Service, error) {
	if _, err := exec.LookPath(imSelectBin); err != nil {
		return nil, fmt.Errorf("%w: %s not found in PATH", ErrUnsupported, imSelectBin)
	}
	return &imSelectService{}, nil
}

func (s *imSelectService) SwitchTo(target string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, imSelectBin, target).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s %s: %v (%s)", imSelectBin, target, err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (s *imSelectService) CurrentID() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, imSelectBin).Output()
	if err != nil {
		return "", fmt.Errorf("%s: %w", imSelectBin, err)
	}
	return strings.TrimSpace(string(out)), nil
}
