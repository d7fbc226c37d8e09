//go:build darwin

package source

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// macism is a small CLI around the TextInputSources API. With no
// argument it prints the active source id; with one it selects it.
// Target ids are TIS ids like "com.apple.keylayout.ABC".
const macismBin = "macism"

// DefaultTarget is the fallback source when no idle return target is
// configured.
const DefaultTarget = "com.apple.keylayout.ABC"

type macismService struct{}

func newPlatform() (Service, error) {
	if _, err := exec.LookPath(macismBin); err != nil {
		return nil, fmt.Errorf("%w: %s not found in PATH", ErrUnsupported, macismBin)
	}
	return &macismService{}, nil
}

func (s *macismService) SwitchTo(target string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, macismBin, target).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s %s: %v (%s)", macismBin, target, err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (s *macismService) CurrentID() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, macismBin).Output()
	if err != nil {
		return "", fmt.Errorf("%s: %w", macismBin, err)
	}
	return strings.TrimSpace(string(out)), nil
}
