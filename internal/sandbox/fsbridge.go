package sandbox

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
)

// FsBridge reads/writes files inside a sandbox container via `docker cp`,
// so filesystem tools can stay container-aware without the container
// needing a network-reachable API of its own.
type FsBridge struct {
	containerID   string
	containerRoot string // e.g. "/workspace"
}

// NewFsBridge returns a bridge scoped to one container.
func NewFsBridge(containerID, containerRoot string) *FsBridge {
	return &FsBridge{containerID: containerID, containerRoot: containerRoot}
}

// ReadFile copies relPath (relative to containerRoot) out of the container
// to a temp host file and returns its contents.
func (b *FsBridge) ReadFile(ctx context.Context, relPath string) ([]byte, error) {
	tmp, err := execTempFile()
	if err != nil {
		return nil, err
	}
	defer removeTemp(tmp)

	src := fmt.Sprintf("%s:%s", b.containerID, filepath.Join(b.containerRoot, relPath))
	if err := exec.CommandContext(ctx, "docker", "cp", src, tmp).Run(); err != nil {
		return nil, fmt.Errorf("fsbridge: docker cp from container: %w", err)
	}
	return readTemp(tmp)
}

// WriteFile copies data into the container at relPath.
func (b *FsBridge) WriteFile(ctx context.Context, relPath string, data []byte) error {
	tmp, err := execTempFile()
	if err != nil {
		return err
	}
	defer removeTemp(tmp)
	if err := writeTemp(tmp, data); err != nil {
		return err
	}

	dst := fmt.Sprintf("%s:%s", b.containerID, filepath.Join(b.containerRoot, relPath))
	if err := exec.CommandContext(ctx, "docker", "cp", tmp, dst).Run(); err != nil {
		return fmt.Errorf("fsbridge: docker cp into container: %w", err)
	}
	return nil
}
