package app

import (
	"fmt"
	"os"
	"path/filepath"

	"balancer/internal/logger"
)

// PIDFile is the liveness control file an external watchdog polls.
type PIDFile struct {
	path string
}

func WritePID(dir, instance string) (*PIDFile, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, instance+".pid")
	content := fmt.Sprintf("%d %s", os.Getpid(), instance)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return nil, err
	}
	return &PIDFile{path: path}, nil
}

func (p *PIDFile) Remove() {
	if p == nil {
		return
	}
	if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
		logger.Warnf("Cannot remove pid file %s: %v", p.path, err)
	}
}
