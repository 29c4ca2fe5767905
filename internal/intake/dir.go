package intake

import (
	"context"
	"fmt"
)

// Dir describes where new uploads go.
type Dir struct {
	RootPath     string
	TempRootPath string
}

func (d Dir) String() string {
	if d.TempRootPath != "" {
		return fmt.Sprintf("Current directory: %s\nTemporary directory: %s", d.RootPath, d.TempRootPath)
	}
	return fmt.Sprintf("Current directory: %s", d.RootPath)
}

func (s *Service) ShowDir() Dir {
	return Dir{RootPath: s.drive.RootPath(false), TempRootPath: s.drive.TempRootPath()}
}

func (s *Service) SetDir(ctx context.Context, rootPath string) (Dir, error) {
	if err := s.drive.SetRootPath(ctx, rootPath); err != nil {
		return Dir{}, err
	}
	return s.ShowDir(), nil
}

func (s *Service) ResetDir(ctx context.Context) (Dir, error) {
	if err := s.drive.ResetRootPath(ctx); err != nil {
		return Dir{}, err
	}
	return s.ShowDir(), nil
}

// SetTempDir overrides the directory of new uploads until CancelTempDir.
func (s *Service) SetTempDir(rootPath string) Dir {
	s.drive.SetTempRootPath(rootPath)
	return s.ShowDir()
}

func (s *Service) CancelTempDir() Dir {
	s.drive.CancelTempRootPath()
	return s.ShowDir()
}
