package source

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/dbsmedya/layoutdiff/internal/config"
	"github.com/dbsmedya/layoutdiff/internal/layout"
	"github.com/dbsmedya/layoutdiff/internal/logger"
)

// SolcSource runs the Solidity compiler with --storage-layout.
type SolcSource struct {
	Binary   string
	Args     []string // placed between --storage-layout and the source file
	Timeout  time.Duration
	Contract string
	Logger   *logger.Logger
}

// NewSolcSource creates a compiler source from configuration.
func NewSolcSource(cfg *config.CompilerConfig, log *logger.Logger) *SolcSource {
	if log == nil {
		log = logger.NewNop()
	}
	return &SolcSource{
		Binary:  cfg.Binary,
		Args:    cfg.Args,
		Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		Logger:  log,
	}
}

// Load implements Source.
func (s *SolcSource) Load(ctx context.Context, path string) (*layout.Layout, error) {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	args := make([]string, 0, len(s.Args)+2)
	args = append(args, "--storage-layout")
	args = append(args, s.Args...)
	args = append(args, path)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, s.Binary, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log := s.logger()
	log.Debugw("Running compiler", "binary", s.Binary, "args", args)

	start := time.Now()
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s %s: %v: %s",
			ErrLayoutUnavailable, s.Binary, path, err, strings.TrimSpace(stderr.String()))
	}
	log.Debugw("Compiler finished", "path", path, "duration", time.Since(start))

	l, err := ParseCompilerOutput(stdout.Bytes(), s.Contract)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return l, nil
}

func (s *SolcSource) logger() *logger.Logger {
	if s.Logger == nil {
		return logger.NewNop()
	}
	return s.Logger
}

// WithContract returns a copy of s that selects contract from the output.
func (s *SolcSource) WithContract(contract string) *SolcSource {
	c := *s
	c.Contract = contract
	return &c
}
