package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/ppecheck/ppecheck/internal/workspace"
	"github.com/ppecheck/ppecheck/pkg/color"
	"github.com/ppecheck/ppecheck/pkg/inspect"
	"github.com/ppecheck/ppecheck/pkg/logging"
)

// openClient opens the workspace containing the working directory and
// applies its logging config. An explicit --log-level wins over the
// configured level.
func openClient() (*inspect.Client, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("cannot get current directory: %w", err)
	}
	c, err := inspect.Open(cwd)
	if errors.Is(err, workspace.ErrNoWorkspace) {
		return nil, fmt.Errorf("not inside a ppecheck workspace; run %s first", color.ID("ppecheck init"))
	}
	if err != nil {
		return nil, err
	}
	logCfg := c.Config().Logging
	if logLevel == "" && logCfg.Level != "" {
		logging.Global().SetLevel(logging.ParseLevel(logCfg.Level))
	}
	if logCfg.Format != "" {
		logging.Global().SetFormat(logging.Format(logCfg.Format))
	}
	return c, nil
}

// withClient runs fn against an opened client and closes it afterwards.
func withClient(fn func(c *inspect.Client) error) error {
	c, err := openClient()
	if err != nil {
		return err
	}
	defer c.Close()
	return fn(c)
}
