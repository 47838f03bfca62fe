package main

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// stdio as a path means stdin for inputs and stdout for outputs.
const stdio = "-"

const (
	stdinHelp  = "Use - for stdin"
	stdoutHelp = "Use - for stdout"
)

func ensureNotExists(path, what string) error {
	if path == "" || path == stdio {
		return nil
	}
	if _, err := os.Stat(path); err == nil {
		return errors.Errorf("%s output file already exists: %s", what, path)
	} else if !os.IsNotExist(err) {
		return errors.Wrapf(err, "failed to check %s", path)
	}
	return nil
}

func readInput(cmd *cobra.Command, path string) (string, error) {
	if path == stdio {
		b, err := io.ReadAll(cmd.InOrStdin())
		return string(b), errors.Wrap(err, "failed to read stdin")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read file %s", path)
	}
	return string(b), nil
}

func writeOutput(cmd *cobra.Command, path, content string) error {
	if path == stdio {
		_, err := io.WriteString(cmd.OutOrStdout(), content)
		return errors.Wrap(err, "failed to write stdout")
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return errors.Wrapf(err, "failed to write file %s", path)
	}
	return nil
}
