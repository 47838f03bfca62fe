package main

import (
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"wskdf/internal/kdf"
	"wskdf/internal/search"
)

// ParamsOutput records what is needed to search for a generated key again.
type ParamsOutput struct {
	KDFParams kdf.Params `json:"kdf_params" yaml:"kdf_params"`
	NBits     int        `json:"n_bits" yaml:"n_bits"`
}

// marshalParams encodes p as YAML for .yaml/.yml paths and JSON otherwise.
func marshalParams(path string, p ParamsOutput) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		b, err := yaml.Marshal(p)
		return string(b), errors.Wrap(err, "failed to encode params")
	default:
		b, err := json.MarshalIndent(p, "", "  ")
		return string(b), errors.Wrap(err, "failed to encode params")
	}
}

func readSalt(cmd *cobra.Command, path string) (kdf.Salt, error) {
	s, err := readInput(cmd, path)
	if err != nil {
		return kdf.Salt{}, err
	}
	return kdf.ParseSalt(s)
}

func readPreimage(cmd *cobra.Command, path string) (kdf.Preimage, error) {
	s, err := readInput(cmd, path)
	if err != nil {
		return kdf.Preimage{}, err
	}
	return kdf.ParsePreimage(s)
}

func readKey(cmd *cobra.Command, path string) (kdf.Key, error) {
	s, err := readInput(cmd, path)
	if err != nil {
		return kdf.Key{}, err
	}
	return kdf.ParseKey(s)
}

func newGenerateSaltCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "generate-salt",
		Short: "Writes a random 16 byte salt encoded as hex",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := ensureNotExists(output, "salt"); err != nil {
				return err
			}
			salt, err := kdf.NewSalt()
			if err != nil {
				return err
			}
			return writeOutput(cmd, output, salt.String())
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", stdoutHelp)
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func newOutputRandomKeyCmd(a *app) *cobra.Command {
	var nBits int
	var preimageOut, keyOut, paramsOut, saltIn string
	cmd := &cobra.Command{
		Use:   "output-random-key",
		Short: "Outputs a random preimage and the derived key encoded as hex to two files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			space, err := search.NewSpace(nBits)
			if err != nil {
				return err
			}
			params, err := a.kdfParams(cmd)
			if err != nil {
				return err
			}
			for what, path := range map[string]string{"preimage": preimageOut, "key": keyOut, "params": paramsOut} {
				if err := ensureNotExists(path, what); err != nil {
					return err
				}
			}
			salt, err := readSalt(cmd, saltIn)
			if err != nil {
				return err
			}

			preimage := space.Random(search.NewSecureRand())
			key, err := kdf.Derive(preimage, salt, params)
			if err != nil {
				return errors.Wrap(err, "derive key failed")
			}
			if err := writeOutput(cmd, preimageOut, preimage.String()); err != nil {
				return err
			}
			if err := writeOutput(cmd, keyOut, key.String()); err != nil {
				return err
			}
			if paramsOut == "" {
				return nil
			}
			content, err := marshalParams(paramsOut, ParamsOutput{KDFParams: params, NBits: nBits})
			if err != nil {
				return err
			}
			return writeOutput(cmd, paramsOut, content)
		},
	}
	f := cmd.Flags()
	f.IntVarP(&nBits, "n-bits", "n", 0, "Preimage bit length (1-63)")
	f.StringVar(&preimageOut, "preimage-output", "", stdoutHelp)
	f.StringVar(&keyOut, "key-output", "", stdoutHelp)
	f.StringVar(&paramsOut, "params-output", "", stdoutHelp+"; .yaml/.yml writes YAML, anything else JSON")
	f.StringVar(&saltIn, "salt-input", "", stdinHelp)
	addKDFFlags(cmd)
	for _, name := range []string{"n-bits", "preimage-output", "key-output", "salt-input"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func newDeriveKeyCmd(a *app) *cobra.Command {
	var preimageIn, keyOut, saltIn string
	cmd := &cobra.Command{
		Use:   "derive-key",
		Short: "Derives a key from a preimage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			params, err := a.kdfParams(cmd)
			if err != nil {
				return err
			}
			if err := ensureNotExists(keyOut, "key"); err != nil {
				return err
			}
			salt, err := readSalt(cmd, saltIn)
			if err != nil {
				return err
			}
			preimage, err := readPreimage(cmd, preimageIn)
			if err != nil {
				return err
			}
			key, err := kdf.Derive(preimage, salt, params)
			if err != nil {
				return errors.Wrap(err, "derive key failed")
			}
			return writeOutput(cmd, keyOut, key.String())
		},
	}
	f := cmd.Flags()
	f.StringVar(&preimageIn, "preimage-input", "", stdinHelp)
	f.StringVar(&keyOut, "key-output", "", stdoutHelp)
	f.StringVar(&saltIn, "salt-input", "", stdinHelp)
	addKDFFlags(cmd)
	for _, name := range []string{"preimage-input", "key-output", "salt-input"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func newCheckPreimageCmd(a *app) *cobra.Command {
	var keyIn, preimageIn, saltIn string
	cmd := &cobra.Command{
		Use:   "check-preimage",
		Short: "Checks if a preimage derives to a given key; exits 0 if it does",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			params, err := a.kdfParams(cmd)
			if err != nil {
				return err
			}
			key, err := readKey(cmd, keyIn)
			if err != nil {
				return err
			}
			preimage, err := readPreimage(cmd, preimageIn)
			if err != nil {
				return err
			}
			salt, err := readSalt(cmd, saltIn)
			if err != nil {
				return err
			}
			derived, err := kdf.Derive(preimage, salt, params)
			if err != nil {
				return errors.Wrap(err, "derive key failed")
			}
			if derived != key {
				return errors.New("derived key doesn't match")
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&keyIn, "key-input", "", stdinHelp)
	f.StringVar(&preimageIn, "preimage-input", "", stdinHelp)
	f.StringVar(&saltIn, "salt-input", "", stdinHelp)
	addKDFFlags(cmd)
	for _, name := range []string{"key-input", "preimage-input", "salt-input"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}
