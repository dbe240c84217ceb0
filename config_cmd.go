package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfig = `# directory the call list is read from (default: user data dir)
# store: "~/callboard/store"
# file name (without .json) the producer writes calls to
key: "calls"
# announcement locale, e.g. "en-US" or "pt-BR"
locale: "en-US"
# announcement volume (0.0 to 1.0)
volume: 1.0

speech:
  # piper, gtts, wyoming or none
  engine: "piper"
  # give up on a single announcement after this long
  timeout: "30s"

  piper:
    # path to the piper binary (default: search PATH)
    binary: ""
    # ONNX voice model, e.g. ~/.local/share/piper/en_US-lessac-medium.onnx
    # the model fixes the voice language; pick one matching the locale
    model: ""
    # speaking speed (0.5 to 2.0)
    speed: 1.0

  gtts:
    slow: false
    requests_per_minute: 30

  wyoming:
    endpoint: "localhost:10200"
    # voice per language, overrides the built-in table
    # voices:
    #   en: "en_US-lessac-medium"
    #   pt: "pt_BR-faber-medium"

cache:
  # synthesized audio cache (default: user cache dir)
  # dir: "~/.cache/callboard/audio"
  # size limit in MB, 0 disables the disk cache
  max_size: 100

audio:
  sample_rate: 22050
`

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the callboard config file",
	Long:    paragraph(fmt.Sprintf("\n%s the callboard config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("callboard config\ncallboard config --config path/to/callboard.yml"),
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("Callboard", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
	}
	return writeDefaultConfig(configFile)
}

// writeDefaultConfig creates path with the default configuration unless it
// already exists.
func writeDefaultConfig(path string) error {
	if path == "" {
		return errors.New("no configuration file path")
	}
	if ext := filepath.Ext(path); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("unable to stat config file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("unable create directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(defaultConfig), 0o600); err != nil {
		return fmt.Errorf("unable to write config file: %w", err)
	}
	return nil
}
