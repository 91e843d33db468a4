package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func OptionalStringFlag(cmd *cobra.Command, name string) (string, error) {
	if cmd == nil || cmd.Flags().Lookup(name) == nil {
		return "", nil
	}
	value, err := cmd.Flags().GetString(name)
	if err != nil {
		return "", fmt.Errorf("failed to read --%s flag: %w", name, err)
	}
	return strings.TrimSpace(value), nil
}

func OptionalBoolFlag(cmd *cobra.Command, name string) (bool, error) {
	if cmd == nil || cmd.Flags().Lookup(name) == nil {
		return false, nil
	}
	value, err := cmd.Flags().GetBool(name)
	if err != nil {
		return false, fmt.Errorf("failed to read --%s flag: %w", name, err)
	}
	return value, nil
}

// FlagOverrides collects the flags the user actually set, keyed by the config
// key each flag overrides.
func FlagOverrides(cmd *cobra.Command, keys map[string]string) (map[string]any, error) {
	overrides := make(map[string]any)
	for name, key := range keys {
		flag := cmd.Flags().Lookup(name)
		if flag == nil || !flag.Changed {
			continue
		}

		var (
			value any
			err   error
		)
		switch flag.Value.Type() {
		case "bool":
			value, err = cmd.Flags().GetBool(name)
		case "stringSlice":
			value, err = cmd.Flags().GetStringSlice(name)
		default:
			var s string
			s, err = cmd.Flags().GetString(name)
			value = strings.TrimSpace(s)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read --%s flag: %w", name, err)
		}
		overrides[key] = value
	}
	return overrides, nil
}
