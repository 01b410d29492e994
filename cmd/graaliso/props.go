package main

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var errPropertyNotSet = errors.New("property not set")

func newGetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get KEY",
		Short: "Print a system property",
		Long: `Print the value of a JVM system property.

Exits non-zero when the property is not set or the isolate cannot be reached.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			value, found, err := a.sys.LookupProperty(args[0])
			if err != nil {
				return fmt.Errorf("get %s: %w", args[0], err)
			}
			if !found {
				return fmt.Errorf("get %s: %w", args[0], errPropertyNotSet)
			}
			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		},
	}
}

func newSetCmd(opts *rootOptions) *cobra.Command {
	var verify bool

	cmd := &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a system property",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			key, value := args[0], args[1]
			if !a.sys.SetProperty(key, value) {
				return fmt.Errorf("set %s: failed", key)
			}
			if verify {
				fmt.Fprintf(cmd.OutOrStdout(), "%s=%s\n", key, a.sys.GetProperty(key))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&verify, "verify", false, "Read the property back and print it")
	return cmd
}

func newPropsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "props [KEY...]",
		Short: "Apply configured properties and print them",
		Long: `Apply the properties from the configuration file and -D flags, then print
key=value for each of them. Extra keys given as arguments are printed too;
unset keys print with an empty value.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			seen := make(map[string]bool)
			var keys []string
			for k := range a.cfg.Properties {
				seen[k] = true
				keys = append(keys, k)
			}
			for _, k := range args {
				if !seen[k] {
					seen[k] = true
					keys = append(keys, k)
				}
			}
			sort.Strings(keys)

			out := cmd.OutOrStdout()
			for _, k := range keys {
				fmt.Fprintf(out, "%s=%s\n", k, a.sys.GetProperty(k))
			}
			return nil
		},
	}
}
