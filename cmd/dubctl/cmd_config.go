package main

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change the CLI settings",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(a.out, "# %s\n", a.configPath)
			return yaml.NewEncoder(a.out).Encode(a.cfg)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set-api-url <url>",
		Short: "Save the backend API URL to the config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := strings.TrimRight(strings.TrimSpace(args[0]), "/")
			u, err := url.Parse(raw)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				return fmt.Errorf("invalid API URL %q", args[0])
			}
			a.cfg.APIURL = raw
			if err := a.cfg.save(a.configPath); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "API URL set to %s\n", raw)
			return nil
		},
	})
	return cmd
}
