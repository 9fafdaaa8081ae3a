package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/yubzen/hedgehog/internal/config"
	"github.com/yubzen/hedgehog/internal/providers"
)

func NewAuthCmd() *cobra.Command {
	authCmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage provider API credentials in the OS keyring",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthList(cmd)
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List provider credential status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthList(cmd)
		},
	}

	var setKey string
	setCmd := &cobra.Command{
		Use:   "set <provider>",
		Short: "Store an API key for a provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := resolveProvider(args[0])
			if err != nil {
				return err
			}

			key := strings.TrimSpace(setKey)
			if key == "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Enter API key for %s: ", spec.DisplayName)
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read api key: %w", err)
				}
				key = strings.TrimSpace(line)
			}
			if err := providers.ValidateCredential(key); err != nil {
				return fmt.Errorf("api key for %s: %w", spec.DisplayName, err)
			}

			if err := providers.StoreCredential(string(spec.Kind), key); err != nil {
				return fmt.Errorf("store key for %s: %w", spec.DisplayName, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored API key for %s\n", spec.DisplayName)
			return nil
		},
	}
	setCmd.Flags().StringVar(&setKey, "key", "", "API key value")

	removeCmd := &cobra.Command{
		Use:     "remove <provider>",
		Aliases: []string{"rm", "delete"},
		Short:   "Remove the stored API key for a provider",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := resolveProvider(args[0])
			if err != nil {
				return err
			}
			err = providers.DeleteCredential(string(spec.Kind))
			if errors.Is(err, providers.ErrCredentialNotFound) {
				fmt.Fprintf(cmd.OutOrStdout(), "No stored key to remove for %s\n", spec.DisplayName)
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed API key for %s\n", spec.DisplayName)
			return nil
		},
	}

	authCmd.AddCommand(listCmd, setCmd, removeCmd)
	return authCmd
}

func runAuthList(cmd *cobra.Command) error {
	cfg := loadConfigOrWarn(cmd)
	var all []providers.Provider
	for _, spec := range providerSpecs() {
		p, err := spec.build(cfg, "")
		if err != nil {
			return err
		}
		all = append(all, p)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 2, 2, ' ', 0)
	fmt.Fprintln(w, "PROVIDER\tSTATUS\tSOURCE\tENV")
	for _, st := range providers.CheckAll(cmd.Context(), all) {
		status, source := "not connected", "-"
		if st.Connected {
			status = "connected"
		}
		if st.Source != "" {
			source = st.Source
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", st.Name, status, source, st.EnvVar)
	}
	return w.Flush()
}

// loadConfigOrWarn loads the user config for read-only commands. A broken
// file is reported on stderr and the defaults are used instead.
func loadConfigOrWarn(cmd *cobra.Command) *config.Config {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v; using defaults\n", err)
		return config.Default()
	}
	return cfg
}

func NewModelsCmd() *cobra.Command {
	var showAll bool
	var timeout time.Duration
	modelsCmd := &cobra.Command{
		Use:   "models [provider]",
		Short: "List models available for connected providers",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfigOrWarn(cmd)

			specs := providerSpecs()
			if len(args) == 1 && strings.TrimSpace(args[0]) != "" {
				spec, err := resolveProvider(args[0])
				if err != nil {
					return err
				}
				specs = []providerSpec{spec}
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 2, 2, ' ', 0)
			fmt.Fprintln(w, "PROVIDER\tCONNECTED\tSOURCE\tMODELS")

			printed := 0
			for _, spec := range specs {
				p, err := spec.build(cfg, "")
				if err != nil {
					return err
				}
				connected := p.Ping(cmd.Context()) == nil
				if !showAll && !connected {
					continue
				}

				models := append([]string(nil), spec.FallbackModels...)
				source := "fallback"
				if connected {
					ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
					live, err := providers.DiscoverModels(ctx, p)
					cancel()
					if err == nil && len(live) > 0 {
						models = live
						source = "provider"
					}
				}

				status := "no"
				if connected {
					status = "yes"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", spec.DisplayName, status, source, strings.Join(models, ", "))
				printed++
			}

			if printed == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No connected providers found. Use `hedgehog auth set <provider>` first.")
				return nil
			}
			return w.Flush()
		},
	}

	modelsCmd.Flags().BoolVar(&showAll, "all", false, "Include providers without configured API keys")
	modelsCmd.Flags().DurationVar(&timeout, "timeout", 4*time.Second, "Provider model query timeout")
	return modelsCmd
}

func NewConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Show or initialize the user configuration",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Display the resolved configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return config.RunView(cfg)
		},
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.GetConfigPath()
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.Default().Save(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing configuration file")

	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file location",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), config.GetConfigPath())
		},
	}

	configCmd.AddCommand(showCmd, initCmd, pathCmd)
	return configCmd
}
