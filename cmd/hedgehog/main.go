package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	hedgehogcli "github.com/yubzen/hedgehog/internal/cli"
	"github.com/yubzen/hedgehog/internal/config"
)

const version = "0.1.0"

func main() {
	// .env is optional
	_ = godotenv.Load()

	var flags hedgehogcli.WatchFlags

	rootCmd := &cobra.Command{
		Use:           "hedgehog",
		Short:         "AI feedback on your code as you write",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.Resolve(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return hedgehogcli.RunWatch(ctx, cfg, hedgehogcli.RunOptions{
				Token:  flags.Token,
				Stdout: cmd.OutOrStdout(),
				Stderr: cmd.ErrOrStderr(),
			})
		},
	}
	flags.Register(rootCmd)

	rootCmd.AddCommand(
		hedgehogcli.NewAuthCmd(),
		hedgehogcli.NewModelsCmd(),
		hedgehogcli.NewConfigCmd(),
	)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		var cfgErr *config.Error
		if errors.As(err, &cfgErr) {
			fmt.Fprintf(os.Stderr, "✖ Configuration error: %v\n", cfgErr)
		} else {
			fmt.Fprintf(os.Stderr, "✖ %v\n", err)
		}
		os.Exit(1)
	}
}
