package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"
	"github.com/spf13/cobra"

	"github.com/teledrop/teledrop/internal/config"
)

func loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Authorize the MTProto user session interactively",
		Long: `Log in with the user account whose credentials are configured under
[mtproto] and persist the session file. Run this once before "serve";
the server itself never prompts for codes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd.Context(), configPath(cmd))
		},
	}
}

func runLogin(parent context.Context, cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if !cfg.MTProto.Enabled() {
		return errors.New("mtproto credentials missing: set api_id, api_hash and phone in the config")
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := telegram.NewClient(cfg.MTProto.APIID, cfg.MTProto.APIHash, telegram.Options{
		SessionStorage: &session.FileStorage{Path: cfg.MTProto.SessionFile},
	})

	flow := auth.NewFlow(termAuth{phone: cfg.MTProto.Phone}, auth.SendCodeOptions{})
	return client.Run(ctx, func(ctx context.Context) error {
		if err := client.Auth().IfNecessary(ctx, flow); err != nil {
			return fmt.Errorf("authorize: %w", err)
		}
		self, err := client.Self(ctx)
		if err != nil {
			return fmt.Errorf("get self: %w", err)
		}
		fmt.Printf("Logged in as %s %s (@%s)\n", self.FirstName, self.LastName, self.Username)
		fmt.Printf("Session saved to %s\n", cfg.MTProto.SessionFile)
		return nil
	})
}

// termAuth prompts on the terminal for the login code and the two-factor
// password.
type termAuth struct {
	phone string
}

func (a termAuth) Phone(_ context.Context) (string, error) {
	return a.phone, nil
}

func (a termAuth) Code(_ context.Context, _ *tg.AuthSentCode) (string, error) {
	fmt.Print("Enter the code Telegram sent you: ")
	return readLine()
}

func (a termAuth) Password(_ context.Context) (string, error) {
	fmt.Print("Enter your two-factor password: ")
	return readLine()
}

func (a termAuth) AcceptTermsOfService(_ context.Context, _ tg.HelpTermsOfService) error {
	return nil
}

func (a termAuth) SignUp(_ context.Context) (auth.UserInfo, error) {
	return auth.UserInfo{}, errors.New("account does not exist, sign up on a phone first")
}

func readLine() (string, error) {
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
