package cli

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	auth "github.com/mind-engage/interviewbook/internal/auth/middleware"
	"github.com/mind-engage/interviewbook/internal/config"
	"github.com/mind-engage/interviewbook/internal/rbac"
)

func newTokenCommand(opts *RootOptions) *cobra.Command {
	var (
		user string
		role string
		ttl  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a signed token with AUTH_HMAC_SECRET",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !rbac.Known(role) {
				return wrapExit(ExitCommandError, fmt.Sprintf("unknown role %q", role), nil)
			}
			cfg := config.FromEnv()
			tok, err := auth.NewAuthService(cfg.AuthSecret, cfg.AuthCookieName).IssueJWTWithTTL(user, role, ttl)
			if err != nil {
				return wrapExit(ExitFailure, "sign token", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), tok)
			return err
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "subject (user id)")
	cmd.Flags().StringVar(&role, "role", rbac.RoleUser, "role (user|admin)")
	cmd.Flags().DurationVar(&ttl, "ttl", 8*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

// hash-password prints a bcrypt hash for ADMIN_PASS_HASH. The password is
// read from the first line of stdin.
func newHashPasswordCommand(opts *RootOptions) *cobra.Command {
	var cost int
	cmd := &cobra.Command{
		Use:   "hash-password",
		Short: "Print a bcrypt hash of the password read from stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			pw := strings.TrimRight(line, "\r\n")
			if pw == "" {
				if err != nil {
					return wrapExit(ExitCommandError, "read password", err)
				}
				return wrapExit(ExitCommandError, "empty password", nil)
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(pw), cost)
			if err != nil {
				return wrapExit(ExitFailure, "hash", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(hash))
			return err
		},
	}
	cmd.Flags().IntVar(&cost, "cost", 12, "bcrypt cost")
	return cmd
}
