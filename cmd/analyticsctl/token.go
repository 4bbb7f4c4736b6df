package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"genfity-analytics-service/internal/auth"

	"github.com/spf13/cobra"
)

func (a *app) tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a merchant JWT for the dashboard API and websocket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			merchantID, _ := flags.GetInt64("merchant")
			roleName, _ := flags.GetString("role")
			permissions, _ := flags.GetStringSlice("permissions")
			ttl, _ := flags.GetDuration("ttl")

			secret := a.v.GetString("jwt_secret")
			if secret == "" {
				return errors.New("jwt secret required (--secret or JWT_SECRET)")
			}

			role := auth.RoleMerchantOwner
			switch strings.ToLower(strings.TrimSpace(roleName)) {
			case "owner":
			case "staff":
				role = auth.RoleMerchantStaff
			default:
				return fmt.Errorf("unknown role %q (owner or staff)", roleName)
			}

			token, err := auth.MerchantToken(merchantID, role, permissions, secret, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().Int64("merchant", 0, "Merchant id (required)")
	cmd.Flags().String("role", "owner", "owner or staff")
	cmd.Flags().StringSlice("permissions", []string{string(auth.PermRevenue), string(auth.PermReports)}, "Staff permissions")
	cmd.Flags().Duration("ttl", 24*time.Hour, "Token lifetime")
	cmd.Flags().String("secret", "", "JWT secret (defaults to JWT_SECRET)")
	_ = a.v.BindPFlag("jwt_secret", cmd.Flags().Lookup("secret"))
	_ = cmd.MarkFlagRequired("merchant")
	return cmd
}
