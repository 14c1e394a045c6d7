package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"cmms.GO/app"
	entity "cmms.GO/model/entity"
	authRepo "cmms.GO/model/repository/auth"
)

var (
	tokenOrg  uint
	tokenName string
	tokenRole string
	tokenTTL  time.Duration
	tokenID   uint
)

var tokenCreateCmd = &cobra.Command{
	Use:   "auth:token:create",
	Short: "Issue an API token for AUTH_TYPE=token",
	RunE: WithApp(func(c *cobra.Command, a *app.App, _ []string) error {
		if tokenOrg == 0 {
			return fmt.Errorf("--org is required")
		}
		if tokenRole != entity.RoleOperator && tokenRole != entity.RoleAdmin {
			return fmt.Errorf("--role must be %s or %s", entity.RoleOperator, entity.RoleAdmin)
		}
		t := &entity.ApiToken{
			OrganizationID: tokenOrg,
			Name:           tokenName,
			Role:           tokenRole,
			Token:          strings.ReplaceAll(uuid.NewString(), "-", ""),
		}
		if tokenTTL > 0 {
			exp := time.Now().UTC().Add(tokenTTL)
			t.ExpiresAt = &exp
		}
		if err := authRepo.NewAuthRepository(a.DB).Create(t); err != nil {
			return err
		}
		fmt.Fprintf(c.OutOrStdout(), "token %d (%s): %s\n", t.ID, t.Role, t.Token)
		return nil
	}),
}

var tokenRevokeCmd = &cobra.Command{
	Use:   "auth:token:revoke",
	Short: "Revoke an API token by id",
	RunE: WithApp(func(c *cobra.Command, a *app.App, _ []string) error {
		if tokenID == 0 {
			return fmt.Errorf("--id is required")
		}
		if err := authRepo.NewAuthRepository(a.DB).Revoke(tokenID); err != nil {
			return err
		}
		fmt.Fprintf(c.OutOrStdout(), "token %d revoked\n", tokenID)
		return nil
	}),
}

func init() {
	tokenCreateCmd.Flags().UintVar(&tokenOrg, "org", 0, "organization id (required)")
	tokenCreateCmd.Flags().StringVar(&tokenName, "name", "", "label shown in listings")
	tokenCreateCmd.Flags().StringVar(&tokenRole, "role", entity.RoleOperator, "operator or admin")
	tokenCreateCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "expiry, e.g. 720h (never when 0)")
	tokenRevokeCmd.Flags().UintVar(&tokenID, "id", 0, "token id (required)")
	rootCmd.AddCommand(tokenCreateCmd, tokenRevokeCmd)
}
