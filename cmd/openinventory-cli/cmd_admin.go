package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clemoseitano/open-inventory-api/client"
)

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administrative commands (use --api-key with the admin token)",
	}
	cmd.AddCommand(adminHealthCmd())
	cmd.AddCommand(adminTenantCmd())
	cmd.AddCommand(adminMemberCmd())
	cmd.AddCommand(adminPurgeCmd())
	cmd.AddCommand(adminRebuildCmd())
	return cmd
}

func adminHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		Run: func(cmd *cobra.Command, args []string) {
			resp, err := apiClient.Health(context.Background())
			if err != nil {
				fatal("health", err)
			}
			output(resp, resp.Status)
		},
	}
}

func adminTenantCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "create-tenant <slug>",
		Short: "Provision a tenant",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			slug := args[0]
			if name == "" {
				name = slug
			}
			tenant, err := apiClient.Admin.CreateTenant(context.Background(), client.CreateTenantRequest{
				Slug: slug,
				Name: name,
			})
			if err != nil {
				fatal("create tenant", err)
			}
			output(tenant, tenant.Slug)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Display name (defaults to the slug)")
	return cmd
}

func adminMemberCmd() *cobra.Command {
	var role string
	cmd := &cobra.Command{
		Use:   "create-member <tenant> <email>",
		Short: "Add a member and mint an API key (shown once)",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			result, err := apiClient.Admin.CreateMember(context.Background(), client.CreateMemberRequest{
				Tenant: args[0],
				Email:  args[1],
				Role:   role,
			})
			if err != nil {
				fatal("create member", err)
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "Store this key now; it is not shown again.")
			output(result, result.APIKey)
		},
	}
	cmd.Flags().StringVar(&role, "role", "staff", "Member role: admin|staff")
	return cmd
}

func adminPurgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Run the retention purge pass immediately",
		Run: func(cmd *cobra.Command, args []string) {
			if err := apiClient.Admin.Purge(context.Background()); err != nil {
				fatal("purge", err)
			}
			output(map[string]string{"status": "purged"}, "purged")
		},
	}
}

func adminRebuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild-snapshot <tenant>",
		Short: "Replay the retained journal into a fresh snapshot",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			replayed, err := apiClient.Admin.RebuildSnapshot(context.Background(), args[0])
			if err != nil {
				fatal("rebuild snapshot", err)
			}
			output(map[string]int{"replayed": replayed}, fmt.Sprintf("%d", replayed))
		},
	}
}
