package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/opencode/internal/auth"
)

// buildAuthCmd creates the "auth" command group.
func buildAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage provider credentials",
	}
	cmd.AddCommand(buildAuthLoginCmd(), buildAuthLogoutCmd(), buildAuthListCmd())
	return cmd
}

func buildAuthLoginCmd() *cobra.Command {
	var apiKey string
	cmd := &cobra.Command{
		Use:   "login [provider]",
		Short: "Authenticate with a provider",
		Long: `Authenticate with a provider.

For github-copilot this runs the GitHub device flow: visit the printed
URL, enter the code, and the command waits for approval. For other
providers pass an API key with --key.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			provider := args[0]
			creds := auth.NewStore()
			out := cmd.OutOrStdout()

			if apiKey != "" {
				if err := creds.Set(provider, auth.Credential{
					Type: auth.CredentialAPIKey,
					Key:  apiKey,
				}); err != nil {
					return err
				}
				fmt.Fprintf(out, "Stored API key for %s\n", provider)
				return nil
			}

			if provider != "github-copilot" {
				return fmt.Errorf("%s requires an API key; use --key", provider)
			}

			flow := auth.NewDeviceFlow(creds)
			authz, err := flow.Authorize(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Visit %s and enter code: %s\n", authz.VerificationURI, authz.UserCode)
			fmt.Fprintln(out, "Waiting for authorization...")

			if err := flow.Wait(cmd.Context(), authz); err != nil {
				return err
			}
			fmt.Fprintln(out, "Authenticated with GitHub Copilot.")
			return nil
		},
	}
	cmd.Flags().StringVar(&apiKey, "key", "", "API key for api-type providers")
	return cmd
}

func buildAuthLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout [provider]",
		Short: "Remove stored credentials for a provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			creds := auth.NewStore()
			if err := creds.Remove(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed credentials for %s\n", args[0])
			return nil
		},
	}
}

func buildAuthListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			creds := auth.NewStore()
			all, err := creds.All()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(all) == 0 {
				fmt.Fprintln(out, "No credentials stored.")
				return nil
			}
			names := make([]string, 0, len(all))
			for name := range all {
				names = append(names, name)
			}
			sort.Strings(names)
			fmt.Fprintln(out, "Credentials:")
			for _, name := range names {
				cred := all[name]
				switch cred.Type {
				case auth.CredentialOAuth:
					detail := "no access token"
					if cred.Expires > 0 {
						expires := time.UnixMilli(cred.Expires)
						if time.Now().Before(expires) {
							detail = fmt.Sprintf("token valid until %s", expires.Format(time.RFC3339))
						} else {
							detail = "token expired"
						}
					}
					fmt.Fprintf(out, "  %s (oauth, %s)\n", name, detail)
				default:
					fmt.Fprintf(out, "  %s (api key)\n", name)
				}
			}
			return nil
		},
	}
}
