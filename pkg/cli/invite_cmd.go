package cli

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/spf13/cobra"
)

type inviteOut struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Name        string    `json:"name,omitempty"`
	Role        string    `json:"role"`
	Status      string    `json:"status"`
	TokenPrefix string    `json:"token_prefix"`
	EmailSent   bool      `json:"email_sent"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func newInviteCmd(client *Client) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invite",
		Short: "Manage invitations",
	}

	cmd.AddCommand(newInviteCreateCmd(client))
	cmd.AddCommand(newInviteListCmd(client))
	cmd.AddCommand(newInviteResendCmd(client))
	cmd.AddCommand(newInviteRevokeCmd(client))
	cmd.AddCommand(newInviteValidateCmd(client))

	return cmd
}

func newInviteCreateCmd(client *Client) *cobra.Command {
	var (
		name    string
		role    string
		noEmail bool
	)

	cmd := &cobra.Command{
		Use:   "create <email>",
		Short: "Invite a new user by email",
		Example: `  kbhub invite create alice@example.com
  kbhub invite create bob@example.com --role admin --no-email`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out struct {
				Invite     inviteOut `json:"invite"`
				Token      string    `json:"token"`
				InviteLink string    `json:"invite_link"`
			}
			body := map[string]interface{}{
				"email":      args[0],
				"name":       name,
				"role":       role,
				"send_email": !noEmail,
			}
			if err := postJSON(client, "/invites", body, &out); err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(os.Stdout, out)
			}
			fmt.Fprintf(os.Stdout, "Invite %s created for %s (expires %s)\n",
				out.Invite.ID, out.Invite.Email, out.Invite.ExpiresAt.Format(time.RFC3339))
			fmt.Fprintf(os.Stdout, "Link: %s\n", out.InviteLink)
			if !out.Invite.EmailSent {
				fmt.Fprintln(os.Stdout, "Email not sent; share the link manually.")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name for the invitee")
	cmd.Flags().StringVar(&role, "role", "user", "Role granted on acceptance (user, admin)")
	cmd.Flags().BoolVar(&noEmail, "no-email", false, "Skip sending the invite email")

	return cmd
}

func newInviteListCmd(client *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List invitations with their effective status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var invites []inviteOut
			if err := getJSON(client, "/invites", nil, &invites); err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(os.Stdout, invites)
			}
			rows := make([][]string, len(invites))
			for i, inv := range invites {
				rows[i] = []string{
					inv.ID, inv.Email, inv.Role, inv.Status,
					inv.ExpiresAt.Format(time.RFC3339),
				}
			}
			return printTable(os.Stdout, []string{"ID", "EMAIL", "ROLE", "STATUS", "EXPIRES"}, rows)
		},
	}
}

func newInviteResendCmd(client *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "resend <invite-id>",
		Short: "Resend a pending invitation (same link, same expiry)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out struct {
				EmailSent bool `json:"email_sent"`
			}
			if err := postJSON(client, "/invites/"+url.PathEscape(args[0])+"/resend", nil, &out); err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(os.Stdout, out)
			}
			if out.EmailSent {
				fmt.Fprintln(os.Stdout, "Invite email resent.")
			} else {
				fmt.Fprintln(os.Stdout, "Resend recorded, but the email could not be delivered.")
			}
			return nil
		},
	}
}

func newInviteRevokeCmd(client *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <invite-id>",
		Short: "Revoke a pending invitation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := postJSON(client, "/invites/"+url.PathEscape(args[0])+"/revoke", nil, nil); err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(os.Stdout, map[string]string{"status": "revoked"})
			}
			fmt.Fprintln(os.Stdout, "Invite revoked.")
			return nil
		},
	}
}

func newInviteValidateCmd(client *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <token>",
		Short: "Check an invite token without consuming it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			q.Set("token", args[0])
			resp, err := client.DoPublic(http.MethodGet, "/invites/validate", q, nil)
			if err != nil {
				return err
			}
			if err := CheckError(resp); err != nil {
				return err
			}
			var out struct {
				Email     string    `json:"email"`
				Name      string    `json:"name"`
				Role      string    `json:"role"`
				ExpiresAt time.Time `json:"expires_at"`
			}
			if err := DecodeBody(resp, &out); err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(os.Stdout, out)
			}
			fmt.Fprintf(os.Stdout, "Valid invite for %s (role %s), expires %s\n",
				out.Email, out.Role, out.ExpiresAt.Format(time.RFC3339))
			return nil
		},
	}
}
