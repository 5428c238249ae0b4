package cli

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

type userOut struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func newUserCmd(client *Client) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}

	cmd.AddCommand(newUserListCmd(client))
	cmd.AddCommand(newUserCreateCmd(client))
	cmd.AddCommand(newUserSetRoleCmd(client))
	cmd.AddCommand(newUserDeleteCmd(client))

	return cmd
}

func newUserListCmd(client *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var users []userOut
			if err := getJSON(client, "/users", nil, &users); err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(os.Stdout, users)
			}
			rows := make([][]string, len(users))
			for i, u := range users {
				rows[i] = []string{strconv.FormatInt(u.ID, 10), u.Email, u.Name, u.Role}
			}
			return printTable(os.Stdout, []string{"ID", "EMAIL", "NAME", "ROLE"}, rows)
		},
	}
}

func newUserCreateCmd(client *Client) *cobra.Command {
	var (
		name string
		role string
	)

	cmd := &cobra.Command{
		Use:   "create <email>",
		Short: "Create a user directly, bypassing the invite flow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var u userOut
			body := map[string]string{"email": args[0], "name": name, "role": role}
			if err := postJSON(client, "/users", body, &u); err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(os.Stdout, u)
			}
			fmt.Fprintf(os.Stdout, "User %d created: %s (%s)\n", u.ID, u.Email, u.Role)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&role, "role", "user", "Role (user, admin)")

	return cmd
}

func newUserSetRoleCmd(client *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "set-role <user-id> <role>",
		Short: "Change a user's role",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client.Do(http.MethodPut, "/users/"+args[0]+"/role", nil,
				map[string]string{"role": args[1]})
			if err != nil {
				return err
			}
			if err := CheckError(resp); err != nil {
				return err
			}
			var u userOut
			if err := DecodeBody(resp, &u); err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(os.Stdout, u)
			}
			fmt.Fprintf(os.Stdout, "User %d is now %s\n", u.ID, u.Role)
			return nil
		},
	}
}

func newUserDeleteCmd(client *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <user-id>",
		Short: "Delete a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := doNoContent(client, http.MethodDelete, "/users/"+args[0]); err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(os.Stdout, map[string]string{"status": "deleted"})
			}
			fmt.Fprintln(os.Stdout, "User deleted.")
			return nil
		},
	}
}
