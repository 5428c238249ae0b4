package cli

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

type kbOut struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	IsPublic    bool      `json:"is_public"`
	CreatedAt   time.Time `json:"created_at"`
}

type bindingOut struct {
	ID               int64   `json:"id"`
	KnowledgeBaseID  int64   `json:"knowledge_base_id"`
	SourceType       string  `json:"source_type"`
	ExternalID       string  `json:"external_id"`
	Name             string  `json:"name"`
	URL              string  `json:"url,omitempty"`
	AccessControlled bool    `json:"access_controlled"`
	GrantURL         *string `json:"grant_url,omitempty"`
}

type shareValidationOut struct {
	CanShare           bool      `json:"can_share"`
	SourceRestricted   bool      `json:"source_restricted"`
	CanShareToUsers    []userOut `json:"can_share_to_users"`
	CannotShareToUsers []userOut `json:"cannot_share_to_users"`
	Recommendations    []struct {
		UserID     int64   `json:"user_id"`
		Email      string  `json:"email"`
		SourceType string  `json:"source_type"`
		GrantURL   *string `json:"grant_url,omitempty"`
	} `json:"recommendations,omitempty"`
}

func newKBCmd(client *Client) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kb",
		Short: "Manage knowledge bases, bindings, and grants",
	}

	cmd.AddCommand(newKBListCmd(client))
	cmd.AddCommand(newKBCreateCmd(client))
	cmd.AddCommand(newKBDeleteCmd(client))
	cmd.AddCommand(newKBBindingsCmd(client))
	cmd.AddCommand(newKBBindCmd(client))
	cmd.AddCommand(newKBGrantCmd(client))
	cmd.AddCommand(newKBRevokeCmd(client))
	cmd.AddCommand(newKBValidateShareCmd(client))
	cmd.AddCommand(newKBReadyUsersCmd(client))

	return cmd
}

func newKBListCmd(client *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List knowledge bases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var kbs []kbOut
			if err := getJSON(client, "/knowledge-bases", nil, &kbs); err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(os.Stdout, kbs)
			}
			rows := make([][]string, len(kbs))
			for i, kb := range kbs {
				rows[i] = []string{
					strconv.FormatInt(kb.ID, 10), kb.Name,
					strconv.FormatBool(kb.IsPublic), kb.Description,
				}
			}
			return printTable(os.Stdout, []string{"ID", "NAME", "PUBLIC", "DESCRIPTION"}, rows)
		},
	}
}

func newKBCreateCmd(client *Client) *cobra.Command {
	var (
		description string
		public      bool
	)

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a knowledge base",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var kb kbOut
			body := map[string]interface{}{
				"name":        args[0],
				"description": description,
				"is_public":   public,
			}
			if err := postJSON(client, "/knowledge-bases", body, &kb); err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(os.Stdout, kb)
			}
			fmt.Fprintf(os.Stdout, "Knowledge base %d created: %s\n", kb.ID, kb.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "Knowledge base description")
	cmd.Flags().BoolVar(&public, "public", false, "Visible to every user")

	return cmd
}

func newKBDeleteCmd(client *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <kb-id>",
		Short: "Delete a knowledge base",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := doNoContent(client, http.MethodDelete, "/knowledge-bases/"+args[0]); err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(os.Stdout, map[string]string{"status": "deleted"})
			}
			fmt.Fprintln(os.Stdout, "Knowledge base deleted.")
			return nil
		},
	}
}

func newKBBindingsCmd(client *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "bindings <kb-id>",
		Short: "List a knowledge base's source bindings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var bindings []bindingOut
			if err := getJSON(client, "/knowledge-bases/"+args[0]+"/bindings", nil, &bindings); err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(os.Stdout, bindings)
			}
			rows := make([][]string, len(bindings))
			for i, b := range bindings {
				rows[i] = []string{
					strconv.FormatInt(b.ID, 10), b.SourceType, b.ExternalID,
					b.Name, strconv.FormatBool(b.AccessControlled),
				}
			}
			return printTable(os.Stdout,
				[]string{"ID", "SOURCE", "EXTERNAL ID", "NAME", "RESTRICTED"}, rows)
		},
	}
}

func newKBBindCmd(client *Client) *cobra.Command {
	var (
		name       string
		bindURL    string
		grantURL   string
		restricted bool
	)

	cmd := &cobra.Command{
		Use:   "bind <kb-id> <source-type> <external-id>",
		Short: "Bind an external source to a knowledge base",
		Example: `  kbhub kb bind 3 sharepoint site-abc123 --restricted --name "Finance Site"
  kbhub kb bind 3 gdrive folder-xyz --name "Shared Drive"`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]interface{}{
				"source_type":       args[1],
				"external_id":       args[2],
				"name":              name,
				"url":               bindURL,
				"access_controlled": restricted,
			}
			if grantURL != "" {
				body["grant_url"] = grantURL
			}
			var b bindingOut
			if err := postJSON(client, "/knowledge-bases/"+args[0]+"/bindings", body, &b); err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(os.Stdout, b)
			}
			fmt.Fprintf(os.Stdout, "Binding %d created: %s/%s\n", b.ID, b.SourceType, b.ExternalID)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name for the binding")
	cmd.Flags().StringVar(&bindURL, "url", "", "Link to the source resource")
	cmd.Flags().StringVar(&grantURL, "grant-url", "", "Link where access can be requested")
	cmd.Flags().BoolVar(&restricted, "restricted", false, "Source enforces its own access control")

	return cmd
}

func newKBGrantCmd(client *Client) *cobra.Command {
	var (
		userID  int64
		groupID int64
	)

	cmd := &cobra.Command{
		Use:   "grant <kb-id>",
		Short: "Grant a user or group access to a knowledge base",
		Example: `  kbhub kb grant 3 --user 7
  kbhub kb grant 3 --group 2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := grantPath(args[0], userID, groupID)
			if err != nil {
				return err
			}
			if err := postJSON(client, path, nil, nil); err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(os.Stdout, map[string]string{"status": "granted"})
			}
			fmt.Fprintln(os.Stdout, "Access granted.")
			return nil
		},
	}

	cmd.Flags().Int64Var(&userID, "user", 0, "User ID to grant")
	cmd.Flags().Int64Var(&groupID, "group", 0, "Group ID to grant")

	return cmd
}

func newKBRevokeCmd(client *Client) *cobra.Command {
	var (
		userID  int64
		groupID int64
	)

	cmd := &cobra.Command{
		Use:   "revoke <kb-id>",
		Short: "Revoke a user or group grant on a knowledge base",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := grantPath(args[0], userID, groupID)
			if err != nil {
				return err
			}
			if err := doNoContent(client, http.MethodDelete, path); err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(os.Stdout, map[string]string{"status": "revoked"})
			}
			fmt.Fprintln(os.Stdout, "Access revoked.")
			return nil
		},
	}

	cmd.Flags().Int64Var(&userID, "user", 0, "User ID to revoke")
	cmd.Flags().Int64Var(&groupID, "group", 0, "Group ID to revoke")

	return cmd
}

// grantPath resolves the grants endpoint from the mutually exclusive
// --user/--group flags.
func grantPath(kbID string, userID, groupID int64) (string, error) {
	switch {
	case userID != 0 && groupID != 0:
		return "", fmt.Errorf("--user and --group are mutually exclusive")
	case userID != 0:
		return "/knowledge-bases/" + kbID + "/grants/users/" + strconv.FormatInt(userID, 10), nil
	case groupID != 0:
		return "/knowledge-bases/" + kbID + "/grants/groups/" + strconv.FormatInt(groupID, 10), nil
	default:
		return "", fmt.Errorf("one of --user or --group is required")
	}
}

func newKBValidateShareCmd(client *Client) *cobra.Command {
	var (
		userIDs  []int64
		groupIDs []int64
	)

	cmd := &cobra.Command{
		Use:   "validate-share <kb-id>",
		Short: "Check which of the given users and groups can access a knowledge base",
		Example: `  kbhub kb validate-share 3 --user 7 --user 8 --group 2
  kbhub kb validate-share 3 --group 2 --output json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]interface{}{
				"user_ids":  userIDs,
				"group_ids": groupIDs,
			}
			var out shareValidationOut
			if err := postJSON(client, "/knowledge-bases/"+args[0]+"/validate-share", body, &out); err != nil {
				return err
			}
			return printShareValidation(cmd, out)
		},
	}

	cmd.Flags().Int64SliceVar(&userIDs, "user", nil, "User ID to check (repeatable)")
	cmd.Flags().Int64SliceVar(&groupIDs, "group", nil, "Group ID to check (repeatable)")

	return cmd
}

func newKBReadyUsersCmd(client *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "ready-users <kb-id>",
		Short: "List users who already hold access to every restricted source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out shareValidationOut
			if err := getJSON(client, "/knowledge-bases/"+args[0]+"/users-ready-for-access", nil, &out); err != nil {
				return err
			}
			return printShareValidation(cmd, out)
		},
	}
}

func printShareValidation(cmd *cobra.Command, out shareValidationOut) error {
	if getOutputFormat(cmd) == "json" {
		return PrintJSON(os.Stdout, out)
	}
	fmt.Fprintf(os.Stdout, "Shareable: %t (source restricted: %t)\n", out.CanShare, out.SourceRestricted)
	rows := make([][]string, 0, len(out.CanShareToUsers)+len(out.CannotShareToUsers))
	for _, u := range out.CanShareToUsers {
		rows = append(rows, []string{strconv.FormatInt(u.ID, 10), u.Email, "yes"})
	}
	for _, u := range out.CannotShareToUsers {
		rows = append(rows, []string{strconv.FormatInt(u.ID, 10), u.Email, "no"})
	}
	if err := printTable(os.Stdout, []string{"ID", "EMAIL", "CAN ACCESS"}, rows); err != nil {
		return err
	}
	for _, rec := range out.Recommendations {
		if rec.GrantURL != nil {
			fmt.Fprintf(os.Stdout, "Grant %s access to %s: %s\n", rec.Email, rec.SourceType, *rec.GrantURL)
		} else {
			fmt.Fprintf(os.Stdout, "Grant %s access to %s\n", rec.Email, rec.SourceType)
		}
	}
	return nil
}
