package cli

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

type groupOut struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func newGroupCmd(client *Client) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "group",
		Short: "Manage groups and their members",
	}

	cmd.AddCommand(newGroupListCmd(client))
	cmd.AddCommand(newGroupCreateCmd(client))
	cmd.AddCommand(newGroupDeleteCmd(client))
	cmd.AddCommand(newGroupMembersCmd(client))
	cmd.AddCommand(newGroupAddMemberCmd(client))
	cmd.AddCommand(newGroupRemoveMemberCmd(client))
	cmd.AddCommand(newGroupConflictsCmd(client))

	return cmd
}

func newGroupListCmd(client *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List groups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var groups []groupOut
			if err := getJSON(client, "/groups", nil, &groups); err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(os.Stdout, groups)
			}
			rows := make([][]string, len(groups))
			for i, g := range groups {
				rows[i] = []string{strconv.FormatInt(g.ID, 10), g.Name, g.Description}
			}
			return printTable(os.Stdout, []string{"ID", "NAME", "DESCRIPTION"}, rows)
		},
	}
}

func newGroupCreateCmd(client *Client) *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var g groupOut
			body := map[string]string{"name": args[0], "description": description}
			if err := postJSON(client, "/groups", body, &g); err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(os.Stdout, g)
			}
			fmt.Fprintf(os.Stdout, "Group %d created: %s\n", g.ID, g.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "Group description")

	return cmd
}

func newGroupDeleteCmd(client *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <group-id>",
		Short: "Delete a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := doNoContent(client, http.MethodDelete, "/groups/"+args[0]); err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(os.Stdout, map[string]string{"status": "deleted"})
			}
			fmt.Fprintln(os.Stdout, "Group deleted.")
			return nil
		},
	}
}

func newGroupMembersCmd(client *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "members <group-id>",
		Short: "List a group's members",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var users []userOut
			if err := getJSON(client, "/groups/"+args[0]+"/members", nil, &users); err != nil {
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

func newGroupAddMemberCmd(client *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "add-member <group-id> <user-id>",
		Short: "Add a user to a group",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid user id %q", args[1])
			}
			body := map[string]int64{"user_id": userID}
			if err := postJSON(client, "/groups/"+args[0]+"/members", body, nil); err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(os.Stdout, map[string]string{"status": "added"})
			}
			fmt.Fprintln(os.Stdout, "Member added.")
			return nil
		},
	}
}

func newGroupRemoveMemberCmd(client *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "remove-member <group-id> <user-id>",
		Short: "Remove a user from a group",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/groups/" + args[0] + "/members/" + args[1]
			if err := doNoContent(client, http.MethodDelete, path); err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(os.Stdout, map[string]string{"status": "removed"})
			}
			fmt.Fprintln(os.Stdout, "Member removed.")
			return nil
		},
	}
}

func newGroupConflictsCmd(client *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "conflicts <group-id> <candidate-user-id>",
		Short: "Preview source-access conflicts before adding a user to a group",
		Long: `Check which knowledge bases shared with a group would block the candidate
user, and which existing members would be newly blocked, before the
membership change is made.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			q.Set("candidate_user_id", args[1])
			var conflicts []struct {
				KnowledgeBaseID   int64  `json:"knowledge_base_id"`
				KnowledgeBaseName string `json:"knowledge_base_name"`
				MissingSources    []struct {
					SourceType string `json:"source_type"`
					Name       string `json:"name"`
				} `json:"missing_sources"`
				OthersMissing []userOut `json:"others_missing"`
			}
			if err := getJSON(client, "/groups/"+args[0]+"/membership-conflicts", q, &conflicts); err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(os.Stdout, conflicts)
			}
			if len(conflicts) == 0 {
				fmt.Fprintln(os.Stdout, "No conflicts: the user can be added safely.")
				return nil
			}
			rows := make([][]string, len(conflicts))
			for i, c := range conflicts {
				missing := make([]string, len(c.MissingSources))
				for j, m := range c.MissingSources {
					missing[j] = m.SourceType + ":" + m.Name
				}
				rows[i] = []string{
					strconv.FormatInt(c.KnowledgeBaseID, 10),
					c.KnowledgeBaseName,
					strconv.Itoa(len(c.OthersMissing)),
					joinOrDash(missing),
				}
			}
			return printTable(os.Stdout,
				[]string{"KB ID", "KNOWLEDGE BASE", "OTHERS MISSING", "MISSING SOURCES"}, rows)
		},
	}
}

func joinOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	out := items[0]
	for _, s := range items[1:] {
		out += ", " + s
	}
	return out
}
