package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// NewUsersCmd builds `users list|add|remove`, a thin line-oriented
// editor over the poller's users file — the "user-list editor"
// external collaborator named in the purpose section, implemented
// in-tree since it is trivial enough not to warrant a real external
// tool.
func NewUsersCmd(deps *Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "List or edit the poller's users file",
	}
	cmd.AddCommand(newUsersListCmd(deps), newUsersAddCmd(deps), newUsersRemoveCmd(deps))
	return cmd
}

func newUsersListCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print every username in the users file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			users, err := readUsersFile(deps.Config.Poller.UsersFile)
			if err != nil {
				return err
			}
			for _, u := range users {
				fmt.Fprintln(os.Stdout, u)
			}
			return nil
		},
	}
}

func newUsersAddCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "add <username>",
		Short: "Add a username to the users file if not already present",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			username := args[0]
			users, err := readUsersFile(deps.Config.Poller.UsersFile)
			if err != nil {
				return err
			}
			for _, u := range users {
				if u == username {
					fmt.Fprintf(os.Stdout, "%s is already listed\n", username)
					return nil
				}
			}
			users = append(users, username)
			return writeUsersFile(deps.Config.Poller.UsersFile, users)
		},
	}
}

func newUsersRemoveCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <username>",
		Short: "Remove a username from the users file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			username := args[0]
			users, err := readUsersFile(deps.Config.Poller.UsersFile)
			if err != nil {
				return err
			}
			kept := make([]string, 0, len(users))
			for _, u := range users {
				if u != username {
					kept = append(kept, u)
				}
			}
			return writeUsersFile(deps.Config.Poller.UsersFile, kept)
		},
	}
}

func readUsersFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var users []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		users = append(users, line)
	}
	return users, scanner.Err()
}

func writeUsersFile(path string, users []string) error {
	var b strings.Builder
	for _, u := range users {
		b.WriteString(u)
		b.WriteString("\n")
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}
