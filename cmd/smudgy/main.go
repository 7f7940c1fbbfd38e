package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/smudgy/smudgy/internal/config"
	"github.com/smudgy/smudgy/internal/transport"
)

func main() {
	root := &cobra.Command{
		Use:   "smudgy",
		Short: "smudgy — a multi-session MUD client",
		Long:  "Controls the smudgyd daemon: connect sessions, send lines, inspect triggers, aliases, and the shared map.",
	}

	root.AddCommand(
		connectCmd(),
		disconnectCmd(),
		sendCmd(),
		sessionsCmd(),
		triggersCmd(),
		aliasesCmd(),
		enableCmd(),
		disableCmd(),
		reloadCmd(),
		snapshotCmd(),
		mapCmd(),
		profilesCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func clientFromConfig() *transport.Client {
	userConfigDir, err := config.GetUserConfigDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error resolving user config dir: %v\n", err)
		os.Exit(1)
	}
	projectDir, err := config.GetProjectDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error resolving project dir: %v\n", err)
		os.Exit(1)
	}

	m := config.NewManager()
	if err := m.Load(userConfigDir, projectDir); err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(1)
	}
	return transport.NewClient(m.Get().ControlSocketPath)
}

func connectCmd() *cobra.Command {
	var character string
	var profileName string
	cmd := &cobra.Command{
		Use:   "connect <session-id> [host] [port]",
		Short: "Open a new session against a MUD",
		Long:  "Open a new session. Pass host and port directly, or --profile a name saved with 'smudgy profiles set'.",
		Args:  cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			host, port, char, err := resolveConnectTarget(args, profileName, character)
			if err != nil {
				return err
			}
			c := clientFromConfig()
			if err := c.Connect(args[0], host, port, char); err != nil {
				return err
			}
			fmt.Printf("connecting %s to %s:%d\n", args[0], host, port)
			return nil
		},
	}
	cmd.Flags().StringVar(&character, "character", "", "character name, for cross-session introspection")
	cmd.Flags().StringVar(&profileName, "profile", "", "named profile from profiles.yaml (host/port/character)")
	return cmd
}

// resolveConnectTarget merges explicit host/port args with a named
// profile: explicit args win field-by-field, so `--profile aardwolf
// --character Mip` can override just the character a profile recorded.
func resolveConnectTarget(args []string, profileName, character string) (host string, port int, char string, err error) {
	if profileName != "" {
		userConfigDir, derr := config.GetUserConfigDir()
		if derr != nil {
			return "", 0, "", derr
		}
		pf, derr := config.LoadProfiles(userConfigDir)
		if derr != nil {
			return "", 0, "", derr
		}
		p, ok := pf.Profiles[profileName]
		if !ok {
			return "", 0, "", fmt.Errorf("no profile named %q", profileName)
		}
		host, port, char = p.Host, p.Port, p.Character
	}

	if len(args) >= 2 {
		host = args[1]
	}
	if len(args) >= 3 {
		port, err = strconv.Atoi(args[2])
		if err != nil {
			return "", 0, "", fmt.Errorf("invalid port %q: %w", args[2], err)
		}
	}
	if character != "" {
		char = character
	}

	if host == "" || port == 0 {
		return "", 0, "", fmt.Errorf("need a host and port, either as arguments or via --profile")
	}
	return host, port, char, nil
}

func disconnectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disconnect <session-id>",
		Short: "Close a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return clientFromConfig().Disconnect(args[0])
		},
	}
}

func sendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <session-id> <line...>",
		Short: "Send a line of input to a session, through its alias registry",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			line := args[1]
			for _, extra := range args[2:] {
				line += " " + extra
			}
			return clientFromConfig().Send(args[0], line)
		},
	}
}

func sessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List active session IDs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := clientFromConfig().ListSessions()
			if err != nil {
				return err
			}
			if len(ids) == 0 {
				fmt.Println("no sessions")
				return nil
			}
			for _, id := range ids {
				fmt.Println(id)
			}
			return nil
		},
	}
}

func triggersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "triggers <session-id>",
		Short: "List a session's trigger names",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := clientFromConfig().ListTriggers(args[0])
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Println(name)
			}
			return nil
		},
	}
}

func aliasesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "aliases <session-id>",
		Short: "List a session's alias names",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := clientFromConfig().ListAliases(args[0])
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Println(name)
			}
			return nil
		},
	}
}

func enableCmd() *cobra.Command {
	var isAlias bool
	cmd := &cobra.Command{
		Use:   "enable <session-id> <name>",
		Short: "Enable a trigger or alias by name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return clientFromConfig().SetEnabled(args[0], args[1], isAlias, true)
		},
	}
	cmd.Flags().BoolVar(&isAlias, "alias", false, "target is an alias, not a trigger")
	return cmd
}

func disableCmd() *cobra.Command {
	var isAlias bool
	cmd := &cobra.Command{
		Use:   "disable <session-id> <name>",
		Short: "Disable a trigger or alias by name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return clientFromConfig().SetEnabled(args[0], args[1], isAlias, false)
		},
	}
	cmd.Flags().BoolVar(&isAlias, "alias", false, "target is an alias, not a trigger")
	return cmd
}

func reloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reload <session-id>",
		Short: "Clear a session's triggers and aliases (startup scripts are not re-run)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return clientFromConfig().Reload(args[0])
		},
	}
}

func snapshotCmd() *cobra.Command {
	var fromLine int64
	var limit int
	cmd := &cobra.Command{
		Use:   "snapshot <session-id>",
		Short: "Print a session's scrollback",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lines, err := clientFromConfig().Snapshot(args[0], fromLine, limit)
			if err != nil {
				return err
			}
			for _, l := range lines {
				fmt.Printf("%6d %s\n", l.Number, l.Text)
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&fromLine, "from-line", 0, "earliest line number to include")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of lines to print (0 = unbounded)")
	return cmd
}

func mapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "map",
		Short: "Inspect the shared map cache",
	}
	cmd.AddCommand(mapAreasCmd(), mapSearchCmd())
	return cmd
}

func mapAreasCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "areas",
		Short: "List known area IDs",
		RunE: func(cmd *cobra.Command, args []string) error {
			areas, err := clientFromConfig().MapListAreas()
			if err != nil {
				return err
			}
			for _, a := range areas {
				fmt.Println(string(a))
			}
			return nil
		},
	}
}

func mapSearchCmd() *cobra.Command {
	var title, description string
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search rooms by title/description substring",
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := clientFromConfig().MapSearch(title, description)
			if err != nil {
				return err
			}
			for _, r := range results {
				fmt.Println(string(r))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "title substring")
	cmd.Flags().StringVar(&description, "description", "", "description substring")
	return cmd
}

func profilesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "Manage saved connection profiles (~/.smudgy/profiles.yaml)",
	}
	cmd.AddCommand(profilesListCmd(), profilesSetCmd(), profilesRemoveCmd())
	return cmd
}

func profilesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			userConfigDir, err := config.GetUserConfigDir()
			if err != nil {
				return err
			}
			pf, err := config.LoadProfiles(userConfigDir)
			if err != nil {
				return err
			}
			for name, p := range pf.Profiles {
				fmt.Printf("%s\t%s:%d\t%s\n", name, p.Host, p.Port, p.Character)
			}
			return nil
		},
	}
}

func profilesSetCmd() *cobra.Command {
	var character string
	cmd := &cobra.Command{
		Use:   "set <name> <host> <port>",
		Short: "Save or update a connection profile",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			port, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("invalid port %q: %w", args[2], err)
			}
			userConfigDir, err := config.GetUserConfigDir()
			if err != nil {
				return err
			}
			pf, err := config.LoadProfiles(userConfigDir)
			if err != nil {
				return err
			}
			pf.Set(args[0], config.Profile{Host: args[1], Port: port, Character: character})
			return pf.Save(userConfigDir)
		},
	}
	cmd.Flags().StringVar(&character, "character", "", "character name to store with this profile")
	return cmd
}

func profilesRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Delete a saved profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userConfigDir, err := config.GetUserConfigDir()
			if err != nil {
				return err
			}
			pf, err := config.LoadProfiles(userConfigDir)
			if err != nil {
				return err
			}
			if _, ok := pf.Profiles[args[0]]; !ok {
				return fmt.Errorf("no profile named %q", args[0])
			}
			delete(pf.Profiles, args[0])
			return pf.Save(userConfigDir)
		},
	}
}
