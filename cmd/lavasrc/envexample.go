package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

type envSection struct {
	title string
	flags []string
	// suggested flags are written commented out with the suggested value.
	suggested map[string]string
}

var envSections = []envSection{
	{
		title: "Lavalink",
		flags: []string{"lavalink-node-name", "lavalink-address", "lavalink-password", "lavalink-secure", "lavalink-user-id"},
	},
	{
		title: "Spotify (optional, enables Spotify links and playlists)",
		flags: []string{"spotify-client-id", "spotify-client-secret", "spotify-market"},
	},
	{
		title: "Mirror providers",
		flags: []string{"mirror-providers", "mirroring-prefixes", "mirror-load-timeout"},
	},
	{
		title: "Match scoring",
		flags: []string{
			"advanced-sources", "title-threshold", "author-threshold", "total-match-threshold", "skip-restricted",
			"level-one-penalty", "level-two-penalty", "level-three-penalty",
		},
		suggested: map[string]string{"level-one-penalty": "1", "level-two-penalty": "2", "level-three-penalty": "0.8"},
	},
	{
		title: "Cache",
		flags: []string{"cache-size", "cache-ttl", "cache-bloom-fp-rate"},
	},
	{
		title: "HTTP server",
		flags: []string{"server-host", "server-port", "flood-limit-per-minute"},
	},
	{
		title: "Logging",
		flags: []string{"log-level", "log-format"},
	},
}

func generateEnvExample(cmd *cobra.Command) error {
	fmt.Println("Generating .env.example file from current configuration...")

	content := generateEnvExampleContent(cmd.Root())

	if err := os.WriteFile(".env.example", []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write .env.example: %w", err)
	}

	fmt.Println("Successfully generated .env.example file")
	return nil
}

func generateEnvExampleContent(cmd *cobra.Command) string {
	var content strings.Builder

	content.WriteString("# =============================================================================\n")
	content.WriteString("# lavasrc Configuration\n")
	content.WriteString("# =============================================================================\n")
	content.WriteString("#\n")
	content.WriteString("# Copy this file to .env and update with your values\n")
	content.WriteString("# All environment variables have CLI flag equivalents (use --help to see them)\n")
	content.WriteString("#\n")
	fmt.Fprintf(&content, "# Format: %s_<SETTING>=value, lists are separated with %q\n", envPrefix, listSeparator)
	content.WriteString("# CLI equivalent: --<setting>\n")
	content.WriteString("# =============================================================================\n\n")

	for _, section := range envSections {
		writeEnvSection(&content, cmd, section)
	}

	return content.String()
}

func writeEnvSection(content *strings.Builder, cmd *cobra.Command, section envSection) {
	content.WriteString("# -----------------------------------------------------------------------------\n")
	fmt.Fprintf(content, "# %s\n", section.title)
	content.WriteString("# -----------------------------------------------------------------------------\n")

	for _, name := range section.flags {
		f := cmd.PersistentFlags().Lookup(name)
		if f == nil {
			continue
		}
		if value, ok := section.suggested[name]; ok {
			fmt.Fprintf(content, "# %s=%s  # %s\n", flagToEnvVar(name), value, f.Usage)
			continue
		}
		fmt.Fprintf(content, "%s=%s  # %s\n", flagToEnvVar(name), getDefaultValueString(cmd, name), f.Usage)
	}
	content.WriteString("\n")
}

func flagToEnvVar(flagName string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))
}

func getDefaultValueString(cmd *cobra.Command, flagName string) string {
	f := cmd.PersistentFlags().Lookup(flagName)
	if f == nil {
		return ""
	}
	if f.Value.Type() == "stringArray" {
		values, err := cmd.PersistentFlags().GetStringArray(flagName)
		if err == nil {
			return strings.Join(values, listSeparator)
		}
	}
	return f.DefValue
}
