package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/forest6511/credsafe/internal/config"
	"github.com/forest6511/credsafe/pkg/vault"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate completion script for your shell",
	Long: `To load completions:

Bash:
  $ source <(credsafe completion bash)

  # To load for each session (Linux):
  $ credsafe completion bash > ~/.local/share/bash-completion/completions/credsafe

Zsh:
  $ credsafe completion zsh > ~/.zsh/completions/_credsafe
  # (create ~/.zsh/completions if needed, add to fpath in .zshrc)

Fish:
  $ credsafe completion fish > ~/.config/fish/completions/credsafe.fish

PowerShell:
  PS> credsafe completion powershell >> $PROFILE

Entry labels are stored in plaintext, so get, edit and rm complete them
without asking for the master key.
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	Annotations:           map[string]string{sessionAnnotation: sessionNone},
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		switch args[0] {
		case "bash":
			return cmd.Root().GenBashCompletion(out)
		case "zsh":
			return cmd.Root().GenZshCompletion(out)
		case "fish":
			return cmd.Root().GenFishCompletion(out, true)
		case "powershell":
			return cmd.Root().GenPowerShellCompletionWithDesc(out)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
}

// completeEntries completes entry labels. It reads the vault file without
// taking locks or prompting, and completes nothing on any error.
func completeEntries(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	labels, err := entriesForCompletion()
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	var filtered []string
	for _, l := range labels {
		if strings.HasPrefix(l, toComplete) {
			filtered = append(filtered, l)
		}
	}
	return filtered, cobra.ShellCompDirectiveNoFileComp
}

func entriesForCompletion() ([]string, error) {
	home, err := config.ResolveHome(homeFlag)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(home)
	if err != nil {
		return nil, err
	}
	return vault.NewStore(cfg.VaultFile).Entries()
}
