package cli

import (
	"github.com/spf13/cobra"
)

// NewCompletionCommand creates the completion command for generating shell completion scripts.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for stackpick.

To load completions:

Bash:
  $ source <(stackpick completion bash)
  # To load completions for each session, execute once:
  # Linux:
  $ stackpick completion bash > /etc/bash_completion.d/stackpick
  # macOS:
  $ stackpick completion bash > $(brew --prefix)/etc/bash_completion.d/stackpick

Zsh:
  $ source <(stackpick completion zsh)
  # To load completions for each session, execute once:
  $ stackpick completion zsh > "${fpath[1]}/_stackpick"

Fish:
  $ stackpick completion fish | source
  # To load completions for each session, execute once:
  $ stackpick completion fish > ~/.config/fish/completions/stackpick.fish

PowerShell:
  PS> stackpick completion powershell | Out-String | Invoke-Expression
  # To load completions for each session, add to your profile:
  PS> stackpick completion powershell > stackpick.ps1
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(cmd.OutOrStdout())
			case "zsh":
				return cmd.Root().GenZshCompletion(cmd.OutOrStdout())
			case "fish":
				return cmd.Root().GenFishCompletion(cmd.OutOrStdout(), true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(cmd.OutOrStdout())
			}
			return nil
		},
	}
	return cmd
}
