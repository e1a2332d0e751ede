package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cloudposse/weave/pkg/ai/macro"
	"github.com/cloudposse/weave/pkg/request"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve a prompt template against a conversation",
	Long: `Resolve the {{macros}} of a template against the configured character and the
messages of a chat-completion body.

Examples:
  weave resolve --template '{{char}} talks to {{user}}'
  weave resolve --template '{{lastNMessages:4}}' --chat request.json
  weave resolve --template '{{messages:-2:-1}}' --chat - < request.json
  weave resolve --template '{{mood}}' --set mood=grim`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		template, _ := flags.GetString("template")
		chatPath, _ := flags.GetString("chat")
		char, _ := flags.GetString("char")
		user, _ := flags.GetString("user")
		extra, _ := flags.GetStringToString("set")

		var req *request.Request
		if chatPath != "" {
			var err error
			if _, req, err = readRequest(cmd, chatPath); err != nil {
				return err
			}
		}

		ctx := macroContext(&weaveConfig.Settings, req)
		if char != "" {
			ctx.CharacterName = char
		}
		if user != "" {
			ctx.UserName = user
		}
		ctx = ctx.WithExtra(extra)

		fmt.Fprintln(cmd.OutOrStdout(), macro.Resolve(template, ctx))
		return nil
	},
}

func init() {
	resolveCmd.Flags().StringP("template", "t", "", "Template to resolve")
	resolveCmd.Flags().String("chat", "", "Chat-completion body supplying the history ('-' reads stdin)")
	resolveCmd.Flags().String("char", "", "Character name (overrides settings.character.name)")
	resolveCmd.Flags().String("user", "", "User name (overrides settings.user_name)")
	resolveCmd.Flags().StringToString("set", nil, "Extra macro values as key=value")
	_ = resolveCmd.MarkFlagRequired("template")

	RootCmd.AddCommand(resolveCmd)
}
