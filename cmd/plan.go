package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	errUtils "github.com/cloudposse/weave/errors"
	"github.com/cloudposse/weave/pkg/ai/injection"
	"github.com/cloudposse/weave/pkg/ai/types"
	"github.com/cloudposse/weave/pkg/request"
)

// placementOutput is the printed form of a placement.
type placementOutput struct {
	Index       int  `yaml:"index"`
	MergeTarget *int `yaml:"merge_target"`
	Messages    int  `yaml:"messages"`
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show where retrieved context would be placed in a conversation",
	Long: `Compute the placement of an injected message without calling any model.

Flags that are not given fall back to settings.retrieval.injection. With --content the
injection is applied and the resulting body is printed instead of the placement.

Examples:
  weave plan --chat request.json
  weave plan --chat request.json --position depth --depth -2 --role system
  weave plan --chat request.json --merge --role assistant --content 'The sword is cursed.'`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		chatPath, _ := flags.GetString("chat")
		content, _ := flags.GetString("content")

		spec, err := planSpec(cmd)
		if err != nil {
			return err
		}

		body, req, err := readRequest(cmd, chatPath)
		if err != nil {
			return err
		}

		if flags.Changed("content") {
			req.Messages, _ = injection.Apply(req.Messages, spec, content)
			out, err := request.ApplyToBody(body, req, false)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(append(out, '\n'))
			return err
		}

		placement := injection.Plan(req.Messages, spec)
		result := placementOutput{Index: placement.Index, Messages: len(req.Messages)}
		if placement.Merges() {
			result.MergeTarget = &placement.MergeTarget
		}

		enc := yaml.NewEncoder(cmd.OutOrStdout())
		defer enc.Close()
		return enc.Encode(result)
	},
}

// planSpec layers the command-line flags over the configured injection settings.
func planSpec(cmd *cobra.Command) (injection.Spec, error) {
	flags := cmd.Flags()
	spec := weaveConfig.Settings.Retrieval.Injection.Spec()

	if flags.Changed("position") {
		value, _ := flags.GetString("position")
		position, err := injection.ParsePosition(value)
		if err != nil {
			return spec, usage(err, "position")
		}
		spec.Position = position
	}
	if flags.Changed("role") {
		value, _ := flags.GetString("role")
		role, err := types.ParseRole(value)
		if err == nil && role == types.RoleTool {
			err = fmt.Errorf("%w `tool`: injected messages must be system, user or assistant", errUtils.ErrInvalidRole)
		}
		if err != nil {
			return spec, usage(err, "role")
		}
		spec.Role = role
	}
	if flags.Changed("depth") {
		spec.Depth, _ = flags.GetInt("depth")
	}
	if flags.Changed("merge") {
		spec.Merge, _ = flags.GetBool("merge")
	}
	return spec, nil
}

func usage(err error, flag string) error {
	return errUtils.Build(err).WithContext("flag", flag).WithExitCode(errUtils.ExitCodeUsage).Err()
}

func init() {
	planCmd.Flags().String("chat", "-", "Chat-completion body ('-' reads stdin)")
	planCmd.Flags().String("position", "", "Placement: start or depth")
	planCmd.Flags().Int("depth", 0, "Offset from the end for depth placement: 0 appends, -1 inserts before the last message")
	planCmd.Flags().String("role", "", "Role of the injected message: system, user or assistant")
	planCmd.Flags().Bool("merge", false, "Merge into the neighbouring message when it has the same role")
	planCmd.Flags().String("content", "", "Apply the injection with this content and print the body")

	RootCmd.AddCommand(planCmd)
}
