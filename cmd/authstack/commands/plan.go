package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/systmms/authstack/internal/config"
	"github.com/systmms/authstack/internal/deploy"
)

func NewPlanCommand(cfg *config.Config) *cobra.Command {
	var outputJSON bool

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the ordered deployment steps without executing them",
		Long: `Plan prints the runbook that deploy would execute: every step in order,
with the resources it requires and produces. Nothing talks to the cluster.

This is useful for reviewing what a deploy will touch and for debugging
configuration (release names, namespaces, secret names are all derived from
authstack.yaml).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Load configuration
			if err := cfg.Load(); err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			plan := deploy.BuildPlan(cfg.Definition)
			if err := plan.Validate(); err != nil {
				return fmt.Errorf("internal plan error: %w", err)
			}

			if outputJSON {
				return outputPlanJSON(plan)
			}
			return outputPlanTable(plan)
		},
	}

	cmd.Flags().BoolVar(&outputJSON, "json", false, "Output in JSON format")

	return cmd
}

// outputPlanJSON outputs the plan as JSON
func outputPlanJSON(plan *deploy.Plan) error {
	type jsonStep struct {
		Name        string   `json:"name"`
		Description string   `json:"description"`
		Requires    []string `json:"requires,omitempty"`
		Produces    []string `json:"produces,omitempty"`
	}

	steps := make([]jsonStep, 0, len(plan.Steps))
	for _, step := range plan.Steps {
		js := jsonStep{Name: step.Name, Description: step.Description}
		for _, req := range step.Requires {
			js.Requires = append(js.Requires, req.String())
		}
		for _, prod := range step.Produces {
			js.Produces = append(js.Produces, prod.String())
		}
		steps = append(steps, js)
	}

	output := map[string]interface{}{
		"steps": steps,
		"summary": map[string]interface{}{
			"total_steps": len(steps),
		},
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

// outputPlanTable outputs the plan as a formatted table
func outputPlanTable(plan *deploy.Plan) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintf(w, "#\tSTEP\tREQUIRES\tPRODUCES\n")
	_, _ = fmt.Fprintf(w, "-\t----\t--------\t--------\n")

	for i, step := range plan.Steps {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\n",
			i+1,
			step.Name,
			resourceList(step.Requires),
			resourceList(step.Produces),
		)
	}

	_ = w.Flush()

	fmt.Printf("\nSummary:\n")
	fmt.Printf("  Total steps: %d\n", len(plan.Steps))
	fmt.Printf("\nNext steps:\n")
	fmt.Printf("  • Run 'authstack preflight' to verify the core prerequisites\n")
	fmt.Printf("  • Run 'authstack deploy' to execute the plan\n")

	return nil
}

// resourceList renders a resource slice for one table cell.
func resourceList(resources []deploy.Resource) string {
	if len(resources) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(resources))
	for _, res := range resources {
		parts = append(parts, res.String())
	}
	return strings.Join(parts, ", ")
}
