// Command epihiper-analyzer validates a disease model document and reports
// its structure: states, transmission/progression counts, and any reachable
// state with no outgoing progression, to catch modeling mistakes before a run
// (spec.md §6 "Model analyzer tool").
package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/epihiper-go/epihiper/internal/config"
	"github.com/epihiper-go/epihiper/internal/diseasemodel"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string
	var modelPath string

	cmd := &cobra.Command{
		Use:   "epihiper-analyzer",
		Short: "Validate a disease model and report its state/transition structure",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, configPath, modelPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "run-parameter JSON document to read the disease model path from")
	cmd.Flags().StringVar(&modelPath, "model", "", "disease-model JSON document (overrides --config)")
	return cmd
}

func run(cmd *cobra.Command, configPath, modelPath string) error {
	if modelPath == "" && configPath == "" {
		return errors.New("epihiper-analyzer: --model or --config is required")
	}
	if modelPath == "" {
		path, err := modelPathFromConfig(configPath)
		if err != nil {
			return err
		}
		modelPath = path
	}

	model, err := diseasemodel.LoadModel(modelPath)
	if err != nil {
		return errors.Wrap(err, "epihiper-analyzer: load")
	}
	if err := model.Validate(); err != nil {
		return errors.Wrap(err, "epihiper-analyzer: invalid model")
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "states: %d\n", len(model.States))
	for i, name := range model.States {
		fmt.Fprintf(out, "  %d: %s\n", i, name)
	}
	fmt.Fprintf(out, "transmissions: %d\n", len(model.Transmissions))
	for _, t := range model.Transmissions {
		fmt.Fprintf(out, "  %s: %s + %s -> %s (transmissibility %.4g)\n",
			t.Name, model.States[t.EntryState], model.States[t.ContactState], model.States[t.ExitState], t.Transmissibility)
	}
	fmt.Fprintf(out, "progressions: %d\n", len(model.Progressions))
	for _, p := range model.Progressions {
		fmt.Fprintf(out, "  %s: %s -> %s (p=%.4g)\n", p.Name, model.States[p.EntryState], model.States[p.ExitState], p.Probability)
	}

	hasOutgoing := make([]bool, len(model.States))
	isExitState := make([]bool, len(model.States))
	for _, p := range model.Progressions {
		hasOutgoing[p.EntryState] = true
		isExitState[p.ExitState] = true
	}
	for _, t := range model.Transmissions {
		isExitState[t.ExitState] = true
	}
	for i, name := range model.States {
		if !hasOutgoing[i] && isExitState[i] {
			fmt.Fprintf(out, "note: state %q is reachable but has no outgoing progression (terminal state)\n", name)
		}
	}
	return nil
}

func modelPathFromConfig(configPath string) (string, error) {
	rp, err := config.LoadRunParameters(configPath)
	if err != nil {
		return "", err
	}
	ms, err := config.LoadModelScenario(rp.ModelScenario)
	if err != nil {
		return "", err
	}
	if ms.DiseaseModel == "" {
		return "", errors.New("epihiper-analyzer: model scenario has no diseaseModel")
	}
	return ms.DiseaseModel, nil
}
