// Command epihiper-partition splits a contact-network file into the
// per-rank partition files a multi-process epihiper run expects, applying
// the boundary computation internal/network implements (spec.md §4.1,
// §6 "Standalone partitioner").
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/epihiper-go/epihiper/internal/config"
	"github.com/epihiper-go/epihiper/internal/network"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string
	var networkPath string
	var numParts int
	var outDir string

	cmd := &cobra.Command{
		Use:   "epihiper-partition",
		Short: "Split a contact network into per-rank partition files",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath, networkPath, numParts, outDir)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "optional run-parameter JSON document to read contactNetwork from")
	cmd.Flags().StringVar(&networkPath, "network", "", "contact-network file to partition (overrides --config)")
	cmd.Flags().IntVar(&numParts, "parts", 1, "number of partitions to produce")
	cmd.Flags().StringVar(&outDir, "out", ".", "directory to write partition-<n>.net files into")
	return cmd
}

func run(configPath, networkPath string, numParts int, outDir string) error {
	if networkPath == "" && configPath == "" {
		return errors.New("epihiper-partition: --network or --config is required")
	}
	if networkPath == "" {
		path, err := networkPathFromConfig(configPath)
		if err != nil {
			return err
		}
		networkPath = path
	}
	if numParts < 1 {
		return errors.New("epihiper-partition: --parts must be >= 1")
	}

	f, err := os.Open(networkPath)
	if err != nil {
		return errors.Wrap(err, "epihiper-partition: open network")
	}
	preamble, edges, err := network.LoadText(f)
	f.Close()
	if err != nil {
		return errors.Wrap(err, "epihiper-partition: load network")
	}

	boundaries := network.Boundaries(edges, numParts)
	partitions := network.BuildPartitions(edges, boundaries, preamble.SourceOnlyNodes)

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return errors.Wrap(err, "epihiper-partition: create output directory")
	}
	for _, part := range partitions {
		path := filepath.Join(outDir, fmt.Sprintf("partition-%d.net", part.Index))
		out, err := os.Create(path)
		if err != nil {
			return errors.Wrap(err, "epihiper-partition: create partition file")
		}
		err = network.WriteText(out, preamble, part.Edges)
		out.Close()
		if err != nil {
			return errors.Wrapf(err, "epihiper-partition: write %s", path)
		}
	}
	return nil
}

// networkPathFromConfig loads just enough of the run-parameter and
// model-scenario documents to find the contact-network path, without
// pulling in the rest of the simulator's wiring.
func networkPathFromConfig(configPath string) (string, error) {
	rp, err := config.LoadRunParameters(configPath)
	if err != nil {
		return "", err
	}
	ms, err := config.LoadModelScenario(rp.ModelScenario)
	if err != nil {
		return "", err
	}
	if ms.ContactNetwork == "" {
		return "", errors.New("epihiper-partition: model scenario has no contactNetwork")
	}
	return ms.ContactNetwork, nil
}
