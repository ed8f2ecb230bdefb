package node

import (
	"github.com/spectrumscale/scale-go/common/scale"
	"github.com/spectrumscale/scale-go/ctl/internal/cmdfmt"
	"github.com/spectrumscale/scale-go/ctl/pkg/ctl/node"
	"github.com/spectrumscale/scale-go/ctl/pkg/manifest"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

type addConfig struct {
	manifestPath string
	stanzaPath   string
	license      scale.License
	stanzaDir    string
	start        bool
}

func newAddCmd() *cobra.Command {
	cfg := addConfig{}

	cmd := &cobra.Command{
		Use:   "add (--manifest <path> | --stanza <path>)",
		Short: "Add nodes described by a manifest to the cluster",
		Long: `Add nodes described by a manifest to the cluster and apply their licenses.

The manifest is a YAML file listing the nodes to add. Settings under "common" apply to every node
that does not set them itself:

  common:
    designation: client
    license: client
  nodes:
    - name: io05
    - name: io06
      admin-name: io06-admin
      designation: manager-quorum
      license: server

Instead of a manifest an existing node descriptor file (NodeName:NodeDesignations:AdminNodeName
per line) can be provided with --stanza, all nodes then get the license set with --license.

Nodes that are already cluster members are skipped. Use --start to start the added nodes and wait
until they are active.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAddCmd(cmd, cfg)
		},
	}

	cfg.license = scale.ClientLicense
	cmd.Flags().StringVar(&cfg.manifestPath, "manifest", "", "Path to the node manifest.")
	cmd.Flags().StringVar(&cfg.stanzaPath, "stanza", "", "Path to a node descriptor file.")
	cmd.Flags().Var(&cfg.license, "license", "The license applied to nodes read from --stanza (server, client or fpo).")
	cmd.MarkFlagsOneRequired("manifest", "stanza")
	cmd.MarkFlagsMutuallyExclusive("manifest", "stanza")
	cmd.Flags().StringVar(&cfg.stanzaDir, "stanza-dir", "", "Directory where the temporary node descriptor file is written (defaults to the system temp directory).")
	cmd.Flags().BoolVar(&cfg.start, "start", false, "Start the added nodes and wait until they are active.")
	return cmd
}

func runAddCmd(cmd *cobra.Command, cfg addConfig) error {
	var (
		m   manifest.Manifest
		err error
	)
	if cfg.stanzaPath != "" {
		m, err = manifest.LoadStanza(afero.NewOsFs(), cfg.stanzaPath, cfg.license)
	} else {
		m, err = manifest.Load(afero.NewOsFs(), cfg.manifestPath)
	}
	if err != nil {
		return err
	}
	o, err := newOrchestrator(false)
	if err != nil {
		return err
	}
	return cmdfmt.PrintBatchReport(o.AddNodes(cmd.Context(), node.AddConfig{
		Manifest:  m,
		StanzaDir: cfg.stanzaDir,
		Start:     cfg.start,
	}))
}
