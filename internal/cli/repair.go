package cli

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"fixlet/internal/fixlet/pipeline"
	"fixlet/pkg/errors"
)

type repairCmdParams struct {
	catalogue string
	method    string
	sync      bool
	download  bool
	outputDir string
}

var repairParams = &repairCmdParams{}

func newRepairCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repair <file>",
		Short: "Repair a damaged file",
		Long: `Upload a damaged file and run a repair job against it.

Examples:
  fixlet repair broken.mp4
  fixlet repair --catalogue=video --method=deep broken.mp4
  fixlet repair --download --output=/tmp broken.docx

On success a single JSON payload is written to stdout; diagnostics go to
stderr as newline-delimited JSON records.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New(errors.CodeArgError, "expected exactly one file argument")
			}
			return nil
		},
		RunE: runRepair,
	}

	cmd.Flags().StringVar(&repairParams.catalogue, "catalogue", "", "Logical bucket/category tag (defaults from config)")
	cmd.Flags().StringVar(&repairParams.method, "method", "", "Repair method identifier (defaults from config)")
	cmd.Flags().BoolVar(&repairParams.sync, "sync", false, "Submit the job in synchronous mode")
	cmd.Flags().BoolVar(&repairParams.download, "download", false, "Download the produced artifact next to the source file")
	cmd.Flags().StringVar(&repairParams.outputDir, "output", "", "Directory for the downloaded artifact")

	return cmd
}

func runRepair(cmd *cobra.Command, args []string) error {
	opts := pipeline.Options{
		FilePath:  args[0],
		Catalogue: repairParams.catalogue,
		Method:    repairParams.method,
		IsAsync:   !repairParams.sync,
		Download:  repairParams.download,
		OutputDir: repairParams.outputDir,
	}
	if opts.Catalogue == "" {
		opts.Catalogue = cfg.Repair.Catalogue
	}
	if opts.Method == "" {
		opts.Method = cfg.Repair.Method
	}

	p, err := pipeline.New(cfg)
	if err != nil {
		return err
	}

	result, err := p.Run(context.Background(), opts)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	return enc.Encode(result)
}
