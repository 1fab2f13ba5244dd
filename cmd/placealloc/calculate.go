package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ougirez/placealloc/internal/domain"
	"github.com/ougirez/placealloc/internal/domain/dto"
	"github.com/ougirez/placealloc/internal/pkg/config"
	"github.com/ougirez/placealloc/internal/pkg/constants"
	"github.com/ougirez/placealloc/internal/pkg/export"
	"github.com/ougirez/placealloc/internal/service/allocation"
	"github.com/ougirez/placealloc/internal/service/practices"
	"github.com/ougirez/placealloc/internal/service/registry"
)

type calculateOpts struct {
	data   string
	sheet  string
	places string
	format string
	out    string
}

func calculateCmd() *cobra.Command {
	var opts calculateOpts

	cmd := &cobra.Command{
		Use:   "calculate",
		Short: "Compute place indices for a places document and write the table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCalculate(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.data, "data", "d", "", "practice file (csv or xlsx), defaults to dataset.path")
	cmd.Flags().StringVar(&opts.sheet, "sheet", "", "xlsx sheet, defaults to dataset.sheet")
	cmd.Flags().StringVarP(&opts.places, "places", "p", "", "places document (json); the default place when empty")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "csv", "output format: csv, xlsx, zip or json")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "output file, stdout when empty")
	return cmd
}

func loadPlaces(path string) (*registry.Registry, error) {
	opts, err := registryOptions()
	if err != nil {
		return nil, err
	}
	reg := registry.New(opts...)
	if path == "" {
		return reg, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("os.ReadFile: %w", err)
	}
	var doc dto.PlacesDocument
	if err := sonic.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := reg.Import(&doc); err != nil {
		return nil, err
	}
	return reg, nil
}

func runCalculate(ctx context.Context, opts calculateOpts) error {
	if ctx == nil {
		ctx = context.Background()
	}

	data := opts.data
	if data == "" {
		data = viper.GetString(constants.ViperDatasetPathKey)
	}
	sheet := opts.sheet
	if sheet == "" {
		sheet = viper.GetString(constants.ViperDatasetSheetKey)
	}

	rows, err := practices.LoadFile(data, sheet, viper.GetBool(constants.ViperDatasetFillKey))
	if err != nil {
		return err
	}
	ds, err := domain.NewDataset(rows)
	if err != nil {
		return err
	}

	reg, err := loadPlaces(opts.places)
	if err != nil {
		return err
	}
	places := reg.List()

	svc := allocation.NewAllocationService(practices.NewStaticService(ds), allocation.NewDefaultCalculator(),
		config.RoundPlaces(), config.MetricPlaces())
	table, err := svc.RoundedResults(ctx, places)
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if opts.out != "" {
		f, err := os.Create(opts.out)
		if err != nil {
			return fmt.Errorf("os.Create: %w", err)
		}
		defer f.Close()
		w = f
	}

	switch opts.format {
	case "csv":
		return export.WriteCSV(w, table)
	case "xlsx":
		return export.WriteXLSX(w, table)
	case "zip":
		return export.WriteBundle(w, table, dto.NewPlacesDocument(places))
	case "json":
		b, err := sonic.ConfigStd.MarshalIndent(table, "", "  ")
		if err != nil {
			return err
		}
		_, err = w.Write(append(b, '\n'))
		return err
	default:
		return fmt.Errorf("%w: unknown format %q", constants.ErrInvalidInput, opts.format)
	}
}
