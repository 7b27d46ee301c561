package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/corrlab/internal/cli"
	"github.com/KaramelBytes/corrlab/internal/photo"
	"github.com/KaramelBytes/corrlab/internal/utils"
)

var (
	phOutput     string
	phRotate     float64
	phBrightness float64
	phContrast   float64
)

var photoCmd = &cobra.Command{
	Use:   "photo <image>",
	Short: "Rotate and adjust brightness/contrast of a JPG/PNG",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := photo.FormatFor(phOutput)
		if err != nil {
			return fmt.Errorf("--output: %w", err)
		}
		req := photo.Params{Rotate: phRotate, Brightness: phBrightness, Contrast: phContrast}
		p := req.Clamp()
		if p != req {
			fmt.Fprintln(cmd.ErrOrStderr(), cli.SubtleStyle.Render(
				fmt.Sprintf("⚠ parameters clamped to rotate %.0f, brightness %.2f, contrast %.2f", p.Rotate, p.Brightness, p.Contrast)))
		}

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open image: %w", err)
		}
		defer f.Close()
		img, err := photo.Decode(filepath.Base(args[0]), f)
		if err != nil {
			return err
		}
		out, err := photo.Process(img, p)
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		if err := photo.Encode(&buf, out, format); err != nil {
			return err
		}
		if err := utils.SafeWriteFile(phOutput, buf.Bytes()); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		b := out.Bounds()
		fmt.Fprintln(cmd.OutOrStdout(), cli.SuccessStyle.Render(
			fmt.Sprintf("✓ Wrote %s (%dx%d, rotate %.0f°, brightness %.2f, contrast %.2f)",
				phOutput, b.Dx(), b.Dy(), p.Rotate, p.Brightness, p.Contrast)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(photoCmd)
	d := photo.DefaultParams()
	photoCmd.Flags().StringVarP(&phOutput, "output", "o", "", "output path (.png, .jpg or .jpeg)")
	photoCmd.Flags().Float64Var(&phRotate, "rotate", d.Rotate, fmt.Sprintf("degrees counter-clockwise [%g, %g]", photo.MinRotate, photo.MaxRotate))
	photoCmd.Flags().Float64Var(&phBrightness, "brightness", d.Brightness, fmt.Sprintf("brightness factor [%g, %g]", photo.MinFactor, photo.MaxFactor))
	photoCmd.Flags().Float64Var(&phContrast, "contrast", d.Contrast, fmt.Sprintf("contrast factor [%g, %g]", photo.MinFactor, photo.MaxFactor))
	_ = photoCmd.MarkFlagRequired("output")
}
