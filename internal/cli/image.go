package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/veritaslab/newstrust/internal/image"
)

var (
	imageSourceID string
	imageArticle  uint
	imageTimeout  time.Duration
)

// imageCmd represents the image command
var imageCmd = &cobra.Command{
	Use:   "image <url>",
	Short: "Fingerprint an image and check the corpus for reuse",
	Long: `Image sends the URL to the analysis worker for a content digest and a
perceptual hash, then compares the fingerprint against every previously
seen image. An exact digest match or a near-duplicate at or above the
configured similarity threshold is reported as reused.

Example:
  newstrust image https://cdn.example.com/photo.jpg
  newstrust image https://cdn.example.com/photo.jpg --article 42`,
	Args: cobra.ExactArgs(1),
	RunE: runImage,
}

func init() {
	rootCmd.AddCommand(imageCmd)

	imageCmd.Flags().StringVar(&imageSourceID, "source-id", "", "submitter identifier recorded with the image")
	imageCmd.Flags().UintVar(&imageArticle, "article", 0, "article ID to attach the result to")
	imageCmd.Flags().DurationVar(&imageTimeout, "timeout", 30*time.Second, "overall analysis timeout")
}

func runImage(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), imageTimeout)
	defer cancel()

	result, err := app.images.Analyze(ctx, image.AnalyzeRequest{
		ImageURL:  args[0],
		SourceID:  imageSourceID,
		ArticleID: imageArticle,
	})
	if err != nil {
		return fmt.Errorf("image analysis failed: %w", err)
	}

	return printJSON(result)
}
