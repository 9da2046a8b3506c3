package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/veritaslab/newstrust/internal/score"
)

var (
	scoreURL     string
	scoreTitle   string
	scoreSource  string
	scoreAuthor  string
	scoreText    string
	scoreFile    string
	scoreTimeout time.Duration
)

// scoreCmd represents the score command
var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score an article and update the author's trust",
	Long: `Score computes the article's credibility sub-scores, the weighted
composite and the author trust update, then anchors the result to the
configured ledger.

The article text comes from --text, from --file, or from stdin when
--file is "-". Submitting the same text twice returns the stored result.

Example:
  newstrust score --author reporter@example.com --file article.txt
  cat article.txt | newstrust score --author reporter@example.com --file -`,
	RunE: runScore,
}

func init() {
	rootCmd.AddCommand(scoreCmd)

	scoreCmd.Flags().StringVar(&scoreURL, "url", "", "article URL")
	scoreCmd.Flags().StringVar(&scoreTitle, "title", "", "article title")
	scoreCmd.Flags().StringVar(&scoreSource, "source", "", "publication name")
	scoreCmd.Flags().StringVar(&scoreAuthor, "author", "", "author email (required)")
	scoreCmd.Flags().StringVar(&scoreText, "text", "", "article text")
	scoreCmd.Flags().StringVar(&scoreFile, "file", "", `read article text from file ("-" for stdin)`)
	scoreCmd.Flags().DurationVar(&scoreTimeout, "timeout", 30*time.Second, "overall scoring timeout")
}

func runScore(cmd *cobra.Command, args []string) error {
	text := scoreText
	if scoreFile != "" {
		data, err := readTextSource(scoreFile)
		if err != nil {
			return err
		}
		text = data
	}

	app, err := newApp()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), scoreTimeout)
	defer cancel()

	// The anchor write runs in the background after the commit; a one-shot
	// process has to wait it out or the attempt dies with the process.
	anchored := make(chan struct{})
	app.scores.AnchorNotify(anchored)

	result, err := app.scores.ScoreArticle(ctx, score.SubmitRequest{
		URL:         scoreURL,
		Title:       scoreTitle,
		Text:        text,
		Source:      scoreSource,
		AuthorEmail: scoreAuthor,
	})
	if err != nil {
		return fmt.Errorf("score failed: %w", err)
	}

	if verbose {
		if result.FromCache {
			fmt.Fprintln(os.Stderr, "Previously scored text, serving stored result")
		}
		if result.FallbackUsed {
			fmt.Fprintln(os.Stderr, "External scorer unavailable, scored with local detectors")
		}
	}

	if !result.FromCache {
		select {
		case <-anchored:
		case <-ctx.Done():
			fmt.Fprintln(os.Stderr, "Anchor attempt did not finish in time; run 'newstrust reconcile' to complete it")
		}
	}

	return printJSON(result)
}

func readTextSource(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read article text: %w", err)
	}
	return string(data), nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
