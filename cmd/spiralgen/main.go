package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"spiraldemo/ml"
)

type output struct {
	X [][]float64 `json:"x"`
	Y []int       `json:"y"`
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if err == flag.ErrHelp {
			os.Exit(2)
		}
		log.Fatal(err)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("spiralgen", flag.ContinueOnError)
	fs.SetOutput(stderr)
	samples := fs.Int("samples", 100, "points per class")
	classes := fs.Int("classes", 3, "number of classes")
	seed := fs.Int64("seed", 0, "random seed (a fresh seed when unset)")
	noise := fs.Float64("noise", 0.2, "angular noise")
	hidden := fs.Int("hidden", 64, "hidden layer width of the scoring network (0 skips scoring)")
	out := fs.String("out", "", "output file (default stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := ml.DefaultSpiralConfig()
	cfg.Samples = *samples
	cfg.Classes = *classes
	cfg.Noise = *noise
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			cfg = cfg.WithSeed(*seed)
		}
	})

	dataset, err := ml.GenerateSpiral(cfg)
	if err != nil {
		return fmt.Errorf("generate dataset: %w", err)
	}

	w := stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			return fmt.Errorf("create %s: %w", *out, err)
		}
		defer f.Close()
		w = f
	}
	if err := json.NewEncoder(w).Encode(output{X: dataset.Points(), Y: dataset.Y}); err != nil {
		return fmt.Errorf("write dataset: %w", err)
	}

	eval, err := ml.Evaluate(ml.DefaultProbabilities, ml.DefaultTargets)
	if err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}
	printSummary(stderr, dataset, eval)

	if *hidden > 0 {
		network, err := ml.NewNetwork(2, *hidden, cfg.Classes, cfg.Seed)
		if err != nil {
			return fmt.Errorf("build network: %w", err)
		}
		score, err := ml.ScoreDataset(network, dataset)
		if err != nil {
			return fmt.Errorf("score dataset: %w", err)
		}
		printScore(stderr, *hidden, score)
	}
	return nil
}

// printSummary reports on stderr so stdout stays valid JSON.
func printSummary(w io.Writer, dataset *ml.Dataset, eval ml.Evaluation) {
	p := message.NewPrinter(language.English)
	p.Fprintf(w, "generated %d points in %d classes\n", dataset.Len(), dataset.Classes)
	for c, n := range dataset.ClassCounts() {
		p.Fprintf(w, "  class %d: %d points\n", c, n)
	}
	fmt.Fprintf(w, "predictions=%v matches=%v\n", eval.Predictions, eval.Matches)
	p.Fprintf(w, "acc: %.4f\n", eval.Accuracy)
}

func printScore(w io.Writer, hidden int, score ml.Score) {
	p := message.NewPrinter(language.English)
	p.Fprintf(w, "forward pass (%d hidden): acc: %.4f loss: %.4f\n", hidden, score.Accuracy, score.Loss)
}
