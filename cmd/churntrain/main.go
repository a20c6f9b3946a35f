package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/rushteam/churnkit/schema"
	"github.com/rushteam/churnkit/scoring"
	"github.com/rushteam/churnkit/train"
)

func main() {
	var (
		dataPath = flag.String("data", "", "训练数据集 CSV 路径")
		outPath  = flag.String("out", "model.json", "模型工件输出路径")
		c        = flag.Float64("c", 1.0, "正则化强度 C")
		maxIter  = flag.Int("max-iter", 100, "最大迭代数")
		seed     = flag.Int64("seed", 1, "置换种子")
	)
	flag.Parse()

	if *dataPath == "" {
		fmt.Fprintln(os.Stderr, "churntrain: -data is required")
		flag.Usage()
		os.Exit(2)
	}

	ds, err := train.LoadCSV(*dataPath, schema.Customer())
	if err != nil {
		fmt.Fprintf(os.Stderr, "churntrain: load dataset: %v\n", err)
		os.Exit(1)
	}
	if !ds.Labeled {
		fmt.Fprintf(os.Stderr, "churntrain: dataset %s has no label column\n", *dataPath)
		os.Exit(1)
	}

	trainer := train.NewTrainer(
		train.WithC(*c),
		train.WithMaxIter(*maxIter),
		train.WithSeed(*seed),
	)
	pipe, report, err := trainer.Fit(ds)
	if err != nil {
		fmt.Fprintf(os.Stderr, "churntrain: fit: %v\n", err)
		os.Exit(1)
	}

	if err := scoring.Save(pipe, *outPath); err != nil {
		fmt.Fprintf(os.Stderr, "churntrain: save artifact: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("model_id:       %s\n", report.ModelID)
	fmt.Printf("samples:        %d\n", report.Samples)
	fmt.Printf("feature_count:  %d\n", report.FeatureCount)
	fmt.Printf("iterations:     %d (converged=%t)\n", report.Iterations, report.Converged)
	fmt.Printf("train_accuracy: %.4f\n", report.TrainAccuracy)
	fmt.Printf("artifact:       %s\n", *outPath)
}
