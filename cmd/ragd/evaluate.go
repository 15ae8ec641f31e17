// Copyright 2025 The ragd Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/youngouk/RAG-Standard-sub002/pkg/config"
	"github.com/youngouk/RAG-Standard-sub002/pkg/evaluation"
)

// Exit codes for the evaluate command.
const (
	exitPass      = 0
	exitFail      = 1
	exitExecError = 2
)

// EvaluateCmd scores a batch of samples and exits non-zero when the
// average overall score misses the threshold. Intended for CI quality
// gates.
type EvaluateCmd struct {
	Samples   string  `short:"s" required:"" help:"JSON file with an array of {query, answer, contexts, reference} samples." type:"path"`
	Threshold float64 `help:"Minimum acceptable average overall score (default: evaluation.thresholds.min_acceptable)."`
	Output    string  `short:"o" help:"Write per-sample results as JSON to this file." type:"path"`
}

func (c *EvaluateCmd) Run(cli *CLI) error {
	code, err := c.run(cli)
	if err != nil {
		fmt.Fprintf(os.Stderr, "evaluate: %v\n", err)
	}
	os.Exit(code)
	return nil
}

func (c *EvaluateCmd) run(cli *CLI) (int, error) {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return exitExecError, err
	}

	threshold := c.Threshold
	if threshold == 0 {
		threshold = cfg.Evaluation.Thresholds.MinAcceptable
	}

	evaluator, err := evaluation.New(&cfg.Evaluation, &cfg.LLM)
	if err != nil {
		return exitExecError, err
	}
	if evaluator == nil {
		return exitExecError, fmt.Errorf("evaluation is disabled in the configuration")
	}
	if closer, ok := evaluator.(io.Closer); ok {
		defer closer.Close()
	}
	if !evaluator.IsAvailable() {
		return exitExecError, fmt.Errorf("evaluation provider %s is unavailable", evaluator.Name())
	}

	raw, err := os.ReadFile(c.Samples)
	if err != nil {
		return exitExecError, fmt.Errorf("failed to read samples: %w", err)
	}
	var samples []evaluation.Sample
	if err := json.Unmarshal(raw, &samples); err != nil {
		return exitExecError, fmt.Errorf("failed to parse samples: %w", err)
	}
	if len(samples) == 0 {
		return exitExecError, fmt.Errorf("no samples in %s", c.Samples)
	}

	results := evaluator.BatchEvaluate(context.Background(), samples)

	var sum float64
	failed := 0
	for i, res := range results {
		sum += res.Overall
		status := "pass"
		if !res.IsAcceptable(threshold) {
			status = "fail"
			failed++
		}
		fmt.Printf("sample %d: overall=%.3f faithfulness=%.3f relevance=%.3f [%s]\n",
			i+1, res.Overall, res.Faithfulness, res.Relevance, status)
	}
	avg := sum / float64(len(results))
	fmt.Printf("\naverage overall: %.3f (threshold %.3f, %d/%d samples below)\n",
		avg, threshold, failed, len(results))

	if c.Output != "" {
		encoded, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return exitExecError, err
		}
		if err := os.WriteFile(c.Output, encoded, 0644); err != nil {
			return exitExecError, fmt.Errorf("failed to write results: %w", err)
		}
	}

	if avg < threshold {
		return exitFail, nil
	}
	return exitPass, nil
}
