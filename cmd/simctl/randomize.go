package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"examsim/internal/randomize"

	"github.com/spf13/cobra"
)

var seedCount int

var seedCmd = &cobra.Command{
	Use:   "seed <seed>",
	Short: "Print the first draws of the seeded generator",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		seed, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("seed must be an integer: %w", err)
		}
		rng := randomize.NewSeededRandom(seed)
		for i := 0; i < seedCount; i++ {
			fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", i+1, strconv.FormatFloat(rng.Next(), 'g', -1, 64))
		}
		return nil
	},
}

var orderCmd = &cobra.Command{
	Use:   "order <sessionID> <questionCount>",
	Short: "Print the question order of a session",
	Long: `Print the order in which positions 1..questionCount are presented
in the given session. The session id is the shuffle seed.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("session id must be an integer: %w", err)
		}
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 0 {
			return fmt.Errorf("question count must be a non-negative integer")
		}
		positions := make([]int, n)
		for i := range positions {
			positions[i] = i + 1
		}
		order := randomize.RandomizeQuestions(positions, sessionID)
		parts := make([]string, len(order))
		for i, p := range order {
			parts[i] = strconv.Itoa(p)
		}
		fmt.Fprintln(cmd.OutOrStdout(), strings.Join(parts, " "))
		return nil
	},
}

var (
	optionLabels  string
	optionCorrect string
)

var optionsCmd = &cobra.Command{
	Use:   "options <questionID> <sessionID>",
	Short: "Print how a question's option labels are relabelled in a session",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		questionID, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("question id must be an integer: %w", err)
		}
		sessionID, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("session id must be an integer: %w", err)
		}

		options := make(map[string]string)
		for _, label := range strings.Split(optionLabels, ",") {
			if label = strings.TrimSpace(label); label != "" {
				options[label] = "option " + label
			}
		}
		res := randomize.RandomizeOptions(options, optionCorrect, questionID, sessionID)

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "seed %d\n", randomize.OptionSeed(questionID, sessionID))
		originals := make([]string, 0, len(res.Mapping))
		for orig := range res.Mapping {
			originals = append(originals, orig)
		}
		sort.Strings(originals)
		for _, orig := range originals {
			fmt.Fprintf(out, "%s -> %s\n", orig, res.Mapping[orig])
		}
		fmt.Fprintf(out, "correct %s -> %s\n", optionCorrect, res.Correct)
		return nil
	},
}

func init() {
	seedCmd.Flags().IntVarP(&seedCount, "count", "n", 3, "number of draws to print")
	optionsCmd.Flags().StringVar(&optionLabels, "labels", "A,B,C,D", "comma-separated original labels")
	optionsCmd.Flags().StringVar(&optionCorrect, "correct", "A", "original correct label")
}
